// Command rsawriter runs the credit-metered ad-copy pipeline service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/copyforge/rsa-writer/internal/api"
	"github.com/copyforge/rsa-writer/internal/clock/system"
	"github.com/copyforge/rsa-writer/internal/config"
	"github.com/copyforge/rsa-writer/internal/credit"
	openaigen "github.com/copyforge/rsa-writer/internal/generator/openai"
	iduuid "github.com/copyforge/rsa-writer/internal/id/uuid"
	"github.com/copyforge/rsa-writer/internal/logging"
	"github.com/copyforge/rsa-writer/internal/metrics"
	"github.com/copyforge/rsa-writer/internal/pipeline"
	pubsubpub "github.com/copyforge/rsa-writer/internal/publisher/pubsub"
	collyret "github.com/copyforge/rsa-writer/internal/retriever/colly"
	"github.com/copyforge/rsa-writer/internal/service"
	"github.com/copyforge/rsa-writer/internal/storage/memory"
	"github.com/copyforge/rsa-writer/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "rsawriter: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobs, accounts, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	retriever := collyret.New(collyret.Config{
		UserAgent:    cfg.Retriever.UserAgent,
		Timeout:      cfg.RetrieverTimeout(),
		MaxBodyBytes: cfg.Retriever.MaxBodyBytes,
	}, logger)

	generator, err := openaigen.New(openaigen.Config{
		BaseURL:     cfg.Generator.BaseURL,
		APIKey:      cfg.Generator.APIKey,
		Model:       cfg.Generator.Model,
		MaxTokens:   cfg.Generator.MaxTokens,
		Temperature: cfg.Generator.Temperature,
		Timeout:     cfg.GeneratorTimeout(),
	}, logger)
	if err != nil {
		return fmt.Errorf("init generator: %w", err)
	}

	publisher, pubCleanup, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pubCleanup()

	svc := service.New(
		jobs,
		accounts,
		retriever,
		generator,
		publisher,
		iduuid.NewUUIDGenerator(),
		system.New(),
		service.Config{
			Concurrency:      cfg.Pipeline.Concurrency,
			ScrapeUnitCost:   credit.Amount(cfg.Pricing.ScrapeHalfCredits),
			GenerateUnitCost: credit.Amount(cfg.Pricing.GenerateHalfCredits),
			AllowedDomains:   cfg.Pipeline.AllowedDomains,
			MaxHeadlines:     cfg.Pipeline.MaxHeadlines,
			MaxDescriptions:  cfg.Pipeline.MaxDescriptions,
			Topic:            cfg.PubSub.TopicName,
		},
		logger,
	)

	server := api.NewServer(svc, logger, api.Options{
		AuthEnabled: cfg.Auth.Enabled,
		APIKey:      cfg.Auth.APIKey,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr := <-errCh:
		return fmt.Errorf("http server: %w", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func buildStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (pipeline.JobStore, credit.AccountStore, func(), error) {
	if cfg.DB.DSN == "" {
		logger.Info("no database configured, using in-memory stores")
		jobs := memory.NewJobStore()
		accounts := memory.NewAccountStore()
		// Seed a development account so the API is usable out of the box.
		_ = accounts.PutAccount(ctx, credit.Account{
			OwnerID: "dev",
			Tier:    credit.TierFree,
			Balance: 5 * credit.Credit,
			Created: time.Now().UTC(),
			Updated: time.Now().UTC(),
		})
		return jobs, accounts, func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init postgres: %w", err)
	}
	jobs, err := postgres.NewJobStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	accounts, err := postgres.NewAccountStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	logger.Info("connected to postgres")
	return jobs, accounts, pool.Close, nil
}

func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (pipeline.Publisher, func(), error) {
	if cfg.PubSub.TopicName == "" {
		return nil, func() {}, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("init pubsub client: %w", err)
	}
	logger.Info("publishing phase events", zap.String("topic", cfg.PubSub.TopicName))
	topic := client.Topic(cfg.PubSub.TopicName)
	cleanup := func() {
		topic.Stop()
		_ = client.Close()
	}
	return pubsubpub.New(topic), cleanup, nil
}
