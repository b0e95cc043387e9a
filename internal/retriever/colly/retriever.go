// Package collyretriever implements the content-retrieval provider on top of
// the Colly collector.
package collyretriever

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/copyforge/rsa-writer/internal/pipeline"
)

// Config controls the retriever's HTTP behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MaxBodyBytes caps how much page text is kept per URL (default 64 KiB).
	MaxBodyBytes int
}

const defaultMaxBodyBytes = 64 * 1024

// Retriever fetches one URL at a time; batching and concurrency live in the
// pipeline orchestrator, not here.
type Retriever struct {
	base   *colly.Collector
	cfg    Config
	logger *zap.Logger
}

// New constructs a configured Colly-based Retriever.
func New(cfg Config, logger *zap.Logger) *Retriever {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "rsa-writer-bot/0.1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base := colly.NewCollector(colly.UserAgent(cfg.UserAgent))
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.Timeout)
	return &Retriever{base: base, cfg: cfg, logger: logger}
}

// ValidateURL reports whether the provider will accept this URL.
func (r *Retriever) ValidateURL(rawURL string) bool {
	return pipeline.ValidateURL(rawURL).Valid
}

// FetchOne retrieves one page. Failures of any kind come back inside the
// ScrapeResult; FetchOne never returns an error across the provider boundary.
func (r *Retriever) FetchOne(ctx context.Context, url string) pipeline.ScrapeResult {
	if err := ctx.Err(); err != nil {
		return pipeline.ScrapeResult{URL: url, Error: "fetch canceled: " + err.Error()}
	}

	collector := r.base.Clone()
	resultCh := make(chan pipeline.ScrapeResult, 1)
	var once sync.Once
	send := func(res pipeline.ScrapeResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnResponse(func(resp *colly.Response) {
		send(r.toResult(url, resp))
	})
	collector.OnError(func(resp *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		msg := err.Error()
		if resp != nil && resp.StatusCode != 0 {
			msg = "status " + strconv.Itoa(resp.StatusCode) + ": " + msg
		}
		send(pipeline.ScrapeResult{URL: url, Error: msg})
	})

	if err := collector.Visit(url); err != nil {
		return pipeline.ScrapeResult{URL: url, Error: "visit: " + err.Error()}
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		return res
	default:
		return pipeline.ScrapeResult{URL: url, Error: "fetch produced no result"}
	}
}

func (r *Retriever) toResult(url string, resp *colly.Response) pipeline.ScrapeResult {
	body := resp.Body
	if len(body) > r.cfg.MaxBodyBytes {
		body = body[:r.cfg.MaxBodyBytes]
	}

	meta := map[string]string{
		"status_code": strconv.Itoa(resp.StatusCode),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		meta["final_url"] = resp.Request.URL.String()
	}
	if resp.Headers != nil {
		if ct := resp.Headers.Get("Content-Type"); ct != "" {
			meta["content_type"] = ct
		}
	}

	return pipeline.ScrapeResult{
		URL:     url,
		OK:      true,
		Content: strings.ToValidUTF8(string(body), ""),
		Meta:    meta,
	}
}
