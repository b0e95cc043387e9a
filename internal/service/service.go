// Package service implements the caller-facing pipeline operations:
// batch submission, copy generation, and job lookup.
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/copyforge/rsa-writer/internal/credit"
	"github.com/copyforge/rsa-writer/internal/metrics"
	"github.com/copyforge/rsa-writer/internal/pipeline"
)

// Result is the uniform envelope every operation returns. Callers always get
// either success-with-data or failure-with-message; nothing panics or leaks
// raw provider errors across this boundary.
type Result[T any] struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

func failure[T any](format string, args ...any) Result[T] {
	return Result[T]{Message: fmt.Sprintf(format, args...)}
}

func success[T any](data T, format string, args ...any) Result[T] {
	return Result[T]{OK: true, Message: fmt.Sprintf(format, args...), Data: data}
}

// SubmitReceipt is returned by SubmitBatch.
type SubmitReceipt struct {
	JobID        string   `json:"job_id"`
	RejectedURLs []string `json:"rejected_urls"`
	ScrapedCount int      `json:"scraped_count"`
	FailedURLs   []string `json:"failed_urls,omitempty"`
}

// GenerateReceipt is returned by GenerateAllCopy.
type GenerateReceipt struct {
	JobID          string                `json:"job_id"`
	GeneratedCount int                   `json:"generated_count"`
	FailedURLs     []pipeline.URLFailure `json:"failed_urls,omitempty"`
}

// Config controls Service behavior.
type Config struct {
	Concurrency      int
	ScrapeUnitCost   credit.Amount
	GenerateUnitCost credit.Amount
	AllowedDomains   []string
	MaxHeadlines     int
	MaxDescriptions  int
	Topic            string
}

// Service owns one invocation of each pipeline operation. It holds no job or
// account state between calls; everything flows through the injected stores.
type Service struct {
	jobs      pipeline.JobStore
	accounts  credit.AccountStore
	scraper   *pipeline.BatchScraper
	writer    *pipeline.CopyWriter
	publisher pipeline.Publisher
	idGen     pipeline.IDGenerator
	clock     pipeline.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Service.
func New(
	jobs pipeline.JobStore,
	accounts credit.AccountStore,
	retriever pipeline.Retriever,
	generator pipeline.Generator,
	publisher pipeline.Publisher,
	idGen pipeline.IDGenerator,
	clock pipeline.Clock,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ScrapeUnitCost <= 0 {
		cfg.ScrapeUnitCost = credit.HalfCredit
	}
	if cfg.GenerateUnitCost <= 0 {
		cfg.GenerateUnitCost = credit.HalfCredit
	}
	return &Service{
		jobs:      jobs,
		accounts:  accounts,
		scraper:   pipeline.NewBatchScraper(retriever, cfg.Concurrency, clock, logger),
		writer:    pipeline.NewCopyWriter(generator, cfg.MaxHeadlines, cfg.MaxDescriptions, logger),
		publisher: publisher,
		idGen:     idGen,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// SubmitBatch validates raw URL input, creates a job, runs the scrape phase
// under bounded concurrency, and settles credits against the success count.
// Validation and admission rejections happen before any work starts and are
// free of charge.
func (s *Service) SubmitBatch(ctx context.Context, ownerID, rawText, label string) Result[SubmitReceipt] {
	verdicts := pipeline.ValidateLines(rawText, s.cfg.AllowedDomains)
	if len(verdicts) == 0 {
		return failure[SubmitReceipt]("no URLs provided")
	}
	urls := pipeline.AcceptedURLs(verdicts)
	rejected := rejectedOriginals(verdicts)
	if len(urls) == 0 {
		return failure[SubmitReceipt]("all URLs are invalid, please provide valid URLs")
	}

	acct, err := s.accounts.GetAccount(ctx, ownerID)
	if err != nil {
		return failure[SubmitReceipt]("load account: %v", err)
	}
	if err := credit.CheckBatchSize(acct, len(urls)); err != nil {
		return failure[SubmitReceipt]("%v", err)
	}
	if err := credit.CheckAdmission(acct, len(urls), s.cfg.ScrapeUnitCost); err != nil {
		return failure[SubmitReceipt]("%v", err)
	}

	jobID, err := s.idGen.NewID()
	if err != nil {
		return failure[SubmitReceipt]("generate job id: %v", err)
	}
	now := s.clock.Now()
	job := pipeline.Job{
		ID:      jobID,
		OwnerID: ownerID,
		Label:   label,
		URLs:    urls,
		Status:  pipeline.StatusPending,
		Created: now,
		Updated: now,
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return failure[SubmitReceipt]("create job: %v", err)
	}
	if err := s.jobs.UpdateStatus(ctx, jobID, pipeline.StatusScraping); err != nil {
		return failure[SubmitReceipt]("start scrape phase: %v", err)
	}

	s.logger.Info("scrape phase started",
		zap.String("job_id", jobID),
		zap.String("owner_id", ownerID),
		zap.Int("urls", len(urls)),
		zap.Int("rejected", len(rejected)),
	)

	results := s.scraper.Run(ctx, urls, func(update pipeline.ProgressUpdate) error {
		// Progress write failures must not fail the in-flight batch; the
		// scraper logs the returned error and moves on.
		return s.jobs.UpdateProgress(ctx, jobID, pipeline.Progress{
			Completed: update.Completed,
			Total:     update.Total,
		})
	})

	byURL := make(map[string]pipeline.ScrapeResult, len(results))
	var failedURLs []string
	succeeded := 0
	for _, res := range results {
		byURL[res.URL] = res
		if res.OK {
			succeeded++
		} else {
			failedURLs = append(failedURLs, res.URL)
		}
	}
	if err := s.jobs.PutScrapeResults(ctx, jobID, byURL); err != nil {
		s.logger.Error("store scrape results failed", zap.String("job_id", jobID), zap.Error(err))
		return failure[SubmitReceipt]("store scrape results: %v", err)
	}

	debited := s.settle(ctx, acct, succeeded, s.cfg.ScrapeUnitCost, "scrape")

	receipt := SubmitReceipt{
		JobID:        jobID,
		RejectedURLs: rejected,
		ScrapedCount: succeeded,
		FailedURLs:   failedURLs,
	}

	if succeeded == 0 {
		s.finishPhase(ctx, jobID, pipeline.StatusFailed, "scrape", succeeded, len(failedURLs), debited)
		return failure[SubmitReceipt]("failed to scrape any URLs successfully")
	}
	s.finishPhase(ctx, jobID, pipeline.StatusCompleted, "scrape", succeeded, len(failedURLs), debited)
	return success(receipt, "%d/%d URLs scraped successfully", succeeded, len(urls))
}

// GenerateAllCopy runs the generation phase over a completed job's scrape
// results: sequential, partial-failure-tolerant, settled on the per-URL
// success count.
func (s *Service) GenerateAllCopy(ctx context.Context, jobID string) Result[GenerateReceipt] {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return failure[GenerateReceipt]("load job: %v", err)
	}
	if job.Status != pipeline.StatusCompleted {
		return failure[GenerateReceipt]("job is %s, generation requires a completed job", job.Status)
	}
	if len(job.ScrapeResults) == 0 {
		return failure[GenerateReceipt]("no scraped data available")
	}

	eligible := 0
	for _, res := range job.ScrapeResults {
		if res.OK {
			eligible++
		}
	}

	acct, err := s.accounts.GetAccount(ctx, job.OwnerID)
	if err != nil {
		return failure[GenerateReceipt]("load account: %v", err)
	}
	if err := credit.CheckAdmission(acct, eligible, s.cfg.GenerateUnitCost); err != nil {
		return failure[GenerateReceipt]("%v", err)
	}

	if err := s.jobs.UpdateStatus(ctx, jobID, pipeline.StatusGenerating); err != nil {
		return failure[GenerateReceipt]("start generation phase: %v", err)
	}
	s.logger.Info("generation phase started",
		zap.String("job_id", jobID),
		zap.Int("eligible", eligible),
	)

	report := s.writer.Run(ctx, job.URLs, job.ScrapeResults)
	if report.Eligible == 0 {
		s.finishPhase(ctx, jobID, pipeline.StatusFailed, "generate", 0, 0, 0)
		return failure[GenerateReceipt]("%v", pipeline.ErrNoScrapeData)
	}

	if len(report.Copies) > 0 {
		if err := s.jobs.PutGeneratedCopy(ctx, jobID, report.Copies); err != nil {
			s.logger.Error("store generated copy failed", zap.String("job_id", jobID), zap.Error(err))
			return failure[GenerateReceipt]("store generated copy: %v", err)
		}
	}

	debited := s.settle(ctx, acct, len(report.Copies), s.cfg.GenerateUnitCost, "generate")

	// Per-URL generation failures are not phase-fatal: the loop ran, so the
	// job returns to completed regardless of how many URLs produced copy.
	s.finishPhase(ctx, jobID, pipeline.StatusCompleted, "generate", len(report.Copies), len(report.Failed), debited)
	return success(GenerateReceipt{
		JobID:          jobID,
		GeneratedCount: len(report.Copies),
		FailedURLs:     report.Failed,
	}, "generated copy for %d/%d URLs", len(report.Copies), report.Eligible)
}

// GenerateSingleCopy regenerates copy for one URL of a completed job,
// replacing that URL's entry without disturbing the others. The job's status
// is not cycled; this is the per-URL editing path.
func (s *Service) GenerateSingleCopy(ctx context.Context, jobID, url string) Result[pipeline.GeneratedCopy] {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return failure[pipeline.GeneratedCopy]("load job: %v", err)
	}
	if job.Status != pipeline.StatusCompleted {
		return failure[pipeline.GeneratedCopy]("job is %s, generation requires a completed job", job.Status)
	}
	res, ok := job.ScrapeResults[url]
	if !ok || !res.OK {
		return failure[pipeline.GeneratedCopy]("url has no successful scrape result")
	}

	acct, err := s.accounts.GetAccount(ctx, job.OwnerID)
	if err != nil {
		return failure[pipeline.GeneratedCopy]("load account: %v", err)
	}
	if err := credit.CheckAdmission(acct, 1, s.cfg.GenerateUnitCost); err != nil {
		return failure[pipeline.GeneratedCopy]("%v", err)
	}

	copyForURL, err := s.writer.GenerateOne(ctx, res)
	metrics.ObserveGenerationResult(err == nil)
	if err != nil {
		s.logger.Warn("single copy generation failed", zap.String("job_id", jobID), zap.String("url", url), zap.Error(err))
		return failure[pipeline.GeneratedCopy]("copy generation failed for %s", url)
	}

	if err := s.jobs.PutGeneratedCopy(ctx, jobID, map[string]pipeline.GeneratedCopy{url: copyForURL}); err != nil {
		return failure[pipeline.GeneratedCopy]("store generated copy: %v", err)
	}
	s.settle(ctx, acct, 1, s.cfg.GenerateUnitCost, "generate")

	return success(copyForURL, "generated copy for %s", url)
}

// GetProject returns the job for poll/refresh progress reads.
func (s *Service) GetProject(ctx context.Context, jobID string) Result[pipeline.Job] {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return failure[pipeline.Job]("load job: %v", err)
	}
	return success(job, "ok")
}

// settle applies the phase's single success-contingent debit and returns the
// half-credit units actually debited.
func (s *Service) settle(ctx context.Context, acct credit.Account, successCount int, unitCost credit.Amount, phase string) credit.Amount {
	newBalance := credit.Settle(acct, successCount, unitCost)
	debited := acct.Balance - newBalance
	if debited == 0 {
		return 0
	}
	if err := s.accounts.UpdateBalance(ctx, acct.OwnerID, newBalance); err != nil {
		// The phase's work is done; a settlement write failure must not
		// unwind it. Surface loudly and move on.
		s.logger.Error("settlement write failed",
			zap.String("owner_id", acct.OwnerID),
			zap.String("phase", phase),
			zap.Error(err),
		)
		return 0
	}
	metrics.ObserveCreditsDebited(phase, int64(debited))
	s.logger.Info("credits settled",
		zap.String("owner_id", acct.OwnerID),
		zap.String("phase", phase),
		zap.Int("successes", successCount),
		zap.String("debited", debited.String()),
		zap.String("balance", newBalance.String()),
	)
	return debited
}

func (s *Service) finishPhase(ctx context.Context, jobID string, status pipeline.JobStatus, phase string, succeeded, failed int, debited credit.Amount) {
	if err := s.jobs.UpdateStatus(ctx, jobID, status); err != nil {
		s.logger.Error("final status update failed",
			zap.String("job_id", jobID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
	metrics.ObserveJobStatus(string(status))
	s.publishPhase(ctx, jobID, phase, status, succeeded, failed, debited)
}

func (s *Service) publishPhase(ctx context.Context, jobID, phase string, status pipeline.JobStatus, succeeded, failed int, debited credit.Amount) {
	if s.publisher == nil || s.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"job_id":          jobID,
		"phase":           phase,
		"status":          string(status),
		"succeeded":       succeeded,
		"failed":          failed,
		"credits_debited": debited.String(),
		"timestamp":       s.clock.Now().UTC(),
	}
	if _, err := s.publisher.Publish(ctx, s.cfg.Topic, payload); err != nil {
		s.logger.Warn("phase event publish failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

func rejectedOriginals(verdicts []pipeline.Verdict) []string {
	var rejected []string
	for _, v := range verdicts {
		if !v.Valid {
			rejected = append(rejected, v.Original)
		}
	}
	return rejected
}
