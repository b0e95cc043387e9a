package pipeline

import (
	"context"
	"maps"
	"sync"

	"go.uber.org/zap"

	"github.com/copyforge/rsa-writer/internal/metrics"
)

// ProgressUpdate is handed to the progress callback after each chunk settles.
// Results is a defensive copy; callbacks may mutate it freely.
type ProgressUpdate struct {
	Completed int
	Total     int
	Results   []ScrapeResult
}

// ProgressFunc receives batch progress. Errors are logged, never propagated.
type ProgressFunc func(ProgressUpdate) error

// BatchScraper fans a URL list out to the retriever in bounded-concurrency
// chunks, preserving input order in its output.
type BatchScraper struct {
	retriever   Retriever
	concurrency int
	clock       Clock
	logger      *zap.Logger
}

// NewBatchScraper constructs a BatchScraper. Concurrency defaults to
// DefaultConcurrency when non-positive.
func NewBatchScraper(retriever Retriever, concurrency int, clock Clock, logger *zap.Logger) *BatchScraper {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchScraper{
		retriever:   retriever,
		concurrency: concurrency,
		clock:       clock,
		logger:      logger,
	}
}

// Run fetches every URL and returns one result per input, result[i] matching
// urls[i]. A failing fetch never cancels its chunk siblings and never aborts
// the batch; failures come back as ScrapeResult data. At most the configured
// concurrency of fetches is in flight at any instant.
func (s *BatchScraper) Run(ctx context.Context, urls []string, onProgress ProgressFunc) []ScrapeResult {
	results := make([]ScrapeResult, len(urls))
	if len(urls) == 0 {
		return results
	}

	start := s.clock.Now()
	for offset := 0; offset < len(urls); offset += s.concurrency {
		end := min(offset+s.concurrency, len(urls))

		var wg sync.WaitGroup
		for i := offset; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				results[idx] = s.fetchOne(ctx, urls[idx])
			}(i)
		}
		wg.Wait()

		s.reportProgress(onProgress, results[:end], len(urls))
	}
	metrics.ObserveBatchDuration(s.clock.Now().Sub(start).Seconds())
	return results
}

func (s *BatchScraper) fetchOne(ctx context.Context, url string) ScrapeResult {
	metrics.FetchStarted()
	defer metrics.FetchFinished()

	res := s.retriever.FetchOne(ctx, url)
	res.URL = url
	metrics.ObserveScrapeResult(res.OK)
	if !res.OK {
		s.logger.Warn("fetch failed", zap.String("url", url), zap.String("error", res.Error))
	}
	return res
}

func (s *BatchScraper) reportProgress(onProgress ProgressFunc, settled []ScrapeResult, total int) {
	if onProgress == nil {
		return
	}
	update := ProgressUpdate{
		Completed: len(settled),
		Total:     total,
		Results:   cloneResults(settled),
	}
	if err := onProgress(update); err != nil {
		s.logger.Warn("progress callback failed",
			zap.Int("completed", update.Completed),
			zap.Int("total", update.Total),
			zap.Error(err),
		)
	}
}

func cloneResults(src []ScrapeResult) []ScrapeResult {
	out := make([]ScrapeResult, len(src))
	copy(out, src)
	for i := range out {
		out[i].Meta = maps.Clone(out[i].Meta)
	}
	return out
}
