package pipeline

import (
	"context"
	"time"
)

// Retriever fetches content for a single URL via the external
// content-retrieval provider. Fetch failures are reported inside the
// ScrapeResult, not as errors.
type Retriever interface {
	ValidateURL(rawURL string) bool
	FetchOne(ctx context.Context, url string) ScrapeResult
}

// Generator produces text from a prompt via the external generative-text
// provider. One call per URL per generation attempt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// JobStore persists jobs and their per-URL results.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	// UpdateStatus applies a state-machine transition. It must reject
	// transitions Allowed does not permit so that stale writes for an
	// earlier phase never overwrite a later one.
	UpdateStatus(ctx context.Context, jobID string, status JobStatus) error
	// UpdateProgress records numeric progress for the active scrape phase.
	// Writes against a job no longer in StatusScraping are ignored.
	UpdateProgress(ctx context.Context, jobID string, progress Progress) error
	PutScrapeResults(ctx context.Context, jobID string, results map[string]ScrapeResult) error
	// PutGeneratedCopy merges copy for the given URLs without disturbing
	// entries for other URLs.
	PutGeneratedCopy(ctx context.Context, jobID string, copies map[string]GeneratedCopy) error
}

// Publisher pushes phase-completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
