// Package pipeline defines the core types and orchestrators for the
// credit-metered batch ad-copy pipeline.
package pipeline

import "time"

// JobStatus represents the lifecycle state of a batch job.
type JobStatus string

// Job status values persisted in the job store.
const (
	StatusPending    JobStatus = "pending"
	StatusScraping   JobStatus = "scraping"
	StatusGenerating JobStatus = "generating"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Progress carries the numeric progress of an in-flight phase. It is stored
// next to the discrete status, never encoded into it.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Job is the unit of batch work: an immutable ordered URL list plus the
// per-URL scrape and generation results accumulated over its lifecycle.
type Job struct {
	ID            string                   `json:"id"`
	OwnerID       string                   `json:"owner_id"`
	Label         string                   `json:"label"`
	URLs          []string                 `json:"urls"`
	ScrapeResults map[string]ScrapeResult  `json:"scrape_results,omitempty"`
	GeneratedCopy map[string]GeneratedCopy `json:"generated_copy,omitempty"`
	Status        JobStatus                `json:"status"`
	Progress      Progress                 `json:"progress"`
	Created       time.Time                `json:"created_at"`
	Updated       time.Time                `json:"updated_at"`
}

// ScrapeResult is the outcome of a single fetch attempt. It is written once
// per URL per attempt and never mutated afterward.
type ScrapeResult struct {
	URL     string            `json:"url"`
	OK      bool              `json:"ok"`
	Content string            `json:"content,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// GeneratedCopy holds the ad copy produced for one URL: up to MaxHeadlines
// headline strings and up to MaxDescriptions description strings, in the
// order the provider returned them.
type GeneratedCopy struct {
	URL          string   `json:"url"`
	Headlines    []string `json:"headlines"`
	Descriptions []string `json:"descriptions"`
}

// Default limits requested from the generation provider.
const (
	MaxHeadlines    = 15
	MaxDescriptions = 4
)

// DefaultConcurrency bounds the number of in-flight fetches per batch.
const DefaultConcurrency = 5
