// Package memory provides in-memory store implementations for development
// and testing.
package memory

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/copyforge/rsa-writer/internal/pipeline"
	"github.com/copyforge/rsa-writer/internal/storage"
)

// JobStore keeps jobs in a mutex-guarded map.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]pipeline.Job
}

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]pipeline.Job)}
}

// CreateJob stores a new job.
func (s *JobStore) CreateJob(_ context.Context, job pipeline.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (pipeline.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return pipeline.Job{}, storage.ErrNotFound
	}
	return cloneJob(job), nil
}

// UpdateStatus applies a state-machine transition, rejecting any move the
// transition table does not permit. This is what keeps stale writes for an
// earlier phase from overwriting a later one.
func (s *JobStore) UpdateStatus(_ context.Context, jobID string, status pipeline.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return storage.ErrNotFound
	}
	if err := pipeline.CheckTransition(job.Status, status); err != nil {
		return err
	}
	job.Status = status
	job.Updated = time.Now().UTC()
	s.jobs[jobID] = job
	return nil
}

// UpdateProgress records scrape progress. Writes against a job that has
// already left the scraping phase are dropped without error.
func (s *JobStore) UpdateProgress(_ context.Context, jobID string, progress pipeline.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return storage.ErrNotFound
	}
	if job.Status != pipeline.StatusScraping {
		return nil
	}
	job.Progress = progress
	job.Updated = time.Now().UTC()
	s.jobs[jobID] = job
	return nil
}

// PutScrapeResults replaces the job's scrape-result mapping.
func (s *JobStore) PutScrapeResults(_ context.Context, jobID string, results map[string]pipeline.ScrapeResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return storage.ErrNotFound
	}
	job.ScrapeResults = maps.Clone(results)
	job.Updated = time.Now().UTC()
	s.jobs[jobID] = job
	return nil
}

// PutGeneratedCopy merges copy entries, preserving other URLs' existing copy.
func (s *JobStore) PutGeneratedCopy(_ context.Context, jobID string, copies map[string]pipeline.GeneratedCopy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return storage.ErrNotFound
	}
	if job.GeneratedCopy == nil {
		job.GeneratedCopy = make(map[string]pipeline.GeneratedCopy, len(copies))
	} else {
		job.GeneratedCopy = maps.Clone(job.GeneratedCopy)
	}
	for url, c := range copies {
		job.GeneratedCopy[url] = c
	}
	job.Updated = time.Now().UTC()
	s.jobs[jobID] = job
	return nil
}

func cloneJob(job pipeline.Job) pipeline.Job {
	cp := job
	cp.URLs = append([]string(nil), job.URLs...)
	cp.ScrapeResults = maps.Clone(job.ScrapeResults)
	cp.GeneratedCopy = maps.Clone(job.GeneratedCopy)
	return cp
}
