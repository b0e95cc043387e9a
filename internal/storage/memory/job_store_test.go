package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/copyforge/rsa-writer/internal/pipeline"
	"github.com/copyforge/rsa-writer/internal/storage"
)

func seedJob(t *testing.T, store *JobStore, status pipeline.JobStatus) pipeline.Job {
	t.Helper()
	job := pipeline.Job{
		ID:      "job-1",
		OwnerID: "owner",
		URLs:    []string{"https://a.com/", "https://b.com/"},
		Status:  status,
		Created: time.Now().UTC(),
		Updated: time.Now().UTC(),
	}
	require.NoError(t, store.CreateJob(context.Background(), job))
	return job
}

func TestJobStore_CreateAndGet(t *testing.T) {
	t.Parallel()

	store := NewJobStore()
	job := seedJob(t, store, pipeline.StatusPending)

	got, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, job.URLs, got.URLs)
	require.Equal(t, pipeline.StatusPending, got.Status)

	require.Error(t, store.CreateJob(context.Background(), job), "duplicate id must be rejected")

	_, err = store.GetJob(context.Background(), "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestJobStore_GetReturnsACopy(t *testing.T) {
	t.Parallel()

	store := NewJobStore()
	job := seedJob(t, store, pipeline.StatusScraping)
	require.NoError(t, store.PutScrapeResults(context.Background(), job.ID, map[string]pipeline.ScrapeResult{
		"https://a.com/": {URL: "https://a.com/", OK: true, Content: "original"},
	}))

	got, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	got.URLs[0] = "mutated"
	res := got.ScrapeResults["https://a.com/"]
	res.Content = "mutated"
	got.ScrapeResults["https://a.com/"] = res

	fresh, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, "https://a.com/", fresh.URLs[0])
	require.Equal(t, "original", fresh.ScrapeResults["https://a.com/"].Content)
}

func TestJobStore_UpdateStatusEnforcesTransitions(t *testing.T) {
	t.Parallel()

	store := NewJobStore()
	job := seedJob(t, store, pipeline.StatusPending)
	ctx := context.Background()

	require.NoError(t, store.UpdateStatus(ctx, job.ID, pipeline.StatusScraping))
	require.NoError(t, store.UpdateStatus(ctx, job.ID, pipeline.StatusCompleted))
	require.NoError(t, store.UpdateStatus(ctx, job.ID, pipeline.StatusGenerating))
	require.NoError(t, store.UpdateStatus(ctx, job.ID, pipeline.StatusFailed))

	// Failed is terminal; nothing moves out of it.
	err := store.UpdateStatus(ctx, job.ID, pipeline.StatusScraping)
	require.ErrorIs(t, err, pipeline.ErrInvalidTransition)

	require.ErrorIs(t, store.UpdateStatus(ctx, "missing", pipeline.StatusScraping), storage.ErrNotFound)
}

func TestJobStore_ProgressOnlyWhileScraping(t *testing.T) {
	t.Parallel()

	store := NewJobStore()
	job := seedJob(t, store, pipeline.StatusScraping)
	ctx := context.Background()

	require.NoError(t, store.UpdateProgress(ctx, job.ID, pipeline.Progress{Completed: 1, Total: 2}))
	got, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, pipeline.Progress{Completed: 1, Total: 2}, got.Progress)

	require.NoError(t, store.UpdateStatus(ctx, job.ID, pipeline.StatusCompleted))

	// A late write from a finished batch is dropped silently.
	require.NoError(t, store.UpdateProgress(ctx, job.ID, pipeline.Progress{Completed: 2, Total: 2}))
	got, err = store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, pipeline.Progress{Completed: 1, Total: 2}, got.Progress)
}

func TestJobStore_PutGeneratedCopyMerges(t *testing.T) {
	t.Parallel()

	store := NewJobStore()
	job := seedJob(t, store, pipeline.StatusCompleted)
	ctx := context.Background()

	require.NoError(t, store.PutGeneratedCopy(ctx, job.ID, map[string]pipeline.GeneratedCopy{
		"https://a.com/": {URL: "https://a.com/", Headlines: []string{"first"}},
		"https://b.com/": {URL: "https://b.com/", Headlines: []string{"keep me"}},
	}))
	require.NoError(t, store.PutGeneratedCopy(ctx, job.ID, map[string]pipeline.GeneratedCopy{
		"https://a.com/": {URL: "https://a.com/", Headlines: []string{"replaced"}},
	}))

	got, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, got.GeneratedCopy, 2)
	require.Equal(t, []string{"replaced"}, got.GeneratedCopy["https://a.com/"].Headlines)
	require.Equal(t, []string{"keep me"}, got.GeneratedCopy["https://b.com/"].Headlines)
}
