package poller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tasksync/store"
)

// scriptedFetcher returns a sequence of (job, err) results in order,
// repeating the last one when exhausted
type scriptedFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	idx     int
}

type fetchResult struct {
	job *store.SyncJob
	err error
}

func (f *scriptedFetcher) FetchStatus(ctx context.Context, connectionID string) (*store.SyncJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.results) == 0 {
		return nil, errors.New("no scripted results")
	}
	result := f.results[f.idx]
	if f.idx < len(f.results)-1 {
		f.idx++
	}
	return result.job, result.err
}

func inProgressJob() *store.SyncJob {
	return &store.SyncJob{ID: "job-1", ConnectionID: "conn-1", Status: store.JobInProgress}
}

func completedJob(total int) *store.SyncJob {
	return &store.SyncJob{ID: "job-1", ConnectionID: "conn-1", Status: store.JobCompleted, TotalItems: total}
}

func failedJob(message string) *store.SyncJob {
	return &store.SyncJob{ID: "job-1", ConnectionID: "conn-1", Status: store.JobFailed, Error: message}
}

// pollAndCount runs Poll and returns how often each callback fired
func pollAndCount(t *testing.T, p *Poller, ctx context.Context) (successes, failures int, lastJob *store.SyncJob, lastMessage string) {
	t.Helper()
	p.Poll(ctx, "conn-1", Callbacks{
		OnSuccess: func(job *store.SyncJob) {
			successes++
			lastJob = job
		},
		OnFailure: func(message string) {
			failures++
			lastMessage = message
		},
	})
	return
}

// TestPollSuccessExactlyOnce tests that completion fires OnSuccess once
func TestPollSuccessExactlyOnce(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{
		{job: inProgressJob()},
		{job: inProgressJob()},
		{job: completedJob(7)},
	}}

	p := New(fetcher, WithInterval(time.Millisecond))
	successes, failures, job, _ := pollAndCount(t, p, context.Background())

	if successes != 1 {
		t.Errorf("Expected exactly 1 success callback, got %d", successes)
	}
	if failures != 0 {
		t.Errorf("Expected no failure callbacks, got %d", failures)
	}
	if job == nil || job.TotalItems != 7 {
		t.Errorf("Expected completed job with 7 items, got %+v", job)
	}
}

// TestPollFailureUsesStoredError tests the failure message source
func TestPollFailureUsesStoredError(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{
		{job: inProgressJob()},
		{job: failedJob("upstream returned 502")},
	}}

	p := New(fetcher, WithInterval(time.Millisecond))
	successes, failures, _, message := pollAndCount(t, p, context.Background())

	if successes != 0 || failures != 1 {
		t.Fatalf("Expected exactly 1 failure, got %d successes %d failures", successes, failures)
	}
	if message != "upstream returned 502" {
		t.Errorf("Expected stored job error as message, got '%s'", message)
	}
}

// TestPollFailureGenericFallback tests the fallback message for failed jobs
// with no stored error
func TestPollFailureGenericFallback(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{
		{job: failedJob("")},
	}}

	p := New(fetcher, WithInterval(time.Millisecond))
	_, failures, _, message := pollAndCount(t, p, context.Background())

	if failures != 1 {
		t.Fatalf("Expected 1 failure callback, got %d", failures)
	}
	if message != "sync failed" {
		t.Errorf("Expected generic fallback message, got '%s'", message)
	}
}

// TestPollFetchError tests that a fetch error stops polling with a generic
// failure
func TestPollFetchError(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{
		{err: errors.New("connection refused")},
	}}

	p := New(fetcher, WithInterval(time.Millisecond))
	_, failures, _, message := pollAndCount(t, p, context.Background())

	if failures != 1 {
		t.Fatalf("Expected 1 failure callback, got %d", failures)
	}
	if message != "failed to fetch sync status" {
		t.Errorf("Expected generic fetch failure message, got '%s'", message)
	}
}

// TestPollWaitsThroughNotFound tests that a missing job keeps the loop alive
func TestPollWaitsThroughNotFound(t *testing.T) {
	notFound := &store.StoreError{Op: "GetLatestSyncJob", Err: store.ErrNotFound}
	fetcher := &scriptedFetcher{results: []fetchResult{
		{err: notFound},
		{err: notFound},
		{job: completedJob(2)},
	}}

	p := New(fetcher, WithInterval(time.Millisecond))
	successes, failures, _, _ := pollAndCount(t, p, context.Background())

	if successes != 1 || failures != 0 {
		t.Errorf("Expected poll to survive not-found and succeed, got %d successes %d failures", successes, failures)
	}
}

// TestPollMaxPolls tests that the poll cap ends a stuck job
func TestPollMaxPolls(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{
		{job: inProgressJob()},
	}}

	p := New(fetcher, WithInterval(time.Millisecond), WithMaxPolls(3))
	successes, failures, _, message := pollAndCount(t, p, context.Background())

	if successes != 0 || failures != 1 {
		t.Fatalf("Expected exactly 1 failure, got %d successes %d failures", successes, failures)
	}
	if message != "sync status polling timed out" {
		t.Errorf("Expected timeout message, got '%s'", message)
	}
}

// TestPollContextCancel tests that cancellation fires the failure callback
func TestPollContextCancel(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{
		{job: inProgressJob()},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(fetcher, WithInterval(time.Millisecond))
	_, failures, _, message := pollAndCount(t, p, ctx)

	if failures != 1 {
		t.Fatalf("Expected 1 failure callback, got %d", failures)
	}
	if message != "sync status polling cancelled" {
		t.Errorf("Expected cancellation message, got '%s'", message)
	}
}

// TestStoreFetcher tests the store-backed fetcher against a real database
func TestStoreFetcher(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := store.InitDatabase(tmpDir + "/test.db")
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	jobs := store.NewSyncJobStore(db)
	ctx := context.Background()

	job, err := jobs.CreateSyncJob(ctx, "conn-1")
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	if err := jobs.CompleteSyncJob(ctx, job.ID, 4); err != nil {
		t.Fatalf("Failed to complete job: %v", err)
	}

	fetcher := &StoreFetcher{Jobs: jobs}
	got, err := fetcher.FetchStatus(ctx, "conn-1")
	if err != nil {
		t.Fatalf("Failed to fetch status: %v", err)
	}
	if got.Status != store.JobCompleted || got.TotalItems != 4 {
		t.Errorf("Unexpected job state: %+v", got)
	}

	_, err = fetcher.FetchStatus(ctx, "never-synced")
	if !store.IsNotFound(err) {
		t.Errorf("Expected not-found for unsynced connection, got %v", err)
	}
}

// TestHTTPFetcher tests the wire-level fetcher against a fake API server
func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Expected bearer auth header, got '%s'", got)
		}

		switch r.URL.Path {
		case "/api/integration/conn-1/sync-status":
			_ = json.NewEncoder(w).Encode(store.SyncJob{
				ID:           "job-1",
				ConnectionID: "conn-1",
				Status:       store.JobCompleted,
				TotalItems:   5,
			})
		case "/api/integration/never-synced/sync-status":
			http.Error(w, "no sync job found", http.StatusNotFound)
		default:
			http.Error(w, "bad route", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(srv.URL, "tok-1")
	ctx := context.Background()

	job, err := fetcher.FetchStatus(ctx, "conn-1")
	if err != nil {
		t.Fatalf("Failed to fetch status: %v", err)
	}
	if job.Status != store.JobCompleted || job.TotalItems != 5 {
		t.Errorf("Unexpected job state: %+v", job)
	}

	_, err = fetcher.FetchStatus(ctx, "never-synced")
	if !store.IsNotFound(err) {
		t.Errorf("Expected not-found for 404 response, got %v", err)
	}
}

// TestHTTPFetcherServerError tests that non-200 responses surface as errors
func TestHTTPFetcherServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database unavailable", http.StatusInternalServerError)
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(srv.URL, "")

	_, err := fetcher.FetchStatus(context.Background(), "conn-1")
	if err == nil {
		t.Fatal("Expected error for 500 response")
	}
	if store.IsNotFound(err) {
		t.Error("500 response misclassified as not-found")
	}
}
