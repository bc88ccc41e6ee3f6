package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"tasksync/store"
)

// StatusFetcher returns the latest sync job for a connection.
// store.ErrNotFound means the connection has never synced.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, connectionID string) (*store.SyncJob, error)
}

// StoreFetcher reads job status straight from the sync job store.
// Used when the poller runs in the same process as the controller.
type StoreFetcher struct {
	Jobs *store.SyncJobStore
}

// FetchStatus implements StatusFetcher
func (f *StoreFetcher) FetchStatus(ctx context.Context, connectionID string) (*store.SyncJob, error) {
	return f.Jobs.GetLatestSyncJob(ctx, connectionID)
}

// HTTPFetcher reads job status from a running tasksync API server.
// This is the client-side variant: a CLI or external watcher polling the
// sync-status endpoint over the wire.
type HTTPFetcher struct {
	BaseURL   string
	AuthToken string
	Client    *http.Client
}

// NewHTTPFetcher creates an HTTP status fetcher against the given server
func NewHTTPFetcher(baseURL, authToken string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL:   baseURL,
		AuthToken: authToken,
		Client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchStatus implements StatusFetcher
func (f *HTTPFetcher) FetchStatus(ctx context.Context, connectionID string) (*store.SyncJob, error) {
	endpoint := fmt.Sprintf("%s/api/integration/%s/sync-status", f.BaseURL, url.PathEscape(connectionID))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+f.AuthToken)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, store.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status request failed with %d: %s", resp.StatusCode, string(body))
	}

	var job store.SyncJob
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	return &job, nil
}
