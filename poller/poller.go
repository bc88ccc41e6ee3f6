// Package poller watches a connection's sync job status at a fixed interval
// until the job reaches a terminal state, then signals success or failure
// exactly once.
package poller

import (
	"context"
	"log"
	"os"
	"time"

	"tasksync/store"
)

// DefaultInterval is the poll cadence; the UI refresh was designed around
// one second.
const DefaultInterval = time.Second

// Callbacks receive the poll outcome. At most one of OnSuccess/OnFailure is
// invoked, exactly once, after which polling stops.
type Callbacks struct {
	// OnSuccess fires when the job completes
	OnSuccess func(job *store.SyncJob)

	// OnFailure fires when the job fails or the poll itself gives up;
	// message is the stored job error or a generic fallback
	OnFailure func(message string)
}

// Poller repeatedly fetches a connection's latest sync job
type Poller struct {
	fetcher  StatusFetcher
	interval time.Duration

	// MaxPolls bounds the number of fetches; 0 means poll until the
	// context ends. An indefinitely stuck job otherwise polls forever.
	maxPolls int

	logger *log.Logger
}

// Option configures a Poller
type Option func(*Poller)

// WithInterval overrides the poll interval
func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

// WithMaxPolls bounds the total number of status fetches
func WithMaxPolls(n int) Option {
	return func(p *Poller) { p.maxPolls = n }
}

// WithLogger overrides the poller's logger
func WithLogger(logger *log.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

// New creates a poller over the given status fetcher
func New(fetcher StatusFetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		interval: DefaultInterval,
		logger:   log.New(os.Stderr, "[Poller] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll fetches the connection's latest job on the configured interval until
// it observes a terminal status, the context ends, or MaxPolls is reached.
//
// A completed job invokes OnSuccess once; a failed job invokes OnFailure
// once with the stored error message (or a generic fallback). Fetch errors
// surface through the same OnFailure path with a generic message. A job
// still in progress keeps the loop going.
func (p *Poller) Poll(ctx context.Context, connectionID string, cb Callbacks) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	polls := 0
	for {
		polls++
		if p.maxPolls > 0 && polls > p.maxPolls {
			p.fail(cb, "sync status polling timed out")
			return
		}

		job, err := p.fetcher.FetchStatus(ctx, connectionID)
		switch {
		case err != nil && store.IsNotFound(err):
			// No job yet for this connection; keep waiting for one to appear
		case err != nil:
			if ctx.Err() != nil {
				p.fail(cb, "sync status polling cancelled")
				return
			}
			p.logger.Printf("Status fetch failed for %s: %v", connectionID, err)
			p.fail(cb, "failed to fetch sync status")
			return
		case job.Status == store.JobCompleted:
			if cb.OnSuccess != nil {
				cb.OnSuccess(job)
			}
			return
		case job.Status == store.JobFailed:
			message := job.Error
			if message == "" {
				message = "sync failed"
			}
			p.fail(cb, message)
			return
		}

		select {
		case <-ctx.Done():
			p.fail(cb, "sync status polling cancelled")
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) fail(cb Callbacks, message string) {
	if cb.OnFailure != nil {
		cb.OnFailure(message)
	}
}
