package syncjob

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"tasksync/integration"
	"tasksync/store"
)

// Defaults for the drain guards. A misbehaving source that never returns an
// absent cursor would otherwise drain forever.
const (
	DefaultMaxPages   = 1000
	DefaultJobTimeout = 10 * time.Minute
)

// Controller orchestrates background synchronization runs: it creates a
// status record, drains the external source via cursor pagination on a
// detached goroutine, upserts each page into the task store, and finalizes
// the status record as completed or failed.
type Controller struct {
	source integration.Source
	tasks  *store.TaskStore
	jobs   *store.SyncJobStore

	maxPages   int
	jobTimeout time.Duration

	// Goroutine management
	wg sync.WaitGroup

	// Per-connection in-flight tracking (prevent duplicate drains)
	inFlight map[string]*atomic.Bool
	mu       sync.Mutex

	// Base context for detached drains; cancelled on Shutdown
	baseCtx context.Context
	cancel  context.CancelFunc

	// Logging (drain errors are recorded on the job, logged here too)
	logger *log.Logger

	// Shutdown flag
	shutdown atomic.Bool
}

// Option configures a Controller
type Option func(*Controller)

// WithMaxPages overrides the drain page cap
func WithMaxPages(n int) Option {
	return func(c *Controller) { c.maxPages = n }
}

// WithJobTimeout overrides the per-job deadline
func WithJobTimeout(d time.Duration) Option {
	return func(c *Controller) { c.jobTimeout = d }
}

// WithLogger overrides the controller's logger
func WithLogger(logger *log.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// NewController creates a sync job controller
func NewController(source integration.Source, tasks *store.TaskStore, jobs *store.SyncJobStore, opts ...Option) (*Controller, error) {
	if source == nil || tasks == nil || jobs == nil {
		return nil, fmt.Errorf("source, task store, and job store are required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		source:     source,
		tasks:      tasks,
		jobs:       jobs,
		maxPages:   DefaultMaxPages,
		jobTimeout: DefaultJobTimeout,
		inFlight:   make(map[string]*atomic.Bool),
		baseCtx:    ctx,
		cancel:     cancel,
		logger:     log.New(os.Stderr, "[SyncJob] ", log.LstdFlags),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// StartSync begins a background synchronization run for one connection and
// returns the new job's id immediately, before any data has synced.
//
// The connection must be resolvable through the source; otherwise a
// KindNotFound error is returned and nothing is written. A run already in
// flight for the same connection yields KindConflict.
func (c *Controller) StartSync(ctx context.Context, connectionID, integrationID, userID string) (string, error) {
	if c.shutdown.Load() {
		return "", &JobError{Kind: KindConflict, Op: "StartSync", Message: "controller is shutting down"}
	}

	conn, err := c.resolveConnection(ctx, connectionID, integrationID)
	if err != nil {
		return "", err
	}

	// Get or create the in-flight flag for this connection
	c.mu.Lock()
	flag, exists := c.inFlight[conn.ID]
	if !exists {
		flag = &atomic.Bool{}
		c.inFlight[conn.ID] = flag
	}
	c.mu.Unlock()

	if !flag.CompareAndSwap(false, true) {
		return "", &JobError{Kind: KindConflict, Op: "StartSync", Message: "sync already in progress for connection " + conn.ID}
	}

	job, err := c.jobs.CreateSyncJob(ctx, conn.ID)
	if err != nil {
		flag.Store(false)
		return "", err
	}

	c.wg.Add(1)
	go c.runDetached(job, conn, userID, flag)

	return job.ID, nil
}

// RunSync performs a full synchronization inline and returns the number of
// tasks written. This is the synchronous variant used by the CLI; it shares
// the drain loop and job bookkeeping with the detached path.
func (c *Controller) RunSync(ctx context.Context, connectionID, integrationID, userID string) (string, int, error) {
	conn, err := c.resolveConnection(ctx, connectionID, integrationID)
	if err != nil {
		return "", 0, err
	}

	job, err := c.jobs.CreateSyncJob(ctx, conn.ID)
	if err != nil {
		return "", 0, err
	}

	total, err := c.drain(ctx, conn, userID)
	if err != nil {
		c.finalizeFailed(job.ID, err)
		return job.ID, total, err
	}

	if err := c.jobs.CompleteSyncJob(ctx, job.ID, total); err != nil {
		return job.ID, total, err
	}
	return job.ID, total, nil
}

// resolveConnection finds the connection for (connectionID, integrationID).
// integrationID narrows the lookup when a user has several connections to
// the same external system.
func (c *Controller) resolveConnection(ctx context.Context, connectionID, integrationID string) (*integration.Connection, error) {
	connections, err := c.source.FindConnections(ctx, integrationID)
	if err != nil {
		return nil, &JobError{Kind: KindOf(err), Op: "StartSync", Message: "failed to list connections", Err: err}
	}

	for i := range connections {
		if connections[i].ID == connectionID {
			return &connections[i], nil
		}
	}

	return nil, &JobError{Kind: KindNotFound, Op: "StartSync", Message: "connection not found: " + connectionID}
}

// runDetached executes the drain loop outside the request cycle and
// finalizes the job record. The caller's context is gone by now; the run
// gets its own deadline derived from the controller's base context.
func (c *Controller) runDetached(job *store.SyncJob, conn *integration.Connection, userID string, flag *atomic.Bool) {
	defer c.wg.Done()
	defer flag.Store(false)

	// A panic inside the drain must still finalize the job
	defer func() {
		if r := recover(); r != nil {
			c.logger.Printf("Panic in drain for job %s: %v", job.ID, r)
			c.finalizeFailed(job.ID, fmt.Errorf("panic: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(c.baseCtx, c.jobTimeout)
	defer cancel()

	total, err := c.drain(ctx, conn, userID)
	if err != nil {
		c.logger.Printf("Sync job %s failed after %d items: %v", job.ID, total, err)
		c.finalizeFailed(job.ID, err)
		return
	}

	if err := c.jobs.CompleteSyncJob(context.Background(), job.ID, total); err != nil {
		c.logger.Printf("Failed to finalize job %s: %v", job.ID, err)
		return
	}
	c.logger.Printf("Sync job %s completed: %d items", job.ID, total)
}

// drain fully consumes the source's result set for one connection.
// Pages are processed strictly in order: page N's bulk upsert commits
// before page N+1 is requested. The first unrecovered error aborts the
// loop; writes already committed stay.
func (c *Controller) drain(ctx context.Context, conn *integration.Connection, userID string) (int, error) {
	var cursor string
	total := 0

	for page := 1; ; page++ {
		if page > c.maxPages {
			return total, &JobError{
				Kind:    KindTimeout,
				Op:      "drain",
				Message: fmt.Sprintf("page cap exceeded (%d pages)", c.maxPages),
			}
		}
		if err := ctx.Err(); err != nil {
			return total, &JobError{Kind: KindTimeout, Op: "drain", Message: "job deadline exceeded", Err: err}
		}

		result, err := c.source.ListTasks(ctx, *conn, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return total, &JobError{Kind: KindTimeout, Op: "drain", Message: "job deadline exceeded", Err: err}
			}
			return total, &JobError{Kind: KindOf(err), Op: "drain", Message: fmt.Sprintf("list tasks page %d failed", page), Err: err}
		}

		tasks := integration.ToTasks(result.Records, userID, conn.Integration.Key)
		if err := c.tasks.UpsertTasks(ctx, tasks); err != nil {
			return total, &JobError{Kind: KindPersistence, Op: "drain", Message: fmt.Sprintf("upsert page %d failed", page), Err: err}
		}
		total += len(tasks)

		if result.Cursor == "" {
			return total, nil
		}
		cursor = result.Cursor
	}
}

// finalizeFailed records a failed terminal transition with a fresh context,
// so a drain killed by deadline or shutdown can still write its status.
func (c *Controller) finalizeFailed(jobID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.jobs.FailSyncJob(ctx, jobID, cause.Error()); err != nil {
		c.logger.Printf("Failed to mark job %s failed: %v", jobID, err)
	}
}

// Shutdown stops accepting new jobs, cancels running drains, and waits for
// them to finalize, up to the given timeout.
func (c *Controller) Shutdown(timeout time.Duration) {
	c.shutdown.Store(true)
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// Drains finalized
	case <-time.After(timeout):
		c.logger.Printf("Warning: running sync jobs did not finalize within %v", timeout)
	}
}
