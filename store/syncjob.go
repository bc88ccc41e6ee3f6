package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Sync job states. A job starts in_progress and moves exactly once to
// completed or failed; terminal rows are never mutated again.
const (
	JobInProgress = "in_progress"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// SyncJob tracks one background synchronization run for a connection
type SyncJob struct {
	ID           string     `json:"id"`
	ConnectionID string     `json:"connectionId"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	TotalItems   int        `json:"totalItems"`
	Error        string     `json:"error,omitempty"`
}

// IsTerminal reports whether the job has reached a final state
func (j *SyncJob) IsTerminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

// SyncJobStore manages sync job records
type SyncJobStore struct {
	db *Database
}

// NewSyncJobStore creates a sync job store backed by the given database
func NewSyncJobStore(db *Database) *SyncJobStore {
	return &SyncJobStore{db: db}
}

// CreateSyncJob inserts a new in-progress job for the connection and
// returns it with a generated id and started_at set to now.
func (s *SyncJobStore) CreateSyncJob(ctx context.Context, connectionID string) (*SyncJob, error) {
	job := &SyncJob{
		ID:           uuid.NewString(),
		ConnectionID: connectionID,
		Status:       JobInProgress,
		StartedAt:    time.Now(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_jobs (id, connection_id, status, started_at, total_items)
		VALUES (?, ?, ?, ?, 0)
	`, job.ID, job.ConnectionID, job.Status, job.StartedAt.Unix())
	if err != nil {
		return nil, &StoreError{Op: "CreateSyncJob", JobID: job.ID, Err: err}
	}

	return job, nil
}

// GetSyncJob returns the job with the given id or ErrNotFound
func (s *SyncJobStore) GetSyncJob(ctx context.Context, jobID string) (*SyncJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, connection_id, status, started_at, completed_at, total_items, error
		FROM sync_jobs
		WHERE id = ?
	`, jobID)

	job, err := scanSyncJob(row)
	if err == sql.ErrNoRows {
		return nil, &StoreError{Op: "GetSyncJob", JobID: jobID, Err: ErrNotFound}
	}
	if err != nil {
		return nil, &StoreError{Op: "GetSyncJob", JobID: jobID, Err: err}
	}
	return job, nil
}

// GetLatestSyncJob returns the most recently started job for a connection
// or ErrNotFound when the connection has never synced.
func (s *SyncJobStore) GetLatestSyncJob(ctx context.Context, connectionID string) (*SyncJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, connection_id, status, started_at, completed_at, total_items, error
		FROM sync_jobs
		WHERE connection_id = ?
		ORDER BY started_at DESC, rowid DESC
		LIMIT 1
	`, connectionID)

	job, err := scanSyncJob(row)
	if err == sql.ErrNoRows {
		return nil, &StoreError{Op: "GetLatestSyncJob", Err: ErrNotFound}
	}
	if err != nil {
		return nil, &StoreError{Op: "GetLatestSyncJob", Err: err}
	}
	return job, nil
}

// CompleteSyncJob transitions a job to completed, recording the item count
// and completion time. Returns ErrJobTerminal if the job already reached a
// terminal state; the row is left untouched in that case.
func (s *SyncJobStore) CompleteSyncJob(ctx context.Context, jobID string, totalItems int) error {
	return s.finalize(ctx, "CompleteSyncJob", jobID, JobCompleted, totalItems, "")
}

// FailSyncJob transitions a job to failed with the captured error message.
// Returns ErrJobTerminal if the job already reached a terminal state.
func (s *SyncJobStore) FailSyncJob(ctx context.Context, jobID string, errMsg string) error {
	return s.finalize(ctx, "FailSyncJob", jobID, JobFailed, -1, errMsg)
}

// finalize performs the single allowed terminal transition. The WHERE guard
// on status makes the transition monotonic: once terminal, no further update
// matches and the caller gets ErrJobTerminal.
func (s *SyncJobStore) finalize(ctx context.Context, op, jobID, status string, totalItems int, errMsg string) error {
	query := `
		UPDATE sync_jobs
		SET status = ?, completed_at = ?, error = ?
		WHERE id = ? AND status = ?
	`
	args := []interface{}{status, time.Now().Unix(), NullString(errMsg), jobID, JobInProgress}

	if totalItems >= 0 {
		query = `
			UPDATE sync_jobs
			SET status = ?, completed_at = ?, error = ?, total_items = ?
			WHERE id = ? AND status = ?
		`
		args = []interface{}{status, time.Now().Unix(), NullString(errMsg), totalItems, jobID, JobInProgress}
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return &StoreError{Op: op, JobID: jobID, Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return &StoreError{Op: op, JobID: jobID, Err: err}
	}
	if affected == 0 {
		// Either the job doesn't exist or it is already terminal
		if _, getErr := s.GetSyncJob(ctx, jobID); getErr != nil {
			return getErr
		}
		return &StoreError{Op: op, JobID: jobID, Err: ErrJobTerminal}
	}
	return nil
}

// scanSyncJob scans a single sync job row
func scanSyncJob(row *sql.Row) (*SyncJob, error) {
	var job SyncJob
	var startedAt int64
	var completedAt sql.NullInt64
	var errMsg sql.NullString

	err := row.Scan(
		&job.ID,
		&job.ConnectionID,
		&job.Status,
		&startedAt,
		&completedAt,
		&job.TotalItems,
		&errMsg,
	)
	if err != nil {
		return nil, err
	}

	job.StartedAt = time.Unix(startedAt, 0)
	if completedAt.Valid {
		done := time.Unix(completedAt.Int64, 0)
		job.CompletedAt = &done
	}
	job.Error = errMsg.String
	return &job, nil
}
