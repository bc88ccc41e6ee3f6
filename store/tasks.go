package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStore provides point lookup, filtered listing, and bulk upsert over
// the tasks table. Tasks are only ever created or overwritten, never deleted.
type TaskStore struct {
	db *Database
}

// NewTaskStore creates a task store backed by the given database
func NewTaskStore(db *Database) *TaskStore {
	return &TaskStore{db: db}
}

const upsertTaskSQL = `
INSERT INTO tasks (
    user_id, external_id, title, description, status, source,
    freelancer_id, freelancer_email, due_date, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, external_id) DO UPDATE SET
    title = excluded.title,
    description = excluded.description,
    status = excluded.status,
    source = excluded.source,
    freelancer_id = excluded.freelancer_id,
    freelancer_email = excluded.freelancer_email,
    due_date = excluded.due_date,
    updated_at = excluded.updated_at
`

// UpsertTasks writes one page of normalized tasks in a single transaction.
// Each task is matched on (user_id, external_id): existing rows are
// overwritten, missing rows inserted. The page is applied atomically so page
// N is fully visible before page N+1 is requested.
func (s *TaskStore) UpsertTasks(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Op: "UpsertTasks", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertTaskSQL)
	if err != nil {
		return &StoreError{Op: "UpsertTasks", Err: err}
	}
	defer stmt.Close()

	now := time.Now()
	freelancerIDs := make(map[string]string)
	for _, task := range tasks {
		// Resolve the assignee reference so listings can join on it
		if task.FreelancerID == "" && task.FreelancerEmail != "" {
			id, err := linkFreelancer(ctx, tx, task.FreelancerEmail, freelancerIDs)
			if err != nil {
				return &StoreError{Op: "UpsertTasks", ExternalID: task.ExternalID, Err: err}
			}
			task.FreelancerID = id
		}

		createdAt := task.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		updatedAt := task.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = now
		}

		_, err := stmt.ExecContext(ctx,
			task.UserID,
			task.ExternalID,
			NullString(task.Title),
			task.Description,
			NullString(task.Status),
			task.Source,
			NullString(task.FreelancerID),
			NullString(task.FreelancerEmail),
			TimeToNullInt64(task.DueDate),
			createdAt.Unix(),
			updatedAt.Unix(),
		)
		if err != nil {
			return &StoreError{Op: "UpsertTasks", UserID: task.UserID, ExternalID: task.ExternalID, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StoreError{Op: "UpsertTasks", Err: err}
	}
	return nil
}

// linkFreelancer finds or creates the freelancer row for an email within the
// upsert transaction. The cache avoids repeated lookups across one page.
func linkFreelancer(ctx context.Context, tx *sql.Tx, email string, cache map[string]string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", nil
	}
	if id, ok := cache[email]; ok {
		return id, nil
	}

	var id string
	err := tx.QueryRowContext(ctx, "SELECT id FROM freelancers WHERE email = ?", email).Scan(&id)
	if err == sql.ErrNoRows {
		id = uuid.NewString()
		now := time.Now().Unix()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO freelancers (id, email, created_at, updated_at)
			VALUES (?, ?, ?, ?)
		`, id, email, now, now)
	}
	if err != nil {
		return "", err
	}

	cache[email] = id
	return id, nil
}

// UpsertTaskGlobal applies a single upsert keyed by external id alone,
// ignoring user scoping. This is the webhook intake path: pushes from the
// integration platform carry no local user context, so an existing row for
// the external id is overwritten regardless of owner, and the insert falls
// back to the task's own user id when no row exists.
func (s *TaskStore) UpsertTaskGlobal(ctx context.Context, task Task) error {
	now := time.Now()
	updatedAt := task.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, status = ?,
		    freelancer_email = ?, due_date = ?, updated_at = ?
		WHERE external_id = ?
	`,
		NullString(task.Title),
		task.Description,
		NullString(task.Status),
		NullString(task.FreelancerEmail),
		TimeToNullInt64(task.DueDate),
		updatedAt.Unix(),
		task.ExternalID,
	)
	if err != nil {
		return &StoreError{Op: "UpsertTaskGlobal", ExternalID: task.ExternalID, Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return &StoreError{Op: "UpsertTaskGlobal", ExternalID: task.ExternalID, Err: err}
	}
	if affected > 0 {
		return nil
	}

	// No existing row anywhere; insert scoped to the task's own user
	return s.UpsertTasks(ctx, []Task{task})
}

// GetTask returns the task for (userID, externalID) or ErrNotFound
func (s *TaskStore) GetTask(ctx context.Context, userID, externalID string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, external_id, title, description, status, source,
		       freelancer_id, freelancer_email, due_date, created_at, updated_at
		FROM tasks
		WHERE user_id = ? AND external_id = ?
	`, userID, externalID)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, &StoreError{Op: "GetTask", UserID: userID, ExternalID: externalID, Err: ErrNotFound}
	}
	if err != nil {
		return nil, &StoreError{Op: "GetTask", UserID: userID, ExternalID: externalID, Err: err}
	}
	return task, nil
}

// ListTasks returns the user's tasks sorted newest-first with the assignee
// reference resolved. The optional filter applies a case-insensitive
// substring match on title and an exact match on the freelancer id.
func (s *TaskStore) ListTasks(ctx context.Context, userID string, filter *TaskFilter) ([]Task, error) {
	query := `
		SELECT t.user_id, t.external_id, t.title, t.description, t.status, t.source,
		       t.freelancer_id, t.freelancer_email, t.due_date, t.created_at, t.updated_at,
		       f.id, f.email
		FROM tasks t
		LEFT JOIN freelancers f ON f.id = t.freelancer_id
		WHERE t.user_id = ?
	`
	args := []interface{}{userID}

	if filter != nil {
		if filter.Search != "" {
			query += " AND t.title LIKE ? ESCAPE '\\' COLLATE NOCASE"
			args = append(args, "%"+escapeLike(filter.Search)+"%")
		}
		if filter.FreelancerID != "" {
			query += " AND t.freelancer_id = ?"
			args = append(args, filter.FreelancerID)
		}
	}

	query += " ORDER BY t.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StoreError{Op: "ListTasks", UserID: userID, Err: err}
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var task Task
		var title, status, freelancerID, freelancerEmail sql.NullString
		var dueDate sql.NullInt64
		var createdAt, updatedAt int64
		var refID, refEmail sql.NullString

		err := rows.Scan(
			&task.UserID,
			&task.ExternalID,
			&title,
			&task.Description,
			&status,
			&task.Source,
			&freelancerID,
			&freelancerEmail,
			&dueDate,
			&createdAt,
			&updatedAt,
			&refID,
			&refEmail,
		)
		if err != nil {
			return nil, &StoreError{Op: "ListTasks", UserID: userID, Err: err}
		}

		task.Title = title.String
		task.Status = status.String
		task.FreelancerID = freelancerID.String
		task.FreelancerEmail = freelancerEmail.String
		task.CreatedAt = time.Unix(createdAt, 0)
		task.UpdatedAt = time.Unix(updatedAt, 0)
		if dueDate.Valid {
			due := time.Unix(dueDate.Int64, 0)
			task.DueDate = &due
		}
		if refID.Valid {
			task.Freelancer = &Freelancer{ID: refID.String, Email: refEmail.String}
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "ListTasks", UserID: userID, Err: err}
	}
	return tasks, nil
}

// UpdateTaskStatus sets the status of one user-owned task.
// Returns ErrNotFound if the task does not belong to the user.
func (s *TaskStore) UpdateTaskStatus(ctx context.Context, userID, externalID, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, updated_at = ?
		WHERE user_id = ? AND external_id = ?
	`, status, time.Now().Unix(), userID, externalID)
	if err != nil {
		return &StoreError{Op: "UpdateTaskStatus", UserID: userID, ExternalID: externalID, Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return &StoreError{Op: "UpdateTaskStatus", UserID: userID, ExternalID: externalID, Err: err}
	}
	if affected == 0 {
		return &StoreError{Op: "UpdateTaskStatus", UserID: userID, ExternalID: externalID, Err: ErrNotFound}
	}
	return nil
}

// CountTasks returns the number of tasks owned by the user
func (s *TaskStore) CountTasks(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, &StoreError{Op: "CountTasks", UserID: userID, Err: err}
	}
	return count, nil
}

// scanTask scans a single task row (without the freelancer join)
func scanTask(row *sql.Row) (*Task, error) {
	var task Task
	var title, status, freelancerID, freelancerEmail sql.NullString
	var dueDate sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(
		&task.UserID,
		&task.ExternalID,
		&title,
		&task.Description,
		&status,
		&task.Source,
		&freelancerID,
		&freelancerEmail,
		&dueDate,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Title = title.String
	task.Status = status.String
	task.FreelancerID = freelancerID.String
	task.FreelancerEmail = freelancerEmail.String
	task.CreatedAt = time.Unix(createdAt, 0)
	task.UpdatedAt = time.Unix(updatedAt, 0)
	if dueDate.Valid {
		due := time.Unix(dueDate.Int64, 0)
		task.DueDate = &due
	}
	return &task, nil
}

// escapeLike escapes LIKE wildcards in user-supplied search text
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
