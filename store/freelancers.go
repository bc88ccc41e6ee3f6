package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FreelancerStore manages assignee reference records, unique by email
type FreelancerStore struct {
	db *Database
}

// NewFreelancerStore creates a freelancer store backed by the given database
func NewFreelancerStore(db *Database) *FreelancerStore {
	return &FreelancerStore{db: db}
}

// EnsureFreelancer returns the freelancer for the email, creating one when
// none exists. Emails are trimmed and lowercased before storage.
func (s *FreelancerStore) EnsureFreelancer(ctx context.Context, email string) (*Freelancer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, &StoreError{Op: "EnsureFreelancer", Err: ErrNotFound}
	}

	existing, err := s.GetFreelancerByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	now := time.Now()
	freelancer := &Freelancer{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// ON CONFLICT covers a concurrent insert of the same email
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO freelancers (id, email, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO NOTHING
	`, freelancer.ID, freelancer.Email, now.Unix(), now.Unix())
	if err != nil {
		return nil, &StoreError{Op: "EnsureFreelancer", Err: err}
	}

	return s.GetFreelancerByEmail(ctx, email)
}

// ListFreelancers returns all known freelancers sorted by email
func (s *FreelancerStore) ListFreelancers(ctx context.Context) ([]Freelancer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, created_at, updated_at FROM freelancers ORDER BY email
	`)
	if err != nil {
		return nil, &StoreError{Op: "ListFreelancers", Err: err}
	}
	defer rows.Close()

	var freelancers []Freelancer
	for rows.Next() {
		var f Freelancer
		var createdAt, updatedAt int64
		if err := rows.Scan(&f.ID, &f.Email, &createdAt, &updatedAt); err != nil {
			return nil, &StoreError{Op: "ListFreelancers", Err: err}
		}
		f.CreatedAt = time.Unix(createdAt, 0)
		f.UpdatedAt = time.Unix(updatedAt, 0)
		freelancers = append(freelancers, f)
	}

	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "ListFreelancers", Err: err}
	}
	return freelancers, nil
}

// GetFreelancerByEmail returns the freelancer with the given email or ErrNotFound
func (s *FreelancerStore) GetFreelancerByEmail(ctx context.Context, email string) (*Freelancer, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, created_at, updated_at FROM freelancers WHERE email = ?
	`, email)

	freelancer, err := scanFreelancer(row)
	if err == sql.ErrNoRows {
		return nil, &StoreError{Op: "GetFreelancerByEmail", Err: ErrNotFound}
	}
	if err != nil {
		return nil, &StoreError{Op: "GetFreelancerByEmail", Err: err}
	}
	return freelancer, nil
}

// GetFreelancer returns the freelancer with the given id or ErrNotFound
func (s *FreelancerStore) GetFreelancer(ctx context.Context, id string) (*Freelancer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, created_at, updated_at FROM freelancers WHERE id = ?
	`, id)

	freelancer, err := scanFreelancer(row)
	if err == sql.ErrNoRows {
		return nil, &StoreError{Op: "GetFreelancer", Err: ErrNotFound}
	}
	if err != nil {
		return nil, &StoreError{Op: "GetFreelancer", Err: err}
	}
	return freelancer, nil
}

func scanFreelancer(row *sql.Row) (*Freelancer, error) {
	var f Freelancer
	var createdAt, updatedAt int64

	if err := row.Scan(&f.ID, &f.Email, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	f.CreatedAt = time.Unix(createdAt, 0)
	f.UpdatedAt = time.Unix(updatedAt, 0)
	return &f, nil
}
