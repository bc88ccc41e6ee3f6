package store

import (
	"time"
)

// Task statuses are free-form strings supplied by the external integration.
// Common values observed across integrations:
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusPending    = "pending"
	StatusDone       = "done"
	StatusCompleted  = "completed"
)

// Task represents a task pulled from an external integration into the local
// store. Identity is the (UserID, ExternalID) pair; re-syncing or replaying
// the same external id overwrites the row instead of duplicating it.
type Task struct {
	ExternalID      string      `json:"id"`
	UserID          string      `json:"userId"`
	Title           string      `json:"title,omitempty"`
	Description     string      `json:"description"`
	Status          string      `json:"status,omitempty"`
	Source          string      `json:"source"`
	FreelancerID    string      `json:"freelancerId,omitempty"`
	FreelancerEmail string      `json:"freelancerEmail,omitempty"`
	DueDate         *time.Time  `json:"dueDate,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
	Freelancer      *Freelancer `json:"freelancer,omitempty"`
}

// TaskFilter narrows task listing
type TaskFilter struct {
	Search       string // case-insensitive substring match on title
	FreelancerID string // exact match on assignee reference
}

// Freelancer is a minimal assignee reference entity, unique by email
type Freelancer struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
