package domain

import (
	"context"
	"time"
)

type TaskStatus string

const (
	TaskPending   TaskStatus = "PENDING"
	TaskCompleted TaskStatus = "COMPLETED"
)

// ValidTaskStatus reports whether s is one of the two known statuses.
func ValidTaskStatus(s TaskStatus) bool {
	return s == TaskPending || s == TaskCompleted
}

// Toggled returns the opposite status. PENDING and COMPLETED are the only
// two states; toggling twice is the identity.
func (s TaskStatus) Toggled() TaskStatus {
	if s == TaskPending {
		return TaskCompleted
	}
	return TaskPending
}

type Task struct {
	ID          int64      `json:"id" db:"id"`
	UserID      int64      `json:"userId" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Status      TaskStatus `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// TaskUpdate carries a partial field replacement: nil means "leave as is".
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *TaskStatus
}

// TaskFilter scopes a listing to one owner plus optional refinements.
// Search is a case-sensitive substring match on the title.
type TaskFilter struct {
	UserID int64
	Status *TaskStatus
	Search string
	Limit  int
	Offset int
}

// TaskRepository is the task store. Every read and mutation is scoped to an
// owner; a missing row and a row owned by someone else both come back as
// ErrNotFound. Listing is ordered newest-created-first.
type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id, userID int64) (*Task, error)
	Update(ctx context.Context, id, userID int64, upd TaskUpdate) (*Task, error)
	Delete(ctx context.Context, id, userID int64) error
	List(ctx context.Context, f TaskFilter) ([]*Task, int, error)
}
