package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskhive/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = "id, user_id, title, description, status, created_at, updated_at"

type TaskRepository struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: db}
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) error {
	if t.Status == "" {
		t.Status = domain.TaskPending
	}
	return r.db.QueryRow(ctx,
		`INSERT INTO tasks (user_id, title, description, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		t.UserID, t.Title, t.Description, t.Status,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// GetByID is owner-scoped: a row belonging to another user is reported as
// missing, not as forbidden.
func (r *TaskRepository) GetByID(ctx context.Context, id, userID int64) (*domain.Task, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	return scanTask(row)
}

func (r *TaskRepository) Update(ctx context.Context, id, userID int64, upd domain.TaskUpdate) (*domain.Task, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id, userID}

	if upd.Title != nil {
		args = append(args, *upd.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if upd.Description != nil {
		args = append(args, *upd.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if upd.Status != nil {
		args = append(args, *upd.Status)
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}

	row := r.db.QueryRow(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+`
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+taskColumns,
		args...,
	)
	return scanTask(row)
}

func (r *TaskRepository) Delete(ctx context.Context, id, userID int64) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns one page of the owner's tasks plus the unpaginated total,
// newest first. Status narrows to an exact match; Search is a case-sensitive
// substring match on the title.
func (r *TaskRepository) List(ctx context.Context, f domain.TaskFilter) ([]*domain.Task, int, error) {
	where := []string{"user_id = $1"}
	args := []any{f.UserID}

	if f.Status != nil {
		args = append(args, *f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where = append(where, fmt.Sprintf("title LIKE $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM tasks WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := r.db.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE `+cond+
			fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var res []*domain.Task
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		res = append(res, &t)
	}
	return res, total, rows.Err()
}
