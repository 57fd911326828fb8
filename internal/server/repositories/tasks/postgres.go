package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/taskkeeper/internal/common"
	"github.com/dmitrijs2005/taskkeeper/internal/dbx"
	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
)

// PostgresRepository implements task storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert assigns a new id and stores the task as Pending unless a status
// is already set.
func (r *PostgresRepository) Insert(ctx context.Context, task *models.Task) (*models.Task, error) {
	query :=
		`INSERT INTO tasks (id, text, status, owner_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	if task.Status == "" {
		task.Status = models.TaskPending
	}
	id := uuid.NewString()

	err := r.db.QueryRowContext(ctx, query, id, task.Text, string(task.Status), task.OwnerID).
		Scan(&task.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	task.ID = id
	return task, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Task, error) {
	query :=
		`SELECT id, text, status, owner_id, created_at FROM tasks
		 WHERE owner_id = $1
		 ORDER BY created_at, id
		 `

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Task, 0)
	for rows.Next() {
		var item models.Task
		if err := rows.Scan(&item.ID, &item.Text, &item.Status, &item.OwnerID, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}

// FindOwned locks the row until the surrounding transaction ends, so a
// concurrent complete or delete of the same task waits for this one.
func (r *PostgresRepository) FindOwned(ctx context.Context, taskID, ownerID string) (*models.Task, error) {
	if _, err := uuid.Parse(taskID); err != nil {
		return nil, common.ErrorNotFound
	}

	query :=
		`SELECT id, text, status, owner_id, created_at FROM tasks
		 WHERE id = $1 AND owner_id = $2
		 FOR UPDATE
		 `

	task := &models.Task{}
	err := r.db.QueryRowContext(ctx, query, taskID, ownerID).
		Scan(&task.ID, &task.Text, &task.Status, &task.OwnerID, &task.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return task, nil
}

func (r *PostgresRepository) MarkCompleted(ctx context.Context, taskID string) error {
	query :=
		`UPDATE tasks SET status = 'Completed'
		 WHERE id = $1 AND status = 'Pending'
		 `

	res, err := r.db.ExecContext(ctx, query, taskID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return r.whyNotPending(ctx, taskID)
	}
	return nil
}

// whyNotPending tells a task that is gone from one that is already done.
func (r *PostgresRepository) whyNotPending(ctx context.Context, taskID string) error {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = $1`, taskID).Scan(&status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return common.ErrorNotFound
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	default:
		return common.ErrAlreadyCompleted
	}
}

func (r *PostgresRepository) Delete(ctx context.Context, taskID string) error {
	query := `DELETE FROM tasks WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, taskID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)
