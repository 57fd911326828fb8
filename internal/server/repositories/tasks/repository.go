// Package tasks provides the task store. Every read that serves a request
// is scoped by owner so one user's tasks are never visible to another.
package tasks

import (
	"context"

	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
)

type Repository interface {
	Insert(ctx context.Context, task *models.Task) (*models.Task, error)
	// ListByOwner returns the owner's tasks oldest first. No tasks is an
	// empty slice, not an error.
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Task, error)
	// FindOwned returns common.ErrorNotFound both when the task does not
	// exist and when it belongs to someone else.
	FindOwned(ctx context.Context, taskID, ownerID string) (*models.Task, error)
	// MarkCompleted moves a Pending task to Completed. It returns
	// common.ErrAlreadyCompleted when the task is no longer Pending and
	// common.ErrorNotFound when it no longer exists.
	MarkCompleted(ctx context.Context, taskID string) error
	Delete(ctx context.Context, taskID string) error
}
