package client

import (
	"context"

	"github.com/dmitrijs2005/taskkeeper/internal/client/models"
)

type Client interface {
	Register(ctx context.Context, name, userName, email, password string) error
	Login(ctx context.Context, email, password string) (string, error)
	SetToken(token string)
	Token() string
	Ping(ctx context.Context) error
	ListTasks(ctx context.Context) ([]*models.Task, error)
	CreateTask(ctx context.Context, text string) (*models.Task, error)
	CompleteTask(ctx context.Context, id string) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
}
