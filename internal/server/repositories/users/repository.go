package users

import (
	"context"

	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
)

// Repository is the credential store.
//
// Create fails with common.ErrDuplicateCredential when the username or
// email is taken; the driver error stays wrapped for dbx.ConstraintName.
// Lookups return common.ErrorNotFound when nothing matches.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}
