package services

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/taskkeeper/internal/dbx"
	"github.com/dmitrijs2005/taskkeeper/internal/logging"
	"github.com/dmitrijs2005/taskkeeper/internal/server/auth"
	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
	"github.com/dmitrijs2005/taskkeeper/internal/server/password"
	"github.com/dmitrijs2005/taskkeeper/internal/server/repositories/memory"
	"github.com/dmitrijs2005/taskkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskkeeper/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/taskkeeper/internal/server/repositories/users"
)

// newTxDB returns a real pool so dbx.WithTx can begin and commit. The
// memory repositories ignore the handle.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := dbx.Open(context.Background(), "sqlite", ":memory:", dbx.PoolOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newHasher(t *testing.T) password.Hasher {
	t.Helper()
	h, err := password.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func newIssuer(t *testing.T) *auth.Issuer {
	t.Helper()
	i, err := auth.NewIssuer([]byte("test-secret"), time.Hour)
	require.NoError(t, err)
	return i
}

type countingHasher struct {
	password.Hasher
	verifies atomic.Int32
}

func (c *countingHasher) Verify(pw, hash string) (bool, error) {
	c.verifies.Add(1)
	return c.Hasher.Verify(pw, hash)
}

type failingHasher struct{}

func (failingHasher) Hash(string) (string, error)         { return "", errors.New("rng exhausted") }
func (failingHasher) Verify(string, string) (bool, error) { return false, errors.New("bad hash") }

type failingIssuer struct{}

func (failingIssuer) Issue(auth.Claims) (string, error) { return "", errors.New("sign failed") }

var errDB = errors.New("connection reset")

// brokenManager returns repositories whose every call fails with errDB.
type brokenManager struct{}

func (brokenManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (brokenManager) Users(dbx.DBTX) users.Repository              { return brokenUsers{} }
func (brokenManager) Tasks(dbx.DBTX) tasks.Repository              { return brokenTasks{} }

type brokenUsers struct{}

func (brokenUsers) Create(context.Context, *models.User) (*models.User, error) { return nil, errDB }
func (brokenUsers) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, errDB
}

type brokenTasks struct{}

func (brokenTasks) Insert(context.Context, *models.Task) (*models.Task, error) { return nil, errDB }
func (brokenTasks) ListByOwner(context.Context, string) ([]*models.Task, error) {
	return nil, errDB
}
func (brokenTasks) FindOwned(context.Context, string, string) (*models.Task, error) {
	return nil, errDB
}
func (brokenTasks) MarkCompleted(context.Context, string) error { return errDB }
func (brokenTasks) Delete(context.Context, string) error        { return errDB }

var (
	_ repomanager.RepositoryManager = brokenManager{}
	_ repomanager.RepositoryManager = (*memory.Manager)(nil)
	_ logging.Logger                = logging.Nop{}
)
