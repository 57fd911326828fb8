// Package memory provides map-backed repositories with the same uniqueness
// and ownership contracts as the PostgreSQL ones. Writes are not rolled
// back with the surrounding transaction.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/taskkeeper/internal/common"
	"github.com/dmitrijs2005/taskkeeper/internal/dbx"
	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
	"github.com/dmitrijs2005/taskkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskkeeper/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/taskkeeper/internal/server/repositories/users"
)

// Store holds users and tasks. Deleting a user cascades to their tasks.
type Store struct {
	mu    sync.RWMutex
	users map[string]models.User
	tasks map[string]models.Task
	seq   int64
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		users: make(map[string]models.User),
		tasks: make(map[string]models.Task),
		now:   time.Now,
	}
}

// Manager adapts a Store to repomanager.RepositoryManager. The DBTX handed
// to the factories is ignored.
type Manager struct {
	store *Store
}

func NewManager(s *Store) *Manager {
	return &Manager{store: s}
}

func (m *Manager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *Manager) Users(dbx.DBTX) users.Repository { return (*userRepo)(m.store) }

func (m *Manager) Tasks(dbx.DBTX) tasks.Repository { return (*taskRepo)(m.store) }

var _ repomanager.RepositoryManager = (*Manager)(nil)

// DeleteUser removes a user and cascades to their tasks.
func (s *Store) DeleteUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, id)
	for tid, t := range s.tasks {
		if t.OwnerID == id {
			delete(s.tasks, tid)
		}
	}
}

type userRepo Store

func (r *userRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.UserName == u.UserName || existing.Email == u.Email {
			return nil, common.ErrDuplicateCredential
		}
	}

	now := s.now()
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = *u

	out := *u
	return &out, nil
}

func (r *userRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

type taskRepo Store

func (r *taskRepo) Insert(_ context.Context, t *models.Task) (*models.Task, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[t.OwnerID]; !ok {
		return nil, common.ErrorNotFound
	}
	if t.Status == "" {
		t.Status = models.TaskPending
	}
	// Distinct timestamps keep ListByOwner ordering stable.
	s.seq++
	t.ID = uuid.NewString()
	t.CreatedAt = s.now().Add(time.Duration(s.seq) * time.Nanosecond)
	s.tasks[t.ID] = *t

	out := *t
	return &out, nil
}

func (r *taskRepo) ListByOwner(_ context.Context, ownerID string) ([]*models.Task, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Task, 0)
	for _, t := range s.tasks {
		if t.OwnerID == ownerID {
			out := t
			result = append(result, &out)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *taskRepo) FindOwned(_ context.Context, taskID, ownerID string) (*models.Task, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[taskID]
	if !ok || t.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r *taskRepo) MarkCompleted(_ context.Context, taskID string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return common.ErrorNotFound
	}
	if t.Status != models.TaskPending {
		return common.ErrAlreadyCompleted
	}
	t.Status = models.TaskCompleted
	s.tasks[taskID] = t
	return nil
}

func (r *taskRepo) Delete(_ context.Context, taskID string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[taskID]; !ok {
		return common.ErrorNotFound
	}
	delete(s.tasks, taskID)
	return nil
}
