package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrijs2005/taskkeeper/internal/common"
	"github.com/dmitrijs2005/taskkeeper/internal/dbx"
	"github.com/dmitrijs2005/taskkeeper/internal/logging"
	"github.com/dmitrijs2005/taskkeeper/internal/server/cache"
	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
	"github.com/dmitrijs2005/taskkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskkeeper/internal/server/validation"
)

// TaskService owns task operations. Every method takes the authenticated
// owner id explicitly; nothing is read from ambient state.
type TaskService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cache       cache.TaskListCache
	log         logging.Logger
}

func NewTaskService(db *sql.DB, m repomanager.RepositoryManager, c cache.TaskListCache, log logging.Logger) *TaskService {
	if c == nil {
		c = cache.NopTaskListCache{}
	}
	return &TaskService{
		db:          db,
		repomanager: m,
		cache:       c,
		log:         log.With("component", "task_service"),
	}
}

func ownerAttr(ownerID string) trace.SpanStartOption {
	return trace.WithAttributes(attribute.String("taskkeeper.owner_id", ownerID))
}

// Create stores a new Pending task owned by ownerID.
func (s *TaskService) Create(ctx context.Context, ownerID string, d validation.TaskDraft) (t *models.Task, err error) {
	ctx, span := startSpan(ctx, "TaskService.Create", ownerAttr(ownerID))
	defer func() { endSpan(span, err) }()

	if ownerID == "" {
		return nil, common.ErrorUnauthorized
	}

	t, err = s.repomanager.Tasks(s.db).Insert(ctx, &models.Task{
		Text:    d.Text(),
		Status:  models.TaskPending,
		OwnerID: ownerID,
	})
	if err != nil {
		return nil, internal(ctx, s.log, "insert task", err, "owner_id", ownerID)
	}

	s.invalidate(ctx, ownerID)
	return t, nil
}

// List returns every task of ownerID and nothing else.
func (s *TaskService) List(ctx context.Context, ownerID string) (list []*models.Task, err error) {
	ctx, span := startSpan(ctx, "TaskService.List", ownerAttr(ownerID))
	defer func() { endSpan(span, err) }()

	if cached, ok, cerr := s.cache.Get(ctx, ownerID); cerr != nil {
		s.log.Warn(ctx, "task cache read failed", "owner_id", ownerID, "error", cerr)
	} else if ok {
		span.SetAttributes(attribute.Bool("taskkeeper.cache_hit", true))
		return cached, nil
	}

	// The generation is taken before the store read so a mutation landing
	// in between makes the write below a no-op.
	gen, gerr := s.cache.Generation(ctx, ownerID)
	if gerr != nil {
		s.log.Warn(ctx, "task cache generation read failed", "owner_id", ownerID, "error", gerr)
	}

	list, err = s.repomanager.Tasks(s.db).ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, internal(ctx, s.log, "list tasks", err, "owner_id", ownerID)
	}

	if gerr == nil {
		switch cerr := s.cache.Set(ctx, ownerID, gen, list); {
		case errors.Is(cerr, cache.ErrStale):
			s.log.Debug(ctx, "task list changed while loading, not cached", "owner_id", ownerID)
		case cerr != nil:
			s.log.Warn(ctx, "task cache write failed", "owner_id", ownerID, "error", cerr)
		}
	}
	return list, nil
}

// Complete marks the owner's task Completed. A task that is missing or owned
// by someone else is common.ErrorNotFound; completing twice is
// common.ErrAlreadyCompleted and leaves the task unchanged.
func (s *TaskService) Complete(ctx context.Context, ownerID, taskID string) (t *models.Task, err error) {
	ctx, span := startSpan(ctx, "TaskService.Complete", ownerAttr(ownerID))
	defer func() { endSpan(span, err) }()

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Tasks(tx)

		found, err := repo.FindOwned(ctx, taskID, ownerID)
		if err != nil {
			return err
		}
		if found.Status == models.TaskCompleted {
			return common.ErrAlreadyCompleted
		}
		if err := repo.MarkCompleted(ctx, found.ID); err != nil {
			return err
		}

		found.Status = models.TaskCompleted
		t = found
		return nil
	})
	if err != nil {
		return nil, s.translate(ctx, "complete task", err, ownerID, taskID)
	}

	s.invalidate(ctx, ownerID)
	return t, nil
}

// Delete removes the owner's task regardless of status.
func (s *TaskService) Delete(ctx context.Context, ownerID, taskID string) (err error) {
	ctx, span := startSpan(ctx, "TaskService.Delete", ownerAttr(ownerID))
	defer func() { endSpan(span, err) }()

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Tasks(tx)

		found, err := repo.FindOwned(ctx, taskID, ownerID)
		if err != nil {
			return err
		}
		return repo.Delete(ctx, found.ID)
	})
	if err != nil {
		return s.translate(ctx, "delete task", err, ownerID, taskID)
	}

	s.invalidate(ctx, ownerID)
	return nil
}

func (s *TaskService) translate(ctx context.Context, msg string, err error, ownerID, taskID string) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return common.ErrorNotFound
	case errors.Is(err, common.ErrAlreadyCompleted):
		return common.ErrAlreadyCompleted
	default:
		return internal(ctx, s.log, msg, err, "owner_id", ownerID, "task_id", taskID)
	}
}

const (
	invalidateAttempts = 3
	invalidateTimeout  = time.Second
	invalidateBackoff  = 20 * time.Millisecond
)

// invalidate runs after the store change is committed, so it must not be
// cut short by the request going away.
func (s *TaskService) invalidate(ctx context.Context, ownerID string) {
	ctx = context.WithoutCancel(ctx)

	var err error
	for attempt := 1; attempt <= invalidateAttempts; attempt++ {
		actx, cancel := context.WithTimeout(ctx, invalidateTimeout)
		err = s.cache.Invalidate(actx, ownerID)
		cancel()
		if err == nil {
			return
		}
		s.log.Warn(ctx, "task cache invalidation failed", "owner_id", ownerID, "attempt", attempt, "error", err)
		if attempt < invalidateAttempts {
			time.Sleep(time.Duration(attempt) * invalidateBackoff)
		}
	}
	s.log.Error(ctx, "task cache left stale until expiry", "owner_id", ownerID, "error", err)
}
