package services

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/taskkeeper/internal/common"
	"github.com/dmitrijs2005/taskkeeper/internal/dbx"
	"github.com/dmitrijs2005/taskkeeper/internal/logging"
	"github.com/dmitrijs2005/taskkeeper/internal/server/cache"
	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
	"github.com/dmitrijs2005/taskkeeper/internal/server/repositories/memory"
	"github.com/dmitrijs2005/taskkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskkeeper/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/taskkeeper/internal/server/validation"
)

type taskFixture struct {
	svc      *TaskService
	ann, bob string
}

func newTaskFixture(t *testing.T, c cache.TaskListCache) *taskFixture {
	t.Helper()
	m := memory.NewManager(memory.NewStore())
	ctx := context.Background()

	users := NewUserService(newTxDB(t), m, newHasher(t), newIssuer(t), logging.Nop{})
	ann, err := users.SignUp(ctx, signUpDraft(t, "ann", "ann@example.com", "secret123"))
	require.NoError(t, err)
	bob, err := users.SignUp(ctx, signUpDraft(t, "bob", "bob@example.com", "secret123"))
	require.NoError(t, err)

	return &taskFixture{
		svc: NewTaskService(newTxDB(t), m, c, logging.Nop{}),
		ann: ann.ID,
		bob: bob.ID,
	}
}

func taskDraft(t *testing.T, text string) validation.TaskDraft {
	t.Helper()
	d, err := validation.NewTask(text)
	require.NoError(t, err)
	return d
}

func TestTaskService_CreateAndList(t *testing.T) {
	f := newTaskFixture(t, nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.ann, taskDraft(t, "Buy milk"))
	require.NoError(t, err)
	assert.Equal(t, f.ann, created.OwnerID)
	assert.Equal(t, models.TaskPending, created.Status)

	list, err := f.svc.List(ctx, f.ann)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	list, err = f.svc.List(ctx, f.bob)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTaskService_CreateWithoutOwner(t *testing.T) {
	f := newTaskFixture(t, nil)

	_, err := f.svc.Create(context.Background(), "", taskDraft(t, "x"))
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestTaskService_Complete(t *testing.T) {
	f := newTaskFixture(t, nil)
	ctx := context.Background()

	task, err := f.svc.Create(ctx, f.ann, taskDraft(t, "Buy milk"))
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, f.bob, task.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	done, err := f.svc.Complete(ctx, f.ann, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, done.Status)

	_, err = f.svc.Complete(ctx, f.ann, task.ID)
	assert.ErrorIs(t, err, common.ErrAlreadyCompleted)

	list, err := f.svc.List(ctx, f.ann)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.TaskCompleted, list[0].Status)
}

func TestTaskService_Delete(t *testing.T) {
	f := newTaskFixture(t, nil)
	ctx := context.Background()

	pending, err := f.svc.Create(ctx, f.ann, taskDraft(t, "one"))
	require.NoError(t, err)
	completed, err := f.svc.Create(ctx, f.ann, taskDraft(t, "two"))
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, f.ann, completed.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, f.bob, pending.ID), common.ErrorNotFound)

	require.NoError(t, f.svc.Delete(ctx, f.ann, pending.ID))
	require.NoError(t, f.svc.Delete(ctx, f.ann, completed.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, f.ann, pending.ID), common.ErrorNotFound)

	list, err := f.svc.List(ctx, f.ann)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTaskService_UnknownAndMalformedIDs(t *testing.T) {
	f := newTaskFixture(t, nil)
	ctx := context.Background()

	for _, id := range []string{"not-a-uuid", "00000000-0000-0000-0000-000000000000", ""} {
		_, err := f.svc.Complete(ctx, f.ann, id)
		assert.ErrorIs(t, err, common.ErrorNotFound, id)
		assert.ErrorIs(t, f.svc.Delete(ctx, f.ann, id), common.ErrorNotFound, id)
	}
}

func TestTaskService_StorageFailuresAreInternal(t *testing.T) {
	svc := NewTaskService(newTxDB(t), brokenManager{}, nil, logging.Nop{})
	ctx := context.Background()

	_, err := svc.Create(ctx, "owner", taskDraft(t, "x"))
	assert.ErrorIs(t, err, common.ErrorInternal)

	_, err = svc.List(ctx, "owner")
	assert.ErrorIs(t, err, common.ErrorInternal)

	_, err = svc.Complete(ctx, "owner", "id")
	assert.ErrorIs(t, err, common.ErrorInternal)

	err = svc.Delete(ctx, "owner", "id")
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.False(t, errors.Is(err, errDB))
}

func listKey(ownerID string) string { return "taskkeeper:tasks:{" + ownerID + "}" }

func newRedisCache(t *testing.T) (*cache.RedisTaskListCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return cache.NewRedisTaskListCache(rdb, 0), mr
}

func TestTaskService_ListCache(t *testing.T) {
	c, mr := newRedisCache(t)
	f := newTaskFixture(t, c)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.ann, taskDraft(t, "one"))
	require.NoError(t, err)

	list, err := f.svc.List(ctx, f.ann)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, mr.Exists(listKey(f.ann)))
	assert.False(t, mr.Exists(listKey(f.bob)))

	// mutations drop the owner's entry so the next list sees them
	second, err := f.svc.Create(ctx, f.ann, taskDraft(t, "two"))
	require.NoError(t, err)
	assert.False(t, mr.Exists(listKey(f.ann)))

	list, err = f.svc.List(ctx, f.ann)
	require.NoError(t, err)
	require.Len(t, list, 2)

	_, err = f.svc.Complete(ctx, f.ann, second.ID)
	require.NoError(t, err)
	list, err = f.svc.List(ctx, f.ann)
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, list[1].Status)

	// served from cache while the entry lives
	require.NoError(t, mr.Set(listKey(f.ann), `[{"ID":"cached","OwnerID":"x"}]`))
	list, err = f.svc.List(ctx, f.ann)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "cached", list[0].ID)
}

func TestTaskService_CacheOutageFallsBackToStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })

	f := newTaskFixture(t, cache.NewRedisTaskListCache(rdb, 0))
	ctx := context.Background()
	mr.Close()

	_, err := f.svc.Create(ctx, f.ann, taskDraft(t, "one"))
	require.NoError(t, err)

	list, err := f.svc.List(ctx, f.ann)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// hookedManager runs test hooks around task repository calls so a second
// operation can land between a read and what the service does with it.
type hookedManager struct {
	repomanager.RepositoryManager
	afterList  func()
	beforeMark func()
}

func (m *hookedManager) Tasks(db dbx.DBTX) tasks.Repository {
	return &hookedTasks{Repository: m.RepositoryManager.Tasks(db), m: m}
}

type hookedTasks struct {
	tasks.Repository
	m *hookedManager
}

func (r *hookedTasks) ListByOwner(ctx context.Context, ownerID string) ([]*models.Task, error) {
	list, err := r.Repository.ListByOwner(ctx, ownerID)
	if h := r.m.afterList; h != nil {
		r.m.afterList = nil
		h()
	}
	return list, err
}

func (r *hookedTasks) MarkCompleted(ctx context.Context, taskID string) error {
	if h := r.m.beforeMark; h != nil {
		r.m.beforeMark = nil
		h()
	}
	return r.Repository.MarkCompleted(ctx, taskID)
}

func newHookedFixture(t *testing.T, c cache.TaskListCache) (*taskFixture, *hookedManager) {
	t.Helper()
	m := &hookedManager{RepositoryManager: memory.NewManager(memory.NewStore())}
	ctx := context.Background()

	users := NewUserService(newTxDB(t), m, newHasher(t), newIssuer(t), logging.Nop{})
	ann, err := users.SignUp(ctx, signUpDraft(t, "ann", "ann@example.com", "secret123"))
	require.NoError(t, err)

	return &taskFixture{
		svc: NewTaskService(newTxDB(t), m, c, logging.Nop{}),
		ann: ann.ID,
	}, m
}

func TestTaskService_ListDoesNotCacheListOverlappedByCreate(t *testing.T) {
	c, mr := newRedisCache(t)
	f, m := newHookedFixture(t, c)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.ann, taskDraft(t, "one"))
	require.NoError(t, err)

	// a create commits and invalidates after List has read the store but
	// before it writes the cache
	m.afterList = func() {
		_, err := f.svc.Create(ctx, f.ann, taskDraft(t, "two"))
		require.NoError(t, err)
	}

	list, err := f.svc.List(ctx, f.ann)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.False(t, mr.Exists(listKey(f.ann)))

	list, err = f.svc.List(ctx, f.ann)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "two", list[1].Text)
	assert.True(t, mr.Exists(listKey(f.ann)))

	// and the cached copy is the fresh one
	list, err = f.svc.List(ctx, f.ann)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestTaskService_CompleteOfTaskDeletedMeanwhileIsNotFound(t *testing.T) {
	f, m := newHookedFixture(t, nil)
	ctx := context.Background()

	task, err := f.svc.Create(ctx, f.ann, taskDraft(t, "one"))
	require.NoError(t, err)

	m.beforeMark = func() {
		require.NoError(t, m.RepositoryManager.Tasks(nil).Delete(ctx, task.ID))
	}

	_, err = f.svc.Complete(ctx, f.ann, task.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
