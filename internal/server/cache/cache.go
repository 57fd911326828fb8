// Package cache holds the per-owner task list cache. It only ever stores
// lists keyed by owner id, so a cached entry cannot leak across users.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
)

// ErrStale is returned by Set when the owner's list was invalidated after
// the caller read the generation. Nothing is written in that case.
var ErrStale = errors.New("cache: stale generation")

// TaskListCache caches an owner's full task list.
//
// Readers take Generation before loading the list from the store and pass
// it to Set; Invalidate bumps the generation, so a list loaded before a
// mutation can never be written after it. Get reports a miss with
// ok == false and a nil error.
type TaskListCache interface {
	Get(ctx context.Context, ownerID string) (tasks []*models.Task, ok bool, err error)
	Generation(ctx context.Context, ownerID string) (int64, error)
	Set(ctx context.Context, ownerID string, gen int64, tasks []*models.Task) error
	Invalidate(ctx context.Context, ownerID string) error
}

// Both keys of an owner share a hash tag so they land in one cluster slot
// and can be watched together.
func listKey(ownerID string) string {
	return "taskkeeper:tasks:{" + ownerID + "}"
}

func generationKey(ownerID string) string {
	return "taskkeeper:tasks:gen:{" + ownerID + "}"
}

// RedisTaskListCache stores lists as JSON with a fixed TTL.
type RedisTaskListCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisTaskListCache(rdb redis.UniversalClient, ttl time.Duration) *RedisTaskListCache {
	return &RedisTaskListCache{rdb: rdb, ttl: ttl}
}

func (c *RedisTaskListCache) Get(ctx context.Context, ownerID string) ([]*models.Task, bool, error) {
	val, err := c.rdb.Get(ctx, listKey(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var tasks []*models.Task
	if err := json.Unmarshal(val, &tasks); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	if tasks == nil {
		tasks = make([]*models.Task, 0)
	}
	return tasks, true, nil
}

func (c *RedisTaskListCache) Generation(ctx context.Context, ownerID string) (int64, error) {
	gen, err := readGeneration(ctx, c.rdb, ownerID)
	if err != nil {
		return 0, fmt.Errorf("cache generation: %w", err)
	}
	return gen, nil
}

func readGeneration(ctx context.Context, r redis.Cmdable, ownerID string) (int64, error) {
	gen, err := r.Get(ctx, generationKey(ownerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Set writes tasks only while the owner's generation still equals gen.
// The check and the write run in one WATCH/MULTI transaction.
func (c *RedisTaskListCache) Set(ctx context.Context, ownerID string, gen int64, tasks []*models.Task) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := readGeneration(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		if cur != gen {
			return ErrStale
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, listKey(ownerID), data, c.ttl)
			return nil
		})
		return err
	}, generationKey(ownerID))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStale), errors.Is(err, redis.TxFailedErr):
		return ErrStale
	default:
		return fmt.Errorf("cache set: %w", err)
	}
}

// Invalidate bumps the generation and drops the cached list atomically.
func (c *RedisTaskListCache) Invalidate(ctx context.Context, ownerID string) error {
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, generationKey(ownerID))
		p.Del(ctx, listKey(ownerID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// NopTaskListCache never hits.
type NopTaskListCache struct{}

func (NopTaskListCache) Get(context.Context, string) ([]*models.Task, bool, error) {
	return nil, false, nil
}
func (NopTaskListCache) Generation(context.Context, string) (int64, error)        { return 0, nil }
func (NopTaskListCache) Set(context.Context, string, int64, []*models.Task) error { return nil }
func (NopTaskListCache) Invalidate(context.Context, string) error                 { return nil }

var (
	_ TaskListCache = (*RedisTaskListCache)(nil)
	_ TaskListCache = NopTaskListCache{}
)
