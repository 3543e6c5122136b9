package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Redis key layout: a sorted set holds pending task keys scored by
// run-at time, and a hash maps each key to its serialized task.  ZADD
// on an existing member replaces its score, which is exactly the
// replacement semantics Schedule promises.
const (
	zsetKey    = "sched:due"
	payloadKey = "sched:tasks"
)

// claimLease is how far a runner pushes a task's score into the future
// while working on it.  If the runner dies mid-task the score comes due
// again and another runner picks the task up, giving at-least-once
// delivery without any broker support.
const claimLease = 2 * time.Minute

// retryDelay is applied when a handler returns an error.
const retryDelay = 30 * time.Second

// RedisScheduler is a Scheduler backed by a Redis sorted set.
type RedisScheduler struct {
	rdb *redis.Client
}

// NewRedisScheduler wraps an existing Redis client.
func NewRedisScheduler(rdb *redis.Client) *RedisScheduler {
	return &RedisScheduler{rdb: rdb}
}

// Schedule enqueues or replaces the task under its dedupe key.
func (s *RedisScheduler) Schedule(ctx context.Context, t Task) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.ZAdd(ctx, zsetKey, redis.Z{Score: float64(t.RunAt.UTC().UnixMilli()), Member: t.Key})
	pipe.HSet(ctx, payloadKey, t.Key, body)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("schedule %s: %w", t.Key, err)
	}
	return nil
}

// complete removes a finished task.
func (s *RedisScheduler) complete(ctx context.Context, key string) error {
	pipe := s.rdb.TxPipeline()
	pipe.ZRem(ctx, zsetKey, key)
	pipe.HDel(ctx, payloadKey, key)
	_, err := pipe.Exec(ctx)
	return err
}

// claim moves a due task's score forward by the lease.  ZADD with XX+CH
// reports whether this runner actually changed the score; a zero result
// means another runner claimed the task first.
func (s *RedisScheduler) claim(ctx context.Context, key string, now time.Time) (bool, error) {
	n, err := s.rdb.ZAddArgs(ctx, zsetKey, redis.ZAddArgs{
		XX: true,
		Ch: true,
		Members: []redis.Z{{
			Score:  float64(now.Add(claimLease).UnixMilli()),
			Member: key,
		}},
	}).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Runner polls for due tasks and dispatches them to registered
// handlers.  Several runners may poll the same Redis instance; the
// claim step guarantees each due task is worked on by one of them.
type Runner struct {
	sched    *RedisScheduler
	handlers map[string]Handler
	interval time.Duration
	log      *logrus.Entry
}

// NewRunner builds a Runner polling at the given interval.
func NewRunner(sched *RedisScheduler, interval time.Duration, log *logrus.Logger) *Runner {
	return &Runner{
		sched:    sched,
		handlers: map[string]Handler{},
		interval: interval,
		log:      log.WithField("component", "scheduler"),
	}
}

// Register binds a handler to a task kind.  Must be called before Run.
func (r *Runner) Register(kind string, h Handler) { r.handlers[kind] = h }

// Run polls until ctx is cancelled.  Handler panics are not recovered;
// a crashed runner's claimed tasks come due again after the lease.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.tick(ctx, time.Now().UTC()); err != nil && ctx.Err() == nil {
				r.log.WithError(err).Error("poll failed")
			}
		}
	}
}

// tick processes every task due at now.
func (r *Runner) tick(ctx context.Context, now time.Time) error {
	keys, err := r.sched.rdb.ZRangeByScore(ctx, zsetKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.UnixMilli()),
		Count: 100,
	}).Result()
	if err != nil {
		return fmt.Errorf("range due tasks: %w", err)
	}
	for _, key := range keys {
		claimed, err := r.sched.claim(ctx, key, now)
		if err != nil {
			return fmt.Errorf("claim %s: %w", key, err)
		}
		if !claimed {
			continue
		}
		r.dispatch(ctx, key)
	}
	return nil
}

func (r *Runner) dispatch(ctx context.Context, key string) {
	body, err := r.sched.rdb.HGet(ctx, payloadKey, key).Result()
	if err == redis.Nil {
		// Payload gone: a Schedule/complete race already resolved this
		// key, drop the zset entry.
		_ = r.sched.rdb.ZRem(ctx, zsetKey, key).Err()
		return
	}
	if err != nil {
		r.log.WithError(err).WithField("task", key).Error("load payload failed")
		return
	}
	var t Task
	if err := json.Unmarshal([]byte(body), &t); err != nil {
		r.log.WithError(err).WithField("task", key).Error("corrupt task payload, dropping")
		_ = r.sched.complete(ctx, key)
		return
	}
	h, ok := r.handlers[t.Kind]
	if !ok {
		r.log.WithField("task", key).WithField("kind", t.Kind).Error("no handler for task kind, dropping")
		_ = r.sched.complete(ctx, key)
		return
	}
	if err := h(ctx, t); err != nil {
		r.log.WithError(err).WithField("task", key).Warn("handler failed, requeueing")
		t.RunAt = time.Now().UTC().Add(retryDelay)
		if serr := r.sched.Schedule(ctx, t); serr != nil {
			r.log.WithError(serr).WithField("task", key).Error("requeue failed")
		}
		return
	}
	if err := r.sched.complete(ctx, key); err != nil {
		// Completion failure leaves the task to fire again after the
		// lease; handlers are idempotent so this is safe.
		r.log.WithError(err).WithField("task", key).Warn("complete failed")
	}
}
