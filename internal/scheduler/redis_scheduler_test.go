package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) (*RedisScheduler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisScheduler(rdb), mr
}

func newTestRunner(s *RedisScheduler) *Runner {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewRunner(s, time.Second, log)
}

func task(kind, key string, runAt time.Time) Task {
	return Task{
		Kind:    kind,
		Key:     key,
		RunAt:   runAt,
		Payload: json.RawMessage(`{"booking_id":7}`),
	}
}

func TestScheduleReplacesByKey(t *testing.T) {
	s, mr := newTestScheduler(t)
	ctx := context.Background()

	first := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(6 * time.Hour)

	require.NoError(t, s.Schedule(ctx, task("remainder.charge", "remainder-charge:7", first)))
	require.NoError(t, s.Schedule(ctx, task("remainder.charge", "remainder-charge:7", second)))

	members, err := mr.ZMembers(zsetKey)
	require.NoError(t, err)
	require.Len(t, members, 1, "same key must replace, not duplicate")

	score, err := mr.ZScore(zsetKey, "remainder-charge:7")
	require.NoError(t, err)
	assert.Equal(t, float64(second.UnixMilli()), score, "replacement carries the new run-at")

	var stored Task
	require.NoError(t, json.Unmarshal([]byte(mr.HGet(payloadKey, "remainder-charge:7")), &stored))
	assert.True(t, stored.RunAt.Equal(second))
}

func TestClaimSecondRunnerLoses(t *testing.T) {
	s, _ := newTestScheduler(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.Schedule(ctx, task("hold.expire", "hold-expire:7", now.Add(-time.Minute))))

	won, err := s.claim(ctx, "hold-expire:7", now)
	require.NoError(t, err)
	assert.True(t, won)

	// A second runner polling the same tick computes the same lease
	// score; ZADD XX CH reports no change, so it must back off.
	won, err = s.claim(ctx, "hold-expire:7", now)
	require.NoError(t, err)
	assert.False(t, won)

	// Claiming a key another runner already completed is a no-op.
	won, err = s.claim(ctx, "hold-expire:999", now)
	require.NoError(t, err)
	assert.False(t, won)
}

func TestTickDispatchesOnlyDueTasks(t *testing.T) {
	s, mr := newTestScheduler(t)
	ctx := context.Background()
	now := time.Now().UTC()

	var got []Task
	r := newTestRunner(s)
	r.Register("hold.expire", func(ctx context.Context, tk Task) error {
		got = append(got, tk)
		return nil
	})

	require.NoError(t, s.Schedule(ctx, task("hold.expire", "hold-expire:1", now.Add(-time.Minute))))
	require.NoError(t, s.Schedule(ctx, task("hold.expire", "hold-expire:2", now.Add(time.Hour))))

	require.NoError(t, r.tick(ctx, now))

	require.Len(t, got, 1)
	assert.Equal(t, "hold-expire:1", got[0].Key)
	assert.Equal(t, json.RawMessage(`{"booking_id":7}`), got[0].Payload)

	// The finished task is gone entirely; the future one is untouched.
	members, err := mr.ZMembers(zsetKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"hold-expire:2"}, members)
	assert.Empty(t, mr.HGet(payloadKey, "hold-expire:1"), "payload cleaned up")
}

func TestTickRequeuesOnHandlerError(t *testing.T) {
	s, mr := newTestScheduler(t)
	ctx := context.Background()

	calls := 0
	r := newTestRunner(s)
	r.Register("remainder.charge", func(ctx context.Context, tk Task) error {
		calls++
		if calls == 1 {
			return errors.New("provider timeout")
		}
		return nil
	})

	before := time.Now().UTC()
	require.NoError(t, s.Schedule(ctx, task("remainder.charge", "remainder-charge:7", before.Add(-time.Minute))))
	require.NoError(t, r.tick(ctx, before))
	after := time.Now().UTC()

	require.Equal(t, 1, calls)
	score, err := mr.ZScore(zsetKey, "remainder-charge:7")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, float64(before.Add(retryDelay).UnixMilli()), "failed task comes due again after the retry delay")
	assert.LessOrEqual(t, score, float64(after.Add(retryDelay).UnixMilli()))

	// The re-fire succeeds and completes the task.
	require.NoError(t, r.tick(ctx, after.Add(retryDelay+time.Second)))
	assert.Equal(t, 2, calls)
	assert.False(t, mr.Exists(zsetKey), "completed task leaves nothing pending")
}

func TestTickDropsUnroutableTasks(t *testing.T) {
	s, mr := newTestScheduler(t)
	ctx := context.Background()
	now := time.Now().UTC()

	r := newTestRunner(s)
	require.NoError(t, s.Schedule(ctx, task("retired.kind", "retired:1", now.Add(-time.Minute))))

	require.NoError(t, r.tick(ctx, now))

	assert.False(t, mr.Exists(zsetKey), "a task nothing handles must not spin forever")
}
