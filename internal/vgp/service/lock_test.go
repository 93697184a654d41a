package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfantasy/vgp/internal/vgp/workflow"
)

func TestLocalRunLocker(t *testing.T) {
	l := NewLocalRunLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "run-1")
	require.NoError(t, err)

	_, err = l.Lock(ctx, "run-1")
	assert.True(t, errors.Is(err, workflow.ErrConflict))

	other, err := l.Lock(ctx, "run-2")
	require.NoError(t, err)
	other()

	unlock()
	again, err := l.Lock(ctx, "run-1")
	require.NoError(t, err)
	again()
}

func newRedisLocker(t *testing.T, ttl time.Duration) (*RedisRunLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisRunLocker(client, ttl, nil), mr
}

func TestRedisRunLocker(t *testing.T) {
	l, mr := newRedisLocker(t, 10*time.Second)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(lockKey("run-1")))
	assert.Equal(t, 10*time.Second, mr.TTL(lockKey("run-1")))

	_, err = l.Lock(ctx, "run-1")
	assert.True(t, errors.Is(err, workflow.ErrConflict))

	unlock()
	assert.False(t, mr.Exists(lockKey("run-1")))

	unlock, err = l.Lock(ctx, "run-1")
	require.NoError(t, err)
	unlock()
}

func TestRedisRunLocker_ExpiredHolderKeepsNewLock(t *testing.T) {
	l, mr := newRedisLocker(t, time.Second)
	ctx := context.Background()

	stale, err := l.Lock(ctx, "run-1")
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := l.Lock(ctx, "run-1")
	require.NoError(t, err)

	stale()
	assert.True(t, mr.Exists(lockKey("run-1")))
	fresh()
	assert.False(t, mr.Exists(lockKey("run-1")))
}

func TestRedisRunLocker_Unavailable(t *testing.T) {
	l, mr := newRedisLocker(t, time.Second)
	mr.Close()

	_, err := l.Lock(context.Background(), "run-1")
	require.Error(t, err)
	assert.Equal(t, workflow.Code(""), workflow.CodeOf(err))
}

func TestSubmitInspection_WithRedisLocker(t *testing.T) {
	f := newReportFixture(t, 365, 2)
	l, mr := newRedisLocker(t, 30*time.Second)
	f.svc.Inspection.locker = l

	// a submission held elsewhere blocks this one
	require.NoError(t, mr.Set(lockKey(f.run.ID), "other-instance"))
	_, err := f.svc.Inspection.SubmitInspection(context.Background(), technician, f.run.ID, &SubmitRequest{
		Results:  answerAll(f.tpl, "OK", nil),
		SignedBy: "Tech",
	})
	assert.True(t, errors.Is(err, workflow.ErrConflict))

	mr.Del(lockKey(f.run.ID))
	_, err = f.svc.Inspection.SubmitInspection(context.Background(), technician, f.run.ID, &SubmitRequest{
		Results:  answerAll(f.tpl, "OK", nil),
		SignedBy: "Tech",
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(lockKey(f.run.ID)))
}
