package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bitfantasy/vgp/internal/vgp/workflow"
)

// RunLocker serializes submissions of the same run. Lock fails fast with
// CONFLICT when another submission holds the run.
type RunLocker interface {
	Lock(ctx context.Context, runID string) (unlock func(), err error)
}

// LocalRunLocker in-process keyed lock, for single-instance deployments
type LocalRunLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalRunLocker() *LocalRunLocker {
	return &LocalRunLocker{held: make(map[string]struct{})}
}

func (l *LocalRunLocker) Lock(_ context.Context, runID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[runID]; busy {
		return nil, workflow.Conflict("run %s is already being submitted", runID)
	}
	l.held[runID] = struct{}{}
	return func() {
		l.mu.Lock()
		delete(l.held, runID)
		l.mu.Unlock()
	}, nil
}

// compare-and-delete so an expired holder never frees a newer lock
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRunLocker SETNX lock shared by every instance
type RedisRunLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisRunLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisRunLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRunLocker{client: client, ttl: ttl, logger: logger}
}

func lockKey(runID string) string {
	return "vgp:submit:" + runID
}

func (l *RedisRunLocker) Lock(ctx context.Context, runID string) (func(), error) {
	key := lockKey(runID)
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire submit lock: %w", err)
	}
	if !ok {
		return nil, workflow.Conflict("run %s is already being submitted", runID)
	}

	return func() {
		if err := unlockScript.Run(context.Background(), l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("release submit lock", zap.String("run_id", runID), zap.Error(err))
		}
	}, nil
}
