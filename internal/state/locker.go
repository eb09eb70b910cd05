package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	userLockKeyPattern = "session:lock:%d"
	lockRetryDelay     = 25 * time.Millisecond
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker serializes operations on a single user's session.
type Locker interface {
	// Lock blocks until the user's lock is held or the wait elapses, returning a release func.
	Lock(ctx context.Context, userID int64) (func(), error)
}

// RedisLocker implements Locker with a token-guarded SET NX lock, so several bot instances share it.
type RedisLocker struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLocker constructs a RedisLocker. ttl bounds how long a crashed holder blocks others; wait bounds how long Lock retries.
func NewRedisLocker(client *redis.Client, log *slog.Logger, ttl, wait time.Duration) *RedisLocker {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &RedisLocker{client: client, log: log, ttl: ttl, wait: wait}
}

// Lock acquires the per-user lock.
func (l *RedisLocker) Lock(ctx context.Context, userID int64) (func(), error) {
	key := fmt.Sprintf(userLockKeyPattern, userID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			l.log.Error("failed to acquire user state lock", slog.Int64("user_id", userID), slog.Any("error", err))
			return nil, fmt.Errorf("acquire session lock: %w", err)
		}
		if acquired {
			break
		}

		if time.Now().After(deadline) {
			l.log.Warn("user state lock already held", slog.Int64("user_id", userID))
			return nil, ErrStateLocked
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}

	release := func() {
		// The caller's ctx may already be cancelled; releasing must still happen.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.log.Error("failed to release user state lock", slog.Int64("user_id", userID), slog.Any("error", err))
		}
	}

	return release, nil
}

// MemoryLocker is an in-process keyed mutex.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[int64]*keyLock
	wait  time.Duration
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker constructs a MemoryLocker. A zero wait blocks until ctx is done.
func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	return &MemoryLocker{locks: make(map[int64]*keyLock), wait: wait}
}

// Lock acquires the per-user mutex.
func (l *MemoryLocker) Lock(ctx context.Context, userID int64) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[userID]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[userID] = kl
	}
	kl.refs++
	l.mu.Unlock()

	var timeout <-chan time.Time
	if l.wait > 0 {
		timer := time.NewTimer(l.wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case kl.ch <- struct{}{}:
		return func() { l.release(userID, kl) }, nil
	case <-ctx.Done():
		l.drop(userID, kl)
		return nil, ctx.Err()
	case <-timeout:
		l.drop(userID, kl)
		return nil, ErrStateLocked
	}
}

func (l *MemoryLocker) release(userID int64, kl *keyLock) {
	<-kl.ch
	l.drop(userID, kl)
}

func (l *MemoryLocker) drop(userID int64, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, userID)
	}
}
