// Package idempotency suppresses duplicate deliveries of the same Telegram update.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrDuplicate is returned by Once when key was already processed.
var ErrDuplicate = errors.New("update was already processed")

// DefaultTTL is how long a processed key is remembered.
const DefaultTTL = 24 * time.Hour

// Operation is the work guarded by a key.
type Operation func(ctx context.Context) error

// Manager runs an operation at most once per key.
type Manager interface {
	Once(ctx context.Context, key string, fn Operation) error
}

type manager struct {
	store Store
	ttl   time.Duration
	log   *slog.Logger
}

// NewManager constructs a Manager remembering keys for ttl.
func NewManager(store Store, ttl time.Duration, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &manager{
		store: store,
		ttl:   ttl,
		log:   log,
	}
}

// Once claims key and runs fn. A failed or panicking fn releases the claim so a redelivery can retry.
// When the store is unreachable fn runs unguarded.
func (m *manager) Once(ctx context.Context, key string, fn Operation) (err error) {
	if fn == nil {
		return errors.New("operation fn cannot be nil")
	}

	claimed, claimErr := m.store.Claim(ctx, key, m.ttl)
	if claimErr != nil {
		m.log.Warn("idempotency store unavailable, running unguarded", slog.String("key", key), slog.Any("error", claimErr))
		return fn(ctx)
	}
	if !claimed {
		return ErrDuplicate
	}

	done := false
	defer func() {
		if done && err == nil {
			return
		}
		if releaseErr := m.store.Release(context.WithoutCancel(ctx), key); releaseErr != nil {
			m.log.Warn("failed to release idempotency key", slog.String("key", key), slog.Any("error", releaseErr))
		}
	}()

	err = fn(ctx)
	done = true
	return err
}

// Key builds a deterministic key using all provided parts.
func Key(parts ...any) string {
	h := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(h, "%v:", part)
	}

	return hex.EncodeToString(h.Sum(nil))
}
