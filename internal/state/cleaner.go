package state

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var errSessionFresh = errors.New("session was touched after listing")

// Cleaner clears sessions that have not been touched for longer than ttl.
type Cleaner struct {
	machine  StateMachine
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(machine StateMachine, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		machine:  machine,
		log:      log,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

// Run starts the cleanup loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.machine == nil || c.ttl <= 0 || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("state cleaner stopped", slog.Any("reason", ctx.Err()))
			return
		case <-ticker.C:
			c.Cleanup(ctx)
		}
	}
}

// Cleanup clears every expired session once and returns how many were cleared.
// Expiry is checked again under the session lock, so a session touched after listing survives.
func (c *Cleaner) Cleanup(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	states, err := c.machine.GetAllStates(ctx)
	if err != nil {
		c.log.Error("state cleaner failed to list sessions", slog.Any("error", err))
		return 0
	}

	cleared := 0
	for _, st := range states {
		if st == nil || !c.stale(st) {
			continue
		}

		var expired State
		err := c.machine.Update(ctx, st.UserID, func(current *UserState) error {
			if current.IsIdle() || !c.stale(current) {
				return errSessionFresh
			}
			expired = current.CurrentState
			current.Reset()
			return nil
		})
		if errors.Is(err, errSessionFresh) {
			continue
		}
		if err != nil {
			c.log.Error("state cleaner failed to clear state", slog.Int64("user_id", st.UserID), slog.Any("error", err))
			continue
		}
		cleared++
		c.log.Info("expired session cleared",
			slog.Int64("user_id", st.UserID),
			slog.String("state", string(expired)),
		)
	}

	return cleared
}

func (c *Cleaner) stale(st *UserState) bool {
	return !st.UpdatedAt.IsZero() && c.now().Sub(st.UpdatedAt) > c.ttl
}
