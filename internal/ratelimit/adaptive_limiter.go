package ratelimit

import (
	"context"
	"log/slog"

	"github.com/Proton-105/studyhelper-bot/pkg/metrics"
)

// AdaptiveLimiter asks the shared Redis limiter first. While Redis fails it falls back to
// the local limiter at half the rule, since every instance then counts on its own.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
}

var _ Limiter = (*AdaptiveLimiter)(nil)

// NewAdaptiveLimiter combines a shared primary limiter with a local fallback.
func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) *AdaptiveLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &AdaptiveLimiter{primary: primary, fallback: fallback, log: log}
}

// Allow records the hit on the primary backend, or on the fallback when the primary errors.
func (a *AdaptiveLimiter) Allow(ctx context.Context, b Bucket, rule Rule) (Decision, error) {
	decision, err := a.primary.Allow(ctx, b, rule)
	if err == nil {
		metrics.RecordRateLimitCheck("redis", decision.Allowed)
		return decision, nil
	}

	metrics.RecordRateLimitBackendError("redis")
	a.log.Warn("redis limiter failed, falling back to in-memory",
		slog.String("scope", string(b.Scope)),
		slog.String("route", b.Route),
		slog.Any("error", err),
	)

	local := rule
	local.Limit = max(rule.Limit/2, 1)

	decision, err = a.fallback.Allow(ctx, b, local)
	if err != nil {
		return decision, err
	}
	metrics.RecordRateLimitCheck("memory", decision.Allowed)
	return decision, nil
}
