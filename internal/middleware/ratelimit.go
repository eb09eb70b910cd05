package middleware

import (
	"context"
	"log/slog"
	"math"

	"gopkg.in/telebot.v3"

	"github.com/Proton-105/studyhelper-bot/internal/bot/handlers"
	apperrors "github.com/Proton-105/studyhelper-bot/internal/errors"
	"github.com/Proton-105/studyhelper-bot/internal/ratelimit"
	"github.com/Proton-105/studyhelper-bot/pkg/metrics"
)

// RateLimitMiddleware holds every update to the global and per-user budgets, and
// dispatched routes to their own per-user budget.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	log     *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		log:     log,
	}
}

// Handle returns a telebot middleware that answers throttled senders instead of handling the update.
func (m *RateLimitMiddleware) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		sender := c.Sender()
		if !m.active() || sender == nil || m.rules.IsWhitelisted(sender.ID) {
			return next(c)
		}

		if err := m.check(handlers.Context(c), sender.ID); err != nil {
			if c.Callback() != nil {
				return c.Respond(&telebot.CallbackResponse{Text: err.UserMessage})
			}
			return c.Send(err.UserMessage)
		}
		return next(c)
	}
}

func (m *RateLimitMiddleware) check(ctx context.Context, userID int64) *apperrors.AppError {
	if rule, ok, err := m.rules.Global(); err != nil {
		m.log.Error("failed to load global rate limit", slog.Any("error", err))
	} else if ok {
		if rejected := m.hit(ctx, ratelimit.GlobalBucket(), rule); rejected != nil {
			return rejected
		}
	}

	rule, err := m.rules.PerUser()
	if err != nil {
		m.log.Error("failed to load per-user rate limit", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil
	}
	return m.hit(ctx, ratelimit.UserBucket(userID), rule)
}

// AllowRoute applies the route's dedicated limit. Routes without a rule pass.
func (m *RateLimitMiddleware) AllowRoute(ctx context.Context, userID int64, route string) error {
	if !m.active() || m.rules.IsWhitelisted(userID) {
		return nil
	}

	rule, ok, err := m.rules.Route(route)
	if err != nil {
		m.log.Error("failed to load route rate limit", slog.String("route", route), slog.Any("error", err))
		return nil
	}
	if !ok {
		return nil
	}

	if rejected := m.hit(ctx, ratelimit.RouteBucket(route, userID), rule); rejected != nil {
		return rejected
	}
	return nil
}

// hit fails open on backend errors.
func (m *RateLimitMiddleware) hit(ctx context.Context, b ratelimit.Bucket, rule ratelimit.Rule) *apperrors.AppError {
	decision, err := m.limiter.Allow(ctx, b, rule)
	if err != nil {
		m.log.Warn("rate limiter error", slog.String("bucket", b.Key()), slog.Any("error", err))
		return nil
	}
	if decision.Allowed {
		return nil
	}

	metrics.RecordRateLimitRejection(string(b.Scope), b.Route)
	m.log.Warn("rate limit exceeded",
		slog.String("scope", string(b.Scope)),
		slog.String("route", b.Route),
		slog.Int64("user_id", b.UserID),
		slog.Duration("retry_after", decision.RetryAfter),
	)
	return rateLimitError(decision)
}

func (m *RateLimitMiddleware) active() bool {
	return m != nil && m.limiter != nil && m.rules.Enabled()
}

func rateLimitError(d ratelimit.Decision) *apperrors.AppError {
	retryAfter := int(math.Ceil(d.RetryAfter.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return apperrors.NewRateLimitError(retryAfter)
}
