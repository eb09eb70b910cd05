package ratelimit

import (
	"errors"
	"fmt"
	"time"

	"github.com/Proton-105/studyhelper-bot/pkg/config"
)

// Routes with a dedicated budget. The names match the dispatcher registry.
const (
	RouteCreateSubject = "/create_subject"
	RouteGrade         = "solution"
	RouteSupport       = "support"
)

// Rules encapsulates configured rate limits and helper methods.
type Rules struct {
	config config.RateLimitConfig
}

// NewRules constructs rate limiting rules from configuration settings.
func NewRules(cfg config.RateLimitConfig) *Rules {
	return &Rules{config: cfg}
}

// Enabled reports whether rate limiting is switched on.
func (r *Rules) Enabled() bool {
	return r != nil && r.config.Enabled
}

// IsWhitelisted returns true if the userID bypasses rate limits.
func (r *Rules) IsWhitelisted(userID int64) bool {
	for _, id := range r.config.Whitelist {
		if id == userID {
			return true
		}
	}
	return false
}

// Route returns the dedicated rule of a dispatcher route. ok is false for routes without one.
func (r *Rules) Route(route string) (rule Rule, ok bool, err error) {
	var raw config.RateLimitRule
	switch route {
	case RouteCreateSubject:
		raw = r.config.Commands.CreateSubject
	case RouteGrade:
		raw = r.config.Commands.Grade
	case RouteSupport:
		raw = r.config.Commands.Support
	default:
		return Rule{}, false, nil
	}
	if raw.Limit == 0 && raw.Window == "" {
		return Rule{}, false, nil
	}

	rule, err = parseRule(raw)
	if err != nil {
		return Rule{}, false, fmt.Errorf("route %s: %w", route, err)
	}
	return rule, true, nil
}

// Global returns the bot-wide rule. ok is false when none is configured.
func (r *Rules) Global() (rule Rule, ok bool, err error) {
	if r.config.Global.Limit == 0 && r.config.Global.Window == "" {
		return Rule{}, false, nil
	}
	rule, err = parseRule(r.config.Global)
	return rule, err == nil, err
}

// PerUser returns the rule every sender is held to.
func (r *Rules) PerUser() (Rule, error) {
	return parseRule(r.config.PerUser)
}

func parseRule(raw config.RateLimitRule) (Rule, error) {
	if raw.Window == "" {
		return Rule{}, errors.New("window duration is not set")
	}
	window, err := time.ParseDuration(raw.Window)
	if err != nil {
		return Rule{}, err
	}
	if window <= 0 {
		return Rule{}, fmt.Errorf("window %s must be positive", raw.Window)
	}
	return Rule{Limit: raw.Limit, Window: window}, nil
}
