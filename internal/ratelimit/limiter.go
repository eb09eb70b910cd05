// Package ratelimit keeps sliding-window budgets for the bot's users and routes.
package ratelimit

import (
	"context"
	"strconv"
	"strings"
	"time"
)

const keyPrefix = "ratelimit:"

// Scope names the budget a bucket draws from.
type Scope string

const (
	// ScopeGlobal is shared by every sender.
	ScopeGlobal Scope = "global"
	// ScopeUser is a sender's budget across all updates.
	ScopeUser Scope = "user"
	// ScopeRoute is a sender's budget on one dispatcher route.
	ScopeRoute Scope = "route"
)

// Bucket identifies one sliding window.
type Bucket struct {
	Scope  Scope
	Route  string
	UserID int64
}

// GlobalBucket is the bucket every update draws from.
func GlobalBucket() Bucket {
	return Bucket{Scope: ScopeGlobal}
}

// UserBucket is userID's bucket across all routes.
func UserBucket(userID int64) Bucket {
	return Bucket{Scope: ScopeUser, UserID: userID}
}

// RouteBucket is userID's bucket on route, e.g. "solution" or "/create_subject".
func RouteBucket(route string, userID int64) Bucket {
	return Bucket{Scope: ScopeRoute, Route: route, UserID: userID}
}

// Key is the storage key of the bucket. Route labels keep their own colons.
func (b Bucket) Key() string {
	var sb strings.Builder
	sb.WriteString(keyPrefix)
	sb.WriteString(string(b.Scope))
	if b.Scope == ScopeGlobal {
		return sb.String()
	}
	if b.Route != "" {
		sb.WriteByte(':')
		sb.WriteString(b.Route)
	}
	sb.WriteByte(':')
	sb.WriteString(strconv.FormatInt(b.UserID, 10))
	return sb.String()
}

// Rule allows Limit hits per sliding Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of one hit against a bucket.
type Decision struct {
	Bucket     Bucket
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter records hits against buckets. A rejected hit does not consume the budget.
// The error is reserved for backend failures.
type Limiter interface {
	Allow(ctx context.Context, b Bucket, rule Rule) (Decision, error)
}

func rejectAll(b Bucket, rule Rule) Decision {
	return Decision{Bucket: b, RetryAfter: rule.Window}
}
