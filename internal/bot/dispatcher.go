package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/studyhelper-bot/internal/auth"
	"github.com/Proton-105/studyhelper-bot/internal/bot/handlers"
	"github.com/Proton-105/studyhelper-bot/internal/callback"
	apperrors "github.com/Proton-105/studyhelper-bot/internal/errors"
	"github.com/Proton-105/studyhelper-bot/pkg/metrics"
)

// ErrUnknownRoute is returned when no route is registered under a name.
var ErrUnknownRoute = errors.New("unknown route")

// Route binds a name to the roles allowed on it and its handler.
type Route struct {
	Name   string
	Roles  auth.RoleSet
	Handle handlers.ActionHandler
}

// Admitter decides whether a user may enter a route.
type Admitter interface {
	Admit(ctx context.Context, userID int64, required auth.RoleSet) (auth.Decision, error)
}

// RouteLimiter rejects a user hitting a route too often.
type RouteLimiter interface {
	AllowRoute(ctx context.Context, userID int64, route string) error
}

// Dispatcher maps every command and callback action to exactly one handler behind the authorization gate.
type Dispatcher struct {
	gate    Admitter
	routes  map[string]Route
	limiter RouteLimiter
	log     *slog.Logger
}

// NewDispatcher builds the static route registry. Duplicate or incomplete routes are rejected.
func NewDispatcher(gate Admitter, log *slog.Logger, routes ...Route) (*Dispatcher, error) {
	if log == nil {
		log = slog.Default()
	}

	registry := make(map[string]Route, len(routes))
	for _, r := range routes {
		if r.Name == "" || r.Handle == nil || len(r.Roles) == 0 {
			return nil, fmt.Errorf("route %q is incomplete", r.Name)
		}
		if _, dup := registry[r.Name]; dup {
			return nil, fmt.Errorf("route %q registered twice", r.Name)
		}
		registry[r.Name] = r
	}

	return &Dispatcher{gate: gate, routes: registry, log: log}, nil
}

// SetLimiter installs a per-route rate limiter.
func (d *Dispatcher) SetLimiter(l RouteLimiter) {
	d.limiter = l
}

// Has reports whether name is a registered route.
func (d *Dispatcher) Has(name string) bool {
	_, ok := d.routes[name]
	return ok
}

// RouteName returns the registry name of a decoded callback action.
func RouteName(a callback.Action) string {
	if t, ok := a.(callback.TaskAction); ok {
		return t.Prefix() + ":" + string(t.Action)
	}
	return a.Prefix()
}

// Dispatch admits the sender to route name and runs its handler. No handler runs on denial.
func (d *Dispatcher) Dispatch(c telebot.Context, name, args string, action callback.Action) error {
	if c == nil || c.Sender() == nil {
		d.log.Warn("cannot dispatch without sender information", slog.String("route", name))
		return nil
	}

	route, ok := d.routes[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRoute, name)
	}

	ctx := handlers.Context(c)
	userID := c.Sender().ID

	decision, err := d.gate.Admit(ctx, userID, route.Roles)
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}
	if !decision.Allowed {
		metrics.RecordAccessDenied(route.Name, decision.Role.String())
		d.log.Warn("access denied",
			slog.Int64("user_id", userID),
			slog.String("route", route.Name),
			slog.String("role", decision.Role.String()),
			slog.String("reason", decision.Reason),
		)
		return apperrors.NewUnauthorizedError(route.Name, decision.Reason)
	}

	if d.limiter != nil {
		if err := d.limiter.AllowRoute(ctx, userID, route.Name); err != nil {
			return err
		}
	}

	return route.Handle(c, handlers.Request{
		UserID: userID,
		Role:   decision.Role,
		Route:  route.Name,
		Args:   args,
		Action: action,
	})
}
