package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Directory answers teacher/student membership from persistence.
type Directory interface {
	IsTeacher(ctx context.Context, userID int64) (bool, error)
	IsStudent(ctx context.Context, userID int64) (bool, error)
}

// AdminList is the configured admin allow-list. It is safe for concurrent use and can be replaced at runtime.
type AdminList struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

// NewAdminList constructs an AdminList from ids.
func NewAdminList(ids []int64) *AdminList {
	l := &AdminList{}
	l.Set(ids)
	return l
}

// Set replaces the allow-list.
func (l *AdminList) Set(ids []int64) {
	next := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}

	l.mu.Lock()
	l.ids = next
	l.mu.Unlock()
}

// Contains reports whether userID is an admin.
func (l *AdminList) Contains(userID int64) bool {
	if l == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ids[userID]
	return ok
}

// Resolver maps a user id to its primary Role. Nothing is cached between calls.
type Resolver struct {
	admins    *AdminList
	directory Directory
	log       *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(admins *AdminList, directory Directory, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	if admins == nil {
		admins = NewAdminList(nil)
	}
	return &Resolver{admins: admins, directory: directory, log: log}
}

// Admins exposes the allow-list for hot reload.
func (r *Resolver) Admins() *AdminList {
	return r.admins
}

// Resolve returns the highest-priority role of userID: admin, then teacher, then student.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (Role, error) {
	if r.admins.Contains(userID) {
		return RoleAdmin, nil
	}
	return r.resolvePersisted(ctx, userID)
}

// HasRole checks a single role. Admin membership never consults the directory.
func (r *Resolver) HasRole(ctx context.Context, userID int64, role Role) (bool, error) {
	switch role {
	case RoleAdmin:
		return r.admins.Contains(userID), nil
	case RoleTeacher:
		return r.lookup(ctx, userID, "teacher", r.directory.IsTeacher)
	case RoleStudent:
		return r.lookup(ctx, userID, "student", r.directory.IsStudent)
	default:
		persisted, err := r.resolvePersisted(ctx, userID)
		if err != nil {
			return false, err
		}
		return persisted == RoleUnknown && !r.admins.Contains(userID), nil
	}
}

func (r *Resolver) resolvePersisted(ctx context.Context, userID int64) (Role, error) {
	teacher, err := r.lookup(ctx, userID, "teacher", r.directory.IsTeacher)
	if err != nil {
		return RoleUnknown, err
	}
	if teacher {
		return RoleTeacher, nil
	}

	student, err := r.lookup(ctx, userID, "student", r.directory.IsStudent)
	if err != nil {
		return RoleUnknown, err
	}
	if student {
		return RoleStudent, nil
	}

	return RoleUnknown, nil
}

func (r *Resolver) lookup(ctx context.Context, userID int64, kind string, fn func(context.Context, int64) (bool, error)) (bool, error) {
	ok, err := fn(ctx, userID)
	if err != nil {
		r.log.Error("role lookup failed", slog.Int64("user_id", userID), slog.String("role", kind), slog.Any("error", err))
		return false, fmt.Errorf("resolve %s role: %w", kind, err)
	}
	return ok, nil
}
