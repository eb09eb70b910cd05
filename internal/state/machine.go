package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrInvalidTransition indicates that a requested FSM transition is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrStateNotFound indicates that a user state record does not exist.
	ErrStateNotFound = errors.New("user state not found")
	// ErrStateLocked indicates that a concurrent operation already holds the lock.
	ErrStateLocked = errors.New("state is locked, try again later")
	// ErrUnknownState indicates a state outside the closed set.
	ErrUnknownState = errors.New("unknown state")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe FSM transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// StateMachine is the session store: one state record per user with serialized read-modify-write.
type StateMachine interface {
	// GetState returns the user's session, or an idle record when none is stored.
	GetState(ctx context.Context, userID int64) (*UserState, error)
	// SetState replaces the user's session with state and data.
	SetState(ctx context.Context, userID int64, state State, data map[string]string) error
	// UpdateFields merges fields into the user's session data.
	UpdateFields(ctx context.Context, userID int64, fields map[string]string) error
	// TransitionTo moves the user to newState if the transition table allows it.
	TransitionTo(ctx context.Context, userID int64, newState State) error
	// Update loads the session under the user's lock, applies fn and stores the result.
	Update(ctx context.Context, userID int64, fn func(*UserState) error) error
	// ClearState resets the user to idle with no data.
	ClearState(ctx context.Context, userID int64) error
	// GetAllStates returns every stored session.
	GetAllStates(ctx context.Context) ([]*UserState, error)
}

// machine is a concrete implementation of StateMachine backed by Storage and a per-user Locker.
type machine struct {
	storage Storage
	locker  Locker
	log     *slog.Logger
}

// NewStateMachine creates a session store using the provided storage backend and locker.
func NewStateMachine(storage Storage, locker Locker, log *slog.Logger) StateMachine {
	if log == nil {
		log = slog.Default()
	}
	if locker == nil {
		locker = NewMemoryLocker(0)
	}

	return &machine{
		storage: storage,
		locker:  locker,
		log:     log,
	}
}

func (m *machine) GetState(ctx context.Context, userID int64) (*UserState, error) {
	return m.load(ctx, userID)
}

func (m *machine) GetAllStates(ctx context.Context) ([]*UserState, error) {
	return m.storage.GetAllStates(ctx)
}

func (m *machine) SetState(ctx context.Context, userID int64, newState State, data map[string]string) error {
	if !newState.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownState, newState)
	}

	return m.withLock(ctx, userID, func() error {
		current, err := m.load(ctx, userID)
		if err != nil {
			return err
		}

		next := Idle(userID)
		next.CurrentState = newState
		next.Merge(data)

		return m.save(ctx, current.CurrentState, next)
	})
}

func (m *machine) UpdateFields(ctx context.Context, userID int64, fields map[string]string) error {
	return m.Update(ctx, userID, func(s *UserState) error {
		s.Merge(fields)
		return nil
	})
}

func (m *machine) TransitionTo(ctx context.Context, userID int64, newState State) error {
	return m.Update(ctx, userID, func(s *UserState) error {
		s.CurrentState = newState
		return nil
	})
}

func (m *machine) Update(ctx context.Context, userID int64, fn func(*UserState) error) error {
	return m.withLock(ctx, userID, func() error {
		current, err := m.load(ctx, userID)
		if err != nil {
			return err
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}

		if !next.CurrentState.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownState, next.CurrentState)
		}

		if !IsTransitionAllowed(current.CurrentState, next.CurrentState) {
			m.log.Warn("invalid state transition",
				slog.Int64("user_id", userID),
				slog.String("from", string(current.CurrentState)),
				slog.String("to", string(next.CurrentState)),
			)
			return ErrInvalidTransition
		}

		return m.save(ctx, current.CurrentState, next)
	})
}

func (m *machine) ClearState(ctx context.Context, userID int64) error {
	return m.withLock(ctx, userID, func() error {
		current, err := m.load(ctx, userID)
		if err != nil {
			return err
		}
		if current.CurrentState != StateIdle {
			transitionRecorder(string(current.CurrentState), string(StateIdle))
		}
		return m.storage.ClearState(ctx, userID)
	})
}

// save persists next; an idle record is stored as an absent key.
func (m *machine) save(ctx context.Context, from State, next *UserState) error {
	if from != next.CurrentState {
		transitionRecorder(string(from), string(next.CurrentState))
	}

	if next.IsIdle() {
		return m.storage.ClearState(ctx, next.UserID)
	}

	return m.storage.SetState(ctx, next.UserID, next)
}

func (m *machine) load(ctx context.Context, userID int64) (*UserState, error) {
	stored, err := m.storage.GetState(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return Idle(userID), nil
		}
		return nil, err
	}
	if stored == nil {
		return Idle(userID), nil
	}

	stored.UserID = userID
	if stored.CurrentState == "" {
		stored.CurrentState = StateIdle
	}
	if stored.Data == nil {
		stored.Data = map[string]string{}
	}
	return stored, nil
}

func (m *machine) withLock(ctx context.Context, userID int64, fn func() error) error {
	release, err := m.locker.Lock(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	return fn()
}
