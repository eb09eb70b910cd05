package state

import (
	"encoding/json"
	"time"
)

// State represents a finite-state machine state.
type State string

const (
	// StateIdle is both the initial state and the reset state after a flow completes or aborts.
	StateIdle State = "idle"

	// StateSubjectName waits for the name of a new subject.
	StateSubjectName State = "subject_name"
	// StateSubjectDescription waits for the description of a new subject.
	StateSubjectDescription State = "subject_description"

	// StateTaskName waits for the name of a new task.
	StateTaskName State = "task_name"
	// StateTaskDescription waits for the description of a new task.
	StateTaskDescription State = "task_description"
	// StateTaskDueDate waits for the due date of a new task.
	StateTaskDueDate State = "task_due_date"

	// StateTaskEditName waits for the new name of an existing task.
	StateTaskEditName State = "task_edit_name"
	// StateTaskEditDescription waits for the new description of an existing task.
	StateTaskEditDescription State = "task_edit_description"
	// StateTaskEditDueDate waits for the new due date of an existing task.
	StateTaskEditDueDate State = "task_edit_due_date"

	// StateSolutionFile waits for the document a student submits as a solution.
	StateSolutionFile State = "solution_file"

	// StateSupportMessage waits for a message addressed to a support counterpart.
	StateSupportMessage State = "support_message"

	// StateAwaitingOptionConfirm is the shared yes/no confirmation state.
	StateAwaitingOptionConfirm State = "awaiting_option_confirm"
)

// All lists every known state.
var All = []State{
	StateIdle,
	StateSubjectName,
	StateSubjectDescription,
	StateTaskName,
	StateTaskDescription,
	StateTaskDueDate,
	StateTaskEditName,
	StateTaskEditDescription,
	StateTaskEditDueDate,
	StateSolutionFile,
	StateSupportMessage,
	StateAwaitingOptionConfirm,
}

// Valid reports whether s belongs to the closed set of states.
func (s State) Valid() bool {
	for _, known := range All {
		if s == known {
			return true
		}
	}
	return false
}

// Pending is a commit intent waiting for confirmation. Kind selects the decoder; Args holds its JSON payload.
type Pending struct {
	Kind string          `json:"kind"`
	Args json.RawMessage `json:"args"`
}

// UserState captures the current conversation state and accumulated fields for a Telegram user.
type UserState struct {
	UserID       int64             `json:"user_id"`
	CurrentState State             `json:"current_state"`
	Data         map[string]string `json:"data,omitempty"`
	Pending      *Pending          `json:"pending,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Idle returns an empty idle record for userID.
func Idle(userID int64) *UserState {
	return &UserState{
		UserID:       userID,
		CurrentState: StateIdle,
		Data:         map[string]string{},
	}
}

// Field returns the accumulated value for key.
func (s *UserState) Field(key string) string {
	if s == nil || s.Data == nil {
		return ""
	}
	return s.Data[key]
}

// Merge writes fields into Data, last write wins per key.
func (s *UserState) Merge(fields map[string]string) {
	if len(fields) == 0 {
		return
	}
	if s.Data == nil {
		s.Data = make(map[string]string, len(fields))
	}
	for k, v := range fields {
		s.Data[k] = v
	}
}

// Reset drops every field and pending intent and returns to idle.
func (s *UserState) Reset() {
	s.CurrentState = StateIdle
	s.Data = map[string]string{}
	s.Pending = nil
}

// IsIdle reports whether the record is at the idle state.
func (s *UserState) IsIdle() bool {
	return s == nil || s.CurrentState == StateIdle || s.CurrentState == ""
}

// Clone returns a deep copy so callers can mutate without touching the stored record.
func (s *UserState) Clone() *UserState {
	if s == nil {
		return nil
	}

	out := *s
	out.Data = make(map[string]string, len(s.Data))
	for k, v := range s.Data {
		out.Data[k] = v
	}
	if s.Pending != nil {
		p := *s.Pending
		p.Args = append(json.RawMessage(nil), s.Pending.Args...)
		out.Pending = &p
	}
	return &out
}
