package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Proton-105/studyhelper-bot/internal/state"
)

// Intent kinds stored in state.Pending.Kind.
const (
	KindCreateSubject      = "create_subject"
	KindCreateTask         = "create_task"
	KindUpdateTask         = "update_task"
	KindCreateSolution     = "create_solution"
	KindSendSupportMessage = "send_support_message"
)

// Intent is a pending domain mutation produced by a completed flow.
type Intent interface {
	Kind() string
}

// CreateSubject registers a new subject owned by a teacher.
type CreateSubject struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TeacherID   int64  `json:"teacher_id"`
}

// CreateTask adds a task to a subject.
type CreateTask struct {
	SubjectID   int64     `json:"subject_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
}

// UpdateTask rewrites an existing task.
type UpdateTask struct {
	TaskID      int64     `json:"task_id"`
	SubjectID   int64     `json:"subject_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
}

// CreateSolution stores a student's submitted document for a task.
type CreateSolution struct {
	TaskID        int64  `json:"task_id"`
	StudentUserID int64  `json:"student_user_id"`
	FileID        string `json:"file_id"`
	FileName      string `json:"file_name"`
}

// SendSupportMessage delivers text to a support counterpart.
type SendSupportMessage struct {
	SenderID      int64  `json:"sender_id"`
	CounterpartID int64  `json:"counterpart_id"`
	Mode          string `json:"mode"`
	AsInitiator   bool   `json:"as_initiator"`
	Text          string `json:"text"`
}

func (CreateSubject) Kind() string      { return KindCreateSubject }
func (CreateTask) Kind() string         { return KindCreateTask }
func (UpdateTask) Kind() string         { return KindUpdateTask }
func (CreateSolution) Kind() string     { return KindCreateSolution }
func (SendSupportMessage) Kind() string { return KindSendSupportMessage }

// Committer executes intents against persistence and the transport.
type Committer interface {
	Commit(ctx context.Context, userID int64, intent Intent) error
}

// CommitterFunc adapts a function to Committer.
type CommitterFunc func(ctx context.Context, userID int64, intent Intent) error

func (f CommitterFunc) Commit(ctx context.Context, userID int64, intent Intent) error {
	return f(ctx, userID, intent)
}

var intentDecoders = map[string]func(json.RawMessage) (Intent, error){
	KindCreateSubject:      decodeIntent[CreateSubject],
	KindCreateTask:         decodeIntent[CreateTask],
	KindUpdateTask:         decodeIntent[UpdateTask],
	KindCreateSolution:     decodeIntent[CreateSolution],
	KindSendSupportMessage: decodeIntent[SendSupportMessage],
}

func decodeIntent[T Intent](raw json.RawMessage) (Intent, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// EncodeIntent packs an intent for storage in the session.
func EncodeIntent(intent Intent) (*state.Pending, error) {
	if _, ok := intentDecoders[intent.Kind()]; !ok {
		return nil, fmt.Errorf("encode intent: unknown kind %q", intent.Kind())
	}

	raw, err := json.Marshal(intent)
	if err != nil {
		return nil, fmt.Errorf("encode intent %s: %w", intent.Kind(), err)
	}

	return &state.Pending{Kind: intent.Kind(), Args: raw}, nil
}

// DecodeIntent resolves a stored pending intent through the static kind table.
func DecodeIntent(p *state.Pending) (Intent, error) {
	if p == nil {
		return nil, fmt.Errorf("decode intent: nothing pending")
	}

	decode, ok := intentDecoders[p.Kind]
	if !ok {
		return nil, fmt.Errorf("decode intent: unknown kind %q", p.Kind)
	}

	intent, err := decode(p.Args)
	if err != nil {
		return nil, fmt.Errorf("decode intent %s: %w", p.Kind, err)
	}
	return intent, nil
}
