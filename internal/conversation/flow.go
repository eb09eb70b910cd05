package conversation

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Proton-105/studyhelper-bot/internal/state"
)

// Flow names accepted by Engine.Start.
const (
	FlowSubject  = "subject"
	FlowTask     = "task"
	FlowTaskEdit = "task_edit"
	FlowSolution = "solution"
	FlowSupport  = "support"
)

// Session data keys.
const (
	FieldName          = "name"
	FieldDescription   = "description"
	FieldDueDate       = "due_date"
	FieldTeacherID     = "teacher_id"
	FieldSubjectID     = "subject_id"
	FieldTaskID        = "task_id"
	FieldFileID        = "file_id"
	FieldFileName      = "file_name"
	FieldCounterpartID = "counterpart_id"
	FieldAsInitiator   = "as_initiator"
	FieldMode          = "mode"
	FieldText          = "text"
)

// FailurePolicy decides what a failed validation does to the session.
type FailurePolicy int

const (
	// Retry keeps the state and re-prompts.
	Retry FailurePolicy = iota
	// Abort clears the session.
	Abort
)

// CommitMode tells the engine what happens after the last step of a flow.
type CommitMode int

const (
	// CommitNone moves to Next and waits for more input.
	CommitNone CommitMode = iota
	// CommitOnConfirm stores the intent and waits for yes/no.
	CommitOnConfirm
	// CommitNow clears the session and commits right away.
	CommitNow
)

// IntentBuilder turns accumulated session data into a commit intent.
type IntentBuilder func(userID int64, data map[string]string) (Intent, error)

// Step is one input position of a flow.
type Step struct {
	State     state.State
	Field     string
	Validate  Validator
	OnFailure FailurePolicy
	// Next is ignored when Commit is CommitNow.
	Next   state.State
	Commit CommitMode
	Intent IntentBuilder
	// Capture stores extra values taken from a valid input.
	Capture func(in Input) map[string]string

	// Texts are i18n catalog keys.
	SuccessText string
	FailureText string
	// CommitFailureText replaces the default reply when a CommitNow intent fails.
	CommitFailureText string
}

// Flow is a fixed sequence of steps entered at Entry.
type Flow struct {
	Name        string
	Entry       state.State
	EntryPrompt string
	Steps       []Step
}

// DefaultFlows returns every flow of the bot. Dates are validated in loc.
func DefaultFlows(loc *time.Location) []Flow {
	return []Flow{
		subjectFlow(),
		taskFlow(loc),
		taskEditFlow(loc),
		solutionFlow(),
		supportFlow(),
	}
}

func subjectFlow() Flow {
	return Flow{
		Name:        FlowSubject,
		Entry:       state.StateSubjectName,
		EntryPrompt: "conversation.subject.name",
		Steps: []Step{
			{
				State:       state.StateSubjectName,
				Field:       FieldName,
				Validate:    NonEmptyText(),
				OnFailure:   Retry,
				Next:        state.StateSubjectDescription,
				SuccessText: "conversation.subject.description",
				FailureText: "conversation.subject.empty_name",
			},
			{
				State:       state.StateSubjectDescription,
				Field:       FieldDescription,
				Validate:    MaxLength(MaxDescriptionLength),
				OnFailure:   Abort,
				Next:        state.StateAwaitingOptionConfirm,
				Commit:      CommitOnConfirm,
				Intent:      buildCreateSubject,
				SuccessText: "conversation.subject.confirm",
				FailureText: "conversation.subject.too_long",
			},
		},
	}
}

func taskFlow(loc *time.Location) Flow {
	return Flow{
		Name:        FlowTask,
		Entry:       state.StateTaskName,
		EntryPrompt: "conversation.task.name",
		Steps: []Step{
			{
				State:       state.StateTaskName,
				Field:       FieldName,
				Validate:    NonEmptyText(),
				OnFailure:   Retry,
				Next:        state.StateTaskDescription,
				SuccessText: "conversation.task.description",
				FailureText: "conversation.task.empty_name",
			},
			{
				State:       state.StateTaskDescription,
				Field:       FieldDescription,
				Validate:    MaxLength(MaxDescriptionLength),
				OnFailure:   Abort,
				Next:        state.StateTaskDueDate,
				SuccessText: "conversation.task.due_date",
				FailureText: "conversation.task.too_long",
			},
			{
				State:       state.StateTaskDueDate,
				Field:       FieldDueDate,
				Validate:    DueDate(loc),
				OnFailure:   Retry,
				Next:        state.StateAwaitingOptionConfirm,
				Commit:      CommitOnConfirm,
				Intent:      buildCreateTask,
				SuccessText: "conversation.task.confirm",
				FailureText: "conversation.task.bad_date",
			},
		},
	}
}

func taskEditFlow(loc *time.Location) Flow {
	return Flow{
		Name:        FlowTaskEdit,
		Entry:       state.StateTaskEditName,
		EntryPrompt: "conversation.task_edit.name",
		Steps: []Step{
			{
				State:       state.StateTaskEditName,
				Field:       FieldName,
				Validate:    NonEmptyText(),
				OnFailure:   Retry,
				Next:        state.StateTaskEditDescription,
				SuccessText: "conversation.task_edit.description",
				FailureText: "conversation.task_edit.empty_name",
			},
			{
				State:       state.StateTaskEditDescription,
				Field:       FieldDescription,
				Validate:    MaxLength(MaxDescriptionLength),
				OnFailure:   Abort,
				Next:        state.StateTaskEditDueDate,
				SuccessText: "conversation.task_edit.due_date",
				FailureText: "conversation.task_edit.too_long",
			},
			{
				State:       state.StateTaskEditDueDate,
				Field:       FieldDueDate,
				Validate:    DueDate(loc),
				OnFailure:   Retry,
				Next:        state.StateAwaitingOptionConfirm,
				Commit:      CommitOnConfirm,
				Intent:      buildUpdateTask,
				SuccessText: "conversation.task_edit.confirm",
				FailureText: "conversation.task_edit.bad_date",
			},
		},
	}
}

func solutionFlow() Flow {
	return Flow{
		Name:        FlowSolution,
		Entry:       state.StateSolutionFile,
		EntryPrompt: "conversation.solution.prompt",
		Steps: []Step{
			{
				State:     state.StateSolutionFile,
				Field:     FieldFileID,
				Validate:  AttachedDocument(),
				OnFailure: Retry,
				Commit:    CommitNow,
				Intent:    buildCreateSolution,
				Capture: func(in Input) map[string]string {
					return map[string]string{FieldFileName: in.Document.FileName}
				},
				SuccessText:       "conversation.solution.uploaded",
				FailureText:       "conversation.solution.need_document",
				CommitFailureText: "conversation.solution.not_uploaded",
			},
		},
	}
}

func supportFlow() Flow {
	return Flow{
		Name:        FlowSupport,
		Entry:       state.StateSupportMessage,
		EntryPrompt: "conversation.support.prompt",
		Steps: []Step{
			{
				State:             state.StateSupportMessage,
				Field:             FieldText,
				Validate:          NonEmptyText(),
				OnFailure:         Retry,
				Commit:            CommitNow,
				Intent:            buildSupportMessage,
				SuccessText:       "conversation.support.sent",
				FailureText:       "conversation.support.empty",
				CommitFailureText: "conversation.support.not_sent",
			},
		},
	}
}

func buildCreateSubject(_ int64, data map[string]string) (Intent, error) {
	teacherID, err := intField(data, FieldTeacherID)
	if err != nil {
		return nil, err
	}
	return CreateSubject{
		Name:        data[FieldName],
		Description: data[FieldDescription],
		TeacherID:   teacherID,
	}, nil
}

func buildCreateTask(_ int64, data map[string]string) (Intent, error) {
	subjectID, err := intField(data, FieldSubjectID)
	if err != nil {
		return nil, err
	}
	due, err := dateField(data, FieldDueDate)
	if err != nil {
		return nil, err
	}
	return CreateTask{
		SubjectID:   subjectID,
		Name:        data[FieldName],
		Description: data[FieldDescription],
		DueDate:     due,
	}, nil
}

func buildUpdateTask(_ int64, data map[string]string) (Intent, error) {
	taskID, err := intField(data, FieldTaskID)
	if err != nil {
		return nil, err
	}
	subjectID, err := intField(data, FieldSubjectID)
	if err != nil {
		return nil, err
	}
	due, err := dateField(data, FieldDueDate)
	if err != nil {
		return nil, err
	}
	return UpdateTask{
		TaskID:      taskID,
		SubjectID:   subjectID,
		Name:        data[FieldName],
		Description: data[FieldDescription],
		DueDate:     due,
	}, nil
}

func buildCreateSolution(userID int64, data map[string]string) (Intent, error) {
	taskID, err := intField(data, FieldTaskID)
	if err != nil {
		return nil, err
	}
	return CreateSolution{
		TaskID:        taskID,
		StudentUserID: userID,
		FileID:        data[FieldFileID],
		FileName:      data[FieldFileName],
	}, nil
}

func buildSupportMessage(userID int64, data map[string]string) (Intent, error) {
	counterpartID, err := intField(data, FieldCounterpartID)
	if err != nil {
		return nil, err
	}
	return SendSupportMessage{
		SenderID:      userID,
		CounterpartID: counterpartID,
		Mode:          data[FieldMode],
		AsInitiator:   data[FieldAsInitiator] == "1",
		Text:          data[FieldText],
	}, nil
}

func intField(data map[string]string, key string) (int64, error) {
	raw, ok := data[key]
	if !ok {
		return 0, fmt.Errorf("session field %q is missing", key)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("session field %q: %w", key, err)
	}
	return v, nil
}

func dateField(data map[string]string, key string) (time.Time, error) {
	v, err := time.Parse(StoredDateLayout, data[key])
	if err != nil {
		return time.Time{}, fmt.Errorf("session field %q: %w", key, err)
	}
	return v, nil
}
