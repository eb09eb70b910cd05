// Package conversation drives the per-user multi-step forms: validation, field accumulation,
// confirmation and commit.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Proton-105/studyhelper-bot/internal/state"
	"github.com/Proton-105/studyhelper-bot/pkg/metrics"
)

// Catalog keys of the replies shared by every confirmable flow.
const (
	TextCreated         = "conversation.created"
	TextNotCreated      = "conversation.not_created"
	TextSaved           = "conversation.saved"
	TextNotSaved        = "conversation.not_saved"
	TextConfirmReprompt = "conversation.confirm_reprompt"
	TextCancelled       = "conversation.cancelled"
	TextNothingToCancel = "conversation.nothing_to_cancel"
	textBrokenSession   = "conversation.broken_session"
)

// outcomeTexts returns the success and failure keys for a confirmed intent kind.
func outcomeTexts(kind string) (string, string) {
	if kind == KindUpdateTask {
		return TextSaved, TextNotSaved
	}
	return TextCreated, TextNotCreated
}

// flowIntents names the intent kind each confirmable flow commits.
var flowIntents = map[string]string{
	FlowSubject:  KindCreateSubject,
	FlowTask:     KindCreateTask,
	FlowTaskEdit: KindUpdateTask,
}

// Keyboard tells the transport which reply markup to attach.
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	// KeyboardConfirm shows yes/no buttons.
	KeyboardConfirm
	// KeyboardRemove hides a previously shown reply keyboard.
	KeyboardRemove
)

// Response is the transport-free outcome of an engine call.
type Response struct {
	// Handled is false when the user had no active flow.
	Handled bool
	// Text is an i18n catalog key.
	Text     string
	Keyboard Keyboard
	// Intent is set when a commit was attempted; CommitErr holds its failure.
	Intent    Intent
	CommitErr error
}

type commitPlan struct {
	intent      Intent
	successText string
	failureText string
}

// Engine advances users through the registered flows.
type Engine struct {
	store     state.StateMachine
	committer Committer
	log       *slog.Logger
	now       func() time.Time

	flows  map[string]Flow
	steps  map[state.State]Step
	flowOf map[state.State]string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used by date validators.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine builds the static step table from flows.
func NewEngine(store state.StateMachine, committer Committer, log *slog.Logger, flows []Flow, opts ...Option) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}

	e := &Engine{
		store:     store,
		committer: committer,
		log:       log,
		now:       time.Now,
		flows:     make(map[string]Flow, len(flows)),
		steps:     make(map[state.State]Step),
		flowOf:    make(map[state.State]string),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, flow := range flows {
		if _, dup := e.flows[flow.Name]; dup {
			return nil, fmt.Errorf("conversation: duplicate flow %q", flow.Name)
		}
		if len(flow.Steps) == 0 || flow.Steps[0].State != flow.Entry {
			return nil, fmt.Errorf("conversation: flow %q must start at its entry state", flow.Name)
		}
		for _, step := range flow.Steps {
			if err := e.register(step); err != nil {
				return nil, fmt.Errorf("conversation: flow %q: %w", flow.Name, err)
			}
			e.flowOf[step.State] = flow.Name
		}
		e.flows[flow.Name] = flow
	}

	return e, nil
}

func (e *Engine) register(step Step) error {
	switch {
	case !step.State.Valid() || step.State == state.StateIdle || step.State == state.StateAwaitingOptionConfirm:
		return fmt.Errorf("step state %q cannot hold input", step.State)
	case step.Validate == nil:
		return fmt.Errorf("step %q has no validator", step.State)
	case step.Commit != CommitNone && step.Intent == nil:
		return fmt.Errorf("step %q commits without an intent builder", step.State)
	case step.Commit == CommitOnConfirm && step.Next != state.StateAwaitingOptionConfirm:
		return fmt.Errorf("step %q must move to the confirmation state", step.State)
	case step.Commit == CommitNone && !step.Next.Valid():
		return fmt.Errorf("step %q has unknown next state %q", step.State, step.Next)
	}
	if _, dup := e.steps[step.State]; dup {
		return fmt.Errorf("state %q is bound twice", step.State)
	}

	e.steps[step.State] = step
	return nil
}

// Start enters flow for userID, replacing any session in progress. seed is merged into the fresh session data.
func (e *Engine) Start(ctx context.Context, userID int64, flow string, seed map[string]string) (Response, error) {
	f, ok := e.flows[flow]
	if !ok {
		return Response{}, fmt.Errorf("conversation: unknown flow %q", flow)
	}

	if err := e.store.SetState(ctx, userID, f.Entry, seed); err != nil {
		return Response{}, fmt.Errorf("start %s flow: %w", flow, err)
	}

	e.log.Debug("conversation flow started", slog.Int64("user_id", userID), slog.String("flow", flow))
	return Response{Handled: true, Text: f.EntryPrompt, Keyboard: KeyboardRemove}, nil
}

// Cancel clears the user's session and reports whether a flow was active.
func (e *Engine) Cancel(ctx context.Context, userID int64) (Response, error) {
	current, err := e.store.GetState(ctx, userID)
	if err != nil {
		return Response{}, err
	}
	if current.IsIdle() {
		return Response{Handled: false, Text: TextNothingToCancel, Keyboard: KeyboardRemove}, nil
	}

	if err := e.store.ClearState(ctx, userID); err != nil {
		return Response{}, err
	}
	return Response{Handled: true, Text: TextCancelled, Keyboard: KeyboardRemove}, nil
}

var errNotThatThread = errors.New("no matching support thread")

// CancelSupport clears userID's session only while it is composing a support message to counterpartID.
// It reports whether anything was cleared.
func (e *Engine) CancelSupport(ctx context.Context, userID, counterpartID int64) (bool, error) {
	want := strconv.FormatInt(counterpartID, 10)
	err := e.store.Update(ctx, userID, func(s *state.UserState) error {
		if s.CurrentState != state.StateSupportMessage || s.Field(FieldCounterpartID) != want {
			return errNotThatThread
		}
		s.Reset()
		return nil
	})
	switch {
	case errors.Is(err, errNotThatThread):
		return false, nil
	case err != nil:
		return false, err
	default:
		return true, nil
	}
}

// Active reports whether the user is inside a flow.
func (e *Engine) Active(ctx context.Context, userID int64) (bool, error) {
	current, err := e.store.GetState(ctx, userID)
	if err != nil {
		return false, err
	}
	return !current.IsIdle(), nil
}

// Advance feeds one input to the user's active flow. Commits run after the session is saved and unlocked.
func (e *Engine) Advance(ctx context.Context, userID int64, in Input) (Response, error) {
	var (
		resp Response
		plan *commitPlan
	)

	err := e.store.Update(ctx, userID, func(s *state.UserState) error {
		resp, plan = e.advance(s, in)
		return nil
	})
	if err != nil {
		return Response{}, err
	}

	if plan != nil {
		resp = e.commit(ctx, userID, plan, resp)
	}
	return resp, nil
}

func (e *Engine) advance(s *state.UserState, in Input) (Response, *commitPlan) {
	if s.IsIdle() {
		return Response{}, nil
	}
	if s.CurrentState == state.StateAwaitingOptionConfirm {
		return e.confirm(s, in)
	}

	step, ok := e.steps[s.CurrentState]
	if !ok {
		e.log.Warn("no step bound to state, resetting session",
			slog.Int64("user_id", s.UserID),
			slog.String("state", string(s.CurrentState)),
		)
		s.Reset()
		return Response{Handled: true, Text: textBrokenSession, Keyboard: KeyboardRemove}, nil
	}

	value, err := step.Validate(in, e.now())
	if err != nil {
		e.log.Debug("step validation failed",
			slog.Int64("user_id", s.UserID),
			slog.String("state", string(s.CurrentState)),
			slog.Any("error", err),
		)
		if step.OnFailure == Abort {
			s.Reset()
			return Response{Handled: true, Text: step.FailureText, Keyboard: KeyboardRemove}, nil
		}
		return Response{Handled: true, Text: step.FailureText}, nil
	}

	s.Merge(map[string]string{step.Field: value})
	if step.Capture != nil {
		s.Merge(step.Capture(in))
	}

	switch step.Commit {
	case CommitOnConfirm:
		pending, err := e.buildPending(s, step)
		if err != nil {
			e.log.Error("failed to build commit intent", slog.Int64("user_id", s.UserID), slog.Any("error", err))
			s.Reset()
			_, failureText := outcomeTexts(flowIntents[e.flowOf[step.State]])
			return Response{Handled: true, Text: failureText, Keyboard: KeyboardRemove}, nil
		}
		s.Pending = pending
		s.CurrentState = step.Next
		return Response{Handled: true, Text: step.SuccessText, Keyboard: KeyboardConfirm}, nil

	case CommitNow:
		intent, err := step.Intent(s.UserID, s.Data)
		s.Reset()
		failureText := step.CommitFailureText
		if failureText == "" {
			failureText = TextNotCreated
		}
		if err != nil {
			e.log.Error("failed to build commit intent", slog.Int64("user_id", s.UserID), slog.Any("error", err))
			return Response{Handled: true, Text: failureText, Keyboard: KeyboardRemove}, nil
		}
		return Response{Handled: true, Keyboard: KeyboardRemove}, &commitPlan{
			intent:      intent,
			successText: step.SuccessText,
			failureText: failureText,
		}

	default:
		s.CurrentState = step.Next
		return Response{Handled: true, Text: step.SuccessText}, nil
	}
}

func (e *Engine) buildPending(s *state.UserState, step Step) (*state.Pending, error) {
	intent, err := step.Intent(s.UserID, s.Data)
	if err != nil {
		return nil, err
	}
	return EncodeIntent(intent)
}

func (e *Engine) confirm(s *state.UserState, in Input) (Response, *commitPlan) {
	switch strings.ToLower(strings.TrimSpace(in.Text)) {
	case "yes":
		pending := s.Pending
		s.Reset()

		intent, err := DecodeIntent(pending)
		if err != nil {
			e.log.Error("confirmed session has no usable intent", slog.Int64("user_id", s.UserID), slog.Any("error", err))
			return Response{Handled: true, Text: TextNotCreated, Keyboard: KeyboardRemove}, nil
		}
		successText, failureText := outcomeTexts(intent.Kind())
		return Response{Handled: true, Keyboard: KeyboardRemove}, &commitPlan{
			intent:      intent,
			successText: successText,
			failureText: failureText,
		}

	case "no":
		kind := ""
		if s.Pending != nil {
			kind = s.Pending.Kind
		}
		s.Reset()
		_, failureText := outcomeTexts(kind)
		return Response{Handled: true, Text: failureText, Keyboard: KeyboardRemove}, nil

	default:
		return Response{Handled: true, Text: TextConfirmReprompt, Keyboard: KeyboardConfirm}, nil
	}
}

func (e *Engine) commit(ctx context.Context, userID int64, plan *commitPlan, resp Response) Response {
	resp.Intent = plan.intent
	kind := plan.intent.Kind()

	if err := e.committer.Commit(ctx, userID, plan.intent); err != nil {
		e.log.Error("commit failed",
			slog.Int64("user_id", userID),
			slog.String("intent", kind),
			slog.Any("error", err),
		)
		metrics.RecordCommit(kind, "error")
		resp.Text = plan.failureText
		resp.CommitErr = err
		return resp
	}

	metrics.RecordCommit(kind, "success")
	e.log.Info("intent committed", slog.Int64("user_id", userID), slog.String("intent", kind))
	resp.Text = plan.successText
	return resp
}
