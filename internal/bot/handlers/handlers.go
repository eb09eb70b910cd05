package handlers

import (
	"context"
	"errors"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/studyhelper-bot/internal/auth"
	"github.com/Proton-105/studyhelper-bot/internal/bot/keyboard"
	"github.com/Proton-105/studyhelper-bot/internal/conversation"
	"github.com/Proton-105/studyhelper-bot/internal/domain"
	apperrors "github.com/Proton-105/studyhelper-bot/internal/errors"
	"github.com/Proton-105/studyhelper-bot/internal/i18n"
	"github.com/Proton-105/studyhelper-bot/internal/repository"
	"github.com/Proton-105/studyhelper-bot/internal/study"
)

// Study is the part of the study service used by handlers.
type Study interface {
	AddTeacher(ctx context.Context, userID int64) error
	TeacherSubjects(ctx context.Context, teacherUserID int64) ([]study.LinkedSubject, error)
	Enroll(ctx context.Context, userID int64, name string, subjectID int64) (*domain.Subject, error)
	Unenroll(ctx context.Context, userID, subjectID int64) (*domain.Subject, error)
	SubjectTasks(ctx context.Context, subjectID int64) (*domain.Subject, []domain.SubjectTask, error)
	SubjectTeacher(ctx context.Context, subjectID int64) (*domain.Subject, int64, error)
	Stats(ctx context.Context, teacherUserID, subjectID int64) (*domain.SubjectStats, error)
	OwnsSubject(ctx context.Context, teacherUserID, subjectID int64) (bool, error)
	StudentCanSubmit(ctx context.Context, studentUserID, subjectID int64) (bool, error)
	Task(ctx context.Context, subjectID, taskID int64) (*domain.SubjectTask, error)
	Solutions(ctx context.Context, teacherUserID, subjectID, taskID int64) (*domain.SubjectTask, []study.SolutionListing, error)
	Grade(ctx context.Context, teacherUserID, solutionID int64, grade int) (*domain.SolutionView, error)
}

// Conversations starts and cancels multi-step flows.
type Conversations interface {
	Start(ctx context.Context, userID int64, flow string, seed map[string]string) (conversation.Response, error)
	Cancel(ctx context.Context, userID int64) (conversation.Response, error)
	CancelSupport(ctx context.Context, userID, counterpartID int64) (bool, error)
}

// Sessions clears a user's session on behalf of an admin.
type Sessions interface {
	ClearState(ctx context.Context, userID int64) error
}

// Authorizer re-checks roles for routes whose requirement depends on the payload.
type Authorizer interface {
	Admit(ctx context.Context, userID int64, required auth.RoleSet) (auth.Decision, error)
}

// Deps groups the collaborators of Handlers.
type Deps struct {
	Gate          Authorizer
	Study         Study
	Conversations Conversations
	Sessions      Sessions
	Keyboard      *keyboard.Builder
	I18n          *i18n.Manager
	Log           *slog.Logger
}

// Handlers holds every route handler of the bot.
type Handlers struct {
	gate     Authorizer
	study    Study
	convs    Conversations
	sessions Sessions
	kb       *keyboard.Builder
	i18n     *i18n.Manager
	log      *slog.Logger
}

// New constructs Handlers.
func New(d Deps) *Handlers {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	kb := d.Keyboard
	if kb == nil {
		kb = keyboard.NewBuilder(log)
	}

	return &Handlers{
		gate:     d.Gate,
		study:    d.Study,
		convs:    d.Conversations,
		sessions: d.Sessions,
		kb:       kb,
		i18n:     d.I18n,
		log:      log,
	}
}

// Translator returns the catalog matching the sender's Telegram language.
func (h *Handlers) Translator(c telebot.Context) i18n.Translator {
	lang := ""
	if c != nil && c.Sender() != nil {
		lang = c.Sender().LanguageCode
	}
	return h.i18n.Translator(lang)
}

func (h *Handlers) text(c telebot.Context, key string, args ...any) string {
	return i18n.Format(h.Translator(c), key, args...)
}

// SendResponse delivers a conversation engine response with its keyboard.
func (h *Handlers) SendResponse(c telebot.Context, resp conversation.Response) error {
	if resp.Text == "" {
		return nil
	}
	t := h.Translator(c)
	text := t.T(resp.Text)
	if markup := h.kb.ForResponse(t, resp.Keyboard); markup != nil {
		return c.Send(text, markup)
	}
	return c.Send(text)
}

func (h *Handlers) startFlow(c telebot.Context, req Request, flow string, seed map[string]string) error {
	resp, err := h.convs.Start(Context(c), req.UserID, flow, seed)
	if err != nil {
		return err
	}
	return h.SendResponse(c, resp)
}

// domainError maps study and repository failures to the application error taxonomy.
func domainError(route string, err error) error {
	var appErr *apperrors.AppError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, study.ErrNotOwner), errors.Is(err, study.ErrNotEnrolled):
		return apperrors.NewUnauthorizedError(route, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewValidationError("Object was not found.")
	default:
		return apperrors.NewDatabaseError(err)
	}
}

const answeredKey = "callback_answered"

// Answer responds to the callback query once. Later calls are no-ops.
func Answer(c telebot.Context, text string) error {
	if c == nil || c.Callback() == nil {
		return nil
	}
	if answered, _ := c.Get(answeredKey).(bool); answered {
		return nil
	}
	c.Set(answeredKey, true)

	if text == "" {
		return c.Respond()
	}
	return c.Respond(&telebot.CallbackResponse{Text: text})
}
