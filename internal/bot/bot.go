package bot

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/studyhelper-bot/internal/auth"
	"github.com/Proton-105/studyhelper-bot/internal/bot/handlers"
	"github.com/Proton-105/studyhelper-bot/internal/bot/keyboard"
	"github.com/Proton-105/studyhelper-bot/internal/conversation"
	errors "github.com/Proton-105/studyhelper-bot/internal/errors"
	"github.com/Proton-105/studyhelper-bot/internal/i18n"
	"github.com/Proton-105/studyhelper-bot/internal/idempotency"
	"github.com/Proton-105/studyhelper-bot/internal/middleware"
	"github.com/Proton-105/studyhelper-bot/internal/state"
	"github.com/Proton-105/studyhelper-bot/internal/study"
	"github.com/Proton-105/studyhelper-bot/pkg/config"
)

// Deps groups the collaborators the bot is built from.
type Deps struct {
	Config      config.Config
	Log         *slog.Logger
	Gate        *auth.Gate
	Engine      *conversation.Engine
	Sessions    state.StateMachine
	Study       *study.Service
	I18n        *i18n.Manager
	Idempotency idempotency.Manager
	RateLimit   *middleware.RateLimitMiddleware
}

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot    *telebot.Bot
	log        *slog.Logger
	cfg        config.Config
	router     *Router
	dispatcher *Dispatcher
	handlers   *handlers.Handlers
	keyboard   *keyboard.Builder
	errHandler *errors.Handler
	notifier   *Notifier
}

// New builds a telegram bot instance configured according to the application settings.
func New(d Deps) (*Bot, error) {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	settings := telebot.Settings{
		Token: d.Config.Bot.Token,
	}

	if d.Config.Bot.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen:   d.Config.Bot.Listen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: d.Config.Bot.Webhook},
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: d.Config.Bot.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	kb := keyboard.NewBuilder(log)
	h := handlers.New(handlers.Deps{
		Gate:          d.Gate,
		Study:         d.Study,
		Conversations: d.Engine,
		Sessions:      d.Sessions,
		Keyboard:      kb,
		I18n:          d.I18n,
		Log:           log,
	})

	dispatcher, err := NewDispatcher(d.Gate, log, Routes(h)...)
	if err != nil {
		return nil, fmt.Errorf("build dispatcher: %w", err)
	}
	if d.RateLimit != nil {
		dispatcher.SetLimiter(d.RateLimit)
	}

	notifier := NewNotifier(tb, kb, d.I18n, log)
	if d.Study != nil {
		d.Study.SetNotifier(notifier)
		d.Study.SetFileFetcher(notifier)
	}

	b := &Bot{
		telebot:    tb,
		log:        log,
		cfg:        d.Config,
		router:     NewRouter(dispatcher, d.Engine, h.SendResponse, log),
		dispatcher: dispatcher,
		handlers:   h,
		keyboard:   kb,
		errHandler: errors.NewHandler(log, d.Config.Sentry.Enabled),
		notifier:   notifier,
	}

	b.setupRouter(d.Idempotency)

	if d.RateLimit != nil {
		b.telebot.Use(d.RateLimit.Handle)
	}

	b.registerTelebotHandlers()

	return b, nil
}

// Routes is the static route table: every command and callback action with the roles allowed on it.
func Routes(h *handlers.Handlers) []Route {
	return []Route{
		{Name: CommandStart, Roles: auth.AnyRole, Handle: h.Start},
		{Name: CommandCancel, Roles: auth.AnyRole, Handle: h.Cancel},
		{Name: CommandHelp, Roles: auth.AnyRole, Handle: h.Help},

		{Name: CommandAdmin, Roles: auth.AdminOnly, Handle: h.Admin},
		{Name: CommandAddTeacher, Roles: auth.AdminOnly, Handle: h.AddTeacher},
		{Name: CommandClearSession, Roles: auth.AdminOnly, Handle: h.ClearSession},

		{Name: CommandIsTeacher, Roles: auth.TeacherOnly, Handle: h.IsTeacher},
		{Name: CommandCreateSubject, Roles: auth.TeacherOnly, Handle: h.CreateSubject},
		{Name: CommandMySubjects, Roles: auth.TeacherOnly, Handle: h.MySubjects},

		{Name: RouteTaskCreate, Roles: auth.StudentOnly, Handle: h.SubmitSolution},
		{Name: RouteTaskEdit, Roles: auth.TeacherOnly, Handle: h.EditTask},
		{Name: RouteTaskShowSolutions, Roles: auth.TeacherOnly, Handle: h.ShowSolutions},
		{Name: RouteSolutionsPage, Roles: auth.TeacherOnly, Handle: h.SolutionsPage},
		{Name: RouteGrade, Roles: auth.TeacherOnly, Handle: h.Grade},

		{Name: RouteSupport, Roles: auth.Enrolled, Handle: h.Support},
		{Name: RouteCancelSupport, Roles: auth.Enrolled, Handle: h.CancelSupport},
	}
}

// Start runs the telegram bot event loop.
func (b *Bot) Start() {
	if b.telebot != nil {
		b.telebot.Start()
	}
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

// Notifier exposes the outbound notifier for background jobs.
func (b *Bot) Notifier() *Notifier {
	return b.notifier
}

func (b *Bot) setupRouter(idem idempotency.Manager) {
	b.router.Use(CorrelationMiddleware())
	b.router.Use(RecoveryMiddleware(b.log, b.errHandler))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler))
	b.router.Use(middleware.Idempotency(idem, b.log))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(middleware.Metrics(b.router.Label))

	b.router.SetDefault(b.handlers.Fallback)
}

func (b *Bot) registerTelebotHandlers() {
	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
	b.telebot.Handle(telebot.OnDocument, b.router.Route)
}
