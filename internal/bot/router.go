package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/studyhelper-bot/internal/bot/handlers"
	"github.com/Proton-105/studyhelper-bot/internal/callback"
	"github.com/Proton-105/studyhelper-bot/internal/conversation"
	apperrors "github.com/Proton-105/studyhelper-bot/internal/errors"
)

// Conversation advances the sender's active flow.
type Conversation interface {
	Advance(ctx context.Context, userID int64, in conversation.Input) (conversation.Response, error)
}

// Responder renders a conversation response to the chat.
type Responder func(c telebot.Context, resp conversation.Response) error

// Router sends callbacks and commands to the dispatcher and everything else to the conversation engine.
type Router struct {
	mu             sync.RWMutex
	dispatcher     *Dispatcher
	engine         Conversation
	respond        Responder
	defaultHandler handlers.Handler
	middlewares    []handlers.Middleware
	log            *slog.Logger
}

// NewRouter builds a Router.
func NewRouter(dispatcher *Dispatcher, engine Conversation, respond Responder, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		dispatcher:  dispatcher,
		engine:      engine,
		respond:     respond,
		middlewares: make([]handlers.Middleware, 0),
		log:         log,
	}
}

// Use appends a middleware to the chain.
func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// SetDefault sets the fallback handler for unknown commands and messages outside a flow.
func (r *Router) SetDefault(h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultHandler = h
}

// Route directs the incoming update to the appropriate handler.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}

	return r.executeHandler(r.route, c)
}

func (r *Router) route(c telebot.Context) error {
	if cb := c.Callback(); cb != nil {
		return r.handleCallback(c, cb.Data)
	}

	text := strings.TrimSpace(c.Text())
	if strings.HasPrefix(text, "/") {
		name, args := parseCommand(text)
		if r.dispatcher.Has(name) {
			return r.dispatcher.Dispatch(c, name, args, nil)
		}
		return r.fallback(c)
	}

	return r.handleMessage(c, c.Text())
}

func (r *Router) handleCallback(c telebot.Context, data string) error {
	action, err := callback.Decode(strings.TrimSpace(data))
	if err != nil {
		_ = handlers.Answer(c, "")
		return apperrors.NewDecodeError(err)
	}

	err = r.dispatcher.Dispatch(c, RouteName(action), "", action)
	if answerErr := handlers.Answer(c, ""); answerErr != nil {
		r.log.Debug("failed to answer callback", slog.Any("error", answerErr))
	}
	return err
}

// handleMessage forwards the raw text. Validators trim it themselves after checking its length.
func (r *Router) handleMessage(c telebot.Context, text string) error {
	if c.Sender() == nil || r.engine == nil {
		return nil
	}

	in := conversation.Input{Text: text}
	if msg := c.Message(); msg != nil && msg.Document != nil {
		in.Document = &conversation.Document{FileID: msg.Document.FileID, FileName: msg.Document.FileName}
		if strings.TrimSpace(in.Text) == "" {
			in.Text = msg.Caption
		}
	}

	resp, err := r.engine.Advance(handlers.Context(c), c.Sender().ID, in)
	if err != nil {
		return err
	}
	if !resp.Handled {
		return r.fallback(c)
	}

	if resp.CommitErr != nil {
		r.log.Warn("conversation commit failed",
			slog.Int64("user_id", c.Sender().ID),
			slog.String("intent", resp.Intent.Kind()),
			slog.Any("error", resp.CommitErr),
		)
	}
	return r.respond(c, resp)
}

func (r *Router) fallback(c telebot.Context) error {
	r.mu.RLock()
	handler := r.defaultHandler
	r.mu.RUnlock()

	if handler == nil {
		return nil
	}
	return handler(c)
}

// Label names the route of an update for metrics. Unknown input collapses to fixed labels.
func (r *Router) Label(c telebot.Context) string {
	if cb := c.Callback(); cb != nil {
		action, err := callback.Decode(strings.TrimSpace(cb.Data))
		if err != nil {
			return "invalid_callback"
		}
		return RouteName(action)
	}

	text := strings.TrimSpace(c.Text())
	if strings.HasPrefix(text, "/") {
		name, _ := parseCommand(text)
		if r.dispatcher.Has(name) {
			return name
		}
		return "unknown_command"
	}

	return "message"
}

// parseCommand splits "/cmd@bot args" into "/cmd" and "args".
func parseCommand(text string) (string, string) {
	name, args, _ := strings.Cut(text, " ")
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name), strings.TrimSpace(args)
}

func (r *Router) executeHandler(h handlers.Handler, c telebot.Context) error {
	wrapped := r.applyMiddlewares(h)
	if wrapped == nil {
		return nil
	}
	return wrapped(c)
}

// applyMiddlewares wraps the handler with all registered middlewares, the first registered outermost.
func (r *Router) applyMiddlewares(h handlers.Handler) handlers.Handler {
	if h == nil {
		return nil
	}

	middlewares := r.middlewaresSnapshot()
	wrapped := h
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}

	return wrapped
}

func (r *Router) middlewaresSnapshot() []handlers.Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.middlewares) == 0 {
		return nil
	}

	snapshot := make([]handlers.Middleware, len(r.middlewares))
	copy(snapshot, r.middlewares)
	return snapshot
}
