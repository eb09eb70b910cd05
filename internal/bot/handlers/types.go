// Package handlers implements the bot's commands, deep links and inline-button actions.
package handlers

import (
	"context"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/studyhelper-bot/internal/auth"
	"github.com/Proton-105/studyhelper-bot/internal/callback"
)

// Handler processes a raw update.
type Handler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// Request is an update that passed the authorization gate.
type Request struct {
	UserID int64
	Role   auth.Role
	Route  string
	// Args is the command payload, empty for callbacks.
	Args string
	// Action is the decoded callback, nil for commands.
	Action callback.Action
}

// ActionHandler serves one dispatcher route.
type ActionHandler func(c telebot.Context, req Request) error

const contextKey = "request_context"

// Context returns the request context stored on c, or context.Background.
func Context(c telebot.Context) context.Context {
	if c != nil {
		if ctx, ok := c.Get(contextKey).(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// WithContext stores ctx on c for handlers further down the chain.
func WithContext(c telebot.Context, ctx context.Context) {
	if c != nil {
		c.Set(contextKey, ctx)
	}
}
