package middleware

import (
	"context"
	"errors"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/studyhelper-bot/internal/bot/handlers"
	"github.com/Proton-105/studyhelper-bot/internal/idempotency"
)

// Idempotency ensures handlers execute at most once per Telegram update.
func Idempotency(manager idempotency.Manager, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			key := UpdateKey(c)
			if key == "" {
				return next(c)
			}

			err := manager.Once(handlers.Context(c), key, func(context.Context) error {
				return next(c)
			})
			if errors.Is(err, idempotency.ErrDuplicate) {
				log.Debug("duplicate update skipped", slog.String("key", key))
				_ = handlers.Answer(c, "")
				return nil
			}

			return err
		}
	}
}

// UpdateKey identifies an update by its callback id or chat and message id.
func UpdateKey(c telebot.Context) string {
	if c == nil {
		return ""
	}

	if cb := c.Callback(); cb != nil {
		if cb.ID != "" {
			return idempotency.Key("cb", cb.ID)
		}

		if cb.Message != nil {
			return idempotency.Key("cb-msg", chatID(cb.Message), cb.Message.ID)
		}
	}

	if msg := c.Message(); msg != nil && msg.ID != 0 {
		return idempotency.Key("msg", chatID(msg), msg.ID)
	}

	return ""
}

func chatID(msg *telebot.Message) int64 {
	if msg.Chat == nil {
		return 0
	}
	return msg.Chat.ID
}
