package middleware

import (
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/studyhelper-bot/internal/bot/handlers"
	"github.com/Proton-105/studyhelper-bot/pkg/metrics"
)

// RouteLabeler names the route an update belongs to, with bounded cardinality.
type RouteLabeler func(c telebot.Context) string

// Metrics measures execution time and status for bot handlers, reporting them to Prometheus.
func Metrics(label RouteLabeler) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()
			err := next(c)

			route := "unknown"
			if label != nil && c != nil {
				route = label(c)
			}

			status := "ok"
			if err != nil {
				status = "error"
			}

			metrics.RecordCommand(route, status, time.Since(start))

			return err
		}
	}
}
