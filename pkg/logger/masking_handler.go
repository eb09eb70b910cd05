package logger

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

const mask = "***"

// Attribute keys whose values are never written.
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"token":         {},
	"bot_token":     {},
	"secret":        {},
	"secret_key":    {},
	"access_key":    {},
	"authorization": {},
	"dsn":           {},
}

var (
	// Telegram puts the bot token in every API URL, and transport errors quote that URL.
	botTokenPattern = regexp.MustCompile(`\d{5,}:[A-Za-z0-9_-]{30,}`)
	// Presigned solution links carry their credentials in the query string.
	presignPattern = regexp.MustCompile(`(?i)(X-Amz-(?:Signature|Credential|Security-Token))=[^&\s"]+`)
	// DSNs quoted in driver errors.
	dsnPasswordPattern = regexp.MustCompile(`(?i)(password=)\S+`)
)

// MaskingHandler redacts credentials from records before they reach the wrapped handler.
// Sensitive keys are masked wholesale. Other string and error values are scrubbed of bot tokens,
// presigned link signatures and DSN passwords.
type MaskingHandler struct {
	next slog.Handler
}

// NewMaskingHandler wraps next.
func NewMaskingHandler(next slog.Handler) *MaskingHandler {
	return &MaskingHandler{next: next}
}

func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = maskAttr(a)
	}
	return &MaskingHandler{next: h.next.WithAttrs(masked)}
}

func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{next: h.next.WithGroup(name)}
}

func (h *MaskingHandler) Handle(ctx context.Context, record slog.Record) error {
	masked := slog.NewRecord(record.Time, record.Level, scrub(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(maskAttr(a))
		return true
	})
	return h.next.Handle(ctx, masked)
}

func maskAttr(a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, mask)
	}

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, scrub(v.String()))
	case slog.KindGroup:
		group := v.Group()
		out := make([]any, len(group))
		for i, ga := range group {
			out[i] = maskAttr(ga)
		}
		return slog.Group(a.Key, out...)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			if text := err.Error(); scrub(text) != text {
				return slog.String(a.Key, scrub(text))
			}
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

func scrub(s string) string {
	s = botTokenPattern.ReplaceAllString(s, mask)
	s = presignPattern.ReplaceAllString(s, "${1}="+mask)
	return dsnPasswordPattern.ReplaceAllString(s, "${1}"+mask)
}
