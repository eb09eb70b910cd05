package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/studyhelper-bot/internal/bot/keyboard"
	"github.com/Proton-105/studyhelper-bot/internal/i18n"
	"github.com/Proton-105/studyhelper-bot/internal/study"
)

// Sender is the part of telebot.Bot used for outbound messages and file downloads.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
	FileByID(fileID string) (telebot.File, error)
	File(file *telebot.File) (io.ReadCloser, error)
}

// Notifier delivers study notifications through Telegram. It also fetches chat files.
// Recipients are not the user who triggered the update, so texts use the default language.
type Notifier struct {
	api Sender
	kb  *keyboard.Builder
	tr  i18n.Translator
	log *slog.Logger
}

var (
	_ study.Notifier    = (*Notifier)(nil)
	_ study.FileFetcher = (*Notifier)(nil)
)

// NewNotifier constructs a Notifier.
func NewNotifier(api Sender, kb *keyboard.Builder, catalog *i18n.Manager, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	if kb == nil {
		kb = keyboard.NewBuilder(log)
	}

	return &Notifier{api: api, kb: kb, tr: catalog.Translator(""), log: log}
}

// Notify sends msg to the private chat of userID.
func (n *Notifier) Notify(_ context.Context, userID int64, msg study.Message) error {
	markup, err := n.kb.FromMessage(n.tr, msg)
	if err != nil {
		return err
	}

	opts := []interface{}{}
	if markup != nil {
		opts = append(opts, markup)
	}

	if _, err := n.api.Send(telebot.ChatID(userID), n.render(msg), opts...); err != nil {
		n.log.Warn("failed to notify user", slog.Int64("user_id", userID), slog.Any("error", err))
		return fmt.Errorf("notify %d: %w", userID, err)
	}
	return nil
}

func (n *Notifier) render(msg study.Message) string {
	var b strings.Builder
	b.WriteString(i18n.Format(n.tr, msg.Key, msg.Args...))
	for _, line := range msg.Lines {
		b.WriteByte('\n')
		b.WriteString(i18n.Format(n.tr, line.Key, line.Args...))
	}
	return b.String()
}

// Fetch downloads a file sent to the bot. The size is -1 when Telegram does not report it.
func (n *Notifier) Fetch(_ context.Context, fileID string) (io.ReadCloser, int64, error) {
	file, err := n.api.FileByID(fileID)
	if err != nil {
		return nil, 0, fmt.Errorf("resolve file %s: %w", fileID, err)
	}

	rc, err := n.api.File(&file)
	if err != nil {
		return nil, 0, fmt.Errorf("download file %s: %w", fileID, err)
	}

	size := file.FileSize
	if size == 0 {
		return rc, -1, nil
	}
	return rc, size, nil
}
