// Package handlers processes background tasks.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/studyhelper-bot/internal/jobs"
	"github.com/Proton-105/studyhelper-bot/internal/study"
	"github.com/Proton-105/studyhelper-bot/pkg/metrics"
)

// ReminderSource lists the digests due within a window.
type ReminderSource interface {
	PendingReminders(ctx context.Context, from, to time.Time) ([]study.Reminder, error)
}

// Enqueuer schedules follow-up tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ScanRemindersHandler turns tasks due within the horizon into one delivery task per student.
type ScanRemindersHandler struct {
	source ReminderSource
	queue  Enqueuer
	now    func() time.Time
	log    *slog.Logger
}

func NewScanRemindersHandler(source ReminderSource, queue Enqueuer, log *slog.Logger) *ScanRemindersHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ScanRemindersHandler{source: source, queue: queue, now: time.Now, log: log}
}

func (h *ScanRemindersHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.ScanRemindersPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "reminders: failed to decode payload", slog.String("task_type", t.Type()), slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	from := h.now()
	reminders, err := h.source.PendingReminders(ctx, from, from.Add(payload.Horizon))
	if err != nil {
		return fmt.Errorf("load pending reminders: %w", err)
	}

	enqueued, skipped := 0, 0
	for _, r := range reminders {
		task, err := jobs.NewSendReminderTask(r.StudentUserID, r.Items)
		if err != nil {
			return err
		}

		_, err = h.queue.Enqueue(ctx, task, asynq.TaskID(jobs.ReminderTaskID(r.StudentUserID, from)))
		switch {
		case errors.Is(err, asynq.ErrTaskIDConflict), errors.Is(err, asynq.ErrDuplicateTask):
			skipped++
		case err != nil:
			return fmt.Errorf("enqueue reminder for %d: %w", r.StudentUserID, err)
		default:
			enqueued++
		}
	}

	h.log.InfoContext(ctx, "reminders: scan finished",
		slog.Int("students", len(reminders)),
		slog.Int("enqueued", enqueued),
		slog.Int("already_scheduled", skipped),
		slog.Duration("horizon", payload.Horizon),
	)
	return nil
}

// SendReminderHandler delivers one digest. Users who blocked the bot are not retried.
type SendReminderHandler struct {
	notifier study.Notifier
	log      *slog.Logger
}

func NewSendReminderHandler(notifier study.Notifier, log *slog.Logger) *SendReminderHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SendReminderHandler{notifier: notifier, log: log}
}

func (h *SendReminderHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.SendReminderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	err := h.notifier.Notify(ctx, payload.StudentUserID, study.ReminderMessage(payload.Items))
	if err == nil {
		metrics.RecordReminder("sent")
		return nil
	}

	if errors.Is(err, telebot.ErrBlockedByUser) || errors.Is(err, telebot.ErrChatNotFound) {
		metrics.RecordReminder("undeliverable")
		h.log.InfoContext(ctx, "reminders: student unreachable", slog.Int64("user_id", payload.StudentUserID))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	metrics.RecordReminder("failed")
	return err
}
