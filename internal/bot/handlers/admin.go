package handlers

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/kballard/go-shellquote"
	telebot "gopkg.in/telebot.v3"

	apperrors "github.com/Proton-105/studyhelper-bot/internal/errors"
)

// Admin confirms the allow-list membership.
func (h *Handlers) Admin(c telebot.Context, _ Request) error {
	return c.Send(h.text(c, "admin.you_are_admin"))
}

// AddTeacher registers the user given as the only argument as a teacher.
func (h *Handlers) AddTeacher(c telebot.Context, req Request) error {
	target, err := singleUserID(req.Args)
	if err != nil {
		return c.Send(h.text(c, "admin.usage_add_teacher"))
	}

	if err := h.study.AddTeacher(Context(c), target); err != nil {
		return apperrors.NewDatabaseError(err)
	}

	h.log.Info("teacher registered", slog.Int64("admin_id", req.UserID), slog.Int64("teacher_user_id", target))
	return c.Send(h.text(c, "admin.teacher_added", target))
}

// ClearSession drops the session of the user given as the only argument.
func (h *Handlers) ClearSession(c telebot.Context, req Request) error {
	target, err := singleUserID(req.Args)
	if err != nil {
		return c.Send(h.text(c, "admin.usage_clear_session"))
	}

	if err := h.sessions.ClearState(Context(c), target); err != nil {
		return err
	}

	h.log.Info("session cleared by admin", slog.Int64("admin_id", req.UserID), slog.Int64("target_user_id", target))
	return c.Send(h.text(c, "admin.session_cleared", target))
}

// singleUserID parses a payload holding exactly one Telegram user id. Quoted ids are accepted.
func singleUserID(args string) (int64, error) {
	words, err := shellquote.Split(args)
	if err != nil {
		return 0, err
	}
	if len(words) != 1 {
		return 0, fmt.Errorf("expected one argument, got %d", len(words))
	}

	id, err := strconv.ParseInt(words[0], 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("user id must be positive")
	}
	return id, nil
}
