package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"
)

// Cancel clears the sender's session at any step.
func (h *Handlers) Cancel(c telebot.Context, req Request) error {
	resp, err := h.convs.Cancel(Context(c), req.UserID)
	if err != nil {
		h.log.Error("failed to clear user state", slog.Int64("user_id", req.UserID), slog.Any("error", err))
		return err
	}

	return h.SendResponse(c, resp)
}
