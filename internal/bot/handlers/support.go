package handlers

import (
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/studyhelper-bot/internal/callback"
	"github.com/Proton-105/studyhelper-bot/internal/conversation"
)

// Support opens the support flow addressed to the action's counterpart.
func (h *Handlers) Support(c telebot.Context, req Request) error {
	a, ok := req.Action.(callback.SupportAction)
	if !ok {
		return nil
	}

	asInitiator := "0"
	if a.AsInitiator {
		asInitiator = "1"
	}

	if err := h.startFlow(c, req, conversation.FlowSupport, map[string]string{
		conversation.FieldCounterpartID: strconv.FormatInt(a.CounterpartID, 10),
		conversation.FieldAsInitiator:   asInitiator,
		conversation.FieldMode:          a.Mode,
	}); err != nil {
		return err
	}
	return Answer(c, "")
}

// CancelSupport closes the sender's support thread addressed to the action's counterpart.
// Any other session, including a thread with someone else, is left alone.
func (h *Handlers) CancelSupport(c telebot.Context, req Request) error {
	a, ok := req.Action.(callback.CancelSupportAction)
	if !ok {
		return nil
	}

	cleared, err := h.convs.CancelSupport(Context(c), req.UserID, a.CounterpartID)
	if err != nil {
		return err
	}
	if !cleared {
		return Answer(c, h.text(c, "support.already_closed"))
	}
	if err := Answer(c, h.text(c, "support.closed")); err != nil {
		return err
	}
	return c.Send(h.text(c, "support.closed"))
}
