package handlers

import telebot "gopkg.in/telebot.v3"

// Help lists the commands available to everyone.
func (h *Handlers) Help(c telebot.Context, _ Request) error {
	return c.Send(h.text(c, "help.text"))
}

// Fallback answers unknown commands and messages outside a flow.
func (h *Handlers) Fallback(c telebot.Context) error {
	if c == nil || c.Sender() == nil {
		return nil
	}
	return c.Send(h.text(c, "help.text"))
}
