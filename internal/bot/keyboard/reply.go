package keyboard

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/studyhelper-bot/internal/i18n"
)

// Confirm builds the one-time yes/no reply keyboard shown at a confirmation step.
// The button texts are what the conversation engine matches, so they are never translated.
func Confirm(t i18n.Translator) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
		Placeholder:     translated(t, "confirm.placeholder", "yes / no"),
	}

	markup.Reply(markup.Row(markup.Text("yes"), markup.Text("no")))
	return markup
}

// Remove hides a previously shown reply keyboard.
func Remove() *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{RemoveKeyboard: true}
}
