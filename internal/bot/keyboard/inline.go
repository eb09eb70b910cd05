package keyboard

import (
	"fmt"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/studyhelper-bot/internal/callback"
)

// InlineButton is either a callback button carrying Action or a link button carrying URL.
type InlineButton struct {
	Text   string
	Action callback.Action
	URL    string
}

// InlineKeyboardBuilder accumulates rows of InlineButton definitions before rendering telebot markup.
type InlineKeyboardBuilder struct {
	rows [][]InlineButton
}

// NewInlineKeyboard creates an empty builder.
func NewInlineKeyboard() *InlineKeyboardBuilder {
	return &InlineKeyboardBuilder{rows: make([][]InlineButton, 0)}
}

// AddRow appends a row; empty rows are skipped.
func (b *InlineKeyboardBuilder) AddRow(buttons ...InlineButton) *InlineKeyboardBuilder {
	if len(buttons) == 0 {
		return b
	}

	row := make([]InlineButton, len(buttons))
	copy(row, buttons)
	b.rows = append(b.rows, row)
	return b
}

// Empty reports whether no rows were added.
func (b *InlineKeyboardBuilder) Empty() bool {
	return len(b.rows) == 0
}

// Build encodes every action into callback data and renders the markup.
func (b *InlineKeyboardBuilder) Build() (*telebot.ReplyMarkup, error) {
	inlineKeyboard := make([][]telebot.InlineButton, len(b.rows))
	for i, row := range b.rows {
		inlineKeyboard[i] = make([]telebot.InlineButton, len(row))
		for j, btn := range row {
			rendered := telebot.InlineButton{Text: btn.Text, URL: btn.URL}
			if btn.Action != nil {
				data, err := callback.Encode(btn.Action)
				if err != nil {
					return nil, fmt.Errorf("button %q: %w", btn.Text, err)
				}
				rendered.Data = data
			}
			inlineKeyboard[i][j] = rendered
		}
	}

	return &telebot.ReplyMarkup{InlineKeyboard: inlineKeyboard}, nil
}
