package keyboard_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/studyhelper-bot/internal/bot/keyboard"
	"github.com/Proton-105/studyhelper-bot/internal/callback"
)

func TestInlineKeyboardBuilder(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		builder := keyboard.NewInlineKeyboard()
		builder.AddRow(
			keyboard.InlineButton{Text: "Edit", Action: callback.TaskAction{SubjectID: 1, TaskID: 2, Action: callback.TaskEdit}},
			keyboard.InlineButton{Text: "Solutions", Action: callback.TaskAction{SubjectID: 1, TaskID: 2, Action: callback.TaskShowSolutions}},
		).AddRow(
			keyboard.InlineButton{Text: "Invite", URL: "https://t.me/studyhelper_bot?start=abc"},
		).AddRow()

		markup, err := builder.Build()
		require.NoError(t, err)
		require.Len(t, markup.InlineKeyboard, 2)
		require.Len(t, markup.InlineKeyboard[0], 2)

		assert.Equal(t, "task:1:2:edit", markup.InlineKeyboard[0][0].Data)
		assert.Equal(t, "task:1:2:show_solutions", markup.InlineKeyboard[0][1].Data)
		assert.Empty(t, markup.InlineKeyboard[1][0].Data)
		assert.Equal(t, "https://t.me/studyhelper_bot?start=abc", markup.InlineKeyboard[1][0].URL)
	})

	t.Run("callback data overflow", func(t *testing.T) {
		builder := keyboard.NewInlineKeyboard()
		builder.AddRow(keyboard.InlineButton{
			Text:   "Too big",
			Action: callback.SupportAction{Mode: strings.Repeat("x", callback.LimitBytes), CounterpartID: 1},
		})

		_, err := builder.Build()
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		assert.True(t, keyboard.NewInlineKeyboard().Empty())
	})
}
