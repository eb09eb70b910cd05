// Package keyboard renders inline and reply markup for bot responses.
package keyboard

import (
	"fmt"
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/studyhelper-bot/internal/auth"
	"github.com/Proton-105/studyhelper-bot/internal/callback"
	"github.com/Proton-105/studyhelper-bot/internal/conversation"
	"github.com/Proton-105/studyhelper-bot/internal/domain"
	"github.com/Proton-105/studyhelper-bot/internal/i18n"
	"github.com/Proton-105/studyhelper-bot/internal/study"
)

// Builder creates the markup attached to bot replies.
type Builder struct {
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{log: log}
}

// ForResponse maps a conversation keyboard hint to markup. It returns nil when nothing should be attached.
func (b *Builder) ForResponse(t i18n.Translator, k conversation.Keyboard) *telebot.ReplyMarkup {
	switch k {
	case conversation.KeyboardConfirm:
		return Confirm(t)
	case conversation.KeyboardRemove:
		return Remove()
	default:
		return nil
	}
}

// FromMessage renders the buttons of an outbound notification, translating their labels with t.
func (b *Builder) FromMessage(t i18n.Translator, msg study.Message) (*telebot.ReplyMarkup, error) {
	if len(msg.Buttons) == 0 {
		return nil, nil
	}

	rows := make([][]telebot.InlineButton, 0, len(msg.Buttons))
	for _, row := range msg.Buttons {
		rendered := make([]telebot.InlineButton, 0, len(row))
		for _, btn := range row {
			if len(btn.Data) > callback.LimitBytes {
				return nil, fmt.Errorf("button %q: callback data exceeds %d bytes", btn.Text, callback.LimitBytes)
			}
			rendered = append(rendered, telebot.InlineButton{Text: i18n.Format(t, btn.Text), Data: btn.Data})
		}
		rows = append(rows, rendered)
	}
	return &telebot.ReplyMarkup{InlineKeyboard: rows}, nil
}

// Grades builds two rows of grade buttons for a solution.
func (b *Builder) Grades(solutionID int64) [][]InlineButton {
	rows := make([][]InlineButton, 0, 2)
	var row []InlineButton
	for g := domain.MinGrade; g <= domain.MaxGrade; g++ {
		row = append(row, InlineButton{
			Text:   strconv.Itoa(g),
			Action: callback.SolutionAction{SolutionID: solutionID, Grade: g},
		})
		if len(row) == 5 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

// GradeKeyboard renders Grades as markup.
func (b *Builder) GradeKeyboard(solutionID int64) (*telebot.ReplyMarkup, error) {
	kb := NewInlineKeyboard()
	for _, row := range b.Grades(solutionID) {
		kb.AddRow(row...)
	}
	return kb.Build()
}

// TaskKeyboard renders the buttons under a task. Teachers manage it, students submit to it.
func (b *Builder) TaskKeyboard(t i18n.Translator, role auth.Role, subjectID, taskID int64) (*telebot.ReplyMarkup, error) {
	kb := NewInlineKeyboard()
	switch role {
	case auth.RoleTeacher:
		kb.AddRow(
			InlineButton{
				Text:   translated(t, "tasks.edit", "Edit"),
				Action: callback.TaskAction{SubjectID: subjectID, TaskID: taskID, Action: callback.TaskEdit},
			},
			InlineButton{
				Text:   translated(t, "tasks.show_solutions", "Solutions"),
				Action: callback.TaskAction{SubjectID: subjectID, TaskID: taskID, Action: callback.TaskShowSolutions},
			},
		)
	case auth.RoleStudent:
		kb.AddRow(InlineButton{
			Text:   translated(t, "tasks.submit", "Submit solution"),
			Action: callback.TaskAction{SubjectID: subjectID, TaskID: taskID, Action: callback.TaskCreate},
		})
	default:
		return nil, nil
	}
	return kb.Build()
}

// SupportKeyboard renders the button that opens a support thread with counterpartID.
func (b *Builder) SupportKeyboard(t i18n.Translator, counterpartID int64) (*telebot.ReplyMarkup, error) {
	return NewInlineKeyboard().AddRow(InlineButton{
		Text:   translated(t, "support.ask", "Ask a question"),
		Action: callback.SupportAction{Mode: "one", CounterpartID: counterpartID, AsInitiator: true},
	}).Build()
}

// Links renders one URL button per link, two per row.
func (b *Builder) Links(links []study.NamedLink) (*telebot.ReplyMarkup, error) {
	kb := NewInlineKeyboard()
	for i := 0; i < len(links); i += 2 {
		row := []InlineButton{{Text: links[i].Text, URL: links[i].URL}}
		if i+1 < len(links) {
			row = append(row, InlineButton{Text: links[i+1].Text, URL: links[i+1].URL})
		}
		kb.AddRow(row...)
	}
	return kb.Build()
}
