package handlers

import (
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/studyhelper-bot/internal/conversation"
)

// IsTeacher confirms the teacher role.
func (h *Handlers) IsTeacher(c telebot.Context, _ Request) error {
	return c.Send(h.text(c, "teacher.you_are_teacher"))
}

// CreateSubject starts the subject flow owned by the sender.
func (h *Handlers) CreateSubject(c telebot.Context, req Request) error {
	return h.startFlow(c, req, conversation.FlowSubject, map[string]string{
		conversation.FieldTeacherID: strconv.FormatInt(req.UserID, 10),
	})
}

// MySubjects lists the teacher's subjects, each with its share links.
func (h *Handlers) MySubjects(c telebot.Context, req Request) error {
	subjects, err := h.study.TeacherSubjects(Context(c), req.UserID)
	if err != nil {
		return domainError(req.Route, err)
	}
	if len(subjects) == 0 {
		return c.Send(h.text(c, "subjects.none"))
	}

	for _, s := range subjects {
		markup, err := h.kb.Links(s.Links)
		if err != nil {
			return err
		}
		if err := c.Send(h.text(c, "subjects.item", s.Subject.Name, s.Subject.Description), markup); err != nil {
			return err
		}
	}
	return nil
}
