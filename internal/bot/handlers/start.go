package handlers

import (
	"log/slog"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/studyhelper-bot/internal/auth"
	"github.com/Proton-105/studyhelper-bot/internal/conversation"
	apperrors "github.com/Proton-105/studyhelper-bot/internal/errors"
	"github.com/Proton-105/studyhelper-bot/internal/study"
	"github.com/Proton-105/studyhelper-bot/pkg/metrics"
)

// linkRoles restricts who may follow each deep link.
var linkRoles = map[string]auth.RoleSet{
	study.LinkAddSubject:   auth.Roles(auth.RoleStudent, auth.RoleUnknown),
	study.LinkQuitSubject:  auth.StudentOnly,
	study.LinkAddTask:      auth.TeacherOnly,
	study.LinkSeeTasks:     auth.Enrolled,
	study.LinkAskTeacher:   auth.StudentOnly,
	study.LinkSubjectStats: auth.TeacherOnly,
}

// Start greets the user or, when /start carries a payload, follows the deep link.
func (h *Handlers) Start(c telebot.Context, req Request) error {
	payload := strings.TrimSpace(req.Args)
	if payload == "" {
		return c.Send(h.text(c, "start.welcome."+welcomeKey(req.Role)))
	}

	link, err := study.DecodeDeepLink(payload)
	if err != nil {
		h.log.Warn("invalid deep link", slog.Int64("user_id", req.UserID), slog.Any("error", err))
		return c.Send(h.text(c, "start.bad_link"))
	}

	route := "start:" + link.Key
	decision, err := h.gate.Admit(Context(c), req.UserID, linkRoles[link.Key])
	if err != nil {
		return err
	}
	if !decision.Allowed {
		metrics.RecordAccessDenied(route, decision.Role.String())
		return apperrors.NewUnauthorizedError(route, decision.Reason)
	}
	req.Role = decision.Role

	switch link.Key {
	case study.LinkAddSubject:
		return h.joinSubject(c, req, link.ID)
	case study.LinkQuitSubject:
		return h.leaveSubject(c, req, link.ID)
	case study.LinkAddTask:
		return h.addTask(c, req, link.ID)
	case study.LinkSeeTasks:
		return h.seeTasks(c, req, link.ID)
	case study.LinkAskTeacher:
		return h.askTeacher(c, req, link.ID)
	case study.LinkSubjectStats:
		return h.subjectStats(c, req, link.ID)
	default:
		return c.Send(h.text(c, "start.bad_link"))
	}
}

func welcomeKey(role auth.Role) string {
	switch role {
	case auth.RoleAdmin:
		return "admin"
	case auth.RoleTeacher:
		return "teacher"
	case auth.RoleStudent:
		return "student"
	default:
		return "unknown"
	}
}

func (h *Handlers) joinSubject(c telebot.Context, req Request, subjectID int64) error {
	subject, err := h.study.Enroll(Context(c), req.UserID, displayName(c.Sender()), subjectID)
	if err != nil {
		return domainError("start:"+study.LinkAddSubject, err)
	}
	h.log.Info("student joined subject", slog.Int64("user_id", req.UserID), slog.Int64("subject_id", subjectID))
	return c.Send(h.text(c, "subjects.joined", subject.Name))
}

func (h *Handlers) leaveSubject(c telebot.Context, req Request, subjectID int64) error {
	subject, err := h.study.Unenroll(Context(c), req.UserID, subjectID)
	if err != nil {
		return domainError("start:"+study.LinkQuitSubject, err)
	}
	return c.Send(h.text(c, "subjects.left", subject.Name))
}

func (h *Handlers) addTask(c telebot.Context, req Request, subjectID int64) error {
	owns, err := h.study.OwnsSubject(Context(c), req.UserID, subjectID)
	if err != nil {
		return domainError("start:"+study.LinkAddTask, err)
	}
	if !owns {
		return domainError("start:"+study.LinkAddTask, study.ErrNotOwner)
	}

	return h.startFlow(c, req, conversation.FlowTask, map[string]string{
		conversation.FieldSubjectID: strconv.FormatInt(subjectID, 10),
	})
}

func (h *Handlers) seeTasks(c telebot.Context, req Request, subjectID int64) error {
	ctx := Context(c)
	route := "start:" + study.LinkSeeTasks

	// An admin or teacher who does not own the subject sees it as a student would.
	role := auth.RoleStudent
	owns, err := h.study.OwnsSubject(ctx, req.UserID, subjectID)
	if err != nil {
		return domainError(route, err)
	}
	if owns {
		role = auth.RoleTeacher
	} else {
		enrolled, err := h.study.StudentCanSubmit(ctx, req.UserID, subjectID)
		if err != nil {
			return domainError(route, err)
		}
		if !enrolled {
			return domainError(route, study.ErrNotEnrolled)
		}
	}

	subject, tasks, err := h.study.SubjectTasks(ctx, subjectID)
	if err != nil {
		return domainError(route, err)
	}
	if len(tasks) == 0 {
		return c.Send(h.text(c, "tasks.none", subject.Name))
	}

	t := h.Translator(c)
	if err := c.Send(h.text(c, "tasks.header", subject.Name)); err != nil {
		return err
	}
	for _, task := range tasks {
		markup, err := h.kb.TaskKeyboard(t, role, subject.ID, task.ID)
		if err != nil {
			return err
		}
		body := h.text(c, "tasks.item", task.Name, task.Description, task.DueDate.Format(conversation.DateLayout))
		if err := c.Send(body, markup); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handlers) askTeacher(c telebot.Context, req Request, subjectID int64) error {
	subject, teacherUserID, err := h.study.SubjectTeacher(Context(c), subjectID)
	if err != nil {
		return domainError("start:"+study.LinkAskTeacher, err)
	}

	markup, err := h.kb.SupportKeyboard(h.Translator(c), teacherUserID)
	if err != nil {
		return err
	}
	return c.Send(h.text(c, "support.ask_teacher", subject.Name), markup)
}

func (h *Handlers) subjectStats(c telebot.Context, req Request, subjectID int64) error {
	stats, err := h.study.Stats(Context(c), req.UserID, subjectID)
	if err != nil {
		return domainError("start:"+study.LinkSubjectStats, err)
	}
	return c.Send(study.FormatStats(stats))
}

func displayName(u *telebot.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}
