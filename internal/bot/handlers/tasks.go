package handlers

import (
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/studyhelper-bot/internal/bot/keyboard"
	"github.com/Proton-105/studyhelper-bot/internal/callback"
	"github.com/Proton-105/studyhelper-bot/internal/conversation"
	"github.com/Proton-105/studyhelper-bot/internal/domain"
	"github.com/Proton-105/studyhelper-bot/internal/study"
)

// SolutionsPerPage bounds how many solutions one page of the list shows.
const SolutionsPerPage = 5

// SubmitSolution starts the solution flow for an enrolled student.
func (h *Handlers) SubmitSolution(c telebot.Context, req Request) error {
	a := req.Action.(callback.TaskAction)
	ctx := Context(c)

	if _, err := h.study.Task(ctx, a.SubjectID, a.TaskID); err != nil {
		return domainError(req.Route, err)
	}
	enrolled, err := h.study.StudentCanSubmit(ctx, req.UserID, a.SubjectID)
	if err != nil {
		return domainError(req.Route, err)
	}
	if !enrolled {
		return domainError(req.Route, study.ErrNotEnrolled)
	}

	if err := h.startFlow(c, req, conversation.FlowSolution, map[string]string{
		conversation.FieldTaskID:    strconv.FormatInt(a.TaskID, 10),
		conversation.FieldSubjectID: strconv.FormatInt(a.SubjectID, 10),
	}); err != nil {
		return err
	}
	return Answer(c, "")
}

// EditTask starts the task edit flow for the owning teacher.
func (h *Handlers) EditTask(c telebot.Context, req Request) error {
	a := req.Action.(callback.TaskAction)
	ctx := Context(c)

	owns, err := h.study.OwnsSubject(ctx, req.UserID, a.SubjectID)
	if err != nil {
		return domainError(req.Route, err)
	}
	if !owns {
		return domainError(req.Route, study.ErrNotOwner)
	}
	if _, err := h.study.Task(ctx, a.SubjectID, a.TaskID); err != nil {
		return domainError(req.Route, err)
	}

	if err := h.startFlow(c, req, conversation.FlowTaskEdit, map[string]string{
		conversation.FieldTaskID:    strconv.FormatInt(a.TaskID, 10),
		conversation.FieldSubjectID: strconv.FormatInt(a.SubjectID, 10),
	}); err != nil {
		return err
	}
	return Answer(c, "")
}

// ShowSolutions lists the first page of a task's solutions.
func (h *Handlers) ShowSolutions(c telebot.Context, req Request) error {
	a := req.Action.(callback.TaskAction)
	return h.solutionsPage(c, req, a.SubjectID, a.TaskID, 1)
}

// SolutionsPage lists another page of a task's solutions.
func (h *Handlers) SolutionsPage(c telebot.Context, req Request) error {
	a := req.Action.(callback.SolutionsPageAction)
	return h.solutionsPage(c, req, a.SubjectID, a.TaskID, a.Page)
}

func (h *Handlers) solutionsPage(c telebot.Context, req Request, subjectID, taskID int64, page int) error {
	task, listings, err := h.study.Solutions(Context(c), req.UserID, subjectID, taskID)
	if err != nil {
		return domainError(req.Route, err)
	}
	if len(listings) == 0 {
		return c.Send(h.text(c, "solutions.none", task.Name))
	}

	total := keyboard.TotalPages(len(listings), SolutionsPerPage)
	if page > total {
		page = total
	}
	start, end := keyboard.PageBounds(page, SolutionsPerPage, len(listings))

	if err := c.Send(h.text(c, "solutions.header", task.Name, len(listings))); err != nil {
		return err
	}
	for _, l := range listings[start:end] {
		markup, err := h.kb.GradeKeyboard(l.ID)
		if err != nil {
			return err
		}
		if err := c.Send(h.solutionText(c, l.SolutionView, l.Link), markup); err != nil {
			return err
		}
	}

	if total > 1 {
		pager := keyboard.NewInlineKeyboard().AddRow(keyboard.PaginationButtons(h.Translator(c), func(p int) callback.Action {
			return callback.SolutionsPageAction{SubjectID: subjectID, TaskID: taskID, Page: p}
		}, page, total)...)
		markup, err := pager.Build()
		if err != nil {
			return err
		}
		if err := c.Send(h.text(c, "pagination.hint"), markup); err != nil {
			return err
		}
	}
	return Answer(c, "")
}

// Grade stores the grade picked by the teacher and refreshes the solution message.
func (h *Handlers) Grade(c telebot.Context, req Request) error {
	a := req.Action.(callback.SolutionAction)

	view, err := h.study.Grade(Context(c), req.UserID, a.SolutionID, a.Grade)
	if err != nil {
		return domainError(req.Route, err)
	}

	h.log.Info("grade saved", slog.Int64("user_id", req.UserID), slog.Int64("solution_id", a.SolutionID), slog.Int("grade", a.Grade))

	markup, err := h.kb.GradeKeyboard(view.ID)
	if err != nil {
		return err
	}
	if err := c.Edit(h.text(c, "solutions.graded_item", view.StudentName, a.Grade), markup); err != nil {
		h.log.Warn("failed to refresh graded solution message", slog.Int64("solution_id", view.ID), slog.Any("error", err))
	}
	return Answer(c, h.text(c, "solutions.graded", a.Grade))
}

func (h *Handlers) solutionText(c telebot.Context, v domain.SolutionView, link string) string {
	grade := h.text(c, "solutions.ungraded")
	if v.Graded() {
		grade = strconv.Itoa(v.Grade.Int)
	}
	if link == "" {
		link = h.text(c, "solutions.no_link")
	}
	return h.text(c, "solutions.item", v.StudentName, grade, link)
}
