package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/Proton-105/studyhelper-bot/internal/auth"
	"github.com/Proton-105/studyhelper-bot/internal/bot/keyboard"
	"github.com/Proton-105/studyhelper-bot/internal/callback"
	"github.com/Proton-105/studyhelper-bot/internal/conversation"
	"github.com/Proton-105/studyhelper-bot/internal/domain"
	apperrors "github.com/Proton-105/studyhelper-bot/internal/errors"
	"github.com/Proton-105/studyhelper-bot/internal/i18n"
	"github.com/Proton-105/studyhelper-bot/internal/repository"
	"github.com/Proton-105/studyhelper-bot/internal/study"
	"github.com/Proton-105/studyhelper-bot/internal/testutil"
)

type mockStudy struct{ mock.Mock }

func (m *mockStudy) AddTeacher(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockStudy) TeacherSubjects(ctx context.Context, teacherUserID int64) ([]study.LinkedSubject, error) {
	args := m.Called(ctx, teacherUserID)
	out, _ := args.Get(0).([]study.LinkedSubject)
	return out, args.Error(1)
}

func (m *mockStudy) Enroll(ctx context.Context, userID int64, name string, subjectID int64) (*domain.Subject, error) {
	args := m.Called(ctx, userID, name, subjectID)
	out, _ := args.Get(0).(*domain.Subject)
	return out, args.Error(1)
}

func (m *mockStudy) Unenroll(ctx context.Context, userID, subjectID int64) (*domain.Subject, error) {
	args := m.Called(ctx, userID, subjectID)
	out, _ := args.Get(0).(*domain.Subject)
	return out, args.Error(1)
}

func (m *mockStudy) SubjectTasks(ctx context.Context, subjectID int64) (*domain.Subject, []domain.SubjectTask, error) {
	args := m.Called(ctx, subjectID)
	subject, _ := args.Get(0).(*domain.Subject)
	tasks, _ := args.Get(1).([]domain.SubjectTask)
	return subject, tasks, args.Error(2)
}

func (m *mockStudy) SubjectTeacher(ctx context.Context, subjectID int64) (*domain.Subject, int64, error) {
	args := m.Called(ctx, subjectID)
	subject, _ := args.Get(0).(*domain.Subject)
	return subject, args.Get(1).(int64), args.Error(2)
}

func (m *mockStudy) Stats(ctx context.Context, teacherUserID, subjectID int64) (*domain.SubjectStats, error) {
	args := m.Called(ctx, teacherUserID, subjectID)
	out, _ := args.Get(0).(*domain.SubjectStats)
	return out, args.Error(1)
}

func (m *mockStudy) OwnsSubject(ctx context.Context, teacherUserID, subjectID int64) (bool, error) {
	args := m.Called(ctx, teacherUserID, subjectID)
	return args.Bool(0), args.Error(1)
}

func (m *mockStudy) StudentCanSubmit(ctx context.Context, studentUserID, subjectID int64) (bool, error) {
	args := m.Called(ctx, studentUserID, subjectID)
	return args.Bool(0), args.Error(1)
}

func (m *mockStudy) Task(ctx context.Context, subjectID, taskID int64) (*domain.SubjectTask, error) {
	args := m.Called(ctx, subjectID, taskID)
	out, _ := args.Get(0).(*domain.SubjectTask)
	return out, args.Error(1)
}

func (m *mockStudy) Solutions(ctx context.Context, teacherUserID, subjectID, taskID int64) (*domain.SubjectTask, []study.SolutionListing, error) {
	args := m.Called(ctx, teacherUserID, subjectID, taskID)
	task, _ := args.Get(0).(*domain.SubjectTask)
	listings, _ := args.Get(1).([]study.SolutionListing)
	return task, listings, args.Error(2)
}

func (m *mockStudy) Grade(ctx context.Context, teacherUserID, solutionID int64, grade int) (*domain.SolutionView, error) {
	args := m.Called(ctx, teacherUserID, solutionID, grade)
	out, _ := args.Get(0).(*domain.SolutionView)
	return out, args.Error(1)
}

type mockConversations struct{ mock.Mock }

func (m *mockConversations) Start(ctx context.Context, userID int64, flow string, seed map[string]string) (conversation.Response, error) {
	args := m.Called(ctx, userID, flow, seed)
	return args.Get(0).(conversation.Response), args.Error(1)
}

func (m *mockConversations) Cancel(ctx context.Context, userID int64) (conversation.Response, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(conversation.Response), args.Error(1)
}

func (m *mockConversations) CancelSupport(ctx context.Context, userID, counterpartID int64) (bool, error) {
	args := m.Called(ctx, userID, counterpartID)
	return args.Bool(0), args.Error(1)
}

type mockSessions struct{ mock.Mock }

func (m *mockSessions) ClearState(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

type roleGate map[int64]auth.Role

func (g roleGate) Admit(_ context.Context, userID int64, required auth.RoleSet) (auth.Decision, error) {
	role := g[userID]
	if required.Contains(role) {
		return auth.Decision{Allowed: true, Role: role}, nil
	}
	return auth.Decision{Role: role, Reason: "role mismatch"}, nil
}

const (
	adminID   int64 = 1
	teacherID int64 = 2
	studentID int64 = 3
	strangeID int64 = 4
)

type fixture struct {
	h        *Handlers
	study    *mockStudy
	convs    *mockConversations
	sessions *mockSessions
	tr       i18n.Translator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	manager, err := i18n.Load("en")
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		study:    &mockStudy{},
		convs:    &mockConversations{},
		sessions: &mockSessions{},
		tr:       manager.Translator("en"),
	}
	f.h = New(Deps{
		Gate:          roleGate{adminID: auth.RoleAdmin, teacherID: auth.RoleTeacher, studentID: auth.RoleStudent},
		Study:         f.study,
		Conversations: f.convs,
		Sessions:      f.sessions,
		Keyboard:      keyboard.NewBuilder(log),
		I18n:          manager,
		Log:           log,
	})
	return f
}

func (f *fixture) text(key string, args ...any) string {
	return i18n.Format(f.tr, key, args...)
}

func TestSingleUserID(t *testing.T) {
	cases := []struct {
		args string
		want int64
		ok   bool
	}{
		{args: "353057906", want: 353057906, ok: true},
		{args: ` "42" `, want: 42, ok: true},
		{args: "", ok: false},
		{args: "1 2", ok: false},
		{args: "abc", ok: false},
		{args: "-5", ok: false},
		{args: `"unterminated`, ok: false},
	}

	for _, tc := range cases {
		got, err := singleUserID(tc.args)
		if !tc.ok {
			assert.Error(t, err, tc.args)
			continue
		}
		require.NoError(t, err, tc.args)
		assert.Equal(t, tc.want, got)
	}
}

func TestAddTeacher(t *testing.T) {
	f := newFixture(t)
	f.study.On("AddTeacher", mock.Anything, int64(777)).Return(nil)

	c := testutil.NewMessage(adminID, "/add_teacher 777")
	require.NoError(t, f.h.AddTeacher(c, Request{UserID: adminID, Args: "777"}))

	assert.Equal(t, []string{f.text("admin.teacher_added", int64(777))}, c.Texts())
	f.study.AssertExpectations(t)
}

func TestAddTeacher_Usage(t *testing.T) {
	f := newFixture(t)

	c := testutil.NewMessage(adminID, "/add_teacher")
	require.NoError(t, f.h.AddTeacher(c, Request{UserID: adminID}))

	assert.Equal(t, []string{f.text("admin.usage_add_teacher")}, c.Texts())
	f.study.AssertNotCalled(t, "AddTeacher", mock.Anything, mock.Anything)
}

func TestAddTeacher_StorageFailure(t *testing.T) {
	f := newFixture(t)
	f.study.On("AddTeacher", mock.Anything, int64(777)).Return(errors.New("db down"))

	err := f.h.AddTeacher(testutil.NewMessage(adminID, ""), Request{UserID: adminID, Args: "777"})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeDatabase, appErr.Code)
}

func TestClearSession(t *testing.T) {
	f := newFixture(t)
	f.sessions.On("ClearState", mock.Anything, int64(9)).Return(nil)

	c := testutil.NewMessage(adminID, "")
	require.NoError(t, f.h.ClearSession(c, Request{UserID: adminID, Args: "9"}))

	assert.Equal(t, []string{f.text("admin.session_cleared", int64(9))}, c.Texts())
	f.sessions.AssertExpectations(t)
}

func TestStart_WelcomeByRole(t *testing.T) {
	f := newFixture(t)

	for role, key := range map[auth.Role]string{
		auth.RoleAdmin:   "start.welcome.admin",
		auth.RoleTeacher: "start.welcome.teacher",
		auth.RoleStudent: "start.welcome.student",
		auth.RoleUnknown: "start.welcome.unknown",
	} {
		c := testutil.NewMessage(studentID, "/start")
		require.NoError(t, f.h.Start(c, Request{UserID: studentID, Role: role}))
		assert.Equal(t, []string{f.text(key)}, c.Texts())
	}
}

func TestStart_BadLink(t *testing.T) {
	f := newFixture(t)
	bogus := study.EncodeDeepLink(study.DeepLink{Key: "history", ID: 1})

	for _, payload := range []string{"!!!", bogus} {
		c := testutil.NewMessage(studentID, "/start "+payload)
		require.NoError(t, f.h.Start(c, Request{UserID: studentID, Args: payload}))
		assert.Equal(t, []string{f.text("start.bad_link")}, c.Texts())
	}
}

func TestStart_JoinSubject(t *testing.T) {
	f := newFixture(t)
	f.study.On("Enroll", mock.Anything, strangeID, "Test", int64(5)).Return(&domain.Subject{ID: 5, Name: "Algebra"}, nil)

	payload := study.EncodeDeepLink(study.DeepLink{Key: study.LinkAddSubject, ID: 5})
	c := testutil.NewMessage(strangeID, "/start "+payload)
	require.NoError(t, f.h.Start(c, Request{UserID: strangeID, Args: payload}))

	assert.Equal(t, []string{f.text("subjects.joined", "Algebra")}, c.Texts())
	f.study.AssertExpectations(t)
}

func TestStart_LinkDeniedForRole(t *testing.T) {
	f := newFixture(t)

	payload := study.EncodeDeepLink(study.DeepLink{Key: study.LinkAddTask, ID: 5})
	err := f.h.Start(testutil.NewMessage(studentID, ""), Request{UserID: studentID, Args: payload})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeUnauthorized, appErr.Code)
	f.study.AssertNotCalled(t, "OwnsSubject", mock.Anything, mock.Anything, mock.Anything)
}

func TestStart_AddTaskStartsFlow(t *testing.T) {
	f := newFixture(t)
	f.study.On("OwnsSubject", mock.Anything, teacherID, int64(5)).Return(true, nil)
	f.convs.On("Start", mock.Anything, teacherID, conversation.FlowTask, map[string]string{conversation.FieldSubjectID: "5"}).
		Return(conversation.Response{Handled: true, Text: "Enter task name"}, nil)

	payload := study.EncodeDeepLink(study.DeepLink{Key: study.LinkAddTask, ID: 5})
	c := testutil.NewMessage(teacherID, "")
	require.NoError(t, f.h.Start(c, Request{UserID: teacherID, Args: payload}))

	assert.Equal(t, []string{"Enter task name"}, c.Texts())
	f.convs.AssertExpectations(t)
}

func TestStart_AddTaskNotOwner(t *testing.T) {
	f := newFixture(t)
	f.study.On("OwnsSubject", mock.Anything, teacherID, int64(5)).Return(false, nil)

	payload := study.EncodeDeepLink(study.DeepLink{Key: study.LinkAddTask, ID: 5})
	err := f.h.Start(testutil.NewMessage(teacherID, ""), Request{UserID: teacherID, Args: payload})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeUnauthorized, appErr.Code)
	f.convs.AssertNotCalled(t, "Start", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStart_SeeTasksAsStudent(t *testing.T) {
	f := newFixture(t)
	due := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	f.study.On("OwnsSubject", mock.Anything, studentID, int64(5)).Return(false, nil)
	f.study.On("StudentCanSubmit", mock.Anything, studentID, int64(5)).Return(true, nil)
	f.study.On("SubjectTasks", mock.Anything, int64(5)).Return(&domain.Subject{ID: 5, Name: "Algebra"},
		[]domain.SubjectTask{{ID: 12, SubjectID: 5, Name: "HW1", Description: "pages 1-3", DueDate: due}}, nil)

	payload := study.EncodeDeepLink(study.DeepLink{Key: study.LinkSeeTasks, ID: 5})
	c := testutil.NewMessage(studentID, "")
	require.NoError(t, f.h.Start(c, Request{UserID: studentID, Args: payload}))

	require.Len(t, c.Sent, 2)
	assert.Equal(t, f.text("tasks.header", "Algebra"), c.Sent[0].What)
	markup := c.Sent[1].Markup()
	require.NotNil(t, markup)
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Equal(t, "task:5:12:create", markup.InlineKeyboard[0][0].Data)
}

func TestStart_SeeTasksNotEnrolled(t *testing.T) {
	f := newFixture(t)
	f.study.On("OwnsSubject", mock.Anything, studentID, int64(5)).Return(false, nil)
	f.study.On("StudentCanSubmit", mock.Anything, studentID, int64(5)).Return(false, nil)

	payload := study.EncodeDeepLink(study.DeepLink{Key: study.LinkSeeTasks, ID: 5})
	err := f.h.Start(testutil.NewMessage(studentID, ""), Request{UserID: studentID, Args: payload})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeUnauthorized, appErr.Code)
	f.study.AssertNotCalled(t, "SubjectTasks", mock.Anything, mock.Anything)
}

func TestSubmitSolution_NotEnrolled(t *testing.T) {
	f := newFixture(t)
	f.study.On("Task", mock.Anything, int64(5), int64(12)).Return(&domain.SubjectTask{ID: 12}, nil)
	f.study.On("StudentCanSubmit", mock.Anything, studentID, int64(5)).Return(false, nil)

	req := Request{UserID: studentID, Route: "task:create", Action: callback.TaskAction{SubjectID: 5, TaskID: 12, Action: callback.TaskCreate}}
	err := f.h.SubmitSolution(testutil.NewCallback(studentID, "task:5:12:create"), req)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeUnauthorized, appErr.Code)
}

func TestSubmitSolution_MissingTask(t *testing.T) {
	f := newFixture(t)
	f.study.On("Task", mock.Anything, int64(5), int64(12)).Return(nil, repository.ErrNotFound)

	req := Request{UserID: studentID, Route: "task:create", Action: callback.TaskAction{SubjectID: 5, TaskID: 12, Action: callback.TaskCreate}}
	err := f.h.SubmitSolution(testutil.NewCallback(studentID, "task:5:12:create"), req)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
}

func TestSubmitSolution_StartsFlow(t *testing.T) {
	f := newFixture(t)
	f.study.On("Task", mock.Anything, int64(5), int64(12)).Return(&domain.SubjectTask{ID: 12}, nil)
	f.study.On("StudentCanSubmit", mock.Anything, studentID, int64(5)).Return(true, nil)
	f.convs.On("Start", mock.Anything, studentID, conversation.FlowSolution, map[string]string{
		conversation.FieldTaskID:    "12",
		conversation.FieldSubjectID: "5",
	}).Return(conversation.Response{Handled: true, Text: "Send the file"}, nil)

	c := testutil.NewCallback(studentID, "task:5:12:create")
	req := Request{UserID: studentID, Route: "task:create", Action: callback.TaskAction{SubjectID: 5, TaskID: 12, Action: callback.TaskCreate}}
	require.NoError(t, f.h.SubmitSolution(c, req))

	assert.Equal(t, []string{"Send the file"}, c.Texts())
	assert.Len(t, c.Responses, 1)
}

func TestShowSolutions_Paginates(t *testing.T) {
	f := newFixture(t)

	listings := make([]study.SolutionListing, 0, 7)
	for i := 1; i <= 7; i++ {
		listings = append(listings, study.SolutionListing{
			SolutionView: domain.SolutionView{Solution: domain.Solution{ID: int64(i)}, StudentName: "S"},
			Link:         "https://files/x",
		})
	}
	listings[0].Grade = null.IntFrom(8)
	f.study.On("Solutions", mock.Anything, teacherID, int64(5), int64(12)).Return(&domain.SubjectTask{ID: 12, Name: "HW1"}, listings, nil)

	c := testutil.NewCallback(teacherID, "task:5:12:show_solutions")
	req := Request{UserID: teacherID, Route: "task:show_solutions", Action: callback.TaskAction{SubjectID: 5, TaskID: 12, Action: callback.TaskShowSolutions}}
	require.NoError(t, f.h.ShowSolutions(c, req))

	// header, five solutions, pager
	require.Len(t, c.Sent, 7)
	assert.Equal(t, f.text("solutions.header", "HW1", 7), c.Sent[0].What)
	assert.Equal(t, f.text("solutions.item", "S", "8", "https://files/x"), c.Sent[1].What)
	assert.Equal(t, f.text("solutions.item", "S", f.text("solutions.ungraded"), "https://files/x"), c.Sent[2].What)
	assert.Equal(t, f.text("pagination.hint"), c.Sent[6].What)

	pager := c.Sent[6].Markup()
	require.NotNil(t, pager)
	last := pager.InlineKeyboard[0][len(pager.InlineKeyboard[0])-1]
	assert.Equal(t, "solutions_page:5:12:2", last.Data)
}

func TestSolutionsPage_LastPage(t *testing.T) {
	f := newFixture(t)

	listings := make([]study.SolutionListing, 0, 7)
	for i := 1; i <= 7; i++ {
		listings = append(listings, study.SolutionListing{SolutionView: domain.SolutionView{Solution: domain.Solution{ID: int64(i)}}})
	}
	f.study.On("Solutions", mock.Anything, teacherID, int64(5), int64(12)).Return(&domain.SubjectTask{ID: 12, Name: "HW1"}, listings, nil)

	c := testutil.NewCallback(teacherID, "solutions_page:5:12:9")
	req := Request{UserID: teacherID, Route: "solutions_page", Action: callback.SolutionsPageAction{SubjectID: 5, TaskID: 12, Page: 9}}
	require.NoError(t, f.h.SolutionsPage(c, req))

	// header, two solutions, pager
	require.Len(t, c.Sent, 4)
	grades := c.Sent[1].Markup()
	require.NotNil(t, grades)
	assert.Equal(t, "solution:6:1", grades.InlineKeyboard[0][0].Data)
}

func TestGrade_EditsMessageAndAnswers(t *testing.T) {
	f := newFixture(t)
	view := &domain.SolutionView{Solution: domain.Solution{ID: 7, Grade: null.IntFrom(9)}, StudentName: "Ann"}
	f.study.On("Grade", mock.Anything, teacherID, int64(7), 9).Return(view, nil)

	c := testutil.NewCallback(teacherID, "solution:7:9")
	req := Request{UserID: teacherID, Route: "solution", Action: callback.SolutionAction{SolutionID: 7, Grade: 9}}
	require.NoError(t, f.h.Grade(c, req))

	require.Len(t, c.Edited, 1)
	assert.Equal(t, f.text("solutions.graded_item", "Ann", 9), c.Edited[0].What)
	require.Len(t, c.Responses, 1)
	assert.Equal(t, f.text("solutions.graded", 9), c.Responses[0].Text)
}

func TestGrade_NotOwner(t *testing.T) {
	f := newFixture(t)
	f.study.On("Grade", mock.Anything, teacherID, int64(7), 9).Return(nil, study.ErrNotOwner)

	req := Request{UserID: teacherID, Route: "solution", Action: callback.SolutionAction{SolutionID: 7, Grade: 9}}
	err := f.h.Grade(testutil.NewCallback(teacherID, "solution:7:9"), req)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeUnauthorized, appErr.Code)
}

func TestSupport_SeedsFlow(t *testing.T) {
	f := newFixture(t)
	f.convs.On("Start", mock.Anything, studentID, conversation.FlowSupport, map[string]string{
		conversation.FieldCounterpartID: "2",
		conversation.FieldAsInitiator:   "1",
		conversation.FieldMode:          "one",
	}).Return(conversation.Response{Handled: true, Text: "Write your message"}, nil)

	c := testutil.NewCallback(studentID, "support:one:2:1")
	req := Request{UserID: studentID, Route: "support", Action: callback.SupportAction{Mode: "one", CounterpartID: teacherID, AsInitiator: true}}
	require.NoError(t, f.h.Support(c, req))

	assert.Equal(t, []string{"Write your message"}, c.Texts())
	f.convs.AssertExpectations(t)
}

func TestCancelSupport(t *testing.T) {
	f := newFixture(t)
	f.convs.On("CancelSupport", mock.Anything, studentID, teacherID).Return(true, nil)

	c := testutil.NewCallback(studentID, "cancel_support:2")
	require.NoError(t, f.h.CancelSupport(c, Request{UserID: studentID, Action: callback.CancelSupportAction{CounterpartID: teacherID}}))

	assert.Equal(t, []string{f.text("support.closed")}, c.Texts())
	require.Len(t, c.Responses, 1)
	assert.Equal(t, f.text("support.closed"), c.Responses[0].Text)
}

func TestCancelSupport_OtherSessionUntouched(t *testing.T) {
	f := newFixture(t)
	f.convs.On("CancelSupport", mock.Anything, studentID, teacherID).Return(false, nil)

	c := testutil.NewCallback(studentID, "cancel_support:2")
	require.NoError(t, f.h.CancelSupport(c, Request{UserID: studentID, Action: callback.CancelSupportAction{CounterpartID: teacherID}}))

	assert.Empty(t, c.Sent)
	require.Len(t, c.Responses, 1)
	assert.Equal(t, f.text("support.already_closed"), c.Responses[0].Text)
	f.convs.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
}

func TestCancel_SendsEngineResponse(t *testing.T) {
	f := newFixture(t)
	f.convs.On("Cancel", mock.Anything, studentID).Return(conversation.Response{Handled: true, Text: conversation.TextCancelled, Keyboard: conversation.KeyboardRemove}, nil)

	c := testutil.NewMessage(studentID, "/cancel")
	require.NoError(t, f.h.Cancel(c, Request{UserID: studentID}))

	require.Len(t, c.Sent, 1)
	assert.Equal(t, f.text(conversation.TextCancelled), c.Sent[0].What)
	require.NotNil(t, c.Sent[0].Markup())
	assert.True(t, c.Sent[0].Markup().RemoveKeyboard)
}

func TestSendResponse_TranslatesForSender(t *testing.T) {
	f := newFixture(t)
	resp := conversation.Response{Handled: true, Text: "conversation.subject.name", Keyboard: conversation.KeyboardConfirm}

	c := testutil.NewMessage(teacherID, "/create_subject")
	c.User.LanguageCode = "ru"
	require.NoError(t, f.h.SendResponse(c, resp))

	require.Len(t, c.Sent, 1)
	assert.Equal(t, "Введите название предмета", c.Sent[0].What)
	require.NotNil(t, c.Sent[0].Markup())

	en := testutil.NewMessage(teacherID, "/create_subject")
	require.NoError(t, f.h.SendResponse(en, resp))
	assert.Equal(t, []string{"Enter the subject name"}, en.Texts())
}

func TestMySubjects_Empty(t *testing.T) {
	f := newFixture(t)
	f.study.On("TeacherSubjects", mock.Anything, teacherID).Return(nil, nil)

	c := testutil.NewMessage(teacherID, "/my_subjects")
	require.NoError(t, f.h.MySubjects(c, Request{UserID: teacherID}))

	assert.Equal(t, []string{f.text("subjects.none")}, c.Texts())
}

func TestAnswer_OnlyOnce(t *testing.T) {
	c := testutil.NewCallback(studentID, "x")

	require.NoError(t, Answer(c, "first"))
	require.NoError(t, Answer(c, "second"))

	require.Len(t, c.Responses, 1)
	assert.Equal(t, "first", c.Responses[0].Text)
	assert.NoError(t, Answer(testutil.NewMessage(studentID, "x"), "ignored"))
}
