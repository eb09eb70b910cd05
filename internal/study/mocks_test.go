package study

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Proton-105/studyhelper-bot/internal/domain"
)

type mockTeachers struct{ mock.Mock }

func (m *mockTeachers) Exists(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockTeachers) FindByUserID(ctx context.Context, userID int64) (*domain.Teacher, error) {
	args := m.Called(ctx, userID)
	t, _ := args.Get(0).(*domain.Teacher)
	return t, args.Error(1)
}

func (m *mockTeachers) FindByID(ctx context.Context, id int64) (*domain.Teacher, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*domain.Teacher)
	return t, args.Error(1)
}

func (m *mockTeachers) Create(ctx context.Context, userID int64) (*domain.Teacher, error) {
	args := m.Called(ctx, userID)
	t, _ := args.Get(0).(*domain.Teacher)
	return t, args.Error(1)
}

type mockStudents struct{ mock.Mock }

func (m *mockStudents) Exists(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockStudents) FindByUserID(ctx context.Context, userID int64) (*domain.Student, error) {
	args := m.Called(ctx, userID)
	s, _ := args.Get(0).(*domain.Student)
	return s, args.Error(1)
}

func (m *mockStudents) Ensure(ctx context.Context, userID int64, name string) (*domain.Student, error) {
	args := m.Called(ctx, userID, name)
	s, _ := args.Get(0).(*domain.Student)
	return s, args.Error(1)
}

type mockSubjects struct{ mock.Mock }

func (m *mockSubjects) Create(ctx context.Context, subject *domain.Subject) error {
	return m.Called(ctx, subject).Error(0)
}

func (m *mockSubjects) FindByID(ctx context.Context, id int64) (*domain.Subject, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*domain.Subject)
	return s, args.Error(1)
}

func (m *mockSubjects) ListByTeacher(ctx context.Context, teacherID int64) ([]domain.Subject, error) {
	args := m.Called(ctx, teacherID)
	s, _ := args.Get(0).([]domain.Subject)
	return s, args.Error(1)
}

func (m *mockSubjects) ListByStudent(ctx context.Context, studentID int64) ([]domain.Subject, error) {
	args := m.Called(ctx, studentID)
	s, _ := args.Get(0).([]domain.Subject)
	return s, args.Error(1)
}

func (m *mockSubjects) AddStudent(ctx context.Context, subjectID, studentID int64) error {
	return m.Called(ctx, subjectID, studentID).Error(0)
}

func (m *mockSubjects) RemoveStudent(ctx context.Context, subjectID, studentID int64) (bool, error) {
	args := m.Called(ctx, subjectID, studentID)
	return args.Bool(0), args.Error(1)
}

func (m *mockSubjects) IsEnrolled(ctx context.Context, subjectID, studentID int64) (bool, error) {
	args := m.Called(ctx, subjectID, studentID)
	return args.Bool(0), args.Error(1)
}

func (m *mockSubjects) Stats(ctx context.Context, subjectID int64) (*domain.SubjectStats, error) {
	args := m.Called(ctx, subjectID)
	s, _ := args.Get(0).(*domain.SubjectStats)
	return s, args.Error(1)
}

type mockTasks struct{ mock.Mock }

func (m *mockTasks) Create(ctx context.Context, task *domain.SubjectTask) error {
	return m.Called(ctx, task).Error(0)
}

func (m *mockTasks) Update(ctx context.Context, task *domain.SubjectTask) error {
	return m.Called(ctx, task).Error(0)
}

func (m *mockTasks) FindByID(ctx context.Context, id int64) (*domain.SubjectTask, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*domain.SubjectTask)
	return t, args.Error(1)
}

func (m *mockTasks) ListBySubject(ctx context.Context, subjectID int64) ([]domain.SubjectTask, error) {
	args := m.Called(ctx, subjectID)
	t, _ := args.Get(0).([]domain.SubjectTask)
	return t, args.Error(1)
}

func (m *mockTasks) PendingReminders(ctx context.Context, from, to time.Time) ([]domain.PendingReminder, error) {
	args := m.Called(ctx, from, to)
	r, _ := args.Get(0).([]domain.PendingReminder)
	return r, args.Error(1)
}

type mockSolutions struct{ mock.Mock }

func (m *mockSolutions) Upsert(ctx context.Context, solution *domain.Solution) error {
	return m.Called(ctx, solution).Error(0)
}

func (m *mockSolutions) FindView(ctx context.Context, id int64) (*domain.SolutionView, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*domain.SolutionView)
	return v, args.Error(1)
}

func (m *mockSolutions) ListByTask(ctx context.Context, taskID int64) ([]domain.SolutionView, error) {
	args := m.Called(ctx, taskID)
	v, _ := args.Get(0).([]domain.SolutionView)
	return v, args.Error(1)
}

func (m *mockSolutions) SetGrade(ctx context.Context, id int64, grade int) error {
	return m.Called(ctx, id, grade).Error(0)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(ctx context.Context, userID int64, msg Message) error {
	return m.Called(ctx, userID, msg).Error(0)
}

type mockFiles struct{ mock.Mock }

func (m *mockFiles) Fetch(ctx context.Context, fileID string) (io.ReadCloser, int64, error) {
	args := m.Called(ctx, fileID)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Get(1).(int64), args.Error(2)
}

type mockUploader struct{ mock.Mock }

func (m *mockUploader) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return m.Called(ctx, key, r, size, contentType).Error(0)
}

type mockLinker struct{ mock.Mock }

func (m *mockLinker) Link(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}
