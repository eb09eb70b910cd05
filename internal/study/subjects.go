package study

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Proton-105/studyhelper-bot/internal/domain"
)

// LinkedSubject is a teacher's subject with its share links.
type LinkedSubject struct {
	Subject domain.Subject
	Links   []NamedLink
}

// NamedLink is a labelled deep link.
type NamedLink struct {
	Text string
	URL  string
}

var teacherLinkSet = []struct {
	key  string
	text string
}{
	{LinkAddSubject, "invite"},
	{LinkAddTask, "add task"},
	{LinkSeeTasks, "tasks"},
	{LinkSubjectStats, "stats"},
	{LinkAskTeacher, "ask teacher"},
	{LinkQuitSubject, "leave"},
}

// TeacherSubjects lists the teacher's subjects with every deep link they can share.
func (s *Service) TeacherSubjects(ctx context.Context, teacherUserID int64) ([]LinkedSubject, error) {
	teacher, err := s.repos.Teachers.FindByUserID(ctx, teacherUserID)
	if err != nil {
		return nil, err
	}

	subjects, err := s.repos.Subjects.ListByTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, err
	}

	out := make([]LinkedSubject, 0, len(subjects))
	for _, subject := range subjects {
		ls := LinkedSubject{Subject: subject}
		for _, l := range teacherLinkSet {
			ls.Links = append(ls.Links, NamedLink{
				Text: l.text,
				URL:  StartURL(s.botName, DeepLink{Key: l.key, ID: subject.ID}),
			})
		}
		out = append(out, ls)
	}
	return out, nil
}

// Enroll adds the user to the subject, registering them as a student first when needed.
func (s *Service) Enroll(ctx context.Context, userID int64, name string, subjectID int64) (*domain.Subject, error) {
	subject, err := s.repos.Subjects.FindByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	student, err := s.repos.Students.Ensure(ctx, userID, name)
	if err != nil {
		return nil, err
	}

	if err := s.repos.Subjects.AddStudent(ctx, subject.ID, student.ID); err != nil {
		return nil, err
	}
	return subject, nil
}

// Unenroll removes the student from the subject.
func (s *Service) Unenroll(ctx context.Context, userID, subjectID int64) (*domain.Subject, error) {
	subject, err := s.repos.Subjects.FindByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	student, err := s.repos.Students.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	removed, err := s.repos.Subjects.RemoveStudent(ctx, subject.ID, student.ID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, ErrNotEnrolled
	}
	return subject, nil
}

// SubjectTasks returns a subject and its tasks.
func (s *Service) SubjectTasks(ctx context.Context, subjectID int64) (*domain.Subject, []domain.SubjectTask, error) {
	subject, err := s.repos.Subjects.FindByID(ctx, subjectID)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := s.repos.Tasks.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, nil, err
	}
	return subject, tasks, nil
}

// SubjectTeacher returns the subject and the user id of its teacher.
func (s *Service) SubjectTeacher(ctx context.Context, subjectID int64) (*domain.Subject, int64, error) {
	subject, err := s.repos.Subjects.FindByID(ctx, subjectID)
	if err != nil {
		return nil, 0, err
	}
	teacher, err := s.repos.Teachers.FindByID(ctx, subject.TeacherID)
	if err != nil {
		return nil, 0, err
	}
	return subject, teacher.UserID, nil
}

// Stats returns subject statistics for its teacher.
func (s *Service) Stats(ctx context.Context, teacherUserID, subjectID int64) (*domain.SubjectStats, error) {
	if _, err := s.ownedSubject(ctx, teacherUserID, subjectID); err != nil {
		return nil, err
	}
	return s.repos.Subjects.Stats(ctx, subjectID)
}

// FormatStats renders statistics as text with a bar per grade.
func FormatStats(st *domain.SubjectStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stats for subject %s\nStudents: %d\n", st.Subject.Name, st.Students)

	if len(st.Tasks) == 0 {
		b.WriteString("No data")
		return b.String()
	}

	b.WriteString("\nSolutions per task:\n")
	for _, t := range st.Tasks {
		fmt.Fprintf(&b, "- %s: %d\n", t.TaskName, t.Solutions)
	}

	if len(st.Grades) == 0 {
		b.WriteString("\nNo grades yet")
		return b.String()
	}

	b.WriteString("\nGrades:\n")
	for _, g := range st.Grades {
		fmt.Fprintf(&b, "%2d | %s %d\n", g.Grade, strings.Repeat("#", g.Count), g.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ReminderItem is one unsolved task in a digest.
type ReminderItem struct {
	Subject string    `json:"subject"`
	Task    string    `json:"task"`
	Due     time.Time `json:"due"`
}

// Reminder is one student's digest of unsolved tasks.
type Reminder struct {
	StudentUserID int64
	Items         []ReminderItem
}

// ReminderMessage renders a digest as a notification.
func ReminderMessage(items []ReminderItem) Message {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{Key: "reminders.item", Args: []any{it.Subject, it.Task, it.Due.Format("02/01/2006")}})
	}
	return Message{Key: "reminders.header", Lines: lines}
}

// PendingReminders builds one digest per student for tasks due in [from, to].
func (s *Service) PendingReminders(ctx context.Context, from, to time.Time) ([]Reminder, error) {
	rows, err := s.repos.Tasks.PendingReminders(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return GroupReminders(rows), nil
}

// GroupReminders folds pending rows into per-student digests ordered by user id.
func GroupReminders(rows []domain.PendingReminder) []Reminder {
	byStudent := make(map[int64][]ReminderItem)
	for _, r := range rows {
		byStudent[r.StudentUserID] = append(byStudent[r.StudentUserID], ReminderItem{
			Subject: r.SubjectName,
			Task:    r.TaskName,
			Due:     r.DueDate,
		})
	}

	ids := make([]int64, 0, len(byStudent))
	for id := range byStudent {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Reminder, 0, len(ids))
	for _, id := range ids {
		out = append(out, Reminder{StudentUserID: id, Items: byStudent[id]})
	}
	return out
}
