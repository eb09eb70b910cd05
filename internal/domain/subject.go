// Package domain holds the entities persisted by the bot.
package domain

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Grade bounds accepted by the grade keyboard.
const (
	MinGrade = 1
	MaxGrade = 10
)

// Subject is a course owned by a teacher.
type Subject struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	TeacherID   int64     `db:"teacher_id"`
	CreatedAt   time.Time `db:"created_at"`
}

// SubjectTask is an assignment inside a subject.
type SubjectTask struct {
	ID          int64     `db:"id"`
	SubjectID   int64     `db:"subject_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	DueDate     time.Time `db:"due_date"`
	CreatedAt   time.Time `db:"created_at"`
}

// Solution is a student's submission for a task. Grade is null until the teacher grades it.
type Solution struct {
	ID        int64     `db:"id"`
	TaskID    int64     `db:"subject_task_id"`
	StudentID int64     `db:"student_id"`
	FileLink  string    `db:"file_link"`
	Grade     null.Int  `db:"grade"`
	CreatedAt time.Time `db:"created_at"`
}

// Graded reports whether the solution has a grade.
func (s Solution) Graded() bool {
	return s.Grade.Valid
}

// SolutionView joins a solution with its student for listing to a teacher.
type SolutionView struct {
	Solution
	StudentName   string `db:"student_name"`
	StudentUserID int64  `db:"student_user_id"`
}

// TaskStats counts solutions for one task.
type TaskStats struct {
	TaskID    int64  `db:"task_id"`
	TaskName  string `db:"task_name"`
	Solutions int    `db:"solutions"`
}

// GradeCount is one bar of a grade histogram.
type GradeCount struct {
	Grade int `db:"grade"`
	Count int `db:"count"`
}

// SubjectStats aggregates a subject's progress.
type SubjectStats struct {
	Subject  Subject
	Students int
	Tasks    []TaskStats
	Grades   []GradeCount
}

// PendingReminder is a task close to its due date that a student has not solved yet.
type PendingReminder struct {
	StudentUserID int64     `db:"student_user_id"`
	SubjectName   string    `db:"subject_name"`
	TaskID        int64     `db:"task_id"`
	TaskName      string    `db:"task_name"`
	DueDate       time.Time `db:"due_date"`
}
