// Package repository implements PostgreSQL persistence for subjects, tasks, solutions and their people.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("record not found")

// Open connects to PostgreSQL through sqlx and verifies the connection.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// Repositories groups every repository sharing one connection pool.
type Repositories struct {
	Teachers  TeacherRepository
	Students  StudentRepository
	Subjects  SubjectRepository
	Tasks     TaskRepository
	Solutions SolutionRepository
}

// New builds all repositories over db.
func New(db *sqlx.DB, log *slog.Logger) *Repositories {
	if log == nil {
		log = slog.Default()
	}

	return &Repositories{
		Teachers:  NewTeacherRepository(db, log),
		Students:  NewStudentRepository(db, log),
		Subjects:  NewSubjectRepository(db, log),
		Tasks:     NewTaskRepository(db, log),
		Solutions: NewSolutionRepository(db, log),
	}
}

// notFound maps sql.ErrNoRows to ErrNotFound and wraps anything else.
func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// RoleDirectory answers role membership from the teacher and student tables.
type RoleDirectory struct {
	teachers TeacherRepository
	students StudentRepository
}

// NewRoleDirectory constructs a RoleDirectory.
func NewRoleDirectory(teachers TeacherRepository, students StudentRepository) *RoleDirectory {
	return &RoleDirectory{teachers: teachers, students: students}
}

func (d *RoleDirectory) IsTeacher(ctx context.Context, userID int64) (bool, error) {
	return d.teachers.Exists(ctx, userID)
}

func (d *RoleDirectory) IsStudent(ctx context.Context, userID int64) (bool, error) {
	return d.students.Exists(ctx, userID)
}
