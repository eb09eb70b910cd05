package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Proton-105/studyhelper-bot/internal/domain"
	"github.com/jmoiron/sqlx"
)

// TeacherRepository defines persistence operations for teachers.
type TeacherRepository interface {
	Exists(ctx context.Context, userID int64) (bool, error)
	FindByUserID(ctx context.Context, userID int64) (*domain.Teacher, error)
	FindByID(ctx context.Context, id int64) (*domain.Teacher, error)
	// Create registers userID as a teacher; registering twice is a no-op.
	Create(ctx context.Context, userID int64) (*domain.Teacher, error)
}

type teacherRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewTeacherRepository creates a new SQL-backed teacher repository.
func NewTeacherRepository(db *sqlx.DB, log *slog.Logger) TeacherRepository {
	return &teacherRepository{db: db, log: log}
}

func (r *teacherRepository) Exists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM teachers WHERE user_id = $1)`, userID); err != nil {
		r.log.Error("failed to check teacher", slog.Int64("user_id", userID), slog.Any("error", err))
		return false, fmt.Errorf("check teacher: %w", err)
	}
	return exists, nil
}

func (r *teacherRepository) FindByUserID(ctx context.Context, userID int64) (*domain.Teacher, error) {
	var teacher domain.Teacher
	if err := r.db.GetContext(ctx, &teacher, `SELECT id, user_id, created_at FROM teachers WHERE user_id = $1`, userID); err != nil {
		return nil, notFound(err, "select teacher by user id")
	}
	return &teacher, nil
}

func (r *teacherRepository) FindByID(ctx context.Context, id int64) (*domain.Teacher, error) {
	var teacher domain.Teacher
	if err := r.db.GetContext(ctx, &teacher, `SELECT id, user_id, created_at FROM teachers WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "select teacher")
	}
	return &teacher, nil
}

func (r *teacherRepository) Create(ctx context.Context, userID int64) (*domain.Teacher, error) {
	const query = `
		INSERT INTO teachers (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, created_at
	`

	var teacher domain.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, userID); err != nil {
		r.log.Error("failed to create teacher", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("insert teacher: %w", err)
	}
	return &teacher, nil
}

// StudentRepository defines persistence operations for students.
type StudentRepository interface {
	Exists(ctx context.Context, userID int64) (bool, error)
	FindByUserID(ctx context.Context, userID int64) (*domain.Student, error)
	// Ensure returns the student for userID, creating it with name when absent.
	Ensure(ctx context.Context, userID int64, name string) (*domain.Student, error)
}

type studentRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewStudentRepository creates a new SQL-backed student repository.
func NewStudentRepository(db *sqlx.DB, log *slog.Logger) StudentRepository {
	return &studentRepository{db: db, log: log}
}

func (r *studentRepository) Exists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM students WHERE user_id = $1)`, userID); err != nil {
		r.log.Error("failed to check student", slog.Int64("user_id", userID), slog.Any("error", err))
		return false, fmt.Errorf("check student: %w", err)
	}
	return exists, nil
}

func (r *studentRepository) FindByUserID(ctx context.Context, userID int64) (*domain.Student, error) {
	var student domain.Student
	if err := r.db.GetContext(ctx, &student, `SELECT id, user_id, name, created_at FROM students WHERE user_id = $1`, userID); err != nil {
		return nil, notFound(err, "select student by user id")
	}
	return &student, nil
}

func (r *studentRepository) Ensure(ctx context.Context, userID int64, name string) (*domain.Student, error) {
	const query = `
		INSERT INTO students (user_id, name)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET name = COALESCE(NULLIF(EXCLUDED.name, ''), students.name)
		RETURNING id, user_id, name, created_at
	`

	var student domain.Student
	if err := r.db.GetContext(ctx, &student, query, userID, name); err != nil {
		r.log.Error("failed to ensure student", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("upsert student: %w", err)
	}
	return &student, nil
}
