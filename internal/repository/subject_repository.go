package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Proton-105/studyhelper-bot/internal/domain"
	"github.com/jmoiron/sqlx"
)

// SubjectRepository defines persistence operations for subjects and their enrollments.
type SubjectRepository interface {
	Create(ctx context.Context, subject *domain.Subject) error
	FindByID(ctx context.Context, id int64) (*domain.Subject, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]domain.Subject, error)
	ListByStudent(ctx context.Context, studentID int64) ([]domain.Subject, error)
	// AddStudent enrolls a student; enrolling twice is a no-op.
	AddStudent(ctx context.Context, subjectID, studentID int64) error
	// RemoveStudent drops an enrollment and reports whether one existed.
	RemoveStudent(ctx context.Context, subjectID, studentID int64) (bool, error)
	IsEnrolled(ctx context.Context, subjectID, studentID int64) (bool, error)
	Stats(ctx context.Context, subjectID int64) (*domain.SubjectStats, error)
}

type subjectRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewSubjectRepository creates a new SQL-backed subject repository.
func NewSubjectRepository(db *sqlx.DB, log *slog.Logger) SubjectRepository {
	return &subjectRepository{db: db, log: log}
}

func (r *subjectRepository) Create(ctx context.Context, subject *domain.Subject) error {
	const query = `
		INSERT INTO subjects (name, description, teacher_id)
		VALUES (:name, :description, :teacher_id)
		RETURNING id, created_at
	`

	rows, err := r.db.NamedQueryContext(ctx, query, subject)
	if err != nil {
		r.log.Error("failed to create subject", slog.Int64("teacher_id", subject.TeacherID), slog.Any("error", err))
		return fmt.Errorf("insert subject: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&subject.ID, &subject.CreatedAt); err != nil {
			return fmt.Errorf("scan subject id: %w", err)
		}
	}
	return rows.Err()
}

func (r *subjectRepository) FindByID(ctx context.Context, id int64) (*domain.Subject, error) {
	var subject domain.Subject
	const query = `SELECT id, name, description, teacher_id, created_at FROM subjects WHERE id = $1`
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, notFound(err, "select subject")
	}
	return &subject, nil
}

func (r *subjectRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]domain.Subject, error) {
	var subjects []domain.Subject
	const query = `
		SELECT id, name, description, teacher_id, created_at
		FROM subjects
		WHERE teacher_id = $1
		ORDER BY id
	`
	if err := r.db.SelectContext(ctx, &subjects, query, teacherID); err != nil {
		r.log.Error("failed to list teacher subjects", slog.Int64("teacher_id", teacherID), slog.Any("error", err))
		return nil, fmt.Errorf("select teacher subjects: %w", err)
	}
	return subjects, nil
}

func (r *subjectRepository) ListByStudent(ctx context.Context, studentID int64) ([]domain.Subject, error) {
	var subjects []domain.Subject
	const query = `
		SELECT s.id, s.name, s.description, s.teacher_id, s.created_at
		FROM subjects s
		JOIN subject_students ss ON ss.subject_id = s.id
		WHERE ss.student_id = $1
		ORDER BY s.id
	`
	if err := r.db.SelectContext(ctx, &subjects, query, studentID); err != nil {
		return nil, fmt.Errorf("select student subjects: %w", err)
	}
	return subjects, nil
}

func (r *subjectRepository) AddStudent(ctx context.Context, subjectID, studentID int64) error {
	const query = `
		INSERT INTO subject_students (subject_id, student_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, subjectID, studentID); err != nil {
		r.log.Error("failed to enroll student",
			slog.Int64("subject_id", subjectID),
			slog.Int64("student_id", studentID),
			slog.Any("error", err),
		)
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

func (r *subjectRepository) RemoveStudent(ctx context.Context, subjectID, studentID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subject_students WHERE subject_id = $1 AND student_id = $2`, subjectID, studentID)
	if err != nil {
		return false, fmt.Errorf("delete enrollment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete enrollment: %w", err)
	}
	return n > 0, nil
}

func (r *subjectRepository) IsEnrolled(ctx context.Context, subjectID, studentID int64) (bool, error) {
	var enrolled bool
	const query = `SELECT EXISTS (SELECT 1 FROM subject_students WHERE subject_id = $1 AND student_id = $2)`
	if err := r.db.GetContext(ctx, &enrolled, query, subjectID, studentID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return enrolled, nil
}

func (r *subjectRepository) Stats(ctx context.Context, subjectID int64) (*domain.SubjectStats, error) {
	subject, err := r.FindByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	stats := &domain.SubjectStats{Subject: *subject}

	if err := r.db.GetContext(ctx, &stats.Students,
		`SELECT COUNT(*) FROM subject_students WHERE subject_id = $1`, subjectID); err != nil {
		return nil, fmt.Errorf("count students: %w", err)
	}

	const tasksQuery = `
		SELECT t.id AS task_id, t.name AS task_name, COUNT(s.id) AS solutions
		FROM subject_tasks t
		LEFT JOIN solutions s ON s.subject_task_id = t.id
		WHERE t.subject_id = $1
		GROUP BY t.id, t.name
		ORDER BY t.id
	`
	if err := r.db.SelectContext(ctx, &stats.Tasks, tasksQuery, subjectID); err != nil {
		return nil, fmt.Errorf("select task stats: %w", err)
	}

	const gradesQuery = `
		SELECT s.grade AS grade, COUNT(*) AS count
		FROM solutions s
		JOIN subject_tasks t ON t.id = s.subject_task_id
		WHERE t.subject_id = $1 AND s.grade IS NOT NULL
		GROUP BY s.grade
		ORDER BY s.grade
	`
	if err := r.db.SelectContext(ctx, &stats.Grades, gradesQuery, subjectID); err != nil {
		return nil, fmt.Errorf("select grade histogram: %w", err)
	}

	return stats, nil
}
