package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Proton-105/studyhelper-bot/internal/domain"
	"github.com/jmoiron/sqlx"
)

// SolutionRepository defines persistence operations for solutions.
type SolutionRepository interface {
	// Upsert stores the student's solution for a task, replacing an earlier upload and its grade.
	Upsert(ctx context.Context, solution *domain.Solution) error
	FindView(ctx context.Context, id int64) (*domain.SolutionView, error)
	ListByTask(ctx context.Context, taskID int64) ([]domain.SolutionView, error)
	SetGrade(ctx context.Context, id int64, grade int) error
}

type solutionRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewSolutionRepository creates a new SQL-backed solution repository.
func NewSolutionRepository(db *sqlx.DB, log *slog.Logger) SolutionRepository {
	return &solutionRepository{db: db, log: log}
}

const solutionViewColumns = `
	s.id, s.subject_task_id, s.student_id, s.file_link, s.grade, s.created_at,
	st.name AS student_name, st.user_id AS student_user_id
`

func (r *solutionRepository) Upsert(ctx context.Context, solution *domain.Solution) error {
	const query = `
		INSERT INTO solutions (subject_task_id, student_id, file_link)
		VALUES ($1, $2, $3)
		ON CONFLICT (subject_task_id, student_id)
		DO UPDATE SET file_link = EXCLUDED.file_link, grade = NULL, created_at = NOW()
		RETURNING id, grade, created_at
	`

	row := r.db.QueryRowxContext(ctx, query, solution.TaskID, solution.StudentID, solution.FileLink)
	if err := row.Scan(&solution.ID, &solution.Grade, &solution.CreatedAt); err != nil {
		r.log.Error("failed to upsert solution",
			slog.Int64("task_id", solution.TaskID),
			slog.Int64("student_id", solution.StudentID),
			slog.Any("error", err),
		)
		return fmt.Errorf("upsert solution: %w", err)
	}
	return nil
}

func (r *solutionRepository) FindView(ctx context.Context, id int64) (*domain.SolutionView, error) {
	query := `SELECT ` + solutionViewColumns + `
		FROM solutions s
		JOIN students st ON st.id = s.student_id
		WHERE s.id = $1`

	var view domain.SolutionView
	if err := r.db.GetContext(ctx, &view, query, id); err != nil {
		return nil, notFound(err, "select solution")
	}
	return &view, nil
}

func (r *solutionRepository) ListByTask(ctx context.Context, taskID int64) ([]domain.SolutionView, error) {
	query := `SELECT ` + solutionViewColumns + `
		FROM solutions s
		JOIN students st ON st.id = s.student_id
		WHERE s.subject_task_id = $1
		ORDER BY s.created_at`

	var views []domain.SolutionView
	if err := r.db.SelectContext(ctx, &views, query, taskID); err != nil {
		r.log.Error("failed to list solutions", slog.Int64("task_id", taskID), slog.Any("error", err))
		return nil, fmt.Errorf("select solutions: %w", err)
	}
	return views, nil
}

func (r *solutionRepository) SetGrade(ctx context.Context, id int64, grade int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE solutions SET grade = $2 WHERE id = $1`, id, grade)
	if err != nil {
		r.log.Error("failed to grade solution", slog.Int64("solution_id", id), slog.Any("error", err))
		return fmt.Errorf("update grade: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
