package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/studyhelper-bot/internal/domain"
	"github.com/jmoiron/sqlx"
)

// TaskRepository defines persistence operations for subject tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.SubjectTask) error
	Update(ctx context.Context, task *domain.SubjectTask) error
	FindByID(ctx context.Context, id int64) (*domain.SubjectTask, error)
	ListBySubject(ctx context.Context, subjectID int64) ([]domain.SubjectTask, error)
	// PendingReminders lists unsolved tasks due in [from, to] for every enrolled student.
	PendingReminders(ctx context.Context, from, to time.Time) ([]domain.PendingReminder, error)
}

type taskRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewTaskRepository creates a new SQL-backed task repository.
func NewTaskRepository(db *sqlx.DB, log *slog.Logger) TaskRepository {
	return &taskRepository{db: db, log: log}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.SubjectTask) error {
	const query = `
		INSERT INTO subject_tasks (subject_id, name, description, due_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	row := r.db.QueryRowxContext(ctx, query, task.SubjectID, task.Name, task.Description, task.DueDate)
	if err := row.Scan(&task.ID, &task.CreatedAt); err != nil {
		r.log.Error("failed to create task", slog.Int64("subject_id", task.SubjectID), slog.Any("error", err))
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.SubjectTask) error {
	const query = `
		UPDATE subject_tasks
		SET name = :name, description = :description, due_date = :due_date
		WHERE id = :id AND subject_id = :subject_id
	`

	res, err := r.db.NamedExecContext(ctx, query, task)
	if err != nil {
		r.log.Error("failed to update task", slog.Int64("task_id", task.ID), slog.Any("error", err))
		return fmt.Errorf("update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *taskRepository) FindByID(ctx context.Context, id int64) (*domain.SubjectTask, error) {
	var task domain.SubjectTask
	const query = `SELECT id, subject_id, name, description, due_date, created_at FROM subject_tasks WHERE id = $1`
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		return nil, notFound(err, "select task")
	}
	return &task, nil
}

func (r *taskRepository) ListBySubject(ctx context.Context, subjectID int64) ([]domain.SubjectTask, error) {
	var tasks []domain.SubjectTask
	const query = `
		SELECT id, subject_id, name, description, due_date, created_at
		FROM subject_tasks
		WHERE subject_id = $1
		ORDER BY due_date, id
	`
	if err := r.db.SelectContext(ctx, &tasks, query, subjectID); err != nil {
		r.log.Error("failed to list tasks", slog.Int64("subject_id", subjectID), slog.Any("error", err))
		return nil, fmt.Errorf("select tasks: %w", err)
	}
	return tasks, nil
}

func (r *taskRepository) PendingReminders(ctx context.Context, from, to time.Time) ([]domain.PendingReminder, error) {
	const query = `
		SELECT st.user_id AS student_user_id, sb.name AS subject_name,
		       t.id AS task_id, t.name AS task_name, t.due_date
		FROM subject_tasks t
		JOIN subjects sb ON sb.id = t.subject_id
		JOIN subject_students ss ON ss.subject_id = sb.id
		JOIN students st ON st.id = ss.student_id
		LEFT JOIN solutions so ON so.subject_task_id = t.id AND so.student_id = st.id
		WHERE t.due_date BETWEEN $1 AND $2 AND so.id IS NULL
		ORDER BY st.user_id, t.due_date
	`

	var reminders []domain.PendingReminder
	if err := r.db.SelectContext(ctx, &reminders, query, from, to); err != nil {
		r.log.Error("failed to select pending reminders", slog.Any("error", err))
		return nil, fmt.Errorf("select pending reminders: %w", err)
	}
	return reminders, nil
}
