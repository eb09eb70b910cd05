// Package study implements the bot's domain actions on top of the repositories, object storage and transport.
package study

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/volatiletech/null/v8"

	"github.com/Proton-105/studyhelper-bot/internal/callback"
	"github.com/Proton-105/studyhelper-bot/internal/conversation"
	"github.com/Proton-105/studyhelper-bot/internal/domain"
	apperrors "github.com/Proton-105/studyhelper-bot/internal/errors"
	"github.com/Proton-105/studyhelper-bot/internal/objectstore"
	"github.com/Proton-105/studyhelper-bot/internal/repository"
)

var (
	// ErrNotOwner is returned when a teacher acts on a subject they do not own.
	ErrNotOwner = errors.New("subject belongs to another teacher")
	// ErrNotEnrolled is returned when a student acts on a subject they are not enrolled in.
	ErrNotEnrolled = errors.New("student is not enrolled in the subject")
)

// Button is an inline button carried by a notification. Text is a catalog key.
type Button struct {
	Text string
	Data string
}

// Line is a catalog key with the arguments for its format verbs.
type Line struct {
	Key  string
	Args []any
}

// Message is an outbound notification. Its texts are catalog keys resolved by the Notifier
// in the recipient's language. Lines are rendered one per row below the main text.
type Message struct {
	Key     string
	Args    []any
	Lines   []Line
	Buttons [][]Button
}

// Notifier delivers messages to users other than the one being answered.
type Notifier interface {
	Notify(ctx context.Context, userID int64, msg Message) error
}

// FileFetcher downloads a file attached to a chat message.
type FileFetcher interface {
	Fetch(ctx context.Context, fileID string) (io.ReadCloser, int64, error)
}

// Service is the domain facade used by handlers, the conversation committer and jobs.
type Service struct {
	repos    *repository.Repositories
	files    FileFetcher
	uploader objectstore.Uploader
	linker   objectstore.Linker
	notifier Notifier
	botName  string
	log      *slog.Logger
}

// Deps groups Service collaborators.
type Deps struct {
	Repos    *repository.Repositories
	Files    FileFetcher
	Uploader objectstore.Uploader
	Linker   objectstore.Linker
	Notifier Notifier
	BotName  string
	Log      *slog.Logger
}

// NewService constructs a Service.
func NewService(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		repos:    d.Repos,
		files:    d.Files,
		uploader: d.Uploader,
		linker:   d.Linker,
		notifier: d.Notifier,
		botName:  d.BotName,
		log:      log,
	}
}

// SetNotifier replaces the notifier once the transport exists.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetFileFetcher replaces the file fetcher once the transport exists.
func (s *Service) SetFileFetcher(f FileFetcher) {
	s.files = f
}

// Commit executes a confirmed conversation intent.
func (s *Service) Commit(ctx context.Context, userID int64, intent conversation.Intent) error {
	var err error

	switch in := intent.(type) {
	case conversation.CreateSubject:
		err = s.createSubject(ctx, in)
	case conversation.CreateTask:
		err = s.createTask(ctx, userID, in)
	case conversation.UpdateTask:
		err = s.updateTask(ctx, userID, in)
	case conversation.CreateSolution:
		err = s.createSolution(ctx, in)
	case conversation.SendSupportMessage:
		err = s.sendSupportMessage(ctx, in)
	default:
		err = fmt.Errorf("unsupported intent %T", intent)
	}

	if err != nil {
		return apperrors.NewCommitError(intent.Kind(), err)
	}
	return nil
}

func (s *Service) createSubject(ctx context.Context, in conversation.CreateSubject) error {
	teacher, err := s.repos.Teachers.FindByUserID(ctx, in.TeacherID)
	if err != nil {
		return fmt.Errorf("find teacher: %w", err)
	}

	subject := &domain.Subject{Name: in.Name, Description: in.Description, TeacherID: teacher.ID}
	if err := s.repos.Subjects.Create(ctx, subject); err != nil {
		return err
	}

	s.log.Info("subject created", slog.Int64("subject_id", subject.ID), slog.Int64("teacher_id", teacher.ID))
	return nil
}

func (s *Service) createTask(ctx context.Context, userID int64, in conversation.CreateTask) error {
	if _, err := s.ownedSubject(ctx, userID, in.SubjectID); err != nil {
		return err
	}

	task := &domain.SubjectTask{
		SubjectID:   in.SubjectID,
		Name:        in.Name,
		Description: in.Description,
		DueDate:     in.DueDate,
	}
	return s.repos.Tasks.Create(ctx, task)
}

func (s *Service) updateTask(ctx context.Context, userID int64, in conversation.UpdateTask) error {
	if _, err := s.ownedSubject(ctx, userID, in.SubjectID); err != nil {
		return err
	}

	task := &domain.SubjectTask{
		ID:          in.TaskID,
		SubjectID:   in.SubjectID,
		Name:        in.Name,
		Description: in.Description,
		DueDate:     in.DueDate,
	}
	return s.repos.Tasks.Update(ctx, task)
}

func (s *Service) createSolution(ctx context.Context, in conversation.CreateSolution) error {
	student, err := s.repos.Students.FindByUserID(ctx, in.StudentUserID)
	if err != nil {
		return fmt.Errorf("find student: %w", err)
	}

	task, err := s.repos.Tasks.FindByID(ctx, in.TaskID)
	if err != nil {
		return fmt.Errorf("find task: %w", err)
	}

	enrolled, err := s.repos.Subjects.IsEnrolled(ctx, task.SubjectID, student.ID)
	if err != nil {
		return err
	}
	if !enrolled {
		return ErrNotEnrolled
	}

	body, size, err := s.files.Fetch(ctx, in.FileID)
	if err != nil {
		return fmt.Errorf("download solution file: %w", err)
	}
	defer body.Close()

	key := objectstore.SolutionKey(task.ID, in.StudentUserID, in.FileName)
	if err := s.uploader.Upload(ctx, key, body, size, ""); err != nil {
		return err
	}

	solution := &domain.Solution{TaskID: task.ID, StudentID: student.ID, FileLink: key}
	if err := s.repos.Solutions.Upsert(ctx, solution); err != nil {
		return err
	}

	s.log.Info("solution stored",
		slog.Int64("solution_id", solution.ID),
		slog.Int64("task_id", task.ID),
		slog.Int64("student_id", student.ID),
	)
	return nil
}

func (s *Service) sendSupportMessage(ctx context.Context, in conversation.SendSupportMessage) error {
	reply := callback.SupportAction{Mode: in.Mode, CounterpartID: in.SenderID, AsInitiator: !in.AsInitiator}
	replyToken, err := callback.Encode(reply)
	if err != nil {
		return err
	}

	header := "notify.from_student"
	if !in.AsInitiator {
		header = "notify.from_teacher"
	}

	msg := Message{
		Key:     header,
		Args:    []any{in.Text},
		Buttons: [][]Button{{{Text: "notify.reply", Data: replyToken}}},
	}
	if err := s.notifier.Notify(ctx, in.CounterpartID, msg); err != nil {
		return fmt.Errorf("deliver support message: %w", err)
	}

	cancelToken, err := callback.Encode(callback.CancelSupportAction{CounterpartID: in.CounterpartID})
	if err != nil {
		return err
	}
	closeMsg := Message{
		Key:     "notify.close_offer",
		Buttons: [][]Button{{{Text: "notify.close", Data: cancelToken}}},
	}
	if err := s.notifier.Notify(ctx, in.SenderID, closeMsg); err != nil {
		s.log.Warn("failed to offer support cancel button", slog.Int64("user_id", in.SenderID), slog.Any("error", err))
	}
	return nil
}

// Grade stores a grade given by the owning teacher and notifies the student. A failed notification is logged only.
func (s *Service) Grade(ctx context.Context, teacherUserID, solutionID int64, grade int) (*domain.SolutionView, error) {
	if grade < domain.MinGrade || grade > domain.MaxGrade {
		return nil, apperrors.NewValidationError(fmt.Sprintf("Grade must be between %d and %d.", domain.MinGrade, domain.MaxGrade))
	}

	view, err := s.repos.Solutions.FindView(ctx, solutionID)
	if err != nil {
		return nil, err
	}

	task, err := s.repos.Tasks.FindByID(ctx, view.TaskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedSubject(ctx, teacherUserID, task.SubjectID); err != nil {
		return nil, err
	}

	if err := s.repos.Solutions.SetGrade(ctx, solutionID, grade); err != nil {
		return nil, err
	}
	view.Grade = null.IntFrom(grade)

	s.log.Info("solution graded",
		slog.Int64("solution_id", solutionID),
		slog.Int("grade", grade),
		slog.Int64("teacher_user_id", teacherUserID),
	)

	note := Message{Key: "notify.graded", Args: []any{task.Name, grade}}
	if err := s.notifier.Notify(ctx, view.StudentUserID, note); err != nil {
		s.log.Warn("failed to notify student about grade",
			slog.Int64("student_user_id", view.StudentUserID),
			slog.Int64("solution_id", solutionID),
			slog.Any("error", err),
		)
	}

	return view, nil
}

// SolutionListing is a solution with a temporary download link.
type SolutionListing struct {
	domain.SolutionView
	Link string
}

// Solutions lists a task's solutions for its teacher. A link that cannot be minted is left empty.
func (s *Service) Solutions(ctx context.Context, teacherUserID, subjectID, taskID int64) (*domain.SubjectTask, []SolutionListing, error) {
	if _, err := s.ownedSubject(ctx, teacherUserID, subjectID); err != nil {
		return nil, nil, err
	}

	task, err := s.repos.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if task.SubjectID != subjectID {
		return nil, nil, repository.ErrNotFound
	}

	views, err := s.repos.Solutions.ListByTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}

	out := make([]SolutionListing, 0, len(views))
	for _, v := range views {
		link, err := s.linker.Link(ctx, v.FileLink)
		if err != nil {
			s.log.Warn("failed to mint solution link", slog.Int64("solution_id", v.ID), slog.Any("error", err))
		}
		out = append(out, SolutionListing{SolutionView: v, Link: link})
	}
	return task, out, nil
}

// AddTeacher registers userID as a teacher.
func (s *Service) AddTeacher(ctx context.Context, userID int64) error {
	_, err := s.repos.Teachers.Create(ctx, userID)
	return err
}

// Task returns a task after checking it belongs to subjectID.
func (s *Service) Task(ctx context.Context, subjectID, taskID int64) (*domain.SubjectTask, error) {
	task, err := s.repos.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.SubjectID != subjectID {
		return nil, repository.ErrNotFound
	}
	return task, nil
}

// OwnsSubject reports whether teacherUserID owns subjectID.
func (s *Service) OwnsSubject(ctx context.Context, teacherUserID, subjectID int64) (bool, error) {
	_, err := s.ownedSubject(ctx, teacherUserID, subjectID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotOwner):
		return false, nil
	default:
		return false, err
	}
}

// StudentCanSubmit reports whether the student is enrolled in the task's subject.
func (s *Service) StudentCanSubmit(ctx context.Context, studentUserID, subjectID int64) (bool, error) {
	student, err := s.repos.Students.FindByUserID(ctx, studentUserID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.repos.Subjects.IsEnrolled(ctx, subjectID, student.ID)
}

func (s *Service) ownedSubject(ctx context.Context, teacherUserID, subjectID int64) (*domain.Subject, error) {
	subject, err := s.repos.Subjects.FindByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	teacher, err := s.repos.Teachers.FindByID(ctx, subject.TeacherID)
	if err != nil {
		return nil, err
	}
	if teacher.UserID != teacherUserID {
		return nil, ErrNotOwner
	}
	return subject, nil
}
