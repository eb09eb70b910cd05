package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

type Scheduler interface {
	RegisterTasks() error
	Run()
	Shutdown()
}

// ScheduleConfig describes when reminders are scanned and how far ahead.
type ScheduleConfig struct {
	Cron     string
	Horizon  time.Duration
	Location *time.Location
}

type scheduler struct {
	asynqScheduler *asynq.Scheduler
	cfg            ScheduleConfig
	log            *slog.Logger
}

func NewScheduler(redisOpt asynq.RedisConnOpt, cfg ScheduleConfig, log *slog.Logger) Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &scheduler{
		asynqScheduler: asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: cfg.Location}),
		cfg:            cfg,
		log:            log,
	}
}

func (s *scheduler) RegisterTasks() error {
	task, err := NewScanRemindersTask(s.cfg.Horizon)
	if err != nil {
		return err
	}

	if _, err := s.asynqScheduler.Register(s.cfg.Cron, task); err != nil {
		return err
	}

	s.log.InfoContext(context.Background(), "scheduler: registered due-date reminders",
		slog.String("cron", s.cfg.Cron),
		slog.Duration("horizon", s.cfg.Horizon),
		slog.String("timezone", s.cfg.Location.String()),
	)

	return nil
}

func (s *scheduler) Run() {
	s.log.InfoContext(context.Background(), "scheduler: starting")

	if err := s.asynqScheduler.Start(); err != nil {
		s.log.ErrorContext(context.Background(), "scheduler: start failed", slog.Any("error", err))
	}
}

func (s *scheduler) Shutdown() {
	s.log.InfoContext(context.Background(), "scheduler: shutting down")
	s.asynqScheduler.Shutdown()
}
