package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Proton-105/studyhelper-bot/internal/auth"
	"github.com/Proton-105/studyhelper-bot/internal/bot"
	"github.com/Proton-105/studyhelper-bot/internal/conversation"
	"github.com/Proton-105/studyhelper-bot/internal/database"
	"github.com/Proton-105/studyhelper-bot/internal/health"
	"github.com/Proton-105/studyhelper-bot/internal/i18n"
	"github.com/Proton-105/studyhelper-bot/internal/idempotency"
	"github.com/Proton-105/studyhelper-bot/internal/jobs"
	jobhandlers "github.com/Proton-105/studyhelper-bot/internal/jobs/handlers"
	"github.com/Proton-105/studyhelper-bot/internal/lifecycle"
	"github.com/Proton-105/studyhelper-bot/internal/middleware"
	"github.com/Proton-105/studyhelper-bot/internal/objectstore"
	"github.com/Proton-105/studyhelper-bot/internal/ratelimit"
	"github.com/Proton-105/studyhelper-bot/internal/repository"
	"github.com/Proton-105/studyhelper-bot/internal/state"
	"github.com/Proton-105/studyhelper-bot/internal/study"
	"github.com/Proton-105/studyhelper-bot/migrations"
	"github.com/Proton-105/studyhelper-bot/pkg/config"
	"github.com/Proton-105/studyhelper-bot/pkg/graceful"
	"github.com/Proton-105/studyhelper-bot/pkg/logger"
	"github.com/Proton-105/studyhelper-bot/pkg/metrics"
	appredis "github.com/Proton-105/studyhelper-bot/pkg/redis"
)

const (
	workerConcurrency = 5
	rateLimitSweep    = time.Minute
	rateLimitMaxAge   = time.Hour
	linkCacheShare    = 2
)

func main() {
	if err := run(); err != nil {
		slog.Error("study helper bot stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.AppEnv}); err != nil {
			return err
		}
		defer sentry.Flush(2 * time.Second)
	}

	log := logger.New(*cfg)
	slog.SetDefault(log)
	log.Info("starting study helper bot",
		slog.String("mode", cfg.Bot.Mode),
		slog.String("http_port", cfg.Server.Port),
		slog.String("session_backend", cfg.Session.Backend),
	)

	db, err := repository.Open(ctx, cfg.GetDBConnectionString())
	if err != nil {
		return err
	}

	migrator := database.NewMigrator(db.DB, log)
	if dir := cfg.Postgres.MigrationsDir; dir != "" && dirExists(dir) {
		err = migrator.ApplyDir(ctx, dir)
	} else {
		err = migrator.ApplyFS(ctx, migrations.FS, ".")
	}
	if err != nil {
		_ = db.Close()
		return err
	}
	log.Info("database migrations applied")

	rdb, err := appredis.New(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return err
	}

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("postgres", lifecycle.PhaseStorage, func(context.Context) error { return db.Close() })
	shutdown.Register("redis", lifecycle.PhaseStorage, func(context.Context) error { return rdb.Close() })

	running := false
	defer func() {
		if !running {
			_ = shutdown.Execute(context.Background())
		}
	}()

	sessions := newSessions(*cfg, rdb, log)

	repos := repository.New(db, log)
	admins := auth.NewAdminList(cfg.Auth.Admins)
	resolver := auth.NewResolver(admins, repository.NewRoleDirectory(repos.Teachers, repos.Students), log)
	gate := auth.NewGate(resolver)
	config.WatchAdmins(v, func(ids []int64) {
		resolver.Admins().Set(ids)
		log.Info("admin list reloaded", slog.Int("count", len(ids)))
	})

	store, err := objectstore.New(cfg.Storage, log)
	if err != nil {
		return err
	}
	linker, err := objectstore.NewCachedLinker(ctx, store, store.Expiry()/linkCacheShare, log)
	if err != nil {
		return err
	}
	shutdown.Register("link-cache", lifecycle.PhaseStorage, func(context.Context) error { return linker.Close() })

	studySvc := study.NewService(study.Deps{
		Repos:    repos,
		Uploader: store,
		Linker:   linker,
		BotName:  cfg.Bot.Username,
		Log:      log,
	})

	engine, err := conversation.NewEngine(sessions, studySvc, log, conversation.DefaultFlows(cfg.Location()))
	if err != nil {
		return err
	}

	translations, err := i18n.Load(cfg.Bot.Language)
	if err != nil {
		return err
	}

	idem := idempotency.NewManager(idempotency.NewRedisStore(rdb, log), idempotency.DefaultTTL, log)

	memoryLimiter := ratelimit.NewMemoryLimiter(log)
	limiter := ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(rdb, log), memoryLimiter, log)
	rateLimit := middleware.NewRateLimitMiddleware(limiter, ratelimit.NewRules(cfg.RateLimit), log)

	b, err := bot.New(bot.Deps{
		Config:      *cfg,
		Log:         log,
		Gate:        gate,
		Engine:      engine,
		Sessions:    sessions,
		Study:       studySvc,
		I18n:        translations,
		Idempotency: idem,
		RateLimit:   rateLimit,
	})
	if err != nil {
		return err
	}

	queue := jobs.NewManager(cfg.Redis.AsynqOpt(), log)
	shutdown.Register("job-client", lifecycle.PhaseStorage, func(context.Context) error { return queue.Close() })

	worker := jobs.NewWorker(cfg.Redis.AsynqOpt(), jobs.Queues, workerConcurrency, log)
	worker.RegisterHandler(jobs.TaskTypeScanReminders, jobhandlers.NewScanRemindersHandler(studySvc, queue, log))
	worker.RegisterHandler(jobs.TaskTypeSendReminder, jobhandlers.NewSendReminderHandler(b.Notifier(), log))
	if err := worker.Start(); err != nil {
		return err
	}
	shutdown.Register("job-worker", lifecycle.PhaseWorkers, func(context.Context) error {
		worker.Shutdown()
		return nil
	})

	if cfg.Reminders.Enabled {
		scheduler := jobs.NewScheduler(cfg.Redis.AsynqOpt(), jobs.ScheduleConfig{
			Cron:     cfg.Reminders.Cron,
			Horizon:  cfg.Reminders.Horizon,
			Location: cfg.Location(),
		}, log)
		if err := scheduler.RegisterTasks(); err != nil {
			return err
		}
		scheduler.Run()
		shutdown.Register("job-scheduler", lifecycle.PhaseIntake, func(context.Context) error {
			scheduler.Shutdown()
			return nil
		})
	}

	go state.NewCleaner(sessions, log, cfg.Session.TTL, cfg.Session.CleanupInterval).Run(ctx)
	go ratelimit.NewCleaner(rdb, memoryLimiter, log, rateLimitSweep, rateLimitMaxAge).Run(ctx)
	go metrics.NewStateCollector(sessions).Run(ctx)

	checker := health.NewChecker(log)
	checker.AddCheck("postgres", health.NewDBChecker(db.DB))
	checker.AddCheck("redis", health.NewRedisChecker(rdb))
	checker.AddCheck("storage", health.CheckFunc(store.Ping))
	checker.AddCheck("telegram", health.NewTelegramChecker(b.Telebot()))
	probes := lifecycle.NewProbes(checker, log)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	probes.Register(mux)
	server := graceful.New(cfg.Server.Port, middleware.New(log)(mux), log, cfg.Server.ShutdownTimeout)

	serverErr := make(chan error, 1)
	serverCtx, stopServer := context.WithCancel(context.Background())
	defer stopServer()
	go func() { serverErr <- server.ListenAndServe(serverCtx) }()

	shutdown.Register("telegram", lifecycle.PhaseIntake, func(context.Context) error {
		b.Stop()
		return nil
	})

	running = true
	go b.Start()
	log.Info("study helper bot started", slog.String("username", cfg.Bot.Username))

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			log.Error("http server failed", slog.Any("error", err))
		}
	}

	log.Info("study helper bot shutting down")
	probes.Drain()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	err = shutdown.Execute(shutdownCtx)
	stopServer()
	return err
}

func newSessions(cfg config.Config, rdb *redis.Client, log *slog.Logger) state.StateMachine {
	if cfg.Session.Backend == "memory" {
		return state.NewStateMachine(state.NewMemoryStorage(), state.NewMemoryLocker(cfg.Session.LockWait), log)
	}

	return state.NewStateMachine(
		state.NewRedisStorage(rdb, log, cfg.Session.TTL),
		state.NewRedisLocker(rdb, log, cfg.Session.LockTTL, cfg.Session.LockWait),
		log,
	)
}

func dirExists(dir string) bool {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return false
	}
	return err == nil && info.IsDir()
}
