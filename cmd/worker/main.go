// Package main is the entry point for the College Hub background worker.
//
// The worker runs the periodic jobs that keep library state current:
// - Overdue sweep: flags active loans past their due date
// - Overdue reminders: one daily email per student with overdue books
//
// The API server stays read/write fast because none of this runs in request
// handlers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/campus-hub/college-hub/config"
	"github.com/campus-hub/college-hub/internal/application/command"
	"github.com/campus-hub/college-hub/internal/application/eventhandler"
	"github.com/campus-hub/college-hub/internal/domain/shared"
	"github.com/campus-hub/college-hub/internal/infrastructure/messaging"
	"github.com/campus-hub/college-hub/internal/infrastructure/persistence/postgres"
	"github.com/campus-hub/college-hub/internal/infrastructure/persistence/redis"
	"github.com/campus-hub/college-hub/internal/infrastructure/scheduler"
	"github.com/campus-hub/college-hub/internal/infrastructure/scheduler/jobs"
	"github.com/campus-hub/college-hub/internal/infrastructure/service"
	"github.com/campus-hub/college-hub/pkg/timeutil"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting College Hub worker",
		"env", cfg.App.Environment,
		"timezone", cfg.App.Timezone,
	)

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler disabled by configuration, nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// The worker migrates too so it never runs against a stale schema.
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	// Overdue sweeps publish loan_overdue events. With Redis available the
	// events also reach the API server instances; otherwise they stay local
	// to this process.
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log
	busConfig.AsyncMode = true

	var eventBus shared.EventPublisher
	var busCloser interface{ Close() error }
	var summaryCache *redis.LibrarySummaryCache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		client := redis.NewClient(redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		cache := redis.NewCache(client)
		if err := cache.Ping(ctx); err != nil {
			log.Warn("Redis unreachable, events stay process-local", "error", err)
			_ = cache.Close()
		} else {
			defer cache.Close()
			summaryCache = redis.NewLibrarySummaryCache(cache)
			redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
				Client:         messaging.NewGoRedisAdapter(client),
				LocalBusConfig: busConfig,
				Logger:         log,
			})
			if err != nil {
				return fmt.Errorf("failed to create event bus: %w", err)
			}
			eventBus = redisBus
			busCloser = redisBus
			log.Info("Redis connection established")
		}
	}
	if eventBus == nil {
		localBus := messaging.NewInMemoryEventBus(busConfig)
		eventBus = localBus
		busCloser = localBus
	}
	defer func() {
		log.Info("closing event bus...")
		_ = busCloser.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REPOSITORIES AND HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	studentRepo := postgres.NewStudentRepository(dbConn)
	loanRepo := postgres.NewLoanRepository(dbConn)

	clock := timeutil.NewRealClock()
	markOverdue := command.NewMarkOverdueHandler(loanRepo, clock, eventBus, log)

	var notifier eventhandler.Notifier
	if !cfg.SMTP.Disabled {
		notifier = service.NewEmailNotifier(service.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, studentRepo, nil, log)
	} else {
		log.Info("SMTP disabled, reminder emails will be skipped")
	}

	if summaryCache != nil {
		if bus, ok := eventBus.(interface {
			Subscribe(eventType shared.EventType, handler shared.EventHandler) error
		}); ok {
			invalidate := eventhandler.NewInvalidateLibrarySummaryHandler(summaryCache, log)
			if err := bus.Subscribe(shared.EventLoanOverdue, invalidate); err != nil {
				log.Warn("failed to subscribe invalidation handler", "error", err)
			}
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. SCHEDULERS
	// ─────────────────────────────────────────────────────────────────────────
	schedConfig := scheduler.DefaultSchedulerConfig()
	schedConfig.Logger = log
	schedConfig.Timezone = cfg.App.Location

	sched := scheduler.NewScheduler(schedConfig)

	sweepJob := jobs.NewMarkOverdueLoansJob(markOverdue, log)
	if err := sched.Register(sweepJob, scheduler.NewIntervalSchedule(cfg.Scheduler.OverdueSweepInterval)); err != nil {
		return fmt.Errorf("failed to register overdue sweep: %w", err)
	}

	cron := scheduler.NewCronScheduler(
		scheduler.WithLocation(cfg.App.Location),
		scheduler.WithCronLogger(log),
	)

	reminderJob := jobs.NewOverdueRemindersJob(loanRepo, studentRepo, notifier, log)
	reminderExpr := fmt.Sprintf("%d %d * * *", cfg.Scheduler.ReminderMinute, cfg.Scheduler.ReminderHour)
	if err := cron.AddJob(reminderJob.Name(), reminderExpr, reminderJob); err != nil {
		return fmt.Errorf("failed to register reminder job: %w", err)
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	if err := cron.Start(ctx); err != nil {
		return fmt.Errorf("failed to start cron scheduler: %w", err)
	}

	log.Info("College Hub worker is running",
		"overdue_sweep_interval", cfg.Scheduler.OverdueSweepInterval.String(),
		"reminder_cron", reminderExpr,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	cron.Stop()
	if err := sched.Stop(); err != nil {
		log.Warn("scheduler stop reported error", "error", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// setupLogger configures structured logging per the observability settings.
func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Observability.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if cfg.App.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" || cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
