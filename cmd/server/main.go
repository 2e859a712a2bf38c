// Package main is the entry point for the College Hub API server.
//
// The server exposes the library clearance and NOC endpoints over REST and
// the messaging subsystem over a WebSocket gateway. Background jobs run in
// the separate worker binary.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/campus-hub/college-hub/config"
	"github.com/campus-hub/college-hub/internal/application/command"
	"github.com/campus-hub/college-hub/internal/application/eventhandler"
	"github.com/campus-hub/college-hub/internal/application/query"
	"github.com/campus-hub/college-hub/internal/domain/shared"
	"github.com/campus-hub/college-hub/internal/infrastructure/messaging"
	"github.com/campus-hub/college-hub/internal/infrastructure/persistence/postgres"
	"github.com/campus-hub/college-hub/internal/infrastructure/persistence/redis"
	"github.com/campus-hub/college-hub/internal/infrastructure/service"
	"github.com/campus-hub/college-hub/internal/realtime"
	httpiface "github.com/campus-hub/college-hub/internal/interface/http"
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
	log.Info("starting College Hub API server",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

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

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional: summary cache, presence mirror, event fan-out)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		summaryCache  *redis.LibrarySummaryCache
		presenceStore *redis.PresenceStore
		redisCache    *redis.Cache
	)

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...", "addr", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port))
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
			log.Warn("Redis unreachable, continuing without cache and presence mirror", "error", err)
			_ = cache.Close()
		} else {
			defer cache.Close()
			redisCache = cache
			summaryCache = redis.NewLibrarySummaryCache(cache)
			presenceStore = redis.NewPresenceStore(client)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log
	busConfig.AsyncMode = true

	var eventBus shared.EventPublisher
	var busCloser interface{ Close() error }

	if redisCache != nil {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         messaging.NewGoRedisAdapter(redisCache.Client()),
			LocalBusConfig: busConfig,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("failed to create event bus: %w", err)
		}
		eventBus = redisBus
		busCloser = redisBus
		subscribeHandlers(redisBus, cfg, dbConn, summaryCache, log)
	} else {
		localBus := messaging.NewInMemoryEventBus(busConfig)
		eventBus = localBus
		busCloser = localBus
		subscribeHandlers(localBus, cfg, dbConn, summaryCache, log)
	}
	defer func() {
		log.Info("closing event bus...")
		_ = busCloser.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	studentRepo := postgres.NewStudentRepository(dbConn)
	bookRepo := postgres.NewBookRepository(dbConn)
	loanRepo := postgres.NewLoanRepository(dbConn)
	conversationRepo := postgres.NewConversationRepository(dbConn)
	messageRepo := postgres.NewMessageRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	clock := timeutil.NewRealClock()
	ids := service.NewUUIDGenerator()

	borrowBook := command.NewBorrowBookHandler(studentRepo, bookRepo, loanRepo, ids, clock, eventBus)
	returnBook := command.NewReturnBookHandler(studentRepo, bookRepo, loanRepo, clock, eventBus)
	renewLoan := command.NewRenewLoanHandler(bookRepo, loanRepo, clock, eventBus)
	payFines := command.NewPayFinesHandler(studentRepo, loanRepo, clock, eventBus)
	markOverdue := command.NewMarkOverdueHandler(loanRepo, clock, eventBus, log)
	issueNOC := command.NewIssueNOCHandler(studentRepo, loanRepo, clock, eventBus)
	rejectNOC := command.NewRejectNOCHandler(studentRepo, eventBus)
	reopenNOC := command.NewReopenNOCHandler(studentRepo, eventBus)
	startConversation := command.NewStartConversationHandler(conversationRepo, ids, eventBus)
	leaveConversation := command.NewLeaveConversationHandler(conversationRepo, eventBus)
	sendMessage := command.NewSendMessageHandler(conversationRepo, messageRepo, ids, clock, eventBus)
	markRead := command.NewMarkMessagesReadHandler(conversationRepo, messageRepo, eventBus)

	checkClearance := query.NewCheckClearanceHandler(studentRepo)
	checkEligibility := query.NewCheckNOCEligibilityHandler(studentRepo, bookRepo, loanRepo)
	librarySummary := query.NewGetLibrarySummaryHandler(studentRepo, loanRepo, querySummaryCache(summaryCache), clock, log)
	listConversations := query.NewListConversationsHandler(conversationRepo, messageRepo)
	messageHistory := query.NewGetMessageHistoryHandler(conversationRepo, messageRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. REALTIME GATEWAY
	// ─────────────────────────────────────────────────────────────────────────
	presenceTracker := realtime.NewPresenceTracker()
	hub := realtime.NewHub(presenceTracker)

	var mirror realtime.PresenceMirror
	if presenceStore != nil {
		mirror = presenceStore
	}
	router := realtime.NewRouter(hub, presenceTracker, mirror, conversationRepo, sendMessage, markRead, log)
	realtimeHandler := realtime.NewHandler(router, headerIdentityResolver(), cfg.Realtime.AllowedOrigins, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	serverConfig := httpiface.DefaultConfig()
	serverConfig.Host = cfg.HTTP.Host
	serverConfig.Port = cfg.HTTP.Port
	serverConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	serverConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	serverConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	serverConfig.EnableCORS = cfg.HTTP.EnableCORS
	serverConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute

	server := httpiface.NewServer(serverConfig, httpiface.Dependencies{
		BorrowBookHandler:        borrowBook,
		ReturnBookHandler:        returnBook,
		RenewLoanHandler:         renewLoan,
		PayFinesHandler:          payFines,
		MarkOverdueHandler:       markOverdue,
		IssueNOCHandler:          issueNOC,
		RejectNOCHandler:         rejectNOC,
		ReopenNOCHandler:         reopenNOC,
		StartConversationHandler: startConversation,
		LeaveConversationHandler: leaveConversation,

		CheckClearanceHandler:      checkClearance,
		CheckNOCEligibilityHandler: checkEligibility,
		GetLibrarySummaryHandler:   librarySummary,
		ListConversationsHandler:   listConversations,
		GetMessageHistoryHandler:   messageHistory,

		RealtimeHandler: realtimeHandler,
		Logger:          log,
		HealthChecker:   &backendHealth{db: dbConn, cache: redisCache},
	})

	errCh := server.StartAsync()
	log.Info("College Hub API server is running", "addr", serverConfig.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 11. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// WIRING HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// eventSubscriber is the subset of the bus used for wiring handlers.
type eventSubscriber interface {
	Subscribe(eventType shared.EventType, handler shared.EventHandler) error
}

// subscribeHandlers attaches the notification and cache-invalidation handlers
// to the bus. Notification handlers are skipped when SMTP is disabled.
func subscribeHandlers(
	bus eventSubscriber,
	cfg *config.Config,
	dbConn *postgres.Connection,
	summaryCache *redis.LibrarySummaryCache,
	log *slog.Logger,
) {
	if summaryCache != nil {
		invalidate := eventhandler.NewInvalidateLibrarySummaryHandler(summaryCache, log)
		for _, et := range []shared.EventType{
			shared.EventBookBorrowed,
			shared.EventBookReturned,
			shared.EventBookRenewed,
			shared.EventLoanOverdue,
			shared.EventFinesPaid,
		} {
			if err := bus.Subscribe(et, invalidate); err != nil {
				log.Warn("failed to subscribe invalidation handler", "event", et, "error", err)
			}
		}
	}

	if cfg.SMTP.Disabled {
		log.Info("SMTP disabled, notification handlers not registered")
		return
	}

	notifier := service.NewEmailNotifier(service.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, postgres.NewStudentRepository(dbConn), nil, log)

	subscriptions := []struct {
		event   shared.EventType
		handler shared.EventHandler
	}{
		{shared.EventBookBorrowed, eventhandler.NewOnBookBorrowedHandler(notifier, log)},
		{shared.EventLoanOverdue, eventhandler.NewOnLoanOverdueHandler(notifier, log)},
		{shared.EventNOCIssued, eventhandler.NewOnNOCIssuedHandler(notifier, log)},
	}
	for _, sub := range subscriptions {
		if err := bus.Subscribe(sub.event, sub.handler); err != nil {
			log.Warn("failed to subscribe notification handler", "event", sub.event, "error", err)
		}
	}
}

// querySummaryCache adapts the optional Redis cache to the query interface.
// A typed nil must not leak into the interface value.
func querySummaryCache(cache *redis.LibrarySummaryCache) query.SummaryCache {
	if cache == nil {
		return nil
	}
	return cache
}

// headerIdentityResolver authenticates WebSocket upgrades from the
// X-Student-ID header, falling back to the "identity" query parameter for
// browser clients that cannot set headers on the upgrade request.
func headerIdentityResolver() realtime.IdentityResolver {
	return realtime.IdentityResolverFunc(func(r *http.Request) (string, error) {
		if id := strings.TrimSpace(r.Header.Get("X-Student-ID")); id != "" {
			return id, nil
		}
		if id := strings.TrimSpace(r.URL.Query().Get("identity")); id != "" {
			return id, nil
		}
		return "", fmt.Errorf("missing identity")
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH
// ══════════════════════════════════════════════════════════════════════════════

// backendHealth probes the database and, when configured, Redis.
type backendHealth struct {
	db    *postgres.Connection
	cache *redis.Cache
}

func (h *backendHealth) Check(ctx context.Context) httpiface.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		return httpiface.HealthStatus{Healthy: false, Ready: false, Message: "database unreachable"}
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			// Degraded but still serving: cache and presence mirror are optional.
			return httpiface.HealthStatus{Healthy: true, Ready: true, Message: "redis unreachable"}
		}
	}
	return httpiface.HealthStatus{Healthy: true, Ready: true}
}

// ══════════════════════════════════════════════════════════════════════════════
// LOGGING
// ══════════════════════════════════════════════════════════════════════════════

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
