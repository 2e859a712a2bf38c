// Package http implements the REST API of College Hub: library circulation,
// clearance and NOC endpoints, conversation endpoints, the WebSocket upgrade
// route, and health checks.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campus-hub/college-hub/internal/application/command"
	"github.com/campus-hub/college-hub/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server settings.
type Config struct {
	Host string
	Port int

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	EnableCORS     bool
	AllowedOrigins []string

	// RateLimitPerMinute caps requests per client IP; 0 disables limiting.
	RateLimitPerMinute int
}

// DefaultConfig returns the default server settings.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20,
		EnableCORS:         true,
		AllowedOrigins:     []string{"*"},
		RateLimitPerMinute: 100,
	}
}

// Address returns the host:port to bind.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// HealthStatus is the result of a health probe.
type HealthStatus struct {
	Healthy bool   `json:"healthy"`
	Ready   bool   `json:"ready"`
	Message string `json:"message,omitempty"`
}

// HealthChecker probes the server's backing services.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// Dependencies carries everything the HTTP handlers call into.
type Dependencies struct {
	// Write side.
	BorrowBookHandler        *command.BorrowBookHandler
	ReturnBookHandler        *command.ReturnBookHandler
	RenewLoanHandler         *command.RenewLoanHandler
	PayFinesHandler          *command.PayFinesHandler
	MarkOverdueHandler       *command.MarkOverdueHandler
	IssueNOCHandler          *command.IssueNOCHandler
	RejectNOCHandler         *command.RejectNOCHandler
	ReopenNOCHandler         *command.ReopenNOCHandler
	StartConversationHandler *command.StartConversationHandler
	LeaveConversationHandler *command.LeaveConversationHandler

	// Read side.
	CheckClearanceHandler      *query.CheckClearanceHandler
	CheckNOCEligibilityHandler *query.CheckNOCEligibilityHandler
	GetLibrarySummaryHandler   *query.GetLibrarySummaryHandler
	ListConversationsHandler   *query.ListConversationsHandler
	GetMessageHistoryHandler   *query.GetMessageHistoryHandler

	// RealtimeHandler serves the WebSocket upgrade route.
	RealtimeHandler http.Handler

	Logger        *slog.Logger
	HealthChecker HealthChecker
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the College Hub REST API server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *http.ServeMux
	logger     *slog.Logger
	limiter    *rateLimiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer wires routes and middleware into a ready-to-start server.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		router: http.NewServeMux(),
		logger: deps.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if config.RateLimitPerMinute > 0 {
		s.limiter = newRateLimiter(config.RateLimitPerMinute, time.Minute)
	}

	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.wrap(s.router),
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}
	return s
}

func (s *Server) registerRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & status
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /healthz", s.handleHealth) // Kubernetes alias
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /live", s.handleLive)
	s.router.HandleFunc("GET /", s.handleRoot)

	// ─────────────────────────────────────────────────────────────────────────
	// Library circulation
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("POST /api/v1/loans", s.handleBorrowBook)
	s.router.HandleFunc("POST /api/v1/loans/return", s.handleReturnBook)
	s.router.HandleFunc("POST /api/v1/loans/renew", s.handleRenewLoan)
	s.router.HandleFunc("POST /api/v1/admin/overdue-sweep", s.handleOverdueSweep)

	// ─────────────────────────────────────────────────────────────────────────
	// Students: fines, clearance, NOC, summary
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("POST /api/v1/students/{id}/fines/pay", s.handlePayFines)
	s.router.HandleFunc("GET /api/v1/students/{id}/clearance", s.handleCheckClearance)
	s.router.HandleFunc("GET /api/v1/students/{id}/noc/eligibility", s.handleNOCEligibility)
	s.router.HandleFunc("POST /api/v1/students/{id}/noc/issue", s.handleIssueNOC)
	s.router.HandleFunc("POST /api/v1/students/{id}/noc/reject", s.handleRejectNOC)
	s.router.HandleFunc("POST /api/v1/students/{id}/noc/reopen", s.handleReopenNOC)
	s.router.HandleFunc("GET /api/v1/students/{id}/library-summary", s.handleLibrarySummary)

	// ─────────────────────────────────────────────────────────────────────────
	// Conversations
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("POST /api/v1/conversations", s.handleStartConversation)
	s.router.HandleFunc("GET /api/v1/conversations", s.handleListConversations)
	s.router.HandleFunc("GET /api/v1/conversations/{id}/messages", s.handleMessageHistory)
	s.router.HandleFunc("POST /api/v1/conversations/{id}/leave", s.handleLeaveConversation)

	// ─────────────────────────────────────────────────────────────────────────
	// WebSocket gateway
	// ─────────────────────────────────────────────────────────────────────────
	if s.deps.RealtimeHandler != nil {
		s.router.Handle("GET /ws", s.deps.RealtimeHandler)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// wrap layers the middleware around the router. Outermost first: rate
// limiting and CORS run before recovery so even rejected requests are cheap,
// and recovery wraps logging so a panicking handler still produces a log line.
func (s *Server) wrap(handler http.Handler) http.Handler {
	h := s.requestIDMiddleware(handler)
	h = s.loggingMiddleware(h)
	h = s.recoveryMiddleware(h)
	if s.config.EnableCORS {
		h = s.corsMiddleware(h)
	}
	if s.limiter != nil {
		h = s.rateLimitMiddleware(h)
	}
	return h
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", clientIP(r),
			"request_id", requestIDFrom(r.Context()),
		)
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.logger.Error("panic recovered",
					"error", v,
					"stack", string(debug.Stack()),
					"path", r.URL.Path,
					"request_id", requestIDFrom(r.Context()),
				)
				writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		for _, o := range s.config.AllowedOrigins {
			if o != "*" && o != origin {
				continue
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "86400")
			break
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeJSONError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", "address", s.config.Address())

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine; the channel is closed on
// clean shutdown and receives the error otherwise.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown drains in-flight requests, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Uptime reports how long the server has been running.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse is the envelope every endpoint answers with.
type JSONResponse struct {
	Success bool          `json:"success"`
	Data    interface{}   `json:"data,omitempty"`
	Error   *APIError     `json:"error,omitempty"`
	Meta    *ResponseMeta `json:"meta,omitempty"`
}

// APIError carries a machine-readable code plus a human message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(JSONResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
		Meta:    &ResponseMeta{Timestamp: time.Now().UTC(), Version: "v1"},
	})
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(JSONResponse{
		Error: &APIError{Code: code, Message: message},
		Meta:  &ResponseMeta{Timestamp: time.Now().UTC()},
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// statusRecorder captures the status code for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// clientIP prefers proxy headers over the raw remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}

func getQueryParam(r *http.Request, key, fallback string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}

func getQueryParamInt(r *http.Request, key string, fallback int) int {
	if n, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return n
	}
	return fallback
}

func getQueryParamBool(r *http.Request, key string) bool {
	v := strings.ToLower(r.URL.Query().Get(key))
	return v == "true" || v == "1" || v == "yes"
}

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER
// ══════════════════════════════════════════════════════════════════════════════

// rateLimiter counts requests per key in fixed windows. Counters reset when
// the window rolls over, so a burst can at most double the limit across a
// boundary; good enough for abuse protection on a campus API.
type rateLimiter struct {
	mu          sync.Mutex
	counts      map[string]int
	limit       int
	window      time.Duration
	windowStart time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		counts:      make(map[string]int),
		limit:       limit,
		window:      window,
		windowStart: time.Now(),
	}
}

func (rl *rateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.windowStart) >= rl.window {
		rl.counts = make(map[string]int)
		rl.windowStart = now
	}

	if rl.counts[key] >= rl.limit {
		return false
	}
	rl.counts[key]++
	return true
}
