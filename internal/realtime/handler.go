package realtime

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// ══════════════════════════════════════════════════════════════════════════════
// HTTP UPGRADE HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// IdentityResolver authenticates an upgrade request and returns the identity
// behind it.
type IdentityResolver interface {
	Resolve(r *http.Request) (string, error)
}

// IdentityResolverFunc adapts a function to the IdentityResolver interface.
type IdentityResolverFunc func(r *http.Request) (string, error)

// Resolve implements IdentityResolver.
func (f IdentityResolverFunc) Resolve(r *http.Request) (string, error) {
	return f(r)
}

// Handler upgrades HTTP requests to WebSocket connections and hands them to
// the router.
type Handler struct {
	router   *Router
	resolver IdentityResolver
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new Handler. allowedOrigins restricts the Origin
// header; empty means same-origin checks are skipped.
func NewHandler(router *Router, resolver IdentityResolver, allowedOrigins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return &Handler{
		router:   router,
		resolver: resolver,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				_, ok := origins[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// ServeHTTP authenticates the request, upgrades it, and starts the pumps.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.resolver.Resolve(r)
	if err != nil || identity == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := newClient(identity, conn, h.router, h.logger)
	h.router.connected(r.Context(), client)

	go client.writePump()
	// The connection outlives the upgrade request, so the pumps must not
	// inherit its cancellation.
	go client.readPump(context.Background())
}
