package api

import (
	"net/http"
	"time"

	"pong-arena/internal/observability"
	"pong-arena/internal/room"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
)

// RoomStore is the read side of the room store used by the HTTP API.
// *room.Store implements it.
type RoomStore interface {
	Stats() room.Stats
	Summaries() []room.Summary
	Room(id string) (*room.Handle, bool)
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	router := api.NewRouter(api.RouterConfig{
//	    Store: store,
//	    RateLimitConfig: &api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Store is the room store (required)
	Store RoomStore

	// Connections reports live websocket sessions for /api/stats. Optional.
	Connections func() int

	// WebSocket serves /ws and /socket.io/. Optional; the routes are absent
	// when nil.
	WebSocket http.HandlerFunc

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one is created from RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used if RateLimiter is nil.
	// If both are nil, DefaultRateLimitConfig applies.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins lists allowed origins. If nil, localhost only.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

type routerHandlers struct {
	store       RoomStore
	connections func() int
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// NewRouter is pure: it starts no goroutines and opens no listeners, so it is
// safe to use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting before CORS to reject early
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = DefaultGatewayConfig().AllowedOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	connections := cfg.Connections
	if connections == nil {
		connections = func() int { return 0 }
	}
	h := &routerHandlers{store: cfg.Store, connections: connections}

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", h.handleGetStats)
		r.Get("/rooms", h.handleListRooms)
		r.Get("/rooms/{roomID}", h.handleGetRoom)
		r.Get("/rooms/{roomID}/preview.png", h.handleRoomPreview)
	})

	if cfg.WebSocket != nil {
		r.Get("/ws", cfg.WebSocket)
		r.Get("/socket.io/", func(w http.ResponseWriter, req *http.Request) {
			// Polling transport is not supported
			if !websocket.IsWebSocketUpgrade(req) {
				writeError(w, "use websocket", http.StatusNotFound)
				return
			}
			cfg.WebSocket(w, req)
		})
	}

	return r
}

// metricsMiddleware records latency per route pattern, keeping label
// cardinality bounded.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.RecordRequest(r.Method, pattern, status, time.Since(start))
	})
}
