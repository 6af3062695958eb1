package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"pong-arena/internal/game"
	"pong-arena/internal/match"
	"pong-arena/internal/room"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
)

// ServerConfig carries everything NewServer needs.
type ServerConfig struct {
	Store     *room.Store
	Engine    *game.Engine
	Logger    *log.Logger
	Gateway   GatewayConfig
	RateLimit RateLimitConfig
}

// Server is the HTTP API server with the websocket gateway and tick loop.
type Server struct {
	router      *chi.Mux
	gateway     *Gateway
	service     *match.Service
	scheduler   *match.Scheduler
	rateLimiter *IPRateLimiter
	logger      *log.Logger

	mu      sync.Mutex
	httpSrv *http.Server
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewServer wires gateway, service and scheduler around the store.
//
// Background workers do NOT start until Start is called, so the server can
// be constructed in tests and driven through Router().
func NewServer(cfg ServerConfig) *Server {
	s := &Server{logger: cfg.Logger}

	s.gateway = NewGateway(cfg.Gateway, cfg.Logger)
	s.service = match.NewService(cfg.Store, cfg.Engine, s.gateway, cfg.Logger)
	s.gateway.SetHandler(s.service)
	s.scheduler = match.NewScheduler(cfg.Store, cfg.Engine, s.gateway, cfg.Logger)

	s.rateLimiter = NewIPRateLimiter(cfg.RateLimit)

	s.router = NewRouter(RouterConfig{
		Store:       cfg.Store,
		Connections: s.gateway.ClientCount,
		WebSocket:   s.gateway.HandleWebSocket,
		RateLimiter: s.rateLimiter,
		CORSOrigins: cfg.Gateway.AllowedOrigins,
	})

	return s
}

// Start runs the tick loop and the rate limiter sweeper, then serves HTTP on
// addr until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start(addr string) error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := s.httpSrv
	s.mu.Unlock()

	s.rateLimiter.Start()
	go func() {
		defer close(done)
		s.scheduler.Run(ctx)
	}()

	s.logger.Info("🌐 API server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cancel()
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Gateway returns the websocket gateway.
func (s *Server) Gateway() *Gateway {
	return s.gateway
}

// Shutdown stops accepting requests, closes every websocket, stops the tick
// loop and the rate limiter sweeper.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, cancel, done := s.httpSrv, s.cancel, s.done
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	// Hijacked websocket connections are not tracked by http.Server
	s.gateway.Close()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	s.rateLimiter.Stop()
	return err
}
