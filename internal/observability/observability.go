// Package observability holds the process metrics and the internal debug server.
package observability

import (
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-room or per-player labels)
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "game_tick_duration_seconds",
		Help:    "Time spent advancing and broadcasting every room in one tick",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.01667, 0.025, 0.05},
	})

	tickOverruns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_tick_overruns_total",
		Help: "Ticks that took longer than the tick interval",
	})

	roomCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_rooms",
		Help: "Live rooms",
	})

	playingRoomCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_rooms_playing",
		Help: "Rooms with a match in progress",
	})

	playerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_player_count",
		Help: "Seated players across all rooms",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections or requests rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: see Reject* constants

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "WebSocket frames by direction",
	}, []string{"direction"}) // "in", "out"

	wsFramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_frames_dropped_total",
		Help: "WebSocket frames dropped instead of delivered",
	}, []string{"reason"}) // "queue_full", "rate_limit", "malformed"
)

// Rejection reasons for RecordConnectionRejected.
const (
	RejectRateLimit = "rate_limit"
	RejectOrigin    = "origin"
	RejectWSTotal   = "ws_total_limit"
	RejectWSPerIP   = "ws_ip_limit"
)

// Drop reasons for RecordFrameDropped.
const (
	DropQueueFull = "queue_full"
	DropRateLimit = "rate_limit"
	DropMalformed = "malformed"
)

// Config configures the debug server.
type Config struct {
	Enabled       bool
	ListenAddr    string // MUST be loopback in production
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultConfig returns safe defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// isLoopback reports whether addr binds only to the local machine.
func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// NewDebugHandler returns the pprof, metrics and health mux, wrapped in basic
// auth when a user is configured.
func NewDebugHandler(cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.BasicAuthUser != "" {
		return basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}
	return mux
}

// StartDebugServer starts the internal observability server in the background
// and returns it so the caller can shut it down. Returns nil when disabled.
// A non-loopback address is forced back to 127.0.0.1:6060 unless
// ALLOW_DEBUG_EXTERNAL=true.
func StartDebugServer(cfg Config, logger *log.Logger) *http.Server {
	if !cfg.Enabled {
		logger.Info("📊 debug server disabled")
		return nil
	}

	if !isLoopback(cfg.ListenAddr) && os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
		logger.Warn("⚠️ debug server forced to localhost", "requested", cfg.ListenAddr)
		cfg.ListenAddr = DefaultConfig().ListenAddr
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           NewDebugHandler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("📊 debug server starting",
			"pprof", "http://"+cfg.ListenAddr+"/debug/pprof/",
			"metrics", "http://"+cfg.ListenAddr+"/metrics")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("⚠️ debug server stopped", "error", err)
		}
	}()

	return srv
}

func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordTick records one tick's duration and counts it as an overrun when it
// exceeded interval.
func RecordTick(duration, interval time.Duration) {
	tickDuration.Observe(duration.Seconds())
	if duration > interval {
		tickOverruns.Inc()
	}
}

// UpdateRoomCounts sets the room and player gauges.
func UpdateRoomCounts(rooms, playing, players int) {
	roomCount.Set(float64(rooms))
	playingRoomCount.Set(float64(playing))
	playerCount.Set(float64(players))
}

// RecordConnectionRejected increments the rejection counter.
// reason must be one of the Reject* constants.
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics.
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections sets the active WebSocket connection gauge.
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessagesIn counts one frame read from a client.
func IncrementWSMessagesIn() {
	wsMessagesTotal.WithLabelValues("in").Inc()
}

// IncrementWSMessagesOut counts one frame written to a client.
func IncrementWSMessagesOut() {
	wsMessagesTotal.WithLabelValues("out").Inc()
}

// RecordFrameDropped counts a frame that was discarded.
// reason must be one of the Drop* constants.
func RecordFrameDropped(reason string) {
	wsFramesDropped.WithLabelValues(reason).Inc()
}
