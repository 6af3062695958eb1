package api

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"pong-arena/internal/observability"
	"pong-arena/internal/protocol"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second // must be less than pongWait
	maxMessageSize = 4 << 10
)

// SessionHandler receives session events from the gateway.
// match.Service implements it.
type SessionHandler interface {
	Connect(sessionID, remoteIP string)
	HandleFrame(sessionID string, frame []byte) error
	Disconnect(sessionID string)
}

// GatewayConfig bounds the gateway's resource use.
type GatewayConfig struct {
	MaxConnections      int
	MaxConnectionsPerIP int
	SendBuffer          int     // queued outbound frames per connection
	MessagesPerSecond   float64 // inbound frames per connection
	MessageBurst        int
	AllowedOrigins      []string
}

// DefaultGatewayConfig returns production-safe defaults
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		MaxConnections:      500,
		MaxConnectionsPerIP: 10,
		SendBuffer:          64,
		MessagesPerSecond:   120,
		MessageBurst:        60,
		AllowedOrigins:      []string{"http://localhost:*", "http://127.0.0.1:*"},
	}
}

// wsClient is one websocket session
type wsClient struct {
	id    string
	ip    string
	conn  *websocket.Conn
	limit int

	mu     sync.Mutex
	queue  [][]byte
	closed bool

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

func newWSClient(id, ip string, conn *websocket.Conn, limit int) *wsClient {
	if limit < 1 {
		limit = 1
	}
	return &wsClient{
		id:    id,
		ip:    ip,
		conn:  conn,
		limit: limit,
		queue: make([][]byte, 0, limit),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.queue = nil
		c.mu.Unlock()
		close(c.done)
	})
}

// enqueue queues frame without blocking. When the queue is full the oldest
// state frame is evicted; control frames are only dropped when the queue
// holds nothing else.
func (c *wsClient) enqueue(frame []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if len(c.queue) >= c.limit {
		observability.RecordFrameDropped(observability.DropQueueFull)
		victim := oldestState(c.queue)
		if victim < 0 {
			if protocol.IsState(frame) {
				c.mu.Unlock()
				return
			}
			victim = 0
		}
		c.queue = append(c.queue[:victim], c.queue[victim+1:]...)
	}
	c.queue = append(c.queue, frame)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func oldestState(queue [][]byte) int {
	for i, f := range queue {
		if protocol.IsState(f) {
			return i
		}
	}
	return -1
}

// drain takes every queued frame in order.
func (c *wsClient) drain() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	frames := c.queue
	c.queue = make([][]byte, 0, c.limit)
	return frames
}

// Gateway terminates websocket connections, turns inbound frames into
// session events and delivers outbound frames. It implements match.Sender.
type Gateway struct {
	cfg      GatewayConfig
	logger   *log.Logger
	upgrader websocket.Upgrader
	limiter  *WebSocketRateLimiter

	mu      sync.RWMutex
	clients map[string]*wsClient
	handler SessionHandler
}

// NewGateway creates a gateway. SetHandler must be called before it serves.
func NewGateway(cfg GatewayConfig, logger *log.Logger) *Gateway {
	g := &Gateway{
		cfg:     cfg,
		logger:  logger,
		limiter: NewWebSocketRateLimiter(cfg.MaxConnectionsPerIP),
		clients: make(map[string]*wsClient),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

// SetHandler attaches the session handler.
func (g *Gateway) SetHandler(h SessionHandler) {
	g.mu.Lock()
	g.handler = h
	g.mu.Unlock()
}

func (g *Gateway) sessionHandler() SessionHandler {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.handler
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if OriginAllowed(g.cfg.AllowedOrigins, origin) {
		return true
	}
	g.logger.Warn("⚠️ websocket rejected", "origin", origin)
	observability.RecordConnectionRejected(observability.RejectOrigin)
	return false
}

// Send queues frame for sessionID. Unknown sessions are ignored.
func (g *Gateway) Send(sessionID string, frame []byte) {
	g.mu.RLock()
	c, ok := g.clients[sessionID]
	g.mu.RUnlock()
	if ok {
		c.enqueue(frame)
	}
}

// ClientCount returns the number of connected clients
func (g *Gateway) ClientCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients)
}

// HandleWebSocket upgrades the request and runs the session until the
// connection drops.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if total := g.ClientCount(); total >= g.cfg.MaxConnections {
		g.logger.Warn("⚠️ websocket rejected: total limit reached", "total", total)
		observability.RecordConnectionRejected(observability.RejectWSTotal)
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !g.limiter.Allow(ip) {
		g.logger.Warn("⚠️ websocket rejected: per-IP limit reached", "ip", ip)
		observability.RecordConnectionRejected(observability.RejectWSPerIP)
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Debug("websocket upgrade failed", "ip", ip, "error", err)
		g.limiter.Release(ip)
		return
	}

	c := newWSClient(uuid.NewString(), ip, conn, g.cfg.SendBuffer)
	g.register(c)

	go g.writePump(c)
	g.readPump(c)
}

func (g *Gateway) register(c *wsClient) {
	g.mu.Lock()
	g.clients[c.id] = c
	count := len(g.clients)
	g.mu.Unlock()

	observability.UpdateWSConnections(count)
	if h := g.sessionHandler(); h != nil {
		h.Connect(c.id, c.ip)
	}
}

func (g *Gateway) unregister(c *wsClient) {
	g.mu.Lock()
	_, ok := g.clients[c.id]
	delete(g.clients, c.id)
	count := len(g.clients)
	g.mu.Unlock()
	if !ok {
		return
	}

	c.close()
	c.conn.Close()
	g.limiter.Release(c.ip)
	observability.UpdateWSConnections(count)

	if h := g.sessionHandler(); h != nil {
		h.Disconnect(c.id)
	}
	g.logger.Debug("📱 client disconnected", "session", c.id, "remaining", count)
}

// readPump reads frames until the connection fails, then unregisters.
func (g *Gateway) readPump(c *wsClient) {
	defer g.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	limiter := rate.NewLimiter(rate.Limit(g.cfg.MessagesPerSecond), g.cfg.MessageBurst)

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Debug("websocket read error", "session", c.id, "error", err)
			}
			return
		}
		observability.IncrementWSMessagesIn()

		if !limiter.Allow() {
			observability.RecordFrameDropped(observability.DropRateLimit)
			continue
		}

		h := g.sessionHandler()
		if h == nil {
			continue
		}
		if err := h.HandleFrame(c.id, frame); err != nil {
			observability.RecordFrameDropped(observability.DropMalformed)
			g.logger.Debug("frame rejected", "session", c.id, "error", err)
		}
	}
}

// writePump owns all writes to the connection: queued frames and pings.
func (g *Gateway) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-c.wake:
			for _, frame := range c.drain() {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
					g.logWriteError(c, err)
					return
				}
				observability.IncrementWSMessagesOut()
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				g.logWriteError(c, err)
				return
			}
		}
	}
}

func (g *Gateway) logWriteError(c *wsClient, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	g.logger.Debug("websocket write failed", "session", c.id, "error", err)
}

// Close disconnects every client. Used on shutdown.
func (g *Gateway) Close() {
	g.mu.RLock()
	clients := make([]*wsClient, 0, len(g.clients))
	for _, c := range g.clients {
		clients = append(clients, c)
	}
	g.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
}
