// Package config is the single place runtime settings are resolved.
//
// Precedence, lowest first: Default*() values, an optional YAML file,
// environment variables, then command line flags applied by the caller.
// Physics constants live in internal/game and are not configurable.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP and websocket settings.
type ServerConfig struct {
	Port                int      `yaml:"port"`
	CORSOrigins         []string `yaml:"corsOrigins"`
	MaxConnections      int      `yaml:"maxConnections"`      // total websocket connections
	MaxConnectionsPerIP int      `yaml:"maxConnectionsPerIP"` // websocket connections per client IP
	SendBuffer          int      `yaml:"sendBuffer"`          // queued outbound frames per connection
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port: 3001,
		CORSOrigins: []string{
			"http://localhost:5173",
			"http://localhost:*",
			"http://127.0.0.1:*",
		},
		MaxConnections:      500,
		MaxConnectionsPerIP: 10,
		SendBuffer:          64,
	}
}

// ServerFromEnv applies environment overrides to cfg.
func ServerFromEnv(cfg ServerConfig) ServerConfig {
	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	if n := getEnvInt("MAX_WS_CONNECTIONS", 0); n > 0 {
		cfg.MaxConnections = n
	}
	if n := getEnvInt("MAX_WS_CONNECTIONS_PER_IP", 0); n > 0 {
		cfg.MaxConnectionsPerIP = n
	}
	if n := getEnvInt("WS_SEND_BUFFER", 0); n > 0 {
		cfg.SendBuffer = n
	}
	return cfg
}

// =============================================================================
// RATE LIMITS
// =============================================================================

// RateLimitConfig holds the HTTP and websocket inbound limits.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"` // HTTP, per IP
	Burst             int     `yaml:"burst"`
	MessagesPerSecond float64 `yaml:"messagesPerSecond"` // websocket, per connection
	MessageBurst      int     `yaml:"messageBurst"`
}

// DefaultRateLimit returns the default limits. The message rate leaves room
// for a client holding a key down at 60 Hz alongside other events.
func DefaultRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		Burst:             20,
		MessagesPerSecond: 120,
		MessageBurst:      60,
	}
}

// RateLimitFromEnv applies environment overrides to cfg.
func RateLimitFromEnv(cfg RateLimitConfig) RateLimitConfig {
	if v := getEnvFloat("RATE_LIMIT_RPS", 0); v > 0 {
		cfg.RequestsPerSecond = v
	}
	if n := getEnvInt("RATE_LIMIT_BURST", 0); n > 0 {
		cfg.Burst = n
	}
	if v := getEnvFloat("WS_MESSAGES_PER_SECOND", 0); v > 0 {
		cfg.MessagesPerSecond = v
	}
	if n := getEnvInt("WS_MESSAGE_BURST", 0); n > 0 {
		cfg.MessageBurst = n
	}
	return cfg
}

// =============================================================================
// DEBUG SERVER
// =============================================================================

// DebugConfig controls the pprof and metrics server.
type DebugConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddr    string `yaml:"listenAddr"`
	BasicAuthUser string `yaml:"basicAuthUser"`
	BasicAuthPass string `yaml:"basicAuthPass"`
}

// DefaultDebug returns the default debug configuration.
func DefaultDebug() DebugConfig {
	return DebugConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// DebugFromEnv applies environment overrides to cfg.
func DebugFromEnv(cfg DebugConfig) DebugConfig {
	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.Enabled = false
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if u := os.Getenv("DEBUG_USER"); u != "" {
		cfg.BasicAuthUser = u
		cfg.BasicAuthPass = os.Getenv("DEBUG_PASS")
	}
	return cfg
}

// =============================================================================
// LOGGING
// =============================================================================

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultLog returns the default log configuration.
func DefaultLog() LogConfig {
	return LogConfig{Level: "info"}
}

// LogFromEnv applies environment overrides to cfg.
func LogFromEnv(cfg LogConfig) LogConfig {
	if l := os.Getenv("LOG_LEVEL"); l != "" {
		cfg.Level = l
	}
	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Debug     DebugConfig     `yaml:"debug"`
	Log       LogConfig       `yaml:"log"`
}

// Default returns every section at its default.
func Default() AppConfig {
	return AppConfig{
		Server:    DefaultServer(),
		RateLimit: DefaultRateLimit(),
		Debug:     DefaultDebug(),
		Log:       DefaultLog(),
	}
}

// Load resolves the configuration from defaults, the YAML file at path (if
// path is not empty) and the environment.
func Load(path string) (AppConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.Server = ServerFromEnv(cfg.Server)
	cfg.RateLimit = RateLimitFromEnv(cfg.RateLimit)
	cfg.Debug = DebugFromEnv(cfg.Debug)
	cfg.Log = LogFromEnv(cfg.Log)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c AppConfig) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Server.Port)
	case c.Server.MaxConnections <= 0:
		return fmt.Errorf("maxConnections must be positive, got %d", c.Server.MaxConnections)
	case c.Server.MaxConnectionsPerIP <= 0:
		return fmt.Errorf("maxConnectionsPerIP must be positive, got %d", c.Server.MaxConnectionsPerIP)
	case c.Server.SendBuffer <= 0:
		return fmt.Errorf("sendBuffer must be positive, got %d", c.Server.SendBuffer)
	case c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0:
		return fmt.Errorf("http rate limit must be positive")
	case c.RateLimit.MessagesPerSecond <= 0 || c.RateLimit.MessageBurst <= 0:
		return fmt.Errorf("websocket message limit must be positive")
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c ServerConfig) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
