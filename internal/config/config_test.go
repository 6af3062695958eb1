package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pong.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 3001 {
		t.Errorf("port = %d, want 3001", cfg.Server.Port)
	}
	if cfg.Server.CORSOrigins[0] != "http://localhost:5173" {
		t.Errorf("first origin = %q", cfg.Server.CORSOrigins[0])
	}
	if cfg.Server.MaxConnections != 500 || cfg.Server.MaxConnectionsPerIP != 10 || cfg.Server.SendBuffer != 64 {
		t.Errorf("server limits = %+v", cfg.Server)
	}
	if cfg.RateLimit != DefaultRateLimit() {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}
	if !cfg.Debug.Enabled || cfg.Debug.ListenAddr != "127.0.0.1:6060" {
		t.Errorf("debug = %+v", cfg.Debug)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if cfg.Server.Addr() != ":3001" {
		t.Errorf("addr = %q", cfg.Server.Addr())
	}
}

// TestLoadPrecedence verifies file beats defaults and env beats file
func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, `
server:
  port: 4000
  maxConnections: 50
rateLimit:
  messagesPerSecond: 30
log:
  level: debug
`)
	t.Setenv("PORT", "5000")
	t.Setenv("CORS_ORIGINS", "https://pong.example.com, http://localhost:5173")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("port = %d, want env value 5000", cfg.Server.Port)
	}
	if cfg.Server.MaxConnections != 50 {
		t.Errorf("maxConnections = %d, want file value 50", cfg.Server.MaxConnections)
	}
	if cfg.Server.MaxConnectionsPerIP != 10 {
		t.Errorf("maxConnectionsPerIP = %d, want default 10", cfg.Server.MaxConnectionsPerIP)
	}
	if cfg.RateLimit.MessagesPerSecond != 30 || cfg.RateLimit.MessageBurst != 60 {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != "https://pong.example.com" {
		t.Errorf("origins = %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("DISABLE_DEBUG_SERVER", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 3001 {
		t.Errorf("port = %d, want default", cfg.Server.Port)
	}
	if cfg.Debug.Enabled {
		t.Error("debug server should be disabled")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "server: [1, 2"},
		{"port out of range", "server:\n  port: 70000\n"},
		{"negative send buffer", "server:\n  sendBuffer: -1\n"},
		{"negative message rate", "rateLimit:\n  messagesPerSecond: -5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tt.content)); err == nil {
				t.Error("Load should fail")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}
