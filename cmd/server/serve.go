package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pong-arena/internal/api"
	"pong-arena/internal/config"
	"pong-arena/internal/game"
	"pong-arena/internal/logging"
	"pong-arena/internal/observability"
	"pong-arena/internal/room"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagPort int
	flagSeed int64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the game server",
	Long: `Start the HTTP and websocket server.

Configuration is resolved from defaults, then --config, then environment
variables (a .env file is loaded if present), then flags.

Clients connect to ws://host:PORT/ws (or /socket.io/) and send
{"event":"join"} to be matched into a room.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&flagPort, "port", 0, "HTTP port (overrides config and PORT)")
	serveCmd.Flags().Int64Var(&flagSeed, "seed", 0, "RNG seed for serves (0 = random)")
}

// loadEnv loads .env from the working directory or its parent.
func loadEnv() string {
	for _, path := range []string{".env", "../.env"} {
		if err := godotenv.Load(path); err == nil {
			return path
		}
	}
	return ""
}

func runServe(cmd *cobra.Command, _ []string) error {
	envFile := loadEnv()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagPort > 0 {
		cfg.Server.Port = flagPort
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.New(cfg.Log.Level)
	if envFile != "" {
		logger.Info("✅ loaded environment", "file", envFile)
	} else {
		logger.Debug("💡 no .env file found, using environment variables only")
	}
	logger.Info("🏓 pong-arena starting", "version", version, "port", cfg.Server.Port)

	var rng game.Rand
	if flagSeed != 0 {
		rng = rand.New(rand.NewSource(flagSeed))
		logger.Info("🎲 deterministic serves", "seed", flagSeed)
	}
	engine := game.NewEngine(rng, nil)
	store := room.NewStore(engine)

	debugSrv := observability.StartDebugServer(observability.Config{
		Enabled:       cfg.Debug.Enabled,
		ListenAddr:    cfg.Debug.ListenAddr,
		BasicAuthUser: cfg.Debug.BasicAuthUser,
		BasicAuthPass: cfg.Debug.BasicAuthPass,
	}, logger)

	server := api.NewServer(api.ServerConfig{
		Store:  store,
		Engine: engine,
		Logger: logger,
		Gateway: api.GatewayConfig{
			MaxConnections:      cfg.Server.MaxConnections,
			MaxConnectionsPerIP: cfg.Server.MaxConnectionsPerIP,
			SendBuffer:          cfg.Server.SendBuffer,
			MessagesPerSecond:   cfg.RateLimit.MessagesPerSecond,
			MessageBurst:        cfg.RateLimit.MessageBurst,
			AllowedOrigins:      cfg.Server.CORSOrigins,
		},
		RateLimit: api.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			CleanupInterval:   api.DefaultRateLimitConfig.CleanupInterval,
		},
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Addr())
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	logger.Info("✅ server ready, press Ctrl+C to stop", "url", "http://localhost"+cfg.Server.Addr())

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case sig := <-quit:
		logger.Info("🛑 shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	if debugSrv != nil {
		debugSrv.Shutdown(ctx)
	}
	logger.Info("👋 goodbye")
	return nil
}
