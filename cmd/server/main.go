// pong-arena is an authoritative two-player paddle-and-ball game server.
//
// Usage:
//
//	pong-arena serve      - Start the game server
//	pong-arena version    - Print the build version
//
// Global flags:
//
//	--config <path>     - YAML config file
//	--log-level <lvl>   - debug, info, warn or error
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	// Global flags
	flagConfig   string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pong-arena",
	Short: "Authoritative real-time pong server",
	Long: `pong-arena matches players into two-player rooms, simulates the ball
and paddles at 60 steps per second and streams state to browser clients
over websockets.

Examples:
  pong-arena serve
  pong-arena serve --port 4000 --log-level debug
  pong-arena serve --config ./pong.yaml`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
