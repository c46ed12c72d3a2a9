// Command ragqa ingests a web page into a vector index and answers questions over it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragqa/internal/config"
	logpkg "github.com/kailas-cloud/ragqa/internal/logger"
	"github.com/kailas-cloud/ragqa/internal/version"
)

// env selects config/<env>.yaml and the logger flavour.
var env string

var rootCmd = &cobra.Command{
	Use:   "ragqa",
	Short: "Retrieval-augmented question answering over a web page",
	Long: `ragqa fetches a web page, splits it into overlapping word windows, embeds
them into a vector index and answers questions from the closest windows.

Examples:
  # Serve the HTTP API (recreates the collection on startup)
  ragqa serve

  # Index the configured page once
  ragqa ingest --reset

  # Ask a question from the command line
  ragqa ask "What is Hotmart?"`,
	Version:       fmt.Sprintf("%s (commit %s, built %s)", version.Version, version.Commit, version.Date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", config.GetEnv(), "Environment: selects config/<env>.yaml")
}

func main() {
	// SIGINT/SIGTERM cancel the command context; serve drains on it
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadRuntime loads configuration for the selected environment and builds the logger.
func loadRuntime() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}
