// Command algoflow is the algoflow server and its maintenance tools.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"algoflow/internal/cfg"
)

var (
	configPath string
	dbURL      string
)

var rootCmd = &cobra.Command{
	Use:           "algoflow",
	Short:         "Store flowchart algorithms and search their steps",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: $ALGOFLOW_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database URL (default: algoflow.db)")

	rootCmd.AddCommand(serveCmd, reindexCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "algoflow:", err)
		os.Exit(1)
	}
}

// loadConfig loads the file and environment configuration, then applies
// the persistent flags on top.
func loadConfig() (*cfg.Config, error) {
	config, err := cfg.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbURL != "" {
		config.DBURL = dbURL
	}
	return config, nil
}

func newLogger(config *cfg.Config) *slog.Logger {
	level := slog.LevelInfo
	if config.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if config.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
