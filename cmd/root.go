// Package cmd implements the studyloop CLI.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/studyloop/engine/internal/manager"
	"github.com/studyloop/engine/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "studyloop",
	Short: "Adaptive practice session engine",
	Long:  "Studyloop runs timed practice sessions over a question pool, scores answers, and tracks performance, streaks, and recommendations across sessions.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Path to SQLite database file (overrides STUDYLOOP_DB env var)")
	pf.String("log-level", "warn", "Log level (debug, info, warn, error)")
	pf.String("log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(practiceCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// viperForCmd binds a command's flags and environment to a fresh viper
// instance with the STUDYLOOP_ prefix.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())
	_ = v.BindPFlags(cmd.Root().PersistentFlags())

	v.SetEnvPrefix("STUDYLOOP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return v
}

func setupLogging(v *viper.Viper) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

// resolveDBPath returns the database path using the --db flag first,
// then STUDYLOOP_DB, then the default XDG path.
func resolveDBPath(v *viper.Viper) (string, error) {
	if p := v.GetString("db"); p != "" {
		return p, nil
	}
	return store.DefaultDBPath()
}

// openManager opens the durable store and builds a Manager over it.
// The caller owns closing the returned store.
func openManager(v *viper.Viper, log *slog.Logger) (*manager.Manager, *store.Store, error) {
	dbPath, err := resolveDBPath(v)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	m := manager.New(manager.WithLogger(log), manager.WithPersister(st))
	return m, st, nil
}
