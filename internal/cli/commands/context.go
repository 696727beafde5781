package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlshift/internal/config"
	"github.com/leapstack-labs/sqlshift/internal/rulesource"
	"github.com/leapstack-labs/sqlshift/internal/state"
	"github.com/leapstack-labs/sqlshift/internal/transpile"
)

// configKey is used to store config in context.
type configKey struct{}

// WithConfig stores the loaded config in ctx for command handlers.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func getConfig(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(configKey{}).(*config.Config); ok && cfg != nil {
		return cfg
	}
	return config.DefaultConfig()
}

// newLogger returns a debug logger on stderr when verbose, a discard logger
// otherwise.
func newLogger(cfg *config.Config) *slog.Logger {
	if !cfg.Verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// openSource opens the configured rule source. A rules file takes priority,
// then a Postgres registry DSN; otherwise the SQLite state database is opened
// (and created on first use). The returned store is nil unless the state
// database backs the source. The cleanup function must always be called.
func openSource(cfg *config.Config) (rulesource.Source, *state.SQLiteStore, func(), error) {
	if cfg.RulesFile != "" {
		src, err := rulesource.NewFileSource(cfg.RulesFile)
		if err != nil {
			return nil, nil, func() {}, err
		}
		return src, nil, func() {}, nil
	}

	if cfg.RulesDSN != "" {
		src, err := rulesource.NewPostgresSource(context.Background(), cfg.RulesDSN)
		if err != nil {
			return nil, nil, func() {}, err
		}
		return src, nil, func() { _ = src.Close() }, nil
	}

	store, cleanup, err := openStore(cfg)
	if err != nil {
		return nil, nil, cleanup, err
	}
	return store, store, cleanup, nil
}

// requireStateBacked rejects edit operations when the rule source is not the
// local state database.
func requireStateBacked(cfg *config.Config, what string) error {
	switch {
	case cfg.RulesFile != "":
		return fmt.Errorf("%s needs the state database; edit %s directly instead", what, cfg.RulesFile)
	case cfg.RulesDSN != "":
		return fmt.Errorf("%s needs the state database; the Postgres registry is read-only here", what)
	}
	return nil
}

// openStore opens the SQLite state database, creating its directory and
// running migrations as needed.
func openStore(cfg *config.Config) (*state.SQLiteStore, func(), error) {
	if dir := filepath.Dir(cfg.StatePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, func() {}, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore()
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, func() {}, err
	}
	cleanup := func() { _ = store.Close() }

	if err := store.Migrate(); err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return store, cleanup, nil
}

// newEngine builds a transpile engine from the effective config.
func newEngine(cfg *config.Config, source rulesource.Source) *transpile.Engine {
	return transpile.New(source, transpile.Config{
		Dialect:    cfg.Dialect,
		StrictMode: cfg.StrictMode,
		RetryCount: cfg.RetryCount,
		MaxMetrics: cfg.MaxMetrics,
		Scope:      cfg.Scope,
		Logger:     newLogger(cfg),
	})
}

// readSQL resolves the query text from an argument, a file, or stdin.
func readSQL(cmd *cobra.Command, args []string, fromFile string) (string, error) {
	switch {
	case len(args) > 0 && args[0] != "":
		return args[0], nil
	case fromFile != "":
		data, err := os.ReadFile(fromFile) //nolint:gosec // G304: path comes from the user's own flag
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", fromFile, err)
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		if len(data) == 0 {
			return "", fmt.Errorf("no SQL given: pass it as an argument, via --file, or on stdin")
		}
		return string(data), nil
	}
}
