// Package commands implements the sqlveil subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/sqlveil/internal/cli/output"
	"github.com/leapstack-labs/sqlveil/internal/config"
	"github.com/leapstack-labs/sqlveil/internal/naming"
	"github.com/leapstack-labs/sqlveil/internal/state"
	"github.com/leapstack-labs/sqlveil/pkg/mask"
)

type configKey struct{}
type rendererKey struct{}
type loggerKey struct{}

// WithConfig stores the loaded config in the command context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithRenderer stores the renderer in the command context.
func WithRenderer(ctx context.Context, r *output.Renderer) context.Context {
	return context.WithValue(ctx, rendererKey{}, r)
}

// WithLogger stores the logger in the command context.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return config.Defaults()
}

// GetRenderer retrieves the renderer from the command context.
func GetRenderer(ctx context.Context) *output.Renderer {
	if r, ok := ctx.Value(rendererKey{}).(*output.Renderer); ok {
		return r
	}
	return output.NewRenderer(os.Stdout, os.Stderr, output.ModeAuto)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// generateOptions builds the generator configuration for the effective
// mode, wiring up the semantic naming client when needed. modeOverride
// takes precedence over the configured default.
func generateOptions(cfg *config.Config, logger *slog.Logger, modeOverride string) (mask.GenerateOptions, error) {
	raw := modeOverride
	if raw == "" {
		raw = cfg.Mode
	}
	mode, err := mask.ParseMode(raw)
	if err != nil {
		return mask.GenerateOptions{}, err
	}

	opts := mask.GenerateOptions{
		Mode:         mode,
		NamerTimeout: cfg.Semantic.Timeout,
		Logger:       logger,
	}
	if mode == mask.ModeSemantic {
		client, err := naming.NewClient(naming.Options{
			Endpoint: cfg.Semantic.Endpoint,
			Model:    cfg.Semantic.Model,
			APIKey:   cfg.Semantic.APIKey,
			Logger:   logger,
		})
		if err != nil {
			return mask.GenerateOptions{}, fmt.Errorf("semantic mode: %w", err)
		}
		opts.Namer = client.Namer()
	}
	return opts, nil
}

// openState opens the session state database, running migrations.
// The caller must Close it.
func openState(cfg *config.Config) (*state.SQLiteStore, error) {
	store := state.NewSQLiteStore()
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// loadMappingFile reads a saved mapping in YAML or JSON form.
func loadMappingFile(path string) (*mask.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mapping file: %w", err)
	}
	defer f.Close()

	if isJSONFile(path) {
		store, err := mask.DecodeJSON(f)
		if err != nil {
			return nil, fmt.Errorf("failed to parse mapping file %s: %w", path, err)
		}
		return store, nil
	}
	store, err := mask.DecodeYAML(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mapping file %s: %w", path, err)
	}
	return store, nil
}

// saveMappingFile writes a mapping store to path, JSON for .json files
// and YAML otherwise.
func saveMappingFile(path string, store *mask.Store) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create mapping file: %w", err)
	}
	defer f.Close()

	if isJSONFile(path) {
		if err := store.EncodeJSON(f); err != nil {
			return fmt.Errorf("failed to write mapping file %s: %w", path, err)
		}
		return nil
	}
	if err := store.EncodeYAML(f); err != nil {
		return fmt.Errorf("failed to write mapping file %s: %w", path, err)
	}
	return nil
}

func isJSONFile(path string) bool {
	return len(path) > 5 && path[len(path)-5:] == ".json"
}
