// Package config provides configuration management for the sqlveil CLI.
package config

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/sqlveil/pkg/mask"
)

// Defaults.
const (
	DefaultMode      = "deterministic"
	DefaultOutput    = "text"
	DefaultStateFile = ".sqlveil/state.db"
	DefaultAddr      = "127.0.0.1:8710"
	DefaultTimeout   = 10 * time.Second
)

// Config holds the resolved sqlveil configuration.
type Config struct {
	Mode    string `koanf:"mode"`    // deterministic or semantic
	Output  string `koanf:"output"`  // text, json, markdown
	Verbose bool   `koanf:"verbose"` // debug logging

	Semantic   SemanticConfig   `koanf:"semantic"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Server     ServerConfig     `koanf:"server"`
	StatePath  string           `koanf:"state_path"`
}

// SemanticConfig configures the external naming collaborator used in
// semantic mode. The engine works without it; any failure falls back to
// deterministic naming.
type SemanticConfig struct {
	Endpoint string        `koanf:"endpoint"` // OpenAI-compatible chat completions URL
	Model    string        `koanf:"model"`
	APIKey   string        `koanf:"api_key"` // usually via SQLVEIL_SEMANTIC_API_KEY
	Timeout  time.Duration `koanf:"timeout"` // per-entity bound
}

// ClassifierConfig tunes entity classification.
type ClassifierConfig struct {
	// LiteralExclusions overrides the default set of lexemes whose
	// following string literal is left unmasked. Empty means defaults.
	LiteralExclusions []string `koanf:"literal_exclusions"`
	// ExtraKeywords are dialect keywords (QUALIFY, ILIKE, ...) treated
	// as reserved in addition to the ANSI set.
	ExtraKeywords []string `koanf:"extra_keywords"`
	// ExtraBuiltins are additional function/type names never masked.
	ExtraBuiltins []string `koanf:"extra_builtins"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// Defaults returns a config populated with the built-in defaults.
func Defaults() *Config {
	return &Config{
		Mode:      DefaultMode,
		Output:    DefaultOutput,
		StatePath: DefaultStateFile,
		Semantic:  SemanticConfig{Timeout: DefaultTimeout},
		Server:    ServerConfig{Addr: DefaultAddr},
	}
}

// Validate checks field values that koanf cannot.
func (c *Config) Validate() error {
	if _, err := mask.ParseMode(c.Mode); err != nil {
		return err
	}
	switch c.Output {
	case "auto", "text", "json", "markdown":
	default:
		return fmt.Errorf("unknown output format %q", c.Output)
	}
	if c.Mode == string(mask.ModeSemantic) && c.Semantic.Endpoint == "" {
		return fmt.Errorf("semantic mode requires semantic.endpoint")
	}
	return nil
}

// ClassifyOptions converts the classifier section to engine options.
func (c *Config) ClassifyOptions() mask.ClassifyOptions {
	return mask.ClassifyOptions{
		LiteralExclusions: c.Classifier.LiteralExclusions,
		ExtraBuiltins:     c.Classifier.ExtraBuiltins,
	}
}
