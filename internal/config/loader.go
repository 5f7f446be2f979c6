package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/sqlveil/pkg/token"
	"github.com/spf13/pflag"
)

// Config file names, searched in the working directory and upward.
const (
	ConfigFileName    = "sqlveil.yaml"
	ConfigFileNameAlt = "sqlveil.yml"
)

// maxUpwardSearchLevels limits how far up the directory tree to search.
const maxUpwardSearchLevels = 10

var configFileUsed string

// GetConfigFileUsed returns the config file the last Load resolved, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// findConfigFile resolves the config file to use.
// Priority: explicit path > sqlveil.yaml/yml in CWD > upward search.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for i := 0; i < maxUpwardSearchLevels; i++ {
		for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
			candidate := filepath.Join(dir, name)
			if _, statErr := os.Stat(candidate); statErr == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// configSections are the nested config groups. Only the leading section
// underscore in an env var name becomes a separator; the rest stay literal,
// so SQLVEIL_SEMANTIC_API_KEY maps to semantic.api_key and
// SQLVEIL_STATE_PATH to state_path.
var configSections = []string{"semantic", "classifier", "server"}

func envKey(name string) string {
	key := strings.ToLower(name)
	for _, section := range configSections {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok {
			return section + "." + rest
		}
	}
	return key
}

// Load loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// Extra dialect keywords from the resolved config are registered with the
// token package so the lexer treats them as reserved.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"mode":             DefaultMode,
		"output":           DefaultOutput,
		"verbose":          false,
		"state_path":       DefaultStateFile,
		"server.addr":      DefaultAddr,
		"semantic.timeout": DefaultTimeout,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables: SQLVEIL_SEMANTIC_ENDPOINT -> semantic.endpoint
	if err := k.Load(env.Provider("SQLVEIL_", ".", func(s string) string {
		return envKey(strings.TrimPrefix(s, "SQLVEIL_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (only those explicitly set)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, kw := range cfg.Classifier.ExtraKeywords {
		token.RegisterKeyword(kw)
	}

	return &cfg, nil
}
