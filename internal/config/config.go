// Package config loads CLI configuration from file, environment variables,
// and flags. Precedence (highest to lowest): flags > env vars > config file
// > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "sqlshift.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "sqlshift.yml"

// EnvPrefix is the prefix for environment variable overrides,
// e.g. SQLSHIFT_DIALECT or SQLSHIFT_STRICT_MODE.
const EnvPrefix = "SQLSHIFT_"

// Config holds all CLI configuration options.
type Config struct {
	Dialect    string `koanf:"dialect"`
	StrictMode bool   `koanf:"strict_mode"`
	RetryCount int    `koanf:"retry_count"`
	MaxMetrics int    `koanf:"max_metrics"`
	Scope      string `koanf:"scope"`
	RulesFile  string `koanf:"rules_file"`
	RulesDSN   string `koanf:"rules_dsn"`
	StatePath  string `koanf:"state_path"`
	Verbose    bool   `koanf:"verbose"`
}

// Default configuration values.
const (
	DefaultDialect    = "duckdb"
	DefaultRetryCount = 2
	DefaultMaxMetrics = 1
	DefaultStateFile  = ".sqlshift/state.db"
)

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		Dialect:    DefaultDialect,
		RetryCount: DefaultRetryCount,
		MaxMetrics: DefaultMaxMetrics,
		StatePath:  DefaultStateFile,
	}
}

// Load builds the effective configuration. cfgFile overrides discovery; an
// empty cfgFile means "search the current directory and its parents".
// flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	path := cfgFile
	if path == "" {
		if dir, err := os.Getwd(); err == nil {
			if root := FindProjectRoot(dir); root != "" {
				path = findConfigFile(root)
			}
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// SQLSHIFT_STRICT_MODE=true -> strict_mode
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		// --retry-count -> retry_count; only flags the user set override.
		if err := k.Load(posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, any) {
			return strings.ReplaceAll(key, "-", "_"), value
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// findConfigFile finds the config file in the given directory.
// Returns empty string if not found.
func findConfigFile(dir string) string {
	yamlPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}

	ymlPath := filepath.Join(dir, ConfigFileNameAlt)
	if _, err := os.Stat(ymlPath); err == nil {
		return ymlPath
	}

	return ""
}

// FindProjectRoot walks up from the given directory to find a directory
// containing sqlshift.yaml or sqlshift.yml.
// Returns empty string if not found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		if findConfigFile(dir) != "" {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
