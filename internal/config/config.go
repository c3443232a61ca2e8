package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jacklau/picdedup/internal/fingerprint"
	"github.com/jacklau/picdedup/internal/scan"
)

// DefaultPath is the config file location used when --config is not given.
const DefaultPath = "~/.picdedup/config.yaml"

// Config is the top-level configuration.
type Config struct {
	Dedupe DedupeConfig `yaml:"dedupe"`
	Cache  CacheConfig  `yaml:"cache"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
	Notify NotifyConfig `yaml:"notify"`
}

// DedupeConfig holds the defaults for a dedupe run.
type DedupeConfig struct {
	Mode       string   `yaml:"mode"`
	Threshold  *int     `yaml:"threshold"`
	Algorithm  string   `yaml:"algorithm"`
	Workers    int      `yaml:"workers"`
	Extensions []string `yaml:"extensions"`
}

// CacheConfig controls the fingerprint cache.
type CacheConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// StoreConfig holds storage settings.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// NotifyConfig holds notification webhook URLs.
type NotifyConfig struct {
	SlackWebhook   string `yaml:"slack_webhook"`
	DiscordWebhook string `yaml:"discord_webhook"`
}

// ModeValue returns the parsed dedupe mode.
func (d DedupeConfig) ModeValue() (fingerprint.Mode, error) {
	return fingerprint.ParseMode(d.Mode)
}

// ThresholdValue returns the configured threshold, or 1 when unset.
func (d DedupeConfig) ThresholdValue() int {
	if d.Threshold == nil {
		return 1
	}
	return *d.Threshold
}

// CacheEnabled reports whether the fingerprint cache is on. It defaults to true.
func (c CacheConfig) CacheEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// envVarPattern matches ${VAR} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} placeholders with environment variable values.
// Returns an error if any referenced variable is not set.
func expandEnvVars(data []byte) ([]byte, error) {
	var missing []string

	result := envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		val, ok := os.LookupEnv(string(varName))
		if !ok {
			missing = append(missing, string(varName))
			return match
		}
		return []byte(val)
	})

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return result, nil
}

// expandTilde replaces a leading "~" with the user's home directory.
func expandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// DefaultFile returns DefaultPath with the home directory expanded.
func DefaultFile() string {
	return expandTilde(DefaultPath)
}

// Load reads and parses a config file from the given path. When optional is
// true a missing file yields the default configuration.
func Load(path string, optional bool) (*Config, error) {
	data, err := os.ReadFile(expandTilde(path))
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Parse(nil)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses config from raw YAML bytes, expanding env vars and validating.
func Parse(data []byte) (*Config, error) {
	expanded, err := expandEnvVars(data)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Dedupe.Mode == "" {
		cfg.Dedupe.Mode = fingerprint.ModeExact.String()
	}
	if cfg.Dedupe.Algorithm == "" {
		cfg.Dedupe.Algorithm = string(fingerprint.DefaultAlgorithm)
	}
	if cfg.Dedupe.Workers == 0 {
		cfg.Dedupe.Workers = 4
	}
	if len(cfg.Dedupe.Extensions) == 0 {
		cfg.Dedupe.Extensions = append([]string(nil), scan.DefaultExtensions...)
	} else {
		cfg.Dedupe.Extensions = scan.NormalizeExtensions(cfg.Dedupe.Extensions)
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "~/.picdedup/picdedup.db"
	}
	cfg.Store.Path = expandTilde(cfg.Store.Path)
	if cfg.Log.File != "" {
		cfg.Log.File = expandTilde(cfg.Log.File)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func validate(cfg *Config) error {
	if _, err := fingerprint.ParseMode(cfg.Dedupe.Mode); err != nil {
		return fmt.Errorf("invalid dedupe mode: %w", err)
	}
	if _, err := fingerprint.ParseAlgorithm(cfg.Dedupe.Algorithm); err != nil {
		return fmt.Errorf("invalid dedupe algorithm: %w", err)
	}
	if t := cfg.Dedupe.ThresholdValue(); t < 0 {
		return fmt.Errorf("threshold must be non-negative, got %d", t)
	}
	if cfg.Dedupe.Workers < 0 {
		return fmt.Errorf("workers must be at least 1, got %d", cfg.Dedupe.Workers)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("unsupported log level: %s", cfg.Log.Level)
	}

	return nil
}
