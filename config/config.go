package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hyperslop/hyperslop-mcp/internal/util"
)

// Default configuration constants. See [Config] for field descriptions.
const (
	// DefaultConfigFile is the credential file the original gateway tooling
	// writes next to the binary.
	DefaultConfigFile = "api.json"

	// DefaultTimeoutSec bounds every outbound gateway call. There is no retry,
	// so this is also the worst-case latency of a single tool invocation.
	DefaultTimeoutSec = 30
)

// Verbosity levels accepted on the CLI and in config files, mapped onto
// internal log levels by [Config.Merge].
const (
	ErrorVerbose = 1
	WarnVerbose  = 2
	InfoVerbose  = 3
	DebugVerbose = 4
	TraceVerbose = 5
)

// Environment variable names recognized by [LoadEnvOverride].
const (
	EnvNode       = "HYPERSLOP_NODE"
	EnvURL        = "HYPERSLOP_URL"
	EnvKey        = "HYPERSLOP_KEY"
	EnvTimeoutSec = "HYPERSLOP_TIMEOUT_SEC"
	EnvVerbose    = "HYPERSLOP_VERBOSE"
)

// Config contains the immutable runtime configuration for the adapter.
// It is constructed once at startup and passed by reference; nothing
// mutates it afterwards.
type Config struct {
	Node       string        // Local node identity; the only node write operations may target
	URL        string        // Gateway API base URL
	Key        string        // Static API key attached to every gateway request
	TimeoutSec int           // Per-call timeout for outbound gateway requests, in seconds
	LogLvl     util.LogLevel // Internal log level derived from verbosity
}

// ConfigOverride uses pointer fields to distinguish between unset and zero
// values when loading partial configuration. See [Config] for field
// descriptions. The JSON field names match the original api.json schema.
type ConfigOverride struct {
	Node       *string `yaml:"node,omitempty" json:"node,omitempty"`
	URL        *string `yaml:"url,omitempty" json:"url,omitempty"`
	Key        *string `yaml:"key,omitempty" json:"key,omitempty"`
	TimeoutSec *int    `yaml:"timeout_sec,omitempty" json:"timeout_sec,omitempty"`
	// LogLvl is the user-facing verbosity (1=error .. 5=trace), converted to
	// an internal level on merge.
	LogLvl *int `yaml:"verbose,omitempty" json:"verbose,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values. Node, URL
// and Key have no usable defaults and must come from an override; Validate
// rejects a Config that never received them.
func NewDefaultConfig() *Config {
	return &Config{
		TimeoutSec: DefaultTimeoutSec,
		LogLvl:     util.InfoLevel,
	}
}

// NewConfig creates a Config from defaults merged with the provided
// override. A nil override yields the pure defaults.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.Node != nil {
		c.Node = *override.Node
	}
	if override.URL != nil {
		c.URL = *override.URL
	}
	if override.Key != nil {
		c.Key = *override.Key
	}
	if override.TimeoutSec != nil {
		c.TimeoutSec = *override.TimeoutSec
	}
	if override.LogLvl != nil {
		verbose := *override.LogLvl
		if verbose < ErrorVerbose {
			verbose = ErrorVerbose
		}
		if verbose > TraceVerbose {
			verbose = TraceVerbose
		}
		lvls := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
		c.LogLvl = lvls[verbose-1]
	}
}

// Validate checks that the merged configuration is usable. It is called once
// at startup; a failure is fatal to the process, never to an individual call.
func (c *Config) Validate() error {
	if c.Node == "" {
		return fmt.Errorf("config: node identity is required")
	}
	if c.URL == "" {
		return fmt.Errorf("config: gateway url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("config: invalid gateway url %q: %w", c.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: gateway url %q must be http or https", c.URL)
	}
	if c.Key == "" {
		return fmt.Errorf("config: api key is required")
	}
	if c.TimeoutSec <= 0 {
		return fmt.Errorf("config: timeout_sec must be positive, got %d", c.TimeoutSec)
	}
	return nil
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// LoadEnvOverride builds an override from HYPERSLOP_* environment variables.
// A .env file in the working directory is loaded first if present; real
// environment variables win over .env entries per godotenv semantics.
// Unparseable numeric values are ignored rather than failing startup.
func LoadEnvOverride() *ConfigOverride {
	// Missing .env is the common case and not an error.
	_ = godotenv.Load()

	var override ConfigOverride
	if v, ok := os.LookupEnv(EnvNode); ok && v != "" {
		override.Node = &v
	}
	if v, ok := os.LookupEnv(EnvURL); ok && v != "" {
		override.URL = &v
	}
	if v, ok := os.LookupEnv(EnvKey); ok && v != "" {
		override.Key = &v
	}
	if v, ok := os.LookupEnv(EnvTimeoutSec); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			override.TimeoutSec = &n
		}
	}
	if v, ok := os.LookupEnv(EnvVerbose); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			override.LogLvl = &n
		}
	}
	return &override
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(override)
	return cfg, nil
}
