// Package config holds kodman's runtime settings.
//
// Settings are resolved in order, later sources winning:
//
//  1. DefaultConfig
//  2. YAML config file (--config, KODMAN_CONFIG, or ~/.config/kodman/config.yaml)
//  3. KODMAN_* environment variables
//  4. command-line flags (applied by pkg/cli)
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/epics-containers/kodman/pkg/defaults"
)

// Environment variable names.
const (
	EnvConfig               = "KODMAN_CONFIG"
	EnvNamespace            = "KODMAN_NAMESPACE"
	EnvDebug                = "KODMAN_DEBUG"
	EnvLogJSON              = "KODMAN_LOG_JSON"
	EnvNamePrefix           = "KODMAN_NAME_PREFIX"
	EnvReadyTimeout         = "KODMAN_READY_TIMEOUT"
	EnvNameCollisionRetries = "KODMAN_NAME_COLLISION_RETRIES"
	EnvLogLevel             = "LOG_LEVEL"
	// EnvKubeconfig is read by the cluster client, not by Load.
	EnvKubeconfig = "KUBECONFIG"
)

// Config is the resolved configuration of one kodman invocation.
type Config struct {
	// Namespace to run Pods in. Empty means the kubeconfig context namespace.
	Namespace string `yaml:"namespace"`
	// Kubeconfig path. Empty means KUBECONFIG, ~/.kube/config, then in-cluster.
	Kubeconfig string `yaml:"kubeconfig"`

	NamePrefix string `yaml:"namePrefix"`
	// NameCollisionRetries is how many times creation is retried with a fresh
	// name when the derived name already exists. Zero makes a collision fatal.
	NameCollisionRetries int `yaml:"nameCollisionRetries"`

	ReadyPollInterval  time.Duration `yaml:"readyPollInterval"`
	ReadyTimeout       time.Duration `yaml:"readyTimeout"`
	ExecFlushInterval  time.Duration `yaml:"execFlushInterval"`
	DeleteGracePeriod  time.Duration `yaml:"deleteGracePeriod"`
	DeletePollInterval time.Duration `yaml:"deletePollInterval"`
	CleanupTimeout     time.Duration `yaml:"cleanupTimeout"`

	// ExtractCommand is run inside the Pod with the volume archive on stdin.
	ExtractCommand []string `yaml:"extractCommand"`

	Debug       bool   `yaml:"debug"`
	LogJSON     bool   `yaml:"logJSON"`
	LogLevel    string `yaml:"logLevel"`
	MetricsFile string `yaml:"metricsFile"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		NamePrefix:         defaults.NamePrefix,
		ReadyPollInterval:  defaults.ReadyPollInterval,
		ExecFlushInterval:  defaults.ExecFlushInterval,
		DeleteGracePeriod:  defaults.DeleteGracePeriod,
		DeletePollInterval: defaults.DeletePollInterval,
		CleanupTimeout:     defaults.CleanupTimeout,
		ExtractCommand:     defaults.ExtractCommand(),
		LogLevel:           slog.LevelInfo.String(),
	}
}

// DefaultPath returns ~/.config/kodman/config.yaml, or "" if the home
// directory cannot be determined.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "kodman", "config.yaml")
}

// Load resolves defaults, the config file and environment overrides.
// An explicit path (argument or KODMAN_CONFIG) must exist; the default path
// is optional.
func Load(path string, env *Environment) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		if p, ok := env.String(EnvConfig); ok && p != "" {
			path, explicit = p, true
		} else {
			path = DefaultPath()
		}
	}

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			if explicit || !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	cfg.applyEnv(env)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Describe looks up every variable kodman reads, so env.Usage lists them all
// before any configuration is loaded.
func Describe(env *Environment) {
	env.String(EnvConfig)
	env.String(EnvKubeconfig)
	DefaultConfig().applyEnv(env)
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(env *Environment) {
	if v, ok := env.String(EnvNamespace); ok && v != "" {
		c.Namespace = v
	}
	if v, ok := env.String(EnvNamePrefix); ok && v != "" {
		c.NamePrefix = v
	}
	if v, ok := env.Bool(EnvDebug); ok {
		c.Debug = v
	}
	if v, ok := env.Bool(EnvLogJSON); ok {
		c.LogJSON = v
	}
	if v, ok := env.String(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := env.Duration(EnvReadyTimeout); ok {
		c.ReadyTimeout = v
	}
	if v, ok := env.Int(EnvNameCollisionRetries); ok {
		c.NameCollisionRetries = v
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.NamePrefix == "" {
		return fmt.Errorf("namePrefix must not be empty")
	}
	if c.NameCollisionRetries < 0 {
		return fmt.Errorf("nameCollisionRetries must not be negative, got %d", c.NameCollisionRetries)
	}
	if c.ReadyTimeout < 0 {
		return fmt.Errorf("readyTimeout must not be negative, got %s", c.ReadyTimeout)
	}
	for name, d := range map[string]time.Duration{
		"readyPollInterval":  c.ReadyPollInterval,
		"execFlushInterval":  c.ExecFlushInterval,
		"deletePollInterval": c.DeletePollInterval,
		"cleanupTimeout":     c.CleanupTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.DeleteGracePeriod < 0 {
		return fmt.Errorf("deleteGracePeriod must not be negative, got %s", c.DeleteGracePeriod)
	}
	if len(c.ExtractCommand) == 0 {
		return fmt.Errorf("extractCommand must not be empty")
	}
	return nil
}
