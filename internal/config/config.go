// Package config loads CLI/TUI settings: defaults, then ~/.placeholder/config.yaml,
// then PLACEHOLDER_* environment variables. Flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"placeholder-cli/internal/format"

	"gopkg.in/yaml.v3"
)

const DefaultBaseURL = "https://jsonplaceholder.typicode.com"

type Config struct {
	BaseURL string        `yaml:"baseUrl"`
	Timeout time.Duration `yaml:"timeout"`
	Format  string        `yaml:"format"`
	Pretty  bool          `yaml:"pretty"`
	// Breaker enables the client circuit breaker.
	Breaker bool `yaml:"breaker"`
	// DefaultOwner is the owner id used for creates while no filter is set.
	DefaultOwner int `yaml:"defaultOwner"`

	Log   LogConfig   `yaml:"log"`
	Serve ServeConfig `yaml:"serve"`
	TUI   TUIConfig   `yaml:"tui"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// File receives log output; the TUI discards logs when empty.
	File string `yaml:"file,omitempty"`
}

type ServeConfig struct {
	Addr string `yaml:"addr"`
	// DB is the sqlite path; empty means in-memory.
	DB string `yaml:"db,omitempty"`
}

type TUIConfig struct {
	// Theme is "auto", "dark" or "light".
	Theme string `yaml:"theme,omitempty"`
	// Resource is the view shown on start.
	Resource string `yaml:"resource,omitempty"`
}

func Default() *Config {
	return &Config{
		BaseURL:      DefaultBaseURL,
		Timeout:      30 * time.Second,
		Format:       "json",
		DefaultOwner: 1,
		Log:          LogConfig{Level: "info"},
		Serve:        ServeConfig{Addr: "127.0.0.1:3000"},
	}
}

func Dir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.placeholder).
	if v := strings.TrimSpace(os.Getenv("PLACEHOLDER_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".placeholder"), nil
}

func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads defaults overlaid with the YAML file at path and the environment.
// An empty path means DefaultPath, which may be missing; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if v := strings.TrimSpace(os.Getenv("PLACEHOLDER_CONFIG")); v != "" {
			path, explicit = v, true
		} else {
			p, err := DefaultPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
	}

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays PLACEHOLDER_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(k string, dst *string) {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			*dst = v
		}
	}
	str("PLACEHOLDER_BASE_URL", &c.BaseURL)
	str("PLACEHOLDER_FORMAT", &c.Format)
	str("PLACEHOLDER_LOG_LEVEL", &c.Log.Level)
	str("PLACEHOLDER_LOG_FILE", &c.Log.File)
	str("PLACEHOLDER_ADDR", &c.Serve.Addr)
	str("PLACEHOLDER_DB", &c.Serve.DB)
	str("PLACEHOLDER_TUI_THEME", &c.TUI.Theme)

	if v := strings.TrimSpace(getenv("PLACEHOLDER_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PLACEHOLDER_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := strings.TrimSpace(getenv("PLACEHOLDER_BREAKER")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PLACEHOLDER_BREAKER: %w", err)
		}
		c.Breaker = b
	}
	if v := strings.TrimSpace(getenv("PLACEHOLDER_DEFAULT_OWNER")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PLACEHOLDER_DEFAULT_OWNER: %w", err)
		}
		c.DefaultOwner = n
	}
	return nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("baseUrl %q: want an absolute http(s) URL", c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative (got %s)", c.Timeout)
	}
	if !format.Valid(c.Format) {
		return fmt.Errorf("unknown format %q (want %s)", c.Format, strings.Join(format.Formats, "|"))
	}
	if c.DefaultOwner <= 0 {
		return fmt.Errorf("defaultOwner must be positive (got %d)", c.DefaultOwner)
	}
	switch c.TUI.Theme {
	case "", "auto", "dark", "light":
	default:
		return fmt.Errorf("tui.theme %q: want auto|dark|light", c.TUI.Theme)
	}
	return nil
}

// Save writes c to path, replacing any existing file atomically.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "config.yaml.*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, 0o600)
	return os.Rename(tmp, path)
}
