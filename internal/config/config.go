// Package config holds the engine's configuration surface: projection
// mode, staleness window, retry policy, and storage location. Values come
// from .projector/config.json with PROJECTOR_* environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Projection modes accepted by the "mode" option.
const (
	ModeInline       = "inline"
	ModeIndexedView  = "indexed-view"
	ModeSummaryTable = "summary-table"
)

// Defaults for options the source material leaves unspecified.
const (
	DefaultRetryLimit   = 3
	DefaultWriteTimeout = 5 * time.Second
	DefaultBackoffBase  = 100 * time.Millisecond
	DefaultBackoffMax   = 5 * time.Second
)

// Config represents the flat projector configuration. Durations are
// stored in JSON as strings ("250ms", "5s").
type Config struct {
	Version         string `json:"version"`
	Mode            string `json:"mode"`
	StalenessWindow string `json:"staleness_window,omitempty"`
	RetryLimit      int    `json:"retry_limit"`
	SelfHeal        bool   `json:"self_heal"`
	WriteTimeout    string `json:"write_timeout,omitempty"`
	DBPath          string `json:"db_path,omitempty"`
}

// envOverrides mirrors the Config fields that may be set via environment.
type envOverrides struct {
	Mode            string         `env:"PROJECTOR_MODE"`
	StalenessWindow *time.Duration `env:"PROJECTOR_STALENESS_WINDOW"`
	RetryLimit      *int           `env:"PROJECTOR_RETRY_LIMIT"`
	SelfHeal        *bool          `env:"PROJECTOR_SELF_HEAL"`
	WriteTimeout    *time.Duration `env:"PROJECTOR_WRITE_TIMEOUT"`
	DBPath          string         `env:"PROJECTOR_DB_PATH"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Version:    "1",
		Mode:       ModeInline,
		RetryLimit: DefaultRetryLimit,
	}
}

// LoadConfig reads .projector/config.json from the specified directory and
// applies environment overrides. A missing file falls back to defaults;
// a malformed file or invalid option is an error.
func LoadConfig(dir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(dir, ".projector", "config.json")
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults + environment only
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}
	applyOverrides(cfg, overrides)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes config.json to the directory's .projector dir.
func SaveConfig(dir string, cfg *Config) error {
	projDir := filepath.Join(dir, ".projector")
	if err := os.MkdirAll(projDir, 0755); err != nil {
		return fmt.Errorf("failed to create .projector dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(projDir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func applyOverrides(cfg *Config, o envOverrides) {
	if o.Mode != "" {
		cfg.Mode = o.Mode
	}
	if o.StalenessWindow != nil {
		cfg.StalenessWindow = o.StalenessWindow.String()
	}
	if o.RetryLimit != nil {
		cfg.RetryLimit = *o.RetryLimit
	}
	if o.SelfHeal != nil {
		cfg.SelfHeal = *o.SelfHeal
	}
	if o.WriteTimeout != nil {
		cfg.WriteTimeout = o.WriteTimeout.String()
	}
	if o.DBPath != "" {
		cfg.DBPath = o.DBPath
	}
}

// Validate checks option values and duration syntax.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeInline, ModeIndexedView, ModeSummaryTable:
	default:
		return fmt.Errorf("unknown mode %q (want inline, indexed-view, or summary-table)", c.Mode)
	}
	if c.RetryLimit < 0 {
		return fmt.Errorf("retry_limit must be >= 0, got %d", c.RetryLimit)
	}
	if _, err := c.Staleness(); err != nil {
		return err
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	return nil
}

// Staleness returns the staleness window; zero means synchronous apply.
func (c *Config) Staleness() (time.Duration, error) {
	if c.StalenessWindow == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.StalenessWindow)
	if err != nil {
		return 0, fmt.Errorf("invalid staleness_window %q: %w", c.StalenessWindow, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("staleness_window must be >= 0, got %s", d)
	}
	return d, nil
}

// Timeout returns the projection write deadline.
func (c *Config) Timeout() (time.Duration, error) {
	if c.WriteTimeout == "" {
		return DefaultWriteTimeout, nil
	}
	d, err := time.ParseDuration(c.WriteTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid write_timeout %q: %w", c.WriteTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("write_timeout must be > 0, got %s", d)
	}
	return d, nil
}
