// Package config loads runtime settings from defaults, an optional YAML
// file and FOCUSD_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("config: invalid value")

type RuntimeConfig struct {
	DatabasePath         string        `yaml:"database_path"`
	OwnerID              string        `yaml:"owner_id"`
	LogPath              string        `yaml:"log_path"`
	DedupWindow          time.Duration `yaml:"dedup_window"`
	ReconcileInterval    time.Duration `yaml:"reconcile_interval"`
	DesktopNotifications bool          `yaml:"desktop_notifications"`
	SchedulerBuffer      int           `yaml:"scheduler_buffer"`
	UITick               time.Duration `yaml:"ui_tick"`
	// WatchDebounce coalesces bursts of database file events.
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		DatabasePath:         "focusd.db",
		OwnerID:              "local",
		LogPath:              "focusd.log",
		DedupWindow:          5000 * time.Millisecond,
		ReconcileInterval:    30 * time.Second,
		DesktopNotifications: false,
		SchedulerBuffer:      64,
		UITick:               time.Second,
		WatchDebounce:        200 * time.Millisecond,
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv applies FOCUSD_* overrides. Unparseable or non-positive values
// are ignored.
func FromEnv(base RuntimeConfig) RuntimeConfig {
	cfg := base
	if v, ok := getEnvString("FOCUSD_DB_PATH"); ok {
		cfg.DatabasePath = v
	}
	if v, ok := getEnvString("FOCUSD_OWNER_ID"); ok {
		cfg.OwnerID = v
	}
	if v, ok := getEnvString("FOCUSD_LOG_PATH"); ok {
		cfg.LogPath = v
	}
	if v, ok := getEnvInt("FOCUSD_DEDUP_WINDOW_MS"); ok && v > 0 {
		cfg.DedupWindow = time.Duration(v) * time.Millisecond
	}
	if v, ok := getEnvInt("FOCUSD_RECONCILE_SECONDS"); ok && v > 0 {
		cfg.ReconcileInterval = time.Duration(v) * time.Second
	}
	if v, ok := getEnvBool("FOCUSD_DESKTOP_NOTIFICATIONS"); ok {
		cfg.DesktopNotifications = v
	}
	if v, ok := getEnvInt("FOCUSD_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	if v, ok := getEnvInt("FOCUSD_UI_TICK_MS"); ok && v > 0 {
		cfg.UITick = time.Duration(v) * time.Millisecond
	}
	return cfg
}

func (c RuntimeConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DatabasePath) == "" {
		errs = append(errs, fmt.Errorf("%w: database_path is required", ErrInvalidConfig))
	}
	if strings.TrimSpace(c.OwnerID) == "" {
		errs = append(errs, fmt.Errorf("%w: owner_id is required", ErrInvalidConfig))
	}
	for name, d := range map[string]time.Duration{
		"dedup_window":       c.DedupWindow,
		"reconcile_interval": c.ReconcileInterval,
		"ui_tick":            c.UITick,
		"watch_debounce":     c.WatchDebounce,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidConfig, name, d))
		}
	}
	if c.SchedulerBuffer <= 0 {
		errs = append(errs, fmt.Errorf("%w: scheduler_buffer must be positive, got %d", ErrInvalidConfig, c.SchedulerBuffer))
	}
	return errors.Join(errs...)
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	return raw, raw != ""
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
