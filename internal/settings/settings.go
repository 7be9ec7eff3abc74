// Package settings loads the application settings file: file locations,
// the save debounce interval, and the telemetry toggle.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the YAML settings file shape. Zero values get platform
// defaults from applyDefaults.
type Settings struct {
	// ConfigPath is the launcher configuration document.
	ConfigPath string `yaml:"configPath"`

	// TelemetryPath is the usage event log.
	TelemetryPath string `yaml:"telemetryPath"`

	// DebounceMS is the save coalescing window in milliseconds. A pointer
	// so an explicit `0` (save immediately) survives decoding; nil gets
	// the 300ms default.
	DebounceMS *int `yaml:"debounceMs"`

	// TelemetryEnabled toggles usage recording. Defaults to true; a
	// pointer so an explicit `false` survives decoding.
	TelemetryEnabled *bool `yaml:"telemetryEnabled"`
}

// Debounce returns the configured debounce window as a duration.
func (s *Settings) Debounce() time.Duration {
	if s.DebounceMS == nil {
		return 300 * time.Millisecond
	}
	return time.Duration(*s.DebounceMS) * time.Millisecond
}

// TelemetryOn reports whether usage recording is enabled.
func (s *Settings) TelemetryOn() bool {
	return s.TelemetryEnabled == nil || *s.TelemetryEnabled
}

// DefaultPath returns the standard settings file location under the
// user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "keyfold", "settings.yaml"), nil
}

// Load reads the settings file at path. A missing file is not an error;
// defaults are returned. Environment variables in string values expand
// via ${VAR}.
func Load(path string) (*Settings, error) {
	var s Settings
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// fall through to defaults
	case err != nil:
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &s); err != nil {
			return nil, fmt.Errorf("parse settings %s: %w", path, err)
		}
	}

	if err := s.applyDefaults(); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) applyDefaults() error {
	if s.ConfigPath == "" || s.TelemetryPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("resolve user config dir: %w", err)
		}
		base := filepath.Join(dir, "keyfold")
		if s.ConfigPath == "" {
			s.ConfigPath = filepath.Join(base, "config.json")
		}
		if s.TelemetryPath == "" {
			s.TelemetryPath = filepath.Join(base, "usage.jsonl")
		}
	}
	if s.DebounceMS == nil {
		ms := 300
		s.DebounceMS = &ms
	}
	return nil
}

func (s *Settings) validate() error {
	if *s.DebounceMS < 0 {
		return fmt.Errorf("settings: debounceMs must be non-negative, got %d", *s.DebounceMS)
	}
	return nil
}
