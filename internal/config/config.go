// Package config loads the blockedit configuration file
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration
type Config struct {
	Editor  EditorConfig  `yaml:"editor" toml:"editor"`
	Store   StoreConfig   `yaml:"store" toml:"store"`
	Remote  RemoteConfig  `yaml:"remote" toml:"remote"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// EditorConfig holds the geometry used for hit testing and anchoring
type EditorConfig struct {
	ViewportWidth float64 `yaml:"viewport_width" toml:"viewport_width"`
	Padding       float64 `yaml:"padding" toml:"padding"`
	FontSize      float64 `yaml:"font_size" toml:"font_size"`
	LineHeight    float64 `yaml:"line_height" toml:"line_height"`
	CellMinHeight float64 `yaml:"cell_min_height" toml:"cell_min_height"`
	GridGap       float64 `yaml:"grid_gap" toml:"grid_gap"`
}

// StoreConfig holds the local SQLite store settings
type StoreConfig struct {
	Path       string `yaml:"path" toml:"path"`
	UploadsDir string `yaml:"uploads_dir" toml:"uploads_dir"`
	UploadsURL string `yaml:"uploads_url" toml:"uploads_url"`
}

// RemoteConfig points at a site server; when BaseURL is set it replaces
// the local store
type RemoteConfig struct {
	BaseURL  string `yaml:"base_url" toml:"base_url"`
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
}

// LoggingConfig configures the default slog handler
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Editor: EditorConfig{
			ViewportWidth: 800,
			Padding:       16,
			FontSize:      16,
			LineHeight:    1.4,
			CellMinHeight: 80,
			GridGap:       8,
		},
		Store: StoreConfig{
			Path:       filepath.Join("data", "pages.db"),
			UploadsDir: filepath.Join("data", "uploads"),
			UploadsURL: "/uploads",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a YAML or TOML file, chosen by extension, over the defaults.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	expanded := expandEnvVars(string(data))

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value, or an
// empty string when it is unset
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})
}

// Validate returns the first invalid setting
func (c *Config) Validate() error {
	e := c.Editor
	if e.ViewportWidth <= 0 {
		return fmt.Errorf("editor.viewport_width must be positive")
	}
	if e.Padding < 0 || e.GridGap < 0 {
		return fmt.Errorf("editor.padding and editor.grid_gap must not be negative")
	}
	if 2*e.Padding >= e.ViewportWidth {
		return fmt.Errorf("editor.padding leaves no room in a %gpx viewport", e.ViewportWidth)
	}
	if e.FontSize <= 0 || e.LineHeight <= 0 || e.CellMinHeight <= 0 {
		return fmt.Errorf("editor.font_size, editor.line_height and editor.cell_min_height must be positive")
	}
	if c.Remote.BaseURL == "" && c.Store.Path == "" {
		return fmt.Errorf("store.path is required when remote.base_url is not set")
	}
	if c.Remote.BaseURL != "" && !strings.HasPrefix(c.Remote.BaseURL, "http://") && !strings.HasPrefix(c.Remote.BaseURL, "https://") {
		return fmt.Errorf("remote.base_url must be an http(s) URL")
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}
	return nil
}

// ParseLevel parses a logging level name
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", s)
}
