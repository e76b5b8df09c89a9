package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "tasktrack"
	configFile = "config.yaml"

	EnvConfig   = "TASKTRACK_CONFIG"
	EnvFile     = "TASKTRACK_FILE"
	EnvLogLevel = "TASKTRACK_LOG_LEVEL"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	File        string `yaml:"file"`
	Format      string `yaml:"format,omitempty"`
	ExportDir   string `yaml:"export_dir,omitempty"`
	ClearScreen bool   `yaml:"clear_screen"`
	LogLevel    string `yaml:"log_level"`
	Color       bool   `yaml:"color"`

	// Path is where the config was read from; empty when defaults were used.
	Path string `yaml:"-"`
}

func Default() *Config {
	return &Config{
		File:        "tasks.json",
		ClearScreen: true,
		LogLevel:    "warn",
		Color:       true,
	}
}

// DefaultPath is ~/.config/tasktrack/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, configFile), nil
}

// Load reads the config at path, falling back to $TASKTRACK_CONFIG and then
// DefaultPath. A missing file yields defaults. Environment overrides are
// applied on top of whatever was loaded.
func Load(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfig))
	}
	if path == "" {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(b, cfg); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
			}
			cfg.Path = path
		}
	}
	cfg.applyEnv()
	if strings.TrimSpace(cfg.File) == "" {
		cfg.File = Default().File
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvFile)); v != "" {
		c.File = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
}

// ResolvedExportDir returns export_dir, or exports/ next to the task file.
func (c *Config) ResolvedExportDir() string {
	if d := strings.TrimSpace(c.ExportDir); d != "" {
		return d
	}
	return filepath.Join(filepath.Dir(c.File), "exports")
}

// ParseLevel maps debug|info|warn|error to a slog level. Empty means warn.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("%w: log_level %q (use debug|info|warn|error)", ErrInvalid, s)
	}
}

// NewLogger returns a text logger on w at the given level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
