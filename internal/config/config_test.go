package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvFile, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv("HOME", t.TempDir())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg.File != want.File || !cfg.ClearScreen || !cfg.Color || cfg.LogLevel != "warn" || cfg.Path != "" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if got := cfg.ResolvedExportDir(); got != "exports" {
		t.Fatalf("export dir = %q", got)
	}
}

func TestLoadFileKeepsUnsetDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "file: /data/todo.yaml\nclear_screen: false\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.File != "/data/todo.yaml" || cfg.ClearScreen || !cfg.Color || cfg.Path != path {
		t.Fatalf("cfg = %+v", cfg)
	}
	if got := cfg.ResolvedExportDir(); got != "/data/exports" {
		t.Fatalf("export dir = %q", got)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("file: from-file.json\nlog_level: info\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(EnvConfig, path)
	t.Setenv(EnvFile, "from-env.toml")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.File != "from-env.toml" || cfg.LogLevel != "debug" || cfg.Path != path {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadDefaultPathUnderHome(t *testing.T) {
	clearEnv(t)
	home := os.Getenv("HOME")
	path := filepath.Join(home, ".config", "tasktrack", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("color: false\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Color || cfg.Path != path {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cases := map[string]string{
		"malformed.yaml": "file: [unterminated\n",
		"level.yaml":     "log_level: loud\n",
	}
	for name, content := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(path); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: err = %v, want ErrInvalid", name, err)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelWarn,
		"DEBUG": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
}
