package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Defaults should validate: %v", err)
	}
	if got := cfg.Eval.Timeout(); got != 2*time.Second {
		t.Errorf("Eval.Timeout() = %v, want 2s", got)
	}
	if cfg.Demo.Workers < 1 {
		t.Errorf("Demo.Workers = %d, want >= 1", cfg.Demo.Workers)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loopctl.toml")
	content := `
[eval]
timeout_ms = 500

[demo]
workers = 7
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Eval.TimeoutMS != 500 {
		t.Errorf("Eval.TimeoutMS = %d, want 500", cfg.Eval.TimeoutMS)
	}
	if cfg.Demo.Workers != 7 {
		t.Errorf("Demo.Workers = %d, want 7", cfg.Demo.Workers)
	}
	// Unset keys keep their defaults.
	if cfg.TUI.AccentColor != DefaultAccentColor {
		t.Errorf("TUI.AccentColor = %q, want default", cfg.TUI.AccentColor)
	}
}

func TestLoadUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loopctl.toml")
	if err := os.WriteFile(path, []byte("[evaal]\ntimeout_ms = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown keys")
	}
	if !strings.Contains(err.Error(), "unknown keys") {
		t.Errorf("err = %v, want unknown-keys message", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative timeout", func(c *Config) { c.Eval.TimeoutMS = -1 }},
		{"zero workers", func(c *Config) { c.Demo.Workers = 0 }},
		{"negative iterations", func(c *Config) { c.Demo.Iterations = -1 }},
		{"bad accent color", func(c *Config) { c.TUI.AccentColor = "purple" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestInitFile(t *testing.T) {
	dir := t.TempDir()

	path, err := InitFile(dir)
	if err != nil {
		t.Fatalf("InitFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load of generated file: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("generated config should validate: %v", err)
	}

	if _, err := InitFile(dir); err == nil {
		t.Error("second InitFile should refuse to overwrite")
	}
}
