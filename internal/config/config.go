// Package config parses loopctl.toml configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultAccentColor is the default TUI accent color (indigo).
const DefaultAccentColor = "#7D56F4"

// hexColorRe matches a 6-digit hex color string like "#7D56F4".
var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Config is the top-level loopctl.toml configuration.
type Config struct {
	Eval EvalConfig `toml:"eval"`
	Demo DemoConfig `toml:"demo"`
	TUI  TUIConfig  `toml:"tui"`
	Log  LogConfig  `toml:"log"`
}

// EvalConfig controls the eval rendezvous.
type EvalConfig struct {
	TimeoutMS int `toml:"timeout_ms"` // per-request deadline; 0 = built-in default (2000)
}

// Timeout returns the configured rendezvous deadline as a duration.
func (e EvalConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutMS) * time.Millisecond
}

// DemoConfig shapes the demo workload hosted by "loopctl demo".
type DemoConfig struct {
	Workers    int `toml:"workers"`    // worker goroutines hosting loops
	Iterations int `toml:"iterations"` // iterations per demo loop; 0 = unlimited
	TickMS     int `toml:"tick_ms"`    // per-iteration sleep
	Stuck      int `toml:"stuck"`      // additional workers whose loops never checkpoint
}

// Tick returns the per-iteration sleep as a duration.
func (d DemoConfig) Tick() time.Duration {
	return time.Duration(d.TickMS) * time.Millisecond
}

// TUIConfig controls the monitor appearance.
type TUIConfig struct {
	AccentColor string `toml:"accent_color"`
}

// LogConfig controls logging and the control-plane journal.
type LogConfig struct {
	Dir string `toml:"dir"` // journal directory; empty = journal disabled
}

// Validate checks the configuration for issues that would cause confusing
// runtime failures. It returns all found issues joined together.
func (c *Config) Validate() error {
	var errs []error

	if c.Eval.TimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("eval.timeout_ms must be >= 0 (0 = default 2000)"))
	}
	if c.Demo.Workers < 1 {
		errs = append(errs, fmt.Errorf("demo.workers must be >= 1"))
	}
	if c.Demo.Iterations < 0 {
		errs = append(errs, fmt.Errorf("demo.iterations must be >= 0 (0 = unlimited)"))
	}
	if c.Demo.TickMS < 0 {
		errs = append(errs, fmt.Errorf("demo.tick_ms must be >= 0"))
	}
	if c.Demo.Stuck < 0 {
		errs = append(errs, fmt.Errorf("demo.stuck must be >= 0"))
	}
	if c.TUI.AccentColor != "" && !hexColorRe.MatchString(c.TUI.AccentColor) {
		errs = append(errs, fmt.Errorf("tui.accent_color must be a hex color (e.g. \"#7D56F4\")"))
	}

	return errors.Join(errs...)
}

// Defaults returns a Config with sensible defaults.
func Defaults() Config {
	return Config{
		Eval: EvalConfig{
			TimeoutMS: 2000,
		},
		Demo: DemoConfig{
			Workers:    3,
			Iterations: 0,
			TickMS:     250,
			Stuck:      0,
		},
		TUI: TUIConfig{
			AccentColor: DefaultAccentColor,
		},
		Log: LogConfig{
			Dir: ".loopctl",
		},
	}
}

// Load reads loopctl.toml from the given path. If path is empty, it walks
// up from the current working directory looking for loopctl.toml and falls
// back to Defaults when none exists. Returns an error if the file contains
// unknown keys (likely typos).
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := findConfig()
		if err != nil {
			cfg := Defaults()
			return &cfg, nil
		}
		path = found
	}

	cfg := Defaults()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config: unknown keys in %s: %s (possible typos?)", path, strings.Join(keys, ", "))
	}

	return &cfg, nil
}

// findConfig walks up from the current directory looking for loopctl.toml.
func findConfig() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("config: get working directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, "loopctl.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("config: loopctl.toml not found (searched up from %s)", dir)
		}
		dir = parent
	}
}

// InitFile writes a default loopctl.toml template to the given directory.
func InitFile(dir string) (string, error) {
	path := filepath.Join(dir, "loopctl.toml")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config: loopctl.toml already exists at %s", path)
	}

	content := `# loopctl.toml — loop control configuration

[eval]
timeout_ms = 2000  # rendezvous deadline per eval request

[demo]
workers = 3     # worker goroutines hosting demo loops
iterations = 0  # iterations per loop; 0 = unlimited
tick_ms = 250   # sleep per iteration
stuck = 0       # extra workers whose loops never checkpoint (abort targets)

[tui]
accent_color = "#7D56F4"

[log]
dir = ".loopctl"  # control-plane journal directory; "" disables the journal
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("config: write %s: %w", path, err)
	}
	return path, nil
}
