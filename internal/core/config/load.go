package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"uipreview/internal/shared/util"
)

// Load reads and validates a TOML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	ApplyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	normalize(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	ApplyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	normalize(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Paths.StateDir) == "" {
		cfg.Paths.StateDir = "data/state"
	}

	if strings.TrimSpace(cfg.Renderer.Preference) == "" {
		cfg.Renderer.Preference = "structural"
	}
	if strings.TrimSpace(cfg.Renderer.PipeName) == "" {
		cfg.Renderer.PipeName = "uipreview-renderer"
	}
	if cfg.Renderer.StartupTimeout <= 0 {
		cfg.Renderer.StartupTimeout = 10 * time.Second
	}
	if cfg.Renderer.RequestTimeout <= 0 {
		cfg.Renderer.RequestTimeout = 5 * time.Second
	}
	if cfg.Renderer.DialAttempts <= 0 {
		cfg.Renderer.DialAttempts = 5
	}
	if cfg.Renderer.DialDelay <= 0 {
		cfg.Renderer.DialDelay = 200 * time.Millisecond
	}
	if cfg.Renderer.ReconnectAttempts <= 0 {
		cfg.Renderer.ReconnectAttempts = 3
	}
	if cfg.Renderer.ReconnectDelay <= 0 {
		cfg.Renderer.ReconnectDelay = time.Second
	}
	if cfg.Renderer.PingInterval == 0 {
		cfg.Renderer.PingInterval = 15 * time.Second
	}

	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = 30 * time.Second
	}
	if cfg.Cache.MaxEntries <= 0 {
		cfg.Cache.MaxEntries = 64
	}

	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}

	if strings.TrimSpace(cfg.Server.Listen) == "" {
		cfg.Server.Listen = "127.0.0.1:8920"
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = filepath.Join(cfg.Paths.StateDir, "history.db")
	}

	if cfg.Limits.RendersPerMinute <= 0 {
		cfg.Limits.RendersPerMinute = 120
	}
	if cfg.Limits.Burst <= 0 {
		cfg.Limits.Burst = 20
	}
}

func normalize(cfg *Config) {
	cfg.Renderer.Preference = strings.ToLower(strings.TrimSpace(cfg.Renderer.Preference))
	cfg.Renderer.ExePath = strings.TrimSpace(cfg.Renderer.ExePath)
	cfg.Renderer.PipeName = strings.TrimSpace(cfg.Renderer.PipeName)
	cfg.Server.Listen = strings.TrimSpace(cfg.Server.Listen)
	cfg.History.Path = strings.TrimSpace(cfg.History.Path)

	cleaned := cfg.Watch.Exclude[:0]
	for _, pattern := range cfg.Watch.Exclude {
		if p := strings.TrimSpace(pattern); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	cfg.Watch.Exclude = cleaned
}

func validate(cfg *Config) error {
	switch cfg.Renderer.Preference {
	case "structural", "native":
	default:
		return fmt.Errorf("renderer.preference must be %q or %q, got %q", "structural", "native", cfg.Renderer.Preference)
	}
	if cfg.Renderer.Preference == "native" && cfg.Renderer.ExePath == "" {
		return fmt.Errorf("renderer.exe_path is required when renderer.preference is %q", "native")
	}
	if util.ContainsPathSeparator(cfg.Renderer.PipeName) {
		return fmt.Errorf("renderer.pipe_name must be a bare name, got %q", cfg.Renderer.PipeName)
	}
	if cfg.Server.Enabled && cfg.Server.Listen == "" {
		return fmt.Errorf("server.listen must be set when the server is enabled")
	}
	if cfg.History.Enabled && cfg.History.Path == "" {
		return fmt.Errorf("history.path must be set when history is enabled")
	}
	return nil
}
