package config

import "time"

type Config struct {
	Version  int            `toml:"version"`
	Paths    PathsConfig    `toml:"paths"`
	Renderer RendererConfig `toml:"renderer"`
	Cache    CacheConfig    `toml:"cache"`
	Watch    WatchConfig    `toml:"watch"`
	Server   ServerConfig   `toml:"server"`
	History  HistoryConfig  `toml:"history"`
	Limits   LimitsConfig   `toml:"limits"`
}

type PathsConfig struct {
	StateDir string `toml:"state_dir"`
}

// RendererConfig selects and tunes the renderers. Native settings are
// ignored unless preference is "native".
type RendererConfig struct {
	Preference        string        `toml:"preference"`
	ExePath           string        `toml:"exe_path"`
	PipeName          string        `toml:"pipe_name"`
	StartupTimeout    time.Duration `toml:"startup_timeout"`
	RequestTimeout    time.Duration `toml:"request_timeout"`
	DialAttempts      int           `toml:"dial_attempts"`
	DialDelay         time.Duration `toml:"dial_delay"`
	ReconnectAttempts int           `toml:"reconnect_attempts"`
	ReconnectDelay    time.Duration `toml:"reconnect_delay"`
	PingInterval      time.Duration `toml:"ping_interval"`
}

type CacheConfig struct {
	TTL        time.Duration `toml:"ttl"`
	MaxEntries int           `toml:"max_entries"`
}

type WatchConfig struct {
	Enabled  bool          `toml:"enabled"`
	Debounce time.Duration `toml:"debounce"`
	Exclude  []string      `toml:"exclude"`
}

type ServerConfig struct {
	Enabled      bool   `toml:"enabled"`
	Listen       string `toml:"listen"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type LimitsConfig struct {
	RendersPerMinute int `toml:"renders_per_minute"`
	Burst            int `toml:"burst"`
}
