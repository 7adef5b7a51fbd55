package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides.
// Pattern: UIPREVIEW_[SECTION]_[KEY] (e.g. UIPREVIEW_SERVER_LISTEN).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Paths.StateDir, "UIPREVIEW_PATHS_STATE_DIR")

	setEnvString(&cfg.Renderer.Preference, "UIPREVIEW_RENDERER_PREFERENCE")
	setEnvString(&cfg.Renderer.ExePath, "UIPREVIEW_RENDERER_EXE_PATH")
	setEnvString(&cfg.Renderer.PipeName, "UIPREVIEW_RENDERER_PIPE_NAME")
	setEnvDuration(&cfg.Renderer.StartupTimeout, "UIPREVIEW_RENDERER_STARTUP_TIMEOUT")
	setEnvDuration(&cfg.Renderer.RequestTimeout, "UIPREVIEW_RENDERER_REQUEST_TIMEOUT")

	setEnvDuration(&cfg.Cache.TTL, "UIPREVIEW_CACHE_TTL")
	setEnvInt(&cfg.Cache.MaxEntries, "UIPREVIEW_CACHE_MAX_ENTRIES")

	setEnvBool(&cfg.Watch.Enabled, "UIPREVIEW_WATCH_ENABLED")
	setEnvDuration(&cfg.Watch.Debounce, "UIPREVIEW_WATCH_DEBOUNCE")

	setEnvBool(&cfg.Server.Enabled, "UIPREVIEW_SERVER_ENABLED")
	setEnvString(&cfg.Server.Listen, "UIPREVIEW_SERVER_LISTEN")
	setEnvString(&cfg.Server.OTLPEndpoint, "UIPREVIEW_SERVER_OTLP_ENDPOINT")

	setEnvBool(&cfg.History.Enabled, "UIPREVIEW_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "UIPREVIEW_HISTORY_PATH")

	setEnvInt(&cfg.Limits.RendersPerMinute, "UIPREVIEW_LIMITS_RENDERS_PER_MINUTE")
	setEnvInt(&cfg.Limits.Burst, "UIPREVIEW_LIMITS_BURST")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key)
			*target = d
		}
	}
}
