package config

import (
	"testing"
	"time"
)

func TestEnvOverrides(t *testing.T) {
	t.Setenv("UIPREVIEW_RENDERER_PREFERENCE", "native")
	t.Setenv("UIPREVIEW_RENDERER_EXE_PATH", "/opt/renderer")
	t.Setenv("UIPREVIEW_CACHE_TTL", "90s")
	t.Setenv("UIPREVIEW_LIMITS_BURST", "7")
	t.Setenv("UIPREVIEW_WATCH_ENABLED", "true")

	cfg := Default()
	if cfg.Renderer.Preference != "native" || cfg.Renderer.ExePath != "/opt/renderer" {
		t.Errorf("renderer = %+v", cfg.Renderer)
	}
	if cfg.Cache.TTL != 90*time.Second {
		t.Errorf("cache ttl = %v", cfg.Cache.TTL)
	}
	if cfg.Limits.Burst != 7 {
		t.Errorf("burst = %d", cfg.Limits.Burst)
	}
	if !cfg.Watch.Enabled {
		t.Error("watch not enabled")
	}
}

func TestEnvOverrideIgnoresBadValues(t *testing.T) {
	t.Setenv("UIPREVIEW_CACHE_TTL", "not-a-duration")
	t.Setenv("UIPREVIEW_LIMITS_BURST", "many")

	cfg := Default()
	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("cache ttl = %v, want default", cfg.Cache.TTL)
	}
	if cfg.Limits.Burst != 20 {
		t.Errorf("burst = %d, want default", cfg.Limits.Burst)
	}
}
