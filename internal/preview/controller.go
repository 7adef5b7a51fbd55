// Package preview owns renderer selection, the render cache and the
// host-facing render entry point. It never returns an error: every
// failure path resolves into a Result carrying a Failure, and the worst
// case is a fallback to the structural renderer.
package preview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"uipreview/internal/core/errors"
	"uipreview/internal/markup/sanitize"
	"uipreview/internal/render"
	"uipreview/internal/shared/observability"
)

type Config struct {
	Preference      render.RendererType
	CacheTTL        time.Duration
	CacheMaxEntries int
}

func (c *Config) applyDefaults() {
	if c.Preference == "" {
		c.Preference = render.RendererStructural
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 30 * time.Second
	}
	if c.CacheMaxEntries <= 0 {
		c.CacheMaxEntries = 64
	}
}

type Controller struct {
	log   *slog.Logger
	cache *renderCache

	mu             sync.Mutex
	renderers      map[render.RendererType]render.Renderer
	preference     render.RendererType
	active         render.RendererType
	fallbackWarned bool
	listeners      []func(render.RendererType)
}

func NewController(cfg Config, log *slog.Logger) *Controller {
	cfg.applyDefaults()
	return &Controller{
		log:        log.With("component", "preview"),
		cache:      newRenderCache(cfg.CacheTTL, cfg.CacheMaxEntries),
		renderers:  make(map[render.RendererType]render.Renderer),
		preference: cfg.Preference,
	}
}

// Register adds a renderer to the strategy map. Last registration per
// type wins.
func (c *Controller) Register(r render.Renderer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderers[r.Type()] = r
}

// OnRendererChange subscribes to active-renderer changes. Callbacks run
// on their own goroutine so they may call back into the controller.
func (c *Controller) OnRendererChange(fn func(render.RendererType)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// SetPreference switches the preferred renderer and re-arms the
// one-time fallback warning.
func (c *Controller) SetPreference(t render.RendererType) {
	c.mu.Lock()
	c.preference = t
	c.fallbackWarned = false
	c.mu.Unlock()
}

// ActiveRenderer reports which renderer served the most recent render,
// or the empty type before the first one.
func (c *Controller) ActiveRenderer() render.RendererType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// AvailableRenderers lists registered renderers in a stable order.
func (c *Controller) AvailableRenderers() []render.Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []render.Info
	for _, t := range []render.RendererType{render.RendererNative, render.RendererStructural} {
		r, ok := c.renderers[t]
		if !ok {
			continue
		}
		out = append(out, render.Info{Type: r.Type(), DisplayName: r.DisplayName(), Available: r.Available()})
	}
	return out
}

// ClearCache drops every cached result.
func (c *Controller) ClearCache() {
	c.cache.clear()
}

// ProjectContextChanged invalidates the whole cache. Resource
// resolution is not tracked per entry, so any resource edit can change
// any cached result.
func (c *Controller) ProjectContextChanged() {
	c.log.Info("project context changed, invalidating render cache")
	c.cache.clear()
}

// Render sanitizes the markup, picks a renderer and returns its result,
// consulting the cache first. Transport failures from the preferred
// renderer degrade to the structural renderer for the call.
func (c *Controller) Render(ctx context.Context, text string, opts render.Options) *render.Result {
	ctx, span := observability.Tracer.Start(ctx, "preview.render")
	defer span.End()

	sanitized, sanWarnings := sanitize.Sanitize(text)
	for _, w := range sanWarnings {
		observability.SanitizeWarningsTotal.WithLabelValues(w.Code).Inc()
	}

	renderer := c.pick()
	if renderer == nil {
		return &render.Result{
			Warnings: sanWarnings,
			Failure:  &render.Failure{Code: errors.CodeNotAvailable, Message: "no renderer is registered"},
		}
	}
	span.SetAttributes(attribute.String("renderer", string(renderer.Type())))

	key := cacheKey(renderer.Type(), sanitized, opts)
	if cached, ok := c.cache.get(key); ok {
		return cached
	}

	res := c.renderWith(ctx, renderer, sanitized, opts)
	res.Warnings = append(sanWarnings, res.Warnings...)
	if res.OK() {
		c.cache.put(key, res)
	}
	return res
}

func (c *Controller) renderWith(ctx context.Context, renderer render.Renderer, text string, opts render.Options) *render.Result {
	start := time.Now()
	res, err := renderer.Render(ctx, text, opts)
	observability.RenderDuration.WithLabelValues(string(renderer.Type())).Observe(time.Since(start).Seconds())

	if err != nil && renderer.Type() != render.RendererStructural {
		c.log.Warn("preferred renderer failed, retrying structurally", "renderer", renderer.Type(), "error", err)
		observability.RendersTotal.WithLabelValues(string(renderer.Type()), "error").Inc()
		if fallback := c.structural(); fallback != nil {
			c.announce(fallback.Type())
			return c.renderWith(ctx, fallback, text, opts)
		}
	}
	if err != nil {
		observability.RendersTotal.WithLabelValues(string(renderer.Type()), "error").Inc()
		return render.FailureResult(err)
	}

	status := "ok"
	if !res.OK() {
		status = "failed"
	}
	observability.RendersTotal.WithLabelValues(string(renderer.Type()), status).Inc()
	return res
}

// pick resolves the preferred renderer, falling back to the structural
// one when the preference is unavailable. The fallback is logged once
// per preference change, not per call.
func (c *Controller) pick() render.Renderer {
	c.mu.Lock()
	defer c.mu.Unlock()

	preferred, ok := c.renderers[c.preference]
	if ok && preferred.Available() {
		c.announceLocked(preferred.Type())
		return preferred
	}
	fallback, ok := c.renderers[render.RendererStructural]
	if !ok {
		return preferred
	}
	if c.preference != render.RendererStructural && !c.fallbackWarned {
		c.fallbackWarned = true
		c.log.Warn("preferred renderer unavailable, using structural approximation",
			"preference", c.preference)
	}
	c.announceLocked(fallback.Type())
	return fallback
}

func (c *Controller) structural() render.Renderer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderers[render.RendererStructural]
}

func (c *Controller) announce(t render.RendererType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.announceLocked(t)
}

func (c *Controller) announceLocked(t render.RendererType) {
	if c.active == t {
		return
	}
	c.active = t
	listeners := make([]func(render.RendererType), len(c.listeners))
	copy(listeners, c.listeners)
	go func() {
		for _, fn := range listeners {
			fn(t)
		}
	}()
}
