package preview

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"uipreview/internal/core/errors"
	"uipreview/internal/render"
)

type stubRenderer struct {
	typ       render.RendererType
	name      string
	available bool
	calls     int
	err       error
	failure   *render.Failure
}

func (s *stubRenderer) Type() render.RendererType { return s.typ }
func (s *stubRenderer) DisplayName() string       { return s.name }
func (s *stubRenderer) Available() bool           { return s.available }

func (s *stubRenderer) Render(ctx context.Context, text string, opts render.Options) (*render.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &render.Result{Kind: render.KindMarkup, Payload: "<div/>", Failure: s.failure}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(cfg Config, renderers ...render.Renderer) *Controller {
	c := NewController(cfg, testLogger())
	for _, r := range renderers {
		c.Register(r)
	}
	return c
}

func TestCacheReturnsSameResultWithinTTL(t *testing.T) {
	stub := &stubRenderer{typ: render.RendererStructural, available: true}
	c := newTestController(Config{}, stub)

	first := c.Render(context.Background(), `<Grid/>`, render.Options{Theme: render.ThemeLight})
	second := c.Render(context.Background(), `<Grid/>`, render.Options{Theme: render.ThemeLight})
	if first != second {
		t.Error("second call within TTL must return the cached result object")
	}
	if stub.calls != 1 {
		t.Errorf("renderer invoked %d times, want 1", stub.calls)
	}
}

func TestCacheKeyIncludesOptions(t *testing.T) {
	stub := &stubRenderer{typ: render.RendererStructural, available: true}
	c := newTestController(Config{}, stub)

	c.Render(context.Background(), `<Grid/>`, render.Options{Theme: render.ThemeLight})
	c.Render(context.Background(), `<Grid/>`, render.Options{Theme: render.ThemeDark})
	if stub.calls != 2 {
		t.Errorf("theme change must miss the cache, got %d calls", stub.calls)
	}
}

func TestCacheExpiry(t *testing.T) {
	stub := &stubRenderer{typ: render.RendererStructural, available: true}
	c := newTestController(Config{CacheTTL: time.Minute}, stub)

	now := time.Now()
	c.cache.now = func() time.Time { return now }

	c.Render(context.Background(), `<Grid/>`, render.Options{})
	now = now.Add(2 * time.Minute)
	c.Render(context.Background(), `<Grid/>`, render.Options{})
	if stub.calls != 2 {
		t.Errorf("expired entry must re-render, got %d calls", stub.calls)
	}
}

func TestProjectContextInvalidatesWholeCache(t *testing.T) {
	stub := &stubRenderer{typ: render.RendererStructural, available: true}
	c := newTestController(Config{}, stub)

	c.Render(context.Background(), `<Grid/>`, render.Options{})
	c.Render(context.Background(), `<Button/>`, render.Options{})
	c.ProjectContextChanged()
	c.Render(context.Background(), `<Grid/>`, render.Options{})
	c.Render(context.Background(), `<Button/>`, render.Options{})
	if stub.calls != 4 {
		t.Errorf("all entries must be invalidated, got %d calls", stub.calls)
	}
}

func TestSizeBoundEvictsOldest(t *testing.T) {
	cache := newRenderCache(time.Hour, 2)
	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.put("a", &render.Result{})
	now = now.Add(time.Second)
	cache.put("b", &render.Result{})
	now = now.Add(time.Second)
	cache.put("c", &render.Result{})

	if _, ok := cache.get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := cache.get("b"); !ok {
		t.Error("newer entry evicted unexpectedly")
	}
	if cache.len() != 2 {
		t.Errorf("cache len = %d, want 2", cache.len())
	}
}

func TestFallbackWhenPreferredUnavailable(t *testing.T) {
	native := &stubRenderer{typ: render.RendererNative, available: false}
	structural := &stubRenderer{typ: render.RendererStructural, available: true}
	c := newTestController(Config{Preference: render.RendererNative}, native, structural)

	changed := make(chan render.RendererType, 4)
	c.OnRendererChange(func(t render.RendererType) { changed <- t })

	res := c.Render(context.Background(), `<Grid/>`, render.Options{})
	if !res.OK() {
		t.Fatalf("fallback render failed: %+v", res.Failure)
	}
	if native.calls != 0 || structural.calls != 1 {
		t.Errorf("calls native=%d structural=%d, want 0/1", native.calls, structural.calls)
	}
	select {
	case got := <-changed:
		if got != render.RendererStructural {
			t.Errorf("notified renderer = %s, want structural", got)
		}
	case <-time.After(2 * time.Second):
		t.Error("no renderer-change notification")
	}
}

func TestTransportErrorFallsBackForCall(t *testing.T) {
	native := &stubRenderer{
		typ: render.RendererNative, available: true,
		err: errors.New(errors.CodeNotConnected, "pipe lost"),
	}
	structural := &stubRenderer{typ: render.RendererStructural, available: true}
	c := newTestController(Config{Preference: render.RendererNative}, native, structural)

	res := c.Render(context.Background(), `<Grid/>`, render.Options{})
	if !res.OK() {
		t.Fatalf("expected structural fallback result, got %+v", res.Failure)
	}
	if native.calls != 1 || structural.calls != 1 {
		t.Errorf("calls native=%d structural=%d, want 1/1", native.calls, structural.calls)
	}
}

func TestFailureResultsAreNotCached(t *testing.T) {
	stub := &stubRenderer{
		typ: render.RendererStructural, available: true,
		failure: &render.Failure{Code: errors.CodeParseError, Message: "bad markup"},
	}
	c := newTestController(Config{}, stub)

	c.Render(context.Background(), `<Broken`, render.Options{})
	c.Render(context.Background(), `<Broken`, render.Options{})
	if stub.calls != 2 {
		t.Errorf("failures must not be cached, got %d calls", stub.calls)
	}
}

func TestSanitizeWarningsMergedIntoResult(t *testing.T) {
	stub := &stubRenderer{typ: render.RendererStructural, available: true}
	c := newTestController(Config{}, stub)

	res := c.Render(context.Background(),
		`<UserControl xmlns:wct="clr-namespace:Wct"><wct:DataGrid/></UserControl>`,
		render.Options{})
	var found bool
	for _, w := range res.Warnings {
		if w.Code == "unknown-namespace" {
			found = true
		}
	}
	if !found {
		t.Errorf("sanitize warnings missing from result: %+v", res.Warnings)
	}
}

func TestAvailableRenderers(t *testing.T) {
	native := &stubRenderer{typ: render.RendererNative, name: "Native renderer", available: false}
	structural := &stubRenderer{typ: render.RendererStructural, name: "Structural approximation", available: true}
	c := newTestController(Config{}, structural, native)

	infos := c.AvailableRenderers()
	if len(infos) != 2 {
		t.Fatalf("got %d renderers, want 2", len(infos))
	}
	if infos[0].Type != render.RendererNative || infos[0].Available {
		t.Errorf("first entry = %+v", infos[0])
	}
	if infos[1].Type != render.RendererStructural || !infos[1].Available {
		t.Errorf("second entry = %+v", infos[1])
	}
}
