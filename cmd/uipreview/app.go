package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"uipreview/internal/core/config"
	"uipreview/internal/core/errors"
	"uipreview/internal/core/watcher"
	"uipreview/internal/correlate"
	"uipreview/internal/data/history"
	"uipreview/internal/markup/parser"
	"uipreview/internal/markup/sanitize"
	"uipreview/internal/preview"
	"uipreview/internal/project"
	"uipreview/internal/render"
	"uipreview/internal/render/native"
	"uipreview/internal/render/structural"
	"uipreview/internal/server"
)

type App struct {
	Config     *config.Config
	Controller *preview.Controller

	log        *slog.Logger
	native     *native.Client
	watcher    *watcher.Watcher
	server     *server.Server
	store      *history.Store
	teaProgram *tea.Program

	mu          sync.Mutex
	theme       render.Theme
	sourcePath  string
	sourceText  string
	proj        *project.Info
	resources   *project.Resources
	lastResult  *render.Result
	lastRecords []correlate.Record
}

func NewApp(cfg *config.Config, log *slog.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		log:    log,
		Controller: preview.NewController(preview.Config{
			Preference:      render.RendererType(cfg.Renderer.Preference),
			CacheTTL:        cfg.Cache.TTL,
			CacheMaxEntries: cfg.Cache.MaxEntries,
		}, log),
	}

	a.Controller.Register(structural.New())

	if cfg.Renderer.ExePath != "" {
		a.native = native.NewClient(native.Config{
			ExePath:           cfg.Renderer.ExePath,
			PipeName:          cfg.Renderer.PipeName,
			StartupTimeout:    cfg.Renderer.StartupTimeout,
			RequestTimeout:    cfg.Renderer.RequestTimeout,
			DialAttempts:      uint64(cfg.Renderer.DialAttempts),
			DialDelay:         cfg.Renderer.DialDelay,
			ReconnectAttempts: cfg.Renderer.ReconnectAttempts,
			ReconnectDelay:    cfg.Renderer.ReconnectDelay,
			PingInterval:      cfg.Renderer.PingInterval,
		}, log)
		a.Controller.Register(a.native)
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		a.store = store
	}

	return a, nil
}

// InitRenderers starts the native renderer process when one is
// configured. A failed native startup is reported but not fatal: the
// structural renderer keeps the preview usable.
func (a *App) InitRenderers(ctx context.Context) {
	if a.native == nil {
		return
	}
	if err := a.native.Initialize(ctx); err != nil {
		a.log.Warn("native renderer unavailable, structural fallback active", "error", err)
	}
}

// LoadDocument reads the markup file and discovers its surrounding
// project context. Switching to a file in a different project flushes
// the render cache.
func (a *App) LoadDocument(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "resolve document path")
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return errors.Wrap(err, errors.CodeNotAvailable, fmt.Sprintf("read document %s", path))
	}

	proj, err := project.Discover(abs)
	if err != nil {
		a.log.Debug("no project context", "path", abs, "error", err)
		proj = nil
	}

	var res *project.Resources
	if proj != nil {
		res, err = project.LoadResources(proj.Root, a.Config.Watch.Exclude)
		if err != nil {
			a.log.Warn("failed to load project resources", "root", proj.Root, "error", err)
			res = nil
		}
	}

	a.mu.Lock()
	prevRoot := ""
	if a.proj != nil {
		prevRoot = a.proj.Root
	}
	a.sourcePath = abs
	a.sourceText = string(data)
	a.proj = proj
	a.resources = res
	a.mu.Unlock()

	if proj != nil && proj.Root != prevRoot {
		a.Controller.ProjectContextChanged()
	}
	return nil
}

// ReloadDocument re-reads the current document from disk.
func (a *App) ReloadDocument() error {
	a.mu.Lock()
	path := a.sourcePath
	a.mu.Unlock()
	if path == "" {
		return errors.New(errors.CodeNotAvailable, "no document loaded")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.CodeNotAvailable, "re-read document")
	}
	a.mu.Lock()
	a.sourceText = string(data)
	a.mu.Unlock()
	return nil
}

// Document yields the current document for the click-to-source
// endpoint.
func (a *App) Document() (string, string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sourcePath, a.sourceText, a.sourcePath != ""
}

// SetTheme switches the preview theme for subsequent renders.
func (a *App) SetTheme(theme string) {
	a.mu.Lock()
	a.theme = render.Theme(theme)
	a.mu.Unlock()
}

func (a *App) renderOptions() render.Options {
	opts := render.Options{Theme: render.ThemeLight, Scale: 1}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.theme != "" {
		opts.Theme = a.theme
	}
	if a.proj != nil {
		opts.ProjectPath = a.proj.Root
	}
	if a.resources != nil {
		opts.AppResourcesText = a.resources.AppResourcesText
		opts.ResourceDictionaries = a.resources.Dictionaries
	}
	return opts
}

// RenderCurrent renders the loaded document, records the result in
// history and pushes it to the TUI and any live server clients.
func (a *App) RenderCurrent(ctx context.Context) (*render.Result, error) {
	a.mu.Lock()
	path, text := a.sourcePath, a.sourceText
	a.mu.Unlock()
	if path == "" {
		return nil, errors.New(errors.CodeNotAvailable, "no document loaded")
	}

	start := time.Now()
	res := a.Controller.Render(ctx, text, a.renderOptions())
	elapsed := time.Since(start)

	var records []correlate.Record
	if len(res.Mappings) > 0 {
		sanitized, _ := sanitize.Sanitize(text)
		records = correlate.Correlate(parser.Parse(sanitized).Root, res.Mappings)
	}

	a.mu.Lock()
	a.lastResult = res
	a.lastRecords = records
	a.mu.Unlock()

	a.recordSnapshot(path, res, elapsed)

	if a.server != nil {
		a.server.Hub().Broadcast(map[string]any{
			"event":  "render",
			"path":   path,
			"result": res,
			"source": records,
		})
	}
	if a.teaProgram != nil {
		a.teaProgram.Send(renderDoneMsg{
			path:     path,
			result:   res,
			renderer: a.Controller.ActiveRenderer(),
			elapsed:  elapsed,
		})
	}
	return res, nil
}

func (a *App) recordSnapshot(path string, res *render.Result, elapsed time.Duration) {
	if a.store == nil {
		return
	}
	errCount := 0
	if res.Failure != nil {
		errCount = 1
	}
	snap := history.Snapshot{
		Timestamp:    time.Now().UTC(),
		SourcePath:   path,
		Renderer:     string(a.Controller.ActiveRenderer()),
		Success:      res.OK(),
		DurationMs:   elapsed.Milliseconds(),
		WarningCount: len(res.Warnings),
		ErrorCount:   errCount,
		ElementCount: len(res.Mappings),
	}
	if err := a.store.SaveSnapshot(a.projectKey(), snap); err != nil {
		a.log.Warn("failed to record render snapshot", "error", err)
	}
}

func (a *App) projectKey() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.proj != nil {
		return a.proj.Root
	}
	return "default"
}

// ApplyConfig picks up the reloadable settings from a fresh config:
// renderer preference and watch debounce. Connection and cache sizing
// stay as constructed.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.Controller.SetPreference(render.RendererType(cfg.Renderer.Preference))
	if a.watcher != nil {
		a.watcher.SetDebounce(cfg.Watch.Debounce)
	}
	a.mu.Lock()
	a.Config.Renderer.Preference = cfg.Renderer.Preference
	a.Config.Watch.Debounce = cfg.Watch.Debounce
	a.mu.Unlock()
}

// StartWatcher watches the document and its project's markup files,
// re-rendering on change.
func (a *App) StartWatcher(ctx context.Context) error {
	w, err := watcher.NewWatcher(a.Config.Watch.Debounce, a.Config.Watch.Exclude, func(paths []string) {
		a.onFilesChanged(ctx, paths)
	})
	if err != nil {
		return err
	}
	a.watcher = w

	a.mu.Lock()
	path := a.sourcePath
	proj := a.proj
	res := a.resources
	a.mu.Unlock()

	targets := []string{path}
	if proj != nil && res != nil {
		targets = append(targets, res.Paths(proj.Root)...)
	}
	if err := w.Add(targets...); err != nil {
		return err
	}
	w.Start()
	return nil
}

func (a *App) onFilesChanged(ctx context.Context, paths []string) {
	a.log.Info("documents changed", "count", len(paths))

	a.mu.Lock()
	current := a.sourcePath
	proj := a.proj
	a.mu.Unlock()

	resourceChanged := false
	for _, p := range paths {
		if p == current {
			if err := a.ReloadDocument(); err != nil {
				a.log.Warn("failed to reload document", "error", err)
			}
			continue
		}
		resourceChanged = true
	}

	if resourceChanged && proj != nil {
		res, err := project.LoadResources(proj.Root, a.Config.Watch.Exclude)
		if err == nil {
			a.mu.Lock()
			a.resources = res
			a.mu.Unlock()
		}
		a.Controller.ProjectContextChanged()
	}

	if _, err := a.RenderCurrent(ctx); err != nil {
		a.log.Warn("re-render failed", "error", err)
	}
}

func (a *App) RunUI() error {
	m := initialModel()
	p := tea.NewProgram(m, tea.WithAltScreen())
	a.teaProgram = p

	a.Controller.OnRendererChange(func(t render.RendererType) {
		p.Send(rendererChangedMsg{renderer: t})
	})

	// Seed the UI with the latest result so it does not open blank.
	go func() {
		a.mu.Lock()
		res := a.lastResult
		path := a.sourcePath
		a.mu.Unlock()
		if res != nil {
			p.Send(renderDoneMsg{
				path:     path,
				result:   res,
				renderer: a.Controller.ActiveRenderer(),
			})
		}
	}()

	_, err := p.Run()
	return err
}

func (a *App) StartServer(ctx context.Context) error {
	a.server = server.New(server.Config{
		Listen:           a.Config.Server.Listen,
		RendersPerMinute: a.Config.Limits.RendersPerMinute,
		Burst:            a.Config.Limits.Burst,
	}, a.Controller, a.Document, a.log)
	return a.server.Start(ctx)
}

// SessionStats summarizes the recorded history for the TUI footer.
func (a *App) SessionStats() (renders int, failures int) {
	if a.store == nil {
		return 0, 0
	}
	snaps, err := a.store.LoadSnapshots(a.projectKey(), time.Time{})
	if err != nil {
		return 0, 0
	}
	for _, s := range snaps {
		renders++
		if !s.Success {
			failures++
		}
	}
	return renders, failures
}

func (a *App) Close() {
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			a.log.Warn("watcher close failed", "error", err)
		}
	}
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := a.server.Stop(ctx); err != nil {
			a.log.Warn("server shutdown failed", "error", err)
		}
		cancel()
	}
	if a.native != nil {
		if err := a.native.Close(); err != nil {
			a.log.Warn("native renderer close failed", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("history close failed", "error", err)
		}
	}
}
