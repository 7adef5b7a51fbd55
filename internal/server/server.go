// Package server is the host-facing surface of the preview engine: a
// small HTTP API plus a websocket channel that pushes fresh render
// results to connected hosts after watcher-triggered re-renders.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"uipreview/internal/correlate"
	"uipreview/internal/markup/parser"
	"uipreview/internal/markup/sanitize"
	"uipreview/internal/preview"
	"uipreview/internal/render"
	"uipreview/internal/shared/util"
)

type Config struct {
	Listen           string
	RendersPerMinute int
	Burst            int
}

// DocumentFunc yields the currently previewed document, when one is
// loaded, for the click-to-source endpoint.
type DocumentFunc func() (path, text string, ok bool)

type Server struct {
	cfg        Config
	log        *slog.Logger
	controller *preview.Controller
	document   DocumentFunc
	limiters   *util.LimiterRegistry
	hub        *Hub
	server     *http.Server
}

func New(cfg Config, controller *preview.Controller, document DocumentFunc, log *slog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		log:        log.With("component", "server"),
		controller: controller,
		document:   document,
		hub:        NewHub(log),
	}
	if cfg.RendersPerMinute > 0 {
		// One bucket per client address, dropped after idle time.
		s.limiters = util.NewLimiterRegistry(float64(cfg.RendersPerMinute)/60.0, cfg.Burst, 5*time.Minute)
	}
	return s
}

// Hub exposes the live-push channel so watch mode can broadcast.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/render", s.handleRender)
	mux.HandleFunc("/renderers", s.handleRenderers)
	mux.HandleFunc("/source", s.handleSource)
	mux.HandleFunc("/live", s.hub.handleUpgrade)
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s.Handler(),
	}

	s.log.Info("preview server starting", "addr", s.cfg.Listen)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("preview server failed", "error", err)
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.hub.Close()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"heap_mb":      util.HeapAllocMB(),
		"live_clients": s.hub.ClientCount(),
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type renderRequest struct {
	Text    string         `json:"text"`
	Options render.Options `json:"options"`
}

type renderResponse struct {
	Result *render.Result     `json:"result"`
	Source []correlate.Record `json:"source,omitempty"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.limiters != nil && !s.limiters.Get(clientKey(r)).Allow(1) {
		http.Error(w, "render rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	res := s.controller.Render(r.Context(), req.Text, req.Options)

	resp := renderResponse{Result: res}
	if len(res.Mappings) > 0 {
		// Correlation runs against the sanitized document, the same
		// text the renderers saw. Sanitize is idempotent, so this
		// agrees with the controller's pass.
		sanitized, _ := sanitize.Sanitize(req.Text)
		resp.Source = correlate.Correlate(parser.Parse(sanitized).Root, res.Mappings)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRenderers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.AvailableRenderers())
}

type sourceResponse struct {
	Path string            `json:"path"`
	Tag  string            `json:"tag"`
	Name string            `json:"name,omitempty"`
	Span parser.SourceSpan `json:"span"`
}

// handleSource answers click-to-source queries: given a line/column in
// the previewed document, return the innermost element at it.
func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	if s.document == nil {
		http.Error(w, "no document loaded", http.StatusNotFound)
		return
	}
	path, text, ok := s.document()
	if !ok {
		http.Error(w, "no document loaded", http.StatusNotFound)
		return
	}

	line, err1 := strconv.Atoi(r.URL.Query().Get("line"))
	col, err2 := strconv.Atoi(r.URL.Query().Get("col"))
	if err1 != nil || err2 != nil {
		http.Error(w, "line and col query parameters are required", http.StatusBadRequest)
		return
	}

	pr := parser.Parse(text)
	el := parser.FindElementAtPosition(pr.Root, line, col)
	if el == nil {
		http.Error(w, "no element at position", http.StatusNotFound)
		return
	}

	name, _ := el.Attr("x:Name")
	if name == "" {
		name = el.AttrDefault("Name", "")
	}
	writeJSON(w, http.StatusOK, sourceResponse{
		Path: path,
		Tag:  el.FullName,
		Name: name,
		Span: el.Span,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
