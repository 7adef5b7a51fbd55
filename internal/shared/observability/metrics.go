package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	RenderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "uipreview_render_seconds",
		Help:    "Time spent rendering a preview.",
		Buckets: prometheus.DefBuckets,
	}, []string{"renderer"})

	RendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uipreview_renders_total",
		Help: "Total number of render requests handled, by renderer and outcome.",
	}, []string{"renderer", "status"})

	ParseErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uipreview_parse_errors_total",
		Help: "Total number of markup parse errors seen by the structural renderer.",
	})

	SanitizeWarningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uipreview_sanitize_warnings_total",
		Help: "Total number of sanitizer rewrites, by warning code.",
	}, []string{"code"})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uipreview_cache_hits_total",
		Help: "Total number of render results served from the cache.",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uipreview_cache_misses_total",
		Help: "Total number of render requests that missed the cache.",
	})

	CacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "uipreview_cache_entries",
		Help: "Current number of entries held in the render cache.",
	})

	PendingRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "uipreview_pipe_pending_requests",
		Help: "Current number of in-flight requests awaiting a native renderer response.",
	})

	PipeReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uipreview_pipe_reconnects_total",
		Help: "Total number of native renderer pipe reconnection attempts.",
	})

	NativeProcessExitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uipreview_native_process_exits_total",
		Help: "Total number of unexpected native renderer process exits.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uipreview_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	LiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "uipreview_live_clients",
		Help: "Current number of connected live preview subscribers.",
	})
)
