package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prompt_studio_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "prompt_studio_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// Session metrics
	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prompt_studio_sessions_created_total",
		Help: "Total number of chat sessions created",
	})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prompt_studio_active_sessions",
		Help: "Number of live chat sessions",
	})

	messagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prompt_studio_messages_sent_total",
		Help: "Total number of user messages accepted",
	}, []string{"status"})

	// Stream metrics
	streamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "prompt_studio_stream_duration_seconds",
		Help:    "Duration of upstream response streams",
		Buckets: prometheus.DefBuckets,
	}, []string{"model", "status"})

	streamsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prompt_studio_streams_total",
		Help: "Total number of upstream response streams",
	}, []string{"model", "status"})

	fragmentsAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prompt_studio_fragments_appended_total",
		Help: "Total number of text fragments appended to assistant messages",
	})

	streamStops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prompt_studio_stream_stops_total",
		Help: "Total number of user-initiated stream stops",
	})

	// Inference metrics
	inferencesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prompt_studio_inferences_total",
		Help: "Total number of role inferences",
	}, []string{"role"})

	inferenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prompt_studio_inference_duration_seconds",
		Help:    "Duration of role inferences",
		Buckets: prometheus.DefBuckets,
	})

	// Cache metrics
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prompt_studio_cache_hits_total",
		Help: "Total number of inference cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prompt_studio_cache_misses_total",
		Help: "Total number of inference cache misses",
	})

	// Rate limit metrics
	rateLimitExceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prompt_studio_rate_limit_exceeded_total",
		Help: "Total number of rate limit exceeded events",
	})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Handler wraps an HTTP handler with request counting and timing. The path
// label uses the mux route template so IDs do not explode the cardinality.
func (m *Metrics) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if template, err := route.GetPathTemplate(); err == nil {
				path = template
			}
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, fmt.Sprintf("%d", recorder.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// statusRecorder captures the response status while passing flushes through
// for streaming responses.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// RecordSessionCreated records a created session
func (m *Metrics) RecordSessionCreated() {
	sessionsCreated.Inc()
}

// SetActiveSessions sets the number of live sessions
func (m *Metrics) SetActiveSessions(count float64) {
	activeSessions.Set(count)
}

// RecordMessageSent records an accepted or rejected user message
func (m *Metrics) RecordMessageSent(status string) {
	messagesSent.WithLabelValues(status).Inc()
}

// RecordStream records one upstream response stream
func (m *Metrics) RecordStream(model, status string, duration time.Duration) {
	streamDuration.WithLabelValues(model, status).Observe(duration.Seconds())
	streamsTotal.WithLabelValues(model, status).Inc()
}

// RecordFragment records one appended text fragment
func (m *Metrics) RecordFragment() {
	fragmentsAppended.Inc()
}

// RecordStreamStop records a user-initiated stop
func (m *Metrics) RecordStreamStop() {
	streamStops.Inc()
}

// RecordInference records a role inference
func (m *Metrics) RecordInference(role string, duration time.Duration) {
	inferencesTotal.WithLabelValues(role).Inc()
	inferenceDuration.Observe(duration.Seconds())
}

// RecordCacheHit records an inference cache hit
func (m *Metrics) RecordCacheHit() {
	cacheHits.Inc()
}

// RecordCacheMiss records an inference cache miss
func (m *Metrics) RecordCacheMiss() {
	cacheMisses.Inc()
}

// RecordRateLimitExceeded records a rate limit exceeded event. Client
// addresses are unbounded, so the counter carries no per-client label;
// the rate limiter logs the rejected client instead.
func (m *Metrics) RecordRateLimitExceeded() {
	rateLimitExceeded.Inc()
}

// StartMetricsServer starts the metrics HTTP server
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
