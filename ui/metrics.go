package ui

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts dashboard requests by method and status
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "model_analysis_http_requests_total",
		Help: "Total dashboard HTTP requests by method and status",
	}, []string{"method", "status"})

	// requestDuration tracks dashboard request latency
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "model_analysis_http_request_duration_seconds",
		Help:    "Dashboard HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"method"})

	// evaluationsTotal counts evaluation runs triggered from the dashboard
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "model_analysis_evaluations_total",
		Help: "Evaluation runs triggered from the dashboard by outcome",
	}, []string{"outcome"})
)

// statusRecorder captures the response status for the request counter
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.written {
		w.status = http.StatusOK
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Flush keeps SSE streaming working through the recorder
func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// countRequests records request counts and latency per method
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		requestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		requestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
