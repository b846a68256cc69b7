package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "velorize"

// Recorder collects planning engine and HTTP metrics. A nil *Recorder is a
// valid no-op, so callers that run without metrics need no special casing.
type Recorder struct {
	pipelineItems   *prometheus.CounterVec
	pipelineRuns    *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	forecastLatency *prometheus.HistogramVec
	forecastErrors  *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		pipelineItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "items_total",
				Help:      "Batch items processed, by pipeline and outcome",
			},
			[]string{"pipeline", "outcome"},
		),
		pipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Batch runs finished, by pipeline and final status",
			},
			[]string{"pipeline", "status"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "run_duration_seconds",
				Help:      "Duration of batch runs in seconds",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"pipeline"},
		),
		forecastLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "forecast",
				Name:      "duration_seconds",
				Help:      "Time spent computing a single forecast",
				Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
			},
			[]string{"method"},
		),
		forecastErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "forecast",
				Name:      "errors_total",
				Help:      "Forecast computations rejected, by requested method",
			},
			[]string{"method"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method"},
		),
	}
}

var (
	defaultOnce     sync.Once
	defaultRecorder *Recorder
)

// Default returns the recorder registered on the global Prometheus registry.
func Default() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = New(prometheus.DefaultRegisterer)
	})
	return defaultRecorder
}

func (r *Recorder) ItemProcessed(pipeline, outcome string) {
	if r == nil {
		return
	}
	r.pipelineItems.WithLabelValues(pipeline, outcome).Inc()
}

func (r *Recorder) RunFinished(pipeline, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.pipelineRuns.WithLabelValues(pipeline, status).Inc()
	r.runDuration.WithLabelValues(pipeline).Observe(d.Seconds())
}

// ForecastComputed records a successful forecast under the method actually used.
func (r *Recorder) ForecastComputed(method string, d time.Duration) {
	if r == nil {
		return
	}
	r.forecastLatency.WithLabelValues(method).Observe(d.Seconds())
}

func (r *Recorder) ForecastFailed(method string) {
	if r == nil {
		return
	}
	r.forecastErrors.WithLabelValues(method).Inc()
}

func (r *Recorder) ObserveHTTP(route, method string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
