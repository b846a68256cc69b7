package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.ItemProcessed("forecast", "completed")
	r.ItemProcessed("forecast", "completed")
	r.ItemProcessed("forecast", "failed")
	r.RunFinished("forecast", "completed_with_errors", 2*time.Second)
	r.ForecastFailed("arima")
	r.ObserveHTTP("/api/v1/health", "GET", 200, time.Millisecond)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"completed items", testutil.ToFloat64(r.pipelineItems.WithLabelValues("forecast", "completed")), 2},
		{"failed items", testutil.ToFloat64(r.pipelineItems.WithLabelValues("forecast", "failed")), 1},
		{"runs", testutil.ToFloat64(r.pipelineRuns.WithLabelValues("forecast", "completed_with_errors")), 1},
		{"forecast errors", testutil.ToFloat64(r.forecastErrors.WithLabelValues("arima")), 1},
		{"http requests", testutil.ToFloat64(r.httpRequests.WithLabelValues("/api/v1/health", "GET", "200")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.ItemProcessed("forecast", "completed")
	r.RunFinished("forecast", "completed", time.Second)
	r.ForecastComputed("linear_trend", time.Millisecond)
	r.ForecastFailed("x")
	r.ObserveHTTP("/", "GET", 200, time.Millisecond)
}
