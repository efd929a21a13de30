// Package metrics exposes Prometheus instrumentation for the generation
// pipeline and an optional /metrics HTTP server.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promogen_pipeline_runs_total",
			Help: "Total pipeline runs by country and outcome",
		},
		[]string{"country", "outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promogen_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	KeywordsExtracted = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "promogen_keywords_extracted",
			Help:    "Number of keywords each extraction yielded",
			Buckets: []float64{0, 1, 2, 5, 10},
		},
	)

	ImagesGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "promogen_images_generated_total",
			Help: "Total images produced by the synthesis stage",
		},
	)

	PersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "promogen_persist_failures_total",
			Help: "Total persistence failures after successful generation",
		},
	)
)

// ObserveStage records one stage execution.
func ObserveStage(stage string, d time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Server wraps the metrics HTTP endpoint.
type Server struct {
	srv *http.Server
}

// Start exposes /metrics on the given port.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts the metrics server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
