// Package metrics exposes Prometheus collectors for the pipeline stages and
// an optional HTTP listener serving them during a run.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Downloads counts cohort download attempts by outcome: ok, skipped, failed.
	Downloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tcgapipe_downloads_total",
		Help: "Cohort download attempts by outcome.",
	}, []string{"outcome"})

	// DownloadBytes accumulates raw bytes stored in the object store.
	DownloadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tcgapipe_download_bytes_total",
		Help: "Raw matrix bytes uploaded to the object store.",
	})

	// DocumentsUpserted counts patient documents written by the transform stage.
	DocumentsUpserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tcgapipe_documents_upserted_total",
		Help: "Patient documents upserted into the document store.",
	})

	// ClinicalUpdates counts documents enriched by the join stage.
	ClinicalUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tcgapipe_clinical_updates_total",
		Help: "Patient documents updated with clinical data.",
	})

	// PlotsRendered counts PNGs produced by the visualize stage.
	PlotsRendered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tcgapipe_plots_rendered_total",
		Help: "Plots rendered by the visualize stage.",
	})

	// StageDuration records wall time per pipeline stage.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tcgapipe_stage_duration_seconds",
		Help:    "Pipeline stage wall time.",
		Buckets: prometheus.ExponentialBuckets(0.1, 4, 10),
	}, []string{"stage"})
)

// ObserveStage records one stage execution.
func ObserveStage(stage string, d time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Serve exposes /metrics on addr in a background goroutine. Errors are
// reported through errFn since the listener outlives the caller.
func Serve(addr string, errFn func(error)) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && errFn != nil {
			errFn(err)
		}
	}()
}
