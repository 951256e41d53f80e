package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the batch.
type Metrics struct {
	FilesDiscovered prometheus.Counter
	ScansProcessed  prometheus.Counter
	ScanErrors      *prometheus.CounterVec // labels: stage={decode,extract,plot}
	PeakUndefined   prometheus.Counter
	PlotsRendered   prometheus.Counter
	RecordsLoaded   *prometheus.CounterVec // labels: sink={csv,kafka,sqlite}
	PipelineRunning prometheus.Gauge

	ScanDuration  prometheus.Histogram
	BatchDuration prometheus.Histogram
}

// NewMetrics creates and registers all batch metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FilesDiscovered,
		m.ScansProcessed,
		m.ScanErrors,
		m.PeakUndefined,
		m.PlotsRendered,
		m.RecordsLoaded,
		m.PipelineRunning,
		m.ScanDuration,
		m.BatchDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FilesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_stats",
			Name:      "files_discovered_total",
			Help:      "Scan files matched in the archive.",
		}),
		ScansProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_stats",
			Name:      "scans_processed_total",
			Help:      "Scans summarised into a record.",
		}),
		ScanErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radar_stats",
			Name:      "scan_errors_total",
			Help:      "Per-file failures by stage.",
		}, []string{"stage"}),
		PeakUndefined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_stats",
			Name:      "peak_undefined_total",
			Help:      "Scans whose filtered reflectivity had no defined gate.",
		}),
		PlotsRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_stats",
			Name:      "plots_rendered_total",
			Help:      "Cell-tracking plots written.",
		}),
		RecordsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radar_stats",
			Name:      "records_loaded_total",
			Help:      "Summary records written by sink.",
		}, []string{"sink"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "radar_stats",
			Name:      "pipeline_running",
			Help:      "1 while a batch is running, 0 otherwise.",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "radar_stats",
			Name:      "scan_duration_seconds",
			Help:      "Decode, extract and plot time for one file.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "radar_stats",
			Name:      "batch_duration_seconds",
			Help:      "Time to process and load one date.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
	}
}
