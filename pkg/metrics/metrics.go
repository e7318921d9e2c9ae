// Package metrics exposes Prometheus gauges for the evaluator and
// load-balancer processes. The teacher imports
// github.com/prometheus/client_golang as an API *query* client against an
// external Prometheus (pkg/monitoring/prometheus.Client); this fabric has no
// external Prometheus to query, so the same library is used in its other
// standard role, exposition via promauto/promhttp.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EvaluatorMetrics tracks the local node's own admission/VRAM state.
type EvaluatorMetrics struct {
	Tasks     prometheus.Gauge
	FreeVRAM  prometheus.Gauge
	TotalVRAM prometheus.Gauge
}

// NewEvaluatorMetrics registers the evaluator gauges against reg.
func NewEvaluatorMetrics(reg prometheus.Registerer) *EvaluatorMetrics {
	factory := promauto.With(reg)
	return &EvaluatorMetrics{
		Tasks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "sentimentd",
			Subsystem: "evaluator",
			Name:      "tasks_in_flight",
			Help:      "Number of phrases currently being scored by this node.",
		}),
		FreeVRAM: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "sentimentd",
			Subsystem: "evaluator",
			Name:      "free_vram_bytes",
			Help:      "Most recently observed free device/host memory.",
		}),
		TotalVRAM: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "sentimentd",
			Subsystem: "evaluator",
			Name:      "total_vram_bytes",
			Help:      "Total device/host memory visible to this node.",
		}),
	}
}

// WorkerMetrics tracks the balancer's per-worker view.
type WorkerMetrics struct {
	Tasks     *prometheus.GaugeVec
	FreeVRAM  *prometheus.GaugeVec
	TotalVRAM *prometheus.GaugeVec
	IdleVRAM  *prometheus.GaugeVec
}

// NewWorkerMetrics registers the balancer's per-worker gauges against reg,
// labeled by worker address.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	factory := promauto.With(reg)
	labels := []string{"address"}
	return &WorkerMetrics{
		Tasks: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sentimentd",
			Subsystem: "balancer",
			Name:      "worker_tasks_in_flight",
			Help:      "Last-observed in-flight task count at each worker.",
		}, labels),
		FreeVRAM: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sentimentd",
			Subsystem: "balancer",
			Name:      "worker_free_vram_bytes",
			Help:      "Last-observed free memory at each worker.",
		}, labels),
		TotalVRAM: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sentimentd",
			Subsystem: "balancer",
			Name:      "worker_total_vram_bytes",
			Help:      "Last-observed total memory at each worker.",
		}, labels),
		IdleVRAM: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sentimentd",
			Subsystem: "balancer",
			Name:      "worker_idle_vram_bytes",
			Help:      "Estimated baseline (model-weight) residency at each worker.",
		}, labels),
	}
}

// Handler returns the HTTP handler that exposes the registered metrics in
// the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
