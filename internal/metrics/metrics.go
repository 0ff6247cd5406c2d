// Package metrics exposes purge outcomes as Prometheus metrics. A CLI run
// is too short-lived to be scraped, so the registry is written to a file
// for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/HerbHall/aciclean/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the purge metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	endpointsDeleted prometheus.Counter
	deleteFailures   prometheus.Counter
	deleteDuration   prometheus.Histogram
	purgeRuns        *prometheus.CounterVec
	lastRun          prometheus.Gauge
}

// New creates a Collector with every metric registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		endpointsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aciclean_endpoints_deleted_total",
			Help: "Total number of endpoints deleted from the controller.",
		}),
		deleteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aciclean_endpoint_delete_failures_total",
			Help: "Total number of endpoint deletions the controller rejected or that failed in transport.",
		}),
		deleteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "aciclean_delete_duration_seconds",
			Help:    "Endpoint delete request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		purgeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aciclean_purge_runs_total",
			Help: "Total number of purge runs by result.",
		}, []string{"result"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "aciclean_last_run_timestamp_seconds",
			Help: "Unix time the last purge run finished.",
		}),
	}
	c.registry.MustRegister(c.endpointsDeleted, c.deleteFailures, c.deleteDuration, c.purgeRuns, c.lastRun)
	return c
}

// ObserveDelete records one deletion attempt.
func (c *Collector) ObserveDelete(success bool, elapsed time.Duration) {
	c.deleteDuration.Observe(elapsed.Seconds())
	if success {
		c.endpointsDeleted.Inc()
		return
	}
	c.deleteFailures.Inc()
}

// ObserveRun records the end of a purge run under its status label.
func (c *Collector) ObserveRun(status models.RunStatus, finished time.Time) {
	c.purgeRuns.WithLabelValues(string(status)).Inc()
	c.lastRun.Set(float64(finished.Unix()))
}

// Registry returns the underlying registry for direct gathering.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes the current metric values to path in the text
// exposition format. The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
