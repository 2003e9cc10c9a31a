// Package metrics exports request lifecycle events as Prometheus metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/desertthunder/djq/internal/models"
	"github.com/desertthunder/djq/internal/shared"
)

const namespace = "djq"

// Collector records lifecycle events. It satisfies lifecycle.Recorder.
type Collector struct {
	transitions   *prometheus.CounterVec
	reorders      *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	storeFailures *prometheus.CounterVec
	queueDepth    *prometheus.GaugeVec
	lastSync      prometheus.Gauge
}

// NewCollector creates the lifecycle metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Song request status changes, by previous and new status.",
		}, []string{"from", "to"}),
		reorders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reorders_total",
			Help:      "Queue moves, by direction and whether the request moved.",
		}, []string{"direction", "result"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_operations_total",
			Help:      "Operations refused before reaching the store, by operation and reason.",
		}, []string{"operation", "reason"}),
		storeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_failures_total",
			Help:      "Failed store calls, by operation.",
		}, []string{"operation"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests",
			Help:      "Song requests in the last synced snapshot, by status.",
		}, []string{"status"}),
		lastSync: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sync_timestamp_seconds",
			Help:      "Unix time of the last successful refresh from the store.",
		}),
	}

	for _, col := range []prometheus.Collector{c.transitions, c.reorders, c.rejections, c.storeFailures, c.queueDepth, c.lastSync} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Transition counts a status change.
func (c *Collector) Transition(from, to models.Status) {
	c.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// Reorder counts a queue move. A move at the end of the queue is counted as a noop.
func (c *Collector) Reorder(direction models.Direction, moved bool) {
	result := "moved"
	if !moved {
		result = "noop"
	}
	c.reorders.WithLabelValues(string(direction), result).Inc()
}

// Rejected counts an operation refused by validation or the in-flight guard.
func (c *Collector) Rejected(operation string, err error) {
	c.rejections.WithLabelValues(operation, Reason(err)).Inc()
}

// StoreFailure counts a failed store call.
func (c *Collector) StoreFailure(operation string) {
	c.storeFailures.WithLabelValues(operation).Inc()
}

// Synced updates the per-status gauges and the last sync time.
func (c *Collector) Synced(counts map[models.Status]int, at time.Time) {
	for status, n := range counts {
		c.queueDepth.WithLabelValues(string(status)).Set(float64(n))
	}
	c.lastSync.Set(float64(at.Unix()))
}

// Reason maps an error to a short label value.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, shared.ErrRecordBusy):
		return "busy"
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	case errors.Is(err, shared.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, shared.ErrInvalidOperation):
		return "invalid_operation"
	case errors.Is(err, shared.ErrInvalidInput):
		return "invalid_input"
	default:
		return "other"
	}
}
