// Copyright 2025 The axfor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all cloudSync metrics
const namespace = "cloudsync"

// Metrics holds all Prometheus metrics for the sync engine and its surfaces.
// A nil *Metrics is valid; every Record method is then a no-op.
type Metrics struct {
	// HTTP API metrics
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestTotal    *prometheus.CounterVec

	// Local engine metrics
	LocalOperationDuration *prometheus.HistogramVec
	LocalOperationErrors   *prometheus.CounterVec

	// Remote facility metrics
	RemoteOperationDuration *prometheus.HistogramVec
	RemoteAvailable         prometheus.Gauge

	// Sync metrics
	PushTotal         *prometheus.CounterVec
	PushInFlight      prometheus.Gauge
	ReconcileKeys     *prometheus.CounterVec
	ReconcileDuration prometheus.Histogram
	ReconcileRuns     *prometheus.CounterVec

	// Panic recovery metrics
	PanicsRecovered *prometheus.CounterVec
}

// New creates and registers all metrics
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Histogram of HTTP API request latencies",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "code"},
		),

		HTTPRequestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_total",
				Help:      "Total number of HTTP API requests",
			},
			[]string{"method", "code"},
		),

		LocalOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "local",
				Name:      "operation_duration_seconds",
				Help:      "Histogram of local store operation latencies",
				Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
			},
			[]string{"operation"},
		),

		LocalOperationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "local",
				Name:      "operation_errors_total",
				Help:      "Total number of local store operation errors",
			},
			[]string{"operation"},
		),

		RemoteOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "remote",
				Name:      "operation_duration_seconds",
				Help:      "Histogram of remote store call latencies",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "status"}, // status: ok, not_found, error, timeout, unavailable
		),

		RemoteAvailable: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "remote",
				Name:      "available",
				Help:      "1 if the remote store was reachable at the last probe, 0 otherwise",
			},
		),

		PushTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "push_total",
				Help:      "Total number of local-to-remote pushes",
			},
			[]string{"result"}, // success, failure, skipped
		),

		PushInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "push_in_flight",
				Help:      "Current number of detached background pushes",
			},
		),

		ReconcileKeys: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "keys_total",
				Help:      "Total number of reconciled keys by action",
			},
			[]string{"action"}, // pull, push, none, failed
		),

		ReconcileDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "duration_seconds",
				Help:      "Histogram of full reconciliation pass durations",
				Buckets:   prometheus.DefBuckets,
			},
		),

		ReconcileRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "runs_total",
				Help:      "Total number of reconciliation passes",
			},
			[]string{"result"}, // completed, skipped
		),

		PanicsRecovered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "panics_recovered_total",
				Help:      "Total number of panics recovered",
			},
			[]string{"goroutine"},
		),
	}
}

// RecordHTTPRequest records an HTTP API request
func (m *Metrics) RecordHTTPRequest(method string, code string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, code).Observe(duration.Seconds())
	m.HTTPRequestTotal.WithLabelValues(method, code).Inc()
}

// RecordLocalOperation records a local store operation
func (m *Metrics) RecordLocalOperation(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.LocalOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.LocalOperationErrors.WithLabelValues(operation).Inc()
	}
}

// RecordRemoteOperation records a remote facility call
func (m *Metrics) RecordRemoteOperation(operation string, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RemoteOperationDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// SetRemoteAvailable records the last availability probe
func (m *Metrics) SetRemoteAvailable(available bool) {
	if m == nil {
		return
	}
	if available {
		m.RemoteAvailable.Set(1)
	} else {
		m.RemoteAvailable.Set(0)
	}
}

// RecordPush records the outcome of a push
func (m *Metrics) RecordPush(result string) {
	if m == nil {
		return
	}
	m.PushTotal.WithLabelValues(result).Inc()
}

// PushStarted and PushFinished bracket a detached push
func (m *Metrics) PushStarted() {
	if m == nil {
		return
	}
	m.PushInFlight.Inc()
}

func (m *Metrics) PushFinished() {
	if m == nil {
		return
	}
	m.PushInFlight.Dec()
}

// RecordReconcileKey records the decision taken for one key
func (m *Metrics) RecordReconcileKey(action string) {
	if m == nil {
		return
	}
	m.ReconcileKeys.WithLabelValues(action).Inc()
}

// RecordReconcileRun records a full reconciliation pass
func (m *Metrics) RecordReconcileRun(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ReconcileRuns.WithLabelValues(result).Inc()
	m.ReconcileDuration.Observe(duration.Seconds())
}

// RecordPanicRecovered records a recovered panic
func (m *Metrics) RecordPanicRecovered(goroutine string) {
	if m == nil {
		return
	}
	m.PanicsRecovered.WithLabelValues(goroutine).Inc()
}
