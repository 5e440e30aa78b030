// Package metrics exposes the monitor's own operational counters in
// Prometheus exposition format.
package metrics

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
)

var (
	cyclesTotal           = metrics.NewCounter(`vllm_monitor_cycles_total`)
	cycleDuration         = metrics.NewHistogram(`vllm_monitor_cycle_duration_seconds`)
	alertsDispatchedTotal = metrics.NewCounter(`vllm_monitor_alerts_dispatched_total`)
	alertsSuppressedTotal = metrics.NewCounter(`vllm_monitor_alerts_suppressed_total`)
	recordWriteErrors     = metrics.NewCounter(`vllm_monitor_record_write_errors_total`)
)

// IncCycles counts one completed health-check cycle.
func IncCycles() { cyclesTotal.Inc() }

// ObserveCycleDuration records the wall-clock time of one cycle.
func ObserveCycleDuration(seconds float64) { cycleDuration.Update(seconds) }

// IncCollectorFailure counts a failed snapshot for one collector kind.
func IncCollectorFailure(collector string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`vllm_monitor_collector_failures_total{collector=%q}`, collector)).Inc()
}

// IncAlertsDispatched counts a candidate that reached the channels.
func IncAlertsDispatched() { alertsDispatchedTotal.Inc() }

// IncAlertsSuppressed counts a candidate dropped by the suppression window.
func IncAlertsSuppressed() { alertsSuppressedTotal.Inc() }

// IncNotificationFailure counts a delivery failure for one channel.
func IncNotificationFailure(channel string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`vllm_monitor_notification_failures_total{channel=%q}`, channel)).Inc()
}

// IncRecordWriteError counts a lost metrics record.
func IncRecordWriteError() { recordWriteErrors.Inc() }

// WritePrometheus dumps all counters in Prometheus text format.
func WritePrometheus(w io.Writer) {
	metrics.WritePrometheus(w, true)
}
