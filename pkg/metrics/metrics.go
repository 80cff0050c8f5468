package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Health counters of the last completed run
	UnscheduledRouters = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "l3check_unscheduled_routers",
			Help: "Routers without an L3 agent hosting them",
		},
	)

	InactiveRouters = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "l3check_inactive_routers",
			Help: "Routers whose status is not ACTIVE",
		},
	)

	DownRouters = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "l3check_down_routers",
			Help: "Routers that are administratively down",
		},
	)

	MissingFloatingIPs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "l3check_missing_floating_ips",
			Help: "Floating IPs not bound to their router's gateway interface",
		},
	)

	// Run metrics
	CheckUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "l3check_up",
			Help: "Whether the last run fetched the inventory (1 = ok, 0 = error)",
		},
	)

	LastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "l3check_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "l3check_runs_total",
			Help: "Total number of check runs by status",
		},
		[]string{"status"},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "l3check_run_duration_seconds",
			Help:    "Check run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Dispatch metrics
	ContextFailures = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "l3check_context_failures",
			Help: "Execution contexts excluded from the last run",
		},
	)

	ContextInspectionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "l3check_context_inspection_duration_seconds",
			Help:    "Time taken to inspect one execution context in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"context"},
	)

	Anomalies = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "l3check_anomalies",
			Help: "Anomalies found in the last run by kind",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(UnscheduledRouters)
	prometheus.MustRegister(InactiveRouters)
	prometheus.MustRegister(DownRouters)
	prometheus.MustRegister(MissingFloatingIPs)
	prometheus.MustRegister(CheckUp)
	prometheus.MustRegister(LastRunTimestamp)
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(ContextFailures)
	prometheus.MustRegister(ContextInspectionDuration)
	prometheus.MustRegister(Anomalies)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// WriteTextfile writes all registered metrics to path in the text format
// read by the node exporter textfile collector
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
