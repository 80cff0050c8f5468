package metrics

import (
	"github.com/cuemby/l3check/pkg/types"
)

// anomalyKinds are reset to zero on every run so stale kinds do not linger
var anomalyKinds = []types.AnomalyKind{
	types.AnomalyMalformedNamespace,
	types.AnomalyUnknownRouter,
	types.AnomalyNamespaceUnreachable,
	types.AnomalyNamespaceListFailed,
	types.AnomalyContextFailure,
}

// Record publishes a run summary to the Prometheus gauges.
// Counters of a failed run are left at their previous values.
func Record(summary *types.Summary) {
	RunsTotal.WithLabelValues(string(summary.Status)).Inc()
	RunDuration.Observe(summary.Duration.Seconds())
	LastRunTimestamp.Set(float64(summary.StartedAt.Add(summary.Duration).Unix()))

	if !summary.OK() {
		CheckUp.Set(0)
		return
	}
	CheckUp.Set(1)

	UnscheduledRouters.Set(float64(summary.Counters.UnscheduledRouters))
	InactiveRouters.Set(float64(summary.Counters.InactiveRouters))
	DownRouters.Set(float64(summary.Counters.DownRouters))
	MissingFloatingIPs.Set(float64(summary.Counters.MissingFloatingIPs))
	ContextFailures.Set(float64(len(summary.ContextFailures)))

	counts := make(map[types.AnomalyKind]int, len(anomalyKinds))
	for _, a := range summary.Anomalies {
		counts[a.Kind]++
	}
	for _, kind := range anomalyKinds {
		Anomalies.WithLabelValues(string(kind)).Set(float64(counts[kind]))
	}
}
