/*
Package metrics publishes the results of a check run.

Two sinks are provided.

Status lines (WriteStatus) for monitoring agents that run l3check as a plugin:

	status ok
	metric neutron_unscheduled_routers uint32 0 routers
	metric neutron_inactive_routers uint32 1 routers
	metric neutron_down_routers uint32 0 routers
	metric neutron_missing_floating_ips uint32 2 ips

A failed inventory fetch prints a single "status error <message>" line.

Prometheus gauges (Record) for serve mode and the node exporter textfile
collector (WriteTextfile):

	l3check_unscheduled_routers
	l3check_inactive_routers
	l3check_down_routers
	l3check_missing_floating_ips
	l3check_up
	l3check_context_failures
	l3check_anomalies{kind}
	l3check_last_run_timestamp_seconds
	l3check_runs_total{status}
	l3check_run_duration_seconds
	l3check_context_inspection_duration_seconds{context}

The package also serves /health and /ready JSON documents built from
component health updated after every run.
*/
package metrics
