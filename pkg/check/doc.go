/*
Package check orchestrates check runs.

A run builds the inventory from the control plane, computes the router
counters, dispatches the inspector to every execution context and sums the
missing floating IPs into a types.Summary:

	checker := check.NewChecker(client, dispatcher.NewDispatcher(provider, cfg))
	summary, err := checker.Run(ctx)

Only an inventory failure gives a summary with status error. Failed contexts,
agent query errors and namespace anomalies are reported inside an ok summary.

Loop repeats runs on an interval for serve mode, recording each summary into
the Prometheus gauges and the component health of pkg/metrics.
*/
package check
