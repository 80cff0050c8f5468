/*
Package types defines the data structures shared by every l3check component.

The model is rebuilt from scratch on every check run. Nothing in this package
is persisted.

# Core Types

Control plane state:
  - Router: router ID, status, admin state and its floating IP set
  - FloatingIP: floating address and owning router (empty when unassociated)
  - RouterRecord, FloatingIPRecord: raw API records validated at ingestion
  - Agent: scheduling agent hosting a router
  - Inventory: routers and floating IPs keyed by ID

Host state:
  - InterfaceObservation: interface name, operational state and addresses
  - Address: IP and prefix length
  - InterfaceClass: gateway (qg-), internal (qr-) or unexpected

Findings:
  - ReconciliationResult: missing floating IPs and unexpected interfaces per router
  - Anomaly: malformed namespace names, unknown routers, unreachable namespaces
  - InspectionReport: results and anomalies returned by one execution context
  - ContextFailure: an execution context excluded from aggregation
  - HealthCounters: unscheduled, inactive, down and missing floating IP counts
  - Summary: everything one run produced

# Concurrency

Inventory is built once and then only read. It can be shared by all
inspection workers without locking. Reports are values handed back to a
single collecting goroutine, so none of these types carry a mutex.

# Serialization

Inventory and InspectionReport are JSON-serializable because they cross the
process boundary between the dispatcher and an inspector running inside an
agent container (see pkg/runtime).
*/
package types
