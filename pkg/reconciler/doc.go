/*
Package reconciler decides whether a router's floating IPs are actually bound
inside its namespace.

Reconcile is a pure function: given one router from the inventory and the
interfaces observed in its qrouter namespace it returns a ReconciliationResult.
It performs no I/O and never mutates its inputs, so it can be called from any
number of inspection workers at once.

# Interface Classes

Interfaces are classified by name prefix:

	qg-...   gateway-facing, expected to carry floating IPs
	qr-...   internal-facing, one per attached subnet
	other    unexpected, reported for diagnostics only

Only IPv4 addresses on gateway interfaces take part in the check. Matching is
an exact, case-sensitive string comparison of the textual address.
*/
package reconciler
