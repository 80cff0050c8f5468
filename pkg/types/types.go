package types

import (
	"time"
)

// RouterStatus is the control plane status of a router
type RouterStatus string

const (
	RouterStatusActive RouterStatus = "ACTIVE"
)

// Router represents a control plane router with the floating IPs
// associated to it
type Router struct {
	ID           string       `json:"id"`
	Name         string       `json:"name,omitempty"`
	Status       RouterStatus `json:"status"`
	AdminStateUp bool         `json:"admin_state_up"`
	FloatingIPs  []string     `json:"floating_ips,omitempty"` // Insertion order, no duplicates
}

// AddFloatingIP adds an address to the router's floating IP set.
// Returns false if the address was already present.
func (r *Router) AddFloatingIP(address string) bool {
	for _, existing := range r.FloatingIPs {
		if existing == address {
			return false
		}
	}
	r.FloatingIPs = append(r.FloatingIPs, address)
	return true
}

// IsActive reports whether the router status is ACTIVE
func (r *Router) IsActive() bool {
	return r.Status == RouterStatusActive
}

// FloatingIP represents a floating IP as declared by the control plane
type FloatingIP struct {
	ID       string `json:"id"`
	Address  string `json:"address"`
	RouterID string `json:"router_id,omitempty"` // Empty when unassociated
}

// RouterRecord is a router as returned by the control plane API.
// Pointer fields distinguish missing values from zero values.
type RouterRecord struct {
	ID           *string `json:"id"`
	Name         string  `json:"name"`
	Status       string  `json:"status"`
	AdminStateUp *bool   `json:"admin_state_up"`
}

// FloatingIPRecord is a floating IP as returned by the control plane API
type FloatingIPRecord struct {
	ID                *string `json:"id"`
	FloatingIPAddress *string `json:"floating_ip_address"`
	RouterID          *string `json:"router_id"`
}

// Agent is a scheduling agent hosting a router
type Agent struct {
	ID           string `json:"id"`
	Host         string `json:"host"`
	AgentType    string `json:"agent_type"`
	Alive        bool   `json:"alive"`
	AdminStateUp bool   `json:"admin_state_up"`
}

// Inventory is the control plane state for one check run.
// It is read-only once built and may be shared between goroutines.
type Inventory struct {
	Routers     map[string]*Router     `json:"routers"`
	FloatingIPs map[string]*FloatingIP `json:"floating_ips"`
}

// NewInventory creates an empty inventory
func NewInventory() *Inventory {
	return &Inventory{
		Routers:     make(map[string]*Router),
		FloatingIPs: make(map[string]*FloatingIP),
	}
}

// Router returns the router with the given ID, or nil
func (inv *Inventory) Router(id string) *Router {
	if inv == nil {
		return nil
	}
	return inv.Routers[id]
}

// Address is an address bound to an interface
type Address struct {
	IP        string `json:"ip"`
	PrefixLen int    `json:"prefix_len"`
}

// InterfaceObservation is the live state of one interface inside a namespace
type InterfaceObservation struct {
	Name      string    `json:"name"`
	OperState string    `json:"oper_state"`
	Addresses []Address `json:"addresses,omitempty"`
}

// InterfaceClass classifies an interface by its name prefix
type InterfaceClass string

const (
	InterfaceClassGateway    InterfaceClass = "gateway"
	InterfaceClassInternal   InterfaceClass = "internal"
	InterfaceClassUnexpected InterfaceClass = "unexpected"
)

// ReconciliationResult is the outcome of comparing one router's floating IPs
// against its namespace
type ReconciliationResult struct {
	Context              string   `json:"context,omitempty"`
	Namespace            string   `json:"namespace,omitempty"`
	RouterID             string   `json:"router_id"`
	MissingFloatingIPs   int      `json:"missing_floating_ips"`
	MissingAddresses     []string `json:"missing_addresses,omitempty"`
	UnexpectedInterfaces []string `json:"unexpected_interfaces,omitempty"`
}

// AnomalyKind identifies a data integrity or reachability problem
type AnomalyKind string

const (
	AnomalyMalformedNamespace   AnomalyKind = "malformed_namespace"
	AnomalyUnknownRouter        AnomalyKind = "unknown_router"
	AnomalyNamespaceUnreachable AnomalyKind = "namespace_unreachable"
	AnomalyNamespaceListFailed  AnomalyKind = "namespace_list_failed"
	AnomalyContextFailure       AnomalyKind = "context_failure"
)

// Anomaly is a non-fatal finding recorded during inspection
type Anomaly struct {
	Kind      AnomalyKind `json:"kind"`
	Context   string      `json:"context,omitempty"`
	Namespace string      `json:"namespace,omitempty"`
	RouterID  string      `json:"router_id,omitempty"`
	Message   string      `json:"message"`
}

// InspectionReport is what one execution context returns
type InspectionReport struct {
	Context   string                 `json:"context"`
	Results   []ReconciliationResult `json:"results"`
	Anomalies []Anomaly              `json:"anomalies"`
}

// ContextHandle addresses a running execution context
type ContextHandle struct {
	ID   string // Runtime identifier (container ID)
	Name string
	Host string
}

// String returns the display name of the context
func (h ContextHandle) String() string {
	if h.Name != "" {
		return h.Name
	}
	return h.ID
}

// ContextFailure records an execution context excluded from aggregation
type ContextFailure struct {
	Context string `json:"context"`
	Error   string `json:"error"`
}

// HealthCounters are the health counters for one check run
type HealthCounters struct {
	UnscheduledRouters int `json:"unscheduled_routers"`
	InactiveRouters    int `json:"inactive_routers"`
	DownRouters        int `json:"down_routers"`
	MissingFloatingIPs int `json:"missing_floating_ips"`
}

// RunStatus is the overall outcome of a check run
type RunStatus string

const (
	RunStatusOK    RunStatus = "ok"
	RunStatusError RunStatus = "error"
)

// Summary is the output of one check run
type Summary struct {
	RunID           string                 `json:"run_id"`
	StartedAt       time.Time              `json:"started_at"`
	Duration        time.Duration          `json:"duration"`
	Status          RunStatus              `json:"status"`
	Error           string                 `json:"error,omitempty"`
	Counters        HealthCounters         `json:"counters"`
	Results         []ReconciliationResult `json:"results,omitempty"`
	Anomalies       []Anomaly              `json:"anomalies,omitempty"`
	ContextFailures []ContextFailure       `json:"context_failures,omitempty"`
}

// OK reports whether the run completed with status ok
func (s *Summary) OK() bool {
	return s.Status == RunStatusOK
}
