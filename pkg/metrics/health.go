package metrics

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

const (
	// ComponentControlPlane is healthy when the last inventory fetch succeeded
	ComponentControlPlane = "control_plane"

	// ComponentDispatcher is healthy when no execution context failed in the last run
	ComponentDispatcher = "dispatcher"
)

// ComponentStatus is the last reported state of one component
type ComponentStatus struct {
	Healthy bool      `json:"healthy"`
	Error   string    `json:"error,omitempty"`
	Since   time.Time `json:"since"` // Last change between healthy and unhealthy
}

// HealthReport is the body served on /health and /ready
type HealthReport struct {
	Status     string                     `json:"status"`
	Message    string                     `json:"message,omitempty"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentStatus `json:"components,omitempty"`
}

type healthRegistry struct {
	mu         sync.RWMutex
	components map[string]ComponentStatus
	started    time.Time
	version    string
}

func newHealthRegistry() *healthRegistry {
	return &healthRegistry{
		components: make(map[string]ComponentStatus),
		started:    time.Now(),
	}
}

var registry = newHealthRegistry()

// SetVersion sets the version reported by the health endpoints
func SetVersion(version string) {
	registry.mu.Lock()
	registry.version = version
	registry.mu.Unlock()
}

// SetComponentHealth records the outcome of a component. A nil err marks it
// healthy.
func SetComponentHealth(name string, err error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	now := time.Now()
	status := ComponentStatus{Healthy: err == nil, Since: now}
	if err != nil {
		status.Error = err.Error()
	}
	if prev, ok := registry.components[name]; ok && prev.Healthy == status.Healthy {
		status.Since = prev.Since
	}
	registry.components[name] = status
}

func (r *healthRegistry) report(status string) HealthReport {
	components := make(map[string]ComponentStatus, len(r.components))
	for name, c := range r.components {
		components[name] = c
	}
	return HealthReport{
		Status:     status,
		Version:    r.version,
		Uptime:     time.Since(r.started).Round(time.Second).String(),
		Components: components,
	}
}

// Health reports "unhealthy" when any component is unhealthy
func Health() HealthReport {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	var failing []string
	for name, c := range registry.components {
		if !c.Healthy {
			failing = append(failing, name)
		}
	}
	if len(failing) == 0 {
		return registry.report("healthy")
	}

	sort.Strings(failing)
	report := registry.report("unhealthy")
	report.Message = "failing: " + failing[0]
	for _, name := range failing[1:] {
		report.Message += ", " + name
	}
	return report
}

// Readiness reports "ready" once the control plane has been reached.
// Context failures do not affect readiness.
func Readiness() HealthReport {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	cp, ok := registry.components[ComponentControlPlane]
	switch {
	case !ok:
		report := registry.report("not_ready")
		report.Message = "no check run has completed"
		return report
	case !cp.Healthy:
		report := registry.report("not_ready")
		report.Message = "control plane unreachable: " + cp.Error
		return report
	}
	return registry.report("ready")
}

// HealthHandler serves Health, 503 when unhealthy
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := Health()
		writeReport(w, report, report.Status == "healthy")
	}
}

// ReadyHandler serves Readiness, 503 until ready
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := Readiness()
		writeReport(w, report, report.Status == "ready")
	}
}

func writeReport(w http.ResponseWriter, report HealthReport, ok bool) {
	code := http.StatusOK
	if !ok {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}
