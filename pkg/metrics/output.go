package metrics

import (
	"fmt"
	"io"
	"strings"

	"github.com/cuemby/l3check/pkg/types"
)

// Metric is one named counter line of the check output
type Metric struct {
	Name  string
	Type  string
	Value int
	Unit  string
}

// CounterMetrics returns the four health counters in output order
func CounterMetrics(c types.HealthCounters) []Metric {
	return []Metric{
		{Name: "neutron_unscheduled_routers", Type: "uint32", Value: c.UnscheduledRouters, Unit: "routers"},
		{Name: "neutron_inactive_routers", Type: "uint32", Value: c.InactiveRouters, Unit: "routers"},
		{Name: "neutron_down_routers", Type: "uint32", Value: c.DownRouters, Unit: "routers"},
		{Name: "neutron_missing_floating_ips", Type: "uint32", Value: c.MissingFloatingIPs, Unit: "ips"},
	}
}

// WriteStatus writes the status line followed by one line per counter.
// A failed run only gets the status line.
func WriteStatus(w io.Writer, summary *types.Summary) error {
	if !summary.OK() {
		msg := strings.Join(strings.Fields(summary.Error), " ")
		if msg == "" {
			msg = "check failed"
		}
		_, err := fmt.Fprintf(w, "status error %s\n", msg)
		return err
	}

	if _, err := fmt.Fprintln(w, "status ok"); err != nil {
		return err
	}
	for _, m := range CounterMetrics(summary.Counters) {
		if _, err := fmt.Fprintf(w, "metric %s %s %d %s\n", m.Name, m.Type, m.Value, m.Unit); err != nil {
			return err
		}
	}
	return nil
}
