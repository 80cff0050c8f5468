package aggregator

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/cuemby/l3check/pkg/log"
	"github.com/cuemby/l3check/pkg/types"
)

// AgentQuerier lists the scheduling agents hosting a router
type AgentQuerier interface {
	ListAgentsHostingRouter(ctx context.Context, routerID string) ([]types.Agent, error)
}

// Aggregator folds control plane state and inspection reports into
// health counters
type Aggregator struct {
	agents AgentQuerier
	logger zerolog.Logger
}

// NewAggregator creates an aggregator
func NewAggregator(agents AgentQuerier) *Aggregator {
	return &Aggregator{
		agents: agents,
		logger: log.WithComponent("aggregator"),
	}
}

// RouterCounters computes the unscheduled, inactive and down counters in one
// pass over the inventory routers. A failed agent query counts the router as
// unscheduled and is not returned.
func (a *Aggregator) RouterCounters(ctx context.Context, inv *types.Inventory) types.HealthCounters {
	var counters types.HealthCounters
	if inv == nil {
		return counters
	}

	ids := make([]string, 0, len(inv.Routers))
	for id := range inv.Routers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		router := inv.Routers[id]
		logger := log.WithRouterID(a.logger, id)

		agents, err := a.agents.ListAgentsHostingRouter(ctx, id)
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("agent query failed, counting router as unscheduled")
			counters.UnscheduledRouters++
		case len(agents) == 0:
			logger.Warn().Msg("router is not scheduled on any agent")
			counters.UnscheduledRouters++
		}

		if !router.IsActive() {
			logger.Warn().Str("status", string(router.Status)).Msg("router is not active")
			counters.InactiveRouters++
		}
		if !router.AdminStateUp {
			logger.Warn().Msg("router is administratively down")
			counters.DownRouters++
		}
	}

	return counters
}

// AddReports returns counters with the missing floating IPs of every report
// added
func AddReports(counters types.HealthCounters, reports []*types.InspectionReport) types.HealthCounters {
	for _, report := range reports {
		if report == nil {
			continue
		}
		for _, result := range report.Results {
			counters.MissingFloatingIPs += result.MissingFloatingIPs
		}
	}
	return counters
}
