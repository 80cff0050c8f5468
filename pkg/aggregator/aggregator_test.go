package aggregator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cuemby/l3check/pkg/types"
)

type fakeAgents struct {
	agents  map[string][]types.Agent
	errs    map[string]error
	queried []string
}

func (f *fakeAgents) ListAgentsHostingRouter(ctx context.Context, routerID string) ([]types.Agent, error) {
	f.queried = append(f.queried, routerID)
	if err := f.errs[routerID]; err != nil {
		return nil, err
	}
	return f.agents[routerID], nil
}

func hosted(host string) []types.Agent {
	return []types.Agent{{ID: "agent-" + host, Host: host, AgentType: "L3 agent", Alive: true, AdminStateUp: true}}
}

func inventory(routers ...*types.Router) *types.Inventory {
	inv := types.NewInventory()
	for _, r := range routers {
		inv.Routers[r.ID] = r
	}
	return inv
}

func TestRouterCounters(t *testing.T) {
	tests := []struct {
		name   string
		router *types.Router
		agents []types.Agent
		err    error
		want   types.HealthCounters
	}{
		{
			name:   "healthy router",
			router: &types.Router{ID: "r1", Status: types.RouterStatusActive, AdminStateUp: true},
			agents: hosted("net1"),
			want:   types.HealthCounters{},
		},
		{
			name:   "no agents",
			router: &types.Router{ID: "r1", Status: types.RouterStatusActive, AdminStateUp: true},
			want:   types.HealthCounters{UnscheduledRouters: 1},
		},
		{
			name:   "agent query error",
			router: &types.Router{ID: "r1", Status: types.RouterStatusActive, AdminStateUp: true},
			err:    errors.New("status 500"),
			want:   types.HealthCounters{UnscheduledRouters: 1},
		},
		{
			name:   "pending create",
			router: &types.Router{ID: "r1", Status: "PENDING_CREATE", AdminStateUp: true},
			agents: hosted("net1"),
			want:   types.HealthCounters{InactiveRouters: 1},
		},
		{
			name:   "admin down",
			router: &types.Router{ID: "r1", Status: types.RouterStatusActive, AdminStateUp: false},
			agents: hosted("net1"),
			want:   types.HealthCounters{DownRouters: 1},
		},
		{
			name:   "everything wrong",
			router: &types.Router{ID: "r1", Status: "ERROR", AdminStateUp: false},
			want:   types.HealthCounters{UnscheduledRouters: 1, InactiveRouters: 1, DownRouters: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agents := &fakeAgents{
				agents: map[string][]types.Agent{"r1": tt.agents},
				errs:   map[string]error{"r1": tt.err},
			}
			a := NewAggregator(agents)

			got := a.RouterCounters(context.Background(), inventory(tt.router))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouterCountersSortedSinglePass(t *testing.T) {
	agents := &fakeAgents{agents: map[string][]types.Agent{
		"r1": hosted("net1"),
		"r2": hosted("net2"),
	}}
	inv := inventory(
		&types.Router{ID: "r3", Status: types.RouterStatusActive, AdminStateUp: true},
		&types.Router{ID: "r1", Status: types.RouterStatusActive, AdminStateUp: true},
		&types.Router{ID: "r2", Status: "PENDING_CREATE", AdminStateUp: true},
	)

	got := NewAggregator(agents).RouterCounters(context.Background(), inv)

	assert.Equal(t, []string{"r1", "r2", "r3"}, agents.queried)
	assert.Equal(t, types.HealthCounters{UnscheduledRouters: 1, InactiveRouters: 1}, got)
}

func TestRouterCountersEmpty(t *testing.T) {
	a := NewAggregator(&fakeAgents{})

	assert.Equal(t, types.HealthCounters{}, a.RouterCounters(context.Background(), nil))
	assert.Equal(t, types.HealthCounters{}, a.RouterCounters(context.Background(), types.NewInventory()))
}

func TestAddReports(t *testing.T) {
	base := types.HealthCounters{UnscheduledRouters: 2, MissingFloatingIPs: 1}
	reports := []*types.InspectionReport{
		{Context: "c1", Results: []types.ReconciliationResult{{RouterID: "r1", MissingFloatingIPs: 2}}},
		nil,
		{Context: "c2", Results: []types.ReconciliationResult{
			{RouterID: "r2", MissingFloatingIPs: 1},
			{RouterID: "r3"},
		}},
	}

	got := AddReports(base, reports)

	assert.Equal(t, types.HealthCounters{UnscheduledRouters: 2, MissingFloatingIPs: 4}, got)
	assert.Equal(t, 1, base.MissingFloatingIPs)
}

func TestAddReportsCommutative(t *testing.T) {
	a := &types.InspectionReport{Results: []types.ReconciliationResult{{MissingFloatingIPs: 3}}}
	b := &types.InspectionReport{Results: []types.ReconciliationResult{{MissingFloatingIPs: 5}}}

	assert.Equal(t,
		AddReports(types.HealthCounters{}, []*types.InspectionReport{a, b}),
		AddReports(types.HealthCounters{}, []*types.InspectionReport{b, a}),
	)
}
