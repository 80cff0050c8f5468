package check

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/l3check/pkg/aggregator"
	"github.com/cuemby/l3check/pkg/dispatcher"
	"github.com/cuemby/l3check/pkg/inventory"
	"github.com/cuemby/l3check/pkg/log"
	"github.com/cuemby/l3check/pkg/types"
)

// ControlPlane is everything a run reads from the control plane
type ControlPlane interface {
	inventory.Source
	aggregator.AgentQuerier
}

// Dispatcher runs the inspector in every execution context
type Dispatcher interface {
	Dispatch(ctx context.Context, inv *types.Inventory) *dispatcher.Result
}

// Checker performs check runs
type Checker struct {
	controlPlane ControlPlane
	dispatcher   Dispatcher
	aggregator   *aggregator.Aggregator
	logger       zerolog.Logger
}

// NewChecker creates a checker
func NewChecker(cp ControlPlane, d Dispatcher) *Checker {
	return &Checker{
		controlPlane: cp,
		dispatcher:   d,
		aggregator:   aggregator.NewAggregator(cp),
		logger:       log.WithComponent("check"),
	}
}

// Run performs one check run.
//
// The returned summary is never nil. When the inventory cannot be built the
// summary has status error and the error is also returned; every other
// failure is folded into the summary and the status stays ok.
func (c *Checker) Run(ctx context.Context) (*types.Summary, error) {
	summary := &types.Summary{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
	}
	logger := log.WithRunID(c.logger, summary.RunID)
	defer func() {
		summary.Duration = time.Since(summary.StartedAt)
	}()

	logger.Info().Msg("starting check run")

	inv, err := inventory.Build(ctx, c.controlPlane)
	if err != nil {
		err = fmt.Errorf("failed to build inventory: %w", err)
		logger.Error().Err(err).Msg("check run failed")
		summary.Status = types.RunStatusError
		summary.Error = err.Error()
		return summary, err
	}

	counters := c.aggregator.RouterCounters(ctx, inv)

	result := c.dispatcher.Dispatch(ctx, inv)
	counters = aggregator.AddReports(counters, result.Reports)

	for _, report := range result.Reports {
		summary.Results = append(summary.Results, report.Results...)
		summary.Anomalies = append(summary.Anomalies, report.Anomalies...)
	}
	for _, failure := range result.Failures {
		summary.ContextFailures = append(summary.ContextFailures, failure)
		summary.Anomalies = append(summary.Anomalies, types.Anomaly{
			Kind:    types.AnomalyContextFailure,
			Context: failure.Context,
			Message: failure.Error,
		})
	}

	summary.Status = types.RunStatusOK
	summary.Counters = counters

	logger.Info().
		Int("routers", len(inv.Routers)).
		Int("unscheduled", counters.UnscheduledRouters).
		Int("inactive", counters.InactiveRouters).
		Int("down", counters.DownRouters).
		Int("missing_fips", counters.MissingFloatingIPs).
		Int("anomalies", len(summary.Anomalies)).
		Int("context_failures", len(summary.ContextFailures)).
		Msg("check run complete")

	return summary, nil
}
