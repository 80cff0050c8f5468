package dispatcher

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/l3check/pkg/log"
	"github.com/cuemby/l3check/pkg/metrics"
	"github.com/cuemby/l3check/pkg/types"
)

const (
	// DefaultFilter selects the agent containers hosting router namespaces
	DefaultFilter = "neutron_agents"

	// DefaultContextTimeout bounds one context's inspection
	DefaultContextTimeout = 60 * time.Second
)

// Provider discovers execution contexts and runs the inspector in them
type Provider interface {
	ListRunningContexts(ctx context.Context, filter string) ([]types.ContextHandle, error)
	Run(ctx context.Context, handle types.ContextHandle, inv *types.Inventory) (*types.InspectionReport, error)
}

// Config controls dispatch
type Config struct {
	Filter         string
	Workers        int // Zero means one worker per context
	ContextTimeout time.Duration
}

// Result is everything collected from one dispatch
type Result struct {
	Reports  []*types.InspectionReport
	Failures []types.ContextFailure
}

// Dispatcher fans inspection out to every running execution context
type Dispatcher struct {
	provider Provider
	config   Config
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(provider Provider, cfg Config) *Dispatcher {
	if cfg.Filter == "" {
		cfg.Filter = DefaultFilter
	}
	if cfg.ContextTimeout <= 0 {
		cfg.ContextTimeout = DefaultContextTimeout
	}
	return &Dispatcher{
		provider: provider,
		config:   cfg,
		logger:   log.WithComponent("dispatcher"),
	}
}

type outcome struct {
	handle types.ContextHandle
	report *types.InspectionReport
	err    error
}

// Dispatch runs the inspector in every running context and collects the
// reports. A failing context is recorded and excluded; it never aborts the
// others.
func (d *Dispatcher) Dispatch(ctx context.Context, inv *types.Inventory) *Result {
	result := &Result{}

	handles, err := d.provider.ListRunningContexts(ctx, d.config.Filter)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to list execution contexts")
		result.Failures = append(result.Failures, types.ContextFailure{
			Error: fmt.Sprintf("failed to list execution contexts: %v", err),
		})
		return result
	}

	if len(handles) == 0 {
		d.logger.Warn().Str("filter", d.config.Filter).Msg("no running execution contexts found")
		return result
	}

	workers := d.config.Workers
	if workers <= 0 || workers > len(handles) {
		workers = len(handles)
	}

	jobs := make(chan types.ContextHandle)
	outcomes := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for handle := range jobs {
				outcomes <- d.runOne(ctx, handle, inv)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, handle := range handles {
			select {
			case jobs <- handle:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// Single collector: only this goroutine touches result
	seen := make(map[string]bool, len(handles))
	for o := range outcomes {
		seen[o.handle.ID] = true
		if o.err != nil {
			result.Failures = append(result.Failures, types.ContextFailure{
				Context: o.handle.String(),
				Error:   o.err.Error(),
			})
			continue
		}
		result.Reports = append(result.Reports, o.report)
	}

	for _, handle := range handles {
		if !seen[handle.ID] {
			result.Failures = append(result.Failures, types.ContextFailure{
				Context: handle.String(),
				Error:   fmt.Sprintf("not dispatched: %v", ctx.Err()),
			})
		}
	}

	sort.Slice(result.Reports, func(i, j int) bool {
		return result.Reports[i].Context < result.Reports[j].Context
	})
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].Context < result.Failures[j].Context
	})

	d.logger.Info().
		Int("contexts", len(handles)).
		Int("reports", len(result.Reports)).
		Int("failures", len(result.Failures)).
		Msg("dispatch complete")

	return result
}

// runOne inspects one context under its own timeout. A provider that does
// not return in time is abandoned and counted as failed.
func (d *Dispatcher) runOne(ctx context.Context, handle types.ContextHandle, inv *types.Inventory) outcome {
	logger := log.WithContext(d.logger, handle.String())

	ctx, cancel := context.WithTimeout(ctx, d.config.ContextTimeout)
	defer cancel()

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ContextInspectionDuration, handle.String())

	done := make(chan outcome, 1)
	go func() {
		o := outcome{handle: handle}
		defer func() {
			if r := recover(); r != nil {
				o.report = nil
				o.err = fmt.Errorf("inspection panicked: %v", r)
			}
			done <- o
		}()

		o.report, o.err = d.provider.Run(ctx, handle, inv)
		if o.err == nil && o.report == nil {
			o.err = fmt.Errorf("provider returned no report")
		}
	}()

	var o outcome
	select {
	case o = <-done:
	case <-ctx.Done():
		o = outcome{
			handle: handle,
			err:    fmt.Errorf("inspection did not finish within %s: %w", d.config.ContextTimeout, ctx.Err()),
		}
	}

	if o.err != nil {
		o.report = nil
		logger.Error().Err(o.err).Msg("context failed")
		return o
	}
	if o.report.Context == "" {
		o.report.Context = handle.String()
	}

	logger.Debug().
		Int("results", len(o.report.Results)).
		Int("anomalies", len(o.report.Anomalies)).
		Msg("context inspected")

	return o
}
