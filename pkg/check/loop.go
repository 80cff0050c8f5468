package check

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/l3check/pkg/log"
	"github.com/cuemby/l3check/pkg/metrics"
	"github.com/cuemby/l3check/pkg/types"
)

// DefaultInterval is the time between runs in serve mode
const DefaultInterval = 5 * time.Minute

// Runner performs a single check run
type Runner interface {
	Run(ctx context.Context) (*types.Summary, error)
}

// Loop runs checks on a fixed interval and publishes every summary to the
// metrics package. Runs never overlap.
type Loop struct {
	runner   Runner
	interval time.Duration
	logger   zerolog.Logger

	mu   sync.RWMutex
	last *types.Summary

	startOnce sync.Once
	cancel    context.CancelFunc
	doneCh    chan struct{}
}

// NewLoop creates a loop. A non-positive interval uses DefaultInterval.
func NewLoop(runner Runner, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		runner:   runner,
		interval: interval,
		logger:   log.WithComponent("loop"),
		doneCh:   make(chan struct{}),
	}
}

// Start runs a check immediately and then once per interval until ctx is
// cancelled or Stop is called. A loop starts at most once; later calls are
// ignored.
func (l *Loop) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		l.mu.Lock()
		l.cancel = cancel
		l.mu.Unlock()
		go l.run(ctx)
	})
}

// Stop cancels the loop and waits for an in-flight run to return. It is a
// no-op on a loop that was never started.
func (l *Loop) Stop() {
	l.mu.RLock()
	cancel := l.cancel
	l.mu.RUnlock()
	if cancel != nil {
		cancel()
		<-l.doneCh
	}
}

// Last returns the summary of the most recent run, or nil
func (l *Loop) Last() *types.Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.doneCh)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.tick(ctx)
	for {
		select {
		case <-ticker.C:
			l.tick(ctx)
		case <-ctx.Done():
			l.logger.Info().Msg("check loop stopped")
			return
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	summary, err := l.runner.Run(ctx)
	if summary == nil {
		return
	}

	metrics.Record(summary)
	metrics.SetComponentHealth(metrics.ComponentControlPlane, err)
	if err == nil {
		var dispatchErr error
		if len(summary.ContextFailures) > 0 {
			f := summary.ContextFailures[0]
			dispatchErr = fmt.Errorf("%d context(s) failed, first %s: %s", len(summary.ContextFailures), f.Context, f.Error)
		}
		metrics.SetComponentHealth(metrics.ComponentDispatcher, dispatchErr)
	}

	l.mu.Lock()
	l.last = summary
	l.mu.Unlock()
}
