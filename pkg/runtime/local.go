package runtime

import (
	"context"
	"os"

	"github.com/cuemby/l3check/pkg/hostnet"
	"github.com/cuemby/l3check/pkg/inspector"
	"github.com/cuemby/l3check/pkg/types"
)

// LocalProvider exposes the local host as a single execution context and
// runs the inspector in-process
type LocalProvider struct {
	inspector *inspector.Inspector
	name      string
}

// NewLocalProvider creates a provider for the local host. An empty name
// falls back to the hostname.
func NewLocalProvider(host hostnet.Host, name string) *LocalProvider {
	if name == "" {
		name, _ = os.Hostname()
	}
	if name == "" {
		name = "local"
	}
	return &LocalProvider{
		inspector: inspector.NewInspector(host),
		name:      name,
	}
}

// ListRunningContexts always returns the local host
func (p *LocalProvider) ListRunningContexts(ctx context.Context, filter string) ([]types.ContextHandle, error) {
	return []types.ContextHandle{{ID: p.name, Name: p.name, Host: p.name}}, nil
}

// Run inspects the local host. A report cut short by ctx is discarded.
func (p *LocalProvider) Run(ctx context.Context, handle types.ContextHandle, inv *types.Inventory) (*types.InspectionReport, error) {
	report := p.inspector.Inspect(ctx, handle.String(), inv)
	if err := ctx.Err(); err != nil {
		return nil, &ContextError{Context: handle.String(), Op: "inspect", Err: err}
	}
	return report, nil
}
