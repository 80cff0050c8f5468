package runtime

import (
	"context"
	"errors"
	"strings"
	"testing"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/l3check/pkg/hostnet"
	"github.com/cuemby/l3check/pkg/types"
)

type staticHost struct {
	namespaces []string
	interfaces []types.InterfaceObservation
}

func (h *staticHost) ListNamespaces() ([]string, error) { return h.namespaces, nil }

func (h *staticHost) Enter(name string, fn func(hostnet.Scope) error) error {
	return fn(h)
}

func (h *staticHost) Interfaces() ([]types.InterfaceObservation, error) {
	return h.interfaces, nil
}

func TestInspectorProcess(t *testing.T) {
	base := &specs.Process{
		Terminal: true,
		User:     specs.User{UID: 42},
		Env:      []string{"PATH=/usr/bin"},
		Args:     []string{"neutron-l3-agent"},
		Cwd:      "/var/lib/neutron",
	}

	pspec := inspectorProcess(base, "/opt/l3check", "neutron_agents_1")

	assert.Equal(t, []string{"/opt/l3check", "inspect", "--context", "neutron_agents_1"}, pspec.Args)
	assert.False(t, pspec.Terminal)
	assert.Equal(t, uint32(42), pspec.User.UID)
	assert.Equal(t, []string{"PATH=/usr/bin"}, pspec.Env)
	assert.Equal(t, "/var/lib/neutron", pspec.Cwd)

	// The container's own spec must be left alone
	assert.Equal(t, []string{"neutron-l3-agent"}, base.Args)
	assert.True(t, base.Terminal)
}

func TestInspectorProcessNilBase(t *testing.T) {
	pspec := inspectorProcess(nil, DefaultInspectorPath, "c1")
	assert.Equal(t, "/", pspec.Cwd)
	assert.Equal(t, DefaultInspectorPath, pspec.Args[0])
}

func TestDecodeReport(t *testing.T) {
	handle := types.ContextHandle{ID: "abc", Name: "neutron_agents_1"}

	report, err := decodeReport(handle, []byte(`{"results":[{"router_id":"r1","missing_floating_ips":2}],"anomalies":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "neutron_agents_1", report.Context)
	require.Len(t, report.Results, 1)
	assert.Equal(t, 2, report.Results[0].MissingFloatingIPs)

	_, err = decodeReport(handle, []byte("Traceback (most recent call last)"))
	var ctxErr *ContextError
	require.True(t, errors.As(err, &ctxErr))
	assert.Equal(t, "decode report", ctxErr.Op)
	assert.Equal(t, "neutron_agents_1", ctxErr.Context)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", tail("  short\n", 10))
	assert.Equal(t, "6789", tail("0123456789", 4))
	assert.Len(t, tail(strings.Repeat("x", 5000), maxStderr), maxStderr)
}

func TestLocalProvider(t *testing.T) {
	host := &staticHost{
		namespaces: []string{"qrouter-r1"},
		interfaces: []types.InterfaceObservation{
			{Name: "qg-1", Addresses: []types.Address{{IP: "10.0.0.5", PrefixLen: 32}}},
		},
	}
	p := NewLocalProvider(host, "net-1")

	handles, err := p.ListRunningContexts(context.Background(), "ignored")
	require.NoError(t, err)
	require.Len(t, handles, 1)
	assert.Equal(t, "net-1", handles[0].String())

	inv := types.NewInventory()
	inv.Routers["r1"] = &types.Router{ID: "r1", FloatingIPs: []string{"10.0.0.5", "10.0.0.6"}}

	report, err := p.Run(context.Background(), handles[0], inv)
	require.NoError(t, err)
	assert.Equal(t, "net-1", report.Context)
	require.Len(t, report.Results, 1)
	assert.Equal(t, 1, report.Results[0].MissingFloatingIPs)
}

func TestLocalProviderCancelled(t *testing.T) {
	p := NewLocalProvider(&staticHost{namespaces: []string{"qrouter-r1"}}, "net-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := p.Run(ctx, types.ContextHandle{Name: "net-1"}, types.NewInventory())
	assert.Nil(t, report)

	var ctxErr *ContextError
	require.True(t, errors.As(err, &ctxErr))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestContextErrorMessage(t *testing.T) {
	err := &ContextError{Context: "c1", Op: "exec", Err: errors.New("no such file")}
	assert.Equal(t, "context c1: exec: no such file", err.Error())
}
