package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/containerd/containerd"
	"github.com/containerd/containerd/cio"
	"github.com/containerd/containerd/namespaces"
	"github.com/containerd/containerd/pkg/dialer"
	"github.com/google/uuid"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cuemby/l3check/pkg/log"
	"github.com/cuemby/l3check/pkg/types"
)

const (
	// DefaultNamespace is the containerd namespace the agent containers live in
	DefaultNamespace = "default"

	// DefaultSocketPath is the default containerd socket
	DefaultSocketPath = "/run/containerd/containerd.sock"

	// DefaultInspectorPath is where the l3check binary is expected inside agent containers
	DefaultInspectorPath = "/usr/local/bin/l3check"

	connectTimeout = 10 * time.Second
	cleanupTimeout = 10 * time.Second
	maxStderr      = 2048
)

// ContainerdProvider runs the inspector inside agent containers managed by containerd
type ContainerdProvider struct {
	client        *containerd.Client
	namespace     string
	inspectorPath string
	hostname      string
	logger        zerolog.Logger
}

// ContainerdConfig configures the containerd execution context provider
type ContainerdConfig struct {
	SocketPath    string
	Namespace     string
	InspectorPath string
	UserAgent     string
}

// NewContainerdProvider connects to containerd
func NewContainerdProvider(cfg ContainerdConfig) (*ContainerdProvider, error) {
	if cfg.SocketPath == "" {
		cfg.SocketPath = DefaultSocketPath
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.InspectorPath == "" {
		cfg.InspectorPath = DefaultInspectorPath
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "l3check"
	}

	// Non-blocking dial: an unreachable daemon surfaces as a per-call error
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(dialer.ContextDialer),
		grpc.WithUserAgent(cfg.UserAgent),
	}

	client, err := containerd.New(cfg.SocketPath,
		containerd.WithDialOpts(dialOpts),
		containerd.WithTimeout(connectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to containerd: %w", err)
	}

	hostname, _ := os.Hostname()

	return &ContainerdProvider{
		client:        client,
		namespace:     cfg.Namespace,
		inspectorPath: cfg.InspectorPath,
		hostname:      hostname,
		logger:        log.WithComponent("runtime"),
	}, nil
}

// Close closes the containerd client connection
func (p *ContainerdProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// ListRunningContexts returns the containers whose ID contains filter and
// whose task is running
func (p *ContainerdProvider) ListRunningContexts(ctx context.Context, filter string) ([]types.ContextHandle, error) {
	ctx = namespaces.WithNamespace(ctx, p.namespace)

	containers, err := p.client.Containers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	handles := make([]types.ContextHandle, 0, len(containers))
	for _, c := range containers {
		if !strings.Contains(c.ID(), filter) {
			continue
		}

		task, err := c.Task(ctx, nil)
		if err != nil {
			// No task means container is not running
			continue
		}

		status, err := task.Status(ctx)
		if err != nil {
			p.logger.Warn().Err(err).Str("container", c.ID()).Msg("failed to get task status")
			continue
		}
		if status.Status != containerd.Running {
			continue
		}

		handles = append(handles, types.ContextHandle{
			ID:   c.ID(),
			Name: c.ID(),
			Host: p.hostname,
		})
	}

	return handles, nil
}

// Run execs the inspector inside the container, feeding it the inventory on
// stdin and decoding its report from stdout
func (p *ContainerdProvider) Run(ctx context.Context, handle types.ContextHandle, inv *types.Inventory) (*types.InspectionReport, error) {
	ctx = namespaces.WithNamespace(ctx, p.namespace)

	payload, err := json.Marshal(inv)
	if err != nil {
		return nil, &ContextError{Context: handle.String(), Op: "encode inventory", Err: err}
	}

	container, err := p.client.LoadContainer(ctx, handle.ID)
	if err != nil {
		return nil, &ContextError{Context: handle.String(), Op: "load container", Err: err}
	}

	task, err := container.Task(ctx, nil)
	if err != nil {
		return nil, &ContextError{Context: handle.String(), Op: "get task", Err: err}
	}

	spec, err := container.Spec(ctx)
	if err != nil {
		return nil, &ContextError{Context: handle.String(), Op: "load spec", Err: err}
	}

	pspec := inspectorProcess(spec.Process, p.inspectorPath, handle.String())

	var stdout, stderr bytes.Buffer
	execID := "l3check-" + uuid.NewString()
	process, err := task.Exec(ctx, execID, pspec,
		cio.NewCreator(cio.WithStreams(bytes.NewReader(payload), &stdout, &stderr)))
	if err != nil {
		return nil, &ContextError{Context: handle.String(), Op: "exec", Err: err}
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(namespaces.WithNamespace(context.Background(), p.namespace), cleanupTimeout)
		defer cancel()
		if _, err := process.Delete(cleanupCtx, containerd.WithProcessKill); err != nil {
			p.logger.Warn().Err(err).Str("context", handle.String()).Msg("failed to delete inspector process")
		}
	}()

	statusC, err := process.Wait(ctx)
	if err != nil {
		return nil, &ContextError{Context: handle.String(), Op: "wait", Err: err}
	}

	if err := process.Start(ctx); err != nil {
		return nil, &ContextError{Context: handle.String(), Op: "start", Err: err}
	}

	var exitStatus containerd.ExitStatus
	select {
	case exitStatus = <-statusC:
	case <-ctx.Done():
		return nil, &ContextError{Context: handle.String(), Op: "wait", Err: ctx.Err()}
	}

	code, _, err := exitStatus.Result()
	if err != nil {
		return nil, &ContextError{Context: handle.String(), Op: "exit status", Err: err}
	}
	process.IO().Wait()

	if code != 0 {
		return nil, &ContextError{
			Context: handle.String(),
			Op:      "inspect",
			Err:     fmt.Errorf("inspector exited with code %d: %s", code, tail(stderr.String(), maxStderr)),
		}
	}

	return decodeReport(handle, stdout.Bytes())
}

// inspectorProcess derives the exec process spec from the container's own
// process so the inspector runs with the container's user and environment
func inspectorProcess(base *specs.Process, inspectorPath, contextName string) *specs.Process {
	pspec := &specs.Process{}
	if base != nil {
		copied := *base
		pspec = &copied
	}
	if pspec.Cwd == "" {
		pspec.Cwd = "/"
	}
	pspec.Terminal = false
	pspec.ConsoleSize = nil
	pspec.Args = []string{inspectorPath, "inspect", "--context", contextName}
	return pspec
}

func decodeReport(handle types.ContextHandle, data []byte) (*types.InspectionReport, error) {
	var report types.InspectionReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, &ContextError{Context: handle.String(), Op: "decode report", Err: err}
	}
	if report.Context == "" {
		report.Context = handle.String()
	}
	return &report, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
