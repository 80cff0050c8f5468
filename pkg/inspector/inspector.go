package inspector

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cuemby/l3check/pkg/hostnet"
	"github.com/cuemby/l3check/pkg/log"
	"github.com/cuemby/l3check/pkg/reconciler"
	"github.com/cuemby/l3check/pkg/types"
)

const (
	// RouterMarker identifies router namespaces among all host namespaces
	RouterMarker = "router"

	loopback = "lo"
)

// RouterIDFromNamespace derives the router ID from a namespace name by
// dropping everything up to and including the first hyphen.
func RouterIDFromNamespace(namespace string) (string, error) {
	_, id, found := strings.Cut(namespace, "-")
	if !found {
		return "", fmt.Errorf("namespace %q has no hyphen", namespace)
	}
	if id == "" {
		return "", fmt.Errorf("namespace %q has an empty router id", namespace)
	}
	return id, nil
}

// Inspector walks the router namespaces of one host
type Inspector struct {
	host   hostnet.Host
	logger zerolog.Logger
}

// NewInspector creates an inspector over a host API
func NewInspector(host hostnet.Host) *Inspector {
	return &Inspector{
		host:   host,
		logger: log.WithComponent("inspector"),
	}
}

// Inspect reconciles every router namespace on the host against the
// inventory. Failures are recorded in the report and never stop the pass,
// except for cancellation of ctx.
func (i *Inspector) Inspect(ctx context.Context, contextName string, inv *types.Inventory) *types.InspectionReport {
	logger := log.WithContext(i.logger, contextName)
	report := &types.InspectionReport{
		Context:   contextName,
		Results:   []types.ReconciliationResult{},
		Anomalies: []types.Anomaly{},
	}

	namespaces, err := i.host.ListNamespaces()
	if err != nil {
		logger.Error().Err(err).Msg("failed to list namespaces")
		report.Anomalies = append(report.Anomalies, types.Anomaly{
			Kind:    types.AnomalyNamespaceListFailed,
			Context: contextName,
			Message: err.Error(),
		})
		return report
	}

	for _, ns := range namespaces {
		if !strings.Contains(ns, RouterMarker) {
			continue
		}

		if err := ctx.Err(); err != nil {
			report.Anomalies = append(report.Anomalies, types.Anomaly{
				Kind:      types.AnomalyContextFailure,
				Context:   contextName,
				Namespace: ns,
				Message:   fmt.Sprintf("inspection interrupted: %v", err),
			})
			break
		}

		i.inspectNamespace(logger, contextName, ns, inv, report)
	}

	logger.Debug().
		Int("results", len(report.Results)).
		Int("anomalies", len(report.Anomalies)).
		Msg("host inspection complete")

	return report
}

func (i *Inspector) inspectNamespace(logger zerolog.Logger, contextName, ns string, inv *types.Inventory, report *types.InspectionReport) {
	logger = log.WithNamespace(logger, ns)

	routerID, err := RouterIDFromNamespace(ns)
	if err != nil {
		logger.Warn().Err(err).Msg("malformed router namespace")
		report.Anomalies = append(report.Anomalies, types.Anomaly{
			Kind:      types.AnomalyMalformedNamespace,
			Context:   contextName,
			Namespace: ns,
			Message:   err.Error(),
		})
		return
	}

	router := inv.Router(routerID)
	if router == nil {
		logger.Warn().Str("router_id", routerID).Msg("namespace has no router in the control plane")
		report.Anomalies = append(report.Anomalies, types.Anomaly{
			Kind:      types.AnomalyUnknownRouter,
			Context:   contextName,
			Namespace: ns,
			RouterID:  routerID,
			Message:   "router not found in control plane inventory",
		})
		return
	}

	interfaces, err := i.observe(ns)
	if err != nil {
		logger.Error().Err(err).Msg("failed to inspect namespace")
		report.Anomalies = append(report.Anomalies, types.Anomaly{
			Kind:      types.AnomalyNamespaceUnreachable,
			Context:   contextName,
			Namespace: ns,
			RouterID:  routerID,
			Message:   err.Error(),
		})
		return
	}

	for _, iface := range interfaces {
		addrs := make([]string, 0, len(iface.Addresses))
		for _, addr := range iface.Addresses {
			addrs = append(addrs, fmt.Sprintf("%s/%d", addr.IP, addr.PrefixLen))
		}
		logger.Debug().
			Str("interface", iface.Name).
			Str("oper_state", iface.OperState).
			Strs("addresses", addrs).
			Msg("interface")
	}

	result := reconciler.Reconcile(router, interfaces)
	result.Context = contextName
	result.Namespace = ns

	routerLogger := log.WithRouterID(logger, routerID)
	if result.MissingFloatingIPs > 0 {
		routerLogger.Warn().
			Strs("missing", result.MissingAddresses).
			Msg("floating ips not bound to gateway interface")
	}
	if len(result.UnexpectedInterfaces) > 0 {
		routerLogger.Info().
			Strs("interfaces", result.UnexpectedInterfaces).
			Msg("unexpected interfaces in router namespace")
	}

	report.Results = append(report.Results, result)
}

// observe enters the namespace and collects non-loopback interfaces with
// their IPv4 addresses. A panic while inside the namespace is returned as
// an error after the namespace has been left.
func (i *Inspector) observe(ns string) (observations []types.InterfaceObservation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while inspecting namespace: %v", r)
		}
	}()

	err = i.host.Enter(ns, func(scope hostnet.Scope) error {
		interfaces, err := scope.Interfaces()
		if err != nil {
			return err
		}

		for _, iface := range interfaces {
			if iface.Name == loopback {
				continue
			}
			filtered := iface
			filtered.Addresses = nil
			for _, addr := range iface.Addresses {
				if reconciler.IsIPv4(addr.IP) {
					filtered.Addresses = append(filtered.Addresses, addr)
				}
			}
			observations = append(observations, filtered)
		}
		return nil
	})

	return observations, err
}
