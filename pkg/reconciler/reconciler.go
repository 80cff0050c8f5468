package reconciler

import (
	"strings"

	"github.com/cuemby/l3check/pkg/types"
)

const (
	// GatewayPrefix names the external, gateway-facing router interfaces
	GatewayPrefix = "qg-"

	// InternalPrefix names the internal, subnet-facing router interfaces
	InternalPrefix = "qr-"
)

// Classify returns the class of an interface based on its name prefix
func Classify(name string) types.InterfaceClass {
	switch {
	case strings.HasPrefix(name, GatewayPrefix):
		return types.InterfaceClassGateway
	case strings.HasPrefix(name, InternalPrefix):
		return types.InterfaceClassInternal
	default:
		return types.InterfaceClassUnexpected
	}
}

// IsIPv4 reports whether a textual address is IPv4 by the policy used for
// the floating IP check: anything containing a colon is IPv6.
func IsIPv4(address string) bool {
	return address != "" && !strings.Contains(address, ":")
}

// Reconcile compares the router's declared floating IPs with the addresses
// bound to its gateway interfaces.
//
// A floating IP counts as missing unless it appears verbatim among the IPv4
// addresses of some gateway interface. Interfaces that are neither gateway
// nor internal are reported as unexpected; they do not count as missing.
// Inputs are not modified.
func Reconcile(router *types.Router, interfaces []types.InterfaceObservation) types.ReconciliationResult {
	result := types.ReconciliationResult{}
	if router == nil {
		return result
	}
	result.RouterID = router.ID

	bound := gatewayAddresses(interfaces)

	for _, fip := range router.FloatingIPs {
		if _, ok := bound[fip]; !ok {
			result.MissingFloatingIPs++
			result.MissingAddresses = append(result.MissingAddresses, fip)
		}
	}

	for _, iface := range interfaces {
		if Classify(iface.Name) == types.InterfaceClassUnexpected {
			result.UnexpectedInterfaces = append(result.UnexpectedInterfaces, iface.Name)
		}
	}

	return result
}

// gatewayAddresses collects the IPv4 addresses of all gateway interfaces
func gatewayAddresses(interfaces []types.InterfaceObservation) map[string]struct{} {
	bound := make(map[string]struct{})
	for _, iface := range interfaces {
		if Classify(iface.Name) != types.InterfaceClassGateway {
			continue
		}
		for _, addr := range iface.Addresses {
			if IsIPv4(addr.IP) {
				bound[addr.IP] = struct{}{}
			}
		}
	}
	return bound
}
