package inventory

import (
	"context"
	"fmt"

	"github.com/cuemby/l3check/pkg/log"
	"github.com/cuemby/l3check/pkg/types"
)

// Source is the part of the control plane the inventory is built from
type Source interface {
	ListRouters(ctx context.Context) ([]types.RouterRecord, error)
	ListFloatingIPs(ctx context.Context) ([]types.FloatingIPRecord, error)
}

// InventoryError reports a malformed control plane record
type InventoryError struct {
	Kind  string // "router" or "floating ip"
	Index int    // Position in the API response
	Field string
}

func (e *InventoryError) Error() string {
	return fmt.Sprintf("malformed %s record at index %d: missing %q", e.Kind, e.Index, e.Field)
}

// Build fetches routers and floating IPs and attaches every associated
// floating IP to its router.
//
// Floating IPs whose router is null or unknown are skipped. Any record
// lacking a required field fails the whole build with *InventoryError.
func Build(ctx context.Context, src Source) (*types.Inventory, error) {
	logger := log.WithComponent("inventory")

	routerRecords, err := src.ListRouters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list routers: %w", err)
	}

	fipRecords, err := src.ListFloatingIPs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list floating ips: %w", err)
	}

	inv := types.NewInventory()

	for i, rec := range routerRecords {
		router, err := routerFromRecord(i, rec)
		if err != nil {
			return nil, err
		}
		inv.Routers[router.ID] = router
	}

	unassociated := 0
	for i, rec := range fipRecords {
		fip, err := floatingIPFromRecord(i, rec)
		if err != nil {
			return nil, err
		}
		inv.FloatingIPs[fip.ID] = fip

		router, ok := inv.Routers[fip.RouterID]
		if fip.RouterID == "" || !ok {
			unassociated++
			continue
		}
		router.AddFloatingIP(fip.Address)
	}

	logger.Debug().
		Int("routers", len(inv.Routers)).
		Int("floating_ips", len(inv.FloatingIPs)).
		Int("unassociated", unassociated).
		Msg("inventory built")

	return inv, nil
}

func routerFromRecord(index int, rec types.RouterRecord) (*types.Router, error) {
	if rec.ID == nil || *rec.ID == "" {
		return nil, &InventoryError{Kind: "router", Index: index, Field: "id"}
	}

	router := &types.Router{
		ID:     *rec.ID,
		Name:   rec.Name,
		Status: types.RouterStatus(rec.Status),
	}
	// A missing admin_state_up leaves the router counted as down
	if rec.AdminStateUp != nil {
		router.AdminStateUp = *rec.AdminStateUp
	}

	return router, nil
}

func floatingIPFromRecord(index int, rec types.FloatingIPRecord) (*types.FloatingIP, error) {
	if rec.ID == nil || *rec.ID == "" {
		return nil, &InventoryError{Kind: "floating ip", Index: index, Field: "id"}
	}
	if rec.FloatingIPAddress == nil || *rec.FloatingIPAddress == "" {
		return nil, &InventoryError{Kind: "floating ip", Index: index, Field: "floating_ip_address"}
	}

	fip := &types.FloatingIP{
		ID:      *rec.ID,
		Address: *rec.FloatingIPAddress,
	}
	if rec.RouterID != nil {
		fip.RouterID = *rec.RouterID
	}

	return fip, nil
}
