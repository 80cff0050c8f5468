//go:build linux

package hostnet

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"

	"github.com/cuemby/l3check/pkg/types"
)

// NetlinkHost implements Host with setns(2) and netlink
type NetlinkHost struct {
	dir string
}

// NewNetlinkHost creates a host API over the given netns directory
func NewNetlinkHost(dir string) *NetlinkHost {
	if dir == "" {
		dir = DefaultNetnsDir
	}
	return &NetlinkHost{dir: dir}
}

// ListNamespaces returns the named network namespaces on this host
func (h *NetlinkHost) ListNamespaces() ([]string, error) {
	return listNamespaceDir(h.dir)
}

// Enter runs fn with the calling OS thread switched into the namespace.
func (h *NetlinkHost) Enter(name string, fn func(Scope) error) (err error) {
	runtime.LockOSThread()
	// The thread is only handed back to the scheduler once it is known to be
	// in the original namespace again. Otherwise it dies with the goroutine.
	restored := false
	defer func() {
		if restored {
			runtime.UnlockOSThread()
		}
	}()

	origin, err := netns.Get()
	if err != nil {
		restored = true
		return &EnterError{Namespace: name, Op: "get current namespace", Err: err}
	}
	defer origin.Close()

	target, err := netns.GetFromPath(filepath.Join(h.dir, name))
	if err != nil {
		restored = true
		return &EnterError{Namespace: name, Op: "open", Err: err}
	}
	defer target.Close()

	if err := netns.Set(target); err != nil {
		restored = true
		return &EnterError{Namespace: name, Op: "enter", Err: err}
	}

	defer func() {
		if setErr := netns.Set(origin); setErr != nil {
			err = &EnterError{Namespace: name, Op: "restore", Err: setErr}
			return
		}
		restored = true
	}()

	handle, err := netlink.NewHandle()
	if err != nil {
		return &EnterError{Namespace: name, Op: "open netlink", Err: err}
	}
	defer handle.Delete()

	return fn(&netlinkScope{handle: handle})
}

type netlinkScope struct {
	handle *netlink.Handle
}

func (s *netlinkScope) Interfaces() ([]types.InterfaceObservation, error) {
	links, err := s.handle.LinkList()
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	observations := make([]types.InterfaceObservation, 0, len(links))
	for _, link := range links {
		attrs := link.Attrs()

		addrs, err := s.handle.AddrList(link, netlink.FAMILY_ALL)
		if err != nil {
			return nil, fmt.Errorf("failed to list addresses of %s: %w", attrs.Name, err)
		}

		obs := types.InterfaceObservation{
			Name:      attrs.Name,
			OperState: attrs.OperState.String(),
		}
		for _, addr := range addrs {
			if addr.IPNet == nil {
				continue
			}
			ones, _ := addr.IPNet.Mask.Size()
			obs.Addresses = append(obs.Addresses, types.Address{
				IP:        addr.IPNet.IP.String(),
				PrefixLen: ones,
			})
		}
		observations = append(observations, obs)
	}

	return observations, nil
}
