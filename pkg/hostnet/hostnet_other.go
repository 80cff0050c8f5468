//go:build !linux

package hostnet

import (
	"errors"
)

var errUnsupported = errors.New("network namespaces are only supported on linux")

// NetlinkHost is unavailable outside linux
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

// ListNamespaces returns the entries of the netns directory
func (h *NetlinkHost) ListNamespaces() ([]string, error) {
	return listNamespaceDir(h.dir)
}

// Enter always fails outside linux
func (h *NetlinkHost) Enter(name string, fn func(Scope) error) error {
	return &EnterError{Namespace: name, Op: "enter", Err: errUnsupported}
}
