package hostnet

import (
	"fmt"
	"os"
	"sort"

	"github.com/cuemby/l3check/pkg/types"
)

const (
	// DefaultNetnsDir is where iproute2 keeps named network namespaces
	DefaultNetnsDir = "/var/run/netns"
)

// Scope is an entered network namespace. It is only valid inside the
// function passed to Host.Enter.
type Scope interface {
	// Interfaces lists every link in the namespace with its addresses
	Interfaces() ([]types.InterfaceObservation, error)
}

// Host is the namespace and interface API of one host
type Host interface {
	// ListNamespaces returns the names of all named network namespaces
	ListNamespaces() ([]string, error)

	// Enter switches into the named namespace, runs fn and switches back.
	// The original namespace is restored on every exit path, including panics.
	Enter(name string, fn func(Scope) error) error
}

// EnterError is returned when a namespace cannot be entered or left
type EnterError struct {
	Namespace string
	Op        string
	Err       error
}

func (e *EnterError) Error() string {
	return fmt.Sprintf("namespace %s: %s: %v", e.Namespace, e.Op, e.Err)
}

func (e *EnterError) Unwrap() error {
	return e.Err
}

// listNamespaceDir returns the sorted entries of a netns directory.
// A missing directory means no namespaces have been created yet.
func listNamespaceDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	return names, nil
}
