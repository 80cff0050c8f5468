package runtime

import "fmt"

// ContextError is returned when an execution context cannot be reached or
// its inspector fails
type ContextError struct {
	Context string
	Op      string
	Err     error
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("context %s: %s: %v", e.Context, e.Op, e.Err)
}

func (e *ContextError) Unwrap() error {
	return e.Err
}
