package transpile

import "fmt"

// Error wraps a failure from one pipeline stage. In strict mode it is what
// the caller receives; in lenient mode it is flattened into Result.Error.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transpile %s failed: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
