package backend

import (
	"errors"
	"fmt"
	"strings"
)

// PermissionError is a 403 from the backend. Never retried.
type PermissionError struct {
	Op string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("backend: permission denied on %s", e.Op)
}

// ValidationError is a 422: one or more polygons violate max-area rules or
// are malformed. Items names the offending entries when known; the user
// must edit and resubmit.
type ValidationError struct {
	Op    string
	Msg   string
	Items []string
}

func (e *ValidationError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = "validation rejected"
	}
	if len(e.Items) == 0 {
		return fmt.Sprintf("backend: %s on %s", msg, e.Op)
	}
	return fmt.Sprintf("backend: %s on %s: %s", msg, e.Op, strings.Join(e.Items, "; "))
}

// NetworkError is transient. Eligible for a single manual retry by
// re-invoking the same step; never retried automatically.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("backend: %s failed: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsTransient reports whether the error is a NetworkError somewhere in
// its chain.
func IsTransient(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
