package geometry

import "errors"

var (
	// Wire codec failures. Never retried, always a local bug or corrupted data.
	ErrMalformed = errors.New("geometry: malformed wire input")
	ErrEmpty     = errors.New("geometry: empty geometry")

	// Partition failures. Surfaced to the user as "redraw the area".
	ErrDegenerateInput = errors.New("geometry: degenerate input polygon")

	// Union failures, surfaced per offending item by the caller.
	ErrInvalidGeometry = errors.New("geometry: invalid geometry")
)
