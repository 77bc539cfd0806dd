package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PreviewPolygon is an unpersisted candidate sub-polygon produced during a
// split session. It lives only inside the active session and dies with it.
type PreviewPolygon struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Geom   string  `json:"geometry_wire"`
	AreaHa float64 `json:"area_ha"`
	// Authoritative is false when the geometry came from the local
	// fallback simulator instead of the backend simulate endpoint.
	Authoritative bool `json:"authoritative"`
}

// NewPreviewID returns a client-generated id, falling back to a timestamp
// when uuid generation is unavailable.
func NewPreviewID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	return fmt.Sprintf("pv-%d", time.Now().UnixNano())
}
