package geometry

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/peterstace/simplefeatures/geom"
)

// Union merges the inputs into one (possibly multi-part) polygon by folding
// pairwise. Disjoint inputs are legal: AOI merges are administrative, not
// geometric adjacency, so the result is simply a MultiPolygon with parts.
// Every input is validity-checked first; a bad one fails the whole call.
func Union(geoms []orb.MultiPolygon) (orb.MultiPolygon, error) {
	if len(geoms) == 0 {
		return nil, fmt.Errorf("%w: union of nothing", ErrEmpty)
	}

	sfs := make([]geom.Geometry, len(geoms))
	for i, g := range geoms {
		if len(g) == 0 {
			return nil, fmt.Errorf("%w: input %d is empty", ErrInvalidGeometry, i)
		}
		sf, err := toSF(g)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		sfs[i] = sf
	}

	if len(geoms) == 1 {
		// No-op union, returned as a copy so callers may mutate freely.
		return geoms[0].Clone(), nil
	}

	acc := sfs[0]
	for i := 1; i < len(sfs); i++ {
		merged, err := geom.Union(acc, sfs[i])
		if err != nil {
			return nil, fmt.Errorf("%w: union step %d: %v", ErrInvalidGeometry, i, err)
		}
		acc = merged
	}

	out, err := fromSF(acc)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: union produced no polygonal output", ErrInvalidGeometry)
	}
	return out, nil
}
