package geometry

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ToGeoJSON wraps the geometry in a GeoJSON MultiPolygon envelope. Single
// polygons are promoted, same as Encode.
func ToGeoJSON(g orb.Geometry) *geojson.Geometry {
	switch v := g.(type) {
	case orb.Polygon:
		return geojson.NewGeometry(orb.MultiPolygon{v})
	case orb.MultiPolygon:
		return geojson.NewGeometry(v)
	case orb.Ring:
		return geojson.NewGeometry(orb.MultiPolygon{orb.Polygon{v}})
	default:
		return geojson.NewGeometry(orb.MultiPolygon{})
	}
}

// FromGeoJSON extracts the polygonal content of a GeoJSON envelope. Open
// rings are closed here with the same tolerance Decode applies to the
// wire form; non-polygonal geometries are rejected.
func FromGeoJSON(g *geojson.Geometry) (orb.MultiPolygon, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: no geometry", ErrEmpty)
	}
	var mp orb.MultiPolygon
	switch v := g.Geometry().(type) {
	case orb.Polygon:
		mp = orb.MultiPolygon{v}
	case orb.MultiPolygon:
		mp = v
	default:
		return nil, fmt.Errorf("%w: geojson type %q is not polygonal", ErrMalformed, g.Type)
	}
	if len(mp) == 0 {
		return nil, fmt.Errorf("%w: empty multipolygon", ErrEmpty)
	}

	out := make(orb.MultiPolygon, 0, len(mp))
	for _, poly := range mp {
		if len(poly) == 0 {
			return nil, fmt.Errorf("%w: polygon with zero rings", ErrEmpty)
		}
		cp := make(orb.Polygon, 0, len(poly))
		for _, ring := range poly {
			if len(ring) < 3 {
				return nil, fmt.Errorf("%w: ring with %d points", ErrMalformed, len(ring))
			}
			r := make(orb.Ring, len(ring), len(ring)+1)
			copy(r, ring)
			if r[0] != r[len(r)-1] {
				r = append(r, r[0])
			}
			cp = append(cp, r)
		}
		out = append(out, cp)
	}
	return out, nil
}
