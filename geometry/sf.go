package geometry

// Bridge between the orb types used in memory and simplefeatures, which
// carries the boolean ops (union, intersection). The bridge goes through
// wire text so the codec is the only coordinate parser in the package.

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/peterstace/simplefeatures/geom"
)

func toSF(g orb.Geometry) (geom.Geometry, error) {
	sf, err := geom.UnmarshalWKT(Encode(g))
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	return sf, nil
}

// fromSF extracts the polygonal parts of a simplefeatures geometry. Lines
// and points (boundary-touching intersection leftovers) are discarded.
func fromSF(g geom.Geometry) (orb.MultiPolygon, error) {
	if g.IsEmpty() {
		return nil, nil
	}
	switch g.Type() {
	case geom.TypePolygon, geom.TypeMultiPolygon:
		polys, err := Decode(g.AsText())
		if err != nil {
			return nil, err
		}
		return orb.MultiPolygon(polys), nil
	case geom.TypeGeometryCollection:
		gc := g.MustAsGeometryCollection()
		var out orb.MultiPolygon
		for i := 0; i < gc.NumGeometries(); i++ {
			part, err := fromSF(gc.GeometryN(i))
			if err != nil {
				return nil, err
			}
			out = append(out, part...)
		}
		return out, nil
	default:
		return nil, nil
	}
}
