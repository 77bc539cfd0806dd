package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// metersPerDegree is the equirectangular scale used for all planar math.
// Fine for farm-scale extents, which is all this engine deals with.
const metersPerDegree = 111320.0

type AreaClass int

const (
	AreaOk AreaClass = iota
	AreaOverLimit
)

// AreaHa computes the area of a polygon or multipolygon in hectares using
// an equirectangular projection about the geometry's bound center.
func AreaHa(g orb.Geometry) float64 {
	switch v := g.(type) {
	case orb.Polygon:
		return AreaHa(orb.MultiPolygon{v})
	case orb.MultiPolygon:
		if len(v) == 0 {
			return 0
		}
		origin := v.Bound().Center()
		var m2 float64
		for _, poly := range v {
			m2 += planar.Area(projectPolygon(poly, origin))
		}
		return math.Abs(m2) / 10000.0
	default:
		return 0
	}
}

// ClassifyArea checks an area against the configured maximum. A zero or
// negative max means no limit is enforced.
func ClassifyArea(areaHa, maxAreaHa float64) AreaClass {
	if maxAreaHa > 0 && areaHa > maxAreaHa {
		return AreaOverLimit
	}
	return AreaOk
}

// Centroid returns the area-weighted centroid in lon/lat.
func Centroid(g orb.Geometry) orb.Point {
	c, _ := planar.CentroidArea(g)
	return c
}

func projectPoint(pt, origin orb.Point) orb.Point {
	cos := math.Cos(origin[1] * math.Pi / 180.0)
	return orb.Point{
		(pt[0] - origin[0]) * metersPerDegree * cos,
		(pt[1] - origin[1]) * metersPerDegree,
	}
}

func unprojectPoint(pt, origin orb.Point) orb.Point {
	cos := math.Cos(origin[1] * math.Pi / 180.0)
	if cos == 0 {
		cos = 1e-12
	}
	return orb.Point{
		origin[0] + pt[0]/(metersPerDegree*cos),
		origin[1] + pt[1]/metersPerDegree,
	}
}

func projectRing(r orb.Ring, origin orb.Point) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, pt := range r {
		out[i] = projectPoint(pt, origin)
	}
	return out
}

func projectPolygon(p orb.Polygon, origin orb.Point) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		out[i] = projectRing(r, origin)
	}
	return out
}

func projectMultiPolygon(mp orb.MultiPolygon, origin orb.Point) orb.MultiPolygon {
	out := make(orb.MultiPolygon, len(mp))
	for i, p := range mp {
		out[i] = projectPolygon(p, origin)
	}
	return out
}

func unprojectRing(r orb.Ring, origin orb.Point) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, pt := range r {
		out[i] = unprojectPoint(pt, origin)
	}
	return out
}
