package geometry

// Voronoi cells by half-plane clipping. For the seed counts a split session
// works with (tens, not thousands) the O(n^2) construction is plenty, stays
// deterministic, and needs no external tessellation dependency. All math in
// this file runs in projected meters; callers unproject the cell rings.

import (
	"math"
	"math/rand"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// seedJitter is the fraction of a sampling cell a seed may move from the
// cell center. Fixed so identical inputs always produce identical seeds.
const seedJitter = 0.35

// jitteredSeeds places n deterministic seed points inside the projected
// multipolygon. Sampling densifies until enough interior points are found;
// a concave shape may still yield fewer than n.
func jitteredSeeds(projected orb.MultiPolygon, n int) []orb.Point {
	bound := projected.Bound()
	w := bound.Max[0] - bound.Min[0]
	h := bound.Max[1] - bound.Min[1]

	for k := int(math.Ceil(math.Sqrt(float64(n)))); k <= 8*n; k++ {
		rng := rand.New(rand.NewSource(int64(n)*7919 + int64(k)))
		cw := w / float64(k)
		ch := h / float64(k)
		seeds := make([]orb.Point, 0, n)
		for row := 0; row < k && len(seeds) < n; row++ {
			for col := 0; col < k && len(seeds) < n; col++ {
				pt := orb.Point{
					bound.Min[0] + (float64(col)+0.5)*cw + (rng.Float64()*2-1)*seedJitter*cw,
					bound.Min[1] + (float64(row)+0.5)*ch + (rng.Float64()*2-1)*seedJitter*ch,
				}
				if planar.MultiPolygonContains(projected, pt) {
					seeds = append(seeds, pt)
				}
			}
		}
		if len(seeds) == n {
			return seeds
		}
		if k == 8*n {
			return seeds
		}
	}
	return nil
}

// voronoiCells returns one convex cell ring per seed, covering the given
// bound. Cell i is the region of the bound closer to seeds[i] than to any
// other seed.
func voronoiCells(bound orb.Bound, seeds []orb.Point) []orb.Ring {
	// Pad the bound so cell edges never coincide with the clip target.
	pad := math.Max(bound.Max[0]-bound.Min[0], bound.Max[1]-bound.Min[1]) * 0.05
	min := orb.Point{bound.Min[0] - pad, bound.Min[1] - pad}
	max := orb.Point{bound.Max[0] + pad, bound.Max[1] + pad}

	cells := make([]orb.Ring, len(seeds))
	for i, seed := range seeds {
		cell := orb.Ring{
			{min[0], min[1]},
			{max[0], min[1]},
			{max[0], max[1]},
			{min[0], max[1]},
			{min[0], min[1]},
		}
		for j, other := range seeds {
			if i == j {
				continue
			}
			mid := orb.Point{(seed[0] + other[0]) / 2, (seed[1] + other[1]) / 2}
			normal := orb.Point{other[0] - seed[0], other[1] - seed[1]}
			cell = clipHalfPlane(cell, mid, normal)
			if len(cell) == 0 {
				break
			}
		}
		cells[i] = cell
	}
	return cells
}

// clipHalfPlane keeps the part of a closed convex ring on the seed side of
// the bisector through mid with outward normal n (Sutherland-Hodgman).
func clipHalfPlane(ring orb.Ring, mid, n orb.Point) orb.Ring {
	if len(ring) < 4 {
		return nil
	}
	inside := func(p orb.Point) bool {
		return (p[0]-mid[0])*n[0]+(p[1]-mid[1])*n[1] <= 0
	}
	cross := func(a, b orb.Point) orb.Point {
		da := (a[0]-mid[0])*n[0] + (a[1]-mid[1])*n[1]
		db := (b[0]-mid[0])*n[0] + (b[1]-mid[1])*n[1]
		t := da / (da - db)
		return orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
	}

	var out orb.Ring
	for i := 0; i < len(ring)-1; i++ {
		a, b := ring[i], ring[i+1]
		switch {
		case inside(a) && inside(b):
			out = append(out, b)
		case inside(a) && !inside(b):
			out = append(out, cross(a, b))
		case !inside(a) && inside(b):
			out = append(out, cross(a, b), b)
		}
	}
	if len(out) < 3 {
		return nil
	}
	if out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out
}
