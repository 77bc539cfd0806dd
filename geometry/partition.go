package geometry

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/peterstace/simplefeatures/geom"
)

type SplitMode string

const (
	SplitVoronoi SplitMode = "voronoi"
	SplitGrid    SplitMode = "grid"
)

// MinPieceHa is the minimum area a simulated sub-polygon may have. Smaller
// intersections are dropped with a warning, never silently.
const MinPieceHa = 0.1

type SimParams struct {
	Mode        SplitMode
	TargetCount int
	MaxAreaHa   float64
}

type SimPiece struct {
	Geometry orb.MultiPolygon
	AreaHa   float64
}

type SimResult struct {
	Pieces   []SimPiece
	Warnings []string
}

// Simulate partitions the polygon into candidate sub-polygons. The output
// order is deterministic for identical inputs: pieces are sorted by
// centroid latitude, then longitude. Warnings are advisory; the caller
// decides whether any of them block confirmation.
func Simulate(mp orb.MultiPolygon, p SimParams) (*SimResult, error) {
	total := AreaHa(mp)
	if total <= MinPieceHa {
		return nil, fmt.Errorf("%w: area %.4f ha is below the %.1f ha floor", ErrDegenerateInput, total, MinPieceHa)
	}
	parentSF, err := toSF(mp)
	if err != nil {
		// Self-intersecting or otherwise unrepairable input.
		return nil, fmt.Errorf("%w: %v", ErrDegenerateInput, err)
	}

	switch p.Mode {
	case SplitVoronoi, SplitGrid:
	default:
		return nil, fmt.Errorf("%w: unknown split mode %q", ErrDegenerateInput, p.Mode)
	}

	origin := mp.Bound().Center()
	projected := projectMultiPolygon(mp, origin)

	var cells []orb.Ring
	res := &SimResult{}
	if p.Mode == SplitVoronoi {
		n := p.TargetCount
		if n <= 0 && p.MaxAreaHa > 0 {
			n = int(math.Ceil(total / p.MaxAreaHa))
		}
		if n <= 0 {
			n = 2
		}
		seeds := jitteredSeeds(projected, n)
		if len(seeds) == 0 {
			return nil, fmt.Errorf("%w: no interior seed points found", ErrDegenerateInput)
		}
		if len(seeds) < n {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("requested %d sub-polygons but only %d seed points fit the shape", n, len(seeds)))
		}
		cells = voronoiCells(projected.Bound(), seeds)
	} else {
		cells = gridCells(projected, p)
	}

	for _, cell := range cells {
		if len(cell) == 0 {
			continue
		}
		piece, err := clipCell(cell, origin, parentSF)
		if err != nil {
			return nil, err
		}
		if len(piece) == 0 {
			continue
		}
		area := AreaHa(piece)
		if area < MinPieceHa {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("discarded a sub-polygon of %.3f ha (below the %.1f ha floor)", area, MinPieceHa))
			continue
		}
		res.Pieces = append(res.Pieces, SimPiece{Geometry: piece, AreaHa: area})
	}

	if len(res.Pieces) == 0 {
		return nil, fmt.Errorf("%w: no sub-polygon survived clipping", ErrDegenerateInput)
	}

	sort.SliceStable(res.Pieces, func(i, j int) bool {
		ci := Centroid(res.Pieces[i].Geometry)
		cj := Centroid(res.Pieces[j].Geometry)
		if ci[1] != cj[1] {
			return ci[1] < cj[1]
		}
		return ci[0] < cj[0]
	})

	if p.MaxAreaHa > 0 {
		for i, piece := range res.Pieces {
			if ClassifyArea(piece.AreaHa, p.MaxAreaHa) == AreaOverLimit {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("sub-polygon %d is %.1f ha, over the %.1f ha limit", i+1, piece.AreaHa, p.MaxAreaHa))
			}
		}
	}
	return res, nil
}

// gridCells lays a square grid over the projected bound. The side length
// approximates MaxAreaHa when given; a TargetCount instead sizes the grid
// to put that many cells over the bounding box.
func gridCells(projected orb.MultiPolygon, p SimParams) []orb.Ring {
	bound := projected.Bound()
	w := bound.Max[0] - bound.Min[0]
	h := bound.Max[1] - bound.Min[1]

	var sideM float64
	switch {
	case p.TargetCount > 0:
		sideM = math.Sqrt(w * h / float64(p.TargetCount))
	case p.MaxAreaHa > 0:
		sideM = math.Sqrt(p.MaxAreaHa * 10000.0)
	default:
		sideM = math.Sqrt(w * h / 4.0)
	}

	// The epsilon keeps an exact fit from rounding up to an extra empty
	// row or column.
	cols := int(math.Ceil(w/sideM - 1e-9))
	rows := int(math.Ceil(h/sideM - 1e-9))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	// The side length stays as derived; the last row/column simply hangs
	// over the bound and gets clipped away. Shrinking cells to tile the
	// bound exactly would silently change the per-cell area budget.
	cells := make([]orb.Ring, 0, cols*rows)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			x0 := bound.Min[0] + float64(col)*sideM
			y0 := bound.Min[1] + float64(row)*sideM
			cells = append(cells, orb.Ring{
				{x0, y0}, {x0 + sideM, y0}, {x0 + sideM, y0 + sideM}, {x0, y0 + sideM}, {x0, y0},
			})
		}
	}
	return cells
}

// clipCell intersects one projected cell ring with the parent polygon and
// returns the polygonal remainder in lon/lat.
func clipCell(cell orb.Ring, origin orb.Point, parent geom.Geometry) (orb.MultiPolygon, error) {
	geo := unprojectRing(cell, origin)
	cellSF, err := toSF(orb.Polygon{geo})
	if err != nil {
		return nil, err
	}
	clipped, err := geom.Intersection(cellSF, parent)
	if err != nil {
		return nil, fmt.Errorf("%w: cell intersection: %v", ErrDegenerateInput, err)
	}
	return fromSF(clipped)
}
