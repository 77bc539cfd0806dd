package geometry

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

// convexField builds a convex polygon with n vertices approximating a
// circle of the given area in hectares.
func convexField(lon, lat float64, areaHa float64, n int) orb.MultiPolygon {
	r := math.Sqrt(areaHa * 10000 / math.Pi)
	dLat := r / metersPerDegree
	dLon := r / (metersPerDegree * math.Cos(lat*math.Pi/180))
	ring := make(orb.Ring, 0, n+1)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		ring = append(ring, orb.Point{lon + dLon*math.Cos(theta), lat + dLat*math.Sin(theta)})
	}
	ring = append(ring, ring[0])
	return orb.MultiPolygon{{ring}}
}

func sumAreas(res *SimResult) float64 {
	var sum float64
	for _, p := range res.Pieces {
		sum += p.AreaHa
	}
	return sum
}

func TestSimulateVoronoiConservesArea(t *testing.T) {
	field := convexField(-47.9, -15.8, 500, 1000)
	total := AreaHa(field)

	res, err := Simulate(field, SimParams{Mode: SplitVoronoi, TargetCount: 8})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(res.Pieces) != 8 {
		t.Fatalf("expected 8 pieces, got %d (warnings: %v)", len(res.Pieces), res.Warnings)
	}
	sum := sumAreas(res)
	if math.Abs(sum-total) > total*0.005 {
		t.Fatalf("voronoi pieces sum to %.2f ha, parent is %.2f ha", sum, total)
	}
}

func TestSimulateGridConservesArea(t *testing.T) {
	field := convexField(-47.9, -15.8, 500, 1000)
	total := AreaHa(field)

	res, err := Simulate(field, SimParams{Mode: SplitGrid, TargetCount: 8})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(res.Pieces) == 0 {
		t.Fatal("grid produced no pieces")
	}
	sum := sumAreas(res)
	if math.Abs(sum-total) > total*0.005 {
		t.Fatalf("grid pieces sum to %.2f ha, parent is %.2f ha", sum, total)
	}
}

func TestSimulateDeterministic(t *testing.T) {
	field := convexField(-47.9, -15.8, 300, 64)

	first, err := Simulate(field, SimParams{Mode: SplitVoronoi, TargetCount: 6})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	second, err := Simulate(field, SimParams{Mode: SplitVoronoi, TargetCount: 6})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(first.Pieces) != len(second.Pieces) {
		t.Fatalf("piece count differs between runs: %d vs %d", len(first.Pieces), len(second.Pieces))
	}
	for i := range first.Pieces {
		if Encode(first.Pieces[i].Geometry) != Encode(second.Pieces[i].Geometry) {
			t.Fatalf("piece %d differs between identical runs", i)
		}
	}
}

// staircaseField is a ~120 ha rectilinear field whose 1600m x 1600m
// bounding box covers 256 ha. A 4-cell grid over that box uses 64 ha
// cells, and the field's dense corner fills one of them past 50 ha.
func staircaseField(lon, lat float64) orb.MultiPolygon {
	pts := [][2]float64{
		{-800, -800}, {800, -800}, {800, 100}, {500, 100}, {500, -500},
		{-40, -500}, {-40, -174}, {-500, -174}, {-500, 800}, {-800, 800},
		{-800, -800},
	}
	cosLat := math.Cos(lat * math.Pi / 180)
	ring := make(orb.Ring, len(pts))
	for i, p := range pts {
		ring[i] = orb.Point{lon + p[0]/(metersPerDegree*cosLat), lat + p[1]/metersPerDegree}
	}
	return orb.MultiPolygon{{ring}}
}

func TestSimulateGridWarnsOverMaxArea(t *testing.T) {
	field := staircaseField(-47.9, -15.8)

	res, err := Simulate(field, SimParams{Mode: SplitGrid, TargetCount: 4, MaxAreaHa: 50})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(res.Pieces) != 4 {
		t.Fatalf("expected 4 pieces, got %d", len(res.Pieces))
	}
	var over bool
	for _, p := range res.Pieces {
		if p.AreaHa > 50 {
			over = true
		}
	}
	if !over {
		t.Fatal("expected at least one piece over 50 ha")
	}
	var warned bool
	for _, w := range res.Warnings {
		if strings.Contains(w, "over the 50.0 ha limit") {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected an over-limit warning, got %v", res.Warnings)
	}

	// A square field of the same area tiles into four 30 ha cells and
	// must not warn.
	square := orb.MultiPolygon{squareAt(-47.9, -15.8, math.Sqrt(120*10000))}
	res, err = Simulate(square, SimParams{Mode: SplitGrid, TargetCount: 4, MaxAreaHa: 50})
	if err != nil {
		t.Fatalf("simulate square: %v", err)
	}
	if len(res.Pieces) != 4 || len(res.Warnings) != 0 {
		t.Fatalf("square field: pieces=%d warnings=%v", len(res.Pieces), res.Warnings)
	}
}

func TestSimulateVoronoiWarnsOverMaxArea(t *testing.T) {
	field := convexField(-47.9, -15.8, 400, 256)
	res, err := Simulate(field, SimParams{Mode: SplitVoronoi, TargetCount: 2, MaxAreaHa: 100})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("two pieces of a 400 ha field must warn against a 100 ha budget")
	}
}

func TestSimulateDegenerateInput(t *testing.T) {
	tiny := orb.MultiPolygon{squareAt(-47.9, -15.8, 10)} // 0.01 ha
	if _, err := Simulate(tiny, SimParams{Mode: SplitGrid, TargetCount: 4}); !errors.Is(err, ErrDegenerateInput) {
		t.Fatalf("expected ErrDegenerateInput for a near-zero field, got %v", err)
	}

	bowtie := orb.MultiPolygon{{{{-47.9, -15.8}, {-47.89, -15.79}, {-47.89, -15.8}, {-47.9, -15.79}, {-47.9, -15.8}}}}
	if _, err := Simulate(bowtie, SimParams{Mode: SplitVoronoi, TargetCount: 4}); !errors.Is(err, ErrDegenerateInput) {
		t.Fatalf("expected ErrDegenerateInput for a self-intersecting ring, got %v", err)
	}

	field := convexField(-47.9, -15.8, 100, 64)
	if _, err := Simulate(field, SimParams{Mode: "diagonal", TargetCount: 4}); !errors.Is(err, ErrDegenerateInput) {
		t.Fatalf("expected ErrDegenerateInput for an unknown mode, got %v", err)
	}
}

func TestSimulatePiecesSortedByCentroid(t *testing.T) {
	field := convexField(-47.9, -15.8, 500, 256)
	res, err := Simulate(field, SimParams{Mode: SplitGrid, TargetCount: 9})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	for i := 1; i < len(res.Pieces); i++ {
		prev := Centroid(res.Pieces[i-1].Geometry)
		cur := Centroid(res.Pieces[i].Geometry)
		if cur[1] < prev[1]-1e-12 {
			t.Fatalf("pieces not sorted by centroid latitude at %d", i)
		}
		if cur[1] == prev[1] && cur[0] < prev[0] {
			t.Fatalf("pieces not sorted by centroid longitude at %d", i)
		}
	}
}
