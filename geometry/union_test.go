package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestUnionSingleIsNoop(t *testing.T) {
	mp := orb.MultiPolygon{squareAt(-47.9, -15.8, 1000)}
	out, err := Union([]orb.MultiPolygon{mp})
	if err != nil {
		t.Fatalf("union: %v", err)
	}
	if len(out) != 1 || len(out[0][0]) != len(mp[0][0]) {
		t.Fatalf("single-input union changed the geometry: %v", out)
	}
	if math.Abs(AreaHa(out)-AreaHa(mp)) > 1e-9 {
		t.Fatal("single-input union changed the area")
	}
}

func TestUnionDisjointKeepsBothParts(t *testing.T) {
	a := orb.MultiPolygon{squareAt(-47.9, -15.8, 1000)}
	b := orb.MultiPolygon{squareAt(-47.8, -15.8, 1000)} // ~10km away
	out, err := Union([]orb.MultiPolygon{a, b})
	if err != nil {
		t.Fatalf("disjoint union must not fail: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected a 2-part MultiPolygon, got %d parts", len(out))
	}
	want := AreaHa(a) + AreaHa(b)
	if got := AreaHa(out); math.Abs(got-want) > want*0.001 {
		t.Errorf("disjoint union area %.4f, want %.4f", got, want)
	}
}

func TestUnionOverlappingDropsSharedArea(t *testing.T) {
	a := orb.MultiPolygon{squareAt(-47.9, -15.8, 1000)}
	b := orb.MultiPolygon{squareAt(-47.8955, -15.8, 1000)} // ~500m shift, 50% overlap
	out, err := Union([]orb.MultiPolygon{a, b})
	if err != nil {
		t.Fatalf("union: %v", err)
	}
	got := AreaHa(out)
	sum := AreaHa(a) + AreaHa(b)
	if got >= sum {
		t.Errorf("overlapping union area %.4f not below naive sum %.4f", got, sum)
	}
	if got <= AreaHa(a) {
		t.Errorf("union area %.4f not above a single input", got)
	}
}

func TestUnionCommutative(t *testing.T) {
	a := orb.MultiPolygon{squareAt(-47.9, -15.8, 1000)}
	b := orb.MultiPolygon{squareAt(-47.8955, -15.8, 1000)}

	ab, err := Union([]orb.MultiPolygon{a, b})
	if err != nil {
		t.Fatalf("union ab: %v", err)
	}
	ba, err := Union([]orb.MultiPolygon{b, a})
	if err != nil {
		t.Fatalf("union ba: %v", err)
	}
	if len(ab) != len(ba) {
		t.Fatalf("part count differs: %d vs %d", len(ab), len(ba))
	}
	if math.Abs(AreaHa(ab)-AreaHa(ba)) > 1e-9 {
		t.Errorf("area differs by order: %.9f vs %.9f", AreaHa(ab), AreaHa(ba))
	}
	ca, cb := Centroid(ab), Centroid(ba)
	if math.Abs(ca[0]-cb[0]) > 1e-9 || math.Abs(ca[1]-cb[1]) > 1e-9 {
		t.Errorf("centroid differs by order: %v vs %v", ca, cb)
	}
}

func TestUnionRejectsInvalidInput(t *testing.T) {
	// Bowtie: self-intersecting ring.
	bowtie := orb.MultiPolygon{{{{0, 0}, {1, 1}, {1, 0}, {0, 1}, {0, 0}}}}
	ok := orb.MultiPolygon{squareAt(-47.9, -15.8, 1000)}
	if _, err := Union([]orb.MultiPolygon{ok, bowtie}); !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("expected ErrInvalidGeometry, got %v", err)
	}
}

func TestUnionEmptyInput(t *testing.T) {
	if _, err := Union(nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}
