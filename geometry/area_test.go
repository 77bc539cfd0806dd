package geometry

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

// squareAt builds a closed square of the given side (meters) centered on
// lon/lat, expressed in degrees.
func squareAt(lon, lat, sideM float64) orb.Polygon {
	dLat := sideM / 2 / metersPerDegree
	dLon := sideM / 2 / (metersPerDegree * math.Cos(lat*math.Pi/180))
	return orb.Polygon{{
		{lon - dLon, lat - dLat},
		{lon + dLon, lat - dLat},
		{lon + dLon, lat + dLat},
		{lon - dLon, lat + dLat},
		{lon - dLon, lat - dLat},
	}}
}

func TestAreaHaSquare(t *testing.T) {
	// 1000m x 1000m = 100 ha, at a mid-southern latitude.
	got := AreaHa(squareAt(-47.9, -15.8, 1000))
	if math.Abs(got-100) > 0.2 {
		t.Fatalf("expected ~100 ha, got %.4f", got)
	}
}

func TestAreaHaSubtractsHoles(t *testing.T) {
	outer := squareAt(-47.9, -15.8, 1000)
	hole := squareAt(-47.9, -15.8, 500)
	withHole := orb.Polygon{outer[0], hole[0]}
	got := AreaHa(withHole)
	if math.Abs(got-75) > 0.2 {
		t.Fatalf("expected ~75 ha after hole subtraction, got %.4f", got)
	}
}

func TestAreaMonotonicUnderScaling(t *testing.T) {
	poly := squareAt(-47.9, -15.8, 800)
	base := AreaHa(poly)

	centroid := Centroid(poly)
	for _, k := range []float64{1.01, 1.1, 1.5, 2} {
		scaled := make(orb.Polygon, len(poly))
		for i, ring := range poly {
			out := make(orb.Ring, len(ring))
			for j, pt := range ring {
				out[j] = orb.Point{
					centroid[0] + (pt[0]-centroid[0])*k,
					centroid[1] + (pt[1]-centroid[1])*k,
				}
			}
			scaled[i] = out
		}
		if got := AreaHa(scaled); got <= base {
			t.Errorf("scaling by %.2f did not grow area: %.4f <= %.4f", k, got, base)
		}
	}
}

func TestClassifyArea(t *testing.T) {
	if ClassifyArea(999, 1000) != AreaOk {
		t.Error("999 ha under a 1000 ha limit must be ok")
	}
	if ClassifyArea(1001, 1000) != AreaOverLimit {
		t.Error("1001 ha over a 1000 ha limit must be flagged")
	}
	if ClassifyArea(5000, 0) != AreaOk {
		t.Error("zero max means no limit")
	}
}

func TestProjectionRoundTrip(t *testing.T) {
	origin := orb.Point{-47.9, -15.8}
	pt := orb.Point{-47.895, -15.7952}
	back := unprojectPoint(projectPoint(pt, origin), origin)
	if math.Abs(back[0]-pt[0]) > 1e-9 || math.Abs(back[1]-pt[1]) > 1e-9 {
		t.Fatalf("projection round trip drifted: %v vs %v", back, pt)
	}
}
