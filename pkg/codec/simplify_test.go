package codec

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

// ringDistance is the distance from p to the closest edge of ring
func ringDistance(p r2.Vec, ring Polygon) float64 {
	best := math.Inf(1)
	for i, a := range ring {
		best = math.Min(best, segmentDistance(p, a, ring[(i+1)%len(ring)]))
	}
	return best
}

// TestSimplifyTolerance verifies every dropped vertex stays within tolerance
func TestSimplifyTolerance(t *testing.T) {
	ring := circle(0, 0, 40, 400)
	for i := range ring {
		// small deterministic wobble
		ring[i].X += 0.3 * math.Sin(float64(i)*1.7)
	}

	for _, tol := range []float64{0.5, 1, 2} {
		s := Simplify(ring, tol)
		if len(s) >= len(ring) {
			t.Errorf("tolerance %.1f: expected fewer vertices than %d, got %d", tol, len(ring), len(s))
		}
		if len(s) < MinPoints {
			t.Errorf("tolerance %.1f: simplified ring has only %d vertices", tol, len(s))
		}
		for _, p := range ring {
			if d := ringDistance(p, s); d > tol+1e-9 {
				t.Errorf("tolerance %.1f: vertex %v is %.3f away from the simplified ring", tol, p, d)
				break
			}
		}
	}
}

func TestSimplifyKeepsSmallRings(t *testing.T) {
	tri := Polygon{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}
	if got := Simplify(tri, 5); len(got) != 3 {
		t.Errorf("Expected triangle to be kept, got %d vertices", len(got))
	}
	sq := square(0, 0, 1, 1)
	if got := Simplify(sq, 10); len(got) != 4 {
		t.Errorf("Expected ring to be kept rather than collapsed, got %d vertices", len(got))
	}
}

func TestDropCollinear(t *testing.T) {
	ring := Polygon{
		{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: 2},
		{X: 1, Y: 2}, {X: 2, Y: 2},
		{X: 2, Y: 1}, {X: 2, Y: 0},
		{X: 1, Y: 0},
	}
	got := dropCollinear(ring)
	if len(got) != 4 {
		t.Fatalf("Expected 4 corners, got %d: %v", len(got), got)
	}
	if Area(got) != Area(ring) {
		t.Errorf("Area changed from %f to %f", Area(ring), Area(got))
	}
}
