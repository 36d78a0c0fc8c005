package codec

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Simplify reduces a closed ring with the Douglas-Peucker algorithm so that
// no dropped vertex is farther than tolerance from the result. The ring is
// split at its first vertex and the vertex farthest from it, and each half
// is simplified on its own. Rings that would collapse below MinPoints are
// returned unchanged.
func Simplify(ring Polygon, tolerance float64) Polygon {
	n := len(ring)
	if n <= MinPoints || tolerance <= 0 {
		return ring.Clone()
	}

	far, best := 0, -1.0
	for i, v := range ring {
		if d := r2.Norm2(r2.Sub(v, ring[0])); d > best {
			far, best = i, d
		}
	}
	if far == 0 {
		return ring.Clone()
	}

	keep := make([]bool, n)
	keep[0], keep[far] = true, true
	closed := append(ring.Clone(), ring[0])
	douglasPeucker(closed, 0, far, tolerance, keep)
	douglasPeucker(closed, far, n, tolerance, keep)

	out := make(Polygon, 0, n)
	for i, k := range keep {
		if k {
			out = append(out, ring[i])
		}
	}
	if len(out) < MinPoints {
		return ring.Clone()
	}
	return out
}

func douglasPeucker(pts Polygon, first, last int, tolerance float64, keep []bool) {
	if last-first < 2 {
		return
	}
	idx, dmax := -1, tolerance
	for i := first + 1; i < last; i++ {
		if d := segmentDistance(pts[i], pts[first], pts[last]); d > dmax {
			idx, dmax = i, d
		}
	}
	if idx < 0 {
		return
	}
	keep[idx] = true
	douglasPeucker(pts, first, idx, tolerance, keep)
	douglasPeucker(pts, idx, last, tolerance, keep)
}

// segmentDistance is the distance from p to the segment ab
func segmentDistance(p, a, b r2.Vec) float64 {
	ab := r2.Sub(b, a)
	l2 := r2.Norm2(ab)
	if l2 == 0 {
		return r2.Norm(r2.Sub(p, a))
	}
	t := math.Max(0, math.Min(1, r2.Dot(r2.Sub(p, a), ab)/l2))
	return r2.Norm(r2.Sub(p, r2.Add(a, r2.Scale(t, ab))))
}

// dropCollinear removes vertices lying on the straight line between their
// neighbours. The covered area is unchanged.
func dropCollinear(ring Polygon) Polygon {
	n := len(ring)
	if n <= MinPoints {
		return ring
	}
	out := make(Polygon, 0, n)
	for i, v := range ring {
		prev := ring[(i+n-1)%n]
		next := ring[(i+1)%n]
		if r2.Cross(r2.Sub(v, prev), r2.Sub(next, v)) != 0 {
			out = append(out, v)
		}
	}
	if len(out) < MinPoints {
		return ring
	}
	return out
}
