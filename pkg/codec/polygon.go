// Package codec converts between the sparse polygon view of one slice's
// annotations and the dense label mask stored in the label volume.
//
// Coordinates are slice pixel coordinates with X as the column and Y as the
// row. Pixel (x, y) is covered by a polygon when its center (x, y) lies
// inside it under the even-odd rule, using half-open edges so that pixels on
// a shared boundary belong to exactly one side.
package codec

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"slicelabeler/pkg/registry"
)

// MinPoints is the smallest number of vertices a polygon may have
const MinPoints = 3

// Polygon is an implicitly closed ring of vertices
type Polygon []r2.Vec

// Annotation is one labeled region of a slice. Holes are rings cut out of
// the outline; they are empty for hand-drawn polygons.
type Annotation struct {
	Outline Polygon
	Holes   []Polygon
	Class   registry.Code
}

// Rings returns the outline followed by its holes
func (a Annotation) Rings() []Polygon {
	rings := make([]Polygon, 0, 1+len(a.Holes))
	rings = append(rings, a.Outline)
	return append(rings, a.Holes...)
}

// Clone returns a deep copy
func (a Annotation) Clone() Annotation {
	c := Annotation{Outline: a.Outline.Clone(), Class: a.Class}
	if len(a.Holes) > 0 {
		c.Holes = make([]Polygon, len(a.Holes))
		for i, h := range a.Holes {
			c.Holes[i] = h.Clone()
		}
	}
	return c
}

// Area is the outline area minus the hole areas
func (a Annotation) Area() float64 {
	area := Area(a.Outline)
	for _, h := range a.Holes {
		area -= Area(h)
	}
	return area
}

// Clone returns a copy of p
func (p Polygon) Clone() Polygon {
	if p == nil {
		return nil
	}
	c := make(Polygon, len(p))
	copy(c, p)
	return c
}

// Valid reports whether p has enough vertices to be stored
func (p Polygon) Valid() bool {
	return len(p) >= MinPoints
}

// Bounds returns the axis-aligned bounding box of p
func (p Polygon) Bounds() r2.Box {
	b := r2.Box{
		Min: r2.Vec{X: math.Inf(1), Y: math.Inf(1)},
		Max: r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)},
	}
	for _, v := range p {
		b.Min.X = math.Min(b.Min.X, v.X)
		b.Min.Y = math.Min(b.Min.Y, v.Y)
		b.Max.X = math.Max(b.Max.X, v.X)
		b.Max.Y = math.Max(b.Max.Y, v.Y)
	}
	return b
}

// Centroid returns the mean vertex, used to place class labels
func (p Polygon) Centroid() r2.Vec {
	var c r2.Vec
	if len(p) == 0 {
		return c
	}
	for _, v := range p {
		c = r2.Add(c, v)
	}
	return r2.Scale(1/float64(len(p)), c)
}

// SignedArea is the shoelace area in pixel coordinates. Traced outlines are
// positive and traced holes negative.
func SignedArea(p Polygon) float64 {
	if len(p) < MinPoints {
		return 0
	}
	var sum float64
	for i, a := range p {
		b := p[(i+1)%len(p)]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum / 2
}

// Area is the absolute shoelace area
func Area(p Polygon) float64 {
	return math.Abs(SignedArea(p))
}

// Perimeter is the length of the closed ring
func Perimeter(p Polygon) float64 {
	var l float64
	for i, a := range p {
		l += r2.Norm(r2.Sub(p[(i+1)%len(p)], a))
	}
	return l
}

// Contains reports whether pt lies inside p under the even-odd rule with the
// same half-open edge convention Encode uses.
func Contains(p Polygon, pt r2.Vec) bool {
	in := false
	for i, a := range p {
		b := p[(i+1)%len(p)]
		if a.Y == b.Y {
			continue
		}
		lo, hi := a, b
		if lo.Y > hi.Y {
			lo, hi = hi, lo
		}
		if pt.Y < lo.Y || pt.Y >= hi.Y {
			continue
		}
		x := lo.X + (pt.Y-lo.Y)*(hi.X-lo.X)/(hi.Y-lo.Y)
		if x <= pt.X {
			in = !in
		}
	}
	return in
}
