package codec

import (
	"gonum.org/v1/gonum/spatial/r2"

	"slicelabeler/internal/models"
	"slicelabeler/pkg/registry"
)

// Options controls the lossy part of Decode
type Options struct {
	// SimplifyThreshold is the traced vertex count above which an outline
	// is simplified
	SimplifyThreshold int

	// SimplifyTolerance is the maximum distance in pixels a simplified
	// ring may deviate from the traced one
	SimplifyTolerance float64
}

// DefaultOptions simplifies rings longer than 100 vertices at 1 pixel
func DefaultOptions() Options {
	return Options{SimplifyThreshold: 100, SimplifyTolerance: 1}
}

// Decode traces the mask back into annotations, ordered by ascending class
// code and then by where each region is first met in row-major order.
//
// Each class is traced as the 0.5 isocontour of its binary mask. Regions are
// 4-connected, so pixels touching only at a corner give separate outlines.
// Unlabeled pockets inside a region come back as holes of that region's
// annotation, and re-encoding leaves them unlabeled.
//
// Rings with more than opts.SimplifyThreshold traced vertices are simplified
// and may not re-encode to exactly the same pixels. Shorter rings only lose
// collinear vertices and re-encode exactly. Holes are simplified on their
// own, so a long hole may cross its simplified outline by up to
// opts.SimplifyTolerance.
func Decode(mask *models.LabelMask, opts Options) []Annotation {
	var out []Annotation
	for _, code := range mask.Codes() {
		out = append(out, decodeClass(mask, code, opts)...)
	}
	return out
}

func decodeClass(mask *models.LabelMask, code int32, opts Options) []Annotation {
	rings := traceContours(mask, code)

	var outers, holes []int
	for i, r := range rings {
		if SignedArea(r) > 0 {
			outers = append(outers, i)
		} else {
			holes = append(holes, i)
		}
	}

	anns := make([]Annotation, len(outers))
	slot := make(map[int]int, len(outers))
	for i, o := range outers {
		anns[i] = Annotation{Outline: reduce(rings[o], opts), Class: registry.Code(code)}
		slot[o] = i
	}
	for _, h := range holes {
		// Parent is the smallest outline around the hole. Contours never
		// cross, so testing one vertex is enough.
		parent, best := -1, 0.0
		for _, o := range outers {
			if !Contains(rings[o], rings[h][0]) {
				continue
			}
			if a := Area(rings[o]); parent < 0 || a < best {
				parent, best = o, a
			}
		}
		if parent < 0 {
			continue
		}
		a := &anns[slot[parent]]
		a.Holes = append(a.Holes, reduce(rings[h], opts))
	}
	return anns
}

func reduce(ring Polygon, opts Options) Polygon {
	if opts.SimplifyThreshold > 0 && len(ring) > opts.SimplifyThreshold {
		return Simplify(ring, opts.SimplifyTolerance)
	}
	return dropCollinear(ring)
}

// Marching squares corner bits
const (
	cornerTL = 8
	cornerTR = 4
	cornerBR = 2
	cornerBL = 1
)

// Cell edge midpoints
const (
	edgeTop = iota
	edgeRight
	edgeBottom
	edgeLeft
)

// segments lists the directed edge pairs for each corner case. Directions
// keep the region on the same side so outlines wind positive and holes
// negative. Saddles (5, 10) separate the two foreground corners.
var segments = [16][][2]int{
	0:  nil,
	1:  {{edgeLeft, edgeBottom}},
	2:  {{edgeBottom, edgeRight}},
	3:  {{edgeLeft, edgeRight}},
	4:  {{edgeRight, edgeTop}},
	5:  {{edgeLeft, edgeBottom}, {edgeRight, edgeTop}},
	6:  {{edgeBottom, edgeTop}},
	7:  {{edgeLeft, edgeTop}},
	8:  {{edgeTop, edgeLeft}},
	9:  {{edgeTop, edgeBottom}},
	10: {{edgeTop, edgeLeft}, {edgeBottom, edgeRight}},
	11: {{edgeTop, edgeRight}},
	12: {{edgeRight, edgeLeft}},
	13: {{edgeRight, edgeBottom}},
	14: {{edgeBottom, edgeLeft}},
	15: nil,
}

// vertexKey identifies an edge midpoint by its doubled coordinates
type vertexKey struct{ x2, y2 int }

func midpoint(cx, cy, edge int) vertexKey {
	switch edge {
	case edgeTop:
		return vertexKey{2*cx + 1, 2 * cy}
	case edgeRight:
		return vertexKey{2*cx + 2, 2*cy + 1}
	case edgeBottom:
		return vertexKey{2*cx + 1, 2*cy + 2}
	default:
		return vertexKey{2 * cx, 2*cy + 1}
	}
}

// traceContours returns the closed 0.5 isocontours of mask == code. The mask
// is treated as surrounded by background so every contour closes.
func traceContours(mask *models.LabelMask, code int32) []Polygon {
	in := func(x, y int) bool { return mask.At(x, y) == code }

	next := make(map[vertexKey]vertexKey)
	var starts []vertexKey
	for cy := -1; cy < mask.Height; cy++ {
		for cx := -1; cx < mask.Width; cx++ {
			c := 0
			if in(cx, cy) {
				c |= cornerTL
			}
			if in(cx+1, cy) {
				c |= cornerTR
			}
			if in(cx+1, cy+1) {
				c |= cornerBR
			}
			if in(cx, cy+1) {
				c |= cornerBL
			}
			for _, s := range segments[c] {
				from := midpoint(cx, cy, s[0])
				next[from] = midpoint(cx, cy, s[1])
				starts = append(starts, from)
			}
		}
	}

	var rings []Polygon
	seen := make(map[vertexKey]bool, len(next))
	for _, start := range starts {
		if seen[start] {
			continue
		}
		var ring Polygon
		for k := start; !seen[k]; k = next[k] {
			seen[k] = true
			ring = append(ring, r2.Vec{X: float64(k.x2) / 2, Y: float64(k.y2) / 2})
		}
		rings = append(rings, ring)
	}
	return rings
}
