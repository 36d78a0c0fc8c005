package codec

import (
	"math"
	"sort"

	"slicelabeler/internal/models"
	"slicelabeler/pkg/registry"
)

// Encode rasterizes annotations into a new width×height mask. Annotations are
// painted in slice order, so where two overlap the later one wins. Entries
// with class Background or fewer than MinPoints outline vertices are skipped.
// The inputs are not modified.
func Encode(anns []Annotation, width, height int) *models.LabelMask {
	mask := models.NewLabelMask(width, height)
	for _, a := range anns {
		if a.Class == registry.Background || !a.Outline.Valid() {
			continue
		}
		Fill(mask, a.Rings(), int32(a.Class))
	}
	return mask
}

// Fill sets every pixel whose center lies inside the rings (even-odd rule
// across all rings) to code. Pixels outside the mask are clipped.
func Fill(mask *models.LabelMask, rings []Polygon, code int32) {
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, r := range rings {
		if len(r) < MinPoints {
			continue
		}
		b := r.Bounds()
		minY = math.Min(minY, b.Min.Y)
		maxY = math.Max(maxY, b.Max.Y)
	}
	if math.IsInf(minY, 1) {
		return
	}

	y0 := max(0, int(math.Ceil(minY)))
	y1 := min(mask.Height-1, int(math.Floor(maxY)))
	var xs []float64
	for y := y0; y <= y1; y++ {
		xs = crossings(xs[:0], rings, float64(y))
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			// centers x with xs[i] <= x < xs[i+1]
			x0 := max(0, int(math.Ceil(xs[i])))
			x1 := min(mask.Width-1, int(math.Ceil(xs[i+1]))-1)
			for x := x0; x <= x1; x++ {
				mask.Set(x, y, code)
			}
		}
	}
}

// crossings appends the x positions where the horizontal line at y crosses
// the ring edges. Edges are half-open in y so a vertex on the line is
// counted once.
func crossings(xs []float64, rings []Polygon, y float64) []float64 {
	for _, r := range rings {
		if len(r) < MinPoints {
			continue
		}
		for i, a := range r {
			b := r[(i+1)%len(r)]
			if a.Y == b.Y {
				continue
			}
			lo, hi := a, b
			if lo.Y > hi.Y {
				lo, hi = hi, lo
			}
			if y < lo.Y || y >= hi.Y {
				continue
			}
			xs = append(xs, lo.X+(y-lo.Y)*(hi.X-lo.X)/(hi.Y-lo.Y))
		}
	}
	return xs
}
