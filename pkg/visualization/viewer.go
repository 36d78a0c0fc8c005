// Package visualization renders slices of the intensity volume, alone or
// with the label volume composited on top in class colors.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"

	"slicelabeler/internal/models"
	"slicelabeler/pkg/registry"
)

// OverlayAlpha is the opacity of class colors over the grayscale slice
const OverlayAlpha = 0.5

// Viewer extracts displayable images from a volume and its labels
type Viewer struct {
	volume *models.Volume
	labels *models.LabelVolume
	reg    *registry.Registry

	// intensity window mapped to black..white
	lo, hi float64
}

// NewViewer creates a viewer. labels may be nil for intensity-only use; when
// set it must match the volume's shape.
func NewViewer(volume *models.Volume, labels *models.LabelVolume, reg *registry.Registry) (*Viewer, error) {
	if labels != nil && !labels.Matches(volume) {
		return nil, fmt.Errorf("labels do not match volume: %w", models.ErrShapeMismatch)
	}
	if reg == nil {
		reg = registry.Default()
	}
	v := &Viewer{volume: volume, labels: labels, reg: reg, lo: 0, hi: 1}
	if len(volume.Data) > 0 {
		v.lo, v.hi = floats.Min(volume.Data), floats.Max(volume.Data)
	}
	return v, nil
}

// SetLabels replaces the label volume composited by Overlay
func (v *Viewer) SetLabels(labels *models.LabelVolume) error {
	if labels != nil && !labels.Matches(v.volume) {
		return fmt.Errorf("labels do not match volume: %w", models.ErrShapeMismatch)
	}
	v.labels = labels
	return nil
}

// Intensity returns the windowed intensity of (z, y, x) in [0, 1]
func (v *Viewer) Intensity(z, y, x int) float64 {
	if v.hi <= v.lo {
		return 0
	}
	return math.Max(0, math.Min(1, (v.volume.At(z, y, x)-v.lo)/(v.hi-v.lo)))
}

func (v *Viewer) gray(z, y, x int) uint8 {
	return uint8(math.Round(v.Intensity(z, y, x) * 255))
}

// ExtractSlice extracts a 2D grayscale slice along the given axis
func (v *Viewer) ExtractSlice(axis string, position int) (*image.Gray, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	w, h, d := v.volume.Width, v.volume.Height, v.volume.Depth

	switch axis {
	case "x", "X":
		// YZ plane
		if position >= w {
			return nil, fmt.Errorf("position %d exceeds width %d", position, w)
		}
		img := image.NewGray(image.Rect(0, 0, d, h))
		for y := 0; y < h; y++ {
			for z := 0; z < d; z++ {
				img.SetGray(z, y, color.Gray{Y: v.gray(z, y, position)})
			}
		}
		return img, nil

	case "y", "Y":
		// XZ plane
		if position >= h {
			return nil, fmt.Errorf("position %d exceeds height %d", position, h)
		}
		img := image.NewGray(image.Rect(0, 0, w, d))
		for z := 0; z < d; z++ {
			for x := 0; x < w; x++ {
				img.SetGray(x, z, color.Gray{Y: v.gray(z, position, x)})
			}
		}
		return img, nil

	case "z", "Z":
		// XY plane
		if position >= d {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, d)
		}
		img := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetGray(x, y, color.Gray{Y: v.gray(position, y, x)})
			}
		}
		return img, nil
	}
	return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
}

// Overlay composites slice z with the class colors of its labels. Codes the
// registry does not know use the unknown fallback color.
func (v *Viewer) Overlay(z int) (*image.RGBA, error) {
	base, err := v.ExtractSlice("z", z)
	if err != nil {
		return nil, err
	}
	b := base.Bounds()
	img := image.NewRGBA(b)

	colors := make(map[int32]color.RGBA)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := base.GrayAt(x, y).Y
			px := color.RGBA{R: g, G: g, B: g, A: 255}
			if v.labels != nil {
				if code := v.labels.At(z, y, x); code != 0 {
					c, ok := colors[code]
					if !ok {
						c = registry.RGBA(v.reg.Resolve(registry.Code(code)).DisplayColor())
						colors[code] = c
					}
					px = Blend(px, c, OverlayAlpha)
				}
			}
			img.SetRGBA(x, y, px)
		}
	}
	return img, nil
}

// Blend mixes fg over bg with the given opacity
func Blend(bg, fg color.RGBA, alpha float64) color.RGBA {
	mix := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a)*(1-alpha) + float64(b)*alpha))
	}
	return color.RGBA{R: mix(bg.R, fg.R), G: mix(bg.G, fg.G), B: mix(bg.B, fg.B), A: 255}
}

// SaveSlice saves an image as PNG
func SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// SaveOverlaySequence writes one overlay PNG per slice that carries at least
// one label, returning the number of files written
func (v *Viewer) SaveOverlaySequence(outputDir string) (int, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, err
	}
	if v.labels == nil {
		return 0, nil
	}

	n := 0
	for z := 0; z < v.volume.Depth; z++ {
		mask, err := v.labels.SliceMask(z)
		if err != nil {
			return n, err
		}
		if len(mask.Codes()) == 0 {
			continue
		}
		img, err := v.Overlay(z)
		if err != nil {
			return n, err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("overlay_%03d.png", z))
		if err := SaveSlice(img, filename); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
