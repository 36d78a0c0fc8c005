package models

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is returned when two arrays that must share a shape do not
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrSliceIndex is returned for a slice index outside [0, Depth)
	ErrSliceIndex = errors.New("slice index out of range")
)

// Volume represents the 3D intensity volume built from a stack of slices.
// It is never modified after it has been loaded.
type Volume struct {
	// Data is the 3D volume data as a 1D array in row-major order
	// (index = z*Width*Height + y*Width + x)
	Data []float64

	// Width is the width of each slice in pixels
	Width int

	// Height is the height of each slice in pixels
	Height int

	// Depth is the number of slices
	Depth int
}

// NewVolume stacks the given slices into a volume. All slices must share the
// same width and height and at least one slice is required.
func NewVolume(slices []Slice) (*Volume, error) {
	if len(slices) == 0 {
		return nil, fmt.Errorf("volume needs at least one slice")
	}
	w, h := slices[0].Width, slices[0].Height
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("slice %q has empty extent %dx%d", slices[0].Filename, w, h)
	}

	v := &Volume{
		Data:   make([]float64, 0, w*h*len(slices)),
		Width:  w,
		Height: h,
		Depth:  len(slices),
	}
	for _, s := range slices {
		if s.Width != w || s.Height != h || len(s.Pixels) != w*h {
			return nil, fmt.Errorf("slice %q is %dx%d, expected %dx%d: %w",
				s.Filename, s.Width, s.Height, w, h, ErrShapeMismatch)
		}
		v.Data = append(v.Data, s.Pixels...)
	}
	return v, nil
}

// Shape returns (depth, height, width)
func (v *Volume) Shape() (int, int, int) {
	return v.Depth, v.Height, v.Width
}

// At returns the intensity at (z, y, x)
func (v *Volume) At(z, y, x int) float64 {
	return v.Data[z*v.Width*v.Height+y*v.Width+x]
}

// Slice returns a copy of slice z
func (v *Volume) Slice(z int) ([]float64, error) {
	if z < 0 || z >= v.Depth {
		return nil, fmt.Errorf("slice %d of %d: %w", z, v.Depth, ErrSliceIndex)
	}
	n := v.Width * v.Height
	out := make([]float64, n)
	copy(out, v.Data[z*n:(z+1)*n])
	return out, nil
}

// LabelVolume is the per-voxel class code array parallel to a Volume.
// 0 means unlabeled background.
type LabelVolume struct {
	Data   []int32
	Width  int
	Height int
	Depth  int
}

// NewLabelVolume allocates an all-background label volume
func NewLabelVolume(depth, height, width int) *LabelVolume {
	return &LabelVolume{
		Data:   make([]int32, depth*height*width),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
}

// NewLabelVolumeFor allocates an all-background label volume shaped like v
func NewLabelVolumeFor(v *Volume) *LabelVolume {
	return NewLabelVolume(v.Depth, v.Height, v.Width)
}

// Shape returns (depth, height, width)
func (l *LabelVolume) Shape() (int, int, int) {
	return l.Depth, l.Height, l.Width
}

// Matches reports whether the label volume has the same shape as v
func (l *LabelVolume) Matches(v *Volume) bool {
	return l.Depth == v.Depth && l.Height == v.Height && l.Width == v.Width
}

// At returns the class code at (z, y, x)
func (l *LabelVolume) At(z, y, x int) int32 {
	return l.Data[z*l.Width*l.Height+y*l.Width+x]
}

// SliceMask copies slice z out into a new mask
func (l *LabelVolume) SliceMask(z int) (*LabelMask, error) {
	if z < 0 || z >= l.Depth {
		return nil, fmt.Errorf("slice %d of %d: %w", z, l.Depth, ErrSliceIndex)
	}
	n := l.Width * l.Height
	m := NewLabelMask(l.Width, l.Height)
	copy(m.Data, l.Data[z*n:(z+1)*n])
	return m, nil
}

// SetSlice overwrites slice z with the contents of m
func (l *LabelVolume) SetSlice(z int, m *LabelMask) error {
	if z < 0 || z >= l.Depth {
		return fmt.Errorf("slice %d of %d: %w", z, l.Depth, ErrSliceIndex)
	}
	if m.Width != l.Width || m.Height != l.Height {
		return fmt.Errorf("mask %dx%d into volume slice %dx%d: %w",
			m.Width, m.Height, l.Width, l.Height, ErrShapeMismatch)
	}
	n := l.Width * l.Height
	copy(l.Data[z*n:(z+1)*n], m.Data)
	return nil
}

// Clone returns a deep copy
func (l *LabelVolume) Clone() *LabelVolume {
	c := *l
	c.Data = make([]int32, len(l.Data))
	copy(c.Data, l.Data)
	return &c
}

// Codes returns the distinct non-zero codes present, ascending
func (l *LabelVolume) Codes() []int32 {
	return distinctCodes(l.Data)
}

// Binary returns a 0/1 float volume of voxels equal to code, suitable for
// isosurface extraction
func (l *LabelVolume) Binary(code int32) []float64 {
	out := make([]float64, len(l.Data))
	for i, c := range l.Data {
		if c == code {
			out[i] = 1
		}
	}
	return out
}

// Count returns the number of voxels labeled with code
func (l *LabelVolume) Count(code int32) int {
	n := 0
	for _, c := range l.Data {
		if c == code {
			n++
		}
	}
	return n
}
