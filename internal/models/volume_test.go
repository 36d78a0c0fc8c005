package models

import (
	"errors"
	"testing"
)

func makeSlices(depth, width, height int) []Slice {
	slices := make([]Slice, depth)
	for z := range slices {
		px := make([]float64, width*height)
		for i := range px {
			px[i] = float64(z*1000 + i)
		}
		slices[z] = Slice{Pixels: px, Width: width, Height: height, Index: z}
	}
	return slices
}

// TestNewVolume verifies stacking and shape validation
func TestNewVolume(t *testing.T) {
	v, err := NewVolume(makeSlices(3, 4, 2))
	if err != nil {
		t.Fatalf("Failed to build volume: %v", err)
	}
	d, h, w := v.Shape()
	if d != 3 || h != 2 || w != 4 {
		t.Errorf("Expected shape (3,2,4), got (%d,%d,%d)", d, h, w)
	}
	if got := v.At(2, 1, 3); got != 2007 {
		t.Errorf("Expected intensity 2007 at (2,1,3), got %f", got)
	}

	if _, err := NewVolume(nil); err == nil {
		t.Error("Expected error for empty slice list")
	}

	bad := makeSlices(2, 4, 2)
	bad[1] = Slice{Pixels: make([]float64, 9), Width: 3, Height: 3, Filename: "b.png"}
	if _, err := NewVolume(bad); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
}

// TestLabelVolumeSlices verifies copy-in and copy-out of label slices
func TestLabelVolumeSlices(t *testing.T) {
	v, err := NewVolume(makeSlices(3, 5, 4))
	if err != nil {
		t.Fatalf("Failed to build volume: %v", err)
	}
	labels := NewLabelVolumeFor(v)
	if !labels.Matches(v) {
		t.Fatal("Label volume shape does not match volume")
	}

	m := NewLabelMask(5, 4)
	m.Set(2, 3, 4)
	m.Set(0, 0, 1)
	if err := labels.SetSlice(1, m); err != nil {
		t.Fatalf("SetSlice failed: %v", err)
	}
	if labels.At(1, 3, 2) != 4 || labels.At(1, 0, 0) != 1 {
		t.Error("SetSlice did not write the expected codes")
	}
	if labels.At(0, 3, 2) != 0 || labels.At(2, 3, 2) != 0 {
		t.Error("SetSlice leaked into neighbouring slices")
	}

	out, err := labels.SliceMask(1)
	if err != nil {
		t.Fatalf("SliceMask failed: %v", err)
	}
	if !out.Equal(m) {
		t.Error("SliceMask did not return the written mask")
	}
	out.Set(0, 0, 6)
	if labels.At(1, 0, 0) != 1 {
		t.Error("SliceMask must return a copy")
	}

	codes := labels.Codes()
	if len(codes) != 2 || codes[0] != 1 || codes[1] != 4 {
		t.Errorf("Expected codes [1 4], got %v", codes)
	}
	if labels.Count(4) != 1 {
		t.Errorf("Expected 1 voxel of code 4, got %d", labels.Count(4))
	}

	if err := labels.SetSlice(3, m); !errors.Is(err, ErrSliceIndex) {
		t.Errorf("Expected ErrSliceIndex, got %v", err)
	}
	if err := labels.SetSlice(0, NewLabelMask(4, 4)); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
	if _, err := labels.SliceMask(-1); !errors.Is(err, ErrSliceIndex) {
		t.Errorf("Expected ErrSliceIndex, got %v", err)
	}
}

func TestLabelVolumeBinaryAndClone(t *testing.T) {
	labels := NewLabelVolume(2, 2, 2)
	labels.Data[0] = 3
	labels.Data[7] = 3
	labels.Data[4] = 1

	bin := labels.Binary(3)
	sum := 0.0
	for _, b := range bin {
		sum += b
	}
	if sum != 2 || bin[0] != 1 || bin[7] != 1 {
		t.Errorf("Unexpected binary volume %v", bin)
	}

	c := labels.Clone()
	c.Data[0] = 0
	if labels.Data[0] != 3 {
		t.Error("Clone shares storage with the original")
	}
}

func TestLabelMaskAtOutside(t *testing.T) {
	m := NewLabelMask(3, 3)
	m.Set(1, 1, 2)
	if m.At(-1, 0) != 0 || m.At(3, 1) != 0 || m.At(1, 3) != 0 {
		t.Error("Reads outside the mask must return background")
	}
	if m.At(1, 1) != 2 {
		t.Errorf("Expected 2 at (1,1), got %d", m.At(1, 1))
	}
}
