package visualization

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"slicelabeler/internal/models"
	"slicelabeler/pkg/registry"
)

// gradientVolume has intensity z/depth on every pixel of slice z, plus one
// bright pixel so the window spans [0, 1]
func gradientVolume(width, height, depth int) *models.Volume {
	slices := make([]models.Slice, depth)
	for z := range slices {
		px := make([]float64, width*height)
		for i := range px {
			px[i] = float64(z) / float64(depth)
		}
		slices[z] = models.Slice{Pixels: px, Width: width, Height: height, Index: z}
	}
	v, _ := models.NewVolume(slices)
	v.Data[len(v.Data)-1] = 1
	return v
}

func TestNewViewerShapeCheck(t *testing.T) {
	v := gradientVolume(4, 4, 2)
	if _, err := NewViewer(v, models.NewLabelVolume(3, 4, 4), nil); err == nil {
		t.Error("Expected shape mismatch error")
	}
	viewer, err := NewViewer(v, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := viewer.SetLabels(models.NewLabelVolume(2, 5, 4)); err == nil {
		t.Error("Expected SetLabels to reject a mismatched volume")
	}
}

// TestExtractSlice verifies slices along each axis and the intensity window
func TestExtractSlice(t *testing.T) {
	width, height, depth := 10, 8, 5
	viewer, err := NewViewer(gradientVolume(width, height, depth), nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	for z := 0; z < depth; z++ {
		img, err := viewer.ExtractSlice("z", z)
		if err != nil {
			t.Fatalf("Failed to extract Z slice at position %d: %v", z, err)
		}
		if b := img.Bounds(); b.Dx() != width || b.Dy() != height {
			t.Errorf("Expected %dx%d, got %dx%d", width, height, b.Dx(), b.Dy())
		}
		want := int(float64(z) / float64(depth) * 255)
		if got := int(img.GrayAt(0, 0).Y); got < want-1 || got > want+1 {
			t.Errorf("Slice %d: expected gray %d, got %d", z, want, got)
		}
	}

	img, err := viewer.ExtractSlice("x", 3)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != depth || b.Dy() != height {
		t.Errorf("Expected X slice %dx%d, got %dx%d", depth, height, b.Dx(), b.Dy())
	}
	img, err = viewer.ExtractSlice("y", 2)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != width || b.Dy() != depth {
		t.Errorf("Expected Y slice %dx%d, got %dx%d", width, depth, b.Dx(), b.Dy())
	}

	if _, err := viewer.ExtractSlice("z", depth); err == nil {
		t.Error("Expected error for out of range position")
	}
	if _, err := viewer.ExtractSlice("w", 0); err == nil {
		t.Error("Expected error for invalid axis")
	}
	if _, err := viewer.ExtractSlice("z", -1); err == nil {
		t.Error("Expected error for negative position")
	}
}

func TestOverlay(t *testing.T) {
	v := gradientVolume(6, 6, 2)
	labels := models.NewLabelVolumeFor(v)
	labels.Data[0*36+1*6+1] = int32(registry.Femur)
	labels.Data[0*36+2*6+2] = 42

	viewer, err := NewViewer(v, labels, registry.Default())
	if err != nil {
		t.Fatal(err)
	}
	img, err := viewer.Overlay(0)
	if err != nil {
		t.Fatal(err)
	}

	// slice 0 is black, so red at half opacity
	if got := img.RGBAAt(1, 1); got != (color.RGBA{R: 128, A: 255}) {
		t.Errorf("Expected half red, got %v", got)
	}
	// unknown codes fall back to white
	if got := img.RGBAAt(2, 2); got != (color.RGBA{R: 128, G: 128, B: 128, A: 255}) {
		t.Errorf("Expected half white, got %v", got)
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{A: 255}) {
		t.Errorf("Expected unlabeled black, got %v", got)
	}
}

func TestBlend(t *testing.T) {
	got := Blend(color.RGBA{R: 200, G: 100, A: 255}, color.RGBA{B: 100, A: 255}, 0.25)
	if got != (color.RGBA{R: 150, G: 75, B: 25, A: 255}) {
		t.Errorf("Unexpected blend %v", got)
	}
}

func TestSaveOverlaySequence(t *testing.T) {
	v := gradientVolume(5, 5, 3)
	labels := models.NewLabelVolumeFor(v)
	labels.Data[1*25+12] = int32(registry.Tibia)

	viewer, err := NewViewer(v, labels, nil)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(t.TempDir(), "overlays")
	n, err := viewer.SaveOverlaySequence(dir)
	if err != nil {
		t.Fatalf("Failed to save overlays: %v", err)
	}
	if n != 1 {
		t.Fatalf("Expected 1 labeled slice, wrote %d", n)
	}

	f, err := os.Open(filepath.Join(dir, "overlay_001.png"))
	if err != nil {
		t.Fatalf("Overlay not written: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Failed to decode overlay: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 5 || b.Dy() != 5 {
		t.Errorf("Unexpected overlay size %v", b)
	}
}
