package loader

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

// createTestImage creates a grayscale test image with the specified dimensions and pattern
func createTestImage(width, height int, pattern func(x, y int) uint16) image.Image {
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.Gray16{Y: pattern(x, y)})
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode %s: %v", path, err)
	}
}

func writeJPEG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("Failed to encode %s: %v", path, err)
	}
}

// TestLoadOrdersByNumber verifies numeric ordering of slice files
func TestLoadOrdersByNumber(t *testing.T) {
	dir := t.TempDir()
	// slice_10 must come after slice_2 even though it sorts first as text
	for _, n := range []int{10, 2, 1} {
		value := uint16(n * 1000)
		writePNG(t, filepath.Join(dir, fmt.Sprintf("slice_%d.png", n)),
			createTestImage(8, 6, func(x, y int) uint16 { return value }))
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}

	src := &Source{Dir: dir}
	slices, err := src.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(slices) != 3 {
		t.Fatalf("Expected 3 slices, got %d", len(slices))
	}
	want := []string{"slice_1.png", "slice_2.png", "slice_10.png"}
	for i, s := range slices {
		if s.Filename != want[i] || s.Index != i {
			t.Errorf("Slice %d: expected %s, got %s (index %d)", i, want[i], s.Filename, s.Index)
		}
		if s.Width != 8 || s.Height != 6 || len(s.Pixels) != 48 {
			t.Errorf("Slice %d has unexpected shape %dx%d", i, s.Width, s.Height)
		}
	}
	if got := slices[2].Pixels[0]; got < 0.15 || got > 0.16 {
		t.Errorf("Expected intensity near 10000/65535, got %f", got)
	}

	vol, err := src.LoadVolume()
	if err != nil {
		t.Fatalf("LoadVolume failed: %v", err)
	}
	if d, h, w := vol.Shape(); d != 3 || h != 6 || w != 8 {
		t.Errorf("Unexpected volume shape (%d,%d,%d)", d, h, w)
	}
}

func TestLoadEmptyDirectory(t *testing.T) {
	src := &Source{Dir: t.TempDir()}
	if _, err := src.Load(); !errors.Is(err, ErrNoSlices) {
		t.Errorf("Expected ErrNoSlices, got %v", err)
	}
	if _, err := (&Source{Dir: filepath.Join(t.TempDir(), "missing")}).Load(); err == nil {
		t.Error("Expected an error for a missing directory")
	}
}

func TestLoadShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	flat := func(x, y int) uint16 { return 0 }
	writePNG(t, filepath.Join(dir, "a1.png"), createTestImage(8, 8, flat))
	writeJPEG(t, filepath.Join(dir, "a2.jpg"), createTestImage(8, 9, flat))

	if _, err := (&Source{Dir: dir}).Load(); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
}

func TestExtensionsFilter(t *testing.T) {
	dir := t.TempDir()
	flat := func(x, y int) uint16 { return 30000 }
	writePNG(t, filepath.Join(dir, "s1.png"), createTestImage(4, 4, flat))
	writeJPEG(t, filepath.Join(dir, "s2.JPG"), createTestImage(4, 4, flat))

	names, err := (&Source{Dir: dir, Extensions: []string{".jpg"}}).Files()
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(names) != 1 || names[0] != "s2.JPG" {
		t.Errorf("Expected only s2.JPG, got %v", names)
	}
}

func TestLoadImageUnsupported(t *testing.T) {
	if _, err := LoadImage("scan.tiff"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
}

func TestExtractNumber(t *testing.T) {
	tests := []struct {
		name string
		want int
		ok   bool
	}{
		{"IM-0001-0012.dcm", 10012, true},
		{"slice_7.png", 7, true},
		{"scan.jpg", 0, false},
	}
	for _, tt := range tests {
		got, ok := extractNumber(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("extractNumber(%q) = %d,%v; want %d,%v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestStackOrderMixedNames(t *testing.T) {
	want := []string{"c1.png", "a2.png", "slice_10.png", "b.png", "z.png"}
	inputs := [][]string{
		{"c1.png", "b.png", "a2.png", "z.png", "slice_10.png"},
		{"b.png", "a2.png", "c1.png", "slice_10.png", "z.png"},
		{"z.png", "slice_10.png", "b.png", "c1.png", "a2.png"},
	}
	for _, names := range inputs {
		got := append([]string(nil), names...)
		sort.SliceStable(got, func(i, j int) bool { return stackLess(got[i], got[j]) })
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Order of %v = %v; want %v", names, got, want)
		}
	}
}

func TestImageToFloatOffsetBounds(t *testing.T) {
	img := image.NewGray16(image.Rect(5, 5, 7, 7))
	img.Set(6, 6, color.Gray16{Y: 65535})
	px := ImageToFloat(img)
	if len(px) != 4 || px[3] != 1 || px[0] != 0 {
		t.Errorf("Unexpected pixels %v", px)
	}
}
