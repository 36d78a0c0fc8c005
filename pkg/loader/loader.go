// Package loader reads a directory of 2D slice images into a volume.
// Slices may be DICOM (.dcm), JPEG or PNG files.
package loader

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
	"go.uber.org/zap"

	"slicelabeler/internal/logging"
	"slicelabeler/internal/models"
)

var (
	// ErrNoSlices is returned when the directory holds no usable slice files
	ErrNoSlices = errors.New("no slices found")

	// ErrShapeMismatch is returned when slices differ in width or height
	ErrShapeMismatch = models.ErrShapeMismatch

	// ErrUnsupported is returned for a file extension the loader cannot decode
	ErrUnsupported = errors.New("unsupported slice format")
)

// DefaultExtensions are the slice formats read when none are configured
var DefaultExtensions = []string{".dcm", ".jpg", ".jpeg", ".png"}

// Source is a directory of slice files
type Source struct {
	// Dir is the directory containing the slices
	Dir string

	// Extensions limits which files are read; empty means DefaultExtensions
	Extensions []string
}

// Files returns the slice file names in stacking order: by the number
// embedded in the name, then by name. Unnumbered files go last.
func (s *Source) Files() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}

	exts := s.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		allowed[strings.ToLower(e)] = true
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if allowed[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}

	sort.SliceStable(names, func(i, j int) bool {
		return stackLess(names[i], names[j])
	})
	return names, nil
}

// stackLess orders numbered names by number and then by name. Names without
// a number come after every numbered name.
func stackLess(a, b string) bool {
	na, oka := extractNumber(a)
	nb, okb := extractNumber(b)
	if oka != okb {
		return oka
	}
	if oka && na != nb {
		return na < nb
	}
	return a < b
}

// Load reads every slice file. An empty directory or slices of differing
// shape are fatal.
func (s *Source) Load() ([]models.Slice, error) {
	names, err := s.Files()
	if err != nil {
		return nil, fmt.Errorf("reading slice directory: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%s: %w", s.Dir, ErrNoSlices)
	}

	slices := make([]models.Slice, 0, len(names))
	for i, name := range names {
		img, err := LoadImage(filepath.Join(s.Dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load slice %s: %w", name, err)
		}
		b := img.Bounds()
		sl := models.Slice{
			Pixels:   ImageToFloat(img),
			Width:    b.Dx(),
			Height:   b.Dy(),
			Index:    i,
			Filename: name,
		}
		if i > 0 && (sl.Width != slices[0].Width || sl.Height != slices[0].Height) {
			return nil, fmt.Errorf("slice %s is %dx%d, first slice %s is %dx%d: %w",
				name, sl.Width, sl.Height, slices[0].Filename, slices[0].Width, slices[0].Height, ErrShapeMismatch)
		}
		slices = append(slices, sl)
	}

	logging.L().Info("loaded slices",
		zap.String("dir", s.Dir),
		zap.Int("count", len(slices)),
		zap.Int("width", slices[0].Width),
		zap.Int("height", slices[0].Height))
	return slices, nil
}

// LoadVolume reads the slices and stacks them
func (s *Source) LoadVolume() (*models.Volume, error) {
	slices, err := s.Load()
	if err != nil {
		return nil, err
	}
	return models.NewVolume(slices)
}

// extractNumber extracts the digits of a filename as one number
func extractNumber(filename string) (int, bool) {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	var digits strings.Builder
	for _, c := range base {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

// LoadImage decodes one slice file by extension
func LoadImage(path string) (image.Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dcm":
		return loadDICOM(path)
	case ".jpg", ".jpeg":
		return decodeFile(path, jpeg.Decode)
	case ".png":
		return decodeFile(path, png.Decode)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupported)
	}
}

func decodeFile(path string, decode func(io.Reader) (image.Image, error)) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return decode(file)
}

// loadDICOM returns the first frame of the file's pixel data
func loadDICOM(path string) (image.Image, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing dicom: %w", err)
	}
	el, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("dicom pixel data: %w", err)
	}
	info := dicom.MustGetPixelDataInfo(el.Value)
	if len(info.Frames) == 0 {
		return nil, fmt.Errorf("dicom file has no frames: %w", ErrNoSlices)
	}
	return info.Frames[0].GetImage()
}

// ImageToFloat converts an image to grayscale intensities in [0, 1]
func ImageToFloat(img image.Image) []float64 {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	result := make([]float64, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			result[y*width+x] = float64(g.Y) / 65535.0
		}
	}
	return result
}
