// Package review turns a finished label volume into per-class surface meshes
// and summary statistics.
package review

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"slicelabeler/internal/logging"
	"slicelabeler/internal/models"
	"slicelabeler/pkg/config"
	"slicelabeler/pkg/registry"
	"slicelabeler/pkg/stl"
)

// Options controls mesh extraction
type Options struct {
	// MeshDir receives one STL file per class; empty skips writing meshes
	MeshDir string

	// IsoLevel is the threshold on the binary class volume
	IsoLevel float64

	// Physical voxel size along each axis
	SpacingX, SpacingY, SpacingZ float64
}

// DefaultOptions uses unit spacing and the 0.5 isosurface
func DefaultOptions() Options {
	return Options{IsoLevel: 0.5, SpacingX: 1, SpacingY: 1, SpacingZ: 1}
}

// OptionsFromConfig reads the review and output sections of cfg
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MeshDir:  filepath.Join(cfg.Output.Dir, cfg.Output.MeshDir),
		IsoLevel: cfg.Review.IsoLevel,
		SpacingX: cfg.Review.Spacing.X,
		SpacingY: cfg.Review.Spacing.Y,
		SpacingZ: cfg.Review.Spacing.Z,
	}
}

// ClassSummary describes one labeled class
type ClassSummary struct {
	Code  registry.Code
	Name  string
	Color string
	Known bool

	// Voxels is the number of labeled voxels
	Voxels int

	// Volume is Voxels times the voxel size
	Volume float64

	// Slices is the number of slices the class appears on
	Slices int

	Triangles   int
	SurfaceArea float64

	// Intensity statistics of the labeled voxels
	MeanIntensity   float64
	StdDevIntensity float64

	// MeshPath is the written STL file, if any
	MeshPath string
}

// Render extracts a surface for every class present in labels and returns
// one summary per class, ordered by code. volume may be nil, in which case
// intensity statistics are left at zero. Codes missing from reg are rendered
// with the unknown fallback name and mesh color.
func Render(volume *models.Volume, labels *models.LabelVolume, reg *registry.Registry, opts Options) ([]ClassSummary, error) {
	if volume != nil && !labels.Matches(volume) {
		return nil, fmt.Errorf("labels do not match volume: %w", models.ErrShapeMismatch)
	}
	if opts.MeshDir != "" {
		if err := os.MkdirAll(opts.MeshDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create mesh directory: %w", err)
		}
	}

	codes := labels.Codes()
	summaries := make([]ClassSummary, 0, len(codes))
	for _, code := range codes {
		entry := reg.Resolve(registry.Code(code))
		s := ClassSummary{
			Code:   entry.RawCode(),
			Name:   entry.DisplayName(),
			Color:  MeshColor(entry),
			Known:  entry.Known(),
			Voxels: labels.Count(code),
			Slices: sliceCount(labels, code),
		}
		s.Volume = float64(s.Voxels) * opts.SpacingX * opts.SpacingY * opts.SpacingZ
		if volume != nil {
			s.MeanIntensity, s.StdDevIntensity = intensity(volume, labels, code)
		}

		mt := stl.NewMarchingTetrahedra(labels.Binary(code), labels.Width, labels.Height, labels.Depth, opts.IsoLevel)
		mt.SetScale(opts.SpacingX, opts.SpacingY, opts.SpacingZ)
		triangles := mt.GenerateTriangles()
		s.Triangles = len(triangles)
		s.SurfaceArea = stl.SurfaceArea(triangles)

		if opts.MeshDir != "" {
			s.MeshPath = filepath.Join(opts.MeshDir, MeshFileName(entry))
			header := fmt.Sprintf("%d: %s color=%s", s.Code, s.Name, s.Color)
			if err := stl.SaveToSTL(s.MeshPath, header, triangles); err != nil {
				return nil, fmt.Errorf("class %d: %w", code, err)
			}
		}

		logging.L().Info("class rendered",
			zap.Int32("code", code),
			zap.String("name", s.Name),
			zap.Int("voxels", s.Voxels),
			zap.Int("triangles", s.Triangles),
			zap.String("mesh", s.MeshPath))
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// MeshColor returns the display color for a class mesh. Unknown codes use
// the mesh fallback rather than the 2D one.
func MeshColor(e registry.Entry) string {
	if !e.Known() {
		return registry.UnknownMeshColor
	}
	return e.DisplayColor()
}

// MeshFileName returns "<code>_<name>.stl" with spaces replaced
func MeshFileName(e registry.Entry) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':':
			return '_'
		}
		return r
	}, e.DisplayName())
	return fmt.Sprintf("%d_%s.stl", e.RawCode(), name)
}

func sliceCount(labels *models.LabelVolume, code int32) int {
	plane := labels.Width * labels.Height
	n := 0
	for z := 0; z < labels.Depth; z++ {
		for _, v := range labels.Data[z*plane : (z+1)*plane] {
			if v == code {
				n++
				break
			}
		}
	}
	return n
}

func intensity(volume *models.Volume, labels *models.LabelVolume, code int32) (mean, std float64) {
	var samples []float64
	for i, v := range labels.Data {
		if v == code {
			samples = append(samples, volume.Data[i])
		}
	}
	if len(samples) < 2 {
		if len(samples) == 1 {
			return samples[0], 0
		}
		return 0, 0
	}
	return stat.MeanStdDev(samples, nil)
}

// WriteSummary prints a table of class summaries
func WriteSummary(w io.Writer, summaries []ClassSummary) {
	fmt.Fprintf(w, "Label Summary\n")
	fmt.Fprintf(w, "=============\n")
	if len(summaries) == 0 {
		fmt.Fprintf(w, "No labeled voxels\n")
		return
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%d: %s (%s)\n", s.Code, s.Name, s.Color)
		fmt.Fprintf(w, "  voxels: %d on %d slices, volume %.2f\n", s.Voxels, s.Slices, s.Volume)
		fmt.Fprintf(w, "  surface: %d triangles, area %.2f\n", s.Triangles, s.SurfaceArea)
		fmt.Fprintf(w, "  intensity: mean %.4f, stddev %.4f\n", s.MeanIntensity, s.StdDevIntensity)
		if s.MeshPath != "" {
			fmt.Fprintf(w, "  mesh: %s\n", s.MeshPath)
		}
	}
}
