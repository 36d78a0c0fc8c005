package stl

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func sphere(size int, radius float64) []float64 {
	data := make([]float64, size*size*size)
	center := float64(size) / 2.0
	for z := 0; z < size; z++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				dx := float64(x) - center
				dy := float64(y) - center
				dz := float64(z) - center
				if math.Sqrt(dx*dx+dy*dy+dz*dz) < radius {
					data[z*size*size+y*size+x] = 1.0
				}
			}
		}
	}
	return data
}

func centroid(t Triangle) [3]float32 {
	return [3]float32{
		(t.Vertex1[0] + t.Vertex2[0] + t.Vertex3[0]) / 3,
		(t.Vertex1[1] + t.Vertex2[1] + t.Vertex3[1]) / 3,
		(t.Vertex1[2] + t.Vertex2[2] + t.Vertex3[2]) / 3,
	}
}

// TestMarchingTetrahedra verifies the surface of a voxelized sphere
func TestMarchingTetrahedra(t *testing.T) {
	size := 20
	radius := float64(size) / 4.0
	center := float32(size) / 2.0

	mt := NewMarchingTetrahedra(sphere(size, radius), size, size, size, 0.5)
	triangles := mt.GenerateTriangles()

	if len(triangles) < 100 {
		t.Fatalf("Expected at least 100 triangles for sphere, got %d", len(triangles))
	}

	inward := 0
	for _, tri := range triangles {
		c := centroid(tri)
		vx, vy, vz := c[0]-center, c[1]-center, c[2]-center
		if vx*tri.Normal[0]+vy*tri.Normal[1]+vz*tri.Normal[2] < 0 {
			inward++
		}
	}
	// voxel staircase facets may lean inward locally, but not many
	if inward > len(triangles)/10 {
		t.Errorf("%d of %d normals point toward the center", inward, len(triangles))
	}

	vol := EnclosedVolume(triangles)
	want := 4.0 / 3.0 * math.Pi * radius * radius * radius
	if vol <= 0 || math.Abs(vol-want)/want > 0.35 {
		t.Errorf("Enclosed volume %f is far from %f", vol, want)
	}
}

// TestBorderRegionCloses checks that a region filling the whole volume still
// produces a closed surface
func TestBorderRegionCloses(t *testing.T) {
	data := make([]float64, 3*3*3)
	for i := range data {
		data[i] = 1
	}
	triangles := NewMarchingTetrahedra(data, 3, 3, 3, 0.5).GenerateTriangles()
	if len(triangles) == 0 {
		t.Fatal("No triangles for a full volume")
	}
	if vol := EnclosedVolume(triangles); vol <= 0 {
		t.Errorf("Expected positive enclosed volume, got %f", vol)
	}
}

func TestEmptyVolume(t *testing.T) {
	data := make([]float64, 4*4*4)
	if tris := NewMarchingTetrahedra(data, 4, 4, 4, 0.5).GenerateTriangles(); len(tris) != 0 {
		t.Errorf("Expected no triangles, got %d", len(tris))
	}
}

// TestSetScale verifies voxel spacing is applied to vertices
func TestSetScale(t *testing.T) {
	data := []float64{
		1, 0,
		0, 0,

		0, 0,
		0, 0,
	}

	plain := NewMarchingTetrahedra(data, 2, 2, 2, 0.5).GenerateTriangles()

	mt := NewMarchingTetrahedra(data, 2, 2, 2, 0.5)
	mt.SetScale(2.5, 1.5, 3.0)
	scaled := mt.GenerateTriangles()

	if len(plain) == 0 || len(plain) != len(scaled) {
		t.Fatalf("Expected matching non-empty meshes, got %d and %d", len(plain), len(scaled))
	}
	for i := range plain {
		p, s := plain[i].Vertex1, scaled[i].Vertex1
		if math.Abs(float64(p[0]*2.5-s[0])) > 1e-4 ||
			math.Abs(float64(p[1]*1.5-s[1])) > 1e-4 ||
			math.Abs(float64(p[2]*3.0-s[2])) > 1e-4 {
			t.Fatalf("Triangle %d: %v is not %v scaled", i, s, p)
		}
	}
	if a, b := SurfaceArea(plain), SurfaceArea(scaled); b <= a {
		t.Errorf("Expected scaled area %f to exceed %f", b, a)
	}
}

// TestTriangleInterpolation verifies vertices sit halfway between samples
func TestTriangleInterpolation(t *testing.T) {
	data := []float64{
		1, 0,
		0, 0,

		0, 0,
		0, 0,
	}
	triangles := NewMarchingTetrahedra(data, 2, 2, 2, 0.5).GenerateTriangles()
	if len(triangles) == 0 {
		t.Fatal("No triangles generated")
	}

	for _, tri := range triangles {
		for _, v := range [3][3]float32{tri.Vertex1, tri.Vertex2, tri.Vertex3} {
			if isIntegerCoordinate(v[0]) && isIntegerCoordinate(v[1]) && isIntegerCoordinate(v[2]) {
				t.Fatalf("Vertex %v was not interpolated", v)
			}
		}
		n := tri.Normal
		if l := n[0]*n[0] + n[1]*n[1] + n[2]*n[2]; math.Abs(float64(l)-1) > 1e-4 {
			t.Errorf("Normal %v is not unit length", n)
		}
	}
}

func isIntegerCoordinate(coord float32) bool {
	return math.Abs(float64(coord)-math.Round(float64(coord))) < 0.001
}

// TestSaveToSTL verifies the binary layout and header
func TestSaveToSTL(t *testing.T) {
	triangles := []Triangle{
		{
			Normal:  [3]float32{0, 0, 1},
			Vertex1: [3]float32{0, 0, 0},
			Vertex2: [3]float32{1, 0, 0},
			Vertex3: [3]float32{0, 1, 0},
		},
	}

	path := filepath.Join(t.TempDir(), "femur.stl")
	if err := SaveToSTL(path, "Femur color=red", triangles); err != nil {
		t.Fatalf("Failed to save STL: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat output file: %v", err)
	}
	if info.Size() != int64(HeaderSize+4+50) {
		t.Errorf("Expected %d bytes, got %d", HeaderSize+4+50, info.Size())
	}

	data, _ := os.ReadFile(path)
	header, got, err := ReadSTL(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if header != "Femur color=red" {
		t.Errorf("Unexpected header %q", header)
	}
	if len(got) != 1 || got[0] != triangles[0] {
		t.Errorf("Unexpected triangles %v", got)
	}
}

func TestHeaderTruncated(t *testing.T) {
	var buf bytes.Buffer
	long := string(bytes.Repeat([]byte("x"), 200))
	if err := WriteSTL(&buf, long, nil); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != HeaderSize+4 {
		t.Errorf("Expected %d bytes, got %d", HeaderSize+4, buf.Len())
	}
}

func BenchmarkMarchingTetrahedra(b *testing.B) {
	size := 16
	data := sphere(size, float64(size)/4)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NewMarchingTetrahedra(data, size, size, size, 0.5).GenerateTriangles()
	}
}
