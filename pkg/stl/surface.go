// Package stl extracts isosurfaces from scalar volumes and writes them as
// binary STL meshes.
package stl

import (
	"runtime"

	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle is one facet of an extracted surface
type Triangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
}

// cube corner offsets (x, y, z)
var corners = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

// Six tetrahedra around the 0-6 diagonal. Adjacent cubes split their shared
// face along the same diagonal, so the surface has no cracks.
var tetrahedra = [6][4]int{
	{0, 1, 2, 6},
	{0, 2, 3, 6},
	{0, 3, 7, 6},
	{0, 7, 4, 6},
	{0, 4, 5, 6},
	{0, 5, 1, 6},
}

// MarchingTetrahedra extracts the isosurface of a volume stored in row-major
// order (index = z*width*height + y*width + x). Samples outside the volume
// read as zero, so regions touching the border still give closed surfaces.
type MarchingTetrahedra struct {
	data                   []float64
	width, height, depth   int
	isoLevel               float64
	scaleX, scaleY, scaleZ float64
}

// NewMarchingTetrahedra creates an extractor for the isoLevel surface
func NewMarchingTetrahedra(data []float64, width, height, depth int, isoLevel float64) *MarchingTetrahedra {
	return &MarchingTetrahedra{
		data:     data,
		width:    width,
		height:   height,
		depth:    depth,
		isoLevel: isoLevel,
		scaleX:   1,
		scaleY:   1,
		scaleZ:   1,
	}
}

// SetScale sets the physical size of one voxel along each axis
func (mt *MarchingTetrahedra) SetScale(x, y, z float64) {
	mt.scaleX, mt.scaleY, mt.scaleZ = x, y, z
}

func (mt *MarchingTetrahedra) value(x, y, z int) float64 {
	if x < 0 || y < 0 || z < 0 || x >= mt.width || y >= mt.height || z >= mt.depth {
		return 0
	}
	return mt.data[z*mt.width*mt.height+y*mt.width+x]
}

// GenerateTriangles returns the surface with normals pointing from the
// region above the iso level toward the region below it. Slabs along z are
// processed in parallel; the output order is deterministic.
func (mt *MarchingTetrahedra) GenerateTriangles() []Triangle {
	// cube z origins run from -1 to depth-1 to include the zero border
	zs := mt.depth + 1
	workers := min(runtime.NumCPU(), zs)
	if workers < 1 {
		return nil
	}

	type slabResult struct {
		idx       int
		triangles []Triangle
	}
	results := make(chan slabResult)
	per := (zs + workers - 1) / workers
	launched := 0
	for i := 0; i < workers; i++ {
		z0 := -1 + i*per
		z1 := min(z0+per, mt.depth)
		if z0 >= z1 {
			break
		}
		launched++
		go func(idx, z0, z1 int) {
			var tris []Triangle
			for z := z0; z < z1; z++ {
				tris = mt.slab(tris, z)
			}
			results <- slabResult{idx: idx, triangles: tris}
		}(i, z0, z1)
	}

	slabs := make([][]Triangle, launched)
	for i := 0; i < launched; i++ {
		res := <-results
		slabs[res.idx] = res.triangles
	}

	var out []Triangle
	for _, s := range slabs {
		out = append(out, s...)
	}
	return out
}

func (mt *MarchingTetrahedra) slab(tris []Triangle, z int) []Triangle {
	var pos [8]r3.Vec
	var val [8]float64
	for y := -1; y < mt.height; y++ {
		for x := -1; x < mt.width; x++ {
			some, all := false, true
			for i, c := range corners {
				cx, cy, cz := x+c[0], y+c[1], z+c[2]
				val[i] = mt.value(cx, cy, cz)
				pos[i] = r3.Vec{
					X: float64(cx) * mt.scaleX,
					Y: float64(cy) * mt.scaleY,
					Z: float64(cz) * mt.scaleZ,
				}
				in := val[i] > mt.isoLevel
				some = some || in
				all = all && in
			}
			if !some || all {
				continue
			}
			for _, t := range tetrahedra {
				tris = mt.tetrahedron(tris, pos, val, t)
			}
		}
	}
	return tris
}

func (mt *MarchingTetrahedra) tetrahedron(tris []Triangle, pos [8]r3.Vec, val [8]float64, t [4]int) []Triangle {
	var in, out []int
	for _, i := range t {
		if val[i] > mt.isoLevel {
			in = append(in, i)
		} else {
			out = append(out, i)
		}
	}

	var inside r3.Vec
	for _, i := range in {
		inside = r3.Add(inside, pos[i])
	}
	if len(in) > 0 {
		inside = r3.Scale(1/float64(len(in)), inside)
	}
	cut := func(a, b int) r3.Vec { return mt.interpolate(pos[a], pos[b], val[a], val[b]) }

	switch len(in) {
	case 1:
		a := in[0]
		tris = appendOriented(tris, inside, cut(a, out[0]), cut(a, out[1]), cut(a, out[2]))
	case 3:
		d := out[0]
		tris = appendOriented(tris, inside, cut(in[0], d), cut(in[1], d), cut(in[2], d))
	case 2:
		a, b := in[0], in[1]
		c, d := out[0], out[1]
		p, q, r, s := cut(a, c), cut(a, d), cut(b, d), cut(b, c)
		tris = appendOriented(tris, inside, p, q, r)
		tris = appendOriented(tris, inside, p, r, s)
	}
	return tris
}

func (mt *MarchingTetrahedra) interpolate(p1, p2 r3.Vec, v1, v2 float64) r3.Vec {
	if v1 == v2 {
		return r3.Scale(0.5, r3.Add(p1, p2))
	}
	mu := (mt.isoLevel - v1) / (v2 - v1)
	return r3.Add(p1, r3.Scale(mu, r3.Sub(p2, p1)))
}

// appendOriented winds the triangle so its normal points away from inside
func appendOriented(tris []Triangle, inside, a, b, c r3.Vec) []Triangle {
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	if r3.Norm(n) == 0 {
		return tris
	}
	center := r3.Scale(1.0/3, r3.Add(r3.Add(a, b), c))
	if r3.Dot(n, r3.Sub(center, inside)) < 0 {
		b, c = c, b
		n = r3.Scale(-1, n)
	}
	n = r3.Unit(n)
	return append(tris, Triangle{
		Normal:  vec32(n),
		Vertex1: vec32(a),
		Vertex2: vec32(b),
		Vertex3: vec32(c),
	})
}

func vec32(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

func toVec(p [3]float32) r3.Vec {
	return r3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
}

// SurfaceArea returns the total area of the triangles
func SurfaceArea(triangles []Triangle) float64 {
	var area float64
	for _, t := range triangles {
		a, b, c := toVec(t.Vertex1), toVec(t.Vertex2), toVec(t.Vertex3)
		area += r3.Norm(r3.Cross(r3.Sub(b, a), r3.Sub(c, a))) / 2
	}
	return area
}

// EnclosedVolume returns the signed volume enclosed by a closed, outward
// facing surface
func EnclosedVolume(triangles []Triangle) float64 {
	var vol float64
	for _, t := range triangles {
		a, b, c := toVec(t.Vertex1), toVec(t.Vertex2), toVec(t.Vertex3)
		vol += r3.Dot(a, r3.Cross(b, c)) / 6
	}
	return vol
}
