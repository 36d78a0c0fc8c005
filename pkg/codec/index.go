package codec

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r2"
)

// vertex is one annotation vertex stored in the index
type vertex struct {
	r2.Vec
	ann int
}

// Compare implements the kdtree.Comparable interface
func (v vertex) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(vertex)
	switch d {
	case 0:
		return v.X - q.X
	case 1:
		return v.Y - q.Y
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (v vertex) Dims() int { return 2 }

// Distance returns the squared Euclidean distance between two vertices
func (v vertex) Distance(c kdtree.Comparable) float64 {
	return r2.Norm2(r2.Sub(v.Vec, c.(vertex).Vec))
}

type vertices []vertex

func (p vertices) Index(i int) kdtree.Comparable         { return p[i] }
func (p vertices) Len() int                              { return len(p) }
func (p vertices) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p vertices) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(vertexPlane{vertices: p, Dim: d}, kdtree.MedianOfRandoms(vertexPlane{vertices: p, Dim: d}, 100))
}

// vertexPlane implements sort.Interface and kdtree.SortSlicer for vertices
type vertexPlane struct {
	vertices
	kdtree.Dim
}

func (p vertexPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.vertices[i].X < p.vertices[j].X
	case 1:
		return p.vertices[i].Y < p.vertices[j].Y
	default:
		panic("illegal dimension")
	}
}

func (p vertexPlane) Slice(start, end int) kdtree.SortSlicer {
	return vertexPlane{vertices: p.vertices[start:end], Dim: p.Dim}
}

func (p vertexPlane) Swap(i, j int) {
	p.vertices[i], p.vertices[j] = p.vertices[j], p.vertices[i]
}

// VertexIndex answers nearest-vertex queries over a slice's annotations
type VertexIndex struct {
	tree *kdtree.Tree
	size int
}

// NewVertexIndex indexes the outline and hole vertices of anns
func NewVertexIndex(anns []Annotation) *VertexIndex {
	var pts vertices
	for i, a := range anns {
		for _, r := range a.Rings() {
			for _, v := range r {
				pts = append(pts, vertex{Vec: v, ann: i})
			}
		}
	}
	idx := &VertexIndex{size: len(pts)}
	if len(pts) > 0 {
		idx.tree = kdtree.New(pts, false)
	}
	return idx
}

// Len returns the number of indexed vertices
func (x *VertexIndex) Len() int { return x.size }

// Nearest returns the annotation index and position of the vertex closest to
// p and its distance. ok is false when the index is empty.
func (x *VertexIndex) Nearest(p r2.Vec) (ann int, at r2.Vec, dist float64, ok bool) {
	if x.tree == nil {
		return -1, r2.Vec{}, math.Inf(1), false
	}
	c, d2 := x.tree.Nearest(vertex{Vec: p})
	if c == nil {
		return -1, r2.Vec{}, math.Inf(1), false
	}
	v := c.(vertex)
	return v.ann, v.Vec, math.Sqrt(d2), true
}
