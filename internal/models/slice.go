package models

// Slice represents a single 2D cross-section read from the input source
type Slice struct {
	// Pixels holds the intensity samples in row-major order
	Pixels []float64

	// Width and Height are the spatial extent of the slice in pixels
	Width  int
	Height int

	// Index is the position of this slice in the sorted sequence
	Index int

	// Filename is the original filename of the slice
	Filename string
}

// Shape returns the (height, width) of the slice
func (s *Slice) Shape() (int, int) {
	return s.Height, s.Width
}
