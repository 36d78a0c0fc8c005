package models

import "sort"

// LabelMask is a single H×W slice of class codes in row-major order
type LabelMask struct {
	Data   []int32
	Width  int
	Height int
}

// NewLabelMask returns an all-zero mask
func NewLabelMask(width, height int) *LabelMask {
	return &LabelMask{
		Data:   make([]int32, width*height),
		Width:  width,
		Height: height,
	}
}

// At returns the code at column x, row y. Positions outside the mask read as 0.
func (m *LabelMask) At(x, y int) int32 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.Data[y*m.Width+x]
}

// Set writes code at column x, row y
func (m *LabelMask) Set(x, y int, code int32) {
	m.Data[y*m.Width+x] = code
}

// Codes returns the distinct non-zero codes present, ascending
func (m *LabelMask) Codes() []int32 {
	return distinctCodes(m.Data)
}

// Count returns the number of pixels equal to code
func (m *LabelMask) Count(code int32) int {
	n := 0
	for _, c := range m.Data {
		if c == code {
			n++
		}
	}
	return n
}

// Equal reports whether both masks have the same shape and contents
func (m *LabelMask) Equal(o *LabelMask) bool {
	if m.Width != o.Width || m.Height != o.Height {
		return false
	}
	for i := range m.Data {
		if m.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}

func distinctCodes(data []int32) []int32 {
	seen := make(map[int32]struct{})
	for _, c := range data {
		if c != 0 {
			seen[c] = struct{}{}
		}
	}
	codes := make([]int32, 0, len(seen))
	for c := range seen {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
