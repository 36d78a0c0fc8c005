package stl

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// HeaderSize is the fixed size of the binary STL header
const HeaderSize = 80

// SaveToSTL writes triangles to filename as binary STL. header is truncated
// to HeaderSize bytes.
func SaveToSTL(filename, header string, triangles []Triangle) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create STL file: %w", err)
	}
	if err := WriteSTL(file, header, triangles); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteSTL writes a binary STL stream
func WriteSTL(w io.Writer, header string, triangles []Triangle) error {
	bw := bufio.NewWriter(w)

	var hdr [HeaderSize]byte
	copy(hdr[:], header)
	if _, err := bw.Write(hdr[:]); err != nil {
		return fmt.Errorf("failed to write STL header: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(triangles))); err != nil {
		return fmt.Errorf("failed to write triangle count: %w", err)
	}

	// 12 float32 values plus a uint16 attribute count
	var rec [50]byte
	for _, t := range triangles {
		off := 0
		for _, v := range [4][3]float32{t.Normal, t.Vertex1, t.Vertex2, t.Vertex3} {
			for _, f := range v {
				binary.LittleEndian.PutUint32(rec[off:], math.Float32bits(f))
				off += 4
			}
		}
		if _, err := bw.Write(rec[:]); err != nil {
			return fmt.Errorf("failed to write triangle: %w", err)
		}
	}
	return bw.Flush()
}

// ReadSTL reads a binary STL stream, returning its header and triangles
func ReadSTL(r io.Reader) (string, []Triangle, error) {
	br := bufio.NewReader(r)
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return "", nil, fmt.Errorf("failed to read STL header: %w", err)
	}
	var n uint32
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return "", nil, fmt.Errorf("failed to read triangle count: %w", err)
	}

	triangles := make([]Triangle, n)
	var rec [50]byte
	for i := range triangles {
		if _, err := io.ReadFull(br, rec[:]); err != nil {
			return "", nil, fmt.Errorf("failed to read triangle %d: %w", i, err)
		}
		var v [4][3]float32
		for j := 0; j < 12; j++ {
			v[j/3][j%3] = math.Float32frombits(binary.LittleEndian.Uint32(rec[4*j:]))
		}
		triangles[i] = Triangle{Normal: v[0], Vertex1: v[1], Vertex2: v[2], Vertex3: v[3]}
	}

	end := len(hdr)
	for end > 0 && hdr[end-1] == 0 {
		end--
	}
	return string(hdr[:end]), triangles, nil
}
