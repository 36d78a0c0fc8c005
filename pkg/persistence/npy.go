package persistence

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"slicelabeler/internal/models"
)

// ErrFormat is returned when a label artifact cannot be parsed
var ErrFormat = errors.New("unsupported label array format")

var npyMagic = []byte("\x93NUMPY")

// WriteNPY writes labels as a NumPy v1.0 array of little-endian int32 with
// C order and shape (depth, height, width)
func WriteNPY(w io.Writer, labels *models.LabelVolume) error {
	d, h, wd := labels.Shape()
	header := fmt.Sprintf("{'descr': '<i4', 'fortran_order': False, 'shape': (%d, %d, %d), }", d, h, wd)

	// magic(6) + version(2) + length(2) + header + '\n', padded to 64 bytes
	pad := 64 - (10+len(header)+1)%64
	if pad == 64 {
		pad = 0
	}
	header += strings.Repeat(" ", pad) + "\n"

	bw := bufio.NewWriter(w)
	bw.Write(npyMagic)
	bw.Write([]byte{1, 0})
	binary.Write(bw, binary.LittleEndian, uint16(len(header)))
	bw.WriteString(header)

	buf := make([]byte, 4)
	for _, v := range labels.Data {
		binary.LittleEndian.PutUint32(buf, uint32(v))
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

var (
	descrRe = regexp.MustCompile(`'descr':\s*'([^']*)'`)
	orderRe = regexp.MustCompile(`'fortran_order':\s*(True|False)`)
	shapeRe = regexp.MustCompile(`'shape':\s*\(([^)]*)\)`)
)

// ReadNPY reads a 3D int32 NumPy array written by WriteNPY or numpy.save
func ReadNPY(r io.Reader) (*models.LabelVolume, error) {
	br := bufio.NewReader(r)

	pre := make([]byte, 8)
	if _, err := io.ReadFull(br, pre); err != nil {
		return nil, fmt.Errorf("reading preamble: %w", err)
	}
	if !bytes.Equal(pre[:6], npyMagic) {
		return nil, fmt.Errorf("bad magic: %w", ErrFormat)
	}

	var hlen int
	switch pre[6] {
	case 1:
		var n uint16
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		hlen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		hlen = int(n)
	default:
		return nil, fmt.Errorf("version %d.%d: %w", pre[6], pre[7], ErrFormat)
	}

	hdr := make([]byte, hlen)
	if _, err := io.ReadFull(br, hdr); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	d, h, w, err := parseHeader(string(hdr))
	if err != nil {
		return nil, err
	}

	labels := models.NewLabelVolume(d, h, w)
	buf := make([]byte, 4*len(labels.Data))
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, fmt.Errorf("reading %d voxels: %w", len(labels.Data), err)
	}
	for i := range labels.Data {
		labels.Data[i] = int32(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return labels, nil
}

func parseHeader(hdr string) (d, h, w int, err error) {
	m := descrRe.FindStringSubmatch(hdr)
	if m == nil || (m[1] != "<i4" && m[1] != "|i4") {
		return 0, 0, 0, fmt.Errorf("dtype %q: %w", hdr, ErrFormat)
	}
	if m := orderRe.FindStringSubmatch(hdr); m == nil || m[1] != "False" {
		return 0, 0, 0, fmt.Errorf("fortran order: %w", ErrFormat)
	}
	m = shapeRe.FindStringSubmatch(hdr)
	if m == nil {
		return 0, 0, 0, fmt.Errorf("missing shape: %w", ErrFormat)
	}
	var dims []int
	for _, f := range strings.Split(m[1], ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("shape %q: %w", m[1], ErrFormat)
		}
		dims = append(dims, n)
	}
	if len(dims) != 3 {
		return 0, 0, 0, fmt.Errorf("expected 3 dimensions, got %d: %w", len(dims), ErrFormat)
	}
	return dims[0], dims[1], dims[2], nil
}
