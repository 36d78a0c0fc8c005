package tui

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/spatial/r2"

	"slicelabeler/pkg/codec"
	"slicelabeler/pkg/registry"
	"slicelabeler/pkg/session"
	"slicelabeler/pkg/visualization"
)

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// pixelBuf is an RGB canvas two pixels tall per terminal cell
type pixelBuf struct {
	w, h int
	px   [][3]uint8
}

func newPixelBuf(w, h int) *pixelBuf {
	b := &pixelBuf{w: w, h: h, px: make([][3]uint8, w*h)}
	for i := range b.px {
		b.px[i] = canvasBg
	}
	return b
}

func (b *pixelBuf) set(x, y int, c [3]uint8) {
	if x < 0 || y < 0 || x >= b.w || y >= b.h {
		return
	}
	b.px[y*b.w+x] = c
}

func (b *pixelBuf) at(x, y int) [3]uint8 {
	return b.px[y*b.w+x]
}

// drawLine draws a line using Bresenham
func (b *pixelBuf) drawLine(x0, y0, x1, y1 int, c [3]uint8) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		b.set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// drawMarker draws a small plus centered on (x, y)
func (b *pixelBuf) drawMarker(x, y int, c [3]uint8) {
	b.set(x, y, c)
	b.set(x-1, y, c)
	b.set(x+1, y, c)
	b.set(x, y-1, c)
	b.set(x, y+1, c)
}

func (b *pixelBuf) drawRing(l canvasLayout, ring codec.Polygon, closed bool, c [3]uint8) {
	for i := range ring {
		if i == len(ring)-1 && !closed {
			break
		}
		x0, y0 := l.imageToPixel(ring[i])
		x1, y1 := l.imageToPixel(ring[(i+1)%len(ring)])
		b.drawLine(x0, y0, x1, y1, c)
	}
}

// lines renders the buffer as half-block glyphs, upper pixel in the
// foreground and lower pixel in the background
func (b *pixelBuf) lines() []string {
	rows := b.h / 2
	out := make([]string, rows)
	var sb strings.Builder
	for cy := 0; cy < rows; cy++ {
		sb.Reset()
		for cx := 0; cx < b.w; cx++ {
			top, bottom := b.at(cx, 2*cy), b.at(cx, 2*cy+1)
			sb.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(hex(top))).
				Background(lipgloss.Color(hex(bottom))).
				Render("▀"))
		}
		out[cy] = sb.String()
	}
	return out
}

func hex(c [3]uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

func rgb(c color.RGBA) [3]uint8 {
	return [3]uint8{c.R, c.G, c.B}
}

// renderCanvas draws the active slice, its annotations tinted and outlined in
// class colors, the pending polygon, and the hovered vertex
func (m Model) renderCanvas(l canvasLayout) string {
	buf := newPixelBuf(l.cols, 2*l.rows)
	z := m.sess.Slice()
	reg := m.sess.Registry()
	anns := m.sess.Annotations()

	img, err := m.viewer.ExtractSlice("z", z)
	if err != nil {
		return err.Error()
	}
	mask := codec.Encode(anns, l.imgW, l.imgH)

	classColor := func(code int32) color.RGBA {
		return registry.RGBA(reg.Resolve(registry.Code(code)).DisplayColor())
	}
	for py := 0; py < buf.h; py++ {
		iy := int(float64(py) / l.scale)
		if iy >= l.imgH {
			break
		}
		for px := 0; px < buf.w; px++ {
			ix := int(float64(px) / l.scale)
			if ix >= l.imgW {
				break
			}
			g := img.GrayAt(ix, iy).Y
			c := color.RGBA{R: g, G: g, B: g, A: 255}
			if code := mask.At(ix, iy); code != 0 {
				c = visualization.Blend(c, classColor(code), fillAlpha)
			}
			buf.set(px, py, rgb(c))
		}
	}

	for _, a := range anns {
		c := rgb(classColor(int32(a.Class)))
		for _, r := range a.Rings() {
			buf.drawRing(l, r, true, c)
		}
	}

	pending := m.sess.Pending()
	buf.drawRing(l, pending, m.sess.Mode() == session.AwaitingLabel, pendingColor)
	for _, p := range pending {
		x, y := l.imageToPixel(p)
		buf.drawMarker(x, y, pendingColor)
	}

	if m.hovering && m.hoverNear {
		x, y := l.imageToPixel(m.hoverVert)
		buf.drawMarker(x, y, hoverColor)
	}
	return strings.Join(buf.lines(), "\n")
}

func (m Model) hoverText() string {
	if !m.hovering {
		return ""
	}
	s := fmt.Sprintf("x=%d y=%d", int(m.hoverAt.X), int(m.hoverAt.Y))
	if m.hoverNear {
		anns := m.sess.Annotations()
		if m.hoverAnn >= 0 && m.hoverAnn < len(anns) {
			e := m.sess.Registry().Resolve(anns[m.hoverAnn].Class)
			d := r2.Norm(r2.Sub(m.hoverVert, m.hoverAt))
			s += fmt.Sprintf("  near %s vertex (%.1f, %.1f) d=%.1f", e.DisplayName(), m.hoverVert.X, m.hoverVert.Y, d)
		}
	}
	return s
}
