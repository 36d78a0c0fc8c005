// Package tui is the interactive annotator: a bubbletea program that draws
// the active slice, turns mouse and key input into session events, and asks
// for a class when a polygon is finished.
package tui

import (
	"math"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"gonum.org/v1/gonum/spatial/r2"

	"slicelabeler/pkg/codec"
	"slicelabeler/pkg/session"
	"slicelabeler/pkg/visualization"
)

// Layout
const (
	headerHeight = 1
	footerHeight = 2
	sidebarWidth = 30
)

// Options configures the annotator
type Options struct {
	// SavePath is shown in the status line after a save
	SavePath string
}

type Model struct {
	width  int
	height int

	sess   *session.Session
	viewer *visualization.Viewer
	opts   Options

	status string
	keys   keyMap
	help   help.Model

	// class prompt, focused while the session awaits a label
	prompt textinput.Model

	// vertex index over the active slice's annotations
	index *codec.VertexIndex

	// edits not yet written by a save
	unsaved     bool
	confirmQuit bool

	// hover state
	hovering  bool
	hoverAt   r2.Vec
	hoverNear bool
	hoverAnn  int
	hoverVert r2.Vec
}

// New creates the annotator over sess. viewer supplies the grayscale slices.
func New(sess *session.Session, viewer *visualization.Viewer, opts Options) Model {
	m := Model{
		sess:   sess,
		viewer: viewer,
		opts:   opts,
		status: "click to add points, f to finish",
		keys:   newKeyMap(),
		help:   help.New(),
	}
	m.prompt = textinput.New()
	m.prompt.Prompt = "class> "
	m.prompt.Placeholder = "code"
	m.prompt.CharLimit = 6
	m.prompt.Width = 8
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd { return nil }

// Session returns the annotated session
func (m Model) Session() *session.Session { return m.sess }

// Unsaved reports whether there are edits since the last save
func (m Model) Unsaved() bool { return m.unsaved || m.sess.State().Dirty }

// refresh rebuilds state derived from the session's active slice
func (m *Model) refresh() {
	m.index = codec.NewVertexIndex(m.sess.Annotations())
	m.hoverNear = false
}

// canvasLayout places the slice image inside the canvas area. Each terminal
// cell shows two image rows with a half-block glyph.
type canvasLayout struct {
	originX, originY int
	cols, rows       int
	imgW, imgH       int

	// canvas pixels per image pixel
	scale float64
}

func (m Model) layout() canvasLayout {
	cols := max(10, m.width-sidebarWidth-1)
	rows := max(4, m.height-headerHeight-footerHeight)
	v := m.sess.Volume()
	scale := math.Min(float64(cols)/float64(v.Width), float64(2*rows)/float64(v.Height))
	return canvasLayout{
		originX: 0,
		originY: headerHeight,
		cols:    cols,
		rows:    rows,
		imgW:    v.Width,
		imgH:    v.Height,
		scale:   scale,
	}
}

// cellToImage maps a terminal cell to the image pixel under its center
func (l canvasLayout) cellToImage(cx, cy int) (r2.Vec, bool) {
	if cx < l.originX || cy < l.originY || cx >= l.originX+l.cols || cy >= l.originY+l.rows || l.scale <= 0 {
		return r2.Vec{}, false
	}
	px := float64(cx-l.originX) + 0.5
	py := 2*float64(cy-l.originY) + 1
	x := math.Floor(px / l.scale)
	y := math.Floor(py / l.scale)
	if x >= float64(l.imgW) || y >= float64(l.imgH) {
		return r2.Vec{}, false
	}
	return r2.Vec{X: x, Y: y}, true
}

// imageToPixel maps an image coordinate to a canvas pixel
func (l canvasLayout) imageToPixel(p r2.Vec) (int, int) {
	return int(math.Floor((p.X + 0.5) * l.scale)), int(math.Floor((p.Y + 0.5) * l.scale))
}
