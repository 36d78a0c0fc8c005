package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"slicelabeler/pkg/codec"
	"slicelabeler/pkg/registry"
	"slicelabeler/pkg/session"
)

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	contentWidth := max(10, m.width)
	l := m.layout()

	// Header
	header := titleStyle.Render(fmt.Sprintf(" slicelabeler ─ slice %d/%d ─ %s ", m.sess.Slice()+1, m.sess.Depth(), m.sess.Mode()))
	header = lipgloss.NewStyle().Width(contentWidth).Render(header)

	canvas := lipgloss.NewStyle().Width(l.cols).Height(l.rows).Render(m.renderCanvas(l))
	sidebar := lipgloss.NewStyle().Width(sidebarWidth).Height(l.rows).Render(m.renderSidebar())
	body := lipgloss.JoinHorizontal(lipgloss.Top, canvas, " ", sidebar)

	// Footer: status or class prompt, then help
	var line string
	if m.sess.Mode() == session.AwaitingLabel {
		line = promptStyle.Render(" label polygon ") + m.prompt.View()
		if m.status != "" {
			line += noticeStyle.Render("  " + m.status)
		}
	} else {
		line = noticeStyle.Render(" " + m.status + " ")
	}
	coords := dimStyle.Render(m.hoverText() + " ")
	spacerW := max(0, contentWidth-lipgloss.Width(line)-lipgloss.Width(coords))
	line = lipgloss.JoinHorizontal(lipgloss.Bottom, line, strings.Repeat(" ", spacerW), coords)

	footer := lipgloss.JoinVertical(lipgloss.Left, line, m.renderHelp())
	footer = lipgloss.NewStyle().Width(contentWidth).Render(footer)

	ui := lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
	return appStyle.Width(contentWidth).Height(m.height).Render(ui)
}

func (m Model) renderHelp() string {
	if m.sess.Mode() == session.AwaitingLabel {
		return m.help.View(promptKeys{m.keys})
	}
	return m.help.View(m.keys)
}

func (m Model) renderSidebar() string {
	reg := m.sess.Registry()
	var b strings.Builder

	b.WriteString(titleStyle.Render("Classes") + "\n")
	for _, c := range reg.Classes() {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(registry.Hex(c.Color))).Render("■")
		fmt.Fprintf(&b, "%s %d %s\n", swatch, c.Code, c.Name)
	}

	anns := m.sess.Annotations()
	b.WriteString("\n" + titleStyle.Render(fmt.Sprintf("Slice %d", m.sess.Slice()+1)) + "\n")
	if len(anns) == 0 {
		b.WriteString(dimStyle.Render("no annotations") + "\n")
	}
	for _, a := range anns {
		e := reg.Resolve(a.Class)
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(registry.Hex(e.DisplayColor()))).Render("■")
		holes := ""
		if len(a.Holes) > 0 {
			holes = fmt.Sprintf(" %dh", len(a.Holes))
		}
		fmt.Fprintf(&b, "%s %s %.0fpx%s\n", swatch, e.DisplayName(), a.Area(), holes)
	}

	if pending := m.sess.Pending(); len(pending) > 0 {
		b.WriteString("\n" + titleStyle.Render("Drawing") + "\n")
		fmt.Fprintf(&b, "%d points", len(pending))
		if len(pending) >= codec.MinPoints {
			fmt.Fprintf(&b, ", %.0fpx", codec.Area(pending))
		}
		b.WriteString("\n")
	}
	return boxStyle.Width(sidebarWidth - 2).Render(strings.TrimRight(b.String(), "\n"))
}
