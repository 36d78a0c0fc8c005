package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles
var (
	baseFg    = lipgloss.Color("#E6E6E6")
	baseDimFg = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6B7280"}
	accentFg  = lipgloss.Color("#7C3AED")
	warnFg    = lipgloss.Color("#F59E0B")
	borderCol = lipgloss.Color("#243141")

	appStyle    = lipgloss.NewStyle().Foreground(baseFg)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(borderCol).Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Foreground(accentFg).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(baseDimFg)
	noticeStyle = lipgloss.NewStyle().Foreground(warnFg)
	promptStyle = lipgloss.NewStyle().Foreground(accentFg).Bold(true)
)

// Canvas colors
var (
	canvasBg     = [3]uint8{0x0B, 0x0F, 0x14}
	pendingColor = [3]uint8{0xFF, 0x30, 0x30}
	hoverColor   = [3]uint8{0xFF, 0xA5, 0x00}
)

// Fill opacity of committed annotations on the canvas
const fillAlpha = 0.35
