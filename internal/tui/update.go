package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"slicelabeler/internal/logging"
	"slicelabeler/pkg/registry"
	"slicelabeler/pkg/session"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.sess.Mode() == session.AwaitingLabel {
			return m.updatePrompt(msg)
		}
		return m.updateKeys(msg)

	case tea.MouseMsg:
		return m.updateMouse(msg)
	}
	return m, nil
}

// updatePrompt handles keys while the class prompt is open. Everything other
// than assign, cancel and interrupt goes to the text input.
func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.Cancel):
		m.closePrompt(m.sess.Cancel())
		return m, nil
	case key.Matches(msg, m.keys.Assign):
		raw := strings.TrimSpace(m.prompt.Value())
		code, err := strconv.Atoi(raw)
		var n session.Notice
		if err != nil {
			// not an integer: same as cancelling
			n = m.sess.Cancel()
		} else {
			n = m.sess.Assign(registry.Code(code))
		}
		if n == session.NoticeNone {
			m.unsaved = true
			m.closePrompt(n)
			e := m.sess.Registry().Resolve(registry.Code(code))
			m.status = fmt.Sprintf("labeled %s", e.DisplayName())
			return m, nil
		}
		m.closePrompt(n)
		if raw != "" {
			m.status = fmt.Sprintf("%q is not a class; %s", raw, n)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *Model) closePrompt(n session.Notice) {
	m.prompt.Blur()
	m.prompt.SetValue("")
	m.setNotice(n)
	m.refresh()
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, m.keys.Quit) {
		m.confirmQuit = false
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.Unsaved() && !m.confirmQuit && msg.String() != "ctrl+c" {
			m.confirmQuit = true
			m.status = "unsaved changes, press q again to quit"
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Finish):
		return m.finish()

	case key.Matches(msg, m.keys.Undo):
		m.setNotice(m.sess.RemoveLastPoint())

	case key.Matches(msg, m.keys.Clear):
		m.setNotice(m.sess.Clear())
		if m.status == "" {
			m.status = "polygon cleared"
		}

	case key.Matches(msg, m.keys.Prev):
		m.navigate(m.sess.Prev())

	case key.Matches(msg, m.keys.Next):
		m.navigate(m.sess.Next())

	case key.Matches(msg, m.keys.Save):
		m.save()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) finish() (tea.Model, tea.Cmd) {
	n := m.sess.Finish()
	if n != session.NoticeNone {
		m.setNotice(n)
		return m, nil
	}
	m.status = "enter a class code"
	m.prompt.SetValue("")
	cmd := m.prompt.Focus()
	return m, cmd
}

func (m *Model) navigate(n session.Notice) {
	m.setNotice(n)
	if n == session.NoticeNone {
		m.status = fmt.Sprintf("slice %d/%d", m.sess.Slice()+1, m.sess.Depth())
	}
	m.refresh()
}

func (m *Model) save() {
	n, err := m.sess.Save()
	switch {
	case err != nil:
		logging.L().Error("save from annotator failed", zap.Error(err))
		m.status = "save failed: " + err.Error()
	case n != session.NoticeNone:
		m.setNotice(n)
	default:
		m.unsaved = false
		m.status = "saved"
		if m.opts.SavePath != "" {
			m.status += " to " + m.opts.SavePath
		}
	}
}

func (m *Model) setNotice(n session.Notice) {
	m.status = n.String()
}

func (m Model) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	l := m.layout()
	p, inside := l.cellToImage(msg.X, msg.Y)
	m.hovering = inside
	if inside {
		m.hoverAt = p
		m.hoverAnn, m.hoverVert, _, m.hoverNear = m.index.Nearest(p)
	}

	if m.sess.Mode() == session.AwaitingLabel {
		if msg.Action == tea.MouseActionPress && msg.Button != tea.MouseButtonNone {
			m.setNotice(session.NoticeInputBlocked)
		}
		return m, nil
	}

	switch {
	case msg.Action != tea.MouseActionPress:
		return m, nil
	case msg.Button == tea.MouseButtonLeft && inside:
		m.setNotice(m.sess.AddPoint(p.X, p.Y))
		if m.status == "" {
			m.status = fmt.Sprintf("%d points", len(m.sess.Pending()))
		}
	case msg.Button == tea.MouseButtonRight:
		return m.finish()
	case msg.Button == tea.MouseButtonWheelUp:
		m.navigate(m.sess.Prev())
	case msg.Button == tea.MouseButtonWheelDown:
		m.navigate(m.sess.Next())
	}
	return m, nil
}
