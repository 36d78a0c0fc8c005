package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Finish key.Binding
	Undo   key.Binding
	Clear  key.Binding
	Prev   key.Binding
	Next   key.Binding
	Save   key.Binding
	Help   key.Binding
	Quit   key.Binding

	Assign key.Binding
	Cancel key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Finish: key.NewBinding(key.WithKeys("f", "enter"), key.WithHelp("f/enter", "finish polygon")),
		Undo:   key.NewBinding(key.WithKeys("backspace", "delete", "u"), key.WithHelp("⌫", "remove point")),
		Clear:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear polygon")),
		Prev:   key.NewBinding(key.WithKeys("left", "p"), key.WithHelp("←/p", "prev slice")),
		Next:   key.NewBinding(key.WithKeys("right", "n"), key.WithHelp("→/n", "next slice")),
		Save:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
		Help:   key.NewBinding(key.WithKeys("h", "?"), key.WithHelp("h", "help")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		Assign: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "assign class")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "discard polygon")),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Finish, k.Undo, k.Prev, k.Next, k.Save, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Finish, k.Undo, k.Clear},
		{k.Prev, k.Next},
		{k.Save, k.Help, k.Quit},
	}
}

// promptKeys is shown while the class prompt is open
type promptKeys struct {
	keyMap
}

func (k promptKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Assign, k.Cancel}
}

func (k promptKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Assign, k.Cancel}}
}
