package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	next     key.Binding
	prev     key.Binding
	toggle   key.Binding
	explain  key.Binding
	complete key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		next:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next")),
		prev:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "back")),
		toggle:   key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "select")),
		explain:  key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter", "explain")),
		complete: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "mark complete")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.toggle},
		{k.next, k.prev, k.explain},
		{k.complete, k.quit},
	}
}
