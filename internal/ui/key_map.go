package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	nextTab  key.Binding
	prevTab  key.Binding
	moveUp   key.Binding
	moveDown key.Binding
	play     key.Binding
	reject   key.Binding
	complete key.Binding
	refresh  key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		nextTab:  key.NewBinding(key.WithKeys("tab", "right"), key.WithHelp("tab", "next status")),
		prevTab:  key.NewBinding(key.WithKeys("shift+tab", "left"), key.WithHelp("shift+tab", "prev status")),
		moveUp:   key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move up")),
		moveDown: key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move down")),
		play:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "play")),
		reject:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "reject")),
		complete: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete")),
		refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.nextTab, k.play, k.complete, k.refresh, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.nextTab, k.prevTab},
		{k.moveUp, k.moveDown},
		{k.play, k.reject, k.complete},
		{k.refresh, k.quit},
	}
}
