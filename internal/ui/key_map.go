package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	enter     key.Binding
	back      key.Binding
	tab       key.Binding
	like      key.Binding
	dislike   key.Binding
	watch     key.Binding
	focus     key.Binding
	open      key.Binding
	watchlist key.Binding
	remove    key.Binding
	refresh   key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		tab:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "movies/series")),
		like:      key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "like")),
		dislike:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dislike")),
		watch:     key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "watchlist +/-")),
		focus:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "focus")),
		open:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open in browser")),
		watchlist: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "watchlist")),
		remove:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove")),
		refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.tab, k.watchlist, k.refresh},
		{k.like, k.dislike, k.watch, k.focus, k.open},
		{k.remove, k.quit},
	}
}
