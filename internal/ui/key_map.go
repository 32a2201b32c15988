package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	enter  key.Binding
	back   key.Binding
	tab    key.Binding
	next   key.Binding
	prev   key.Binding
	stop   key.Binding
	reload key.Binding
	logout key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		tab:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "songs/albums")),
		next:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next page")),
		prev:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev page")),
		stop:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		logout: key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logout")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.tab, k.prev, k.next},
		{k.stop, k.reload, k.logout, k.quit},
	}
}
