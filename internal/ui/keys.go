package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Select  key.Binding
	Cancel  key.Binding
	Approve key.Binding
	Reject  key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc", "q"),
		key.WithHelp("esc", "cancel"),
	),
	Approve: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y", "approve"),
	),
	Reject: key.NewBinding(
		key.WithKeys("n", "N", "esc"),
		key.WithHelp("n", "reject"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
	),
}

func helpLine(bindings ...key.Binding) string {
	var s string
	for i, b := range bindings {
		if i > 0 {
			s += " · "
		}
		h := b.Help()
		s += h.Key + " " + h.Desc
	}
	return DimStyle.Render(s)
}
