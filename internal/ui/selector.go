package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned by the Run helpers when the user backs out.
var ErrCancelled = errors.New("cancelled")

// SelectorItem represents an item in the selector
type SelectorItem struct {
	ID          string
	Label       string
	Description string
	Current     bool
	// Disabled items are shown but cannot be picked.
	Disabled bool
}

// Selector is an interactive list selector
type Selector struct {
	title    string
	items    []SelectorItem
	cursor   int
	selected int
	active   bool
	width    int
}

// NewSelector creates a new selector. The cursor starts on the current
// item, or on the first enabled one.
func NewSelector(title string, items []SelectorItem) Selector {
	start := -1
	for i, item := range items {
		if item.Disabled {
			continue
		}
		if start < 0 {
			start = i
		}
		if item.Current {
			start = i
			break
		}
	}
	if start < 0 {
		start = 0
	}

	return Selector{
		title:    title,
		items:    items,
		cursor:   start,
		selected: start,
		active:   true,
		width:    80,
	}
}

func (s *Selector) SetWidth(w int) {
	s.width = w
}

func (s *Selector) Active() bool {
	return s.active
}

// Selected returns the selected item ID, or empty if cancelled
func (s *Selector) Selected() string {
	if s.active || s.selected < 0 || s.selected >= len(s.items) {
		return ""
	}
	return s.items[s.selected].ID
}

func (s *Selector) Cancelled() bool {
	return !s.active && s.selected == -1
}

func (s *Selector) move(step int) {
	for i := s.cursor + step; i >= 0 && i < len(s.items); i += step {
		if !s.items[i].Disabled {
			s.cursor = i
			return
		}
	}
}

// Update handles selector input
func (s *Selector) Update(msg tea.Msg) (*Selector, tea.Cmd) {
	if !s.active {
		return s, nil
	}

	msgKey, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}
	switch {
	case key.Matches(msgKey, keys.Up):
		s.move(-1)
	case key.Matches(msgKey, keys.Down):
		s.move(1)
	case key.Matches(msgKey, keys.Select):
		if len(s.items) == 0 || s.items[s.cursor].Disabled {
			return s, nil
		}
		s.selected = s.cursor
		s.active = false
	case key.Matches(msgKey, keys.Cancel), key.Matches(msgKey, keys.Quit):
		s.selected = -1
		s.active = false
	}

	return s, nil
}

// View renders the selector
func (s *Selector) View() string {
	if !s.active {
		return ""
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(s.title))
	b.WriteString("  ")
	b.WriteString(helpLine(keys.Up, keys.Down, keys.Select, keys.Cancel))
	b.WriteString("\n\n")

	row := lipgloss.NewStyle().MaxWidth(s.width)
	for i, item := range s.items {
		isCursor := i == s.cursor

		var line strings.Builder
		if isCursor {
			line.WriteString(CursorStyle.Render(SymbolArrow) + " ")
		} else {
			line.WriteString("  ")
		}

		display := item.Label
		if display == "" {
			display = item.ID
		}
		label := fmt.Sprintf("%-24s", display)
		switch {
		case item.Disabled:
			line.WriteString(DimStyle.Render(label))
		case isCursor:
			line.WriteString(ActiveStyle.Render(label))
		default:
			line.WriteString(TextStyle.Render(label))
		}

		if item.Description != "" {
			desc := item.Description
			if item.Current {
				desc += " (current)"
			}
			line.WriteString(DimStyle.Render(desc))
		}

		b.WriteString(row.Render(line.String()))
		b.WriteString("\n")
	}

	return b.String()
}

// selectorModel runs a Selector as a standalone program.
type selectorModel struct {
	sel Selector
}

func (m selectorModel) Init() tea.Cmd { return nil }

func (m selectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		m.sel.SetWidth(ws.Width)
		return m, nil
	}
	m.sel.Update(msg)
	if !m.sel.Active() {
		return m, tea.Quit
	}
	return m, nil
}

func (m selectorModel) View() string { return m.sel.View() }

// RunSelector shows the selector on the terminal and returns the chosen ID.
func RunSelector(title string, items []SelectorItem) (string, error) {
	if len(items) == 0 {
		return "", errors.New("nothing to select")
	}
	final, err := tea.NewProgram(selectorModel{sel: NewSelector(title, items)}).Run()
	if err != nil {
		return "", err
	}
	sel := final.(selectorModel).sel
	if sel.Cancelled() {
		return "", ErrCancelled
	}
	return sel.Selected(), nil
}
