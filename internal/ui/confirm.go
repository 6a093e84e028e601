package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Confirm is a yes/no approval popup.
type Confirm struct {
	title    string
	details  []string
	decided  bool
	approved bool
}

func NewConfirm(title string, details ...string) Confirm {
	return Confirm{title: title, details: details}
}

func (c Confirm) Decided() bool  { return c.decided }
func (c Confirm) Approved() bool { return c.decided && c.approved }

func (c Confirm) Init() tea.Cmd { return nil }

func (c Confirm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	msgKey, ok := msg.(tea.KeyMsg)
	if !ok || c.decided {
		return c, nil
	}
	switch {
	case key.Matches(msgKey, keys.Approve):
		c.decided, c.approved = true, true
		return c, tea.Quit
	case key.Matches(msgKey, keys.Reject), key.Matches(msgKey, keys.Quit):
		c.decided = true
		return c, tea.Quit
	}
	return c, nil
}

func (c Confirm) View() string {
	if c.decided {
		if c.approved {
			return ApprovedStyle.Render(SymbolCheck+" Approved") + "\n"
		}
		return RejectedStyle.Render(SymbolCross+" Rejected") + "\n"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(c.title))
	for _, d := range c.details {
		b.WriteString("\n")
		b.WriteString(TextStyle.Render(d))
	}
	b.WriteString("\n\n")
	b.WriteString(helpLine(keys.Approve, keys.Reject))
	return PopupStyle.Render(b.String()) + "\n"
}

// RunConfirm shows the popup and reports whether the user approved.
func RunConfirm(title string, details ...string) (bool, error) {
	final, err := tea.NewProgram(NewConfirm(title, details...)).Run()
	if err != nil {
		return false, err
	}
	return final.(Confirm).Approved(), nil
}
