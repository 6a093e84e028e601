package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Prompt is a single-line input with a styled prefix. Secret prompts mask
// what is typed.
type Prompt struct {
	label     string
	input     textinput.Model
	done      bool
	cancelled bool
}

func NewPrompt(label string, secret bool) Prompt {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 256
	ti.Width = 80
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	ti.Focus()

	return Prompt{label: label, input: ti}
}

func (p Prompt) Value() string {
	return strings.TrimSpace(p.input.Value())
}

func (p Prompt) Cancelled() bool { return p.cancelled }

func (p Prompt) Init() tea.Cmd { return textinput.Blink }

func (p Prompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msgKey, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msgKey, keys.Select):
			p.done = true
			return p, tea.Quit
		case msgKey.Type == tea.KeyEsc, key.Matches(msgKey, keys.Quit):
			p.done, p.cancelled = true, true
			return p, tea.Quit
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

func (p Prompt) View() string {
	if p.done {
		return ""
	}
	return CursorStyle.Render(SymbolPrompt) + " " + p.label + " " + p.input.View() + "\n"
}

// RunPrompt reads one line from the terminal.
func RunPrompt(label string, secret bool) (string, error) {
	final, err := tea.NewProgram(NewPrompt(label, secret)).Run()
	if err != nil {
		return "", err
	}
	p := final.(Prompt)
	if p.Cancelled() {
		return "", ErrCancelled
	}
	return p.Value(), nil
}
