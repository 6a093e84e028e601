package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/yolodolo42/walletconnector/internal/ui"
)

// terminal is the interactive side of the CLI. Tests replace it.
type terminal interface {
	Interactive() bool
	ReadPassword(prompt string) (string, error)
	ReadLine(label string, secret bool) (string, error)
	Select(title string, items []ui.SelectorItem) (string, error)
	Confirm(title string, details ...string) (bool, error)
}

type stdTerminal struct{}

func (stdTerminal) Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func (stdTerminal) ReadPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // newline after password input
	if err != nil {
		return "", err
	}
	return string(password), nil
}

func (stdTerminal) ReadLine(label string, secret bool) (string, error) {
	return ui.RunPrompt(label, secret)
}

func (stdTerminal) Select(title string, items []ui.SelectorItem) (string, error) {
	return ui.RunSelector(title, items)
}

func (stdTerminal) Confirm(title string, details ...string) (bool, error) {
	return ui.RunConfirm(title, details...)
}
