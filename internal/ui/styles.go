package ui

import "github.com/charmbracelet/lipgloss"

var (
	ColorTitle  = lipgloss.Color("205") // Pink
	ColorText   = lipgloss.Color("252")
	ColorDim    = lipgloss.Color("241")
	ColorCursor = lipgloss.Color("39")  // Blue
	ColorActive = lipgloss.Color("212") // Light pink
	ColorBorder = lipgloss.Color("62")  // Purple
	ColorOK     = lipgloss.Color("35")  // Green
	ColorDenied = lipgloss.Color("196") // Red

	// Chain family accents, after the brand colors.
	ColorEVM    = lipgloss.Color("69")  // Ethereum blue
	ColorSolana = lipgloss.Color("135") // Solana violet
)

const (
	SymbolPrompt = "❯"
	SymbolArrow  = "▸"
	SymbolCheck  = "✓"
	SymbolCross  = "✗"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorTitle).
			Bold(true)

	TextStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorDim)

	CursorStyle = lipgloss.NewStyle().
			Foreground(ColorCursor).
			Bold(true)

	ActiveStyle = lipgloss.NewStyle().
			Foreground(ColorActive).
			Bold(true)

	ApprovedStyle = lipgloss.NewStyle().
			Foreground(ColorOK)

	RejectedStyle = lipgloss.NewStyle().
			Foreground(ColorDenied)

	// Approval requests are framed like a wallet popup.
	PopupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2)
)

// Family renders a chain family name in its accent color.
func Family(family string) string {
	color := ColorDim
	switch family {
	case "EVM":
		color = ColorEVM
	case "Solana":
		color = ColorSolana
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(family)
}

// Mark renders a check or a cross.
func Mark(ok bool) string {
	if ok {
		return ApprovedStyle.Render(SymbolCheck)
	}
	return RejectedStyle.Render(SymbolCross)
}
