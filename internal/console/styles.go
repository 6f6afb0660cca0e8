package console

import "github.com/charmbracelet/lipgloss"

// CursorMarker is the prefix shown on the focused list row.
const CursorMarker = "▸ "

var (
	accentColor = lipgloss.AdaptiveColor{Light: "4", Dark: "12"}
	mutedColor  = lipgloss.AdaptiveColor{Light: "240", Dark: "245"}
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	mutedText    = lipgloss.NewStyle().Foreground(mutedColor)
	idStyle      = lipgloss.NewStyle().Bold(true)
	activeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	focusedRow   = lipgloss.NewStyle().Foreground(accentColor)
	filterActive = lipgloss.NewStyle().Foreground(accentColor)
)

// FrameBorder returns the rounded border drawn around the console.
func FrameBorder() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.AdaptiveColor{Light: "240", Dark: "240"}).
		Padding(0, 1)
}

// statusStyle returns the style for a record's status column.
func statusStyle(r ToolchainRecord) lipgloss.Style {
	switch {
	case r.Active:
		return activeStyle
	case r.Installed:
		return lipgloss.NewStyle()
	default:
		return mutedText
	}
}
