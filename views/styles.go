package views

import "github.com/charmbracelet/lipgloss"

var (
	ColorAccent  = lipgloss.Color("#00CC88")
	ColorDim     = lipgloss.Color("#4A6A5A")
	ColorText    = lipgloss.Color("#D0E0D8")
	ColorReady   = lipgloss.Color("#00FF66")
	ColorFilling = lipgloss.Color("#FFAA00")
	ColorError   = lipgloss.Color("#FF3300")
)

var (
	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			Padding(0, 1)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorDim)

	StyleValue = lipgloss.NewStyle().
			Foreground(ColorText)

	StyleReady = lipgloss.NewStyle().
			Foreground(ColorReady).
			Bold(true)

	StyleFilling = lipgloss.NewStyle().
			Foreground(ColorFilling).
			Bold(true)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError)

	StylePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent).
			Padding(0, 1)

	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)
)
