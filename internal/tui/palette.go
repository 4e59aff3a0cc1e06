package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorInk     = lipgloss.Color("#DCE0E8")
	ColorDim     = lipgloss.Color("#6C7086")
	ColorAccent  = lipgloss.Color("#89B4FA")
	ColorSuccess = lipgloss.Color("#A6E3A1")
	ColorWarn    = lipgloss.Color("#F9E2AF")
	ColorFail    = lipgloss.Color("#F38BA8")
)
