package main

import (
	"github.com/charmbracelet/lipgloss"
)

// Terminal styling for forge output.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BC34A"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#2196F3"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f2f2f2"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8BC34A"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFC107"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#e53935"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6b7b8d"))

	promptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2a3850")).
			Padding(0, 1)
)

// confidenceStyle picks a color band for a [0,1] confidence value.
func confidenceStyle(confidence float64) lipgloss.Style {
	switch {
	case confidence >= 0.7:
		return successStyle
	case confidence >= 0.4:
		return warnStyle
	default:
		return errorStyle
	}
}
