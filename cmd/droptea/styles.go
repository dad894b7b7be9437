package main

import "github.com/charmbracelet/lipgloss"

// Centralized style definitions for the shell.
var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("6")). // cyan
			PaddingLeft(1).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("6"))

	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")) // blue

	peerNameStyle = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // gray
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // green
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // yellow
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // red

	requestStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5")) // magenta

	// Picker styles.
	pickerCurStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	pickerDimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
