package ui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

type styles struct {
	accent   lipgloss.Color
	box      lipgloss.Style
	header   lipgloss.Style
	sub      lipgloss.Style
	label    lipgloss.Style
	footer   lipgloss.Style
	message  lipgloss.Style
	online   lipgloss.Style
	offline  lipgloss.Style
	selected lipgloss.Style
}

func newStyles(theme string) styles {
	accent, text, muted := lipgloss.Color("62"), lipgloss.Color("235"), lipgloss.Color("244")
	if theme == ThemeDark {
		accent, text, muted = lipgloss.Color("57"), lipgloss.Color("255"), lipgloss.Color("241")
	}

	return styles{
		accent: accent,
		box: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			MarginLeft(2),
		header: lipgloss.NewStyle().
			Foreground(text).
			Bold(true).
			Align(lipgloss.Center),
		sub: lipgloss.NewStyle().
			Foreground(muted).
			Align(lipgloss.Center),
		label: lipgloss.NewStyle().
			Foreground(accent).
			Bold(true),
		footer: lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(muted),
		message: lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("205")).
			Bold(true),
		online:   lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		offline:  lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
		selected: lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(accent),
	}
}

func (s styles) table() table.Styles {
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(s.accent).
		BorderBottom(true).
		Bold(false)
	ts.Selected = s.selected.Bold(false)
	return ts
}
