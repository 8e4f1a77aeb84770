package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Style definitions
var (
	// Colors
	primaryColor = lipgloss.Color("#8b5cf6") // Weft violet
	successColor = lipgloss.Color("#10b981") // Green
	errorColor   = lipgloss.Color("#ef4444") // Red
	mutedColor   = lipgloss.Color("#94a3b8") // Muted gray

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748b")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)

func (m Model) renderName() string {
	title := titleStyle.Render("✨ New Weft Project")
	subtitle := subtitleStyle.Render("Name your project")

	box := boxStyle.Render(fmt.Sprintf("Project Name:\n  %s", m.nameInput.View()))

	help := helpStyle.Render("Enter: Continue • Esc: Quit")

	return m.place(title, subtitle, "", box, m.errorLine(), help)
}

func (m Model) renderStarter() string {
	title := titleStyle.Render("🎨 Starter Selection")
	subtitle := subtitleStyle.Render("Choose a starting point for " + m.nameInput.Value())

	var items []string
	for i, starter := range m.starters {
		var item string
		if i == m.selected {
			item = selectedStyle.Render(fmt.Sprintf("▶ %s", starter.Name))
			item += "\n  " + mutedStyle.Render(starter.Description)
		} else {
			item = normalStyle.Render(fmt.Sprintf("  %s", starter.Name))
		}
		items = append(items, item)
	}

	box := boxStyle.Render(strings.Join(items, "\n\n"))

	help := helpStyle.Render("↑/↓: Select • Enter: Continue • Esc: Back")

	return m.place(title, subtitle, "", box, help)
}

func (m Model) renderPort() string {
	title := titleStyle.Render("🌐 Dev Server Port")
	subtitle := subtitleStyle.Render("Where should weft dev listen?")

	box := boxStyle.Render(fmt.Sprintf("Port:\n  %s", m.portInput.View()))

	help := helpStyle.Render("Enter: Continue • Esc: Back")

	return m.place(title, subtitle, "", box, m.errorLine(), help)
}

func (m Model) renderSummary() string {
	title := titleStyle.Render("📋 Summary")
	subtitle := subtitleStyle.Render("Review your project configuration")

	result := m.Result()
	summary := []string{
		fmt.Sprintf("Project Name:  %s", selectedStyle.Render(result.Name)),
		fmt.Sprintf("Starter:       %s", normalStyle.Render(result.Starter)),
		fmt.Sprintf("Dev Port:      %s", normalStyle.Render(fmt.Sprintf("%d", result.Port))),
	}

	box := boxStyle.Render(strings.Join(summary, "\n"))

	confirm := successStyle.Render("✨ Press Enter to create your project")
	help := helpStyle.Render("Esc: Back")

	return m.place(title, subtitle, "", box, "", confirm, help)
}

func (m Model) errorLine() string {
	if m.errorMessage == "" {
		return ""
	}
	return errorStyle.Render(m.errorMessage)
}

func (m Model) place(parts ...string) string {
	content := lipgloss.JoinVertical(lipgloss.Left, parts...)
	return lipgloss.Place(
		m.width,
		m.height-3,
		lipgloss.Center,
		lipgloss.Center,
		content,
	)
}
