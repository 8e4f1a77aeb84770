package ui

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrCancelled is returned when the user backs out of the wizard.
var ErrCancelled = errors.New("project creation cancelled")

// Run starts the interactive wizard and blocks until the user confirms
// or cancels. projectName pre-fills the name field when non-empty.
func Run(projectName string, starters []StarterChoice) (Result, error) {
	p := tea.NewProgram(
		NewModel(projectName, starters),
		tea.WithAltScreen(),
	)

	finalModel, err := p.Run()
	if err != nil {
		return Result{}, fmt.Errorf("wizard error: %w", err)
	}

	m := finalModel.(Model)
	result := m.Result()
	if !result.Accepted {
		return Result{}, ErrCancelled
	}
	return result, nil
}
