// Package ui is the interactive project creation wizard.
package ui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Step is the wizard's current screen.
type Step int

const (
	StepName Step = iota
	StepStarter
	StepPort
	StepSummary
)

// StarterChoice is one selectable starter template.
type StarterChoice struct {
	Name        string
	Description string
}

// Result is what the wizard collected. Accepted is false when the user
// backed out.
type Result struct {
	Name     string
	Starter  string
	Port     int
	Accepted bool
}

// KeyMap defines the wizard's keyboard shortcuts.
type KeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Back  key.Binding
	Quit  key.Binding
}

var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "confirm"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

// Model is the TUI state.
type Model struct {
	width  int
	height int

	step     Step
	starters []StarterChoice
	selected int

	nameInput textinput.Model
	portInput textinput.Model

	errorMessage string
	accepted     bool
	quitting     bool
}

// NewModel builds the wizard, pre-filling the name when one was passed
// on the command line.
func NewModel(projectName string, starters []StarterChoice) Model {
	nameInput := textinput.New()
	nameInput.Placeholder = "my-weft-app"
	nameInput.Focus()
	nameInput.CharLimit = 50
	nameInput.Width = 40
	if projectName != "" {
		nameInput.SetValue(projectName)
	}

	portInput := textinput.New()
	portInput.Placeholder = "8080"
	portInput.CharLimit = 5
	portInput.Width = 10
	portInput.SetValue("8080")

	return Model{
		step:      StepName,
		starters:  starters,
		nameInput: nameInput,
		portInput: portInput,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, DefaultKeyMap.Quit) {
			m.quitting = true
			return m, tea.Quit
		}

		switch m.step {
		case StepName:
			if key.Matches(msg, DefaultKeyMap.Enter) {
				return m.submitName()
			}
			if key.Matches(msg, DefaultKeyMap.Back) {
				m.quitting = true
				return m, tea.Quit
			}

		case StepStarter:
			switch {
			case key.Matches(msg, DefaultKeyMap.Up):
				if m.selected > 0 {
					m.selected--
				}
				return m, nil
			case key.Matches(msg, DefaultKeyMap.Down):
				if m.selected < len(m.starters)-1 {
					m.selected++
				}
				return m, nil
			case key.Matches(msg, DefaultKeyMap.Enter):
				m.step = StepPort
				m.portInput.Focus()
				return m, textinput.Blink
			case key.Matches(msg, DefaultKeyMap.Back):
				m.step = StepName
				m.nameInput.Focus()
				return m, textinput.Blink
			}
			return m, nil

		case StepPort:
			if key.Matches(msg, DefaultKeyMap.Enter) {
				return m.submitPort()
			}
			if key.Matches(msg, DefaultKeyMap.Back) {
				m.step = StepStarter
				m.portInput.Blur()
				return m, nil
			}

		case StepSummary:
			if key.Matches(msg, DefaultKeyMap.Enter) {
				m.accepted = true
				m.quitting = true
				return m, tea.Quit
			}
			if key.Matches(msg, DefaultKeyMap.Back) {
				m.step = StepPort
				m.portInput.Focus()
				return m, textinput.Blink
			}
			return m, nil
		}
	}

	// Route everything else to the focused input
	var cmd tea.Cmd
	switch m.step {
	case StepName:
		m.nameInput, cmd = m.nameInput.Update(msg)
	case StepPort:
		m.portInput, cmd = m.portInput.Update(msg)
	}
	return m, cmd
}

func (m Model) submitName() (tea.Model, tea.Cmd) {
	if !validName(m.nameInput.Value()) {
		m.errorMessage = "names use letters, digits, - and _ only"
		return m, nil
	}
	m.errorMessage = ""
	m.step = StepStarter
	m.nameInput.Blur()
	return m, nil
}

func (m Model) submitPort() (tea.Model, tea.Cmd) {
	port, err := strconv.Atoi(m.portInput.Value())
	if err != nil || port < 1 || port > 65535 {
		m.errorMessage = "port must be a number between 1 and 65535"
		return m, nil
	}
	m.errorMessage = ""
	m.step = StepSummary
	m.portInput.Blur()
	return m, nil
}

func validName(name string) bool {
	if name == "" || len(name) > 50 {
		return false
	}
	for _, ch := range name {
		if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') || ch == '-' || ch == '_') {
			return false
		}
	}
	return true
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	switch m.step {
	case StepName:
		return m.renderName()
	case StepStarter:
		return m.renderStarter()
	case StepPort:
		return m.renderPort()
	case StepSummary:
		return m.renderSummary()
	}
	return ""
}

// Result returns what the wizard collected.
func (m Model) Result() Result {
	port, err := strconv.Atoi(m.portInput.Value())
	if err != nil {
		port = 8080
	}
	starter := ""
	if len(m.starters) > 0 {
		starter = m.starters[m.selected].Name
	}
	return Result{
		Name:     m.nameInput.Value(),
		Starter:  starter,
		Port:     port,
		Accepted: m.accepted,
	}
}
