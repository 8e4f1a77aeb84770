package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/weftlabs/weft/cmd/weft/cli_templates"
	"github.com/weftlabs/weft/cmd/weft/internal/ui"
)

// runCreateWizard collects project settings through the TUI, then hands
// off to the same createProject path the flags use.
func runCreateWizard(name string, gitInit bool) error {
	var starters []ui.StarterChoice
	for _, starterName := range cli_templates.Names() {
		starters = append(starters, ui.StarterChoice{
			Name:        starterName,
			Description: cli_templates.Registry[starterName].Description(),
		})
	}

	result, err := ui.Run(name, starters)
	if errors.Is(err, ui.ErrCancelled) {
		fmt.Println("👋 Maybe next time!")
		return nil
	}
	if err != nil {
		return err
	}

	config := &cli_templates.ProjectConfig{
		Name:      result.Name,
		Directory: result.Name,
		Starter:   result.Starter,
		Port:      result.Port,
		GitInit:   gitInit,
	}
	return createProject(config)
}

// initGitRepo initializes a git repository with an initial commit.
func initGitRepo(projectPath string) error {
	cmd := exec.Command("git", "init")
	cmd.Dir = projectPath
	if err := cmd.Run(); err != nil {
		return err
	}

	cmd = exec.Command("git", "add", ".")
	cmd.Dir = projectPath
	if err := cmd.Run(); err != nil {
		return err
	}

	cmd = exec.Command("git", "commit", "-m", "Initial commit")
	cmd.Dir = projectPath
	return cmd.Run()
}

// isTerminal reports whether stdout is attached to a terminal.
func isTerminal() bool {
	fileInfo, _ := os.Stdout.Stat()
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
