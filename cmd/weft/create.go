package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/weftlabs/weft/cmd/weft/cli_templates"
)

func newCreateCommand() *cobra.Command {
	var (
		starter       string
		port          int
		interactive   bool
		noInteractive bool
		noGit         bool
	)

	cmd := &cobra.Command{
		Use:          "create [name]",
		Short:        "Create a new weft project",
		Long:         `Scaffolds a new weft project: starter modules under src/, a weft.yaml config and a dev-ready index.html.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}

			useInteractive := !noInteractive && isTerminal() && (interactive || name == "")

			if useInteractive {
				return runCreateWizard(name, !noGit)
			}

			if name == "" {
				return fmt.Errorf("project name required, or run in a terminal for the interactive wizard")
			}

			config := &cli_templates.ProjectConfig{
				Name:      name,
				Directory: name,
				Starter:   starter,
				Port:      port,
				GitInit:   !noGit,
			}
			return createProject(config)
		},
	}

	cmd.Flags().StringVarP(&starter, "starter", "s", "counter", fmt.Sprintf("Starter template (%s)", strings.Join(cli_templates.Names(), ", ")))
	cmd.Flags().IntVar(&port, "port", 8080, "Dev server port written to weft.yaml")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Force the interactive wizard")
	cmd.Flags().BoolVar(&noInteractive, "no-interactive", false, "Force non-interactive mode")
	cmd.Flags().BoolVar(&noGit, "no-git", false, "Skip git repository initialization")

	return cmd
}

// createProject validates the configuration, generates the project files
// and prints next steps. Shared by the flag and wizard paths.
func createProject(config *cli_templates.ProjectConfig) error {
	if !cli_templates.ValidName(config.Name) {
		return fmt.Errorf("invalid project name %q: use letters, digits, - and _", config.Name)
	}
	if _, err := os.Stat(config.Directory); err == nil {
		return fmt.Errorf("directory %s already exists", config.Directory)
	}

	fmt.Printf("🔨 Creating %s...\n", config.Name)

	if err := cli_templates.Generate(config); err != nil {
		return fmt.Errorf("failed to generate project: %w", err)
	}

	if config.GitInit {
		if err := initGitRepo(config.Directory); err != nil {
			fmt.Printf("⚠️  Failed to initialize git: %v\n", err)
		}
	}

	fmt.Printf("\n✨ Project '%s' created successfully!\n", config.Name)
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  cd %s\n", config.Directory)
	fmt.Printf("  weft dev\n")
	return nil
}
