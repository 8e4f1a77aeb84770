package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.2.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "weft",
		Short: "Weft - a template compiler for .wx UI modules",
		Long: `Weft compiles .wx modules, ES modules with embedded markup, into
plain JavaScript. Each markup subtree becomes a hoisted template with a
static skeleton and a table of dynamic parts that the weft runtime fills
in at mount time.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}

	// Add commands
	rootCmd.AddCommand(newBuildCommand())
	rootCmd.AddCommand(newDevCommand())
	rootCmd.AddCommand(newCreateCommand())
	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the weft version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("weft %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
