package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/telemart-systems/telemart/internal/commands"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "telemart",
		Short: "Dependency-ordered mart builder for Telegram analytics",
		Long: `Telemart materializes an analytical data mart from raw Telegram ingestion
data. Models are declarative SELECT statements with ref/source template
references; telemart resolves them into a dependency graph, materializes each
model as a view or table in topological order, and runs declared data checks
against the results.`,
		Version: version,
	}

	root.AddCommand(
		commands.NewInitCmd(),
		commands.NewCompileCmd(),
		commands.NewBuildCmd(),
		commands.NewTestCmd(),
		commands.NewLsCmd(),
		commands.NewStatusCmd(),
		commands.NewServeCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
