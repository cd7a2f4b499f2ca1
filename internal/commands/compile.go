package commands

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewCompileCmd creates the compile command.
func NewCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile [model-name]",
		Short: "Render model SQL with refs and sources resolved",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			return runCompile(name)
		},
	}
}

func runCompile(name string) error {
	_, reg, err := loadProject(context.Background())
	if err != nil {
		return err
	}

	names := []string{name}
	if name == "" {
		order, err := reg.Graph().TopoOrder()
		if err != nil {
			return err
		}
		names = order
	}

	bold := color.New(color.Bold)
	for _, n := range names {
		compiled, err := reg.Compile(n)
		if err != nil {
			return fmt.Errorf("compiling %s: %w", n, err)
		}
		rel, err := reg.RelationFor(n)
		if err != nil {
			return err
		}
		_, _ = bold.Printf("-- %s (%s)\n", n, rel)
		fmt.Println(compiled)
		fmt.Println()
	}
	return nil
}
