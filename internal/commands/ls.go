package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewLsCmd creates the ls command.
func NewLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List models in build order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLs()
		},
	}
}

func runLs() error {
	_, reg, err := loadProject(context.Background())
	if err != nil {
		return err
	}

	order, err := reg.Graph().TopoOrder()
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	_, _ = bold.Printf("%-30s %-8s %-40s %s\n", "MODEL", "KIND", "RELATION", "DEPS")
	for _, name := range order {
		m, err := reg.Get(name)
		if err != nil {
			return err
		}
		rel, err := reg.RelationFor(name)
		if err != nil {
			return err
		}
		fmt.Printf("%-30s %-8s %-40s %s\n", name, m.Materialization(), rel, strings.Join(m.Deps, ", "))
	}
	return nil
}
