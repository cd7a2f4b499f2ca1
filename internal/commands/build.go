package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/telemart-systems/telemart/internal/engine"
	"github.com/telemart-systems/telemart/pkg/types"
)

// NewBuildCmd creates the build command.
func NewBuildCmd() *cobra.Command {
	var (
		selectModels []string
		skipChecks   bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Materialize models in dependency order",
		Long:  "Compiles every model, orders them by their ref dependencies, and materializes each one as a view or table in the target warehouse.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(selectModels, skipChecks)
		},
	}

	cmd.Flags().StringSliceVarP(&selectModels, "select", "s", nil, "Build only these models and their upstream dependencies")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip data checks after materialization")
	return cmd
}

func runBuild(selectModels []string, skipChecks bool) error {
	ctx := context.Background()

	cfg, reg, err := loadProject(ctx)
	if err != nil {
		return err
	}

	logger := newLogger(false)
	eng, _, _, cleanup, err := buildEngine(ctx, cfg, reg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := eng.Run(ctx, engine.RunOptions{
		Select:     selectModels,
		Target:     cfg.Target,
		SkipChecks: skipChecks,
	})
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	printBuildResult(result)

	if result.Failed() {
		return fmt.Errorf("run %s finished with failures", result.Run.RunID)
	}
	return nil
}

func printBuildResult(result *engine.Result) {
	bold := color.New(color.Bold)
	_, _ = bold.Printf("Run %s (%s)\n\n", result.Run.RunID, result.Run.Target)

	for _, mr := range result.Models {
		dur := ""
		if mr.CompletedAt != nil {
			dur = mr.CompletedAt.Sub(mr.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Printf("  %-30s %-12s %-8s %s\n", mr.Model, statusColor(mr.Status), mr.Materialization, dur)
		if mr.Error != "" {
			color.Red("    %s", mr.Error)
		}
	}

	if len(result.Checks) > 0 {
		fmt.Println()
		_, _ = bold.Println("Checks:")
		printCheckResults(result.Checks)
	}

	fmt.Println()
	switch result.Run.Status {
	case types.RunSuccess:
		if result.Failed() {
			color.Yellow("Build succeeded with failing checks")
		} else {
			color.Green("Build succeeded")
		}
	default:
		color.Red("Build failed: %s", result.Run.Error)
	}
}

func printCheckResults(checks []types.CheckResult) {
	for _, cr := range checks {
		label := string(cr.CheckType)
		if cr.Column != "" {
			label += "(" + cr.Column + ")"
		}
		switch cr.Status {
		case types.CheckPass:
			color.Green("  ✓ %-30s %s", cr.Model, label)
		case types.CheckFail:
			color.Red("  ✗ %-30s %s: %s", cr.Model, label, cr.Reason)
		default:
			color.Yellow("  ! %-30s %s: %s", cr.Model, label, cr.Reason)
		}
	}
}
