package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/telemart-systems/telemart/internal/store"
	"github.com/telemart-systems/telemart/pkg/types"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status [run-id]",
		Short: "Show recent runs and their model outcomes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) > 0 {
				runID = args[0]
			}
			return runStatus(runID, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	return cmd
}

func runStatus(runID string, limit int) error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	cfg, _, err := loadProject(ctx)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if st == nil {
		return fmt.Errorf("no metadata store configured; set store.dsn in telemart.yaml")
	}
	defer st.Close()

	if runID != "" {
		return showRun(ctx, st, runID)
	}
	return showRecentRuns(ctx, st, limit)
}

func showRecentRuns(ctx context.Context, st store.Store, limit int) error {
	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	bold := color.New(color.Bold)
	_, _ = bold.Printf("%-28s %-10s %-10s %s\n", "RUN", "STATUS", "TARGET", "STARTED")
	for _, r := range runs {
		fmt.Printf("%-28s %-10s %-10s %s\n", r.RunID, statusColor(r.Status), r.Target, r.StartedAt.Format(time.RFC3339))
	}
	return nil
}

func showRun(ctx context.Context, st store.Store, runID string) error {
	run, err := st.GetRun(ctx, runID)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	_, _ = bold.Printf("Run %s\n", run.RunID)
	fmt.Printf("  Status:  %s\n", statusColor(run.Status))
	fmt.Printf("  Target:  %s\n", run.Target)
	fmt.Printf("  Started: %s\n", run.StartedAt.Format(time.RFC3339))
	if run.CompletedAt != nil {
		fmt.Printf("  Took:    %s\n", run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	if run.Error != "" {
		color.Red("  Error:   %s", run.Error)
	}

	mrs, err := st.ListModelRuns(ctx, runID)
	if err != nil {
		return fmt.Errorf("listing model runs: %w", err)
	}
	if len(mrs) > 0 {
		fmt.Println()
		_, _ = bold.Println("  Models:")
		for _, mr := range mrs {
			fmt.Printf("    %-30s %-10s %s\n", mr.Model, statusColor(mr.Status), mr.Relation)
			if mr.Error != "" {
				color.Red("      %s", mr.Error)
			}
		}
	}

	checks, err := st.ListCheckResults(ctx, runID)
	if err != nil {
		return fmt.Errorf("listing check results: %w", err)
	}
	if len(checks) > 0 {
		fmt.Println()
		_, _ = bold.Println("  Checks:")
		for _, cr := range checks {
			label := string(cr.CheckType)
			if cr.Column != "" {
				label += "(" + cr.Column + ")"
			}
			switch cr.Status {
			case types.CheckPass:
				color.Green("    ✓ %s %s", cr.Model, label)
			default:
				color.Red("    ✗ %s %s: %s", cr.Model, label, cr.Reason)
			}
		}
	}

	fmt.Println()
	return nil
}
