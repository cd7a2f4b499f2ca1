package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telemart-systems/telemart/internal/check"
	"github.com/telemart-systems/telemart/pkg/types"
)

// NewTestCmd creates the test command, which runs declared data checks
// against already-materialized relations without rebuilding anything.
func NewTestCmd() *cobra.Command {
	var modelName string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run data checks against materialized models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChecks(modelName)
		},
	}

	cmd.Flags().StringVarP(&modelName, "model", "m", "", "Check only this model")
	return cmd
}

func runChecks(modelName string) error {
	ctx := context.Background()

	cfg, reg, err := loadProject(ctx)
	if err != nil {
		return err
	}

	db, err := openAdapter(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.Target, err)
	}
	defer db.Close()

	runner := check.NewRunner(reg, db)

	var results []types.CheckResult
	if modelName != "" {
		results, err = runner.RunModel(ctx, modelName)
	} else {
		results, err = runner.RunAll(ctx)
	}
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No checks declared.")
		return nil
	}

	printCheckResults(results)

	failed := 0
	for _, cr := range results {
		if cr.Status != types.CheckPass {
			failed++
		}
	}
	fmt.Println()
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(results))
	}
	fmt.Printf("All %d checks passed.\n", len(results))
	return nil
}
