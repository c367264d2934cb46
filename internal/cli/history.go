package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/harun/rudder/internal/config"
	"github.com/harun/rudder/pkg/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded scenario runs",
	Long: `Show recorded scenario runs.

Without arguments the most recent runs are listed. With a run ID the full
run is shown, step by step.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history is disabled in the configuration")
	}

	store, err := history.NewStore(history.Config{
		DBPath: cfg.History.Path,
		Logger: zerolog.Nop(),
	})
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	if len(args) == 1 {
		return printRun(ctx, store, args[0])
	}
	return printRunList(ctx, store)
}

func printRunList(ctx context.Context, store *history.Store) error {
	runs, err := store.List(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs")
		return nil
	}

	for _, run := range runs {
		duration := ""
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Printf("%s  %-24s %-10s %s %s\n",
			run.ID, run.Scenario, run.Status,
			run.StartedAt.Format(time.RFC3339), duration)
	}
	return nil
}

func printRun(ctx context.Context, store *history.Store, id string) error {
	run, err := store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}

	fmt.Printf("Run: %s\n", run.ID)
	fmt.Printf("Scenario: %s\n", run.Scenario)
	fmt.Printf("Status: %s\n", run.Status)
	if run.Error != "" {
		fmt.Printf("Error: %s\n", run.Error)
	}
	fmt.Printf("Started: %s\n", run.StartedAt.Format(time.RFC3339))
	if run.FinishedAt != nil {
		fmt.Printf("Finished: %s\n", run.FinishedAt.Format(time.RFC3339))
	}
	for _, step := range run.Steps {
		line := fmt.Sprintf("  [%d] %-16s %s (%dms)", step.Index, step.Action, step.Status, step.DurationMS)
		if step.Error != "" {
			line += ": " + step.Error
		}
		fmt.Println(line)
	}
	return nil
}
