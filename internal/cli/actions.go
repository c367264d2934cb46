package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harun/rudder/internal/config"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List available scenario actions",
	Long:  `List every registered action with its parameters.`,
	RunE:  runActions,
}

func init() {
	rootCmd.AddCommand(actionsCmd)
}

func runActions(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	exec, runner, err := newActionStack(cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = exec.Shutdown(shutdownCtx)
		cancel()
	}()

	for _, def := range runner.Registry().List() {
		fmt.Printf("%s\n  %s\n", def.Name, def.Description)
		for _, p := range def.Parameters {
			required := ""
			if p.Required {
				required = " (required)"
			}
			fmt.Printf("    %-12s %s%s: %s\n", p.Name, p.Type, required, p.Description)
		}
		fmt.Println()
	}

	return nil
}
