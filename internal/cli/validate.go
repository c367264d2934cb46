package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/harun/rudder/internal/config"
	"github.com/harun/rudder/pkg/scenario"
)

var validateCmd = &cobra.Command{
	Use:   "validate <scenario.json>",
	Short: "Validate a scenario file without running it",
	Long: `Validate a scenario file without running it.

Checks that the file parses, that every step names a registered action and
that required parameters are present.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sc, err := scenario.NewLoader(zerolog.Nop()).Load(path)
	if err != nil {
		return fmt.Errorf("failed to load scenario: %w", err)
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

	if err := scenario.ValidateActions(sc, runner.Registry()); err != nil {
		return err
	}

	fmt.Printf("%s is valid: scenario %q, %d steps\n", path, sc.Name, len(sc.Steps))
	return nil
}
