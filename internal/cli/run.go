package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harun/rudder/internal/config"
	"github.com/harun/rudder/internal/logger"
	"github.com/harun/rudder/pkg/actions"
	"github.com/harun/rudder/pkg/browser"
	"github.com/harun/rudder/pkg/executor"
	"github.com/harun/rudder/pkg/history"
	"github.com/harun/rudder/pkg/scenario"
)

var watchMode bool

var runCmd = &cobra.Command{
	Use:   "run <scenario.json>",
	Short: "Run a scenario file",
	Long: `Run a scenario file against a locally launched browser.

The browser launches on the first step that needs it and closes when the
run finishes. With --watch the browser stays open and the scenario reruns
every time the file is saved.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&watchMode, "watch", false, "Rerun the scenario whenever the file changes")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		Console:   true,
		Pretty:    true,
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	exec, runner, err := newActionStack(cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := exec.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shut down executor")
		}
	}()

	loader := scenario.NewLoader(log.GetZerolog())

	var sinks []scenario.EventSink
	if cfg.History.Enabled {
		store, err := history.NewStore(history.Config{
			DBPath: cfg.History.Path,
			Logger: log.GetZerolog(),
			MaxAge: time.Duration(cfg.History.RetentionDays) * 24 * time.Hour,
		})
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, history.NewRecorder(store, log.GetZerolog()))
	}

	scenarios := scenario.NewRunner(runner, sinks...)

	watch := watchMode
	if !cmd.Flags().Changed("watch") && cfg.Scenarios.Watch {
		watch = true
	}

	if !watch {
		sc, err := loader.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load scenario: %w", err)
		}
		result, runErr := scenarios.Run(context.Background(), sc)
		if result != nil {
			printRunResult(result)
		}
		return runErr
	}

	return watchAndRun(loader, scenarios, path)
}

// watchAndRun runs the scenario once, then reruns it on every save until
// SIGINT or SIGTERM. The browser session survives across reruns so page
// state carries over while the scenario is being edited.
func watchAndRun(loader *scenario.Loader, scenarios *scenario.Runner, path string) error {
	rerun := func(p string) error {
		sc, err := loader.Load(p)
		if err != nil {
			fmt.Printf("Load failed: %v\n", err)
			return err
		}
		result, runErr := scenarios.Run(context.Background(), sc)
		if result != nil {
			printRunResult(result)
		}
		return runErr
	}

	// First run happens before the watch starts so a broken file shows up
	// immediately instead of on the next save.
	_ = rerun(path)

	watcher, err := scenario.NewWatcher(path, 0, rerun)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Stop()

	fmt.Printf("Watching %s (Ctrl+C to stop)\n", path)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Stopping watch mode...")
	return nil
}

func printRunResult(result *scenario.RunResult) {
	fmt.Printf("\nScenario: %s (run %s)\n", result.Scenario, result.RunID)
	for _, step := range result.Steps {
		line := fmt.Sprintf("  [%d] %-16s %s (%dms)", step.Index, step.Action, step.Status, step.DurationMS)
		if step.Error != "" {
			line += ": " + step.Error
		}
		fmt.Println(line)
	}
	fmt.Printf("Status: %s in %s\n", result.Status, result.Finished.Sub(result.Started).Round(time.Millisecond))
}

// newActionStack builds the browser session, executor and action runner the
// one-shot commands share. The caller owns the executor and must shut it
// down; the browser only launches when a step first needs it.
func newActionStack(cfg *config.Config) (*executor.Executor, *actions.Runner, error) {
	policy := browser.NewSecurityPolicy(browser.SecurityPolicyConfig{
		AllowFileURLs:  cfg.Browser.AllowFileURLs,
		AllowLocalhost: cfg.Browser.AllowLocalhost,
		AllowedDomains: cfg.Browser.AllowedDomains,
		BlockedDomains: cfg.Browser.BlockedDomains,
	})
	session := browser.NewSession(policy, browser.Defaults{
		Headless:          cfg.Browser.Headless,
		ExecPath:          cfg.Browser.ExecPath,
		Timeout:           time.Duration(cfg.Browser.DefaultTimeoutMs) * time.Millisecond,
		NavigationTimeout: time.Duration(cfg.Browser.NavigationTimeoutMs) * time.Millisecond,
	})

	exec := executor.New(session)

	runner, err := actions.NewRunner(exec, session, nil)
	if err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = exec.Shutdown(shutdownCtx)
		cancel()
		return nil, nil, fmt.Errorf("failed to create action runner: %w", err)
	}

	return exec, runner, nil
}
