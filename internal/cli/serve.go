package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harun/rudder/internal/config"
	"github.com/harun/rudder/internal/daemon"
	"github.com/harun/rudder/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Rudder daemon in the foreground",
	Long: `Run the Rudder daemon in the foreground.
The daemon owns one browser session and serializes every scenario run and
gateway call through it. It keeps running until SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}

	// Refuse to start a second daemon against the same data directory.
	pidFile := filepath.Join(cfg.DataDir, "rudder.pid")
	if isRunning(pidFile) {
		return fmt.Errorf("daemon is already running (PID file: %s)", pidFile)
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    true,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	d, err := daemon.New(cfg, log)
	if err != nil {
		return err
	}

	if err := d.Start(); err != nil {
		return err
	}

	fmt.Printf("Rudder daemon running (PID %d)\n", os.Getpid())
	if cfg.Gateway.Enabled {
		fmt.Printf("Gateway: http://%s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	}

	d.Wait()
	return nil
}

func getPIDFilePath() string {
	cfg, err := config.Load(cfgFile)
	if err == nil && cfg.DataDir != "" {
		return filepath.Join(cfg.DataDir, "rudder.pid")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/rudder.pid"
	}
	return filepath.Join(home, ".rudder", "rudder.pid")
}

func isRunning(pidFile string) bool {
	if _, err := os.Stat(pidFile); os.IsNotExist(err) {
		return false
	}

	// Read PID and check if process exists
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return false
	}

	var pid int
	_, err = fmt.Sscanf(string(data), "%d", &pid)
	if err != nil {
		return false
	}

	// os.FindProcess always succeeds on Unix; only signal 0 says whether
	// the process is alive.
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
