package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
}

// NewWizard creates a new configuration wizard
func NewWizard() *Wizard {
	return &Wizard{
		reader: bufio.NewReader(os.Stdin),
	}
}

// Run runs the interactive configuration wizard
func (w *Wizard) Run() (*Config, error) {
	fmt.Println("=== Rudder Configuration Wizard ===")
	fmt.Println()

	cfg := DefaultConfig()
	validator := NewValidator()

	// Browser defaults
	fmt.Println("Browser:")
	fmt.Println()

	fmt.Print("Run browser headless by default? (y/n) [n]: ")
	headless, err := w.readLine()
	if err != nil {
		return nil, err
	}
	cfg.Browser.Headless = strings.ToLower(headless) == "y"

	fmt.Print("Allow navigation to localhost? (y/n) [y]: ")
	localhost, err := w.readLine()
	if err != nil {
		return nil, err
	}
	cfg.Browser.AllowLocalhost = localhost == "" || strings.ToLower(localhost) == "y"

	fmt.Println()

	// Scenario library
	fmt.Println("Scenarios:")
	fmt.Print("Scenario directory (press Enter for default): ")
	dir, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if dir != "" {
		cfg.Scenarios.Dir = dir
	}

	fmt.Println()

	// Gateway
	fmt.Println("Gateway:")
	fmt.Print("Enable the WebSocket gateway? (y/n) [n]: ")
	enable, err := w.readLine()
	if err != nil {
		return nil, err
	}

	if strings.ToLower(enable) == "y" {
		cfg.Gateway.Enabled = true

		fmt.Printf("Gateway port [%d]: ", cfg.Gateway.Port)
		portStr, err := w.readLine()
		if err != nil {
			return nil, err
		}
		if portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil || validator.ValidatePort(port) != nil {
				fmt.Printf("Warning: invalid port, using default (%d)\n", cfg.Gateway.Port)
			} else {
				cfg.Gateway.Port = port
			}
		}

		// Shared secret is mandatory for an enabled gateway
		for {
			fmt.Print("Gateway shared secret (min 16 chars): ")
			secret, err := w.readLine()
			if err != nil {
				return nil, err
			}

			if err := validator.ValidateSharedSecret(secret); err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}

			cfg.Gateway.SharedSecret = secret
			break
		}
	}

	fmt.Println()

	// Log Level
	fmt.Println("Logging:")
	fmt.Print("Log level (debug/info/warn/error) [info]: ")
	level, err := w.readLine()
	if err != nil {
		return nil, err
	}

	if level != "" {
		if err := validator.ValidateLogLevel(level); err != nil {
			fmt.Printf("Warning: %v, using default (info)\n", err)
		} else {
			cfg.Logging.Level = level
		}
	}

	fmt.Println()
	fmt.Println("Configuration complete!")

	return cfg, nil
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
