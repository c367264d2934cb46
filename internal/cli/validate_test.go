package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand(t *testing.T) {
	t.Run("command exists", func(t *testing.T) {
		cmd := GetRootCmd()

		found := false
		for _, c := range cmd.Commands() {
			if c.Name() == "validate" {
				found = true
				break
			}
		}
		assert.True(t, found, "validate command should exist")
	})

	t.Run("help text", func(t *testing.T) {
		helpText := runRoot(t, "validate", "--help")

		assert.Contains(t, helpText, "without running")
	})

	t.Run("valid scenario", func(t *testing.T) {
		tmpDir := t.TempDir()
		cfgPath := writeCLITestConfig(t, tmpDir)
		scPath := filepath.Join(tmpDir, "smoke.json")

		scenarioJSON := `{
			"name": "smoke",
			"steps": [
				{"action": "open", "params": {"headless": true}},
				{"action": "sleep", "params": {"seconds": 1}},
				{"action": "close", "params": {}}
			]
		}`
		require.NoError(t, os.WriteFile(scPath, []byte(scenarioJSON), 0644))
		defer resetConfigFlag()

		_, err := execRoot("--config", cfgPath, "validate", scPath)
		require.NoError(t, err)
	})

	t.Run("unknown action", func(t *testing.T) {
		tmpDir := t.TempDir()
		cfgPath := writeCLITestConfig(t, tmpDir)
		scPath := filepath.Join(tmpDir, "broken.json")

		scenarioJSON := `{
			"name": "broken",
			"steps": [
				{"action": "explode", "params": {}}
			]
		}`
		require.NoError(t, os.WriteFile(scPath, []byte(scenarioJSON), 0644))
		defer resetConfigFlag()

		_, err := execRoot("--config", cfgPath, "validate", scPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown action")
	})
}

// writeCLITestConfig writes a config file pinning all data paths to tmpDir so
// command tests never touch the real home directory.
func writeCLITestConfig(t *testing.T, tmpDir string) string {
	t.Helper()

	configJSON, err := json.Marshal(map[string]interface{}{
		"data_dir": tmpDir,
	})
	require.NoError(t, err)

	cfgPath := filepath.Join(tmpDir, "rudder.json")
	require.NoError(t, os.WriteFile(cfgPath, configJSON, 0644))
	return cfgPath
}

// resetConfigFlag clears the persistent --config value so later tests load
// defaults instead of a previous test's temp directory.
func resetConfigFlag() {
	cfgFile = ""
}
