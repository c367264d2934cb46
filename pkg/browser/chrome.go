package browser

import (
	"os/exec"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
)

// IsChromeInstalled reports whether a usable Chrome or Chromium binary can
// be resolved on this machine.
func IsChromeInstalled() bool {
	_, err := launcher.NewBrowser().Get()
	return err == nil
}

// ChromeVersion returns the version string of the browser binary. When
// execPath is empty the binary is resolved the same way Open resolves it.
func ChromeVersion(execPath string) (string, error) {
	if execPath == "" {
		path, err := launcher.NewBrowser().Get()
		if err != nil {
			return "", err
		}
		execPath = path
	}

	out, err := exec.Command(execPath, "--version").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
