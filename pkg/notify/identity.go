package notify

import (
	"fmt"
	"os"
	"path/filepath"
)

// RegisterIdentity installs a desktop entry for appID so notification
// servers can attribute notifications to the application and show its
// name and icon. Failure is non-fatal for the caller: notifications
// still work, they just show up unattributed.
func RegisterIdentity(execPath, appID, displayName, image string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("notify: home dir: %w", err)
	}

	dir := filepath.Join(home, ".local", "share", "applications")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("notify: applications dir: %w", err)
	}

	entry := fmt.Sprintf("[Desktop Entry]\nType=Application\nName=%s\nExec=%s\nTerminal=true\n", displayName, execPath)
	if image != "" {
		entry += "Icon=" + image + "\n"
	}

	path := filepath.Join(dir, appID+".desktop")
	if err := os.WriteFile(path, []byte(entry), 0o644); err != nil {
		return fmt.Errorf("notify: write desktop entry: %w", err)
	}
	return nil
}
