package watcher

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
)

// FormatAlert renders an alert as a single line.
func FormatAlert(alert Alert) string {
	return fmt.Sprintf("[%s] %s: %s", alert.Level, alert.Title, alert.Message)
}

// Notify sends a desktop notification for the alert: osascript on macOS,
// notify-send on Linux, stderr everywhere else or when those fail.
func Notify(alert Alert) error {
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`display notification %q with title "pulse" subtitle %q`, alert.Message, alert.Title)
		if err := exec.Command("osascript", "-e", script).Run(); err == nil {
			return nil
		}
	case "linux":
		if _, err := exec.LookPath("notify-send"); err == nil {
			if err := exec.Command("notify-send", "pulse: "+alert.Title, alert.Message).Run(); err == nil {
				return nil
			}
		}
	}
	return writeAlert(os.Stderr, alert)
}

func writeAlert(w io.Writer, alert Alert) error {
	_, err := fmt.Fprintln(w, FormatAlert(alert))
	return err
}
