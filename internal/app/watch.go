package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pulse/internal/output"
	"github.com/blackwell-systems/pulse/internal/pulse"
	"github.com/blackwell-systems/pulse/internal/watcher"
)

var (
	watchInterval time.Duration
	watchNotify   bool
	watchQuiet    bool
)

// minWatchInterval keeps the loop from hammering the database.
const minWatchInterval = 30 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Recompute guidance periodically and print only what changed",
	Long: `Run a foreground loop that recomputes today's recommendation at every
interval. A line is printed only when something new should reach you: a
different next step, a phase change such as falling behind or rescue, or a
reminder that just became overdue.

Examples:
  pulse watch                    # check every 5 minutes (ctrl-c to stop)
  pulse watch --interval 15m
  pulse watch --notify           # also send desktop notifications`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Check interval (default from config)")
	watchCmd.Flags().BoolVar(&watchNotify, "notify", false, "Send desktop notifications")
	watchCmd.Flags().BoolVar(&watchQuiet, "quiet", false, "Suppress terminal output, only send notifications")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	interval := watchInterval
	if interval <= 0 {
		interval = e.cfg.Watch.Interval
	}
	if interval < minWatchInterval {
		return fmt.Errorf("interval must be at least %s, got %s", minWatchInterval, interval)
	}

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()

	policy := pulse.NewPolicyEngine(e.db, e.cfg.Policy, e.logger)
	snapshot := func(ctx context.Context, now time.Time) (*watcher.WatchState, error) {
		s, err := surface(ctx, e, policy, nil, now)
		if err != nil {
			return nil, err
		}
		return &watcher.WatchState{
			Timestamp:         now,
			Phase:             s.Recommendation.Phase,
			Surfaced:          s.Snapshot,
			CaloriesRemaining: s.Context.CaloriesRemaining(),
			ProteinRemaining:  s.Context.ProteinRemaining(),
			PendingReminders:  len(s.Context.PendingReminders),
			MissedReminders:   s.Context.MissedReminderCount,
		}, nil
	}

	alertFn := func(a watcher.Alert) {
		if watchNotify {
			_ = watcher.Notify(a)
		}
		if !watchQuiet {
			printAlert(a)
		}
	}

	if !watchQuiet {
		fmt.Printf("pulse watching... (checking every %s)\n", interval)
	}

	w := watcher.New(snapshot, interval, alertFn, e.logger)
	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		if !watchQuiet {
			fmt.Println("\nStopped.")
		}
		return nil
	}
	return err
}

// printAlert formats and prints an alert to the terminal.
func printAlert(a watcher.Alert) {
	timestamp := a.Time.Format("15:04")
	fmt.Printf("[%s] %s %s\n", timestamp, alertIcon(a.Level), a.Title)
	if a.Message != "" {
		fmt.Printf("        %s\n", a.Message)
	}
}

// alertIcon returns the terminal indicator for an alert level.
func alertIcon(level string) string {
	switch level {
	case watcher.LevelCritical:
		return output.StyleError.Render("●")
	case watcher.LevelWarning:
		return output.StyleWarning.Render("▲")
	case watcher.LevelInfo:
		return output.StyleSuccess.Render("✓")
	default:
		return " "
	}
}

