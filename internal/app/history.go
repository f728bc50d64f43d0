package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pulse/internal/behavior"
	"github.com/blackwell-systems/pulse/internal/output"
)

var (
	historyFrom string
	historyTo   string
	historyDays int
	historyKey  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List behavior events in a time range",
	Long: `List recorded behavior events, oldest first. By default the last day is
shown; use --days for a longer window or --from/--to for an explicit range.

Examples:
  pulse history
  pulse history --days 7 --key nutrition.log_food
  pulse history --from 2026-03-01T00:00:00Z --to 2026-03-08T00:00:00Z --json`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyFrom, "from", "", "Range start (RFC 3339 or HH:MM today)")
	historyCmd.Flags().StringVar(&historyTo, "to", "", "Range end (RFC 3339 or HH:MM today; default now)")
	historyCmd.Flags().IntVar(&historyDays, "days", 1, "Window length in days when --from is not set")
	historyCmd.Flags().StringVar(&historyKey, "key", "", "Only show this action key")
	rootCmd.AddCommand(historyCmd)
}

// historyRange resolves the --from/--to/--days flags against now.
func historyRange(from, to string, days int, now time.Time) (time.Time, time.Time, error) {
	end, err := parseAt(to, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if from == "" {
		if days <= 0 {
			return time.Time{}, time.Time{}, fmt.Errorf("--days must be positive, got %d", days)
		}
		return end.AddDate(0, 0, -days), end, nil
	}
	start, err := parseAt(from, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func filterEvents(events []behavior.Event, key string) []behavior.Event {
	if key == "" {
		return events
	}
	out := make([]behavior.Event, 0, len(events))
	for _, e := range events {
		if e.ActionKey == key {
			out = append(out, e)
		}
	}
	return out
}

func runHistory(cmd *cobra.Command, args []string) error {
	from, to, err := historyRange(historyFrom, historyTo, historyDays, time.Now())
	if err != nil {
		return err
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	events, err := e.db.EventsBetween(from, to)
	if err != nil {
		return fmt.Errorf("loading events: %w", err)
	}
	events = filterEvents(events, historyKey)

	if flagJSON {
		if events == nil {
			events = []behavior.Event{}
		}
		return printJSON(events)
	}

	fmt.Println(output.Section(fmt.Sprintf("Events %s to %s", from.Format("Jan 2 15:04"), to.Format("Jan 2 15:04"))))
	fmt.Println()
	if len(events) == 0 {
		fmt.Println(" No events in range.")
		return nil
	}
	tbl := output.NewTable("When", "Action", "Outcome", "Surface")
	for _, ev := range events {
		tbl.AddRow(ev.OccurredAt.Local().Format("Mon 15:04"), ev.ActionKey, string(ev.Outcome), output.StyleMuted.Render(string(ev.Surface)))
	}
	tbl.Print()
	return nil
}
