package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pulse/internal/behavior"
	"github.com/blackwell-systems/pulse/internal/output"
	"github.com/blackwell-systems/pulse/internal/patterns"
	"github.com/blackwell-systems/pulse/internal/store"
)

var (
	reminderAll bool
	reminderAt  string
)

var reminderCmd = &cobra.Command{
	Use:   "reminder",
	Short: "Manage daily reminders",
	Long: `Manage custom daily reminders. Completions feed the habit score that
decides which pending reminder pulse suggests.

Examples:
  pulse reminder add "Vitamins" 08:00
  pulse reminder complete vitamins
  pulse reminder list
  pulse reminder remove vitamins`,
}

var reminderAddCmd = &cobra.Command{
	Use:   "add <title> <HH:MM>",
	Short: "Add a daily reminder",
	Args:  cobra.ExactArgs(2),
	RunE:  runReminderAdd,
}

var reminderCompleteCmd = &cobra.Command{
	Use:   "complete <id or title>",
	Short: "Mark a reminder done",
	Args:  cobra.ExactArgs(1),
	RunE:  runReminderComplete,
}

var reminderListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show today's reminders with habit scores",
	Args:  cobra.NoArgs,
	RunE:  runReminderList,
}

var reminderRemoveCmd = &cobra.Command{
	Use:   "remove <id or title>",
	Short: "Deactivate a reminder",
	Args:  cobra.ExactArgs(1),
	RunE:  runReminderRemove,
}

func init() {
	reminderCompleteCmd.Flags().StringVar(&reminderAt, "at", "", "Completion time (RFC 3339 or HH:MM today; default now)")
	reminderListCmd.Flags().BoolVar(&reminderAll, "all", false, "Include deactivated reminders")

	reminderCmd.AddCommand(reminderAddCmd, reminderCompleteCmd, reminderListCmd, reminderRemoveCmd)
	rootCmd.AddCommand(reminderCmd)
}

func parseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q: use HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// findReminder resolves an active reminder by ID or case-insensitive title.
func findReminder(db *store.DB, ref string) (store.Reminder, error) {
	if r, err := db.GetReminder(ref); err == nil {
		return r, nil
	} else if !errors.Is(err, store.ErrReminderNotFound) {
		return store.Reminder{}, err
	}

	reminders, err := db.ListReminders(true)
	if err != nil {
		return store.Reminder{}, err
	}
	var matches []store.Reminder
	for _, r := range reminders {
		if strings.EqualFold(r.Title, ref) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return store.Reminder{}, fmt.Errorf("%w: %q", store.ErrReminderNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return store.Reminder{}, fmt.Errorf("%d reminders named %q; use the ID", len(matches), ref)
	}
}

func runReminderAdd(cmd *cobra.Command, args []string) error {
	hour, minute, err := parseClock(args[1])
	if err != nil {
		return err
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	r, err := e.db.AddReminder(args[0], hour, minute, time.Now())
	if err != nil {
		return fmt.Errorf("adding reminder: %w", err)
	}
	fmt.Printf("Added %q at %s [%s]\n", r.Title, patterns.FormatClock(r.Hour, r.Minute), r.ID)
	return nil
}

func runReminderComplete(cmd *cobra.Command, args []string) error {
	at, err := parseAt(reminderAt, time.Now())
	if err != nil {
		return err
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	r, err := findReminder(e.db, args[0])
	if err != nil {
		return err
	}
	c, err := e.db.CompleteReminder(r.ID, at)
	if err != nil {
		return fmt.Errorf("completing reminder: %w", err)
	}
	if _, err := e.db.AppendEvent(behavior.Event{
		ActionKey:       behavior.KeyCompleteTask,
		Outcome:         behavior.OutcomeCompleted,
		OccurredAt:      at,
		RelatedEntityID: r.ID,
	}); err != nil {
		return fmt.Errorf("recording event: %w", err)
	}

	timing := "late"
	if c.WasOnTime {
		timing = "on time"
	}
	fmt.Printf("Completed %q (%s)\n", r.Title, timing)
	return nil
}

func runReminderRemove(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	r, err := findReminder(e.db, args[0])
	if err != nil {
		return err
	}
	if err := e.db.DeactivateReminder(r.ID); err != nil {
		return fmt.Errorf("removing reminder: %w", err)
	}
	fmt.Printf("Removed %q\n", r.Title)
	return nil
}

type reminderRow struct {
	store.ReminderStatus
	Time       string  `json:"time"`
	HabitScore float64 `json:"habit_score"`
}

func runReminderList(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	now := time.Now()
	statuses, err := e.db.ReminderStatuses(now)
	if err != nil {
		return fmt.Errorf("loading reminders: %w", err)
	}
	if reminderAll {
		all, err := e.db.ListReminders(false)
		if err != nil {
			return fmt.Errorf("loading reminders: %w", err)
		}
		for _, r := range all {
			if !r.Active {
				statuses = append(statuses, store.ReminderStatus{Reminder: r})
			}
		}
	}
	completions, err := e.db.CompletionsSince(now.AddDate(0, 0, -e.cfg.Habits.WindowDays))
	if err != nil {
		return fmt.Errorf("loading completions: %w", err)
	}

	rows := make([]reminderRow, 0, len(statuses))
	for _, s := range statuses {
		rows = append(rows, reminderRow{
			ReminderStatus: s,
			Time:           patterns.FormatClock(s.Hour, s.Minute),
			HabitScore:     patterns.ScoreReminder(s.Candidate(), completions, now, e.cfg.Habits.WindowDays),
		})
	}

	if flagJSON {
		return printJSON(rows)
	}
	renderReminders(rows)
	return nil
}

func renderReminders(rows []reminderRow) {
	fmt.Println(output.Section("Reminders"))
	fmt.Println()
	if len(rows) == 0 {
		fmt.Println(" No reminders. Add one with 'pulse reminder add'.")
		return
	}

	tbl := output.NewTable("Time", "Reminder", "Today", "Habit").AlignRight(0)
	for _, r := range rows {
		tbl.AddRow(r.Time, r.Title, reminderState(r.ReminderStatus), output.ScoreBar(r.HabitScore, 10))
	}
	tbl.Print()
}

func reminderState(s store.ReminderStatus) string {
	switch {
	case !s.Active:
		return output.StyleMuted.Render("inactive")
	case s.CompletedToday:
		return output.StyleSuccess.Render("done")
	case s.Missed:
		return output.StyleError.Render("missed")
	default:
		return output.StyleWarning.Render("pending")
	}
}
