package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pulse/internal/behavior"
	"github.com/blackwell-systems/pulse/internal/patterns"
	"github.com/blackwell-systems/pulse/internal/store"
)

var (
	logAt       string
	logOutcome  string
	logSurface  string
	logEntity   string
	logMeta     []string
	logProtein  float64
	logNote     string
	logMinutes  int
	logStart    bool
	logFinish   bool
	logNoRecord bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Record events, meals, workouts, and weigh-ins",
	Long: `Append records to the pulse database. Meals, workouts, and weigh-ins
also record the matching behavior event so habit timing is learned from them.

Times accept RFC 3339 ("2026-03-18T07:30:00Z") or a clock time today ("07:30").

Examples:
  pulse log food 650 --protein 45
  pulse log workout "Push Day" --minutes 50
  pulse log workout "Legs" --start
  pulse log workout --finish
  pulse log weight 81.4 --at 07:10
  pulse log event nutrition.log_food --outcome dismissed --surface widget`,
}

var logEventCmd = &cobra.Command{
	Use:   "event <action_key>",
	Short: "Record a behavior event",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogEvent,
}

var logFoodCmd = &cobra.Command{
	Use:   "food <calories>",
	Short: "Record a meal",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogFood,
}

var logWorkoutCmd = &cobra.Command{
	Use:   "workout [name]",
	Short: "Record a finished workout, or start or finish one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogWorkout,
}

var logWeightCmd = &cobra.Command{
	Use:   "weight <kg>",
	Short: "Record a weigh-in",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogWeight,
}

func init() {
	logCmd.PersistentFlags().StringVar(&logAt, "at", "", "When it happened (RFC 3339 or HH:MM today; default now)")
	logCmd.PersistentFlags().BoolVar(&logNoRecord, "no-event", false, "Do not record a behavior event alongside the log")

	logEventCmd.Flags().StringVar(&logOutcome, "outcome", string(behavior.OutcomeCompleted), "Outcome: presented, performed, completed, suggested_tap, dismissed, opened")
	logEventCmd.Flags().StringVar(&logSurface, "surface", string(behavior.SurfaceDashboard), "Surface: dashboard, chat, widget, intent, system, notification, live_activity")
	logEventCmd.Flags().StringVar(&logEntity, "entity", "", "Related entity ID")
	logEventCmd.Flags().StringSliceVar(&logMeta, "meta", nil, "Metadata as key=value (repeatable)")

	logFoodCmd.Flags().Float64Var(&logProtein, "protein", 0, "Protein in grams")
	logFoodCmd.Flags().StringVar(&logNote, "note", "", "Optional note")

	logWorkoutCmd.Flags().IntVar(&logMinutes, "minutes", 0, "Workout length in minutes")
	logWorkoutCmd.Flags().BoolVar(&logStart, "start", false, "Start a workout that is still in progress")
	logWorkoutCmd.Flags().BoolVar(&logFinish, "finish", false, "Finish the workout in progress")

	logCmd.AddCommand(logEventCmd, logFoodCmd, logWorkoutCmd, logWeightCmd)
	rootCmd.AddCommand(logCmd)
}

// parseAt resolves a --at value relative to now.
func parseAt(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	if t, err := time.ParseInLocation("15:04", s, now.Location()); err == nil {
		return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location()), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: use RFC 3339 or HH:MM", s)
	}
	return t, nil
}

// parseMeta converts key=value pairs into a metadata map.
func parseMeta(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid metadata %q: expected key=value", p)
		}
		meta[k] = v
	}
	return meta, nil
}

func recordEvent(db *store.DB, key string, at time.Time, related string) error {
	if logNoRecord {
		return nil
	}
	_, err := db.AppendEvent(behavior.Event{
		ActionKey:       key,
		Outcome:         behavior.OutcomePerformed,
		Surface:         behavior.SurfaceSystem,
		OccurredAt:      at,
		RelatedEntityID: related,
	})
	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

func runLogEvent(cmd *cobra.Command, args []string) error {
	outcome, ok := behavior.ParseOutcome(logOutcome)
	if !ok {
		return fmt.Errorf("unknown outcome %q", logOutcome)
	}
	surface, ok := behavior.ParseSurface(logSurface)
	if !ok {
		return fmt.Errorf("unknown surface %q", logSurface)
	}
	meta, err := parseMeta(logMeta)
	if err != nil {
		return err
	}
	at, err := parseAt(logAt, time.Now())
	if err != nil {
		return err
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	id, err := e.db.AppendEvent(behavior.Event{
		ActionKey:       args[0],
		Outcome:         outcome,
		Surface:         surface,
		OccurredAt:      at,
		RelatedEntityID: logEntity,
		Metadata:        meta,
	})
	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}

	fmt.Printf("Recorded %s (%s) at %s [%s]\n", args[0], outcome, at.Format("15:04"), id)
	return nil
}

func runLogFood(cmd *cobra.Command, args []string) error {
	calories, err := strconv.ParseFloat(args[0], 64)
	if err != nil || calories < 0 {
		return fmt.Errorf("invalid calories %q: must be a non-negative number", args[0])
	}
	if logProtein < 0 {
		return fmt.Errorf("invalid protein %.1f: must be non-negative", logProtein)
	}
	at, err := parseAt(logAt, time.Now())
	if err != nil {
		return err
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	entry := patterns.NutritionEntry{LoggedAt: at, Calories: calories, ProteinG: logProtein}
	if err := e.db.InsertNutrition(entry, logNote); err != nil {
		return fmt.Errorf("saving meal: %w", err)
	}
	if err := recordEvent(e.db, behavior.KeyLogFood, at, ""); err != nil {
		return err
	}

	fmt.Printf("Logged %.0f kcal, %.0f g protein at %s\n", calories, logProtein, at.Format("15:04"))
	return nil
}

func runLogWorkout(cmd *cobra.Command, args []string) error {
	if logStart && logFinish {
		return fmt.Errorf("--start and --finish are mutually exclusive")
	}
	at, err := parseAt(logAt, time.Now())
	if err != nil {
		return err
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if logFinish {
		w, err := e.db.FinishActiveWorkout(at)
		if err != nil {
			return fmt.Errorf("finishing workout: %w", err)
		}
		fmt.Printf("Finished %s (%d min)\n", workoutName(w.Name), w.Minutes)
		return nil
	}

	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	entry := patterns.WorkoutEntry{Name: name, StartedAt: at}
	if !logStart {
		if logMinutes <= 0 {
			return fmt.Errorf("--minutes is required for a finished workout")
		}
		entry.StartedAt = at.Add(-time.Duration(logMinutes) * time.Minute)
		entry.EndedAt = at
		entry.Minutes = logMinutes
	}

	id, err := e.db.InsertWorkout(entry)
	if err != nil {
		return fmt.Errorf("saving workout: %w", err)
	}
	if err := recordEvent(e.db, behavior.KeyStartWorkout, entry.StartedAt, id); err != nil {
		return err
	}

	if logStart {
		fmt.Printf("Started %s at %s\n", workoutName(name), at.Format("15:04"))
	} else {
		fmt.Printf("Logged %s (%d min)\n", workoutName(name), logMinutes)
	}
	return nil
}

func workoutName(name string) string {
	if name == "" {
		return "workout"
	}
	return name
}

func runLogWeight(cmd *cobra.Command, args []string) error {
	kg, err := strconv.ParseFloat(args[0], 64)
	if err != nil || kg <= 0 {
		return fmt.Errorf("invalid weight %q: must be a positive number of kilograms", args[0])
	}
	at, err := parseAt(logAt, time.Now())
	if err != nil {
		return err
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	prev, err := e.db.LatestWeight()
	if err != nil {
		return fmt.Errorf("loading previous weight: %w", err)
	}
	if err := e.db.InsertWeight(patterns.WeightEntry{LoggedAt: at, WeightKg: kg}); err != nil {
		return fmt.Errorf("saving weight: %w", err)
	}
	if err := recordEvent(e.db, behavior.KeyLogWeight, at, ""); err != nil {
		return err
	}

	fmt.Printf("Logged %.1f kg at %s%s\n", kg, at.Format("15:04"), weightChange(prev, kg))
	return nil
}

// weightChange describes kg against the previous weigh-in.
func weightChange(prev *patterns.WeightEntry, kg float64) string {
	if prev == nil {
		return ""
	}
	return fmt.Sprintf(" (%+.1f kg since %s)", kg-prev.WeightKg, prev.LoggedAt.Format("Jan 2"))
}
