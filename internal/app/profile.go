package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pulse/internal/coach"
	"github.com/blackwell-systems/pulse/internal/output"
	"github.com/blackwell-systems/pulse/internal/patterns"
)

var (
	profileDays int
	profileKey  string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show learned habits, habitual times, and weekly trends",
	Long: `Show the rolling behavior profile (what you do and when), the habit
patterns inferred from your logs, and this week's trend against last week.

Examples:
  pulse profile
  pulse profile --days 30
  pulse profile --key nutrition.log_food --json`,
	RunE: runProfile,
}

func init() {
	profileCmd.Flags().IntVar(&profileDays, "days", 0, "Behavior window in days (default from config)")
	profileCmd.Flags().StringVar(&profileKey, "key", "", "Only show this action key")
	rootCmd.AddCommand(profileCmd)
}

// actionSummary is one action key's row in the profile report.
type actionSummary struct {
	Key         string    `json:"key"`
	Count       int       `json:"count"`
	LikelyTimes []string  `json:"likely_times"`
	LastSeen    time.Time `json:"last_seen"`
	DaysSince   int       `json:"days_since"`
}

type profileReport struct {
	WindowDays int                     `json:"window_days"`
	Actions    []actionSummary         `json:"actions"`
	Patterns   *patterns.Profile       `json:"patterns"`
	Trend      *patterns.TrendSnapshot `json:"trend,omitempty"`
}

// profileLikelyLabels and profileMinEvents bound the habitual-time claims.
const (
	profileLikelyLabels = 2
	profileMinEvents    = 3
)

func buildProfileReport(ctx coach.Context, key string) profileReport {
	report := profileReport{Patterns: ctx.Patterns, Trend: ctx.Trend, Actions: []actionSummary{}}
	if ctx.Behavior == nil {
		return report
	}
	report.WindowDays = ctx.Behavior.WindowDays

	keys := make([]string, 0, len(ctx.Behavior.ActionCounts))
	for k := range ctx.Behavior.ActionCounts {
		if key == "" || k == key {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b string) int {
		if d := ctx.Behavior.ActionCounts[b] - ctx.Behavior.ActionCounts[a]; d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})

	for _, k := range keys {
		s := actionSummary{
			Key:         k,
			Count:       ctx.Behavior.TotalEvents(k),
			LikelyTimes: ctx.Behavior.LikelyTimeLabels(k, profileLikelyLabels, profileMinEvents),
			LastSeen:    ctx.Behavior.LastActionAt[k],
		}
		if d := ctx.Behavior.DaysSinceLastAction(k, ctx.Now); d != nil {
			s.DaysSince = *d
		}
		report.Actions = append(report.Actions, s)
	}
	return report
}

func runProfile(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if profileDays > 0 {
		e.cfg.Profile.WindowDays = profileDays
	}

	ctx, err := loadContext(context.Background(), e.db, e.cfg, time.Now())
	if err != nil {
		return err
	}
	report := buildProfileReport(ctx, profileKey)

	if flagJSON {
		return printJSON(report)
	}
	renderProfile(report)
	return nil
}

func renderProfile(r profileReport) {
	fmt.Println(output.Section(fmt.Sprintf("Behavior (last %d days)", r.WindowDays)))
	fmt.Println()
	if len(r.Actions) == 0 {
		fmt.Println(" No activity recorded yet.")
	} else {
		tbl := output.NewTable("Action", "Count", "Usually", "Last").AlignRight(1)
		for _, a := range r.Actions {
			usually := strings.Join(a.LikelyTimes, ", ")
			if usually == "" {
				usually = output.StyleMuted.Render("not enough data")
			}
			tbl.AddRow(a.Key, fmt.Sprintf("%d", a.Count), usually, daysAgo(a.DaysSince))
		}
		tbl.Print()
	}

	if p := r.Patterns; p != nil {
		fmt.Println(output.Section(fmt.Sprintf("Habits (last %d days)", p.WindowDays)))
		fmt.Println()
		printField("Meals logged", joinOrDash(p.MealLogTimes))
		printField("Workouts", joinOrDash(p.WorkoutTimes))
		printField("Workout days", joinOrDash(p.WorkoutDays))
		printField("Workouts per week", fmt.Sprintf("%.1f", p.WorkoutsPerWeek))
		printField("Weigh-ins", joinOrDash(p.WeighInTimes))
		printField("Weigh-in routine", output.ScoreBar(p.WeightLogRoutineScore, 10))
		printField("Logging streak", fmt.Sprintf("%d days", p.AdherenceStreakDays))
	}

	if t := r.Trend; t != nil {
		fmt.Println(output.Section("This week vs last"))
		fmt.Println()
		printField("Avg calories", fmt.Sprintf("%.0f  %s", t.AvgCaloriesThisWeek, output.TrendArrow(t.CalorieDelta(), true)))
		printField("Avg protein", fmt.Sprintf("%.0f g  %s", t.AvgProteinThisWeek, output.TrendArrow(t.AvgProteinThisWeek-t.AvgProteinLastWeek, true)))
		printField("Workouts", fmt.Sprintf("%d  %s", t.WorkoutsThisWeek, output.TrendArrow(float64(t.WorkoutsThisWeek-t.WorkoutsLastWeek), true)))
		if t.WeightChangeKg != nil {
			printField("Weight change", fmt.Sprintf("%+.1f kg", *t.WeightChangeKg))
		}
	}
	fmt.Println()
}

func printField(label, value string) {
	fmt.Printf(" %s %s\n", output.StyleLabel.Render(label), value)
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return output.StyleMuted.Render("-")
	}
	return strings.Join(values, ", ")
}

func daysAgo(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "yesterday"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}
