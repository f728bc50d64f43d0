package pulse

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/blackwell-systems/pulse/internal/behavior"
	"github.com/blackwell-systems/pulse/internal/coach"
	"github.com/blackwell-systems/pulse/internal/patterns"
	"github.com/blackwell-systems/pulse/internal/tokens"
)

// Packet is the compact context handed to an external model.
type Packet struct {
	Goal             string   `json:"goal"`
	SuggestedActions []string `json:"suggested_actions"`
	PromptSummary    string   `json:"prompt_summary"`
}

// Assembler builds context packets. Its zero value is not usable; call
// NewAssembler.
type Assembler struct {
	ReminderThreshold    float64
	ReminderCap          int
	PlanReviewMinRangeKg float64
	PlanReviewMinDays    int
	Count                tokens.Counter
}

// NewAssembler returns an assembler with the default thresholds.
func NewAssembler() *Assembler {
	return &Assembler{
		ReminderThreshold:    0.9,
		ReminderCap:          3,
		PlanReviewMinRangeKg: 1.0,
		PlanReviewMinDays:    28,
		Count:                tokens.Count,
	}
}

// Assemble builds a packet with the default assembler.
func Assemble(profile *patterns.Profile, activeSignals []string, ctx coach.Context, tokenBudget int) Packet {
	return NewAssembler().Assemble(profile, activeSignals, ctx, tokenBudget)
}

// Assemble compresses the snapshot into a goal, suggested actions, and a
// prompt summary whose token count never exceeds tokenBudget.
func (a *Assembler) Assemble(profile *patterns.Profile, activeSignals []string, ctx coach.Context, tokenBudget int) Packet {
	if profile == nil {
		profile = ctx.Patterns
	}
	goal := a.goal(profile, ctx)
	actions := a.suggestedActions(ctx)

	lines := []string{
		"Goal: " + goal,
		"Now: " + ctx.Now.Format("Mon 15:04"),
		todayLine(ctx),
	}
	if len(activeSignals) > 0 {
		lines = append(lines, "Signals: "+strings.Join(activeSignals, ", "))
	}
	if len(actions) > 0 {
		lines = append(lines, "Suggested: "+strings.Join(actions, "; "))
	}
	lines = append(lines, trendLine(ctx.Trend), habitLine(profile))
	if ctx.PlanReviewMessage != "" {
		lines = append(lines, "Plan: "+ctx.PlanReviewMessage)
	}

	return Packet{
		Goal:             goal,
		SuggestedActions: actions,
		PromptSummary:    tokens.Fit(lines, tokenBudget, a.Count),
	}
}

// goal puts an owed workout ahead of any nutrition gap.
func (a *Assembler) goal(profile *patterns.Profile, ctx coach.Context) string {
	if ctx.WorkoutOwed() {
		name := "today's workout"
		if ctx.RecommendedWorkoutName != nil {
			name = *ctx.RecommendedWorkoutName
		}
		return fmt.Sprintf("Complete %s %s.", name, workoutWindowPhrase(profile, ctx.Hour()))
	}

	if ctx.CalorieGoal > 0 && ctx.CaloriesRemaining() > 0 {
		g := fmt.Sprintf("Close the remaining %.0f kcal", ctx.CaloriesRemaining())
		if ctx.ProteinGoal > 0 && ctx.ProteinRemaining() > 0 {
			g += fmt.Sprintf(" with %.0f g protein", ctx.ProteinRemaining())
		}
		return g + " before the day ends."
	}
	if ctx.CalorieGoal > 0 {
		return "Hold today's targets and recover well."
	}
	return "Keep logging meals and workouts consistently."
}

var windowPhrases = map[string]string{
	behavior.LabelMorning:        "this morning",
	behavior.LabelLateMorning:    "late this morning",
	behavior.LabelEarlyAfternoon: "early this afternoon",
	behavior.LabelMidAfternoon:   "this afternoon",
	behavior.LabelEvening:        "this evening",
	behavior.LabelNight:          "tonight",
}

// workoutWindowPhrase names the habitual workout window, or the current
// bucket when there is no habit or the habit window has passed.
func workoutWindowPhrase(profile *patterns.Profile, hour int) string {
	current := behavior.TimeBucketForHour(hour)
	if profile != nil {
		for _, label := range profile.WorkoutTimes {
			if label == current || laterToday(label, hour) {
				return windowPhrases[label]
			}
		}
	}
	return windowPhrases[current]
}

func laterToday(label string, hour int) bool {
	for h := hour + 1; h < 24; h++ {
		if behavior.HourInLabel(label, h) {
			return true
		}
	}
	return false
}

// suggestedActions lists confident reminders, then a corroborated plan review.
func (a *Assembler) suggestedActions(ctx coach.Context) []string {
	var eligible []patterns.ReminderCandidate
	for _, r := range ctx.PendingReminders {
		if ctx.PendingReminderScores[r.ID] >= a.ReminderThreshold {
			eligible = append(eligible, r)
		}
	}
	slices.SortStableFunc(eligible, func(x, y patterns.ReminderCandidate) int {
		sx, sy := ctx.PendingReminderScores[x.ID], ctx.PendingReminderScores[y.ID]
		if sx != sy {
			return cmp.Compare(sy, sx)
		}
		if c := cmp.Compare(x.MinuteOfDay(), y.MinuteOfDay()); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})
	if a.ReminderCap >= 0 && len(eligible) > a.ReminderCap {
		eligible = eligible[:a.ReminderCap]
	}

	actions := make([]string, 0, len(eligible)+1)
	for _, r := range eligible {
		actions = append(actions, fmt.Sprintf("Complete %s at %s", r.Title, r.Time))
	}
	if review := a.planReview(ctx); review != "" {
		actions = append(actions, review)
	}
	return actions
}

func (a *Assembler) planReview(ctx coach.Context) string {
	if ctx.PlanReviewTrigger == nil || *ctx.PlanReviewTrigger == "" {
		return ""
	}
	corroborated := (ctx.WeightRecentRangeKg != nil && *ctx.WeightRecentRangeKg >= a.PlanReviewMinRangeKg) ||
		(ctx.PlanReviewDaysSince != nil && *ctx.PlanReviewDaysSince >= a.PlanReviewMinDays)
	if !corroborated {
		return ""
	}
	if *ctx.PlanReviewTrigger == coach.TriggerPlanAge {
		return "Review Workout Plan"
	}
	return "Review Nutrition Plan"
}

func todayLine(ctx coach.Context) string {
	workout := "no workout yet"
	switch {
	case ctx.HasActiveWorkout:
		workout = "workout in progress"
	case ctx.HasWorkoutToday:
		workout = "workout done"
	}
	return fmt.Sprintf("Today: %.0f/%.0f kcal, %.0f/%.0f g protein, %s.",
		ctx.CaloriesConsumed, ctx.CalorieGoal, ctx.ProteinConsumed, ctx.ProteinGoal, workout)
}

func trendLine(t *patterns.TrendSnapshot) string {
	if t == nil {
		return ""
	}
	line := fmt.Sprintf("Trend: %.0f kcal/day (%+.0f vs last week), %d workouts (last week %d)",
		t.AvgCaloriesThisWeek, t.CalorieDelta(), t.WorkoutsThisWeek, t.WorkoutsLastWeek)
	if t.WeightChangeKg != nil {
		line += fmt.Sprintf(", weight %+.1f kg", *t.WeightChangeKg)
	}
	return line + "."
}

func habitLine(p *patterns.Profile) string {
	if p == nil {
		return ""
	}
	var parts []string
	if len(p.MealLogTimes) > 0 {
		parts = append(parts, "meals "+strings.Join(p.MealLogTimes, "/"))
	}
	if len(p.WorkoutTimes) > 0 {
		parts = append(parts, "workouts "+strings.Join(p.WorkoutTimes, "/"))
	}
	if len(p.WorkoutDays) > 0 {
		parts = append(parts, "on "+strings.Join(p.WorkoutDays, ", "))
	}
	if p.AdherenceStreakDays > 0 {
		parts = append(parts, fmt.Sprintf("%d-day logging streak", p.AdherenceStreakDays))
	}
	if len(parts) == 0 {
		return ""
	}
	return "Habits: " + strings.Join(parts, "; ") + "."
}
