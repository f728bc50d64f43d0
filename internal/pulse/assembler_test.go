package pulse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/pulse/internal/behavior"
	"github.com/blackwell-systems/pulse/internal/coach"
	"github.com/blackwell-systems/pulse/internal/patterns"
	"github.com/blackwell-systems/pulse/internal/tokens"
)

func assemblyContext() coach.Context {
	return coach.Context{
		Now:              at(13, 0),
		CaloriesConsumed: 1150,
		CalorieGoal:      2000,
		ProteinConsumed:  75,
		ProteinGoal:      140,
		HasWorkoutToday:  true,
	}
}

func TestAssemble_ReminderThreshold(t *testing.T) {
	ctx := assemblyContext()
	ctx.PendingReminders = []patterns.ReminderCandidate{
		patterns.NewReminderCandidate("a", "Vitamins", 8, 0),
		patterns.NewReminderCandidate("b", "Stretch", 21, 0),
		patterns.NewReminderCandidate("c", "Water", 10, 0),
	}
	ctx.PendingReminderScores = map[string]float64{"a": 0.9, "b": 0.95, "c": 0.5}

	a := NewAssembler()
	a.ReminderThreshold = 0.9
	packet := a.Assemble(nil, nil, ctx, 200)
	assert.Equal(t, []string{"Complete Stretch at 9:00 PM", "Complete Vitamins at 8:00 AM"}, packet.SuggestedActions)
}

func TestAssemble_ReminderFromCompletionHistory(t *testing.T) {
	now := at(12, 0)
	vitamins := patterns.NewReminderCandidate("r-vitamins", "Vitamins", 12, 0)
	var completions []patterns.ReminderCompletion
	for d := 1; d <= 7; d++ {
		completions = append(completions, patterns.NewCompletion(vitamins, now.AddDate(0, 0, -d)))
	}
	ctx := coach.NewContext(coach.ContextInput{
		Now:              now,
		Goals:            coach.Goals{Calories: 2000, ProteinG: 140},
		PendingReminders: []patterns.ReminderCandidate{vitamins},
		Completions:      completions,
	})
	// A week of on-time daily completions is about as strong as a habit gets.
	assert.InDelta(t, 0.7288, ctx.PendingReminderScores["r-vitamins"], 1e-3)

	a := NewAssembler()
	a.ReminderThreshold = 0.6
	packet := a.Assemble(nil, nil, ctx, 200)
	assert.Contains(t, packet.SuggestedActions, "Complete Vitamins at 12:00 PM")
}

func TestAssemble_ReminderTiesOrderedByTime(t *testing.T) {
	ctx := assemblyContext()
	ctx.PendingReminders = []patterns.ReminderCandidate{
		patterns.NewReminderCandidate("late", "Journal", 21, 0),
		patterns.NewReminderCandidate("early", "Meds", 7, 30),
	}
	ctx.PendingReminderScores = map[string]float64{"late": 0.92, "early": 0.92}

	packet := Assemble(nil, nil, ctx, 200)
	assert.Equal(t, []string{"Complete Meds at 7:30 AM", "Complete Journal at 9:00 PM"}, packet.SuggestedActions)
}

func TestAssemble_ReminderCap(t *testing.T) {
	ctx := assemblyContext()
	ctx.PendingReminderScores = map[string]float64{}
	for i, title := range []string{"One", "Two", "Three", "Four", "Five"} {
		r := patterns.NewReminderCandidate(title, title, 6+i, 0)
		ctx.PendingReminders = append(ctx.PendingReminders, r)
		ctx.PendingReminderScores[r.ID] = 0.95
	}

	packet := Assemble(nil, nil, ctx, 200)
	assert.Len(t, packet.SuggestedActions, 3)
	assert.Equal(t, "Complete One at 6:00 AM", packet.SuggestedActions[0])

	a := NewAssembler()
	a.ReminderCap = 5
	assert.Len(t, a.Assemble(nil, nil, ctx, 200).SuggestedActions, 5)
}

func TestAssemble_WorkoutGoalOutranksNutrition(t *testing.T) {
	ctx := assemblyContext()
	ctx.HasWorkoutToday = false
	name := "Leg Day"
	ctx.RecommendedWorkoutName = &name
	profile := &patterns.Profile{WorkoutTimes: []string{behavior.LabelEvening}}

	packet := Assemble(profile, nil, ctx, 200)
	assert.Equal(t, "Complete Leg Day this evening.", packet.Goal)
	assert.NotContains(t, packet.Goal, "kcal")
}

func TestAssemble_WorkoutGoalUsesCurrentWindowWithoutHabit(t *testing.T) {
	ctx := assemblyContext()
	ctx.HasWorkoutToday = false
	ctx.Patterns = &patterns.Profile{WorkoutDays: []string{ctx.Now.Weekday().String()}}

	packet := Assemble(nil, nil, ctx, 200)
	assert.Equal(t, "Complete today's workout early this afternoon.", packet.Goal)
}

func TestAssemble_NutritionGoal(t *testing.T) {
	packet := Assemble(nil, nil, assemblyContext(), 200)
	assert.Equal(t, "Close the remaining 850 kcal with 65 g protein before the day ends.", packet.Goal)
}

func TestAssemble_PlanReviewInjection(t *testing.T) {
	tests := []struct {
		name    string
		trigger string
		rangeKg *float64
		days    *int
		want    string
	}{
		{"weight change corroborated", coach.TriggerWeightChange, ptr(1.2), nil, "Review Nutrition Plan"},
		{"weight change too small", coach.TriggerWeightChange, ptr(0.4), nil, ""},
		{"plan age corroborated", coach.TriggerPlanAge, nil, ptr(45), "Review Workout Plan"},
		{"plan age too recent", coach.TriggerPlanAge, nil, ptr(10), ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := assemblyContext()
			trigger := tc.trigger
			ctx.PlanReviewTrigger = &trigger
			ctx.WeightRecentRangeKg = tc.rangeKg
			ctx.PlanReviewDaysSince = tc.days

			actions := Assemble(nil, nil, ctx, 200).SuggestedActions
			if tc.want == "" {
				assert.Empty(t, actions)
				return
			}
			assert.Equal(t, []string{tc.want}, actions)
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}

func richContext() coach.Context {
	ctx := assemblyContext()
	change := -0.6
	ctx.Trend = &patterns.TrendSnapshot{
		DaysCovered:         10,
		AvgCaloriesThisWeek: 1980,
		AvgCaloriesLastWeek: 2150,
		WorkoutsThisWeek:    3,
		WorkoutsLastWeek:    2,
		WeightChangeKg:      &change,
	}
	ctx.Patterns = &patterns.Profile{
		MealLogTimes:        []string{behavior.LabelMorning, behavior.LabelEvening},
		WorkoutTimes:        []string{behavior.LabelEvening},
		WorkoutDays:         []string{"Monday", "Thursday"},
		AdherenceStreakDays: 6,
	}
	trigger := coach.TriggerWeightChange
	ctx.PlanReviewTrigger = &trigger
	ctx.PlanReviewMessage = "Your weight moved noticeably over the last two weeks."
	return ctx
}

func TestAssemble_SummaryWithinBudget(t *testing.T) {
	ctx := richContext()
	signals := []string{"short_sleep", "high_stress"}

	full := Assemble(nil, signals, ctx, 10000)
	assert.Contains(t, full.PromptSummary, "Goal: ")
	assert.Contains(t, full.PromptSummary, "Signals: short_sleep, high_stress")
	assert.Contains(t, full.PromptSummary, "Habits: ")
	assert.Contains(t, full.PromptSummary, "Plan: ")

	for _, budget := range []int{1, 3, 8, 20, 45, 80} {
		packet := Assemble(nil, signals, ctx, budget)
		assert.LessOrEqual(t, tokens.Count(packet.PromptSummary), budget, "budget %d", budget)
		assert.True(t, strings.HasPrefix(full.PromptSummary, packet.PromptSummary) || packet.PromptSummary == "",
			"budget %d: summary should be a prefix of the full summary", budget)
	}
}

func TestAssemble_ZeroBudget(t *testing.T) {
	packet := Assemble(nil, nil, richContext(), 0)
	assert.Empty(t, packet.PromptSummary)
	assert.NotEmpty(t, packet.Goal)
}

func TestAssemble_Deterministic(t *testing.T) {
	ctx := richContext()
	a := Assemble(nil, []string{"short_sleep"}, ctx, 30)
	b := Assemble(nil, []string{"short_sleep"}, ctx, 30)
	require.Equal(t, a, b)
}

func TestAssemble_HeuristicCounter(t *testing.T) {
	a := NewAssembler()
	a.Count = tokens.EstimateFast

	packet := a.Assemble(nil, nil, richContext(), 12)
	assert.LessOrEqual(t, tokens.EstimateFast(packet.PromptSummary), 12)
	assert.True(t, strings.HasPrefix(packet.PromptSummary, "Goal: Close the remaining"))
}
