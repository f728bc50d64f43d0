package coach

import (
	"sort"

	"github.com/blackwell-systems/pulse/internal/behavior"
	"github.com/blackwell-systems/pulse/internal/patterns"
)

// CandidateRule examines the context and contributes zero or more scored
// candidate actions.
type CandidateRule func(ctx Context) []RankedAction

// ReminderCandidates surfaces the single highest-scored pending reminder.
// Ties go to the earlier scheduled time, then the lower ID.
func ReminderCandidates(ctx Context) []RankedAction {
	if len(ctx.PendingReminders) == 0 {
		return nil
	}
	reminders := make([]patterns.ReminderCandidate, len(ctx.PendingReminders))
	copy(reminders, ctx.PendingReminders)
	sort.SliceStable(reminders, func(i, j int) bool {
		si, sj := ctx.PendingReminderScores[reminders[i].ID], ctx.PendingReminderScores[reminders[j].ID]
		if si != sj {
			return si > sj
		}
		if reminders[i].MinuteOfDay() != reminders[j].MinuteOfDay() {
			return reminders[i].MinuteOfDay() < reminders[j].MinuteOfDay()
		}
		return reminders[i].ID < reminders[j].ID
	})

	top := reminders[0]
	score := 0.3 + 0.6*ctx.PendingReminderScores[top.ID]

	// Urgency: the reminder came due within the last two hours.
	nowMinute := ctx.Now.Hour()*60 + ctx.Now.Minute()
	if overdue := nowMinute - top.MinuteOfDay(); overdue >= 0 && overdue <= 120 {
		score += 0.1
	}

	return []RankedAction{{
		Action: ReminderAction(top),
		Score:  score,
		Reason: "pending reminder",
	}}
}

// ReminderAction builds the completeReminder action for a candidate.
func ReminderAction(r patterns.ReminderCandidate) Action {
	return NewAction(ActionCompleteReminder, "Complete "+r.Title).
		WithMeta(MetaReminderID, r.ID).
		WithMeta(MetaReminderTime, r.Time)
}

// WeightCandidates suggests a weigh-in only inside an inferred habitual
// window while one is due. Outside the window the candidate is omitted.
func WeightCandidates(ctx Context) []RankedAction {
	if !patterns.DueForWeighIn(ctx.DaysSinceLastWeightLog) {
		return nil
	}
	if !behavior.HourInAnyLabel(ctx.WeightLikelyLogTimes, ctx.Hour()) {
		return nil
	}
	return []RankedAction{{
		Action: NewAction(ActionLogWeight, "Log Weight"),
		Score:  0.5 + 0.3*ctx.WeightLogRoutineScore,
		Reason: "habitual weigh-in window",
	}}
}

// PlanReviewCandidates maps a plan review trigger to a review action.
// plan_age reviews the workout plan; any other trigger reviews nutrition.
func PlanReviewCandidates(ctx Context) []RankedAction {
	if ctx.PlanReviewTrigger == nil || *ctx.PlanReviewTrigger == "" {
		return nil
	}
	action := NewAction(ActionReviewNutritionPlan, "Review Nutrition Plan")
	if *ctx.PlanReviewTrigger == TriggerPlanAge {
		action = NewAction(ActionReviewWorkoutPlan, "Review Workout Plan")
	}
	return []RankedAction{{Action: action, Score: 0.45, Reason: "plan review: " + *ctx.PlanReviewTrigger}}
}

// WorkoutPlanCandidates offers to open the recommended workout, if any.
func WorkoutPlanCandidates(ctx Context) []RankedAction {
	if ctx.RecommendedWorkoutName == nil {
		return nil
	}
	return []RankedAction{{
		Action: NewAction(ActionOpenWorkoutPlan, "View "+*ctx.RecommendedWorkoutName).
			WithMeta(MetaWorkoutName, *ctx.RecommendedWorkoutName),
		Score:  0.3,
		Reason: "recommended workout",
	}}
}

// WorkoutCandidates covers starting, resuming, and recovering from workouts.
func WorkoutCandidates(ctx Context) []RankedAction {
	switch {
	case ctx.HasActiveWorkout:
		return []RankedAction{{Action: NewAction(ActionOpenWorkouts, "Resume Workout"), Score: 0.9, Reason: "workout in progress"}}
	case ctx.HasWorkoutToday:
		return []RankedAction{{Action: NewAction(ActionOpenRecovery, "Check Recovery"), Score: 0.35, Reason: "workout done"}}
	}

	score := 0.55
	if ctx.Patterns.IsWorkoutDay(ctx.Now.Weekday()) {
		score += 0.15
	}
	if ctx.Patterns != nil && behavior.HourInAnyLabel(ctx.Patterns.WorkoutTimes, ctx.Hour()) {
		score += 0.1
	}
	if ctx.ReadyMuscleCount >= 3 {
		score += 0.05
	}
	return []RankedAction{{Action: startWorkoutAction(ctx, DefaultPreferences(), false), Score: score, Reason: "no workout yet"}}
}

// NutritionCandidates suggests logging food in proportion to the remaining
// calorie gap, and a macro check when protein lags in the afternoon.
func NutritionCandidates(ctx Context) []RankedAction {
	var out []RankedAction

	score := 0.4
	if ctx.CalorieGoal > 0 {
		score += 0.3 * max(0, 1-ctx.CalorieProgress())
		if ctx.CalorieProgress() >= 1 {
			score = 0.2
		}
	}
	if ctx.Patterns != nil && behavior.HourInAnyLabel(ctx.Patterns.MealLogTimes, ctx.Hour()) {
		score += 0.1
	}
	out = append(out, RankedAction{Action: logFoodAction(ctx), Score: score, Reason: "calorie gap"})

	if ctx.ProteinGoal > 0 && ctx.Hour() >= 12 && ctx.ProteinProgress() < 0.6 {
		out = append(out, RankedAction{
			Action: NewAction(ActionOpenMacroDetail, "Check Protein"),
			Score:  0.3 + 0.2*(1-ctx.ProteinProgress()),
			Reason: "protein behind",
		})
	}
	return out
}
