package coach

import (
	"fmt"
	"math"
	"strconv"
)

// EffortMode controls how hard the engine pushes.
type EffortMode string

const (
	EffortBalanced    EffortMode = "balanced"
	EffortConsistency EffortMode = "consistency"
	EffortPush        EffortMode = "push"
	EffortRecovery    EffortMode = "recovery"
)

// WorkoutWindow is the user's preferred time to train.
type WorkoutWindow string

const (
	WindowMorning  WorkoutWindow = "morning"
	WindowMidday   WorkoutWindow = "midday"
	WindowEvening  WorkoutWindow = "evening"
	WindowFlexible WorkoutWindow = "flexible"
)

// Focus is what the user wants the coach to prioritize.
type Focus string

const (
	FocusNutrition Focus = "nutrition"
	FocusWorkout   Focus = "workout"
	FocusBoth      Focus = "both"
)

// RescueSwapCount is the number of swap alternatives in the rescue phase.
const RescueSwapCount = 3

// Preferences are the user's coaching preferences.
type Preferences struct {
	EffortMode             EffortMode    `json:"effort_mode" mapstructure:"effort_mode"`
	WorkoutWindow          WorkoutWindow `json:"workout_window" mapstructure:"workout_window"`
	TomorrowFocus          Focus         `json:"tomorrow_focus" mapstructure:"tomorrow_focus"`
	TomorrowWorkoutMinutes int           `json:"tomorrow_workout_minutes" mapstructure:"tomorrow_workout_minutes"`
}

// DefaultPreferences returns consistency mode with a flexible window.
func DefaultPreferences() Preferences {
	return Preferences{
		EffortMode:             EffortConsistency,
		WorkoutWindow:          WindowFlexible,
		TomorrowFocus:          FocusBoth,
		TomorrowWorkoutMinutes: 30,
	}
}

// normalized replaces unknown or empty values with defaults.
func (p Preferences) normalized() Preferences {
	d := DefaultPreferences()
	switch p.EffortMode {
	case EffortBalanced, EffortConsistency, EffortPush, EffortRecovery:
	default:
		p.EffortMode = d.EffortMode
	}
	switch p.WorkoutWindow {
	case WindowMorning, WindowMidday, WindowEvening, WindowFlexible:
	default:
		p.WorkoutWindow = d.WorkoutWindow
	}
	switch p.TomorrowFocus {
	case FocusNutrition, FocusWorkout, FocusBoth:
	default:
		p.TomorrowFocus = d.TomorrowFocus
	}
	if p.TomorrowWorkoutMinutes <= 0 {
		p.TomorrowWorkoutMinutes = d.TomorrowWorkoutMinutes
	}
	return p
}

func (p Preferences) workoutExpected() bool {
	return p.TomorrowFocus != FocusNutrition && p.EffortMode != EffortRecovery
}

// windowBounds returns the [start, end) hours of the preferred workout window.
func (p Preferences) windowBounds() (int, int) {
	switch p.WorkoutWindow {
	case WindowMorning:
		return 5, 11
	case WindowMidday:
		return 11, 15
	case WindowEvening:
		return 16, 21
	default:
		return 6, 18
	}
}

// MakeRecommendation derives the day's phase and suggested actions. It is
// pure and total: every context and preference combination yields a valid
// recommendation.
func MakeRecommendation(ctx Context, prefs Preferences) Recommendation {
	prefs = prefs.normalized()

	if ctx.Now.IsZero() {
		fallback := NewAction(ActionOpenCalorieDetail, "Open Today")
		return Recommendation{Phase: PhaseOnTrack, Primary: fallback, Secondary: fallback}
	}

	phase := DerivePhase(ctx, prefs)
	primary, secondary := selectActions(ctx, prefs, phase)
	rec := Recommendation{
		Phase:     phase,
		Primary:   primary,
		Secondary: secondary,
	}
	if phase == PhaseRescue {
		rec.Swaps = rescueSwaps(ctx, prefs)
	}
	return rec
}

// DerivePhase computes the urgency phase for the snapshot.
func DerivePhase(ctx Context, prefs Preferences) Phase {
	prefs = prefs.normalized()
	hour := ctx.Hour()
	workoutExpected := prefs.workoutExpected()
	workoutDone := ctx.HasWorkoutToday
	calorieProgress := ctx.CalorieProgress()

	nutritionMet := ctx.CalorieGoal > 0 && calorieProgress >= 0.9 &&
		(ctx.ProteinGoal <= 0 || ctx.ProteinProgress() >= 0.9)
	if nutritionMet && (workoutDone || !workoutExpected) {
		return PhaseCompleted
	}

	workoutMissing := workoutExpected && !workoutDone && !ctx.HasActiveWorkout
	calorieShortfall := ctx.CalorieGoal > 0 && calorieProgress < 0.75
	if hour >= 20 && !workoutDone && !ctx.HasActiveWorkout && (workoutMissing || calorieShortfall) {
		return PhaseRescue
	}

	nothingLogged := ctx.CaloriesConsumed == 0 && !workoutDone && !ctx.HasActiveWorkout
	if hour < 11 && nothingLogged {
		return PhaseMorningPlan
	}

	if ctx.CalorieGoal > 0 && calorieProgress < expectedProgress(hour)-0.25 {
		return PhaseAtRisk
	}
	if _, end := prefs.windowBounds(); workoutMissing && hour >= end {
		return PhaseAtRisk
	}
	return PhaseOnTrack
}

// expectedProgress is the share of daily calories expected by hour, linear
// from 0 at 7:00 to 1 at 21:00.
func expectedProgress(hour int) float64 {
	return math.Max(0, math.Min(1, float64(hour-7)/14))
}

func selectActions(ctx Context, prefs Preferences, phase Phase) (Action, Action) {
	workoutDone := ctx.HasWorkoutToday

	if ctx.HasActiveWorkout {
		return NewAction(ActionOpenWorkouts, "Resume Workout"), logFoodAction(ctx)
	}
	if phase == PhaseCompleted {
		secondary := NewAction(ActionOpenMacroDetail, "Review Macros")
		if workoutDone {
			secondary = NewAction(ActionOpenRecovery, "Check Recovery")
		}
		return NewAction(ActionOpenCalorieDetail, "Review Today"), secondary
	}

	switch prefs.TomorrowFocus {
	case FocusNutrition:
		if workoutDone {
			return logFoodAction(ctx), NewAction(ActionOpenMacroDetail, "Review Macros")
		}
		return logFoodAction(ctx), startWorkoutAction(ctx, prefs, false)
	case FocusWorkout:
		if workoutDone {
			return workoutFollowUp(ctx), logFoodAction(ctx)
		}
		return startWorkoutAction(ctx, prefs, false), logFoodAction(ctx)
	}

	if workoutDone {
		return logFoodAction(ctx), workoutFollowUp(ctx)
	}
	start, end := prefs.windowBounds()
	hour := ctx.Hour()
	inWindow := hour >= start && hour < end
	if phase == PhaseAtRisk || phase == PhaseRescue || inWindow {
		return startWorkoutAction(ctx, prefs, false), logFoodAction(ctx)
	}
	return logFoodAction(ctx), startWorkoutAction(ctx, prefs, false)
}

// workoutFollowUp is the workout-adjacent action once the day's workout is
// done: review the plan if one is flagged, otherwise recovery.
func workoutFollowUp(ctx Context) Action {
	if ctx.PlanReviewTrigger != nil && *ctx.PlanReviewTrigger == TriggerPlanAge {
		return NewAction(ActionReviewWorkoutPlan, "Review Workout Plan")
	}
	return NewAction(ActionOpenRecovery, "Check Recovery")
}

func startWorkoutAction(ctx Context, prefs Preferences, quick bool) Action {
	if quick {
		minutes := min(15, prefs.TomorrowWorkoutMinutes)
		return NewAction(ActionStartWorkout, fmt.Sprintf("Quick %d-min Workout", minutes)).
			WithMeta(MetaMinutes, strconv.Itoa(minutes))
	}
	if ctx.RecommendedWorkoutName != nil {
		return NewAction(ActionStartWorkout, "Start "+*ctx.RecommendedWorkoutName).
			WithMeta(MetaWorkoutName, *ctx.RecommendedWorkoutName)
	}
	return NewAction(ActionStartWorkout, "Start Workout")
}

func logFoodAction(ctx Context) Action {
	if remaining := ctx.CaloriesRemaining(); ctx.CalorieGoal > 0 && remaining > 0 {
		return NewAction(ActionLogFood, fmt.Sprintf("Log Food (%.0f kcal left)", remaining))
	}
	return NewAction(ActionLogFood, "Log Food")
}

// rescueSwaps returns exactly RescueSwapCount alternatives, most urgent
// first. A short workout leads whenever no workout happened today.
func rescueSwaps(ctx Context, prefs Preferences) []Action {
	swaps := make([]Action, 0, RescueSwapCount)
	if !ctx.HasWorkoutToday && prefs.EffortMode != EffortRecovery {
		swaps = append(swaps, startWorkoutAction(ctx, prefs, true))
	}
	swaps = append(swaps,
		NewAction(ActionLogFood, "Log a Protein-Rich Snack"),
		NewAction(ActionLogFoodCamera, "Snap Your Last Meal"),
		NewAction(ActionOpenMacroDetail, "Review Macros"),
	)
	return swaps[:RescueSwapCount]
}
