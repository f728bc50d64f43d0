package coach

import (
	"maps"
	"slices"
	"time"

	"github.com/blackwell-systems/pulse/internal/behavior"
	"github.com/blackwell-systems/pulse/internal/patterns"
)

// Plan review triggers.
const (
	TriggerPlanAge      = "plan_age"
	TriggerWeightChange = "weight_change"
)

// Plan review thresholds used when deriving a trigger from the logs.
const (
	planAgeReviewDays       = 42
	weightChangeReviewRange = 1.5
)

// Context is the immutable snapshot for one recommendation cycle. It is built
// once by NewContext and shared read-only by the engine, ranker, policy
// engine, and assembler.
type Context struct {
	Now time.Time `json:"now"`

	HasWorkoutToday        bool       `json:"has_workout_today"`
	HasActiveWorkout       bool       `json:"has_active_workout"`
	LastWorkoutAt          *time.Time `json:"last_workout_at,omitempty"`
	ReadyMuscleCount       int        `json:"ready_muscle_count"`
	RecommendedWorkoutName *string    `json:"recommended_workout_name,omitempty"`

	CaloriesConsumed float64 `json:"calories_consumed"`
	CalorieGoal      float64 `json:"calorie_goal"`
	ProteinConsumed  float64 `json:"protein_consumed"`
	ProteinGoal      float64 `json:"protein_goal"`

	ActiveSignals []string                  `json:"active_signals"`
	Trend         *patterns.TrendSnapshot   `json:"trend,omitempty"`
	Patterns      *patterns.Profile         `json:"patterns,omitempty"`
	Behavior      *behavior.ProfileSnapshot `json:"-"`

	ReminderCompletionRate float64                      `json:"reminder_completion_rate"`
	MissedReminderCount    int                          `json:"missed_reminder_count"`
	PendingReminders       []patterns.ReminderCandidate `json:"pending_reminders"`
	PendingReminderScores  map[string]float64           `json:"pending_reminder_scores"`

	DaysSinceLastWeightLog *int     `json:"days_since_last_weight_log,omitempty"`
	WeightLoggedThisWeek   bool     `json:"weight_logged_this_week"`
	WeightLikelyLogWeekday string   `json:"weight_likely_log_weekday,omitempty"`
	WeightLikelyLogTimes   []string `json:"weight_likely_log_times"`
	WeightLogRoutineScore  float64  `json:"weight_log_routine_score"`

	PlanReviewTrigger   *string  `json:"plan_review_trigger,omitempty"`
	PlanReviewMessage   string   `json:"plan_review_message,omitempty"`
	PlanReviewDaysSince *int     `json:"plan_review_days_since,omitempty"`
	WeightRecentRangeKg *float64 `json:"weight_recent_range_kg,omitempty"`

	TodayCompletedActionKeys []string `json:"today_completed_action_keys"`
}

// Goals are the user's daily nutrition targets.
type Goals struct {
	Calories float64
	ProteinG float64
}

// ContextInput is everything NewContext needs, already fetched by the host.
type ContextInput struct {
	Now    time.Time
	Events []behavior.Event
	Logs   patterns.Inputs
	Goals  Goals

	PendingReminders    []patterns.ReminderCandidate
	Completions         []patterns.ReminderCompletion
	MissedReminderCount int

	RecommendedWorkoutName string
	ReadyMuscleCount       int
	ActiveSignals          []string

	// PlanUpdatedAt is when the current plan was last changed; zero if unknown.
	PlanUpdatedAt time.Time

	ProfileWindowDays int
	PatternWindowDays int
	HabitWindowDays   int

	// HabitMaxCompletions caps the completion history; zero uses the default.
	HabitMaxCompletions int
}

// NewContext assembles a Context from live state and the profile, pattern,
// and habit services. Slices and maps are copied so the result never aliases
// the input.
func NewContext(in ContextInput) Context {
	now := in.Now
	ctx := Context{
		Now:              now,
		ReadyMuscleCount: in.ReadyMuscleCount,
		CalorieGoal:      in.Goals.Calories,
		ProteinGoal:      in.Goals.ProteinG,
		ActiveSignals:    append([]string{}, in.ActiveSignals...),
		PendingReminders: slices.Clone(in.PendingReminders),
	}
	if ctx.PendingReminders == nil {
		ctx.PendingReminders = []patterns.ReminderCandidate{}
	}
	if in.RecommendedWorkoutName != "" {
		name := in.RecommendedWorkoutName
		ctx.RecommendedWorkoutName = &name
	}

	for _, n := range in.Logs.Nutrition {
		if sameDay(n.LoggedAt, now) && !n.LoggedAt.After(now) {
			ctx.CaloriesConsumed += n.Calories
			ctx.ProteinConsumed += n.ProteinG
		}
	}

	var lastWorkout time.Time
	for _, w := range in.Logs.Workouts {
		if w.StartedAt.After(now) {
			continue
		}
		if w.Active() {
			ctx.HasActiveWorkout = true
			continue
		}
		if sameDay(w.StartedAt, now) {
			ctx.HasWorkoutToday = true
		}
		if w.EndedAt.After(lastWorkout) {
			lastWorkout = w.EndedAt
		}
	}
	if !lastWorkout.IsZero() {
		ctx.LastWorkoutAt = &lastWorkout
	}

	profile := behavior.BuildProfile(now, in.Events, in.ProfileWindowDays)
	ctx.Behavior = &profile

	pattern := patterns.BuildProfile(now, in.Logs, in.PatternWindowDays)
	ctx.Patterns = &pattern
	ctx.Trend = patterns.BuildTrend(now, in.Logs)

	routine := patterns.BuildWeightRoutine(now, in.Logs.Weights, in.PatternWindowDays)
	ctx.DaysSinceLastWeightLog = routine.DaysSinceLastLog
	ctx.WeightLoggedThisWeek = routine.LoggedThisWeek
	ctx.WeightLikelyLogWeekday = routine.LikelyWeekday
	ctx.WeightLikelyLogTimes = slices.Clone(routine.LikelyTimes)
	ctx.WeightLogRoutineScore = routine.RoutineScore

	maxCompletions := in.HabitMaxCompletions
	if maxCompletions <= 0 {
		maxCompletions = patterns.DefaultMaxCompletions
	}
	completions := patterns.PruneCompletions(in.Completions, now, in.HabitWindowDays, maxCompletions)
	ctx.PendingReminderScores = patterns.ScoreReminders(ctx.PendingReminders, completions, now, in.HabitWindowDays)
	ctx.ReminderCompletionRate = patterns.CompletionRate(completions, now, in.HabitWindowDays)
	ctx.MissedReminderCount = in.MissedReminderCount

	if ctx.Trend != nil && ctx.Trend.WeightRecentRangeKg != nil {
		r := *ctx.Trend.WeightRecentRangeKg
		ctx.WeightRecentRangeKg = &r
	}
	if !in.PlanUpdatedAt.IsZero() {
		days := behavior.CalendarDaysBetween(in.PlanUpdatedAt, now)
		ctx.PlanReviewDaysSince = &days
	}
	ctx.PlanReviewTrigger, ctx.PlanReviewMessage = derivePlanReview(ctx)

	ctx.TodayCompletedActionKeys = todayCompletedKeys(now, in.Events)
	return ctx
}

// derivePlanReview picks a plan review trigger. A large recent weight swing
// outranks plan age.
func derivePlanReview(ctx Context) (*string, string) {
	if ctx.WeightRecentRangeKg != nil && *ctx.WeightRecentRangeKg >= weightChangeReviewRange {
		t := TriggerWeightChange
		return &t, "Your weight moved noticeably over the last two weeks."
	}
	if ctx.PlanReviewDaysSince != nil && *ctx.PlanReviewDaysSince >= planAgeReviewDays {
		t := TriggerPlanAge
		return &t, "Your plan hasn't been reviewed in a while."
	}
	return nil, ""
}

func todayCompletedKeys(now time.Time, events []behavior.Event) []string {
	seen := make(map[string]bool)
	for _, e := range events {
		if e.OccurredAt.After(now) || !sameDay(e.OccurredAt, now) {
			continue
		}
		if e.Outcome == behavior.OutcomeCompleted || e.Outcome == behavior.OutcomePerformed {
			seen[e.ActionKey] = true
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

func sameDay(t, now time.Time) bool {
	return behavior.CalendarDaysBetween(t, now) == 0
}

// Hour returns the local hour of the snapshot.
func (c Context) Hour() int {
	return c.Now.Hour()
}

// CalorieProgress returns consumed/goal, or 0 when no goal is set.
func (c Context) CalorieProgress() float64 {
	if c.CalorieGoal <= 0 {
		return 0
	}
	return c.CaloriesConsumed / c.CalorieGoal
}

// ProteinProgress returns consumed/goal, or 0 when no goal is set.
func (c Context) ProteinProgress() float64 {
	if c.ProteinGoal <= 0 {
		return 0
	}
	return c.ProteinConsumed / c.ProteinGoal
}

// CaloriesRemaining returns the positive calorie gap for the day.
func (c Context) CaloriesRemaining() float64 {
	return max(0, c.CalorieGoal-c.CaloriesConsumed)
}

// ProteinRemaining returns the positive protein gap for the day.
func (c Context) ProteinRemaining() float64 {
	return max(0, c.ProteinGoal-c.ProteinConsumed)
}

// CompletedToday reports whether key was completed or performed today.
func (c Context) CompletedToday(key string) bool {
	return key != "" && slices.Contains(c.TodayCompletedActionKeys, key)
}

// ReminderByID returns the pending reminder with the given ID.
func (c Context) ReminderByID(id string) (patterns.ReminderCandidate, bool) {
	for _, r := range c.PendingReminders {
		if r.ID == id {
			return r, true
		}
	}
	return patterns.ReminderCandidate{}, false
}

// WorkoutOwed reports whether a workout is still expected today: none done or
// in progress, and either a workout is recommended or today is a habitual
// workout day.
func (c Context) WorkoutOwed() bool {
	if c.HasWorkoutToday || c.HasActiveWorkout {
		return false
	}
	return c.RecommendedWorkoutName != nil || c.Patterns.IsWorkoutDay(c.Now.Weekday())
}
