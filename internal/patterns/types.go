// Package patterns derives higher-level behavioral signals (habitual times,
// streaks, cadence, weekly trends, reminder habit scores) from raw logs.
package patterns

import "time"

// NutritionEntry is a single logged food item or meal.
type NutritionEntry struct {
	LoggedAt time.Time `json:"logged_at"`
	Calories float64   `json:"calories"`
	ProteinG float64   `json:"protein_g"`
}

// WorkoutEntry is a single workout session. EndedAt is zero while the
// workout is still in progress.
type WorkoutEntry struct {
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	Name      string    `json:"name"`
	Minutes   int       `json:"minutes"`
}

// Active reports whether the workout has not been finished.
func (w WorkoutEntry) Active() bool {
	return w.EndedAt.IsZero()
}

// WeightEntry is a single weigh-in.
type WeightEntry struct {
	LoggedAt time.Time `json:"logged_at"`
	WeightKg float64   `json:"weight_kg"`
}

// Inputs bundles the raw logs the pattern service reads.
type Inputs struct {
	Nutrition []NutritionEntry
	Workouts  []WorkoutEntry
	Weights   []WeightEntry
}

// Profile holds habitual patterns inferred from the logs.
type Profile struct {
	GeneratedAt           time.Time `json:"generated_at"`
	WindowDays            int       `json:"window_days"`
	MealLogTimes          []string  `json:"meal_log_times"`
	WorkoutTimes          []string  `json:"workout_times"`
	WorkoutDays           []string  `json:"workout_days"`
	WeighInTimes          []string  `json:"weigh_in_times"`
	WeighInDays           []string  `json:"weigh_in_days"`
	AdherenceStreakDays   int       `json:"adherence_streak_days"`
	WorkoutsPerWeek       float64   `json:"workouts_per_week"`
	WeightLogRoutineScore float64   `json:"weight_log_routine_score"`
}

// TrendSnapshot compares recent behavior against the previous week.
type TrendSnapshot struct {
	GeneratedAt         time.Time `json:"generated_at"`
	DaysCovered         int       `json:"days_covered"`
	AvgCaloriesThisWeek float64   `json:"avg_calories_this_week"`
	AvgCaloriesLastWeek float64   `json:"avg_calories_last_week"`
	AvgProteinThisWeek  float64   `json:"avg_protein_this_week"`
	AvgProteinLastWeek  float64   `json:"avg_protein_last_week"`
	WorkoutsThisWeek    int       `json:"workouts_this_week"`
	WorkoutsLastWeek    int       `json:"workouts_last_week"`
	WeightChangeKg      *float64  `json:"weight_change_kg,omitempty"`
	WeightRecentRangeKg *float64  `json:"weight_recent_range_kg,omitempty"`
}

// WeightRoutine summarizes weigh-in recency and habit.
type WeightRoutine struct {
	DaysSinceLastLog *int     `json:"days_since_last_log,omitempty"`
	LoggedThisWeek   bool     `json:"logged_this_week"`
	LikelyWeekday    string   `json:"likely_weekday,omitempty"`
	LikelyTimes      []string `json:"likely_times"`
	RoutineScore     float64  `json:"routine_score"`
}
