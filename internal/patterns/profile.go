package patterns

import (
	"sort"
	"time"

	"github.com/blackwell-systems/pulse/internal/behavior"
)

// DefaultWindowDays is the look-back used by BuildProfile when callers pass zero.
const DefaultWindowDays = 28

// minTimeEvidence is the minimum number of entries before a habitual time
// label is claimed.
const minTimeEvidence = 3

// BuildProfile infers habitual times, days, streaks, and cadence from the
// logs that fall within windowDays of now.
func BuildProfile(now time.Time, in Inputs, windowDays int) Profile {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	cutoff := now.AddDate(0, 0, -windowDays)
	loc := now.Location()

	var mealTimes, workoutTimes, weighTimes []time.Time
	for _, n := range in.Nutrition {
		if inWindow(n.LoggedAt, cutoff, now) {
			mealTimes = append(mealTimes, n.LoggedAt.In(loc))
		}
	}
	for _, w := range in.Workouts {
		if inWindow(w.StartedAt, cutoff, now) && !w.Active() {
			workoutTimes = append(workoutTimes, w.StartedAt.In(loc))
		}
	}
	for _, w := range in.Weights {
		if inWindow(w.LoggedAt, cutoff, now) {
			weighTimes = append(weighTimes, w.LoggedAt.In(loc))
		}
	}

	routine := BuildWeightRoutine(now, in.Weights, windowDays)

	weeks := float64(windowDays) / 7.0
	return Profile{
		GeneratedAt:           now,
		WindowDays:            windowDays,
		MealLogTimes:          habitualTimes(mealTimes, 3),
		WorkoutTimes:          habitualTimes(workoutTimes, 2),
		WorkoutDays:           habitualWeekdays(workoutTimes),
		WeighInTimes:          routine.LikelyTimes,
		WeighInDays:           habitualWeekdays(weighTimes),
		AdherenceStreakDays:   adherenceStreak(now, in.Nutrition),
		WorkoutsPerWeek:       float64(len(workoutTimes)) / weeks,
		WeightLogRoutineScore: routine.RoutineScore,
	}
}

// IsWorkoutDay reports whether weekday is one of the profile's habitual
// workout days.
func (p *Profile) IsWorkoutDay(weekday time.Weekday) bool {
	if p == nil {
		return false
	}
	name := weekday.String()
	for _, d := range p.WorkoutDays {
		if d == name {
			return true
		}
	}
	return false
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

func habitualTimes(times []time.Time, maxLabels int) []string {
	if len(times) < minTimeEvidence {
		return []string{}
	}
	hourly := make(map[int]int)
	for _, t := range times {
		hourly[t.Hour()]++
	}
	return behavior.LabelsForHours(hourly, maxLabels)
}

// habitualWeekdays returns weekdays that account for at least two entries and
// 20% of all entries, most frequent first.
func habitualWeekdays(times []time.Time) []string {
	if len(times) == 0 {
		return []string{}
	}
	counts := make(map[time.Weekday]int)
	for _, t := range times {
		counts[t.Weekday()]++
	}
	var days []time.Weekday
	for d, c := range counts {
		if c >= 2 && float64(c)/float64(len(times)) >= 0.2 {
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool {
		if counts[days[i]] != counts[days[j]] {
			return counts[days[i]] > counts[days[j]]
		}
		return days[i] < days[j]
	})
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()
	}
	return names
}

// adherenceStreak counts consecutive days with at least one nutrition log,
// ending today, or yesterday when nothing has been logged yet today.
func adherenceStreak(now time.Time, entries []NutritionEntry) int {
	logged := make(map[string]bool)
	for _, n := range entries {
		if n.LoggedAt.After(now) {
			continue
		}
		logged[dayKey(n.LoggedAt, now.Location())] = true
	}

	day := now
	if !logged[dayKey(day, now.Location())] {
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for logged[dayKey(day, now.Location())] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

func sameISOWeek(a, b time.Time) bool {
	ay, aw := a.ISOWeek()
	by, bw := b.ISOWeek()
	return ay == by && aw == bw
}
