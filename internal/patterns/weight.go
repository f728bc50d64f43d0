package patterns

import (
	"math"
	"time"

	"github.com/blackwell-systems/pulse/internal/behavior"
)

// BuildWeightRoutine summarizes how regularly the user weighs in. The routine
// score rewards weigh-ins that concentrate in one time-of-day bucket and one
// weekday, scaled down until there are at least four weigh-ins in the window.
func BuildWeightRoutine(now time.Time, weights []WeightEntry, windowDays int) WeightRoutine {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	cutoff := now.AddDate(0, 0, -windowDays)
	loc := now.Location()

	routine := WeightRoutine{LikelyTimes: []string{}}

	var latest time.Time
	var inWin []time.Time
	for _, w := range weights {
		if w.LoggedAt.After(now) {
			continue
		}
		if w.LoggedAt.After(latest) {
			latest = w.LoggedAt
		}
		if sameISOWeek(w.LoggedAt.In(loc), now) {
			routine.LoggedThisWeek = true
		}
		if !w.LoggedAt.Before(cutoff) {
			inWin = append(inWin, w.LoggedAt.In(loc))
		}
	}
	if !latest.IsZero() {
		days := behavior.CalendarDaysBetween(latest, now)
		routine.DaysSinceLastLog = &days
	}

	n := len(inWin)
	if n == 0 {
		return routine
	}

	routine.LikelyTimes = habitualTimes(inWin, 2)
	if days := habitualWeekdays(inWin); len(days) > 0 {
		routine.LikelyWeekday = days[0]
	}

	bucketCounts := make(map[string]int)
	weekdayCounts := make(map[time.Weekday]int)
	for _, t := range inWin {
		bucketCounts[behavior.TimeBucketForHour(t.Hour())]++
		weekdayCounts[t.Weekday()]++
	}
	topTime, topWeekday := 0, 0
	for _, c := range bucketCounts {
		topTime = max(topTime, c)
	}
	for _, c := range weekdayCounts {
		topWeekday = max(topWeekday, c)
	}

	evidence := math.Min(1, float64(n)/4)
	share := 0.6*float64(topTime)/float64(n) + 0.4*float64(topWeekday)/float64(n)
	routine.RoutineScore = roundTo(evidence*share, 3)
	return routine
}

// DueForWeighIn reports whether a weigh-in is plausibly due: never logged, or
// not yet logged today.
func DueForWeighIn(daysSinceLastLog *int) bool {
	return daysSinceLastLog == nil || *daysSinceLastLog >= 1
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
