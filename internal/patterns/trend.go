package patterns

import (
	"math"
	"time"
)

// trendWindowDays is the look-back for trend coverage and weight range.
const trendWindowDays = 14

// BuildTrend compares the last seven days against the seven before them.
// It returns nil when there is nothing logged in the trend window.
func BuildTrend(now time.Time, in Inputs) *TrendSnapshot {
	loc := now.Location()
	weekAgo := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -trendWindowDays)

	type dayTotals struct{ calories, protein float64 }
	thisWeek := make(map[string]*dayTotals)
	lastWeek := make(map[string]*dayTotals)

	for _, n := range in.Nutrition {
		if !inWindow(n.LoggedAt, twoWeeksAgo, now) {
			continue
		}
		bucket := lastWeek
		if n.LoggedAt.After(weekAgo) {
			bucket = thisWeek
		}
		key := dayKey(n.LoggedAt, loc)
		d, ok := bucket[key]
		if !ok {
			d = &dayTotals{}
			bucket[key] = d
		}
		d.calories += n.Calories
		d.protein += n.ProteinG
	}

	snap := &TrendSnapshot{GeneratedAt: now}
	seen := false

	covered := make(map[string]bool)
	for k := range thisWeek {
		covered[k] = true
	}
	for k := range lastWeek {
		covered[k] = true
	}
	snap.DaysCovered = len(covered)
	if snap.DaysCovered > 0 {
		seen = true
	}

	avg := func(days map[string]*dayTotals) (float64, float64) {
		if len(days) == 0 {
			return 0, 0
		}
		var cal, pro float64
		for _, d := range days {
			cal += d.calories
			pro += d.protein
		}
		n := float64(len(days))
		return roundTo(cal/n, 1), roundTo(pro/n, 1)
	}
	snap.AvgCaloriesThisWeek, snap.AvgProteinThisWeek = avg(thisWeek)
	snap.AvgCaloriesLastWeek, snap.AvgProteinLastWeek = avg(lastWeek)

	for _, w := range in.Workouts {
		if w.Active() || !inWindow(w.StartedAt, twoWeeksAgo, now) {
			continue
		}
		seen = true
		if w.StartedAt.After(weekAgo) {
			snap.WorkoutsThisWeek++
		} else {
			snap.WorkoutsLastWeek++
		}
	}

	var first, last WeightEntry
	minKg, maxKg := math.Inf(1), math.Inf(-1)
	for _, w := range in.Weights {
		if !inWindow(w.LoggedAt, twoWeeksAgo, now) {
			continue
		}
		seen = true
		if first.LoggedAt.IsZero() || w.LoggedAt.Before(first.LoggedAt) {
			first = w
		}
		if last.LoggedAt.IsZero() || w.LoggedAt.After(last.LoggedAt) {
			last = w
		}
		minKg = math.Min(minKg, w.WeightKg)
		maxKg = math.Max(maxKg, w.WeightKg)
	}
	if !first.LoggedAt.IsZero() {
		change := roundTo(last.WeightKg-first.WeightKg, 2)
		spread := roundTo(maxKg-minKg, 2)
		snap.WeightChangeKg = &change
		snap.WeightRecentRangeKg = &spread
	}

	if !seen {
		return nil
	}
	return snap
}

// CalorieDelta returns this week's average calories minus last week's.
func (t *TrendSnapshot) CalorieDelta() float64 {
	if t == nil {
		return 0
	}
	return t.AvgCaloriesThisWeek - t.AvgCaloriesLastWeek
}
