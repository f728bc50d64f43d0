package behavior

import (
	"math"
	"sort"
	"time"
)

// DefaultWindowDays is the profile window used when callers pass zero.
const DefaultWindowDays = 14

// neighborWeight is the weight of each adjacent hour in HourlyPreferenceScore.
const neighborWeight = 0.35

// ProfileSnapshot is a rolling-window summary of the event log. It is derived
// per request and never persisted.
type ProfileSnapshot struct {
	GeneratedAt        time.Time              `json:"generated_at"`
	WindowDays         int                    `json:"window_days"`
	ActionCounts       map[string]int         `json:"action_counts"`
	ActionHourlyCounts map[string]map[int]int `json:"action_hourly_counts"`
	LastActionAt       map[string]time.Time   `json:"last_action_at"`
}

// BuildProfile aggregates events that occurred within the last windowDays of
// now. Only usage outcomes are counted; dismissals and passive presentations
// are skipped so counts and histograms always describe the same subset.
func BuildProfile(now time.Time, events []Event, windowDays int) ProfileSnapshot {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	snap := ProfileSnapshot{
		GeneratedAt:        now,
		WindowDays:         windowDays,
		ActionCounts:       make(map[string]int),
		ActionHourlyCounts: make(map[string]map[int]int),
		LastActionAt:       make(map[string]time.Time),
	}

	cutoff := now.AddDate(0, 0, -windowDays)
	for _, e := range events {
		if e.ActionKey == "" || !e.Outcome.countsAsUsage() {
			continue
		}
		if e.OccurredAt.Before(cutoff) || e.OccurredAt.After(now) {
			continue
		}

		snap.ActionCounts[e.ActionKey]++

		hourly, ok := snap.ActionHourlyCounts[e.ActionKey]
		if !ok {
			hourly = make(map[int]int)
			snap.ActionHourlyCounts[e.ActionKey] = hourly
		}
		hourly[e.OccurredAt.Hour()]++

		if last, ok := snap.LastActionAt[e.ActionKey]; !ok || e.OccurredAt.After(last) {
			snap.LastActionAt[e.ActionKey] = e.OccurredAt
		}
	}
	return snap
}

// DaysSinceLastAction returns the number of calendar-day boundaries between
// the last occurrence of key and now, evaluated in now's location. It returns
// nil when key does not appear in the snapshot.
func (p ProfileSnapshot) DaysSinceLastAction(key string, now time.Time) *int {
	last, ok := p.LastActionAt[key]
	if !ok {
		return nil
	}
	days := CalendarDaysBetween(last, now)
	return &days
}

// CalendarDaysBetween counts midnight boundaries crossed going from earlier to
// later, using later's location. Negative when earlier is after later.
func CalendarDaysBetween(earlier, later time.Time) int {
	loc := later.Location()
	ey, em, ed := earlier.In(loc).Date()
	ly, lm, ld := later.Date()
	a := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	b := time.Date(ly, lm, ld, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// TotalEvents returns the number of counted events for key.
func (p ProfileSnapshot) TotalEvents(key string) int {
	return p.ActionCounts[key]
}

// LikelyTimeLabels returns up to maxLabels time-of-day labels for key, most
// frequent first. When key has fewer than minimumEvents counted events the
// result is empty: no claim is better than a noisy one.
func (p ProfileSnapshot) LikelyTimeLabels(key string, maxLabels, minimumEvents int) []string {
	if p.TotalEvents(key) < minimumEvents {
		return []string{}
	}
	return LabelsForHours(p.ActionHourlyCounts[key], maxLabels)
}

// HourlyPreferenceScore scores how strongly key clusters around hour.
//
// The kernel weights the exact hour at 1 and each neighbouring hour at 0.35
// (wrapping around midnight), divided by the key's total event count:
//
//	score = (c[h] + 0.35*(c[h-1] + c[h+1])) / total
//
// The result is clamped to [0, 1]. Keys with fewer than minimumEvents events
// score 0.
func (p ProfileSnapshot) HourlyPreferenceScore(key string, hour, minimumEvents int) float64 {
	total := p.TotalEvents(key)
	if total == 0 || total < minimumEvents {
		return 0
	}
	hourly := p.ActionHourlyCounts[key]
	h := normalizeHour(hour)
	weighted := float64(hourly[h]) +
		neighborWeight*float64(hourly[normalizeHour(h-1)]+hourly[normalizeHour(h+1)])
	score := weighted / float64(total)
	return math.Max(0, math.Min(1, score))
}

func topLabels(byLabel map[string]int, maxLabels int) []string {
	type labelCount struct {
		label string
		count int
	}
	ranked := make([]labelCount, 0, len(byLabel))
	for label, count := range byLabel {
		ranked = append(ranked, labelCount{label, count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].label < ranked[j].label
	})
	if len(ranked) > maxLabels {
		ranked = ranked[:maxLabels]
	}
	labels := make([]string, len(ranked))
	for i, lc := range ranked {
		labels[i] = lc.label
	}
	return labels
}
