package behavior

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.March, day, hour, minute, 0, 0, time.UTC)
}

func event(key string, outcome Outcome, ts time.Time) Event {
	return Event{
		ActionKey:  key,
		Domain:     DomainForKey(key),
		Surface:    SurfaceDashboard,
		Outcome:    outcome,
		OccurredAt: ts,
	}
}

func TestBuildProfile_ExcludesDismissedEventsAndTracksLatestActionTime(t *testing.T) {
	now := at(10, 12, 0)
	events := []Event{
		event(KeyLogWeight, OutcomeCompleted, at(9, 7, 0)),
		event(KeyLogWeight, OutcomeCompleted, at(8, 7, 30)),
		event(KeyLogWeight, OutcomeDismissed, at(10, 9, 0)),
		event(KeyLogFood, OutcomeSuggestedTap, at(10, 8, 0)),
		event(KeyLogFood, OutcomeDismissed, at(10, 11, 0)),
	}

	p := BuildProfile(now, events, 7)

	assert.Equal(t, 2, p.ActionCounts[KeyLogWeight])
	assert.Equal(t, 1, p.ActionCounts[KeyLogFood])
	assert.Equal(t, map[int]int{7: 2}, p.ActionHourlyCounts[KeyLogWeight])
	assert.Equal(t, map[int]int{8: 1}, p.ActionHourlyCounts[KeyLogFood])
	assert.Equal(t, at(9, 7, 0), p.LastActionAt[KeyLogWeight])
	assert.Equal(t, at(10, 8, 0), p.LastActionAt[KeyLogFood])
}

func TestBuildProfile_CountsAndHistogramsAgree(t *testing.T) {
	now := at(10, 22, 0)
	var events []Event
	outcomes := []Outcome{OutcomeCompleted, OutcomePerformed, OutcomeOpened, OutcomeSuggestedTap, OutcomeDismissed, OutcomePresented}
	for i, o := range outcomes {
		events = append(events, event(KeyStartWorkout, o, at(10, 6+i, 0)))
	}

	p := BuildProfile(now, events, 3)

	total := 0
	for _, c := range p.ActionHourlyCounts[KeyStartWorkout] {
		total += c
	}
	assert.Equal(t, p.ActionCounts[KeyStartWorkout], total)
	assert.Equal(t, 4, total)
}

func TestBuildProfile_RespectsWindow(t *testing.T) {
	now := at(20, 12, 0)
	events := []Event{
		event(KeyLogFood, OutcomeCompleted, at(1, 8, 0)),
		event(KeyLogFood, OutcomeCompleted, at(18, 8, 0)),
		event(KeyLogFood, OutcomeCompleted, at(21, 8, 0)), // future
	}

	p := BuildProfile(now, events, 3)
	assert.Equal(t, 1, p.ActionCounts[KeyLogFood])

	p = BuildProfile(now, events, 0)
	assert.Equal(t, DefaultWindowDays, p.WindowDays)
	assert.Equal(t, 1, p.ActionCounts[KeyLogFood])
}

func TestDaysSinceLastAction_UsesCalendarDays(t *testing.T) {
	now := at(10, 9, 0)
	// 13 hours earlier, before midnight.
	events := []Event{event(KeyLogWeight, OutcomeCompleted, now.Add(-13*time.Hour))}
	p := BuildProfile(now, events, 7)

	days := p.DaysSinceLastAction(KeyLogWeight, now)
	require.NotNil(t, days)
	assert.Equal(t, 1, *days)

	assert.Nil(t, p.DaysSinceLastAction(KeyLogFood, now))
}

func TestDaysSinceLastAction_SameDay(t *testing.T) {
	now := at(10, 23, 0)
	p := BuildProfile(now, []Event{event(KeyLogWeight, OutcomeCompleted, at(10, 0, 30))}, 7)
	days := p.DaysSinceLastAction(KeyLogWeight, now)
	require.NotNil(t, days)
	assert.Equal(t, 0, *days)
}

func TestCalendarDaysBetween_LateNightToEarlyMorning(t *testing.T) {
	assert.Equal(t, 1, CalendarDaysBetween(at(9, 23, 0), at(10, 1, 0)))
	assert.Equal(t, 3, CalendarDaysBetween(at(7, 12, 0), at(10, 1, 0)))
}

func TestLikelyTimeLabels_EmptyBelowMinimumEvents(t *testing.T) {
	now := at(10, 12, 0)
	events := []Event{
		event(KeyLogWeight, OutcomeCompleted, at(8, 7, 0)),
		event(KeyLogWeight, OutcomeCompleted, at(9, 7, 0)),
	}
	p := BuildProfile(now, events, 7)

	assert.Empty(t, p.LikelyTimeLabels(KeyLogWeight, 2, 3))
	assert.Equal(t, []string{LabelMorning}, p.LikelyTimeLabels(KeyLogWeight, 2, 2))
}

func TestLikelyTimeLabels_SortedByCountThenLabel(t *testing.T) {
	now := at(10, 23, 0)
	events := []Event{
		event(KeyLogFood, OutcomeCompleted, at(8, 19, 0)),
		event(KeyLogFood, OutcomeCompleted, at(9, 20, 0)),
		event(KeyLogFood, OutcomeCompleted, at(9, 13, 0)),
		event(KeyLogFood, OutcomeCompleted, at(10, 7, 0)),
	}
	p := BuildProfile(now, events, 7)

	labels := p.LikelyTimeLabels(KeyLogFood, 3, 1)
	assert.Equal(t, []string{LabelEvening, LabelEarlyAfternoon, LabelMorning}, labels)

	assert.Equal(t, []string{LabelEvening}, p.LikelyTimeLabels(KeyLogFood, 1, 1))
	assert.Empty(t, p.LikelyTimeLabels(KeyLogFood, 0, 1))
}

func TestHourlyPreferenceScore_SmoothingKernel(t *testing.T) {
	p := ProfileSnapshot{
		ActionCounts:       map[string]int{KeyLogWeight: 4},
		ActionHourlyCounts: map[string]map[int]int{KeyLogWeight: {7: 1, 8: 2, 9: 1}},
	}

	assert.InDelta(t, 0.675, p.HourlyPreferenceScore(KeyLogWeight, 8, 3), 0.0001)
	assert.InDelta(t, (1+0.35*2)/4.0, p.HourlyPreferenceScore(KeyLogWeight, 7, 3), 0.0001)
	assert.InDelta(t, 0.35/4.0, p.HourlyPreferenceScore(KeyLogWeight, 10, 3), 0.0001)
	assert.Zero(t, p.HourlyPreferenceScore(KeyLogWeight, 15, 3))
	assert.Zero(t, p.HourlyPreferenceScore(KeyLogWeight, 8, 5))
}

func TestHourlyPreferenceScore_WrapsMidnight(t *testing.T) {
	p := ProfileSnapshot{
		ActionCounts:       map[string]int{KeyLogFood: 2},
		ActionHourlyCounts: map[string]map[int]int{KeyLogFood: {23: 1, 0: 1}},
	}
	assert.InDelta(t, (1+0.35)/2.0, p.HourlyPreferenceScore(KeyLogFood, 0, 1), 0.0001)
	assert.InDelta(t, (1+0.35)/2.0, p.HourlyPreferenceScore(KeyLogFood, 23, 1), 0.0001)
}

func TestTimeBucketForHour(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{4, LabelMorning},
		{8, LabelMorning},
		{9, LabelLateMorning},
		{12, LabelEarlyAfternoon},
		{17, LabelMidAfternoon},
		{18, LabelEvening},
		{22, LabelNight},
		{3, LabelNight},
		{27, LabelNight},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, TimeBucketForHour(tc.hour), "hour %d", tc.hour)
	}
	assert.True(t, HourInLabel(LabelNight, 1))
	assert.False(t, HourInLabel("Brunch", 10))
}

func TestDomainForKey(t *testing.T) {
	assert.Equal(t, DomainBody, DomainForKey(KeyLogWeight))
	assert.Equal(t, DomainNutrition, DomainForKey(KeyLogFood))
	assert.Equal(t, DomainGeneral, DomainForKey("custom.thing"))
	assert.Equal(t, DomainGeneral, DomainForKey("nodots"))
}

func TestParseOutcomeAndSurface(t *testing.T) {
	o, ok := ParseOutcome("suggested_tap")
	require.True(t, ok)
	assert.Equal(t, OutcomeSuggestedTap, o)
	_, ok = ParseOutcome("clicked")
	assert.False(t, ok)

	s, ok := ParseSurface("live_activity")
	require.True(t, ok)
	assert.Equal(t, SurfaceLiveActivity, s)
	_, ok = ParseSurface("")
	assert.False(t, ok)
}
