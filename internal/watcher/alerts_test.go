package watcher

import (
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/pulse/internal/coach"
	"github.com/blackwell-systems/pulse/internal/pulse"
)

var at = time.Date(2026, time.March, 18, 21, 0, 0, 0, time.UTC)

func makeState(phase coach.Phase, primary string) *WatchState {
	s := &WatchState{
		Timestamp:         at,
		Phase:             phase,
		CaloriesRemaining: 800,
		ProteinRemaining:  40,
	}
	if primary != "" {
		s.Surfaced = pulse.ContentSnapshot{
			ID:       primary + "-id",
			Surface:  pulse.SurfaceCoachNote,
			Headline: "On track",
			Prompt:   pulse.ActionPrompt(coach.NewAction(coach.ActionLogFood, primary)),
		}
	}
	return s
}

func hasAlert(alerts []Alert, level, title string) bool {
	for _, a := range alerts {
		if a.Level == level && a.Title == title {
			return true
		}
	}
	return false
}

func TestCompare_IdenticalStates(t *testing.T) {
	prev := makeState(coach.PhaseOnTrack, "Log Food")
	curr := makeState(coach.PhaseOnTrack, "Log Food")
	curr.Surfaced.ID = "regenerated"

	if alerts := Compare(prev, curr); len(alerts) != 0 {
		t.Errorf("expected 0 alerts for identical guidance, got %d", len(alerts))
		for _, a := range alerts {
			t.Logf("  %s", FormatAlert(a))
		}
	}
}

func TestCompare_FirstStateSurfacesItem(t *testing.T) {
	alerts := Compare(nil, makeState(coach.PhaseOnTrack, "Log Food"))
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Level != LevelInfo || alerts[0].Message != "Log Food" {
		t.Errorf("unexpected alert %s", FormatAlert(alerts[0]))
	}
}

func TestCompare_NilCurrent(t *testing.T) {
	if alerts := Compare(makeState(coach.PhaseOnTrack, ""), nil); alerts != nil {
		t.Errorf("expected nil, got %v", alerts)
	}
}

func TestCompare_PhaseTransitions(t *testing.T) {
	tests := []struct {
		name  string
		from  coach.Phase
		to    coach.Phase
		level string
		title string
	}{
		{"enter rescue", coach.PhaseAtRisk, coach.PhaseRescue, LevelCritical, "Rescue mode"},
		{"fall behind", coach.PhaseOnTrack, coach.PhaseAtRisk, LevelWarning, "Falling behind"},
		{"finish day", coach.PhaseOnTrack, coach.PhaseCompleted, LevelInfo, "Day complete"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			alerts := Compare(makeState(tc.from, ""), makeState(tc.to, ""))
			if !hasAlert(alerts, tc.level, tc.title) {
				t.Errorf("expected [%s] %s, got %v", tc.level, tc.title, alerts)
			}
		})
	}
}

func TestCompare_RescueMessageShowsRemaining(t *testing.T) {
	alerts := Compare(nil, makeState(coach.PhaseRescue, ""))
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Message != "800 kcal and 40 g protein left today" {
		t.Errorf("unexpected message %q", alerts[0].Message)
	}
}

func TestCompare_CompletedOnStartIsQuiet(t *testing.T) {
	if alerts := Compare(nil, makeState(coach.PhaseCompleted, "")); len(alerts) != 0 {
		t.Errorf("expected no alerts, got %v", alerts)
	}
}

func TestCompare_MissedReminders(t *testing.T) {
	prev := makeState(coach.PhaseOnTrack, "")
	curr := makeState(coach.PhaseOnTrack, "")
	curr.MissedReminders = 2

	alerts := Compare(prev, curr)
	if !hasAlert(alerts, LevelWarning, "Reminder overdue") {
		t.Fatal("expected overdue reminder alert")
	}
	if !strings.HasPrefix(alerts[0].Message, "2 reminder(s)") {
		t.Errorf("unexpected message %q", alerts[0].Message)
	}

	prev.MissedReminders = 2
	if alerts := Compare(prev, curr); len(alerts) != 0 {
		t.Errorf("expected no alert when the count is unchanged, got %v", alerts)
	}
}

func TestCompare_QuestionSurfaced(t *testing.T) {
	prev := makeState(coach.PhaseOnTrack, "Log Food")
	curr := makeState(coach.PhaseOnTrack, "")
	curr.Surfaced = pulse.ContentSnapshot{
		Surface:  pulse.SurfaceRecoveryProbe,
		Headline: "How did that feel?",
		Prompt:   pulse.QuestionPrompt(pulse.Question{ID: pulse.PostWorkoutQuestionID, Text: "Rate your session"}),
	}

	alerts := Compare(prev, curr)
	if len(alerts) != 1 || alerts[0].Message != "Rate your session" {
		t.Errorf("expected question alert, got %v", alerts)
	}
}

func TestSurfacedKey(t *testing.T) {
	if got := SurfacedKey(pulse.ContentSnapshot{}); got != "" {
		t.Errorf("expected empty key, got %q", got)
	}

	proposal := pulse.NewPlanProposal("Raise calories", "Weight is dropping", "+150 kcal", nil)
	a := pulse.FromProposal(proposal, at)
	b := pulse.FromProposal(proposal, at.Add(time.Hour))
	if SurfacedKey(a) != SurfacedKey(b) {
		t.Error("expected the same proposal to produce the same key")
	}
}

func TestPromptLabel(t *testing.T) {
	if got := PromptLabel(nil); got != "" {
		t.Errorf("expected empty label, got %q", got)
	}
	if got := PromptLabel(&pulse.Prompt{}); got != "" {
		t.Errorf("expected empty label, got %q", got)
	}
}
