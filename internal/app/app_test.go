package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blackwell-systems/pulse/internal/behavior"
	"github.com/blackwell-systems/pulse/internal/coach"
	"github.com/blackwell-systems/pulse/internal/config"
	"github.com/blackwell-systems/pulse/internal/patterns"
	"github.com/blackwell-systems/pulse/internal/pulse"
	"github.com/blackwell-systems/pulse/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Profile:     config.DefaultProfile,
		Habits:      config.DefaultHabits,
		Policy:      config.DefaultPolicy,
		Assembler:   config.DefaultAssembler,
		Goals:       config.DefaultGoals,
		Preferences: config.DefaultPreferences,
		Output:      config.DefaultOutput,
		Watch:       config.DefaultWatch,
	}
}

func newTestEnv(t *testing.T) *env {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	db.SetLocation(time.UTC)
	t.Cleanup(func() { _ = db.Close() })
	return &env{cfg: testConfig(), db: db, logger: zap.NewNop()}
}

var noon = time.Date(2026, time.March, 18, 12, 0, 0, 0, time.UTC)

func TestCommands_Registered(t *testing.T) {
	want := []string{"log", "reminder", "profile", "rank", "recommend", "assemble", "watch", "plan", "history"}
	registered := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range want {
		assert.True(t, registered[name], "%s subcommand not registered on rootCmd", name)
	}
}

func TestParseAt(t *testing.T) {
	got, err := parseAt("", noon)
	require.NoError(t, err)
	assert.Equal(t, noon, got)

	got, err = parseAt("07:30", noon)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 18, 7, 30, 0, 0, time.UTC), got)

	got, err = parseAt("2026-03-17T21:00:00Z", noon)
	require.NoError(t, err)
	assert.Equal(t, 17, got.Day())

	_, err = parseAt("yesterday", noon)
	assert.Error(t, err)
}

func TestParseMeta(t *testing.T) {
	meta, err := parseMeta([]string{"source=widget", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"source": "widget", "note": "a=b"}, meta)

	meta, err = parseMeta(nil)
	require.NoError(t, err)
	assert.Nil(t, meta)

	_, err = parseMeta([]string{"=x"})
	assert.Error(t, err)
	_, err = parseMeta([]string{"novalue"})
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	h, m, err := parseClock("19:45")
	require.NoError(t, err)
	assert.Equal(t, 19, h)
	assert.Equal(t, 45, m)

	_, _, err = parseClock("25:00")
	assert.Error(t, err)
}

func TestLookbackDays(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, 31, lookbackDays(cfg))

	cfg.Profile.PatternWindowDays = 60
	assert.Equal(t, 61, lookbackDays(cfg))
}

func TestLoadInput(t *testing.T) {
	e := newTestEnv(t)

	require.NoError(t, e.db.InsertNutrition(patterns.NutritionEntry{LoggedAt: noon.Add(-4 * time.Hour), Calories: 500, ProteinG: 35}, ""))
	require.NoError(t, e.db.InsertWeight(patterns.WeightEntry{LoggedAt: noon.AddDate(0, 0, -2), WeightKg: 80.2}))
	_, err := e.db.AppendEvent(behavior.Event{ActionKey: behavior.KeyLogFood, Outcome: behavior.OutcomeCompleted, OccurredAt: noon.Add(-4 * time.Hour)})
	require.NoError(t, err)
	r, err := e.db.AddReminder("Vitamins", 8, 0, noon.AddDate(0, 0, -5))
	require.NoError(t, err)
	_, err = e.db.CompleteReminder(r.ID, noon.AddDate(0, 0, -1).Add(-4*time.Hour))
	require.NoError(t, err)
	planAt := noon.AddDate(0, 0, -45)
	require.NoError(t, e.db.SetPlanUpdatedAt(planAt))
	e.cfg.Host.RecommendedWorkout = "Push Day"

	in, err := loadInput(context.Background(), e.db, e.cfg, noon)
	require.NoError(t, err)

	assert.Len(t, in.Events, 1)
	assert.Len(t, in.Logs.Nutrition, 1)
	assert.Len(t, in.Logs.Weights, 1)
	require.Len(t, in.PendingReminders, 1)
	assert.Equal(t, 1, in.MissedReminderCount)
	assert.Len(t, in.Completions, 1)
	assert.True(t, in.PlanUpdatedAt.Equal(planAt))
	assert.Equal(t, "Push Day", in.RecommendedWorkoutName)
	assert.Equal(t, 2200.0, in.Goals.Calories)

	cc := coach.NewContext(in)
	assert.Equal(t, 500.0, cc.CaloriesConsumed)
	require.NotNil(t, cc.PlanReviewTrigger)
	assert.Equal(t, coach.TriggerPlanAge, *cc.PlanReviewTrigger)
}

func TestLoadInput_CancelledContext(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loadInput(ctx, e.db, e.cfg, noon)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindReminder(t *testing.T) {
	e := newTestEnv(t)
	vitamins, err := e.db.AddReminder("Vitamins", 8, 0, noon)
	require.NoError(t, err)
	_, err = e.db.AddReminder("Stretch", 21, 0, noon)
	require.NoError(t, err)
	_, err = e.db.AddReminder("Stretch", 7, 0, noon)
	require.NoError(t, err)

	got, err := findReminder(e.db, vitamins.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vitamins", got.Title)

	got, err = findReminder(e.db, "vitamins")
	require.NoError(t, err)
	assert.Equal(t, vitamins.ID, got.ID)

	_, err = findReminder(e.db, "stretch")
	assert.Error(t, err, "duplicate titles must be resolved by ID")

	_, err = findReminder(e.db, "floss")
	assert.ErrorIs(t, err, store.ErrReminderNotFound)
}

func TestSurface(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.db.InsertNutrition(patterns.NutritionEntry{LoggedAt: noon.Add(-3 * time.Hour), Calories: 600, ProteinG: 40}, ""))

	policy := pulse.NewPolicyEngine(e.db, e.cfg.Policy, e.logger)
	s, err := surface(context.Background(), e, policy, nil, noon)
	require.NoError(t, err)

	assert.Equal(t, 600.0, s.Context.CaloriesConsumed)
	assert.True(t, s.Recommendation.Primary.Kind.Valid())
	assert.Equal(t, pulse.SurfaceCoachNote, s.Snapshot.Surface)
	require.NotNil(t, s.Snapshot.Prompt)
	kind, ok := s.Snapshot.Prompt.ActionKind()
	require.True(t, ok)
	assert.Equal(t, s.Recommendation.Primary.Kind, kind)
}

func TestSurface_AsksAfterWorkout(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.db.InsertWorkout(patterns.WorkoutEntry{
		Name:      "Legs",
		StartedAt: noon.Add(-3 * time.Hour),
		EndedAt:   noon.Add(-2 * time.Hour),
		Minutes:   60,
	})
	require.NoError(t, err)

	policy := pulse.NewPolicyEngine(e.db, e.cfg.Policy, e.logger)
	s, err := surface(context.Background(), e, policy, nil, noon)
	require.NoError(t, err)

	assert.True(t, s.Context.HasWorkoutToday)
	assert.Equal(t, pulse.SurfaceQuickCheckin, s.Snapshot.Surface)
	require.NotNil(t, s.Snapshot.Prompt)
	require.NotNil(t, s.Snapshot.Prompt.Question)
	assert.Equal(t, pulse.PostWorkoutQuestionID, s.Snapshot.Prompt.Question.ID)

	// The question has its own cooldown, so the next pass is the routine note.
	again, err := surface(context.Background(), e, policy, nil, noon.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, pulse.SurfaceCoachNote, again.Snapshot.Surface)
	_, ok := again.Snapshot.Prompt.ActionKind()
	assert.True(t, ok)
}

func TestSurface_BlockedQuestionKeepsRoutineNote(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.db.InsertWorkout(patterns.WorkoutEntry{
		StartedAt: noon.Add(-3 * time.Hour),
		EndedAt:   noon.Add(-2 * time.Hour),
		Minutes:   60,
	})
	require.NoError(t, err)

	policy := pulse.NewPolicyEngine(e.db, e.cfg.Policy, e.logger)
	s, err := surface(context.Background(), e, policy, []string{pulse.PostWorkoutQuestionID}, noon)
	require.NoError(t, err)
	assert.Equal(t, pulse.SurfaceCoachNote, s.Snapshot.Surface)
	kind, ok := s.Snapshot.Prompt.ActionKind()
	require.True(t, ok)
	assert.Equal(t, s.Recommendation.Primary.Kind, kind)
}

func TestRecordPresented(t *testing.T) {
	e := newTestEnv(t)
	snap := pulse.ContentSnapshot{
		Surface: pulse.SurfaceCoachNote,
		Prompt:  pulse.ActionPrompt(coach.NewAction(coach.ActionLogFood, "Log Lunch")),
	}
	require.NoError(t, recordPresented(e, snap, noon))
	require.NoError(t, recordPresented(e, pulse.ContentSnapshot{}, noon))

	events, err := e.db.EventsSince(noon.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, behavior.KeyLogFood, events[0].ActionKey)
	assert.Equal(t, behavior.OutcomePresented, events[0].Outcome)
}

func TestBuildProfileReport(t *testing.T) {
	var events []behavior.Event
	for d := 1; d <= 4; d++ {
		events = append(events, behavior.Event{ActionKey: behavior.KeyLogFood, Outcome: behavior.OutcomeCompleted, OccurredAt: noon.AddDate(0, 0, -d)})
	}
	events = append(events, behavior.Event{ActionKey: behavior.KeyLogWeight, Outcome: behavior.OutcomePerformed, OccurredAt: noon.Add(-5 * time.Hour)})
	cc := coach.NewContext(coach.ContextInput{Now: noon, Events: events})

	report := buildProfileReport(cc, "")
	require.Len(t, report.Actions, 2)
	assert.Equal(t, behavior.KeyLogFood, report.Actions[0].Key)
	assert.Equal(t, 4, report.Actions[0].Count)
	assert.Equal(t, 1, report.Actions[0].DaysSince)
	assert.NotEmpty(t, report.Actions[0].LikelyTimes)
	assert.Empty(t, report.Actions[1].LikelyTimes)
	assert.Equal(t, 0, report.Actions[1].DaysSince)

	filtered := buildProfileReport(cc, behavior.KeyLogWeight)
	require.Len(t, filtered.Actions, 1)
	assert.Equal(t, behavior.KeyLogWeight, filtered.Actions[0].Key)
}

func TestPlanProposalRoundTrip(t *testing.T) {
	e := newTestEnv(t)

	_, err := loadPendingProposal(e)
	assert.Error(t, err)

	require.NoError(t, markPlanReviewed(e, noon))
	updated, err := e.db.PlanUpdatedAt()
	require.NoError(t, err)
	assert.True(t, updated.Equal(noon))

	events, err := e.db.EventsSince(noon)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, behavior.KeyReviewPlan, events[0].ActionKey)
}

func TestNewAssembler_UsesConfig(t *testing.T) {
	e := newTestEnv(t)
	e.cfg.Assembler.ReminderThreshold = 0.5
	e.cfg.Assembler.ReminderCap = 1

	a := newAssembler(e)
	assert.Equal(t, 0.5, a.ReminderThreshold)
	assert.Equal(t, 1, a.ReminderCap)
	assert.NotNil(t, a.Count)
}

func TestAssemble_IncludesHabitualReminder(t *testing.T) {
	e := newTestEnv(t)
	r, err := e.db.AddReminder("Vitamins", 12, 0, noon.AddDate(0, 0, -10))
	require.NoError(t, err)
	for d := 1; d <= 7; d++ {
		_, err := e.db.CompleteReminder(r.ID, noon.AddDate(0, 0, -d))
		require.NoError(t, err)
	}

	cc, err := loadContext(context.Background(), e.db, e.cfg, noon)
	require.NoError(t, err)
	require.Len(t, cc.PendingReminders, 1)
	assert.GreaterOrEqual(t, cc.PendingReminderScores[r.ID], config.DefaultAssembler.ReminderThreshold)

	packet := newAssembler(e).Assemble(cc.Patterns, cc.ActiveSignals, cc, e.cfg.Assembler.TokenBudget)
	assert.Contains(t, packet.SuggestedActions, "Complete Vitamins at 12:00 PM")
}

func TestDaysAgo(t *testing.T) {
	assert.Equal(t, "today", daysAgo(0))
	assert.Equal(t, "yesterday", daysAgo(1))
	assert.Equal(t, "6 days ago", daysAgo(6))
}

func TestHistoryRange(t *testing.T) {
	from, to, err := historyRange("", "", 1, noon)
	require.NoError(t, err)
	assert.Equal(t, noon, to)
	assert.Equal(t, noon.AddDate(0, 0, -1), from)

	from, to, err = historyRange("06:00", "09:00", 0, noon)
	require.NoError(t, err)
	assert.Equal(t, 6, from.Hour())
	assert.Equal(t, 9, to.Hour())

	_, _, err = historyRange("", "", 0, noon)
	assert.Error(t, err)
	_, _, err = historyRange("dawn", "", 1, noon)
	assert.Error(t, err)
}

func TestFilterEvents(t *testing.T) {
	events := []behavior.Event{
		{ID: "a", ActionKey: behavior.KeyLogFood},
		{ID: "b", ActionKey: behavior.KeyLogWeight},
		{ID: "c", ActionKey: behavior.KeyLogFood},
	}
	assert.Len(t, filterEvents(events, ""), 3)

	food := filterEvents(events, behavior.KeyLogFood)
	require.Len(t, food, 2)
	assert.Equal(t, "c", food[1].ID)
	assert.Empty(t, filterEvents(events, "missing"))
}

func TestWeightChange(t *testing.T) {
	assert.Equal(t, "", weightChange(nil, 80))
	prev := &patterns.WeightEntry{LoggedAt: noon.AddDate(0, 0, -2), WeightKg: 81.2}
	assert.Equal(t, " (-0.7 kg since Mar 16)", weightChange(prev, 80.5))
}
