package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/pulse/internal/behavior"
	"github.com/blackwell-systems/pulse/internal/patterns"
	"github.com/blackwell-systems/pulse/internal/pulse"
)

var _ pulse.CooldownStore = (*DB)(nil)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	db.SetLocation(time.UTC)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func ts(day, hour, minute int) time.Time {
	return time.Date(2026, time.March, day, hour, minute, 0, 0, time.UTC)
}

func TestOpen_CreatesFileAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pulse.db")
	db, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var version int
	require.NoError(t, db.Conn().QueryRow("SELECT version FROM schema_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	// Migrating again is a no-op.
	require.NoError(t, db.Migrate())
}

func TestEvents_RoundTrip(t *testing.T) {
	db := openTest(t)

	id, err := db.AppendEvent(behavior.Event{
		ActionKey:  behavior.KeyLogFood,
		Outcome:    behavior.OutcomeCompleted,
		OccurredAt: ts(10, 12, 30),
		Metadata:   map[string]string{"meal": "lunch"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = db.AppendEvent(behavior.Event{
		ID:         "old",
		ActionKey:  behavior.KeyLogWeight,
		Outcome:    behavior.OutcomePerformed,
		OccurredAt: ts(1, 7, 0),
	})
	require.NoError(t, err)

	events, err := db.EventsSince(ts(5, 0, 0))
	require.NoError(t, err)
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, id, e.ID)
	assert.Equal(t, behavior.DomainNutrition, e.Domain)
	assert.Equal(t, behavior.SurfaceSystem, e.Surface)
	assert.Equal(t, behavior.OutcomeCompleted, e.Outcome)
	assert.True(t, e.OccurredAt.Equal(ts(10, 12, 30)))
	assert.Equal(t, "lunch", e.Metadata["meal"])
}

func TestEventsBetween(t *testing.T) {
	db := openTest(t)

	for i, day := range []int{3, 8, 12} {
		_, err := db.AppendEvent(behavior.Event{
			ID:         fmt.Sprintf("e%d", i),
			ActionKey:  behavior.KeyLogFood,
			Outcome:    behavior.OutcomeCompleted,
			OccurredAt: ts(day, 9, 0),
		})
		require.NoError(t, err)
	}

	events, err := db.EventsBetween(ts(8, 9, 0), ts(12, 8, 59))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].ID)

	events, err = db.EventsBetween(ts(1, 0, 0), ts(12, 9, 0))
	require.NoError(t, err)
	assert.Len(t, events, 3)

	_, err = db.EventsBetween(ts(12, 0, 0), ts(1, 0, 0))
	assert.Error(t, err)
}

func TestLogs_LoadInputs(t *testing.T) {
	db := openTest(t)

	require.NoError(t, db.InsertNutrition(patterns.NutritionEntry{LoggedAt: ts(10, 8, 0), Calories: 450, ProteinG: 30}, "oats"))
	require.NoError(t, db.InsertNutrition(patterns.NutritionEntry{LoggedAt: ts(2, 8, 0), Calories: 999}, ""))
	require.NoError(t, db.InsertWeight(patterns.WeightEntry{LoggedAt: ts(9, 7, 0), WeightKg: 81.4}))
	_, err := db.InsertWorkout(patterns.WorkoutEntry{StartedAt: ts(9, 18, 0), EndedAt: ts(9, 18, 50), Name: "Push", Minutes: 50})
	require.NoError(t, err)
	_, err = db.InsertWorkout(patterns.WorkoutEntry{StartedAt: ts(1, 18, 0), Name: "Forgotten"})
	require.NoError(t, err)

	in, err := db.LoadInputs(ts(5, 0, 0))
	require.NoError(t, err)
	require.Len(t, in.Nutrition, 1)
	assert.Equal(t, 450.0, in.Nutrition[0].Calories)
	require.Len(t, in.Weights, 1)
	assert.Equal(t, 81.4, in.Weights[0].WeightKg)
	require.Len(t, in.Workouts, 2, "active workouts are loaded regardless of age")
	assert.True(t, in.Workouts[0].Active())
	assert.False(t, in.Workouts[1].Active())

	latest, err := db.LatestWeight()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.LoggedAt.Equal(ts(9, 7, 0)))
}

func TestFinishActiveWorkout(t *testing.T) {
	db := openTest(t)

	_, err := db.FinishActiveWorkout(ts(10, 9, 0))
	assert.ErrorIs(t, err, ErrNoActiveWorkout)

	_, err = db.InsertWorkout(patterns.WorkoutEntry{StartedAt: ts(10, 7, 0), Name: "Legs"})
	require.NoError(t, err)
	w, err := db.FinishActiveWorkout(ts(10, 7, 45))
	require.NoError(t, err)
	assert.Equal(t, "Legs", w.Name)
	assert.Equal(t, 45, w.Minutes)

	in, err := db.LoadInputs(ts(10, 0, 0))
	require.NoError(t, err)
	require.Len(t, in.Workouts, 1)
	assert.False(t, in.Workouts[0].Active())
}

func TestReminders(t *testing.T) {
	db := openTest(t)
	now := ts(18, 12, 0)

	vitamins, err := db.AddReminder("Vitamins", 8, 0, now)
	require.NoError(t, err)
	stretch, err := db.AddReminder("Stretch", 21, 0, now)
	require.NoError(t, err)
	water, err := db.AddReminder("Water", 10, 0, now)
	require.NoError(t, err)

	_, err = db.AddReminder("", 8, 0, now)
	assert.Error(t, err)
	_, err = db.AddReminder("Bad", 24, 0, now)
	assert.Error(t, err)

	list, err := db.ListReminders(true)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Vitamins", "Water", "Stretch"}, []string{list[0].Title, list[1].Title, list[2].Title})

	c, err := db.CompleteReminder(vitamins.ID, ts(18, 8, 10))
	require.NoError(t, err)
	assert.True(t, c.WasOnTime)

	pending, missed, err := db.PendingReminders(now)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, water.ID, pending[0].ID)
	assert.Equal(t, stretch.ID, pending[1].ID)
	assert.Equal(t, 1, missed, "water at 10:00 has passed")

	require.NoError(t, db.DeactivateReminder(water.ID))
	assert.ErrorIs(t, db.DeactivateReminder("nope"), ErrReminderNotFound)
	pending, _, err = db.PendingReminders(now)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = db.CompleteReminder("nope", now)
	assert.ErrorIs(t, err, ErrReminderNotFound)

	completions, err := db.CompletionsSince(ts(1, 0, 0))
	require.NoError(t, err)
	require.Len(t, completions, 1)
	assert.Equal(t, vitamins.ID, completions[0].ReminderID)
}

func TestCooldownStore(t *testing.T) {
	db := openTest(t)

	_, ok, err := db.LastShown(pulse.CooldownPlanProposal)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.MarkShown(pulse.CooldownPlanProposal, ts(10, 9, 0)))
	require.NoError(t, db.MarkShown(pulse.CooldownPlanProposal, ts(12, 9, 0)))

	last, ok, err := db.LastShown(pulse.CooldownPlanProposal)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, last.Equal(ts(12, 9, 0)))
}

func TestPolicyEngineOverSQLite(t *testing.T) {
	db := openTest(t)
	engine := pulse.NewPolicyEngine(db, pulse.PolicyConfig{}, nil)
	now := ts(18, 10, 0)
	req := pulse.Request{}
	req.Context.Now = now
	req.Context.Trend = &patterns.TrendSnapshot{DaysCovered: 10}

	first := engine.Apply(pulse.FromProposal(pulse.PlanProposal{ID: "p"}, now), req, now)
	assert.Equal(t, pulse.SurfacePlanProposal, first.Surface)

	// A fresh engine over the same store still sees the cooldown.
	restarted := pulse.NewPolicyEngine(db, pulse.PolicyConfig{}, nil)
	second := restarted.Apply(pulse.FromProposal(pulse.PlanProposal{ID: "p"}, now), req, now.Add(time.Hour))
	assert.Equal(t, pulse.SurfaceCoachNote, second.Surface)
	assert.Nil(t, second.Proposal)
}

func TestPlanUpdatedAt(t *testing.T) {
	db := openTest(t)

	got, err := db.PlanUpdatedAt()
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	require.NoError(t, db.SetPlanUpdatedAt(ts(1, 9, 0)))
	got, err = db.PlanUpdatedAt()
	require.NoError(t, err)
	assert.True(t, got.Equal(ts(1, 9, 0)))
}
