package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/pulse/internal/behavior"
	"github.com/blackwell-systems/pulse/internal/coach"
	"github.com/blackwell-systems/pulse/internal/config"
	"github.com/blackwell-systems/pulse/internal/patterns"
	"github.com/blackwell-systems/pulse/internal/store"
)

// lookbackDays is the widest window any derived view needs.
func lookbackDays(cfg *config.Config) int {
	return max(cfg.Profile.WindowDays, cfg.Profile.PatternWindowDays, cfg.Habits.WindowDays, behavior.DefaultWindowDays, patterns.DefaultWindowDays) + 1
}

// loadInput reads everything the coach context is built from. The reads are
// independent and run concurrently.
func loadInput(ctx context.Context, db *store.DB, cfg *config.Config, now time.Time) (coach.ContextInput, error) {
	since := now.AddDate(0, 0, -lookbackDays(cfg))
	in := coach.ContextInput{
		Now:                    now,
		Goals:                  coach.Goals{Calories: cfg.Goals.Calories, ProteinG: cfg.Goals.ProteinG},
		RecommendedWorkoutName: cfg.Host.RecommendedWorkout,
		ReadyMuscleCount:       cfg.Host.ReadyMuscleCount,
		ActiveSignals:          cfg.Host.ActiveSignals,
		ProfileWindowDays:      cfg.Profile.WindowDays,
		PatternWindowDays:      cfg.Profile.PatternWindowDays,
		HabitWindowDays:        cfg.Habits.WindowDays,
		HabitMaxCompletions:    cfg.Habits.MaxCompletions,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		events, err := db.EventsSince(since)
		if err != nil {
			return fmt.Errorf("loading events: %w", err)
		}
		in.Events = events
		return nil
	})

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		logs, err := db.LoadInputs(since)
		if err != nil {
			return fmt.Errorf("loading logs: %w", err)
		}
		in.Logs = logs
		return nil
	})

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		pending, missed, err := db.PendingReminders(now)
		if err != nil {
			return fmt.Errorf("loading reminders: %w", err)
		}
		in.PendingReminders = pending
		in.MissedReminderCount = missed
		return nil
	})

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		completions, err := db.CompletionsSince(since)
		if err != nil {
			return fmt.Errorf("loading reminder completions: %w", err)
		}
		in.Completions = completions
		return nil
	})

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		updated, err := db.PlanUpdatedAt()
		if err != nil {
			return fmt.Errorf("loading plan state: %w", err)
		}
		in.PlanUpdatedAt = updated
		return nil
	})

	if err := g.Wait(); err != nil {
		return coach.ContextInput{}, err
	}
	return in, nil
}

// loadContext builds today's coach context as of now.
func loadContext(ctx context.Context, db *store.DB, cfg *config.Config, now time.Time) (coach.Context, error) {
	in, err := loadInput(ctx, db, cfg, now)
	if err != nil {
		return coach.Context{}, err
	}
	return coach.NewContext(in), nil
}
