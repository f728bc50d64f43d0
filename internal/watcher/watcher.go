// Package watcher periodically recomputes the day's guidance and emits an
// alert only when something new should reach the user.
package watcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/blackwell-systems/pulse/internal/coach"
	"github.com/blackwell-systems/pulse/internal/pulse"
)

// WatchState captures one recomputation of the day's guidance.
type WatchState struct {
	Timestamp         time.Time
	Phase             coach.Phase
	Surfaced          pulse.ContentSnapshot
	CaloriesRemaining float64
	ProteinRemaining  float64
	PendingReminders  int
	MissedReminders   int
}

// Alert levels.
const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Alert represents a notable change detected by the watcher.
type Alert struct {
	Level   string
	Title   string
	Message string
	Time    time.Time
}

// SnapshotFunc recomputes the state as of now.
type SnapshotFunc func(ctx context.Context, now time.Time) (*WatchState, error)

// Watcher recomputes state at a regular interval and emits alerts when
// notable changes are detected.
type Watcher struct {
	snapshot      SnapshotFunc
	interval      time.Duration
	previous      *WatchState
	alertFn       func(Alert)
	lastAlertKeys map[string]bool
	now           func() time.Time
	logger        *zap.Logger
}

// New creates a Watcher. A nil logger discards log output.
func New(snapshot SnapshotFunc, interval time.Duration, alertFn func(Alert), logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		snapshot:      snapshot,
		interval:      interval,
		alertFn:       alertFn,
		lastAlertKeys: make(map[string]bool),
		now:           time.Now,
		logger:        logger,
	}
}

// Run emits alerts for the current state, then rechecks at every interval.
// Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", w.interval)
	}

	w.emit(w.Check(ctx))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.emit(w.Check(ctx))
		}
	}
}

func (w *Watcher) emit(alerts []Alert) {
	if w.alertFn == nil {
		return
	}
	for _, a := range alerts {
		w.alertFn(a)
	}
}

// Check performs a single cycle: recompute, compare against the previous
// state, and return alerts not already emitted in the previous cycle.
func (w *Watcher) Check(ctx context.Context) []Alert {
	now := w.now()
	curr, err := w.snapshot(ctx, now)
	if err != nil {
		w.logger.Warn("recompute failed", zap.Error(err))
		return w.dedup([]Alert{{
			Level:   LevelWarning,
			Title:   "Recompute failed",
			Message: fmt.Sprintf("Could not load today's data: %v", err),
			Time:    now,
		}})
	}

	alerts := w.dedup(Compare(w.previous, curr))
	w.logger.Debug("watch cycle",
		zap.String("phase", curr.Phase.String()),
		zap.String("surface", string(curr.Surfaced.Surface)),
		zap.Int("alerts", len(alerts)),
	)
	w.previous = curr
	return alerts
}

// dedup suppresses alerts identical to ones raised in the last cycle.
func (w *Watcher) dedup(raw []Alert) []Alert {
	currentKeys := make(map[string]bool, len(raw))
	var alerts []Alert
	for _, a := range raw {
		key := a.Level + ":" + a.Title + ":" + a.Message
		currentKeys[key] = true
		if !w.lastAlertKeys[key] {
			alerts = append(alerts, a)
		}
	}
	w.lastAlertKeys = currentKeys
	return alerts
}
