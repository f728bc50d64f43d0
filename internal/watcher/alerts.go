package watcher

import (
	"fmt"

	"github.com/blackwell-systems/pulse/internal/coach"
	"github.com/blackwell-systems/pulse/internal/pulse"
)

// Compare detects notable changes between two states. A nil prev treats every
// aspect of curr as new.
func Compare(prev, curr *WatchState) []Alert {
	if curr == nil {
		return nil
	}
	var alerts []Alert
	alerts = append(alerts, comparePhase(prev, curr)...)
	alerts = append(alerts, compareReminders(prev, curr)...)
	alerts = append(alerts, compareSurfaced(prev, curr)...)
	return alerts
}

func comparePhase(prev, curr *WatchState) []Alert {
	if prev != nil && prev.Phase == curr.Phase {
		return nil
	}

	switch curr.Phase {
	case coach.PhaseRescue:
		return []Alert{{
			Level:   LevelCritical,
			Title:   "Rescue mode",
			Message: remainingMessage(curr),
			Time:    curr.Timestamp,
		}}
	case coach.PhaseAtRisk:
		return []Alert{{
			Level:   LevelWarning,
			Title:   "Falling behind",
			Message: remainingMessage(curr),
			Time:    curr.Timestamp,
		}}
	case coach.PhaseCompleted:
		if prev == nil {
			return nil
		}
		return []Alert{{
			Level:   LevelInfo,
			Title:   "Day complete",
			Message: "Targets met for today",
			Time:    curr.Timestamp,
		}}
	}
	return nil
}

func compareReminders(prev, curr *WatchState) []Alert {
	before := 0
	if prev != nil {
		before = prev.MissedReminders
	}
	if curr.MissedReminders <= before {
		return nil
	}
	return []Alert{{
		Level:   LevelWarning,
		Title:   "Reminder overdue",
		Message: fmt.Sprintf("%d reminder(s) past their time today", curr.MissedReminders),
		Time:    curr.Timestamp,
	}}
}

func compareSurfaced(prev, curr *WatchState) []Alert {
	key := SurfacedKey(curr.Surfaced)
	if key == "" {
		return nil
	}
	if prev != nil && SurfacedKey(prev.Surfaced) == key {
		return nil
	}

	msg := PromptLabel(curr.Surfaced.Prompt)
	if msg == "" {
		msg = curr.Surfaced.Body
	}
	return []Alert{{
		Level:   LevelInfo,
		Title:   curr.Surfaced.Headline,
		Message: msg,
		Time:    curr.Timestamp,
	}}
}

// SurfacedKey identifies a surfaced item by content rather than by ID, so a
// recomputation producing the same guidance is not reported again.
func SurfacedKey(s pulse.ContentSnapshot) string {
	if s.Surface == "" && s.Headline == "" {
		return ""
	}
	key := string(s.Surface) + "|" + s.Headline + "|" + PromptLabel(s.Prompt)
	if s.Proposal != nil {
		key += "|" + s.Proposal.Title
	}
	return key
}

// PromptLabel is the user-facing text of a prompt.
func PromptLabel(p *pulse.Prompt) string {
	switch {
	case p == nil:
		return ""
	case p.Action != nil:
		return p.Action.Title
	case p.Question != nil:
		return p.Question.Text
	}
	return ""
}

func remainingMessage(s *WatchState) string {
	return fmt.Sprintf("%.0f kcal and %.0f g protein left today", s.CaloriesRemaining, s.ProteinRemaining)
}
