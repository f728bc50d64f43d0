package patterns

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Habit window defaults for reminder completions.
const (
	DefaultHabitWindowDays    = 30
	DefaultMaxCompletions     = 200
	onTimeToleranceMinutes    = 30
	timeMatchToleranceMinutes = 120
)

// Per-completion habit weights. Their sum (1.1) is normalized by
// habitNormalizer so a perfect history maps below 1 before blending.
const (
	weightRecency   = 0.5
	weightTimeMatch = 0.25
	weightWeekday   = 0.2
	weightOnTime    = 0.15
	habitNormalizer = 1.35
)

// ReminderCandidate is a pending custom reminder that could be surfaced.
type ReminderCandidate struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Time   string `json:"time"`
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
}

// MinuteOfDay returns the reminder's scheduled minute of the day.
func (c ReminderCandidate) MinuteOfDay() int {
	return c.Hour*60 + c.Minute
}

// NewReminderCandidate builds a candidate with a formatted display time.
func NewReminderCandidate(id, title string, hour, minute int) ReminderCandidate {
	return ReminderCandidate{
		ID:     id,
		Title:  title,
		Time:   FormatClock(hour, minute),
		Hour:   hour,
		Minute: minute,
	}
}

// FormatClock renders a 12-hour clock time such as "7:05 AM".
func FormatClock(hour, minute int) string {
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, minute, suffix)
}

// ReminderCompletion records that a reminder was marked done.
type ReminderCompletion struct {
	ReminderID  string    `json:"reminder_id"`
	CompletedAt time.Time `json:"completed_at"`
	WasOnTime   bool      `json:"was_on_time"`
}

// NewCompletion records a completion, marking it on time when it happened
// within 30 minutes of the reminder's scheduled minute of day.
func NewCompletion(reminder ReminderCandidate, completedAt time.Time) ReminderCompletion {
	completedMinute := completedAt.Hour()*60 + completedAt.Minute()
	return ReminderCompletion{
		ReminderID:  reminder.ID,
		CompletedAt: completedAt,
		WasOnTime:   minuteDistance(completedMinute, reminder.MinuteOfDay()) <= onTimeToleranceMinutes,
	}
}

// PruneCompletions keeps the newest maxCount completions that fall inside the
// habit window, newest first.
func PruneCompletions(completions []ReminderCompletion, now time.Time, windowDays, maxCount int) []ReminderCompletion {
	if windowDays <= 0 {
		windowDays = DefaultHabitWindowDays
	}
	if maxCount <= 0 {
		maxCount = DefaultMaxCompletions
	}
	cutoff := now.AddDate(0, 0, -windowDays)

	kept := make([]ReminderCompletion, 0, len(completions))
	for _, c := range completions {
		if inWindow(c.CompletedAt, cutoff, now) {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].CompletedAt.After(kept[j].CompletedAt)
	})
	if len(kept) > maxCount {
		kept = kept[:maxCount]
	}
	return kept
}

// ScoreReminder estimates how likely the user is to act on a reminder right
// now, from its completion history.
//
// Each completion contributes 0.5*recency + 0.25*timeMatch + 0.2*weekdayMatch
// + 0.15*onTime. The mean is divided by 1.35 to get a confidence, which is
// blended 75/25 with min(1, completions/3).
func ScoreReminder(candidate ReminderCandidate, completions []ReminderCompletion, now time.Time, windowDays int) float64 {
	if windowDays <= 0 {
		windowDays = DefaultHabitWindowDays
	}
	cutoff := now.AddDate(0, 0, -windowDays)
	window := float64(windowDays) * 24

	nowMinute := now.Hour()*60 + now.Minute()
	var sum float64
	n := 0
	for _, c := range completions {
		if c.ReminderID != candidate.ID || !inWindow(c.CompletedAt, cutoff, now) {
			continue
		}
		n++

		ageHours := now.Sub(c.CompletedAt).Hours()
		recency := math.Max(0, 1-ageHours/window)

		local := c.CompletedAt.In(now.Location())
		completedMinute := local.Hour()*60 + local.Minute()
		timeMatch := math.Max(0, 1-float64(minuteDistance(completedMinute, nowMinute))/timeMatchToleranceMinutes)

		weekday := 0.0
		if local.Weekday() == now.Weekday() {
			weekday = 1
		}
		onTime := 0.0
		if c.WasOnTime {
			onTime = 1
		}

		sum += weightRecency*recency + weightTimeMatch*timeMatch + weightWeekday*weekday + weightOnTime*onTime
	}
	if n == 0 {
		return 0
	}

	confidence := (sum / float64(n)) / habitNormalizer
	completionRate := math.Min(1, float64(n)/3)
	return math.Min(1, 0.75*confidence+0.25*completionRate)
}

// ScoreReminders scores every candidate, keyed by reminder ID.
func ScoreReminders(candidates []ReminderCandidate, completions []ReminderCompletion, now time.Time, windowDays int) map[string]float64 {
	scores := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		scores[c.ID] = ScoreReminder(c, completions, now, windowDays)
	}
	return scores
}

// CompletionRate returns the share of days in the window on which any
// reminder was completed, capped at 1.
func CompletionRate(completions []ReminderCompletion, now time.Time, windowDays int) float64 {
	if windowDays <= 0 {
		windowDays = DefaultHabitWindowDays
	}
	cutoff := now.AddDate(0, 0, -windowDays)
	days := make(map[string]bool)
	for _, c := range completions {
		if inWindow(c.CompletedAt, cutoff, now) {
			days[dayKey(c.CompletedAt, now.Location())] = true
		}
	}
	return math.Min(1, float64(len(days))/float64(windowDays))
}

// minuteDistance is the circular distance between two minutes of the day.
func minuteDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	d %= 1440
	if d > 720 {
		d = 1440 - d
	}
	return d
}
