package pulse

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/blackwell-systems/pulse/internal/behavior"
	"github.com/blackwell-systems/pulse/internal/coach"
	"github.com/blackwell-systems/pulse/internal/patterns"
)

// PolicyVersion is stamped on actions the policy engine has validated.
const PolicyVersion = "3"

// Metadata and question identifiers owned by the policy engine.
const (
	MetaPolicyVersion     = "pulse_policy_version"
	MetaSource            = "pulse_source"
	SourceCoachEngine     = "coach_engine"
	PostWorkoutQuestionID = "readiness-post-workout"
	planCheckinPrefix     = "plan_checkin_"
)

// PolicyConfig tunes the policy rules. Zero fields fall back to defaults.
type PolicyConfig struct {
	MinTrendDays          int           `mapstructure:"min_trend_days"`
	PlanCooldown          time.Duration `mapstructure:"plan_cooldown"`
	PostWorkoutDelay      time.Duration `mapstructure:"post_workout_delay"`
	PostWorkoutCooldown   time.Duration `mapstructure:"post_workout_cooldown"`
	MinWeightRoutineScore float64       `mapstructure:"min_weight_routine_score"`
}

// DefaultPolicyConfig returns the default thresholds.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		MinTrendDays:          5,
		PlanCooldown:          72 * time.Hour,
		PostWorkoutDelay:      time.Hour,
		PostWorkoutCooldown:   20 * time.Hour,
		MinWeightRoutineScore: 0.6,
	}
}

func (c PolicyConfig) withDefaults() PolicyConfig {
	d := DefaultPolicyConfig()
	if c.MinTrendDays <= 0 {
		c.MinTrendDays = d.MinTrendDays
	}
	if c.PlanCooldown <= 0 {
		c.PlanCooldown = d.PlanCooldown
	}
	if c.PostWorkoutDelay <= 0 {
		c.PostWorkoutDelay = d.PostWorkoutDelay
	}
	if c.PostWorkoutCooldown <= 0 {
		c.PostWorkoutCooldown = d.PostWorkoutCooldown
	}
	if c.MinWeightRoutineScore <= 0 {
		c.MinWeightRoutineScore = d.MinWeightRoutineScore
	}
	return c
}

// PolicyEngine is the final gate before content reaches the user. It
// validates, rewrites, or silences snapshots. Cooldown reads and writes are
// serialized so concurrent callers see writer-wins semantics.
type PolicyEngine struct {
	mu     sync.Mutex
	store  CooldownStore
	cfg    PolicyConfig
	logger *zap.Logger
}

// NewPolicyEngine creates a policy engine. A nil store uses an in-memory
// store and a nil logger discards output.
func NewPolicyEngine(store CooldownStore, cfg PolicyConfig, logger *zap.Logger) *PolicyEngine {
	if store == nil {
		store = NewMemoryCooldownStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyEngine{store: store, cfg: cfg.withDefaults(), logger: logger}
}

// Apply runs every rule in order and returns the revised snapshot. The input
// is not modified. Apply never fails: anything it cannot resolve becomes a
// nil prompt.
func (p *PolicyEngine) Apply(snap ContentSnapshot, req Request, now time.Time) ContentSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := snap
	out = p.validateReminderAction(out, req.Context)
	out = p.gatePlanProposal(out, req.Context, now)
	out = p.injectPostWorkoutQuestion(out, req, now)
	out = p.overrideMorningWeight(out, req.Context)
	return out
}

// validateReminderAction resolves a completeReminder prompt to exactly one
// pending reminder, or drops it.
func (p *PolicyEngine) validateReminderAction(snap ContentSnapshot, ctx coach.Context) ContentSnapshot {
	kind, ok := snap.Prompt.ActionKind()
	if !ok || kind != coach.ActionCompleteReminder {
		return snap
	}
	action := *snap.Prompt.Action

	reminder, ok := resolveReminder(action, ctx)
	if !ok {
		p.logger.Debug("dropping unresolvable reminder action",
			zap.String("title", action.Title),
			zap.Int("candidates", len(ctx.PendingReminders)))
		snap.Prompt = nil
		return snap
	}

	resolved := action.
		WithMeta(coach.MetaReminderID, reminder.ID).
		WithMeta(coach.MetaReminderTime, reminder.Time).
		WithMeta(MetaPolicyVersion, PolicyVersion)
	if resolved.Title == "" {
		resolved.Title = "Complete " + reminder.Title
	}
	snap.Prompt = ActionPrompt(resolved)
	return snap
}

// resolveReminder maps an action to one pending reminder. An explicit ID
// must match. Otherwise title and time narrow the set, then a lone candidate,
// then a unique top score.
func resolveReminder(action coach.Action, ctx coach.Context) (patterns.ReminderCandidate, bool) {
	candidates := ctx.PendingReminders
	if id := action.Meta(coach.MetaReminderID); id != "" {
		return ctx.ReminderByID(id)
	}
	if len(candidates) == 0 {
		return patterns.ReminderCandidate{}, false
	}

	title := action.Meta(coach.MetaReminderTitle)
	if title == "" {
		title = strings.TrimPrefix(action.Title, "Complete ")
	}
	clock := action.Meta(coach.MetaReminderTime)

	var matches []patterns.ReminderCandidate
	for _, c := range candidates {
		if clock != "" && c.Time != clock {
			continue
		}
		if title != "" && !strings.EqualFold(c.Title, title) {
			continue
		}
		matches = append(matches, c)
	}
	if len(matches) == 1 && (clock != "" || title != "") {
		return matches[0], true
	}

	if len(candidates) == 1 {
		return candidates[0], true
	}
	return uniqueTopScored(candidates, ctx.PendingReminderScores)
}

func uniqueTopScored(candidates []patterns.ReminderCandidate, scores map[string]float64) (patterns.ReminderCandidate, bool) {
	var top patterns.ReminderCandidate
	best, ties := -1.0, 0
	for _, c := range candidates {
		s := scores[c.ID]
		switch {
		case s > best:
			top, best, ties = c, s, 1
		case s == best:
			ties++
		}
	}
	return top, ties == 1
}

// gatePlanProposal downgrades unsupported proposals to a check-in question and
// suppresses proposals still inside the cooldown window.
func (p *PolicyEngine) gatePlanProposal(snap ContentSnapshot, ctx coach.Context, now time.Time) ContentSnapshot {
	if snap.Surface != SurfacePlanProposal {
		return snap
	}
	if snap.Proposal == nil {
		return silence(snap)
	}

	if ctx.Trend == nil || ctx.Trend.DaysCovered < p.cfg.MinTrendDays {
		p.logger.Debug("plan proposal lacks trend evidence",
			zap.String("proposal", snap.Proposal.ID))
		proposal := snap.Proposal
		snap.Surface = SurfaceQuickCheckin
		snap.Proposal = nil
		snap.Prompt = QuestionPrompt(Question{
			ID:      planCheckinPrefix + proposal.ID,
			Text:    fmt.Sprintf("Before changing anything: how has your plan felt this week? (%s)", proposal.Title),
			Options: []string{"Going well", "Too hard", "Not enough"},
		})
		return snap
	}

	last, shown, err := p.store.LastShown(CooldownPlanProposal)
	if err != nil {
		p.logger.Warn("reading plan proposal cooldown", zap.Error(err))
		return silence(snap)
	}
	if shown && now.Sub(last) < p.cfg.PlanCooldown {
		p.logger.Debug("plan proposal in cooldown",
			zap.String("proposal", snap.Proposal.ID),
			zap.Time("last_shown", last))
		return silence(snap)
	}
	if err := p.store.MarkShown(CooldownPlanProposal, now); err != nil {
		p.logger.Warn("recording plan proposal cooldown", zap.Error(err))
	}
	return snap
}

// injectPostWorkoutQuestion asks a readiness question after a finished
// workout when nothing else is being prompted. The engine's routine coach
// note counts as unprompted; reminders, nudges, and proposals do not.
func (p *PolicyEngine) injectPostWorkoutQuestion(snap ContentSnapshot, req Request, now time.Time) ContentSnapshot {
	ctx := req.Context
	if snap.Surface == SurfacePlanProposal || (snap.Prompt != nil && !routinePrompt(snap.Prompt)) {
		return snap
	}
	if !ctx.HasWorkoutToday || ctx.HasActiveWorkout || ctx.LastWorkoutAt == nil {
		return snap
	}
	if now.Sub(*ctx.LastWorkoutAt) < p.cfg.PostWorkoutDelay {
		return snap
	}
	if slices.Contains(req.BlockedQuestionIDs, PostWorkoutQuestionID) {
		return snap
	}

	last, shown, err := p.store.LastShown(CooldownPostWorkoutQuestion)
	if err != nil {
		p.logger.Warn("reading post-workout cooldown", zap.Error(err))
		return snap
	}
	if shown && now.Sub(last) < p.cfg.PostWorkoutCooldown {
		return snap
	}
	if err := p.store.MarkShown(CooldownPostWorkoutQuestion, now); err != nil {
		p.logger.Warn("recording post-workout cooldown", zap.Error(err))
	}

	snap.Surface = SurfaceQuickCheckin
	snap.Prompt = QuestionPrompt(Question{
		ID:      PostWorkoutQuestionID,
		Text:    "How do you feel after today's workout?",
		Options: []string{"Energized", "Tired", "Sore"},
	})
	return snap
}

// overrideMorningWeight swaps a workout prompt for a weigh-in inside a
// confirmed morning weigh-in habit.
func (p *PolicyEngine) overrideMorningWeight(snap ContentSnapshot, ctx coach.Context) ContentSnapshot {
	kind, ok := snap.Prompt.ActionKind()
	if !ok || kind != coach.ActionStartWorkout {
		return snap
	}
	if !behavior.HourInLabel(behavior.LabelMorning, ctx.Hour()) ||
		!slices.Contains(ctx.WeightLikelyLogTimes, behavior.LabelMorning) {
		return snap
	}
	if !patterns.DueForWeighIn(ctx.DaysSinceLastWeightLog) || ctx.WeightLogRoutineScore < p.cfg.MinWeightRoutineScore {
		return snap
	}

	snap.Surface = SurfaceTimingNudge
	snap.Prompt = ActionPrompt(coach.NewAction(coach.ActionLogWeight, "Log Morning Weight").
		WithMeta(MetaPolicyVersion, PolicyVersion))
	return snap
}

// routinePrompt reports whether the prompt is the coach engine's own primary
// action rather than something a user or model asked for.
func routinePrompt(prompt *Prompt) bool {
	kind, ok := prompt.ActionKind()
	if !ok || kind == coach.ActionCompleteReminder {
		return false
	}
	return prompt.Action.Meta(MetaSource) == SourceCoachEngine
}

func silence(snap ContentSnapshot) ContentSnapshot {
	snap.Surface = SurfaceCoachNote
	snap.Prompt = nil
	snap.Proposal = nil
	return snap
}
