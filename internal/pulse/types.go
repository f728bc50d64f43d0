// Package pulse is the last stage of the coaching pipeline: the policy engine
// that gates what reaches the user, and the context assembler that packages a
// compact summary for an external model.
package pulse

import (
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/pulse/internal/coach"
)

// SurfaceType is the presentation category of a suggestion.
type SurfaceType string

const (
	SurfaceCoachNote     SurfaceType = "coach_note"
	SurfaceQuickCheckin  SurfaceType = "quick_checkin"
	SurfaceRecoveryProbe SurfaceType = "recovery_probe"
	SurfaceTimingNudge   SurfaceType = "timing_nudge"
	SurfacePlanProposal  SurfaceType = "plan_proposal"
)

// ParseSurfaceType converts a serialized surface, reporting whether it is known.
func ParseSurfaceType(s string) (SurfaceType, bool) {
	switch st := SurfaceType(s); st {
	case SurfaceCoachNote, SurfaceQuickCheckin, SurfaceRecoveryProbe, SurfaceTimingNudge, SurfacePlanProposal:
		return st, true
	}
	return "", false
}

// Question is a lightweight check-in asked of the user.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
}

// Prompt is either an action or a question. Exactly one field is set.
type Prompt struct {
	Action   *coach.Action `json:"action,omitempty"`
	Question *Question     `json:"question,omitempty"`
}

// ActionPrompt wraps an action.
func ActionPrompt(a coach.Action) *Prompt {
	return &Prompt{Action: &a}
}

// QuestionPrompt wraps a question.
func QuestionPrompt(q Question) *Prompt {
	return &Prompt{Question: &q}
}

// ActionKind returns the prompt's action kind, if it is an action prompt.
func (p *Prompt) ActionKind() (coach.ActionKind, bool) {
	if p == nil || p.Action == nil {
		return 0, false
	}
	return p.Action.Kind, true
}

// PlanProposal is a candidate plan change. It is never applied by this
// package; an apply decision needs a separate user confirmation.
type PlanProposal struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Rationale   string   `json:"rationale"`
	Impact      string   `json:"impact"`
	Changes     []string `json:"changes"`
	ApplyLabel  string   `json:"apply_label"`
	ReviewLabel string   `json:"review_label"`
	DeferLabel  string   `json:"defer_label"`
}

// NewPlanProposal creates a proposal with a generated ID and default labels.
func NewPlanProposal(title, rationale, impact string, changes []string) PlanProposal {
	return PlanProposal{
		ID:          uuid.NewString(),
		Title:       title,
		Rationale:   rationale,
		Impact:      impact,
		Changes:     append([]string{}, changes...),
		ApplyLabel:  "Apply",
		ReviewLabel: "Review",
		DeferLabel:  "Not now",
	}
}

// Decision is the user's response to a plan proposal.
type Decision string

const (
	DecisionApply  Decision = "apply"
	DecisionReview Decision = "review"
	DecisionDefer  Decision = "defer"
)

// PlanDecision is emitted when the user decides on a proposal.
type PlanDecision struct {
	ProposalID           string    `json:"proposal_id"`
	Decision             Decision  `json:"decision"`
	DecidedAt            time.Time `json:"decided_at"`
	RequiresConfirmation bool      `json:"requires_confirmation"`
}

// Decide records a decision. Apply decisions always require confirmation
// before any plan is changed.
func Decide(p PlanProposal, d Decision, now time.Time) PlanDecision {
	return PlanDecision{
		ProposalID:           p.ID,
		Decision:             d,
		DecidedAt:            now,
		RequiresConfirmation: d == DecisionApply,
	}
}

// ContentSnapshot is one candidate item for the Pulse surface, produced by
// the coach engine or an external model.
type ContentSnapshot struct {
	ID          string        `json:"id"`
	Surface     SurfaceType   `json:"surface"`
	Headline    string        `json:"headline"`
	Body        string        `json:"body,omitempty"`
	Prompt      *Prompt       `json:"prompt,omitempty"`
	Proposal    *PlanProposal `json:"proposal,omitempty"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Request carries the context the policy engine evaluates a snapshot against.
type Request struct {
	Context            coach.Context
	BlockedQuestionIDs []string
}

// FromRecommendation turns the engine's recommendation into a coach note
// prompting the primary action, tagged as routine engine output.
func FromRecommendation(rec coach.Recommendation, now time.Time) ContentSnapshot {
	return ContentSnapshot{
		ID:          uuid.NewString(),
		Surface:     SurfaceCoachNote,
		Headline:    headlineForPhase(rec.Phase),
		Prompt:      ActionPrompt(rec.Primary.WithMeta(MetaSource, SourceCoachEngine)),
		GeneratedAt: now,
	}
}

// FromProposal wraps a plan proposal for the policy engine.
func FromProposal(p PlanProposal, now time.Time) ContentSnapshot {
	return ContentSnapshot{
		ID:          uuid.NewString(),
		Surface:     SurfacePlanProposal,
		Headline:    p.Title,
		Body:        p.Rationale,
		Proposal:    &p,
		GeneratedAt: now,
	}
}

func headlineForPhase(p coach.Phase) string {
	switch p {
	case coach.PhaseMorningPlan:
		return "Plan your day"
	case coach.PhaseAtRisk:
		return "Time to catch up"
	case coach.PhaseRescue:
		return "Salvage the day"
	case coach.PhaseCompleted:
		return "Day complete"
	default:
		return "On track"
	}
}
