// Package behavior provides the behavior event model and the rolling-window
// profile built from it.
package behavior

import "time"

// Domain is the functional area an event belongs to.
type Domain string

const (
	DomainNutrition  Domain = "nutrition"
	DomainWorkout    Domain = "workout"
	DomainBody       Domain = "body"
	DomainReminder   Domain = "reminder"
	DomainPlanning   Domain = "planning"
	DomainProfile    Domain = "profile"
	DomainEngagement Domain = "engagement"
	DomainGeneral    Domain = "general"
)

// Surface is where in the host application an event happened.
type Surface string

const (
	SurfaceDashboard    Surface = "dashboard"
	SurfaceChat         Surface = "chat"
	SurfaceWidget       Surface = "widget"
	SurfaceIntent       Surface = "intent"
	SurfaceSystem       Surface = "system"
	SurfaceNotification Surface = "notification"
	SurfaceLiveActivity Surface = "live_activity"
)

// Outcome describes what the user did with an action.
type Outcome string

const (
	OutcomePresented    Outcome = "presented"
	OutcomePerformed    Outcome = "performed"
	OutcomeCompleted    Outcome = "completed"
	OutcomeSuggestedTap Outcome = "suggested_tap"
	OutcomeDismissed    Outcome = "dismissed"
	OutcomeOpened       Outcome = "opened"
)

// Well-known action keys. Keys are namespaced by domain.
const (
	KeyLogFood       = "nutrition.log_food"
	KeyLogFoodCamera = "nutrition.log_food_camera"
	KeyStartWorkout  = "workout.start_workout"
	KeyLogWeight     = "body.log_weight"
	KeyCompleteTask  = "reminder.complete"
	KeyReviewPlan    = "planning.review_plan"
)

// Event is an immutable record of a single user action.
type Event struct {
	ID              string            `json:"id"`
	ActionKey       string            `json:"action_key"`
	Domain          Domain            `json:"domain"`
	Surface         Surface           `json:"surface"`
	Outcome         Outcome           `json:"outcome"`
	OccurredAt      time.Time         `json:"occurred_at"`
	RelatedEntityID string            `json:"related_entity_id,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// countsAsUsage reports whether the outcome represents real engagement.
// Dismissals are negative signal and presentations are passive.
func (o Outcome) countsAsUsage() bool {
	switch o {
	case OutcomeCompleted, OutcomePerformed, OutcomeSuggestedTap, OutcomeOpened:
		return true
	default:
		return false
	}
}

// ParseOutcome converts a serialized outcome, reporting whether it is known.
func ParseOutcome(s string) (Outcome, bool) {
	switch o := Outcome(s); o {
	case OutcomePresented, OutcomePerformed, OutcomeCompleted,
		OutcomeSuggestedTap, OutcomeDismissed, OutcomeOpened:
		return o, true
	}
	return "", false
}

// ParseSurface converts a serialized surface, reporting whether it is known.
func ParseSurface(s string) (Surface, bool) {
	switch sf := Surface(s); sf {
	case SurfaceDashboard, SurfaceChat, SurfaceWidget, SurfaceIntent,
		SurfaceSystem, SurfaceNotification, SurfaceLiveActivity:
		return sf, true
	}
	return "", false
}

// DomainForKey derives the domain from a namespaced action key.
// Unrecognized namespaces map to DomainGeneral.
func DomainForKey(key string) Domain {
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			switch d := Domain(key[:i]); d {
			case DomainNutrition, DomainWorkout, DomainBody, DomainReminder,
				DomainPlanning, DomainProfile, DomainEngagement:
				return d
			}
			break
		}
	}
	return DomainGeneral
}
