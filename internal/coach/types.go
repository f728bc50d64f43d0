// Package coach provides the daily coach context, the phase engine that
// picks primary and secondary actions, and the action ranker.
package coach

import (
	"encoding/json"
	"fmt"

	"github.com/blackwell-systems/pulse/internal/behavior"
)

// ActionKind identifies one of the closed set of coach actions.
type ActionKind int

const (
	ActionStartWorkout ActionKind = iota
	ActionStartWorkoutTemplate
	ActionLogFood
	ActionLogFoodCamera
	ActionLogWeight
	ActionOpenWeight
	ActionOpenCalorieDetail
	ActionOpenMacroDetail
	ActionOpenProfile
	ActionOpenWorkouts
	ActionOpenWorkoutPlan
	ActionOpenRecovery
	ActionReviewNutritionPlan
	ActionReviewWorkoutPlan
	ActionCompleteReminder
)

var actionKindNames = map[ActionKind]string{
	ActionStartWorkout:         "start_workout",
	ActionStartWorkoutTemplate: "start_workout_template",
	ActionLogFood:              "log_food",
	ActionLogFoodCamera:        "log_food_camera",
	ActionLogWeight:            "log_weight",
	ActionOpenWeight:           "open_weight",
	ActionOpenCalorieDetail:    "open_calorie_detail",
	ActionOpenMacroDetail:      "open_macro_detail",
	ActionOpenProfile:          "open_profile",
	ActionOpenWorkouts:         "open_workouts",
	ActionOpenWorkoutPlan:      "open_workout_plan",
	ActionOpenRecovery:         "open_recovery",
	ActionReviewNutritionPlan:  "review_nutrition_plan",
	ActionReviewWorkoutPlan:    "review_workout_plan",
	ActionCompleteReminder:     "complete_reminder",
}

// actionKindKeys maps each kind to the behavior event key it corresponds to.
var actionKindKeys = map[ActionKind]string{
	ActionStartWorkout:         behavior.KeyStartWorkout,
	ActionStartWorkoutTemplate: behavior.KeyStartWorkout,
	ActionLogFood:              behavior.KeyLogFood,
	ActionLogFoodCamera:        behavior.KeyLogFoodCamera,
	ActionLogWeight:            behavior.KeyLogWeight,
	ActionOpenWeight:           "body.open_weight",
	ActionOpenCalorieDetail:    "nutrition.open_calorie_detail",
	ActionOpenMacroDetail:      "nutrition.open_macro_detail",
	ActionOpenProfile:          "profile.open",
	ActionOpenWorkouts:         "workout.open_workouts",
	ActionOpenWorkoutPlan:      "workout.open_plan",
	ActionOpenRecovery:         "workout.open_recovery",
	ActionReviewNutritionPlan:  "planning.review_nutrition_plan",
	ActionReviewWorkoutPlan:    "planning.review_workout_plan",
	ActionCompleteReminder:     behavior.KeyCompleteTask,
}

// String returns the serialized name of the kind.
func (k ActionKind) String() string {
	if name, ok := actionKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("action_kind(%d)", int(k))
}

// Valid reports whether k is a member of the closed action set.
func (k ActionKind) Valid() bool {
	_, ok := actionKindNames[k]
	return ok
}

// Key returns the namespaced behavior key for the kind, or "" if unknown.
func (k ActionKind) Key() string {
	return actionKindKeys[k]
}

// ParseActionKind converts a serialized kind name.
func ParseActionKind(s string) (ActionKind, bool) {
	for k, name := range actionKindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// MarshalText implements encoding.TextMarshaler.
func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ActionKind) UnmarshalText(b []byte) error {
	parsed, ok := ParseActionKind(string(b))
	if !ok {
		return fmt.Errorf("unknown action kind %q", string(b))
	}
	*k = parsed
	return nil
}

// Metadata keys carried on actions.
const (
	MetaReminderID    = "reminder_id"
	MetaReminderTime  = "reminder_time"
	MetaReminderTitle = "reminder_title"
	MetaTemplateID    = "template_id"
	MetaWorkoutName   = "workout_name"
	MetaMinutes       = "minutes"
)

// Action is a transient recommendation. Metadata is deliberately loose; the
// policy engine validates it at the boundary.
type Action struct {
	Kind     ActionKind        `json:"kind"`
	Title    string            `json:"title"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewAction returns an action with no metadata.
func NewAction(kind ActionKind, title string) Action {
	return Action{Kind: kind, Title: title}
}

// WithMeta returns a copy of a with key set to value.
func (a Action) WithMeta(key, value string) Action {
	meta := make(map[string]string, len(a.Metadata)+1)
	for k, v := range a.Metadata {
		meta[k] = v
	}
	meta[key] = value
	a.Metadata = meta
	return a
}

// Meta returns the metadata value for key, or "".
func (a Action) Meta(key string) string {
	return a.Metadata[key]
}

// Phase is the engine's urgency state for the day, ordered by increasing
// urgency. PhaseCompleted is terminal.
type Phase int

const (
	PhaseMorningPlan Phase = iota
	PhaseOnTrack
	PhaseAtRisk
	PhaseRescue
	PhaseCompleted
)

var phaseNames = map[Phase]string{
	PhaseMorningPlan: "morning_plan",
	PhaseOnTrack:     "on_track",
	PhaseAtRisk:      "at_risk",
	PhaseRescue:      "rescue",
	PhaseCompleted:   "completed",
}

// String returns the serialized name of the phase.
func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalJSON encodes the phase by name.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// Recommendation is the output of the engine. Swaps is only populated in the
// rescue phase and then always holds RescueSwapCount entries.
type Recommendation struct {
	Phase     Phase    `json:"phase"`
	Primary   Action   `json:"primary"`
	Secondary Action   `json:"secondary"`
	Swaps     []Action `json:"swaps,omitempty"`
}

// RankedAction pairs a candidate action with its score.
type RankedAction struct {
	Action Action  `json:"action"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
}
