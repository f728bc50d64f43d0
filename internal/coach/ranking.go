package coach

import (
	"sort"
	"time"
)

// MissingScore is returned by Score for actions absent from a ranking.
const MissingScore = -1.0

// Ranking adjustments.
const (
	RepetitionPenalty = 0.3
	habitBoostWeight  = 0.15
	reengageBoost     = 0.05
	habitMinEvents    = 3
)

// Ranker scores an extensible catalog of candidate rules against a context.
type Ranker struct {
	rules []CandidateRule
}

// NewRanker creates a ranker with all built-in candidate rules registered.
func NewRanker() *Ranker {
	return &Ranker{
		rules: []CandidateRule{
			ReminderCandidates,
			WeightCandidates,
			PlanReviewCandidates,
			WorkoutPlanCandidates,
			WorkoutCandidates,
			NutritionCandidates,
		},
	}
}

// Register appends a custom candidate rule.
func (r *Ranker) Register(rule CandidateRule) {
	r.rules = append(r.rules, rule)
}

// RankActions ranks with the built-in rules.
func RankActions(ctx Context, now time.Time, limit int) []RankedAction {
	return NewRanker().Rank(ctx, now, limit)
}

// Rank collects candidates from every rule, applies habit, recency, and
// repetition adjustments, and returns at most limit actions ordered by score.
// A limit of zero or less yields an empty list.
//
// now moves the evaluation time within the context's day. The context's
// daily totals describe one calendar day, so a now on another day is ignored.
func (r *Ranker) Rank(ctx Context, now time.Time, limit int) []RankedAction {
	if limit <= 0 {
		return []RankedAction{}
	}
	if !now.IsZero() && (ctx.Now.IsZero() || sameDay(now, ctx.Now)) {
		ctx.Now = now
	}

	best := make(map[string]RankedAction)
	var order []string
	for _, rule := range r.rules {
		for _, cand := range rule(ctx) {
			if !cand.Action.Kind.Valid() {
				continue
			}
			cand.Score = adjustScore(ctx, cand)
			id := candidateID(cand.Action)
			prev, ok := best[id]
			if !ok {
				order = append(order, id)
			}
			if !ok || cand.Score > prev.Score {
				best[id] = cand
			}
		}
	}

	ranked := make([]RankedAction, 0, len(order))
	for _, id := range order {
		ranked = append(ranked, best[id])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Action.Kind != b.Action.Kind {
			return a.Action.Kind < b.Action.Kind
		}
		return a.Action.Title < b.Action.Title
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func adjustScore(ctx Context, cand RankedAction) float64 {
	score := cand.Score
	key := cand.Action.Kind.Key()

	if ctx.Behavior != nil && key != "" {
		score += habitBoostWeight * ctx.Behavior.HourlyPreferenceScore(key, ctx.Hour(), habitMinEvents)
		if days := ctx.Behavior.DaysSinceLastAction(key, ctx.Now); days != nil && *days >= 2 {
			score += reengageBoost
		}
	}
	if ctx.CompletedToday(key) {
		score -= RepetitionPenalty
	}
	return score
}

// candidateID identifies duplicates: reminders are distinct per reminder ID,
// everything else per kind.
func candidateID(a Action) string {
	if a.Kind == ActionCompleteReminder {
		return a.Kind.String() + ":" + a.Meta(MetaReminderID)
	}
	return a.Kind.String()
}

// Score returns the score of action within a previously computed ranking, or
// MissingScore when it is not present.
func Score(action Action, ranked []RankedAction) float64 {
	id := candidateID(action)
	for _, r := range ranked {
		if candidateID(r.Action) == id {
			return r.Score
		}
	}
	return MissingScore
}
