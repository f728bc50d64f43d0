package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackwell-systems/pulse/internal/behavior"
	"github.com/blackwell-systems/pulse/internal/coach"
	"github.com/blackwell-systems/pulse/internal/output"
	"github.com/blackwell-systems/pulse/internal/pulse"
)

var (
	recommendAt     string
	recommendBlock  []string
	recommendRecord bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Show today's recommended next step",
	Long: `Compute the day phase and the primary and secondary actions, then pass
the result through the surfacing policy (reminder validation, post-workout
check-in, morning weigh-in). Policy cooldowns persist in the database.

Examples:
  pulse recommend
  pulse recommend --at 22:30
  pulse recommend --block readiness-post-workout
  pulse recommend --record --json`,
	RunE: runRecommend,
}

func init() {
	recommendCmd.Flags().StringVar(&recommendAt, "at", "", "Evaluate as of this time (RFC 3339 or HH:MM today)")
	recommendCmd.Flags().StringSliceVar(&recommendBlock, "block", nil, "Question IDs that must not be asked (repeatable)")
	recommendCmd.Flags().BoolVar(&recommendRecord, "record", false, "Record the surfaced action as presented")
	rootCmd.AddCommand(recommendCmd)
}

// surfaced is one full pass of the pipeline: context, recommendation, and
// what the policy lets through.
type surfaced struct {
	Context        coach.Context         `json:"-"`
	Recommendation coach.Recommendation  `json:"recommendation"`
	Snapshot       pulse.ContentSnapshot `json:"surfaced"`
}

// surface runs the pipeline as of now.
func surface(ctx context.Context, e *env, policy *pulse.PolicyEngine, blocked []string, now time.Time) (surfaced, error) {
	cc, err := loadContext(ctx, e.db, e.cfg, now)
	if err != nil {
		return surfaced{}, err
	}
	rec := coach.MakeRecommendation(cc, e.cfg.Preferences)
	snap := policy.Apply(pulse.FromRecommendation(rec, now), pulse.Request{
		Context:            cc,
		BlockedQuestionIDs: blocked,
	}, now)

	e.logger.Debug("recommendation surfaced",
		zap.String("phase", rec.Phase.String()),
		zap.String("primary", rec.Primary.Title),
		zap.String("surface", string(snap.Surface)),
	)
	return surfaced{Context: cc, Recommendation: rec, Snapshot: snap}, nil
}

func runRecommend(cmd *cobra.Command, args []string) error {
	now, err := parseAt(recommendAt, time.Now())
	if err != nil {
		return err
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	policy := pulse.NewPolicyEngine(e.db, e.cfg.Policy, e.logger)
	s, err := surface(context.Background(), e, policy, recommendBlock, now)
	if err != nil {
		return err
	}

	if recommendRecord {
		if err := recordPresented(e, s.Snapshot, now); err != nil {
			return err
		}
	}

	if flagJSON {
		return printJSON(s)
	}
	renderRecommendation(s)
	return nil
}

// recordPresented logs that the surfaced action was shown, so dismissals and
// presentations can be told apart from real usage later.
func recordPresented(e *env, snap pulse.ContentSnapshot, now time.Time) error {
	kind, ok := snap.Prompt.ActionKind()
	if !ok || kind.Key() == "" {
		return nil
	}
	_, err := e.db.AppendEvent(behavior.Event{
		ActionKey:       kind.Key(),
		Outcome:         behavior.OutcomePresented,
		Surface:         behavior.SurfaceDashboard,
		OccurredAt:      now,
		RelatedEntityID: snap.Prompt.Action.Meta(coach.MetaReminderID),
	})
	if err != nil {
		return fmt.Errorf("recording presentation: %w", err)
	}
	return nil
}

func renderRecommendation(s surfaced) {
	cc, rec, snap := s.Context, s.Recommendation, s.Snapshot

	fmt.Println(output.Section(fmt.Sprintf("Today  %s", output.PhaseBadge(rec.Phase.String()))))
	fmt.Println()

	if cc.CalorieGoal > 0 {
		printField("Calories", fmt.Sprintf("%s  %.0f / %.0f", output.ProgressBar(cc.CalorieProgress(), 20), cc.CaloriesConsumed, cc.CalorieGoal))
	}
	if cc.ProteinGoal > 0 {
		printField("Protein", fmt.Sprintf("%s  %.0f / %.0f g", output.ProgressBar(cc.ProteinProgress(), 20), cc.ProteinConsumed, cc.ProteinGoal))
	}
	workout := "not yet"
	switch {
	case cc.HasActiveWorkout:
		workout = output.StyleWarning.Render("in progress")
	case cc.HasWorkoutToday:
		workout = output.StyleSuccess.Render("done")
	}
	printField("Workout", workout)
	fmt.Println()

	fmt.Printf(" %s\n", output.StyleHeader.Render(snap.Headline))
	if snap.Body != "" {
		fmt.Printf(" %s\n", snap.Body)
	}
	switch {
	case snap.Prompt == nil:
		fmt.Printf(" %s\n", output.StyleMuted.Render("Nothing to do right now."))
	case snap.Prompt.Question != nil:
		q := snap.Prompt.Question
		fmt.Printf(" %s %s\n", output.StyleBold.Render("?"), q.Text)
		for _, opt := range q.Options {
			fmt.Printf("     - %s\n", opt)
		}
	case snap.Prompt.Action != nil:
		fmt.Printf(" %s %s\n", output.StyleBold.Render("→"), snap.Prompt.Action.Title)
	}

	if rec.Secondary.Title != "" {
		fmt.Printf(" %s %s\n", output.StyleMuted.Render("then"), rec.Secondary.Title)
	}
	if len(rec.Swaps) > 0 {
		fmt.Println()
		fmt.Printf(" %s\n", output.StyleMuted.Render("Or swap for:"))
		for _, a := range rec.Swaps {
			fmt.Printf("   - %s\n", a.Title)
		}
	}
	fmt.Println()
}
