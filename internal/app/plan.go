package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pulse/internal/behavior"
	"github.com/blackwell-systems/pulse/internal/output"
	"github.com/blackwell-systems/pulse/internal/pulse"
)

// pendingProposalKey holds the last plan proposal that passed the policy.
const pendingProposalKey = "pulse.plan_proposal.pending"

var (
	planRationale string
	planImpact    string
	planChanges   []string
	planConfirm   bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Review the plan and decide on proposed changes",
	Long: `Plan changes are only ever proposed. A proposal is shown when the weekly
trend has enough data and no proposal was shown recently; applying one needs
explicit confirmation.

Examples:
  pulse plan reviewed
  pulse plan propose "Raise calories" --rationale "Weight down 1.2 kg" --change "+150 kcal/day"
  pulse plan decide review
  pulse plan decide apply --yes`,
}

var planReviewedCmd = &cobra.Command{
	Use:   "reviewed",
	Short: "Mark the plan as reviewed today",
	Args:  cobra.NoArgs,
	RunE:  runPlanReviewed,
}

var planProposeCmd = &cobra.Command{
	Use:   "propose <title>",
	Short: "Offer a plan change through the surfacing policy",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanPropose,
}

var planDecideCmd = &cobra.Command{
	Use:       "decide <apply|review|defer>",
	Short:     "Respond to the pending plan proposal",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(pulse.DecisionApply), string(pulse.DecisionReview), string(pulse.DecisionDefer)},
	RunE:      runPlanDecide,
}

func init() {
	planProposeCmd.Flags().StringVar(&planRationale, "rationale", "", "Why the change is proposed")
	planProposeCmd.Flags().StringVar(&planImpact, "impact", "", "Expected effect of the change")
	planProposeCmd.Flags().StringSliceVar(&planChanges, "change", nil, "A concrete change (repeatable)")
	planDecideCmd.Flags().BoolVar(&planConfirm, "yes", false, "Confirm applying the proposal")

	planCmd.AddCommand(planReviewedCmd, planProposeCmd, planDecideCmd)
	rootCmd.AddCommand(planCmd)
}

func runPlanReviewed(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	now := time.Now()
	if err := markPlanReviewed(e, now); err != nil {
		return err
	}
	fmt.Println("Plan marked as reviewed.")
	return nil
}

func markPlanReviewed(e *env, now time.Time) error {
	if err := e.db.SetPlanUpdatedAt(now); err != nil {
		return fmt.Errorf("saving plan state: %w", err)
	}
	if _, err := e.db.AppendEvent(behavior.Event{
		ActionKey:  behavior.KeyReviewPlan,
		Outcome:    behavior.OutcomeCompleted,
		OccurredAt: now,
	}); err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

func runPlanPropose(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	now := time.Now()
	cc, err := loadContext(context.Background(), e.db, e.cfg, now)
	if err != nil {
		return err
	}

	proposal := pulse.NewPlanProposal(args[0], planRationale, planImpact, planChanges)
	policy := pulse.NewPolicyEngine(e.db, e.cfg.Policy, e.logger)
	snap := policy.Apply(pulse.FromProposal(proposal, now), pulse.Request{Context: cc}, now)

	if snap.Proposal == nil {
		if flagJSON {
			return printJSON(snap)
		}
		if snap.Prompt != nil && snap.Prompt.Question != nil {
			fmt.Printf(" %s %s\n", output.StyleBold.Render("?"), snap.Prompt.Question.Text)
			for _, opt := range snap.Prompt.Question.Options {
				fmt.Printf("     - %s\n", opt)
			}
			return nil
		}
		fmt.Println(output.StyleMuted.Render("Held back: a proposal was shown recently."))
		return nil
	}

	b, err := json.Marshal(snap.Proposal)
	if err != nil {
		return fmt.Errorf("encoding proposal: %w", err)
	}
	if err := e.db.Set(pendingProposalKey, string(b)); err != nil {
		return fmt.Errorf("saving proposal: %w", err)
	}

	if flagJSON {
		return printJSON(snap)
	}
	renderProposal(*snap.Proposal)
	return nil
}

func renderProposal(p pulse.PlanProposal) {
	fmt.Println(output.Section(p.Title))
	fmt.Println()
	if p.Rationale != "" {
		printField("Why", p.Rationale)
	}
	if p.Impact != "" {
		printField("Impact", p.Impact)
	}
	for _, c := range p.Changes {
		fmt.Printf("   - %s\n", c)
	}
	fmt.Println()
	fmt.Printf(" [%s]  [%s]  [%s]\n", p.ApplyLabel, p.ReviewLabel, p.DeferLabel)
}

func loadPendingProposal(e *env) (pulse.PlanProposal, error) {
	raw, ok, err := e.db.Get(pendingProposalKey)
	if err != nil {
		return pulse.PlanProposal{}, fmt.Errorf("loading proposal: %w", err)
	}
	if !ok || raw == "" {
		return pulse.PlanProposal{}, errors.New("no pending plan proposal")
	}
	var p pulse.PlanProposal
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return pulse.PlanProposal{}, fmt.Errorf("decoding proposal: %w", err)
	}
	return p, nil
}

func runPlanDecide(cmd *cobra.Command, args []string) error {
	d := pulse.Decision(args[0])
	switch d {
	case pulse.DecisionApply, pulse.DecisionReview, pulse.DecisionDefer:
	default:
		return fmt.Errorf("unknown decision %q: use apply, review, or defer", args[0])
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	proposal, err := loadPendingProposal(e)
	if err != nil {
		return err
	}
	now := time.Now()
	decision := pulse.Decide(proposal, d, now)

	if decision.RequiresConfirmation && !planConfirm {
		if flagJSON {
			return printJSON(decision)
		}
		fmt.Printf("Applying %q changes your plan. Re-run with --yes to confirm.\n", proposal.Title)
		return nil
	}

	if d != pulse.DecisionReview {
		if err := e.db.Set(pendingProposalKey, ""); err != nil {
			return fmt.Errorf("clearing proposal: %w", err)
		}
	}
	if d == pulse.DecisionApply {
		if err := markPlanReviewed(e, now); err != nil {
			return err
		}
	}

	if flagJSON {
		return printJSON(decision)
	}
	fmt.Printf("%s: %s\n", proposal.Title, d)
	return nil
}
