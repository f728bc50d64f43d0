package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pulse/internal/output"
	"github.com/blackwell-systems/pulse/internal/pulse"
	"github.com/blackwell-systems/pulse/internal/tokens"
)

var (
	assembleBudget int
	assembleAt     string
)

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Build the compact context packet for a model",
	Long: `Assemble today's goal, the suggested actions, and a prompt summary
that fits within a token budget. The summary is counted with the cl100k_base
tokenizer.

Examples:
  pulse assemble
  pulse assemble --budget 120
  pulse assemble --json`,
	RunE: runAssemble,
}

func init() {
	assembleCmd.Flags().IntVar(&assembleBudget, "budget", 0, "Token budget for the summary (default from config)")
	assembleCmd.Flags().StringVar(&assembleAt, "at", "", "Assemble as of this time (RFC 3339 or HH:MM today)")
	rootCmd.AddCommand(assembleCmd)
}

// assembledPacket adds the measured token count to the packet.
type assembledPacket struct {
	pulse.Packet
	Tokens int `json:"tokens"`
	Budget int `json:"budget"`
}

func newAssembler(e *env) *pulse.Assembler {
	a := pulse.NewAssembler()
	if e.cfg.Assembler.ReminderThreshold > 0 {
		a.ReminderThreshold = e.cfg.Assembler.ReminderThreshold
	}
	if e.cfg.Assembler.ReminderCap > 0 {
		a.ReminderCap = e.cfg.Assembler.ReminderCap
	}
	if !tokens.Available() {
		e.logger.Warn("tokenizer unavailable, using word estimate")
		a.Count = tokens.EstimateFast
	}
	return a
}

func runAssemble(cmd *cobra.Command, args []string) error {
	now, err := parseAt(assembleAt, time.Now())
	if err != nil {
		return err
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	budget := assembleBudget
	if budget <= 0 {
		budget = e.cfg.Assembler.TokenBudget
	}

	cc, err := loadContext(context.Background(), e.db, e.cfg, now)
	if err != nil {
		return err
	}
	a := newAssembler(e)
	packet := a.Assemble(cc.Patterns, cc.ActiveSignals, cc, budget)
	result := assembledPacket{Packet: packet, Tokens: a.Count(packet.PromptSummary), Budget: budget}

	if flagJSON {
		return printJSON(result)
	}
	renderPacket(result)
	return nil
}

func renderPacket(p assembledPacket) {
	fmt.Println(output.Section("Context packet"))
	fmt.Println()
	printField("Goal", p.Goal)
	for i, a := range p.SuggestedActions {
		label := ""
		if i == 0 {
			label = "Suggested"
		}
		printField(label, a)
	}
	printField("Tokens", fmt.Sprintf("%d / %d", p.Tokens, p.Budget))

	fmt.Println(output.Section("Prompt summary"))
	fmt.Println()
	fmt.Println(p.PromptSummary)
	fmt.Println()
}
