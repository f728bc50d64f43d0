package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pulse/internal/coach"
	"github.com/blackwell-systems/pulse/internal/output"
)

var (
	rankLimit int
	rankAt    string
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank candidate actions for right now",
	Long: `Score every candidate action against today's context, boosting actions
you habitually do at this hour and penalizing ones already done today.

Examples:
  pulse rank
  pulse rank --limit 3
  pulse rank --at 07:00 --json`,
	RunE: runRank,
}

func init() {
	rankCmd.Flags().IntVar(&rankLimit, "limit", 5, "Maximum number of actions")
	rankCmd.Flags().StringVar(&rankAt, "at", "", "Rank as of this time (RFC 3339 or HH:MM today)")
	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, args []string) error {
	now, err := parseAt(rankAt, time.Now())
	if err != nil {
		return err
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	cc, err := loadContext(context.Background(), e.db, e.cfg, now)
	if err != nil {
		return err
	}
	ranked := coach.RankActions(cc, now, rankLimit)

	if flagJSON {
		return printJSON(ranked)
	}
	renderRanked(ranked, now)
	return nil
}

func renderRanked(ranked []coach.RankedAction, now time.Time) {
	fmt.Println(output.Section(fmt.Sprintf("Ranked actions at %s", now.Format("Mon 15:04"))))
	fmt.Println()
	if len(ranked) == 0 {
		fmt.Println(" Nothing to rank.")
		return
	}

	tbl := output.NewTable("#", "Action", "Score", "Why").AlignRight(0)
	for i, r := range ranked {
		tbl.AddRow(fmt.Sprintf("%d", i+1), r.Action.Title, output.ScoreBar(min(r.Score, 1), 10), output.StyleMuted.Render(r.Reason))
	}
	tbl.Print()
}
