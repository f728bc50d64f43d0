// Package app contains the Cobra command tree for pulse.
package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackwell-systems/pulse/internal/config"
	"github.com/blackwell-systems/pulse/internal/output"
	"github.com/blackwell-systems/pulse/internal/store"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Daily coaching recommendations from your nutrition and training logs",
	Long: `pulse turns a local log of meals, workouts, weigh-ins, reminders and
app interactions into a single next step for the day. It learns when you
usually do things, ranks candidate actions, gates what is worth surfacing,
and assembles a compact context packet for an external model.

Run 'pulse' with no arguments to see today's recommendation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRecommend(cmd, args)
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/pulse/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging to stderr")
}

// env bundles what every command needs: configuration, the database, and a
// logger.
type env struct {
	cfg    *config.Config
	db     *store.DB
	logger *zap.Logger
}

// openEnv loads config, configures color, and opens the database.
func openEnv() (*env, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	output.ConfigureColor(flagNoColor || !cfg.Output.Color)
	output.SetWidth(cfg.Output.Width)

	logger, err := newLogger(flagVerbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetLogger(logger)

	return &env{cfg: cfg, db: db, logger: logger}, nil
}

func (e *env) Close() {
	_ = e.db.Close()
	_ = e.logger.Sync()
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
