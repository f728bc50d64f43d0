package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/blackwell-systems/pulse/internal/coach"
	"github.com/blackwell-systems/pulse/internal/pulse"
)

// Config is the top-level pulse configuration.
type Config struct {
	DBPath      string             `mapstructure:"db_path"`
	Profile     Profile            `mapstructure:"profile"`
	Habits      Habits             `mapstructure:"habits"`
	Policy      pulse.PolicyConfig `mapstructure:"policy"`
	Assembler   Assembler          `mapstructure:"assembler"`
	Goals       Goals              `mapstructure:"goals"`
	Preferences coach.Preferences  `mapstructure:"preferences"`
	Host        Host               `mapstructure:"host"`
	Output      Output             `mapstructure:"output"`
	Watch       Watch              `mapstructure:"watch"`
}

// Profile defines the behavior and pattern look-back windows.
type Profile struct {
	WindowDays        int `mapstructure:"window_days"`
	PatternWindowDays int `mapstructure:"pattern_window_days"`
}

// Habits defines the reminder completion window.
type Habits struct {
	WindowDays     int `mapstructure:"window_days"`
	MaxCompletions int `mapstructure:"max_completions"`
}

// Assembler defines the context packet settings.
type Assembler struct {
	TokenBudget       int     `mapstructure:"token_budget"`
	ReminderThreshold float64 `mapstructure:"reminder_threshold"`
	ReminderCap       int     `mapstructure:"reminder_cap"`
}

// Goals are the daily nutrition targets.
type Goals struct {
	Calories float64 `mapstructure:"calories"`
	ProteinG float64 `mapstructure:"protein_g"`
}

// Host carries state normally supplied by the surrounding application.
type Host struct {
	RecommendedWorkout string   `mapstructure:"recommended_workout"`
	ReadyMuscleCount   int      `mapstructure:"ready_muscle_count"`
	ActiveSignals      []string `mapstructure:"active_signals"`
}

// Output defines output preferences.
type Output struct {
	Color bool `mapstructure:"color"`
	Width int  `mapstructure:"width"`
}

// Watch defines the recompute loop settings.
type Watch struct {
	Interval time.Duration `mapstructure:"interval"`
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads configuration from the given path (or the default location)
// and returns a Config with all defaults applied.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Set defaults.
	v.SetDefault("db_path", filepath.Join(DefaultConfigDir, DefaultDBName))
	v.SetDefault("profile.window_days", DefaultProfile.WindowDays)
	v.SetDefault("profile.pattern_window_days", DefaultProfile.PatternWindowDays)
	v.SetDefault("habits.window_days", DefaultHabits.WindowDays)
	v.SetDefault("habits.max_completions", DefaultHabits.MaxCompletions)
	v.SetDefault("policy.min_trend_days", DefaultPolicy.MinTrendDays)
	v.SetDefault("policy.plan_cooldown", DefaultPolicy.PlanCooldown)
	v.SetDefault("policy.post_workout_delay", DefaultPolicy.PostWorkoutDelay)
	v.SetDefault("policy.post_workout_cooldown", DefaultPolicy.PostWorkoutCooldown)
	v.SetDefault("policy.min_weight_routine_score", DefaultPolicy.MinWeightRoutineScore)
	v.SetDefault("assembler.token_budget", DefaultAssembler.TokenBudget)
	v.SetDefault("assembler.reminder_threshold", DefaultAssembler.ReminderThreshold)
	v.SetDefault("assembler.reminder_cap", DefaultAssembler.ReminderCap)
	v.SetDefault("goals.calories", DefaultGoals.Calories)
	v.SetDefault("goals.protein_g", DefaultGoals.ProteinG)
	v.SetDefault("preferences.effort_mode", string(DefaultPreferences.EffortMode))
	v.SetDefault("preferences.workout_window", string(DefaultPreferences.WorkoutWindow))
	v.SetDefault("preferences.tomorrow_focus", string(DefaultPreferences.TomorrowFocus))
	v.SetDefault("preferences.tomorrow_workout_minutes", DefaultPreferences.TomorrowWorkoutMinutes)
	v.SetDefault("host.recommended_workout", "")
	v.SetDefault("host.ready_muscle_count", 0)
	v.SetDefault("host.active_signals", []string{})
	v.SetDefault("output.color", DefaultOutput.Color)
	v.SetDefault("output.width", DefaultOutput.Width)
	v.SetDefault("watch.interval", DefaultWatch.Interval)

	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		v.SetConfigFile(filepath.Join(ConfigDir(), DefaultConfigFile))
	}

	// Read config file if it exists; missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.DBPath = expandPath(cfg.DBPath)
	return &cfg, nil
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}
