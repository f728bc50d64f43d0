// Package config provides configuration loading and defaults for pulse.
package config

import (
	"time"

	"github.com/blackwell-systems/pulse/internal/coach"
	"github.com/blackwell-systems/pulse/internal/pulse"
)

// DefaultConfigDir is the default location for pulse configuration.
const DefaultConfigDir = "~/.config/pulse"

// DefaultDBName is the filename for the SQLite database.
const DefaultDBName = "pulse.db"

// DefaultConfigFile is the filename for the YAML config.
const DefaultConfigFile = "config.yaml"

// DefaultProfile holds the default look-back windows.
var DefaultProfile = Profile{
	WindowDays:        14,
	PatternWindowDays: 28,
}

// DefaultHabits holds the default reminder habit window.
var DefaultHabits = Habits{
	WindowDays:     30,
	MaxCompletions: 200,
}

// DefaultPolicy holds the default policy thresholds.
var DefaultPolicy = pulse.DefaultPolicyConfig()

// DefaultAssembler holds the default context assembler settings. A steady
// daily reminder habit scores around 0.7, so the threshold sits below that.
var DefaultAssembler = Assembler{
	TokenBudget:       400,
	ReminderThreshold: 0.6,
	ReminderCap:       3,
}

// DefaultGoals holds the default daily nutrition targets.
var DefaultGoals = Goals{
	Calories: 2200,
	ProteinG: 150,
}

// DefaultPreferences holds the default coaching preferences.
var DefaultPreferences = coach.DefaultPreferences()

// DefaultOutput holds the default output preferences.
var DefaultOutput = Output{
	Color: true,
	Width: 80,
}

// DefaultWatch holds the default watch loop settings.
var DefaultWatch = Watch{
	Interval: 5 * time.Minute,
}
