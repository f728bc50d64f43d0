package output

import (
	"fmt"
	"strings"
)

// ProgressBar renders progress toward a goal, e.g. "████████░░ 80%".
// Fractions above 1 render a full bar with the real percentage.
func ProgressBar(fraction float64, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := int(fraction * float64(width))
	filled = max(0, min(width, filled))

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	var style func(string) string
	switch {
	case fraction >= 0.9:
		style = func(s string) string { return StyleSuccess.Render(s) }
	case fraction >= 0.5:
		style = func(s string) string { return StyleWarning.Render(s) }
	default:
		style = func(s string) string { return StyleError.Render(s) }
	}

	return fmt.Sprintf("%s %s", style(bar), StyleMuted.Render(fmt.Sprintf("%.0f%%", fraction*100)))
}

// ScoreBar renders a short bar for a ranking score in [0,1].
func ScoreBar(score float64, width int) string {
	if width <= 0 {
		width = 10
	}
	filled := max(0, min(width, int(score*float64(width)+0.5)))
	bar := strings.Repeat("■", filled) + strings.Repeat("·", width-filled)
	return fmt.Sprintf("%s %s", StyleHeader.Render(bar), StyleMuted.Render(fmt.Sprintf("%.2f", score)))
}

// TrendArrow returns a styled trend indicator for a delta value.
// Positive delta shows an up arrow, negative shows down, zero shows a dash.
// The higherIsBetter parameter decides which direction is colored as good.
func TrendArrow(delta float64, higherIsBetter bool) string {
	if delta == 0 {
		return StyleMuted.Render("─")
	}

	isPositive := delta > 0
	isImproved := isPositive == higherIsBetter

	var arrow string
	if isPositive {
		arrow = fmt.Sprintf("▲ +%.1f", delta)
	} else {
		arrow = fmt.Sprintf("▼ %.1f", delta)
	}

	if isImproved {
		return StyleSuccess.Render(arrow)
	}
	return StyleError.Render(arrow)
}

// PhaseBadge renders a day phase name colored by urgency.
func PhaseBadge(phase string) string {
	label := strings.ToUpper(phase)
	switch phase {
	case "completed", "on_track":
		return StyleSuccess.Render(label)
	case "at_risk", "morning_plan":
		return StyleWarning.Render(label)
	case "rescue":
		return StyleError.Render(label)
	default:
		return StyleBold.Render(label)
	}
}

// ruleWidth is the width of section rules.
var ruleWidth = 66

// SetWidth sizes section rules for a terminal of the given column count.
func SetWidth(cols int) {
	if cols > 10 {
		ruleWidth = cols - 2
	}
}

// Section prints a styled section header with a horizontal rule.
func Section(title string) string {
	header := StyleHeader.Render(title)
	rule := StyleMuted.Render(strings.Repeat("─", ruleWidth))
	return fmt.Sprintf("\n %s\n %s", header, rule)
}
