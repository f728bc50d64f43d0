package behavior

// Time-of-day labels. Each covers a half-open hour range [start, end);
// Night wraps past midnight.
const (
	LabelMorning        = "Morning (4-9 AM)"
	LabelLateMorning    = "Late Morning (9-12 PM)"
	LabelEarlyAfternoon = "Early Afternoon (12-3 PM)"
	LabelMidAfternoon   = "Mid-Afternoon (3-6 PM)"
	LabelEvening        = "Evening (6-10 PM)"
	LabelNight          = "Night (10 PM-4 AM)"
)

type timeBucket struct {
	label string
	start int
	end   int
}

var timeBuckets = []timeBucket{
	{LabelMorning, 4, 9},
	{LabelLateMorning, 9, 12},
	{LabelEarlyAfternoon, 12, 15},
	{LabelMidAfternoon, 15, 18},
	{LabelEvening, 18, 22},
	{LabelNight, 22, 4},
}

func (b timeBucket) contains(hour int) bool {
	if b.start < b.end {
		return hour >= b.start && hour < b.end
	}
	return hour >= b.start || hour < b.end
}

// TimeBucketForHour returns the label of the bucket containing hour (0-23).
// Out-of-range hours are normalized modulo 24.
func TimeBucketForHour(hour int) string {
	hour = normalizeHour(hour)
	for _, b := range timeBuckets {
		if b.contains(hour) {
			return b.label
		}
	}
	return LabelNight
}

// HourInLabel reports whether hour falls inside the bucket named by label.
// Unknown labels never match.
func HourInLabel(label string, hour int) bool {
	hour = normalizeHour(hour)
	for _, b := range timeBuckets {
		if b.label == label {
			return b.contains(hour)
		}
	}
	return false
}

// HourInAnyLabel reports whether hour falls inside any of the labels.
func HourInAnyLabel(labels []string, hour int) bool {
	for _, l := range labels {
		if HourInLabel(l, hour) {
			return true
		}
	}
	return false
}

// LabelsForHours aggregates an hourly histogram into time-of-day buckets and
// returns the top maxLabels labels by count, ties broken by label.
func LabelsForHours(hourly map[int]int, maxLabels int) []string {
	if maxLabels <= 0 || len(hourly) == 0 {
		return []string{}
	}
	byLabel := make(map[string]int)
	for hour, count := range hourly {
		if count <= 0 {
			continue
		}
		byLabel[TimeBucketForHour(hour)] += count
	}
	return topLabels(byLabel, maxLabels)
}

func normalizeHour(hour int) int {
	hour %= 24
	if hour < 0 {
		hour += 24
	}
	return hour
}
