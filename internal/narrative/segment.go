package narrative

import (
	"strconv"
	"strings"
)

// Placeholder shown when the model's reply contains no matching day label.
const noAnalysisPlaceholder = "No day-specific analysis was returned for this day."

// DaySection extracts the section of the narrative for a 1-based day index.
// A day's section starts at the first line containing its "Day N" label and
// ends before the first subsequent line containing any other day's label.
// Matching is a plain substring scan over the labels the prompt asked the
// model to emit; when the model phrased things differently the placeholder
// is returned rather than guessing.
func DaySection(text string, day, totalDays int) string {
	lines := strings.Split(text, "\n")

	start := -1
	for i, line := range lines {
		if start == -1 {
			if hasDayLabel(line, day) {
				start = i
			}
			continue
		}
		if isOtherDayLabel(line, day, totalDays) {
			return strings.Join(lines[start:i], "\n")
		}
	}
	if start == -1 {
		return noAnalysisPlaceholder
	}
	return strings.Join(lines[start:], "\n")
}

// hasDayLabel reports whether the line contains "Day <day>" not immediately
// followed by another digit, so "Day 1" does not match "Day 10".
func hasDayLabel(line string, day int) bool {
	label := "Day " + strconv.Itoa(day)
	for idx := 0; ; {
		j := strings.Index(line[idx:], label)
		if j < 0 {
			return false
		}
		end := idx + j + len(label)
		if end >= len(line) || line[end] < '0' || line[end] > '9' {
			return true
		}
		idx = end
	}
}

func isOtherDayLabel(line string, day, totalDays int) bool {
	for d := 1; d <= totalDays; d++ {
		if d != day && hasDayLabel(line, d) {
			return true
		}
	}
	return false
}
