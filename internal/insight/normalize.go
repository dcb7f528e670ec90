package insight

import (
	"strings"

	"github.com/yourname/inkjournal/internal"
)

const defaultConfidence = 0.5

// NormalizeWeekly coerces a provider object into a WeeklyInsight. It never fails.
//
//	field          missing or wrong type   otherwise
//	howYouFelt     ""                      trimmed string
//	weeklySummary  ""                      trimmed string
//	moodDrivers    []                      string items only
//	patterns       []                      string items only
//	confidence     0.5                     clamped to [0, 1]
//
// sourceEntryCount is always the caller's count and isFallback is false.
func NormalizeWeekly(parsed map[string]any, sourceEntryCount int) *internal.WeeklyInsight {
	return &internal.WeeklyInsight{
		HowYouFelt:       stringField(parsed, "howYouFelt"),
		WeeklySummary:    stringField(parsed, "weeklySummary"),
		MoodDrivers:      stringsField(parsed, "moodDrivers"),
		Patterns:         stringsField(parsed, "patterns"),
		Confidence:       confidenceField(parsed),
		SourceEntryCount: sourceEntryCount,
		IsFallback:       false,
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func stringsField(m map[string]any, key string) []string {
	out := []string{}
	items, ok := m[key].([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func confidenceField(m map[string]any) float64 {
	var v float64
	switch n := m["confidence"].(type) {
	case float64:
		v = n
	case int:
		v = float64(n)
	default:
		return defaultConfidence
	}
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
