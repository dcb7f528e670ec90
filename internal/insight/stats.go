package insight

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yourname/inkjournal/internal"
)

const previewLength = 200

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)
)

// Stats summarises one insight window. Text lengths are counted in runes.
type Stats struct {
	MoodCounts         map[string]int
	MoodDistribution   map[string]int
	CombinedText       string
	CombinedTextLength int
	MostActive         string
	LatestEntryAt      time.Time
	// Preview is redacted and only ever logged.
	Preview string
}

// ComputeStats expects entries sorted ascending by date. Day and time
// buckets are evaluated in loc.
func ComputeStats(entries []internal.JournalEntry, loc *time.Location) Stats {
	if loc == nil {
		loc = time.Local
	}
	counts := make(map[string]int)
	var texts []string
	var slots []string
	slotCounts := make(map[string]int)

	for _, e := range entries {
		if e.Mood != "" {
			counts[e.Mood]++
		}
		if t := strings.TrimSpace(e.Text); t != "" {
			texts = append(texts, t)
		}
		d := e.Date.In(loc)
		slot := d.Weekday().String() + " " + timeBucket(d.Hour())
		if _, seen := slotCounts[slot]; !seen {
			slots = append(slots, slot)
		}
		slotCounts[slot]++
	}

	combined := strings.Join(texts, " ")
	st := Stats{
		MoodCounts:         counts,
		MoodDistribution:   distribution(counts),
		CombinedText:       combined,
		CombinedTextLength: utf8.RuneCountInString(combined),
		Preview:            redact(truncateRunes(collapseSpace(combined), previewLength)),
	}

	best := 0
	for _, slot := range slots {
		if slotCounts[slot] > best {
			best = slotCounts[slot]
			st.MostActive = slot
		}
	}
	if n := len(entries); n > 0 {
		st.LatestEntryAt = entries[n-1].Date
	}
	return st
}

func timeBucket(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 21:
		return "evening"
	default:
		return "night"
	}
}

// distribution turns counts into rounded percentages of the mood-bearing total.
func distribution(counts map[string]int) map[string]int {
	total := 0
	for _, c := range counts {
		total += c
	}
	out := make(map[string]int, len(counts))
	if total == 0 {
		return out
	}
	for mood, c := range counts {
		out[mood] = int(math.Round(float64(c) / float64(total) * 100))
	}
	return out
}

func distributionJSON(d map[string]int) string {
	b, err := json.Marshal(d)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func redact(s string) string {
	s = emailPattern.ReplaceAllString(s, "[redacted-email]")
	return phonePattern.ReplaceAllString(s, "[redacted-phone]")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
