package insight

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yourname/inkjournal/internal"
	"github.com/yourname/inkjournal/internal/llm"
)

const (
	recentBulletCount    = 5
	bulletTextLength     = 500
	limitedTextThreshold = 150
	futureSummaryLength  = 1200
	futureStubCount      = 7
	windowDays           = 7

	limitedDataNote = "Based on limited journal text, provide insights mainly from mood tags and timestamps, and explicitly state that limitation."
)

func isoDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func moodTag(mood string) string {
	if mood == "" {
		return ""
	}
	return " [" + mood + "]"
}

func weeklyPrompt(entries []internal.JournalEntry, st Stats, from, to time.Time) llm.WeeklyPrompt {
	split := len(entries) - recentBulletCount
	if split < 0 {
		split = 0
	}
	older, recent := entries[:split], entries[split:]

	bullets := make([]string, 0, len(recent))
	for _, e := range recent {
		text := truncateRunes(collapseSpace(e.Text), bulletTextLength)
		if text == "" {
			text = "(no text)"
		}
		bullets = append(bullets, fmt.Sprintf("- %s%s: %s", isoDate(e.Date), moodTag(e.Mood), text))
	}

	p := llm.WeeklyPrompt{
		WindowStart:          from,
		WindowEnd:            to,
		EntryCount:           len(entries),
		MoodDistributionJSON: distributionJSON(st.MoodDistribution),
		MostWritten:          st.MostActive,
		RecentEntries:        strings.Join(bullets, "\n") + "\n\nHigh-signal summary: " + rollup(older, st.MostActive),
	}
	if st.CombinedTextLength < limitedTextThreshold {
		p.LimitedDataNote = limitedDataNote
	}
	return p
}

// rollup describes the entries that did not make it into the bullet list.
func rollup(older []internal.JournalEntry, mostActive string) string {
	counts := make(map[string]int)
	for _, e := range older {
		if e.Mood != "" {
			counts[e.Mood]++
		}
	}
	dist := distribution(counts)
	moods := make([]string, 0, len(dist))
	for m := range dist {
		moods = append(moods, m)
	}
	sort.Slice(moods, func(i, j int) bool {
		if dist[moods[i]] != dist[moods[j]] {
			return dist[moods[i]] > dist[moods[j]]
		}
		return moods[i] < moods[j]
	})
	if len(moods) > 3 {
		moods = moods[:3]
	}
	parts := make([]string, len(moods))
	for i, m := range moods {
		parts[i] = fmt.Sprintf("%s %d%%", m, dist[m])
	}
	top := strings.Join(parts, ", ")
	if top == "" {
		top = "no mood data"
	}
	if mostActive == "" {
		mostActive = "unknown"
	}
	return fmt.Sprintf("Remaining entries: %d. Top moods: %s. Most written: %s.", len(older), top, mostActive)
}

func futureSelfPrompt(entries []internal.JournalEntry, st Stats) llm.FutureSelfPrompt {
	summary := truncateRunes(collapseSpace(st.CombinedText), futureSummaryLength)
	if summary == "" {
		n := len(entries)
		if n > futureStubCount {
			n = futureStubCount
		}
		stubs := make([]string, 0, n)
		for _, e := range entries[:n] {
			stubs = append(stubs, isoDate(e.Date)+moodTag(e.Mood))
		}
		summary = strings.Join(stubs, ", ")
	}
	p := llm.FutureSelfPrompt{
		Days:                 windowDays,
		EntryCount:           len(entries),
		MoodDistributionJSON: distributionJSON(st.MoodDistribution),
		EntriesSummary:       summary,
	}
	if st.CombinedTextLength < limitedTextThreshold {
		p.LimitedDataNote = limitedDataNote
	}
	return p
}
