package llm

import (
	"strconv"
	"strings"
	"time"
)

const (
	weeklyMaxOutputTokens    = 350
	weeklyTemperature        = 0.6
	futureYouMaxOutputTokens = 400
	futureYouTemperature     = 0.7
)

const weeklySystemMessage = "You are Ink, a supportive journaling insights assistant. Produce accurate, non-judgmental weekly insights based only on the provided last-7-days data. If written text is limited, explicitly say insights are mostly based on mood tags/patterns and begin howYouFelt with \"Based on a small number of recent entries...\". Never invent specific events. Output ONLY valid JSON with the required schema. Keep it concise and actionable."

const weeklyUserTemplate = `DATA:
- Date range: {windowStart} to {windowEnd}
- Entries count (7 days): {entryCount}
- Mood distribution: {moodDistribution}
- Most written: {mostWritten}
- Recent entries (trimmed): {recentEntries}
- Notes: If journal text is limited, still produce insights using moodDistribution + patterns, and clearly state that limitation.

TASK:
Return ONLY valid JSON in this schema (no markdown, no extra text):
{
  "howYouFelt": string,
  "weeklySummary": string,
  "moodDrivers": string[],
  "patterns": string[],
  "confidence": number
}

STYLE RULES:
- howYouFelt: 2-5 supportive sentences, grounded in data
- weeklySummary: 1-2 sentences
- moodDrivers/patterns: 2-5 short items each
- confidence: 0 to 1 (float)
- Never include medical advice. Encourage gentle self-reflection.
- Do not mention the model name or API.`

const futureYouSystemMessage = "You are writing a personal reflection as the user, six months in the future, speaking to their present self. Keep it casual, human, and reflective. No therapy language, no clinical framing, no motivational advice, no \"you should\" phrasing. Avoid em dashes. The output must be plain text only."

const futureYouUserTemplate = `DATA:
- Entries count (last {days} days): {entryCount}
- Mood distribution: {moodDistribution}
- Summary of recent notes (trimmed): {entriesSummary}
- Note: {limitedDataNote}

TASK:
Write 1-2 short paragraphs in second person, from the user speaking to themselves from six months in the future.
The reflection should directly reference recent mood patterns and themes from the data (stress, sadness, work pressure, overthinking, etc.) without inventing specifics.
It should feel like recognition, not instruction, and avoid generic encouragement.
No headings, labels, bullet points, or markdown.

Return ONLY valid JSON:
{
  "futureYou": string
}`

// WeeklyPrompt carries the fields substituted into the weekly template.
type WeeklyPrompt struct {
	WindowStart          time.Time
	WindowEnd            time.Time
	EntryCount           int
	MoodDistributionJSON string
	MostWritten          string
	RecentEntries        string
	LimitedDataNote      string
}

type FutureSelfPrompt struct {
	Days                 int
	EntryCount           int
	MoodDistributionJSON string
	EntriesSummary       string
	LimitedDataNote      string
}

func (p WeeklyPrompt) userMessage() string {
	recent := p.RecentEntries
	if recent == "" {
		recent = "(none)"
	}
	if p.LimitedDataNote != "" {
		recent += "\n- Limited data note: " + p.LimitedDataNote
	}
	mostWritten := p.MostWritten
	if mostWritten == "" {
		mostWritten = "Unknown"
	}
	return strings.NewReplacer(
		"{windowStart}", p.WindowStart.UTC().Format(time.RFC3339),
		"{windowEnd}", p.WindowEnd.UTC().Format(time.RFC3339),
		"{entryCount}", strconv.Itoa(p.EntryCount),
		"{moodDistribution}", p.MoodDistributionJSON,
		"{mostWritten}", mostWritten,
		"{recentEntries}", recent,
	).Replace(weeklyUserTemplate)
}

func (p FutureSelfPrompt) userMessage() string {
	summary := p.EntriesSummary
	if summary == "" {
		summary = "(no text)"
	}
	note := p.LimitedDataNote
	if note == "" {
		note = "No additional notes."
	}
	return strings.NewReplacer(
		"{days}", strconv.Itoa(p.Days),
		"{entryCount}", strconv.Itoa(p.EntryCount),
		"{moodDistribution}", p.MoodDistributionJSON,
		"{entriesSummary}", summary,
		"{limitedDataNote}", note,
	).Replace(futureYouUserTemplate)
}

func weeklySchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"howYouFelt":    map[string]any{"type": "string"},
			"weeklySummary": map[string]any{"type": "string"},
			"moodDrivers":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"patterns":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"confidence":    map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		},
		"required": []string{"howYouFelt", "weeklySummary", "moodDrivers", "patterns", "confidence"},
	}
}

func futureYouSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"futureYou": map[string]any{"type": "string"},
		},
		"required": []string{"futureYou"},
	}
}
