package internal

import (
	"strings"
	"time"
)

type Mood string

const (
	MoodJoy       Mood = "joy"
	MoodCalm      Mood = "calm"
	MoodSad       Mood = "sad"
	MoodAnxious   Mood = "anxious"
	MoodStressed  Mood = "stressed"
	MoodMotivated Mood = "motivated"
	MoodGrateful  Mood = "grateful"
)

// Moods lists the labels the app lets a user pick when composing an entry.
var Moods = []Mood{MoodJoy, MoodCalm, MoodSad, MoodAnxious, MoodStressed, MoodMotivated, MoodGrateful}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	Mood      string    `json:"mood,omitempty"`
	MoodTags  []string  `json:"mood_tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Journal projects a stored entry onto the shape the insight pipeline reads.
// An entry without an explicit mood falls back to its first tag.
func (e Entry) Journal() JournalEntry {
	mood := strings.TrimSpace(e.Mood)
	if mood == "" && len(e.MoodTags) > 0 {
		mood = strings.TrimSpace(e.MoodTags[0])
	}
	return JournalEntry{Date: e.CreatedAt, Mood: mood, Text: e.Content}
}

// JournalEntry is immutable once handed to the insight pipeline.
type JournalEntry struct {
	Date time.Time `json:"date"`
	Mood string    `json:"mood,omitempty"`
	Text string    `json:"text"`
}

// EntryFilter selects entries for one owner within [From, To]. Zero bounds are open.
type EntryFilter struct {
	OwnerID string
	From    time.Time
	To      time.Time
}

// Matches reports whether e falls inside the filter.
func (f EntryFilter) Matches(e *Entry) bool {
	if f.OwnerID != "" && e.UserID != f.OwnerID {
		return false
	}
	if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.CreatedAt.After(f.To) {
		return false
	}
	return true
}

// WeeklyInsight is the weekly-mode AI response returned to the client.
type WeeklyInsight struct {
	HowYouFelt       string   `json:"howYouFelt"`
	WeeklySummary    string   `json:"weeklySummary"`
	MoodDrivers      []string `json:"moodDrivers"`
	Patterns         []string `json:"patterns"`
	Confidence       float64  `json:"confidence"`
	SourceEntryCount int      `json:"sourceEntryCount"`
	IsFallback       bool     `json:"isFallback"`
}

type FutureYouMessage struct {
	FutureYouMessage string `json:"futureYouMessage"`
}

// InsightCacheRecord holds the latest weekly insight generated for one owner key.
// Records are overwritten, never deleted.
type InsightCacheRecord struct {
	OwnerKey      string         `json:"owner_key"`
	LatestEntryAt time.Time      `json:"latest_entry_at"`
	WindowStart   time.Time      `json:"window_start"`
	WindowEnd     time.Time      `json:"window_end"`
	CreatedAt     time.Time      `json:"created_at"`
	Payload       *WeeklyInsight `json:"payload,omitempty"`
}
