package insight

import (
	"strings"

	"github.com/yourname/inkjournal/internal"
	"github.com/yourname/inkjournal/internal/auth"
)

type Mode string

const (
	ModeWeekly    Mode = "weekly"
	ModeFutureYou Mode = "future_you"
)

// ParseMode is case-insensitive; anything other than future_you is weekly.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeFutureYou)) {
		return ModeFutureYou
	}
	return ModeWeekly
}

// FallbackFutureYouMessage is returned whenever a future-self reflection cannot be generated.
const FallbackFutureYouMessage = "This reflection is based on a small snapshot of recent entries. Even so, it’s clear you’re processing something meaningful. Be gentle with yourself today."

type Request struct {
	Mode          Mode
	Force         bool
	Caller        auth.Identity
	ClientEntries []internal.JournalEntry
}

type Outcome string

const (
	OutcomeGenerated Outcome = "generated"
	OutcomeCached    Outcome = "cached"
	OutcomeNoEntries Outcome = "no_entries"
	OutcomeFallback  Outcome = "fallback"
	OutcomeFailed    Outcome = "failed"
)

// Result carries exactly one of Weekly or FutureYou unless Outcome is
// OutcomeNoEntries or OutcomeFailed.
type Result struct {
	Mode        Mode
	Outcome     Outcome
	Weekly      *internal.WeeklyInsight
	FutureYou   *internal.FutureYouMessage
	EntryCount  int
	CacheReason string
}

// Cache decision reasons, also used as metric labels.
const (
	CacheHit            = "hit"
	CacheMissNoCache    = "miss:no_cache"
	CacheMissStale      = "miss:cache_stale"
	CacheMissNewerEntry = "miss:newer_entry"
	CacheMissEmpty      = "miss:cache_empty"
	CacheMissFallback   = "miss:cached_fallback"
	CacheMissLookup     = "miss:lookup_failed"
	CacheSkipForce      = "skip:force"
)
