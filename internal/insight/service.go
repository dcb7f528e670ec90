// Package insight turns a caller's recent journal entries into an AI
// reflection: a weekly summary or a message from their future self.
package insight

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yourname/inkjournal/internal"
	"github.com/yourname/inkjournal/internal/llm"
	"github.com/yourname/inkjournal/internal/metrics"
)

const DefaultCacheTTL = 24 * time.Hour

// EntrySource is the read side of the entry store.
type EntrySource interface {
	FindEntries(ctx context.Context, filter internal.EntryFilter) ([]internal.Entry, error)
}

// Generator is the text-generation backend.
type Generator interface {
	WeeklyInsight(ctx context.Context, p llm.WeeklyPrompt) (*llm.WeeklyOutput, error)
	FutureSelf(ctx context.Context, p llm.FutureSelfPrompt) (string, error)
}

type Service struct {
	entries  EntrySource
	caches   CacheSelector
	gen      Generator
	logger   internal.Logger
	now      func() time.Time
	loc      *time.Location
	cacheTTL time.Duration
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithLocation sets the zone used for weekday and time-of-day buckets.
func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

func WithCacheTTL(ttl time.Duration) Option { return func(s *Service) { s.cacheTTL = ttl } }

func NewService(entries EntrySource, caches CacheSelector, gen Generator, logger internal.Logger, opts ...Option) *Service {
	s := &Service{
		entries:  entries,
		caches:   caches,
		gen:      gen,
		logger:   logger,
		now:      time.Now,
		loc:      time.Local,
		cacheTTL: DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// generation is the per-request state shared by both strategies.
type generation struct {
	req      Request
	ownerKey string
	entries  []internal.JournalEntry
	stats    Stats
	from, to time.Time
	log      internal.Logger
}

type strategy interface {
	run(ctx context.Context, s *Service, g *generation) (Result, error)
}

func strategyFor(mode Mode) strategy {
	if mode == ModeFutureYou {
		return futureYouStrategy{}
	}
	return weeklyStrategy{}
}

// Generate produces an insight for req. Only weekly mode returns errors;
// future-self mode always yields a message.
func (s *Service) Generate(ctx context.Context, req Request) (Result, error) {
	if req.Mode != ModeFutureYou {
		req.Mode = ModeWeekly
	}
	to := s.now()
	from := to.AddDate(0, 0, -windowDays)
	g := &generation{
		req:      req,
		ownerKey: req.Caller.OwnerKey(),
		from:     from,
		to:       to,
		log:      s.logger.With("mode", string(req.Mode), "owner", req.Caller.String(), "force", req.Force),
	}

	g.entries = s.sourceEntries(ctx, g)
	if len(g.entries) == 0 {
		g.log.Infow("insight skipped", "entries", 0, "cache_hit", false, "ai_called", false, "reason", "no_entries")
		metrics.InsightRequests.WithLabelValues(string(req.Mode), string(OutcomeNoEntries)).Inc()
		return Result{Mode: req.Mode, Outcome: OutcomeNoEntries}, nil
	}

	g.stats = ComputeStats(g.entries, s.loc)
	g.log.Infow("insight request",
		"entries", len(g.entries),
		"combined_text_length", g.stats.CombinedTextLength,
		"mood_distribution", g.stats.MoodDistribution,
		"most_active", g.stats.MostActive,
		"payload_preview", g.stats.Preview,
	)

	res, err := strategyFor(req.Mode).run(ctx, s, g)
	res.Mode = req.Mode
	res.EntryCount = len(g.entries)
	metrics.InsightRequests.WithLabelValues(string(req.Mode), string(res.Outcome)).Inc()
	return res, err
}

// sourceEntries prefers the store for identified callers and falls back to
// the client's entries when the store fails or has nothing in the window.
func (s *Service) sourceEntries(ctx context.Context, g *generation) []internal.JournalEntry {
	if userID, ok := g.req.Caller.UserID(); ok && s.entries != nil {
		stored, err := s.entries.FindEntries(ctx, internal.EntryFilter{OwnerID: userID, From: g.from, To: g.to})
		if err != nil {
			g.log.Warnw("entry store read failed, using client entries", "error", err)
		} else if len(stored) > 0 {
			out := make([]internal.JournalEntry, len(stored))
			for i, e := range stored {
				out[i] = e.Journal()
			}
			sortByDate(out)
			g.log.Debugf("using %d stored entries", len(out))
			return out
		}
	}

	out := make([]internal.JournalEntry, 0, len(g.req.ClientEntries))
	for _, e := range g.req.ClientEntries {
		if e.Date.Before(g.from) || e.Date.After(g.to) {
			continue
		}
		out = append(out, e)
	}
	sortByDate(out)
	return out
}

func sortByDate(entries []internal.JournalEntry) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
}

type weeklyStrategy struct{}

func (weeklyStrategy) run(ctx context.Context, s *Service, g *generation) (Result, error) {
	cache := s.caches.For(g.req.Caller)
	reason := CacheSkipForce
	if !g.req.Force {
		rec, found, err := cache.Get(ctx, g.ownerKey)
		if err != nil {
			g.log.Warnw("insight cache lookup failed", "error", err)
		}
		var hit bool
		hit, reason = evaluateCache(rec, found, err, s.now(), g.stats.LatestEntryAt, s.cacheTTL)
		metrics.InsightCache.WithLabelValues(reason).Inc()
		if hit {
			payload := clonePayload(rec.Payload)
			payload.SourceEntryCount = len(g.entries)
			g.log.Infow("insight served", "cache_hit", true, "cache_reason", reason, "ai_called", false, "parse_ok", true, "returning_fallback", false)
			return Result{Outcome: OutcomeCached, Weekly: payload, CacheReason: reason}, nil
		}
	}

	out, err := s.gen.WeeklyInsight(ctx, weeklyPrompt(g.entries, g.stats, g.from, g.to))
	if err != nil {
		kind, _ := llm.KindOf(err)
		g.log.Errorw("weekly insight failed",
			"cache_hit", false,
			"cache_reason", reason,
			"ai_called", kind != llm.KindMissingCredential,
			"parse_ok", false,
			"returning_fallback", false,
			"error", err,
		)
		return Result{Outcome: OutcomeFailed, CacheReason: reason}, fmt.Errorf("weekly insight: %w", err)
	}

	payload := NormalizeWeekly(out.Parsed, len(g.entries))
	g.log.Infow("insight served",
		"cache_hit", false,
		"cache_reason", reason,
		"ai_called", true,
		"parse_ok", true,
		"returning_fallback", payload.IsFallback,
		"raw_preview", truncateRunes(out.RawText, previewLength),
	)

	if !g.req.Force && !payload.IsFallback {
		rec := &internal.InsightCacheRecord{
			OwnerKey:      g.ownerKey,
			LatestEntryAt: g.stats.LatestEntryAt,
			WindowStart:   g.from,
			WindowEnd:     g.to,
			CreatedAt:     s.now(),
			Payload:       payload,
		}
		if err := cache.Put(ctx, g.ownerKey, rec); err != nil {
			g.log.Warnw("insight cache write failed", "error", err)
		}
	}
	return Result{Outcome: OutcomeGenerated, Weekly: payload, CacheReason: reason}, nil
}

type futureYouStrategy struct{}

func (futureYouStrategy) run(ctx context.Context, s *Service, g *generation) (Result, error) {
	msg, err := s.gen.FutureSelf(ctx, futureSelfPrompt(g.entries, g.stats))
	if err != nil || msg == "" {
		kind, _ := llm.KindOf(err)
		g.log.Warnw("future-self reflection failed",
			"ai_called", kind != llm.KindMissingCredential,
			"parse_ok", false,
			"returning_fallback", true,
			"error", err,
		)
		return Result{Outcome: OutcomeFallback, FutureYou: &internal.FutureYouMessage{FutureYouMessage: FallbackFutureYouMessage}}, nil
	}
	g.log.Infow("future-self reflection served", "ai_called", true, "parse_ok", true, "returning_fallback", false)
	return Result{Outcome: OutcomeGenerated, FutureYou: &internal.FutureYouMessage{FutureYouMessage: msg}}, nil
}
