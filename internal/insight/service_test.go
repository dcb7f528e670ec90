package insight

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourname/inkjournal/internal"
	"github.com/yourname/inkjournal/internal/auth"
	"github.com/yourname/inkjournal/internal/llm"
)

type harness struct {
	svc     *Service
	store   *fakeEntries
	gen     *fakeGenerator
	durable *mapCache
	anon    *mapCache
	clock   *clock
}

func newHarness() *harness {
	h := &harness{
		store:   &fakeEntries{},
		gen:     &fakeGenerator{weekly: map[string]any{"howYouFelt": "You held steady.", "weeklySummary": "Mixed week.", "moodDrivers": []any{"work"}, "patterns": []any{"evenings"}, "confidence": 0.8}, future: "It got lighter."},
		durable: newMapCache(),
		anon:    newMapCache(),
		clock:   &clock{t: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)},
	}
	h.svc = NewService(h.store, NewOwnerCache(h.durable, h.anon), h.gen, internal.NopLogger(),
		WithClock(h.clock.now), WithLocation(time.UTC))
	return h
}

func (h *harness) daysAgo(d float64) time.Time {
	return h.clock.t.Add(-time.Duration(d * float64(24*time.Hour)))
}

func (h *harness) storeEntry(userID string, when time.Time, mood, text string) {
	h.store.entries = append(h.store.entries, internal.Entry{
		ID: when.String(), UserID: userID, Content: text, Mood: mood, CreatedAt: when, UpdatedAt: when,
	})
}

var user = auth.Identified("user-1")

func TestGenerate_NoEntries(t *testing.T) {
	for _, mode := range []Mode{ModeWeekly, ModeFutureYou} {
		t.Run(string(mode), func(t *testing.T) {
			h := newHarness()
			h.storeEntry("user-1", h.daysAgo(9), "sad", "outside the window")
			res, err := h.svc.Generate(context.Background(), Request{
				Mode:          mode,
				Caller:        user,
				ClientEntries: []internal.JournalEntry{{Date: h.daysAgo(8), Text: "too old"}},
			})
			require.NoError(t, err)
			assert.Equal(t, OutcomeNoEntries, res.Outcome)
			assert.Nil(t, res.Weekly)
			assert.Nil(t, res.FutureYou)
			assert.Zero(t, h.gen.calls())
		})
	}
}

func TestGenerate_WindowIsSevenDays(t *testing.T) {
	h := newHarness()
	_, err := h.svc.Generate(context.Background(), Request{Caller: user})
	require.NoError(t, err)
	require.Len(t, h.store.filters, 1)
	f := h.store.filters[0]
	assert.Equal(t, "user-1", f.OwnerID)
	assert.Equal(t, h.clock.t, f.To)
	assert.Equal(t, h.clock.t.AddDate(0, 0, -7), f.From)
}

func TestGenerate_ForceScenario(t *testing.T) {
	h := newHarness()
	t0 := h.daysAgo(3)
	res, err := h.svc.Generate(context.Background(), Request{
		Mode:   ModeWeekly,
		Force:  true,
		Caller: user,
		ClientEntries: []internal.JournalEntry{
			{Date: t0, Mood: "sad", Text: "rough day"},
			{Date: t0.Add(24 * time.Hour), Mood: "sad", Text: "still rough"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, h.gen.weeklyCalls, 1)
	assert.Equal(t, OutcomeGenerated, res.Outcome)
	require.NotNil(t, res.Weekly)
	assert.Equal(t, 2, res.Weekly.SourceEntryCount)
	assert.Equal(t, CacheSkipForce, res.CacheReason)
	assert.Zero(t, h.durable.puts, "forced results are never cached")
	assert.Zero(t, h.anon.puts)

	p := h.gen.weeklyCalls[0]
	assert.Equal(t, 2, p.EntryCount)
	assert.Equal(t, `{"sad":100}`, p.MoodDistributionJSON)
	assert.Equal(t, limitedDataNote, p.LimitedDataNote)
}

func TestGenerate_CacheHitIsIdempotent(t *testing.T) {
	h := newHarness()
	h.storeEntry("user-1", h.daysAgo(2), "calm", "walked by the river")
	h.storeEntry("user-1", h.daysAgo(1), "joy", "good call with mum")
	ctx := context.Background()

	first, err := h.svc.Generate(ctx, Request{Caller: user})
	require.NoError(t, err)
	assert.Equal(t, OutcomeGenerated, first.Outcome)
	assert.Equal(t, CacheMissNoCache, first.CacheReason)
	assert.Equal(t, 1, h.durable.puts)

	h.gen.weekly = map[string]any{"howYouFelt": "something else"}
	h.clock.advance(time.Minute)

	second, err := h.svc.Generate(ctx, Request{Caller: user})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCached, second.Outcome)
	assert.Equal(t, CacheHit, second.CacheReason)
	assert.Equal(t, first.Weekly.HowYouFelt, second.Weekly.HowYouFelt)
	assert.Equal(t, 2, second.Weekly.SourceEntryCount)
	assert.Len(t, h.gen.weeklyCalls, 1)
}

func TestGenerate_HitRefreshesSourceCount(t *testing.T) {
	h := newHarness()
	latest := h.daysAgo(1)
	h.storeEntry("user-1", latest, "calm", "x")
	h.durable.records["user-1"] = &internal.InsightCacheRecord{
		OwnerKey: "user-1", LatestEntryAt: latest, CreatedAt: h.daysAgo(0.5),
		Payload: &internal.WeeklyInsight{HowYouFelt: "cached", SourceEntryCount: 9},
	}
	res, err := h.svc.Generate(context.Background(), Request{Caller: user})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCached, res.Outcome)
	assert.Equal(t, 1, res.Weekly.SourceEntryCount)
	assert.Equal(t, 9, h.durable.records["user-1"].Payload.SourceEntryCount, "stored record is untouched")
}

func TestGenerate_NewerEntryMisses(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.storeEntry("user-1", h.daysAgo(2), "calm", "x")
	_, err := h.svc.Generate(ctx, Request{Caller: user})
	require.NoError(t, err)

	h.clock.advance(time.Minute)
	h.storeEntry("user-1", h.clock.t.Add(-time.Second), "sad", "new")
	res, err := h.svc.Generate(ctx, Request{Caller: user})
	require.NoError(t, err)
	assert.Equal(t, CacheMissNewerEntry, res.CacheReason)
	assert.Equal(t, OutcomeGenerated, res.Outcome)
	assert.Len(t, h.gen.weeklyCalls, 2)
}

func TestGenerate_StaleCacheMisses(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.storeEntry("user-1", h.daysAgo(1), "calm", "x")
	_, err := h.svc.Generate(ctx, Request{Caller: user})
	require.NoError(t, err)

	h.clock.advance(24 * time.Hour)
	res, err := h.svc.Generate(ctx, Request{Caller: user})
	require.NoError(t, err)
	assert.Equal(t, CacheMissStale, res.CacheReason)
	assert.Len(t, h.gen.weeklyCalls, 2)
}

func TestGenerate_ForceBypassesExistingCache(t *testing.T) {
	h := newHarness()
	latest := h.daysAgo(1)
	h.storeEntry("user-1", latest, "calm", "x")
	h.durable.records["user-1"] = &internal.InsightCacheRecord{
		LatestEntryAt: latest, CreatedAt: h.clock.t, Payload: &internal.WeeklyInsight{HowYouFelt: "cached"},
	}
	res, err := h.svc.Generate(context.Background(), Request{Caller: user, Force: true})
	require.NoError(t, err)
	assert.Equal(t, "You held steady.", res.Weekly.HowYouFelt)
	assert.Equal(t, "cached", h.durable.records["user-1"].Payload.HowYouFelt)
	assert.Zero(t, h.durable.puts)
}

func TestGenerate_CacheFailuresAreNotFatal(t *testing.T) {
	h := newHarness()
	h.storeEntry("user-1", h.daysAgo(1), "calm", "x")
	h.durable.getErr = errBoom
	h.durable.putErr = errBoom
	res, err := h.svc.Generate(context.Background(), Request{Caller: user})
	require.NoError(t, err)
	assert.Equal(t, OutcomeGenerated, res.Outcome)
	assert.Equal(t, CacheMissLookup, res.CacheReason)
	assert.Equal(t, 1, h.durable.puts)
}

func TestGenerate_AnonymousUsesClientEntriesAndMemoryCache(t *testing.T) {
	h := newHarness()
	h.storeEntry("user-1", h.daysAgo(1), "calm", "not yours")
	ctx := context.Background()
	req := Request{ClientEntries: []internal.JournalEntry{{Date: h.daysAgo(1), Mood: "😊", Text: "sunny"}}}

	res, err := h.svc.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Weekly.SourceEntryCount)
	assert.Empty(t, h.store.filters, "anonymous callers never read the store")
	assert.Contains(t, h.anon.records, auth.AnonymousKey)
	assert.Empty(t, h.durable.records)
	assert.Equal(t, `{"😊":100}`, h.gen.weeklyCalls[0].MoodDistributionJSON)

	res, err = h.svc.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCached, res.Outcome)
	assert.Len(t, h.gen.weeklyCalls, 1)
}

func TestGenerate_UserIDMatchingAnonKeyUsesDurableCache(t *testing.T) {
	h := newHarness()
	h.storeEntry(auth.AnonymousKey, h.daysAgo(1), "calm", "my own entry")
	ctx := context.Background()

	_, err := h.svc.Generate(ctx, Request{Caller: auth.Identified(auth.AnonymousKey)})
	require.NoError(t, err)
	assert.Contains(t, h.durable.records, auth.AnonymousKey)
	assert.Empty(t, h.anon.records)

	res, err := h.svc.Generate(ctx, Request{ClientEntries: []internal.JournalEntry{{Date: h.daysAgo(1), Mood: "sad", Text: "anonymous"}}})
	require.NoError(t, err)
	assert.Equal(t, OutcomeGenerated, res.Outcome, "anonymous callers never see the user's record")
	assert.Len(t, h.gen.weeklyCalls, 2)
}

func TestGenerate_StoreFailureFallsBackToClientEntries(t *testing.T) {
	h := newHarness()
	h.store.err = errBoom
	res, err := h.svc.Generate(context.Background(), Request{
		Caller: user,
		ClientEntries: []internal.JournalEntry{
			{Date: h.daysAgo(2), Mood: "sad", Text: "b"},
			{Date: h.daysAgo(3), Mood: "sad", Text: "a"},
			{Date: h.daysAgo(10), Mood: "joy", Text: "ignored"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Weekly.SourceEntryCount)
	assert.Contains(t, h.gen.weeklyCalls[0].RecentEntries, "[sad]: a\n- ")
}

func TestGenerate_StoreEntriesWinOverClientEntries(t *testing.T) {
	h := newHarness()
	h.storeEntry("user-1", h.daysAgo(1), "", "from the store")
	h.store.entries[0].MoodTags = []string{"grateful"}
	res, err := h.svc.Generate(context.Background(), Request{
		Caller:        user,
		ClientEntries: []internal.JournalEntry{{Date: h.daysAgo(1), Text: "from the client"}, {Date: h.daysAgo(2), Text: "also client"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Weekly.SourceEntryCount)
	assert.Contains(t, h.gen.weeklyCalls[0].RecentEntries, "[grateful]: from the store")
}

func TestGenerate_WeeklyErrorsPropagateWithKind(t *testing.T) {
	h := newHarness()
	h.storeEntry("user-1", h.daysAgo(1), "calm", "x")
	h.gen.weeklyErr = &llm.Error{Kind: llm.KindRateLimited, Status: 429}

	res, err := h.svc.Generate(context.Background(), Request{Caller: user})
	require.Error(t, err)
	kind, ok := llm.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, llm.KindRateLimited, kind)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Nil(t, res.Weekly)
	assert.Zero(t, h.durable.puts)
}

func TestGenerate_FutureYou(t *testing.T) {
	h := newHarness()
	h.storeEntry("user-1", h.daysAgo(1), "stressed", "deadline week")
	h.durable.records["user-1"] = &internal.InsightCacheRecord{}

	res, err := h.svc.Generate(context.Background(), Request{Mode: ModeFutureYou, Caller: user})
	require.NoError(t, err)
	assert.Equal(t, OutcomeGenerated, res.Outcome)
	assert.Equal(t, "It got lighter.", res.FutureYou.FutureYouMessage)
	assert.Nil(t, res.Weekly)
	assert.Empty(t, res.CacheReason)
	assert.Zero(t, h.durable.puts)
	require.Len(t, h.gen.futureCalls, 1)
	assert.Equal(t, "deadline week", h.gen.futureCalls[0].EntriesSummary)
}

func TestGenerate_FutureYouFailuresFallBack(t *testing.T) {
	failures := map[string]error{
		"network":            &llm.Error{Kind: llm.KindNetwork},
		"rate limited":       &llm.Error{Kind: llm.KindRateLimited},
		"parse":              &llm.Error{Kind: llm.KindParseMalformed},
		"missing credential": &llm.Error{Kind: llm.KindMissingCredential},
		"other":              errBoom,
	}
	for name, failure := range failures {
		t.Run(name, func(t *testing.T) {
			h := newHarness()
			h.gen.futureErr = failure
			res, err := h.svc.Generate(context.Background(), Request{
				Mode:          ModeFutureYou,
				ClientEntries: []internal.JournalEntry{{Date: h.daysAgo(1), Mood: "sad"}},
			})
			require.NoError(t, err)
			assert.Equal(t, OutcomeFallback, res.Outcome)
			require.NotNil(t, res.FutureYou)
			assert.Equal(t, FallbackFutureYouMessage, res.FutureYou.FutureYouMessage)
		})
	}
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeFutureYou, ParseMode("future_you"))
	assert.Equal(t, ModeFutureYou, ParseMode(" FUTURE_YOU "))
	assert.Equal(t, ModeWeekly, ParseMode("weekly"))
	assert.Equal(t, ModeWeekly, ParseMode(""))
	assert.Equal(t, ModeWeekly, ParseMode("monthly"))
}
