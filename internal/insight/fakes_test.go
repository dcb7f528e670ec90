package insight

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yourname/inkjournal/internal"
	"github.com/yourname/inkjournal/internal/llm"
)

type fakeEntries struct {
	entries []internal.Entry
	err     error
	filters []internal.EntryFilter
}

func (f *fakeEntries) FindEntries(_ context.Context, filter internal.EntryFilter) ([]internal.Entry, error) {
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	var out []internal.Entry
	for i := range f.entries {
		if filter.Matches(&f.entries[i]) {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

type fakeGenerator struct {
	mu          sync.Mutex
	weekly      map[string]any
	weeklyErr   error
	future      string
	futureErr   error
	weeklyCalls []llm.WeeklyPrompt
	futureCalls []llm.FutureSelfPrompt
}

func (f *fakeGenerator) WeeklyInsight(_ context.Context, p llm.WeeklyPrompt) (*llm.WeeklyOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.weeklyCalls = append(f.weeklyCalls, p)
	if f.weeklyErr != nil {
		return nil, f.weeklyErr
	}
	return &llm.WeeklyOutput{RawText: "{}", Parsed: f.weekly}, nil
}

func (f *fakeGenerator) FutureSelf(_ context.Context, p llm.FutureSelfPrompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.futureCalls = append(f.futureCalls, p)
	return f.future, f.futureErr
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.weeklyCalls) + len(f.futureCalls)
}

// mapCache is an unbounded Cache that records writes.
type mapCache struct {
	records map[string]*internal.InsightCacheRecord
	getErr  error
	putErr  error
	puts    int
}

func newMapCache() *mapCache {
	return &mapCache{records: make(map[string]*internal.InsightCacheRecord)}
}

func (c *mapCache) Get(_ context.Context, key string) (*internal.InsightCacheRecord, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	r, ok := c.records[key]
	if !ok {
		return nil, false, nil
	}
	return cloneRecord(r), true, nil
}

func (c *mapCache) Put(_ context.Context, key string, rec *internal.InsightCacheRecord) error {
	c.puts++
	if c.putErr != nil {
		return c.putErr
	}
	c.records[key] = cloneRecord(rec)
	return nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

var errBoom = errors.New("boom")
