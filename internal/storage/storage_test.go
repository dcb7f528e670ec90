package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourname/inkjournal/internal"
)

func newEntry(userID string, at time.Time, mood, content string) *internal.Entry {
	return &internal.Entry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Content:   content,
		Mood:      mood,
		MoodTags:  []string{mood},
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	t.Run("entries", func(t *testing.T) {
		e3 := newEntry("u1", base.Add(3*time.Hour), "calm", "third")
		e1 := newEntry("u1", base.Add(1*time.Hour), "sad", "first")
		e2 := newEntry("u1", base.Add(2*time.Hour).Add(500*time.Millisecond), "joy", "second")
		other := newEntry("u2", base.Add(2*time.Hour), "anxious", "someone else")
		for _, e := range []*internal.Entry{e3, e1, e2, other} {
			require.NoError(t, s.CreateEntry(ctx, e))
		}

		got, err := s.FindEntries(ctx, internal.EntryFilter{OwnerID: "u1"})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"first", "second", "third"}, []string{got[0].Content, got[1].Content, got[2].Content})
		assert.True(t, got[1].CreatedAt.Equal(e2.CreatedAt))
		assert.Equal(t, []string{"joy"}, got[1].MoodTags)

		windowed, err := s.FindEntries(ctx, internal.EntryFilter{OwnerID: "u1", From: base.Add(90 * time.Minute), To: base.Add(3 * time.Hour)})
		require.NoError(t, err)
		require.Len(t, windowed, 2)
		assert.Equal(t, "second", windowed[0].Content)
		assert.Equal(t, "third", windowed[1].Content)

		none, err := s.FindEntries(ctx, internal.EntryFilter{OwnerID: "nobody"})
		require.NoError(t, err)
		assert.Empty(t, none)

		fetched, err := s.GetEntry(ctx, e1.ID)
		require.NoError(t, err)
		assert.Equal(t, "sad", fetched.Mood)

		fetched.Content = "first, edited"
		fetched.CreatedAt = base.Add(4 * time.Hour)
		fetched.UpdatedAt = base.Add(4 * time.Hour)
		require.NoError(t, s.UpdateEntry(ctx, fetched))
		got, err = s.FindEntries(ctx, internal.EntryFilter{OwnerID: "u1"})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "first, edited", got[2].Content)

		require.NoError(t, s.DeleteEntry(ctx, e2.ID))
		_, err = s.GetEntry(ctx, e2.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteEntry(ctx, e2.ID), ErrNotFound)
		assert.ErrorIs(t, s.UpdateEntry(ctx, e2), ErrNotFound)
	})

	t.Run("insight cache", func(t *testing.T) {
		_, err := s.GetInsightCache(ctx, "u1")
		assert.ErrorIs(t, err, ErrNotFound)

		rec := &internal.InsightCacheRecord{
			OwnerKey:      "u1",
			LatestEntryAt: base.Add(3 * time.Hour),
			WindowStart:   base.Add(-7 * 24 * time.Hour),
			WindowEnd:     base,
			CreatedAt:     base,
			Payload: &internal.WeeklyInsight{
				HowYouFelt:  "steady",
				MoodDrivers: []string{"work"},
				Patterns:    []string{},
				Confidence:  0.8,
			},
		}
		require.NoError(t, s.PutInsightCache(ctx, rec))

		got, err := s.GetInsightCache(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, got.LatestEntryAt.Equal(rec.LatestEntryAt))
		require.NotNil(t, got.Payload)
		assert.Equal(t, "steady", got.Payload.HowYouFelt)
		assert.Equal(t, []string{"work"}, got.Payload.MoodDrivers)

		rec.Payload = nil
		rec.CreatedAt = base.Add(time.Hour)
		require.NoError(t, s.PutInsightCache(ctx, rec))
		got, err = s.GetInsightCache(ctx, "u1")
		require.NoError(t, err)
		assert.Nil(t, got.Payload)
		assert.True(t, got.CreatedAt.Equal(base.Add(time.Hour)))
	})
}

func TestFileStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage(filepath.Join(dir, "entries.json"), filepath.Join(dir, "cache.json"), internal.NopLogger())
	require.NoError(t, err)
	defer s.Close()
	runStoreContract(t, s)
}

func TestFileStorage_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	entriesFile := filepath.Join(dir, "data", "entries.json")
	cacheFile := filepath.Join(dir, "data", "cache.json")
	ctx := context.Background()
	at := time.Date(2026, 10, 2, 8, 0, 0, 0, time.UTC)

	s, err := NewFileStorage(entriesFile, cacheFile, internal.NopLogger())
	require.NoError(t, err)
	e := newEntry("u1", at, "grateful", "coffee with a friend")
	require.NoError(t, s.CreateEntry(ctx, e))
	require.NoError(t, s.PutInsightCache(ctx, &internal.InsightCacheRecord{OwnerKey: "u1", LatestEntryAt: at, CreatedAt: at}))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = os.Stat(entriesFile)
	require.NoError(t, err)

	reopened, err := NewFileStorage(entriesFile, cacheFile, internal.NopLogger())
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.FindEntries(ctx, internal.EntryFilter{OwnerID: "u1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "coffee with a friend", got[0].Content)

	rec, err := reopened.GetInsightCache(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, rec.LatestEntryAt.Equal(at))
}

func TestFileStorage_DebouncedSave(t *testing.T) {
	dir := t.TempDir()
	entriesFile := filepath.Join(dir, "entries.json")
	s, err := NewFileStorage(entriesFile, filepath.Join(dir, "cache.json"), internal.NopLogger())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.CreateEntry(context.Background(), newEntry("u1", time.Now(), "calm", "x")))
	assert.Eventually(t, func() bool {
		_, err := os.Stat(entriesFile)
		return err == nil
	}, 3*time.Second, 25*time.Millisecond)
}

func TestFileStorage_CloseDuringDebouncedSave(t *testing.T) {
	ctx := context.Background()
	for _, wait := range []time.Duration{490 * time.Millisecond, 500 * time.Millisecond, 505 * time.Millisecond, 520 * time.Millisecond} {
		t.Run(wait.String(), func(t *testing.T) {
			dir := t.TempDir()
			entriesFile := filepath.Join(dir, "entries.json")
			cacheFile := filepath.Join(dir, "cache.json")

			s, err := NewFileStorage(entriesFile, cacheFile, internal.NopLogger())
			require.NoError(t, err)
			for i := 0; i < 50; i++ {
				require.NoError(t, s.CreateEntry(ctx, newEntry("u1", time.Now(), "calm", "entry")))
			}
			require.NoError(t, s.PutInsightCache(ctx, &internal.InsightCacheRecord{OwnerKey: "u1", CreatedAt: time.Now()}))

			time.Sleep(wait)
			require.NoError(t, s.Close())

			_, err = os.Stat(entriesFile + ".tmp")
			assert.True(t, os.IsNotExist(err))

			reopened, err := NewFileStorage(entriesFile, cacheFile, internal.NopLogger())
			require.NoError(t, err)
			defer reopened.Close()
			got, err := reopened.FindEntries(ctx, internal.EntryFilter{OwnerID: "u1"})
			require.NoError(t, err)
			assert.Len(t, got, 50)
		})
	}
}

func TestFileStorage_ReturnsCopies(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage(filepath.Join(dir, "e.json"), filepath.Join(dir, "c.json"), internal.NopLogger())
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	e := newEntry("u1", time.Now(), "calm", "original")
	require.NoError(t, s.CreateEntry(ctx, e))
	e.Content = "mutated by caller"

	got, err := s.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Content)
}

func TestSQLiteStorage(t *testing.T) {
	s, err := NewSQLiteStorage(context.Background(), filepath.Join(t.TempDir(), "journal.db"), internal.NopLogger())
	require.NoError(t, err)
	defer s.Close()
	runStoreContract(t, s)
}

func TestPostgresStorage(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStorage(ctx, dsn, internal.NopLogger())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.pool.Exec(ctx, `TRUNCATE entries, insight_cache`)
	require.NoError(t, err)
	runStoreContract(t, s)
}

func TestFilterClause(t *testing.T) {
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	where, args := filterClause(internal.EntryFilter{OwnerID: "u1", From: from}, func(n int) string { return "$" + string(rune('0'+n)) })
	assert.Equal(t, " WHERE user_id = $1 AND created_at >= $2", where)
	assert.Equal(t, []any{"u1", from}, args)

	where, args = filterClause(internal.EntryFilter{}, func(int) string { return "?" })
	assert.Empty(t, where)
	assert.Nil(t, args)
}
