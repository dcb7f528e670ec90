package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yourname/inkjournal/internal"
	_ "modernc.org/sqlite"
)

// SQLiteStorage keeps timestamps as fixed-width UTC text so lexical order matches time order.
type SQLiteStorage struct {
	db     *sql.DB
	logger internal.Logger
}

func NewSQLiteStorage(ctx context.Context, path string, logger internal.Logger) (*SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SQLiteStorage{db: db, logger: logger}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		logger.Errorf("failed to create sqlite tables: %v", err)
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStorage) createTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS entries (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		content    TEXT NOT NULL DEFAULT '',
		mood       TEXT NOT NULL DEFAULT '',
		mood_tags  TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_user_created ON entries(user_id, created_at);
	CREATE TABLE IF NOT EXISTS insight_cache (
		owner_key       TEXT PRIMARY KEY,
		latest_entry_at TEXT NOT NULL,
		window_start    TEXT NOT NULL,
		window_end      TEXT NOT NULL,
		created_at      TEXT NOT NULL,
		payload         TEXT
	);`)
	return err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteEntry(row rowScanner) (internal.Entry, error) {
	var e internal.Entry
	var tags, created, updated string
	if err := row.Scan(&e.ID, &e.UserID, &e.Content, &e.Mood, &tags, &created, &updated); err != nil {
		return e, err
	}
	if err := json.Unmarshal([]byte(tags), &e.MoodTags); err != nil {
		return e, fmt.Errorf("decode mood_tags: %w", err)
	}
	var err error
	if e.CreatedAt, err = parseTime(created); err != nil {
		return e, err
	}
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return e, err
	}
	return e, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	return string(b), err
}

// --- EntryRepository ---
func (s *SQLiteStorage) CreateEntry(ctx context.Context, entry *internal.Entry) error {
	tags, err := encodeTags(entry.MoodTags)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.Content, entry.Mood, tags, formatTime(entry.CreatedAt), formatTime(entry.UpdatedAt))
	if err != nil {
		s.logger.Errorf("failed to insert entry: %v", err)
		return err
	}
	return nil
}

func (s *SQLiteStorage) GetEntry(ctx context.Context, id string) (*internal.Entry, error) {
	e, err := scanSQLiteEntry(s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLiteStorage) UpdateEntry(ctx context.Context, entry *internal.Entry) error {
	tags, err := encodeTags(entry.MoodTags)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE entries SET content = ?, mood = ?, mood_tags = ?, created_at = ?, updated_at = ? WHERE id = ?`,
		entry.Content, entry.Mood, tags, formatTime(entry.CreatedAt), formatTime(entry.UpdatedAt), entry.ID)
	if err != nil {
		s.logger.Errorf("failed to update entry: %v", err)
		return err
	}
	return affectedOne(res)
}

func (s *SQLiteStorage) DeleteEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		s.logger.Errorf("failed to delete entry: %v", err)
		return err
	}
	return affectedOne(res)
}

func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) FindEntries(ctx context.Context, filter internal.EntryFilter) ([]internal.Entry, error) {
	// Bounds compare as text, so they go through the same formatter as stored values.
	where, args := filterClause(filter, func(int) string { return "?" })
	for i, a := range args {
		if t, ok := a.(time.Time); ok {
			args[i] = formatTime(t)
		}
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM entries`+where+` ORDER BY created_at ASC`, args...)
	if err != nil {
		s.logger.Errorf("failed to query entries: %v", err)
		return nil, err
	}
	defer rows.Close()

	entries := make([]internal.Entry, 0)
	for rows.Next() {
		e, err := scanSQLiteEntry(rows)
		if err != nil {
			s.logger.Errorf("failed to scan entry: %v", err)
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- InsightCacheRepository ---
func (s *SQLiteStorage) GetInsightCache(ctx context.Context, ownerKey string) (*internal.InsightCacheRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT owner_key, latest_entry_at, window_start, window_end, created_at, payload FROM insight_cache WHERE owner_key = ?`, ownerKey)
	var r internal.InsightCacheRecord
	var latest, start, end, created string
	var payload sql.NullString
	if err := row.Scan(&r.OwnerKey, &latest, &start, &end, &created, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		s.logger.Errorf("failed to get insight cache: %v", err)
		return nil, err
	}
	for _, f := range []struct {
		dst *time.Time
		src string
	}{{&r.LatestEntryAt, latest}, {&r.WindowStart, start}, {&r.WindowEnd, end}, {&r.CreatedAt, created}} {
		t, err := parseTime(f.src)
		if err != nil {
			return nil, fmt.Errorf("storage: decode insight cache time: %w", err)
		}
		*f.dst = t
	}
	if payload.Valid {
		if err := decodePayload([]byte(payload.String), &r); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

func (s *SQLiteStorage) PutInsightCache(ctx context.Context, rec *internal.InsightCacheRecord) error {
	raw, err := encodePayload(rec)
	if err != nil {
		return err
	}
	var payload sql.NullString
	if raw != nil {
		payload = sql.NullString{String: string(raw), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO insight_cache (owner_key, latest_entry_at, window_start, window_end, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_key) DO UPDATE SET
			latest_entry_at = excluded.latest_entry_at,
			window_start = excluded.window_start,
			window_end = excluded.window_end,
			created_at = excluded.created_at,
			payload = excluded.payload`,
		rec.OwnerKey, formatTime(rec.LatestEntryAt), formatTime(rec.WindowStart), formatTime(rec.WindowEnd), formatTime(rec.CreatedAt), payload)
	if err != nil {
		s.logger.Errorf("failed to upsert insight cache: %v", err)
		return err
	}
	return nil
}

// --- Compile-time assertions ---
var _ Store = (*SQLiteStorage)(nil)
