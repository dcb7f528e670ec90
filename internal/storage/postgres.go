package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yourname/inkjournal/internal"
)

// Expected schema (managed outside this service):
//
//	entries(id text pk, user_id text, content text, mood text, mood_tags text[],
//	        created_at timestamptz, updated_at timestamptz)
//	insight_cache(owner_key text pk, latest_entry_at timestamptz, window_start timestamptz,
//	              window_end timestamptz, created_at timestamptz, payload jsonb)
type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger internal.Logger
}

const postgresConnectAttempts = 5

func NewPostgresStorage(ctx context.Context, dsn string, logger internal.Logger) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Errorf("failed to connect to postgres: %v", err)
		return nil, err
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 2 * time.Second
	ping := func() error {
		if err := pool.Ping(ctx); err != nil {
			logger.Warnw("postgres not ready", "error", err)
			return err
		}
		return nil
	}
	if err := backoff.Retry(ping, backoff.WithContext(backoff.WithMaxRetries(exp, postgresConnectAttempts-1), ctx)); err != nil {
		pool.Close()
		logger.Errorf("failed to reach postgres: %v", err)
		return nil, err
	}
	return &PostgresStorage{pool: pool, logger: logger}, nil
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

const entryColumns = `id, user_id, content, mood, mood_tags, created_at, updated_at`

func scanEntry(row pgx.Row) (internal.Entry, error) {
	var e internal.Entry
	err := row.Scan(&e.ID, &e.UserID, &e.Content, &e.Mood, &e.MoodTags, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// --- EntryRepository ---
func (p *PostgresStorage) CreateEntry(ctx context.Context, entry *internal.Entry) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO entries (`+entryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.UserID, entry.Content, entry.Mood, entry.MoodTags, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		p.logger.Errorf("failed to insert entry: %v", err)
		return err
	}
	return nil
}

func (p *PostgresStorage) GetEntry(ctx context.Context, id string) (*internal.Entry, error) {
	e, err := scanEntry(p.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		p.logger.Errorf("failed to get entry: %v", err)
		return nil, err
	}
	return &e, nil
}

func (p *PostgresStorage) UpdateEntry(ctx context.Context, entry *internal.Entry) error {
	tag, err := p.pool.Exec(ctx, `UPDATE entries SET content = $2, mood = $3, mood_tags = $4, created_at = $5, updated_at = $6 WHERE id = $1`,
		entry.ID, entry.Content, entry.Mood, entry.MoodTags, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		p.logger.Errorf("failed to update entry: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStorage) DeleteEntry(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM entries WHERE id = $1`, id)
	if err != nil {
		p.logger.Errorf("failed to delete entry: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStorage) FindEntries(ctx context.Context, filter internal.EntryFilter) ([]internal.Entry, error) {
	where, args := filterClause(filter, func(n int) string { return fmt.Sprintf("$%d", n) })
	rows, err := p.pool.Query(ctx, `SELECT `+entryColumns+` FROM entries`+where+` ORDER BY created_at ASC`, args...)
	if err != nil {
		p.logger.Errorf("failed to query entries: %v", err)
		return nil, err
	}
	defer rows.Close()

	entries := make([]internal.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			p.logger.Errorf("failed to scan entry: %v", err)
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// filterClause renders a WHERE clause for filter; placeholder formats the nth bind parameter.
func filterClause(filter internal.EntryFilter, placeholder func(int) string) (string, []any) {
	var conds []string
	var args []any
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		conds = append(conds, "user_id = "+placeholder(len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, "created_at >= "+placeholder(len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conds = append(conds, "created_at <= "+placeholder(len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// --- InsightCacheRepository ---
func (p *PostgresStorage) GetInsightCache(ctx context.Context, ownerKey string) (*internal.InsightCacheRecord, error) {
	row := p.pool.QueryRow(ctx, `SELECT owner_key, latest_entry_at, window_start, window_end, created_at, payload FROM insight_cache WHERE owner_key = $1`, ownerKey)
	var r internal.InsightCacheRecord
	var payload []byte
	if err := row.Scan(&r.OwnerKey, &r.LatestEntryAt, &r.WindowStart, &r.WindowEnd, &r.CreatedAt, &payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		p.logger.Errorf("failed to get insight cache: %v", err)
		return nil, err
	}
	if err := decodePayload(payload, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *PostgresStorage) PutInsightCache(ctx context.Context, rec *internal.InsightCacheRecord) error {
	payload, err := encodePayload(rec)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `INSERT INTO insight_cache (owner_key, latest_entry_at, window_start, window_end, created_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (owner_key) DO UPDATE SET
			latest_entry_at = EXCLUDED.latest_entry_at,
			window_start = EXCLUDED.window_start,
			window_end = EXCLUDED.window_end,
			created_at = EXCLUDED.created_at,
			payload = EXCLUDED.payload`,
		rec.OwnerKey, rec.LatestEntryAt, rec.WindowStart, rec.WindowEnd, rec.CreatedAt, payload)
	if err != nil {
		p.logger.Errorf("failed to upsert insight cache: %v", err)
		return err
	}
	return nil
}

func encodePayload(rec *internal.InsightCacheRecord) ([]byte, error) {
	if rec.Payload == nil {
		return nil, nil
	}
	b, err := json.Marshal(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("storage: encode insight payload: %w", err)
	}
	return b, nil
}

func decodePayload(raw []byte, rec *internal.InsightCacheRecord) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var w internal.WeeklyInsight
	if err := json.Unmarshal(raw, &w); err != nil {
		return fmt.Errorf("storage: decode insight payload: %w", err)
	}
	rec.Payload = &w
	return nil
}

// --- Compile-time assertions ---
var _ Store = (*PostgresStorage)(nil)
