package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"polymarket-scraper/internal/model"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertSnapshotSQL = `INSERT INTO snapshots (
        id,
        captured_at,
        total_events,
        total_markets,
        total_volume,
        fetch_duration_ms,
        categories
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    ON CONFLICT (id) DO NOTHING;`

	insertSnapshotEventSQL = `INSERT INTO snapshot_events (
        snapshot_id,
        position,
        event_id,
        title,
        category,
        num_markets,
        volume,
        volume_24hr,
        liquidity,
        polymarket_url
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
    )
    ON CONFLICT (snapshot_id, position) DO NOTHING;`

	listRecentSnapshotsSQL = `SELECT
        id,
        captured_at,
        total_events,
        total_markets,
        total_volume,
        fetch_duration_ms,
        categories,
        created_at
    FROM snapshots
    ORDER BY captured_at DESC
    LIMIT $1;`

	listSnapshotEventsSQL = `SELECT
        snapshot_id,
        position,
        event_id,
        title,
        category,
        num_markets,
        volume,
        volume_24hr,
        liquidity,
        polymarket_url
    FROM snapshot_events
    WHERE snapshot_id = $1
    ORDER BY position
    LIMIT $2;`

	countSnapshotsSQL = `SELECT COUNT(*) FROM snapshots;`

	deleteSnapshotsBeforeSQL = `DELETE FROM snapshots WHERE captured_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// SnapshotStore defines operations for the snapshot archive.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap model.Snapshot) error
	ListRecentSnapshots(ctx context.Context, limit int) ([]SnapshotRecord, error)
	ListSnapshotEvents(ctx context.Context, snapshotID string, limit int) ([]EventRecord, error)
	CountSnapshots(ctx context.Context) (int64, error)
	DeleteSnapshotsBefore(ctx context.Context, olderThan time.Time) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

var (
	_ SnapshotStore  = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)

// Store wraps the snapshot archive.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// best effort; the session lock dies with the connection anyway
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// SaveSnapshot archives the snapshot summary and its event rows in one
// transaction.
func (s *Store) SaveSnapshot(ctx context.Context, snap model.Snapshot) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	rec, events, err := NewSnapshotRecord(snap)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, insertSnapshotSQL,
		rec.ID,
		rec.CapturedAt,
		rec.TotalEvents,
		rec.TotalMarkets,
		rec.TotalVolume.String(),
		rec.FetchDuration.Milliseconds(),
		rec.Categories,
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	if len(events) > 0 {
		batch := &pgx.Batch{}
		for _, e := range events {
			batch.Queue(insertSnapshotEventSQL,
				e.SnapshotID,
				e.Position,
				e.EventID,
				e.Title,
				e.Category,
				e.NumMarkets,
				e.Volume.String(),
				e.Volume24hr.String(),
				e.Liquidity.String(),
				e.PolymarketURL,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert snapshot events: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// ListRecentSnapshots returns the newest archived snapshots first.
func (s *Store) ListRecentSnapshots(ctx context.Context, limit int) ([]SnapshotRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSnapshotsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent snapshots: %w", queryErr)
	}
	defer rows.Close()

	records := make([]SnapshotRecord, 0, limit)
	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// ListSnapshotEvents returns the archived events of one snapshot in order.
func (s *Store) ListSnapshotEvents(ctx context.Context, snapshotID string, limit int) ([]EventRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSnapshotEventsSQL, snapshotID, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list snapshot events: %w", queryErr)
	}
	defer rows.Close()

	events := make([]EventRecord, 0, limit)
	for rows.Next() {
		var rec EventRecord
		var volumeStr, volume24Str, liquidStr string
		if err := rows.Scan(
			&rec.SnapshotID,
			&rec.Position,
			&rec.EventID,
			&rec.Title,
			&rec.Category,
			&rec.NumMarkets,
			&volumeStr,
			&volume24Str,
			&liquidStr,
			&rec.PolymarketURL,
		); err != nil {
			return nil, err
		}

		var convErr error
		if rec.Volume, convErr = decimal.NewFromString(volumeStr); convErr != nil {
			return nil, fmt.Errorf("parse volume: %w", convErr)
		}
		if rec.Volume24hr, convErr = decimal.NewFromString(volume24Str); convErr != nil {
			return nil, fmt.Errorf("parse volume 24hr: %w", convErr)
		}
		if rec.Liquidity, convErr = decimal.NewFromString(liquidStr); convErr != nil {
			return nil, fmt.Errorf("parse liquidity: %w", convErr)
		}
		events = append(events, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

// CountSnapshots returns the number of archived snapshots.
func (s *Store) CountSnapshots(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if err := pool.QueryRow(ctx, countSnapshotsSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return count, nil
}

// DeleteSnapshotsBefore prunes the archive. Event rows cascade.
func (s *Store) DeleteSnapshotsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	tag, execErr := pool.Exec(ctx, deleteSnapshotsBeforeSQL, olderThan)
	if execErr != nil {
		return 0, fmt.Errorf("delete snapshots before: %w", execErr)
	}
	return tag.RowsAffected(), nil
}

func scanSnapshot(rows pgx.Rows) (SnapshotRecord, error) {
	var (
		rec        SnapshotRecord
		volumeStr  string
		durationMS int64
	)

	if err := rows.Scan(
		&rec.ID,
		&rec.CapturedAt,
		&rec.TotalEvents,
		&rec.TotalMarkets,
		&volumeStr,
		&durationMS,
		&rec.Categories,
		&rec.CreatedAt,
	); err != nil {
		return SnapshotRecord{}, err
	}

	volume, err := decimal.NewFromString(volumeStr)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("parse total volume: %w", err)
	}
	rec.TotalVolume = volume
	rec.FetchDuration = time.Duration(durationMS) * time.Millisecond
	return rec, nil
}
