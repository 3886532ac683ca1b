// Package cache publishes the latest snapshot to Redis for other readers.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"polymarket-scraper/internal/model"
)

// ErrNotFound is returned when no snapshot has been published yet.
var ErrNotFound = errors.New("cache: snapshot not found")

const defaultTTL = 5 * time.Minute

// Options configure the Redis connection and key layout.
type Options struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// Summary is the JSON document stored under the latest key.
type Summary struct {
	SnapshotID           string               `json:"snapshot_id"`
	CapturedAt           time.Time            `json:"captured_at"`
	TotalEvents          int                  `json:"total_events"`
	TotalMarkets         int                  `json:"total_markets"`
	TotalVolume          float64              `json:"total_volume"`
	FetchDurationSeconds float64              `json:"fetch_duration_seconds"`
	Categories           []model.CategoryStat `json:"categories"`
}

// SnapshotCache writes snapshot summaries and a 24h-volume ranking.
//
// Key schema:
//
//	{prefix}:snapshot:latest         - JSON Summary
//	{prefix}:events:volume24hr       - sorted set of event IDs by 24h volume
//	{prefix}:event:{id}              - JSON Event
type SnapshotCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, opts Options, logger zerolog.Logger) (*SnapshotCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return newWithClient(rdb, opts, logger), nil
}

func newWithClient(rdb *redis.Client, opts Options, logger zerolog.Logger) *SnapshotCache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "polyscraper"
	}
	return &SnapshotCache{
		rdb:    rdb,
		ttl:    ttl,
		prefix: prefix,
		logger: logger.With().Str("component", "snapshot_cache").Logger(),
	}
}

func (c *SnapshotCache) latestKey() string         { return c.prefix + ":snapshot:latest" }
func (c *SnapshotCache) rankingKey() string        { return c.prefix + ":events:volume24hr" }
func (c *SnapshotCache) eventKey(id string) string { return c.prefix + ":event:" + id }

// Publish replaces the cached view with snap in one transaction.
func (c *SnapshotCache) Publish(ctx context.Context, snap model.Snapshot) error {
	summary, err := json.Marshal(NewSummary(snap))
	if err != nil {
		return fmt.Errorf("redis: marshal summary: %w", err)
	}

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, c.latestKey(), summary, c.ttl)
	pipe.Del(ctx, c.rankingKey())

	members := make([]redis.Z, 0, len(snap.Events))
	for _, e := range snap.Events {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("redis: marshal event %s: %w", e.ID, err)
		}
		pipe.Set(ctx, c.eventKey(e.ID), data, c.ttl)
		members = append(members, redis.Z{Score: e.Volume24hr, Member: e.ID})
	}
	if len(members) > 0 {
		pipe.ZAdd(ctx, c.rankingKey(), members...)
		pipe.Expire(ctx, c.rankingKey(), c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: publish snapshot %s: %w", snap.ID, err)
	}
	c.logger.Debug().Str("snapshot_id", snap.ID).Int("events", len(members)).Msg("snapshot published")
	return nil
}

// Latest returns the most recently published summary.
func (c *SnapshotCache) Latest(ctx context.Context) (Summary, error) {
	data, err := c.rdb.Get(ctx, c.latestKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Summary{}, ErrNotFound
		}
		return Summary{}, fmt.Errorf("redis: get latest: %w", err)
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return Summary{}, fmt.Errorf("redis: unmarshal summary: %w", err)
	}
	return s, nil
}

// TopEventIDs returns up to n event IDs ranked by 24h volume, highest first.
func (c *SnapshotCache) TopEventIDs(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	ids, err := c.rdb.ZRevRange(ctx, c.rankingKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: top events: %w", err)
	}
	return ids, nil
}

// Close closes the Redis connection.
func (c *SnapshotCache) Close() error {
	return c.rdb.Close()
}

// NewSummary condenses snap into the cached document.
func NewSummary(snap model.Snapshot) Summary {
	return Summary{
		SnapshotID:           snap.ID,
		CapturedAt:           snap.Timestamp,
		TotalEvents:          snap.TotalEvents,
		TotalMarkets:         snap.TotalMarkets,
		TotalVolume:          snap.TotalVolume,
		FetchDurationSeconds: snap.FetchDurationSeconds(),
		Categories:           snap.CategoryStats(),
	}
}
