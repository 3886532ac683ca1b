package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"polymarket-scraper/internal/aggregate"
	"polymarket-scraper/internal/fetcher"
	"polymarket-scraper/internal/model"
	"polymarket-scraper/internal/scheduler"
	"polymarket-scraper/internal/storage"
)

// Options tune the service.
type Options struct {
	// LockKey is the postgres advisory lock guarding a cycle. Zero disables it.
	LockKey int64
	// Clock measures fetch duration; defaults to time.Now.
	Clock func() time.Time
}

// Service runs scrape cycles and hands each snapshot to the sinks.
type Service struct {
	source  fetcher.EventSource
	builder *aggregate.Builder
	sinks   []Sink
	locker  storage.AdvisoryLocker
	lockKey int64
	now     func() time.Time
	logger  zerolog.Logger
}

// New constructs the scrape service. locker may be nil.
func New(source fetcher.EventSource, builder *aggregate.Builder, sinks []Sink, locker storage.AdvisoryLocker, opts Options, logger zerolog.Logger) *Service {
	if builder == nil {
		builder = aggregate.NewBuilder(nil)
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		source:  source,
		builder: builder,
		sinks:   sinks,
		locker:  locker,
		lockKey: opts.LockKey,
		now:     now,
		logger:  logger.With().Str("component", "service").Logger(),
	}
}

// Run drives cycles on sched until ctx is cancelled.
func (s *Service) Run(ctx context.Context, sched *scheduler.Scheduler) error {
	if sched == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return sched.Run(ctx, s.Tick)
}

// Tick 执行单个抓取周期并分发快照。
func (s *Service) Tick(ctx context.Context, started time.Time) error {
	// an in-flight cycle is never interrupted by shutdown
	ctx = context.WithoutCancel(ctx)

	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("started", started).Msg("skip cycle because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	snap, err := s.RunCycle(ctx)
	if err != nil {
		return err
	}
	if err := s.Publish(ctx, snap); err != nil {
		s.logger.Warn().Err(err).Str("snapshot_id", snap.ID).Msg("one or more sinks failed")
	}
	return nil
}

// RunCycle fetches every active event and builds the snapshot. It runs to
// completion even if ctx is cancelled and converts panics into errors.
func (s *Service) RunCycle(ctx context.Context) (snap model.Snapshot, err error) {
	ctx = context.WithoutCancel(ctx)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("scrape cycle panicked")
			err = fmt.Errorf("scrape cycle panic: %v", r)
		}
	}()

	start := s.now()
	raw := s.source.FetchEvents(ctx)
	duration := s.now().Sub(start)

	snap = s.builder.BuildSnapshot(raw, duration)
	s.logger.Info().
		Str("snapshot_id", snap.ID).
		Int("events", snap.TotalEvents).
		Int("markets", snap.TotalMarkets).
		Float64("fetch_seconds", snap.FetchDurationSeconds()).
		Msg("scraped events")
	return snap, nil
}

// Publish hands snap to every sink concurrently. Each sink failure is logged;
// the first one is returned.
func (s *Service) Publish(ctx context.Context, snap model.Snapshot) error {
	if len(s.sinks) == 0 {
		return nil
	}

	var g errgroup.Group
	for _, sink := range s.sinks {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("sink %s panic: %v", sink.Name(), r)
				}
				if err != nil {
					s.logger.Error().Err(err).Str("sink", sink.Name()).Str("snapshot_id", snap.ID).Msg("sink failed")
				}
			}()
			return sink.Consume(ctx, snap)
		})
	}
	return g.Wait()
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
