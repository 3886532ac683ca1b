package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc runs one cycle. started is the UTC instant the cycle began.
type TickFunc func(ctx context.Context, started time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval      time.Duration
	ErrorCooldown time.Duration
	StartupDelay  time.Duration
}

// Scheduler runs cycles back to back. The interval is measured from the end
// of one cycle to the start of the next, so cycles never overlap.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	if opts.ErrorCooldown < 0 {
		opts.ErrorCooldown = 0
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking tick until ctx is cancelled. A failed tick is logged
// and followed by ErrorCooldown instead of the regular interval.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if err := s.wait(ctx, s.opts.StartupDelay); err != nil {
		return err
	}

	for cycle := 1; ; cycle++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		started := time.Now().UTC()
		s.logger.Debug().Int("cycle", cycle).Msg("executing scheduled cycle")

		delay := s.opts.Interval
		if err := tick(ctx, started); err != nil {
			s.logger.Error().Err(err).Int("cycle", cycle).Dur("cooldown", s.opts.ErrorCooldown).
				Msg("cycle failed")
			delay = s.opts.ErrorCooldown
		} else {
			s.logger.Debug().Int("cycle", cycle).Dur("elapsed", time.Since(started)).
				Dur("next_in", delay).Msg("cycle complete")
		}

		if err := s.wait(ctx, delay); err != nil {
			return err
		}
	}
}

func (s *Scheduler) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
