package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"chainwatch/internal/metrics"
)

// TickFunc is invoked once per interval.
type TickFunc func(ctx context.Context, tick time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval     time.Duration
	AlignToStart bool
	StartupDelay time.Duration
	// RunImmediately fires the first tick on start instead of waiting a
	// full interval.
	RunImmediately bool
}

// Scheduler drives the monitoring tick loop.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking the tick function at each interval until ctx is
// cancelled. Tick failures are logged and the loop continues: one bad tick
// never carries over into the next.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		if err := waitFor(ctx, s.opts.StartupDelay); err != nil {
			return err
		}
	}

	if s.opts.RunImmediately {
		s.executeTick(ctx, time.Now().UTC(), tick)
	}

	next := s.nextTick(time.Now().UTC())
	for {
		delay := time.Until(next)
		if delay < 0 {
			next = s.nextTick(time.Now().UTC())
			delay = time.Until(next)
		}

		s.logger.Debug().Time("next_tick", next).Msg("waiting for next tick")
		if err := waitFor(ctx, delay); err != nil {
			return err
		}

		s.executeTick(ctx, next, tick)
		next = next.Add(s.opts.Interval)
	}
}

func (s *Scheduler) executeTick(ctx context.Context, tick time.Time, fn TickFunc) {
	s.logger.Info().Time("tick", tick).Msg("executing scheduled tick")

	if err := s.safeTick(ctx, tick, fn); err != nil {
		metrics.TicksTotal.WithLabelValues("failure").Inc()
		s.logger.Error().Err(err).Time("tick", tick).Msg("tick execution failed")
		return
	}
	metrics.TicksTotal.WithLabelValues("success").Inc()
}

// safeTick contains panics at the tick boundary so a programming error in
// one tick cannot terminate the loop.
func (s *Scheduler) safeTick(ctx context.Context, tick time.Time, fn TickFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panicked: %v", r)
		}
	}()
	return fn(ctx, tick)
}

func (s *Scheduler) nextTick(now time.Time) time.Time {
	if !s.opts.AlignToStart {
		return now.Add(s.opts.Interval)
	}
	aligned := now.Truncate(s.opts.Interval)
	if !aligned.After(now) {
		aligned = aligned.Add(s.opts.Interval)
	}
	return aligned
}

func waitFor(ctx context.Context, d time.Duration) error {
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
