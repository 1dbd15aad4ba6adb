// Package scheduler implements C7: the single-threaded cooperative tick
// loop interleaving ingestion, purge, and sync (spec.md §4.7, §5). Every
// suspension point is the tick boundary or a blocking call inside one
// of the injected stage functions — nothing inside a tick yields.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SyncMinInterval is the floor SYNC_INTERVAL is clamped to, matching
// the original daemon's SYNC_MIN_INTERVAL constant.
const SyncMinInterval = 3 * time.Minute

// Stages are the injected callbacks the loop drives every tick (or on
// a cadence derived from the base tick).
type Stages struct {
	// Ingest runs every tick: C6 -> classify -> C2 -> C4/C5.
	Ingest func(ctx context.Context) error
	// Purge runs every PurgeEvery ticks, when PurgeEvery > 0.
	Purge func(ctx context.Context) error
	// Sync runs every SyncEvery ticks, when SyncEvery > 0.
	Sync func(ctx context.Context) error
}

// Config holds the tick cadences, already resolved from configuration
// durations to tick counts.
type Config struct {
	Tick       time.Duration
	PurgeEvery int // 0 disables purge
	SyncEvery  int // 0 disables sync
}

// Scheduler drives Stages on the cadences Config describes.
type Scheduler struct {
	logger zerolog.Logger
	cfg    Config
	stages Stages

	tickCount  int
	purgeCount int
	syncCount  int
}

func New(logger zerolog.Logger, cfg Config, stages Stages) *Scheduler {
	return &Scheduler{logger: logger, cfg: cfg, stages: stages}
}

// TicksFor converts a cadence duration into a tick count, at least 1,
// rounding up (spec.md §4.7: "⌈PURGE_INTERVAL / DAEMON_SLEEP⌉"). A
// non-positive cadence or tick yields 0, which disables the stage.
func TicksFor(cadence, tick time.Duration) int {
	if cadence <= 0 || tick <= 0 {
		return 0
	}
	n := int(cadence / tick)
	if cadence%tick != 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Run drives the loop until ctx is cancelled. The loop only checks for
// cancellation at tick boundaries, so the current tick always
// completes (spec.md §5 "Cancellation & timeouts").
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info().Msg("scheduler stopping: context cancelled")
			return nil
		}

		if err := s.stages.Ingest(ctx); err != nil {
			s.logger.Error().Err(err).Msg("ingestion tick failed")
		}
		s.tickCount++

		if s.cfg.PurgeEvery > 0 && s.stages.Purge != nil {
			s.purgeCount++
			if s.purgeCount >= s.cfg.PurgeEvery {
				s.purgeCount = 0
				if err := s.stages.Purge(ctx); err != nil {
					s.logger.Error().Err(err).Msg("purge tick failed")
				}
			}
		}

		if s.cfg.SyncEvery > 0 && s.stages.Sync != nil {
			s.syncCount++
			if s.syncCount >= s.cfg.SyncEvery {
				s.syncCount = 0
				if err := s.stages.Sync(ctx); err != nil {
					s.logger.Error().Err(err).Msg("sync tick failed")
				}
			}
		}

		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopping: context cancelled")
			return nil
		case <-time.After(s.cfg.Tick):
		}
	}
}
