package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestTicksFor_RoundsUp(t *testing.T) {
	require.Equal(t, 2, TicksFor(90*time.Second, time.Minute))
	require.Equal(t, 1, TicksFor(30*time.Second, time.Minute))
	require.Equal(t, 0, TicksFor(0, time.Minute))
}

func TestScheduler_Run_InterleavesPurgeAndSyncOnCadence(t *testing.T) {
	var ingestCount, purgeCount, syncCount int

	cfg := Config{Tick: time.Millisecond, PurgeEvery: 2, SyncEvery: 3}
	ctx, cancel := context.WithCancel(context.Background())

	s := New(zerolog.Nop(), cfg, Stages{
		Ingest: func(ctx context.Context) error {
			ingestCount++
			if ingestCount == 6 {
				cancel()
			}
			return nil
		},
		Purge: func(ctx context.Context) error { purgeCount++; return nil },
		Sync:  func(ctx context.Context) error { syncCount++; return nil },
	})

	require.NoError(t, s.Run(ctx))
	require.Equal(t, 6, ingestCount)
	require.Equal(t, 3, purgeCount)
	require.Equal(t, 2, syncCount)
}

func TestScheduler_Run_ContinuesAfterStageError(t *testing.T) {
	var calls int
	ctx, cancel := context.WithCancel(context.Background())

	s := New(zerolog.Nop(), Config{Tick: time.Millisecond}, Stages{
		Ingest: func(ctx context.Context) error {
			calls++
			if calls == 2 {
				cancel()
			}
			return assertError
		},
	})

	require.NoError(t, s.Run(ctx))
	require.Equal(t, 2, calls)
}

var assertError = errString("ingest failed")

type errString string

func (e errString) Error() string { return string(e) }
