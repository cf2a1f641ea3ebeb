package simulation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSchedulerPeriodicFlush(t *testing.T) {
	var flushes atomic.Int32
	s := NewScheduler(10*time.Millisecond, func(context.Context) error {
		flushes.Add(1)
		return nil
	}, zerolog.Nop())

	s.Start(context.Background())
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for flushes.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("only %d periodic flushes, want at least 2", flushes.Load())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	var flushes atomic.Int32
	s := NewScheduler(time.Hour, func(context.Context) error {
		flushes.Add(1)
		return nil
	}, zerolog.Nop())

	s.Start(context.Background())
	s.Start(context.Background())
	s.Stop()

	if got := flushes.Load(); got != 0 {
		t.Errorf("flushes = %d before any tick, want 0", got)
	}
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	s := NewScheduler(time.Hour, func(context.Context) error { return nil }, zerolog.Nop())
	s.Stop()
	s.Stop()
}

func TestSchedulerRestart(t *testing.T) {
	var flushes atomic.Int32
	s := NewScheduler(10*time.Millisecond, func(context.Context) error {
		flushes.Add(1)
		return nil
	}, zerolog.Nop())

	s.Start(context.Background())
	s.Stop()
	settled := flushes.Load()

	s.Start(context.Background())
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for flushes.Load() <= settled {
		select {
		case <-deadline:
			t.Fatal("scheduler did not flush after restart")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestSchedulerFlushSurfacesError(t *testing.T) {
	wantErr := errors.New("store down")
	s := NewScheduler(time.Hour, func(context.Context) error { return wantErr }, zerolog.Nop())

	if err := s.Flush(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Flush() error = %v, want %v", err, wantErr)
	}
}
