package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler periodically flushes the active attempt's in-memory answer
// map to the session store. Periodic failures are logged and retried on
// the next tick; the synchronous Flush path surfaces the error so that
// transition-critical callers can react.
type Scheduler struct {
	interval time.Duration
	flush    func(ctx context.Context) error
	log      zerolog.Logger

	// flushMu serializes periodic and explicit flushes so concurrent
	// writes for the same attempt cannot interleave.
	flushMu sync.Mutex

	cancel  context.CancelFunc
	done    chan struct{}
	startMu sync.Mutex
}

// NewScheduler creates a scheduler that invokes flush every interval.
func NewScheduler(interval time.Duration, flush func(ctx context.Context) error, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		interval: interval,
		flush:    flush,
		log:      log.With().Str("component", "autosave").Logger(),
	}
}

// Start launches the periodic flush loop. Idempotent: a second call
// while running is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				// Best-effort: retried on the next tick.
				s.log.Warn().Err(err).Msg("periodic autosave failed")
			}
		}
	}
}

// Flush synchronously persists the current answer map. Used directly at
// section completion, forced timeout and session abandonment, before the
// subsequent state transition is persisted.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	return s.flush(ctx)
}

// Stop cancels the periodic loop and waits for it to exit. Safe to call
// without a prior Start and safe to call twice.
func (s *Scheduler) Stop() {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}
