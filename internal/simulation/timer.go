package simulation

import (
	"sync"
	"time"
)

// Countdown is a cancelable countdown owned by the controller. The
// authoritative time reference is the deadline computed at arm time;
// Remaining is a derived projection, safe to recompute at any moment.
//
// The expiry callback fires at most once, even if the countdown is
// stopped concurrently with the deadline passing.
type Countdown struct {
	startedAt time.Time
	deadline  time.Time

	stop     chan struct{}
	stopOnce sync.Once
	fireOnce sync.Once
}

// NewCountdown arms a countdown for d and invokes onExpire when it
// reaches zero. A nil onExpire makes expiry a no-op (break countdowns
// never auto-advance). Stop must be called when the owning section ends
// to prevent a stale firing.
func NewCountdown(d time.Duration, onExpire func()) *Countdown {
	c := &Countdown{
		startedAt: time.Now(),
		deadline:  time.Now().Add(d),
		stop:      make(chan struct{}),
	}

	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-timer.C:
			if onExpire != nil {
				c.fireOnce.Do(onExpire)
			}
		case <-c.stop:
		}
	}()

	return c
}

// Remaining returns the time left, clamped to zero.
func (c *Countdown) Remaining() time.Duration {
	remaining := time.Until(c.deadline)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Elapsed returns the time since the countdown was armed.
func (c *Countdown) Elapsed() time.Duration {
	return time.Since(c.startedAt)
}

// Expired reports whether the deadline has passed.
func (c *Countdown) Expired() bool {
	return c.Remaining() == 0
}

// Stop cancels the countdown. The expiry callback will not fire after
// Stop returns unless it was already in flight. Safe to call twice.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}
