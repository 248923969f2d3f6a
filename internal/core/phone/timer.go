package phone

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Timer counts whole seconds of an active call and reports each tick
// together with the start time of the run that produced it. onTick is
// called with the timer locked and must not block.
type Timer struct {
	clock  clock.Clock
	onTick func(startedAt time.Time, elapsed time.Duration)

	mu        sync.Mutex
	startedAt time.Time
	ticker    *clock.Ticker
	done      chan struct{}
}

func NewTimer(c clock.Clock, onTick func(startedAt time.Time, elapsed time.Duration)) *Timer {
	if c == nil {
		c = clock.New()
	}
	return &Timer{clock: c, onTick: onTick}
}

// Start restarts the counter from zero.
func (t *Timer) Start() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()

	t.startedAt = t.clock.Now()
	t.ticker = t.clock.Ticker(time.Second)
	t.done = make(chan struct{})
	go t.loop(t.ticker, t.done)
	return t.startedAt
}

// Stop halts the counter and resets it to zero.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Timer) stopLocked() {
	if t.ticker == nil {
		return
	}
	t.ticker.Stop()
	close(t.done)
	t.ticker = nil
	t.done = nil
	t.startedAt = time.Time{}
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticker != nil
}

func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsedLocked()
}

func (t *Timer) elapsedLocked() time.Duration {
	if t.startedAt.IsZero() {
		return 0
	}
	return t.clock.Since(t.startedAt).Truncate(time.Second)
}

func (t *Timer) loop(ticker *clock.Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.done != done {
				t.mu.Unlock()
				return
			}
			if t.onTick != nil {
				t.onTick(t.startedAt, t.elapsedLocked())
			}
			t.mu.Unlock()
		}
	}
}
