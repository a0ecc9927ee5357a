package store

import (
	"sync"
	"time"
)

// coalescer collapses bursts of schedule calls into a single fire per tick:
// schedule-if-not-already-scheduled, flush when the timer lands.
type coalescer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	fire  func()
}

func newCoalescer(delay time.Duration, fire func()) *coalescer {
	return &coalescer{delay: delay, fire: fire}
}

func (c *coalescer) Schedule() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		return
	}

	c.timer = time.AfterFunc(c.delay, func() {
		c.mu.Lock()
		c.timer = nil
		c.mu.Unlock()

		c.fire()
	})
}

func (c *coalescer) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
