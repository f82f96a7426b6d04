package exam

import (
	"context"
	"sync"
	"time"
)

// Countdown is the client-side time-box contract: remaining time is always
// recomputed from the authoritative start time, never from an accumulating
// local counter, so a paused or drifting client cannot stretch the box.
// It is advisory only; the submit path's grace-buffer check is the sole
// authority for lateness.
type Countdown struct {
	StartTime time.Time
	Duration  time.Duration

	fired sync.Once
}

func NewCountdown(start time.Time, duration time.Duration) *Countdown {
	return &Countdown{StartTime: start, Duration: duration}
}

// Remaining returns how much of the time box is left at now, floored at zero.
func (c *Countdown) Remaining(now time.Time) time.Duration {
	r := c.Duration - now.Sub(c.StartTime)
	if r < 0 {
		return 0
	}
	return r
}

func (c *Countdown) Expired(now time.Time) bool {
	return c.Remaining(now) == 0
}

// Watch ticks until the countdown expires, then invokes fire exactly once,
// even across concurrent Watch calls. Returns when fired or ctx is done.
func (c *Countdown) Watch(ctx context.Context, tick time.Duration, fire func()) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if c.Expired(now) {
				c.fired.Do(fire)
				return
			}
		}
	}
}
