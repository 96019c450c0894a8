package stack

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Scheduler drives a single stack's Timeout() from one clock, rather than
// letting every layer run its own timer — grounded on the reference
// bridge's poll loop, which measures time since the stack's last activity
// once per iteration and calls stack.Timeout() when it has been idle past
// the configured duration.
type Scheduler struct {
	stack   Layer
	timeout time.Duration
	tick    time.Duration
}

// NewScheduler constructs a scheduler for stack. timeout is the idle
// duration after which Timeout() fires; tick is how often the scheduler
// checks (should be well under timeout for timely detection).
func NewScheduler(s Layer, timeout, tick time.Duration) *Scheduler {
	return &Scheduler{stack: s, timeout: timeout, tick: tick}
}

// Run blocks, checking stack activity every tick, until ctx is cancelled.
func (sch *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(sch.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining := sch.stack.LastActivity().Add(sch.timeout).Sub(time.Now())
			if remaining > 0 {
				continue
			}
			log.Debug().Dur("idle_for", sch.timeout-remaining).Msg("stack: timeout fired")
			sch.stack.Timeout()
		}
	}
}
