package pipeline

import (
	"context"
	"time"
)

// Pacer injects a fixed delay after calls to an external service, keeping the
// pipeline inside third-party usage policies. A zero interval disables the
// delay entirely, which is how tests run the pipeline at full speed.
type Pacer struct {
	interval time.Duration
}

// NewPacer creates a pacer with the given post-call interval.
func NewPacer(interval time.Duration) *Pacer {
	if interval < 0 {
		interval = 0
	}
	return &Pacer{interval: interval}
}

// Pace blocks for the configured interval or until the context is done.
// Callers defer it around network attempts so the delay fires on failure
// paths too.
func (p *Pacer) Pace(ctx context.Context) {
	if p == nil || p.interval == 0 {
		return
	}
	t := time.NewTimer(p.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
