package generation

import (
	"context"
	"time"
)

// Pacer inserts the synthetic delay between emitted events. Pacing is a
// UX affordance for the browser's incremental rendering, not a
// correctness requirement, so it is injectable and tests run unpaced.
type Pacer interface {
	Pause(ctx context.Context)
}

// NewDelayPacer returns a pacer that sleeps for d between events,
// waking early when the context is cancelled.
func NewDelayPacer(d time.Duration) Pacer {
	return &delayPacer{delay: d}
}

// NopPacer emits without delay
var NopPacer Pacer = nopPacer{}

type delayPacer struct {
	delay time.Duration
}

func (p *delayPacer) Pause(ctx context.Context) {
	timer := time.NewTimer(p.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

type nopPacer struct{}

func (nopPacer) Pause(context.Context) {}
