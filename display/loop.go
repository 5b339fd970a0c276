package display

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/tinymatrix/render"
)

// Sink receives the activation for every tick. led.Driver satisfies it.
type Sink interface {
	Write(render.Activation) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(render.Activation) error

func (f SinkFunc) Write(a render.Activation) error { return f(a) }

// Run ticks the display every period and hands each activation to sink
// until ctx is done. It stands in for a hardware timer interrupt; on a busy
// host ticks arrive late but are never skipped.
//
// Sink errors do not stop the loop. At most one is logged per cycle.
func (d *Display) Run(ctx context.Context, period time.Duration, sink Sink) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	cycle := d.sched.CycleLength()
	var (
		failed  int
		lastErr error
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := sink.Write(d.Tick()); err != nil {
				failed++
				lastErr = err
			}
			if d.sched.Position() == 0 && failed > 0 {
				log.Warn().Err(lastErr).Int("failed", failed).Int("cycle", cycle).Msg("display sink errors")
				failed = 0
			}
		}
	}
}
