package app

import (
	"context"
	"time"

	diag "github.com/coreman2200/tinymatrix/internal/diagnostics"
	"github.com/coreman2200/tinymatrix/internal/sequence"
	"github.com/coreman2200/tinymatrix/model"
)

// Run drives the timeline at fps until ctx is done.
func (c *Core) Run(ctx context.Context, fps int) {
	if fps <= 0 {
		fps = 60
	}
	dt := time.Second / time.Duration(fps)
	ticker := time.NewTicker(dt)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Step(dt)
		}
	}
}

// Step advances the sequencer or pattern by dt and publishes the result.
func (c *Core) Step(dt time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.mode {
	case Program:
		c.Seq.With(func(p *sequence.Player) { p.Tick(dt.Seconds()) })
		c.composeLocked()
	case Pattern:
		c.patternLeft -= dt
		if c.patternLeft <= 0 {
			c.stepPatternLocked()
		}
	}
}

// composeLocked crossfades the current and armed frames, scales by the
// clip gain, and shows the result.
func (c *Core) composeLocked() {
	if c.cur == nil {
		return
	}
	next := c.next
	if next == nil {
		next = c.cur
	}
	model.Mix(c.out, c.cur, next, c.alpha)
	if c.gain < 1 {
		model.Mix(c.out, c.blank, c.out, c.gain)
	}
	c.Display.Show(c.out)
}

func (c *Core) stepPatternLocked() {
	if c.runner.Step(c.out) {
		c.patternLeft = c.PatternStep
		c.Display.Show(c.out)
		return
	}
	kind := c.runner.Kind()
	c.toManualLocked()
	if c.onEvent != nil {
		c.onEvent(diag.Diagnostic{
			Severity: diag.Info, Code: "TEST.DONE", Summary: "Test complete",
			Evidence: map[string]any{"pattern": string(kind)},
		})
	}
}
