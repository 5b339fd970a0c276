// Package display owns a scheduler and the image it is showing.
//
// The application edits its own model.Frame and publishes it with Show.
// Show copies the frame into a fresh immutable Grid and swaps a pointer, so
// Tick always reads one complete image and never waits on the writer.
package display

import (
	"sync/atomic"

	"github.com/coreman2200/tinymatrix/model"
	"github.com/coreman2200/tinymatrix/render"
)

// Display pairs a scheduler with the last published image.
type Display struct {
	sched *render.Scheduler
	front atomic.Pointer[model.Grid]
	ticks atomic.Uint64
}

// New returns a display showing a blank image.
func New(sched *render.Scheduler) *Display {
	d := &Display{sched: sched}
	d.front.Store(&model.Grid{})
	return d
}

// Show publishes a copy of f. Later edits to f are not visible until the
// next Show.
func (d *Display) Show(f *model.Frame) {
	g := f.Snapshot()
	d.front.Store(&g)
}

// ShowGrid publishes g.
func (d *Display) ShowGrid(g model.Grid) {
	d.front.Store(&g)
}

// Current returns a copy of the published image.
func (d *Display) Current() model.Grid {
	return *d.front.Load()
}

// Tick runs one scheduler step against the published image. It must only be
// called from one goroutine at a time.
func (d *Display) Tick() render.Activation {
	act := d.sched.Tick(d.front.Load())
	d.ticks.Add(1)
	return act
}

// Scheduler returns the underlying scheduler.
func (d *Display) Scheduler() *render.Scheduler { return d.sched }

// Stats counts work done by Tick.
type Stats struct {
	Ticks  uint64 `json:"ticks"`
	Cycles uint64 `json:"cycles"`
}

// Stats reports the ticks served so far and the whole cycles they make up.
func (d *Display) Stats() Stats {
	n := d.ticks.Load()
	return Stats{Ticks: n, Cycles: n / uint64(d.sched.CycleLength())}
}
