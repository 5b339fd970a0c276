// Package render turns a greyscale grid into the on/off pattern to show on
// each timer tick.
//
// The repeat cycle is split into sub-frames of unequal length (see Weights).
// A pixel is lit during a sub-frame when its level's decomposition uses that
// sub-frame, so over one full cycle a pixel at level L is lit for exactly L
// ticks: level 0 is never lit and the maximum level is always lit.
package render

import (
	"github.com/coreman2200/tinymatrix/model"
)

// Activation is the lit/unlit decision for every pixel on one tick,
// indexed [row][col].
type Activation [model.Rows][model.Cols]bool

// Lit reports whether the pixel at (row, col) is lit. Out of range is unlit.
func (a *Activation) Lit(row, col int) bool {
	if row < 0 || row >= model.Rows || col < 0 || col >= model.Cols {
		return false
	}
	return a[row][col]
}

// Count returns the number of lit pixels.
func (a *Activation) Count() int {
	n := 0
	for r := range a {
		for _, on := range a[r] {
			if on {
				n++
			}
		}
	}
	return n
}

// Scheduler is the multiplexing state machine. It is driven by a single
// caller, typically a timer interrupt or the display loop, and is not safe
// for concurrent Tick calls.
type Scheduler struct {
	maxLevel int
	weights  []int
	masks    []uint16 // level -> lit planes
	planeAt  []uint8  // cycle position -> plane
	pos      int
}

// New builds the lookup tables for levels 0..maxLevel.
func New(maxLevel int) (*Scheduler, error) {
	w, err := Weights(maxLevel)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		maxLevel: maxLevel,
		weights:  w,
		masks:    planeMasks(w, maxLevel),
		planeAt:  make([]uint8, 0, maxLevel),
	}
	for plane, n := range w {
		for i := 0; i < n; i++ {
			s.planeAt = append(s.planeAt, uint8(plane))
		}
	}
	return s, nil
}

// NewDefault returns a scheduler for the full model level range.
func NewDefault() *Scheduler {
	s, err := New(int(model.MaxLevel))
	if err != nil {
		panic(err)
	}
	return s
}

// Tick returns the pixels to light at the current cycle position, then
// advances the position, wrapping to 0 after the last one.
//
// Levels above the scheduler's max level are shown at the max level. A nil
// grid shows nothing. Tick does not allocate.
func (s *Scheduler) Tick(g *model.Grid) Activation {
	var act Activation
	if g != nil {
		bit := uint16(1) << s.planeAt[s.pos]
		for r := range g {
			for c, l := range g[r] {
				lvl := int(l)
				if lvl > s.maxLevel {
					lvl = s.maxLevel
				}
				act[r][c] = s.masks[lvl]&bit != 0
			}
		}
	}
	s.pos++
	if s.pos == len(s.planeAt) {
		s.pos = 0
	}
	return act
}

// Position returns the cycle position the next Tick will show.
func (s *Scheduler) Position() int { return s.pos }

// CycleLength returns the number of ticks in one full cycle.
func (s *Scheduler) CycleLength() int { return len(s.planeAt) }

// MaxLevel returns the brightest level the scheduler encodes.
func (s *Scheduler) MaxLevel() int { return s.maxLevel }

// Weights returns a copy of the sub-frame durations.
func (s *Scheduler) Weights() []int {
	return append([]int(nil), s.weights...)
}

// PlaneAt returns the sub-frame shown at cycle position pos.
func (s *Scheduler) PlaneAt(pos int) int {
	return int(s.planeAt[pos%len(s.planeAt)])
}

// LitAt reports whether a pixel at level would be lit at cycle position pos.
func (s *Scheduler) LitAt(level, pos int) bool {
	if level < 0 {
		return false
	}
	if level > s.maxLevel {
		level = s.maxLevel
	}
	return s.masks[level]&(1<<s.planeAt[pos%len(s.planeAt)]) != 0
}

// LitCount returns the number of positions per cycle a level is lit for.
func (s *Scheduler) LitCount(level int) int {
	n := 0
	for pos := range s.planeAt {
		if s.LitAt(level, pos) {
			n++
		}
	}
	return n
}

// Duty returns the fraction of the cycle a level is lit for.
func (s *Scheduler) Duty(level int) float64 {
	return float64(s.LitCount(level)) / float64(len(s.planeAt))
}
