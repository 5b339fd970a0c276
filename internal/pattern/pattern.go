// Package pattern generates calibration images for checking wiring and
// greyscale response.
package pattern

import (
	"fmt"

	"github.com/coreman2200/tinymatrix/model"
)

type Kind string

const (
	None       Kind = ""
	IndexSweep Kind = "index_sweep" // one pixel at full level walks the grid
	LevelRamp  Kind = "level_ramp"  // every level at once, shifted each step
	Flash      Kind = "flash"       // whole grid on, off
)

// Kinds lists the runnable patterns.
var Kinds = []Kind{IndexSweep, LevelRamp, Flash}

type Plan struct {
	Kind Kind
	// Repeat runs the pattern this many times; 0 means once.
	Repeat int
}

// Parse maps a pattern name to its Kind.
func Parse(name string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == name {
			return k, nil
		}
	}
	return None, fmt.Errorf("pattern: unknown pattern %q", name)
}

type Runner struct {
	plan Plan
	step int
}

func NewRunner(plan Plan) *Runner { return &Runner{plan: plan} }
func (r *Runner) Kind() Kind      { return r.plan.Kind }

// Steps returns the number of images in one pass.
func (k Kind) Steps() int {
	switch k {
	case IndexSweep:
		return model.Rows * model.Cols
	case LevelRamp:
		return model.Brightnesses
	case Flash:
		return 2
	default:
		return 0
	}
}

// Step draws the next image into f; returns false when complete.
func (r *Runner) Step(f *model.Frame) bool {
	n := r.plan.Kind.Steps()
	if n == 0 || r.step >= n*(r.plan.Repeat+1) {
		return false
	}
	i := r.step % n
	g := model.Grid{}

	switch r.plan.Kind {
	case IndexSweep:
		g[i/model.Cols][i%model.Cols] = model.MaxLevel
	case LevelRamp:
		for p := 0; p < model.Rows*model.Cols; p++ {
			g[p/model.Cols][p%model.Cols] = model.Level((p + i) % model.Brightnesses)
		}
	case Flash:
		if i == 0 {
			for row := range g {
				for c := range g[row] {
					g[row][c] = model.MaxLevel
				}
			}
		}
	}
	f.SetFrom(&g)
	r.step++
	return true
}
