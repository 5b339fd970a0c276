package led

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/coreman2200/tinymatrix/layout"
	"github.com/coreman2200/tinymatrix/render"
)

// GPIO drives the matrix lines through periph.io pins.
type GPIO struct {
	mu   sync.Mutex
	rows []gpio.PinOut
	cols []gpio.PinOut
	scan scanner
}

// GPIOOpts configures NewGPIO.
type GPIOOpts struct {
	ActiveLowCols bool
	// Dwell is how long each matrix row stays asserted. Zero switches rows
	// as fast as the pins allow.
	Dwell time.Duration
}

// NewGPIO takes one pin per matrix row and column of l, in order, and
// turns every LED off.
func NewGPIO(l *layout.Layout, rows, cols []gpio.PinOut, opts GPIOOpts) (*GPIO, error) {
	if len(rows) != l.Rows() || len(cols) != l.Cols() {
		return nil, fmt.Errorf("led: layout %s needs %d row and %d column pins, got %d and %d",
			l.Name(), l.Rows(), l.Cols(), len(rows), len(cols))
	}
	g := &GPIO{rows: rows, cols: cols, scan: newScanner(l, opts.ActiveLowCols, opts.Dwell)}
	if err := g.scan.blank(g); err != nil {
		return nil, err
	}
	return g, nil
}

// PinsByName resolves pin names (e.g. "GPIO13") through the periph.io
// registry. host.Init must have run first.
func PinsByName(names []string) ([]gpio.PinOut, error) {
	out := make([]gpio.PinOut, 0, len(names))
	for _, n := range names {
		p := gpioreg.ByName(n)
		if p == nil {
			return nil, fmt.Errorf("led: no gpio pin named %q", n)
		}
		out = append(out, p)
	}
	return out, nil
}

func (g *GPIO) row(i int, high bool) error { return g.rows[i].Out(gpio.Level(high)) }
func (g *GPIO) col(i int, high bool) error { return g.cols[i].Out(gpio.Level(high)) }

func (g *GPIO) Write(act render.Activation) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scan.scan(&act, g)
}

func (g *GPIO) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scan.blank(g)
}
