package led

import (
	"fmt"
	"time"

	"github.com/coreman2200/tinymatrix/layout"
	"github.com/coreman2200/tinymatrix/render"
)

// lines drives the electrical level of matrix row and column lines.
type lines interface {
	row(i int, high bool) error
	col(i int, high bool) error
}

// scanner multiplexes one activation across the matrix rows. Rows are
// active-high; columns are active-high unless activeLowCols is set, as on
// the micro:bit where a column is sunk to light its LED.
//
// Every row gets one equal slot per Write, so row duty does not depend on
// the scheduler's cycle length.
type scanner struct {
	layout        *layout.Layout
	activeLowCols bool
	dwell         time.Duration
	masks         []uint16
}

func newScanner(l *layout.Layout, activeLowCols bool, dwell time.Duration) scanner {
	return scanner{
		layout:        l,
		activeLowCols: activeLowCols,
		dwell:         dwell,
		masks:         make([]uint16, l.Rows()),
	}
}

func (s *scanner) scan(act *render.Activation, out lines) error {
	masks := s.layout.RowMasks(act, s.masks)
	for r, m := range masks {
		for c := 0; c < s.layout.Cols(); c++ {
			lit := m&(1<<c) != 0
			if err := out.col(c, lit != s.activeLowCols); err != nil {
				return fmt.Errorf("led: col %d: %w", c, err)
			}
		}
		if err := out.row(r, true); err != nil {
			return fmt.Errorf("led: row %d: %w", r, err)
		}
		if s.dwell > 0 {
			time.Sleep(s.dwell)
		}
		if err := out.row(r, false); err != nil {
			return fmt.Errorf("led: row %d: %w", r, err)
		}
	}
	return nil
}

// blank releases every row and turns every column off.
func (s *scanner) blank(out lines) error {
	for r := 0; r < s.layout.Rows(); r++ {
		if err := out.row(r, false); err != nil {
			return fmt.Errorf("led: row %d: %w", r, err)
		}
	}
	for c := 0; c < s.layout.Cols(); c++ {
		if err := out.col(c, s.activeLowCols); err != nil {
			return fmt.Errorf("led: col %d: %w", c, err)
		}
	}
	return nil
}
