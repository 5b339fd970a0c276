// Package layout describes how the visible image is wired into matrix rows
// and columns.
//
// The matrix rows and columns need not match the visible arrangement: the
// micro:bit v1, for example, wires its 5×5 LEDs as 3 rows of 9 columns. At
// most one matrix row is energised at a time, so a driver scans the rows in
// turn, setting the column lines from that row's mask.
package layout

import (
	"errors"
	"fmt"
	"sort"

	"github.com/coreman2200/tinymatrix/model"
	"github.com/coreman2200/tinymatrix/render"
)

// MaxCols is the widest matrix row a column mask can describe.
const MaxCols = 16

// ErrInvalid is returned for a malformed wiring table.
var ErrInvalid = errors.New("layout: invalid wiring")

// Cell is a position in the wired matrix.
type Cell struct {
	Row, Col int
}

// Table maps each image pixel, indexed [row][col], to its matrix cell.
type Table [model.Rows][model.Cols]Cell

// Layout is a validated wiring of the image onto a matrix.
type Layout struct {
	name  string
	rows  int
	cols  int
	table Table
}

// New validates table against a rows×cols matrix. Every cell must be in
// range and no two pixels may share a cell.
func New(name string, rows, cols int, table Table) (*Layout, error) {
	if rows <= 0 || cols <= 0 || cols > MaxCols {
		return nil, fmt.Errorf("%w: %d×%d matrix (at most %d columns)", ErrInvalid, rows, cols, MaxCols)
	}
	seen := make(map[Cell]bool)
	for r := range table {
		for c, cell := range table[r] {
			if cell.Row < 0 || cell.Row >= rows || cell.Col < 0 || cell.Col >= cols {
				return nil, fmt.Errorf("%w: pixel (%d, %d) -> %v outside %d×%d", ErrInvalid, r, c, cell, rows, cols)
			}
			if seen[cell] {
				return nil, fmt.Errorf("%w: matrix cell %v used twice", ErrInvalid, cell)
			}
			seen[cell] = true
		}
	}
	return &Layout{name: name, rows: rows, cols: cols, table: table}, nil
}

// Direct wires each pixel to the same matrix row and column.
func Direct() *Layout {
	var t Table
	for r := range t {
		for c := range t[r] {
			t[r][c] = Cell{r, c}
		}
	}
	l, _ := New("direct", model.Rows, model.Cols, t)
	return l
}

// MicrobitV1 is the micro:bit v1 wiring: 3 matrix rows of 9 columns.
func MicrobitV1() *Layout {
	t := Table{
		{{0, 0}, {1, 3}, {0, 1}, {1, 4}, {0, 2}},
		{{2, 3}, {2, 4}, {2, 5}, {2, 6}, {2, 7}},
		{{1, 1}, {0, 8}, {1, 2}, {2, 8}, {1, 0}},
		{{0, 7}, {0, 6}, {0, 5}, {0, 4}, {0, 3}},
		{{2, 2}, {1, 6}, {2, 0}, {1, 5}, {2, 1}},
	}
	l, _ := New("microbit-v1", 3, 9, t)
	return l
}

var builtins = map[string]func() *Layout{
	"direct":      Direct,
	"microbit-v1": MicrobitV1,
}

// ByName returns a built-in layout.
func ByName(name string) (*Layout, error) {
	f, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("layout: unknown layout %q (have %v)", name, Names())
	}
	return f(), nil
}

// Names lists the built-in layouts.
func Names() []string {
	out := make([]string, 0, len(builtins))
	for k := range builtins {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (l *Layout) Name() string { return l.name }
func (l *Layout) Rows() int    { return l.rows }
func (l *Layout) Cols() int    { return l.cols }

// Cell returns the matrix cell wired to image pixel (row, col).
func (l *Layout) Cell(row, col int) Cell {
	return l.table[row][col]
}

// RowMasks writes one column bitmask per matrix row into dst (bit c set =
// column c lit) and returns dst[:Rows()]. dst must hold at least Rows()
// entries.
func (l *Layout) RowMasks(act *render.Activation, dst []uint16) []uint16 {
	dst = dst[:l.rows]
	for i := range dst {
		dst[i] = 0
	}
	for r := range act {
		for c, on := range act[r] {
			if on {
				cell := l.table[r][c]
				dst[cell.Row] |= 1 << cell.Col
			}
		}
	}
	return dst
}
