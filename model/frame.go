// Package model holds the greyscale image a display should show.
//
// A Frame is a fixed Rows×Cols grid of brightness levels. Every value it
// stores is within [0, MaxLevel]: the mutation API rejects anything else
// and leaves the frame unchanged. A Frame is not safe for concurrent use;
// hand a Snapshot to the code that reads it from another goroutine.
package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrOutOfRange is returned when a level exceeds MaxLevel or is negative.
	ErrOutOfRange = errors.New("model: brightness level out of range")
	// ErrIndexOutOfBounds is returned for a row or column outside the grid.
	ErrIndexOutOfBounds = errors.New("model: pixel index out of bounds")
)

// Grid is a raw Rows×Cols array of levels, indexed [row][col].
type Grid [Rows][Cols]Level

// BrightnessAt implements Render. Out-of-range coordinates read as 0.
func (g *Grid) BrightnessAt(x, y int) Level {
	if !inBounds(y, x) {
		return 0
	}
	return g[y][x]
}

// Render is anything image-like that can report a brightness per LED.
//
// x is the column and y the row; (0, 0) is the top left.
type Render interface {
	BrightnessAt(x, y int) Level
}

// Frame is a validated greyscale image.
type Frame struct {
	grid Grid
}

// NewFrame returns a frame with every pixel at level 0.
func NewFrame() *Frame {
	return &Frame{}
}

// FrameOf builds a frame from Rows rows of Cols levels each.
func FrameOf(rows [][]int) (*Frame, error) {
	f := NewFrame()
	if err := f.SetAll(rows); err != nil {
		return nil, err
	}
	return f, nil
}

// Set overwrites a single pixel.
func (f *Frame) Set(row, col, level int) error {
	if !inBounds(row, col) {
		return fmt.Errorf("%w: (%d, %d)", ErrIndexOutOfBounds, row, col)
	}
	l, err := checkLevel(level)
	if err != nil {
		return err
	}
	f.grid[row][col] = l
	return nil
}

// Get returns the stored level of a pixel.
func (f *Frame) Get(row, col int) (Level, error) {
	if !inBounds(row, col) {
		return 0, fmt.Errorf("%w: (%d, %d)", ErrIndexOutOfBounds, row, col)
	}
	return f.grid[row][col], nil
}

// SetAll replaces the whole image. rows must be exactly Rows×Cols.
// Nothing is written unless every cell validates.
func (f *Frame) SetAll(rows [][]int) error {
	if len(rows) != Rows {
		return fmt.Errorf("%w: got %d rows, want %d", ErrIndexOutOfBounds, len(rows), Rows)
	}
	var g Grid
	for r, line := range rows {
		if len(line) != Cols {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrIndexOutOfBounds, r, len(line), Cols)
		}
		for c, v := range line {
			l, err := checkLevel(v)
			if err != nil {
				return fmt.Errorf("pixel (%d, %d): %w", r, c, err)
			}
			g[r][c] = l
		}
	}
	f.grid = g
	return nil
}

// SetGrid replaces the whole image from a Grid, rejecting invalid levels.
func (f *Frame) SetGrid(g Grid) error {
	for r := range g {
		for c, l := range g[r] {
			if !l.Valid() {
				return fmt.Errorf("pixel (%d, %d): %w: %d", r, c, ErrOutOfRange, l)
			}
		}
	}
	f.grid = g
	return nil
}

// SetFrom copies any Render source into the frame. Values above MaxLevel
// are clamped rather than rejected.
func (f *Frame) SetFrom(src Render) {
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			f.grid[r][c] = src.BrightnessAt(c, r).Clamp()
		}
	}
}

// Fill sets every pixel to level.
func (f *Frame) Fill(level int) error {
	l, err := checkLevel(level)
	if err != nil {
		return err
	}
	for r := range f.grid {
		for c := range f.grid[r] {
			f.grid[r][c] = l
		}
	}
	return nil
}

// Clear sets every pixel to level 0.
func (f *Frame) Clear() {
	f.grid = Grid{}
}

// Snapshot returns a copy of the grid.
func (f *Frame) Snapshot() Grid {
	return f.grid
}

// BrightnessAt implements Render.
func (f *Frame) BrightnessAt(x, y int) Level {
	return f.grid.BrightnessAt(x, y)
}

// Rows returns the levels as nested slices, the shape SetAll accepts.
func (f *Frame) Rows() [][]int {
	out := make([][]int, Rows)
	for r := range f.grid {
		out[r] = make([]int, Cols)
		for c, l := range f.grid[r] {
			out[r][c] = int(l)
		}
	}
	return out
}

// String renders the frame as one line of digits per row.
func (f *Frame) String() string {
	var sb strings.Builder
	for r := range f.grid {
		if r > 0 {
			sb.WriteByte('\n')
		}
		for _, l := range f.grid[r] {
			sb.WriteByte('0' + byte(l))
		}
	}
	return sb.String()
}

// Mix blends a and b into dst by alpha (0..1), rounding to the nearest level.
func Mix(dst, a, b *Frame, alpha float64) {
	if alpha <= 0 {
		dst.grid = a.grid
		return
	}
	if alpha >= 1 {
		dst.grid = b.grid
		return
	}
	for r := range dst.grid {
		for c := range dst.grid[r] {
			la := float64(a.grid[r][c])
			lb := float64(b.grid[r][c])
			dst.grid[r][c] = Level(la + (lb-la)*alpha + 0.5).Clamp()
		}
	}
}

func inBounds(row, col int) bool {
	return row >= 0 && row < Rows && col >= 0 && col < Cols
}

func checkLevel(v int) (Level, error) {
	if v < 0 || v > int(MaxLevel) {
		return 0, fmt.Errorf("%w: %d (max %d)", ErrOutOfRange, v, MaxLevel)
	}
	return Level(v), nil
}
