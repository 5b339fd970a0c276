//go:build linux

package led

import (
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"github.com/coreman2200/tinymatrix/layout"
	"github.com/coreman2200/tinymatrix/render"
)

// Cdev drives the matrix lines through the Linux GPIO character device.
type Cdev struct {
	mu   sync.Mutex
	rows []*gpiocdev.Line
	cols []*gpiocdev.Line
	scan scanner
}

// NewCdev requests the given line offsets on chip (e.g. "gpiochip0") as
// outputs with every LED off.
func NewCdev(chip string, l *layout.Layout, rows, cols []int, activeLowCols bool) (*Cdev, error) {
	if len(rows) != l.Rows() || len(cols) != l.Cols() {
		return nil, fmt.Errorf("led: layout %s needs %d row and %d column lines, got %d and %d",
			l.Name(), l.Rows(), l.Cols(), len(rows), len(cols))
	}
	d := &Cdev{scan: newScanner(l, activeLowCols, 0)}
	off := 0
	if activeLowCols {
		off = 1
	}
	for _, o := range rows {
		line, err := gpiocdev.RequestLine(chip, o, gpiocdev.AsOutput(0))
		if err != nil {
			d.release()
			return nil, fmt.Errorf("led: request %s line %d: %w", chip, o, err)
		}
		d.rows = append(d.rows, line)
	}
	for _, o := range cols {
		line, err := gpiocdev.RequestLine(chip, o, gpiocdev.AsOutput(off))
		if err != nil {
			d.release()
			return nil, fmt.Errorf("led: request %s line %d: %w", chip, o, err)
		}
		d.cols = append(d.cols, line)
	}
	return d, nil
}

func (d *Cdev) row(i int, high bool) error { return d.rows[i].SetValue(bit(high)) }
func (d *Cdev) col(i int, high bool) error { return d.cols[i].SetValue(bit(high)) }

func (d *Cdev) Write(act render.Activation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scan.scan(&act, d)
}

func (d *Cdev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.scan.blank(d)
	return errors.Join(err, d.release())
}

func (d *Cdev) release() error {
	var errs []error
	for _, l := range append(d.rows, d.cols...) {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.rows, d.cols = nil, nil
	return errors.Join(errs...)
}

func bit(high bool) int {
	if high {
		return 1
	}
	return 0
}
