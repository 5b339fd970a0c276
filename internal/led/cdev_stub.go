//go:build !linux

package led

import (
	"fmt"

	"github.com/coreman2200/tinymatrix/layout"
	"github.com/coreman2200/tinymatrix/render"
)

type Cdev struct{}

func NewCdev(chip string, l *layout.Layout, rows, cols []int, activeLowCols bool) (*Cdev, error) {
	return nil, fmt.Errorf("cdev driver not supported on this platform")
}

func (d *Cdev) Write(act render.Activation) error {
	return fmt.Errorf("cdev driver not supported on this platform")
}

func (d *Cdev) Close() error { return nil }
