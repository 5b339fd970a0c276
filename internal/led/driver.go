package led

import (
	"errors"

	"github.com/coreman2200/tinymatrix/render"
)

// Driver abstracts an LED output sink.
type Driver interface {
	// Write asserts one tick's activation on the hardware.
	Write(act render.Activation) error
	// Close releases resources and leaves every LED off.
	Close() error
}

// Tee fans each activation out to several drivers.
type Tee []Driver

func (t Tee) Write(act render.Activation) error {
	var errs []error
	for _, d := range t {
		if err := d.Write(act); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t Tee) Close() error {
	var errs []error
	for _, d := range t {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
