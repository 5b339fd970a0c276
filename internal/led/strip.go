package led

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"

	"github.com/coreman2200/tinymatrix/model"
	"github.com/coreman2200/tinymatrix/render"
)

// Strip mirrors each activation onto a 5×5 grid of WS281x pixels, laid out
// row by row. It is a bench stand-in for a real matrix: the strip latches
// every write, so it flickers through the same sub-frames.
type Strip struct {
	mu     sync.Mutex
	dev    *nrzled.Dev
	pixels []byte
	on     byte
}

// StripOpts configures NewStrip.
type StripOpts struct {
	// Port is the spireg name; empty picks the first port.
	Port string
	Freq physic.Frequency
	// Intensity is the channel value of a lit pixel.
	Intensity byte
}

// NewStrip opens a SPI port and attaches an nrzled device to it.
func NewStrip(opts StripOpts) (*Strip, error) {
	p, err := spireg.Open(opts.Port)
	if err != nil {
		return nil, fmt.Errorf("led: open spi %q: %w", opts.Port, err)
	}
	s, err := newStrip(p, opts)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return s, nil
}

func newStrip(p spi.Port, opts StripOpts) (*Strip, error) {
	if opts.Freq == 0 {
		opts.Freq = 2500 * physic.KiloHertz
	}
	if opts.Intensity == 0 {
		opts.Intensity = 0x40
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: model.Rows * model.Cols,
		Channels:  3,
		Freq:      opts.Freq,
	})
	if err != nil {
		return nil, fmt.Errorf("led: nrzled: %w", err)
	}
	return &Strip{
		dev:    d,
		pixels: make([]byte, model.Rows*model.Cols*3),
		on:     opts.Intensity,
	}, nil
}

func (s *Strip) Write(act render.Activation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := 0
	for r := range act {
		for _, lit := range act[r] {
			v := byte(0)
			if lit {
				v = s.on
			}
			s.pixels[i], s.pixels[i+1], s.pixels[i+2] = v, v, v
			i += 3
		}
	}
	if _, err := s.dev.Write(s.pixels); err != nil {
		return fmt.Errorf("led: strip write: %w", err)
	}
	return nil
}

func (s *Strip) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dev.Halt()
}
