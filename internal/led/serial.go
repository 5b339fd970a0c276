package led

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"

	"github.com/coreman2200/tinymatrix/layout"
	"github.com/coreman2200/tinymatrix/render"
)

// FrameStart opens every frame sent to a serial bridge.
const FrameStart = 0xA5

// Serial hands row masks to a microcontroller that does the scanning
// itself. Each frame is FrameStart, the row count, then one little-endian
// uint16 column mask per matrix row. A frame is only sent when the masks
// change; the bridge keeps showing the last one it received.
type Serial struct {
	mu     sync.Mutex
	w      io.WriteCloser
	layout *layout.Layout
	masks  []uint16
	buf    []byte
	last   []byte
}

// NewSerial opens port at baud, 8N1.
func NewSerial(port string, baud int, l *layout.Layout) (*Serial, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(port, mode)
	if err != nil {
		return nil, fmt.Errorf("led: open serial %s: %w", port, err)
	}
	return newSerial(p, l), nil
}

func newSerial(w io.WriteCloser, l *layout.Layout) *Serial {
	n := 2 + 2*l.Rows()
	return &Serial{
		w:      w,
		layout: l,
		masks:  make([]uint16, l.Rows()),
		buf:    make([]byte, n),
		last:   make([]byte, 0, n),
	}
}

func (s *Serial) Write(act render.Activation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.encode(&act)
	if bytes.Equal(s.buf, s.last) {
		return nil
	}
	n, err := s.w.Write(s.buf)
	if err != nil {
		return fmt.Errorf("led: serial write: %w", err)
	}
	if n < len(s.buf) {
		return fmt.Errorf("led: serial write: wrote only %d of %d bytes", n, len(s.buf))
	}
	s.last = append(s.last[:0], s.buf...)
	return nil
}

func (s *Serial) encode(act *render.Activation) {
	masks := s.layout.RowMasks(act, s.masks)
	s.buf[0] = FrameStart
	s.buf[1] = byte(len(masks))
	for i, m := range masks {
		s.buf[2+2*i] = byte(m)
		s.buf[3+2*i] = byte(m >> 8)
	}
}

// Close blanks the bridge and closes the port.
func (s *Serial) Close() error {
	err := s.Write(render.Activation{})
	if cerr := s.w.Close(); err == nil {
		err = cerr
	}
	return err
}
