package led

import (
	"sync"

	"github.com/coreman2200/tinymatrix/model"
	"github.com/coreman2200/tinymatrix/render"
)

// Sim records activations instead of driving hardware.
type Sim struct {
	mu     sync.Mutex
	writes uint64
	lit    [model.Rows][model.Cols]uint64
	closed bool
}

func NewSim() *Sim { return &Sim{} }

func (s *Sim) Write(act render.Activation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	for r := range act {
		for c, on := range act[r] {
			if on {
				s.lit[r][c]++
			}
		}
	}
	return nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Writes returns the number of activations seen.
func (s *Sim) Writes() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Duty returns the fraction of writes each pixel was lit for.
func (s *Sim) Duty() [model.Rows][model.Cols]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [model.Rows][model.Cols]float64
	if s.writes == 0 {
		return out
	}
	for r := range s.lit {
		for c, n := range s.lit[r] {
			out[r][c] = float64(n) / float64(s.writes)
		}
	}
	return out
}

// Reset zeroes the counters.
func (s *Sim) Reset() {
	s.mu.Lock()
	s.writes = 0
	s.lit = [model.Rows][model.Cols]uint64{}
	s.mu.Unlock()
}
