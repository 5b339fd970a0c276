package sequence

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// NewPlayer constructs a Player with provided hooks.
func NewPlayer(h Hooks) *Player {
	return &Player{
		State:      Idle,
		hooks:      h,
		armedIndex: -1,
	}
}

// Load replaces the current program. Resets time and state to Idle.
func (p *Player) Load(prog Program) error {
	if len(prog.Clips) == 0 {
		return errors.New("program has no clips")
	}
	for i, c := range prog.Clips {
		if c.Frame == "" {
			return fmt.Errorf("clip %d has no frame", i)
		}
		if c.DurationS <= 0 {
			return fmt.Errorf("clip %d (%s): duration must be positive", i, c.Frame)
		}
		if c.XFadeS < 0 || c.XFadeS > c.DurationS {
			return fmt.Errorf("clip %d (%s): crossfade must be within 0..duration", i, c.Frame)
		}
	}
	p.prog = prog
	p.nowS = 0
	p.idx = 0
	p.State = Idle
	p.armed = false
	p.armedIndex = -1
	p.lastAlpha = 0
	return nil
}

// Program returns the loaded program.
func (p *Player) Program() Program { return p.prog }

// Start moves to Running and primes the current clip.
func (p *Player) Start() {
	if p.State == Running || len(p.prog.Clips) == 0 {
		return
	}
	p.State = Running
	p.enter(p.prog.Clips[p.idx], 0)
}

// Pause pauses playback.
func (p *Player) Pause() {
	if p.State == Running {
		p.State = Paused
	}
}

// Resume resumes playback.
func (p *Player) Resume() {
	if p.State == Paused {
		p.State = Running
	}
}

// Stop stops and resets to start.
func (p *Player) Stop() {
	p.State = Idle
	p.nowS = 0
	p.idx = 0
	p.armed = false
	p.armedIndex = -1
	p.lastAlpha = 0
	if p.hooks.SetCrossfade != nil {
		p.hooks.SetCrossfade(0)
	}
}

// Seek jumps to absolute program time t. Clamps into [0, totalDur).
func (p *Player) Seek(t float64) {
	if len(p.prog.Clips) == 0 {
		return
	}
	if t < 0 {
		t = 0
	}
	total := p.totalDuration()
	if total > 0 && t >= total {
		t = math.Nextafter(total, -1)
	}
	acc := 0.0
	idx := 0
	for i, c := range p.prog.Clips {
		if t < acc+c.DurationS {
			idx = i
			break
		}
		acc += c.DurationS
	}
	p.idx = idx
	p.nowS = t
	p.armed = false
	p.armedIndex = -1
	p.lastAlpha = 0
	p.enter(p.prog.Clips[p.idx], t-acc)
}

// Now returns the position within the program, in seconds.
func (p *Player) Now() float64 { return p.nowS }

// Tick advances the sequencer by dt seconds and emits control hooks.
func (p *Player) Tick(dt float64) {
	if p.State != Running || len(p.prog.Clips) == 0 {
		return
	}
	if dt <= 0 {
		return
	}
	p.nowS += dt

	clip, localT := p.currentClipAndLocalT()
	if len(clip.Gain) > 0 && p.hooks.SetGain != nil {
		p.hooks.SetGain(clamp01(clip.Gain.Eval(localT, 1)))
	}
	// Crossfade logic
	if clip.XFadeS > 0 {
		remain := clip.DurationS - localT
		if remain <= clip.XFadeS && remain >= 0 {
			// Arm next once
			nextIdx := p.nextIndex()
			if !p.armed && nextIdx != -1 && p.hooks.ArmNext != nil {
				p.hooks.ArmNext(p.prog.Clips[nextIdx].Frame)
				p.armed = true
				p.armedIndex = nextIdx
			}
			// Alpha 0..1 over [Duration-XFade, Duration]
			alpha := easeApply(clip.XFadeEase, clamp01(1.0-(remain/clip.XFadeS)))
			if p.armed && p.hooks.SetCrossfade != nil && alpha != p.lastAlpha {
				p.hooks.SetCrossfade(alpha)
				p.lastAlpha = alpha
			}
		}
	}

	// Clip end?
	if localT >= clip.DurationS {
		p.advanceClip()
	}
}

// enter shows clip from local time localT with no crossfade.
func (p *Player) enter(clip Clip, localT float64) {
	if p.hooks.SetFrame != nil {
		p.hooks.SetFrame(clip.Frame)
	}
	if p.hooks.SetGain != nil {
		p.hooks.SetGain(clamp01(clip.Gain.Eval(localT, 1)))
	}
	if p.hooks.SetCrossfade != nil {
		p.hooks.SetCrossfade(0)
	}
}

func (p *Player) currentClipAndLocalT() (Clip, float64) {
	acc := 0.0
	for i := 0; i < p.idx; i++ {
		acc += p.prog.Clips[i].DurationS
	}
	return p.prog.Clips[p.idx], p.nowS - acc
}

func (p *Player) totalDuration() float64 {
	total := 0.0
	for _, c := range p.prog.Clips {
		total += c.DurationS
	}
	return total
}

func (p *Player) nextIndex() int {
	if len(p.prog.Clips) == 0 {
		return -1
	}
	ni := p.idx + 1
	if ni >= len(p.prog.Clips) {
		if p.prog.Loop {
			return 0
		}
		return -1
	}
	return ni
}

func (p *Player) advanceClip() {
	next := p.nextIndex()
	if next == -1 {
		// End of program; the last frame stays up.
		p.State = Idle
		if p.hooks.SetCrossfade != nil {
			p.hooks.SetCrossfade(0)
		}
		return
	}
	if next == 0 {
		p.nowS -= p.totalDuration()
	}
	p.idx = next
	p.armed = false
	p.armedIndex = -1
	p.lastAlpha = 0
	p.enter(p.prog.Clips[p.idx], 0)
}

// SafePlayer serialises access to a Player shared between the timeline loop
// and control handlers.
type SafePlayer struct {
	mu sync.Mutex
	P  *Player
}

func NewSafePlayer(h Hooks) *SafePlayer {
	return &SafePlayer{P: NewPlayer(h)}
}

func (s *SafePlayer) With(f func(p *Player)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.P)
}
