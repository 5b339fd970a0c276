package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coreman2200/tinymatrix/display"
	diag "github.com/coreman2200/tinymatrix/internal/diagnostics"
	"github.com/coreman2200/tinymatrix/internal/pattern"
	"github.com/coreman2200/tinymatrix/internal/sequence"
	"github.com/coreman2200/tinymatrix/model"
)

// Mode says what is composing the displayed image.
type Mode string

const (
	Manual  Mode = "manual"  // the work frame, edited through the control API
	Program Mode = "program" // the sequencer
	Pattern Mode = "pattern" // a calibration pattern
)

// DefaultFrames seed the frame library.
var DefaultFrames = map[string][][]int{
	"blank": {
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
	},
	"heart": {
		{0, 9, 0, 9, 0},
		{9, 5, 9, 5, 9},
		{9, 5, 2, 5, 9},
		{0, 9, 5, 9, 0},
		{0, 0, 9, 0, 0},
	},
	"ramp": {
		{0, 1, 2, 3, 4},
		{1, 2, 3, 4, 5},
		{2, 3, 4, 5, 6},
		{3, 4, 5, 6, 7},
		{4, 5, 6, 7, 9},
	},
}

// Core owns the display image: a frame library, the sequencer, the
// calibration runner, and the work frame edited by hand.
type Core struct {
	Display *display.Display
	Seq     *sequence.SafePlayer

	// PatternStep is how long each calibration image stays up.
	PatternStep time.Duration

	mu      sync.Mutex
	library map[string]*model.Frame
	work    *model.Frame
	out     *model.Frame
	blank   *model.Frame
	mode    Mode

	// published mirrors mode for readers that must not wait on mu.
	published atomic.Value

	// onEvent receives notable state changes. It is called with the core
	// locked and must not call back into it.
	onEvent func(diag.Diagnostic)

	// sequencer composition, set through hooks
	cur, next *model.Frame
	alpha     float64
	gain      float64

	runner      *pattern.Runner
	patternLeft time.Duration

	cancel context.CancelFunc
}

// NewCore builds a core publishing to disp. frames are added to the
// default library, replacing defaults of the same name.
func NewCore(disp *display.Display, frames map[string][][]int) (*Core, error) {
	c := &Core{
		Display:     disp,
		PatternStep: 250 * time.Millisecond,
		library:     map[string]*model.Frame{},
		work:        model.NewFrame(),
		out:         model.NewFrame(),
		blank:       model.NewFrame(),
		gain:        1,
	}
	c.setModeLocked(Manual)
	for name, rows := range DefaultFrames {
		if err := c.AddFrame(name, rows); err != nil {
			return nil, err
		}
	}
	for name, rows := range frames {
		if err := c.AddFrame(name, rows); err != nil {
			return nil, err
		}
	}

	hooks := sequence.Hooks{
		SetFrame:     func(name string) { c.cur, c.next = c.library[name], nil },
		ArmNext:      func(name string) { c.next = c.library[name] },
		SetCrossfade: func(a float64) { c.alpha = a },
		SetGain:      func(v float64) { c.gain = v },
	}
	c.Seq = sequence.NewSafePlayer(hooks)
	disp.Show(c.work)
	return c, nil
}

// InitCore builds a core, starts prog if given, and runs the timeline loop
// at fps until ctx is done or Close is called.
func InitCore(ctx context.Context, disp *display.Display, frames map[string][][]int, prog *sequence.Program, fps int) (*Core, error) {
	c, err := NewCore(disp, frames)
	if err != nil {
		return nil, err
	}
	if prog != nil {
		if err := c.Play(*prog); err != nil {
			return nil, err
		}
	}
	ctx, c.cancel = context.WithCancel(ctx)
	go c.Run(ctx, fps)
	return c, nil
}

// Close stops the timeline loop started by InitCore.
func (c *Core) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

// AddFrame stores a named frame in the library.
func (c *Core) AddFrame(name string, rows [][]int) error {
	f, err := model.FrameOf(rows)
	if err != nil {
		return fmt.Errorf("frame %q: %w", name, err)
	}
	c.mu.Lock()
	c.library[name] = f
	c.mu.Unlock()
	return nil
}

// FrameNames lists the library, sorted.
func (c *Core) FrameNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.library))
	for k := range c.library {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Set changes one pixel of the work frame and shows it.
func (c *Core) Set(row, col, level int) error {
	return c.edit(func(f *model.Frame) error { return f.Set(row, col, level) })
}

// SetAll replaces the work frame and shows it.
func (c *Core) SetAll(rows [][]int) error {
	return c.edit(func(f *model.Frame) error { return f.SetAll(rows) })
}

// Fill sets every pixel of the work frame.
func (c *Core) Fill(level int) error {
	return c.edit(func(f *model.Frame) error { return f.Fill(level) })
}

// Clear blanks the work frame.
func (c *Core) Clear() {
	_ = c.edit(func(f *model.Frame) error { f.Clear(); return nil })
}

// ShowFrame copies a library frame into the work frame.
func (c *Core) ShowFrame(name string) error {
	return c.edit(func(f *model.Frame) error {
		src, ok := c.library[name]
		if !ok {
			return fmt.Errorf("no frame named %q", name)
		}
		return f.SetGrid(src.Snapshot())
	})
}

// edit applies fn to the work frame. Any edit takes over from the
// sequencer or pattern. On error nothing changes.
func (c *Core) edit(fn func(*model.Frame) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := fn(c.work); err != nil {
		return err
	}
	c.toManualLocked()
	return nil
}

func (c *Core) toManualLocked() {
	if c.mode == Program {
		c.Seq.With(func(p *sequence.Player) { p.Stop() })
	}
	c.runner = nil
	c.setModeLocked(Manual)
	c.Display.Show(c.work)
}

func (c *Core) setModeLocked(m Mode) {
	c.mode = m
	c.published.Store(m)
}

// SetOnEvent installs fn to receive notable state changes such as a
// finished pattern. fn runs with the core locked and must not call back
// into it.
func (c *Core) SetOnEvent(fn func(diag.Diagnostic)) {
	c.mu.Lock()
	c.onEvent = fn
	c.mu.Unlock()
}

// Play loads and starts prog. Every clip must name a library frame.
func (c *Core) Play(prog sequence.Program) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, clip := range prog.Clips {
		if _, ok := c.library[clip.Frame]; !ok {
			return fmt.Errorf("clip %d: no frame named %q", i, clip.Frame)
		}
	}
	var err error
	c.Seq.With(func(p *sequence.Player) {
		if err = p.Load(prog); err == nil {
			p.Start()
		}
	})
	if err != nil {
		return err
	}
	c.runner = nil
	c.setModeLocked(Program)
	c.composeLocked()
	return nil
}

// Stop returns to the work frame.
func (c *Core) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toManualLocked()
}

// RunPattern starts a calibration pattern. When it finishes the work frame
// comes back.
func (c *Core) RunPattern(plan pattern.Plan) error {
	if plan.Kind.Steps() == 0 {
		return fmt.Errorf("pattern: nothing to run for %q", plan.Kind)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == Program {
		c.Seq.With(func(p *sequence.Player) { p.Stop() })
	}
	c.runner = pattern.NewRunner(plan)
	c.setModeLocked(Pattern)
	c.patternLeft = 0
	c.stepPatternLocked()
	return nil
}

// Mode reports what is composing the image. It does not take the core
// lock, so output drivers may call it from the tick loop.
func (c *Core) Mode() Mode {
	return c.published.Load().(Mode)
}

// Work returns a copy of the work frame.
func (c *Core) Work() model.Grid {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.work.Snapshot()
}

// Levels returns the image the display is showing.
func (c *Core) Levels() model.Grid {
	return c.Display.Current()
}
