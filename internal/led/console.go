package led

import (
	"fmt"
	"image"
	"io"
	"os"
	"sync"
	"time"

	"periph.io/x/conn/v3/display"
	"periph.io/x/extra/devices/screen"

	"github.com/coreman2200/tinymatrix/model"
	"github.com/coreman2200/tinymatrix/render"
)

// Console shows what an eye would see: it integrates one full scheduler
// cycle and draws the resulting greyscale image in the terminal, one line
// per image row.
type Console struct {
	mu       sync.Mutex
	drawer   display.Drawer
	out      io.Writer
	cycle    int
	ticks    int
	lit      [model.Rows][model.Cols]int
	img      *image.Gray
	throttle time.Duration
	lastDraw time.Time
	drawn    bool
}

// NewConsole draws to stdout through periph.io's ANSI screen device.
// cycle is the scheduler's cycle length.
func NewConsole(cycle int) *Console {
	return newConsole(screen.New(model.Cols), os.Stdout, cycle)
}

func newConsole(d display.Drawer, out io.Writer, cycle int) *Console {
	return &Console{
		drawer:   d,
		out:      out,
		cycle:    cycle,
		img:      image.NewGray(image.Rect(0, 0, model.Cols, model.Rows)),
		throttle: 100 * time.Millisecond,
	}
}

func (c *Console) Write(act render.Activation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for r := range act {
		for col, on := range act[r] {
			if on {
				c.lit[r][col]++
			}
		}
	}
	c.ticks++
	if c.ticks < c.cycle {
		return nil
	}
	defer c.resetLocked()

	now := time.Now()
	if c.drawn && now.Sub(c.lastDraw) < c.throttle {
		return nil
	}
	c.lastDraw = now
	for r := range c.lit {
		for col, n := range c.lit[r] {
			c.img.Pix[r*c.img.Stride+col] = uint8(n * 255 / c.cycle)
		}
	}
	return c.drawLocked()
}

func (c *Console) drawLocked() error {
	if c.drawn {
		// Back over the previous image.
		fmt.Fprintf(c.out, "\033[%dA", model.Rows)
	}
	for r := 0; r < model.Rows; r++ {
		if err := c.drawer.Draw(c.drawer.Bounds(), c.img, image.Pt(0, r)); err != nil {
			return fmt.Errorf("led: console draw: %w", err)
		}
		fmt.Fprintln(c.out)
	}
	c.drawn = true
	return nil
}

func (c *Console) resetLocked() {
	c.ticks = 0
	c.lit = [model.Rows][model.Cols]int{}
}

// Frame returns the last integrated image.
func (c *Console) Frame() *image.Gray {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := image.NewGray(c.img.Rect)
	copy(out.Pix, c.img.Pix)
	return out
}

func (c *Console) Close() error {
	return c.drawer.Halt()
}
