package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/tinymatrix/internal/sequence"
	"github.com/coreman2200/tinymatrix/model"
)

type GPIO struct {
	Rows          []string `yaml:"rows"` // periph pin names, e.g. GPIO13
	Cols          []string `yaml:"cols"`
	ActiveLowCols bool     `yaml:"active_low_cols"`
	DwellUs       int      `yaml:"dwell_us,omitempty"`
}

type Cdev struct {
	Chip          string `yaml:"chip"` // e.g. gpiochip0
	Rows          []int  `yaml:"rows"` // line offsets
	Cols          []int  `yaml:"cols"`
	ActiveLowCols bool   `yaml:"active_low_cols"`
}

type Serial struct {
	Port string `yaml:"port"` // e.g. /dev/ttyACM0
	Baud int    `yaml:"baud"`
}

type Strip struct {
	SPI       string `yaml:"spi"` // spireg name; empty = first port
	Hz        int    `yaml:"hz"`
	Intensity int    `yaml:"intensity"`
}

type Config struct {
	Driver   string `yaml:"driver"` // sim | gpio | cdev | serial | strip | console
	TickHz   int    `yaml:"tick_hz"`
	MaxLevel int    `yaml:"max_level"`
	Layout   string `yaml:"layout"` // direct | microbit-v1
	Addr     string `yaml:"addr"`

	GPIO   GPIO   `yaml:"gpio,omitempty"`
	Cdev   Cdev   `yaml:"cdev,omitempty"`
	Serial Serial `yaml:"serial,omitempty"`
	Strip  Strip  `yaml:"strip,omitempty"`

	// Frames adds to the built-in frame library, each as Rows rows of Cols levels.
	Frames  map[string][][]int `yaml:"frames,omitempty"`
	Program *sequence.Program  `yaml:"program,omitempty"`
}

// Default is a simulator running the micro:bit wiring.
func Default() *Config {
	return &Config{
		Driver:   "sim",
		TickHz:   2000,
		MaxLevel: int(model.MaxLevel),
		Layout:   "microbit-v1",
		Addr:     ":8080",
		Serial:   Serial{Baud: 115200},
		Strip:    Strip{Hz: 2500000, Intensity: 0x40},
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// MaxTickHz is the fastest tick rate a time.Ticker can be asked for.
const MaxTickHz = int(time.Second)

// Validate checks the fields that have no safe fallback. Zero values are
// left for the caller to default.
func (c *Config) Validate() error {
	if c.TickHz < 0 || c.TickHz > MaxTickHz {
		return fmt.Errorf("tick_hz %d outside 1..%d", c.TickHz, MaxTickHz)
	}
	if c.MaxLevel < 0 || c.MaxLevel > int(model.MaxLevel) {
		return fmt.Errorf("max_level %d outside 1..%d", c.MaxLevel, model.MaxLevel)
	}
	for name, rows := range c.Frames {
		if _, err := model.FrameOf(rows); err != nil {
			return fmt.Errorf("frame %q: %w", name, err)
		}
	}
	return nil
}

// Check validates a config whose defaults have been applied: zero is no
// longer "unset" for the rate and the level range.
func (c *Config) Check() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.TickHz == 0 {
		return fmt.Errorf("tick_hz must be at least 1")
	}
	if c.MaxLevel == 0 {
		return fmt.Errorf("max_level must be at least 1")
	}
	return nil
}
