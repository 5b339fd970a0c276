package model

import "image/color"

const (
	// Rows and Cols are the visible image dimensions.
	Rows = 5
	Cols = 5

	// Brightnesses is the number of greyscale levels (ie, 10).
	Brightnesses = 10
	// MaxLevel is the brightest level; the minimum is 0 (off).
	MaxLevel Level = Brightnesses - 1
)

// Level is the brightness of a single LED, from 0 to MaxLevel.
type Level uint8

// Valid reports whether l is within [0, MaxLevel].
func (l Level) Valid() bool {
	return l <= MaxLevel
}

// Clamp returns l limited to MaxLevel.
func (l Level) Clamp() Level {
	if l > MaxLevel {
		return MaxLevel
	}
	return l
}

// Gray scales the level to an 8-bit luminance.
func (l Level) Gray() color.Gray {
	return color.Gray{Y: uint8(uint(l.Clamp()) * 255 / uint(MaxLevel))}
}

// LevelOf quantises an 8-bit luminance to the nearest level.
func LevelOf(y uint8) Level {
	return Level((uint(y)*uint(MaxLevel) + 127) / 255)
}

// LevelModel converts colors to the nearest level's luminance.
var LevelModel = color.ModelFunc(func(c color.Color) color.Color {
	g := color.GrayModel.Convert(c).(color.Gray)
	return LevelOf(g.Y).Gray()
})
