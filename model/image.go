package model

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Image returns the frame as an 8-bit grey image, Cols wide and Rows high.
func (f *Frame) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, Cols, Rows))
	for r := range f.grid {
		for c, l := range f.grid[r] {
			img.SetGray(c, r, l.Gray())
		}
	}
	return img
}

// FromImage scales src down to the display size and quantises its
// luminance to levels.
func FromImage(src image.Image) *Frame {
	dst := image.NewGray(image.Rect(0, 0, Cols, Rows))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	f := NewFrame()
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			f.grid[r][c] = LevelOf(dst.GrayAt(c, r).Y)
		}
	}
	return f
}

// ColorModel lets a Frame be inspected with the standard image tooling.
func (f *Frame) ColorModel() color.Model { return LevelModel }

// Bounds returns the frame bounds in image coordinates.
func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, Cols, Rows) }

// At implements image.Image.
func (f *Frame) At(x, y int) color.Color {
	return f.BrightnessAt(x, y).Gray()
}
