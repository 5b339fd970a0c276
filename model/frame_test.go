package model_test

import (
	"image"
	"image/color"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/coreman2200/tinymatrix/model"
)

var greyHeart = [][]int{
	{0, 9, 0, 9, 0},
	{9, 5, 9, 5, 9},
	{9, 5, 5, 5, 9},
	{0, 9, 5, 9, 0},
	{0, 0, 9, 0, 0},
}

var TestSetRejectsBadInput = []struct {
	Row, Col, Level int
	Expect          error
}{
	{0, 0, 10, ErrOutOfRange},
	{4, 4, -1, ErrOutOfRange},
	{-1, 0, 3, ErrIndexOutOfBounds},
	{0, 5, 3, ErrIndexOutOfBounds},
	{5, 0, 3, ErrIndexOutOfBounds},
	{0, -1, 3, ErrIndexOutOfBounds},
}

func TestNewFrameIsBlank(t *testing.T) {
	f := NewFrame()
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			l, err := f.Get(r, c)
			require.NoError(t, err)
			assert.Equal(t, Level(0), l)
		}
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	f := NewFrame()
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			for lvl := 0; lvl <= int(MaxLevel); lvl++ {
				require.NoError(t, f.Set(r, c, lvl))
				got, err := f.Get(r, c)
				require.NoError(t, err)
				assert.Equal(t, Level(lvl), got, "pixel (%d, %d)", r, c)
			}
		}
	}
}

func TestSetRejects(t *testing.T) {
	for k, v := range TestSetRejectsBadInput {
		t.Run("Given case "+strconv.Itoa(k), func(t *testing.T) {
			f, err := FrameOf(greyHeart)
			require.NoError(t, err)
			before := f.Snapshot()

			err = f.Set(v.Row, v.Col, v.Level)
			assert.ErrorIs(t, err, v.Expect)
			assert.Equal(t, before, f.Snapshot(), "grid should be unmodified")
		})
	}
}

func TestSetMaxLevelPlusOneNeverStored(t *testing.T) {
	f := NewFrame()
	assert.ErrorIs(t, f.Set(2, 2, int(MaxLevel)+1), ErrOutOfRange)
	l, err := f.Get(2, 2)
	require.NoError(t, err)
	assert.Equal(t, Level(0), l)
}

func TestGetOutOfBounds(t *testing.T) {
	f := NewFrame()
	_, err := f.Get(Rows, 0)
	assert.ErrorIs(t, err, ErrIndexOutOfBounds)
}

func TestSetAll(t *testing.T) {
	f := NewFrame()
	require.NoError(t, f.SetAll(greyHeart))
	assert.Equal(t, greyHeart, f.Rows())
	assert.Equal(t, "09090\n95959\n95559\n09590\n00900", f.String())
}

func TestSetAllIsAllOrNothing(t *testing.T) {
	bad := [][]int{
		{1, 1, 1, 1, 1},
		{1, 1, 1, 1, 1},
		{1, 1, 12, 1, 1},
		{1, 1, 1, 1, 1},
		{1, 1, 1, 1, 1},
	}
	f, err := FrameOf(greyHeart)
	require.NoError(t, err)

	assert.ErrorIs(t, f.SetAll(bad), ErrOutOfRange)
	assert.Equal(t, greyHeart, f.Rows())

	assert.ErrorIs(t, f.SetAll(bad[:4]), ErrIndexOutOfBounds)
	assert.ErrorIs(t, f.SetAll([][]int{{1}, {1}, {1}, {1}, {1}}), ErrIndexOutOfBounds)
	assert.Equal(t, greyHeart, f.Rows())
}

func TestSetGrid(t *testing.T) {
	f := NewFrame()
	var g Grid
	g[1][3] = 7
	require.NoError(t, f.SetGrid(g))
	assert.Equal(t, g, f.Snapshot())

	g[0][0] = MaxLevel + 1
	assert.ErrorIs(t, f.SetGrid(g), ErrOutOfRange)
	assert.Equal(t, Level(0), f.BrightnessAt(0, 0))
}

func TestClearAndFill(t *testing.T) {
	f, err := FrameOf(greyHeart)
	require.NoError(t, err)

	f.Clear()
	assert.Equal(t, Grid{}, f.Snapshot())

	require.NoError(t, f.Fill(4))
	for _, row := range f.Rows() {
		assert.Equal(t, []int{4, 4, 4, 4, 4}, row)
	}
	assert.ErrorIs(t, f.Fill(10), ErrOutOfRange)
}

type overbright struct{}

func (overbright) BrightnessAt(x, y int) Level { return Level(x + y*5) }

func TestSetFromClamps(t *testing.T) {
	f := NewFrame()
	f.SetFrom(overbright{})
	assert.Equal(t, Level(3), f.BrightnessAt(3, 0))
	assert.Equal(t, MaxLevel, f.BrightnessAt(4, 4))
}

func TestMix(t *testing.T) {
	a := NewFrame()
	b := NewFrame()
	require.NoError(t, b.Fill(9))
	dst := NewFrame()

	Mix(dst, a, b, 0)
	assert.Equal(t, Level(0), dst.BrightnessAt(0, 0))
	Mix(dst, a, b, 0.5)
	assert.Equal(t, Level(5), dst.BrightnessAt(2, 2))
	Mix(dst, a, b, 1)
	assert.Equal(t, Level(9), dst.BrightnessAt(4, 4))
	Mix(dst, b, a, 0.25)
	assert.Equal(t, Level(7), dst.BrightnessAt(1, 1))
}

func TestLevelConversions(t *testing.T) {
	assert.Equal(t, color.Gray{Y: 0}, Level(0).Gray())
	assert.Equal(t, color.Gray{Y: 255}, MaxLevel.Gray())
	assert.Equal(t, MaxLevel, Level(200).Clamp())
	for l := Level(0); l <= MaxLevel; l++ {
		assert.Equal(t, l, LevelOf(l.Gray().Y), "level %d", l)
	}
}

func TestImageRoundTrip(t *testing.T) {
	f, err := FrameOf(greyHeart)
	require.NoError(t, err)

	img := f.Image()
	assert.Equal(t, image.Rect(0, 0, Cols, Rows), img.Bounds())
	assert.Equal(t, greyHeart, FromImage(img).Rows())
}

func TestFromImageScales(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 50, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 50; x++ {
			src.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	f := FromImage(src)
	for _, row := range f.Rows() {
		assert.Equal(t, []int{9, 9, 9, 9, 9}, row)
	}
}
