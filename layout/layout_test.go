package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/tinymatrix/render"
)

func TestBuiltinsValidate(t *testing.T) {
	for _, name := range Names() {
		l, err := ByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, l.Name())
	}
	_, err := ByName("hub75")
	assert.Error(t, err)
}

func TestDirectRowMasks(t *testing.T) {
	l := Direct()
	var act render.Activation
	act[0][0] = true
	act[0][4] = true
	act[3][2] = true

	masks := l.RowMasks(&act, make([]uint16, l.Rows()))
	assert.Equal(t, []uint16{0b10001, 0, 0, 0b00100, 0}, masks)
}

func TestMicrobitRowMasks(t *testing.T) {
	l := MicrobitV1()
	assert.Equal(t, 3, l.Rows())
	assert.Equal(t, 9, l.Cols())

	var act render.Activation
	act[0][0] = true // -> (0, 0)
	act[1][4] = true // -> (2, 7)
	act[2][1] = true // -> (0, 8)

	buf := make([]uint16, 8)
	masks := l.RowMasks(&act, buf)
	require.Len(t, masks, 3)
	assert.Equal(t, uint16(1<<0|1<<8), masks[0])
	assert.Equal(t, uint16(0), masks[1])
	assert.Equal(t, uint16(1<<7), masks[2])

	// Stale entries are cleared on reuse.
	masks = l.RowMasks(&render.Activation{}, buf)
	assert.Equal(t, []uint16{0, 0, 0}, masks)
}

func TestMicrobitCoversEveryCellOnce(t *testing.T) {
	var all render.Activation
	for r := range all {
		for c := range all[r] {
			all[r][c] = true
		}
	}
	l := MicrobitV1()
	masks := l.RowMasks(&all, make([]uint16, 3))
	lit := 0
	for _, m := range masks {
		for ; m != 0; m &= m - 1 {
			lit++
		}
	}
	assert.Equal(t, 25, lit)
}

func TestNewRejects(t *testing.T) {
	var dup Table
	_, err := New("dup", 5, 5, dup)
	assert.ErrorIs(t, err, ErrInvalid)

	var direct Table
	for r := range direct {
		for c := range direct[r] {
			direct[r][c] = Cell{r, c}
		}
	}
	_, err = New("small", 4, 5, direct)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = New("wide", 5, 17, direct)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = New("ok", 5, 5, direct)
	assert.NoError(t, err)
}
