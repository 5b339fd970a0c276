package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/tinymatrix/display"
	diag "github.com/coreman2200/tinymatrix/internal/diagnostics"
	"github.com/coreman2200/tinymatrix/internal/pattern"
	"github.com/coreman2200/tinymatrix/internal/sequence"
	"github.com/coreman2200/tinymatrix/model"
	"github.com/coreman2200/tinymatrix/render"
)

func newCore(t *testing.T) *Core {
	t.Helper()
	c, err := NewCore(display.New(render.NewDefault()), map[string][][]int{
		"full": {{9, 9, 9, 9, 9}, {9, 9, 9, 9, 9}, {9, 9, 9, 9, 9}, {9, 9, 9, 9, 9}, {9, 9, 9, 9, 9}},
	})
	require.NoError(t, err)
	return c
}

func TestEditsPublish(t *testing.T) {
	c := newCore(t)
	require.NoError(t, c.Set(0, 0, 4))
	assert.Equal(t, model.Level(4), c.Levels()[0][0])

	require.NoError(t, c.Fill(2))
	assert.Equal(t, model.Level(2), c.Levels()[4][4])

	c.Clear()
	assert.Equal(t, model.Grid{}, c.Levels())

	require.NoError(t, c.ShowFrame("heart"))
	assert.Equal(t, model.Level(9), c.Levels()[0][1])
	assert.Error(t, c.ShowFrame("nope"))
}

func TestRejectedEditLeavesImage(t *testing.T) {
	c := newCore(t)
	require.NoError(t, c.Fill(3))

	assert.ErrorIs(t, c.Set(0, 0, 10), model.ErrOutOfRange)
	assert.ErrorIs(t, c.Set(5, 0, 1), model.ErrIndexOutOfBounds)
	bad := [][]int{{1, 1, 1, 1, 1}, {1, 1, 1, 1, 1}, {1, 1, 1, 1, 1}, {1, 1, 1, 1, 1}, {1, 1, 1, 1, 12}}
	assert.ErrorIs(t, c.SetAll(bad), model.ErrOutOfRange)

	var want model.Grid
	for r := range want {
		for col := range want[r] {
			want[r][col] = 3
		}
	}
	assert.Equal(t, want, c.Levels())
	assert.Equal(t, want, c.Work())
}

func TestProgramCrossfade(t *testing.T) {
	c := newCore(t)
	err := c.Play(sequence.Program{Clips: []sequence.Clip{
		{Frame: "blank", DurationS: 2, XFadeS: 1},
		{Frame: "full", DurationS: 2},
	}})
	require.NoError(t, err)
	assert.Equal(t, Program, c.Mode())
	assert.Equal(t, model.Level(0), c.Levels()[2][2])

	c.Step(1500 * time.Millisecond) // halfway through the fade
	assert.Equal(t, model.Level(5), c.Levels()[2][2])

	c.Step(500 * time.Millisecond)
	assert.Equal(t, model.Level(9), c.Levels()[2][2])

	// A manual edit takes over.
	require.NoError(t, c.Set(0, 0, 1))
	assert.Equal(t, Manual, c.Mode())
	assert.Equal(t, model.Level(0), c.Levels()[2][2])
}

func TestPlayRejectsUnknownFrame(t *testing.T) {
	c := newCore(t)
	err := c.Play(sequence.Program{Clips: []sequence.Clip{{Frame: "ghost", DurationS: 1}}})
	assert.Error(t, err)
	assert.Equal(t, Manual, c.Mode())
}

func TestGainScalesLevels(t *testing.T) {
	c := newCore(t)
	require.NoError(t, c.Play(sequence.Program{Clips: []sequence.Clip{
		{Frame: "full", DurationS: 4, Gain: sequence.Envelope{{T: 0, V: 0}, {T: 2, V: 1}}},
	}}))
	assert.Equal(t, model.Level(0), c.Levels()[1][1])
	c.Step(time.Second)
	assert.Equal(t, model.Level(5), c.Levels()[1][1])
}

func TestPatternRunsThenRestoresWork(t *testing.T) {
	c := newCore(t)
	require.NoError(t, c.Fill(1))
	var events []diag.Diagnostic
	c.SetOnEvent(func(d diag.Diagnostic) { events = append(events, d) })
	c.PatternStep = time.Millisecond

	require.NoError(t, c.RunPattern(pattern.Plan{Kind: pattern.Flash}))
	assert.Equal(t, Pattern, c.Mode())
	assert.Equal(t, model.MaxLevel, c.Levels()[0][0])

	c.Step(time.Millisecond)
	assert.Equal(t, model.Level(0), c.Levels()[0][0])

	c.Step(time.Millisecond)
	assert.Equal(t, Manual, c.Mode())
	assert.Equal(t, model.Level(1), c.Levels()[0][0])
	require.Len(t, events, 1)
	assert.Equal(t, "TEST.DONE", events[0].Code)

	assert.Error(t, c.RunPattern(pattern.Plan{}))
}

func TestModeDoesNotWaitOnLock(t *testing.T) {
	c := newCore(t)
	require.NoError(t, c.RunPattern(pattern.Plan{Kind: pattern.Flash}))

	c.mu.Lock()
	defer c.mu.Unlock()
	got := make(chan Mode, 1)
	go func() { got <- c.Mode() }()
	select {
	case m := <-got:
		assert.Equal(t, Pattern, m)
	case <-time.After(time.Second):
		t.Fatal("Mode blocked on the core lock")
	}
}

func TestSetOnEventWhileRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, err := InitCore(ctx, display.New(render.NewDefault()), nil, nil, 200)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.RunPattern(pattern.Plan{Kind: pattern.Flash}))

	done := make(chan diag.Diagnostic, 1)
	c.SetOnEvent(func(d diag.Diagnostic) {
		select {
		case done <- d:
		default:
		}
	})
	select {
	case d := <-done:
		assert.Equal(t, "TEST.DONE", d.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("pattern never finished")
	}
	assert.Equal(t, Manual, c.Mode())
}

func TestInitCoreRuns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	prog := &sequence.Program{Clips: []sequence.Clip{{Frame: "heart", DurationS: 10}}}
	c, err := InitCore(ctx, display.New(render.NewDefault()), nil, prog, 100)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, Program, c.Mode())
	assert.Eventually(t, func() bool {
		var now float64
		c.Seq.With(func(p *sequence.Player) { now = p.Now() })
		return now > 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, model.Level(9), c.Levels()[0][1])
}
