package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/tinymatrix/display"
	"github.com/coreman2200/tinymatrix/internal/app"
	"github.com/coreman2200/tinymatrix/internal/config"
	diag "github.com/coreman2200/tinymatrix/internal/diagnostics"
	"github.com/coreman2200/tinymatrix/internal/pattern"
	"github.com/coreman2200/tinymatrix/layout"
	"github.com/coreman2200/tinymatrix/render"
)

func newServer(t *testing.T) (*State, *httptest.Server) {
	t.Helper()
	core, err := app.NewCore(display.New(render.NewDefault()), nil)
	require.NoError(t, err)
	s := NewState(core, layout.MicrobitV1(), 1000)
	s.CurrentDriver = "sim"
	mux := http.NewServeMux()
	s.Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		_ = s.Close()
	})
	return s, srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func (s *State) count(set map[*client]bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(set)
}

// tickCycle feeds one scheduler cycle of the published image into s.
func tickCycle(t *testing.T, s *State) {
	d := s.Core.Display
	for i := 0; i < d.Scheduler().CycleLength(); i++ {
		require.NoError(t, s.Write(d.Tick()))
	}
}

func TestFramesBroadcastDuty(t *testing.T) {
	s, srv := newServer(t)
	conn := dial(t, srv, "/ws")

	var top map[string]any
	readJSON(t, conn, &top)
	assert.Equal(t, "microbit-v1", top["layout"])
	assert.Equal(t, float64(9), top["max_level"])

	require.NoError(t, s.Core.Set(1, 3, 6))
	tickCycle(t, s)

	var f frame
	readJSON(t, conn, &f)
	assert.Equal(t, uint64(1), f.FrameID)
	assert.Equal(t, 6, f.Levels[1][3])
	assert.InDelta(t, 6.0/9.0, f.Duty[1][3], 1e-9)
	assert.Zero(t, f.Duty[0][0])
	assert.Equal(t, app.Manual, f.Mode)
}

func TestControlEditsAndDiagnostics(t *testing.T) {
	s, srv := newServer(t)
	dg := dial(t, srv, "/diag")
	require.Eventually(t, func() bool { return s.count(s.diagClients) == 1 }, time.Second, time.Millisecond)
	ctl := dial(t, srv, "/control")

	require.NoError(t, ctl.WriteMessage(websocket.TextMessage, []byte(`{"set":{"row":0,"col":4,"level":7}}`)))
	var st struct {
		Mode   string  `json:"mode"`
		Levels [][]int `json:"levels"`
	}
	readJSON(t, ctl, &st)
	assert.Equal(t, 7, st.Levels[0][4])
	assert.Equal(t, "manual", st.Mode)

	require.NoError(t, ctl.WriteMessage(websocket.TextMessage, []byte(`{"set":{"row":0,"col":4,"level":10}}`)))
	var d diag.Diagnostic
	readJSON(t, dg, &d)
	assert.Equal(t, "FRAME.LEVEL_RANGE", d.Code)
	readJSON(t, ctl, &st)
	assert.Equal(t, 7, st.Levels[0][4], "rejected edit leaves the image")

	require.NoError(t, ctl.WriteMessage(websocket.TextMessage, []byte(`{"runTest":"rgb_channels"}`)))
	readJSON(t, dg, &d)
	assert.Equal(t, "TEST.UNKNOWN", d.Code)
	readJSON(t, ctl, &st)

	require.NoError(t, ctl.WriteMessage(websocket.TextMessage, []byte(`{"play":{"clips":[{"frame":"heart","durationS":5}]}}`)))
	readJSON(t, ctl, &st)
	assert.Equal(t, "program", st.Mode)
	assert.Equal(t, 9, st.Levels[0][1])
}

func TestWriteDoesNotWaitOnClients(t *testing.T) {
	s, _ := newServer(t)
	d := s.Core.Display

	s.mu.Lock()
	defer s.mu.Unlock()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3*d.Scheduler().CycleLength(); i++ {
			_ = s.Write(d.Tick())
			_ = s.Core.Mode()
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Write blocked while the client set was locked")
	}
}

func TestPatternDoneReachesDiag(t *testing.T) {
	s, srv := newServer(t)
	dg := dial(t, srv, "/diag")
	require.Eventually(t, func() bool { return s.count(s.diagClients) == 1 }, time.Second, time.Millisecond)

	s.Core.PatternStep = time.Millisecond
	require.NoError(t, s.Core.RunPattern(pattern.Plan{Kind: pattern.Flash}))
	s.Core.Step(time.Millisecond)
	s.Core.Step(time.Millisecond)

	var d diag.Diagnostic
	readJSON(t, dg, &d)
	assert.Equal(t, "TEST.DONE", d.Code)
	assert.Equal(t, app.Manual, s.Core.Mode())
}

func TestSaveFramePersists(t *testing.T) {
	s, srv := newServer(t)
	s.Config = config.Default()
	s.ConfigPath = filepath.Join(t.TempDir(), "config.yaml")
	ctl := dial(t, srv, "/control")

	require.NoError(t, ctl.WriteMessage(websocket.TextMessage, []byte(`{"fill":3,"saveFrame":"dim"}`)))
	var st struct {
		Frames []string `json:"frames"`
	}
	readJSON(t, ctl, &st)
	assert.Contains(t, st.Frames, "dim")

	_, err := os.Stat(s.ConfigPath)
	require.NoError(t, err)
	c, err := config.Load(s.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Frames["dim"][4][4])
}

func TestHealth(t *testing.T) {
	s, srv := newServer(t)
	tickCycle(t, s)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	var h map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, float64(9), h["ticks"])
	assert.Equal(t, float64(1), h["cycles"])
	assert.Equal(t, "sim", h["driver"])
}
