package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/tinymatrix/internal/app"
	"github.com/coreman2200/tinymatrix/internal/config"
	diag "github.com/coreman2200/tinymatrix/internal/diagnostics"
	"github.com/coreman2200/tinymatrix/internal/pattern"
	"github.com/coreman2200/tinymatrix/internal/sequence"
	"github.com/coreman2200/tinymatrix/layout"
	"github.com/coreman2200/tinymatrix/model"
	"github.com/coreman2200/tinymatrix/render"
)

// State serves the preview and control endpoints. It is also an output
// driver: fed every tick, it integrates one scheduler cycle and broadcasts
// the measured duty of each LED next to the levels that produced it.
type State struct {
	Core   *app.Core
	Layout *layout.Layout
	TickHz int

	// Config, if set, is updated and saved to ConfigPath when frames are
	// saved from the control socket.
	Config     *config.Config
	ConfigPath string
	cfgMu      sync.Mutex

	CurrentDriver string

	mu          sync.RWMutex
	frameID     uint64
	startTime   time.Time
	clients     map[*client]bool
	diagClients map[*client]bool

	// touched only by Write
	cycle    int
	ticks    int
	lit      [model.Rows][model.Cols]int
	throttle time.Duration
	lastEmit time.Time

	frames chan frame
	events chan diag.Diagnostic
	done   chan struct{}
}

type frame struct {
	T       int64       `json:"t"`
	FrameID uint64      `json:"frame_id"`
	Mode    app.Mode    `json:"mode"`
	Levels  [][]int     `json:"levels"`
	Duty    [][]float64 `json:"duty"`
}

type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func NewState(core *app.Core, l *layout.Layout, tickHz int) *State {
	s := &State{
		Core:        core,
		Layout:      l,
		TickHz:      tickHz,
		startTime:   time.Now(),
		clients:     map[*client]bool{},
		diagClients: map[*client]bool{},
		cycle:       core.Display.Scheduler().CycleLength(),
		throttle:    50 * time.Millisecond, // ~20 FPS to the browser
		frames:      make(chan frame, 1),
		events:      make(chan diag.Diagnostic, 16),
		done:        make(chan struct{}),
	}
	core.SetOnEvent(s.queueDiag)
	go s.broadcastLoop()
	return s
}

// Routes registers the endpoints.
func (s *State) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.HandleFramesWS)
	mux.HandleFunc("/diag", s.HandleDiagWS)
	mux.HandleFunc("/control", s.HandleControlWS)
	mux.HandleFunc("/health", s.HandleHealth)
}

// Write accumulates one tick. It takes no lock shared with the control
// path, and if the broadcaster is busy the cycle is dropped.
func (s *State) Write(act render.Activation) error {
	for r := range act {
		for c, on := range act[r] {
			if on {
				s.lit[r][c]++
			}
		}
	}
	s.ticks++
	if s.ticks < s.cycle {
		return nil
	}
	lit := s.lit
	s.ticks = 0
	s.lit = [model.Rows][model.Cols]int{}

	now := time.Now()
	if now.Sub(s.lastEmit) < s.throttle {
		return nil
	}
	s.lastEmit = now

	f := frame{
		T:      now.UnixNano(),
		Mode:   s.Core.Mode(),
		Levels: gridRows(s.Core.Levels()),
		Duty:   make([][]float64, model.Rows),
	}
	for r := range lit {
		f.Duty[r] = make([]float64, model.Cols)
		for c, n := range lit[r] {
			f.Duty[r][c] = float64(n) / float64(s.cycle)
		}
	}
	select {
	case s.frames <- f:
	default:
	}
	return nil
}

// Close stops the broadcaster and disconnects every client.
func (s *State) Close() error {
	close(s.done)
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.conn.Close()
	}
	for c := range s.diagClients {
		c.conn.Close()
	}
	return nil
}

func (s *State) broadcastLoop() {
	for {
		select {
		case <-s.done:
			return
		case f := <-s.frames:
			s.mu.Lock()
			s.frameID++
			f.FrameID = s.frameID
			s.mu.Unlock()
			s.broadcastFrame(f)
		case d := <-s.events:
			s.pushDiag(d)
		}
	}
}

// queueDiag hands d to the broadcaster. It runs under the core lock, so it
// drops the event rather than wait.
func (s *State) queueDiag(d diag.Diagnostic) {
	select {
	case s.events <- d:
	default:
		log.Debug().Str("code", d.Code).Msg("diag dropped")
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func (s *State) register(w http.ResponseWriter, r *http.Request, set map[*client]bool) *client {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil
	}
	c := &client{conn: conn}
	s.mu.Lock()
	set[c] = true
	s.mu.Unlock()
	return c
}

// drain reads until the peer goes away, then unregisters c.
func (s *State) drain(c *client, set map[*client]bool) {
	defer func() {
		s.mu.Lock()
		delete(set, c)
		s.mu.Unlock()
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *State) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	c := s.register(w, r, s.clients)
	if c == nil {
		return
	}
	s.sendTopology(c)
	go s.drain(c, s.clients)
}

func (s *State) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	c := s.register(w, r, s.diagClients)
	if c == nil {
		return
	}
	go s.drain(c, s.diagClients)
}

func (s *State) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Control
		if err := json.Unmarshal(data, &msg); err != nil {
			s.pushDiag(diag.Diagnostic{
				Severity: diag.Warn, Code: "CONTROL.DECODE", Summary: "Bad control message",
				Detail: err.Error(),
			})
			continue
		}
		s.applyControl(msg)
		s.sendStatus(c)
	}
}

func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	id := s.frameID
	s.mu.RUnlock()
	st := s.Core.Display.Stats()
	resp := map[string]any{
		"frame_id": id,
		"uptime_s": time.Since(s.startTime).Seconds(),
		"ticks":    st.Ticks,
		"cycles":   st.Cycles,
		"tick_hz":  s.TickHz,
		"mode":     s.Core.Mode(),
		"driver":   s.CurrentDriver,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Control is one message on the control socket. Fields are applied in
// declaration order; the first failure stops the rest.
type Control struct {
	Set       *SetPixel         `json:"set,omitempty"`
	SetAll    [][]int           `json:"setAll,omitempty"`
	Clear     bool              `json:"clear,omitempty"`
	Fill      *int              `json:"fill,omitempty"`
	Show      string            `json:"show,omitempty"`
	RunTest   string            `json:"runTest,omitempty"`
	Play      *sequence.Program `json:"play,omitempty"`
	Stop      bool              `json:"stop,omitempty"`
	SaveFrame string            `json:"saveFrame,omitempty"`
}

type SetPixel struct {
	Row   int `json:"row"`
	Col   int `json:"col"`
	Level int `json:"level"`
}

func (s *State) applyControl(msg Control) {
	steps := []struct {
		op  string
		on  bool
		run func() error
	}{
		{"set", msg.Set != nil, func() error { return s.Core.Set(msg.Set.Row, msg.Set.Col, msg.Set.Level) }},
		{"setAll", msg.SetAll != nil, func() error { return s.Core.SetAll(msg.SetAll) }},
		{"clear", msg.Clear, func() error { s.Core.Clear(); return nil }},
		{"fill", msg.Fill != nil, func() error { return s.Core.Fill(*msg.Fill) }},
		{"show", msg.Show != "", func() error { return s.Core.ShowFrame(msg.Show) }},
		{"runTest", msg.RunTest != "", func() error { return s.runTest(msg.RunTest) }},
		{"play", msg.Play != nil, func() error { return s.Core.Play(*msg.Play) }},
		{"stop", msg.Stop, func() error { s.Core.Stop(); return nil }},
		{"saveFrame", msg.SaveFrame != "", func() error { return s.saveFrame(msg.SaveFrame) }},
	}
	for _, st := range steps {
		if !st.on {
			continue
		}
		if err := st.run(); err != nil {
			log.Debug().Err(err).Str("op", st.op).Msg("control rejected")
			s.pushDiag(diag.FromError(st.op, err))
			return
		}
	}
}

func (s *State) runTest(name string) error {
	kind, err := pattern.Parse(name)
	if err != nil {
		s.pushDiag(diag.Diagnostic{
			Severity: diag.Warn, Code: "TEST.UNKNOWN", Summary: "Unknown test name",
			Evidence: map[string]any{"name": name, "known": pattern.Kinds},
		})
		return nil
	}
	s.pushDiag(diag.Diagnostic{Severity: diag.Info, Code: "TEST.RUNNING", Summary: "Running test", Detail: name})
	return s.Core.RunPattern(pattern.Plan{Kind: kind})
}

// saveFrame stores the work frame in the library and, with a config path,
// persists it.
func (s *State) saveFrame(name string) error {
	rows := gridRows(s.Core.Work())
	if err := s.Core.AddFrame(name, rows); err != nil {
		return err
	}
	if s.Config == nil || s.ConfigPath == "" {
		return nil
	}
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	if s.Config.Frames == nil {
		s.Config.Frames = map[string][][]int{}
	}
	s.Config.Frames[name] = rows
	if err := config.Save(s.ConfigPath, s.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func (s *State) sendTopology(c *client) {
	sched := s.Core.Display.Scheduler()
	top := map[string]any{
		"rows":      model.Rows,
		"cols":      model.Cols,
		"max_level": sched.MaxLevel(),
		"weights":   sched.Weights(),
		"layout":    s.Layout.Name(),
		"matrix":    map[string]int{"rows": s.Layout.Rows(), "cols": s.Layout.Cols()},
		"frames":    s.Core.FrameNames(),
		"driver":    s.CurrentDriver,
	}
	b, _ := json.Marshal(top)
	_ = c.send(b)
}

func (s *State) sendStatus(c *client) {
	st := map[string]any{
		"mode":   s.Core.Mode(),
		"levels": gridRows(s.Core.Levels()),
		"frames": s.Core.FrameNames(),
	}
	b, _ := json.Marshal(st)
	_ = c.send(b)
}

func (s *State) broadcastFrame(f frame) {
	b, _ := json.Marshal(f)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		if err := c.send(b); err != nil {
			log.Debug().Err(err).Msg("write frame")
		}
	}
}

func (s *State) pushDiag(d diag.Diagnostic) {
	b, _ := json.Marshal(d)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.diagClients {
		_ = c.send(b)
	}
}

func gridRows(g model.Grid) [][]int {
	out := make([][]int, model.Rows)
	for r := range g {
		out[r] = make([]int, model.Cols)
		for c, l := range g[r] {
			out[r][c] = int(l)
		}
	}
	return out
}
