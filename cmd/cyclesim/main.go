package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/tinymatrix/display"
	"github.com/coreman2200/tinymatrix/internal/app"
	"github.com/coreman2200/tinymatrix/internal/config"
	"github.com/coreman2200/tinymatrix/internal/led"
	"github.com/coreman2200/tinymatrix/internal/sequence"
	"github.com/coreman2200/tinymatrix/render"
)

func main() {
	var (
		maxLevel   int
		configPath string
		fps        int
	)
	flag.IntVar(&maxLevel, "max-level", 9, "brightest level encoded")
	flag.StringVar(&configPath, "config", "", "config.yaml whose program (and frames) to simulate")
	flag.IntVar(&fps, "fps", 10, "simulated timeline steps per second")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	sched, err := render.New(maxLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler")
	}
	printTable(sched)

	if configPath == "" {
		return
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("config")
	}
	if cfg.Program == nil {
		log.Fatal().Str("path", configPath).Msg("config has no program")
	}
	simulate(sched, cfg, fps)
}

// printTable shows the sub-frame weights, the plane at each cycle position,
// and which positions light each level.
func printTable(s *render.Scheduler) {
	fmt.Printf("weights %v  cycle %d\n\n", s.Weights(), s.CycleLength())
	fmt.Print("plane  ")
	for pos := 0; pos < s.CycleLength(); pos++ {
		fmt.Print(s.PlaneAt(pos))
	}
	fmt.Println()
	for l := 0; l <= s.MaxLevel(); l++ {
		var sb strings.Builder
		for pos := 0; pos < s.CycleLength(); pos++ {
			if s.LitAt(l, pos) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		fmt.Printf("L%-3d   %s  %d/%d\n", l, sb.String(), s.LitCount(l), s.CycleLength())
	}
}

// simulate plays the program in simulated time, printing the image each time
// it changes along with the duty a simulated matrix measured for it.
func simulate(sched *render.Scheduler, cfg *config.Config, fps int) {
	disp := display.New(sched)
	core, err := app.NewCore(disp, cfg.Frames)
	if err != nil {
		log.Fatal().Err(err).Msg("core")
	}
	if err := core.Play(*cfg.Program); err != nil {
		log.Fatal().Err(err).Msg("load program")
	}

	sim := led.NewSim()
	dt := time.Second / time.Duration(fps)
	var last string
	for step := 0; step < 100000; step++ {
		levels := core.Levels()
		sim.Reset()
		for i := 0; i < sched.CycleLength(); i++ {
			_ = sim.Write(disp.Tick())
		}
		if s := fmt.Sprint(levels); s != last {
			last = s
			fmt.Printf("\nt=%.2fs\n", float64(step)*dt.Seconds())
			duty := sim.Duty()
			for r := range levels {
				for c := range levels[r] {
					fmt.Printf("%d(%3.0f%%) ", levels[r][c], duty[r][c]*100)
				}
				fmt.Println()
			}
		}

		var state sequence.PlayerState
		core.Seq.With(func(p *sequence.Player) { state = p.State })
		if state == sequence.Idle {
			fmt.Printf("\ndone at t=%.2fs\n", float64(step)*dt.Seconds())
			return
		}
		core.Step(dt)
	}
	log.Warn().Msg("program still running after 100000 steps; stopping")
}
