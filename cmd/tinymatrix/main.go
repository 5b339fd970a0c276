package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/coreman2200/tinymatrix/display"
	"github.com/coreman2200/tinymatrix/internal/app"
	"github.com/coreman2200/tinymatrix/internal/config"
	"github.com/coreman2200/tinymatrix/internal/led"
	"github.com/coreman2200/tinymatrix/internal/ws"
	"github.com/coreman2200/tinymatrix/layout"
	"github.com/coreman2200/tinymatrix/render"
)

func main() {
	// ---- Flags (config.yaml overrides where set) ----
	var (
		driver     = flag.String("driver", "sim", "driver: sim | gpio | cdev | serial | strip | console")
		tickHz     = flag.Int("tick-hz", 2000, "scheduler ticks per second")
		maxLevel   = flag.Int("max-level", 9, "brightest level encoded (1..9)")
		layoutName = flag.String("layout", "microbit-v1", "matrix wiring: direct | microbit-v1")
		addr       = flag.String("addr", ":8080", "HTTP listen address")
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		preview    = flag.Bool("preview", true, "mirror every tick to the websocket preview")
		debug      = flag.Bool("debug", false, "debug logging")
		initCfg    = flag.Bool("init", false, "write a default config.yaml and exit")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if *initCfg {
		if err := config.Save(*configPath, config.Default()); err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("write config")
		}
		log.Info().Str("path", *configPath).Msg("default config written")
		return
	}

	// ---- Load config.yaml (optional) ----
	cfg := &config.Config{}
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
	} else {
		cfg = c
	}

	// ---- Effective params: flags first, non-zero config values win ----
	if cfg.Driver == "" {
		cfg.Driver = *driver
	}
	if cfg.TickHz == 0 {
		cfg.TickHz = *tickHz
	}
	if cfg.MaxLevel == 0 {
		cfg.MaxLevel = *maxLevel
	}
	if cfg.Layout == "" {
		cfg.Layout = *layoutName
	}
	if cfg.Addr == "" {
		cfg.Addr = *addr
	}
	if err := cfg.Check(); err != nil {
		log.Fatal().Err(err).Msg("invalid settings")
	}

	sched, err := render.New(cfg.MaxLevel)
	if err != nil {
		log.Fatal().Err(err).Int("max_level", cfg.MaxLevel).Msg("scheduler")
	}
	lay, err := layout.ByName(cfg.Layout)
	if err != nil {
		log.Fatal().Err(err).Msg("layout")
	}
	disp := display.New(sched)
	log.Info().Ints("weights", sched.Weights()).Int("cycle", sched.CycleLength()).
		Str("layout", lay.Name()).Msg("scheduler ready")

	// ---- Core & timeline ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	core, err := app.InitCore(ctx, disp, cfg.Frames, cfg.Program, 60)
	if err != nil {
		log.Fatal().Err(err).Msg("core init failed")
	}

	// ---- Driver selection, falling back to SIM ----
	drv, selected := openDriver(cfg, lay, sched.CycleLength())

	state := ws.NewState(core, lay, cfg.TickHz)
	state.Config = cfg
	state.ConfigPath = *configPath
	state.CurrentDriver = selected

	var sink led.Driver = drv
	if *preview {
		sink = led.Tee{drv, state}
	}

	// ---- HTTP routes ----
	mux := http.NewServeMux()
	state.Routes(mux)
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      withCORS(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ---- Run tick loop & server ----
	period := time.Second / time.Duration(cfg.TickHz)
	loopDone := make(chan error, 1)
	go func() { loopDone <- disp.Run(ctx, period, sink) }()
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("driver", selected).Int("tick_hz", cfg.TickHz).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	// ---- Graceful shutdown ----
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info().Str("signal", s.String()).Msg("shutting down")

	cancel()
	if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Msg("tick loop")
	}
	_ = srv.Close()
	core.Close()
	if err := sink.Close(); err != nil {
		log.Warn().Err(err).Msg("driver close")
	}
	st := disp.Stats()
	log.Info().Uint64("ticks", st.Ticks).Uint64("cycles", st.Cycles).Msg("stopped")
}

// openDriver builds the configured driver. Hardware that fails to open
// degrades to the simulator.
func openDriver(cfg *config.Config, lay *layout.Layout, cycle int) (led.Driver, string) {
	fallback := func(err error, name string) (led.Driver, string) {
		log.Warn().Err(err).Str("driver", name).Msg("driver init failed; falling back to SIM")
		return led.NewSim(), "sim"
	}

	switch cfg.Driver {
	case "sim":
		return led.NewSim(), "sim"

	case "gpio":
		if _, err := host.Init(); err != nil {
			return fallback(err, "gpio")
		}
		rows, err := led.PinsByName(cfg.GPIO.Rows)
		if err != nil {
			return fallback(err, "gpio")
		}
		cols, err := led.PinsByName(cfg.GPIO.Cols)
		if err != nil {
			return fallback(err, "gpio")
		}
		d, err := led.NewGPIO(lay, rows, cols, led.GPIOOpts{
			ActiveLowCols: cfg.GPIO.ActiveLowCols,
			Dwell:         time.Duration(cfg.GPIO.DwellUs) * time.Microsecond,
		})
		if err != nil {
			return fallback(err, "gpio")
		}
		return d, "gpio"

	case "cdev":
		chip := cfg.Cdev.Chip
		if chip == "" {
			chip = "gpiochip0"
		}
		d, err := led.NewCdev(chip, lay, cfg.Cdev.Rows, cfg.Cdev.Cols, cfg.Cdev.ActiveLowCols)
		if err != nil {
			return fallback(err, "cdev")
		}
		return d, "cdev"

	case "serial":
		baud := cfg.Serial.Baud
		if baud == 0 {
			baud = 115200
		}
		d, err := led.NewSerial(cfg.Serial.Port, baud, lay)
		if err != nil {
			return fallback(err, "serial")
		}
		return d, "serial"

	case "strip":
		if _, err := host.Init(); err != nil {
			return fallback(err, "strip")
		}
		d, err := led.NewStrip(led.StripOpts{
			Port:      cfg.Strip.SPI,
			Freq:      physic.Frequency(cfg.Strip.Hz) * physic.Hertz,
			Intensity: byte(cfg.Strip.Intensity),
		})
		if err != nil {
			return fallback(err, "strip")
		}
		return d, "strip"

	case "console":
		return led.NewConsole(cycle), "console"

	default:
		log.Warn().Str("driver", cfg.Driver).Msg("unknown driver; using SIM")
		return led.NewSim(), "sim"
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
