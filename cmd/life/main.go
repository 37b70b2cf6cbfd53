//go:build !nogpu

// Command life runs the Game of Life in a window.
//
// Every frame advances the simulation by one generation. Space pauses and
// resumes. When the configuration names a custom shader, saving the file
// rebuilds the simulation with the new source.
package main

import (
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/gogpu/gogpu"
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/life"
	"github.com/gogpu/life/backend/wgpu"
	"github.com/gogpu/life/gpucore"
	"github.com/gogpu/life/internal/config"
	"github.com/gogpu/life/internal/logging"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML or YAML configuration file")
		width      = flag.Int("width", 0, "grid width in cells")
		height     = flag.Int("height", 0, "grid height in cells")
		density    = flag.Float64("density", 0, "probability that a cell starts alive")
		seed       = flag.Uint64("seed", 0, "random seed (0: time based)")
		pattern    = flag.String("pattern", "", "plaintext pattern file")
		shader     = flag.String("shader", "", "custom WGSL module, reloaded on change")
		logLevel   = flag.String("loglevel", "", "debug, info, warn or error")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Grid.Width = *width
		case "height":
			cfg.Grid.Height = *height
		case "density":
			cfg.Seed.Density = *density
		case "seed":
			cfg.Seed.Random = *seed
		case "pattern":
			cfg.Seed.Pattern = *pattern
		case "shader":
			cfg.Render.Shader = *shader
		case "loglevel":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if cfg.Seed.Random == 0 && cfg.Seed.Pattern == "" {
		cfg.Seed.Random = uint64(time.Now().UnixNano())
	}

	logger := logging.New(os.Stderr, "life", cfg.LogLevel)
	life.SetLogger(logger)

	app := gogpu.NewApp(gogpu.DefaultConfig().
		WithTitle(cfg.Window.Title).
		WithSize(cfg.Window.Width, cfg.Window.Height).
		WithContinuousRender(false))

	v := &viewer{cfg: cfg, logger: logger}

	if cfg.Render.Shader != "" {
		w, err := config.Watch(cfg.Render.Shader)
		if err != nil {
			logger.Warn("shader hot reload disabled", "err", err)
		} else {
			v.watcher = w
			go v.watch()
		}
	}

	app.OnDraw(func(dc *gogpu.Context) {
		if v.frames == 0 {
			logger.Info("window ready", "backend", dc.Backend())
			v.anim = app.StartAnimation()
		}
		v.frames++
		if dc.Width() <= 0 || dc.Height() <= 0 {
			return
		}
		if v.sim == nil {
			if err := v.init(app.GPUContextProvider()); err != nil {
				logger.Error("init failed", "err", err)
				v.stopAnimation()
				return
			}
		}
		sw, sh := dc.SurfaceSize()
		v.draw(dc.SurfaceView(), uint32(sw), uint32(sh))
	})

	app.EventSource().OnKeyPress(func(key gpucontext.Key, _ gpucontext.Modifiers) {
		if key != gpucontext.KeySpace {
			return
		}
		if v.anim != nil {
			v.stopAnimation()
			logger.Info("paused", "step", v.step())
		} else {
			v.anim = app.StartAnimation()
			logger.Info("resumed")
		}
	})

	app.OnClose(v.close)

	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}

// viewer owns the device objects of the window. Everything but reload is
// touched only from the draw thread.
type viewer struct {
	cfg    config.Config
	logger *slog.Logger

	adapter *wgpu.Adapter
	surface *wgpu.FrameSurface
	sim     *life.Simulation

	watcher *config.Watcher
	reload  atomic.Bool

	anim   *gogpu.AnimationToken
	frames int
	last   time.Time
}

func (v *viewer) init(provider any) error {
	if provider == nil {
		return errors.New("no GPU context provider")
	}
	a, err := wgpu.NewFromProvider(provider)
	if err != nil {
		return err
	}
	s, err := wgpu.NewFrameSurface(a, gpucore.TextureFormatUndefined)
	if err != nil {
		a.Destroy()
		return err
	}
	sim, err := v.newSimulation(a, s)
	if err != nil {
		s.Destroy()
		a.Destroy()
		return err
	}
	v.adapter, v.surface, v.sim = a, s, sim
	return nil
}

func (v *viewer) newSimulation(a *wgpu.Adapter, s *wgpu.FrameSurface) (*life.Simulation, error) {
	opts, err := v.cfg.Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts, life.WithLabel("life window"))
	return life.New(a, s, v.cfg.Size(), opts...)
}

// draw attaches the frame's view and advances one generation.
func (v *viewer) draw(view any, width, height uint32) {
	if v.reload.Swap(false) {
		v.rebuild()
	}
	if err := v.surface.SetView(view, width, height); err != nil {
		v.logger.Error("surface view rejected", "err", err)
		return
	}

	now := time.Now()
	var dt float64
	if !v.last.IsZero() {
		dt = now.Sub(v.last).Seconds()
	}
	v.last = now

	err := v.sim.Advance(dt)
	switch {
	case err == nil:
	case errors.Is(err, life.ErrFrameSkipped):
		v.logger.Warn("frame skipped", "step", v.sim.Step(), "err", err)
	case errors.Is(err, life.ErrPresentFailed):
		v.logger.Warn("present failed", "step", v.sim.Step(), "err", err)
	case errors.Is(err, life.ErrDeviceLost):
		v.logger.Error("device lost, stopping", "err", err)
		v.stopAnimation()
	default:
		v.logger.Error("advance failed", "err", err)
	}
}

// rebuild swaps in a simulation built from the current shader file. The
// old simulation keeps running if the new one fails to build.
func (v *viewer) rebuild() {
	next, err := v.newSimulation(v.adapter, v.surface)
	if err != nil {
		v.logger.Error("shader reload failed", "shader", v.cfg.Render.Shader, "err", err)
		return
	}
	v.sim.Close()
	v.sim = next
	v.logger.Info("shader reloaded", "shader", v.cfg.Render.Shader, "sim", next.ID())
}

func (v *viewer) watch() {
	for {
		select {
		case _, ok := <-v.watcher.Changes():
			if !ok {
				return
			}
			v.reload.Store(true)
		case err, ok := <-v.watcher.Errors():
			if !ok {
				return
			}
			v.logger.Warn("shader watcher", "err", err)
		}
	}
}

func (v *viewer) step() uint64 {
	if v.sim == nil {
		return 0
	}
	return v.sim.Step()
}

func (v *viewer) stopAnimation() {
	if v.anim != nil {
		v.anim.Stop()
		v.anim = nil
	}
}

func (v *viewer) close() {
	v.stopAnimation()
	if v.watcher != nil {
		v.watcher.Close()
	}
	if v.sim != nil {
		v.logger.Info("closing", "step", v.sim.Step())
		v.sim.Close()
	}
	if v.surface != nil {
		v.surface.Destroy()
	}
	if v.adapter != nil {
		v.adapter.Destroy()
	}
}
