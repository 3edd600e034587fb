// Command oxyfx runs a post-processing pipeline described by a TOML file.
//
// The pipeline comes from -pipeline, or a built-in demo when it is empty. With -headless the pipeline is rendered offline by the CPU backend and the last frame is
// written as a PNG. Without it the pipeline is shown in a GLFW window. Keys 1 to 9 toggle the
// matching pass, D and E toggle dithering and output encoding on every effect pass, P logs the
// last profiler report, Space pauses the clock and R resets it.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cogentcore.org/core/cli"
	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine"
	"github.com/Carmen-Shannon/oxy-fx/engine/camera"
	"github.com/Carmen-Shannon/oxy-fx/engine/config"
	"github.com/Carmen-Shannon/oxy-fx/engine/postprocessing"
	"github.com/Carmen-Shannon/oxy-fx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-fx/engine/window"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
)

const defaultPipeline = `
title = "oxy-fx"
width = 1280
height = 720

[[pass]]
kind = "render"

[[pass]]
kind = "effect"
dithering = true
  [[pass.effect]]
  kind = "bloom"
  params = { intensity = 1.5, threshold = 0.5 }

  [[pass.effect]]
  kind = "vignette"
  params = { darkness = 0.6 }

  [[pass.effect]]
  kind = "tone_mapping"
  params = { mode = "aces" }
`

// Config holds the command line settings of oxyfx.
type Config struct {

	// Pipeline is the TOML pipeline file. The built-in demo pipeline runs when it is empty.
	Pipeline string `posarg:"0" required:"-"`

	// Headless renders offline with the CPU backend.
	Headless bool

	// Frames is the number of frames rendered in headless mode.
	Frames int `default:"1"`

	// Out is the PNG written after a headless run.
	Out string `default:"frame.png"`

	// Preview downscales the written PNG to this width. 0 keeps the full size.
	Preview int

	// Debug logs at debug level.
	Debug bool

	// Watch hot reloads the effect shader files named in the pipeline.
	Watch bool

	// Profile is the profiler report interval in seconds. 0 disables profiling.
	Profile float64 `default:"5"`
}

func main() {
	opts := cli.DefaultOptions("oxyfx", "Runs a post-processing pipeline described by a TOML file.")
	cli.Run(opts, &Config{}, Run)
}

// Run renders the pipeline described by opts.
func Run(opts *Config) error {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(opts); err != nil {
		common.Logger().Error("oxyfx failed", "err", err)
		return err
	}
	return nil
}

func run(opts *Config) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	var prof profiler.Profiler
	if opts.Profile > 0 {
		prof = profiler.NewProfiler(profiler.WithInterval(time.Duration(opts.Profile * float64(time.Second))))
	}

	var win window.Window
	rendererOptions := []renderer.RendererBuilderOption{
		renderer.WithSize(cfg.Width, cfg.Height),
		renderer.WithPixelRatio(cfg.PixelRatio),
	}
	if !opts.Headless {
		win, err = window.NewWindow(window.WithTitle(cfg.Title), window.WithSize(cfg.Width, cfg.Height))
		if err != nil {
			return err
		}
		defer win.Close()
		rendererOptions = append(rendererOptions, renderer.WithSurface(win))
	}

	backend, err := cfg.BackendType()
	if err != nil {
		return err
	}
	r, err := renderer.NewRenderer(backend, rendererOptions...)
	if err != nil {
		return err
	}
	defer r.Dispose()

	cam := camera.NewCamera(camera.WithAspect(float32(cfg.Width) / float32(cfg.Height)))
	var composerOptions []postprocessing.ComposerBuilderOption
	if prof != nil {
		composerOptions = append(composerOptions, postprocessing.WithPassObserver(prof.ObservePass))
	}
	c, err := config.Build(cfg, r, demoScene(), cam, composerOptions...)
	if err != nil {
		return err
	}
	defer c.Dispose()

	if opts.Watch {
		w, err := shader.NewWatcher()
		if err != nil {
			return err
		}
		defer w.Close()
		n, err := config.WatchShaders(cfg, c, w)
		if err != nil {
			return err
		}
		common.Logger().Info("watching effect shaders", "count", n)
	}

	if opts.Headless {
		return renderOffline(opts, r, c, prof)
	}
	return renderWindowed(cfg, win, r, c, prof)
}

func loadConfig(opts *Config) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.Pipeline == "" {
		cfg, err = config.Parse([]byte(defaultPipeline))
	} else {
		cfg, err = config.Load(opts.Pipeline)
	}
	if err != nil {
		return nil, err
	}
	if opts.Headless {
		cfg.Backend = "headless"
	}
	return cfg, nil
}

// demoScene draws a few overlapping panels bright enough to bloom.
func demoScene() renderer.Scene {
	s := renderer.NewScene(
		renderer.Quad{X0: 0, Y0: 0, X1: 1, Y1: 1, Depth: 0.99, Color: common.RGBA(0.05, 0.06, 0.1, 1)},
		renderer.Quad{X0: 0.1, Y0: 0.25, X1: 0.45, Y1: 0.8, Depth: 0.4, Color: common.RGBA(0.9, 0.2, 0.1, 1)},
		renderer.Quad{X0: 0.35, Y0: 0.15, X1: 0.75, Y1: 0.6, Depth: 0.3, Color: common.RGBA(0.1, 0.7, 0.9, 1)},
		renderer.Quad{X0: 0.65, Y0: 0.78, X1: 0.72, Y1: 0.85, Depth: 0.1, Color: common.RGBA(4, 4, 3.5, 1)},
	)
	bg := common.Black
	s.SetBackground(&bg)
	return s
}

func renderOffline(opts *Config, r renderer.Renderer, c postprocessing.Composer, prof profiler.Profiler) error {
	if opts.Frames < 1 {
		return errors.New("oxyfx: -frames must be at least 1")
	}
	eng := engine.NewEngine(
		engine.WithMaxFrames(uint64(opts.Frames)),
		engine.WithProfiler(prof),
		engine.WithFrameCallback(c.Render),
	)
	start := time.Now()
	if err := eng.Run(); err != nil {
		return err
	}

	img, err := r.ReadPixels(nil)
	if err != nil {
		return err
	}
	if opts.Preview > 0 && opts.Preview < img.Bounds().Dx() {
		h := img.Bounds().Dy() * opts.Preview / img.Bounds().Dx()
		img = transform.Resize(img, opts.Preview, max(h, 1), transform.Linear)
	}
	if err := imgio.Save(opts.Out, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("oxyfx: write %s: %w", opts.Out, err)
	}
	common.Logger().Info("frame written",
		"path", opts.Out,
		"frames", eng.Frames(),
		"draws", r.Info().Draws,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

func renderWindowed(cfg *config.Config, win window.Window, r renderer.Renderer, c postprocessing.Composer, prof profiler.Profiler) error {
	// Input arrives on the window goroutine; frames drain it on the render goroutine.
	actions := make(chan func(), 16)
	queue := func(fn func()) {
		select {
		case actions <- fn:
		default:
		}
	}

	win.SetResizeCallback(func(width, height int) {
		queue(func() { c.SetSize(width, height, true) })
	})
	win.SetKeyDownCallback(func(keyCode uint32) {
		if i := common.DigitKey(keyCode); i >= 0 {
			queue(func() { togglePass(c, i) })
			return
		}
		switch keyCode {
		case common.KeyD:
			queue(func() {
				toggleEffectPasses(c, "dithering", postprocessing.EffectPass.Dithering, postprocessing.EffectPass.SetDithering)
			})
		case common.KeyE:
			queue(func() {
				toggleEffectPasses(c, "encode output", postprocessing.EffectPass.EncodeOutput, postprocessing.EffectPass.SetEncodeOutput)
			})
		case common.KeyP:
			if prof != nil {
				queue(func() { logReport(prof.LastReport()) })
			}
		case common.KeySpace:
			queue(func() { togglePause(c.Timer()) })
		case common.KeyR:
			queue(func() { c.Timer().Reset() })
		}
	})

	frame := func(float32) error {
	drain:
		for {
			select {
			case fn := <-actions:
				fn()
			default:
				break drain
			}
		}
		if err := c.Render(-1); err != nil {
			return err
		}
		return r.Present()
	}

	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithProfiler(prof),
		engine.WithFrameLimit(cfg.FrameLimit),
		engine.WithFrameCallback(frame),
	)
	return eng.Run()
}

func togglePass(c postprocessing.Composer, i int) {
	passes := c.Passes()
	if i >= len(passes) {
		return
	}
	p := passes[i]
	p.SetEnabled(!p.Enabled())
	common.Logger().Info("pass toggled", "pass", p.Name(), "enabled", p.Enabled())
}

// toggleEffectPasses flips a boolean setting on every effect pass.
func toggleEffectPasses(c postprocessing.Composer, setting string, get func(postprocessing.EffectPass) bool, set func(postprocessing.EffectPass, bool) error) {
	for _, p := range c.Passes() {
		ep, ok := p.(postprocessing.EffectPass)
		if !ok {
			continue
		}
		on := !get(ep)
		if err := set(ep, on); err != nil {
			common.Logger().Warn("toggle failed", "pass", ep.Name(), "setting", setting, "err", err)
			continue
		}
		common.Logger().Info("pass setting toggled", "pass", ep.Name(), "setting", setting, "on", on)
	}
}

func logReport(rep profiler.Report) {
	common.Logger().Info("last report", "fps", fmt.Sprintf("%.1f", rep.FPS), "rss_mb", fmt.Sprintf("%.1f", rep.RSSMB))
	for _, ps := range rep.Passes {
		common.Logger().Info("pass timing", "pass", ps.Name, "mean", ps.Mean(), "max", ps.Max)
	}
}

func togglePause(t postprocessing.Timer) {
	if t.TimeScale() == 0 {
		t.SetTimeScale(1)
	} else {
		t.SetTimeScale(0)
	}
	common.Logger().Info("clock", "scale", t.TimeScale())
}
