// Command framedump renders the demo scene against the recording device and
// writes the final stats overlay as a BMP image. It needs no GPU.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/xlab/closer"
	"golang.org/x/image/bmp"

	"gfxcore/internal/config"
	"gfxcore/internal/demo"
	"gfxcore/internal/graphics"
	"gfxcore/internal/graphics/headless"
	"gfxcore/internal/graphics/renderer"
)

var (
	overlayFg = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	overlayBg = color.RGBA{A: 255}
)

type options struct {
	configPath    string
	out           string
	frames        int
	width, height int
	diagnostics   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "optional settings file")
	flag.StringVar(&opts.out, "out", "frame.bmp", "where to write the stats overlay")
	flag.IntVar(&opts.frames, "frames", 60, "number of frames to render")
	flag.IntVar(&opts.width, "width", 900, "back buffer width")
	flag.IntVar(&opts.height, "height", 600, "back buffer height")
	flag.BoolVar(&opts.diagnostics, "diagnostics", false, "draw the diagnostics overlay")
	flag.Parse()

	defer closer.Close()
	if err := dump(opts, closer.Bind); err != nil {
		slog.Error("framedump", "err", err)
		closer.Exit(1)
	}
}

// dump renders the frames and writes the overlay to opts.out. Cleanups are
// handed to bind so they also run when the process exits early.
func dump(opts options, bind func(func())) error {
	settings := config.Default()
	if opts.configPath != "" {
		var err error
		if settings, err = config.Load(opts.configPath); err != nil {
			return fmt.Errorf("settings: %w", err)
		}
	}
	settings.Render.ShowDiagnostics = settings.Render.ShowDiagnostics || opts.diagnostics
	settings.Render.ShowStats = true

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: settings.Log.SlogLevel()}))

	dev := headless.NewDevice(opts.width, opts.height)
	ctx, err := renderer.NewDrawingContext(dev, nil, settings, logger)
	if err != nil {
		return fmt.Errorf("drawing context: %w", err)
	}
	bind(ctx.Close)

	lines, err := run(ctx, dev, opts, logger)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	f, err := os.Create(opts.out)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	bind(func() { f.Close() })
	if err := writeOverlay(f, lines); err != nil {
		return fmt.Errorf("output %s: %w", opts.out, err)
	}
	logger.Info("overlay written", "path", opts.out, "lines", len(lines))
	return nil
}

// run draws opts.frames frames of the demo scene at a fixed 60 Hz step and
// returns the stats lines of the last frame.
func run(ctx *renderer.DrawingContext, dev *headless.Device, opts options, logger *slog.Logger) ([]string, error) {
	scene, err := demo.Build(ctx, opts.width, opts.height)
	if err != nil {
		return nil, err
	}
	defer scene.Close()
	ctx.SetCamera(scene.Camera)

	const step = time.Second / 60
	for i := range opts.frames {
		dev.Reset()
		scene.Update(float32(i) * float32(step.Seconds()))
		if err := ctx.Draw(step); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		if len(dev.Errors) > 0 {
			return nil, fmt.Errorf("frame %d: %w", i, dev.Errors[0])
		}
	}

	logger.Info("frames rendered",
		"frames", opts.frames,
		"draws", len(dev.Draws()),
		"targets", dev.Count(headless.OpPushTarget),
		"effects", dev.Count(headless.OpApplyEffect))
	return ctx.StatsLines(), nil
}

func writeOverlay(w io.Writer, lines []string) error {
	return bmp.Encode(w, graphics.RasterizeText(lines, overlayFg, overlayBg))
}
