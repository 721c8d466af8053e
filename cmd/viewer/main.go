// Command viewer opens a window and renders the demo scene with the OpenGL
// device. Settings come from a TOML file that is reloaded when it changes.
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/xlab/closer"

	"gfxcore/internal/config"
	"gfxcore/internal/demo"
	"gfxcore/internal/graphics/opengl"
	"gfxcore/internal/graphics/renderer"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "gfxcore.toml", "settings file, created with defaults when missing")
	flag.Parse()

	defer closer.Close()

	settings, err := loadSettings(*configPath)
	if err != nil {
		slog.Error("settings", "path", *configPath, "err", err)
		closer.Exit(1)
	}
	settings = config.Set(settings)

	var level slog.LevelVar
	level.Set(settings.Log.SlogLevel())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level}))
	slog.SetDefault(logger)

	if err := glfw.Init(); err != nil {
		logger.Error("glfw", "err", err)
		closer.Exit(1)
	}
	closer.Bind(glfw.Terminate)

	window, err := setupWindow(settings.Window)
	if err != nil {
		logger.Error("window", "err", err)
		closer.Exit(1)
	}
	width, height := window.GetFramebufferSize()

	dev, err := opengl.NewDevice(width, height, logger)
	if err != nil {
		logger.Error("device", "err", err)
		closer.Exit(1)
	}
	closer.Bind(dev.Close)

	ctx, err := renderer.NewDrawingContext(dev, nil, settings, logger)
	if err != nil {
		logger.Error("drawing context", "err", err)
		closer.Exit(1)
	}
	closer.Bind(ctx.Close)

	scene, err := demo.Build(ctx, width, height)
	if err != nil {
		logger.Error("demo scene", "err", err)
		closer.Exit(1)
	}
	closer.Bind(scene.Close)
	ctx.SetCamera(scene.Camera)

	// Reloads arrive on the watcher goroutine; the render loop applies them.
	reloads := make(chan config.Settings, 1)
	watchCtx, cancel := context.WithCancel(context.Background())
	closer.Bind(cancel)
	err = config.Watch(watchCtx, *configPath, logger, func(s config.Settings) {
		level.Set(s.Log.SlogLevel())
		select {
		case <-reloads:
		default:
		}
		reloads <- s
	})
	if err != nil {
		logger.Warn("settings will not be reloaded", "err", err)
	}

	v := &viewer{
		window: window,
		device: dev,
		ctx:    ctx,
		scene:  scene,
		logger: logger,
	}
	setupInput(v)
	if err := v.run(reloads); err != nil {
		logger.Error("render", "err", err)
		closer.Exit(1)
	}
}

// loadSettings reads path, writing the defaults there first when it does not
// exist yet so the watcher has a file to follow.
func loadSettings(path string) (config.Settings, error) {
	s, err := config.Load(path)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return config.Settings{}, err
	}
	s = config.Default()
	if err := config.Save(path, s); err != nil {
		return config.Settings{}, err
	}
	return s, nil
}
