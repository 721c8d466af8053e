package main

import (
	"log/slog"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"gfxcore/internal/config"
	"gfxcore/internal/demo"
	"gfxcore/internal/graphics/opengl"
	"gfxcore/internal/graphics/renderer"
	"gfxcore/internal/profiling"
)

type viewer struct {
	window *glfw.Window
	device *opengl.Device
	ctx    *renderer.DrawingContext
	scene  *demo.Scene
	logger *slog.Logger

	paused     bool
	animTime   float32
	postEffect *renderer.PostEffect
	limiter    fpsLimiter
}

// apply pushes new settings into the context. Main thread only.
func (v *viewer) apply(s config.Settings) {
	v.ctx.ApplySettings(s)
	applySwapInterval(s.Window)
}

func (v *viewer) togglePostEffect() {
	if v.postEffect != nil {
		v.ctx.RemovePostEffect(v.postEffect)
		v.postEffect.Dispose()
		v.postEffect = nil
		v.logger.Info("post effect off")
		return
	}
	v.postEffect = renderer.NewPostEffect("passthrough")
	v.ctx.AddPostEffect(v.postEffect)
	v.logger.Info("post effect on")
}

func (v *viewer) run(reloads <-chan config.Settings) error {
	frames := 0
	lastFPSCheck := time.Now()
	lastTime := time.Now()

	for !v.window.ShouldClose() {
		profiling.ResetFrame()
		now := time.Now()
		dt := now.Sub(lastTime)
		lastTime = now

		select {
		case s := <-reloads:
			v.apply(s)
		default:
		}

		if !v.paused {
			v.animTime += float32(dt.Seconds())
		}
		v.scene.Update(v.animTime)

		if err := v.ctx.Draw(dt); err != nil {
			return err
		}
		frames++

		func() { defer profiling.Track("glfw.SwapBuffers")(); v.window.SwapBuffers() }()
		func() { defer profiling.Track("glfw.PollEvents")(); glfw.PollEvents() }()

		if time.Since(lastFPSCheck) >= time.Second {
			v.logger.Debug("fps", "frames", frames, "drawables", v.ctx.Stats().DrawablesInView)
			frames = 0
			lastFPSCheck = time.Now()
		}

		window := v.ctx.Settings().Window
		if !window.VSync {
			v.limiter.Wait(window.MaxFPS)
		}
	}
	return nil
}
