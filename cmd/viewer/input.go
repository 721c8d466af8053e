package main

import (
	"github.com/go-gl/glfw/v3.3/glfw"

	"gfxcore/internal/config"
)

// Key bindings:
//
//	F1  diagnostics overlay
//	F2  stats overlay
//	G   shadows
//	E   pass-through post effect
//	P   pause the animation
//	Esc quit
func setupInput(v *viewer) {
	v.window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyF1:
			v.apply(config.Update(func(s *config.Settings) { s.Render.ShowDiagnostics = !s.Render.ShowDiagnostics }))
		case glfw.KeyF2:
			v.apply(config.Update(func(s *config.Settings) { s.Render.ShowStats = !s.Render.ShowStats }))
		case glfw.KeyG:
			v.apply(config.Update(func(s *config.Settings) { s.Shadow.Enabled = !s.Shadow.Enabled }))
		case glfw.KeyE:
			v.togglePostEffect()
		case glfw.KeyP:
			v.paused = !v.paused
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		}
	})

	v.window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		if width == 0 || height == 0 {
			return
		}
		v.device.Resize(width, height)
		v.scene.Resize(width, height)
	})
}
