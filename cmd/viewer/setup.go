package main

import (
	"github.com/go-gl/glfw/v3.3/glfw"

	"gfxcore/internal/config"
)

func setupWindow(s config.WindowSettings) (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	window, err := glfw.CreateWindow(s.Width, s.Height, s.Title, nil, nil)
	if err != nil {
		return nil, err
	}
	window.MakeContextCurrent()
	applySwapInterval(s)
	return window, nil
}

func applySwapInterval(s config.WindowSettings) {
	if s.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
}
