// Package config loads renderer settings from TOML and keeps the process
// wide current value behind a lock.
package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// WindowSettings configures the viewer window.
type WindowSettings struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`
	VSync  bool   `toml:"vsync"`
	MaxFPS int    `toml:"max_fps"` // 0 disables the limiter
}

// RenderSettings configures the DrawingContext.
type RenderSettings struct {
	TextureFilter    string     `toml:"texture_filter"` // linear, point or anisotropic
	MaxAnisotropy    int        `toml:"max_anisotropy"`
	BackgroundColor  [3]float32 `toml:"background_color"`
	AmbientLight     [3]float32 `toml:"ambient_light"`
	TransparencySort bool       `toml:"transparency_sort"`
	ShowDiagnostics  bool       `toml:"show_diagnostics"`
	ShowStats        bool       `toml:"show_stats"`
}

type ShadowSettings struct {
	Enabled   bool    `toml:"enabled"`
	MapSize   int     `toml:"map_size"`
	DepthBias float32 `toml:"depth_bias"`
}

type PrimitiveSettings struct {
	InitialBufferCapacity     int     `toml:"initial_buffer_capacity"`
	MaxBufferSizePerPrimitive int     `toml:"max_buffer_size_per_primitive"`
	DepthBias                 float32 `toml:"depth_bias"`
}

type FogSettings struct {
	Enabled bool       `toml:"enabled"`
	Color   [3]float32 `toml:"color"`
	Start   float32    `toml:"start"`
	End     float32    `toml:"end"`
}

type RenderTargetSettings struct {
	// MaxIdleFrames is how long an unlocked pooled target survives unused.
	MaxIdleFrames int `toml:"max_idle_frames"`
}

type LogSettings struct {
	Level string `toml:"level"`
}

// Settings is the whole configuration file.
type Settings struct {
	Window        WindowSettings       `toml:"window"`
	Render        RenderSettings       `toml:"render"`
	Shadow        ShadowSettings       `toml:"shadow"`
	Primitives    PrimitiveSettings    `toml:"primitives"`
	Fog           FogSettings          `toml:"fog"`
	RenderTargets RenderTargetSettings `toml:"render_targets"`
	Log           LogSettings          `toml:"log"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Window: WindowSettings{Width: 900, Height: 600, Title: "gfxcore", VSync: true, MaxFPS: 0},
		Render: RenderSettings{
			TextureFilter:    "linear",
			MaxAnisotropy:    4,
			BackgroundColor:  [3]float32{95.0 / 255, 120.0 / 255, 157.0 / 255},
			AmbientLight:     [3]float32{0.2, 0.2, 0.2},
			TransparencySort: true,
		},
		Shadow:        ShadowSettings{Enabled: true, MapSize: 1024, DepthBias: 0.0005},
		Primitives:    PrimitiveSettings{InitialBufferCapacity: 32, MaxBufferSizePerPrimitive: 32768, DepthBias: 0.001},
		Fog:           FogSettings{Color: [3]float32{0.6, 0.7, 0.8}, Start: 50, End: 200},
		RenderTargets: RenderTargetSettings{MaxIdleFrames: 120},
		Log:           LogSettings{Level: "info"},
	}
}

// Clamp returns s with every value forced into its supported range.
func (s Settings) Clamp() Settings {
	s.Window.Width = clamp(s.Window.Width, 64, 16384)
	s.Window.Height = clamp(s.Window.Height, 64, 16384)
	s.Window.MaxFPS = clamp(s.Window.MaxFPS, 0, 1000)

	switch strings.ToLower(s.Render.TextureFilter) {
	case "linear", "point", "anisotropic":
		s.Render.TextureFilter = strings.ToLower(s.Render.TextureFilter)
	default:
		s.Render.TextureFilter = "linear"
	}
	s.Render.MaxAnisotropy = clamp(s.Render.MaxAnisotropy, 1, 16)

	s.Shadow.MapSize = clamp(s.Shadow.MapSize, 128, 8192)
	s.Shadow.DepthBias = max(s.Shadow.DepthBias, 0)

	s.Primitives.InitialBufferCapacity = clamp(s.Primitives.InitialBufferCapacity, 1, 1<<16)
	// Two segments of this size must still fit 16-bit indices.
	s.Primitives.MaxBufferSizePerPrimitive = clamp(s.Primitives.MaxBufferSizePerPrimitive, 4, 32768)
	s.Primitives.DepthBias = max(s.Primitives.DepthBias, 0)

	s.Fog.Start = max(s.Fog.Start, 0)
	s.Fog.End = max(s.Fog.End, s.Fog.Start)

	s.RenderTargets.MaxIdleFrames = clamp(s.RenderTargets.MaxIdleFrames, 1, 1<<20)
	return s
}

// SlogLevel parses the log level, falling back to info.
func (l LogSettings) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Parse decodes TOML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (Settings, error) {
	s := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	return s.Clamp(), nil
}

// Load reads and parses a settings file.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Save writes s as TOML.
func Save(path string, s Settings) error {
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

var (
	mu      sync.RWMutex
	current = Default()
)

// Current returns the process wide settings.
func Current() Settings {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Set clamps and stores s, returning the stored value.
func Set(s Settings) Settings {
	s = s.Clamp()
	mu.Lock()
	defer mu.Unlock()
	current = s
	return s
}

// Update applies fn to a copy of the current settings and stores the result.
func Update(fn func(*Settings)) Settings {
	mu.Lock()
	defer mu.Unlock()
	s := current
	fn(&s)
	current = s.Clamp()
	return current
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
