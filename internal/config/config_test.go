package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverridesDefaults(t *testing.T) {
	s, err := Parse([]byte(`
[render]
texture_filter = "Anisotropic"
max_anisotropy = 8
show_diagnostics = true

[shadow]
map_size = 2048
`))
	require.NoError(t, err)

	assert.Equal(t, "anisotropic", s.Render.TextureFilter)
	assert.Equal(t, 8, s.Render.MaxAnisotropy)
	assert.True(t, s.Render.ShowDiagnostics)
	assert.Equal(t, 2048, s.Shadow.MapSize)
	assert.Equal(t, Default().Window, s.Window, "untouched sections keep their defaults")
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("[render]\nwireframe = true\n"))
	assert.Error(t, err)
}

func TestClamp(t *testing.T) {
	s := Default()
	s.Window.Width = 1
	s.Render.TextureFilter = "bilinear"
	s.Render.MaxAnisotropy = 64
	s.Shadow.MapSize = 10
	s.Primitives.MaxBufferSizePerPrimitive = 1 << 20
	s.Fog.Start, s.Fog.End = 100, 10

	c := s.Clamp()
	assert.Equal(t, 64, c.Window.Width)
	assert.Equal(t, "linear", c.Render.TextureFilter)
	assert.Equal(t, 16, c.Render.MaxAnisotropy)
	assert.Equal(t, 128, c.Shadow.MapSize)
	assert.Equal(t, 32768, c.Primitives.MaxBufferSizePerPrimitive)
	assert.Equal(t, float32(100), c.Fog.End)
}

func TestSetAndUpdate(t *testing.T) {
	defer Set(Default())

	s := Default()
	s.Render.MaxAnisotropy = 0
	stored := Set(s)
	assert.Equal(t, 1, stored.Render.MaxAnisotropy)
	assert.Equal(t, stored, Current())

	got := Update(func(s *Settings) { s.Shadow.MapSize = 1 << 30 })
	assert.Equal(t, 8192, got.Shadow.MapSize)
	assert.Equal(t, 8192, Current().Shadow.MapSize)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gfxcore.toml")
	want := Default()
	want.Render.ShowStats = true
	want.Log.Level = "debug"
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LogSettings{Level: "debug"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LogSettings{Level: "WARN"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogSettings{Level: "loud"}.SlogLevel())
}

func TestWatchReloads(t *testing.T) {
	defer Set(Default())

	dir := t.TempDir()
	path := filepath.Join(dir, "gfxcore.toml")
	require.NoError(t, os.WriteFile(path, []byte("[shadow]\nmap_size = 512\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan Settings, 4)
	require.NoError(t, Watch(ctx, path, nil, func(s Settings) {
		select {
		case changed <- s:
		default:
		}
	}))

	require.NoError(t, os.WriteFile(path, []byte("[shadow]\nmap_size = 4096\n"), 0o644))
	// A write can surface as several events, some seeing a truncated file.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-changed:
			if s.Shadow.MapSize == 4096 {
				return
			}
		case <-deadline:
			t.Fatal("no reload after write")
		}
	}
}
