package demo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gfxcore/internal/config"
	"gfxcore/internal/graphics/headless"
	"gfxcore/internal/graphics/renderer"
)

func TestDemoSceneRenders(t *testing.T) {
	dev := headless.NewDevice(320, 240)
	ctx, err := renderer.NewDrawingContext(dev, nil, config.Default(), nil)
	require.NoError(t, err)
	defer ctx.Close()

	s, err := Build(ctx, 320, 240)
	require.NoError(t, err)
	ctx.SetCamera(s.Camera)
	assert.Equal(t, len(layout)+2, ctx.Scene().Len())
	assert.Len(t, ctx.LocalLights(), 2)

	for i := range 3 {
		s.Update(float32(i) * 0.5)
		require.NoError(t, ctx.Draw(16*time.Millisecond))
	}
	require.Empty(t, dev.Errors)
	assert.Equal(t, 3, ctx.CurrentFrame())
	assert.True(t, ctx.Environment().Shadow.Enabled, "the sun casts shadows")
	assert.NotEmpty(t, ctx.DrawablesInView())

	s.Close()
	assert.Equal(t, 0, ctx.Scene().Len())
	assert.Equal(t, 0, ctx.DirectionalLights().Len())
	assert.Empty(t, ctx.LocalLights())
}

func TestDemoSceneDiagnostics(t *testing.T) {
	dev := headless.NewDevice(320, 240)
	settings := config.Default()
	settings.Render.ShowDiagnostics = true
	ctx, err := renderer.NewDrawingContext(dev, nil, settings, nil)
	require.NoError(t, err)
	defer ctx.Close()

	s, err := Build(ctx, 320, 240)
	require.NoError(t, err)
	defer s.Close()
	ctx.SetCamera(s.Camera)
	s.Update(0)

	require.NoError(t, ctx.Draw(16*time.Millisecond))
	require.Empty(t, dev.Errors)
	assert.NotEmpty(t, ctx.LocalLightsInView(nil), "lamps are outlined")
	for _, d := range dev.Draws() {
		if d.Effect.LineThickness > 0 {
			return
		}
	}
	t.Fatal("no thick line draws")
}

func TestDemoSceneOrbit(t *testing.T) {
	dev := headless.NewDevice(100, 100)
	ctx, err := renderer.NewDrawingContext(dev, nil, config.Default(), nil)
	require.NoError(t, err)
	defer ctx.Close()

	s, err := Build(ctx, 100, 100)
	require.NoError(t, err)
	defer s.Close()

	s.Update(0)
	a := s.Camera.Position
	s.Update(1)
	assert.NotEqual(t, a, s.Camera.Position)
	assert.InDelta(t, 9, s.Camera.Position.Y(), 1e-5)

	s.Resize(200, 100)
	assert.InDelta(t, 2, s.Camera.AspectRatio, 1e-6)
}
