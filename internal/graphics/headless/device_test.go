package headless

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gfxcore/internal/graphics"
)

func TestDeviceValidatesIndexedDraws(t *testing.T) {
	d := NewDevice(64, 32)
	d.DrawIndexedPrimitives(graphics.TriangleList, 0, 0, 3, 0, 1)
	require.Len(t, d.Errors, 1, "no buffers bound")

	vb, err := d.CreateVertexBuffer(4, graphics.UsageDynamic)
	require.NoError(t, err)
	ib, err := d.CreateIndexBuffer(6, graphics.UsageDynamic)
	require.NoError(t, err)
	vb.SetData(make([]graphics.Vertex, 4), true)
	ib.SetData([]uint16{0, 1, 2, 2, 1, 3}, true)
	d.SetVertexBuffer(vb, 0)
	d.SetIndexBuffer(ib)

	d.Reset()
	d.DrawIndexedPrimitives(graphics.TriangleList, 0, 0, 4, 0, 2)
	assert.Empty(t, d.Errors)
	d.DrawIndexedPrimitives(graphics.TriangleList, 0, 0, 3, 0, 2)
	assert.Len(t, d.Errors, 1, "index 3 is outside the declared range")
	d.DrawIndexedPrimitives(graphics.TriangleList, 0, 0, 4, 3, 2)
	assert.Len(t, d.Errors, 2, "reads past the uploaded indices")

	assert.Len(t, d.Draws(), 3)
	assert.Equal(t, 4, d.Stats.DrawCalls)
}

func TestDeviceTargetStack(t *testing.T) {
	d := NewDevice(64, 32)
	assert.Equal(t, graphics.Viewport{Width: 64, Height: 32}, d.Viewport())

	rt, err := d.CreateRenderTarget(16, 8, false, graphics.FormatSingle, graphics.Depth24, 0)
	require.NoError(t, err)
	d.PushRenderTarget(rt)
	d.Clear(color.RGBA{A: 255})
	assert.Equal(t, graphics.Viewport{Width: 16, Height: 8}, d.Viewport())
	assert.Same(t, rt, d.CurrentTarget())
	assert.Same(t, rt, d.Commands[1].Target, "clears record their target")

	d.PopRenderTarget()
	assert.Nil(t, d.CurrentTarget())
	assert.Equal(t, 0, d.TargetDepth())
	d.PopRenderTarget()
	assert.Len(t, d.Errors, 1)

	_, err = d.CreateRenderTarget(0, 8, false, graphics.FormatColor, graphics.DepthNone, 0)
	assert.Error(t, err)
}

func TestDeviceStateRecording(t *testing.T) {
	d := NewDevice(8, 8)
	d.SetSamplerState(3, graphics.PointWrap)
	d.SetSamplerState(graphics.MaxSamplerSlots, graphics.PointWrap)
	assert.Equal(t, graphics.PointWrap, d.Sampler(3))

	rs := graphics.RasterizerState{DepthBias: 0.5, CullNone: true}
	d.SetRasterizerState(rs)
	assert.Equal(t, rs, d.RasterizerState())

	d.ApplyEffect(&graphics.EffectParameters{Alpha: 0.25})
	require.Equal(t, 1, d.Count(OpApplyEffect))
	assert.InDelta(t, 0.25, d.Commands[0].Effect.Alpha, 1e-6)

	tex, err := d.CreateTexture(image.NewRGBA(image.Rect(0, 0, 5, 7)))
	require.NoError(t, err)
	assert.Equal(t, 5, tex.Width())
	assert.Equal(t, 7, tex.Height())
	assert.Equal(t, 1, d.Stats.TexturesCreated)
}
