package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gfxcore/internal/graphics"
	"gfxcore/internal/graphics/headless"
)

func TestPoolReusesUnlockedTargets(t *testing.T) {
	dev := headless.NewDevice(64, 64)
	pool := NewRenderTargetPool(dev, nil)
	desc := RenderTargetDesc{Width: 64, Height: 32, Format: graphics.FormatColor, Depth: graphics.Depth24}

	a, err := pool.Get(desc)
	require.NoError(t, err)
	assert.Equal(t, 32, a.Height())
	assert.Equal(t, graphics.Depth24, a.DepthFormat())

	again, err := pool.Get(desc)
	require.NoError(t, err)
	assert.Same(t, a, again, "unlocked targets are handed out again")

	pool.Lock(a)
	b, err := pool.Get(desc)
	require.NoError(t, err)
	assert.NotSame(t, a, b, "locked targets are skipped")
	assert.Equal(t, 1, pool.RefCount(a))
	assert.Equal(t, 0, pool.RefCount(b))

	other, err := pool.Get(RenderTargetDesc{Width: 64, Height: 32, Format: graphics.FormatSingle})
	require.NoError(t, err)
	assert.NotSame(t, b, other, "format is part of the key")

	pool.Unlock(a)
	pool.Unlock(a)
	assert.Equal(t, 0, pool.RefCount(a))
	got, err := pool.Get(desc)
	require.NoError(t, err)
	assert.Same(t, a, got)
	assert.Equal(t, 3, dev.Stats.RenderTargetsCreated)
}

func TestPoolIgnoresForeignTargets(t *testing.T) {
	dev := headless.NewDevice(64, 64)
	pool := NewRenderTargetPool(dev, nil)
	foreign, err := dev.CreateRenderTarget(8, 8, false, graphics.FormatColor, graphics.DepthNone, 0)
	require.NoError(t, err)

	pool.Lock(nil)
	pool.Unlock(nil)
	pool.Lock(foreign)
	assert.Equal(t, -1, pool.RefCount(foreign))
	assert.Equal(t, 0, pool.Len())

	_, err = pool.Get(RenderTargetDesc{Width: 0, Height: 8})
	assert.Error(t, err)
}

func TestPoolDropsLostTargets(t *testing.T) {
	dev := headless.NewDevice(64, 64)
	pool := NewRenderTargetPool(dev, nil)
	desc := RenderTargetDesc{Width: 16, Height: 16}

	a, err := pool.Get(desc)
	require.NoError(t, err)
	a.(*headless.RenderTarget).LoseContent()

	b, err := pool.Get(desc)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.True(t, a.Disposed())
	assert.Equal(t, 1, pool.Len())

	b.Dispose()
	c, err := pool.Get(desc)
	require.NoError(t, err)
	assert.NotSame(t, b, c)
	assert.Equal(t, 1, pool.Len())
}

func TestPoolKeepsLockedLostTargets(t *testing.T) {
	dev := headless.NewDevice(64, 64)
	pool := NewRenderTargetPool(dev, nil)
	desc := RenderTargetDesc{Width: 32, Height: 32}

	a, err := pool.Get(desc)
	require.NoError(t, err)
	pool.Lock(a)
	a.(*headless.RenderTarget).LoseContent()

	b, err := pool.Get(desc)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.False(t, a.Disposed(), "locked target is still in use")
	assert.Equal(t, 1, pool.RefCount(a))
	assert.Equal(t, 2, pool.Len())

	pool.Lock(a)
	pool.Unlock(a)
	assert.False(t, a.Disposed())

	pool.Unlock(a)
	assert.True(t, a.Disposed(), "released with the last lock")
	assert.Equal(t, -1, pool.RefCount(a))
	assert.Equal(t, 1, pool.Len())

	c, err := pool.Get(desc)
	require.NoError(t, err)
	assert.Same(t, b, c)
}

func TestPoolEvictsIdleTargets(t *testing.T) {
	dev := headless.NewDevice(64, 64)
	pool := NewRenderTargetPool(dev, nil)

	pool.SetFrame(0)
	idle, err := pool.Get(RenderTargetDesc{Width: 16, Height: 16})
	require.NoError(t, err)
	held, err := pool.Get(RenderTargetDesc{Width: 32, Height: 32})
	require.NoError(t, err)
	pool.Lock(held)

	assert.Equal(t, 0, pool.Evict(2, 2))
	assert.Equal(t, 1, pool.Evict(3, 2))
	assert.True(t, idle.Disposed())
	assert.False(t, held.Disposed(), "locked targets survive")
	assert.Equal(t, 1, pool.Len())

	pool.Close()
	assert.True(t, held.Disposed())
	assert.Equal(t, 0, pool.Len())
}
