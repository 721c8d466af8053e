package renderer

import (
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"

	"gfxcore/internal/graphics"
	"gfxcore/internal/graphics/lights"
)

// ShadowMapPass renders the casters seen by the main directional light into
// a depth map and publishes it in the environment for receiving materials.
type ShadowMapPass struct {
	PassBase

	MapSize   int
	DepthBias float32

	material *graphics.DepthMaterial
	target   graphics.RenderTarget
	frustum  lights.ShadowFrustum
	fitted   bool
}

func NewShadowMapPass(mapSize int, depthBias float32) *ShadowMapPass {
	if mapSize <= 0 {
		mapSize = lights.DefaultShadowMapSize
	}
	return &ShadowMapPass{
		PassBase:  PassBase{Name: string(graphics.PassKindShadowMap)},
		MapSize:   mapSize,
		DepthBias: depthBias,
		material:  &graphics.DepthMaterial{},
	}
}

// ViewFrustum fits the main light's shadow volume to a map of MapSize texels.
func (p *ShadowMapPass) ViewFrustum(ctx *DrawingContext) (mgl32.Mat4, mgl32.Mat4, bool) {
	p.fitted = false
	l := ctx.DirectionalLights().At(0)
	if !l.Enabled || !l.CastShadow {
		return mgl32.Mat4{}, mgl32.Mat4{}, false
	}
	sf, ok := l.FitShadowFrustum(ctx, ctx.FindShadowCasters, p.MapSize)
	if !ok {
		return mgl32.Mat4{}, mgl32.Mat4{}, false
	}
	p.frustum, p.fitted = sf, true
	return sf.View, sf.Projection, true
}

// Frustum returns the volume fitted this frame.
func (p *ShadowMapPass) Frustum() (lights.ShadowFrustum, bool) { return p.frustum, p.fitted }

// Target returns the depth map, nil before the first shadowed frame.
func (p *ShadowMapPass) Target() graphics.RenderTarget { return p.target }

func (p *ShadowMapPass) Draw(ctx *DrawingContext, drawables []graphics.Drawable) error {
	if !p.fitted {
		return nil
	}
	if err := p.ensureTarget(ctx.Device()); err != nil {
		return err
	}

	dev := ctx.Device()
	dev.PushRenderTarget(p.target)
	defer dev.PopRenderTarget()
	dev.Clear(color.RGBA{255, 255, 255, 255})

	restore := dev.RasterizerState()
	defer dev.SetRasterizerState(restore)
	rs := restore
	rs.DepthBias = p.DepthBias
	dev.SetRasterizerState(rs)

	ctx.useMaterial(p.material)
	for _, d := range drawables {
		if sc, ok := d.(graphics.ShadowCaster); ok && !sc.CastShadow() {
			continue
		}
		if err := d.Draw(ctx, p.material); err != nil {
			return err
		}
	}

	ctx.Environment().Shadow = graphics.ShadowState{
		Enabled:             true,
		Map:                 p.target,
		LightViewProjection: p.frustum.ViewProjection(),
	}
	return nil
}

func (p *ShadowMapPass) ensureTarget(dev graphics.Device) error {
	t := p.target
	if t != nil && !t.Disposed() && !t.ContentLost() && t.Width() == p.MapSize {
		return nil
	}
	if t != nil {
		t.Dispose()
	}
	t, err := dev.CreateRenderTarget(p.MapSize, p.MapSize, false, graphics.FormatSingle, graphics.Depth24, 0)
	if err != nil {
		p.target = nil
		return fmt.Errorf("shadow map %d: %w", p.MapSize, err)
	}
	p.target = t
	return nil
}

// Dispose releases the depth map.
func (p *ShadowMapPass) Dispose() {
	if p.target != nil {
		p.target.Dispose()
		p.target = nil
	}
}
