package renderer

import (
	"fmt"
	"image/color"

	"gfxcore/internal/config"
	"gfxcore/internal/graphics"
	"gfxcore/internal/graphics/lights"
	"gfxcore/internal/graphics/primitives"
)

const (
	diagnosticsDepthBias = 0.0002
	lightTessellation    = 24
)

// DiagnosticsPass outlines the scene bounds, every drawable in view, the
// shadow volume of the frame and the local lights in view. LineWidth is in
// pixels; zero draws hairlines.
type DiagnosticsPass struct {
	PassBase

	SceneColor    color.RGBA
	DrawableColor color.RGBA
	ShadowColor   color.RGBA
	LightColor    color.RGBA
	LineWidth     float32

	batch  *primitives.DynamicPrimitive
	lights []*lights.Light
}

func NewDiagnosticsPass() *DiagnosticsPass {
	b := primitives.NewDynamicPrimitive()
	b.DepthBias = diagnosticsDepthBias
	p := &DiagnosticsPass{
		PassBase:      PassBase{Name: string(graphics.PassKindDiagnostics)},
		SceneColor:    color.RGBA{255, 255, 0, 255},
		DrawableColor: color.RGBA{0, 255, 255, 255},
		ShadowColor:   color.RGBA{255, 0, 255, 255},
		LightColor:    color.RGBA{255, 160, 0, 255},
		LineWidth:     1,
		batch:         b,
	}
	p.SetOrder(diagnosticsPassOrder)
	return p
}

func (p *DiagnosticsPass) configure(s config.PrimitiveSettings) {
	p.batch.InitialBufferCapacity = s.InitialBufferCapacity
	p.batch.MaxBufferSizePerPrimitive = s.MaxBufferSizePerPrimitive
}

// Lines returns the batch built by the last Draw.
func (p *DiagnosticsPass) Lines() *primitives.DynamicPrimitive { return p.batch }

func (p *DiagnosticsPass) Draw(ctx *DrawingContext, drawables []graphics.Drawable) error {
	p.batch.Clear()
	if err := p.build(ctx, drawables); err != nil {
		p.batch.Clear()
		return fmt.Errorf("diagnostics: %w", err)
	}
	ctx.useMaterial(p.batch.Material())
	return p.batch.Draw(ctx, nil)
}

func (p *DiagnosticsPass) build(ctx *DrawingContext, drawables []graphics.Drawable) error {
	if b := ctx.Bounds(); !b.IsEmpty() {
		if err := p.batch.AddBox(b, nil, p.SceneColor, p.LineWidth); err != nil {
			return err
		}
	}
	for _, d := range drawables {
		sp, ok := d.(graphics.Spatial)
		if !ok {
			continue
		}
		b := sp.BoundingBox()
		if b.IsEmpty() {
			continue
		}
		if err := p.batch.AddBox(b, nil, p.DrawableColor, p.LineWidth); err != nil {
			return err
		}
	}
	if s := ctx.Environment().Shadow; s.Enabled {
		f := graphics.NewBoundingFrustum(s.LightViewProjection)
		if err := p.batch.AddFrustum(f, nil, p.ShadowColor, p.LineWidth); err != nil {
			return err
		}
	}

	p.lights = ctx.LocalLightsInView(p.lights[:0])
	defer clear(p.lights)
	for _, l := range p.lights {
		if err := p.addLight(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

// addLight outlines a point light's range as a sphere and a spot light's
// cone as its shadow frustum.
func (p *DiagnosticsPass) addLight(ctx *DrawingContext, l *lights.Light) error {
	if l.Kind == lights.Spot {
		if sf, ok := l.UpdateShadowFrustum(ctx, nil); ok {
			return p.batch.AddFrustum(sf.Frustum, nil, p.LightColor, p.LineWidth)
		}
	}
	return p.batch.AddSphere(l.Position, l.Range, lightTessellation, p.LightColor, p.LineWidth)
}

// Dispose releases the batch buffers.
func (p *DiagnosticsPass) Dispose() { p.batch.Dispose() }
