package renderer

import (
	"cmp"
	"image/color"
	"slices"

	"gfxcore/internal/graphics"
)

// DrawingPass draws the scene, opaque drawables first and transparent ones
// back to front.
type DrawingPass struct {
	PassBase

	ClearBackground         bool
	BackgroundColor         color.RGBA
	TransparencySortEnabled bool
	// Material replaces every drawable's material when set.
	Material graphics.Material

	opaque      []graphics.Drawable
	transparent []sortedDrawable
}

type sortedDrawable struct {
	drawable graphics.Drawable
	distance float32
}

func NewDrawingPass() *DrawingPass {
	return &DrawingPass{
		PassBase:                PassBase{Name: "main"},
		ClearBackground:         true,
		BackgroundColor:         color.RGBA{95, 120, 157, 255},
		TransparencySortEnabled: true,
	}
}

func (p *DrawingPass) DependentPasses(kinds graphics.PassKindSet) {
	if p.Material != nil {
		p.Material.DependentPasses(kinds)
	}
}

func (p *DrawingPass) Draw(ctx *DrawingContext, drawables []graphics.Drawable) error {
	if p.ClearBackground {
		ctx.Device().Clear(p.BackgroundColor)
	}

	clear(p.opaque)
	clear(p.transparent)
	p.opaque, p.transparent = p.opaque[:0], p.transparent[:0]

	eye := ctx.Matrices().CameraPosition()
	for _, d := range drawables {
		if !d.Visible() {
			continue
		}
		if !p.TransparencySortEnabled || !isTransparent(p.materialFor(d)) {
			p.opaque = append(p.opaque, d)
			continue
		}
		var dist float32
		if sp, ok := d.(graphics.Spatial); ok {
			dist = sp.BoundingBox().Center().Sub(eye).LenSqr()
		}
		p.transparent = append(p.transparent, sortedDrawable{d, dist})
	}
	slices.SortStableFunc(p.transparent, func(a, b sortedDrawable) int {
		return cmp.Compare(b.distance, a.distance)
	})

	for _, d := range p.opaque {
		if err := p.draw(ctx, d); err != nil {
			return err
		}
	}
	for _, t := range p.transparent {
		if err := p.draw(ctx, t.drawable); err != nil {
			return err
		}
	}
	return nil
}

func (p *DrawingPass) materialFor(d graphics.Drawable) graphics.Material {
	if p.Material != nil {
		return p.Material
	}
	return d.Material()
}

func (p *DrawingPass) draw(ctx *DrawingContext, d graphics.Drawable) error {
	m := p.materialFor(d)
	ctx.useMaterial(m)
	return d.Draw(ctx, p.Material)
}

func isTransparent(m graphics.Material) bool {
	t, ok := m.(graphics.Transparent)
	return ok && t.IsTransparent()
}

func toRGBA(c [3]float32) color.RGBA {
	return color.RGBA{
		R: uint8(min(max(c[0], 0), 1) * 255),
		G: uint8(min(max(c[1], 0), 1) * 255),
		B: uint8(min(max(c[2], 0), 1) * 255),
		A: 255,
	}
}
