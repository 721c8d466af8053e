package renderer

import (
	"fmt"

	"gfxcore/internal/graphics"
	"gfxcore/internal/graphics/primitives"
)

// PostEffect draws a full screen quad sampling the output of the previous
// stage with Material. It takes part in the frame only while Material is set.
type PostEffect struct {
	PassBase

	Material graphics.Material
	// SurfaceFormat is the preferred format of the target this effect
	// starts when another effect follows it.
	SurfaceFormat FormatHint
	// InputFormatHint is the format the previous stage should render in.
	InputFormatHint FormatHint
	// Width and Height fix the size of the target this effect starts.
	// Zero means the input size, or the viewport without input.
	Width, Height int
	// Scale multiplies the size when positive.
	Scale float32

	input graphics.Texture
	quad  *primitives.DynamicPrimitive
}

// NewPostEffect returns an effect that copies its input with a screen material.
func NewPostEffect(name string) *PostEffect {
	quad := primitives.NewDynamicPrimitive()
	quad.DepthBias = 0
	quad.InitialBufferCapacity = 6
	return &PostEffect{
		PassBase: PassBase{Name: name},
		Material: graphics.NewScreenMaterial(),
		quad:     quad,
	}
}

func (p *PostEffect) ActivePasses(result []Pass) []Pass {
	if p.Enabled() && p.Material != nil {
		result = append(result, p)
	}
	return result
}

func (p *PostEffect) DependentPasses(kinds graphics.PassKindSet) {
	if p.Material != nil {
		p.Material.DependentPasses(kinds)
	}
}

func (p *PostEffect) SetInputTexture(tex graphics.Texture) { p.input = tex }
func (p *PostEffect) InputTexture() graphics.Texture       { return p.input }
func (p *PostEffect) InputFormat() FormatHint              { return p.InputFormatHint }

// PrepareRenderTarget sizes the target from Width and Height, else the
// input, else the viewport, then applies Scale. The format comes from the
// next effect's hint, else SurfaceFormat, else the input, else the back buffer.
func (p *PostEffect) PrepareRenderTarget(ctx *DrawingContext, input graphics.Texture, hint FormatHint) (graphics.RenderTarget, error) {
	desc := RenderTargetDesc{Width: p.Width, Height: p.Height, Depth: graphics.DepthNone}
	if desc.Width <= 0 || desc.Height <= 0 {
		if input != nil {
			desc.Width, desc.Height = input.Width(), input.Height()
		} else {
			vp := ctx.Device().Viewport()
			desc.Width, desc.Height = vp.Width, vp.Height
		}
	}
	if p.Scale > 0 {
		desc.Width = max(1, int(float32(desc.Width)*p.Scale))
		desc.Height = max(1, int(float32(desc.Height)*p.Scale))
	}

	switch {
	case hint.Set:
		desc.Format = hint.Format
	case p.SurfaceFormat.Set:
		desc.Format = p.SurfaceFormat.Format
	case input != nil:
		desc.Format = input.Format()
	default:
		desc.Format = ctx.Device().BackBufferFormat()
	}
	return ctx.RenderTargets().Get(desc)
}

func (p *PostEffect) Draw(ctx *DrawingContext, _ []graphics.Drawable) error {
	pool := ctx.RenderTargets()
	pool.lockTexture(p.input)
	defer pool.unlockTexture(p.input)

	p.quad.Clear()
	if err := p.quad.AddQuad(-1, -1, 2, 2, p.input, white); err != nil {
		return fmt.Errorf("post effect quad: %w", err)
	}
	ctx.useMaterial(p.Material)
	return p.quad.Draw(ctx, p.Material)
}

// Dispose releases the quad buffers.
func (p *PostEffect) Dispose() { p.quad.Dispose() }
