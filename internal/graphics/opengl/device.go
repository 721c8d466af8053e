// Package opengl implements graphics.Device on an OpenGL 4.1 core context.
// Every method must be called on the thread that owns the context.
package opengl

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"gfxcore/internal/graphics"
)

const (
	diffuseUnit = 0
	shadowUnit  = 1
)

// Device issues renderer work to the current GL context.
type Device struct {
	logger *slog.Logger

	effect *program
	vao    uint32

	width, height int
	targets       []*RenderTarget

	vb         *VertexBuffer
	ib         *IndexBuffer
	rasterizer graphics.RasterizerState

	samplers      [graphics.MaxSamplerSlots]uint32
	samplerStates [graphics.MaxSamplerSlots]graphics.SamplerState
	maxAnisotropy float32
}

// NewDevice initializes GL function pointers, compiles the effect program and
// sets the default pipeline state. width and height are the framebuffer size.
func NewDevice(width, height int, logger *slog.Logger) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("init gl: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("opengl device",
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)))

	effect, err := newProgram(effectVertexSrc, effectFragmentSrc)
	if err != nil {
		return nil, err
	}
	d := &Device{logger: logger, effect: effect, width: width, height: height}

	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)
	for i := uint32(0); i < 4; i++ {
		gl.EnableVertexAttribArray(i)
	}

	gl.GenSamplers(graphics.MaxSamplerSlots, &d.samplers[0])
	gl.GetFloatv(gl.MAX_TEXTURE_MAX_ANISOTROPY, &d.maxAnisotropy)
	for slot := range d.samplers {
		d.SetSamplerState(slot, graphics.LinearWrap)
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	d.SetRasterizerState(graphics.RasterizerState{})

	effect.use()
	effect.setInt("uTexture", diffuseUnit)
	effect.setInt("uShadowMap", shadowUnit)
	return d, nil
}

// Resize records the new framebuffer size. The viewport follows when no
// render target is bound.
func (d *Device) Resize(width, height int) {
	d.width, d.height = width, height
	if len(d.targets) == 0 {
		gl.Viewport(0, 0, int32(width), int32(height))
	}
}

func (d *Device) CreateVertexBuffer(capacity int, usage graphics.BufferUsage) (graphics.VertexBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("vertex buffer capacity %d", capacity)
	}
	return newVertexBuffer(capacity, usage), nil
}

func (d *Device) CreateIndexBuffer(capacity int, usage graphics.BufferUsage) (graphics.IndexBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("index buffer capacity %d", capacity)
	}
	return newIndexBuffer(capacity, usage), nil
}

func (d *Device) CreateRenderTarget(width, height int, mipmap bool, format graphics.SurfaceFormat, depth graphics.DepthFormat, multiSample int) (graphics.RenderTarget, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("render target size %dx%d", width, height)
	}
	rt, err := newRenderTarget(width, height, mipmap, format, depth, multiSample)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("render target created", "width", width, "height", height, "format", format)
	return rt, nil
}

func (d *Device) CreateTexture(img *image.RGBA) (graphics.Texture, error) {
	if img == nil || img.Rect.Empty() {
		return nil, fmt.Errorf("empty texture image")
	}
	return newTexture(img), nil
}

// SetVertexBuffer binds vb and points the vertex attributes offset vertices
// into it.
func (d *Device) SetVertexBuffer(vb graphics.VertexBuffer, offset int) {
	b, _ := vb.(*VertexBuffer)
	d.vb = b
	if b == nil {
		return
	}
	gl.BindVertexArray(d.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.id)
	base, stride := offset*vertexSize, int32(vertexSize)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(base))
	gl.VertexAttribPointer(1, 4, gl.UNSIGNED_BYTE, true, stride, gl.PtrOffset(base+12))
	gl.VertexAttribPointer(2, 3, gl.FLOAT, false, stride, gl.PtrOffset(base+16))
	gl.VertexAttribPointer(3, 2, gl.FLOAT, false, stride, gl.PtrOffset(base+28))
}

func (d *Device) SetIndexBuffer(ib graphics.IndexBuffer) {
	b, _ := ib.(*IndexBuffer)
	d.ib = b
	gl.BindVertexArray(d.vao)
	if b == nil {
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)
		return
	}
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, b.id)
}

func glMode(t graphics.PrimitiveType) uint32 {
	switch t {
	case graphics.TriangleStrip:
		return gl.TRIANGLE_STRIP
	case graphics.LineList:
		return gl.LINES
	case graphics.LineStrip:
		return gl.LINE_STRIP
	}
	return gl.TRIANGLES
}

func (d *Device) DrawIndexedPrimitives(t graphics.PrimitiveType, baseVertex, minVertex, numVertices, startIndex, primitiveCount int) {
	if d.vb == nil || d.ib == nil || primitiveCount <= 0 {
		return
	}
	count := graphics.ElementCount(t, primitiveCount)
	gl.BindVertexArray(d.vao)
	gl.DrawRangeElementsBaseVertex(
		glMode(t),
		uint32(minVertex),
		uint32(minVertex+numVertices-1),
		int32(count),
		gl.UNSIGNED_SHORT,
		gl.PtrOffset(startIndex*2),
		int32(baseVertex),
	)
}

func (d *Device) DrawPrimitives(t graphics.PrimitiveType, startVertex, primitiveCount int) {
	if d.vb == nil || primitiveCount <= 0 {
		return
	}
	gl.BindVertexArray(d.vao)
	gl.DrawArrays(glMode(t), int32(startVertex), int32(graphics.ElementCount(t, primitiveCount)))
}

// PushRenderTarget binds rt and sizes the viewport to it. A foreign or
// disposed target keeps its stack slot but renders to the back buffer.
func (d *Device) PushRenderTarget(rt graphics.RenderTarget) {
	target, _ := rt.(*RenderTarget)
	if target == nil || target.Disposed() {
		d.logger.Warn("push of foreign or disposed render target")
		target = nil
	}
	d.targets = append(d.targets, target)
	d.bindTarget(target)
}

// PopRenderTarget restores the previous target and regenerates mipmaps of the
// one being left.
func (d *Device) PopRenderTarget() {
	if len(d.targets) == 0 {
		d.logger.Warn("pop on empty render target stack")
		return
	}
	left := d.targets[len(d.targets)-1]
	d.targets = d.targets[:len(d.targets)-1]
	if left != nil && left.mipmap && left.color != 0 {
		gl.BindTexture(gl.TEXTURE_2D, left.color)
		gl.GenerateMipmap(gl.TEXTURE_2D)
		gl.BindTexture(gl.TEXTURE_2D, 0)
	}
	if len(d.targets) == 0 {
		d.bindTarget(nil)
		return
	}
	d.bindTarget(d.targets[len(d.targets)-1])
}

func (d *Device) bindTarget(rt *RenderTarget) {
	if rt == nil {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.Viewport(0, 0, int32(d.width), int32(d.height))
		return
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, rt.fbo)
	gl.Viewport(0, 0, int32(rt.width), int32(rt.height))
}

func (d *Device) Clear(c color.RGBA) {
	gl.ClearColor(float32(c.R)/255, float32(c.G)/255, float32(c.B)/255, float32(c.A)/255)
	gl.DepthMask(true)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT | gl.STENCIL_BUFFER_BIT)
}

func (d *Device) Viewport() graphics.Viewport {
	if n := len(d.targets); n > 0 && d.targets[n-1] != nil {
		return graphics.Viewport{Width: d.targets[n-1].width, Height: d.targets[n-1].height}
	}
	return graphics.Viewport{Width: d.width, Height: d.height}
}

func (d *Device) BackBufferFormat() graphics.SurfaceFormat { return graphics.FormatColor }

// SetSamplerState configures the sampler object bound to a texture unit.
func (d *Device) SetSamplerState(slot int, s graphics.SamplerState) {
	if slot < 0 || slot >= len(d.samplers) {
		return
	}
	id := d.samplers[slot]
	minFilter, magFilter := int32(gl.LINEAR_MIPMAP_LINEAR), int32(gl.LINEAR)
	anisotropy := float32(1)
	switch s.Filter {
	case graphics.FilterPoint:
		minFilter, magFilter = gl.NEAREST_MIPMAP_NEAREST, gl.NEAREST
	case graphics.FilterAnisotropic:
		anisotropy = min(float32(max(s.MaxAnisotropy, 1)), max(d.maxAnisotropy, 1))
	}
	gl.SamplerParameteri(id, gl.TEXTURE_MIN_FILTER, minFilter)
	gl.SamplerParameteri(id, gl.TEXTURE_MAG_FILTER, magFilter)
	gl.SamplerParameteri(id, gl.TEXTURE_WRAP_S, wrapMode(s.AddressU))
	gl.SamplerParameteri(id, gl.TEXTURE_WRAP_T, wrapMode(s.AddressV))
	gl.SamplerParameterf(id, gl.TEXTURE_MAX_ANISOTROPY, anisotropy)
	gl.BindSampler(uint32(slot), id)
	d.samplerStates[slot] = s
}

func wrapMode(a graphics.TextureAddress) int32 {
	if a == graphics.AddressClamp {
		return gl.CLAMP_TO_EDGE
	}
	return gl.REPEAT
}

func (d *Device) RasterizerState() graphics.RasterizerState { return d.rasterizer }

// SetRasterizerState maps DepthBias onto glPolygonOffset in units of the
// smallest resolvable depth step of a 24 bit buffer.
func (d *Device) SetRasterizerState(s graphics.RasterizerState) {
	d.rasterizer = s
	if s.DepthBias != 0 {
		gl.Enable(gl.POLYGON_OFFSET_FILL)
		gl.Enable(gl.POLYGON_OFFSET_LINE)
		gl.PolygonOffset(0, -s.DepthBias*(1<<24))
	} else {
		gl.Disable(gl.POLYGON_OFFSET_FILL)
		gl.Disable(gl.POLYGON_OFFSET_LINE)
	}
	if s.CullNone {
		gl.Disable(gl.CULL_FACE)
	} else {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	}
}

// ApplyEffect uploads p to the effect program. The diffuse texture goes to
// unit 0 and the shadow map to unit 1.
func (d *Device) ApplyEffect(p *graphics.EffectParameters) {
	e := d.effect
	e.use()
	e.setMat4("uWorld", p.World)
	e.setMat4("uView", p.View)
	e.setMat4("uProjection", p.Projection)

	vp := d.Viewport()
	e.setFloat("uLineThickness", p.LineThickness)
	e.setVec2("uViewport", mgl32.Vec2{float32(vp.Width), float32(vp.Height)})

	e.setBool("uDepthOnly", p.DepthOnly)
	e.setVec3("uDiffuse", p.DiffuseColor)
	e.setFloat("uAlpha", p.Alpha)
	e.setBool("uVertexColor", p.VertexColor)

	tex := textureID(p.Texture)
	e.setBool("uHasTexture", tex != 0)
	gl.ActiveTexture(gl.TEXTURE0 + diffuseUnit)
	gl.BindTexture(gl.TEXTURE_2D, tex)

	e.setBool("uLighting", p.LightingEnabled)
	e.setVec3("uAmbient", p.AmbientLightColor)
	e.setVec3("uLightDirection", p.LightDirection)
	e.setVec3("uLightDiffuse", p.LightDiffuse)

	shadow := textureID(p.ShadowMap)
	e.setBool("uShadow", shadow != 0)
	e.setMat4("uShadowViewProjection", p.ShadowLightViewProjection)
	gl.ActiveTexture(gl.TEXTURE0 + shadowUnit)
	gl.BindTexture(gl.TEXTURE_2D, shadow)
	gl.ActiveTexture(gl.TEXTURE0)

	e.setBool("uFog", p.FogEnabled)
	e.setVec3("uFogColor", p.FogColor)
	e.setFloat("uFogStart", p.FogStart)
	e.setFloat("uFogEnd", p.FogEnd)

	gl.DepthMask(!(p.Alpha < 1))
}

// Close releases the device objects. Resources handed out by the Create
// methods are owned by their callers.
func (d *Device) Close() {
	for len(d.targets) > 0 {
		d.PopRenderTarget()
	}
	gl.DeleteSamplers(graphics.MaxSamplerSlots, &d.samplers[0])
	gl.DeleteVertexArrays(1, &d.vao)
	d.effect.delete()
}
