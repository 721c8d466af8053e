package graphics

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
)

// PrimitiveType selects how vertices are assembled.
type PrimitiveType int

const (
	TriangleList PrimitiveType = iota
	TriangleStrip
	LineList
	LineStrip
)

func (t PrimitiveType) String() string {
	switch t {
	case TriangleList:
		return "TriangleList"
	case TriangleStrip:
		return "TriangleStrip"
	case LineList:
		return "LineList"
	case LineStrip:
		return "LineStrip"
	}
	return "Unknown"
}

// PrimitiveCount converts a vertex or index count into a primitive count.
func PrimitiveCount(t PrimitiveType, elementCount int) int {
	var n int
	switch t {
	case LineStrip:
		n = elementCount - 1
	case LineList:
		n = elementCount / 2
	case TriangleList:
		n = elementCount / 3
	case TriangleStrip:
		n = elementCount - 2
	}
	if n < 0 {
		return 0
	}
	return n
}

// ElementCount is the inverse of PrimitiveCount.
func ElementCount(t PrimitiveType, primitiveCount int) int {
	switch t {
	case LineStrip:
		return primitiveCount + 1
	case LineList:
		return primitiveCount * 2
	case TriangleList:
		return primitiveCount * 3
	case TriangleStrip:
		return primitiveCount + 2
	}
	return 0
}

// Vertex is the single vertex layout used by the engine.
type Vertex struct {
	Position mgl32.Vec3
	Color    color.RGBA
	Normal   mgl32.Vec3
	TexCoord mgl32.Vec2
}

// SurfaceFormat is the pixel format of a texture or render target.
type SurfaceFormat int

const (
	FormatColor SurfaceFormat = iota
	FormatHalfVector4
	FormatSingle
)

// DepthFormat describes the depth buffer attached to a render target.
type DepthFormat int

const (
	DepthNone DepthFormat = iota
	Depth16
	Depth24
	Depth24Stencil8
)

// BufferUsage hints whether a buffer is rewritten every frame.
type BufferUsage int

const (
	UsageStatic BufferUsage = iota
	UsageDynamic
)

// TextureFilter selects sampler filtering.
type TextureFilter int

const (
	FilterLinear TextureFilter = iota
	FilterPoint
	FilterAnisotropic
)

// TextureAddress selects sampler wrapping.
type TextureAddress int

const (
	AddressWrap TextureAddress = iota
	AddressClamp
)

// SamplerState is a comparable sampler description.
type SamplerState struct {
	Filter        TextureFilter
	AddressU      TextureAddress
	AddressV      TextureAddress
	MaxAnisotropy int
}

// Preset sampler states.
var (
	LinearWrap      = SamplerState{Filter: FilterLinear, MaxAnisotropy: 4}
	PointWrap       = SamplerState{Filter: FilterPoint, MaxAnisotropy: 4}
	AnisotropicWrap = SamplerState{Filter: FilterAnisotropic, MaxAnisotropy: 4}
)

// RasterizerState carries the depth bias used by overlays and the cull mode.
type RasterizerState struct {
	DepthBias float32
	CullNone  bool
}

// Texture is a GPU texture.
type Texture interface {
	Width() int
	Height() int
	Format() SurfaceFormat
}

// RenderTarget is a texture that can be rendered into.
type RenderTarget interface {
	Texture
	DepthFormat() DepthFormat
	Mipmap() bool
	MultiSampleCount() int
	ContentLost() bool
	Disposed() bool
	Dispose()
}

// VertexBuffer holds vertices on the GPU.
type VertexBuffer interface {
	Capacity() int
	SetData(vertices []Vertex, discard bool)
	ContentLost() bool
	Disposed() bool
	Dispose()
}

// IndexBuffer holds 16-bit indices on the GPU.
type IndexBuffer interface {
	Capacity() int
	SetData(indices []uint16, discard bool)
	ContentLost() bool
	Disposed() bool
	Dispose()
}

// Viewport is the drawable region of the current target.
type Viewport struct {
	X, Y          int
	Width, Height int
}

// EffectParameters is everything the built-in effect program reads.
type EffectParameters struct {
	World      mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4

	Texture      Texture
	DiffuseColor mgl32.Vec3
	Alpha        float32
	VertexColor  bool

	LightingEnabled   bool
	AmbientLightColor mgl32.Vec3
	LightDirection    mgl32.Vec3
	LightDiffuse      mgl32.Vec3
	LightSpecular     mgl32.Vec3

	FogEnabled bool
	FogColor   mgl32.Vec3
	FogStart   float32
	FogEnd     float32

	ShadowMap                 Texture
	ShadowLightViewProjection mgl32.Mat4

	DepthOnly bool

	// LineThickness is the width in pixels of expanded line quads, zero for
	// ordinary geometry.
	LineThickness float32
}

// Device is the GPU abstraction the renderer issues work to.
type Device interface {
	CreateVertexBuffer(capacity int, usage BufferUsage) (VertexBuffer, error)
	CreateIndexBuffer(capacity int, usage BufferUsage) (IndexBuffer, error)
	CreateRenderTarget(width, height int, mipmap bool, format SurfaceFormat, depth DepthFormat, multiSample int) (RenderTarget, error)
	CreateTexture(img *image.RGBA) (Texture, error)

	SetVertexBuffer(vb VertexBuffer, offset int)
	SetIndexBuffer(ib IndexBuffer)
	DrawIndexedPrimitives(t PrimitiveType, baseVertex, minVertex, numVertices, startIndex, primitiveCount int)
	DrawPrimitives(t PrimitiveType, startVertex, primitiveCount int)

	PushRenderTarget(rt RenderTarget)
	PopRenderTarget()
	Clear(c color.RGBA)
	Viewport() Viewport
	BackBufferFormat() SurfaceFormat

	SetSamplerState(slot int, s SamplerState)
	RasterizerState() RasterizerState
	SetRasterizerState(s RasterizerState)
	ApplyEffect(p *EffectParameters)
}

// MaxSamplerSlots is the number of sampler slots refreshed by the renderer.
const MaxSamplerSlots = 16
