package opengl

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"gfxcore/internal/graphics"
)

const vertexSize = int(unsafe.Sizeof(graphics.Vertex{}))

func usageHint(u graphics.BufferUsage) uint32 {
	if u == graphics.UsageDynamic {
		return gl.DYNAMIC_DRAW
	}
	return gl.STATIC_DRAW
}

// VertexBuffer is a GL array buffer of graphics.Vertex.
type VertexBuffer struct {
	id       uint32
	capacity int
	usage    uint32
}

func newVertexBuffer(capacity int, usage graphics.BufferUsage) *VertexBuffer {
	b := &VertexBuffer{capacity: capacity, usage: usageHint(usage)}
	gl.GenBuffers(1, &b.id)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.id)
	gl.BufferData(gl.ARRAY_BUFFER, capacity*vertexSize, nil, b.usage)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return b
}

func (b *VertexBuffer) Capacity() int { return b.capacity }

// SetData uploads vertices from the start of the buffer. discard orphans the
// previous storage so the driver does not wait on in-flight draws.
func (b *VertexBuffer) SetData(vertices []graphics.Vertex, discard bool) {
	if b.id == 0 || len(vertices) == 0 {
		return
	}
	n := min(len(vertices), b.capacity)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.id)
	if discard {
		gl.BufferData(gl.ARRAY_BUFFER, b.capacity*vertexSize, nil, b.usage)
	}
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, n*vertexSize, gl.Ptr(vertices))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

// ContentLost is always false; a GL context keeps buffer contents.
func (b *VertexBuffer) ContentLost() bool { return false }
func (b *VertexBuffer) Disposed() bool    { return b.id == 0 }

func (b *VertexBuffer) Dispose() {
	if b.id != 0 {
		gl.DeleteBuffers(1, &b.id)
		b.id = 0
	}
}

// IndexBuffer is a GL element buffer of 16-bit indices.
type IndexBuffer struct {
	id       uint32
	capacity int
	usage    uint32
}

func newIndexBuffer(capacity int, usage graphics.BufferUsage) *IndexBuffer {
	b := &IndexBuffer{capacity: capacity, usage: usageHint(usage)}
	gl.GenBuffers(1, &b.id)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, b.id)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, capacity*2, nil, b.usage)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)
	return b
}

func (b *IndexBuffer) Capacity() int { return b.capacity }

// SetData goes through GL_COPY_WRITE_BUFFER so the element binding of the
// device vertex array is left alone.
func (b *IndexBuffer) SetData(indices []uint16, discard bool) {
	if b.id == 0 || len(indices) == 0 {
		return
	}
	n := min(len(indices), b.capacity)
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, b.id)
	if discard {
		gl.BufferData(gl.COPY_WRITE_BUFFER, b.capacity*2, nil, b.usage)
	}
	gl.BufferSubData(gl.COPY_WRITE_BUFFER, 0, n*2, gl.Ptr(indices))
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
}

func (b *IndexBuffer) ContentLost() bool { return false }
func (b *IndexBuffer) Disposed() bool    { return b.id == 0 }

func (b *IndexBuffer) Dispose() {
	if b.id != 0 {
		gl.DeleteBuffers(1, &b.id)
		b.id = 0
	}
}

// Texture is an immutable RGBA8 texture uploaded from an image.
type Texture struct {
	id            uint32
	width, height int
}

func newTexture(img *image.RGBA) *Texture {
	size := img.Rect.Size()
	t := &Texture{width: size.X, height: size.Y}
	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(img.Stride/4))
	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		gl.RGBA8,
		int32(size.X),
		int32(size.Y),
		0,
		gl.RGBA,
		gl.UNSIGNED_BYTE,
		gl.Ptr(img.Pix),
	)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return t
}

func (t *Texture) Width() int                     { return t.width }
func (t *Texture) Height() int                    { return t.height }
func (t *Texture) Format() graphics.SurfaceFormat { return graphics.FormatColor }

func (t *Texture) Dispose() {
	if t.id != 0 {
		gl.DeleteTextures(1, &t.id)
		t.id = 0
	}
}

type surfaceFormat struct {
	internal, format, xtype int32
}

var surfaceFormats = map[graphics.SurfaceFormat]surfaceFormat{
	graphics.FormatColor:       {gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE},
	graphics.FormatHalfVector4: {gl.RGBA16F, gl.RGBA, gl.HALF_FLOAT},
	graphics.FormatSingle:      {gl.R32F, gl.RED, gl.FLOAT},
}

// RenderTarget is a framebuffer with one color texture and an optional depth
// renderbuffer. Multisampling is recorded but the target itself is single
// sampled.
type RenderTarget struct {
	fbo, color, depthRB uint32
	width, height       int
	format              graphics.SurfaceFormat
	depth               graphics.DepthFormat
	mipmap              bool
	multiSample         int
}

func newRenderTarget(width, height int, mipmap bool, format graphics.SurfaceFormat, depth graphics.DepthFormat, multiSample int) (*RenderTarget, error) {
	sf, ok := surfaceFormats[format]
	if !ok {
		return nil, fmt.Errorf("unsupported surface format %d", format)
	}
	rt := &RenderTarget{
		width: width, height: height,
		format: format, depth: depth,
		mipmap: mipmap, multiSample: multiSample,
	}

	gl.GenTextures(1, &rt.color)
	gl.BindTexture(gl.TEXTURE_2D, rt.color)
	gl.TexImage2D(gl.TEXTURE_2D, 0, sf.internal, int32(width), int32(height), 0, uint32(sf.format), uint32(sf.xtype), nil)
	if mipmap {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	} else {
		// Complete under the mipmapped filters the samplers use.
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAX_LEVEL, 0)
	}

	gl.GenFramebuffers(1, &rt.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, rt.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, rt.color, 0)

	if depth != graphics.DepthNone {
		internal, attachment := depthStorage(depth)
		gl.GenRenderbuffers(1, &rt.depthRB)
		gl.BindRenderbuffer(gl.RENDERBUFFER, rt.depthRB)
		gl.RenderbufferStorage(gl.RENDERBUFFER, internal, int32(width), int32(height))
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, attachment, gl.RENDERBUFFER, rt.depthRB)
		gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	}

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if status != gl.FRAMEBUFFER_COMPLETE {
		rt.Dispose()
		return nil, fmt.Errorf("render target %dx%d incomplete: status=0x%X", width, height, status)
	}
	return rt, nil
}

func depthStorage(d graphics.DepthFormat) (internal, attachment uint32) {
	switch d {
	case graphics.Depth16:
		return gl.DEPTH_COMPONENT16, gl.DEPTH_ATTACHMENT
	case graphics.Depth24:
		return gl.DEPTH_COMPONENT24, gl.DEPTH_ATTACHMENT
	default:
		return gl.DEPTH24_STENCIL8, gl.DEPTH_STENCIL_ATTACHMENT
	}
}

func (r *RenderTarget) Width() int                        { return r.width }
func (r *RenderTarget) Height() int                       { return r.height }
func (r *RenderTarget) Format() graphics.SurfaceFormat    { return r.format }
func (r *RenderTarget) DepthFormat() graphics.DepthFormat { return r.depth }
func (r *RenderTarget) Mipmap() bool                      { return r.mipmap }
func (r *RenderTarget) MultiSampleCount() int             { return r.multiSample }
func (r *RenderTarget) ContentLost() bool                 { return false }
func (r *RenderTarget) Disposed() bool                    { return r.fbo == 0 }

func (r *RenderTarget) Dispose() {
	if r.depthRB != 0 {
		gl.DeleteRenderbuffers(1, &r.depthRB)
		r.depthRB = 0
	}
	if r.color != 0 {
		gl.DeleteTextures(1, &r.color)
		r.color = 0
	}
	if r.fbo != 0 {
		gl.DeleteFramebuffers(1, &r.fbo)
		r.fbo = 0
	}
}

// textureID resolves the GL name behind any texture this package created.
func textureID(t graphics.Texture) uint32 {
	switch t := t.(type) {
	case *Texture:
		return t.id
	case *RenderTarget:
		return t.color
	}
	return 0
}
