package headless

import (
	"image"

	"gfxcore/internal/graphics"
)

// VertexBuffer keeps a copy of the last upload.
type VertexBuffer struct {
	Usage    graphics.BufferUsage
	Data     []graphics.Vertex
	Uploads  int
	capacity int
	lost     bool
	disposed bool
}

func (b *VertexBuffer) Capacity() int { return b.capacity }

func (b *VertexBuffer) SetData(vertices []graphics.Vertex, discard bool) {
	b.Data = append(b.Data[:0], vertices...)
	b.Uploads++
	b.lost = false
}

func (b *VertexBuffer) ContentLost() bool { return b.lost }

// LoseContent simulates a device reset.
func (b *VertexBuffer) LoseContent() { b.lost = true }

func (b *VertexBuffer) Disposed() bool { return b.disposed }

func (b *VertexBuffer) Dispose() { b.disposed = true }

// IndexBuffer keeps a copy of the last upload.
type IndexBuffer struct {
	Usage    graphics.BufferUsage
	Data     []uint16
	Uploads  int
	capacity int
	lost     bool
	disposed bool
}

func (b *IndexBuffer) Capacity() int { return b.capacity }

func (b *IndexBuffer) SetData(indices []uint16, discard bool) {
	b.Data = append(b.Data[:0], indices...)
	b.Uploads++
	b.lost = false
}

func (b *IndexBuffer) ContentLost() bool { return b.lost }

func (b *IndexBuffer) LoseContent() { b.lost = true }

func (b *IndexBuffer) Disposed() bool { return b.disposed }

func (b *IndexBuffer) Dispose() { b.disposed = true }

// Texture is a sized texture, optionally backed by the uploaded image.
type Texture struct {
	W, H   int
	F      graphics.SurfaceFormat
	Pixels *image.RGBA
}

func (t *Texture) Width() int                     { return t.W }
func (t *Texture) Height() int                    { return t.H }
func (t *Texture) Format() graphics.SurfaceFormat { return t.F }

// RenderTarget is a recorded offscreen surface.
type RenderTarget struct {
	Texture
	depth       graphics.DepthFormat
	mipmap      bool
	multiSample int
	lost        bool
	disposed    bool
}

func (r *RenderTarget) DepthFormat() graphics.DepthFormat { return r.depth }
func (r *RenderTarget) Mipmap() bool                      { return r.mipmap }
func (r *RenderTarget) MultiSampleCount() int             { return r.multiSample }
func (r *RenderTarget) ContentLost() bool                 { return r.lost }
func (r *RenderTarget) LoseContent()                      { r.lost = true }
func (r *RenderTarget) Disposed() bool                    { return r.disposed }
func (r *RenderTarget) Dispose()                          { r.disposed = true }
