// Package headless implements a graphics.Device that records commands
// instead of talking to a GPU.
package headless

import (
	"fmt"
	"image"
	"image/color"

	"gfxcore/internal/graphics"
)

// Op names a recorded device command.
type Op int

const (
	OpDrawIndexed Op = iota
	OpDraw
	OpClear
	OpPushTarget
	OpPopTarget
	OpApplyEffect
)

func (o Op) String() string {
	switch o {
	case OpDrawIndexed:
		return "draw-indexed"
	case OpDraw:
		return "draw"
	case OpClear:
		return "clear"
	case OpPushTarget:
		return "push-target"
	case OpPopTarget:
		return "pop-target"
	case OpApplyEffect:
		return "apply-effect"
	}
	return "unknown"
}

// Command is one recorded device call.
type Command struct {
	Op             Op
	Primitive      graphics.PrimitiveType
	BaseVertex     int
	MinVertex      int
	NumVertices    int
	StartIndex     int
	StartVertex    int
	PrimitiveCount int
	Target         graphics.RenderTarget
	Color          color.RGBA
	Effect         graphics.EffectParameters
	Rasterizer     graphics.RasterizerState
}

// Stats counts resource allocations.
type Stats struct {
	VertexBuffersCreated int
	IndexBuffersCreated  int
	RenderTargetsCreated int
	TexturesCreated      int
	DrawCalls            int
}

// Device records every call. Draw calls are validated against the bound
// buffers and problems are collected in Errors.
type Device struct {
	Commands []Command
	Stats    Stats
	Errors   []error

	backBuffer graphics.Viewport
	format     graphics.SurfaceFormat
	targets    []graphics.RenderTarget
	vb         *VertexBuffer
	ib         *IndexBuffer
	rasterizer graphics.RasterizerState
	samplers   [graphics.MaxSamplerSlots]graphics.SamplerState
	effect     graphics.EffectParameters
}

func NewDevice(width, height int) *Device {
	return &Device{
		backBuffer: graphics.Viewport{Width: width, Height: height},
		format:     graphics.FormatColor,
	}
}

// Reset drops recorded commands and errors but keeps resources and stats.
func (d *Device) Reset() {
	d.Commands = d.Commands[:0]
	d.Errors = d.Errors[:0]
}

// Count returns how many commands of the given op were recorded.
func (d *Device) Count(op Op) int {
	n := 0
	for _, c := range d.Commands {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Draws returns the recorded draw commands in order.
func (d *Device) Draws() []Command {
	var out []Command
	for _, c := range d.Commands {
		if c.Op == OpDraw || c.Op == OpDrawIndexed {
			out = append(out, c)
		}
	}
	return out
}

// Resize changes the back buffer size.
func (d *Device) Resize(width, height int) {
	d.backBuffer = graphics.Viewport{Width: width, Height: height}
}

func (d *Device) Sampler(slot int) graphics.SamplerState { return d.samplers[slot] }

func (d *Device) CurrentTarget() graphics.RenderTarget {
	if len(d.targets) == 0 {
		return nil
	}
	return d.targets[len(d.targets)-1]
}

func (d *Device) CreateVertexBuffer(capacity int, usage graphics.BufferUsage) (graphics.VertexBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("vertex buffer capacity %d", capacity)
	}
	d.Stats.VertexBuffersCreated++
	return &VertexBuffer{capacity: capacity, Usage: usage}, nil
}

func (d *Device) CreateIndexBuffer(capacity int, usage graphics.BufferUsage) (graphics.IndexBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("index buffer capacity %d", capacity)
	}
	d.Stats.IndexBuffersCreated++
	return &IndexBuffer{capacity: capacity, Usage: usage}, nil
}

func (d *Device) CreateRenderTarget(width, height int, mipmap bool, format graphics.SurfaceFormat, depth graphics.DepthFormat, multiSample int) (graphics.RenderTarget, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("render target size %dx%d", width, height)
	}
	d.Stats.RenderTargetsCreated++
	return &RenderTarget{
		Texture:     Texture{W: width, H: height, F: format},
		depth:       depth,
		mipmap:      mipmap,
		multiSample: multiSample,
	}, nil
}

func (d *Device) CreateTexture(img *image.RGBA) (graphics.Texture, error) {
	d.Stats.TexturesCreated++
	b := img.Bounds()
	return &Texture{W: b.Dx(), H: b.Dy(), F: graphics.FormatColor, Pixels: img}, nil
}

func (d *Device) SetVertexBuffer(vb graphics.VertexBuffer, offset int) {
	if vb == nil {
		d.vb = nil
		return
	}
	d.vb, _ = vb.(*VertexBuffer)
}

func (d *Device) SetIndexBuffer(ib graphics.IndexBuffer) {
	if ib == nil {
		d.ib = nil
		return
	}
	d.ib, _ = ib.(*IndexBuffer)
}

func (d *Device) DrawIndexedPrimitives(t graphics.PrimitiveType, baseVertex, minVertex, numVertices, startIndex, primitiveCount int) {
	d.Stats.DrawCalls++
	d.Commands = append(d.Commands, Command{
		Op: OpDrawIndexed, Primitive: t, BaseVertex: baseVertex, MinVertex: minVertex,
		NumVertices: numVertices, StartIndex: startIndex, PrimitiveCount: primitiveCount,
		Target: d.CurrentTarget(), Effect: d.effect, Rasterizer: d.rasterizer,
	})

	switch {
	case d.vb == nil:
		d.fail("indexed draw without vertex buffer")
		return
	case d.ib == nil:
		d.fail("indexed draw without index buffer")
		return
	}
	count := graphics.ElementCount(t, primitiveCount)
	if startIndex+count > len(d.ib.Data) {
		d.fail("index range %d+%d exceeds %d uploaded indices", startIndex, count, len(d.ib.Data))
		return
	}
	for _, idx := range d.ib.Data[startIndex : startIndex+count] {
		v := baseVertex + int(idx)
		if v < minVertex || v >= minVertex+numVertices || v >= len(d.vb.Data) {
			d.fail("index %d outside vertex range [%d,%d) of %d uploaded vertices", v, minVertex, minVertex+numVertices, len(d.vb.Data))
			return
		}
	}
}

func (d *Device) DrawPrimitives(t graphics.PrimitiveType, startVertex, primitiveCount int) {
	d.Stats.DrawCalls++
	d.Commands = append(d.Commands, Command{
		Op: OpDraw, Primitive: t, StartVertex: startVertex, PrimitiveCount: primitiveCount,
		Target: d.CurrentTarget(), Effect: d.effect, Rasterizer: d.rasterizer,
	})
	if d.vb == nil {
		d.fail("draw without vertex buffer")
		return
	}
	if n := graphics.ElementCount(t, primitiveCount); startVertex+n > len(d.vb.Data) {
		d.fail("vertex range %d+%d exceeds %d uploaded vertices", startVertex, n, len(d.vb.Data))
	}
}

func (d *Device) PushRenderTarget(rt graphics.RenderTarget) {
	d.targets = append(d.targets, rt)
	d.Commands = append(d.Commands, Command{Op: OpPushTarget, Target: rt})
}

func (d *Device) PopRenderTarget() {
	if len(d.targets) == 0 {
		d.fail("pop on empty render target stack")
		return
	}
	d.targets = d.targets[:len(d.targets)-1]
	d.Commands = append(d.Commands, Command{Op: OpPopTarget, Target: d.CurrentTarget()})
}

func (d *Device) TargetDepth() int { return len(d.targets) }

func (d *Device) Clear(c color.RGBA) {
	d.Commands = append(d.Commands, Command{Op: OpClear, Color: c, Target: d.CurrentTarget()})
}

func (d *Device) Viewport() graphics.Viewport {
	if rt := d.CurrentTarget(); rt != nil {
		return graphics.Viewport{Width: rt.Width(), Height: rt.Height()}
	}
	return d.backBuffer
}

func (d *Device) BackBufferFormat() graphics.SurfaceFormat { return d.format }

func (d *Device) SetSamplerState(slot int, s graphics.SamplerState) {
	if slot >= 0 && slot < len(d.samplers) {
		d.samplers[slot] = s
	}
}

func (d *Device) RasterizerState() graphics.RasterizerState { return d.rasterizer }

func (d *Device) SetRasterizerState(s graphics.RasterizerState) { d.rasterizer = s }

func (d *Device) ApplyEffect(p *graphics.EffectParameters) {
	d.effect = *p
	d.Commands = append(d.Commands, Command{Op: OpApplyEffect, Effect: *p, Target: d.CurrentTarget()})
}

func (d *Device) fail(format string, args ...any) {
	d.Errors = append(d.Errors, fmt.Errorf(format, args...))
}
