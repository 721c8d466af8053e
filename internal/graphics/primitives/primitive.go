package primitives

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"gfxcore/internal/graphics"
)

var ErrDisposed = errors.New("primitives: primitive disposed")

// Primitive draws a cached procedural mesh with its own transform.
type Primitive struct {
	cache  *Cache
	device graphics.Device
	shape  Shape
	mesh   *Mesh

	invertWinding bool
	transform     mgl32.Mat4
	material      graphics.Material
	visible       bool
	castShadow    bool
	container     any
}

// NewPrimitive acquires the mesh for shape from cache.
func NewPrimitive(cache *Cache, dev graphics.Device, shape Shape) (*Primitive, error) {
	mesh, err := cache.Acquire(dev, shape, false)
	if err != nil {
		return nil, err
	}
	return &Primitive{
		cache:      cache,
		device:     dev,
		shape:      shape,
		mesh:       mesh,
		transform:  mgl32.Ident4(),
		material:   graphics.NewBasicMaterial(),
		visible:    true,
		castShadow: true,
	}, nil
}

func (p *Primitive) Shape() Shape { return p.shape }
func (p *Primitive) Mesh() *Mesh  { return p.mesh }

func (p *Primitive) Transform() mgl32.Mat4     { return p.transform }
func (p *Primitive) SetTransform(m mgl32.Mat4) { p.transform = m }

func (p *Primitive) InvertWindingOrder() bool { return p.invertWinding }

// SetInvertWindingOrder switches to a mesh with reversed triangles. Inverted
// and regular meshes are cached separately.
func (p *Primitive) SetInvertWindingOrder(invert bool) error {
	if p.mesh == nil {
		return ErrDisposed
	}
	if invert == p.invertWinding {
		return nil
	}
	mesh, err := p.cache.Acquire(p.device, p.shape, invert)
	if err != nil {
		return fmt.Errorf("invert winding: %w", err)
	}
	p.cache.Release(p.mesh)
	p.mesh = mesh
	p.invertWinding = invert
	return nil
}

// BoundingBox returns the mesh bounds in world space.
func (p *Primitive) BoundingBox() graphics.BoundingBox {
	if p.mesh == nil {
		return graphics.EmptyBox
	}
	return p.mesh.Bounds.Transform(p.transform)
}

func (p *Primitive) Visible() bool                   { return p.visible && p.mesh != nil }
func (p *Primitive) SetVisible(v bool)               { p.visible = v }
func (p *Primitive) Material() graphics.Material     { return p.material }
func (p *Primitive) SetMaterial(m graphics.Material) { p.material = m }
func (p *Primitive) CastShadow() bool                { return p.castShadow }
func (p *Primitive) SetCastShadow(v bool)            { p.castShadow = v }

// Container returns the owner set with SetContainer, if any.
func (p *Primitive) Container() any         { return p.container }
func (p *Primitive) SetContainer(owner any) { p.container = owner }

func (p *Primitive) OnAddedToView(graphics.DrawContext) {}

// Draw renders the mesh. A nil material draws with the primitive's own.
func (p *Primitive) Draw(ctx graphics.DrawContext, material graphics.Material) error {
	if p.mesh == nil {
		return ErrDisposed
	}
	if material == nil {
		material = p.material
	}
	p.mesh.Restore()

	material.SetWorld(p.transform)
	material.BeginApply(ctx)
	defer material.EndApply(ctx)

	dev := ctx.Device()
	ctx.SetVertexBuffer(p.mesh.VertexBuffer, 0)
	dev.SetIndexBuffer(p.mesh.IndexBuffer)
	dev.DrawIndexedPrimitives(graphics.TriangleList, 0, 0, p.mesh.VertexCount, 0, p.mesh.PrimitiveCount)
	return nil
}

// Dispose releases the mesh reference. It is safe to call twice.
func (p *Primitive) Dispose() {
	if p.mesh == nil {
		return
	}
	p.cache.Release(p.mesh)
	p.mesh = nil
}
