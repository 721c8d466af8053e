package primitives

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math"

	"gfxcore/internal/graphics"
)

var ErrUnknownShape = errors.New("primitives: unknown shape")

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Mesh is a shared set of static buffers for one shape on one device.
type Mesh struct {
	Shape          Shape
	InvertWinding  bool
	VertexBuffer   graphics.VertexBuffer
	IndexBuffer    graphics.IndexBuffer
	VertexCount    int
	PrimitiveCount int
	Bounds         graphics.BoundingBox

	vertices []graphics.Vertex
	indices  []uint16
	key      cacheKey
	refs     int
	disposed bool
}

func (m *Mesh) RefCount() int  { return m.refs }
func (m *Mesh) Disposed() bool { return m.disposed }

// Vertices returns the CPU copy of the uploaded vertices.
func (m *Mesh) Vertices() []graphics.Vertex { return m.vertices }

// Indices returns the CPU copy of the uploaded indices.
func (m *Mesh) Indices() []uint16 { return m.indices }

// Restore re-uploads the CPU copy when the device dropped buffer contents.
func (m *Mesh) Restore() {
	if m.VertexBuffer.ContentLost() {
		m.VertexBuffer.SetData(m.vertices, false)
	}
	if m.IndexBuffer.ContentLost() {
		m.IndexBuffer.SetData(m.indices, false)
	}
}

type cacheKey struct {
	device graphics.Device
	shape  Shape
	invert bool
}

// Cache shares procedural meshes between primitives that describe the same
// shape on the same device. It is not safe for concurrent use.
type Cache struct {
	meshes  map[cacheKey]*Mesh
	scratch geometry
	logger  *slog.Logger
}

func NewCache(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{meshes: make(map[cacheKey]*Mesh), logger: logger}
}

// Len returns the number of live meshes.
func (c *Cache) Len() int { return len(c.meshes) }

// Acquire returns the mesh for shape, building it on first use. Every
// successful call must be paired with Release.
func (c *Cache) Acquire(dev graphics.Device, shape Shape, invertWinding bool) (*Mesh, error) {
	key := cacheKey{device: dev, shape: shape, invert: invertWinding}
	if m, ok := c.meshes[key]; ok && !m.disposed {
		m.refs++
		m.Restore()
		return m, nil
	}

	m, err := c.build(dev, shape, invertWinding)
	if err != nil {
		return nil, err
	}
	m.key = key
	m.refs = 1
	c.meshes[key] = m
	c.logger.Debug("built primitive mesh", "shape", shape.Kind, "vertices", m.VertexCount, "triangles", m.PrimitiveCount)
	return m, nil
}

// Release drops one reference and frees the buffers with the last one.
func (c *Cache) Release(m *Mesh) {
	if m == nil || m.disposed {
		return
	}
	m.refs--
	if m.refs > 0 {
		return
	}
	m.dispose()
	if c.meshes[m.key] == m {
		delete(c.meshes, m.key)
	}
}

// Close frees every mesh regardless of outstanding references.
func (c *Cache) Close() {
	for key, m := range c.meshes {
		m.dispose()
		delete(c.meshes, key)
	}
}

func (m *Mesh) dispose() {
	m.disposed = true
	m.refs = 0
	m.VertexBuffer.Dispose()
	m.IndexBuffer.Dispose()
}

func (c *Cache) build(dev graphics.Device, shape Shape, invertWinding bool) (*Mesh, error) {
	gen, ok := generators[shape.Kind]
	if !ok {
		return nil, fmt.Errorf("%v: %w", shape.Kind, ErrUnknownShape)
	}
	g := &c.scratch
	g.reset()
	gen(shape, g)

	if len(g.positions) > math.MaxUint16+1 {
		return nil, fmt.Errorf("%v with %d vertices: %w", shape.Kind, len(g.positions), ErrIndexOutOfRange)
	}

	m := &Mesh{
		Shape:          shape,
		InvertWinding:  invertWinding,
		VertexCount:    len(g.positions),
		PrimitiveCount: len(g.indices) / 3,
		Bounds:         graphics.BoxFromPoints(g.positions),
		vertices:       make([]graphics.Vertex, len(g.positions)),
		indices:        make([]uint16, len(g.indices)),
	}
	for i, p := range g.positions {
		m.vertices[i] = graphics.Vertex{Position: p, Color: white, Normal: g.normals[i], TexCoord: g.texCoords[i]}
	}
	for i, idx := range g.indices {
		m.indices[i] = uint16(idx)
	}
	if invertWinding {
		for i := 0; i+2 < len(m.indices); i += 3 {
			m.indices[i+1], m.indices[i+2] = m.indices[i+2], m.indices[i+1]
		}
	}

	vb, err := dev.CreateVertexBuffer(len(m.vertices), graphics.UsageStatic)
	if err != nil {
		return nil, fmt.Errorf("%v vertex buffer: %w", shape.Kind, err)
	}
	ib, err := dev.CreateIndexBuffer(len(m.indices), graphics.UsageStatic)
	if err != nil {
		vb.Dispose()
		return nil, fmt.Errorf("%v index buffer: %w", shape.Kind, err)
	}
	vb.SetData(m.vertices, false)
	ib.SetData(m.indices, false)
	m.VertexBuffer, m.IndexBuffer = vb, ib
	return m, nil
}
