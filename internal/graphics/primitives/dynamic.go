// Package primitives holds the immediate mode DynamicPrimitive batcher and
// the reference counted cache of procedural shape buffers.
package primitives

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"gfxcore/internal/graphics"
)

var (
	ErrPrimitiveNested   = errors.New("primitives: primitive already open")
	ErrNoPrimitive       = errors.New("primitives: no primitive open")
	ErrPrimitiveTooLarge = errors.New("primitives: primitive too large")
	ErrIndexOutOfRange   = errors.New("primitives: index exceeds 16-bit range")
)

const (
	DefaultInitialBufferCapacity     = 32
	DefaultMaxBufferSizePerPrimitive = 32768
	DefaultDepthBias         float32 = 0.001
)

// Batch is one draw call worth of geometry inside a segment. Vertex and
// index starts are relative to the segment. A non-zero LineWidth marks a
// TriangleList of expanded line quads.
type Batch struct {
	Primitive graphics.PrimitiveType
	Texture   graphics.Texture
	World     *mgl32.Mat4
	LineWidth float32

	StartVertex int
	VertexCount int
	StartIndex  int
	IndexCount  int
	Segment     int
}

// DynamicPrimitive accumulates geometry between BeginPrimitive and
// EndPrimitive calls and draws it later with as few buffer uploads as the
// 16-bit index limit allows. Geometry is split into segments whose indices
// never exceed 65535; adjacent compatible batches are merged.
type DynamicPrimitive struct {
	// DepthBias is applied through the rasterizer state while drawing.
	DepthBias                 float32
	InitialBufferCapacity     int
	MaxBufferSizePerPrimitive int

	material graphics.Material
	visible  bool

	vertices       []graphics.Vertex
	indices        []uint16
	batches        []Batch
	vertexSegments []int
	indexSegments  []int

	building bool
	current  Batch
	saved    mark

	// Thick lines are collected here and expanded into quads by EndPrimitive.
	expanding   bool
	lineType    graphics.PrimitiveType
	lineVerts   []graphics.Vertex
	lineIndices []int
	thickLine   *graphics.ThickLineMaterial

	currentSegment    int
	beginSegment      int
	currentVertex     int
	currentIndex      int
	currentBaseVertex int
	currentBaseIndex  int
	baseSegmentVertex int
	baseSegmentIndex  int

	vertexBuffer graphics.VertexBuffer
	indexBuffer  graphics.IndexBuffer
}

// mark is the cursor state before the open primitive.
type mark struct {
	vertices, indices                   int
	vertexSegments, indexSegments       int
	segment, vertex, index              int
	baseSegmentVertex, baseSegmentIndex int
}

// NewDynamicPrimitive returns an empty batcher drawing with a vertex colored material.
func NewDynamicPrimitive() *DynamicPrimitive {
	m := graphics.NewBasicMaterial()
	m.VertexColorEnabled = true
	p := &DynamicPrimitive{
		DepthBias:                 DefaultDepthBias,
		InitialBufferCapacity:     DefaultInitialBufferCapacity,
		MaxBufferSizePerPrimitive: DefaultMaxBufferSizePerPrimitive,
		material:                  m,
		visible:                   true,
		thickLine:                 graphics.NewThickLineMaterial(),
	}
	p.Clear()
	return p
}

func (p *DynamicPrimitive) Visible() bool              { return p.visible }
func (p *DynamicPrimitive) SetVisible(v bool)          { p.visible = v }
func (p *DynamicPrimitive) Material() graphics.Material { return p.material }

// SetMaterial replaces the material used when Draw is called without one.
func (p *DynamicPrimitive) SetMaterial(m graphics.Material) { p.material = m }

func (p *DynamicPrimitive) OnAddedToView(graphics.DrawContext) {}

// Batches returns the finished batches. The slice is reused after Clear.
func (p *DynamicPrimitive) Batches() []Batch { return p.batches }

// Vertices returns all accumulated vertices across segments.
func (p *DynamicPrimitive) Vertices() []graphics.Vertex { return p.vertices }

// Indices returns all accumulated segment relative indices.
func (p *DynamicPrimitive) Indices() []uint16 { return p.indices }

// SegmentCount returns the number of segments in use.
func (p *DynamicPrimitive) SegmentCount() int { return len(p.vertexSegments) - 1 }

// Segment returns the vertices and indices uploaded together for segment i.
func (p *DynamicPrimitive) Segment(i int) ([]graphics.Vertex, []uint16) {
	return p.vertices[p.vertexSegments[i]:p.vertexSegments[i+1]],
		p.indices[p.indexSegments[i]:p.indexSegments[i+1]]
}

// Building reports whether a primitive is open.
func (p *DynamicPrimitive) Building() bool { return p.building }

// Clear drops all geometry and closes any open primitive.
func (p *DynamicPrimitive) Clear() {
	p.vertices = p.vertices[:0]
	p.indices = p.indices[:0]
	clear(p.batches)
	p.batches = p.batches[:0]
	p.vertexSegments = append(p.vertexSegments[:0], 0, 0)
	p.indexSegments = append(p.indexSegments[:0], 0, 0)

	p.building = false
	p.current = Batch{}
	p.expanding = false
	p.lineVerts = p.lineVerts[:0]
	p.lineIndices = p.lineIndices[:0]
	p.currentSegment = 0
	p.beginSegment = 0
	p.currentVertex = 0
	p.currentIndex = 0
	p.currentBaseVertex = 0
	p.currentBaseIndex = 0
	p.baseSegmentVertex = 0
	p.baseSegmentIndex = 0
}

// BeginPrimitive opens a primitive. world may be nil.
func (p *DynamicPrimitive) BeginPrimitive(pt graphics.PrimitiveType, texture graphics.Texture, world *mgl32.Mat4) error {
	return p.BeginPrimitiveWidth(pt, texture, world, 0)
}

// BeginPrimitiveWidth opens a primitive drawn with the given line width in
// pixels. LineList and LineStrip primitives with a positive width are
// expanded into screen facing quads; zero draws hairlines. The width is
// ignored for triangles.
func (p *DynamicPrimitive) BeginPrimitiveWidth(pt graphics.PrimitiveType, texture graphics.Texture, world *mgl32.Mat4, lineWidth float32) error {
	if p.building {
		return ErrPrimitiveNested
	}
	p.building = true
	p.saved = mark{
		vertices:          len(p.vertices),
		indices:           len(p.indices),
		vertexSegments:    len(p.vertexSegments),
		indexSegments:     len(p.indexSegments),
		segment:           p.currentSegment,
		vertex:            p.currentVertex,
		index:             p.currentIndex,
		baseSegmentVertex: p.baseSegmentVertex,
		baseSegmentIndex:  p.baseSegmentIndex,
	}
	p.beginSegment = p.currentSegment
	p.currentBaseVertex = p.currentVertex
	p.currentBaseIndex = p.currentIndex

	p.expanding = lineWidth > 0 && (pt == graphics.LineList || pt == graphics.LineStrip)
	p.lineType = pt
	p.lineVerts = p.lineVerts[:0]
	p.lineIndices = p.lineIndices[:0]
	if p.expanding {
		pt = graphics.TriangleList
	} else {
		lineWidth = 0
	}

	p.current = Batch{
		Primitive:   pt,
		Texture:     texture,
		World:       world,
		LineWidth:   lineWidth,
		StartVertex: p.currentVertex,
		StartIndex:  p.currentIndex,
		Segment:     p.currentSegment,
	}
	return nil
}

// AbortPrimitive discards the open primitive and everything added to it,
// leaving the batcher as it was before BeginPrimitive.
func (p *DynamicPrimitive) AbortPrimitive() error {
	if !p.building {
		return ErrNoPrimitive
	}
	m := p.saved
	p.vertices = p.vertices[:m.vertices]
	p.indices = p.indices[:m.indices]
	p.vertexSegments = p.vertexSegments[:m.vertexSegments]
	p.indexSegments = p.indexSegments[:m.indexSegments]
	p.currentSegment = m.segment
	p.currentVertex = m.vertex
	p.currentIndex = m.index
	p.baseSegmentVertex = m.baseSegmentVertex
	p.baseSegmentIndex = m.baseSegmentIndex
	p.currentBaseVertex = m.vertex
	p.currentBaseIndex = m.index

	p.building = false
	p.expanding = false
	p.current = Batch{}
	p.lineVerts = p.lineVerts[:0]
	p.lineIndices = p.lineIndices[:0]
	return nil
}

// AddVertex appends a vertex and returns its index relative to the start of the primitive.
func (p *DynamicPrimitive) AddVertex(v graphics.Vertex) (int, error) {
	if !p.building {
		return 0, ErrNoPrimitive
	}
	if p.expanding {
		p.lineVerts = append(p.lineVerts, v)
		return len(p.lineVerts) - 1, nil
	}
	return p.appendVertex(v)
}

func (p *DynamicPrimitive) appendVertex(v graphics.Vertex) (int, error) {
	if p.currentVertex >= p.MaxBufferSizePerPrimitive {
		if err := p.advanceSegment(); err != nil {
			return 0, err
		}
	}
	p.vertices = append(p.vertices, v)
	p.currentVertex++
	return p.currentVertex - 1 - p.currentBaseVertex, nil
}

// AddIndex appends an index relative to the first vertex of the primitive.
func (p *DynamicPrimitive) AddIndex(index int) error {
	if !p.building {
		return ErrNoPrimitive
	}
	if index < 0 || index > math.MaxUint16 {
		return fmt.Errorf("index %d: %w", index, ErrIndexOutOfRange)
	}
	if p.expanding {
		p.lineIndices = append(p.lineIndices, index)
		return nil
	}
	return p.appendIndex(index)
}

func (p *DynamicPrimitive) appendIndex(index int) error {
	if p.currentIndex >= p.MaxBufferSizePerPrimitive {
		if err := p.advanceSegment(); err != nil {
			return err
		}
	}
	v := p.currentBaseVertex + index
	if v > math.MaxUint16 {
		return fmt.Errorf("resolved index %d: %w", v, ErrIndexOutOfRange)
	}
	p.indices = append(p.indices, uint16(v))
	p.currentIndex++
	return nil
}

var lineQuadIndices = [...]int{0, 1, 2, 2, 1, 3}

// expandLines turns the collected segments into quads of four vertices and
// two triangles each. Both copies of an endpoint share its position; the
// normal holds the point that copy extends toward, so the two copies end up
// on opposite sides of the line.
func (p *DynamicPrimitive) expandLines() error {
	step := 2
	if p.lineType == graphics.LineStrip {
		step = 1
	}
	n := len(p.lineIndices)
	indexed := n > 0
	if !indexed {
		n = len(p.lineVerts)
	}
	for i := 0; i+1 < n; i += step {
		a, b := i, i+1
		if indexed {
			a, b = p.lineIndices[i], p.lineIndices[i+1]
		}
		if a >= len(p.lineVerts) || b >= len(p.lineVerts) {
			return fmt.Errorf("line %d-%d of %d vertices: %w", a, b, len(p.lineVerts), ErrIndexOutOfRange)
		}
		if err := p.addLineQuad(p.lineVerts[a], p.lineVerts[b]); err != nil {
			return err
		}
	}
	return nil
}

func (p *DynamicPrimitive) addLineQuad(a, b graphics.Vertex) error {
	quad := [4]graphics.Vertex{a, a, b, b}
	quad[0].Normal = b.Position
	quad[1].Normal = a.Position.Mul(2).Sub(b.Position)
	quad[2].Normal = b.Position.Mul(2).Sub(a.Position)
	quad[3].Normal = a.Position

	first := 0
	for i, v := range quad {
		idx, err := p.appendVertex(v)
		if err != nil {
			return err
		}
		if i == 0 {
			first = idx
		}
	}
	for _, i := range lineQuadIndices {
		if err := p.appendIndex(first + i); err != nil {
			return err
		}
	}
	return nil
}

// advanceSegment moves the open primitive to the start of a new segment.
// A primitive may cross at most one segment boundary.
func (p *DynamicPrimitive) advanceSegment() error {
	base := uint16(p.currentBaseVertex)
	for i := p.currentBaseIndex; i < p.currentIndex; i++ {
		p.indices[p.baseSegmentIndex+i] -= base
	}

	p.currentSegment++
	if p.currentSegment-p.beginSegment >= 2 {
		return fmt.Errorf("%d vertices, %d indices: %w",
			p.currentVertex-p.currentBaseVertex, p.currentIndex-p.currentBaseIndex, ErrPrimitiveTooLarge)
	}

	p.baseSegmentVertex += p.currentBaseVertex
	p.baseSegmentIndex += p.currentBaseIndex
	p.vertexSegments = append(p.vertexSegments, p.baseSegmentVertex)
	p.indexSegments = append(p.indexSegments, p.baseSegmentIndex)

	p.currentVertex -= p.currentBaseVertex
	p.currentIndex -= p.currentBaseIndex
	p.currentBaseVertex = 0
	p.currentBaseIndex = 0

	p.current.StartVertex = 0
	p.current.StartIndex = 0
	p.current.Segment = p.currentSegment
	return nil
}

// EndPrimitive closes the open primitive, merging it into the previous
// batch when both can be drawn with one call. When expanding thick lines
// fails the primitive stays open; AbortPrimitive discards it.
func (p *DynamicPrimitive) EndPrimitive() error {
	if !p.building {
		return ErrNoPrimitive
	}
	if p.expanding {
		if err := p.expandLines(); err != nil {
			return err
		}
	}
	p.building = false
	p.expanding = false

	b := p.current
	b.Segment = p.currentSegment
	b.VertexCount = p.currentVertex - b.StartVertex
	b.IndexCount = p.currentIndex - b.StartIndex

	p.vertexSegments[len(p.vertexSegments)-1] = p.baseSegmentVertex + p.currentVertex
	p.indexSegments[len(p.indexSegments)-1] = p.baseSegmentIndex + p.currentIndex

	if n := len(p.batches); n > 0 && canMerge(&p.batches[n-1], &b) {
		p.batches[n-1].VertexCount += b.VertexCount
		p.batches[n-1].IndexCount += b.IndexCount
		return nil
	}
	p.batches = append(p.batches, b)
	return nil
}

func canMerge(a, b *Batch) bool {
	if a.Segment != b.Segment || a.Primitive != b.Primitive {
		return false
	}
	if a.Primitive != graphics.LineList && a.Primitive != graphics.TriangleList {
		return false
	}
	return a.Texture == b.Texture &&
		a.LineWidth == b.LineWidth &&
		a.World == nil && b.World == nil &&
		(a.IndexCount > 0) == (b.IndexCount > 0)
}

// Draw issues every batch. A nil material draws with the primitive's own.
func (p *DynamicPrimitive) Draw(ctx graphics.DrawContext, material graphics.Material) error {
	if p.building {
		return fmt.Errorf("draw: %w", ErrPrimitiveNested)
	}
	if len(p.batches) == 0 {
		return nil
	}
	if material == nil {
		material = p.material
	}

	dev := ctx.Device()
	restore := dev.RasterizerState()
	defer dev.SetRasterizerState(restore)

	for i := range p.batches {
		b := &p.batches[i]
		if b.VertexCount == 0 && b.IndexCount == 0 {
			continue
		}
		rs := restore
		rs.DepthBias = p.DepthBias
		if b.LineWidth > 0 {
			rs.CullNone = true
		}
		dev.SetRasterizerState(rs)

		if err := p.drawBatch(ctx, dev, material, b); err != nil {
			return err
		}
	}
	return nil
}

func (p *DynamicPrimitive) drawBatch(ctx graphics.DrawContext, dev graphics.Device, material graphics.Material, b *Batch) error {
	world := mgl32.Ident4()
	if b.World != nil {
		world = *b.World
	}
	if b.LineWidth > 0 && material == p.material {
		material = p.thickLine
		p.thickLine.Thickness = b.LineWidth
	}
	material.SetWorld(world)
	material.SetTexture(b.Texture)
	material.BeginApply(ctx)
	defer material.EndApply(ctx)

	vStart, vEnd := p.vertexSegments[b.Segment], p.vertexSegments[b.Segment+1]
	if err := p.ensureVertexBuffer(dev, vEnd-vStart); err != nil {
		return err
	}
	ctx.SetVertexBuffer(nil, 0)
	p.vertexBuffer.SetData(p.vertices[vStart:vEnd], true)
	ctx.SetVertexBuffer(p.vertexBuffer, 0)

	if b.IndexCount == 0 {
		dev.DrawPrimitives(b.Primitive, b.StartVertex, graphics.PrimitiveCount(b.Primitive, b.VertexCount))
		return nil
	}

	iStart, iEnd := p.indexSegments[b.Segment], p.indexSegments[b.Segment+1]
	if err := p.ensureIndexBuffer(dev, iEnd-iStart); err != nil {
		return err
	}
	dev.SetIndexBuffer(nil)
	p.indexBuffer.SetData(p.indices[iStart:iEnd], true)
	dev.SetIndexBuffer(p.indexBuffer)
	dev.DrawIndexedPrimitives(b.Primitive, 0, b.StartVertex, b.VertexCount, b.StartIndex,
		graphics.PrimitiveCount(b.Primitive, b.IndexCount))
	return nil
}

func (p *DynamicPrimitive) ensureVertexBuffer(dev graphics.Device, size int) error {
	vb := p.vertexBuffer
	if vb != nil && vb.Capacity() >= size && !vb.ContentLost() && !vb.Disposed() {
		return nil
	}
	if vb != nil {
		vb.Dispose()
	}
	vb, err := dev.CreateVertexBuffer(max(p.InitialBufferCapacity, size), graphics.UsageDynamic)
	if err != nil {
		p.vertexBuffer = nil
		return fmt.Errorf("dynamic vertex buffer: %w", err)
	}
	p.vertexBuffer = vb
	return nil
}

func (p *DynamicPrimitive) ensureIndexBuffer(dev graphics.Device, size int) error {
	ib := p.indexBuffer
	if ib != nil && ib.Capacity() >= size && !ib.ContentLost() && !ib.Disposed() {
		return nil
	}
	if ib != nil {
		ib.Dispose()
	}
	ib, err := dev.CreateIndexBuffer(max(p.InitialBufferCapacity, size), graphics.UsageDynamic)
	if err != nil {
		p.indexBuffer = nil
		return fmt.Errorf("dynamic index buffer: %w", err)
	}
	p.indexBuffer = ib
	return nil
}

// Dispose releases the GPU buffers.
func (p *DynamicPrimitive) Dispose() {
	if p.vertexBuffer != nil {
		p.vertexBuffer.Dispose()
		p.vertexBuffer = nil
	}
	if p.indexBuffer != nil {
		p.indexBuffer.Dispose()
		p.indexBuffer = nil
	}
}
