package primitives

import (
	"image/color"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"gfxcore/internal/graphics"
)

// hexahedronEdges indexes the corner layout shared by BoundingBox.Corners
// and BoundingFrustum.Corners.
var hexahedronEdges = [...]int{
	0, 1, 1, 2, 2, 3, 3, 0,
	4, 5, 5, 6, 6, 7, 7, 4,
	0, 4, 1, 5, 2, 6, 3, 7,
}

var hexahedronFaces = [...]int{
	0, 1, 2, 0, 2, 3, // min z
	5, 4, 7, 5, 7, 6, // max z
	4, 0, 3, 4, 3, 7, // min x
	1, 5, 6, 1, 6, 2, // max x
	4, 5, 1, 4, 1, 0, // max y
	3, 2, 6, 3, 6, 7, // min y
}

// addIndexed adds one primitive. On failure the partial primitive is
// discarded so the batcher stays usable; a primitive the caller already had
// open is left alone.
func (p *DynamicPrimitive) addIndexed(pt graphics.PrimitiveType, tex graphics.Texture, world *mgl32.Mat4, width float32, verts []graphics.Vertex, indices []int) error {
	if err := p.BeginPrimitiveWidth(pt, tex, world, width); err != nil {
		return err
	}
	if err := p.fill(verts, indices); err != nil {
		p.AbortPrimitive()
		return err
	}
	return nil
}

func (p *DynamicPrimitive) fill(verts []graphics.Vertex, indices []int) error {
	for _, v := range verts {
		if _, err := p.AddVertex(v); err != nil {
			return err
		}
	}
	for _, i := range indices {
		if err := p.AddIndex(i); err != nil {
			return err
		}
	}
	return p.EndPrimitive()
}

func colored(points []mgl32.Vec3, c color.RGBA) []graphics.Vertex {
	out := make([]graphics.Vertex, len(points))
	for i, pt := range points {
		out[i] = graphics.Vertex{Position: pt, Color: c}
	}
	return out
}

// AddLine adds a single non-indexed line segment. Helpers taking a width
// draw hairlines for zero and screen space quads that many pixels wide
// otherwise.
func (p *DynamicPrimitive) AddLine(from, to mgl32.Vec3, c color.RGBA, width float32) error {
	return p.addIndexed(graphics.LineList, nil, nil, width, colored([]mgl32.Vec3{from, to}, c), nil)
}

// AddBox adds the twelve edges of b.
func (p *DynamicPrimitive) AddBox(b graphics.BoundingBox, world *mgl32.Mat4, c color.RGBA, width float32) error {
	corners := b.Corners()
	return p.addIndexed(graphics.LineList, nil, world, width, colored(corners[:], c), hexahedronEdges[:])
}

// AddSolidBox adds b as twelve triangles.
func (p *DynamicPrimitive) AddSolidBox(b graphics.BoundingBox, world *mgl32.Mat4, c color.RGBA) error {
	corners := b.Corners()
	return p.addIndexed(graphics.TriangleList, nil, world, 0, colored(corners[:], c), hexahedronFaces[:])
}

// AddFrustum adds the twelve edges of f.
func (p *DynamicPrimitive) AddFrustum(f graphics.BoundingFrustum, world *mgl32.Mat4, c color.RGBA, width float32) error {
	corners := f.Corners()
	return p.addIndexed(graphics.LineList, nil, world, width, colored(corners[:], c), hexahedronEdges[:])
}

// AddCircle adds a closed ring around center in the plane orthogonal to normal.
func (p *DynamicPrimitive) AddCircle(center, normal mgl32.Vec3, radius float32, tessellation int, c color.RGBA, width float32) error {
	tessellation = max(tessellation, 3)
	u, v := orthonormalBasis(normal)

	verts := make([]graphics.Vertex, tessellation)
	indices := make([]int, 0, tessellation*2)
	for i := 0; i < tessellation; i++ {
		a := 2 * math32.Pi * float32(i) / float32(tessellation)
		pos := center.Add(u.Mul(radius * math32.Cos(a))).Add(v.Mul(radius * math32.Sin(a)))
		verts[i] = graphics.Vertex{Position: pos, Color: c}
		indices = append(indices, i, (i+1)%tessellation)
	}
	return p.addIndexed(graphics.LineList, nil, nil, width, verts, indices)
}

// AddSphere adds three great circles.
func (p *DynamicPrimitive) AddSphere(center mgl32.Vec3, radius float32, tessellation int, c color.RGBA, width float32) error {
	for _, n := range []mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}} {
		if err := p.AddCircle(center, n, radius, tessellation, c, width); err != nil {
			return err
		}
	}
	return nil
}

// AddGrid adds a square grid on the XZ plane centred at center.
func (p *DynamicPrimitive) AddGrid(center mgl32.Vec3, step float32, lines int, c color.RGBA, width float32) error {
	lines = max(lines, 1)
	half := step * float32(lines) / 2
	verts := make([]graphics.Vertex, 0, (lines+1)*4)
	for i := 0; i <= lines; i++ {
		o := -half + step*float32(i)
		verts = append(verts,
			graphics.Vertex{Position: center.Add(mgl32.Vec3{o, 0, -half}), Color: c},
			graphics.Vertex{Position: center.Add(mgl32.Vec3{o, 0, half}), Color: c},
			graphics.Vertex{Position: center.Add(mgl32.Vec3{-half, 0, o}), Color: c},
			graphics.Vertex{Position: center.Add(mgl32.Vec3{half, 0, o}), Color: c},
		)
	}
	return p.addIndexed(graphics.LineList, nil, nil, width, verts, nil)
}

// AddQuad adds a textured rectangle with its top left corner at (x, y),
// using pixel coordinates when drawn with a pixel space material.
func (p *DynamicPrimitive) AddQuad(x, y, w, h float32, tex graphics.Texture, c color.RGBA) error {
	verts := []graphics.Vertex{
		{Position: mgl32.Vec3{x, y, 0}, Color: c, TexCoord: mgl32.Vec2{0, 0}},
		{Position: mgl32.Vec3{x + w, y, 0}, Color: c, TexCoord: mgl32.Vec2{1, 0}},
		{Position: mgl32.Vec3{x + w, y + h, 0}, Color: c, TexCoord: mgl32.Vec2{1, 1}},
		{Position: mgl32.Vec3{x, y + h, 0}, Color: c, TexCoord: mgl32.Vec2{0, 1}},
	}
	return p.addIndexed(graphics.TriangleList, tex, nil, 0, verts, []int{0, 1, 2, 0, 2, 3})
}

func orthonormalBasis(n mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	n = n.Normalize()
	ref := mgl32.Vec3{0, 1, 0}
	if math32.Abs(n.Dot(ref)) > 0.9 {
		ref = mgl32.Vec3{1, 0, 0}
	}
	u := n.Cross(ref).Normalize()
	return u, n.Cross(u)
}
