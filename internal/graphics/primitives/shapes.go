package primitives

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ShapeKind selects a generator.
type ShapeKind int

const (
	ShapeBox ShapeKind = iota
	ShapeSphere
	ShapePlane
	ShapeCylinder
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeBox:
		return "box"
	case ShapeSphere:
		return "sphere"
	case ShapePlane:
		return "plane"
	case ShapeCylinder:
		return "cylinder"
	}
	return "unknown"
}

// Shape describes procedural geometry. Two equal shapes share GPU buffers.
//
// Size is the full extent for boxes, X radius for spheres, X/Z extent for
// planes and X radius with Y height for cylinders.
type Shape struct {
	Kind         ShapeKind
	Size         mgl32.Vec3
	Tessellation int
}

func Box(width, height, depth float32) Shape {
	return Shape{Kind: ShapeBox, Size: mgl32.Vec3{width, height, depth}}
}

func Sphere(radius float32, tessellation int) Shape {
	return Shape{Kind: ShapeSphere, Size: mgl32.Vec3{radius, radius, radius}, Tessellation: max(tessellation, 3)}
}

func Plane(width, depth float32, tessellation int) Shape {
	return Shape{Kind: ShapePlane, Size: mgl32.Vec3{width, 0, depth}, Tessellation: max(tessellation, 1)}
}

func Cylinder(radius, height float32, tessellation int) Shape {
	return Shape{Kind: ShapeCylinder, Size: mgl32.Vec3{radius, height, radius}, Tessellation: max(tessellation, 3)}
}

// geometry is the scratch output of a generator. Triangles wind counter clockwise.
type geometry struct {
	positions []mgl32.Vec3
	normals   []mgl32.Vec3
	texCoords []mgl32.Vec2
	indices   []int
}

func (g *geometry) reset() {
	g.positions = g.positions[:0]
	g.normals = g.normals[:0]
	g.texCoords = g.texCoords[:0]
	g.indices = g.indices[:0]
}

func (g *geometry) vertex(p, n mgl32.Vec3, uv mgl32.Vec2) int {
	g.positions = append(g.positions, p)
	g.normals = append(g.normals, n)
	g.texCoords = append(g.texCoords, uv)
	return len(g.positions) - 1
}

type generator func(s Shape, g *geometry)

var generators = map[ShapeKind]generator{
	ShapeBox:      buildBox,
	ShapeSphere:   buildSphere,
	ShapePlane:    buildPlane,
	ShapeCylinder: buildCylinder,
}

func buildBox(s Shape, g *geometry) {
	half := s.Size.Mul(0.5)
	faces := [6]mgl32.Vec3{{0, 0, 1}, {0, 0, -1}, {1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}}
	for _, n := range faces {
		side1 := mgl32.Vec3{n[1], n[2], n[0]}
		side2 := n.Cross(side1)
		corner := func(a, b float32) mgl32.Vec3 {
			v := n.Add(side1.Mul(a)).Add(side2.Mul(b))
			return mgl32.Vec3{v[0] * half[0], v[1] * half[1], v[2] * half[2]}
		}
		base := g.vertex(corner(-1, -1), n, mgl32.Vec2{1, 1})
		g.vertex(corner(-1, 1), n, mgl32.Vec2{0, 1})
		g.vertex(corner(1, 1), n, mgl32.Vec2{0, 0})
		g.vertex(corner(1, -1), n, mgl32.Vec2{1, 0})
		g.indices = append(g.indices, base, base+2, base+1, base, base+3, base+2)
	}
}

func buildSphere(s Shape, g *geometry) {
	radius := s.Size[0]
	segments := s.Tessellation * 2
	rings := s.Tessellation

	for ring := 0; ring <= rings; ring++ {
		phi := float32(ring) * math32.Pi / float32(rings)
		sinPhi, cosPhi := math32.Sin(phi), math32.Cos(phi)
		for seg := 0; seg <= segments; seg++ {
			theta := float32(seg) * 2 * math32.Pi / float32(segments)
			n := mgl32.Vec3{sinPhi * math32.Cos(theta), cosPhi, sinPhi * math32.Sin(theta)}
			g.vertex(n.Mul(radius), n, mgl32.Vec2{float32(seg) / float32(segments), float32(ring) / float32(rings)})
		}
	}
	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			current := ring*(segments+1) + seg
			next := current + segments + 1
			g.indices = append(g.indices, current, current+1, next, current+1, next+1, next)
		}
	}
}

func buildPlane(s Shape, g *geometry) {
	n := s.Tessellation
	up := mgl32.Vec3{0, 1, 0}
	for i := 0; i <= n; i++ {
		v := float32(i) / float32(n)
		for j := 0; j <= n; j++ {
			u := float32(j) / float32(n)
			g.vertex(mgl32.Vec3{(u - 0.5) * s.Size[0], 0, (v - 0.5) * s.Size[2]}, up, mgl32.Vec2{u, v})
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a := i*(n+1) + j
			b, c := a+1, a+n+1
			g.indices = append(g.indices, a, c, b, b, c, c+1)
		}
	}
}

func buildCylinder(s Shape, g *geometry) {
	radius, half := s.Size[0], s.Size[1]/2
	n := s.Tessellation

	for i := 0; i <= n; i++ {
		a := 2 * math32.Pi * float32(i) / float32(n)
		dir := mgl32.Vec3{math32.Cos(a), 0, math32.Sin(a)}
		u := float32(i) / float32(n)
		g.vertex(dir.Mul(radius).Add(mgl32.Vec3{0, half, 0}), dir, mgl32.Vec2{u, 0})
		g.vertex(dir.Mul(radius).Sub(mgl32.Vec3{0, half, 0}), dir, mgl32.Vec2{u, 1})
	}
	for i := 0; i < n; i++ {
		top, bottom := i*2, i*2+1
		nextTop, nextBottom := top+2, bottom+2
		g.indices = append(g.indices, top, nextTop, bottom, nextTop, nextBottom, bottom)
	}

	for _, y := range []float32{half, -half} {
		normal := mgl32.Vec3{0, math32.Copysign(1, y), 0}
		center := g.vertex(mgl32.Vec3{0, y, 0}, normal, mgl32.Vec2{0.5, 0.5})
		for i := 0; i < n; i++ {
			a := 2 * math32.Pi * float32(i) / float32(n)
			g.vertex(mgl32.Vec3{radius * math32.Cos(a), y, radius * math32.Sin(a)}, normal,
				mgl32.Vec2{0.5 + 0.5*math32.Cos(a), 0.5 + 0.5*math32.Sin(a)})
		}
		for i := 0; i < n; i++ {
			a, b := center+1+i, center+1+(i+1)%n
			if y > 0 {
				g.indices = append(g.indices, center, b, a)
			} else {
				g.indices = append(g.indices, center, a, b)
			}
		}
	}
}
