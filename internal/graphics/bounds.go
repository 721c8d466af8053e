package graphics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// BoundingBox is an axis aligned box.
type BoundingBox struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyBox is inverted so that merging any point or box into it yields that point or box.
var EmptyBox = BoundingBox{
	Min: mgl32.Vec3{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32},
	Max: mgl32.Vec3{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32},
}

// NewBoundingBox returns a box spanning min and max.
func NewBoundingBox(min, max mgl32.Vec3) BoundingBox {
	return BoundingBox{Min: min, Max: max}
}

// BoxFromPoints returns the smallest box containing every point.
func BoxFromPoints(points []mgl32.Vec3) BoundingBox {
	b := EmptyBox
	for _, p := range points {
		b = b.MergePoint(p)
	}
	return b
}

// BoxFromSphere returns the box enclosing a sphere.
func BoxFromSphere(center mgl32.Vec3, radius float32) BoundingBox {
	r := mgl32.Vec3{radius, radius, radius}
	return BoundingBox{Min: center.Sub(r), Max: center.Add(r)}
}

// IsEmpty reports whether the box is inverted on any axis.
func (b BoundingBox) IsEmpty() bool {
	return b.Min.X() > b.Max.X() || b.Min.Y() > b.Max.Y() || b.Min.Z() > b.Max.Z()
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the extent on each axis.
func (b BoundingBox) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Diagonal returns the length of the box diagonal.
func (b BoundingBox) Diagonal() float32 {
	return b.Max.Sub(b.Min).Len()
}

// Corners returns the eight corners. The first four lie on the min Z face.
func (b BoundingBox) Corners() [8]mgl32.Vec3 {
	mn, mx := b.Min, b.Max
	return [8]mgl32.Vec3{
		{mn[0], mx[1], mn[2]},
		{mx[0], mx[1], mn[2]},
		{mx[0], mn[1], mn[2]},
		{mn[0], mn[1], mn[2]},
		{mn[0], mx[1], mx[2]},
		{mx[0], mx[1], mx[2]},
		{mx[0], mn[1], mx[2]},
		{mn[0], mn[1], mx[2]},
	}
}

// Contains reports whether p is inside or on the surface of the box.
func (b BoundingBox) Contains(p mgl32.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// ContainsBox reports whether o lies entirely inside b.
func (b BoundingBox) ContainsBox(o BoundingBox) bool {
	return b.Contains(o.Min) && b.Contains(o.Max)
}

// Intersects reports whether the two boxes overlap.
func (b BoundingBox) Intersects(o BoundingBox) bool {
	return b.Min[0] <= o.Max[0] && b.Max[0] >= o.Min[0] &&
		b.Min[1] <= o.Max[1] && b.Max[1] >= o.Min[1] &&
		b.Min[2] <= o.Max[2] && b.Max[2] >= o.Min[2]
}

// Merge returns the union of the two boxes.
func (b BoundingBox) Merge(o BoundingBox) BoundingBox {
	return BoundingBox{
		Min: mgl32.Vec3{math32.Min(b.Min[0], o.Min[0]), math32.Min(b.Min[1], o.Min[1]), math32.Min(b.Min[2], o.Min[2])},
		Max: mgl32.Vec3{math32.Max(b.Max[0], o.Max[0]), math32.Max(b.Max[1], o.Max[1]), math32.Max(b.Max[2], o.Max[2])},
	}
}

// MergePoint grows the box to include p.
func (b BoundingBox) MergePoint(p mgl32.Vec3) BoundingBox {
	return b.Merge(BoundingBox{Min: p, Max: p})
}

// Clamp limits the box to the extent of limit.
func (b BoundingBox) Clamp(limit BoundingBox) BoundingBox {
	return BoundingBox{
		Min: mgl32.Vec3{math32.Max(b.Min[0], limit.Min[0]), math32.Max(b.Min[1], limit.Min[1]), math32.Max(b.Min[2], limit.Min[2])},
		Max: mgl32.Vec3{math32.Min(b.Max[0], limit.Max[0]), math32.Min(b.Max[1], limit.Max[1]), math32.Min(b.Max[2], limit.Max[2])},
	}
}

// Transform returns the axis aligned box around the eight transformed corners.
func (b BoundingBox) Transform(m mgl32.Mat4) BoundingBox {
	if b.IsEmpty() {
		return b
	}
	out := EmptyBox
	for _, c := range b.Corners() {
		out = out.MergePoint(mgl32.TransformCoordinate(c, m))
	}
	return out
}

// ClipSegment clips the segment a-b against the box using the slab method.
// It returns the parametric interval inside the box and false when the
// segment misses it.
func (b BoundingBox) ClipSegment(a, bEnd mgl32.Vec3) (t0, t1 float32, ok bool) {
	t0, t1 = 0, 1
	d := bEnd.Sub(a)
	for axis := 0; axis < 3; axis++ {
		if math32.Abs(d[axis]) < 1e-12 {
			if a[axis] < b.Min[axis] || a[axis] > b.Max[axis] {
				return 0, 0, false
			}
			continue
		}
		inv := 1 / d[axis]
		near := (b.Min[axis] - a[axis]) * inv
		far := (b.Max[axis] - a[axis]) * inv
		if near > far {
			near, far = far, near
		}
		t0 = math32.Max(t0, near)
		t1 = math32.Min(t1, far)
		if t0 > t1 {
			return 0, 0, false
		}
	}
	return t0, t1, true
}

// boxEdges lists corner index pairs for the twelve edges of a hexahedron
// whose corners follow the Corners layout.
var boxEdges = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0},
	{4, 5}, {5, 6}, {6, 7}, {7, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}
