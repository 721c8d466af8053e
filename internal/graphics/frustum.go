package graphics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// containsEpsilon absorbs float error for points lying on a frustum plane.
const containsEpsilon = 1e-4

// Plane is a normalized plane. Points with a non-negative distance are on the inner side.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

// Distance returns the signed distance from p to the plane.
func (p Plane) Distance(v mgl32.Vec3) float32 {
	return p.Normal.Dot(v) + p.D
}

func normalizePlane(a, b, c, d float32) Plane {
	l := math32.Sqrt(a*a + b*b + c*c)
	if l == 0 {
		return Plane{Normal: mgl32.Vec3{a, b, c}, D: d}
	}
	return Plane{Normal: mgl32.Vec3{a / l, b / l, c / l}, D: d / l}
}

// BoundingFrustum is the convex volume described by a projection*view matrix.
type BoundingFrustum struct {
	matrix  mgl32.Mat4
	planes  [6]Plane
	corners [8]mgl32.Vec3
}

// NewBoundingFrustum builds a frustum from the combined clip matrix.
func NewBoundingFrustum(clip mgl32.Mat4) BoundingFrustum {
	var f BoundingFrustum
	f.SetMatrix(clip)
	return f
}

// SetMatrix rebuilds planes and corners from clip.
func (f *BoundingFrustum) SetMatrix(clip mgl32.Mat4) {
	f.matrix = clip
	f.planes = extractPlanes(clip)

	inv := clip.Inv()
	ndc := [8]mgl32.Vec3{
		{-1, 1, -1}, {1, 1, -1}, {1, -1, -1}, {-1, -1, -1},
		{-1, 1, 1}, {1, 1, 1}, {1, -1, 1}, {-1, -1, 1},
	}
	for i, c := range ndc {
		f.corners[i] = mgl32.TransformCoordinate(c, inv)
	}
}

// Matrix returns the clip matrix the frustum was built from.
func (f BoundingFrustum) Matrix() mgl32.Mat4 { return f.matrix }

// Planes returns the planes in order left, right, bottom, top, near, far.
func (f BoundingFrustum) Planes() [6]Plane { return f.planes }

// Corners returns the near face corners followed by the far face corners.
func (f BoundingFrustum) Corners() [8]mgl32.Vec3 { return f.corners }

// extractPlanes builds six planes from the combined projection*view matrix.
// mgl32 matrices are column major.
func extractPlanes(clip mgl32.Mat4) [6]Plane {
	m00, m01, m02, m03 := clip[0], clip[4], clip[8], clip[12]
	m10, m11, m12, m13 := clip[1], clip[5], clip[9], clip[13]
	m20, m21, m22, m23 := clip[2], clip[6], clip[10], clip[14]
	m30, m31, m32, m33 := clip[3], clip[7], clip[11], clip[15]

	return [6]Plane{
		normalizePlane(m30+m00, m31+m01, m32+m02, m33+m03), // left
		normalizePlane(m30-m00, m31-m01, m32-m02, m33-m03), // right
		normalizePlane(m30+m10, m31+m11, m32+m12, m33+m13), // bottom
		normalizePlane(m30-m10, m31-m11, m32-m12, m33-m13), // top
		normalizePlane(m30+m20, m31+m21, m32+m22, m33+m23), // near
		normalizePlane(m30-m20, m31-m21, m32-m22, m33-m23), // far
	}
}

// Contains reports whether p is inside the frustum.
func (f BoundingFrustum) Contains(p mgl32.Vec3) bool {
	for _, pl := range f.planes {
		if pl.Distance(p) < -containsEpsilon {
			return false
		}
	}
	return true
}

// IntersectsBox tests the box against every plane using its positive vertex.
// It may report false positives near frustum edges.
func (f BoundingFrustum) IntersectsBox(b BoundingBox) bool {
	for _, p := range f.planes {
		v := b.Max
		if p.Normal[0] < 0 {
			v[0] = b.Min[0]
		}
		if p.Normal[1] < 0 {
			v[1] = b.Min[1]
		}
		if p.Normal[2] < 0 {
			v[2] = b.Min[2]
		}
		if p.Distance(v) < 0 {
			return false
		}
	}
	return true
}

// ClipSegment clips a-b against the frustum planes.
func (f BoundingFrustum) ClipSegment(a, b mgl32.Vec3) (t0, t1 float32, ok bool) {
	t0, t1 = 0, 1
	for _, p := range f.planes {
		da, db := p.Distance(a), p.Distance(b)
		if da < 0 && db < 0 {
			return 0, 0, false
		}
		if da >= 0 && db >= 0 {
			continue
		}
		t := da / (da - db)
		if da < 0 {
			t0 = math32.Max(t0, t)
		} else {
			t1 = math32.Min(t1, t)
		}
		if t0 > t1 {
			return 0, 0, false
		}
	}
	return t0, t1, true
}

// IntersectionPoints appends the points where frustum edges cross the
// surface of b and where edges of b cross the surface of the frustum.
func (f BoundingFrustum) IntersectionPoints(b BoundingBox, result []mgl32.Vec3) []mgl32.Vec3 {
	for _, e := range boxEdges {
		p0, p1 := f.corners[e[0]], f.corners[e[1]]
		if t0, t1, ok := b.ClipSegment(p0, p1); ok {
			result = appendCrossings(result, p0, p1, t0, t1)
		}
	}
	bc := b.Corners()
	for _, e := range boxEdges {
		p0, p1 := bc[e[0]], bc[e[1]]
		if t0, t1, ok := f.ClipSegment(p0, p1); ok {
			result = appendCrossings(result, p0, p1, t0, t1)
		}
	}
	return result
}

func appendCrossings(result []mgl32.Vec3, a, b mgl32.Vec3, t0, t1 float32) []mgl32.Vec3 {
	d := b.Sub(a)
	if t0 > 0 {
		result = append(result, a.Add(d.Mul(t0)))
	}
	if t1 < 1 {
		result = append(result, a.Add(d.Mul(t1)))
	}
	return result
}
