package graphics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitOrtho spans x and y in [-1,1] and z in [-10,0].
func unitOrtho() BoundingFrustum {
	return NewBoundingFrustum(mgl32.Ortho(-1, 1, -1, 1, 0, 10))
}

func TestFrustumContains(t *testing.T) {
	f := unitOrtho()

	assert.True(t, f.Contains(mgl32.Vec3{0, 0, -5}))
	assert.True(t, f.Contains(mgl32.Vec3{1, 1, -10}), "corner point")
	assert.False(t, f.Contains(mgl32.Vec3{0, 0, 5}))
	assert.False(t, f.Contains(mgl32.Vec3{2, 0, -5}))
}

func TestFrustumCorners(t *testing.T) {
	f := unitOrtho()
	want := [8]mgl32.Vec3{
		{-1, 1, 0}, {1, 1, 0}, {1, -1, 0}, {-1, -1, 0},
		{-1, 1, -10}, {1, 1, -10}, {1, -1, -10}, {-1, -1, -10},
	}
	got := f.Corners()
	for i := range want {
		assert.True(t, got[i].ApproxEqualThreshold(want[i], 1e-4), "corner %d: got %v, want %v", i, got[i], want[i])
	}
}

func TestFrustumIntersectsBox(t *testing.T) {
	f := unitOrtho()

	assert.True(t, f.IntersectsBox(BoxFromSphere(mgl32.Vec3{0, 0, -5}, 0.5)))
	assert.True(t, f.IntersectsBox(NewBoundingBox(mgl32.Vec3{0.5, 0.5, -1}, mgl32.Vec3{3, 3, 3})), "partial overlap")
	assert.False(t, f.IntersectsBox(BoxFromSphere(mgl32.Vec3{5, 5, 5}, 1)))
}

func TestFrustumIntersectionPoints(t *testing.T) {
	f := unitOrtho()
	box := NewBoundingBox(mgl32.Vec3{0, -0.5, -5}, mgl32.Vec3{2, 0.5, -4})

	points := f.IntersectionPoints(box, nil)
	for _, c := range box.Corners() {
		if f.Contains(c) {
			points = append(points, c)
		}
	}
	require.NotEmpty(t, points)

	got := BoxFromPoints(points)
	want := NewBoundingBox(mgl32.Vec3{0, -0.5, -5}, mgl32.Vec3{1, 0.5, -4})
	assert.True(t, got.Min.ApproxEqualThreshold(want.Min, 1e-4), "min: got %v, want %v", got.Min, want.Min)
	assert.True(t, got.Max.ApproxEqualThreshold(want.Max, 1e-4), "max: got %v, want %v", got.Max, want.Max)
}

func TestFrustumClipSegmentMiss(t *testing.T) {
	f := unitOrtho()
	_, _, ok := f.ClipSegment(mgl32.Vec3{5, 5, -1}, mgl32.Vec3{5, 5, -9})
	assert.False(t, ok)
}

func TestBoundingBoxTransform(t *testing.T) {
	b := NewBoundingBox(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1})
	moved := b.Transform(mgl32.Translate3D(10, 0, 0).Mul4(mgl32.Scale3D(2, 1, 1)))

	assert.True(t, moved.Min.ApproxEqualThreshold(mgl32.Vec3{8, -1, -1}, 1e-5), "got %v", moved.Min)
	assert.True(t, moved.Max.ApproxEqualThreshold(mgl32.Vec3{12, 1, 1}, 1e-5), "got %v", moved.Max)
}

func TestBoundingBoxMergeAndClip(t *testing.T) {
	b := EmptyBox.MergePoint(mgl32.Vec3{1, 2, 3}).MergePoint(mgl32.Vec3{-1, 0, 5})
	assert.Equal(t, mgl32.Vec3{-1, 0, 3}, b.Min)
	assert.Equal(t, mgl32.Vec3{1, 2, 5}, b.Max)
	assert.False(t, b.IsEmpty())
	assert.True(t, EmptyBox.IsEmpty())

	t0, t1, ok := b.ClipSegment(mgl32.Vec3{-5, 1, 4}, mgl32.Vec3{5, 1, 4})
	require.True(t, ok)
	assert.InDelta(t, 0.4, t0, 1e-6)
	assert.InDelta(t, 0.6, t1, 1e-6)
}

func TestPrimitiveCount(t *testing.T) {
	tests := []struct {
		pt   PrimitiveType
		n    int
		want int
	}{
		{LineStrip, 5, 4},
		{LineList, 6, 3},
		{TriangleList, 9, 3},
		{TriangleStrip, 6, 4},
		{TriangleStrip, 1, 0},
	}
	for _, tt := range tests {
		if got := PrimitiveCount(tt.pt, tt.n); got != tt.want {
			t.Fatalf("%v with %d elements: got %d, want %d", tt.pt, tt.n, got, tt.want)
		}
	}
	assert.Equal(t, 9, ElementCount(TriangleList, 3))
	assert.Equal(t, 6, ElementCount(TriangleStrip, 4))
	assert.Equal(t, 5, ElementCount(LineStrip, 4))
}

func TestTopmostContainer(t *testing.T) {
	root := &containerNode{}
	mid := &containerNode{parent: root}
	leaf := &containerNode{parent: mid}

	assert.Same(t, root, TopmostContainer(leaf))
	assert.Same(t, root, TopmostContainer(root))
	assert.Equal(t, 42, TopmostContainer(42))
}

type containerNode struct {
	parent *containerNode
}

func (n *containerNode) Container() any {
	if n.parent == nil {
		return nil
	}
	return n.parent
}
