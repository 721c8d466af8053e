package graphics

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomView(r *rand.Rand) mgl32.Mat4 {
	eye := mgl32.Vec3{r.Float32()*20 - 10, r.Float32()*20 + 1, r.Float32()*20 - 10}
	target := mgl32.Vec3{r.Float32() - 0.5, 0, r.Float32() - 0.5}
	return mgl32.LookAtV(eye, target, mgl32.Vec3{0, 1, 0})
}

func randomProjection(r *rand.Rand) mgl32.Mat4 {
	if r.Intn(2) == 0 {
		return mgl32.Perspective(mgl32.DegToRad(30+r.Float32()*60), 0.5+r.Float32(), 0.1, 100+r.Float32()*100)
	}
	w := 1 + r.Float32()*10
	return mgl32.Ortho(-w, w, -w, w, 0.5, 50)
}

func TestMatrixCollectionCoherence(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	m := NewMatrixCollection()
	view, proj := mgl32.Ident4(), mgl32.Ident4()

	for i := 0; i < 500; i++ {
		switch r.Intn(3) {
		case 0:
			view = randomView(r)
			m.SetView(view)
		case 1:
			proj = randomProjection(r)
			m.SetProjection(proj)
		}

		// Read a random subset so some caches go stale between writes.
		switch r.Intn(9) {
		case 0:
			assert.Equal(t, proj.Mul4(view), m.ViewProjection())
		case 1:
			assert.Equal(t, proj.Mul4(view).Inv(), m.ViewProjectionInverse())
		case 2:
			assert.Equal(t, view.Transpose(), m.ViewTranspose())
		case 3:
			assert.Equal(t, view.Inv().Transpose(), m.ViewInverseTranspose())
		case 4:
			assert.Equal(t, proj.Inv(), m.ProjectionInverse())
		case 5:
			assert.Equal(t, proj.Transpose(), m.ProjectionTranspose())
		case 6:
			assert.Equal(t, proj.Inv().Transpose(), m.ProjectionInverseTranspose())
		case 7:
			assert.Equal(t, proj.Mul4(view), m.ViewFrustum().Matrix())
		case 8:
			assert.Equal(t, view.Inv(), m.ViewInverse())
		}
	}
}

func TestMatrixCollectionDirtyBits(t *testing.T) {
	m := NewMatrixCollection()
	_ = m.ViewProjection()
	_ = m.ProjectionInverse()
	_ = m.ViewTranspose()
	require.False(t, m.Dirty(ViewProjectionDirty|ProjectionInverseDirty|ViewTransposeDirty))

	m.SetView(mgl32.Translate3D(1, 2, 3))
	assert.True(t, m.Dirty(ViewProjectionDirty))
	assert.True(t, m.Dirty(ViewTransposeDirty))
	assert.False(t, m.Dirty(ProjectionInverseDirty))

	_ = m.ViewProjection()
	assert.False(t, m.Dirty(ViewProjectionDirty))

	m.SetProjection(mgl32.Perspective(1, 1, 0.1, 10))
	assert.True(t, m.Dirty(ProjectionInverseDirty))
	assert.False(t, m.Dirty(ViewTransposeDirty))
}

func TestMatrixCollectionCameraPosition(t *testing.T) {
	m := NewMatrixCollection()
	eye := mgl32.Vec3{3, 4, 5}
	m.SetView(mgl32.LookAtV(eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}))

	assert.True(t, m.CameraPosition().ApproxEqualThreshold(eye, 1e-4), "got %v, want %v", m.CameraPosition(), eye)
}

func TestMatrixCollectionSingularView(t *testing.T) {
	m := NewMatrixCollection()
	m.SetView(mgl32.Mat4{})

	// Singular input is not rejected; the zero inverse flows through.
	assert.Equal(t, mgl32.Mat4{}, m.ViewInverse())
	assert.Equal(t, mgl32.Vec3{}, m.CameraPosition())
}

func BenchmarkMatrixCollectionViewProjection(b *testing.B) {
	m := NewMatrixCollection()
	view := mgl32.LookAtV(mgl32.Vec3{0, 5, 10}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(1, 1.5, 0.1, 100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.SetView(view)
		m.SetProjection(proj)
		_ = m.ViewFrustum()
	}
}
