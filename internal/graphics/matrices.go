package graphics

import "github.com/go-gl/mathgl/mgl32"

// Dirty bits for the derived matrices of a MatrixCollection.
const (
	ViewFrustumDirty uint32 = 1 << iota
	ViewProjectionDirty
	_
	ViewTransposeDirty
	ViewInverseTransposeDirty
	ProjectionInverseDirty
	ProjectionTransposeDirty
	ProjectionInverseTransposeDirty
	ViewProjectionInverseDirty

	viewDependents = ViewFrustumDirty | ViewProjectionDirty | ViewProjectionInverseDirty |
		ViewTransposeDirty | ViewInverseTransposeDirty
	projectionDependents = ViewFrustumDirty | ViewProjectionDirty | ViewProjectionInverseDirty |
		ProjectionInverseDirty | ProjectionTransposeDirty | ProjectionInverseTransposeDirty
)

// MatrixCollection caches matrices derived from a view and projection pair.
// Derived values are recomputed on the first read after SetView or SetProjection.
type MatrixCollection struct {
	dirty uint32

	view           mgl32.Mat4
	viewInverse    mgl32.Mat4
	projection     mgl32.Mat4
	cameraPosition mgl32.Vec3

	viewFrustum                BoundingFrustum
	viewProjection             mgl32.Mat4
	viewProjectionInverse      mgl32.Mat4
	viewTranspose              mgl32.Mat4
	viewInverseTranspose       mgl32.Mat4
	projectionInverse          mgl32.Mat4
	projectionTranspose        mgl32.Mat4
	projectionInverseTranspose mgl32.Mat4
}

// NewMatrixCollection starts with identity view and projection.
func NewMatrixCollection() *MatrixCollection {
	m := &MatrixCollection{dirty: ^uint32(0)}
	m.SetView(mgl32.Ident4())
	m.SetProjection(mgl32.Ident4())
	return m
}

// View returns the view matrix.
func (m *MatrixCollection) View() mgl32.Mat4 { return m.view }

// Projection returns the projection matrix.
func (m *MatrixCollection) Projection() mgl32.Mat4 { return m.projection }

// ViewInverse is computed eagerly by SetView.
func (m *MatrixCollection) ViewInverse() mgl32.Mat4 { return m.viewInverse }

// CameraPosition is the translation of the inverse view.
func (m *MatrixCollection) CameraPosition() mgl32.Vec3 { return m.cameraPosition }

// SetView replaces the view matrix and invalidates everything derived from it.
func (m *MatrixCollection) SetView(v mgl32.Mat4) {
	m.view = v
	m.viewInverse = v.Inv()
	m.cameraPosition = mgl32.Vec3{m.viewInverse[12], m.viewInverse[13], m.viewInverse[14]}
	m.dirty |= viewDependents
}

// SetProjection replaces the projection matrix and invalidates everything derived from it.
func (m *MatrixCollection) SetProjection(p mgl32.Mat4) {
	m.projection = p
	m.dirty |= projectionDependents
}

// Dirty reports whether any of the given bits are pending recomputation.
func (m *MatrixCollection) Dirty(bits uint32) bool {
	return m.dirty&bits != 0
}

func (m *MatrixCollection) ViewProjection() mgl32.Mat4 {
	if m.dirty&ViewProjectionDirty != 0 {
		m.viewProjection = m.projection.Mul4(m.view)
		m.dirty &^= ViewProjectionDirty
	}
	return m.viewProjection
}

func (m *MatrixCollection) ViewProjectionInverse() mgl32.Mat4 {
	if m.dirty&ViewProjectionInverseDirty != 0 {
		m.viewProjectionInverse = m.ViewProjection().Inv()
		m.dirty &^= ViewProjectionInverseDirty
	}
	return m.viewProjectionInverse
}

func (m *MatrixCollection) ViewFrustum() BoundingFrustum {
	if m.dirty&ViewFrustumDirty != 0 {
		m.viewFrustum.SetMatrix(m.ViewProjection())
		m.dirty &^= ViewFrustumDirty
	}
	return m.viewFrustum
}

func (m *MatrixCollection) ViewTranspose() mgl32.Mat4 {
	if m.dirty&ViewTransposeDirty != 0 {
		m.viewTranspose = m.view.Transpose()
		m.dirty &^= ViewTransposeDirty
	}
	return m.viewTranspose
}

func (m *MatrixCollection) ViewInverseTranspose() mgl32.Mat4 {
	if m.dirty&ViewInverseTransposeDirty != 0 {
		m.viewInverseTranspose = m.viewInverse.Transpose()
		m.dirty &^= ViewInverseTransposeDirty
	}
	return m.viewInverseTranspose
}

func (m *MatrixCollection) ProjectionInverse() mgl32.Mat4 {
	if m.dirty&ProjectionInverseDirty != 0 {
		m.projectionInverse = m.projection.Inv()
		m.dirty &^= ProjectionInverseDirty
	}
	return m.projectionInverse
}

func (m *MatrixCollection) ProjectionTranspose() mgl32.Mat4 {
	if m.dirty&ProjectionTransposeDirty != 0 {
		m.projectionTranspose = m.projection.Transpose()
		m.dirty &^= ProjectionTransposeDirty
	}
	return m.projectionTranspose
}

func (m *MatrixCollection) ProjectionInverseTranspose() mgl32.Mat4 {
	if m.dirty&ProjectionInverseTransposeDirty != 0 {
		m.projectionInverseTranspose = m.ProjectionInverse().Transpose()
		m.dirty &^= ProjectionInverseTransposeDirty
	}
	return m.projectionInverseTranspose
}
