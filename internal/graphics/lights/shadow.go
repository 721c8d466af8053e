package lights

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"gfxcore/internal/graphics"
)

// ShadowFrustum is a light's view and projection for one frame, together
// with the light space extents the projection was built from.
type ShadowFrustum struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Frustum    graphics.BoundingFrustum

	Left, Right float32
	Bottom, Top float32
	Near, Far   float32
}

func (s ShadowFrustum) ViewProjection() mgl32.Mat4 {
	return s.Projection.Mul4(s.View)
}

// minShadowDepth keeps the projection invertible for flat caster sets.
const minShadowDepth float32 = 1e-2

// lightExtents accumulates a light space box. Z is stored negated so that a
// larger value is further from the light.
type lightExtents struct {
	left, right, bottom, top, near, far float32
}

func emptyExtents() lightExtents {
	return lightExtents{
		left: math32.MaxFloat32, right: -math32.MaxFloat32,
		bottom: math32.MaxFloat32, top: -math32.MaxFloat32,
		near: math32.MaxFloat32, far: -math32.MaxFloat32,
	}
}

func (e *lightExtents) add(view mgl32.Mat4, p mgl32.Vec3) {
	q := mgl32.TransformCoordinate(p, view)
	z := -q[2]
	e.left = math32.Min(e.left, q[0])
	e.right = math32.Max(e.right, q[0])
	e.bottom = math32.Min(e.bottom, q[1])
	e.top = math32.Max(e.top, q[1])
	e.near = math32.Min(e.near, z)
	e.far = math32.Max(e.far, z)
}

func (e lightExtents) empty() bool { return e.left > e.right }

// pad grows the window to a square of its diagonal, then snaps the edges
// to whole texels of a mapSize shadow map so the volume only moves in
// texel steps as the camera moves.
func (e *lightExtents) pad(mapSize int) {
	if e.far-e.near < minShadowDepth {
		e.near -= minShadowDepth / 2
		e.far += minShadowDepth / 2
	}
	w, h := e.right-e.left, e.top-e.bottom
	diag := math32.Sqrt(w*w + h*h)
	if diag <= 0 {
		return
	}
	padX, padY := (diag-w)/2, (diag-h)/2
	e.left -= padX
	e.right += padX
	e.bottom -= padY
	e.top += padY

	if mapSize <= 0 {
		return
	}
	step := diag / float32(mapSize)
	e.left = math32.Floor(e.left/step) * step
	e.right = math32.Ceil(e.right/step) * step
	e.bottom = math32.Floor(e.bottom/step) * step
	e.top = math32.Ceil(e.top/step) * step
}

func (l *Light) setOrtho(view mgl32.Mat4, e lightExtents) {
	l.shadow = ShadowFrustum{
		View:       view,
		Projection: mgl32.Ortho(e.left, e.right, e.bottom, e.top, e.near, e.far),
		Left:       e.left, Right: e.right,
		Bottom: e.bottom, Top: e.top,
		Near: e.near, Far: e.far,
	}
	l.shadow.Frustum = graphics.NewBoundingFrustum(l.shadow.ViewProjection())
}

type directionalBehavior struct{}

func (directionalBehavior) lightVolume(*Light) (graphics.BoundingBox, bool) {
	return graphics.BoundingBox{}, false
}

// updateShadowFrustum fits an orthographic volume in two passes. The first
// bounds the visible part of the scene and pulls the near plane back by the
// scene diagonal. The second refits the volume to every caster found in
// the first volume, so casters outside the view still shadow it.
func (directionalBehavior) updateShadowFrustum(l *Light, ctx ShadowContext, query CasterQuery, mapSize int) bool {
	bounds := ctx.Bounds()
	if bounds.IsEmpty() {
		return false
	}
	frustum := ctx.ViewFrustum()

	points := frustum.IntersectionPoints(bounds, l.points[:0])
	for _, c := range frustum.Corners() {
		if bounds.Contains(c) {
			points = append(points, c)
		}
	}
	for _, c := range bounds.Corners() {
		if frustum.Contains(c) {
			points = append(points, c)
		}
	}
	l.points = points
	if len(points) == 0 {
		return false
	}

	view := lightView(mgl32.Vec3{}, l.Direction)

	visible := emptyExtents()
	for _, p := range points {
		visible.add(view, p)
	}
	visible.near = visible.far - bounds.Diagonal()
	l.setOrtho(view, visible)

	if query == nil {
		return true
	}
	l.casters = query(l.shadow.Frustum, l.casters[:0])
	if l.seen == nil {
		l.seen = make(map[any]struct{})
	}
	clear(l.seen)

	fitted := emptyExtents()
	for _, c := range l.casters {
		top := graphics.TopmostContainer(c)
		if _, dup := l.seen[top]; dup {
			continue
		}
		l.seen[top] = struct{}{}

		box := c.BoundingBox()
		if s, ok := top.(graphics.Spatial); ok {
			box = s.BoundingBox()
		}
		if box.IsEmpty() {
			continue
		}
		for _, corner := range box.Corners() {
			fitted.add(view, corner)
		}
	}
	if fitted.empty() {
		return true
	}

	fitted.pad(mapSize)
	l.setOrtho(view, fitted)
	return true
}
