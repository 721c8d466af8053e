package renderer

import (
	"slices"

	"gfxcore/internal/graphics"
)

// SpatialQuery finds objects of type T by volume. Results are appended to
// result, which callers reuse between frames.
type SpatialQuery[T any] interface {
	FindInFrustum(f graphics.BoundingFrustum, result []T) []T
	FindInBox(b graphics.BoundingBox, result []T) []T
}

// Scene is a flat object list searched linearly by its queries.
type Scene struct {
	objects []any
	version int
}

func NewScene(objects ...any) *Scene {
	return &Scene{objects: objects}
}

func (s *Scene) Add(obj any) {
	s.objects = append(s.objects, obj)
	s.version++
}

// Remove deletes obj and reports whether it was present.
func (s *Scene) Remove(obj any) bool {
	i := slices.Index(s.objects, obj)
	if i < 0 {
		return false
	}
	s.objects = slices.Delete(s.objects, i, i+1)
	s.version++
	return true
}

func (s *Scene) Objects() []any { return s.objects }

func (s *Scene) Len() int { return len(s.objects) }

// Version increases with every Add and Remove.
func (s *Scene) Version() int { return s.version }

// Drawables returns a query over the drawables of the scene.
func (s *Scene) Drawables() SpatialQuery[graphics.Drawable] {
	return sceneQuery[graphics.Drawable]{scene: s}
}

// Spatials returns a query over objects that expose bounds.
func (s *Scene) Spatials() SpatialQuery[graphics.Spatial] {
	return sceneQuery[graphics.Spatial]{scene: s}
}

type sceneQuery[T any] struct {
	scene *Scene
}

func (q sceneQuery[T]) FindInFrustum(f graphics.BoundingFrustum, result []T) []T {
	return q.find(func(b graphics.BoundingBox) bool { return f.IntersectsBox(b) }, result)
}

func (q sceneQuery[T]) FindInBox(box graphics.BoundingBox, result []T) []T {
	return q.find(func(b graphics.BoundingBox) bool { return box.Intersects(b) }, result)
}

// find keeps objects without bounds: they cannot be culled.
func (q sceneQuery[T]) find(hit func(graphics.BoundingBox) bool, result []T) []T {
	for _, obj := range q.scene.objects {
		v, ok := obj.(T)
		if !ok {
			continue
		}
		if sp, ok := obj.(graphics.Spatial); ok {
			b := sp.BoundingBox()
			if b.IsEmpty() || !hit(b) {
				continue
			}
		}
		result = append(result, v)
	}
	return result
}
