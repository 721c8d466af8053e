package graphics

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// PassKind tags a concrete pass type in the pass registry.
type PassKind string

const (
	PassKindShadowMap   PassKind = "shadow-map"
	PassKindDiagnostics PassKind = "diagnostics"
)

// PassKindSet collects pass kinds required for a frame.
type PassKindSet map[PassKind]struct{}

func (s PassKindSet) Add(k PassKind) { s[k] = struct{}{} }

func (s PassKindSet) Has(k PassKind) bool {
	_, ok := s[k]
	return ok
}

// DrawContext is the per-frame state visible to drawables and materials.
type DrawContext interface {
	Device() Device
	Matrices() *MatrixCollection
	Environment() *Environment
	// SetVertexBuffer skips the device call when vb and offset are already bound.
	SetVertexBuffer(vb VertexBuffer, offset int)
}

// Material brackets the GPU state for a draw.
type Material interface {
	BeginApply(ctx DrawContext)
	EndApply(ctx DrawContext)
	// DependentPasses adds the pass kinds that must render before this material.
	DependentPasses(kinds PassKindSet)
	SetWorld(world mgl32.Mat4)
	SetTexture(tex Texture)
}

// Drawable is anything the scene index can hand to a pass.
type Drawable interface {
	Visible() bool
	Material() Material
	OnAddedToView(ctx DrawContext)
	Draw(ctx DrawContext, material Material) error
}

// Spatial objects expose world space bounds.
type Spatial interface {
	BoundingBox() BoundingBox
}

// Contained objects belong to a larger bounding container, such as a model owning its meshes.
type Contained interface {
	Container() any
}

// ShadowCaster is implemented by drawables that can opt out of shadow maps.
type ShadowCaster interface {
	CastShadow() bool
}

// Transparent is implemented by materials that need back to front sorting.
type Transparent interface {
	IsTransparent() bool
}

// TopmostContainer walks Container links up to the outermost owner.
func TopmostContainer(v any) any {
	for i := 0; i < 64; i++ {
		c, ok := v.(Contained)
		if !ok {
			return v
		}
		parent := c.Container()
		if parent == nil {
			return v
		}
		v = parent
	}
	return v
}

// Fog is linear distance fog.
type Fog struct {
	Enabled bool
	Color   mgl32.Vec3
	Start   float32
	End     float32
}

// DirectionalLighting is the main light as seen by materials.
type DirectionalLighting struct {
	Enabled   bool
	Direction mgl32.Vec3
	Diffuse   mgl32.Vec3
	Specular  mgl32.Vec3
}

// ShadowState is published by the shadow map pass for receiving materials.
type ShadowState struct {
	Enabled             bool
	Map                 Texture
	LightViewProjection mgl32.Mat4
}

// Environment holds frame wide shading inputs.
type Environment struct {
	Fog               Fog
	AmbientLightColor mgl32.Vec3
	MainLight         DirectionalLighting
	Shadow            ShadowState

	ElapsedTime  time.Duration
	TotalTime    time.Duration
	CurrentFrame int
}
