// Package lights holds the light variants, the ordered directional light
// collection and shadow volume fitting.
package lights

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"gfxcore/internal/graphics"
)

// Kind identifies the light variant.
type Kind int

const (
	// Directional lights have a direction only and affect everything.
	Directional Kind = iota
	// Point lights emit in every direction up to Range.
	Point
	// Spot lights emit in a cone along Direction up to Range.
	Spot
)

func (k Kind) String() string {
	switch k {
	case Directional:
		return "directional"
	case Point:
		return "point"
	case Spot:
		return "spot"
	}
	return "unknown"
}

// Default light parameters.
const (
	DefaultRange         float32 = 10
	DefaultFalloff       float32 = 1
	DefaultAttenuation   float32 = math32.E
	DefaultShadowMapSize         = 1024
	spotNearPlane        float32 = 0.01
	spotMinFarPlane      float32 = 0.02
)

var (
	worldUp = mgl32.Vec3{0, 1, 0}
	unitX   = mgl32.Vec3{1, 0, 0}
)

// Light is a tagged variant. Kind selects which of the payload fields apply:
// Direction for Directional and Spot, Position/Range/Attenuation/Falloff for
// Point and Spot, InnerAngle/OuterAngle for Spot only.
type Light struct {
	Kind       Kind
	Enabled    bool
	CastShadow bool
	// Order sorts lights inside a collection, lowest first.
	Order int

	DiffuseColor  mgl32.Vec3
	SpecularColor mgl32.Vec3

	Direction   mgl32.Vec3
	Position    mgl32.Vec3
	Range       float32
	Attenuation float32
	Falloff     float32
	InnerAngle  float32
	OuterAngle  float32

	// ShadowMapSize is the edge length in texels used for shadow texel snapping.
	ShadowMapSize int

	shadow  ShadowFrustum
	points  []mgl32.Vec3
	casters []graphics.Spatial
	seen    map[any]struct{}
}

func NewDirectionalLight(direction mgl32.Vec3) *Light {
	return &Light{
		Kind:          Directional,
		Enabled:       true,
		DiffuseColor:  mgl32.Vec3{1, 1, 1},
		Direction:     direction.Normalize(),
		ShadowMapSize: DefaultShadowMapSize,
	}
}

func NewPointLight(position mgl32.Vec3) *Light {
	return &Light{
		Kind:         Point,
		Enabled:      true,
		DiffuseColor: mgl32.Vec3{1, 1, 1},
		Position:     position,
		Range:        DefaultRange,
		Attenuation:  DefaultAttenuation,
		Falloff:      DefaultFalloff,
	}
}

func NewSpotLight(position, direction mgl32.Vec3) *Light {
	return &Light{
		Kind:          Spot,
		Enabled:       true,
		DiffuseColor:  mgl32.Vec3{1, 1, 1},
		Position:      position,
		Direction:     direction.Normalize(),
		Range:         DefaultRange,
		Attenuation:   DefaultAttenuation,
		Falloff:       DefaultFalloff,
		InnerAngle:    math32.Pi / 4,
		OuterAngle:    math32.Pi / 2,
		ShadowMapSize: DefaultShadowMapSize,
	}
}

// ShadowContext is the frame state shadow fitting reads.
type ShadowContext interface {
	ViewFrustum() graphics.BoundingFrustum
	Bounds() graphics.BoundingBox
}

// CasterQuery appends shadow casters intersecting the frustum to result.
type CasterQuery func(frustum graphics.BoundingFrustum, result []graphics.Spatial) []graphics.Spatial

// behavior is the per-kind capability table entry.
type behavior interface {
	updateShadowFrustum(l *Light, ctx ShadowContext, casters CasterQuery, mapSize int) bool
	lightVolume(l *Light) (graphics.BoundingBox, bool)
}

var behaviors = [...]behavior{
	Directional: directionalBehavior{},
	Point:       pointBehavior{},
	Spot:        spotBehavior{},
}

// UpdateShadowFrustum refits the light's shadow volume for the current frame
// using the light's own ShadowMapSize. It returns false when the light kind
// has no shadow volume or nothing is visible.
func (l *Light) UpdateShadowFrustum(ctx ShadowContext, casters CasterQuery) (ShadowFrustum, bool) {
	return l.FitShadowFrustum(ctx, casters, l.ShadowMapSize)
}

// FitShadowFrustum is UpdateShadowFrustum for a map of mapSize texels, as
// chosen by the pass that renders it. The light itself is not modified
// beyond its cached volume.
func (l *Light) FitShadowFrustum(ctx ShadowContext, casters CasterQuery, mapSize int) (ShadowFrustum, bool) {
	if int(l.Kind) >= len(behaviors) {
		return ShadowFrustum{}, false
	}
	if !behaviors[l.Kind].updateShadowFrustum(l, ctx, casters, mapSize) {
		return ShadowFrustum{}, false
	}
	return l.shadow, true
}

// ShadowFrustum returns the volume from the last successful update.
func (l *Light) ShadowFrustum() ShadowFrustum { return l.shadow }

// LightVolume returns the world bounds the light can affect. Directional
// lights are unbounded and return false.
func (l *Light) LightVolume() (graphics.BoundingBox, bool) {
	if int(l.Kind) >= len(behaviors) {
		return graphics.BoundingBox{}, false
	}
	return behaviors[l.Kind].lightVolume(l)
}

// Lighting converts the light into the form materials consume.
func (l *Light) Lighting() graphics.DirectionalLighting {
	return graphics.DirectionalLighting{
		Enabled:   l.Enabled,
		Direction: l.Direction,
		Diffuse:   l.DiffuseColor,
		Specular:  l.SpecularColor,
	}
}

// lightView looks from eye along dir. A direction parallel to the world up
// vector yields a NaN basis, in which case UnitX is used as up instead.
func lightView(eye, dir mgl32.Vec3) mgl32.Mat4 {
	target := eye.Add(dir)
	view := mgl32.LookAtV(eye, target, worldUp)
	if math32.IsNaN(view[0]) {
		view = mgl32.LookAtV(eye, target, unitX)
	}
	return view
}

type pointBehavior struct{}

func (pointBehavior) updateShadowFrustum(*Light, ShadowContext, CasterQuery, int) bool { return false }

func (pointBehavior) lightVolume(l *Light) (graphics.BoundingBox, bool) {
	return graphics.BoxFromSphere(l.Position, l.Range), true
}

type spotBehavior struct{}

func (spotBehavior) updateShadowFrustum(l *Light, _ ShadowContext, _ CasterQuery, _ int) bool {
	far := math32.Max(spotMinFarPlane, l.Range)
	l.shadow = ShadowFrustum{
		View:       lightView(l.Position, l.Direction),
		Projection: mgl32.Perspective(l.OuterAngle, 1, spotNearPlane, far),
		Near:       spotNearPlane,
		Far:        far,
	}
	l.shadow.Frustum = graphics.NewBoundingFrustum(l.shadow.ViewProjection())
	return true
}

func (spotBehavior) lightVolume(l *Light) (graphics.BoundingBox, bool) {
	return graphics.BoxFromSphere(l.Position, l.Range), true
}
