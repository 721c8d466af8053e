package graphics

import "github.com/go-gl/mathgl/mgl32"

// MaterialBase stores the per-draw world and texture. Embed it in materials.
type MaterialBase struct {
	world   mgl32.Mat4
	texture Texture
}

func (m *MaterialBase) SetWorld(world mgl32.Mat4) { m.world = world }

func (m *MaterialBase) SetTexture(tex Texture) { m.texture = tex }

// World returns the world matrix, identity when never set.
func (m *MaterialBase) World() mgl32.Mat4 {
	if m.world == (mgl32.Mat4{}) {
		return mgl32.Ident4()
	}
	return m.world
}

func (m *MaterialBase) Texture() Texture { return m.texture }

func (m *MaterialBase) DependentPasses(PassKindSet) {}

func (m *MaterialBase) EndApply(DrawContext) {}

// BasicMaterial is a forward shaded material with optional lighting, fog and shadows.
type BasicMaterial struct {
	MaterialBase

	DiffuseColor       mgl32.Vec3
	Alpha              float32
	VertexColorEnabled bool
	LightingEnabled    bool
	FogEnabled         bool
	ReceiveShadows     bool

	params EffectParameters
}

func NewBasicMaterial() *BasicMaterial {
	return &BasicMaterial{
		DiffuseColor: mgl32.Vec3{1, 1, 1},
		Alpha:        1,
	}
}

func (m *BasicMaterial) IsTransparent() bool { return m.Alpha < 1 }

func (m *BasicMaterial) DependentPasses(kinds PassKindSet) {
	if m.ReceiveShadows {
		kinds.Add(PassKindShadowMap)
	}
}

func (m *BasicMaterial) BeginApply(ctx DrawContext) {
	env := ctx.Environment()
	mats := ctx.Matrices()

	m.params = EffectParameters{
		World:        m.World(),
		View:         mats.View(),
		Projection:   mats.Projection(),
		Texture:      m.texture,
		DiffuseColor: m.DiffuseColor,
		Alpha:        m.Alpha,
		VertexColor:  m.VertexColorEnabled,
	}
	if m.LightingEnabled {
		m.params.LightingEnabled = true
		m.params.AmbientLightColor = env.AmbientLightColor
		if env.MainLight.Enabled {
			m.params.LightDirection = env.MainLight.Direction
			m.params.LightDiffuse = env.MainLight.Diffuse
			m.params.LightSpecular = env.MainLight.Specular
		}
	}
	if m.FogEnabled && env.Fog.Enabled {
		m.params.FogEnabled = true
		m.params.FogColor = env.Fog.Color
		m.params.FogStart = env.Fog.Start
		m.params.FogEnd = env.Fog.End
	}
	if m.ReceiveShadows && env.Shadow.Enabled {
		m.params.ShadowMap = env.Shadow.Map
		m.params.ShadowLightViewProjection = env.Shadow.LightViewProjection
	}
	ctx.Device().ApplyEffect(&m.params)
}

// DepthMaterial writes depth only. Shadow map passes draw casters with it.
type DepthMaterial struct {
	MaterialBase
	params EffectParameters
}

func (m *DepthMaterial) BeginApply(ctx DrawContext) {
	mats := ctx.Matrices()
	m.params = EffectParameters{
		World:      m.World(),
		View:       mats.View(),
		Projection: mats.Projection(),
		DepthOnly:  true,
		Alpha:      1,
	}
	ctx.Device().ApplyEffect(&m.params)
}

// ScreenMaterial draws geometry already in normalized device coordinates,
// or in pixels when Pixels is set.
type ScreenMaterial struct {
	MaterialBase

	Color  mgl32.Vec3
	Alpha  float32
	Pixels bool

	params EffectParameters
}

func NewScreenMaterial() *ScreenMaterial {
	return &ScreenMaterial{Color: mgl32.Vec3{1, 1, 1}, Alpha: 1}
}

func (m *ScreenMaterial) BeginApply(ctx DrawContext) {
	proj := mgl32.Ident4()
	if m.Pixels {
		vp := ctx.Device().Viewport()
		proj = mgl32.Ortho2D(0, float32(vp.Width), float32(vp.Height), 0)
	}
	m.params = EffectParameters{
		World:        m.World(),
		View:         mgl32.Ident4(),
		Projection:   proj,
		Texture:      m.texture,
		DiffuseColor: m.Color,
		Alpha:        m.Alpha,
		VertexColor:  true,
	}
	ctx.Device().ApplyEffect(&m.params)
}

// ThickLineMaterial draws line quads expanded by DynamicPrimitive. Every
// vertex carries the point its line extends toward in Normal; the effect
// pushes it sideways so the quad is Thickness pixels wide on screen.
type ThickLineMaterial struct {
	MaterialBase

	Thickness float32
	Alpha     float32

	params EffectParameters
}

func NewThickLineMaterial() *ThickLineMaterial {
	return &ThickLineMaterial{Thickness: 1, Alpha: 1}
}

func (m *ThickLineMaterial) IsTransparent() bool { return m.Alpha < 1 }

func (m *ThickLineMaterial) BeginApply(ctx DrawContext) {
	mats := ctx.Matrices()
	m.params = EffectParameters{
		World:         m.World(),
		View:          mats.View(),
		Projection:    mats.Projection(),
		Texture:       m.texture,
		DiffuseColor:  mgl32.Vec3{1, 1, 1},
		Alpha:         m.Alpha,
		VertexColor:   true,
		LineThickness: m.Thickness,
	}
	ctx.Device().ApplyEffect(&m.params)
}
