package renderer

import (
	"errors"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gfxcore/internal/config"
	"gfxcore/internal/graphics"
	"gfxcore/internal/graphics/headless"
	"gfxcore/internal/graphics/lights"
	"gfxcore/internal/graphics/primitives"
)

const frameTime = 16 * time.Millisecond

// funcPass is a pass whose behavior is supplied by the test.
type funcPass struct {
	PassBase
	draw  func(ctx *DrawingContext, drawables []graphics.Drawable) error
	view  *[2]mgl32.Mat4
	kinds []graphics.PassKind
}

func (p *funcPass) Draw(ctx *DrawingContext, drawables []graphics.Drawable) error {
	if p.draw == nil {
		return nil
	}
	return p.draw(ctx, drawables)
}

func (p *funcPass) ViewFrustum(ctx *DrawingContext) (mgl32.Mat4, mgl32.Mat4, bool) {
	if p.view == nil {
		return p.PassBase.ViewFrustum(ctx)
	}
	return p.view[0], p.view[1], true
}

func (p *funcPass) DependentPasses(kinds graphics.PassKindSet) {
	for _, k := range p.kinds {
		kinds.Add(k)
	}
}

// kindMaterial requests an extra pass kind.
type kindMaterial struct {
	*graphics.BasicMaterial
	kind graphics.PassKind
}

func (m kindMaterial) DependentPasses(kinds graphics.PassKindSet) { kinds.Add(m.kind) }

func newTestContext(t *testing.T, s config.Settings) (*DrawingContext, *headless.Device) {
	t.Helper()
	dev := headless.NewDevice(320, 240)
	ctx, err := NewDrawingContext(dev, nil, s, nil)
	require.NoError(t, err)
	ctx.SetCamera(graphics.NewCamera(320, 240))
	t.Cleanup(ctx.Close)
	return ctx, dev
}

func addBox(t *testing.T, ctx *DrawingContext, pos mgl32.Vec3) *primitives.Primitive {
	t.Helper()
	p, err := primitives.NewPrimitive(ctx.Primitives(), ctx.Device(), primitives.Box(1, 1, 1))
	require.NoError(t, err)
	p.SetTransform(mgl32.Translate3D(pos.Elem()))
	ctx.Scene().Add(p)
	return p
}

func pushedTargets(dev *headless.Device) []graphics.RenderTarget {
	var out []graphics.RenderTarget
	for _, c := range dev.Commands {
		if c.Op == headless.OpPushTarget {
			out = append(out, c.Target)
		}
	}
	return out
}

func TestNewDrawingContextNilDevice(t *testing.T) {
	_, err := NewDrawingContext(nil, nil, config.Default(), nil)
	assert.ErrorIs(t, err, ErrNilDevice)
}

func TestDrawRequiresCamera(t *testing.T) {
	ctx, err := NewDrawingContext(headless.NewDevice(64, 64), nil, config.Default(), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, ctx.Draw(frameTime), ErrNoCamera)
}

func TestDrawFrame(t *testing.T) {
	ctx, dev := newTestContext(t, config.Default())
	addBox(t, ctx, mgl32.Vec3{})
	addBox(t, ctx, mgl32.Vec3{0, 0, 500}) // behind the camera

	require.NoError(t, ctx.Draw(frameTime))
	require.Empty(t, dev.Errors)

	assert.Equal(t, 1, ctx.CurrentFrame())
	assert.False(t, ctx.IsDrawing())
	assert.Len(t, ctx.DrawablesInView(), 1)
	assert.Equal(t, 1, ctx.Stats().DrawablesInView)
	assert.Equal(t, 2, ctx.Stats().Passes, "main and sprites")
	assert.Equal(t, 1, dev.Count(headless.OpClear))
	require.Len(t, dev.Draws(), 1)
	assert.Equal(t, graphics.TriangleList, dev.Draws()[0].Primitive)
	assert.Equal(t, 12, dev.Draws()[0].PrimitiveCount)
	assert.Equal(t, frameTime, ctx.Environment().TotalTime)
}

func TestReentrantDrawFails(t *testing.T) {
	ctx, _ := newTestContext(t, config.Default())
	var inner error
	ctx.Passes().Add(&funcPass{
		PassBase: PassBase{Name: "reenter"},
		draw: func(ctx *DrawingContext, _ []graphics.Drawable) error {
			inner = ctx.Draw(frameTime)
			return nil
		},
	})

	require.NoError(t, ctx.Draw(frameTime))
	assert.ErrorIs(t, inner, ErrAlreadyDrawing)
	assert.False(t, ctx.IsDrawing())
}

func TestPassErrorAbortsFrame(t *testing.T) {
	ctx, dev := newTestContext(t, config.Default())
	addBox(t, ctx, mgl32.Vec3{})
	boom := errors.New("boom")
	failing := &funcPass{
		PassBase: PassBase{Name: "failing"},
		draw:     func(*DrawingContext, []graphics.Drawable) error { return boom },
	}
	failing.SetOrder(200)
	ctx.Passes().Add(failing)
	ctx.AddPostEffect(NewPostEffect("copy"))

	err := ctx.Draw(frameTime)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
	assert.False(t, ctx.IsDrawing())
	assert.Equal(t, 0, dev.TargetDepth(), "intermediate target popped")
	assert.Empty(t, dev.Errors)
	for _, rt := range pushedTargets(dev) {
		assert.Equal(t, 0, ctx.RenderTargets().RefCount(rt))
	}
	assert.Equal(t, 0, ctx.CurrentFrame())

	failing.SetEnabled(false)
	assert.NoError(t, ctx.Draw(frameTime))
	assert.Equal(t, 1, ctx.CurrentFrame())
}

func TestShadowPassCreatedOnDemand(t *testing.T) {
	ctx, dev := newTestContext(t, config.Default())
	box := addBox(t, ctx, mgl32.Vec3{})
	mat := box.Material().(*graphics.BasicMaterial)
	mat.ReceiveShadows = true
	mat.LightingEnabled = true

	sun := lights.NewDirectionalLight(mgl32.Vec3{-1, -1, -1})
	sun.CastShadow = true
	require.NoError(t, ctx.DirectionalLights().Add(sun))

	require.NoError(t, ctx.Draw(frameTime))
	require.Empty(t, dev.Errors)
	require.Equal(t, 3, ctx.Passes().Len())
	shadow, ok := ctx.Passes().Passes()[2].(*ShadowMapPass)
	require.True(t, ok)
	assert.True(t, shadow.Enabled())

	targets := pushedTargets(dev)
	require.Len(t, targets, 1)
	assert.Same(t, shadow.Target(), targets[0])
	assert.Equal(t, 1024, targets[0].Width())
	assert.Equal(t, graphics.FormatSingle, targets[0].Format())

	draws := dev.Draws()
	require.Len(t, draws, 2)
	assert.True(t, draws[0].Effect.DepthOnly, "casters first")
	assert.Same(t, shadow.Target(), draws[0].Target)
	assert.Nil(t, draws[1].Target)
	assert.Same(t, shadow.Target(), draws[1].Effect.ShadowMap)
	assert.True(t, ctx.Environment().Shadow.Enabled)
	assert.Equal(t, float32(1), draws[1].Effect.LightDiffuse[0])

	dev.Reset()
	mat.ReceiveShadows = false
	require.NoError(t, ctx.Draw(frameTime))
	assert.False(t, shadow.Enabled())
	assert.Equal(t, 0, dev.Count(headless.OpPushTarget))
	assert.False(t, ctx.Environment().Shadow.Enabled)

	mat.ReceiveShadows = true
	require.NoError(t, ctx.Draw(frameTime))
	assert.Equal(t, 3, ctx.Passes().Len(), "pass reused")
	assert.Same(t, shadow, ctx.Passes().Passes()[2])
	assert.True(t, shadow.Enabled())
	assert.Equal(t, 1, dev.Stats.RenderTargetsCreated)
}

func TestShadowPassLeavesLightMapSize(t *testing.T) {
	s := config.Default()
	s.Shadow.MapSize = 512
	ctx, dev := newTestContext(t, s)
	box := addBox(t, ctx, mgl32.Vec3{})
	box.Material().(*graphics.BasicMaterial).ReceiveShadows = true

	sun := lights.NewDirectionalLight(mgl32.Vec3{-1, -1, -1})
	sun.CastShadow = true
	sun.ShadowMapSize = 64
	require.NoError(t, ctx.DirectionalLights().Add(sun))

	require.NoError(t, ctx.Draw(frameTime))
	require.Empty(t, dev.Errors)
	targets := pushedTargets(dev)
	require.Len(t, targets, 1)
	assert.Equal(t, 512, targets[0].Width())
	assert.Equal(t, 64, sun.ShadowMapSize, "caller owned setting")
}

func TestShadowsDisabledBySettings(t *testing.T) {
	s := config.Default()
	s.Shadow.Enabled = false
	ctx, _ := newTestContext(t, s)
	box := addBox(t, ctx, mgl32.Vec3{})
	box.Material().(*graphics.BasicMaterial).ReceiveShadows = true

	require.NoError(t, ctx.Draw(frameTime))
	assert.Equal(t, 2, ctx.Passes().Len())
}

func TestPostEffectChain(t *testing.T) {
	ctx, dev := newTestContext(t, config.Default())
	addBox(t, ctx, mgl32.Vec3{})

	first := NewPostEffect("first")
	first.InputFormatHint = Format(graphics.FormatHalfVector4)
	second := NewPostEffect("second")
	second.SetOrder(postEffectOrder + 1)
	ctx.AddPostEffect(first)
	ctx.AddPostEffect(second)

	require.NoError(t, ctx.Draw(frameTime))
	require.Empty(t, dev.Errors)

	main := ctx.MainPass()
	assert.Equal(t, BeginRenderTarget, main.Operation())
	assert.Equal(t, Format(graphics.FormatHalfVector4), main.PassFormat())
	assert.Equal(t, BeginRenderTarget|EndRenderTarget, first.Operation())
	assert.Equal(t, EndRenderTarget, second.Operation())
	assert.Equal(t, PassOperationNone, ctx.SpritePass().Operation())
	assert.Equal(t, 0, dev.TargetDepth())

	targets := pushedTargets(dev)
	require.Len(t, targets, 2)
	sceneTarget, firstTarget := targets[0], targets[1]
	assert.NotSame(t, sceneTarget, firstTarget)
	assert.Equal(t, graphics.FormatHalfVector4, sceneTarget.Format())
	assert.Equal(t, graphics.Depth24Stencil8, sceneTarget.DepthFormat())
	assert.Equal(t, graphics.FormatHalfVector4, firstTarget.Format(), "inherits the input format")
	assert.Equal(t, graphics.DepthNone, firstTarget.DepthFormat())

	draws := dev.Draws()
	require.Len(t, draws, 3)
	assert.Same(t, sceneTarget, draws[0].Target)
	assert.Same(t, firstTarget, draws[1].Target)
	assert.Same(t, sceneTarget, draws[1].Effect.Texture)
	assert.Nil(t, draws[2].Target)
	assert.Same(t, firstTarget, draws[2].Effect.Texture)
	assert.Nil(t, first.InputTexture())

	pool := ctx.RenderTargets()
	assert.Equal(t, 2, pool.Len())
	assert.Equal(t, 0, pool.RefCount(sceneTarget))
	assert.Equal(t, 0, pool.RefCount(firstTarget))

	require.NoError(t, ctx.Draw(frameTime))
	assert.Equal(t, 2, dev.Stats.RenderTargetsCreated, "targets reused")

	second.Material = nil
	require.NoError(t, ctx.Draw(frameTime))
	assert.Equal(t, EndRenderTarget, first.Operation())
	assert.Equal(t, BeginRenderTarget, main.Operation())

	require.True(t, ctx.RemovePostEffect(first))
	require.NoError(t, ctx.Draw(frameTime))
	assert.Equal(t, PassOperationNone, main.Operation())
}

func TestViewOverrideRestoresBaseView(t *testing.T) {
	ctx, _ := newTestContext(t, config.Default())
	addBox(t, ctx, mgl32.Vec3{})

	away := [2]mgl32.Mat4{
		mgl32.LookAtV(mgl32.Vec3{0, 0, 100}, mgl32.Vec3{0, 0, 200}, mgl32.Vec3{0, 1, 0}),
		mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 50),
	}
	var seenByOverride, seenAfter int
	var viewAfter mgl32.Mat4
	override := &funcPass{
		PassBase: PassBase{Name: "override"},
		view:     &away,
		draw: func(ctx *DrawingContext, d []graphics.Drawable) error {
			seenByOverride = len(d)
			return nil
		},
	}
	override.SetOrder(-1)
	after := &funcPass{
		PassBase: PassBase{Name: "after"},
		draw: func(ctx *DrawingContext, d []graphics.Drawable) error {
			seenAfter = len(d)
			viewAfter = ctx.Matrices().View()
			return nil
		},
	}
	after.SetOrder(10)
	ctx.Passes().Add(override)
	ctx.Passes().Add(after)

	cam := graphics.NewCamera(320, 240)
	require.NoError(t, ctx.Draw(frameTime))
	assert.Equal(t, 0, seenByOverride, "drawables re-queried in the overriding frustum")
	assert.Equal(t, 1, seenAfter)
	assert.Equal(t, cam.ViewMatrix(), viewAfter)
	assert.Equal(t, cam.ViewMatrix(), ctx.Matrices().View())
}

func TestSamplerRefresh(t *testing.T) {
	ctx, dev := newTestContext(t, config.Default())

	require.NoError(t, ctx.Draw(frameTime))
	assert.Equal(t, graphics.LinearWrap, dev.Sampler(0))
	assert.Equal(t, graphics.LinearWrap, dev.Sampler(graphics.MaxSamplerSlots-1))

	ctx.SetTextureFilter(graphics.FilterPoint)
	require.NoError(t, ctx.Draw(frameTime))
	assert.Equal(t, graphics.PointWrap, dev.Sampler(7))

	ctx.SetMaxAnisotropy(8)
	require.NoError(t, ctx.Draw(frameTime))
	assert.Equal(t, graphics.SamplerState{Filter: graphics.FilterPoint, MaxAnisotropy: 8}, dev.Sampler(3))
}

func TestUnknownPassKind(t *testing.T) {
	ctx, _ := newTestContext(t, config.Default())
	box := addBox(t, ctx, mgl32.Vec3{})
	box.SetMaterial(kindMaterial{BasicMaterial: graphics.NewBasicMaterial(), kind: "bloom"})

	err := ctx.Draw(frameTime)
	require.ErrorIs(t, err, ErrUnknownPass)
	assert.False(t, ctx.IsDrawing())

	created := 0
	ctx.Registry()["bloom"] = PassRegistration{
		New: func(*DrawingContext) (Pass, error) {
			created++
			return &funcPass{PassBase: PassBase{Name: "bloom"}}, nil
		},
	}
	require.NoError(t, ctx.Draw(frameTime))
	require.NoError(t, ctx.Draw(frameTime))
	assert.Equal(t, 1, created)
	assert.Equal(t, 3, ctx.Passes().Len())
}

func TestPassFactoryError(t *testing.T) {
	ctx, _ := newTestContext(t, config.Default())
	boom := errors.New("no shaders")
	ctx.Registry()["custom"] = PassRegistration{
		New: func(*DrawingContext) (Pass, error) { return nil, boom },
	}
	ctx.Passes().Add(&funcPass{PassBase: PassBase{Name: "needs-custom"}, kinds: []graphics.PassKind{"custom"}})

	err := ctx.Draw(frameTime)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "custom")
}

func TestDependentPassRunsFirst(t *testing.T) {
	ctx, _ := newTestContext(t, config.Default())
	var order []string
	ctx.Registry()["prepass"] = PassRegistration{
		New: func(*DrawingContext) (Pass, error) {
			p := &funcPass{PassBase: PassBase{Name: "prepass"}}
			p.draw = func(*DrawingContext, []graphics.Drawable) error {
				order = append(order, "prepass")
				return nil
			}
			p.SetOrder(5000)
			return p, nil
		},
	}
	ctx.MainPass().Material = kindMaterial{BasicMaterial: graphics.NewBasicMaterial(), kind: "prepass"}
	addBox(t, ctx, mgl32.Vec3{})
	probe := &funcPass{
		PassBase: PassBase{Name: "probe"},
		draw: func(*DrawingContext, []graphics.Drawable) error {
			order = append(order, "probe")
			return nil
		},
	}
	probe.SetOrder(1)
	ctx.Passes().Add(probe)

	require.NoError(t, ctx.Draw(frameTime))
	assert.Equal(t, []string{"prepass", "probe"}, order, "dependency outranks order")
}

func TestDiagnosticsOverlay(t *testing.T) {
	s := config.Default()
	s.Render.ShowDiagnostics = true
	ctx, dev := newTestContext(t, s)
	addBox(t, ctx, mgl32.Vec3{})

	require.NoError(t, ctx.Draw(frameTime))
	require.Empty(t, dev.Errors)

	var diag *DiagnosticsPass
	for _, p := range ctx.Passes().Passes() {
		if d, ok := p.(*DiagnosticsPass); ok {
			diag = d
		}
	}
	require.NotNil(t, diag)

	draws := dev.Draws()
	require.Len(t, draws, 2, "box, then every outline merged into one batch")
	assert.Equal(t, graphics.TriangleList, draws[0].Primitive)
	assert.Equal(t, graphics.TriangleList, draws[1].Primitive, "outlines are line quads")
	assert.Equal(t, 2*24, draws[1].PrimitiveCount, "scene bounds and the box")
	assert.Equal(t, float32(1), draws[1].Effect.LineThickness)
	assert.InDelta(t, diagnosticsDepthBias, draws[1].Rasterizer.DepthBias, 1e-9)
	assert.Equal(t, graphics.RasterizerState{}, dev.RasterizerState(), "restored")

	dev.Reset()
	diag.LineWidth = 0
	require.NoError(t, ctx.Draw(frameTime))
	draws = dev.Draws()
	require.Len(t, draws, 2)
	assert.Equal(t, graphics.LineList, draws[1].Primitive)
	assert.Equal(t, 24, draws[1].PrimitiveCount)
}

func TestDiagnosticsOutlinesLocalLights(t *testing.T) {
	s := config.Default()
	s.Render.ShowDiagnostics = true
	ctx, dev := newTestContext(t, s)
	addBox(t, ctx, mgl32.Vec3{})

	point := lights.NewPointLight(mgl32.Vec3{})
	point.Range = 2
	spot := lights.NewSpotLight(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{0, -1, 0})
	spot.Range = 4
	behind := lights.NewPointLight(mgl32.Vec3{0, 0, 500})
	behind.Range = 1
	off := lights.NewPointLight(mgl32.Vec3{1, 0, 0})
	off.Enabled = false
	for _, l := range []*lights.Light{point, spot, behind, off, point} {
		require.NoError(t, ctx.AddLocalLight(l))
	}
	assert.Len(t, ctx.LocalLights(), 4, "added once")
	assert.ErrorIs(t, ctx.AddLocalLight(lights.NewDirectionalLight(mgl32.Vec3{0, -1, 0})), lights.ErrNotLocal)
	assert.ErrorIs(t, ctx.AddLocalLight(nil), lights.ErrNilLight)

	require.NoError(t, ctx.Draw(frameTime))
	require.Empty(t, dev.Errors)
	assert.Equal(t, []*lights.Light{point, spot}, ctx.LocalLightsInView(nil))

	draws := dev.Draws()
	require.Len(t, draws, 2)
	edges := 12 + 12 + 3*24 + 12 // scene, box, point sphere, spot frustum
	assert.Equal(t, 2*edges, draws[1].PrimitiveCount)

	assert.True(t, ctx.RemoveLocalLight(spot))
	assert.False(t, ctx.RemoveLocalLight(spot))
	dev.Reset()
	require.NoError(t, ctx.Draw(frameTime))
	require.Len(t, dev.Draws(), 2)
	assert.Equal(t, 2*(edges-12), dev.Draws()[1].PrimitiveCount)
}

func TestBoundsAndShadowCasters(t *testing.T) {
	ctx, _ := newTestContext(t, config.Default())
	addBox(t, ctx, mgl32.Vec3{})
	hidden := addBox(t, ctx, mgl32.Vec3{10, 0, 0})
	hidden.SetCastShadow(false)
	ctx.Scene().Add("not spatial")

	b := ctx.Bounds()
	assert.Equal(t, mgl32.Vec3{-0.5, -0.5, -0.5}, b.Min)
	assert.Equal(t, mgl32.Vec3{10.5, 0.5, 0.5}, b.Max)

	everything := graphics.NewBoundingFrustum(mgl32.Ortho(-100, 100, -100, 100, -100, 100))
	assert.Len(t, ctx.FindShadowCasters(everything, nil), 1)

	hidden.SetCastShadow(true)
	hidden.SetVisible(false)
	assert.Len(t, ctx.FindShadowCasters(everything, nil), 1)
}

func TestTransparentDrawablesSortedBackToFront(t *testing.T) {
	ctx, dev := newTestContext(t, config.Default())
	near := addBox(t, ctx, mgl32.Vec3{0, 0, 10})
	far := addBox(t, ctx, mgl32.Vec3{0, 0, -10})
	addBox(t, ctx, mgl32.Vec3{})
	for _, p := range []*primitives.Primitive{near, far} {
		m := graphics.NewBasicMaterial()
		m.Alpha = 0.5
		p.SetMaterial(m)
	}

	require.NoError(t, ctx.Draw(frameTime))
	draws := dev.Draws()
	require.Len(t, draws, 3)
	z := func(c headless.Command) float32 { return c.Effect.World.Col(3)[2] }
	assert.Equal(t, []float32{0, -10, 10}, []float32{z(draws[0]), z(draws[1]), z(draws[2])})
	assert.Equal(t, 3, ctx.Stats().MaterialChanges)
}

func TestSpritePassText(t *testing.T) {
	ctx, dev := newTestContext(t, config.Default())
	ctx.SpritePass().DrawText([]string{"hello"}, 10, 10)
	assert.Equal(t, 1, ctx.SpritePass().Queued())

	require.NoError(t, ctx.Draw(frameTime))
	require.Empty(t, dev.Errors)
	assert.Equal(t, 1, dev.Stats.TexturesCreated)
	require.Len(t, dev.Draws(), 1)
	assert.NotNil(t, dev.Draws()[0].Effect.Texture)
	assert.Equal(t, 0, ctx.SpritePass().Queued())

	dev.Reset()
	require.NoError(t, ctx.Draw(frameTime))
	assert.Empty(t, dev.Draws())
}

func TestApplySettings(t *testing.T) {
	ctx, dev := newTestContext(t, config.Default())
	s := config.Default()
	s.Render.ShowStats = true
	s.Render.TextureFilter = "anisotropic"
	s.Render.BackgroundColor = [3]float32{1, 0, 0}
	s.Fog.Enabled = true
	ctx.ApplySettings(s)

	assert.True(t, ctx.SpritePass().ShowStats)
	assert.True(t, ctx.Environment().Fog.Enabled)
	require.NoError(t, ctx.Draw(frameTime))
	assert.Equal(t, graphics.AnisotropicWrap, dev.Sampler(0))
	assert.Equal(t, uint8(255), ctx.MainPass().BackgroundColor.R)
	assert.Equal(t, 1, dev.Stats.TexturesCreated, "stats overlay")
	assert.NotEmpty(t, ctx.StatsLines())
}
