// Package renderer schedules passes over a scene and chains post effects
// through pooled render targets.
package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"gfxcore/internal/config"
	"gfxcore/internal/graphics"
	"gfxcore/internal/graphics/lights"
	"gfxcore/internal/graphics/primitives"
	"gfxcore/internal/profiling"
)

var (
	ErrAlreadyDrawing = errors.New("renderer: already drawing")
	ErrNilDevice      = errors.New("renderer: nil device")
	ErrNoCamera       = errors.New("renderer: no camera")
	ErrUnknownPass    = errors.New("renderer: unknown pass kind")
)

const sceneLimit = 1e6

var sceneLimitBox = graphics.NewBoundingBox(
	mgl32.Vec3{-sceneLimit, -sceneLimit, -sceneLimit},
	mgl32.Vec3{sceneLimit, sceneLimit, sceneLimit},
)

// Pass orders used for the built-in passes. Post effects added without an
// order are placed between the overlays and the sprites.
const (
	mainPassOrder        = 0
	diagnosticsPassOrder = 100
	postEffectOrder      = 500
	spritePassOrder      = 1000
)

// FrameStats describes the last frame.
type FrameStats struct {
	Frame           int
	Elapsed         time.Duration
	DrawablesInView int
	Passes          int
	MaterialChanges int
	PooledTargets   int
}

// DrawingContext owns the per-frame state of a device: matrices, lights,
// the pass graph and the caches shared by passes.
type DrawingContext struct {
	device   graphics.Device
	scene    *Scene
	logger   *slog.Logger
	settings config.Settings

	matrices *graphics.MatrixCollection
	env      graphics.Environment
	lights   *lights.DirectionalLightCollection
	local    []*lights.Light
	camera   graphics.ViewSource

	samplersDirty bool
	textureFilter graphics.TextureFilter
	maxAnisotropy int

	root       *PassGroup
	mainPass   *DrawingPass
	spritePass *SpritePass
	registry   PassRegistry
	dependent  map[graphics.PassKind]Pass
	kinds      graphics.PassKindSet
	active     []Pass

	drawables SpatialQuery[graphics.Drawable]
	inView    []graphics.Drawable
	queried   []graphics.Drawable
	casters   []graphics.Drawable

	pool       *RenderTargetPool
	primitives *primitives.Cache

	bounds      graphics.BoundingBox
	boundsDirty bool

	drawing      bool
	frame        int
	boundVB      graphics.VertexBuffer
	boundOffset  int
	prevMaterial graphics.Material

	baseView    mgl32.Mat4
	baseProj    mgl32.Mat4
	baseFrustum graphics.BoundingFrustum

	stats FrameStats
}

// NewDrawingContext prepares a context drawing scene on dev. A nil scene
// starts empty and a nil logger uses slog.Default.
func NewDrawingContext(dev graphics.Device, scene *Scene, settings config.Settings, logger *slog.Logger) (*DrawingContext, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	if scene == nil {
		scene = NewScene()
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &DrawingContext{
		device:        dev,
		scene:         scene,
		logger:        logger,
		matrices:      graphics.NewMatrixCollection(),
		lights:        lights.NewDirectionalLightCollection(),
		samplersDirty: true,
		maxAnisotropy: 4,
		root:          NewPassGroup("root", logger),
		registry:      DefaultPassRegistry(),
		dependent:     make(map[graphics.PassKind]Pass),
		kinds:         make(graphics.PassKindSet),
		drawables:     scene.Drawables(),
		pool:          NewRenderTargetPool(dev, logger),
		primitives:    primitives.NewCache(logger),
		bounds:        graphics.EmptyBox,
		boundsDirty:   true,
	}

	c.mainPass = NewDrawingPass()
	c.mainPass.SetOrder(mainPassOrder)
	c.spritePass = NewSpritePass()
	c.spritePass.SetOrder(spritePassOrder)
	c.root.Add(c.mainPass)
	c.root.Add(c.spritePass)

	c.ApplySettings(settings)
	return c, nil
}

// ApplySettings pushes clamped settings into the context and its passes.
func (c *DrawingContext) ApplySettings(s config.Settings) {
	s = s.Clamp()
	c.settings = s

	c.SetTextureFilter(parseFilter(s.Render.TextureFilter))
	c.SetMaxAnisotropy(s.Render.MaxAnisotropy)

	c.env.AmbientLightColor = mgl32.Vec3(s.Render.AmbientLight)
	c.env.Fog = graphics.Fog{
		Enabled: s.Fog.Enabled,
		Color:   mgl32.Vec3(s.Fog.Color),
		Start:   s.Fog.Start,
		End:     s.Fog.End,
	}

	c.mainPass.BackgroundColor = toRGBA(s.Render.BackgroundColor)
	c.mainPass.TransparencySortEnabled = s.Render.TransparencySort
	c.spritePass.ShowStats = s.Render.ShowStats
	c.spritePass.configure(s.Primitives)

	if p, ok := c.dependent[graphics.PassKindShadowMap].(*ShadowMapPass); ok {
		p.MapSize, p.DepthBias = s.Shadow.MapSize, s.Shadow.DepthBias
	}
	if p, ok := c.dependent[graphics.PassKindDiagnostics].(*DiagnosticsPass); ok {
		p.configure(s.Primitives)
	}
}

// Settings returns the settings last applied.
func (c *DrawingContext) Settings() config.Settings { return c.settings }

func parseFilter(name string) graphics.TextureFilter {
	switch name {
	case "point":
		return graphics.FilterPoint
	case "anisotropic":
		return graphics.FilterAnisotropic
	}
	return graphics.FilterLinear
}

func (c *DrawingContext) Device() graphics.Device              { return c.device }
func (c *DrawingContext) Matrices() *graphics.MatrixCollection { return c.matrices }
func (c *DrawingContext) Environment() *graphics.Environment   { return &c.env }
func (c *DrawingContext) Scene() *Scene                        { return c.scene }
func (c *DrawingContext) Logger() *slog.Logger                 { return c.logger }

func (c *DrawingContext) DirectionalLights() *lights.DirectionalLightCollection { return c.lights }

// AddLocalLight registers a point or spot light. The built-in materials
// shade with the main directional light only; local lights are tracked for
// culling and outlined by the diagnostics pass.
func (c *DrawingContext) AddLocalLight(l *lights.Light) error {
	if l == nil {
		return lights.ErrNilLight
	}
	if l.Kind == lights.Directional {
		return fmt.Errorf("%s light: %w", l.Kind, lights.ErrNotLocal)
	}
	if !slices.Contains(c.local, l) {
		c.local = append(c.local, l)
	}
	return nil
}

func (c *DrawingContext) RemoveLocalLight(l *lights.Light) bool {
	i := slices.Index(c.local, l)
	if i < 0 {
		return false
	}
	c.local = slices.Delete(c.local, i, i+1)
	return true
}

// LocalLights returns the registered point and spot lights.
func (c *DrawingContext) LocalLights() []*lights.Light { return c.local }

// LocalLightsInView appends the enabled local lights whose volume intersects
// the view frustum of the frame.
func (c *DrawingContext) LocalLightsInView(result []*lights.Light) []*lights.Light {
	for _, l := range c.local {
		if !l.Enabled {
			continue
		}
		if b, bounded := l.LightVolume(); bounded && c.baseFrustum.IntersectsBox(b) {
			result = append(result, l)
		}
	}
	return result
}

func (c *DrawingContext) RenderTargets() *RenderTargetPool { return c.pool }
func (c *DrawingContext) Primitives() *primitives.Cache    { return c.primitives }

// NewDynamicPrimitive returns a batcher using the primitive settings.
func (c *DrawingContext) NewDynamicPrimitive() *primitives.DynamicPrimitive {
	p := primitives.NewDynamicPrimitive()
	s := c.settings.Primitives
	p.InitialBufferCapacity = s.InitialBufferCapacity
	p.MaxBufferSizePerPrimitive = s.MaxBufferSizePerPrimitive
	p.DepthBias = s.DepthBias
	return p
}

// Registry returns the pass factories. Register custom kinds before the
// first frame that requests them.
func (c *DrawingContext) Registry() PassRegistry { return c.registry }

func (c *DrawingContext) MainPass() *DrawingPass  { return c.mainPass }
func (c *DrawingContext) SpritePass() *SpritePass { return c.spritePass }

// Passes returns the root group holding every pass.
func (c *DrawingContext) Passes() *PassGroup { return c.root }

func (c *DrawingContext) SetCamera(cam graphics.ViewSource) { c.camera = cam }

func (c *DrawingContext) CurrentFrame() int { return c.frame }
func (c *DrawingContext) IsDrawing() bool   { return c.drawing }
func (c *DrawingContext) Stats() FrameStats { return c.stats }

// DrawablesInView returns the visible drawables found in the camera
// frustum this frame. The slice is reused by the next frame.
func (c *DrawingContext) DrawablesInView() []graphics.Drawable { return c.inView }

// ViewFrustum returns the camera frustum of the current frame, regardless
// of any pass override.
func (c *DrawingContext) ViewFrustum() graphics.BoundingFrustum { return c.baseFrustum }

// SetVertexBuffer binds vb unless it is already bound at offset. Passing
// nil forgets the cached binding.
func (c *DrawingContext) SetVertexBuffer(vb graphics.VertexBuffer, offset int) {
	if vb == nil {
		c.boundVB, c.boundOffset = nil, 0
		return
	}
	if vb == c.boundVB && offset == c.boundOffset {
		return
	}
	c.boundVB, c.boundOffset = vb, offset
	c.device.SetVertexBuffer(vb, offset)
}

// useMaterial counts material switches for the frame statistics.
func (c *DrawingContext) useMaterial(m graphics.Material) {
	if m != c.prevMaterial {
		c.prevMaterial = m
		c.stats.MaterialChanges++
	}
}

// SetTextureFilter changes the filter applied to every sampler slot on the
// next frame.
func (c *DrawingContext) SetTextureFilter(f graphics.TextureFilter) {
	if f != c.textureFilter {
		c.textureFilter = f
		c.samplersDirty = true
	}
}

func (c *DrawingContext) SetMaxAnisotropy(n int) {
	if n != c.maxAnisotropy {
		c.maxAnisotropy = n
		c.samplersDirty = true
	}
}

// samplerState prefers the shared presets, which are defined with an
// anisotropy of 4.
func (c *DrawingContext) samplerState() graphics.SamplerState {
	if c.maxAnisotropy == 4 {
		switch c.textureFilter {
		case graphics.FilterLinear:
			return graphics.LinearWrap
		case graphics.FilterPoint:
			return graphics.PointWrap
		case graphics.FilterAnisotropic:
			return graphics.AnisotropicWrap
		}
	}
	return graphics.SamplerState{Filter: c.textureFilter, MaxAnisotropy: c.maxAnisotropy}
}

func (c *DrawingContext) applySamplers() {
	s := c.samplerState()
	for slot := range graphics.MaxSamplerSlots {
		c.device.SetSamplerState(slot, s)
	}
	c.samplersDirty = false
}

// Bounds returns the box around every spatial object of the scene, clamped
// to the supported world extent. It is recomputed at most once per frame.
func (c *DrawingContext) Bounds() graphics.BoundingBox {
	if !c.boundsDirty {
		return c.bounds
	}
	b := graphics.EmptyBox
	for _, obj := range c.scene.Objects() {
		sp, ok := obj.(graphics.Spatial)
		if !ok {
			continue
		}
		if bb := sp.BoundingBox(); !bb.IsEmpty() {
			b = b.Merge(bb)
		}
	}
	if !b.IsEmpty() {
		b = b.Clamp(sceneLimitBox)
	}
	c.bounds, c.boundsDirty = b, false
	return b
}

// FindShadowCasters appends the visible drawables inside frustum that cast
// shadows and expose bounds.
func (c *DrawingContext) FindShadowCasters(frustum graphics.BoundingFrustum, result []graphics.Spatial) []graphics.Spatial {
	c.casters = c.drawables.FindInFrustum(frustum, c.casters[:0])
	for _, d := range c.casters {
		if !d.Visible() {
			continue
		}
		if sc, ok := d.(graphics.ShadowCaster); ok && !sc.CastShadow() {
			continue
		}
		if sp, ok := d.(graphics.Spatial); ok {
			result = append(result, sp)
		}
	}
	clear(c.casters)
	return result
}

// AddPostEffect appends a post effect after the main pass.
func (c *DrawingContext) AddPostEffect(p PostEffectPass) {
	if p.base().order == 0 {
		p.base().SetOrder(postEffectOrder)
	}
	p.base().AddDependency(c.mainPass)
	c.root.Add(p)
}

// RemovePostEffect detaches p and reports whether it was present.
func (c *DrawingContext) RemovePostEffect(p PostEffectPass) bool {
	return c.root.Remove(p)
}

// Draw renders a frame from the camera set with SetCamera.
func (c *DrawingContext) Draw(elapsed time.Duration) error {
	if c.camera == nil {
		return ErrNoCamera
	}
	return c.DrawWith(elapsed, c.camera.ViewMatrix(), c.camera.ProjectionMatrix())
}

// DrawWith renders a frame with explicit view and projection matrices.
// Calling it again from inside a pass returns ErrAlreadyDrawing.
func (c *DrawingContext) DrawWith(elapsed time.Duration, view, proj mgl32.Mat4) error {
	if c.drawing {
		return ErrAlreadyDrawing
	}
	c.drawing = true
	defer func() { c.drawing = false }()
	defer profiling.Track("renderer.Draw")()

	c.beginFrame(elapsed, view, proj)
	if err := c.updatePassGraph(); err != nil {
		return err
	}
	c.active = ActivePasses(c.root, c.active[:0])
	c.updateActivePasses()
	c.stats.Passes = len(c.active)

	if err := c.execute(); err != nil {
		return err
	}

	if n := c.pool.Evict(c.frame, c.settings.RenderTargets.MaxIdleFrames); n > 0 {
		c.logger.Debug("render targets evicted", "count", n, "frame", c.frame)
	}
	c.stats.PooledTargets = c.pool.Len()
	profiling.Count("renderer.drawables", c.stats.DrawablesInView)
	profiling.Count("renderer.materials", c.stats.MaterialChanges)
	c.frame++
	return nil
}

func (c *DrawingContext) beginFrame(elapsed time.Duration, view, proj mgl32.Mat4) {
	defer profiling.Track("renderer.beginFrame")()

	c.matrices.SetView(view)
	c.matrices.SetProjection(proj)
	c.baseView, c.baseProj = view, proj
	c.baseFrustum = c.matrices.ViewFrustum()

	c.env.ElapsedTime = elapsed
	c.env.TotalTime += elapsed
	c.env.CurrentFrame = c.frame
	c.env.MainLight = c.lights.At(0).Lighting()
	c.env.Shadow = graphics.ShadowState{}

	c.boundVB, c.boundOffset = nil, 0
	c.prevMaterial = nil
	c.boundsDirty = true
	c.pool.SetFrame(c.frame)
	c.stats = FrameStats{Frame: c.frame, Elapsed: elapsed}

	if c.samplersDirty {
		c.applySamplers()
	}

	clear(c.inView)
	c.inView = c.findVisible(c.baseFrustum, c.inView[:0])
	for _, d := range c.inView {
		d.OnAddedToView(c)
	}
	c.stats.DrawablesInView = len(c.inView)
}

func (c *DrawingContext) findVisible(f graphics.BoundingFrustum, result []graphics.Drawable) []graphics.Drawable {
	start := len(result)
	result = c.drawables.FindInFrustum(f, result)
	kept := slices.DeleteFunc(result[start:], func(d graphics.Drawable) bool { return !d.Visible() })
	return result[:start+len(kept)]
}

// updatePassGraph creates or enables the passes whose kind is requested by
// a material in view or by an enabled pass, and disables the rest.
func (c *DrawingContext) updatePassGraph() error {
	clear(c.kinds)
	for _, d := range c.inView {
		if m := d.Material(); m != nil {
			m.DependentPasses(c.kinds)
		}
	}
	c.root.DependentPasses(c.kinds)
	if c.settings.Render.ShowDiagnostics {
		c.kinds.Add(graphics.PassKindDiagnostics)
	}
	if !c.settings.Shadow.Enabled {
		delete(c.kinds, graphics.PassKindShadowMap)
	}

	for _, p := range c.dependent {
		p.base().SetEnabled(false)
	}
	for _, kind := range slices.Sorted(maps.Keys(c.kinds)) {
		p, ok := c.dependent[kind]
		if !ok {
			var err error
			if p, err = c.createPass(kind); err != nil {
				return err
			}
		}
		p.base().SetEnabled(true)
	}
	return nil
}

func (c *DrawingContext) createPass(kind graphics.PassKind) (Pass, error) {
	reg, ok := c.registry[kind]
	if !ok || reg.New == nil {
		return nil, fmt.Errorf("pass %q: %w", kind, ErrUnknownPass)
	}
	p, err := reg.New(c)
	if err != nil {
		return nil, fmt.Errorf("create pass %q: %w", kind, err)
	}
	if reg.Overlay {
		if p.base().order == 0 {
			p.base().SetOrder(diagnosticsPassOrder)
		}
		p.base().AddDependency(c.mainPass)
	} else {
		c.mainPass.AddDependency(p)
	}
	c.root.Add(p)
	c.dependent[kind] = p
	c.logger.Debug("pass created", "kind", kind, "frame", c.frame)
	return p, nil
}

// updateActivePasses walks the active list backwards and marks where
// intermediate targets start and end. A post effect resolves the target
// started before it; the pass list start, or the previous post effect,
// begins a target in the format the next post effect asks for.
func (c *DrawingContext) updateActivePasses() {
	var next PostEffectPass
	for i := len(c.active) - 1; i >= 0; i-- {
		p := c.active[i]
		b := p.base()
		b.operation, b.format = PassOperationNone, FormatHint{}

		pe, isPostEffect := p.(PostEffectPass)
		if next != nil && (isPostEffect || i == 0) {
			b.operation |= BeginRenderTarget
			b.format = next.InputFormat()
		}
		if isPostEffect {
			b.operation |= EndRenderTarget
			next = pe
		}
	}
}

// execute draws the active passes. On error the intermediate target is
// popped and every lock taken this frame is released.
func (c *DrawingContext) execute() (err error) {
	var intermediate, last graphics.RenderTarget
	defer func() {
		if err == nil {
			return
		}
		if intermediate != nil {
			c.device.PopRenderTarget()
			c.pool.Unlock(intermediate)
		}
		c.pool.Unlock(last)
	}()

	overridden := false
	for _, p := range c.active {
		b := p.base()
		done := profiling.Track("pass." + b.Name)

		drawables := c.inView
		if view, proj, ok := p.ViewFrustum(c); ok {
			c.matrices.SetView(view)
			c.matrices.SetProjection(proj)
			overridden = true
			clear(c.queried)
			c.queried = c.findVisible(c.matrices.ViewFrustum(), c.queried[:0])
			drawables = c.queried
		} else if overridden {
			c.matrices.SetView(c.baseView)
			c.matrices.SetProjection(c.baseProj)
			overridden = false
		}

		if b.operation&EndRenderTarget != 0 && intermediate != nil {
			c.device.PopRenderTarget()
			last, intermediate = intermediate, nil
		}
		if b.operation&BeginRenderTarget != 0 {
			rt, perr := p.PrepareRenderTarget(c, last, b.format)
			if perr != nil {
				done()
				return fmt.Errorf("pass %s: %w", b.Name, perr)
			}
			c.device.PushRenderTarget(rt)
			c.pool.Lock(rt)
			intermediate = rt
		}

		pe, isPostEffect := p.(PostEffectPass)
		if isPostEffect {
			pe.SetInputTexture(last)
		}
		derr := p.Draw(c, drawables)
		if isPostEffect {
			pe.SetInputTexture(nil)
			c.pool.Unlock(last)
			last = nil
		}
		done()
		if derr != nil {
			return fmt.Errorf("pass %s: %w", b.Name, derr)
		}
	}

	if overridden {
		c.matrices.SetView(c.baseView)
		c.matrices.SetProjection(c.baseProj)
	}
	return nil
}

// Close releases pooled targets and the resources owned by the passes.
func (c *DrawingContext) Close() {
	c.spritePass.Dispose()
	if p, ok := c.dependent[graphics.PassKindDiagnostics].(*DiagnosticsPass); ok {
		p.Dispose()
	}
	if p, ok := c.dependent[graphics.PassKindShadowMap].(*ShadowMapPass); ok {
		p.Dispose()
	}
	for _, p := range c.root.Passes() {
		if pe, ok := p.(*PostEffect); ok {
			pe.Dispose()
		}
	}
	c.pool.Close()
	c.primitives.Close()
}
