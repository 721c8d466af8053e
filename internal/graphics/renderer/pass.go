package renderer

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"gfxcore/internal/graphics"
)

// PassOperation marks where a pass starts or finishes an offscreen target.
type PassOperation uint8

const (
	PassOperationNone PassOperation = 0
	// BeginRenderTarget: the pass and everything after it up to the next
	// EndRenderTarget draw into a pooled intermediate target.
	BeginRenderTarget PassOperation = 1 << 0
	// EndRenderTarget: the intermediate target is resolved before the pass
	// draws and becomes its input.
	EndRenderTarget PassOperation = 1 << 1
)

// FormatHint is an optional surface format.
type FormatHint struct {
	Format graphics.SurfaceFormat
	Set    bool
}

func Format(f graphics.SurfaceFormat) FormatHint { return FormatHint{Format: f, Set: true} }

// Pass is one node of the pass graph. Implementations embed PassBase.
type Pass interface {
	base() *PassBase
	// DependentPasses adds the pass kinds that must run before this pass.
	DependentPasses(kinds graphics.PassKindSet)
	// ViewFrustum returns a view and projection that replace the camera
	// for this pass, or ok false to draw with the camera.
	ViewFrustum(ctx *DrawingContext) (view, proj mgl32.Mat4, ok bool)
	// PrepareRenderTarget returns the target this pass starts when it
	// carries BeginRenderTarget.
	PrepareRenderTarget(ctx *DrawingContext, input graphics.Texture, hint FormatHint) (graphics.RenderTarget, error)
	Draw(ctx *DrawingContext, drawables []graphics.Drawable) error
}

// PostEffectPass reads the output of the previous stage.
type PostEffectPass interface {
	Pass
	SetInputTexture(tex graphics.Texture)
	// InputFormat is the format the effect wants its input rendered in.
	InputFormat() FormatHint
}

// activeLister is implemented by passes that decide for themselves which
// leaves are active, such as groups.
type activeLister interface {
	ActivePasses(result []Pass) []Pass
}

// ActivePasses appends the enabled leaves of p in draw order.
func ActivePasses(p Pass, result []Pass) []Pass {
	if l, ok := p.(activeLister); ok {
		return l.ActivePasses(result)
	}
	if p.base().Enabled() {
		result = append(result, p)
	}
	return result
}

// PassBase carries the state shared by every pass.
type PassBase struct {
	Name string

	disabled     bool
	order        int
	group        *PassGroup
	dependencies []Pass

	operation PassOperation
	format    FormatHint
}

func (p *PassBase) base() *PassBase { return p }

func (p *PassBase) Enabled() bool     { return !p.disabled }
func (p *PassBase) SetEnabled(v bool) { p.disabled = !v }

func (p *PassBase) Order() int { return p.order }

// SetOrder changes the preferred position among siblings.
func (p *PassBase) SetOrder(order int) {
	if p.order == order {
		return
	}
	p.order = order
	if p.group != nil {
		p.group.dirty = true
	}
}

// AddDependency makes this pass run after dep when both share a group.
func (p *PassBase) AddDependency(dep Pass) {
	p.dependencies = append(p.dependencies, dep)
	if p.group != nil {
		p.group.dirty = true
	}
}

// Dependencies returns the passes this pass runs after.
func (p *PassBase) Dependencies() []Pass { return p.dependencies }

// Operation is the render target transition computed for the current frame.
func (p *PassBase) Operation() PassOperation { return p.operation }

// PassFormat is the format requested for the target started by this pass.
func (p *PassBase) PassFormat() FormatHint { return p.format }

func (p *PassBase) DependentPasses(graphics.PassKindSet) {}

func (p *PassBase) ViewFrustum(*DrawingContext) (mgl32.Mat4, mgl32.Mat4, bool) {
	return mgl32.Mat4{}, mgl32.Mat4{}, false
}

// PrepareRenderTarget leases a target shaped like input, or like the
// viewport when there is no input, with a depth buffer.
func (p *PassBase) PrepareRenderTarget(ctx *DrawingContext, input graphics.Texture, hint FormatHint) (graphics.RenderTarget, error) {
	desc := RenderTargetDesc{Depth: graphics.Depth24Stencil8}
	if input != nil {
		desc.Width, desc.Height, desc.Format = input.Width(), input.Height(), input.Format()
	} else {
		vp := ctx.Device().Viewport()
		desc.Width, desc.Height, desc.Format = vp.Width, vp.Height, ctx.Device().BackBufferFormat()
	}
	if hint.Set {
		desc.Format = hint.Format
	}
	return ctx.RenderTargets().Get(desc)
}

// PassGroup is an ordered container of passes. Children are drawn sorted
// by Order while every dependency inside the group runs first.
type PassGroup struct {
	PassBase

	passes []Pass
	sorted []Pass
	dirty  bool
	logger *slog.Logger
}

func NewPassGroup(name string, logger *slog.Logger) *PassGroup {
	if logger == nil {
		logger = slog.Default()
	}
	return &PassGroup{PassBase: PassBase{Name: name}, logger: logger}
}

// Add appends p to the group.
func (g *PassGroup) Add(p Pass) {
	p.base().group = g
	g.passes = append(g.passes, p)
	g.dirty = true
}

// Remove detaches p and reports whether it was a child.
func (g *PassGroup) Remove(p Pass) bool {
	i := slices.Index(g.passes, p)
	if i < 0 {
		return false
	}
	g.passes = slices.Delete(g.passes, i, i+1)
	p.base().group = nil
	g.dirty = true
	return true
}

// Passes returns the children in insertion order.
func (g *PassGroup) Passes() []Pass { return g.passes }

func (g *PassGroup) Len() int { return len(g.passes) }

func (g *PassGroup) DependentPasses(kinds graphics.PassKindSet) {
	for _, p := range g.passes {
		if p.base().Enabled() {
			p.DependentPasses(kinds)
		}
	}
}

func (g *PassGroup) ActivePasses(result []Pass) []Pass {
	if !g.Enabled() {
		return result
	}
	for _, p := range g.sortedPasses() {
		result = ActivePasses(p, result)
	}
	return result
}

// Draw is a no-op: groups only contribute their children.
func (g *PassGroup) Draw(*DrawingContext, []graphics.Drawable) error { return nil }

// sortedPasses orders children by Order and insertion order, pulling the
// dependencies of each pass inside the group ahead of it. A dependency
// cycle is logged and the edge closing it ignored.
func (g *PassGroup) sortedPasses() []Pass {
	if !g.dirty && len(g.sorted) == len(g.passes) {
		return g.sorted
	}
	g.dirty = false

	byOrder := slices.Clone(g.passes)
	slices.SortStableFunc(byOrder, func(a, b Pass) int {
		return cmp.Compare(a.base().order, b.base().order)
	})

	placed := make(map[Pass]bool, len(byOrder))
	visiting := make(map[Pass]bool)
	g.sorted = g.sorted[:0]

	var visit func(p Pass)
	visit = func(p Pass) {
		if placed[p] {
			return
		}
		if visiting[p] {
			g.logger.Warn("pass dependency cycle", "group", g.Name, "pass", p.base().Name)
			return
		}
		visiting[p] = true
		for _, dep := range p.base().dependencies {
			if dep.base().group == g {
				visit(dep)
			}
		}
		visiting[p] = false
		placed[p] = true
		g.sorted = append(g.sorted, p)
	}
	for _, p := range byOrder {
		visit(p)
	}
	return g.sorted
}
