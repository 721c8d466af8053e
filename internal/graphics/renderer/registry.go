package renderer

import "gfxcore/internal/graphics"

// PassRegistration builds the pass for one kind.
type PassRegistration struct {
	New func(ctx *DrawingContext) (Pass, error)
	// Overlay passes draw on top of the main pass instead of feeding it.
	Overlay bool
}

// PassRegistry maps pass kinds requested by materials and passes to their
// factories. Passes are created the first frame their kind is requested and
// reused afterwards.
type PassRegistry map[graphics.PassKind]PassRegistration

// DefaultPassRegistry knows the built-in shadow map and diagnostics passes.
func DefaultPassRegistry() PassRegistry {
	return PassRegistry{
		graphics.PassKindShadowMap: {
			New: func(ctx *DrawingContext) (Pass, error) {
				s := ctx.Settings().Shadow
				return NewShadowMapPass(s.MapSize, s.DepthBias), nil
			},
		},
		graphics.PassKindDiagnostics: {
			New: func(ctx *DrawingContext) (Pass, error) {
				p := NewDiagnosticsPass()
				p.configure(ctx.Settings().Primitives)
				return p, nil
			},
			Overlay: true,
		},
	}
}
