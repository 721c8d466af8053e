// Package demo builds the small animated scene shared by the viewer and
// framedump commands.
package demo

import (
	"fmt"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"gfxcore/internal/graphics"
	"gfxcore/internal/graphics/lights"
	"gfxcore/internal/graphics/primitives"
	"gfxcore/internal/graphics/renderer"
)

// Scene owns the demo objects it adds to a DrawingContext.
type Scene struct {
	ctx     *renderer.DrawingContext
	Camera  *graphics.Camera
	Sun     *lights.Light
	Lamps   []*lights.Light
	Ground  *primitives.Primitive
	Objects []*primitives.Primitive
	Grid    *primitives.DynamicPrimitive

	spin []mgl32.Vec3
}

var gridColor = color.RGBA{R: 60, G: 60, B: 70, A: 255}

type placement struct {
	shape primitives.Shape
	at    mgl32.Vec3
	color mgl32.Vec3
	alpha float32
}

var layout = []placement{
	{primitives.Box(2, 2, 2), mgl32.Vec3{-4, 1, -4}, mgl32.Vec3{0.8, 0.3, 0.3}, 1},
	{primitives.Sphere(1.2, 24), mgl32.Vec3{4, 1.2, -4}, mgl32.Vec3{0.3, 0.8, 0.3}, 1},
	{primitives.Cylinder(1, 3, 24), mgl32.Vec3{-4, 1.5, 4}, mgl32.Vec3{0.3, 0.3, 0.8}, 1},
	{primitives.Box(1, 4, 1), mgl32.Vec3{0, 2, 0}, mgl32.Vec3{0.9, 0.8, 0.4}, 1},
	{primitives.Sphere(1.5, 24), mgl32.Vec3{4, 1.5, 4}, mgl32.Vec3{0.6, 0.8, 1}, 0.5},
}

// Build adds a ground plane, a handful of lit shapes, a translucent sphere,
// a line grid, a shadow casting sun and two local lights to ctx.
func Build(ctx *renderer.DrawingContext, width, height int) (*Scene, error) {
	s := &Scene{ctx: ctx, Camera: graphics.NewCamera(width, height)}
	dev := ctx.Device()
	cache := ctx.Primitives()

	ground, err := primitives.NewPrimitive(cache, dev, primitives.Plane(40, 40, 4))
	if err != nil {
		return nil, fmt.Errorf("demo ground: %w", err)
	}
	ground.SetMaterial(litMaterial(mgl32.Vec3{0.55, 0.55, 0.5}, 1))
	ground.SetCastShadow(false)
	s.Ground = ground
	ctx.Scene().Add(ground)

	for i, p := range layout {
		prim, err := primitives.NewPrimitive(cache, dev, p.shape)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("demo object %d: %w", i, err)
		}
		prim.SetMaterial(litMaterial(p.color, p.alpha))
		prim.SetTransform(mgl32.Translate3D(p.at.X(), p.at.Y(), p.at.Z()))
		s.Objects = append(s.Objects, prim)
		s.spin = append(s.spin, p.at)
		ctx.Scene().Add(prim)
	}

	s.Grid = ctx.NewDynamicPrimitive()
	if err := s.Grid.AddGrid(mgl32.Vec3{0, 0.01, 0}, 2, 20, gridColor, 1); err != nil {
		s.Close()
		return nil, fmt.Errorf("demo grid: %w", err)
	}
	ctx.Scene().Add(s.Grid)

	sun := lights.NewDirectionalLight(mgl32.Vec3{-0.4, -1, -0.3})
	sun.CastShadow = true
	if err := ctx.DirectionalLights().Add(sun); err != nil {
		s.Close()
		return nil, fmt.Errorf("demo sun: %w", err)
	}
	s.Sun = sun

	lamp := lights.NewPointLight(mgl32.Vec3{4, 4, -4})
	lamp.Range = 3
	spot := lights.NewSpotLight(mgl32.Vec3{0, 7, 0}, mgl32.Vec3{0, -1, 0})
	spot.Range = 6
	spot.OuterAngle = math32.Pi / 4
	for _, l := range []*lights.Light{lamp, spot} {
		if err := ctx.AddLocalLight(l); err != nil {
			s.Close()
			return nil, fmt.Errorf("demo lamp: %w", err)
		}
		s.Lamps = append(s.Lamps, l)
	}
	return s, nil
}

func litMaterial(c mgl32.Vec3, alpha float32) *graphics.BasicMaterial {
	m := graphics.NewBasicMaterial()
	m.DiffuseColor = c
	m.Alpha = alpha
	m.LightingEnabled = true
	m.FogEnabled = true
	m.ReceiveShadows = alpha >= 1
	return m
}

// Update animates the scene to time t in seconds: the camera orbits and
// every object spins about its own vertical axis.
func (s *Scene) Update(t float32) {
	s.Camera.Orbit(t*0.2, 18, 9)
	for i, prim := range s.Objects {
		at := s.spin[i]
		angle := t * (0.5 + 0.25*float32(i))
		bob := 0.25 * math32.Sin(t+float32(i))
		prim.SetTransform(mgl32.Translate3D(at.X(), at.Y()+bob, at.Z()).Mul4(mgl32.HomogRotate3DY(angle)))
	}
}

// Resize keeps the camera aspect ratio in step with the framebuffer.
func (s *Scene) Resize(width, height int) { s.Camera.SetViewport(width, height) }

// Close removes the demo objects from the context and releases their meshes.
func (s *Scene) Close() {
	scene := s.ctx.Scene()
	if s.Ground != nil {
		scene.Remove(s.Ground)
		s.Ground.Dispose()
	}
	for _, prim := range s.Objects {
		scene.Remove(prim)
		prim.Dispose()
	}
	if s.Grid != nil {
		scene.Remove(s.Grid)
		s.Grid.Dispose()
	}
	if s.Sun != nil {
		s.ctx.DirectionalLights().Remove(s.Sun)
	}
	for _, l := range s.Lamps {
		s.ctx.RemoveLocalLight(l)
	}
	s.Ground, s.Objects, s.Grid, s.Sun, s.Lamps = nil, nil, nil, nil, nil
}
