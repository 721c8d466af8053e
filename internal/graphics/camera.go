package graphics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ViewSource supplies the view and projection for a frame.
type ViewSource interface {
	ViewMatrix() mgl32.Mat4
	ProjectionMatrix() mgl32.Mat4
}

// Camera is a perspective look-at camera.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3

	AspectRatio float32
	FOV         float32
	NearPlane   float32
	FarPlane    float32
}

func NewCamera(width, height int) *Camera {
	c := &Camera{
		Position:  mgl32.Vec3{0, 10, 20},
		Up:        mgl32.Vec3{0, 1, 0},
		FOV:       60.0,
		NearPlane: 0.1,
		FarPlane:  1000.0,
	}
	c.SetViewport(width, height)
	return c
}

// SetViewport updates the aspect ratio.
func (c *Camera) SetViewport(width, height int) {
	if height <= 0 {
		height = 1
	}
	c.AspectRatio = float32(width) / float32(height)
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.AspectRatio, c.NearPlane, c.FarPlane)
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

// Orbit places the camera on a circle around the target.
func (c *Camera) Orbit(angle, radius, height float32) {
	c.Position = c.Target.Add(mgl32.Vec3{
		radius * math32.Cos(angle),
		height,
		radius * math32.Sin(angle),
	})
}
