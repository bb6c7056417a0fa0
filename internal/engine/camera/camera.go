// Package camera provides the perspective orbit camera the stage is viewed through.
package camera

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/modelstage/internal/engine/framing"
	"github.com/Faultbox/modelstage/pkg/math"
)

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	// Center point to orbit around
	Center mgl64.Vec3

	// Spherical coordinates
	Distance float64 // Distance from center
	Pitch    float64 // Elevation above the XZ plane, radians
	Yaw      float64 // Rotation about +Y, radians; 0 looks down -Z

	// Projection
	FoVDeg float64 // Vertical field of view
	Aspect float64 // Width / height
	Near   float64
	Far    float64

	// Constraints
	MinDistance float64
	MaxDistance float64
	MinPitch    float64
	MaxPitch    float64

	// Sensitivity
	DragSensitivity float64
	ZoomSensitivity float64
}

// NewOrbitCamera creates a new orbit camera with default settings.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        1,
		FoVDeg:          framing.DefaultFoVDeg,
		Aspect:          1,
		Near:            0.01,
		Far:             100,
		MinDistance:     0,
		MaxDistance:     gomath.Inf(1),
		MinPitch:        -gomath.Pi/2 + 0.01,
		MaxPitch:        gomath.Pi/2 - 0.01,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() mgl64.Vec3 {
	cosPitch := gomath.Cos(c.Pitch)
	offset := mgl64.Vec3{
		c.Distance * cosPitch * gomath.Sin(c.Yaw),
		c.Distance * gomath.Sin(c.Pitch),
		c.Distance * cosPitch * gomath.Cos(c.Yaw),
	}
	return c.Center.Add(offset)
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() mgl64.Mat4 {
	return mgl64.LookAtV(c.Position(), c.Center, mgl64.Vec3{0, 1, 0})
}

// ProjectionMatrix returns the perspective projection matrix.
func (c *OrbitCamera) ProjectionMatrix() mgl64.Mat4 {
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	return mgl64.Perspective(mgl64.DegToRad(c.FoVDeg), aspect, c.Near, c.Far)
}

// ViewProjection returns projection * view.
func (c *OrbitCamera) ViewProjection() mgl64.Mat4 {
	return c.ProjectionMatrix().Mul4(c.ViewMatrix())
}

// RayFromNDC returns the world-space ray through normalized device
// coordinates (x right, y up, both in [-1, 1]).
func (c *OrbitCamera) RayFromNDC(x, y float64) math.Ray {
	return math.RayFromNDC(x, y, c.ViewProjection().Inv())
}

// RayFromPixel returns the world-space ray through pixel (px, py) of a
// width x height viewport, origin top left.
func (c *OrbitCamera) RayFromPixel(px, py float64, width, height int) math.Ray {
	if width <= 0 || height <= 0 {
		return c.RayFromNDC(0, 0)
	}
	x := px/float64(width)*2 - 1
	y := 1 - py/float64(height)*2
	return c.RayFromNDC(x, y)
}

// SetViewport updates the aspect ratio from a viewport size in pixels.
func (c *OrbitCamera) SetViewport(width, height int) {
	if width > 0 && height > 0 {
		c.Aspect = float64(width) / float64(height)
	}
}

// HandleDrag updates rotation based on a drag delta in pixels.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float64) {
	c.Yaw -= deltaX * c.DragSensitivity
	c.Pitch += deltaY * c.DragSensitivity
	c.clamp()
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float64) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	c.clamp()
}

// FitToRadius places the camera so that a sphere of the given radius about
// Center fills the framed field of view, and sizes the clip planes around it.
func (c *OrbitCamera) FitToRadius(radius, framedFoVDeg float64) {
	if radius <= 0 {
		return
	}
	c.Distance = framing.IdealCameraDistance(radius, framedFoVDeg)
	c.MinDistance = radius
	c.MaxDistance = c.Distance * 4
	c.Near = (c.Distance - radius) / 2
	c.Far = (c.MaxDistance + radius) * 2
	c.clamp()
}

func (c *OrbitCamera) clamp() {
	if c.Pitch < c.MinPitch {
		c.Pitch = c.MinPitch
	}
	if c.Pitch > c.MaxPitch {
		c.Pitch = c.MaxPitch
	}
	if c.Distance < c.MinDistance {
		c.Distance = c.MinDistance
	}
	if c.Distance > c.MaxDistance {
		c.Distance = c.MaxDistance
	}
}
