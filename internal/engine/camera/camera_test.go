package camera

import (
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestPositionDefaultLooksDownNegativeZ(t *testing.T) {
	c := NewOrbitCamera()
	c.Distance = 5
	p := c.Position()
	assert.InDelta(t, 0.0, p.X(), 1e-12)
	assert.InDelta(t, 5.0, p.Z(), 1e-12)

	r := c.RayFromNDC(0, 0)
	assert.InDelta(t, -1.0, r.Direction.Z(), 1e-9)
	assert.InDelta(t, 0.0, r.Direction.X(), 1e-9)
}

func TestRayFromPixelCorners(t *testing.T) {
	c := NewOrbitCamera()
	c.Distance = 5
	c.SetViewport(200, 100)
	assert.InDelta(t, 2.0, c.Aspect, 1e-12)

	center := c.RayFromPixel(100, 50, 200, 100)
	assert.InDelta(t, -1.0, center.Direction.Z(), 1e-9)

	topLeft := c.RayFromPixel(0, 0, 200, 100)
	assert.Less(t, topLeft.Direction.X(), 0.0)
	assert.Greater(t, topLeft.Direction.Y(), 0.0)
	// Vertical half angle equals half the field of view.
	half := gomath.Atan2(topLeft.Direction.Y(), -topLeft.Direction.Z())
	assert.Less(t, half, mgl64.DegToRad(c.FoVDeg/2)+1e-9)
}

func TestFitToRadius(t *testing.T) {
	c := NewOrbitCamera()
	c.FitToRadius(1, 60)
	assert.InDelta(t, 2.0, c.Distance, 1e-12)
	assert.Less(t, c.Near, c.Distance-1)
	assert.Greater(t, c.Far, c.Distance+1)

	c.FitToRadius(0, 60)
	assert.InDelta(t, 2.0, c.Distance, 1e-12, "zero radius leaves the camera alone")
}

func TestClamping(t *testing.T) {
	c := NewOrbitCamera()
	c.FitToRadius(1, 60)
	c.HandleDrag(0, 1e6)
	assert.Equal(t, c.MaxPitch, c.Pitch)
	c.HandleZoom(-1e6)
	assert.Equal(t, c.MaxDistance, c.Distance)
	c.HandleZoom(9)
	assert.Equal(t, c.MinDistance, c.Distance)
}
