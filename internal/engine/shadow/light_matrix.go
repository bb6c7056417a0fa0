package shadow

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/modelstage/pkg/math"
)

// DirectionalLightMatrix computes the view-projection a shadow map for the
// given bounds is rendered with. lightDir is the normalized direction TO the light.
func DirectionalLightMatrix(lightDir mgl64.Vec3, bounds math.Box3) mgl64.Mat4 {
	if bounds.IsEmpty() {
		return mgl64.Ident4()
	}
	center := bounds.Center()
	radius := bounds.Radius()
	if radius == 0 {
		radius = 1
	}

	// Position light far enough to encompass the bounds
	lightDistance := radius * 2.0
	lightPos := center.Add(lightDir.Mul(lightDistance))

	// Avoid an up vector parallel with the light direction
	up := mgl64.Vec3{0, 1, 0}
	if gomath.Abs(lightDir.Y()) > 0.99 {
		up = mgl64.Vec3{0, 0, 1}
	}
	view := mgl64.LookAtV(lightPos, center, up)

	// Padding avoids edge artifacts
	padding := radius * 0.1
	halfSize := radius + padding
	near := 0.1
	far := lightDistance + radius + padding

	proj := mgl64.Ortho(-halfSize, halfSize, -halfSize, halfSize, near, far)
	return proj.Mul4(view)
}
