// Package framing computes how far a camera must sit, and how wide its
// field of view must be, to keep a model fully visible under any orbit.
package framing

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/modelstage/internal/engine/model"
	"github.com/Faultbox/modelstage/pkg/math"
)

// DefaultFoVDeg is the vertical field of view a model is framed for.
const DefaultFoVDeg = 45.0

// Result is the framing envelope of a model about a center.
type Result struct {
	// BoundingRadius is the largest distance from the center to any vertex.
	BoundingRadius float64
	// IdealAspect is the narrowest width/height ratio at which the model
	// fits horizontally when framed with the reference field of view.
	// It is NaN when every vertex sits on the center.
	IdealAspect float64
}

// Compute frames root about center for a vertical field of view of fovDeg.
//
// The radius is found first because the aspect pass measures each vertex
// against the ideal camera distance, which depends on it. Only horizontal
// extent about center is considered for the aspect, so an off-center pivot
// frames tightly on one side.
func Compute(root *model.Object, fovDeg float64, center mgl64.Vec3) Result {
	radiusSq := model.ReduceVertices(root, func(acc float64, v mgl64.Vec3) float64 {
		return gomath.Max(acc, math.DistanceSquared(center, v))
	}, 0)
	radius := gomath.Sqrt(radiusSq)

	distance := IdealCameraDistance(radius, fovDeg)
	tanFov := model.ReduceVertices(root, func(acc float64, v mgl64.Vec3) float64 {
		dy := gomath.Abs(v.Y() - center.Y())
		return gomath.Max(acc, math.RadiusXZ(center, v)/(distance-dy))
	}, 0)

	return Result{
		BoundingRadius: radius,
		IdealAspect:    tanFov / gomath.Tan(halfAngle(fovDeg)),
	}
}

// IdealCameraDistance is the distance at which a sphere of the given radius
// exactly fills a vertical field of view of fovDeg.
func IdealCameraDistance(radius, fovDeg float64) float64 {
	return radius / gomath.Sin(halfAngle(fovDeg))
}

// AdjustedFoV widens fovDeg so that a model with idealAspect still fits
// horizontally in a viewport of the given aspect. The result is in degrees
// and never narrower than fovDeg.
func AdjustedFoV(fovDeg, idealAspect, aspect float64) float64 {
	scale := 1.0
	if aspect > 0 && idealAspect/aspect > 1 {
		scale = idealAspect / aspect
	}
	vertical := gomath.Tan(halfAngle(fovDeg)) * scale
	return mgl64.RadToDeg(2 * gomath.Atan(vertical))
}

func halfAngle(fovDeg float64) float64 {
	return mgl64.DegToRad(fovDeg / 2)
}
