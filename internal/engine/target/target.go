// Package target eases the model's pivot point toward a goal and applies
// yaw to the model directly.
package target

import (
	gomath "math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/modelstage/internal/engine/damper"
	"github.com/Faultbox/modelstage/internal/engine/model"
)

// Controller drives two objects: the target, whose translation is the
// negated pivot point, and the pivot, which carries yaw.
//
// The goal is stored negated so that translating the target object by it
// moves the chosen pivot point to the origin.
type Controller struct {
	target *model.Object
	pivot  *model.Object

	goal    mgl64.Vec3
	dampers [3]*damper.Damper
	yaw     float64

	// OnYaw is called after every yaw change with the new angle.
	OnYaw func(radians float64)
}

// New returns a controller driving target's translation and pivot's yaw.
// Either may be nil, in which case the controller only tracks state.
func New(target, pivot *model.Object) *Controller {
	c := &Controller{target: target, pivot: pivot}
	for i := range c.dampers {
		c.dampers[i] = damper.New(damper.DefaultDecay)
	}
	return c
}

// SetGoal sets the pivot point to ease toward. It does not move anything
// until the next Tick.
func (c *Controller) SetGoal(x, y, z float64) {
	c.goal = mgl64.Vec3{-x, -y, -z}
}

// Goal returns the pivot point last passed to SetGoal.
func (c *Controller) Goal() mgl64.Vec3 {
	return c.goal.Mul(-1)
}

// Position returns the current translation of the target object, which is
// the negated current pivot point.
func (c *Controller) Position() mgl64.Vec3 {
	if c.target != nil {
		return c.target.Position
	}
	return mgl64.Vec3{}
}

// SetDecayTime sets the easing decay time on all axes.
func (c *Controller) SetDecayTime(decay time.Duration) {
	for _, d := range c.dampers {
		d.SetDecayTime(decay)
	}
}

// DecayTime returns the easing decay time.
func (c *Controller) DecayTime() time.Duration {
	return c.dampers[0].DecayTime()
}

// Tick eases the target toward the goal. boundingRadius scales the settle
// threshold so models of any size settle alike. It reports whether the
// target moved.
func (c *Controller) Tick(elapsed time.Duration, boundingRadius float64) bool {
	if c.target == nil {
		return false
	}
	prev := c.target.Position
	if prev == c.goal {
		return false
	}
	pos := prev
	norm := boundingRadius / 10
	for i, d := range c.dampers {
		pos[i] = d.Update(pos[i], c.goal[i], elapsed, norm)
	}
	if pos == prev {
		return false
	}
	c.target.Position = pos
	return true
}

// SnapToGoal moves the target straight to the goal.
func (c *Controller) SnapToGoal() bool {
	decay := c.DecayTime()
	c.SetDecayTime(0)
	moved := c.Tick(damper.SettlingTime, 1)
	c.SetDecayTime(decay)
	for _, d := range c.dampers {
		d.Reset()
	}
	return moved
}

// SetYaw rotates the pivot about +Y. Yaw is applied immediately, not eased.
func (c *Controller) SetYaw(radians float64) {
	c.yaw = radians
	if c.pivot != nil {
		c.pivot.Rotation = mgl64.QuatRotate(radians, mgl64.Vec3{0, 1, 0})
	}
	if c.OnYaw != nil {
		c.OnYaw(radians)
	}
}

// Yaw returns the current yaw in radians.
func (c *Controller) Yaw() float64 {
	return c.yaw
}

// PointTowards yaws the pivot so its +Z axis faces the world point (x, z).
func (c *Controller) PointTowards(x, z float64) {
	var px, pz float64
	if c.pivot != nil {
		px, pz = c.pivot.Position.X(), c.pivot.Position.Z()
	}
	c.SetYaw(gomath.Atan2(x-px, z-pz))
}
