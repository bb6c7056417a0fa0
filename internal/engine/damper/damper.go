// Package damper eases a scalar toward a moving goal with a critically
// damped harmonica spring.
//
// Each update builds the spring for the elapsed time, so advancing once by
// dt or twice by dt/2 lands on the same value. A Damper carries the
// velocity between calls; use one per axis.
package damper

import (
	gomath "math"
	"time"

	"github.com/charmbracelet/harmonica"
)

const (
	// DefaultDecay is the decay time used by New when given zero.
	DefaultDecay = 50 * time.Millisecond

	// SettlingTime is long enough for any in-flight motion to settle.
	// Advancing by it reaches the goal for all practical decay times.
	SettlingTime = 10 * time.Second

	// decayConstant is c in omega = c/decay, the root of (1+c)e^-c = 0.1:
	// starting at rest, 10% of the distance remains after one decay time.
	decayConstant = 3.889720169867429

	// nilSpeedFactor scales omega into the speed, per unit of normalization,
	// below which a decelerating value snaps to its goal.
	nilSpeedFactor = 0.0002
)

// Damper is a single-axis critically damped spring. The zero value is
// not usable; create one with New.
type Damper struct {
	velocity float64 // units per second
	omega    float64 // natural frequency, 1/s; 0 means jump
}

// New returns a Damper with the given decay time. A negative decay is
// treated as zero, which makes every update jump to the goal.
func New(decay time.Duration) *Damper {
	d := &Damper{}
	d.SetDecayTime(decay)
	return d
}

// SetDecayTime sets the time after which, starting at rest, 10% of the
// distance to the goal remains. Zero selects jump behavior.
func (d *Damper) SetDecayTime(decay time.Duration) {
	if decay <= 0 {
		d.omega = 0
		return
	}
	d.omega = decayConstant / decay.Seconds()
}

// DecayTime returns the configured decay time.
func (d *Damper) DecayTime() time.Duration {
	if d.omega == 0 {
		return 0
	}
	return time.Duration(decayConstant / d.omega * float64(time.Second))
}

// Velocity returns the current velocity in units per second.
func (d *Damper) Velocity() float64 {
	return d.velocity
}

// Reset drops any carried velocity.
func (d *Damper) Reset() {
	d.velocity = 0
}

// Update advances x toward goal by elapsed and returns the new value.
//
// normalization is the scale of the quantity being damped, e.g. a model's
// bounding radius; it sets the speed below which motion is considered
// settled. A zero normalization returns goal.
func (d *Damper) Update(x, goal float64, elapsed time.Duration, normalization float64) float64 {
	if normalization == 0 {
		d.velocity = 0
		return goal
	}
	if x == goal && d.velocity == 0 {
		return goal
	}
	if elapsed <= 0 {
		return x
	}
	if d.omega == 0 {
		d.velocity = 0
		return goal
	}

	w := d.omega
	spring := harmonica.NewSpring(elapsed.Seconds(), w, 1)
	newX, newVelocity := spring.Update(x, d.velocity, goal)

	// Critically damped: a = -w^2 (x - goal) - 2w v.
	deltaX := x - goal
	acceleration := -w*w*(newX-goal) - 2*w*newVelocity

	nilSpeed := nilSpeedFactor * w
	if gomath.Abs(newVelocity) < nilSpeed*gomath.Abs(normalization) && acceleration*deltaX >= 0 {
		d.velocity = 0
		return goal
	}
	d.velocity = newVelocity
	return newX
}
