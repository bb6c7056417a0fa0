// Package animation plays keyframe clips on engine objects.
//
// A Mixer owns one Action per clip and blends every enabled action's
// contribution with the targets' rest pose on each Update.
package animation

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/modelstage/internal/engine/model"
)

// Path is the object property a track animates.
type Path int

const (
	PathTranslation Path = iota
	PathRotation
	PathScale
)

// Interpolation is how a track samples between keyframes.
type Interpolation int

const (
	InterpolationLinear Interpolation = iota
	InterpolationStep
	InterpolationCubicSpline
)

// Track animates one property of one object. Values holds Components()
// floats per keyframe; cubic spline tracks hold three groups per keyframe
// (in-tangent, value, out-tangent).
type Track struct {
	Target        *model.Object
	Path          Path
	Interpolation Interpolation
	Times         []float64 // Seconds, ascending
	Values        []float64
}

// Components returns the number of floats in one sampled value.
func (t *Track) Components() int {
	if t.Path == PathRotation {
		return 4
	}
	return 3
}

// Duration returns the time of the last keyframe.
func (t *Track) Duration() float64 {
	if len(t.Times) == 0 {
		return 0
	}
	return t.Times[len(t.Times)-1]
}

// Valid reports whether Values has the length Times implies.
func (t *Track) Valid() bool {
	n := len(t.Times) * t.Components()
	if t.Interpolation == InterpolationCubicSpline {
		n *= 3
	}
	return t.Target != nil && len(t.Times) > 0 && len(t.Values) == n
}

// Sample returns the track's value at time s, in seconds.
func (t *Track) Sample(s float64) []float64 {
	c := t.Components()
	if len(t.Times) == 1 || s <= t.Times[0] {
		return t.value(0)
	}
	last := len(t.Times) - 1
	if s >= t.Times[last] {
		return t.value(last)
	}

	// Find surrounding keyframes
	next := 1
	for next < last && t.Times[next] <= s {
		next++
	}
	prev := next - 1
	span := t.Times[next] - t.Times[prev]
	u := 0.0
	if span > 0 {
		u = (s - t.Times[prev]) / span
	}

	switch t.Interpolation {
	case InterpolationStep:
		return t.value(prev)
	case InterpolationCubicSpline:
		out := make([]float64, c)
		u2, u3 := u*u, u*u*u
		h00 := 2*u3 - 3*u2 + 1
		h10 := u3 - 2*u2 + u
		h01 := -2*u3 + 3*u2
		h11 := u3 - u2
		v0, b0 := t.value(prev), t.group(prev, 2)
		v1, a1 := t.value(next), t.group(next, 0)
		for i := range out {
			out[i] = h00*v0[i] + h10*span*b0[i] + h01*v1[i] + h11*span*a1[i]
		}
		if t.Path == PathRotation {
			q := toQuat(out).Normalize()
			return fromQuat(q)
		}
		return out
	default:
		v0, v1 := t.value(prev), t.value(next)
		if t.Path == PathRotation {
			return fromQuat(mgl64.QuatSlerp(toQuat(v0), toQuat(v1), u))
		}
		out := make([]float64, c)
		for i := range out {
			out[i] = v0[i] + u*(v1[i]-v0[i])
		}
		return out
	}
}

// value returns keyframe k's value.
func (t *Track) value(k int) []float64 {
	if t.Interpolation == InterpolationCubicSpline {
		return t.group(k, 1)
	}
	c := t.Components()
	return t.Values[k*c : (k+1)*c]
}

// group returns group g of cubic spline keyframe k.
func (t *Track) group(k, g int) []float64 {
	c := t.Components()
	start := (k*3 + g) * c
	return t.Values[start : start+c]
}

// Clip is a named set of tracks played together.
type Clip struct {
	Name     string
	Tracks   []*Track
	Duration float64 // Seconds
}

// NewClip builds a clip from its valid tracks. Its duration is the latest
// keyframe of any track.
func NewClip(name string, tracks []*Track) *Clip {
	c := &Clip{Name: name}
	for _, t := range tracks {
		if !t.Valid() {
			continue
		}
		c.Tracks = append(c.Tracks, t)
		c.Duration = gomath.Max(c.Duration, t.Duration())
	}
	return c
}

// toQuat reads glTF's x, y, z, w order.
func toQuat(v []float64) mgl64.Quat {
	return mgl64.Quat{W: v[3], V: mgl64.Vec3{v[0], v[1], v[2]}}
}

func fromQuat(q mgl64.Quat) []float64 {
	return []float64{q.V[0], q.V[1], q.V[2], q.W}
}
