package animation

import (
	gomath "math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/modelstage/internal/engine/model"
)

// LoopMode selects what an action does when it reaches the end of its clip.
type LoopMode int

const (
	LoopRepeat   LoopMode = iota // Restart from the beginning
	LoopOnce                     // Stop on the last frame
	LoopPingPong                 // Alternate forward and backward
)

// String returns the mode's attribute name.
func (m LoopMode) String() string {
	switch m {
	case LoopOnce:
		return "once"
	case LoopPingPong:
		return "ping-pong"
	default:
		return "repeat"
	}
}

// ParseLoopMode maps an attribute name to a mode; unknown names repeat.
func ParseLoopMode(s string) LoopMode {
	switch s {
	case "once", "LoopOnce":
		return LoopOnce
	case "ping-pong", "pingpong", "LoopPingPong":
		return LoopPingPong
	default:
		return LoopRepeat
	}
}

// restPose is an object's transform before any action touched it.
type restPose struct {
	position mgl64.Vec3
	rotation mgl64.Quat
	scale    mgl64.Vec3
}

// Mixer blends the actions of one model.
type Mixer struct {
	actions []*Action
	byClip  map[*Clip]*Action
	rest    map[*model.Object]restPose
	time    float64
}

// NewMixer returns an empty mixer.
func NewMixer() *Mixer {
	return &Mixer{
		byClip: make(map[*Clip]*Action),
		rest:   make(map[*model.Object]restPose),
	}
}

// ClipAction returns the mixer's action for clip, creating it on first use.
func (m *Mixer) ClipAction(clip *Clip) *Action {
	if a, ok := m.byClip[clip]; ok {
		return a
	}
	for _, t := range clip.Tracks {
		if _, ok := m.rest[t.Target]; !ok {
			m.rest[t.Target] = restPose{t.Target.Position, t.Target.Rotation, t.Target.Scale}
		}
	}
	a := &Action{
		mixer:       m,
		clip:        clip,
		loop:        LoopRepeat,
		repetitions: gomath.Inf(1),
		weight:      1,
		timeScale:   1,
	}
	m.actions = append(m.actions, a)
	m.byClip[clip] = a
	return a
}

// Time returns the total time the mixer has advanced, in seconds.
func (m *Mixer) Time() float64 {
	return m.time
}

// Update advances every running action by delta and applies the blended
// result to the targets.
func (m *Mixer) Update(delta time.Duration) {
	dt := delta.Seconds()
	m.time += dt
	for _, a := range m.actions {
		if a.running() {
			a.advance(dt)
		}
	}
	m.apply()
}

// SetTime rewinds all actions and advances them to t seconds.
func (m *Mixer) SetTime(t float64) {
	m.time = 0
	for _, a := range m.actions {
		a.time = 0
		a.loopCount = 0
		a.finished = false
	}
	m.Update(time.Duration(t * float64(time.Second)))
}

// StopAllAction stops every action and restores the rest pose.
func (m *Mixer) StopAllAction() {
	for _, a := range m.actions {
		a.Stop()
	}
	m.apply()
}

// Uncache forgets every action and restores the rest pose.
func (m *Mixer) Uncache() {
	m.StopAllAction()
	m.actions = nil
	m.byClip = make(map[*Clip]*Action)
	m.rest = make(map[*model.Object]restPose)
}

type blend struct {
	weight   float64
	position mgl64.Vec3
	rotation mgl64.Quat
	scale    mgl64.Vec3
	set      [3]bool
	weights  [3]float64
}

// apply writes the weighted mix of all enabled actions over the rest pose.
func (m *Mixer) apply() {
	blends := make(map[*model.Object]*blend, len(m.rest))
	for _, a := range m.actions {
		w := a.effectiveWeight()
		if !a.enabled || w <= 0 {
			continue
		}
		s := a.sampleTime()
		for _, t := range a.clip.Tracks {
			b := blends[t.Target]
			if b == nil {
				b = &blend{}
				blends[t.Target] = b
			}
			v := t.Sample(s)
			accumulate(b, t.Path, v, w)
		}
	}

	for obj, rest := range m.rest {
		b := blends[obj]
		if b == nil {
			obj.Position, obj.Rotation, obj.Scale = rest.position, rest.rotation, rest.scale
			continue
		}
		obj.Position = mixVec(rest.position, b.position, b.weights[PathTranslation], b.set[PathTranslation])
		obj.Scale = mixVec(rest.scale, b.scale, b.weights[PathScale], b.set[PathScale])
		obj.Rotation = rest.rotation
		if b.set[PathRotation] {
			w := gomath.Min(1, b.weights[PathRotation])
			obj.Rotation = mgl64.QuatSlerp(rest.rotation, b.rotation, w)
		}
	}
}

// accumulate adds a weighted sample. Rotations are combined by slerping
// toward each new sample by its share of the accumulated weight.
func accumulate(b *blend, path Path, v []float64, w float64) {
	prev := b.weights[path]
	total := prev + w
	switch path {
	case PathRotation:
		q := toQuat(v)
		if !b.set[path] {
			b.rotation = q
		} else {
			b.rotation = mgl64.QuatSlerp(b.rotation, q, w/total)
		}
	case PathTranslation:
		b.position = b.position.Add(mgl64.Vec3{v[0], v[1], v[2]}.Mul(w))
	case PathScale:
		b.scale = b.scale.Add(mgl64.Vec3{v[0], v[1], v[2]}.Mul(w))
	}
	b.set[path] = true
	b.weights[path] = total
}

// mixVec combines a weighted sum with rest. Weights above one normalize
// the sum; below one the rest value fills the remainder.
func mixVec(rest, sum mgl64.Vec3, weight float64, set bool) mgl64.Vec3 {
	if !set || weight <= 0 {
		return rest
	}
	if weight >= 1 {
		return sum.Mul(1 / weight)
	}
	return sum.Add(rest.Mul(1 - weight))
}
