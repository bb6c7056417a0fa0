package viewer

import (
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/modelstage/internal/engine/animation"
)

// animationSession is the animation state of one mounted model.
type animationSession struct {
	mixer   *animation.Mixer
	clips   []*animation.Clip
	byName  map[string]*animation.Clip
	names   []string
	current *animation.Action
	paused  bool
}

func newAnimationSession(clips []*animation.Clip) *animationSession {
	a := &animationSession{
		mixer:  animation.NewMixer(),
		clips:  clips,
		byName: make(map[string]*animation.Clip, len(clips)),
	}
	for _, c := range clips {
		if _, ok := a.byName[c.Name]; !ok {
			a.names = append(a.names, c.Name)
		}
		// Last clip wins on duplicate names.
		a.byName[c.Name] = c
	}
	return a
}

func (a *animationSession) dispose() {
	a.mixer.Uncache()
	a.current = nil
}

// advance updates the mixer and reports whether anything may have moved.
func (a *animationSession) advance(delta time.Duration) bool {
	if a.current == nil || a.paused {
		return false
	}
	a.mixer.Update(delta)
	return true
}

// AnimationNames returns the model's animation names in document order.
func (s *ModelScene) AnimationNames() []string {
	return append([]string(nil), s.anim.names...)
}

// HasActiveAnimation reports whether an animation is selected.
func (s *ModelScene) HasActiveAnimation() bool {
	return s.anim.current != nil
}

// CurrentAnimation returns the selected animation's name, or "".
func (s *ModelScene) CurrentAnimation() string {
	if s.anim.current == nil {
		return ""
	}
	return s.anim.current.Clip().Name
}

// PlayAnimation plays the named animation, cross-fading from the current
// one over crossfade. An empty or unknown name falls back to the first
// animation; a model without animations is left alone. repetitions counts
// total plays; use math.Inf(1) to loop forever.
func (s *ModelScene) PlayAnimation(name string, crossfade time.Duration, loop animation.LoopMode, repetitions float64) {
	a := s.anim
	if len(a.names) == 0 {
		s.log.Warn("cannot play animation", zap.String("name", name), zap.Error(ErrNoAnimations))
		return
	}
	clip, ok := a.byName[name]
	if !ok {
		if name != "" {
			s.log.Warn("falling back to first animation",
				zap.String("name", name), zap.String("fallback", a.names[0]), zap.Error(ErrMissingAnimation))
		}
		clip = a.byName[a.names[0]]
	}

	prev := a.current
	action := a.mixer.ClipAction(clip)
	a.current = action

	if prev != nil && prev != action {
		action.Stop()
		action.CrossFadeFrom(prev, crossfade)
	} else if action.Finished() {
		action.Stop()
	}
	action.SetLoop(loop, repetitions)
	action.Play()
	action.SetPaused(a.paused)
	s.QueueRender()
}

// StopAnimation stops all playback and restores the rest pose.
func (s *ModelScene) StopAnimation() {
	s.anim.current = nil
	s.anim.mixer.StopAllAction()
	s.markShadowDirty()
	s.QueueRender()
}

// SetAnimationPaused freezes or resumes playback without losing position.
func (s *ModelScene) SetAnimationPaused(paused bool) {
	s.anim.paused = paused
	if s.anim.current != nil {
		s.anim.current.SetPaused(paused)
	}
}

// AnimationPaused reports whether playback is frozen.
func (s *ModelScene) AnimationPaused() bool {
	return s.anim.paused
}

// AnimationTime returns the sampled position of the current animation in
// seconds. Ping-pong loops count down on their backward passes.
func (s *ModelScene) AnimationTime() float64 {
	act := s.anim.current
	if act == nil {
		return 0
	}
	if act.Loop() == animation.LoopPingPong && act.LoopCount()%2 == 1 {
		return act.Clip().Duration - act.Time()
	}
	return act.Time()
}

// SetAnimationTime seeks every action to t seconds.
func (s *ModelScene) SetAnimationTime(t float64) {
	s.anim.mixer.SetTime(t)
	s.markShadowDirty()
	s.QueueRender()
}

// Duration returns the length of the current animation in seconds.
func (s *ModelScene) Duration() float64 {
	if s.anim.current == nil {
		return 0
	}
	return s.anim.current.Clip().Duration
}
