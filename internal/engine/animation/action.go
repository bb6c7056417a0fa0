package animation

import (
	gomath "math"
	"time"
)

// fade is a linear weight ramp.
type fade struct {
	from, to float64
	elapsed  float64
	duration float64
}

func (f *fade) value() float64 {
	if f.duration <= 0 || f.elapsed >= f.duration {
		return f.to
	}
	return f.from + (f.to-f.from)*f.elapsed/f.duration
}

func (f *fade) done() bool {
	return f.elapsed >= f.duration
}

// Action is the playback state of one clip in a mixer.
type Action struct {
	mixer *Mixer
	clip  *Clip

	loop        LoopMode
	repetitions float64
	time        float64
	loopCount   int
	weight      float64
	timeScale   float64
	fade        *fade

	enabled  bool
	playing  bool
	paused   bool
	finished bool
}

// Clip returns the action's clip.
func (a *Action) Clip() *Clip {
	return a.clip
}

// SetLoop sets the loop mode and how many times the clip plays in total.
// Use math.Inf(1) for no limit; values below one are treated as one.
func (a *Action) SetLoop(mode LoopMode, repetitions float64) *Action {
	if gomath.IsNaN(repetitions) || repetitions < 1 {
		repetitions = 1
	}
	a.loop = mode
	a.repetitions = repetitions
	return a
}

// Loop returns the loop mode.
func (a *Action) Loop() LoopMode {
	return a.loop
}

// Play starts or resumes the action.
func (a *Action) Play() *Action {
	a.enabled = true
	a.playing = true
	a.paused = false
	return a
}

// Stop halts the action, rewinds it and removes its contribution.
func (a *Action) Stop() *Action {
	a.enabled = false
	a.playing = false
	a.paused = false
	a.finished = false
	a.time = 0
	a.loopCount = 0
	a.fade = nil
	return a
}

// SetPaused freezes or resumes time without removing the contribution.
func (a *Action) SetPaused(paused bool) {
	a.paused = paused
}

// Paused reports whether the action is paused.
func (a *Action) Paused() bool {
	return a.paused
}

// IsRunning reports whether the action is playing and advancing.
func (a *Action) IsRunning() bool {
	return a.running()
}

// Finished reports whether a limited loop has played out.
func (a *Action) Finished() bool {
	return a.finished
}

// Time returns the raw playback position in seconds. For ping-pong actions
// on a backward pass, the sampled time is Duration minus Time.
func (a *Action) Time() float64 {
	return a.time
}

// SetTime moves the playback position.
func (a *Action) SetTime(t float64) {
	a.time = t
}

// LoopCount returns how many times the clip wrapped.
func (a *Action) LoopCount() int {
	return a.loopCount
}

// SetTimeScale sets the playback speed; 1 is normal.
func (a *Action) SetTimeScale(scale float64) {
	a.timeScale = scale
}

// Weight returns the current blend weight, including any fade.
func (a *Action) Weight() float64 {
	return a.effectiveWeight()
}

// FadeIn ramps the weight from zero to one over d.
func (a *Action) FadeIn(d time.Duration) *Action {
	a.fade = &fade{from: 0, to: 1, duration: d.Seconds()}
	return a
}

// FadeOut ramps the weight to zero over d, then disables the action.
func (a *Action) FadeOut(d time.Duration) *Action {
	a.fade = &fade{from: a.effectiveWeight(), to: 0, duration: d.Seconds()}
	return a
}

// CrossFadeFrom fades prev out while this action fades in over d.
func (a *Action) CrossFadeFrom(prev *Action, d time.Duration) *Action {
	if prev != nil && prev != a {
		prev.FadeOut(d)
	}
	return a.FadeIn(d)
}

func (a *Action) running() bool {
	return a.enabled && a.playing && !a.paused
}

func (a *Action) effectiveWeight() float64 {
	if !a.enabled {
		return 0
	}
	if a.fade != nil {
		return a.weight * a.fade.value()
	}
	return a.weight
}

// sampleTime is the clip time the tracks are sampled at.
func (a *Action) sampleTime() float64 {
	if a.loop == LoopPingPong && a.loopCount&1 == 1 {
		return a.clip.Duration - a.time
	}
	return a.time
}

// advance moves time forward by dt seconds, handling loops and fades.
func (a *Action) advance(dt float64) {
	if a.fade != nil {
		a.fade.elapsed += dt
		if a.fade.done() {
			if a.fade.to == 0 {
				a.Stop()
				return
			}
			a.fade = nil
		}
	}
	if a.finished {
		return
	}

	d := a.clip.Duration
	a.time += dt * a.timeScale
	if d <= 0 {
		a.time = 0
		return
	}

	if a.loop == LoopOnce {
		if a.time >= d {
			a.time = d
			a.finished = true
		} else if a.time < 0 {
			a.time = 0
		}
		return
	}

	if a.time >= d {
		wraps := int(gomath.Floor(a.time / d))
		a.time -= float64(wraps) * d
		a.loopCount += wraps
		if float64(a.loopCount) >= a.repetitions {
			// Clamp on the last frame of the final pass.
			a.loopCount = int(a.repetitions) - 1
			a.time = d
			a.finished = true
		}
	} else if a.time < 0 {
		a.time = 0
	}
}
