package animation

import (
	gomath "math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/modelstage/internal/engine/model"
)

func slide(obj *model.Object) *Clip {
	return NewClip("slide", []*Track{{
		Target: obj,
		Path:   PathTranslation,
		Times:  []float64{0, 2},
		Values: []float64{0, 0, 0, 10, 0, 0},
	}})
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func TestTrackSampleLinear(t *testing.T) {
	obj := model.NewObject("o")
	tr := slide(obj).Tracks[0]
	assert.Equal(t, []float64{0, 0, 0}, tr.Sample(-1))
	assert.InDeltaSlice(t, []float64{5, 0, 0}, tr.Sample(1), 1e-12)
	assert.Equal(t, []float64{10, 0, 0}, tr.Sample(3))
}

func TestTrackSampleStep(t *testing.T) {
	tr := &Track{
		Target:        model.NewObject("o"),
		Path:          PathScale,
		Interpolation: InterpolationStep,
		Times:         []float64{0, 1, 2},
		Values:        []float64{1, 1, 1, 2, 2, 2, 3, 3, 3},
	}
	assert.Equal(t, []float64{1, 1, 1}, tr.Sample(0.99))
	assert.Equal(t, []float64{2, 2, 2}, tr.Sample(1))
}

func TestTrackSampleRotationSlerp(t *testing.T) {
	q := mgl64.QuatRotate(gomath.Pi/2, mgl64.Vec3{0, 1, 0})
	tr := &Track{
		Target: model.NewObject("o"),
		Path:   PathRotation,
		Times:  []float64{0, 1},
		Values: []float64{0, 0, 0, 1, q.V[0], q.V[1], q.V[2], q.W},
	}
	v := tr.Sample(0.5)
	got := mgl64.Quat{W: v[3], V: mgl64.Vec3{v[0], v[1], v[2]}}
	want := mgl64.QuatRotate(gomath.Pi/4, mgl64.Vec3{0, 1, 0})
	assert.InDelta(t, want.W, got.W, 1e-9)
	assert.InDeltaSlice(t, want.V[:], got.V[:], 1e-9)
}

func TestTrackSampleCubicSpline(t *testing.T) {
	// Zero tangents: the curve eases between values and hits them at the keys.
	tr := &Track{
		Target:        model.NewObject("o"),
		Path:          PathTranslation,
		Interpolation: InterpolationCubicSpline,
		Times:         []float64{0, 1},
		Values: []float64{
			0, 0, 0, 0, 0, 0, 0, 0, 0,
			0, 0, 0, 4, 0, 0, 0, 0, 0,
		},
	}
	require.True(t, tr.Valid())
	assert.InDelta(t, 2.0, tr.Sample(0.5)[0], 1e-12)
	assert.InDelta(t, 4.0, tr.Sample(1)[0], 1e-12)
}

func TestNewClipDropsInvalidTracks(t *testing.T) {
	obj := model.NewObject("o")
	c := NewClip("c", []*Track{
		{Target: obj, Path: PathTranslation, Times: []float64{0, 3}, Values: []float64{1}},
		{Target: nil, Path: PathScale, Times: []float64{0}, Values: []float64{1, 1, 1}},
		{Target: obj, Path: PathScale, Times: []float64{0, 1.5}, Values: []float64{1, 1, 1, 2, 2, 2}},
	})
	assert.Len(t, c.Tracks, 1)
	assert.Equal(t, 1.5, c.Duration)
}

func TestMixerRepeat(t *testing.T) {
	obj := model.NewObject("o")
	m := NewMixer()
	a := m.ClipAction(slide(obj)).Play()
	assert.Same(t, a, m.ClipAction(a.Clip()))

	m.Update(seconds(1))
	assert.InDelta(t, 5.0, obj.Position.X(), 1e-9)

	m.Update(seconds(1.5))
	assert.InDelta(t, 0.5, a.Time(), 1e-9)
	assert.Equal(t, 1, a.LoopCount())
	assert.InDelta(t, 2.5, obj.Position.X(), 1e-9)
}

func TestMixerOnceClamps(t *testing.T) {
	obj := model.NewObject("o")
	m := NewMixer()
	a := m.ClipAction(slide(obj)).SetLoop(LoopOnce, 1).Play()
	m.Update(seconds(5))
	assert.True(t, a.Finished())
	assert.Equal(t, 2.0, a.Time())
	assert.InDelta(t, 10.0, obj.Position.X(), 1e-9)
}

func TestMixerPingPong(t *testing.T) {
	obj := model.NewObject("o")
	m := NewMixer()
	a := m.ClipAction(slide(obj)).SetLoop(LoopPingPong, gomath.Inf(1)).Play()
	m.Update(seconds(2.5))
	assert.Equal(t, 1, a.LoopCount())
	assert.InDelta(t, 0.5, a.Time(), 1e-9)
	// Backward pass: sampled at 1.5s.
	assert.InDelta(t, 7.5, obj.Position.X(), 1e-9)
}

func TestMixerLimitedRepetitions(t *testing.T) {
	obj := model.NewObject("o")
	m := NewMixer()
	a := m.ClipAction(slide(obj)).SetLoop(LoopRepeat, 2).Play()
	m.Update(seconds(10))
	assert.True(t, a.Finished())
	assert.InDelta(t, 10.0, obj.Position.X(), 1e-9)
}

func TestStopRestoresRestPose(t *testing.T) {
	obj := model.NewObject("o")
	obj.Position = mgl64.Vec3{0, 7, 0}
	m := NewMixer()
	a := m.ClipAction(slide(obj)).Play()
	m.Update(seconds(1))
	assert.NotEqual(t, mgl64.Vec3{0, 7, 0}, obj.Position)

	m.StopAllAction()
	assert.Equal(t, mgl64.Vec3{0, 7, 0}, obj.Position)
	assert.Zero(t, a.Time())
	assert.False(t, a.IsRunning())
}

func TestCrossFade(t *testing.T) {
	obj := model.NewObject("o")
	m := NewMixer()
	first := m.ClipAction(slide(obj)).Play()
	hold := NewClip("hold", []*Track{{
		Target: obj,
		Path:   PathTranslation,
		Times:  []float64{0, 1},
		Values: []float64{-4, 0, 0, -4, 0, 0},
	}})
	second := m.ClipAction(hold).Play().CrossFadeFrom(first, seconds(1))

	m.Update(seconds(0.5))
	assert.InDelta(t, 0.5, first.Weight(), 1e-9)
	assert.InDelta(t, 0.5, second.Weight(), 1e-9)

	m.Update(seconds(0.5))
	assert.False(t, first.IsRunning(), "faded out action stops")
	assert.InDelta(t, 1.0, second.Weight(), 1e-9)
	assert.InDelta(t, -4.0, obj.Position.X(), 1e-9)
}

func TestPartialWeightBlendsWithRest(t *testing.T) {
	obj := model.NewObject("o")
	obj.Position = mgl64.Vec3{2, 0, 0}
	m := NewMixer()
	a := m.ClipAction(slide(obj)).Play().FadeIn(seconds(2))
	m.Update(seconds(1))
	// Weight 0.5 of sample 5 plus half of rest 2.
	assert.InDelta(t, 0.5, a.Weight(), 1e-9)
	assert.InDelta(t, 3.5, obj.Position.X(), 1e-9)
}

func TestSetTime(t *testing.T) {
	obj := model.NewObject("o")
	m := NewMixer()
	a := m.ClipAction(slide(obj)).Play()
	m.Update(seconds(1.7))
	m.SetTime(0.4)
	assert.InDelta(t, 0.4, a.Time(), 1e-9)
	assert.InDelta(t, 2.0, obj.Position.X(), 1e-9)
}

func TestPausedActionHolds(t *testing.T) {
	obj := model.NewObject("o")
	m := NewMixer()
	a := m.ClipAction(slide(obj)).Play()
	m.Update(seconds(1))
	a.SetPaused(true)
	m.Update(seconds(1))
	assert.InDelta(t, 1.0, a.Time(), 1e-9)
	assert.InDelta(t, 5.0, obj.Position.X(), 1e-9)
}

func TestParseLoopMode(t *testing.T) {
	assert.Equal(t, LoopOnce, ParseLoopMode("once"))
	assert.Equal(t, LoopPingPong, ParseLoopMode("ping-pong"))
	assert.Equal(t, LoopRepeat, ParseLoopMode("whatever"))
	assert.Equal(t, "ping-pong", LoopPingPong.String())
}
