package math

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestEmptyBox(t *testing.T) {
	box := EmptyBox()
	assert.True(t, box.IsEmpty())
	assert.Equal(t, mgl64.Vec3{}, box.Center())
	assert.Equal(t, mgl64.Vec3{}, box.Size())

	box = box.ExpandByPoint(mgl64.Vec3{1, 2, 3})
	assert.False(t, box.IsEmpty())
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, box.Min)
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, box.Max)
	assert.Equal(t, 0.0, box.Radius())
}

func TestNewBoxSwapsCorners(t *testing.T) {
	box := NewBox(mgl64.Vec3{1, -1, 5}, mgl64.Vec3{-1, 1, 2})
	assert.Equal(t, mgl64.Vec3{-1, -1, 2}, box.Min)
	assert.Equal(t, mgl64.Vec3{1, 1, 5}, box.Max)
	assert.Equal(t, mgl64.Vec3{0, 0, 3.5}, box.Center())
	assert.Equal(t, mgl64.Vec3{2, 2, 3}, box.Size())
}

func TestBoxUnion(t *testing.T) {
	a := NewBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	b := NewBox(mgl64.Vec3{2, -1, 0}, mgl64.Vec3{3, 0, 4})

	u := a.Union(b)
	assert.Equal(t, mgl64.Vec3{0, -1, 0}, u.Min)
	assert.Equal(t, mgl64.Vec3{3, 1, 4}, u.Max)

	assert.Equal(t, a, a.Union(EmptyBox()))
}

func TestBoxTransform(t *testing.T) {
	box := NewBox(mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1})

	moved := box.Transform(mgl64.Translate3D(10, 0, 0))
	assert.InDelta(t, 9, moved.Min[0], 1e-9)
	assert.InDelta(t, 11, moved.Max[0], 1e-9)

	// A 45 degree yaw grows the XZ extent to the corner distance.
	rotated := box.Transform(mgl64.HomogRotate3DY(mgl64.DegToRad(45)))
	assert.InDelta(t, 1.41421356, rotated.Max[0], 1e-6)
	assert.InDelta(t, 1, rotated.Max[1], 1e-9)

	assert.True(t, EmptyBox().Transform(mgl64.Translate3D(1, 1, 1)).IsEmpty())
}

func TestBoxContainsPoint(t *testing.T) {
	box := NewBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	assert.True(t, box.ContainsPoint(mgl64.Vec3{0.5, 0.5, 0.5}))
	assert.True(t, box.ContainsPoint(mgl64.Vec3{1, 1, 1}))
	assert.False(t, box.ContainsPoint(mgl64.Vec3{1.1, 0.5, 0.5}))
}

func TestDistanceHelpers(t *testing.T) {
	a := mgl64.Vec3{1, 5, 1}
	b := mgl64.Vec3{4, -3, 5}
	assert.Equal(t, 9.0+64.0+16.0, DistanceSquared(a, b))
	assert.Equal(t, 5.0, RadiusXZ(a, b))
}
