package math

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRayNormalizes(t *testing.T) {
	r := NewRay(mgl64.Vec3{}, mgl64.Vec3{0, 0, -5})
	assert.Equal(t, mgl64.Vec3{0, 0, -1}, r.Direction)
	assert.Equal(t, mgl64.Vec3{0, 0, -2}, r.At(2))
}

func TestIntersectBox(t *testing.T) {
	box := NewBox(mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1})

	tests := []struct {
		name    string
		ray     Ray
		wantHit bool
		wantT   float64
	}{
		{"hit from front", NewRay(mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, -1}), true, 4},
		{"miss beside", NewRay(mgl64.Vec3{3, 0, 5}, mgl64.Vec3{0, 0, -1}), false, 0},
		{"pointing away", NewRay(mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, 1}), false, 0},
		{"inside returns exit", NewRay(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}), true, 1},
		{"parallel outside slab", NewRay(mgl64.Vec3{0, 2, 5}, mgl64.Vec3{0, 0, -1}), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hit := tt.ray.IntersectBox(box)
			assert.Equal(t, tt.wantHit, hit)
			if tt.wantHit {
				assert.InDelta(t, tt.wantT, got, 1e-9)
			}
		})
	}
}

func TestIntersectTriangle(t *testing.T) {
	a := mgl64.Vec3{-1, -1, 0}
	b := mgl64.Vec3{1, -1, 0}
	c := mgl64.Vec3{0, 1, 0}

	r := NewRay(mgl64.Vec3{0, 0, 3}, mgl64.Vec3{0, 0, -1})
	dist, u, v, hit := r.IntersectTriangle(a, b, c)
	require.True(t, hit)
	assert.InDelta(t, 3, dist, 1e-9)
	assert.InDelta(t, 0.25, u, 1e-9)
	assert.InDelta(t, 0.5, v, 1e-9)

	// Back face is hit too.
	back := NewRay(mgl64.Vec3{0, 0, -3}, mgl64.Vec3{0, 0, 1})
	_, _, _, hit = back.IntersectTriangle(a, b, c)
	assert.True(t, hit)

	miss := NewRay(mgl64.Vec3{5, 0, 3}, mgl64.Vec3{0, 0, -1})
	_, _, _, hit = miss.IntersectTriangle(a, b, c)
	assert.False(t, hit)

	parallel := NewRay(mgl64.Vec3{0, 0, 3}, mgl64.Vec3{1, 0, 0})
	_, _, _, hit = parallel.IntersectTriangle(a, b, c)
	assert.False(t, hit)
}

func TestRayFromNDC(t *testing.T) {
	proj := mgl64.Perspective(mgl64.DegToRad(45), 1, 0.1, 100)
	view := mgl64.LookAtV(mgl64.Vec3{0, 0, 10}, mgl64.Vec3{}, mgl64.Vec3{0, 1, 0})
	inv := proj.Mul4(view).Inv()

	r := RayFromNDC(0, 0, inv)
	assert.InDelta(t, 0, r.Direction[0], 1e-9)
	assert.InDelta(t, 0, r.Direction[1], 1e-9)
	assert.InDelta(t, -1, r.Direction[2], 1e-9)
	assert.InDelta(t, 9.9, r.Origin[2], 1e-6)
}

func TestRayTransform(t *testing.T) {
	r := NewRay(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0})
	moved := r.Transform(mgl64.Translate3D(0, 2, 0))
	assert.Equal(t, mgl64.Vec3{0, 2, 0}, moved.Origin)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, moved.Direction)
}
