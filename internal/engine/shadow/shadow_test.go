package shadow

import (
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/modelstage/internal/engine/model"
	"github.com/Faultbox/modelstage/pkg/math"
)

func testBounds() math.Box3 {
	return math.NewBox(mgl64.Vec3{-2, 0, -1}, mgl64.Vec3{2, 3, 1})
}

func TestResolutionFromSoftness(t *testing.T) {
	tests := []struct {
		softness float64
		want     int
	}{
		{0, 512},
		{0.5, 128},
		{1, 64},
		{2, 64},
		{-1, 512},
	}
	p := New(testBounds(), 0, SideBottom)
	for _, tt := range tests {
		p.SetSoftness(tt.softness)
		assert.Equal(t, tt.want, p.Resolution(), "softness %v", tt.softness)
	}
}

func TestMapSizeKeepsAspect(t *testing.T) {
	p := New(testBounds(), 0, SideBottom)
	w, h := p.MapSize()
	assert.Equal(t, 512, w)
	assert.Equal(t, 256, h)
}

func TestIntensityTogglesVisibility(t *testing.T) {
	p := New(testBounds(), 1, SideBottom)
	p.TakeDirty()
	assert.False(t, p.Visible())

	p.SetIntensity(0.5)
	assert.True(t, p.Visible())
	assert.True(t, p.TakeDirty())
	assert.False(t, p.TakeDirty(), "dirty flag is cleared once taken")

	p.SetIntensity(0.5)
	assert.False(t, p.TakeDirty(), "unchanged intensity is not dirty")

	p.SetIntensity(0)
	assert.False(t, p.Visible())
}

func TestRotationMarksDirty(t *testing.T) {
	p := New(testBounds(), 1, SideBottom)
	p.TakeDirty()
	p.SetRotation(1)
	assert.True(t, p.TakeDirty())
	assert.Equal(t, 1.0, p.Rotation())
	p.SetRotation(1)
	assert.False(t, p.TakeDirty())
}

func TestFloorSitsUnderBounds(t *testing.T) {
	p := New(testBounds(), 1, SideBottom)
	p.SetScaleAndOffset(1, -0.5)
	obj := p.Object()
	assert.InDelta(t, -0.5, obj.Position.Y(), 1e-12)

	box := model.VertexBox(obj)
	assert.InDelta(t, 4.0, box.Size().X(), 1e-12)
	assert.InDelta(t, 2.0, box.Size().Z(), 1e-12)
	require.Len(t, obj.Mesh.Primitives[0].Normals, 4)
	assert.InDelta(t, 1.0, obj.Mesh.Primitives[0].Normals[0].Y(), 1e-12)
}

func TestBackWall(t *testing.T) {
	p := New(testBounds(), 1, SideBack)
	box := model.VertexBox(p.Object())
	assert.InDelta(t, -1.0, box.Min.Z(), 1e-12)
	assert.InDelta(t, 3.0, box.Size().Y(), 1e-12)
	assert.Equal(t, SideBack, p.Side())
}

func TestLightMatrixCoversBounds(t *testing.T) {
	p := New(testBounds(), 1, SideBottom)
	m := p.LightMatrix()
	for _, corner := range []mgl64.Vec3{{-2, 0, -1}, {2, 3, 1}} {
		c := mgl64.TransformCoordinate(corner, m)
		assert.LessOrEqual(t, c.X(), 1.0)
		assert.GreaterOrEqual(t, c.X(), -1.0)
		assert.LessOrEqual(t, c.Z(), 1.0)
		assert.GreaterOrEqual(t, c.Z(), -1.0)
	}
	assert.Equal(t, mgl64.Ident4(), DirectionalLightMatrix(mgl64.Vec3{0, 1, 0}, math.EmptyBox()))
}

func TestBackLightFollowsYaw(t *testing.T) {
	p := New(testBounds(), 1, SideBack)
	before := p.LightMatrix()
	p.SetRotation(gomath.Pi / 2)
	assert.NotEqual(t, before, p.LightMatrix())
	assert.Equal(t, mgl64.QuatIdent(), p.Object().Rotation)

	floor := New(testBounds(), 1, SideBottom)
	before = floor.LightMatrix()
	floor.SetRotation(gomath.Pi / 2)
	assert.Equal(t, before, floor.LightMatrix())
}
