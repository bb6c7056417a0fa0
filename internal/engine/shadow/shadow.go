// Package shadow maintains the contact shadow proxy: a flat quad under (or
// behind) the model whose shadow map a renderer draws.
//
// The proxy only tracks state. It knows when its map needs re-rendering
// and exposes the light matrix, but never rasterizes.
package shadow

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/modelstage/internal/engine/model"
	"github.com/Faultbox/modelstage/pkg/math"
)

// Side selects the face of the model's bounds the shadow is cast onto.
type Side int

const (
	SideBottom Side = iota // Floor below the model
	SideBack               // Wall behind the model
)

// Shadow map resolutions are powers of two between these exponents.
const (
	logMaxResolution = 9
	logMinResolution = 6
)

// Proxy is the shadow helper object attached next to the model.
type Proxy struct {
	object *model.Object

	side      Side
	bounds    math.Box3
	intensity float64
	softness  float64
	rotation  float64
	scale     float64
	offset    float64

	// NeedsUpdate is set whenever the shadow map must be re-rendered.
	NeedsUpdate bool
}

// New creates a proxy for a model with the given bounds, expressed in the
// space the proxy object will be added to.
func New(bounds math.Box3, softness float64, side Side) *Proxy {
	p := &Proxy{
		object:   model.NewObject("shadow"),
		softness: softness,
		scale:    1,
	}
	p.object.Mesh = &model.Mesh{Name: "shadow", Primitives: []*model.Primitive{{
		Positions: make([]mgl64.Vec3, 4),
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
		Material:  shadowMaterial(),
	}}}
	p.object.Visible = false
	p.SetBounds(bounds, side)
	return p
}

func shadowMaterial() *model.Material {
	m := model.NewMaterial("shadow")
	m.BaseColorFactor = [4]float64{0, 0, 0, 0}
	m.AlphaMode = model.AlphaBlend
	m.MetallicFactor = 0
	return m
}

// Object returns the helper object to add to the scene.
func (p *Proxy) Object() *model.Object {
	return p.object
}

// SetBounds reshapes the proxy around new model bounds.
func (p *Proxy) SetBounds(bounds math.Box3, side Side) {
	p.bounds = bounds
	p.side = side
	p.layout()
	p.NeedsUpdate = true
}

// Bounds returns the model bounds the proxy was last shaped for.
func (p *Proxy) Bounds() math.Box3 {
	return p.bounds
}

// Side returns the side the shadow is cast on.
func (p *Proxy) Side() Side {
	return p.side
}

// SetIntensity sets the shadow opacity. A non-positive intensity hides the proxy.
func (p *Proxy) SetIntensity(intensity float64) {
	if intensity == p.intensity {
		return
	}
	p.intensity = intensity
	p.object.Visible = intensity > 0
	mat := p.object.Mesh.Primitives[0].Material
	mat.BaseColorFactor[3] = gomath.Max(0, gomath.Min(1, intensity))
	p.NeedsUpdate = true
}

// Intensity returns the shadow opacity.
func (p *Proxy) Intensity() float64 {
	return p.intensity
}

// Visible reports whether the proxy object is shown.
func (p *Proxy) Visible() bool {
	return p.object.Visible
}

// SetVisible shows or hides the proxy without changing its intensity.
func (p *Proxy) SetVisible(visible bool) {
	p.object.Visible = visible
}

// SetSoftness maps softness in [0, 1] to the shadow map resolution.
func (p *Proxy) SetSoftness(softness float64) {
	if softness == p.softness {
		return
	}
	p.softness = softness
	p.NeedsUpdate = true
}

// Softness returns the softness last set.
func (p *Proxy) Softness() float64 {
	return p.softness
}

// Resolution returns the larger shadow map dimension for the current
// softness: 512 when sharp down to 64 when fully soft.
func (p *Proxy) Resolution() int {
	s := gomath.Max(0, gomath.Min(1, p.softness))
	exp := gomath.Floor(logMaxResolution - s*(logMaxResolution-logMinResolution))
	return 1 << int(exp)
}

// MapSize returns the shadow map size, keeping the longer side of the
// shadowed area at Resolution.
func (p *Proxy) MapSize() (width, height int) {
	res := p.Resolution()
	w, h := p.extent()
	if w <= 0 || h <= 0 {
		return res, res
	}
	if w >= h {
		return res, int(gomath.Round(float64(res) * h / w))
	}
	return int(gomath.Round(float64(res) * w / h)), res
}

// SetRotation records the model's yaw. The proxy object turns with the
// model, so only the world-fixed light direction changes relative to it.
func (p *Proxy) SetRotation(radians float64) {
	if radians == p.rotation {
		return
	}
	p.rotation = radians
	p.NeedsUpdate = true
}

// Rotation returns the yaw in radians.
func (p *Proxy) Rotation() float64 {
	return p.rotation
}

// SetScaleAndOffset scales the proxy about the bounds center and shifts
// the floor away from the bounds face by offset (usually negative).
func (p *Proxy) SetScaleAndOffset(scale, offset float64) {
	p.scale = scale
	p.offset = offset
	p.layout()
	p.NeedsUpdate = true
}

// TakeDirty reports whether the shadow map needs re-rendering and clears the flag.
func (p *Proxy) TakeDirty() bool {
	dirty := p.NeedsUpdate
	p.NeedsUpdate = false
	return dirty
}

// LightMatrix returns the view-projection the shadow map is rendered with.
func (p *Proxy) LightMatrix() mgl64.Mat4 {
	dir := mgl64.Vec3{0, 1, 0}
	if p.side == SideBack {
		dir = mgl64.Vec3{gomath.Sin(-p.rotation), 0, gomath.Cos(-p.rotation)}
	}
	return DirectionalLightMatrix(dir, p.bounds)
}

func (p *Proxy) extent() (float64, float64) {
	if p.bounds.IsEmpty() {
		return 0, 0
	}
	size := p.bounds.Size().Mul(p.scale)
	if p.side == SideBack {
		return size.X(), size.Y()
	}
	return size.X(), size.Z()
}

// layout places the quad on the chosen face of the bounds.
func (p *Proxy) layout() {
	prim := p.object.Mesh.Primitives[0]
	if p.bounds.IsEmpty() {
		for i := range prim.Positions {
			prim.Positions[i] = mgl64.Vec3{}
		}
		p.object.Position = mgl64.Vec3{}
		return
	}
	w, h := p.extent()
	hw, hh := w/2, h/2
	center := p.bounds.Center()

	if p.side == SideBack {
		p.object.Position = mgl64.Vec3{center.X(), center.Y(), p.bounds.Min.Z() + p.offset}
		prim.Positions[0] = mgl64.Vec3{-hw, -hh, 0}
		prim.Positions[1] = mgl64.Vec3{hw, -hh, 0}
		prim.Positions[2] = mgl64.Vec3{hw, hh, 0}
		prim.Positions[3] = mgl64.Vec3{-hw, hh, 0}
	} else {
		p.object.Position = mgl64.Vec3{center.X(), p.bounds.Min.Y() + p.offset, center.Z()}
		prim.Positions[0] = mgl64.Vec3{-hw, 0, hh}
		prim.Positions[1] = mgl64.Vec3{hw, 0, hh}
		prim.Positions[2] = mgl64.Vec3{hw, 0, -hh}
		prim.Positions[3] = mgl64.Vec3{-hw, 0, -hh}
	}
	prim.Normals = nil
	model.ComputeNormals(prim)
}
