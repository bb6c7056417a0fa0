package scenegraph

import (
	"github.com/qmuntal/gltf"

	"github.com/Faultbox/modelstage/internal/engine/model"
)

// Material is a document material paired with its engine material. Setters
// write both and report the change, so exports and renders agree.
type Material struct {
	index    int
	doc      *gltf.Material
	engine   *model.Material
	onUpdate func()
}

// Index returns the document index.
func (m *Material) Index() int { return m.index }

// Name returns the material name.
func (m *Material) Name() string { return m.doc.Name }

// Engine returns the runtime material.
func (m *Material) Engine() *model.Material { return m.engine }

func (m *Material) pbr() *gltf.PBRMetallicRoughness {
	if m.doc.PBRMetallicRoughness == nil {
		m.doc.PBRMetallicRoughness = &gltf.PBRMetallicRoughness{}
	}
	return m.doc.PBRMetallicRoughness
}

func (m *Material) changed() {
	if m.onUpdate != nil {
		m.onUpdate()
	}
}

// BaseColorFactor returns the linear RGBA base color.
func (m *Material) BaseColorFactor() [4]float64 {
	return m.engine.BaseColorFactor
}

// SetBaseColorFactor sets the linear RGBA base color.
func (m *Material) SetBaseColorFactor(rgba [4]float64) {
	c := rgba
	m.pbr().BaseColorFactor = &c
	m.engine.BaseColorFactor = rgba
	m.changed()
}

// MetallicFactor returns the metalness in [0, 1].
func (m *Material) MetallicFactor() float64 {
	return m.engine.MetallicFactor
}

// SetMetallicFactor sets the metalness.
func (m *Material) SetMetallicFactor(v float64) {
	m.pbr().MetallicFactor = &v
	m.engine.MetallicFactor = v
	m.changed()
}

// RoughnessFactor returns the roughness in [0, 1].
func (m *Material) RoughnessFactor() float64 {
	return m.engine.RoughnessFactor
}

// SetRoughnessFactor sets the roughness.
func (m *Material) SetRoughnessFactor(v float64) {
	m.pbr().RoughnessFactor = &v
	m.engine.RoughnessFactor = v
	m.changed()
}

// EmissiveFactor returns the linear RGB emission.
func (m *Material) EmissiveFactor() [3]float64 {
	return m.engine.EmissiveFactor
}

// SetEmissiveFactor sets the linear RGB emission.
func (m *Material) SetEmissiveFactor(rgb [3]float64) {
	m.doc.EmissiveFactor = rgb
	m.engine.EmissiveFactor = rgb
	m.changed()
}

// AlphaMode returns OPAQUE, MASK or BLEND.
func (m *Material) AlphaMode() model.AlphaMode {
	return m.engine.AlphaMode
}

// SetAlphaMode sets the alpha mode. Unknown modes are treated as OPAQUE.
func (m *Material) SetAlphaMode(mode model.AlphaMode) {
	switch mode {
	case model.AlphaMask:
		m.doc.AlphaMode = gltf.AlphaMask
	case model.AlphaBlend:
		m.doc.AlphaMode = gltf.AlphaBlend
	default:
		mode = model.AlphaOpaque
		m.doc.AlphaMode = gltf.AlphaOpaque
	}
	m.engine.AlphaMode = mode
	m.changed()
}

// AlphaCutoff returns the MASK threshold.
func (m *Material) AlphaCutoff() float64 {
	return m.engine.AlphaCutoff
}

// SetAlphaCutoff sets the MASK threshold.
func (m *Material) SetAlphaCutoff(v float64) {
	m.doc.AlphaCutoff = &v
	m.engine.AlphaCutoff = v
	m.changed()
}

// DoubleSided reports whether back faces are drawn.
func (m *Material) DoubleSided() bool {
	return m.engine.DoubleSided
}

// SetDoubleSided sets whether back faces are drawn.
func (m *Material) SetDoubleSided(v bool) {
	m.doc.DoubleSided = v
	m.engine.DoubleSided = v
	m.changed()
}
