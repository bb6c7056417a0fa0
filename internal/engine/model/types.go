// Package model is the engine-side scene graph: transformable objects that
// carry triangle geometry and runtime materials. It is what the framing,
// picking and animation code operates on; the glTF document is only the
// source it was built from.
package model

import (
	"image"

	"github.com/go-gl/mathgl/mgl64"
)

// DrawMode is how a primitive's vertices are assembled.
type DrawMode int

const (
	ModeTriangles DrawMode = iota // Indexed or sequential triangle list
	ModeLines                     // Line segments (not pickable)
	ModePoints                    // Point cloud (not pickable)
)

// AlphaMode mirrors the glTF material alpha modes.
type AlphaMode string

const (
	AlphaOpaque AlphaMode = "OPAQUE"
	AlphaMask   AlphaMode = "MASK"
	AlphaBlend  AlphaMode = "BLEND"
)

// Texture is a material texture slot bound to a document texture.
// Image is nil until the texture has been resolved.
type Texture struct {
	Index    int    // Index into the source document's textures
	TexCoord int    // UV set
	Name     string
	MimeType string
	Data     []byte // Encoded image bytes, kept for export
	Image    image.Image
}

// Resolved reports whether the texture's image has been decoded.
func (t *Texture) Resolved() bool {
	return t != nil && t.Image != nil
}

// Material is the runtime material a primitive is drawn with.
type Material struct {
	Name            string
	BaseColorFactor [4]float64
	MetallicFactor  float64
	RoughnessFactor float64
	EmissiveFactor  [3]float64
	AlphaMode       AlphaMode
	AlphaCutoff     float64
	DoubleSided     bool

	BaseColorTexture         *Texture
	MetallicRoughnessTexture *Texture
	NormalTexture            *Texture
	OcclusionTexture         *Texture
	EmissiveTexture          *Texture
}

// NewMaterial returns a material with glTF default factors.
func NewMaterial(name string) *Material {
	return &Material{
		Name:            name,
		BaseColorFactor: [4]float64{1, 1, 1, 1},
		MetallicFactor:  1,
		RoughnessFactor: 1,
		AlphaMode:       AlphaOpaque,
		AlphaCutoff:     0.5,
	}
}

// Textures returns the non-nil texture slots.
func (m *Material) Textures() []*Texture {
	var out []*Texture
	for _, t := range []*Texture{
		m.BaseColorTexture,
		m.MetallicRoughnessTexture,
		m.NormalTexture,
		m.OcclusionTexture,
		m.EmissiveTexture,
	} {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// Primitive is one drawable batch of a mesh.
type Primitive struct {
	Positions []mgl64.Vec3
	Normals   []mgl64.Vec3
	UVs       [][2]float64
	Indices   []uint32 // Empty means sequential vertices
	Mode      DrawMode
	Material  *Material
}

// VertexCount returns the number of vertex positions.
func (p *Primitive) VertexCount() int {
	return len(p.Positions)
}

// Triangle returns the vertex indices of triangle i.
func (p *Primitive) Triangle(i int) (a, b, c int) {
	if len(p.Indices) > 0 {
		return int(p.Indices[3*i]), int(p.Indices[3*i+1]), int(p.Indices[3*i+2])
	}
	return 3 * i, 3*i + 1, 3*i + 2
}

// TriangleCount returns the number of complete triangles.
func (p *Primitive) TriangleCount() int {
	if p.Mode != ModeTriangles {
		return 0
	}
	if len(p.Indices) > 0 {
		return len(p.Indices) / 3
	}
	return len(p.Positions) / 3
}

// Mesh groups the primitives attached to one object.
type Mesh struct {
	Name       string
	Primitives []*Primitive
}
