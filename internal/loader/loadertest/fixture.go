// Package loadertest builds small glTF documents for tests.
package loadertest

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// VariantsExtension is the material variants extension name.
const VariantsExtension = "KHR_materials_variants"

// Document indices of the fixture.
const (
	MaterialRed   = 0
	MaterialBlue  = 1
	MaterialGreen = 2

	MeshQuad = 0
	MeshBase = 1

	NodeRoot = 0
	NodeQuad = 1
	NodeBase = 2
)

// Variants lists the fixture's variant names in document order.
var Variants = []string{"Crimson", "Navy"}

// Document returns a scene with:
//
//	root
//	├── quad: 2x2 quad facing +Z at y=1, material red; Crimson→red, Navy→blue
//	└── base: triangle on the ground, material green
//
// Red and blue carry PNG base color textures stored in buffer views.
// Animations "bob" (quad translation) and "spin" (root rotation) are included.
func Document(t testing.TB) *gltf.Document {
	t.Helper()
	doc := gltf.NewDocument()

	quadPos := modeler.WritePosition(doc, [][3]float32{{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0}})
	quadUV := modeler.WriteTextureCoord(doc, [][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}})
	quadIdx := modeler.WriteIndices(doc, []uint16{0, 1, 2, 0, 2, 3})
	basePos := modeler.WritePosition(doc, [][3]float32{{-2, 0, 2}, {2, 0, 2}, {0, 0, -2}})

	redImg := writePNG(t, doc, "red", color.RGBA{R: 255, A: 255})
	blueImg := writePNG(t, doc, "blue", color.RGBA{B: 255, A: 255})
	doc.Textures = []*gltf.Texture{
		{Name: "red", Source: gltf.Index(redImg)},
		{Name: "blue", Source: gltf.Index(blueImg)},
	}

	doc.Materials = []*gltf.Material{
		{
			Name: "red",
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor:  &[4]float64{1, 0, 0, 1},
				BaseColorTexture: &gltf.TextureInfo{Index: 0},
			},
		},
		{
			Name: "blue",
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor:  &[4]float64{0, 0, 1, 1},
				BaseColorTexture: &gltf.TextureInfo{Index: 1},
			},
		},
		{
			Name: "green",
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: &[4]float64{0, 1, 0, 1},
			},
		},
	}

	doc.Meshes = []*gltf.Mesh{
		{
			Name: "quad",
			Primitives: []*gltf.Primitive{{
				Attributes: map[string]int{gltf.POSITION: quadPos, gltf.TEXCOORD_0: quadUV},
				Indices:    gltf.Index(quadIdx),
				Material:   gltf.Index(MaterialRed),
				Extensions: gltf.Extensions{VariantsExtension: map[string]any{
					"mappings": []map[string]any{
						{"material": MaterialRed, "variants": []int{0}},
						{"material": MaterialBlue, "variants": []int{1}},
					},
				}},
			}},
		},
		{
			Name: "base",
			Primitives: []*gltf.Primitive{{
				Attributes: map[string]int{gltf.POSITION: basePos},
				Material:   gltf.Index(MaterialGreen),
			}},
		},
	}

	doc.Nodes = []*gltf.Node{
		{Name: "root", Children: []int{NodeQuad, NodeBase}},
		{Name: "quad", Mesh: gltf.Index(MeshQuad), Translation: [3]float64{0, 1, 0}},
		{Name: "base", Mesh: gltf.Index(MeshBase)},
	}
	doc.Scenes = []*gltf.Scene{{Name: "stage", Nodes: []int{NodeRoot}}}
	doc.Scene = gltf.Index(0)

	variants := make([]map[string]any, len(Variants))
	for i, name := range Variants {
		variants[i] = map[string]any{"name": name}
	}
	doc.Extensions = gltf.Extensions{VariantsExtension: map[string]any{"variants": variants}}
	doc.ExtensionsUsed = append(doc.ExtensionsUsed, VariantsExtension)

	times := modeler.WriteAccessor(doc, gltf.TargetNone, []float32{0, 1})
	bob := modeler.WriteAccessor(doc, gltf.TargetNone, [][3]float32{{0, 1, 0}, {0, 2, 0}})
	spin := modeler.WriteAccessor(doc, gltf.TargetNone, [][4]float32{{0, 0, 0, 1}, {0, 0.70710677, 0, 0.70710677}})
	doc.Animations = []*gltf.Animation{
		{
			Name:     "bob",
			Samplers: []*gltf.AnimationSampler{{Input: times, Output: bob}},
			Channels: []*gltf.AnimationChannel{{
				Sampler: 0,
				Target:  gltf.AnimationChannelTarget{Node: gltf.Index(NodeQuad), Path: gltf.TRSTranslation},
			}},
		},
		{
			Name:     "spin",
			Samplers: []*gltf.AnimationSampler{{Input: times, Output: spin}},
			Channels: []*gltf.AnimationChannel{{
				Sampler: 0,
				Target:  gltf.AnimationChannelTarget{Node: gltf.Index(NodeRoot), Path: gltf.TRSRotation},
			}},
		},
	}
	return doc
}

func writePNG(t testing.TB, doc *gltf.Document, name string, c color.Color) int {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	idx, err := modeler.WriteImage(doc, name, "image/png", &buf)
	if err != nil {
		t.Fatalf("write image: %v", err)
	}
	return idx
}

// Encode serializes doc as GLB or as glTF JSON with embedded buffers.
func Encode(t testing.TB, doc *gltf.Document, binary bool) []byte {
	t.Helper()
	if !binary {
		for _, b := range doc.Buffers {
			if b.URI == "" {
				b.EmbeddedResource()
			}
		}
	}
	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = binary
	if err := enc.Encode(doc); err != nil {
		t.Fatalf("encode document: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes doc under dir and returns the path.
func WriteFile(t testing.TB, dir, name string, doc *gltf.Document) string {
	t.Helper()
	p := filepath.Join(dir, name)
	data := Encode(t, doc, filepath.Ext(name) == ".glb")
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}
