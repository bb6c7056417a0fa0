package exporter

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	_ "image/png"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/Faultbox/modelstage/internal/engine/model"
	"github.com/Faultbox/modelstage/internal/loader"
	"github.com/Faultbox/modelstage/internal/loader/loadertest"
	"github.com/Faultbox/modelstage/internal/scenegraph"
)

func fixture(t *testing.T) (*loader.CorrelatedSceneGraph, *scenegraph.Model) {
	t.Helper()
	graph, err := loader.Correlate(context.Background(), loadertest.Document(t), nil, nil)
	require.NoError(t, err)
	m := scenegraph.NewModel(graph, nil, nil)
	require.NoError(t, m.PrepareForExport(context.Background()))
	return graph, m
}

func decode(t *testing.T, data []byte) *gltf.Document {
	t.Helper()
	doc := new(gltf.Document)
	require.NoError(t, gltf.NewDecoder(bytes.NewReader(data)).Decode(doc))
	return doc
}

func extension(t *testing.T, ext gltf.Extensions) gjson.Result {
	t.Helper()
	v, ok := ext[VariantsExtension]
	require.True(t, ok, "missing %s", VariantsExtension)
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return gjson.ParseBytes(raw)
}

func TestExportBinaryWithVariants(t *testing.T) {
	graph, m := fixture(t)
	e := &GLTFExporter{}

	data, err := e.Export(context.Background(), graph.Scene, Options{Binary: true, Variants: m})
	require.NoError(t, err)
	assert.Equal(t, "glTF", string(data[:4]))

	doc := decode(t, data)
	require.Len(t, doc.Scenes, 1)
	assert.Equal(t, "stage", doc.Scenes[0].Name)
	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, "root", doc.Nodes[0].Name)
	assert.Equal(t, []int{1, 2}, doc.Nodes[0].Children)
	assert.Equal(t, [3]float64{0, 1, 0}, doc.Nodes[1].Translation)
	require.Len(t, doc.Meshes, 2)

	require.Len(t, doc.Materials, 3)
	assert.Equal(t, "red", doc.Materials[0].Name)
	assert.Equal(t, "green", doc.Materials[1].Name)
	assert.Equal(t, "blue", doc.Materials[2].Name)
	assert.Len(t, doc.Textures, 2)
	assert.Len(t, doc.Images, 2)

	root := extension(t, doc.Extensions)
	assert.Equal(t, `["Crimson","Navy"]`, root.Get("variants.#.name").Raw)
	assert.Contains(t, doc.ExtensionsUsed, VariantsExtension)

	quad := doc.Meshes[0].Primitives[0]
	mappings := extension(t, quad.Extensions).Get("mappings")
	require.Len(t, mappings.Array(), 2)
	assert.EqualValues(t, 0, mappings.Get("0.material").Int())
	assert.Equal(t, "[0]", mappings.Get("0.variants").Raw)
	assert.EqualValues(t, 2, mappings.Get("1.material").Int())
	assert.Equal(t, "[1]", mappings.Get("1.variants").Raw)

	_, ok := doc.Meshes[1].Primitives[0].Extensions[VariantsExtension]
	assert.False(t, ok)
}

func TestExportJSONEmbedsBuffers(t *testing.T) {
	graph, _ := fixture(t)
	opts := Options{}
	assert.Equal(t, MimeGLTF, opts.MimeType())

	data, err := (&GLTFExporter{}).Export(context.Background(), graph.Scene, opts)
	require.NoError(t, err)
	assert.Equal(t, byte('{'), bytes.TrimSpace(data)[0])

	doc := decode(t, data)
	require.NotEmpty(t, doc.Buffers)
	assert.True(t, doc.Buffers[0].IsEmbeddedResource())
	_, ok := doc.Extensions[VariantsExtension]
	assert.False(t, ok)
	// Without a variant source only the materials in use are written.
	assert.Len(t, doc.Materials, 2)
}

func TestExportOnlyVisible(t *testing.T) {
	graph, m := fixture(t)
	graph.Scene.FindByName("base").Visible = false

	data, err := (&GLTFExporter{}).Export(context.Background(), graph.Scene, Options{Binary: true, OnlyVisible: true, Variants: m})
	require.NoError(t, err)
	doc := decode(t, data)
	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, []int{1}, doc.Nodes[0].Children)
	for _, mat := range doc.Materials {
		assert.NotEqual(t, "green", mat.Name)
	}

	data, err = (&GLTFExporter{}).Export(context.Background(), graph.Scene, Options{Binary: true})
	require.NoError(t, err)
	assert.Len(t, decode(t, data).Nodes, 3)
}

func TestExportAnimations(t *testing.T) {
	graph, _ := fixture(t)
	graph.Scene.FindByName("quad").Visible = false

	data, err := (&GLTFExporter{}).Export(context.Background(), graph.Scene, Options{
		Binary:      true,
		OnlyVisible: true,
		Animations:  graph.Clips,
	})
	require.NoError(t, err)
	doc := decode(t, data)

	// "bob" targets the hidden quad and is dropped.
	require.Len(t, doc.Animations, 1)
	spin := doc.Animations[0]
	assert.Equal(t, "spin", spin.Name)
	require.Len(t, spin.Channels, 1)
	assert.Equal(t, gltf.TRSRotation, spin.Channels[0].Target.Path)
	assert.Equal(t, 0, *spin.Channels[0].Target.Node)
	out := doc.Accessors[spin.Samplers[0].Output]
	assert.Equal(t, gltf.AccessorVec4, out.Type)
	assert.Equal(t, 2, out.Count)
}

func TestExportEmpty(t *testing.T) {
	root := model.NewObject("empty")
	_, err := (&GLTFExporter{}).Export(context.Background(), root, Options{})
	assert.ErrorIs(t, err, ErrEmptyScene)

	hidden := model.NewObject("hidden")
	hidden.Visible = false
	root.Add(hidden)
	_, err = (&GLTFExporter{}).Export(context.Background(), root, Options{OnlyVisible: true})
	assert.ErrorIs(t, err, ErrEmptyScene)
}

func TestExportCancelled(t *testing.T) {
	graph, _ := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&GLTFExporter{}).Export(ctx, graph.Scene, Options{Binary: true})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExportCapsTextureSize(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{G: 255, A: 255})
		}
	}
	mat := model.NewMaterial("big")
	mat.BaseColorTexture = &model.Texture{Name: "big", Image: img}
	obj := model.NewObject("plane")
	obj.Mesh = &model.Mesh{Primitives: []*model.Primitive{{
		Positions: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Material:  mat,
	}}}
	root := model.NewObject("root")
	root.Add(obj)

	data, err := (&GLTFExporter{}).Export(context.Background(), root, Options{Binary: true, MaxTextureSize: 16})
	require.NoError(t, err)
	doc := decode(t, data)
	require.Len(t, doc.Images, 1)
	assert.Equal(t, "image/png", doc.Images[0].MimeType)

	raw, err := modeler.ReadBufferView(doc, doc.BufferViews[*doc.Images[0].BufferView])
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Width)
	assert.Equal(t, 8, cfg.Height)
}

func TestExportDropsUnresolvedTextures(t *testing.T) {
	mat := model.NewMaterial("pending")
	mat.BaseColorTexture = &model.Texture{Index: 3}
	obj := model.NewObject("plane")
	obj.Mesh = &model.Mesh{Primitives: []*model.Primitive{{
		Positions: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Material:  mat,
	}}}
	root := model.NewObject("root")
	root.Add(obj)

	data, err := (&GLTFExporter{}).Export(context.Background(), root, Options{Binary: true})
	require.NoError(t, err)
	doc := decode(t, data)
	require.Len(t, doc.Materials, 1)
	assert.Nil(t, doc.Materials[0].PBRMetallicRoughness.BaseColorTexture)
	assert.Empty(t, doc.Images)
}

func TestExportSkip(t *testing.T) {
	graph, _ := fixture(t)
	quad := graph.Scene.FindByName("quad")

	data, err := (&GLTFExporter{}).Export(context.Background(), graph.Scene, Options{
		Binary: true,
		Skip:   func(o *model.Object) bool { return o == quad },
	})
	require.NoError(t, err)
	doc := decode(t, data)
	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, "base", doc.Nodes[1].Name)
}

func TestExportVariantMaterialOrderIsStable(t *testing.T) {
	doc := loadertest.Document(t)
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name:                 "yellow",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{BaseColorFactor: &[4]float64{1, 1, 0, 1}},
	})
	yellow := len(doc.Materials) - 1
	doc.Meshes[loadertest.MeshBase].Primitives[0].Extensions = gltf.Extensions{
		VariantsExtension: map[string]any{
			"mappings": []map[string]any{{"material": yellow, "variants": []int{0}}},
		},
	}
	graph, err := loader.Correlate(context.Background(), doc, nil, nil)
	require.NoError(t, err)
	m := scenegraph.NewModel(graph, nil, nil)
	require.NoError(t, m.PrepareForExport(context.Background()))

	opts := Options{Binary: true, Variants: m}
	first, err := (&GLTFExporter{}).Export(context.Background(), graph.Scene, opts)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		again, err := (&GLTFExporter{}).Export(context.Background(), graph.Scene, opts)
		require.NoError(t, err)
		require.Equal(t, first, again, "export %d differs", i)
	}

	out := decode(t, first)
	names := make([]string, len(out.Materials))
	for i, mat := range out.Materials {
		names[i] = mat.Name
	}
	assert.Equal(t, []string{"red", "green", "blue", "yellow"}, names)
	base := extension(t, out.Meshes[1].Primitives[0].Extensions).Get("mappings")
	assert.EqualValues(t, 3, base.Get("0.material").Int())
}
