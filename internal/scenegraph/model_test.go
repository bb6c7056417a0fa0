package scenegraph

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/modelstage/internal/engine/model"
	"github.com/Faultbox/modelstage/internal/loader"
	"github.com/Faultbox/modelstage/internal/loader/loadertest"
	"github.com/Faultbox/modelstage/pkg/math"
)

func newModel(t *testing.T, log *zap.Logger) (*Model, *loader.CorrelatedSceneGraph, *int) {
	t.Helper()
	graph, err := loader.Correlate(context.Background(), loadertest.Document(t), nil, nil)
	require.NoError(t, err)
	updates := new(int)
	return NewModel(graph, log, func() { *updates++ }), graph, updates
}

func quadPrimitive(g *loader.CorrelatedSceneGraph) *model.Primitive {
	return g.Primitive(loadertest.MeshQuad, 0)
}

func strp(s string) *string { return &s }

func TestMaterialsIndexed(t *testing.T) {
	m, _, _ := newModel(t, nil)
	mats := m.Materials()
	require.Len(t, mats, 3)
	for i, mat := range mats {
		assert.Equal(t, i, mat.Index())
	}
	assert.Equal(t, "blue", m.Material(loadertest.MaterialBlue).Name())
	assert.Nil(t, m.Material(7))
	assert.Same(t, mats[2], m.MaterialByName("green"))
	assert.Nil(t, m.MaterialByName("purple"))

	mesh, ok := m.MeshForNode(loadertest.NodeQuad)
	require.True(t, ok)
	assert.Equal(t, loadertest.MeshQuad, mesh)
	_, ok = m.MeshForNode(loadertest.NodeRoot)
	assert.False(t, ok)
}

func TestAvailableVariants(t *testing.T) {
	m, _, _ := newModel(t, nil)
	assert.Equal(t, loadertest.Variants, m.AvailableVariants())

	// Callers cannot mutate the model's list.
	v := m.AvailableVariants()
	v[0] = "changed"
	assert.Equal(t, "Crimson", m.AvailableVariants()[0])
}

func TestVariantRoundTrip(t *testing.T) {
	m, g, updates := newModel(t, nil)
	quad := quadPrimitive(g)
	base := g.Primitive(loadertest.MeshBase, 0)
	before := map[*model.Primitive]*model.Material{quad: quad.Material, base: base.Material}

	require.NoError(t, m.SwitchVariant(context.Background(), strp("Navy")))
	assert.Equal(t, "blue", quad.Material.Name)
	assert.True(t, quad.Material.BaseColorTexture.Resolved(), "variant textures resolve on switch")
	assert.Same(t, before[base], base.Material, "unmapped primitives keep their default")
	assert.Equal(t, "Navy", *m.CurrentVariant())

	require.NoError(t, m.SwitchVariant(context.Background(), nil))
	for prim, mat := range before {
		assert.Same(t, mat, prim.Material)
	}
	assert.Nil(t, m.CurrentVariant())
	assert.Equal(t, 2, *updates)
}

func TestSwitchBetweenVariants(t *testing.T) {
	m, g, _ := newModel(t, nil)
	require.NoError(t, m.SwitchVariant(context.Background(), strp("Navy")))
	require.NoError(t, m.SwitchVariant(context.Background(), strp("Crimson")))
	assert.Equal(t, "red", quadPrimitive(g).Material.Name)
}

func TestUnmappedPrimitiveKeepsMaterial(t *testing.T) {
	doc := loadertest.Document(t)
	doc.Meshes[loadertest.MeshQuad].Primitives[0].Extensions = gltf.Extensions{
		loadertest.VariantsExtension: map[string]any{
			"mappings": []map[string]any{
				{"material": loadertest.MaterialBlue, "variants": []int{1}},
			},
		},
	}
	graph, err := loader.Correlate(context.Background(), doc, nil, nil)
	require.NoError(t, err)
	m := NewModel(graph, nil, nil)
	quad := quadPrimitive(graph)

	require.NoError(t, m.SwitchVariant(context.Background(), strp("Navy")))
	assert.Equal(t, "blue", quad.Material.Name)

	// Crimson has no entry for the quad, so blue stays.
	require.NoError(t, m.SwitchVariant(context.Background(), strp("Crimson")))
	assert.Equal(t, "blue", quad.Material.Name)
	require.NotNil(t, m.CurrentVariant())
	assert.Equal(t, "Crimson", *m.CurrentVariant())

	require.NoError(t, m.SwitchVariant(context.Background(), nil))
	assert.Equal(t, "red", quad.Material.Name)
}

func TestUnknownVariantIsLoggedOnly(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	m, g, updates := newModel(t, zap.New(core))
	before := quadPrimitive(g).Material

	require.NoError(t, m.SwitchVariant(context.Background(), strp("Chartreuse")))
	assert.Same(t, before, quadPrimitive(g).Material)
	assert.Zero(t, *updates)
	require.Equal(t, 1, logs.FilterMessage("variant not found").Len())
}

func TestSwitchVariantCancelled(t *testing.T) {
	m, g, updates := newModel(t, nil)
	before := quadPrimitive(g).Material

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.SwitchVariant(ctx, strp("Navy"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Same(t, before, quadPrimitive(g).Material)
	assert.Zero(t, *updates)
}

func TestMaterialSettersWriteBoth(t *testing.T) {
	m, g, updates := newModel(t, nil)
	green := m.Material(loadertest.MaterialGreen)

	green.SetBaseColorFactor([4]float64{0.1, 0.2, 0.3, 1})
	green.SetMetallicFactor(0.25)
	green.SetRoughnessFactor(0.75)
	green.SetEmissiveFactor([3]float64{1, 1, 0})
	green.SetAlphaMode(model.AlphaBlend)
	green.SetAlphaCutoff(0.3)
	green.SetDoubleSided(true)
	assert.Equal(t, 7, *updates)

	doc := g.Document.Materials[loadertest.MaterialGreen]
	assert.Equal(t, [4]float64{0.1, 0.2, 0.3, 1}, *doc.PBRMetallicRoughness.BaseColorFactor)
	assert.Equal(t, 0.25, *doc.PBRMetallicRoughness.MetallicFactor)
	assert.Equal(t, 0.75, *doc.PBRMetallicRoughness.RoughnessFactor)
	assert.Equal(t, [3]float64{1, 1, 0}, doc.EmissiveFactor)
	assert.Equal(t, gltf.AlphaBlend, doc.AlphaMode)
	assert.Equal(t, 0.3, *doc.AlphaCutoff)
	assert.True(t, doc.DoubleSided)

	engine := g.Primitive(loadertest.MeshBase, 0).Material
	assert.Same(t, green.Engine(), engine)
	assert.Equal(t, [4]float64{0.1, 0.2, 0.3, 1}, engine.BaseColorFactor)
	assert.Equal(t, 0.25, green.MetallicFactor())
	assert.Equal(t, 0.75, green.RoughnessFactor())
	assert.Equal(t, model.AlphaBlend, green.AlphaMode())
	assert.True(t, green.DoubleSided())

	green.SetAlphaMode("bogus")
	assert.Equal(t, model.AlphaOpaque, green.AlphaMode())
}

func TestMaterialFromPoint(t *testing.T) {
	m, g, _ := newModel(t, nil)

	// The quad sits at y=1 facing +Z; its center is (0, 1, 0).
	hit := m.MaterialFromPoint(math.NewRay(mgl64.Vec3{0.3, 1.2, 5}, mgl64.Vec3{0, 0, -1}))
	require.NotNil(t, hit)
	assert.Equal(t, "red", hit.Name())

	miss := m.MaterialFromPoint(math.NewRay(mgl64.Vec3{30, 1, 5}, mgl64.Vec3{0, 0, -1}))
	assert.Nil(t, miss)

	// Rays are world space: moving the container moves the model.
	container := model.NewObject("container")
	container.Position = mgl64.Vec3{10, 0, 0}
	container.Add(g.Scene)
	hit = m.MaterialFromPoint(math.NewRay(mgl64.Vec3{10.3, 1.2, 5}, mgl64.Vec3{0, 0, -1}))
	require.NotNil(t, hit)
	assert.Equal(t, "red", hit.Name())
}

func TestPrepareForExportResolvesVariantTextures(t *testing.T) {
	m, g, _ := newModel(t, nil)
	blue := g.MaterialFor(loadertest.MaterialBlue)
	require.False(t, blue.BaseColorTexture.Resolved())

	require.NoError(t, m.PrepareForExport(context.Background()))
	assert.True(t, blue.BaseColorTexture.Resolved())

	vm := m.VariantMaterials(quadPrimitive(g))
	require.Len(t, vm, 2)
	assert.Same(t, blue, vm[1])
	assert.Nil(t, m.VariantMaterials(g.Primitive(loadertest.MeshBase, 0)))
}

func TestOriginalJSONIsSnapshot(t *testing.T) {
	m, _, _ := newModel(t, nil)
	m.Material(0).SetBaseColorFactor([4]float64{0, 0, 0, 1})

	var doc gltf.Document
	require.NoError(t, json.Unmarshal(m.OriginalJSON(), &doc))
	assert.Equal(t, [4]float64{1, 0, 0, 1}, *doc.Materials[0].PBRMetallicRoughness.BaseColorFactor)
}

func TestPrimitiveMappingsValidation(t *testing.T) {
	p := &gltf.Primitive{Extensions: gltf.Extensions{
		VariantsExtension: json.RawMessage(`{"mappings":[
			{"material":1,"variants":[0,5]},
			{"material":9,"variants":[1]},
			{"variants":[1]}
		]}`),
	}}
	assert.Equal(t, map[int]int{0: 1}, primitiveMappings(p, 2, 3))
	assert.Nil(t, primitiveMappings(&gltf.Primitive{}, 2, 3))
}
