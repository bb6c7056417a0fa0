package gltftree

import (
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sharedDoc builds a document where two nodes reference the same mesh and
// the mesh's two primitives share a material.
//
//	scene 0: node 0 -> children [1, 2]
//	node 1: mesh 0
//	node 2: mesh 0, children [3]
//	node 3: mesh 1
func sharedDoc() *gltf.Document {
	return &gltf.Document{
		Scene: gltf.Index(0),
		Scenes: []*gltf.Scene{
			{Name: "main", Nodes: []int{0}},
			{Name: "alt", Nodes: []int{3}},
		},
		Nodes: []*gltf.Node{
			{Name: "root", Children: []int{1, 2}},
			{Name: "left", Mesh: gltf.Index(0)},
			{Name: "right", Mesh: gltf.Index(0), Children: []int{3}},
			{Name: "leaf", Mesh: gltf.Index(1)},
		},
		Meshes: []*gltf.Mesh{
			{Name: "body", Primitives: []*gltf.Primitive{
				{Material: gltf.Index(0)},
				{Material: gltf.Index(0)},
			}},
			{Name: "trim", Primitives: []*gltf.Primitive{
				{Material: gltf.Index(1)},
			}},
		},
		Materials: []*gltf.Material{
			{Name: "paint"},
			{Name: "chrome"},
		},
	}
}

// recorder captures the visit order as "kind:name" strings.
type recorder struct {
	events []string
	depths []int
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		Scene: func(s *gltf.Scene, _ int, h Hierarchy) {
			r.events = append(r.events, "scene:"+s.Name)
			r.depths = append(r.depths, len(h))
		},
		Node: func(n *gltf.Node, _ int, h Hierarchy) {
			r.events = append(r.events, "node:"+n.Name)
			r.depths = append(r.depths, len(h))
		},
		Mesh: func(m *gltf.Mesh, _ int, h Hierarchy) {
			r.events = append(r.events, "mesh:"+m.Name)
			r.depths = append(r.depths, len(h))
		},
		Material: func(m *gltf.Material, _ int, h Hierarchy) {
			r.events = append(r.events, "material:"+m.Name)
			r.depths = append(r.depths, len(h))
		},
	}
}

func TestVisitPreOrder(t *testing.T) {
	rec := &recorder{}
	Visit(sharedDoc(), rec.callbacks(), Options{})

	assert.Equal(t, []string{
		"scene:main",
		"node:root",
		"node:left",
		"mesh:body",
		"material:paint",
		"material:paint",
		"node:right",
		"mesh:body",
		"material:paint",
		"material:paint",
		"node:leaf",
		"mesh:trim",
		"material:chrome",
	}, rec.events)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 5, 3, 4, 5, 5, 4, 5, 6}, rec.depths)
}

func TestVisitSparse(t *testing.T) {
	rec := &recorder{}
	Visit(sharedDoc(), rec.callbacks(), Options{Sparse: true})

	assert.Equal(t, []string{
		"scene:main",
		"node:root",
		"node:left",
		"mesh:body",
		"material:paint",
		"node:right",
		"node:leaf",
		"mesh:trim",
		"material:chrome",
	}, rec.events)
}

func TestVisitNodeCounts(t *testing.T) {
	// Two scenes reference node 3, so across all scenes it has two references.
	doc := sharedDoc()

	count := func(opts Options) map[int]int {
		got := make(map[int]int)
		Visit(doc, Callbacks{Node: func(_ *gltf.Node, i int, _ Hierarchy) { got[i]++ }}, opts)
		return got
	}

	dense := count(Options{AllScenes: true})
	assert.Equal(t, map[int]int{0: 1, 1: 1, 2: 1, 3: 2}, dense)

	sparse := count(Options{AllScenes: true, Sparse: true})
	assert.Equal(t, map[int]int{0: 1, 1: 1, 2: 1, 3: 1}, sparse)
}

func TestVisitNoDefaultScene(t *testing.T) {
	doc := sharedDoc()
	doc.Scene = nil

	calls := 0
	counter := Callbacks{
		Scene:    func(*gltf.Scene, int, Hierarchy) { calls++ },
		Node:     func(*gltf.Node, int, Hierarchy) { calls++ },
		Mesh:     func(*gltf.Mesh, int, Hierarchy) { calls++ },
		Material: func(*gltf.Material, int, Hierarchy) { calls++ },
	}
	Visit(doc, counter, Options{})
	assert.Zero(t, calls)

	Visit(doc, counter, Options{AllScenes: true})
	assert.NotZero(t, calls)
}

func TestVisitSkipsMissingReferences(t *testing.T) {
	doc := &gltf.Document{
		Scene:  gltf.Index(0),
		Scenes: []*gltf.Scene{{Nodes: []int{0, 7}}},
		Nodes: []*gltf.Node{
			{Name: "a", Mesh: gltf.Index(4), Children: []int{1, 9}},
			nil,
		},
		Meshes: []*gltf.Mesh{{Primitives: []*gltf.Primitive{{Material: gltf.Index(3)}, nil}}},
	}

	rec := &recorder{}
	require.NotPanics(t, func() { Visit(doc, rec.callbacks(), Options{}) })
	assert.Equal(t, []string{"scene:", "node:a"}, rec.events)

	doc.Scene = gltf.Index(5)
	rec = &recorder{}
	Visit(doc, rec.callbacks(), Options{})
	assert.Empty(t, rec.events)

	require.NotPanics(t, func() { Visit(nil, rec.callbacks(), Options{}) })
}

func TestVisitNodeCycle(t *testing.T) {
	doc := &gltf.Document{
		Scene:  gltf.Index(0),
		Scenes: []*gltf.Scene{{Nodes: []int{0}}},
		Nodes: []*gltf.Node{
			{Name: "a", Children: []int{1}},
			{Name: "b", Children: []int{0}},
		},
	}
	rec := &recorder{}
	Visit(doc, rec.callbacks(), Options{})
	assert.Equal(t, []string{"scene:", "node:a", "node:b"}, rec.events)
}

func TestHierarchyHelpers(t *testing.T) {
	var parents []string
	var nearest []string
	Visit(sharedDoc(), Callbacks{
		Material: func(_ *gltf.Material, _ int, h Hierarchy) {
			parents = append(parents, h.Parent().(*gltf.Mesh).Name)
			nearest = append(nearest, h.NearestNode().Name)
		},
		Scene: func(_ *gltf.Scene, _ int, h Hierarchy) {
			assert.Nil(t, h.Parent())
			assert.Nil(t, h.NearestNode())
		},
	}, Options{Sparse: true})

	assert.Equal(t, []string{"body", "trim"}, parents)
	assert.Equal(t, []string{"left", "leaf"}, nearest)
}

// countingVisitor implements Visitor directly.
type countingVisitor struct{ counts map[string]int }

func (c *countingVisitor) VisitScene(*gltf.Scene, int, Hierarchy)       { c.counts["scene"]++ }
func (c *countingVisitor) VisitNode(*gltf.Node, int, Hierarchy)         { c.counts["node"]++ }
func (c *countingVisitor) VisitMesh(*gltf.Mesh, int, Hierarchy)         { c.counts["mesh"]++ }
func (c *countingVisitor) VisitMaterial(*gltf.Material, int, Hierarchy) { c.counts["material"]++ }

func TestVisitInterface(t *testing.T) {
	v := &countingVisitor{counts: make(map[string]int)}
	Visit(sharedDoc(), v, Options{AllScenes: true, Sparse: true})
	assert.Equal(t, map[string]int{"scene": 2, "node": 4, "mesh": 2, "material": 2}, v.counts)
}
