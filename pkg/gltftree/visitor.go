// Package gltftree walks a glTF document's scene graph in a deterministic
// pre-order, depth-first order.
//
// The order is scene, then each of its root nodes; for a node: the node
// itself, its mesh, the mesh's primitive materials, then the node's children.
// The traversal order follows the hierarchy, not document indices.
package gltftree

import (
	"github.com/qmuntal/gltf"
)

// Options controls which parts of a document are visited.
type Options struct {
	// AllScenes visits every scene instead of only the document's default
	// scene. Without it, a document with no default scene visits nothing.
	AllScenes bool
	// Sparse visits each element at most once per Visit call, even when it
	// is referenced from several places. A skipped element is not descended into.
	Sparse bool
}

// Hierarchy is the stack of elements currently being visited, root first.
// The last element is the one passed to the callback. The slice is reused
// and popped as soon as the callback returns; copy it to retain it.
type Hierarchy []any

// Parent returns the element directly above the current one, or nil.
func (h Hierarchy) Parent() any {
	if len(h) < 2 {
		return nil
	}
	return h[len(h)-2]
}

// NearestNode returns the closest ancestor node of the current element,
// excluding the element itself.
func (h Hierarchy) NearestNode() *gltf.Node {
	for i := len(h) - 2; i >= 0; i-- {
		if n, ok := h[i].(*gltf.Node); ok {
			return n
		}
	}
	return nil
}

// Visitor receives one call per visited element kind.
type Visitor interface {
	VisitScene(scene *gltf.Scene, index int, hierarchy Hierarchy)
	VisitNode(node *gltf.Node, index int, hierarchy Hierarchy)
	VisitMesh(mesh *gltf.Mesh, index int, hierarchy Hierarchy)
	VisitMaterial(material *gltf.Material, index int, hierarchy Hierarchy)
}

// Callbacks adapts optional per-kind functions to Visitor. A nil slot
// skips the callback but the traversal still descends.
type Callbacks struct {
	Scene    func(scene *gltf.Scene, index int, hierarchy Hierarchy)
	Node     func(node *gltf.Node, index int, hierarchy Hierarchy)
	Mesh     func(mesh *gltf.Mesh, index int, hierarchy Hierarchy)
	Material func(material *gltf.Material, index int, hierarchy Hierarchy)
}

var _ Visitor = Callbacks{}

func (c Callbacks) VisitScene(scene *gltf.Scene, index int, h Hierarchy) {
	if c.Scene != nil {
		c.Scene(scene, index, h)
	}
}

func (c Callbacks) VisitNode(node *gltf.Node, index int, h Hierarchy) {
	if c.Node != nil {
		c.Node(node, index, h)
	}
}

func (c Callbacks) VisitMesh(mesh *gltf.Mesh, index int, h Hierarchy) {
	if c.Mesh != nil {
		c.Mesh(mesh, index, h)
	}
}

func (c Callbacks) VisitMaterial(material *gltf.Material, index int, h Hierarchy) {
	if c.Material != nil {
		c.Material(material, index, h)
	}
}

// state is the per-call traversal state.
type state struct {
	doc       *gltf.Document
	visitor   Visitor
	sparse    bool
	hierarchy Hierarchy
	visited   map[any]struct{}
}

// Visit walks doc, calling v for every reachable element.
// References past the end of their array, or to nil entries, are skipped.
func Visit(doc *gltf.Document, v Visitor, opts Options) {
	if doc == nil || v == nil {
		return
	}

	var scenes []int
	if opts.AllScenes {
		for i := range doc.Scenes {
			scenes = append(scenes, i)
		}
	} else if doc.Scene != nil {
		scenes = append(scenes, *doc.Scene)
	}

	s := &state{doc: doc, visitor: v, sparse: opts.Sparse}
	if opts.Sparse {
		s.visited = make(map[any]struct{})
	}
	for _, idx := range scenes {
		s.visitScene(idx)
	}
}

// enter pushes element onto the hierarchy unless it must be skipped.
// It returns false when the element was already seen in sparse mode.
func (s *state) enter(element any) bool {
	if s.sparse {
		if _, seen := s.visited[element]; seen {
			return false
		}
		s.visited[element] = struct{}{}
	}
	s.hierarchy = append(s.hierarchy, element)
	return true
}

// onStack reports whether element is one of its own ancestors, which
// only happens in a malformed document with a node cycle.
func (s *state) onStack(element any) bool {
	for _, e := range s.hierarchy {
		if e == element {
			return true
		}
	}
	return false
}

func (s *state) leave() {
	s.hierarchy[len(s.hierarchy)-1] = nil
	s.hierarchy = s.hierarchy[:len(s.hierarchy)-1]
}

func (s *state) visitScene(index int) {
	if index < 0 || index >= len(s.doc.Scenes) {
		return
	}
	scene := s.doc.Scenes[index]
	if scene == nil || !s.enter(scene) {
		return
	}
	defer s.leave()

	s.visitor.VisitScene(scene, index, s.hierarchy)
	for _, n := range scene.Nodes {
		s.visitNode(n)
	}
}

func (s *state) visitNode(index int) {
	if index < 0 || index >= len(s.doc.Nodes) {
		return
	}
	node := s.doc.Nodes[index]
	if node == nil || s.onStack(node) || !s.enter(node) {
		return
	}
	defer s.leave()

	s.visitor.VisitNode(node, index, s.hierarchy)
	if node.Mesh != nil {
		s.visitMesh(*node.Mesh)
	}
	for _, child := range node.Children {
		s.visitNode(child)
	}
}

func (s *state) visitMesh(index int) {
	if index < 0 || index >= len(s.doc.Meshes) {
		return
	}
	mesh := s.doc.Meshes[index]
	if mesh == nil || !s.enter(mesh) {
		return
	}
	defer s.leave()

	s.visitor.VisitMesh(mesh, index, s.hierarchy)
	for _, prim := range mesh.Primitives {
		if prim != nil && prim.Material != nil {
			s.visitMaterial(*prim.Material)
		}
	}
}

func (s *state) visitMaterial(index int) {
	if index < 0 || index >= len(s.doc.Materials) {
		return
	}
	material := s.doc.Materials[index]
	if material == nil || !s.enter(material) {
		return
	}
	defer s.leave()

	s.visitor.VisitMaterial(material, index, s.hierarchy)
}
