// Package scenegraph is the typed facade over a loaded glTF document: its
// materials, material variants and the mapping from rendered geometry back
// to document elements.
package scenegraph

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/modelstage/internal/engine/model"
	"github.com/Faultbox/modelstage/internal/loader"
	"github.com/Faultbox/modelstage/pkg/gltftree"
	"github.com/Faultbox/modelstage/pkg/math"
)

// ErrUnknownVariant is logged when a variant name is not in the document.
var ErrUnknownVariant = errors.New("unknown variant")

// Model is built once per load. It is not safe for concurrent use.
type Model struct {
	graph    *loader.CorrelatedSceneGraph
	log      *zap.Logger
	onUpdate func()

	materials []*Material
	variants  []string

	// defaults and mappings are keyed by document primitive.
	defaults map[loader.PrimitiveRef]int // -1 when the primitive has no material
	mappings map[loader.PrimitiveRef]map[int]int
	nodeMesh map[int]int

	current  *string
	original []byte
}

// NewModel indexes graph's document with one sparse pass over all scenes.
// onUpdate, if set, runs after every material or variant change.
func NewModel(graph *loader.CorrelatedSceneGraph, log *zap.Logger, onUpdate func()) *Model {
	if log == nil {
		log = zap.NewNop()
	}
	doc := graph.Document
	m := &Model{
		graph:    graph,
		log:      log,
		onUpdate: onUpdate,
		variants: variantNames(doc),
		defaults: make(map[loader.PrimitiveRef]int),
		mappings: make(map[loader.PrimitiveRef]map[int]int),
		nodeMesh: make(map[int]int),
	}
	if raw, err := json.Marshal(doc); err == nil {
		m.original = raw
	} else {
		log.Warn("cannot snapshot document", zap.Error(err))
	}

	m.materials = make([]*Material, len(doc.Materials))
	for i, src := range doc.Materials {
		if src == nil {
			continue
		}
		m.materials[i] = &Material{index: i, doc: src, engine: graph.MaterialFor(i), onUpdate: m.changed}
	}

	gltftree.Visit(doc, gltftree.Callbacks{
		Node: func(node *gltf.Node, index int, _ gltftree.Hierarchy) {
			if node.Mesh != nil {
				m.nodeMesh[index] = *node.Mesh
			}
		},
		Mesh: func(mesh *gltf.Mesh, index int, _ gltftree.Hierarchy) {
			for pi, p := range mesh.Primitives {
				if p == nil {
					continue
				}
				ref := loader.PrimitiveRef{Mesh: index, Primitive: pi}
				m.defaults[ref] = -1
				if p.Material != nil {
					m.defaults[ref] = *p.Material
				}
				if mapping := primitiveMappings(p, len(m.variants), len(doc.Materials)); mapping != nil {
					m.mappings[ref] = mapping
				}
			}
		},
	}, gltftree.Options{AllScenes: true, Sparse: true})

	return m
}

func (m *Model) changed() {
	if m.onUpdate != nil {
		m.onUpdate()
	}
}

// Graph returns the correlated scene graph the model was built from.
func (m *Model) Graph() *loader.CorrelatedSceneGraph {
	return m.graph
}

// Materials returns every document material in index order.
func (m *Model) Materials() []*Material {
	out := make([]*Material, 0, len(m.materials))
	for _, mat := range m.materials {
		if mat != nil {
			out = append(out, mat)
		}
	}
	return out
}

// Material returns the material at a document index, or nil.
func (m *Model) Material(index int) *Material {
	if index < 0 || index >= len(m.materials) {
		return nil
	}
	return m.materials[index]
}

// MaterialByName returns the first material with the given name, or nil.
func (m *Model) MaterialByName(name string) *Material {
	for _, mat := range m.materials {
		if mat != nil && mat.Name() == name {
			return mat
		}
	}
	return nil
}

// AvailableVariants returns the variant names in document order.
func (m *Model) AvailableVariants() []string {
	return append([]string(nil), m.variants...)
}

// CurrentVariant returns the active variant, or nil for the defaults.
func (m *Model) CurrentVariant() *string {
	return m.current
}

func (m *Model) variantIndex(name string) int {
	for i, v := range m.variants {
		if v == name {
			return i
		}
	}
	return -1
}

// SwitchVariant applies a variant to every primitive that maps it; other
// primitives keep their current material. A nil name restores all
// defaults. An unknown name is logged and changes nothing.
//
// Textures of the incoming materials are resolved before any primitive is
// changed, so a cancelled switch leaves the previous state intact.
func (m *Model) SwitchVariant(ctx context.Context, name *string) error {
	vi := -1
	if name != nil {
		if vi = m.variantIndex(*name); vi < 0 {
			m.log.Warn("variant not found",
				zap.String("variant", *name), zap.Error(ErrUnknownVariant))
			return nil
		}
	}

	updates := make(map[*model.Primitive]*model.Material)
	gltftree.Visit(m.graph.Document, gltftree.Callbacks{
		Mesh: func(mesh *gltf.Mesh, index int, _ gltftree.Hierarchy) {
			for pi := range mesh.Primitives {
				ref := loader.PrimitiveRef{Mesh: index, Primitive: pi}
				prim := m.graph.Primitive(index, pi)
				if prim == nil {
					continue
				}
				target := m.defaults[ref]
				if vi >= 0 {
					mi, ok := m.mappings[ref][vi]
					if !ok {
						continue
					}
					target = mi
				}
				updates[prim] = m.engineMaterial(target)
			}
		},
	}, gltftree.Options{AllScenes: true, Sparse: true})

	for _, mat := range updates {
		if err := m.graph.ResolveTextures(ctx, mat); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.log.Warn("variant texture unavailable", zap.String("material", mat.Name), zap.Error(err))
		}
	}

	for prim, mat := range updates {
		prim.Material = mat
	}
	if name == nil {
		m.current = nil
	} else {
		v := *name
		m.current = &v
	}
	m.changed()
	return nil
}

func (m *Model) engineMaterial(index int) *model.Material {
	if mat := m.graph.MaterialFor(index); mat != nil {
		return mat
	}
	return m.graph.DefaultMaterial()
}

// VariantMaterials returns, for an engine primitive, the material each
// variant index maps it to.
func (m *Model) VariantMaterials(prim *model.Primitive) map[int]*model.Material {
	ref, ok := m.graph.PrimitiveRef(prim)
	if !ok {
		return nil
	}
	mapping := m.mappings[ref]
	if len(mapping) == 0 {
		return nil
	}
	out := make(map[int]*model.Material, len(mapping))
	for vi, mi := range mapping {
		out[vi] = m.engineMaterial(mi)
	}
	return out
}

// MaterialFromPoint returns the material of the nearest primitive hit by a
// world-space ray, or nil when nothing with a document material is hit.
func (m *Model) MaterialFromPoint(ray math.Ray) *Material {
	root := m.graph.Scene
	if p := root.Parent(); p != nil {
		ray = ray.Transform(p.WorldMatrix().Inv())
	}
	hits := model.Raycast(root, ray)
	if len(hits) == 0 {
		return nil
	}
	return m.Material(m.graph.MaterialIndex(hits[0].Primitive.Material))
}

// MeshForNode returns the document mesh a node references.
func (m *Model) MeshForNode(node int) (int, bool) {
	mesh, ok := m.nodeMesh[node]
	return mesh, ok
}

// PrepareForExport resolves the textures of every material a variant may
// select, so a serializer never sees a placeholder.
func (m *Model) PrepareForExport(ctx context.Context) error {
	pending := make(map[int]struct{})
	for _, mapping := range m.mappings {
		for _, mi := range mapping {
			pending[mi] = struct{}{}
		}
	}
	for _, mi := range m.defaults {
		if mi >= 0 {
			pending[mi] = struct{}{}
		}
	}
	for mi := range pending {
		if err := m.graph.ResolveTextures(ctx, m.graph.MaterialFor(mi)); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.log.Warn("texture unavailable for export", zap.Int("material", mi), zap.Error(err))
		}
	}
	return nil
}

// OriginalJSON returns the document as it was when the model was built.
func (m *Model) OriginalJSON() []byte {
	return append([]byte(nil), m.original...)
}
