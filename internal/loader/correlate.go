package loader

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/modelstage/internal/engine/animation"
	"github.com/Faultbox/modelstage/internal/engine/model"
	"github.com/Faultbox/modelstage/pkg/gltftree"
)

// PrimitiveRef locates a primitive in the source document.
type PrimitiveRef struct {
	Mesh      int
	Primitive int
}

// CorrelatedSceneGraph is a loaded model: the source document, the engine
// object graph built from it, and the mapping between the two.
//
// A node referenced from several places yields one object per reference.
// Geometry and materials are shared between those objects.
type CorrelatedSceneGraph struct {
	URL      string
	Document *gltf.Document
	Scene    *model.Object
	Clips    []*animation.Clip

	fsys fs.FS
	log  *zap.Logger

	nodeObjects map[int][]*model.Object
	meshes      map[int]*model.Mesh
	primRefs    map[*model.Primitive]PrimitiveRef
	prims       map[PrimitiveRef]*model.Primitive
	materials   map[int]*model.Material
	defaultMat  *model.Material
	images      map[int]*decodedImage
}

// Correlate builds the object graph for doc's default scene, or its first
// scene when none is designated. fsys resolves relative image URIs and may
// be nil. The initial materials' textures are resolved before returning.
func Correlate(ctx context.Context, doc *gltf.Document, fsys fs.FS, log *zap.Logger) (*CorrelatedSceneGraph, error) {
	if log == nil {
		log = zap.NewNop()
	}
	g := &CorrelatedSceneGraph{
		Document:    doc,
		Scene:       model.NewObject("scene"),
		fsys:        fsys,
		log:         log,
		nodeObjects: make(map[int][]*model.Object),
		meshes:      make(map[int]*model.Mesh),
		primRefs:    make(map[*model.Primitive]PrimitiveRef),
		prims:       make(map[PrimitiveRef]*model.Primitive),
		materials:   make(map[int]*model.Material),
		images:      make(map[int]*decodedImage),
	}

	view := *doc
	if view.Scene == nil && len(view.Scenes) > 0 {
		view.Scene = gltf.Index(0)
	}

	// objects[d] is the object created for the node at hierarchy depth d.
	var objects []*model.Object
	at := func(h gltftree.Hierarchy) *model.Object {
		for i := len(h) - 2; i >= 0; i-- {
			if _, ok := h[i].(*gltf.Node); ok {
				return objects[i]
			}
		}
		return g.Scene
	}

	gltftree.Visit(&view, gltftree.Callbacks{
		Scene: func(scene *gltf.Scene, _ int, _ gltftree.Hierarchy) {
			if scene.Name != "" {
				g.Scene.Name = scene.Name
			}
		},
		Node: func(node *gltf.Node, index int, h gltftree.Hierarchy) {
			obj := objectFromNode(node, index)
			at(h).Add(obj)
			for len(objects) < len(h) {
				objects = append(objects, nil)
			}
			objects[len(h)-1] = obj
			g.nodeObjects[index] = append(g.nodeObjects[index], obj)
		},
		Mesh: func(_ *gltf.Mesh, index int, h gltftree.Hierarchy) {
			at(h).Mesh = g.mesh(index)
		},
	}, gltftree.Options{})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[*model.Material]bool)
	for prim := range g.primRefs {
		m := prim.Material
		if seen[m] {
			continue
		}
		seen[m] = true
		if err := g.ResolveTextures(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("texture unavailable", zap.String("material", m.Name), zap.Error(err))
		}
	}

	g.Clips = g.buildClips()
	return g, nil
}

// Objects returns the objects created for document node index.
func (g *CorrelatedSceneGraph) Objects(node int) []*model.Object {
	return g.nodeObjects[node]
}

// Primitive returns the engine primitive for a document primitive, or nil
// if it was skipped or never instantiated.
func (g *CorrelatedSceneGraph) Primitive(mesh, primitive int) *model.Primitive {
	return g.prims[PrimitiveRef{mesh, primitive}]
}

// PrimitiveRef returns the document location of an engine primitive.
func (g *CorrelatedSceneGraph) PrimitiveRef(p *model.Primitive) (PrimitiveRef, bool) {
	ref, ok := g.primRefs[p]
	return ref, ok
}

// Primitives returns every engine primitive with its document location.
func (g *CorrelatedSceneGraph) Primitives() map[PrimitiveRef]*model.Primitive {
	return g.prims
}

// Dispose releases the object graph and decoded images. The graph must not
// be used afterwards.
func (g *CorrelatedSceneGraph) Dispose() {
	g.Scene.Clear()
	for _, m := range g.materials {
		for _, t := range m.Textures() {
			t.Image = nil
			t.Data = nil
		}
	}
	g.nodeObjects = nil
	g.meshes = nil
	g.primRefs = nil
	g.prims = nil
	g.materials = nil
	g.images = nil
	g.Clips = nil
}

var identityMatrix = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// objectFromNode creates an object with the node's transform. A matrix is
// decomposed into translation, rotation and scale.
func objectFromNode(n *gltf.Node, index int) *model.Object {
	name := n.Name
	if name == "" {
		name = fmt.Sprintf("node_%d", index)
	}
	obj := model.NewObject(name)

	if m := n.MatrixOrDefault(); m != identityMatrix {
		mat := mgl64.Mat4(m)
		obj.Position = mat.Col(3).Vec3()
		sx := mat.Col(0).Vec3().Len()
		sy := mat.Col(1).Vec3().Len()
		sz := mat.Col(2).Vec3().Len()
		if mat.Det() < 0 {
			sx = -sx
		}
		obj.Scale = mgl64.Vec3{sx, sy, sz}
		if sx == 0 || sy == 0 || sz == 0 {
			return obj
		}
		rot := mgl64.Mat4FromCols(
			mat.Col(0).Mul(1/sx),
			mat.Col(1).Mul(1/sy),
			mat.Col(2).Mul(1/sz),
			mgl64.Vec4{0, 0, 0, 1},
		)
		obj.Rotation = mgl64.Mat4ToQuat(rot).Normalize()
		return obj
	}

	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	obj.Position = mgl64.Vec3(t)
	obj.Rotation = mgl64.Quat{W: r[3], V: mgl64.Vec3{r[0], r[1], r[2]}}
	obj.Scale = mgl64.Vec3(s)
	return obj
}
