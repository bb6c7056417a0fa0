package loader

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/modelstage/internal/engine/model"
)

var errNoPositions = errors.New("primitive has no POSITION attribute")

// mesh returns the shared engine mesh for a document mesh, building it on
// first use. Primitives that cannot be read are logged and skipped.
func (g *CorrelatedSceneGraph) mesh(index int) *model.Mesh {
	if m, ok := g.meshes[index]; ok {
		return m
	}
	src := g.Document.Meshes[index]
	m := &model.Mesh{Name: src.Name}
	for pi, p := range src.Primitives {
		if p == nil {
			continue
		}
		prim, err := g.primitive(p)
		if err != nil {
			g.log.Warn("skipping primitive",
				zap.Int("mesh", index), zap.Int("primitive", pi), zap.Error(err))
			continue
		}
		ref := PrimitiveRef{Mesh: index, Primitive: pi}
		g.primRefs[prim] = ref
		g.prims[ref] = prim
		m.Primitives = append(m.Primitives, prim)
	}
	g.meshes[index] = m
	return m
}

func (g *CorrelatedSceneGraph) accessor(index int) (*gltf.Accessor, error) {
	if index < 0 || index >= len(g.Document.Accessors) || g.Document.Accessors[index] == nil {
		return nil, fmt.Errorf("accessor %d out of range", index)
	}
	return g.Document.Accessors[index], nil
}

func (g *CorrelatedSceneGraph) primitive(p *gltf.Primitive) (*model.Primitive, error) {
	doc := g.Document
	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return nil, errNoPositions
	}
	acc, err := g.accessor(posIdx)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(doc, acc, nil)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	prim := &model.Primitive{Positions: make([]mgl64.Vec3, len(positions))}
	for i, v := range positions {
		prim.Positions[i] = mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
	}

	if idx, ok := p.Attributes[gltf.NORMAL]; ok {
		if acc, err := g.accessor(idx); err == nil {
			if normals, err := modeler.ReadNormal(doc, acc, nil); err == nil && len(normals) == len(positions) {
				prim.Normals = make([]mgl64.Vec3, len(normals))
				for i, v := range normals {
					prim.Normals[i] = mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
				}
			}
		}
	}

	if idx, ok := p.Attributes[gltf.TEXCOORD_0]; ok {
		if acc, err := g.accessor(idx); err == nil {
			if uvs, err := modeler.ReadTextureCoord(doc, acc, nil); err == nil {
				prim.UVs = make([][2]float64, len(uvs))
				for i, v := range uvs {
					prim.UVs[i] = [2]float64{float64(v[0]), float64(v[1])}
				}
			}
		}
	}

	if p.Indices != nil {
		acc, err := g.accessor(*p.Indices)
		if err != nil {
			return nil, err
		}
		indices, err := modeler.ReadIndices(doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
		prim.Indices = indices
	}

	switch p.Mode {
	case gltf.PrimitiveTriangles:
		prim.Mode = model.ModeTriangles
	case gltf.PrimitiveTriangleStrip:
		prim.Mode = model.ModeTriangles
		prim.Indices = stripToTriangles(sequence(prim.Indices, len(positions)))
	case gltf.PrimitiveTriangleFan:
		prim.Mode = model.ModeTriangles
		prim.Indices = fanToTriangles(sequence(prim.Indices, len(positions)))
	case gltf.PrimitivePoints:
		prim.Mode = model.ModePoints
	default:
		prim.Mode = model.ModeLines
	}

	if prim.Mode == model.ModeTriangles && prim.Normals == nil {
		model.ComputeNormals(prim)
	}

	if p.Material != nil {
		prim.Material = g.MaterialFor(*p.Material)
	}
	if prim.Material == nil {
		prim.Material = g.DefaultMaterial()
	}
	return prim, nil
}

// sequence returns indices, or 0..n-1 when the primitive is not indexed.
func sequence(indices []uint32, n int) []uint32 {
	if len(indices) > 0 {
		return indices
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(i)
	}
	return out
}

// stripToTriangles converts strip order to a list, keeping winding consistent.
func stripToTriangles(strip []uint32) []uint32 {
	if len(strip) < 3 {
		return nil
	}
	out := make([]uint32, 0, (len(strip)-2)*3)
	for i := 0; i+2 < len(strip); i++ {
		if i%2 == 0 {
			out = append(out, strip[i], strip[i+1], strip[i+2])
		} else {
			out = append(out, strip[i+1], strip[i], strip[i+2])
		}
	}
	return out
}

// fanToTriangles converts fan order to a list.
func fanToTriangles(fan []uint32) []uint32 {
	if len(fan) < 3 {
		return nil
	}
	out := make([]uint32, 0, (len(fan)-2)*3)
	for i := 1; i+1 < len(fan); i++ {
		out = append(out, fan[0], fan[i], fan[i+1])
	}
	return out
}
