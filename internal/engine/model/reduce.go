package model

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/modelstage/pkg/math"
)

// ReduceVertices folds fn over every vertex position of every primitive in
// the subtree rooted at root, root included. Positions are expressed in the
// space of root's parent. Visitation order is unspecified, but each vertex
// is passed exactly once per call. Invisible objects are included.
func ReduceVertices[T any](root *Object, fn func(acc T, v mgl64.Vec3) T, initial T) T {
	acc := initial
	if root == nil {
		return acc
	}
	stop := root.Parent()
	root.Traverse(func(o *Object) {
		if o.Mesh == nil {
			return
		}
		m := o.MatrixRelativeTo(stop)
		for _, p := range o.Mesh.Primitives {
			for _, pos := range p.Positions {
				acc = fn(acc, mgl64.TransformCoordinate(pos, m))
			}
		}
	})
	return acc
}

// VertexBox returns the exact bounding box of root's vertices in the space
// of root's parent.
func VertexBox(root *Object) math.Box3 {
	return ReduceVertices(root, func(b math.Box3, v mgl64.Vec3) math.Box3 {
		return b.ExpandByPoint(v)
	}, math.EmptyBox())
}

// BoundingBox returns a conservative box built from the transformed local
// bounds of each primitive. It is cheaper than VertexBox but may be looser
// under rotation.
func BoundingBox(root *Object) math.Box3 {
	box := math.EmptyBox()
	if root == nil {
		return box
	}
	stop := root.Parent()
	root.Traverse(func(o *Object) {
		if o.Mesh == nil {
			return
		}
		m := o.MatrixRelativeTo(stop)
		for _, p := range o.Mesh.Primitives {
			local := math.EmptyBox()
			for _, pos := range p.Positions {
				local = local.ExpandByPoint(pos)
			}
			if local.IsEmpty() {
				continue
			}
			box = box.Union(local.Transform(m))
		}
	})
	return box
}
