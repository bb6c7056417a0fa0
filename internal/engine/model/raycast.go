package model

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/modelstage/pkg/math"
)

// Intersection is a ray hit against a triangle primitive.
type Intersection struct {
	Distance  float64    // Along the ray, in the ray's space
	Point     mgl64.Vec3 // Hit point in the ray's space
	Normal    mgl64.Vec3 // Interpolated or face normal in the ray's space
	Object    *Object
	Primitive *Primitive
	Face      int // Triangle index within the primitive
}

// Raycast intersects ray, given in the space of root's parent, with every
// visible triangle primitive under root. Hits are sorted nearest first.
func Raycast(root *Object, ray math.Ray) []Intersection {
	if root == nil {
		return nil
	}
	stop := root.Parent()

	var hits []Intersection
	root.TraverseVisible(func(o *Object) {
		if o.Mesh == nil {
			return
		}
		toWorld := o.MatrixRelativeTo(stop)
		toLocal := toWorld.Inv()
		local := ray.Transform(toLocal)
		normalMat := toLocal.Transpose()

		for _, p := range o.Mesh.Primitives {
			if p.Mode != ModeTriangles {
				continue
			}
			for f := 0; f < p.TriangleCount(); f++ {
				ia, ib, ic := p.Triangle(f)
				if ia >= len(p.Positions) || ib >= len(p.Positions) || ic >= len(p.Positions) {
					continue
				}
				a, b, c := p.Positions[ia], p.Positions[ib], p.Positions[ic]
				t, u, v, ok := local.IntersectTriangle(a, b, c)
				if !ok {
					continue
				}

				point := mgl64.TransformCoordinate(local.At(t), toWorld)
				n := faceNormal(a, b, c)
				if len(p.Normals) == len(p.Positions) {
					n = p.Normals[ia].Mul(1 - u - v).Add(p.Normals[ib].Mul(u)).Add(p.Normals[ic].Mul(v))
				}
				n = mgl64.TransformNormal(n, normalMat)
				if n.Len() > 0 {
					n = n.Normalize()
				}

				hits = append(hits, Intersection{
					Distance:  point.Sub(ray.Origin).Len(),
					Point:     point,
					Normal:    n,
					Object:    o,
					Primitive: p,
					Face:      f,
				})
			}
		}
	})

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	return hits
}

func faceNormal(a, b, c mgl64.Vec3) mgl64.Vec3 {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Len() == 0 {
		return mgl64.Vec3{0, 1, 0}
	}
	return n.Normalize()
}

// ComputeNormals fills p.Normals with area-weighted smooth vertex normals.
// Vertices not referenced by any triangle get +Y.
func ComputeNormals(p *Primitive) {
	normals := make([]mgl64.Vec3, len(p.Positions))
	for f := 0; f < p.TriangleCount(); f++ {
		ia, ib, ic := p.Triangle(f)
		if ia >= len(normals) || ib >= len(normals) || ic >= len(normals) {
			continue
		}
		a, b, c := p.Positions[ia], p.Positions[ib], p.Positions[ic]
		// Unnormalized cross product weights by triangle area.
		n := b.Sub(a).Cross(c.Sub(a))
		normals[ia] = normals[ia].Add(n)
		normals[ib] = normals[ib].Add(n)
		normals[ic] = normals[ic].Add(n)
	}
	for i, n := range normals {
		if n.Len() == 0 {
			normals[i] = mgl64.Vec3{0, 1, 0}
			continue
		}
		normals[i] = n.Normalize()
	}
	p.Normals = normals
}
