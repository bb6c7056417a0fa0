package model

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Object is a node in the engine scene graph.
// Its local transform is Position * Rotation * Scale.
type Object struct {
	Name     string
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
	Visible  bool
	Mesh     *Mesh

	parent   *Object
	children []*Object
}

// NewObject creates a visible object with an identity transform.
func NewObject(name string) *Object {
	return &Object{
		Name:     name,
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
		Visible:  true,
	}
}

// Parent returns the object's parent, or nil for a root.
func (o *Object) Parent() *Object {
	return o.parent
}

// Children returns the direct children. The slice must not be modified.
func (o *Object) Children() []*Object {
	return o.children
}

// Add attaches child to o, detaching it from any previous parent.
func (o *Object) Add(child *Object) {
	if child == nil || child == o {
		return
	}
	if child.parent != nil {
		child.parent.Remove(child)
	}
	child.parent = o
	o.children = append(o.children, child)
}

// Remove detaches child from o. It is a no-op if child is not attached to o.
func (o *Object) Remove(child *Object) {
	for i, c := range o.children {
		if c == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

// Clear detaches all children.
func (o *Object) Clear() {
	for _, c := range o.children {
		c.parent = nil
	}
	o.children = nil
}

// LocalMatrix returns Position * Rotation * Scale.
func (o *Object) LocalMatrix() mgl64.Mat4 {
	m := mgl64.Translate3D(o.Position[0], o.Position[1], o.Position[2])
	m = m.Mul4(o.Rotation.Normalize().Mat4())
	return m.Mul4(mgl64.Scale3D(o.Scale[0], o.Scale[1], o.Scale[2]))
}

// WorldMatrix returns the transform from o's space to the space of its
// topmost ancestor.
func (o *Object) WorldMatrix() mgl64.Mat4 {
	m := o.LocalMatrix()
	for p := o.parent; p != nil; p = p.parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

// MatrixRelativeTo returns the transform from o's space to the space of
// ancestor. A nil ancestor means the topmost ancestor. If ancestor is not
// above o, the result equals WorldMatrix.
func (o *Object) MatrixRelativeTo(ancestor *Object) mgl64.Mat4 {
	m := o.LocalMatrix()
	for p := o.parent; p != nil && p != ancestor; p = p.parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

// Traverse calls fn for o and every descendant in pre-order.
func (o *Object) Traverse(fn func(*Object)) {
	fn(o)
	for _, c := range o.children {
		c.Traverse(fn)
	}
}

// TraverseVisible is like Traverse but skips invisible subtrees.
func (o *Object) TraverseVisible(fn func(*Object)) {
	if !o.Visible {
		return
	}
	fn(o)
	for _, c := range o.children {
		c.TraverseVisible(fn)
	}
}

// FindByName returns the first object in the subtree with the given name.
func (o *Object) FindByName(name string) *Object {
	if o.Name == name {
		return o
	}
	for _, c := range o.children {
		if found := c.FindByName(name); found != nil {
			return found
		}
	}
	return nil
}
