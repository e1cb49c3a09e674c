package scene

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/geometry"
	"github.com/spaghettifunk/kiln/engine/math"
)

// ErrCycle is returned when a reparent would make a node its own ancestor.
var ErrCycle = errors.New("node cannot be parented to itself or a descendant")

// Node places an optional mesh in the scene. A node is owned by its parent,
// or by the scene when it is a root. parent is only walked to build the
// world matrix.
type Node struct {
	scene    *Scene
	parent   *Node
	children []*Node

	position    math.Vec3
	orientation math.Quaternion
	local       math.Mat4
	isDirty     bool

	Mesh *geometry.Mesh
}

func (n *Node) SetPosition(position math.Vec3) {
	n.position = position
	n.isDirty = true
}

func (n *Node) Position() math.Vec3 {
	return n.position
}

func (n *Node) SetOrientation(q math.Quaternion) {
	n.orientation = q
	n.isDirty = true
}

// SetEulerAngles sets the orientation from X, Y, Z angles in radians.
func (n *Node) SetEulerAngles(angles math.Vec3) {
	n.SetOrientation(math.NewQuatFromEuler(angles))
}

func (n *Node) Orientation() math.Quaternion {
	return n.orientation
}

func (n *Node) Parent() *Node {
	return n.parent
}

func (n *Node) Children() []*Node {
	return n.children
}

// LocalMatrix is the rotation with the position in the last column.
func (n *Node) LocalMatrix() math.Mat4 {
	if n.isDirty {
		n.local = n.orientation.ToMat4()
		n.local.Data[12] = n.position.X
		n.local.Data[13] = n.position.Y
		n.local.Data[14] = n.position.Z
		n.local.Data[15] = 1
		n.isDirty = false
	}
	return n.local
}

// WorldMatrix applies the local matrix, then every ancestor's.
func (n *Node) WorldMatrix() math.Mat4 {
	l := n.LocalMatrix()
	if n.parent != nil {
		return l.Mul(n.parent.WorldMatrix())
	}
	return l
}

// IsAncestorOf reports whether n is other or sits above it.
func (n *Node) IsAncestorOf(other *Node) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// SetParent moves n under parent. A nil parent makes n a root of its scene.
func (n *Node) SetParent(parent *Node) error {
	if parent != nil {
		if n.IsAncestorOf(parent) {
			return ErrCycle
		}
		if parent.scene != n.scene {
			return errors.New("nodes belong to different scenes")
		}
	}
	if parent == n.parent {
		return nil
	}

	n.detach()
	n.parent = parent
	if parent != nil {
		parent.children = append(parent.children, n)
	} else {
		n.scene.roots = append(n.scene.roots, n)
	}
	return nil
}

func (n *Node) detach() {
	if n.parent != nil {
		n.parent.children = remove(n.parent.children, n)
		return
	}
	n.scene.roots = remove(n.scene.roots, n)
}

func remove(nodes []*Node, n *Node) []*Node {
	for i, c := range nodes {
		if c == n {
			return append(nodes[:i], nodes[i+1:]...)
		}
	}
	return nodes
}
