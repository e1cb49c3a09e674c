package scene

import (
	"github.com/google/uuid"
	"github.com/spaghettifunk/kiln/engine/geometry"
	"github.com/spaghettifunk/kiln/engine/math"
)

// DrawItem is what the renderer consumes for one object each frame.
type DrawItem struct {
	World math.Mat4
	Mesh  *geometry.Mesh
}

// Scene owns the root nodes. Children are owned through their parents.
type Scene struct {
	roots []*Node
}

func NewScene() *Scene {
	return &Scene{}
}

// NewNode creates a root node. mesh may be nil for pure grouping nodes.
func (s *Scene) NewNode(mesh *geometry.Mesh) *Node {
	n := &Node{
		scene:       s,
		orientation: math.NewQuatIdentity(),
		isDirty:     true,
		Mesh:        mesh,
	}
	s.roots = append(s.roots, n)
	return n
}

// AddNode creates a root node at position with the given euler angles in radians.
func (s *Scene) AddNode(mesh *geometry.Mesh, position, euler math.Vec3) *Node {
	n := s.NewNode(mesh)
	n.SetPosition(position)
	n.SetEulerAngles(euler)
	return n
}

func (s *Scene) Roots() []*Node {
	return s.roots
}

func (s *Scene) walk(fn func(n *Node)) {
	var visit func(n *Node)
	visit = func(n *Node) {
		fn(n)
		for _, c := range n.children {
			visit(c)
		}
	}
	for _, r := range s.roots {
		visit(r)
	}
}

// DrawList flattens the tree depth-first in insertion order. Nodes without
// a mesh are skipped.
func (s *Scene) DrawList() []DrawItem {
	var items []DrawItem
	s.walk(func(n *Node) {
		if n.Mesh == nil {
			return
		}
		items = append(items, DrawItem{World: n.WorldMatrix(), Mesh: n.Mesh})
	})
	return items
}

// Meshes returns every distinct mesh in the order first seen.
func (s *Scene) Meshes() []*geometry.Mesh {
	seen := make(map[uuid.UUID]struct{})
	var meshes []*geometry.Mesh
	s.walk(func(n *Node) {
		if n.Mesh == nil {
			return
		}
		if _, ok := seen[n.Mesh.ID]; ok {
			return
		}
		seen[n.Mesh.ID] = struct{}{}
		meshes = append(meshes, n.Mesh)
	})
	return meshes
}
