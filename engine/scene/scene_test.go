package scene

import (
	"testing"

	"github.com/spaghettifunk/kiln/engine/geometry"
	"github.com/spaghettifunk/kiln/engine/math"
	"github.com/stretchr/testify/require"
)

func TestSetParentRejectsCycles(t *testing.T) {
	s := NewScene()
	a := s.NewNode(nil)
	b := s.NewNode(nil)
	c := s.NewNode(nil)

	require.NoError(t, b.SetParent(a))
	require.NoError(t, c.SetParent(b))

	require.ErrorIs(t, a.SetParent(a), ErrCycle)
	require.ErrorIs(t, a.SetParent(c), ErrCycle)
	require.ErrorIs(t, a.SetParent(b), ErrCycle)

	require.Equal(t, []*Node{a}, s.Roots())
	require.Equal(t, []*Node{b}, a.Children())
	require.Nil(t, a.Parent())
}

func TestSetParentMovesOwnership(t *testing.T) {
	s := NewScene()
	a := s.NewNode(nil)
	b := s.NewNode(nil)
	c := s.NewNode(nil)

	require.NoError(t, c.SetParent(a))
	require.Equal(t, []*Node{a, b}, s.Roots())

	require.NoError(t, c.SetParent(b))
	require.Empty(t, a.Children())
	require.Equal(t, []*Node{c}, b.Children())

	require.NoError(t, c.SetParent(nil))
	require.Empty(t, b.Children())
	require.Equal(t, []*Node{a, b, c}, s.Roots())

	other := NewScene().NewNode(nil)
	require.Error(t, other.SetParent(a))
}

func TestWorldMatrixComposesParents(t *testing.T) {
	s := NewScene()
	parent := s.AddNode(nil, math.NewVec3(1, 0, 0), math.NewVec3(0, 0, math.DegToRad(90)))
	child := s.AddNode(nil, math.NewVec3(1, 0, 0), math.NewVec3Zero())
	require.NoError(t, child.SetParent(parent))

	// The child's offset is rotated by the parent, then translated.
	p := child.WorldMatrix().MulVec4(math.NewVec4(0, 0, 0, 1))
	require.InDelta(t, 1, p.X, 1e-5)
	require.InDelta(t, 1, p.Y, 1e-5)
	require.InDelta(t, 0, p.Z, 1e-5)

	child.SetPosition(math.NewVec3(0, 2, 0))
	p = child.WorldMatrix().MulVec4(math.NewVec4(0, 0, 0, 1))
	require.InDelta(t, -1, p.X, 1e-5)
	require.InDelta(t, 0, p.Y, 1e-5)
}

func TestDrawListOrderAndMeshes(t *testing.T) {
	sphere := geometry.GenerateSphere(0.5, 8, 8)
	plane := geometry.GeneratePlane(2, 2, geometry.AxisZ, 1, 1)

	s := NewScene()
	a := s.AddNode(sphere, math.NewVec3Zero(), math.NewVec3Zero())
	group := s.NewNode(nil)
	b := s.AddNode(plane, math.NewVec3(0, 0, -0.5), math.NewVec3Zero())
	c := s.AddNode(sphere, math.NewVec3(2, 0, 0), math.NewVec3Zero())
	require.NoError(t, c.SetParent(a))
	require.NoError(t, b.SetParent(group))

	items := s.DrawList()
	require.Len(t, items, 3)
	require.Same(t, sphere, items[0].Mesh)
	require.Same(t, sphere, items[1].Mesh)
	require.Same(t, plane, items[2].Mesh)
	require.InDelta(t, -0.5, items[2].World.Data[14], 1e-6)

	meshes := s.Meshes()
	require.Len(t, meshes, 2)
	require.Same(t, sphere, meshes[0])
	require.Same(t, plane, meshes[1])
}
