package geometry

import (
	"encoding/binary"
	m "math"
	"testing"

	"github.com/spaghettifunk/kiln/engine/math"
	"github.com/stretchr/testify/require"
)

func requireIndicesInRange(t *testing.T, mesh *Mesh) {
	t.Helper()
	for _, idx := range mesh.Indices {
		require.Less(t, idx, mesh.VertexCount())
	}
	require.Zero(t, mesh.IndexCount()%3)
}

func TestMeshBuilder(t *testing.T) {
	mesh := NewMesh()
	require.NotEqual(t, NewMesh().ID, mesh.ID)

	require.Equal(t, uint32(0), mesh.AddVertex(Vertex{Position: math.NewVec3(1, 2, 3)}))
	require.Equal(t, uint32(1), mesh.AddVertex(Vertex{Normal: math.NewVec3(0, 0, 1)}))
	mesh.AddIndex(1)
	mesh.AddIndex(0)

	mesh.SetColor(math.NewVec3(0, 0, 1))
	for _, v := range mesh.Vertices {
		require.Equal(t, math.NewVec3(0, 0, 1), v.Color)
	}
	require.Equal(t, uint32(2), mesh.IndexCount())
}

func TestVertexBytesLayout(t *testing.T) {
	mesh := NewMesh()
	mesh.AddVertex(Vertex{
		Position: math.NewVec3(1, 2, 3),
		Normal:   math.NewVec3(4, 5, 6),
		Color:    math.NewVec3(7, 8, 9),
	})
	mesh.AddIndex(7)

	vb := mesh.VertexBytes()
	require.Len(t, vb, VertexSize)
	for i := 0; i < 9; i++ {
		require.Equal(t, float32(i+1), m.Float32frombits(binary.LittleEndian.Uint32(vb[i*4:])))
	}

	ib := mesh.IndexBytes()
	require.Equal(t, []byte{7, 0, 0, 0}, ib)
}

func TestSphereCounts(t *testing.T) {
	mesh := GenerateSphere(0.5, 32, 32)
	require.Equal(t, uint32(33*33), mesh.VertexCount())
	// Each latitude band has two triangles per segment, except the two polar bands.
	require.Equal(t, uint32(6*32*31), mesh.IndexCount())
	requireIndicesInRange(t, mesh)

	for _, v := range mesh.Vertices {
		require.InDelta(t, 0.5, v.Position.Length(), 1e-5)
		require.InDelta(t, 1, v.Normal.Length(), 1e-5)
	}
}

func TestSphereColored(t *testing.T) {
	mesh := GenerateSphereColored(1, 8, 4, math.NewVec3(0, 0, 1))
	require.Equal(t, math.NewVec3(0, 0, 1), mesh.Vertices[0].Color)
}

func TestPlane(t *testing.T) {
	tests := []struct {
		up     UpAxis
		normal math.Vec3
	}{
		{AxisZ, math.NewVec3(0, 0, 1)},
		{AxisY, math.NewVec3(0, 1, 0)},
		{AxisX, math.NewVec3(1, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.up.String(), func(t *testing.T) {
			mesh := GeneratePlane(2, 2, tt.up, 1, 1)
			require.Equal(t, uint32(4), mesh.VertexCount())
			require.Equal(t, []uint32{0, 2, 1, 1, 2, 3}, mesh.Indices)
			for _, v := range mesh.Vertices {
				require.True(t, v.Normal.Compare(tt.normal, 1e-6))
				require.Equal(t, math.NewVec3(-1, -1, -1), v.Color)
			}
		})
	}

	mesh := GeneratePlaneColored(2, 2, AxisZ, 1, 1, math.NewVec3(0, 1, 0))
	require.Equal(t, math.NewVec3(-1, -1, 0), mesh.Vertices[0].Position)
	require.Equal(t, math.NewVec3(0, 1, 0), mesh.Vertices[3].Color)
}

func TestBox(t *testing.T) {
	mesh := GenerateBox(math.NewVec3(1, 1, 1), 2, 2)
	require.Equal(t, uint32(6*9), mesh.VertexCount())
	require.Equal(t, uint32(6*2*2*6), mesh.IndexCount())
	requireIndicesInRange(t, mesh)
	require.Equal(t, math.NewVec3One(), mesh.Vertices[0].Color)

	// top face first, then bottom
	require.Equal(t, math.NewVec3(0, 0, 1), mesh.Vertices[0].Normal)
	require.Equal(t, math.NewVec3(0, 0, -1), mesh.Vertices[9].Normal)
	// the bottom face winds the other way
	require.Equal(t, []uint32{0, 3, 1}, mesh.Indices[0:3])
	require.Equal(t, []uint32{9, 10, 12}, mesh.Indices[24:27])
}

func TestBoxUnevenSegmentsStayInRange(t *testing.T) {
	mesh := GenerateBox(math.NewVec3(1, 2, 3), 1, 3)
	require.Equal(t, uint32(6*8), mesh.VertexCount())
	require.Equal(t, uint32(6*3*6), mesh.IndexCount())
	requireIndicesInRange(t, mesh)
}

func TestBoxFaceColors(t *testing.T) {
	colors := [6]math.Vec3{
		math.NewVec3(1, 0, 0), math.NewVec3(0, 1, 0), math.NewVec3(0, 0, 1),
		math.NewVec3(1, 1, 0), math.NewVec3(0, 1, 1), math.NewVec3(1, 0, 1),
	}
	mesh := GenerateBoxFaceColored(math.NewVec3(1, 1, 1), 1, 1, colors)
	for face := 0; face < 6; face++ {
		require.Equal(t, colors[face], mesh.Vertices[face*4].Color)
	}

	mesh = GenerateBoxColored(math.NewVec3(1, 1, 1), 1, 1, math.NewVec3(0.5, 0.5, 0.5))
	require.Equal(t, math.NewVec3(0.5, 0.5, 0.5), mesh.Vertices[23].Color)
}

func TestConeExclusion(t *testing.T) {
	tests := []struct {
		name      string
		config    ConeConfig
		vertices  uint32
		triangles uint32
	}{
		{
			// caps keep one triangle per segment, the apex strip drops its upper one
			name:      "closed cone",
			config:    ConeConfig{Height: 1, TopRadius: 0, BottomRadius: 0.5, Up: AxisY, RadialSegments: 8, VerticalSegments: 1},
			vertices:  9 * 4,
			triangles: 8 * 3,
		},
		{
			name:      "closed cylinder",
			config:    ConeConfig{Height: 1, TopRadius: 0.5, BottomRadius: 0.5, Up: AxisY, RadialSegments: 8, VerticalSegments: 2},
			vertices:  9 * 5,
			triangles: 8 * 6,
		},
		{
			name:      "open cylinder",
			config:    ConeConfig{Height: 1, TopRadius: 0.5, BottomRadius: 0.5, Up: AxisY, RadialSegments: 8, VerticalSegments: 2, OpenEnded: true},
			vertices:  9 * 3,
			triangles: 8 * 2,
		},
		{
			name:      "open cone single band",
			config:    ConeConfig{Height: 1, TopRadius: 0, BottomRadius: 0.5, Up: AxisY, RadialSegments: 8, VerticalSegments: 1, OpenEnded: true},
			vertices:  9 * 2,
			triangles: 0,
		},
		{
			name:      "inverted closed cone",
			config:    ConeConfig{Height: 1, TopRadius: 0.5, BottomRadius: 0, Up: AxisY, RadialSegments: 4, VerticalSegments: 2},
			vertices:  5 * 5,
			triangles: 4 * 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mesh := GenerateCone(tt.config)
			require.Equal(t, tt.vertices, mesh.VertexCount())
			require.Equal(t, tt.triangles*3, mesh.IndexCount())
			requireIndicesInRange(t, mesh)
		})
	}
}

func TestConeAxis(t *testing.T) {
	base := ConeConfig{Height: 2, TopRadius: 0, BottomRadius: 1, RadialSegments: 4, VerticalSegments: 1}

	base.Up = AxisY
	require.Equal(t, math.NewVec3(0, -1, 0), GenerateCone(base).Vertices[0].Position)

	base.Up = AxisZ
	require.Equal(t, math.NewVec3(0, 0, -1), GenerateCone(base).Vertices[0].Position)

	base.Up = AxisX
	require.Equal(t, math.NewVec3(-1, 0, 0), GenerateCone(base).Vertices[0].Position)

	colored := GenerateConeColored(base, math.NewVec3(1, 0, 0))
	require.Equal(t, math.NewVec3(1, 0, 0), colored.Vertices[5].Color)
}
