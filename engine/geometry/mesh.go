package geometry

import (
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/spaghettifunk/kiln/engine/math"
)

// Mesh is a CPU-side vertex/index list. ID is the identity the renderer
// uses to upload it exactly once.
type Mesh struct {
	ID       uuid.UUID
	Vertices []Vertex
	Indices  []uint32
}

func NewMesh() *Mesh {
	return &Mesh{ID: uuid.New()}
}

// AddVertex appends v and returns its index.
func (mesh *Mesh) AddVertex(v Vertex) uint32 {
	mesh.Vertices = append(mesh.Vertices, v)
	return uint32(len(mesh.Vertices) - 1)
}

func (mesh *Mesh) AddIndex(index uint32) {
	mesh.Indices = append(mesh.Indices, index)
}

// SetColor overwrites the color of every vertex.
func (mesh *Mesh) SetColor(color math.Vec3) {
	for i := range mesh.Vertices {
		mesh.Vertices[i].Color = color
	}
}

func (mesh *Mesh) VertexCount() uint32 {
	return uint32(len(mesh.Vertices))
}

func (mesh *Mesh) IndexCount() uint32 {
	return uint32(len(mesh.Indices))
}

// VertexBytes packs the vertices tightly, little-endian.
func (mesh *Mesh) VertexBytes() []byte {
	out := make([]byte, len(mesh.Vertices)*VertexSize)
	for i, v := range mesh.Vertices {
		v.Pack(out[i*VertexSize:])
	}
	return out
}

// IndexBytes packs the indices as little-endian uint32.
func (mesh *Mesh) IndexBytes() []byte {
	out := make([]byte, len(mesh.Indices)*IndexSize)
	for i, idx := range mesh.Indices {
		binary.LittleEndian.PutUint32(out[i*IndexSize:], idx)
	}
	return out
}
