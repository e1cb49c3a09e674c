package renderer

import (
	"github.com/dolthub/swiss"
	"github.com/google/uuid"
	"github.com/spaghettifunk/kiln/engine/geometry"
)

// MeshBuffers are the device-local vertex and index buffers of one mesh.
type MeshBuffers struct {
	Vertex     GpuBuffer
	Index      GpuBuffer
	IndexCount uint32
}

// MeshBufferCache uploads each distinct mesh once. Entries live until Destroy.
type MeshBufferCache struct {
	ctx     *DeviceContext
	entries *swiss.Map[uuid.UUID, MeshBuffers]
}

func NewMeshBufferCache(ctx *DeviceContext) *MeshBufferCache {
	return &MeshBufferCache{
		ctx:     ctx,
		entries: swiss.NewMap[uuid.UUID, MeshBuffers](16),
	}
}

// Get returns the buffers for mesh, uploading them on first use.
func (m *MeshBufferCache) Get(mesh *geometry.Mesh) (MeshBuffers, error) {
	if entry, ok := m.entries.Get(mesh.ID); ok {
		return entry, nil
	}

	vb, err := m.ctx.Upload(mesh.VertexBytes(), BufferUsageVertex|BufferUsageTransferSrc)
	if err != nil {
		return MeshBuffers{}, err
	}
	ib, err := m.ctx.Upload(mesh.IndexBytes(), BufferUsageIndex|BufferUsageTransferSrc)
	if err != nil {
		m.ctx.Allocator.DestroyBuffer(vb)
		return MeshBuffers{}, err
	}

	entry := MeshBuffers{Vertex: vb, Index: ib, IndexCount: mesh.IndexCount()}
	m.entries.Put(mesh.ID, entry)
	return entry, nil
}

// Lookup returns the cached buffers without uploading.
func (m *MeshBufferCache) Lookup(id uuid.UUID) (MeshBuffers, bool) {
	return m.entries.Get(id)
}

func (m *MeshBufferCache) Len() int {
	return m.entries.Count()
}

func (m *MeshBufferCache) Destroy() {
	m.entries.Iter(func(_ uuid.UUID, e MeshBuffers) bool {
		m.ctx.Allocator.DestroyBuffer(e.Vertex)
		m.ctx.Allocator.DestroyBuffer(e.Index)
		return false
	})
	m.entries = swiss.NewMap[uuid.UUID, MeshBuffers](16)
}
