package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/spaghettifunk/kiln/engine/core"
)

var ErrUnknownBuffer = errors.New("buffer is not owned by this allocator")

type bufferRecord struct {
	allocation Allocation
	size       uint64
	usage      BufferUsage
	memory     MemoryUsage
}

type imageRecord struct {
	allocation Allocation
	desc       ImageDesc
}

// Allocator is the only path to buffer and image memory. It keeps the set of
// live allocations so leaks show up at shutdown.
type Allocator struct {
	driver  Driver
	buffers *swiss.Map[Buffer, bufferRecord]
	images  *swiss.Map[Image, imageRecord]
}

func NewAllocator(driver Driver) *Allocator {
	return &Allocator{
		driver:  driver,
		buffers: swiss.NewMap[Buffer, bufferRecord](64),
		images:  swiss.NewMap[Image, imageRecord](8),
	}
}

func (a *Allocator) CreateBuffer(size uint64, usage BufferUsage, memory MemoryUsage) (GpuBuffer, error) {
	if size == 0 {
		return GpuBuffer{}, errors.New("buffer size must be greater than zero")
	}
	buf, alloc, err := a.driver.CreateBuffer(size, usage, memory)
	if err != nil {
		return GpuBuffer{}, err
	}
	a.buffers.Put(buf, bufferRecord{allocation: alloc, size: size, usage: usage, memory: memory})
	return GpuBuffer{Buffer: buf, Allocation: alloc, Size: size}, nil
}

// DestroyBuffer frees b. A null or already freed buffer is ignored.
func (a *Allocator) DestroyBuffer(b GpuBuffer) {
	if b.Buffer == 0 {
		return
	}
	rec, ok := a.buffers.Get(b.Buffer)
	if !ok {
		return
	}
	a.driver.DestroyBuffer(b.Buffer, rec.allocation)
	a.buffers.Delete(b.Buffer)
}

// Write copies data into a host-visible buffer at offset.
func (a *Allocator) Write(b GpuBuffer, offset uint64, data []byte) error {
	rec, ok := a.buffers.Get(b.Buffer)
	if !ok {
		return ErrUnknownBuffer
	}
	if !rec.memory.HostVisible() {
		return errors.Newf("buffer %d is not host visible", b.Buffer)
	}
	if offset+uint64(len(data)) > rec.size {
		return errors.Newf("write of %d bytes at %d overflows buffer of %d bytes", len(data), offset, rec.size)
	}
	return a.driver.WriteAllocation(rec.allocation, offset, data)
}

// Read copies the first len(dst) bytes of a host-visible buffer into dst.
func (a *Allocator) Read(b GpuBuffer, dst []byte) error {
	rec, ok := a.buffers.Get(b.Buffer)
	if !ok {
		return ErrUnknownBuffer
	}
	if !rec.memory.HostVisible() {
		return errors.Newf("buffer %d is not host visible", b.Buffer)
	}
	if uint64(len(dst)) > rec.size {
		return errors.Newf("read of %d bytes overflows buffer of %d bytes", len(dst), rec.size)
	}
	return a.driver.ReadAllocation(rec.allocation, 0, dst)
}

// Usage reports the usage flags the buffer was created with.
func (a *Allocator) Usage(b Buffer) (BufferUsage, bool) {
	rec, ok := a.buffers.Get(b)
	return rec.usage, ok
}

func (a *Allocator) Live(b Buffer) bool {
	return a.buffers.Has(b)
}

// LiveCount is the number of buffers and images not yet destroyed.
func (a *Allocator) LiveCount() int {
	return a.buffers.Count() + a.images.Count()
}

func (a *Allocator) CreateImage(desc ImageDesc) (Image, error) {
	img, alloc, err := a.driver.CreateImage(desc)
	if err != nil {
		return 0, err
	}
	a.images.Put(img, imageRecord{allocation: alloc, desc: desc})
	return img, nil
}

func (a *Allocator) DestroyImage(img Image) {
	rec, ok := a.images.Get(img)
	if !ok {
		return
	}
	a.driver.DestroyImage(img, rec.allocation)
	a.images.Delete(img)
}

// Shutdown frees whatever is still live. Anything freed here was leaked by its owner.
func (a *Allocator) Shutdown() {
	if n := a.LiveCount(); n > 0 {
		core.LogWarn("allocator shutting down with %d live allocations", n)
	}
	a.buffers.Iter(func(b Buffer, rec bufferRecord) bool {
		a.driver.DestroyBuffer(b, rec.allocation)
		return false
	})
	a.images.Iter(func(img Image, rec imageRecord) bool {
		a.driver.DestroyImage(img, rec.allocation)
		return false
	})
	a.buffers = swiss.NewMap[Buffer, bufferRecord](16)
	a.images = swiss.NewMap[Image, imageRecord](4)
}
