package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer"
)

// allocation is one dedicated block of device memory. Host-visible blocks stay
// mapped for their whole life.
type allocation struct {
	memory vk.DeviceMemory
	size   uint64
	mapped unsafe.Pointer
}

func memoryFlags(usage renderer.MemoryUsage) vk.MemoryPropertyFlags {
	switch usage {
	case renderer.MemoryCPUOnly, renderer.MemoryCPUToGPU:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	default:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	}
}

func (d *Driver) findMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	for i := uint32(0); i < d.memory.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		d.memory.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) != 0 && d.memory.MemoryTypes[i].PropertyFlags&propertyFlags == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}

func (d *Driver) allocate(requirements vk.MemoryRequirements, usage renderer.MemoryUsage) (*allocation, error) {
	requirements.Deref()
	index := d.findMemoryIndex(requirements.MemoryTypeBits, memoryFlags(usage))
	if index < 0 {
		return nil, core.NewDriverError("vkAllocateMemory", int32(vk.ErrorOutOfDeviceMemory))
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(index),
	}
	var memory vk.DeviceMemory
	if err := check("vkAllocateMemory", vk.AllocateMemory(d.device, &allocateInfo, nil, &memory)); err != nil {
		return nil, err
	}

	alloc := &allocation{memory: memory, size: uint64(requirements.Size)}
	if usage.HostVisible() {
		var data unsafe.Pointer
		if err := check("vkMapMemory", vk.MapMemory(d.device, memory, 0, requirements.Size, 0, &data)); err != nil {
			vk.FreeMemory(d.device, memory, nil)
			return nil, err
		}
		alloc.mapped = data
	}
	return alloc, nil
}

func (d *Driver) free(alloc *allocation) {
	if alloc.mapped != nil {
		vk.UnmapMemory(d.device, alloc.memory)
		alloc.mapped = nil
	}
	vk.FreeMemory(d.device, alloc.memory, nil)
}

func (d *Driver) CreateBuffer(size uint64, usage renderer.BufferUsage, memory renderer.MemoryUsage) (renderer.Buffer, renderer.Allocation, error) {
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if err := check("vkCreateBuffer", vk.CreateBuffer(d.device, &bufferCreateInfo, nil, &buffer)); err != nil {
		return 0, 0, err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.device, buffer, &requirements)
	alloc, err := d.allocate(requirements, memory)
	if err != nil {
		vk.DestroyBuffer(d.device, buffer, nil)
		return 0, 0, err
	}
	if err := check("vkBindBufferMemory", vk.BindBufferMemory(d.device, buffer, alloc.memory, 0)); err != nil {
		d.free(alloc)
		vk.DestroyBuffer(d.device, buffer, nil)
		return 0, 0, err
	}

	return renderer.Buffer(d.buffers.add(buffer)), renderer.Allocation(d.allocations.add(alloc)), nil
}

func (d *Driver) DestroyBuffer(buffer renderer.Buffer, alloc renderer.Allocation) {
	if b, ok := d.buffers.remove(uint64(buffer)); ok {
		vk.DestroyBuffer(d.device, b, nil)
	}
	if a, ok := d.allocations.remove(uint64(alloc)); ok {
		d.free(a)
	}
}

func (d *Driver) mapped(id renderer.Allocation, offset uint64, n int) ([]byte, error) {
	alloc, ok := d.allocations.get(uint64(id))
	if !ok {
		return nil, errors.New("unknown allocation")
	}
	if alloc.mapped == nil {
		return nil, errors.New("allocation is not host visible")
	}
	if offset+uint64(n) > alloc.size {
		return nil, errors.Newf("range %d+%d exceeds allocation of %d bytes", offset, n, alloc.size)
	}
	return unsafe.Slice((*byte)(unsafe.Add(alloc.mapped, offset)), n), nil
}

func (d *Driver) WriteAllocation(alloc renderer.Allocation, offset uint64, data []byte) error {
	dst, err := d.mapped(alloc, offset, len(data))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

func (d *Driver) ReadAllocation(alloc renderer.Allocation, offset uint64, dst []byte) error {
	src, err := d.mapped(alloc, offset, len(dst))
	if err != nil {
		return err
	}
	copy(dst, src)
	return nil
}
