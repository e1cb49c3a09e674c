package renderer

import (
	"encoding/binary"
	stdmath "math"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/math"
	"github.com/vkngwrapper/arsenal/memutils"
)

// UniformRecordSize is the packed size of UniformRecord: a vec4 then a mat4.
const UniformRecordSize = 80

var ErrTooManyObjects = errors.New("object index exceeds the uniform buffer capacity")

// UniformRecord is the per-object block read by the vertex shader.
type UniformRecord struct {
	Light math.Vec4
	MVP   math.Mat4
}

// Pack writes the record in std140 order into dst, which must hold UniformRecordSize bytes.
func (u UniformRecord) Pack(dst []byte) {
	putF32 := func(off int, f float32) {
		binary.LittleEndian.PutUint32(dst[off:], stdmath.Float32bits(f))
	}
	putF32(0, u.Light.X)
	putF32(4, u.Light.Y)
	putF32(8, u.Light.Z)
	putF32(12, u.Light.W)
	for i, f := range u.MVP.Data {
		putF32(16+i*4, f)
	}
}

// UniformStride is the distance between two records in a dynamic uniform
// buffer, given the device's minimum offset alignment. Zero means no requirement.
func UniformStride(minAlignment uint64) (uint64, error) {
	if minAlignment == 0 {
		minAlignment = 1
	}
	if err := memutils.CheckPow2(uint(minAlignment), "minUniformBufferOffsetAlignment"); err != nil {
		return 0, err
	}
	return uint64(memutils.AlignUp(UniformRecordSize, uint(minAlignment))), nil
}

// UniformSlot is one frame slot's dynamic uniform buffer and the descriptor set bound to it.
type UniformSlot struct {
	Buffer GpuBuffer
	Set    DescriptorSet
}

// UniformManager owns the descriptor layout, which lives as long as the
// pipeline, and the per-slot buffers and sets, which follow the swapchain.
type UniformManager struct {
	ctx        *DeviceContext
	Layout     DescriptorSetLayout
	Stride     uint64
	MaxObjects uint32

	pool  DescriptorPool
	slots []UniformSlot
}

func NewUniformManager(ctx *DeviceContext, maxObjects uint32) (*UniformManager, error) {
	if maxObjects == 0 {
		return nil, errors.New("max objects must be greater than zero")
	}
	stride, err := UniformStride(ctx.Info.MinUniformBufferOffsetAlignment)
	if err != nil {
		return nil, err
	}
	layout, err := ctx.Driver.CreateDescriptorSetLayout([]DescriptorBinding{{
		Binding: 0,
		Type:    DescriptorTypeUniformBufferDynamic,
		Stages:  ShaderStageVertex,
	}})
	if err != nil {
		return nil, errors.Wrap(err, "create descriptor set layout")
	}
	return &UniformManager{
		ctx:        ctx,
		Layout:     layout,
		Stride:     stride,
		MaxObjects: maxObjects,
	}, nil
}

// Allocate creates a descriptor pool sized for count slots, and one buffer and
// set per slot. Any previous allocation must have been released.
func (u *UniformManager) Allocate(count uint32) error {
	pool, err := u.ctx.Driver.CreateDescriptorPool(count, []DescriptorPoolSize{{
		Type:  DescriptorTypeUniformBufferDynamic,
		Count: count,
	}})
	if err != nil {
		return errors.Wrap(err, "create descriptor pool")
	}
	u.pool = pool

	u.slots = make([]UniformSlot, 0, count)
	for i := uint32(0); i < count; i++ {
		buf, err := u.ctx.Allocator.CreateBuffer(u.Stride*uint64(u.MaxObjects), BufferUsageUniform, MemoryCPUToGPU)
		if err != nil {
			u.Release()
			return errors.Wrapf(err, "create uniform buffer %d", i)
		}
		u.slots = append(u.slots, UniformSlot{Buffer: buf})

		set, err := u.ctx.Driver.AllocateDescriptorSet(u.pool, u.Layout)
		if err != nil {
			u.Release()
			return errors.Wrapf(err, "allocate descriptor set %d", i)
		}
		u.slots[i].Set = set
		// The shader sees one record at a time; the dynamic offset picks which.
		if err := u.ctx.Driver.UpdateDescriptorSet(set, buf.Buffer, UniformRecordSize); err != nil {
			u.Release()
			return errors.Wrapf(err, "update descriptor set %d", i)
		}
	}
	return nil
}

func (u *UniformManager) Slot(i uint32) UniformSlot {
	return u.slots[i]
}

func (u *UniformManager) SlotCount() int {
	return len(u.slots)
}

// WriteObject stores rec at object index in slot's buffer. The slot must not be
// in flight, which its fence guarantees once it has been acquired.
func (u *UniformManager) WriteObject(slot, object uint32, rec UniformRecord) error {
	if object >= u.MaxObjects {
		return errors.Wrapf(ErrTooManyObjects, "object %d of %d", object, u.MaxObjects)
	}
	var packed [UniformRecordSize]byte
	rec.Pack(packed[:])
	return u.ctx.Allocator.Write(u.slots[slot].Buffer, uint64(object)*u.Stride, packed[:])
}

// DynamicOffset is the offset of object's record in its slot buffer.
func (u *UniformManager) DynamicOffset(object uint32) uint32 {
	return uint32(uint64(object) * u.Stride)
}

// Release frees the per-slot buffers and the pool, which takes the sets with it.
func (u *UniformManager) Release() {
	for _, s := range u.slots {
		u.ctx.Allocator.DestroyBuffer(s.Buffer)
	}
	u.slots = nil
	if u.pool != 0 {
		u.ctx.Driver.DestroyDescriptorPool(u.pool)
		u.pool = 0
	}
}

func (u *UniformManager) Destroy() {
	u.Release()
	if u.Layout != 0 {
		u.ctx.Driver.DestroyDescriptorSetLayout(u.Layout)
		u.Layout = 0
	}
}
