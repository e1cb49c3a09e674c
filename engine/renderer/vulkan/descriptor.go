package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/renderer"
)

/**
 * @brief A descriptor pool and the ids of the sets allocated from it.
 * Sets are freed together with their pool.
 */
type descriptorPoolRecord struct {
	handle vk.DescriptorPool
	sets   []uint64
}

func (d *Driver) CreateDescriptorSetLayout(bindings []renderer.DescriptorBinding) (renderer.DescriptorSetLayout, error) {
	layoutBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		layoutBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  vk.DescriptorType(b.Type),
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(b.Stages),
		}
	}

	layoutCreateInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(layoutBindings)),
		PBindings:    layoutBindings,
	}
	var layout vk.DescriptorSetLayout
	if err := check("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(d.device, &layoutCreateInfo, nil, &layout)); err != nil {
		return 0, err
	}
	return renderer.DescriptorSetLayout(d.setLayouts.add(layout)), nil
}

func (d *Driver) DestroyDescriptorSetLayout(layout renderer.DescriptorSetLayout) {
	if l, ok := d.setLayouts.remove(uint64(layout)); ok {
		vk.DestroyDescriptorSetLayout(d.device, l, nil)
	}
}

func (d *Driver) CreateDescriptorPool(maxSets uint32, sizes []renderer.DescriptorPoolSize) (renderer.DescriptorPool, error) {
	poolSizes := make([]vk.DescriptorPoolSize, len(sizes))
	for i, s := range sizes {
		poolSizes[i] = vk.DescriptorPoolSize{
			Type:            vk.DescriptorType(s.Type),
			DescriptorCount: s.Count,
		}
	}

	poolCreateInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if err := check("vkCreateDescriptorPool", vk.CreateDescriptorPool(d.device, &poolCreateInfo, nil, &pool)); err != nil {
		return 0, err
	}
	return renderer.DescriptorPool(d.descriptorPools.add(&descriptorPoolRecord{handle: pool})), nil
}

func (d *Driver) DestroyDescriptorPool(pool renderer.DescriptorPool) {
	record, ok := d.descriptorPools.remove(uint64(pool))
	if !ok {
		return
	}
	for _, id := range record.sets {
		d.descriptorSets.remove(id)
	}
	vk.DestroyDescriptorPool(d.device, record.handle, nil)
}

func (d *Driver) AllocateDescriptorSet(pool renderer.DescriptorPool, layout renderer.DescriptorSetLayout) (renderer.DescriptorSet, error) {
	record, ok := d.descriptorPools.get(uint64(pool))
	if !ok {
		return 0, errors.New("unknown descriptor pool")
	}
	layoutHandle, ok := d.setLayouts.get(uint64(layout))
	if !ok {
		return 0, errors.New("unknown descriptor set layout")
	}

	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     record.handle,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layoutHandle},
	}
	var set vk.DescriptorSet
	if err := check("vkAllocateDescriptorSets", vk.AllocateDescriptorSets(d.device, &allocateInfo, &set)); err != nil {
		return 0, err
	}

	id := d.descriptorSets.add(set)
	record.sets = append(record.sets, id)
	return renderer.DescriptorSet(id), nil
}

// UpdateDescriptorSet points binding 0 of set at buffer. rangeSize is the
// window visible to one draw; the dynamic offset slides it.
func (d *Driver) UpdateDescriptorSet(set renderer.DescriptorSet, buffer renderer.Buffer, rangeSize uint64) error {
	setHandle, ok := d.descriptorSets.get(uint64(set))
	if !ok {
		return errors.New("unknown descriptor set")
	}
	bufferHandle, ok := d.buffers.get(uint64(buffer))
	if !ok {
		return errors.New("unknown buffer")
	}

	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          setHandle,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: bufferHandle,
			Offset: 0,
			Range:  vk.DeviceSize(rangeSize),
		}},
	}
	vk.UpdateDescriptorSets(d.device, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	return nil
}
