package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer"
)

func (d *Driver) CreateImage(desc renderer.ImageDesc) (renderer.Image, renderer.Allocation, error) {
	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    vk.Format(desc.Format),
		Extent: vk.Extent3D{
			Width:  desc.Extent.Width,
			Height: desc.Extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(desc.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var image vk.Image
	if err := check("vkCreateImage", vk.CreateImage(d.device, &imageCreateInfo, nil, &image)); err != nil {
		return 0, 0, err
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.device, image, &requirements)
	alloc, err := d.allocate(requirements, desc.Memory)
	if err != nil {
		vk.DestroyImage(d.device, image, nil)
		return 0, 0, err
	}
	if err := check("vkBindImageMemory", vk.BindImageMemory(d.device, image, alloc.memory, 0)); err != nil {
		d.free(alloc)
		vk.DestroyImage(d.device, image, nil)
		return 0, 0, err
	}

	return renderer.Image(d.images.add(image)), renderer.Allocation(d.allocations.add(alloc)), nil
}

func (d *Driver) DestroyImage(image renderer.Image, alloc renderer.Allocation) {
	if i, ok := d.images.remove(uint64(image)); ok {
		vk.DestroyImage(d.device, i, nil)
	}
	if a, ok := d.allocations.remove(uint64(alloc)); ok {
		d.free(a)
	}
}

func subresourceRange(aspect renderer.ImageAspect) vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     vk.ImageAspectFlags(aspect),
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

func (d *Driver) CreateImageView(image renderer.Image, format renderer.Format, aspect renderer.ImageAspect) (renderer.ImageView, error) {
	handle, ok := d.images.get(uint64(image))
	if !ok {
		return 0, core.NewDriverError("vkCreateImageView", int32(vk.ErrorInitializationFailed))
	}
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:            vk.StructureTypeImageViewCreateInfo,
		Image:            handle,
		ViewType:         vk.ImageViewType2d,
		Format:           vk.Format(format),
		SubresourceRange: subresourceRange(aspect),
	}
	var view vk.ImageView
	if err := check("vkCreateImageView", vk.CreateImageView(d.device, &viewCreateInfo, nil, &view)); err != nil {
		return 0, err
	}
	return renderer.ImageView(d.imageViews.add(view)), nil
}

func (d *Driver) DestroyImageView(view renderer.ImageView) {
	if v, ok := d.imageViews.remove(uint64(view)); ok {
		vk.DestroyImageView(d.device, v, nil)
	}
}
