package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer"
)

// swapchainRecord keeps the ids issued for the swapchain's images. They are
// owned by the swapchain and go away with it.
type swapchainRecord struct {
	handle vk.Swapchain
	images []uint64
}

func (d *Driver) CreateSwapchain(desc renderer.SwapchainDesc) (renderer.Swapchain, error) {
	surface, ok := d.surfaceTable.get(uint64(desc.Surface))
	if !ok {
		return 0, errors.New("unknown surface")
	}
	oldSwapchain := vk.NullSwapchain
	if desc.Old != 0 {
		if old, ok := d.swapchains.get(uint64(desc.Old)); ok {
			oldSwapchain = old.handle
		}
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    desc.MinImages,
		ImageFormat:      vk.Format(desc.Format.Format),
		ImageColorSpace:  vk.ColorSpace(desc.Format.ColorSpace),
		ImageExtent:      toExtent(desc.Extent),
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     vk.SurfaceTransformIdentityBit,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vk.PresentMode(desc.PresentMode),
		Clipped:          vk.True,
		OldSwapchain:     oldSwapchain,
	}

	var swapchain vk.Swapchain
	if err := check("vkCreateSwapchainKHR", vk.CreateSwapchain(d.device, &swapchainCreateInfo, nil, &swapchain)); err != nil {
		return 0, err
	}

	var imageCount uint32
	if err := check("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(d.device, swapchain, &imageCount, nil)); err != nil {
		vk.DestroySwapchain(d.device, swapchain, nil)
		return 0, err
	}
	images := make([]vk.Image, imageCount)
	if err := check("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(d.device, swapchain, &imageCount, images)); err != nil {
		vk.DestroySwapchain(d.device, swapchain, nil)
		return 0, err
	}

	record := &swapchainRecord{handle: swapchain}
	for _, image := range images {
		record.images = append(record.images, d.images.add(image))
	}
	core.LogDebug("Swapchain created with %d images.", imageCount)

	return renderer.Swapchain(d.swapchains.add(record)), nil
}

func (d *Driver) DestroySwapchain(swapchain renderer.Swapchain) {
	record, ok := d.swapchains.remove(uint64(swapchain))
	if !ok {
		return
	}
	for _, id := range record.images {
		d.images.remove(id)
	}
	vk.DestroySwapchain(d.device, record.handle, nil)
}

func (d *Driver) SwapchainImages(swapchain renderer.Swapchain) ([]renderer.Image, error) {
	record, ok := d.swapchains.get(uint64(swapchain))
	if !ok {
		return nil, errors.New("unknown swapchain")
	}
	images := make([]renderer.Image, len(record.images))
	for i, id := range record.images {
		images[i] = renderer.Image(id)
	}
	return images, nil
}

func (d *Driver) AcquireNextImage(swapchain renderer.Swapchain, timeout uint64, semaphore renderer.Semaphore) (uint32, renderer.Result) {
	record, ok := d.swapchains.get(uint64(swapchain))
	if !ok {
		return 0, renderer.ErrorOutOfDate
	}
	sem, _ := d.semaphores.get(uint64(semaphore))

	var imageIndex uint32
	res := vk.AcquireNextImage(d.device, record.handle, timeout, sem, vk.NullFence, &imageIndex)
	return imageIndex, renderer.Result(res)
}

func (d *Driver) QueuePresent(queue renderer.Queue, swapchain renderer.Swapchain, imageIndex uint32, wait renderer.Semaphore) renderer.Result {
	q, ok := d.queues.get(uint64(queue))
	if !ok {
		return renderer.ErrorDeviceLost
	}
	record, ok := d.swapchains.get(uint64(swapchain))
	if !ok {
		return renderer.ErrorOutOfDate
	}

	presentInfo := vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{record.handle},
		PImageIndices:  []uint32{imageIndex},
	}
	if sem, ok := d.semaphores.get(uint64(wait)); ok {
		presentInfo.WaitSemaphoreCount = 1
		presentInfo.PWaitSemaphores = []vk.Semaphore{sem}
	}

	return d.locks.lockedResult("vkQueuePresentKHR", func() vk.Result {
		return vk.QueuePresent(q, &presentInfo)
	})
}
