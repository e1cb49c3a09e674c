package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer"
)

func (d *Driver) CreateFence(signaled bool) (renderer.Fence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	if err := check("vkCreateFence", vk.CreateFence(d.device, &fenceCreateInfo, nil, &fence)); err != nil {
		return 0, err
	}
	return renderer.Fence(d.fences.add(fence)), nil
}

func (d *Driver) DestroyFence(fence renderer.Fence) {
	if f, ok := d.fences.remove(uint64(fence)); ok {
		vk.DestroyFence(d.device, f, nil)
	}
}

func (d *Driver) WaitForFence(fence renderer.Fence, timeout uint64) renderer.Result {
	f, ok := d.fences.get(uint64(fence))
	if !ok {
		return renderer.ErrorDeviceLost
	}
	result := vk.WaitForFences(d.device, 1, []vk.Fence{f}, vk.True, timeout)
	switch result {
	case vk.Success:
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
	case vk.ErrorDeviceLost:
		core.LogError("vk_fence_wait - VK_ERROR_DEVICE_LOST.")
	default:
		core.LogError("vk_fence_wait - %s", core.ResultName(int32(result)))
	}
	return renderer.Result(result)
}

func (d *Driver) ResetFence(fence renderer.Fence) error {
	f, ok := d.fences.get(uint64(fence))
	if !ok {
		return core.NewDriverError("vkResetFences", int32(vk.ErrorDeviceLost))
	}
	return check("vkResetFences", vk.ResetFences(d.device, 1, []vk.Fence{f}))
}

func (d *Driver) CreateSemaphore() (renderer.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if err := check("vkCreateSemaphore", vk.CreateSemaphore(d.device, &semaphoreCreateInfo, nil, &semaphore)); err != nil {
		return 0, err
	}
	return renderer.Semaphore(d.semaphores.add(semaphore)), nil
}

func (d *Driver) DestroySemaphore(semaphore renderer.Semaphore) {
	if s, ok := d.semaphores.remove(uint64(semaphore)); ok {
		vk.DestroySemaphore(d.device, s, nil)
	}
}
