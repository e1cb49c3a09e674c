package renderer

// SurfaceProvider is the windowing side of surface creation.
type SurfaceProvider interface {
	RequiredInstanceExtensions() []string
	// CreateWindowSurface takes the API instance as returned by the driver and
	// hands back the raw surface handle.
	CreateWindowSurface(instance interface{}) (uintptr, error)
}

// Driver is the explicit GPU API the renderer is written against. Calls that can
// fail return an error carrying the driver result. Calls whose non-success
// results are part of normal operation (fence waits, acquire, present) return
// the Result instead.
//
// A Driver binds to a single device after CreateDevice; every later call
// implicitly targets it.
type Driver interface {
	CreateInstance(desc InstanceDesc) (Instance, error)
	DestroyInstance(instance Instance)
	CreateSurface(instance Instance) (Surface, error)
	DestroySurface(instance Instance, surface Surface)
	SelectPhysicalDevice(instance Instance, surface Surface) (PhysicalDevice, DeviceInfo, error)
	CreateDevice(physical PhysicalDevice, info DeviceInfo) (Device, Queue, error)
	DestroyDevice(device Device)
	DeviceWaitIdle() error
	QueueWaitIdle(queue Queue) error

	SurfaceSupport(surface Surface) (SurfaceSupport, error)
	FormatSupportsDepthAttachment(format Format) bool

	CreateSwapchain(desc SwapchainDesc) (Swapchain, error)
	DestroySwapchain(swapchain Swapchain)
	SwapchainImages(swapchain Swapchain) ([]Image, error)

	CreateBuffer(size uint64, usage BufferUsage, memory MemoryUsage) (Buffer, Allocation, error)
	DestroyBuffer(buffer Buffer, allocation Allocation)
	WriteAllocation(allocation Allocation, offset uint64, data []byte) error
	ReadAllocation(allocation Allocation, offset uint64, dst []byte) error

	CreateImage(desc ImageDesc) (Image, Allocation, error)
	DestroyImage(image Image, allocation Allocation)
	CreateImageView(image Image, format Format, aspect ImageAspect) (ImageView, error)
	DestroyImageView(view ImageView)

	CreateFence(signaled bool) (Fence, error)
	DestroyFence(fence Fence)
	WaitForFence(fence Fence, timeout uint64) Result
	ResetFence(fence Fence) error
	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(semaphore Semaphore)

	CreateCommandPool(transient bool) (CommandPool, error)
	ResetCommandPool(pool CommandPool) error
	DestroyCommandPool(pool CommandPool)
	AllocateCommandBuffer(pool CommandPool) (CommandBuffer, error)
	FreeCommandBuffer(pool CommandPool, cb CommandBuffer)
	BeginCommandBuffer(cb CommandBuffer, oneTimeSubmit bool) error
	EndCommandBuffer(cb CommandBuffer) error

	CmdCopyBuffer(cb CommandBuffer, src, dst Buffer, size uint64)
	CmdPipelineBarrier(cb CommandBuffer, barrier ImageBarrier)
	CmdBeginRendering(cb CommandBuffer, info RenderingInfo)
	CmdEndRendering(cb CommandBuffer)
	CmdBindPipeline(cb CommandBuffer, pipeline Pipeline)
	CmdSetViewport(cb CommandBuffer, viewport Viewport)
	CmdSetScissor(cb CommandBuffer, scissor Rect2D)
	CmdSetCullMode(cb CommandBuffer, mode CullMode)
	CmdSetFrontFace(cb CommandBuffer, face FrontFace)
	CmdSetPrimitiveTopology(cb CommandBuffer, topology PrimitiveTopology)
	CmdBindVertexBuffer(cb CommandBuffer, buffer Buffer)
	CmdBindIndexBuffer(cb CommandBuffer, buffer Buffer)
	CmdBindDescriptorSet(cb CommandBuffer, layout PipelineLayout, set DescriptorSet, dynamicOffset uint32)
	CmdDrawIndexed(cb CommandBuffer, indexCount uint32)

	QueueSubmit(queue Queue, info SubmitInfo) error
	AcquireNextImage(swapchain Swapchain, timeout uint64, semaphore Semaphore) (uint32, Result)
	QueuePresent(queue Queue, swapchain Swapchain, imageIndex uint32, wait Semaphore) Result

	CreateDescriptorSetLayout(bindings []DescriptorBinding) (DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(layout DescriptorSetLayout)
	CreateDescriptorPool(maxSets uint32, sizes []DescriptorPoolSize) (DescriptorPool, error)
	DestroyDescriptorPool(pool DescriptorPool)
	AllocateDescriptorSet(pool DescriptorPool, layout DescriptorSetLayout) (DescriptorSet, error)
	UpdateDescriptorSet(set DescriptorSet, buffer Buffer, rangeSize uint64) error

	CreateShaderModule(code []byte) (ShaderModule, error)
	DestroyShaderModule(module ShaderModule)
	CreatePipelineLayout(setLayouts []DescriptorSetLayout) (PipelineLayout, error)
	DestroyPipelineLayout(layout PipelineLayout)
	CreateGraphicsPipeline(desc PipelineDesc) (Pipeline, error)
	DestroyPipeline(pipeline Pipeline)
}
