package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/renderer"
)

// commandPoolRecord tracks the buffers allocated from a pool so their ids can
// be dropped when the pool goes away.
type commandPoolRecord struct {
	handle  vk.CommandPool
	buffers []uint64
}

func (d *Driver) CreateCommandPool(transient bool) (renderer.CommandPool, error) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.queueFamily,
	}
	if transient {
		poolCreateInfo.Flags = vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit)
	}

	var pool vk.CommandPool
	if err := check("vkCreateCommandPool", vk.CreateCommandPool(d.device, &poolCreateInfo, nil, &pool)); err != nil {
		return 0, err
	}
	return renderer.CommandPool(d.commandPools.add(&commandPoolRecord{handle: pool})), nil
}

func (d *Driver) ResetCommandPool(pool renderer.CommandPool) error {
	record, ok := d.commandPools.get(uint64(pool))
	if !ok {
		return errors.New("unknown command pool")
	}
	return check("vkResetCommandPool", vk.ResetCommandPool(d.device, record.handle, 0))
}

func (d *Driver) DestroyCommandPool(pool renderer.CommandPool) {
	record, ok := d.commandPools.remove(uint64(pool))
	if !ok {
		return
	}
	for _, id := range record.buffers {
		d.commandBuffers.remove(id)
	}
	vk.DestroyCommandPool(d.device, record.handle, nil)
}

func (d *Driver) AllocateCommandBuffer(pool renderer.CommandPool) (renderer.CommandBuffer, error) {
	record, ok := d.commandPools.get(uint64(pool))
	if !ok {
		return 0, errors.New("unknown command pool")
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        record.handle,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	buffers := make([]vk.CommandBuffer, 1)
	if err := check("vkAllocateCommandBuffers", vk.AllocateCommandBuffers(d.device, &allocateInfo, buffers)); err != nil {
		return 0, err
	}

	id := d.commandBuffers.add(buffers[0])
	record.buffers = append(record.buffers, id)
	return renderer.CommandBuffer(id), nil
}

func (d *Driver) FreeCommandBuffer(pool renderer.CommandPool, cb renderer.CommandBuffer) {
	record, ok := d.commandPools.get(uint64(pool))
	if !ok {
		return
	}
	handle, ok := d.commandBuffers.remove(uint64(cb))
	if !ok {
		return
	}
	for i, id := range record.buffers {
		if id == uint64(cb) {
			record.buffers = append(record.buffers[:i], record.buffers[i+1:]...)
			break
		}
	}
	vk.FreeCommandBuffers(d.device, record.handle, 1, []vk.CommandBuffer{handle})
}

func (d *Driver) commandBuffer(cb renderer.CommandBuffer) vk.CommandBuffer {
	handle, _ := d.commandBuffers.get(uint64(cb))
	return handle
}

func (d *Driver) BeginCommandBuffer(cb renderer.CommandBuffer, oneTimeSubmit bool) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if oneTimeSubmit {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	return check("vkBeginCommandBuffer", vk.BeginCommandBuffer(d.commandBuffer(cb), &beginInfo))
}

func (d *Driver) EndCommandBuffer(cb renderer.CommandBuffer) error {
	return check("vkEndCommandBuffer", vk.EndCommandBuffer(d.commandBuffer(cb)))
}

func (d *Driver) CmdCopyBuffer(cb renderer.CommandBuffer, src, dst renderer.Buffer, size uint64) {
	srcBuffer, _ := d.buffers.get(uint64(src))
	dstBuffer, _ := d.buffers.get(uint64(dst))
	vk.CmdCopyBuffer(d.commandBuffer(cb), srcBuffer, dstBuffer, 1, []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(size),
	}})
}

func (d *Driver) CmdPipelineBarrier(cb renderer.CommandBuffer, barrier renderer.ImageBarrier) {
	image, _ := d.images.get(uint64(barrier.Image))
	vk.CmdPipelineBarrier(d.commandBuffer(cb),
		vk.PipelineStageFlags(barrier.SrcStage),
		vk.PipelineStageFlags(barrier.DstStage),
		0, 0, nil, 0, nil, 1,
		[]vk.ImageMemoryBarrier{{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(barrier.SrcAccess),
			DstAccessMask:       vk.AccessFlags(barrier.DstAccess),
			OldLayout:           vk.ImageLayout(barrier.OldLayout),
			NewLayout:           vk.ImageLayout(barrier.NewLayout),
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               image,
			SubresourceRange:    subresourceRange(barrier.Aspect),
		}})
}

func (d *Driver) CmdBeginRendering(cb renderer.CommandBuffer, info renderer.RenderingInfo) {
	colorView, _ := d.imageViews.get(uint64(info.ColorView))
	depthView, _ := d.imageViews.get(uint64(info.DepthView))

	colorAttachment := vk.RenderingAttachmentInfo{
		SType:       vk.StructureTypeRenderingAttachmentInfo,
		ImageView:   colorView,
		ImageLayout: vk.ImageLayout(info.ColorLayout),
		LoadOp:      vk.AttachmentLoadOpClear,
		StoreOp:     vk.AttachmentStoreOpStore,
		ClearValue:  vk.NewClearValue([]float32{info.ClearColor.R, info.ClearColor.G, info.ClearColor.B, info.ClearColor.A}),
	}
	depthAttachment := vk.RenderingAttachmentInfo{
		SType:       vk.StructureTypeRenderingAttachmentInfo,
		ImageView:   depthView,
		ImageLayout: vk.ImageLayout(info.DepthLayout),
		LoadOp:      vk.AttachmentLoadOpClear,
		StoreOp:     vk.AttachmentStoreOpDontCare,
		ClearValue:  vk.NewClearDepthStencil(info.ClearDepth, 0),
	}

	renderingInfo := vk.RenderingInfo{
		SType: vk.StructureTypeRenderingInfo,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: info.Area.X, Y: info.Area.Y},
			Extent: toExtent(info.Area.Extent),
		},
		LayerCount:           1,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.RenderingAttachmentInfo{colorAttachment},
		PDepthAttachment:     []vk.RenderingAttachmentInfo{depthAttachment},
	}
	d.cmds.cmdBeginRendering(d.commandBuffer(cb), &renderingInfo)
}

func (d *Driver) CmdEndRendering(cb renderer.CommandBuffer) {
	d.cmds.cmdEndRendering(d.commandBuffer(cb))
}

func (d *Driver) CmdBindPipeline(cb renderer.CommandBuffer, pipeline renderer.Pipeline) {
	handle, _ := d.pipelines.get(uint64(pipeline))
	vk.CmdBindPipeline(d.commandBuffer(cb), vk.PipelineBindPointGraphics, handle)
}

func (d *Driver) CmdSetViewport(cb renderer.CommandBuffer, viewport renderer.Viewport) {
	vk.CmdSetViewport(d.commandBuffer(cb), 0, 1, []vk.Viewport{{
		X:        viewport.X,
		Y:        viewport.Y,
		Width:    viewport.Width,
		Height:   viewport.Height,
		MinDepth: viewport.MinDepth,
		MaxDepth: viewport.MaxDepth,
	}})
}

func (d *Driver) CmdSetScissor(cb renderer.CommandBuffer, scissor renderer.Rect2D) {
	vk.CmdSetScissor(d.commandBuffer(cb), 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: scissor.X, Y: scissor.Y},
		Extent: toExtent(scissor.Extent),
	}})
}

func (d *Driver) CmdSetCullMode(cb renderer.CommandBuffer, mode renderer.CullMode) {
	d.cmds.cmdSetCullMode(d.commandBuffer(cb), vk.CullModeFlags(mode))
}

func (d *Driver) CmdSetFrontFace(cb renderer.CommandBuffer, face renderer.FrontFace) {
	d.cmds.cmdSetFrontFace(d.commandBuffer(cb), vk.FrontFace(face))
}

func (d *Driver) CmdSetPrimitiveTopology(cb renderer.CommandBuffer, topology renderer.PrimitiveTopology) {
	d.cmds.cmdSetPrimitiveTopology(d.commandBuffer(cb), vk.PrimitiveTopology(topology))
}

func (d *Driver) CmdBindVertexBuffer(cb renderer.CommandBuffer, buffer renderer.Buffer) {
	handle, _ := d.buffers.get(uint64(buffer))
	vk.CmdBindVertexBuffers(d.commandBuffer(cb), 0, 1, []vk.Buffer{handle}, []vk.DeviceSize{0})
}

func (d *Driver) CmdBindIndexBuffer(cb renderer.CommandBuffer, buffer renderer.Buffer) {
	handle, _ := d.buffers.get(uint64(buffer))
	vk.CmdBindIndexBuffer(d.commandBuffer(cb), handle, 0, vk.IndexTypeUint32)
}

func (d *Driver) CmdBindDescriptorSet(cb renderer.CommandBuffer, layout renderer.PipelineLayout, set renderer.DescriptorSet, dynamicOffset uint32) {
	layoutHandle, _ := d.pipelineLayouts.get(uint64(layout))
	setHandle, _ := d.descriptorSets.get(uint64(set))
	vk.CmdBindDescriptorSets(d.commandBuffer(cb), vk.PipelineBindPointGraphics, layoutHandle,
		0, 1, []vk.DescriptorSet{setHandle}, 1, []uint32{dynamicOffset})
}

func (d *Driver) CmdDrawIndexed(cb renderer.CommandBuffer, indexCount uint32) {
	vk.CmdDrawIndexed(d.commandBuffer(cb), indexCount, 1, 0, 0, 0)
}

func (d *Driver) QueueSubmit(queue renderer.Queue, info renderer.SubmitInfo) error {
	q, ok := d.queues.get(uint64(queue))
	if !ok {
		return errors.New("unknown queue")
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{d.commandBuffer(info.CommandBuffer)},
	}
	if wait, ok := d.semaphores.get(uint64(info.Wait)); ok {
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{wait}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{vk.PipelineStageFlags(info.WaitStage)}
	}
	if signal, ok := d.semaphores.get(uint64(info.Signal)); ok {
		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{signal}
	}
	fence := vk.NullFence
	if f, ok := d.fences.get(uint64(info.Fence)); ok {
		fence = f
	}

	return d.locks.SafeCall(QueueManagement, func() error {
		return check("vkQueueSubmit", vk.QueueSubmit(q, 1, []vk.SubmitInfo{submitInfo}, fence))
	})
}
