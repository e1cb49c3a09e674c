package renderer

// ClearColor used for every frame.
var frameClearColor = ClearColor{R: 0.01, G: 0.01, B: 0.033, A: 1.0}

// DrawCommand is one indexed draw of a cached mesh with its uniform offset.
type DrawCommand struct {
	Mesh          MeshBuffers
	DynamicOffset uint32
}

// RenderTarget is what a frame renders into.
type RenderTarget struct {
	Image  Image
	View   ImageView
	Extent Extent2D
	Depth  *DepthResource
}

// Executor records and submits the per-frame command buffer.
type Executor struct {
	ctx      *DeviceContext
	pipeline *GraphicsPipeline
}

func NewExecutor(ctx *DeviceContext, pipeline *GraphicsPipeline) *Executor {
	return &Executor{ctx: ctx, pipeline: pipeline}
}

// Record fills cb with one frame: transition the target to color attachment,
// render every draw into color and depth, then transition to present.
func (e *Executor) Record(cb CommandBuffer, set DescriptorSet, target RenderTarget, draws []DrawCommand) error {
	d := e.ctx.Driver

	if err := d.BeginCommandBuffer(cb, true); err != nil {
		return err
	}

	d.CmdPipelineBarrier(cb, ImageBarrier{
		Image:     target.Image,
		Aspect:    ImageAspectColor,
		OldLayout: ImageLayoutUndefined,
		NewLayout: ImageLayoutColorAttachmentOptimal,
		SrcAccess: AccessNone,
		DstAccess: AccessColorAttachmentWrite,
		SrcStage:  StageTopOfPipe,
		DstStage:  StageColorAttachmentOutput,
	})
	d.CmdPipelineBarrier(cb, ImageBarrier{
		Image:     target.Depth.Image,
		Aspect:    ImageAspectDepth,
		OldLayout: ImageLayoutUndefined,
		NewLayout: ImageLayoutDepthAttachmentOptimal,
		// The depth image is shared by every frame in flight.
		SrcAccess: AccessDepthStencilAttachmentWrite,
		DstAccess: AccessDepthStencilAttachmentRead | AccessDepthStencilAttachmentWrite,
		SrcStage:  StageEarlyFragmentTests | StageLateFragmentTests,
		DstStage:  StageEarlyFragmentTests | StageLateFragmentTests,
	})

	area := Rect2D{Extent: target.Extent}
	d.CmdBeginRendering(cb, RenderingInfo{
		Area:        area,
		ColorView:   target.View,
		ColorLayout: ImageLayoutColorAttachmentOptimal,
		ClearColor:  frameClearColor,
		DepthView:   target.Depth.View,
		DepthLayout: ImageLayoutDepthAttachmentOptimal,
		ClearDepth:  1.0,
	})

	d.CmdBindPipeline(cb, e.pipeline.Handle)
	d.CmdSetViewport(cb, Viewport{
		Width:    float32(target.Extent.Width),
		Height:   float32(target.Extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	})
	d.CmdSetScissor(cb, area)
	d.CmdSetCullMode(cb, CullModeNone)
	d.CmdSetFrontFace(cb, FrontFaceClockwise)
	d.CmdSetPrimitiveTopology(cb, PrimitiveTopologyTriangleList)

	for _, draw := range draws {
		d.CmdBindVertexBuffer(cb, draw.Mesh.Vertex.Buffer)
		d.CmdBindIndexBuffer(cb, draw.Mesh.Index.Buffer)
		d.CmdBindDescriptorSet(cb, e.pipeline.Layout, set, draw.DynamicOffset)
		d.CmdDrawIndexed(cb, draw.Mesh.IndexCount)
	}

	d.CmdEndRendering(cb)

	d.CmdPipelineBarrier(cb, ImageBarrier{
		Image:     target.Image,
		Aspect:    ImageAspectColor,
		OldLayout: ImageLayoutColorAttachmentOptimal,
		NewLayout: ImageLayoutPresentSrc,
		SrcAccess: AccessColorAttachmentWrite,
		DstAccess: AccessNone,
		SrcStage:  StageColorAttachmentOutput,
		DstStage:  StageBottomOfPipe,
	})

	return d.EndCommandBuffer(cb)
}

// Submit queues the slot's command buffer. It waits on the acquire semaphore
// before color output and signals release and the slot fence.
func (e *Executor) Submit(slot *FrameSlot, release Semaphore) error {
	return e.ctx.Driver.QueueSubmit(e.ctx.Queue, SubmitInfo{
		CommandBuffer: slot.CommandBuffer,
		Wait:          slot.AcquireSemaphore,
		WaitStage:     StageColorAttachmentOutput,
		Signal:        release,
		Fence:         slot.Fence,
	})
}
