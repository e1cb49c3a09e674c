// Package rendertest provides an in-memory renderer.Driver for tests.
package rendertest

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer"
)

// Kind names a class of driver object.
type Kind string

const (
	KindInstance            Kind = "instance"
	KindSurface             Kind = "surface"
	KindDevice              Kind = "device"
	KindSwapchain           Kind = "swapchain"
	KindImage               Kind = "image"
	KindImageView           Kind = "image view"
	KindBuffer              Kind = "buffer"
	KindFence               Kind = "fence"
	KindSemaphore           Kind = "semaphore"
	KindCommandPool         Kind = "command pool"
	KindCommandBuffer       Kind = "command buffer"
	KindShaderModule        Kind = "shader module"
	KindDescriptorSetLayout Kind = "descriptor set layout"
	KindDescriptorPool      Kind = "descriptor pool"
	KindDescriptorSet       Kind = "descriptor set"
	KindPipelineLayout      Kind = "pipeline layout"
	KindPipeline            Kind = "pipeline"
)

// Op names a recorded command.
type Op string

const (
	OpCopyBuffer        Op = "copy buffer"
	OpBarrier           Op = "barrier"
	OpBeginRendering    Op = "begin rendering"
	OpEndRendering      Op = "end rendering"
	OpBindPipeline      Op = "bind pipeline"
	OpSetViewport       Op = "set viewport"
	OpSetScissor        Op = "set scissor"
	OpSetCullMode       Op = "set cull mode"
	OpSetFrontFace      Op = "set front face"
	OpSetTopology       Op = "set topology"
	OpBindVertexBuffer  Op = "bind vertex buffer"
	OpBindIndexBuffer   Op = "bind index buffer"
	OpBindDescriptorSet Op = "bind descriptor set"
	OpDrawIndexed       Op = "draw indexed"
	OpResetCommandPool  Op = "reset command pool"
	OpSubmit            Op = "submit"
	OpPresent           Op = "present"
	OpWaitFence         Op = "wait fence"
	OpResetFence        Op = "reset fence"
)

// Call is one entry of the command log.
type Call struct {
	Op            Op
	CommandBuffer renderer.CommandBuffer
	Pool          renderer.CommandPool
	Fence         renderer.Fence
	Buffer        renderer.Buffer
	Dst           renderer.Buffer
	Size          uint64
	Count         uint32
	DynamicOffset uint32
	Barrier       renderer.ImageBarrier
	ImageIndex    uint32
}

// AcquireStep scripts one AcquireNextImage call.
type AcquireStep struct {
	Index  uint32
	Result renderer.Result
}

type buffer struct {
	data   []byte
	usage  renderer.BufferUsage
	memory renderer.MemoryUsage
	alloc  renderer.Allocation
}

type fence struct {
	signaled bool
	pending  bool
}

type copyCmd struct {
	src, dst renderer.Buffer
	size     uint64
}

// Driver is a renderer.Driver that keeps every object in memory. Submitted
// copies execute at submit time. Submitted fences signal at once unless the
// GPU is held, in which case they stay pending until ReleaseGPU.
type Driver struct {
	mu   sync.Mutex
	cond *sync.Cond

	next    uint64
	live    *swiss.Map[uint64, Kind]
	buffers *swiss.Map[renderer.Buffer, *buffer]
	allocs  *swiss.Map[renderer.Allocation, renderer.Buffer]
	fences  *swiss.Map[renderer.Fence, *fence]
	// recorded copies per command buffer, run on submit
	copies     *swiss.Map[renderer.CommandBuffer, []copyCmd]
	poolOwner  *swiss.Map[renderer.CommandBuffer, renderer.CommandPool]
	setOwner   *swiss.Map[renderer.DescriptorSet, renderer.DescriptorPool]
	swapImages *swiss.Map[renderer.Swapchain, []renderer.Image]

	held bool
	log  []Call

	acquireScript []AcquireStep
	presentScript []renderer.Result
	nextImage     uint32
	imageCount    uint32

	failures map[string]renderer.Result

	extent         renderer.Extent2D
	minImageCount  uint32
	maxImageCount  uint32
	formats        []renderer.SurfaceFormat
	minUBOAlign    uint64
	depthFormats   map[renderer.Format]bool
	swapchainsMade int
	violations     []string
}

func NewDriver() *Driver {
	d := &Driver{
		live:          swiss.NewMap[uint64, Kind](128),
		buffers:       swiss.NewMap[renderer.Buffer, *buffer](64),
		allocs:        swiss.NewMap[renderer.Allocation, renderer.Buffer](64),
		fences:        swiss.NewMap[renderer.Fence, *fence](8),
		copies:        swiss.NewMap[renderer.CommandBuffer, []copyCmd](8),
		poolOwner:     swiss.NewMap[renderer.CommandBuffer, renderer.CommandPool](8),
		setOwner:      swiss.NewMap[renderer.DescriptorSet, renderer.DescriptorPool](8),
		swapImages:    swiss.NewMap[renderer.Swapchain, []renderer.Image](2),
		failures:      make(map[string]renderer.Result),
		extent:        renderer.Extent2D{Width: 800, Height: 600},
		minImageCount: 2,
		formats: []renderer.SurfaceFormat{
			{Format: renderer.FormatB8G8R8A8Unorm, ColorSpace: renderer.ColorSpaceSrgbNonlinear},
			{Format: renderer.FormatB8G8R8A8Srgb, ColorSpace: renderer.ColorSpaceSrgbNonlinear},
		},
		minUBOAlign:  256,
		depthFormats: map[renderer.Format]bool{renderer.FormatD32Sfloat: true},
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

var _ renderer.Driver = (*Driver)(nil)

// Configuration. Call these before or between frames.

func (d *Driver) SetSurfaceExtent(width, height uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.extent = renderer.Extent2D{Width: width, Height: height}
}

// SetMinImageCount sets the surface minimum; swapchains get one more.
func (d *Driver) SetMinImageCount(n uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.minImageCount = n
}

func (d *Driver) SetMinUniformAlignment(align uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.minUBOAlign = align
}

func (d *Driver) SetSurfaceFormats(formats ...renderer.SurfaceFormat) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.formats = formats
}

// Fail makes every later call of op return res.
func (d *Driver) Fail(op string, res renderer.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[op] = res
}

func (d *Driver) ScriptAcquire(steps ...AcquireStep) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acquireScript = append(d.acquireScript, steps...)
}

func (d *Driver) ScriptPresent(results ...renderer.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presentScript = append(d.presentScript, results...)
}

// HoldGPU keeps fences submitted from now on unsignaled.
func (d *Driver) HoldGPU() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.held = true
}

// ReleaseGPU signals every pending fence and stops holding.
func (d *Driver) ReleaseGPU() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.held = false
	d.fences.Iter(func(_ renderer.Fence, f *fence) bool {
		if f.pending {
			f.pending = false
			f.signaled = true
		}
		return false
	})
	d.cond.Broadcast()
}

// Inspection.

func (d *Driver) LiveCount(kinds ...Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	d.live.Iter(func(_ uint64, k Kind) bool {
		if len(kinds) == 0 {
			n++
			return false
		}
		for _, want := range kinds {
			if k == want {
				n++
				break
			}
		}
		return false
	})
	return n
}

func (d *Driver) Live(handle uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live.Has(handle)
}

// Calls returns a copy of the command log, optionally filtered by op.
func (d *Driver) Calls(ops ...Op) []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Call, 0, len(d.log))
	for _, c := range d.log {
		if len(ops) == 0 {
			out = append(out, c)
			continue
		}
		for _, op := range ops {
			if c.Op == op {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func (d *Driver) ClearCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log = nil
}

func (d *Driver) SwapchainsCreated() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.swapchainsMade
}

func (d *Driver) BufferContents(b renderer.Buffer) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, ok := d.buffers.Get(b)
	if !ok {
		return nil
	}
	return append([]byte(nil), buf.data...)
}

// Violations lists destroy-order mistakes seen so far.
func (d *Driver) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.violations...)
}

// internals, called with mu held

func (d *Driver) failure(op string) error {
	if res, ok := d.failures[op]; ok {
		return core.NewDriverError(op, int32(res))
	}
	return nil
}

func (d *Driver) create(kind Kind) uint64 {
	d.next++
	d.live.Put(d.next, kind)
	return d.next
}

func (d *Driver) destroy(handle uint64, kind Kind) {
	k, ok := d.live.Get(handle)
	if !ok {
		d.violations = append(d.violations, fmt.Sprintf("destroy of unknown %s %d", kind, handle))
		return
	}
	if k != kind {
		d.violations = append(d.violations, fmt.Sprintf("destroy of %s %d as %s", k, handle, kind))
	}
	d.live.Delete(handle)
}

func (d *Driver) countLocked(kinds ...Kind) int {
	n := 0
	d.live.Iter(func(_ uint64, k Kind) bool {
		for _, want := range kinds {
			if k == want {
				n++
			}
		}
		return false
	})
	return n
}

func (d *Driver) record(c Call) {
	d.log = append(d.log, c)
}

func (d *Driver) anyPending() bool {
	pending := false
	d.fences.Iter(func(_ renderer.Fence, f *fence) bool {
		pending = f.pending
		return pending
	})
	return pending
}

// Bootstrap

func (d *Driver) CreateInstance(desc renderer.InstanceDesc) (renderer.Instance, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure("CreateInstance"); err != nil {
		return 0, err
	}
	return renderer.Instance(d.create(KindInstance)), nil
}

func (d *Driver) DestroyInstance(instance renderer.Instance) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := d.countLocked(KindSurface, KindDevice); n > 0 {
		d.violations = append(d.violations, fmt.Sprintf("instance destroyed with %d children", n))
	}
	d.destroy(uint64(instance), KindInstance)
}

func (d *Driver) CreateSurface(instance renderer.Instance) (renderer.Surface, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure("CreateSurface"); err != nil {
		return 0, err
	}
	return renderer.Surface(d.create(KindSurface)), nil
}

func (d *Driver) DestroySurface(instance renderer.Instance, surface renderer.Surface) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := d.countLocked(KindSwapchain); n > 0 {
		d.violations = append(d.violations, "surface destroyed with a live swapchain")
	}
	d.destroy(uint64(surface), KindSurface)
}

func (d *Driver) SelectPhysicalDevice(instance renderer.Instance, surface renderer.Surface) (renderer.PhysicalDevice, renderer.DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure("SelectPhysicalDevice"); err != nil {
		return 0, renderer.DeviceInfo{}, err
	}
	return renderer.PhysicalDevice(1), renderer.DeviceInfo{
		Name:                            "rendertest",
		MinUniformBufferOffsetAlignment: d.minUBOAlign,
	}, nil
}

func (d *Driver) CreateDevice(physical renderer.PhysicalDevice, info renderer.DeviceInfo) (renderer.Device, renderer.Queue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure("CreateDevice"); err != nil {
		return 0, 0, err
	}
	return renderer.Device(d.create(KindDevice)), renderer.Queue(1), nil
}

func (d *Driver) DestroyDevice(device renderer.Device) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := d.live.Count() - d.countLocked(KindInstance, KindSurface, KindDevice); n > 0 {
		d.violations = append(d.violations, fmt.Sprintf("device destroyed with %d live objects", n))
	}
	d.destroy(uint64(device), KindDevice)
}

func (d *Driver) DeviceWaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.anyPending() {
		d.cond.Wait()
	}
	return nil
}

func (d *Driver) QueueWaitIdle(queue renderer.Queue) error {
	return d.DeviceWaitIdle()
}

// Surface

func (d *Driver) SurfaceSupport(surface renderer.Surface) (renderer.SurfaceSupport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return renderer.SurfaceSupport{
		Capabilities: renderer.SurfaceCapabilities{
			MinImageCount:  d.minImageCount,
			MaxImageCount:  d.maxImageCount,
			CurrentExtent:  d.extent,
			MinImageExtent: renderer.Extent2D{Width: 0, Height: 0},
			MaxImageExtent: renderer.Extent2D{Width: 16384, Height: 16384},
		},
		Formats:      append([]renderer.SurfaceFormat(nil), d.formats...),
		PresentModes: []renderer.PresentMode{renderer.PresentModeFifo, renderer.PresentModeMailbox},
	}, nil
}

func (d *Driver) FormatSupportsDepthAttachment(format renderer.Format) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.depthFormats[format]
}

// Swapchain

func (d *Driver) CreateSwapchain(desc renderer.SwapchainDesc) (renderer.Swapchain, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure("CreateSwapchain"); err != nil {
		return 0, err
	}
	sc := renderer.Swapchain(d.create(KindSwapchain))
	images := make([]renderer.Image, desc.MinImages)
	for i := range images {
		// Owned by the swapchain, so not tracked as live images.
		d.next++
		images[i] = renderer.Image(d.next)
	}
	d.swapImages.Put(sc, images)
	d.imageCount = desc.MinImages
	d.nextImage = 0
	d.swapchainsMade++
	return sc, nil
}

func (d *Driver) DestroySwapchain(swapchain renderer.Swapchain) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.swapImages.Delete(swapchain)
	d.destroy(uint64(swapchain), KindSwapchain)
}

func (d *Driver) SwapchainImages(swapchain renderer.Swapchain) ([]renderer.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	images, ok := d.swapImages.Get(swapchain)
	if !ok {
		return nil, errors.Newf("unknown swapchain %d", swapchain)
	}
	return append([]renderer.Image(nil), images...), nil
}

// Buffers

func (d *Driver) CreateBuffer(size uint64, usage renderer.BufferUsage, memory renderer.MemoryUsage) (renderer.Buffer, renderer.Allocation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure("CreateBuffer"); err != nil {
		return 0, 0, err
	}
	b := renderer.Buffer(d.create(KindBuffer))
	d.next++
	alloc := renderer.Allocation(d.next)
	d.buffers.Put(b, &buffer{data: make([]byte, size), usage: usage, memory: memory, alloc: alloc})
	d.allocs.Put(alloc, b)
	return b, alloc, nil
}

func (d *Driver) DestroyBuffer(b renderer.Buffer, allocation renderer.Allocation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffers.Delete(b)
	d.allocs.Delete(allocation)
	d.destroy(uint64(b), KindBuffer)
}

func (d *Driver) mapped(allocation renderer.Allocation, offset uint64, n int) (*buffer, error) {
	b, ok := d.allocs.Get(allocation)
	if !ok {
		return nil, errors.Newf("unknown allocation %d", allocation)
	}
	buf, _ := d.buffers.Get(b)
	if !buf.memory.HostVisible() {
		return nil, core.NewDriverError("vkMapMemory", -5)
	}
	if offset+uint64(n) > uint64(len(buf.data)) {
		return nil, errors.Newf("range %d+%d outside allocation of %d bytes", offset, n, len(buf.data))
	}
	return buf, nil
}

func (d *Driver) WriteAllocation(allocation renderer.Allocation, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, err := d.mapped(allocation, offset, len(data))
	if err != nil {
		return err
	}
	copy(buf.data[offset:], data)
	return nil
}

func (d *Driver) ReadAllocation(allocation renderer.Allocation, offset uint64, dst []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, err := d.mapped(allocation, offset, len(dst))
	if err != nil {
		return err
	}
	copy(dst, buf.data[offset:])
	return nil
}

// Images

func (d *Driver) CreateImage(desc renderer.ImageDesc) (renderer.Image, renderer.Allocation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure("CreateImage"); err != nil {
		return 0, 0, err
	}
	img := renderer.Image(d.create(KindImage))
	d.next++
	return img, renderer.Allocation(d.next), nil
}

func (d *Driver) DestroyImage(image renderer.Image, allocation renderer.Allocation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(uint64(image), KindImage)
}

func (d *Driver) CreateImageView(image renderer.Image, format renderer.Format, aspect renderer.ImageAspect) (renderer.ImageView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return renderer.ImageView(d.create(KindImageView)), nil
}

func (d *Driver) DestroyImageView(view renderer.ImageView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(uint64(view), KindImageView)
}

// Sync

func (d *Driver) CreateFence(signaled bool) (renderer.Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := renderer.Fence(d.create(KindFence))
	d.fences.Put(f, &fence{signaled: signaled})
	return f, nil
}

func (d *Driver) DestroyFence(f renderer.Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.fences.Get(f); ok && st.pending {
		d.violations = append(d.violations, fmt.Sprintf("fence %d destroyed while pending", f))
	}
	d.fences.Delete(f)
	d.destroy(uint64(f), KindFence)
}

// WaitForFence blocks on a held fence only for an unbounded timeout; any other
// timeout reports renderer.Timeout straight away.
func (d *Driver) WaitForFence(f renderer.Fence, timeout uint64) renderer.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Call{Op: OpWaitFence, Fence: f})
	for {
		st, ok := d.fences.Get(f)
		if !ok {
			return renderer.ErrorDeviceLost
		}
		if st.signaled {
			return renderer.Success
		}
		if !st.pending {
			// Never submitted: nothing will ever signal it.
			return renderer.Timeout
		}
		if timeout != renderer.Unbounded {
			return renderer.Timeout
		}
		d.cond.Wait()
	}
}

func (d *Driver) ResetFence(f renderer.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.fences.Get(f)
	if !ok {
		return errors.Newf("unknown fence %d", f)
	}
	if st.pending {
		d.violations = append(d.violations, fmt.Sprintf("fence %d reset while pending", f))
	}
	st.signaled = false
	d.record(Call{Op: OpResetFence, Fence: f})
	return nil
}

func (d *Driver) CreateSemaphore() (renderer.Semaphore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure("CreateSemaphore"); err != nil {
		return 0, err
	}
	return renderer.Semaphore(d.create(KindSemaphore)), nil
}

func (d *Driver) DestroySemaphore(s renderer.Semaphore) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(uint64(s), KindSemaphore)
}

// Commands

func (d *Driver) CreateCommandPool(transient bool) (renderer.CommandPool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure("CreateCommandPool"); err != nil {
		return 0, err
	}
	return renderer.CommandPool(d.create(KindCommandPool)), nil
}

func (d *Driver) ResetCommandPool(pool renderer.CommandPool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.poolOwner.Iter(func(cb renderer.CommandBuffer, p renderer.CommandPool) bool {
		if p == pool {
			d.copies.Delete(cb)
		}
		return false
	})
	d.record(Call{Op: OpResetCommandPool, Pool: pool})
	return nil
}

func (d *Driver) DestroyCommandPool(pool renderer.CommandPool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var owned []renderer.CommandBuffer
	d.poolOwner.Iter(func(cb renderer.CommandBuffer, p renderer.CommandPool) bool {
		if p == pool {
			owned = append(owned, cb)
		}
		return false
	})
	for _, cb := range owned {
		d.poolOwner.Delete(cb)
		d.copies.Delete(cb)
		d.destroy(uint64(cb), KindCommandBuffer)
	}
	d.destroy(uint64(pool), KindCommandPool)
}

func (d *Driver) AllocateCommandBuffer(pool renderer.CommandPool) (renderer.CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cb := renderer.CommandBuffer(d.create(KindCommandBuffer))
	d.poolOwner.Put(cb, pool)
	return cb, nil
}

func (d *Driver) FreeCommandBuffer(pool renderer.CommandPool, cb renderer.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.poolOwner.Delete(cb)
	d.copies.Delete(cb)
	d.destroy(uint64(cb), KindCommandBuffer)
}

func (d *Driver) BeginCommandBuffer(cb renderer.CommandBuffer, oneTimeSubmit bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.copies.Delete(cb)
	return nil
}

func (d *Driver) EndCommandBuffer(cb renderer.CommandBuffer) error {
	return nil
}

// Recording

func (d *Driver) CmdCopyBuffer(cb renderer.CommandBuffer, src, dst renderer.Buffer, size uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.buffers.Get(src); !ok || s.usage&renderer.BufferUsageTransferSrc == 0 {
		d.violations = append(d.violations, fmt.Sprintf("copy from buffer %d without transfer src usage", src))
	}
	if t, ok := d.buffers.Get(dst); !ok || t.usage&renderer.BufferUsageTransferDst == 0 {
		d.violations = append(d.violations, fmt.Sprintf("copy to buffer %d without transfer dst usage", dst))
	}
	cmds, _ := d.copies.Get(cb)
	d.copies.Put(cb, append(cmds, copyCmd{src: src, dst: dst, size: size}))
	d.record(Call{Op: OpCopyBuffer, CommandBuffer: cb, Buffer: src, Dst: dst, Size: size})
}

func (d *Driver) simple(cb renderer.CommandBuffer, op Op) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Call{Op: op, CommandBuffer: cb})
}

func (d *Driver) CmdPipelineBarrier(cb renderer.CommandBuffer, barrier renderer.ImageBarrier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Call{Op: OpBarrier, CommandBuffer: cb, Barrier: barrier})
}

func (d *Driver) CmdBeginRendering(cb renderer.CommandBuffer, info renderer.RenderingInfo) {
	d.simple(cb, OpBeginRendering)
}

func (d *Driver) CmdEndRendering(cb renderer.CommandBuffer) {
	d.simple(cb, OpEndRendering)
}

func (d *Driver) CmdBindPipeline(cb renderer.CommandBuffer, pipeline renderer.Pipeline) {
	d.simple(cb, OpBindPipeline)
}

func (d *Driver) CmdSetViewport(cb renderer.CommandBuffer, viewport renderer.Viewport) {
	d.simple(cb, OpSetViewport)
}

func (d *Driver) CmdSetScissor(cb renderer.CommandBuffer, scissor renderer.Rect2D) {
	d.simple(cb, OpSetScissor)
}

func (d *Driver) CmdSetCullMode(cb renderer.CommandBuffer, mode renderer.CullMode) {
	d.simple(cb, OpSetCullMode)
}

func (d *Driver) CmdSetFrontFace(cb renderer.CommandBuffer, face renderer.FrontFace) {
	d.simple(cb, OpSetFrontFace)
}

func (d *Driver) CmdSetPrimitiveTopology(cb renderer.CommandBuffer, topology renderer.PrimitiveTopology) {
	d.simple(cb, OpSetTopology)
}

func (d *Driver) CmdBindVertexBuffer(cb renderer.CommandBuffer, b renderer.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Call{Op: OpBindVertexBuffer, CommandBuffer: cb, Buffer: b})
}

func (d *Driver) CmdBindIndexBuffer(cb renderer.CommandBuffer, b renderer.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Call{Op: OpBindIndexBuffer, CommandBuffer: cb, Buffer: b})
}

func (d *Driver) CmdBindDescriptorSet(cb renderer.CommandBuffer, layout renderer.PipelineLayout, set renderer.DescriptorSet, dynamicOffset uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Call{Op: OpBindDescriptorSet, CommandBuffer: cb, DynamicOffset: dynamicOffset})
}

func (d *Driver) CmdDrawIndexed(cb renderer.CommandBuffer, indexCount uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Call{Op: OpDrawIndexed, CommandBuffer: cb, Count: indexCount})
}

// Queue

func (d *Driver) QueueSubmit(queue renderer.Queue, info renderer.SubmitInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure("QueueSubmit"); err != nil {
		return err
	}
	cmds, _ := d.copies.Get(info.CommandBuffer)
	for _, c := range cmds {
		src, ok1 := d.buffers.Get(c.src)
		dst, ok2 := d.buffers.Get(c.dst)
		if !ok1 || !ok2 {
			d.violations = append(d.violations, "submitted copy references a destroyed buffer")
			continue
		}
		copy(dst.data[:c.size], src.data[:c.size])
	}
	if info.Fence != 0 {
		f, ok := d.fences.Get(info.Fence)
		if !ok {
			return errors.Newf("unknown fence %d", info.Fence)
		}
		if f.signaled || f.pending {
			d.violations = append(d.violations, fmt.Sprintf("fence %d submitted without a reset", info.Fence))
		}
		if d.held {
			f.pending = true
		} else {
			f.signaled = true
		}
	}
	d.record(Call{Op: OpSubmit, CommandBuffer: info.CommandBuffer, Fence: info.Fence})
	return nil
}

func (d *Driver) AcquireNextImage(swapchain renderer.Swapchain, timeout uint64, semaphore renderer.Semaphore) (uint32, renderer.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.acquireScript) > 0 {
		step := d.acquireScript[0]
		d.acquireScript = d.acquireScript[1:]
		return step.Index, step.Result
	}
	if d.imageCount == 0 {
		return 0, renderer.ErrorOutOfDate
	}
	idx := d.nextImage
	d.nextImage = (d.nextImage + 1) % d.imageCount
	return idx, renderer.Success
}

func (d *Driver) QueuePresent(queue renderer.Queue, swapchain renderer.Swapchain, imageIndex uint32, wait renderer.Semaphore) renderer.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Call{Op: OpPresent, ImageIndex: imageIndex})
	if len(d.presentScript) > 0 {
		res := d.presentScript[0]
		d.presentScript = d.presentScript[1:]
		return res
	}
	return renderer.Success
}

// Descriptors and pipeline

func (d *Driver) CreateDescriptorSetLayout(bindings []renderer.DescriptorBinding) (renderer.DescriptorSetLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return renderer.DescriptorSetLayout(d.create(KindDescriptorSetLayout)), nil
}

func (d *Driver) DestroyDescriptorSetLayout(layout renderer.DescriptorSetLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(uint64(layout), KindDescriptorSetLayout)
}

func (d *Driver) CreateDescriptorPool(maxSets uint32, sizes []renderer.DescriptorPoolSize) (renderer.DescriptorPool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return renderer.DescriptorPool(d.create(KindDescriptorPool)), nil
}

func (d *Driver) DestroyDescriptorPool(pool renderer.DescriptorPool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var owned []renderer.DescriptorSet
	d.setOwner.Iter(func(s renderer.DescriptorSet, p renderer.DescriptorPool) bool {
		if p == pool {
			owned = append(owned, s)
		}
		return false
	})
	for _, s := range owned {
		d.setOwner.Delete(s)
		d.destroy(uint64(s), KindDescriptorSet)
	}
	d.destroy(uint64(pool), KindDescriptorPool)
}

func (d *Driver) AllocateDescriptorSet(pool renderer.DescriptorPool, layout renderer.DescriptorSetLayout) (renderer.DescriptorSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := renderer.DescriptorSet(d.create(KindDescriptorSet))
	d.setOwner.Put(s, pool)
	return s, nil
}

func (d *Driver) UpdateDescriptorSet(set renderer.DescriptorSet, b renderer.Buffer, rangeSize uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.buffers.Has(b) {
		return errors.Newf("unknown buffer %d", b)
	}
	return nil
}

func (d *Driver) CreateShaderModule(code []byte) (renderer.ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(code) == 0 || len(code)%4 != 0 {
		return 0, core.NewDriverError("vkCreateShaderModule", -3)
	}
	return renderer.ShaderModule(d.create(KindShaderModule)), nil
}

func (d *Driver) DestroyShaderModule(module renderer.ShaderModule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(uint64(module), KindShaderModule)
}

func (d *Driver) CreatePipelineLayout(setLayouts []renderer.DescriptorSetLayout) (renderer.PipelineLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return renderer.PipelineLayout(d.create(KindPipelineLayout)), nil
}

func (d *Driver) DestroyPipelineLayout(layout renderer.PipelineLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(uint64(layout), KindPipelineLayout)
}

func (d *Driver) CreateGraphicsPipeline(desc renderer.PipelineDesc) (renderer.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure("CreateGraphicsPipeline"); err != nil {
		return 0, err
	}
	return renderer.Pipeline(d.create(KindPipeline)), nil
}

func (d *Driver) DestroyPipeline(pipeline renderer.Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(uint64(pipeline), KindPipeline)
}

// Shaders is an in-memory assets.ByteSource.
type Shaders map[string][]byte

func (s Shaders) LoadBytes(path string) ([]byte, error) {
	b, ok := s[path]
	if !ok {
		return nil, errors.Newf("shader %s not found", path)
	}
	return b, nil
}

// DefaultShaders holds a vertex and a fragment module under the default names.
func DefaultShaders() Shaders {
	return Shaders{
		"triangle.vert.spv": {0x03, 0x02, 0x23, 0x07},
		"triangle.frag.spv": {0x03, 0x02, 0x23, 0x07},
	}
}
