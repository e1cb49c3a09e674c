package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/assets"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/math"
	"github.com/spaghettifunk/kiln/engine/scene"
)

// ErrRebuildFailed marks a swapchain rebuild that failed after the old frame
// state was released. The renderer only accepts Shutdown afterwards.
var ErrRebuildFailed = errors.New("swapchain rebuild failed")

type Config struct {
	ApplicationName string
	Validation      bool
	// Width and Height are used when the surface leaves the extent to the swapchain.
	Width  uint32
	Height uint32
	// MaxObjects bounds the number of draws per frame.
	MaxObjects uint32
	// FenceTimeout in nanoseconds. Zero waits forever.
	FenceTimeout   uint64
	VertexShader   string
	FragmentShader string
}

// Camera is the fixed view every frame is rendered from.
type Camera struct {
	Eye    math.Vec3
	Center math.Vec3
	Up     math.Vec3
	FovY   float32
	Near   float32
	Far    float32
	Light  math.Vec4
}

func DefaultCamera() Camera {
	return Camera{
		Eye:    math.NewVec3(1.2, 1.2, 1.0),
		Center: math.NewVec3Zero(),
		Up:     math.NewVec3(0, 0, 1),
		FovY:   math.DegToRad(60),
		Near:   0.1,
		Far:    10.0,
		Light:  math.NewVec4(5, 5, 5, 1),
	}
}

// ViewProjection returns the view and the projection for extent. Y is flipped
// for Vulkan clip space.
func (c Camera) ViewProjection(extent Extent2D) (math.Mat4, math.Mat4) {
	aspect := float32(1)
	if extent.Height > 0 {
		aspect = float32(extent.Width) / float32(extent.Height)
	}
	view := math.NewMat4LookAt(c.Eye, c.Center, c.Up)
	proj := math.NewMat4Perspective(c.FovY, aspect, c.Near, c.Far)
	proj.Data[5] *= -1
	return view, proj
}

// Renderer drives acquire, render and present for a scene, and rebuilds the
// swapchain dependent state when the surface changes.
type Renderer struct {
	ctx    *DeviceContext
	config Config
	Camera Camera

	swapchain *SwapchainState
	depth     *DepthResource
	frames    *FrameRing
	uniforms  *UniformManager
	pipeline  *GraphicsPipeline
	executor  *Executor
	meshes    *MeshBufferCache

	scene       *scene.Scene
	framebuffer Extent2D
	frameCount  uint64
	// broken is set once a swapchain rebuild fails partway.
	broken error
}

// NewRenderer bootstraps the device and builds everything needed to draw.
// Every failure is fatal and leaves nothing behind.
func NewRenderer(driver Driver, shaders assets.ByteSource, config Config) (*Renderer, error) {
	ctx, err := NewDeviceContext(driver, ContextConfig{
		ApplicationName: config.ApplicationName,
		Validation:      config.Validation,
	})
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		ctx:         ctx,
		config:      config,
		Camera:      DefaultCamera(),
		framebuffer: Extent2D{Width: config.Width, Height: config.Height},
	}
	if err := r.build(shaders); err != nil {
		ctx.Shutdown()
		return nil, err
	}
	return r, nil
}

func (r *Renderer) build(shaders assets.ByteSource) error {
	ctx := r.ctx
	var err error

	r.meshes = NewMeshBufferCache(ctx)
	ctx.Defer("mesh buffers", func() { r.meshes.Destroy() })

	if r.swapchain, err = CreateSwapchain(ctx, nil, r.framebuffer); err != nil {
		return core.MarkFatalInit(err, "swapchain")
	}
	ctx.Defer("swapchain", func() {
		if r.swapchain != nil {
			r.swapchain.Destroy(ctx)
		}
	})

	depthFormat, err := DetectDepthFormat(ctx.Driver)
	if err != nil {
		return core.MarkFatalInit(err, "depth format")
	}
	if r.depth, err = CreateDepthResource(ctx, depthFormat, r.swapchain.Extent); err != nil {
		return core.MarkFatalInit(err, "depth resource")
	}
	ctx.Defer("depth resource", func() {
		if r.depth != nil {
			r.depth.Destroy(ctx)
		}
	})

	if r.uniforms, err = NewUniformManager(ctx, r.config.MaxObjects); err != nil {
		return core.MarkFatalInit(err, "uniform layout")
	}
	ctx.Defer("uniforms", func() { r.uniforms.Destroy() })
	if err := r.uniforms.Allocate(r.swapchain.ImageCount()); err != nil {
		return core.MarkFatalInit(err, "uniform buffers")
	}
	core.LogInfo("Uniform stride %d bytes for %d objects", r.uniforms.Stride, r.uniforms.MaxObjects)

	r.pipeline, err = CreateGraphicsPipeline(ctx, shaders, r.config.VertexShader, r.config.FragmentShader,
		r.uniforms.Layout, r.swapchain.Format.Format, depthFormat)
	if err != nil {
		return core.MarkFatalInit(err, "graphics pipeline")
	}
	ctx.Defer("graphics pipeline", func() { r.pipeline.Destroy(ctx) })
	r.executor = NewExecutor(ctx, r.pipeline)

	if r.frames, err = NewFrameRing(ctx, r.swapchain.ImageCount(), r.config.FenceTimeout); err != nil {
		return core.MarkFatalInit(err, "frame ring")
	}
	ctx.Defer("frame ring", func() {
		if r.frames != nil {
			r.frames.Destroy()
		}
	})
	return nil
}

// Prepare uploads every distinct mesh of s and makes s the scene to draw.
func (r *Renderer) Prepare(s *scene.Scene) error {
	for _, mesh := range s.Meshes() {
		if _, err := r.meshes.Get(mesh); err != nil {
			return errors.Wrap(err, "upload mesh")
		}
	}
	r.scene = s
	core.LogInfo("Scene prepared: %d meshes uploaded", r.meshes.Len())
	return nil
}

// SetFramebufferSize records the window size. It only matters for surfaces
// that let the swapchain choose its extent.
func (r *Renderer) SetFramebufferSize(width, height uint32) {
	r.framebuffer = Extent2D{Width: width, Height: height}
}

// DrawFrame acquires an image, renders the scene into it and presents it.
// Stale swapchains are rebuilt along the way and never reported as errors.
func (r *Renderer) DrawFrame() error {
	if r.broken != nil {
		return r.broken
	}
	if r.scene == nil {
		return errors.New("no scene prepared")
	}
	items := r.scene.DrawList()
	if uint32(len(items)) > r.uniforms.MaxObjects {
		return errors.Wrapf(ErrTooManyObjects, "%d draws", len(items))
	}

	index, res, err := r.frames.AcquireFrame(r.swapchain)
	if err != nil {
		return err
	}
	if res.Stale() {
		if _, err := r.Resize(); err != nil {
			return err
		}
		index, res, err = r.frames.AcquireFrame(r.swapchain)
		if err != nil {
			return err
		}
	}
	switch {
	case res == Success:
	case res.Stale(), res == Timeout, res == NotReady:
		core.LogDebug("Skipping frame: acquire returned %s", core.ResultName(int32(res)))
		return r.ctx.Driver.QueueWaitIdle(r.ctx.Queue)
	default:
		return core.NewDriverError("vkAcquireNextImageKHR", int32(res))
	}

	draws, err := r.writeUniforms(index, items)
	if err != nil {
		return err
	}

	slot := r.frames.Slot(index)
	target := RenderTarget{
		Image:  r.swapchain.Images[index],
		View:   r.swapchain.Views[index],
		Extent: r.swapchain.Extent,
		Depth:  r.depth,
	}
	if err := r.executor.Record(slot.CommandBuffer, r.uniforms.Slot(index).Set, target, draws); err != nil {
		return errors.Wrap(err, "record frame")
	}
	release, err := r.frames.ReleaseSemaphore(index)
	if err != nil {
		return err
	}
	if err := r.executor.Submit(slot, release); err != nil {
		return errors.Wrap(err, "submit frame")
	}

	res = r.ctx.Driver.QueuePresent(r.ctx.Queue, r.swapchain.Handle, index, release)
	r.frameCount++
	switch {
	case res == Success:
	case res.Stale():
		if _, err := r.Resize(); err != nil {
			return err
		}
	default:
		return core.NewDriverError("vkQueuePresentKHR", int32(res))
	}
	return nil
}

func (r *Renderer) writeUniforms(slot uint32, items []scene.DrawItem) ([]DrawCommand, error) {
	view, proj := r.Camera.ViewProjection(r.swapchain.Extent)
	viewProj := view.Mul(proj)

	draws := make([]DrawCommand, 0, len(items))
	for i, item := range items {
		buffers, err := r.meshes.Get(item.Mesh)
		if err != nil {
			return nil, err
		}
		obj := uint32(i)
		rec := UniformRecord{
			Light: r.Camera.Light,
			MVP:   item.World.Mul(viewProj),
		}
		if err := r.uniforms.WriteObject(slot, obj, rec); err != nil {
			return nil, err
		}
		draws = append(draws, DrawCommand{Mesh: buffers, DynamicOffset: r.uniforms.DynamicOffset(obj)})
	}
	return draws, nil
}

// Resize rebuilds the swapchain and everything sized by it when the surface
// extent differs from the current one. It reports whether a rebuild happened.
func (r *Renderer) Resize() (bool, error) {
	if r.broken != nil {
		return false, r.broken
	}
	extent, err := r.ctx.SurfaceExtent(r.framebuffer)
	if err != nil {
		return false, err
	}
	if extent.IsZero() {
		core.LogDebug("Resize skipped: surface is %dx%d", extent.Width, extent.Height)
		return false, nil
	}
	if extent == r.swapchain.Extent {
		core.LogDebug("Resize skipped: extent unchanged at %dx%d", extent.Width, extent.Height)
		return false, nil
	}

	core.LogInfo("Resizing from %dx%d to %dx%d", r.swapchain.Extent.Width, r.swapchain.Extent.Height, extent.Width, extent.Height)
	if err := r.ctx.Driver.DeviceWaitIdle(); err != nil {
		return false, err
	}

	if err := r.rebuild(); err != nil {
		r.broken = errors.Mark(errors.Wrap(err, "swapchain rebuild"), ErrRebuildFailed)
		core.LogError("Renderer unusable: %s", r.broken)
		return false, r.broken
	}
	return true, nil
}

// rebuild recreates the swapchain and everything sized by it. On failure the
// old objects are already gone and the renderer can only be shut down.
func (r *Renderer) rebuild() error {
	sc, err := CreateSwapchain(r.ctx, r.swapchain, r.framebuffer)
	if err != nil {
		return err
	}
	r.swapchain = sc
	if err := r.pipeline.CheckFormat(sc.Format.Format); err != nil {
		return err
	}

	r.depth.Destroy(r.ctx)
	if r.depth, err = CreateDepthResource(r.ctx, r.pipeline.DepthFormat, sc.Extent); err != nil {
		return err
	}

	if err := r.frames.Rebuild(sc.ImageCount()); err != nil {
		return err
	}

	r.uniforms.Release()
	return r.uniforms.Allocate(sc.ImageCount())
}

// Shutdown waits for the device and releases everything in reverse creation order.
func (r *Renderer) Shutdown() {
	core.LogInfo("Renderer shutting down after %d frames", r.frameCount)
	r.ctx.Shutdown()
}

func (r *Renderer) Context() *DeviceContext {
	return r.ctx
}

func (r *Renderer) Swapchain() *SwapchainState {
	return r.swapchain
}

func (r *Renderer) Frames() *FrameRing {
	return r.frames
}

func (r *Renderer) Uniforms() *UniformManager {
	return r.uniforms
}

func (r *Renderer) Meshes() *MeshBufferCache {
	return r.meshes
}
