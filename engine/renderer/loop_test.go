package renderer_test

import (
	"encoding/binary"
	stdmath "math"
	"testing"

	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/geometry"
	"github.com/spaghettifunk/kiln/engine/math"
	"github.com/spaghettifunk/kiln/engine/renderer"
	"github.com/spaghettifunk/kiln/engine/renderer/rendertest"
	"github.com/spaghettifunk/kiln/engine/scene"
	"github.com/stretchr/testify/require"
)

func testConfig() renderer.Config {
	return renderer.Config{
		ApplicationName: "test",
		Width:           800,
		Height:          600,
		MaxObjects:      32,
		VertexShader:    "triangle.vert.spv",
		FragmentShader:  "triangle.frag.spv",
	}
}

func newRenderer(t *testing.T, d *rendertest.Driver) *renderer.Renderer {
	t.Helper()
	r, err := renderer.NewRenderer(d, rendertest.DefaultShaders(), testConfig())
	require.NoError(t, err)
	return r
}

// exampleScene is a blue sphere resting on a green plane.
func exampleScene() (*scene.Scene, *geometry.Mesh, *geometry.Mesh) {
	s := scene.NewScene()
	sphere := geometry.GenerateSphereColored(0.5, 32, 32, math.NewVec3(0, 0, 1))
	plane := geometry.GeneratePlaneColored(2, 2, geometry.AxisZ, 1, 1, math.NewVec3(0, 1, 0))
	s.AddNode(sphere, math.NewVec3Zero(), math.NewVec3Zero())
	s.AddNode(plane, math.NewVec3(0, 0, -0.5), math.NewVec3Zero())
	return s, sphere, plane
}

func TestEndToEndScene(t *testing.T) {
	d := rendertest.NewDriver()
	r := newRenderer(t, d)
	s, sphere, plane := exampleScene()

	require.NoError(t, r.Prepare(s))
	require.Equal(t, 2, r.Meshes().Len())

	stride := uint32(r.Uniforms().Stride)
	for frame := 0; frame < 5; frame++ {
		d.ClearCalls()
		require.NoError(t, r.DrawFrame())

		draws := d.Calls(rendertest.OpDrawIndexed)
		require.Len(t, draws, 2)
		require.Equal(t, sphere.IndexCount(), draws[0].Count)
		require.Equal(t, plane.IndexCount(), draws[1].Count)

		binds := d.Calls(rendertest.OpBindDescriptorSet)
		require.Len(t, binds, 2)
		require.Equal(t, uint32(0), binds[0].DynamicOffset)
		require.Equal(t, stride, binds[1].DynamicOffset)

		require.Len(t, d.Calls(rendertest.OpSubmit), 1)
		require.Len(t, d.Calls(rendertest.OpPresent), 1)
	}
	// Meshes are not uploaded again per frame.
	require.Empty(t, d.Calls(rendertest.OpCopyBuffer))
	require.Equal(t, 2, r.Meshes().Len())

	r.Shutdown()
	require.Zero(t, d.LiveCount())
	require.Empty(t, d.Violations())
}

func TestFrameBarriers(t *testing.T) {
	d := rendertest.NewDriver()
	r := newRenderer(t, d)
	defer r.Shutdown()
	s, _, _ := exampleScene()
	require.NoError(t, r.Prepare(s))

	d.ClearCalls()
	require.NoError(t, r.DrawFrame())

	barriers := d.Calls(rendertest.OpBarrier)
	require.Len(t, barriers, 3)

	in := barriers[0].Barrier
	require.Equal(t, r.Swapchain().Images[0], in.Image)
	require.Equal(t, renderer.ImageLayoutUndefined, in.OldLayout)
	require.Equal(t, renderer.ImageLayoutColorAttachmentOptimal, in.NewLayout)
	require.Equal(t, renderer.AccessColorAttachmentWrite, in.DstAccess)
	require.Equal(t, renderer.StageTopOfPipe, in.SrcStage)
	require.Equal(t, renderer.StageColorAttachmentOutput, in.DstStage)

	depth := barriers[1].Barrier
	require.Equal(t, renderer.ImageAspectDepth, depth.Aspect)
	require.Equal(t, renderer.ImageLayoutDepthAttachmentOptimal, depth.NewLayout)
	require.Equal(t, renderer.AccessDepthStencilAttachmentWrite, depth.SrcAccess)
	require.Equal(t, renderer.AccessDepthStencilAttachmentRead|renderer.AccessDepthStencilAttachmentWrite, depth.DstAccess)
	require.Equal(t, renderer.StageEarlyFragmentTests|renderer.StageLateFragmentTests, depth.SrcStage)

	out := barriers[2].Barrier
	require.Equal(t, renderer.ImageLayoutColorAttachmentOptimal, out.OldLayout)
	require.Equal(t, renderer.ImageLayoutPresentSrc, out.NewLayout)
	require.Equal(t, renderer.AccessColorAttachmentWrite, out.SrcAccess)
	require.Equal(t, renderer.StageBottomOfPipe, out.DstStage)

	// Everything between the barriers happens inside the rendering scope.
	ops := d.Calls()
	var seen []rendertest.Op
	for _, c := range ops {
		switch c.Op {
		case rendertest.OpBarrier, rendertest.OpBeginRendering, rendertest.OpEndRendering, rendertest.OpSubmit, rendertest.OpPresent:
			seen = append(seen, c.Op)
		}
	}
	require.Equal(t, []rendertest.Op{
		rendertest.OpBarrier, rendertest.OpBarrier, rendertest.OpBeginRendering,
		rendertest.OpEndRendering, rendertest.OpBarrier, rendertest.OpSubmit, rendertest.OpPresent,
	}, seen)
}

func TestUniformContents(t *testing.T) {
	d := rendertest.NewDriver()
	r := newRenderer(t, d)
	defer r.Shutdown()
	s, _, _ := exampleScene()
	require.NoError(t, r.Prepare(s))
	require.NoError(t, r.DrawFrame())

	contents := d.BufferContents(r.Uniforms().Slot(0).Buffer.Buffer)
	f := func(off uint64) float32 {
		return stdmath.Float32frombits(binary.LittleEndian.Uint32(contents[off:]))
	}

	view, proj := r.Camera.ViewProjection(r.Swapchain().Extent)
	items := s.DrawList()
	for i, item := range items {
		base := uint64(i) * r.Uniforms().Stride
		require.Equal(t, []float32{5, 5, 5, 1}, []float32{f(base), f(base + 4), f(base + 8), f(base + 12)})
		mvp := item.World.Mul(view).Mul(proj)
		for j := 0; j < 16; j++ {
			require.InDelta(t, mvp.Data[j], f(base+16+uint64(j)*4), 1e-5)
		}
	}
}

func TestResizeIdempotent(t *testing.T) {
	d := rendertest.NewDriver()
	r := newRenderer(t, d)
	defer r.Shutdown()
	require.Equal(t, 1, d.SwapchainsCreated())

	rebuilt, err := r.Resize()
	require.NoError(t, err)
	require.False(t, rebuilt)
	require.Equal(t, 1, d.SwapchainsCreated())

	d.SetSurfaceExtent(0, 0)
	rebuilt, err = r.Resize()
	require.NoError(t, err)
	require.False(t, rebuilt)
	require.Equal(t, 1, d.SwapchainsCreated())
}

func TestResizeRebuilds(t *testing.T) {
	tests := []struct {
		name     string
		minCount uint32
		width    uint32
		height   uint32
	}{
		{"same image count", 2, 1024, 768},
		{"more images", 3, 640, 480},
		{"fewer images", 1, 320, 200},
	}

	d := rendertest.NewDriver()
	r := newRenderer(t, d)
	s, _, _ := exampleScene()
	require.NoError(t, r.Prepare(s))

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := r.Swapchain().Handle
			d.SetMinImageCount(tt.minCount)
			d.SetSurfaceExtent(tt.width, tt.height)

			rebuilt, err := r.Resize()
			require.NoError(t, err)
			require.True(t, rebuilt)
			require.Equal(t, i+2, d.SwapchainsCreated())
			require.False(t, d.Live(uint64(old)))

			count := tt.minCount + 1
			require.Equal(t, count, r.Swapchain().ImageCount())
			require.Equal(t, int(count), r.Frames().Len())
			require.Equal(t, int(count), r.Uniforms().SlotCount())
			require.Equal(t, int(count), d.LiveCount(rendertest.KindFence))
			require.Equal(t, renderer.Extent2D{Width: tt.width, Height: tt.height}, r.Swapchain().Extent)

			require.NoError(t, r.DrawFrame())
		})
	}

	r.Shutdown()
	require.Zero(t, d.LiveCount())
	require.Empty(t, d.Violations())
}

func TestStaleAcquireResizesAndRetries(t *testing.T) {
	d := rendertest.NewDriver()
	r := newRenderer(t, d)
	defer r.Shutdown()
	s, _, _ := exampleScene()
	require.NoError(t, r.Prepare(s))

	d.SetSurfaceExtent(1280, 720)
	d.ScriptAcquire(rendertest.AcquireStep{Result: renderer.ErrorOutOfDate})
	require.NoError(t, r.DrawFrame())

	require.Equal(t, 2, d.SwapchainsCreated())
	require.Len(t, d.Calls(rendertest.OpPresent), 1)
}

func TestStaleAcquireTwiceSkipsFrame(t *testing.T) {
	d := rendertest.NewDriver()
	r := newRenderer(t, d)
	defer r.Shutdown()
	s, _, _ := exampleScene()
	require.NoError(t, r.Prepare(s))
	d.ClearCalls()

	d.ScriptAcquire(
		rendertest.AcquireStep{Result: renderer.Suboptimal},
		rendertest.AcquireStep{Result: renderer.ErrorOutOfDate},
	)
	require.NoError(t, r.DrawFrame())
	require.Equal(t, 1, d.SwapchainsCreated())
	require.Empty(t, d.Calls(rendertest.OpSubmit))
	require.Empty(t, d.Calls(rendertest.OpPresent))

	// The next tick draws normally.
	require.NoError(t, r.DrawFrame())
	require.Len(t, d.Calls(rendertest.OpPresent), 1)
}

func TestFailedResizeStopsRendering(t *testing.T) {
	d := rendertest.NewDriver()
	r := newRenderer(t, d)
	s, _, _ := exampleScene()
	require.NoError(t, r.Prepare(s))
	require.NoError(t, r.DrawFrame())

	d.Fail("CreateCommandPool", renderer.ErrorDeviceLost)
	d.SetSurfaceExtent(1024, 768)
	rebuilt, err := r.Resize()
	require.False(t, rebuilt)
	require.ErrorIs(t, err, renderer.ErrRebuildFailed)
	code, ok := core.DriverCode(err)
	require.True(t, ok)
	require.Equal(t, int32(renderer.ErrorDeviceLost), code)

	d.ClearCalls()
	require.NotPanics(t, func() { err = r.DrawFrame() })
	require.ErrorIs(t, err, renderer.ErrRebuildFailed)
	require.Empty(t, d.Calls(rendertest.OpSubmit, rendertest.OpPresent))

	_, err = r.Resize()
	require.ErrorIs(t, err, renderer.ErrRebuildFailed)

	r.Shutdown()
	require.Zero(t, d.LiveCount())
	require.Empty(t, d.Violations())
}

func TestResizeKeepsAcquireSemaphores(t *testing.T) {
	d := rendertest.NewDriver()
	r := newRenderer(t, d)
	defer r.Shutdown()
	s, _, _ := exampleScene()
	require.NoError(t, r.Prepare(s))
	for i := 0; i < 4; i++ {
		require.NoError(t, r.DrawFrame())
	}
	before := d.LiveCount(rendertest.KindSemaphore)

	d.SetSurfaceExtent(640, 480)
	rebuilt, err := r.Resize()
	require.NoError(t, err)
	require.True(t, rebuilt)
	require.Positive(t, r.Frames().PooledSemaphores())
	require.LessOrEqual(t, r.Frames().PooledSemaphores(), r.Frames().Len()+1)
	require.Less(t, d.LiveCount(rendertest.KindSemaphore), before)
}

func TestStalePresentResizes(t *testing.T) {
	d := rendertest.NewDriver()
	r := newRenderer(t, d)
	defer r.Shutdown()
	s, _, _ := exampleScene()
	require.NoError(t, r.Prepare(s))

	d.SetSurfaceExtent(1024, 768)
	d.ScriptPresent(renderer.Suboptimal)
	require.NoError(t, r.DrawFrame())
	require.Equal(t, 2, d.SwapchainsCreated())

	// A spurious stale present with an unchanged extent does nothing.
	d.ScriptPresent(renderer.ErrorOutOfDate)
	require.NoError(t, r.DrawFrame())
	require.Equal(t, 2, d.SwapchainsCreated())
}

func TestDriverFailuresPropagate(t *testing.T) {
	d := rendertest.NewDriver()
	r := newRenderer(t, d)
	defer r.Shutdown()
	s, _, _ := exampleScene()
	require.NoError(t, r.Prepare(s))

	d.ScriptAcquire(rendertest.AcquireStep{Result: renderer.ErrorDeviceLost})
	err := r.DrawFrame()
	require.Error(t, err)
	code, ok := core.DriverCode(err)
	require.True(t, ok)
	require.Equal(t, int32(renderer.ErrorDeviceLost), code)
	require.False(t, core.IsFatalInit(err))

	d.ScriptPresent(renderer.ErrorSurfaceLost)
	err = r.DrawFrame()
	code, ok = core.DriverCode(err)
	require.True(t, ok)
	require.Equal(t, int32(renderer.ErrorSurfaceLost), code)
}

func TestTooManyObjects(t *testing.T) {
	d := rendertest.NewDriver()
	cfg := testConfig()
	cfg.MaxObjects = 1
	r, err := renderer.NewRenderer(d, rendertest.DefaultShaders(), cfg)
	require.NoError(t, err)
	defer r.Shutdown()

	s, _, _ := exampleScene()
	require.NoError(t, r.Prepare(s))
	require.ErrorIs(t, r.DrawFrame(), renderer.ErrTooManyObjects)
}

func TestDrawBeforePrepare(t *testing.T) {
	d := rendertest.NewDriver()
	r := newRenderer(t, d)
	defer r.Shutdown()
	require.Error(t, r.DrawFrame())
}

func TestFatalInit(t *testing.T) {
	tests := []struct {
		name    string
		fail    string
		shaders rendertest.Shaders
	}{
		{"instance", "CreateInstance", rendertest.DefaultShaders()},
		{"surface", "CreateSurface", rendertest.DefaultShaders()},
		{"device", "CreateDevice", rendertest.DefaultShaders()},
		{"swapchain", "CreateSwapchain", rendertest.DefaultShaders()},
		{"pipeline", "CreateGraphicsPipeline", rendertest.DefaultShaders()},
		{"missing shader", "", rendertest.Shaders{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := rendertest.NewDriver()
			if tt.fail != "" {
				d.Fail(tt.fail, renderer.Result(-3))
			}
			r, err := renderer.NewRenderer(d, tt.shaders, testConfig())
			require.Error(t, err)
			require.Nil(t, r)
			require.True(t, core.IsFatalInit(err))
			if tt.fail != "" {
				code, ok := core.DriverCode(err)
				require.True(t, ok)
				require.Equal(t, int32(-3), code)
			}
			require.Zero(t, d.LiveCount())
			require.Empty(t, d.Violations())
		})
	}
}
