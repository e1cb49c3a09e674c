package renderer_test

import (
	"testing"

	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/geometry"
	"github.com/spaghettifunk/kiln/engine/math"
	"github.com/spaghettifunk/kiln/engine/renderer"
	"github.com/spaghettifunk/kiln/engine/renderer/rendertest"
	"github.com/stretchr/testify/require"
)

func newContext(t *testing.T) (*rendertest.Driver, *renderer.DeviceContext) {
	t.Helper()
	d := rendertest.NewDriver()
	ctx, err := renderer.NewDeviceContext(d, renderer.ContextConfig{ApplicationName: "test"})
	require.NoError(t, err)
	t.Cleanup(ctx.Shutdown)
	return d, ctx
}

func TestUploadRoundTrip(t *testing.T) {
	d, ctx := newContext(t)

	for _, n := range []int{1, 3, 80, 4096} {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i*7 + n)
		}

		before := ctx.Allocator.LiveCount()
		buf, err := ctx.Upload(data, renderer.BufferUsageVertex|renderer.BufferUsageTransferSrc)
		require.NoError(t, err)
		// Only the destination survives the upload.
		require.Equal(t, before+1, ctx.Allocator.LiveCount())
		require.Equal(t, before+1, d.LiveCount(rendertest.KindBuffer))

		copies := d.Calls(rendertest.OpCopyBuffer)
		staging := copies[len(copies)-1].Buffer
		require.False(t, ctx.Allocator.Live(staging))
		require.False(t, d.Live(uint64(staging)))

		out, err := ctx.Readback(buf)
		require.NoError(t, err)
		require.Equal(t, data, out)
		require.Equal(t, before+1, ctx.Allocator.LiveCount())

		ctx.Allocator.DestroyBuffer(buf)
	}
	require.Zero(t, d.LiveCount(rendertest.KindCommandBuffer))
	require.Empty(t, d.Violations())
}

func TestUploadEmpty(t *testing.T) {
	_, ctx := newContext(t)
	_, err := ctx.Upload(nil, renderer.BufferUsageVertex)
	require.ErrorIs(t, err, renderer.ErrEmptyUpload)
	require.Zero(t, ctx.Allocator.LiveCount())
}

func TestUploadSubmitFailure(t *testing.T) {
	d, ctx := newContext(t)
	d.Fail("QueueSubmit", renderer.ErrorDeviceLost)

	_, err := ctx.Upload([]byte{1, 2, 3, 4}, renderer.BufferUsageIndex)
	require.Error(t, err)
	code, ok := core.DriverCode(err)
	require.True(t, ok)
	require.Equal(t, int32(renderer.ErrorDeviceLost), code)
	require.Zero(t, ctx.Allocator.LiveCount())
}

func TestReadbackNeedsTransferSource(t *testing.T) {
	_, ctx := newContext(t)
	buf, err := ctx.Upload([]byte{1, 2, 3, 4}, renderer.BufferUsageIndex)
	require.NoError(t, err)
	_, err = ctx.Readback(buf)
	require.Error(t, err)
}

func TestMeshCacheUploadsOnce(t *testing.T) {
	d, ctx := newContext(t)
	cache := renderer.NewMeshBufferCache(ctx)
	defer cache.Destroy()

	mesh := geometry.GenerateSphereColored(0.5, 8, 8, math.NewVec3(0, 0, 1))

	first, err := cache.Get(mesh)
	require.NoError(t, err)
	copies := len(d.Calls(rendertest.OpCopyBuffer))
	require.Equal(t, 2, copies)

	second, err := cache.Get(mesh)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, d.Calls(rendertest.OpCopyBuffer), copies)
	require.Equal(t, 1, cache.Len())
	require.Equal(t, mesh.IndexCount(), first.IndexCount)

	vertices, err := ctx.Readback(first.Vertex)
	require.NoError(t, err)
	require.Equal(t, mesh.VertexBytes(), vertices)
	indices, err := ctx.Readback(first.Index)
	require.NoError(t, err)
	require.Equal(t, mesh.IndexBytes(), indices)

	cache.Destroy()
	require.Zero(t, cache.Len())
	require.Zero(t, ctx.Allocator.LiveCount())
}

func TestAllocatorShutdownFreesLeaks(t *testing.T) {
	d := rendertest.NewDriver()
	alloc := renderer.NewAllocator(d)

	buf, err := alloc.CreateBuffer(64, renderer.BufferUsageVertex, renderer.MemoryCPUToGPU)
	require.NoError(t, err)
	_, err = alloc.CreateImage(renderer.ImageDesc{
		Extent: renderer.Extent2D{Width: 4, Height: 4},
		Format: renderer.FormatD32Sfloat,
		Usage:  renderer.ImageUsageDepthStencilAttachment,
	})
	require.NoError(t, err)
	require.Equal(t, 2, alloc.LiveCount())

	alloc.Shutdown()
	require.Zero(t, alloc.LiveCount())
	require.False(t, alloc.Live(buf.Buffer))
	require.Zero(t, d.LiveCount(rendertest.KindBuffer, rendertest.KindImage))

	// The allocator stays usable after a shutdown pass.
	again, err := alloc.CreateBuffer(16, renderer.BufferUsageIndex, renderer.MemoryCPUOnly)
	require.NoError(t, err)
	require.True(t, alloc.Live(again.Buffer))
	alloc.DestroyBuffer(again)
	require.Zero(t, alloc.LiveCount())
}
