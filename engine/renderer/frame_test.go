package renderer_test

import (
	"testing"
	"time"

	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer"
	"github.com/spaghettifunk/kiln/engine/renderer/rendertest"
	"github.com/stretchr/testify/require"
)

func newRing(t *testing.T, fenceTimeout uint64) (*rendertest.Driver, *renderer.DeviceContext, *renderer.SwapchainState, *renderer.FrameRing) {
	t.Helper()
	d, ctx := newContext(t)
	sc, err := renderer.CreateSwapchain(ctx, nil, renderer.Extent2D{Width: 800, Height: 600})
	require.NoError(t, err)
	ring, err := renderer.NewFrameRing(ctx, sc.ImageCount(), fenceTimeout)
	require.NoError(t, err)
	t.Cleanup(func() {
		d.ReleaseGPU()
		ring.Destroy()
		sc.Destroy(ctx)
	})
	return d, ctx, sc, ring
}

func submit(t *testing.T, d *rendertest.Driver, ctx *renderer.DeviceContext, slot *renderer.FrameSlot) {
	t.Helper()
	require.NoError(t, d.QueueSubmit(ctx.Queue, renderer.SubmitInfo{
		CommandBuffer: slot.CommandBuffer,
		Wait:          slot.AcquireSemaphore,
		Fence:         slot.Fence,
	}))
}

func TestAcquireWaitsForInFlightSlot(t *testing.T) {
	d, ctx, sc, ring := newRing(t, 0)

	d.ScriptAcquire(rendertest.AcquireStep{Index: 0, Result: renderer.Success})
	idx, res, err := ring.AcquireFrame(sc)
	require.NoError(t, err)
	require.Equal(t, renderer.Success, res)
	require.Equal(t, uint32(0), idx)

	// The GPU never finishes slot 0's work until released.
	d.HoldGPU()
	submit(t, d, ctx, ring.Slot(0))
	resets := len(d.Calls(rendertest.OpResetCommandPool))

	d.ScriptAcquire(rendertest.AcquireStep{Index: 0, Result: renderer.Success})
	done := make(chan error, 1)
	go func() {
		_, _, err := ring.AcquireFrame(sc)
		done <- err
	}()

	require.Never(t, func() bool { return len(done) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
	require.Len(t, d.Calls(rendertest.OpResetCommandPool), resets)

	d.ReleaseGPU()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("acquire did not resume after the fence signaled")
	}
	require.Len(t, d.Calls(rendertest.OpResetCommandPool), resets+1)
	require.Empty(t, d.Violations())
}

func TestAcquireFenceTimeout(t *testing.T) {
	d, ctx, sc, ring := newRing(t, uint64(time.Millisecond))

	d.ScriptAcquire(rendertest.AcquireStep{Index: 1, Result: renderer.Success})
	_, _, err := ring.AcquireFrame(sc)
	require.NoError(t, err)
	d.HoldGPU()
	submit(t, d, ctx, ring.Slot(1))

	d.ScriptAcquire(rendertest.AcquireStep{Index: 1, Result: renderer.Success})
	_, _, err = ring.AcquireFrame(sc)
	require.Error(t, err)
	code, ok := core.DriverCode(err)
	require.True(t, ok)
	require.Equal(t, int32(renderer.Timeout), code)
	require.LessOrEqual(t, ring.PooledSemaphores(), ring.Len()+1)
}

func TestAcquireStaleLeavesSlotAlone(t *testing.T) {
	d, _, sc, ring := newRing(t, 0)

	d.ScriptAcquire(rendertest.AcquireStep{Index: 0, Result: renderer.ErrorOutOfDate})
	_, res, err := ring.AcquireFrame(sc)
	require.NoError(t, err)
	require.Equal(t, renderer.ErrorOutOfDate, res)
	require.Zero(t, ring.Slot(0).AcquireSemaphore)
	require.Equal(t, 1, ring.PooledSemaphores())
	require.Empty(t, d.Calls(rendertest.OpWaitFence, rendertest.OpResetCommandPool))

	// The pooled semaphore is handed out again rather than a new one created.
	live := d.LiveCount(rendertest.KindSemaphore)
	_, res, err = ring.AcquireFrame(sc)
	require.NoError(t, err)
	require.Equal(t, renderer.Success, res)
	require.Equal(t, live, d.LiveCount(rendertest.KindSemaphore))
	require.Zero(t, ring.PooledSemaphores())
}

func TestSemaphorePoolBound(t *testing.T) {
	d, ctx, sc, ring := newRing(t, 0)
	bound := ring.Len() + 1

	for i := 0; i < 60; i++ {
		if i%7 == 3 {
			d.ScriptAcquire(rendertest.AcquireStep{Result: renderer.Suboptimal})
		}
		idx, res, err := ring.AcquireFrame(sc)
		require.NoError(t, err)
		if res == renderer.Success {
			submit(t, d, ctx, ring.Slot(idx))
		}
		require.LessOrEqual(t, ring.PooledSemaphores(), bound, "frame %d", i)
	}
	require.LessOrEqual(t, d.LiveCount(rendertest.KindSemaphore), ring.Len()+bound)
	require.Empty(t, d.Violations())
}

func TestFrameRingDestroy(t *testing.T) {
	d, ctx := newContext(t)
	ring, err := renderer.NewFrameRing(ctx, 3, 0)
	require.NoError(t, err)
	require.Equal(t, 3, d.LiveCount(rendertest.KindFence))
	require.Equal(t, 3, ring.Len())

	_, err = ring.ReleaseSemaphore(2)
	require.NoError(t, err)
	sem, err := ring.ReleaseSemaphore(2)
	require.NoError(t, err)
	again, err := ring.ReleaseSemaphore(2)
	require.NoError(t, err)
	require.Equal(t, sem, again)

	ring.Destroy()
	require.Zero(t, d.LiveCount(rendertest.KindFence, rendertest.KindSemaphore, rendertest.KindCommandBuffer))
	// Only the upload pool remains.
	require.Equal(t, 1, d.LiveCount(rendertest.KindCommandPool))
}

func TestFrameRingRebuildKeepsPooledSemaphores(t *testing.T) {
	d, _, sc, ring := newRing(t, 0)

	d.ScriptAcquire(
		rendertest.AcquireStep{Index: 0, Result: renderer.Success},
		rendertest.AcquireStep{Index: 1, Result: renderer.Success},
		rendertest.AcquireStep{Result: renderer.Suboptimal},
	)
	for i := 0; i < 3; i++ {
		_, _, err := ring.AcquireFrame(sc)
		require.NoError(t, err)
	}
	require.Equal(t, 1, ring.PooledSemaphores())
	require.Equal(t, 3, d.LiveCount(rendertest.KindSemaphore))

	// Three semaphores survive the old ring but the pool only holds two.
	require.NoError(t, ring.Rebuild(1))
	require.Equal(t, 1, ring.Len())
	require.Zero(t, ring.Slot(0).AcquireSemaphore)
	require.Equal(t, 2, ring.PooledSemaphores())
	require.Equal(t, 2, d.LiveCount(rendertest.KindSemaphore))
	require.Equal(t, 1, d.LiveCount(rendertest.KindFence))

	// The next acquire reuses a pooled semaphore.
	d.ScriptAcquire(rendertest.AcquireStep{Index: 0, Result: renderer.Success})
	_, res, err := ring.AcquireFrame(sc)
	require.NoError(t, err)
	require.Equal(t, renderer.Success, res)
	require.Equal(t, 2, d.LiveCount(rendertest.KindSemaphore))
	require.Equal(t, 1, ring.PooledSemaphores())
	require.Empty(t, d.Violations())
}

func TestFrameRingRebuildFailureStaysDestroyable(t *testing.T) {
	d, _, _, ring := newRing(t, 0)

	d.Fail("CreateCommandPool", renderer.ErrorDeviceLost)
	err := ring.Rebuild(3)
	require.Error(t, err)
	code, ok := core.DriverCode(err)
	require.True(t, ok)
	require.Equal(t, int32(renderer.ErrorDeviceLost), code)

	ring.Destroy()
	require.Zero(t, d.LiveCount(rendertest.KindFence, rendertest.KindSemaphore, rendertest.KindCommandBuffer))
}
