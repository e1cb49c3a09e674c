package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/containers"
	"github.com/spaghettifunk/kiln/engine/core"
)

// FrameSlot holds what one swapchain image needs while its frame is in flight.
type FrameSlot struct {
	// Fence is signaled when the slot's last submission has finished.
	Fence         Fence
	CommandPool   CommandPool
	CommandBuffer CommandBuffer
	// AcquireSemaphore was signaled by the acquire that handed out this slot.
	AcquireSemaphore Semaphore
	// ReleaseSemaphore is created on the first submit and reused after that.
	ReleaseSemaphore Semaphore
}

// FrameRing has one slot per swapchain image, indexed by the acquired image
// index, plus a pool of acquire semaphores that no slot currently owns.
type FrameRing struct {
	ctx          *DeviceContext
	slots        []FrameSlot
	recycled     *containers.RingQueue[Semaphore]
	fenceTimeout uint64
}

// NewFrameRing creates count slots. fenceTimeout is in nanoseconds; zero waits forever.
func NewFrameRing(ctx *DeviceContext, count uint32, fenceTimeout uint64) (*FrameRing, error) {
	if fenceTimeout == 0 {
		fenceTimeout = Unbounded
	}
	r := &FrameRing{
		ctx:          ctx,
		slots:        make([]FrameSlot, count),
		recycled:     containers.NewRingQueue[Semaphore](int(count) + 1),
		fenceTimeout: fenceTimeout,
	}
	for i := range r.slots {
		if err := r.initSlot(&r.slots[i]); err != nil {
			r.Destroy()
			return nil, errors.Wrapf(err, "create frame slot %d", i)
		}
	}
	return r, nil
}

func (r *FrameRing) initSlot(slot *FrameSlot) error {
	var err error
	// Signaled so the first acquire of this slot does not wait.
	if slot.Fence, err = r.ctx.Driver.CreateFence(true); err != nil {
		return err
	}
	if slot.CommandPool, err = r.ctx.Driver.CreateCommandPool(false); err != nil {
		return err
	}
	if slot.CommandBuffer, err = r.ctx.Driver.AllocateCommandBuffer(slot.CommandPool); err != nil {
		return err
	}
	return nil
}

func (r *FrameRing) Len() int {
	return len(r.slots)
}

func (r *FrameRing) Slot(i uint32) *FrameSlot {
	return &r.slots[i]
}

// PooledSemaphores is the number of acquire semaphores waiting for reuse.
func (r *FrameRing) PooledSemaphores() int {
	return r.recycled.Len()
}

func (r *FrameRing) takeSemaphore() (Semaphore, error) {
	if sem, err := r.recycled.Dequeue(); err == nil {
		return sem, nil
	}
	return r.ctx.Driver.CreateSemaphore()
}

func (r *FrameRing) recycle(sem Semaphore) {
	if err := r.recycled.Enqueue(sem); err != nil {
		r.ctx.Driver.DestroySemaphore(sem)
	}
}

// AcquireFrame asks for the next swapchain image and readies its slot: it waits
// for and resets the slot's fence, resets its command pool and installs the new
// acquire semaphore. A non-success Result leaves the slot untouched and the
// semaphore back in the pool. The error is only set for failures that are not
// part of normal presentation.
func (r *FrameRing) AcquireFrame(sc *SwapchainState) (uint32, Result, error) {
	sem, err := r.takeSemaphore()
	if err != nil {
		return 0, Success, errors.Wrap(err, "create acquire semaphore")
	}

	index, res := r.ctx.Driver.AcquireNextImage(sc.Handle, Unbounded, sem)
	if res != Success {
		r.recycle(sem)
		return index, res, nil
	}
	if int(index) >= len(r.slots) {
		r.recycle(sem)
		return index, Success, errors.Newf("acquired image %d but only %d frame slots exist", index, len(r.slots))
	}

	slot := &r.slots[index]
	if res := r.ctx.Driver.WaitForFence(slot.Fence, r.fenceTimeout); res != Success {
		r.recycle(sem)
		return index, Success, core.NewDriverError("vkWaitForFences", int32(res))
	}
	if err := r.ctx.Driver.ResetFence(slot.Fence); err != nil {
		r.recycle(sem)
		return index, Success, err
	}
	if err := r.ctx.Driver.ResetCommandPool(slot.CommandPool); err != nil {
		r.recycle(sem)
		return index, Success, err
	}

	if slot.AcquireSemaphore != 0 {
		r.recycle(slot.AcquireSemaphore)
	}
	slot.AcquireSemaphore = sem
	return index, Success, nil
}

// ReleaseSemaphore returns the slot's release semaphore, creating it on first use.
func (r *FrameRing) ReleaseSemaphore(index uint32) (Semaphore, error) {
	slot := &r.slots[index]
	if slot.ReleaseSemaphore == 0 {
		sem, err := r.ctx.Driver.CreateSemaphore()
		if err != nil {
			return 0, err
		}
		slot.ReleaseSemaphore = sem
	}
	return slot.ReleaseSemaphore, nil
}

// Rebuild replaces every slot with count fresh ones. Acquire semaphores held by
// the old slots go back to the pool, which is trimmed to count+1. The device
// must be idle. On failure the ring keeps the slots it managed to create and
// can still be destroyed.
func (r *FrameRing) Rebuild(count uint32) error {
	var keep []Semaphore
	r.recycled.Drain(func(sem Semaphore) { keep = append(keep, sem) })
	for i := range r.slots {
		if sem := r.slots[i].AcquireSemaphore; sem != 0 {
			keep = append(keep, sem)
			r.slots[i].AcquireSemaphore = 0
		}
	}
	r.destroySlots()

	r.recycled = containers.NewRingQueue[Semaphore](int(count) + 1)
	for _, sem := range keep {
		r.recycle(sem)
	}

	r.slots = make([]FrameSlot, count)
	for i := range r.slots {
		if err := r.initSlot(&r.slots[i]); err != nil {
			return errors.Wrapf(err, "create frame slot %d", i)
		}
	}
	return nil
}

func (r *FrameRing) destroySlots() {
	d := r.ctx.Driver
	for i := range r.slots {
		slot := &r.slots[i]
		if slot.CommandBuffer != 0 {
			d.FreeCommandBuffer(slot.CommandPool, slot.CommandBuffer)
		}
		destroyIf(slot.CommandPool, d.DestroyCommandPool)
		destroyIf(slot.Fence, d.DestroyFence)
		destroyIf(slot.AcquireSemaphore, d.DestroySemaphore)
		destroyIf(slot.ReleaseSemaphore, d.DestroySemaphore)
		*slot = FrameSlot{}
	}
	r.slots = nil
}

// Destroy frees every slot and pooled semaphore. The device must be idle.
func (r *FrameRing) Destroy() {
	r.destroySlots()
	r.recycled.Drain(r.ctx.Driver.DestroySemaphore)
}
