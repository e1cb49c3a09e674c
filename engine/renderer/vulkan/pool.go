package vulkan

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer"
)

type LockGroup string

const (
	QueueManagement    LockGroup = "queue_management"
	ResourceManagement LockGroup = "resource_management"
)

// VulkanLockPool hands out one mutex per group. Queue access must be
// externally synchronised.
type VulkanLockPool struct {
	mu    sync.Mutex
	locks map[LockGroup]*sync.Mutex
}

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{
		locks: make(map[LockGroup]*sync.Mutex),
	}
}

func (vs *VulkanLockPool) lock(group LockGroup) *sync.Mutex {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if _, exists := vs.locks[group]; !exists {
		vs.locks[group] = &sync.Mutex{}
	}
	return vs.locks[group]
}

// SafeCall runs fn while holding group's lock. A panic in fn comes back as an
// error.
func (vs *VulkanLockPool) SafeCall(group LockGroup, fn func() error) (err error) {
	l := vs.lock(group)
	l.Lock()
	defer l.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("%s: panic: %v", group, r)
		}
	}()

	return fn()
}

// lockedResult runs a queue operation that reports a Vulkan result under the
// queue lock. A failed call is reported as a lost device.
func (vs *VulkanLockPool) lockedResult(op string, fn func() vk.Result) renderer.Result {
	var res vk.Result
	if err := vs.SafeCall(QueueManagement, func() error {
		res = fn()
		return nil
	}); err != nil {
		core.LogError("%s: %s", op, err)
		return renderer.ErrorDeviceLost
	}
	return renderer.Result(res)
}

// handleTable maps the opaque ids handed to the renderer onto API objects.
// Ids start at 1 so the zero value stays the null handle.
type handleTable[T any] struct {
	mu    sync.Mutex
	next  uint64
	items *swiss.Map[uint64, T]
}

func newHandleTable[T any](capacity uint32) *handleTable[T] {
	return &handleTable[T]{
		items: swiss.NewMap[uint64, T](capacity),
	}
}

func (t *handleTable[T]) add(v T) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	t.items.Put(t.next, v)
	return t.next
}

func (t *handleTable[T]) get(id uint64) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.items.Get(id)
}

func (t *handleTable[T]) set(id uint64, v T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.items.Put(id, v)
}

func (t *handleTable[T]) remove(id uint64) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.items.Get(id)
	if ok {
		t.items.Delete(id)
	}
	return v, ok
}

func (t *handleTable[T]) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.items.Count()
}
