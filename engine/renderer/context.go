package renderer

import (
	"github.com/spaghettifunk/kiln/engine/core"
)

type ContextConfig struct {
	ApplicationName string
	Validation      bool
}

// DeviceContext owns the instance, surface, device and queue, the memory
// allocator and the pool used for one-shot uploads. Everything else the
// renderer creates hangs off it.
type DeviceContext struct {
	Driver         Driver
	Instance       Instance
	Surface        Surface
	PhysicalDevice PhysicalDevice
	Device         Device
	Queue          Queue
	Info           DeviceInfo
	Allocator      *Allocator
	UploadPool     CommandPool

	releases ReleaseStack
}

// NewDeviceContext runs the bootstrap steps in order. A failing step releases
// whatever was already created and returns an error marked fatal.
func NewDeviceContext(driver Driver, config ContextConfig) (*DeviceContext, error) {
	c := &DeviceContext{Driver: driver}
	if err := c.initialize(config); err != nil {
		c.releases.Release()
		return nil, err
	}
	return c, nil
}

func (c *DeviceContext) initialize(config ContextConfig) error {
	var err error

	c.Instance, err = c.Driver.CreateInstance(InstanceDesc{
		ApplicationName: config.ApplicationName,
		Validation:      config.Validation,
	})
	if err != nil {
		return core.MarkFatalInit(err, "instance")
	}
	Track(&c.releases, "instance", c.Instance, c.Driver.DestroyInstance)
	core.LogInfo("Vulkan instance created (validation=%t)", config.Validation)

	c.Surface, err = c.Driver.CreateSurface(c.Instance)
	if err != nil {
		return core.MarkFatalInit(err, "surface")
	}
	instance := c.Instance
	Track(&c.releases, "surface", c.Surface, func(s Surface) { c.Driver.DestroySurface(instance, s) })
	core.LogInfo("Vulkan surface created")

	c.PhysicalDevice, c.Info, err = c.Driver.SelectPhysicalDevice(c.Instance, c.Surface)
	if err != nil {
		return core.MarkFatalInit(err, "physical device")
	}
	core.LogInfo("Selected device: '%s' (min uniform offset alignment %d)", c.Info.Name, c.Info.MinUniformBufferOffsetAlignment)

	c.Device, c.Queue, err = c.Driver.CreateDevice(c.PhysicalDevice, c.Info)
	if err != nil {
		return core.MarkFatalInit(err, "logical device")
	}
	Track(&c.releases, "device", c.Device, c.Driver.DestroyDevice)
	core.LogInfo("Logical device created")

	c.Allocator = NewAllocator(c.Driver)
	c.releases.Push("allocator", c.Allocator.Shutdown)

	c.UploadPool, err = c.Driver.CreateCommandPool(true)
	if err != nil {
		return core.MarkFatalInit(err, "upload command pool")
	}
	Track(&c.releases, "upload command pool", c.UploadPool, c.Driver.DestroyCommandPool)
	core.LogInfo("Upload command pool created")

	return nil
}

// Defer registers fn to run during Shutdown, before anything registered earlier.
func (c *DeviceContext) Defer(name string, fn func()) {
	c.releases.Push(name, fn)
}

// Shutdown waits for the device to go idle and releases everything in reverse
// creation order.
func (c *DeviceContext) Shutdown() {
	if c.Device != 0 {
		if err := c.Driver.DeviceWaitIdle(); err != nil {
			core.LogError("device wait idle before teardown: %v", err)
		}
	}
	core.LogInfo("Releasing %d device resources", c.releases.Len())
	c.releases.Release()
	c.Device = 0
	c.Instance = 0
	c.Surface = 0
}
