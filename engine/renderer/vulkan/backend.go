package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer"
)

const validationLayer = "VK_LAYER_KHRONOS_validation"

// Driver implements renderer.Driver on top of the Vulkan 1.3 API. Handles
// handed to the renderer are ids into per-kind tables.
type Driver struct {
	surfaces renderer.SurfaceProvider
	locks    *VulkanLockPool

	getInstanceProcAddr unsafe.Pointer
	instance            vk.Instance
	debugCallback       vk.DebugReportCallback

	gpu         vk.PhysicalDevice
	device      vk.Device
	queueFamily uint32
	memory      vk.PhysicalDeviceMemoryProperties
	cmds        deviceCommands

	instances       *handleTable[vk.Instance]
	surfaceTable    *handleTable[vk.Surface]
	physicalDevices *handleTable[vk.PhysicalDevice]
	devices         *handleTable[vk.Device]
	queues          *handleTable[vk.Queue]
	swapchains      *handleTable[*swapchainRecord]
	images          *handleTable[vk.Image]
	imageViews      *handleTable[vk.ImageView]
	buffers         *handleTable[vk.Buffer]
	allocations     *handleTable[*allocation]
	fences          *handleTable[vk.Fence]
	semaphores      *handleTable[vk.Semaphore]
	commandPools    *handleTable[*commandPoolRecord]
	commandBuffers  *handleTable[vk.CommandBuffer]
	shaderModules   *handleTable[vk.ShaderModule]
	setLayouts      *handleTable[vk.DescriptorSetLayout]
	descriptorPools *handleTable[*descriptorPoolRecord]
	descriptorSets  *handleTable[vk.DescriptorSet]
	pipelineLayouts *handleTable[vk.PipelineLayout]
	pipelines       *handleTable[vk.Pipeline]
}

var _ renderer.Driver = (*Driver)(nil)

func New(surfaces renderer.SurfaceProvider) *Driver {
	return &Driver{
		surfaces:        surfaces,
		locks:           NewVulkanLockPool(),
		instances:       newHandleTable[vk.Instance](1),
		surfaceTable:    newHandleTable[vk.Surface](1),
		physicalDevices: newHandleTable[vk.PhysicalDevice](4),
		devices:         newHandleTable[vk.Device](1),
		queues:          newHandleTable[vk.Queue](1),
		swapchains:      newHandleTable[*swapchainRecord](2),
		images:          newHandleTable[vk.Image](8),
		imageViews:      newHandleTable[vk.ImageView](8),
		buffers:         newHandleTable[vk.Buffer](16),
		allocations:     newHandleTable[*allocation](16),
		fences:          newHandleTable[vk.Fence](4),
		semaphores:      newHandleTable[vk.Semaphore](8),
		commandPools:    newHandleTable[*commandPoolRecord](4),
		commandBuffers:  newHandleTable[vk.CommandBuffer](4),
		shaderModules:   newHandleTable[vk.ShaderModule](2),
		setLayouts:      newHandleTable[vk.DescriptorSetLayout](1),
		descriptorPools: newHandleTable[*descriptorPoolRecord](1),
		descriptorSets:  newHandleTable[vk.DescriptorSet](4),
		pipelineLayouts: newHandleTable[vk.PipelineLayout](1),
		pipelines:       newHandleTable[vk.Pipeline](1),
	}
}

func (d *Driver) CreateInstance(desc renderer.InstanceDesc) (renderer.Instance, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return 0, errors.New("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	d.getInstanceProcAddr = procAddr

	if err := vk.Init(); err != nil {
		return 0, errors.Wrap(err, "failed to initialize vk")
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 3, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(desc.ApplicationName),
		PEngineName:        VulkanSafeString("Kiln Engine"),
		EngineVersion:      uint32(vk.MakeVersion(0, 1, 0)),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, d.surfaces.RequiredInstanceExtensions()...)

	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if desc.Validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		if !validationLayerPresent() {
			return 0, errors.Newf("required validation layer is missing: %s", validationLayer)
		}
		layers = []string{validationLayer}
		core.LogInfo("Validation layers enabled.")
	}
	core.LogDebug("Required extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if err := check("vkCreateInstance", vk.CreateInstance(&createInfo, nil, &instance)); err != nil {
		return 0, err
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return 0, errors.Wrap(err, "failed to load instance functions")
	}
	d.instance = instance
	core.LogInfo("Vulkan Instance created.")

	if desc.Validation {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(instance, &debugCreateInfo, nil, &dbg)); err != nil {
			// Validation output is lost but rendering still works.
			core.LogWarn("vk.CreateDebugReportCallback failed with %s", err)
		} else {
			d.debugCallback = dbg
			core.LogDebug("Vulkan debugger created.")
		}
	}

	return renderer.Instance(d.instances.add(instance)), nil
}

func validationLayerPresent() bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return false
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if cString(available[i].LayerName[:]) == validationLayer {
			return true
		}
	}
	return false
}

func (d *Driver) DestroyInstance(instance renderer.Instance) {
	handle, ok := d.instances.remove(uint64(instance))
	if !ok {
		return
	}
	if d.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(handle, d.debugCallback, nil)
		d.debugCallback = vk.NullDebugReportCallback
	}
	vk.DestroyInstance(handle, nil)
	d.instance = nil
	core.LogDebug("Vulkan instance destroyed.")
}

func (d *Driver) CreateSurface(instance renderer.Instance) (renderer.Surface, error) {
	handle, ok := d.instances.get(uint64(instance))
	if !ok {
		return 0, errors.New("unknown instance")
	}
	raw, err := d.surfaces.CreateWindowSurface(handle)
	if err != nil {
		return 0, err
	}
	surface := vk.SurfaceFromPointer(raw)
	core.LogDebug("Vulkan surface created.")
	return renderer.Surface(d.surfaceTable.add(surface)), nil
}

func (d *Driver) DestroySurface(instance renderer.Instance, surface renderer.Surface) {
	inst, ok := d.instances.get(uint64(instance))
	if !ok {
		return
	}
	if s, ok := d.surfaceTable.remove(uint64(surface)); ok {
		vk.DestroySurface(inst, s, nil)
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
