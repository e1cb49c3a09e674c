package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer"
)

const portabilitySubsetExtension = "VK_KHR_portability_subset"

var minAPIVersion = uint32(vk.MakeVersion(1, 3, 0))

type physicalDeviceCandidate struct {
	handle      vk.PhysicalDevice
	properties  vk.PhysicalDeviceProperties
	queueFamily uint32
	discrete    bool
}

// SelectPhysicalDevice picks the first device that can draw and present from a
// single queue family, preferring discrete GPUs.
func (d *Driver) SelectPhysicalDevice(instance renderer.Instance, surface renderer.Surface) (renderer.PhysicalDevice, renderer.DeviceInfo, error) {
	inst, ok := d.instances.get(uint64(instance))
	if !ok {
		return 0, renderer.DeviceInfo{}, errors.New("unknown instance")
	}
	surf, ok := d.surfaceTable.get(uint64(surface))
	if !ok {
		return 0, renderer.DeviceInfo{}, errors.New("unknown surface")
	}

	var physicalDeviceCount uint32
	if err := check("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(inst, &physicalDeviceCount, nil)); err != nil {
		return 0, renderer.DeviceInfo{}, err
	}
	if physicalDeviceCount == 0 {
		return 0, renderer.DeviceInfo{}, errors.New("no devices which support Vulkan were found")
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if err := check("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(inst, &physicalDeviceCount, physicalDevices)); err != nil {
		return 0, renderer.DeviceInfo{}, err
	}

	var chosen *physicalDeviceCandidate
	for _, gpu := range physicalDevices {
		candidate, ok := evaluatePhysicalDevice(gpu, surf)
		if !ok {
			continue
		}
		if chosen == nil || (candidate.discrete && !chosen.discrete) {
			chosen = candidate
		}
	}
	if chosen == nil {
		return 0, renderer.DeviceInfo{}, errors.New("no physical devices were found which meet the requirements")
	}

	properties := chosen.properties
	properties.Limits.Deref()
	info := renderer.DeviceInfo{
		Name:                            cString(properties.DeviceName[:]),
		APIVersion:                      properties.ApiVersion,
		MinUniformBufferOffsetAlignment: uint64(properties.Limits.MinUniformBufferOffsetAlignment),
		QueueFamilyIndex:                chosen.queueFamily,
	}
	logDeviceInfo(chosen.handle, &properties)

	d.gpu = chosen.handle
	vk.GetPhysicalDeviceMemoryProperties(d.gpu, &d.memory)
	d.memory.Deref()

	return renderer.PhysicalDevice(d.physicalDevices.add(chosen.handle)), info, nil
}

func evaluatePhysicalDevice(gpu vk.PhysicalDevice, surface vk.Surface) (*physicalDeviceCandidate, bool) {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(gpu, &properties)
	properties.Deref()
	name := cString(properties.DeviceName[:])

	if properties.ApiVersion < minAPIVersion {
		core.LogInfo("Device '%s' does not support Vulkan 1.3. Skipping.", name)
		return nil, false
	}
	if !hasDeviceExtension(gpu, vk.KhrSwapchainExtensionName) {
		core.LogInfo("Device '%s' has no swapchain support. Skipping.", name)
		return nil, false
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &queueFamilyCount, queueFamilies)

	for i := uint32(0); i < queueFamilyCount; i++ {
		queueFamilies[i].Deref()
		if vk.QueueFlagBits(queueFamilies[i].QueueFlags)&vk.QueueGraphicsBit == 0 {
			continue
		}
		var supportsPresent vk.Bool32 = vk.False
		if res := vk.GetPhysicalDeviceSurfaceSupport(gpu, i, surface, &supportsPresent); res != vk.Success {
			continue
		}
		if supportsPresent != vk.True {
			continue
		}

		support, err := querySurfaceSupport(gpu, surface)
		if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
			core.LogInfo("Device '%s' cannot present to the surface. Skipping.", name)
			return nil, false
		}

		core.LogDebug("Device '%s' meets requirements with queue family %d.", name, i)
		return &physicalDeviceCandidate{
			handle:      gpu,
			properties:  properties,
			queueFamily: i,
			discrete:    properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu,
		}, true
	}

	core.LogInfo("Device '%s' has no queue family with graphics and present. Skipping.", name)
	return nil, false
}

func deviceExtensions(gpu vk.PhysicalDevice) []string {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil); res != vk.Success {
		return nil
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, available); res != vk.Success {
		return nil
	}
	names := make([]string, 0, count)
	for i := range available {
		available[i].Deref()
		names = append(names, cString(available[i].ExtensionName[:]))
	}
	return names
}

func hasDeviceExtension(gpu vk.PhysicalDevice, name string) bool {
	for _, ext := range deviceExtensions(gpu) {
		if ext == name {
			return true
		}
	}
	return false
}

func logDeviceInfo(gpu vk.PhysicalDevice, properties *vk.PhysicalDeviceProperties) {
	core.LogInfo("Selected device: '%s'.", cString(properties.DeviceName[:]))
	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}

	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version(properties.DriverVersion).Major(),
		vk.Version(properties.DriverVersion).Minor(),
		vk.Version(properties.DriverVersion).Patch(),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(properties.ApiVersion).Major(),
		vk.Version(properties.ApiVersion).Minor(),
		vk.Version(properties.ApiVersion).Patch(),
	)

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(gpu, &memory)
	memory.Deref()
	for j := uint32(0); j < memory.MemoryHeapCount; j++ {
		memory.MemoryHeaps[j].Deref()
		memorySizeGib := float64(memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0
		if vk.MemoryHeapFlagBits(memory.MemoryHeaps[j].Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", memorySizeGib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", memorySizeGib)
		}
	}
}

// CreateDevice creates the logical device with one queue and the 1.3 features
// the renderer records with: dynamic rendering and synchronization2.
func (d *Driver) CreateDevice(physical renderer.PhysicalDevice, info renderer.DeviceInfo) (renderer.Device, renderer.Queue, error) {
	gpu, ok := d.physicalDevices.get(uint64(physical))
	if !ok {
		return 0, 0, errors.New("unknown physical device")
	}

	extensions := []string{vk.KhrSwapchainExtensionName}
	if hasDeviceExtension(gpu, portabilitySubsetExtension) {
		extensions = append(extensions, portabilitySubsetExtension)
	}

	queueCreateInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: info.QueueFamilyIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}

	dynamicRendering := vk.PhysicalDeviceDynamicRenderingFeatures{
		SType:            vk.StructureTypePhysicalDeviceDynamicRenderingFeatures,
		DynamicRendering: vk.True,
	}
	sync2 := vk.PhysicalDeviceSynchronization2Features{
		SType:            vk.StructureTypePhysicalDeviceSynchronization2Features,
		PNext:            unsafe.Pointer(&dynamicRendering),
		Synchronization2: vk.True,
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   unsafe.Pointer(&sync2),
		QueueCreateInfoCount:    1,
		PQueueCreateInfos:       []vk.DeviceQueueCreateInfo{queueCreateInfo},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
	}

	var device vk.Device
	if err := check("vkCreateDevice", vk.CreateDevice(gpu, &deviceCreateInfo, nil, &device)); err != nil {
		return 0, 0, err
	}
	d.device = device
	d.queueFamily = info.QueueFamilyIndex
	if err := d.loadDeviceCommands(); err != nil {
		vk.DestroyDevice(device, nil)
		d.device = nil
		return 0, 0, errors.Wrap(err, "load device commands")
	}

	var queue vk.Queue
	vk.GetDeviceQueue(device, info.QueueFamilyIndex, 0, &queue)
	core.LogInfo("Logical device created.")

	return renderer.Device(d.devices.add(device)), renderer.Queue(d.queues.add(queue)), nil
}

func (d *Driver) DestroyDevice(device renderer.Device) {
	handle, ok := d.devices.remove(uint64(device))
	if !ok {
		return
	}
	vk.DestroyDevice(handle, nil)
	d.device = nil
	d.cmds = deviceCommands{}
	d.queues = newHandleTable[vk.Queue](1)
	core.LogDebug("Logical device destroyed.")
}

func (d *Driver) DeviceWaitIdle() error {
	return check("vkDeviceWaitIdle", vk.DeviceWaitIdle(d.device))
}

func (d *Driver) QueueWaitIdle(queue renderer.Queue) error {
	q, ok := d.queues.get(uint64(queue))
	if !ok {
		return errors.New("unknown queue")
	}
	return d.locks.SafeCall(QueueManagement, func() error {
		return check("vkQueueWaitIdle", vk.QueueWaitIdle(q))
	})
}

func (d *Driver) SurfaceSupport(surface renderer.Surface) (renderer.SurfaceSupport, error) {
	surf, ok := d.surfaceTable.get(uint64(surface))
	if !ok {
		return renderer.SurfaceSupport{}, errors.New("unknown surface")
	}
	return querySurfaceSupport(d.gpu, surf)
}

func querySurfaceSupport(gpu vk.PhysicalDevice, surface vk.Surface) (renderer.SurfaceSupport, error) {
	var support renderer.SurfaceSupport

	var capabilities vk.SurfaceCapabilities
	if err := check("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", vk.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &capabilities)); err != nil {
		return support, err
	}
	capabilities.Deref()
	support.Capabilities = renderer.SurfaceCapabilities{
		MinImageCount:  capabilities.MinImageCount,
		MaxImageCount:  capabilities.MaxImageCount,
		CurrentExtent:  fromExtent(capabilities.CurrentExtent),
		MinImageExtent: fromExtent(capabilities.MinImageExtent),
		MaxImageExtent: fromExtent(capabilities.MaxImageExtent),
	}

	var formatCount uint32
	if err := check("vkGetPhysicalDeviceSurfaceFormatsKHR", vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, nil)); err != nil {
		return support, err
	}
	if formatCount > 0 {
		formats := make([]vk.SurfaceFormat, formatCount)
		if err := check("vkGetPhysicalDeviceSurfaceFormatsKHR", vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, formats)); err != nil {
			return support, err
		}
		for i := range formats {
			formats[i].Deref()
			support.Formats = append(support.Formats, renderer.SurfaceFormat{
				Format:     renderer.Format(formats[i].Format),
				ColorSpace: renderer.ColorSpace(formats[i].ColorSpace),
			})
		}
	}

	var presentModeCount uint32
	if err := check("vkGetPhysicalDeviceSurfacePresentModesKHR", vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &presentModeCount, nil)); err != nil {
		return support, err
	}
	if presentModeCount > 0 {
		modes := make([]vk.PresentMode, presentModeCount)
		if err := check("vkGetPhysicalDeviceSurfacePresentModesKHR", vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &presentModeCount, modes)); err != nil {
			return support, err
		}
		for _, mode := range modes {
			support.PresentModes = append(support.PresentModes, renderer.PresentMode(mode))
		}
	}

	return support, nil
}

func (d *Driver) FormatSupportsDepthAttachment(format renderer.Format) bool {
	var properties vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(d.gpu, vk.Format(format), &properties)
	properties.Deref()
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	return properties.OptimalTilingFeatures&flags == flags
}
