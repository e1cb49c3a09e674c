package vulkan

/*
#include <stdint.h>
#include <stdlib.h>

typedef void (*kilnVoidFunction)(void);
typedef kilnVoidFunction (*kilnGetProcAddr)(void* handle, const char* name);
typedef void (*kilnCmdBeginRendering)(void* commandBuffer, const void* renderingInfo);
typedef void (*kilnCmdEndRendering)(void* commandBuffer);
typedef void (*kilnCmdSetFlags)(void* commandBuffer, uint32_t value);
typedef void (*kilnCmdSetEnum)(void* commandBuffer, int32_t value);

static void* kilnProcAddr(void* getProcAddr, void* handle, const char* name) {
	return (void*)((kilnGetProcAddr)getProcAddr)(handle, name);
}

static void kilnCallBeginRendering(void* fn, void* commandBuffer, const void* renderingInfo) {
	((kilnCmdBeginRendering)fn)(commandBuffer, renderingInfo);
}

static void kilnCallEndRendering(void* fn, void* commandBuffer) {
	((kilnCmdEndRendering)fn)(commandBuffer);
}

static void kilnCallSetFlags(void* fn, void* commandBuffer, uint32_t value) {
	((kilnCmdSetFlags)fn)(commandBuffer, value);
}

static void kilnCallSetEnum(void* fn, void* commandBuffer, int32_t value) {
	((kilnCmdSetEnum)fn)(commandBuffer, value);
}
*/
import "C"

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

/**
 * @brief Device commands the binding does not wrap. Each is loaded through
 * vkGetDeviceProcAddr once the logical device exists, trying the core 1.3 name
 * first and then the extension alias.
 */
type deviceCommands struct {
	beginRendering       unsafe.Pointer
	endRendering         unsafe.Pointer
	setCullMode          unsafe.Pointer
	setFrontFace         unsafe.Pointer
	setPrimitiveTopology unsafe.Pointer
}

// deviceCommand is one command slot and the names it may be exported under.
type deviceCommand struct {
	slot  *unsafe.Pointer
	names []string
}

func (c *deviceCommands) entries() []deviceCommand {
	return []deviceCommand{
		{&c.beginRendering, []string{"vkCmdBeginRendering", "vkCmdBeginRenderingKHR"}},
		{&c.endRendering, []string{"vkCmdEndRendering", "vkCmdEndRenderingKHR"}},
		{&c.setCullMode, []string{"vkCmdSetCullMode", "vkCmdSetCullModeEXT"}},
		{&c.setFrontFace, []string{"vkCmdSetFrontFace", "vkCmdSetFrontFaceEXT"}},
		{&c.setPrimitiveTopology, []string{"vkCmdSetPrimitiveTopology", "vkCmdSetPrimitiveTopologyEXT"}},
	}
}

// resolveDeviceCommands fills every command from lookup, which returns nil for
// names the device does not expose.
func resolveDeviceCommands(lookup func(name string) unsafe.Pointer) (deviceCommands, error) {
	var cmds deviceCommands
	for _, e := range cmds.entries() {
		for _, name := range e.names {
			if fn := lookup(name); fn != nil {
				*e.slot = fn
				break
			}
		}
		if *e.slot == nil {
			return deviceCommands{}, errors.Newf("device does not expose %s", e.names[0])
		}
	}
	return cmds, nil
}

func procAddr(getProcAddr unsafe.Pointer, handle unsafe.Pointer, name string) unsafe.Pointer {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return C.kilnProcAddr(getProcAddr, handle, cname)
}

// loadDeviceCommands resolves the commands for the current device.
func (d *Driver) loadDeviceCommands() error {
	if d.getInstanceProcAddr == nil {
		return errors.New("vkGetInstanceProcAddr is not set")
	}
	getDeviceProcAddr := procAddr(d.getInstanceProcAddr, unsafe.Pointer(d.instance), "vkGetDeviceProcAddr")
	if getDeviceProcAddr == nil {
		return errors.New("vkGetDeviceProcAddr is not available")
	}

	device := unsafe.Pointer(d.device)
	cmds, err := resolveDeviceCommands(func(name string) unsafe.Pointer {
		return procAddr(getDeviceProcAddr, device, name)
	})
	if err != nil {
		return err
	}
	d.cmds = cmds
	return nil
}

func (c *deviceCommands) cmdBeginRendering(cb vk.CommandBuffer, info *vk.RenderingInfo) {
	ref, _ := info.PassRef()
	defer info.Free()
	C.kilnCallBeginRendering(c.beginRendering, unsafe.Pointer(cb), unsafe.Pointer(ref))
}

func (c *deviceCommands) cmdEndRendering(cb vk.CommandBuffer) {
	C.kilnCallEndRendering(c.endRendering, unsafe.Pointer(cb))
}

func (c *deviceCommands) cmdSetCullMode(cb vk.CommandBuffer, mode vk.CullModeFlags) {
	C.kilnCallSetFlags(c.setCullMode, unsafe.Pointer(cb), C.uint32_t(mode))
}

func (c *deviceCommands) cmdSetFrontFace(cb vk.CommandBuffer, face vk.FrontFace) {
	C.kilnCallSetEnum(c.setFrontFace, unsafe.Pointer(cb), C.int32_t(face))
}

func (c *deviceCommands) cmdSetPrimitiveTopology(cb vk.CommandBuffer, topology vk.PrimitiveTopology) {
	C.kilnCallSetEnum(c.setPrimitiveTopology, unsafe.Pointer(cb), C.int32_t(topology))
}
