package vulkan

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func fakeProcs(names ...string) (func(string) unsafe.Pointer, map[string]unsafe.Pointer) {
	procs := make(map[string]unsafe.Pointer, len(names))
	for _, name := range names {
		procs[name] = unsafe.Pointer(new(byte))
	}
	return func(name string) unsafe.Pointer { return procs[name] }, procs
}

func TestResolveDeviceCommandsPrefersCoreNames(t *testing.T) {
	lookup, procs := fakeProcs(
		"vkCmdBeginRendering", "vkCmdBeginRenderingKHR",
		"vkCmdEndRendering",
		"vkCmdSetCullMode", "vkCmdSetFrontFace", "vkCmdSetPrimitiveTopology",
	)

	cmds, err := resolveDeviceCommands(lookup)
	require.NoError(t, err)
	require.Equal(t, procs["vkCmdBeginRendering"], cmds.beginRendering)
	require.Equal(t, procs["vkCmdEndRendering"], cmds.endRendering)
	require.Equal(t, procs["vkCmdSetCullMode"], cmds.setCullMode)
	require.Equal(t, procs["vkCmdSetFrontFace"], cmds.setFrontFace)
	require.Equal(t, procs["vkCmdSetPrimitiveTopology"], cmds.setPrimitiveTopology)
}

func TestResolveDeviceCommandsFallsBackToExtensions(t *testing.T) {
	lookup, procs := fakeProcs(
		"vkCmdBeginRenderingKHR", "vkCmdEndRenderingKHR",
		"vkCmdSetCullModeEXT", "vkCmdSetFrontFaceEXT", "vkCmdSetPrimitiveTopologyEXT",
	)

	cmds, err := resolveDeviceCommands(lookup)
	require.NoError(t, err)
	require.Equal(t, procs["vkCmdBeginRenderingKHR"], cmds.beginRendering)
	require.Equal(t, procs["vkCmdEndRenderingKHR"], cmds.endRendering)
	require.Equal(t, procs["vkCmdSetCullModeEXT"], cmds.setCullMode)
	require.Equal(t, procs["vkCmdSetFrontFaceEXT"], cmds.setFrontFace)
	require.Equal(t, procs["vkCmdSetPrimitiveTopologyEXT"], cmds.setPrimitiveTopology)
}

func TestResolveDeviceCommandsMissing(t *testing.T) {
	lookup, _ := fakeProcs("vkCmdBeginRendering", "vkCmdEndRendering", "vkCmdSetCullMode", "vkCmdSetFrontFace")

	cmds, err := resolveDeviceCommands(lookup)
	require.ErrorContains(t, err, "vkCmdSetPrimitiveTopology")
	require.Equal(t, deviceCommands{}, cmds)
}
