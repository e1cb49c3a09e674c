package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/stretchr/testify/require"
)

func TestVulkanSafeString(t *testing.T) {
	require.Equal(t, "\x00", VulkanSafeString(""))
	require.Equal(t, "main\x00", VulkanSafeString("main"))
	require.Equal(t, "main\x00", VulkanSafeString("main\x00"))

	in := []string{"VK_KHR_surface"}
	out := VulkanSafeStrings(in)
	require.Equal(t, "VK_KHR_surface\x00", out[0])
	require.Equal(t, "VK_KHR_surface", in[0])
}

func TestCString(t *testing.T) {
	var name [16]byte
	copy(name[:], "llvmpipe")
	require.Equal(t, "llvmpipe", cString(name[:]))

	full := []byte("abcd")
	require.Equal(t, 4, FindFirstZeroInByteArray(full))
}

func TestCheck(t *testing.T) {
	require.NoError(t, check("vkCreateFence", vk.Success))

	err := check("vkQueueSubmit", vk.ErrorDeviceLost)
	code, ok := core.DriverCode(err)
	require.True(t, ok)
	require.Equal(t, int32(-4), code)
	require.Contains(t, err.Error(), "vkQueueSubmit")
}
