package core

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestFatalInitIsDistinguishable(t *testing.T) {
	base := NewDriverError("vkCreateDevice", -3)
	err := MarkFatalInit(base, "logical device")

	require.True(t, IsFatalInit(err))
	code, ok := DriverCode(err)
	require.True(t, ok)
	require.Equal(t, int32(-3), code)
	require.Contains(t, err.Error(), "initialize logical device")
	require.Contains(t, err.Error(), "VK_ERROR_INITIALIZATION_FAILED")
}

func TestDriverErrorIsNotFatalInit(t *testing.T) {
	err := errors.Wrap(NewDriverError("vkQueueSubmit", -4), "draw frame")

	require.False(t, IsFatalInit(err))
	code, ok := DriverCode(err)
	require.True(t, ok)
	require.Equal(t, int32(-4), code)
}

func TestDriverCodeMissing(t *testing.T) {
	_, ok := DriverCode(errors.New("plain"))
	require.False(t, ok)
	require.Nil(t, MarkFatalInit(nil, "nothing"))
}

func TestResultName(t *testing.T) {
	for code, name := range map[int32]string{
		0:           "VK_SUCCESS",
		2:           "VK_TIMEOUT",
		1000001003:  "VK_SUBOPTIMAL_KHR",
		-1000001004: "VK_ERROR_OUT_OF_DATE_KHR",
		-42:         "VK_ERROR_UNKNOWN",
	} {
		require.Equal(t, name, ResultName(code))
	}
}
