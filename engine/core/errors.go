package core

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrFatalInit marks failures during device bootstrap. There is no fallback path for them.
	ErrFatalInit = errors.New("fatal initialization failure")
	ErrUnknown   = errors.New("unknown")
)

// DriverError is a failed GPU call. Code holds the raw driver result.
type DriverError struct {
	Op   string
	Code int32
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("%s failed: %s (%d)", e.Op, ResultName(e.Code), e.Code)
}

// NewDriverError wraps code into a DriverError with a stack attached.
func NewDriverError(op string, code int32) error {
	return errors.WithStack(&DriverError{Op: op, Code: code})
}

// MarkFatalInit tags err so that IsFatalInit reports true for it and anything wrapping it.
func MarkFatalInit(err error, step string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, "initialize %s", step), ErrFatalInit)
}

func IsFatalInit(err error) bool {
	return errors.Is(err, ErrFatalInit)
}

// DriverCode returns the driver result carried by err, if any.
func DriverCode(err error) (int32, bool) {
	var de *DriverError
	if errors.As(err, &de) {
		return de.Code, true
	}
	return 0, false
}

// ResultName renders the Vulkan-style symbolic name of a driver result code.
func ResultName(code int32) string {
	switch code {
	case 0:
		return "VK_SUCCESS"
	case 1:
		return "VK_NOT_READY"
	case 2:
		return "VK_TIMEOUT"
	case 1000001003:
		return "VK_SUBOPTIMAL_KHR"
	case -1:
		return "VK_ERROR_OUT_OF_HOST_MEMORY"
	case -2:
		return "VK_ERROR_OUT_OF_DEVICE_MEMORY"
	case -3:
		return "VK_ERROR_INITIALIZATION_FAILED"
	case -4:
		return "VK_ERROR_DEVICE_LOST"
	case -5:
		return "VK_ERROR_MEMORY_MAP_FAILED"
	case -6:
		return "VK_ERROR_LAYER_NOT_PRESENT"
	case -7:
		return "VK_ERROR_EXTENSION_NOT_PRESENT"
	case -8:
		return "VK_ERROR_FEATURE_NOT_PRESENT"
	case -9:
		return "VK_ERROR_INCOMPATIBLE_DRIVER"
	case -1000000000:
		return "VK_ERROR_SURFACE_LOST_KHR"
	case -1000001004:
		return "VK_ERROR_OUT_OF_DATE_KHR"
	default:
		return "VK_ERROR_UNKNOWN"
	}
}
