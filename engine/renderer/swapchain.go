package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/math"
)

// undefinedExtent in CurrentExtent means the surface size follows the swapchain.
const undefinedExtent = ^uint32(0)

// Preferred color formats, most wanted first.
var preferredSurfaceFormats = []Format{
	FormatR8G8B8A8Srgb,
	FormatB8G8R8A8Srgb,
	FormatA8B8G8R8SrgbPack32,
}

// SwapchainState is a built swapchain with one view per image. The image count
// is fixed for its lifetime.
type SwapchainState struct {
	Handle      Swapchain
	Images      []Image
	Views       []ImageView
	Format      SurfaceFormat
	Extent      Extent2D
	PresentMode PresentMode
}

func (s *SwapchainState) ImageCount() uint32 {
	return uint32(len(s.Images))
}

func chooseSurfaceFormat(formats []SurfaceFormat) SurfaceFormat {
	for _, want := range preferredSurfaceFormats {
		for _, f := range formats {
			if f.Format == want {
				return f
			}
		}
	}
	return formats[0]
}

func choosePresentMode(modes []PresentMode) PresentMode {
	for _, m := range modes {
		if m == PresentModeMailbox {
			return m
		}
	}
	return PresentModeFifo
}

func chooseExtent(caps SurfaceCapabilities, fallback Extent2D) Extent2D {
	extent := fallback
	if caps.CurrentExtent.Width != undefinedExtent {
		extent = caps.CurrentExtent
	}
	// Clamp to the value allowed by the GPU.
	extent.Width = math.Clamp(extent.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width)
	extent.Height = math.Clamp(extent.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height)
	return extent
}

func chooseImageCount(caps SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// SurfaceExtent is the extent a swapchain built right now would get.
func (c *DeviceContext) SurfaceExtent(fallback Extent2D) (Extent2D, error) {
	support, err := c.Driver.SurfaceSupport(c.Surface)
	if err != nil {
		return Extent2D{}, err
	}
	return chooseExtent(support.Capabilities, fallback), nil
}

// CreateSwapchain builds a swapchain for the current surface state. old, when
// not nil, is handed to the driver and destroyed only once the new swapchain
// and its views exist. On failure old is left untouched.
func CreateSwapchain(c *DeviceContext, old *SwapchainState, fallback Extent2D) (*SwapchainState, error) {
	support, err := c.Driver.SurfaceSupport(c.Surface)
	if err != nil {
		return nil, errors.Wrap(err, "query surface support")
	}
	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		return nil, errors.New("surface reports no formats or present modes")
	}

	state := &SwapchainState{
		Format:      chooseSurfaceFormat(support.Formats),
		PresentMode: choosePresentMode(support.PresentModes),
		Extent:      chooseExtent(support.Capabilities, fallback),
	}

	desc := SwapchainDesc{
		Surface:     c.Surface,
		MinImages:   chooseImageCount(support.Capabilities),
		Format:      state.Format,
		Extent:      state.Extent,
		PresentMode: state.PresentMode,
	}
	if old != nil {
		desc.Old = old.Handle
	}

	state.Handle, err = c.Driver.CreateSwapchain(desc)
	if err != nil {
		return nil, errors.Wrap(err, "create swapchain")
	}

	state.Images, err = c.Driver.SwapchainImages(state.Handle)
	if err != nil {
		c.Driver.DestroySwapchain(state.Handle)
		return nil, errors.Wrap(err, "get swapchain images")
	}

	state.Views = make([]ImageView, 0, len(state.Images))
	for _, img := range state.Images {
		view, err := c.Driver.CreateImageView(img, state.Format.Format, ImageAspectColor)
		if err != nil {
			state.Destroy(c)
			return nil, errors.Wrap(err, "create swapchain image view")
		}
		state.Views = append(state.Views, view)
	}

	if old != nil {
		old.Destroy(c)
	}

	core.LogInfo("Swapchain created: %dx%d, format %d, %d images, present mode %d",
		state.Extent.Width, state.Extent.Height, state.Format.Format, len(state.Images), state.PresentMode)
	return state, nil
}

// Destroy releases the views and then the swapchain. The images belong to the swapchain.
func (s *SwapchainState) Destroy(c *DeviceContext) {
	for _, v := range s.Views {
		if v != 0 {
			c.Driver.DestroyImageView(v)
		}
	}
	s.Views = nil
	s.Images = nil
	if s.Handle != 0 {
		c.Driver.DestroySwapchain(s.Handle)
		s.Handle = 0
	}
}
