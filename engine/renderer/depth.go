package renderer

import (
	"github.com/cockroachdb/errors"
)

var depthFormatCandidates = []Format{
	FormatD32Sfloat,
	FormatD32SfloatS8Uint,
	FormatD24UnormS8Uint,
}

// DetectDepthFormat returns the first candidate usable as an optimally tiled
// depth attachment.
func DetectDepthFormat(driver Driver) (Format, error) {
	for _, f := range depthFormatCandidates {
		if driver.FormatSupportsDepthAttachment(f) {
			return f, nil
		}
	}
	return FormatUndefined, errors.New("no supported depth format")
}

// DepthResource is the depth attachment shared by every frame. It matches the
// swapchain extent and is rebuilt with it.
type DepthResource struct {
	Image  Image
	View   ImageView
	Format Format
	Extent Extent2D
}

func CreateDepthResource(c *DeviceContext, format Format, extent Extent2D) (*DepthResource, error) {
	img, err := c.Allocator.CreateImage(ImageDesc{
		Extent: extent,
		Format: format,
		Usage:  ImageUsageDepthStencilAttachment,
		Memory: MemoryGPUOnly,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create depth image")
	}
	view, err := c.Driver.CreateImageView(img, format, ImageAspectDepth)
	if err != nil {
		c.Allocator.DestroyImage(img)
		return nil, errors.Wrap(err, "create depth image view")
	}
	return &DepthResource{Image: img, View: view, Format: format, Extent: extent}, nil
}

func (d *DepthResource) Destroy(c *DeviceContext) {
	if d.View != 0 {
		c.Driver.DestroyImageView(d.View)
		d.View = 0
	}
	if d.Image != 0 {
		c.Allocator.DestroyImage(d.Image)
		d.Image = 0
	}
}
