package renderer

import (
	"github.com/cockroachdb/errors"
)

var ErrEmptyUpload = errors.New("upload of zero bytes")

// GpuBuffer is a buffer together with the allocation backing it.
type GpuBuffer struct {
	Buffer     Buffer
	Allocation Allocation
	Size       uint64
}

func (b GpuBuffer) IsNull() bool {
	return b.Buffer == 0
}

/**
 * Allocates a command buffer from the upload pool and begins recording it for
 * a single submission.
 */
func (c *DeviceContext) beginSingleUse() (CommandBuffer, error) {
	cb, err := c.Driver.AllocateCommandBuffer(c.UploadPool)
	if err != nil {
		return 0, err
	}
	if err := c.Driver.BeginCommandBuffer(cb, true); err != nil {
		c.Driver.FreeCommandBuffer(c.UploadPool, cb)
		return 0, err
	}
	return cb, nil
}

/**
 * Ends recording, submits to and waits for the queue and frees the command buffer.
 */
func (c *DeviceContext) endSingleUse(cb CommandBuffer) error {
	defer c.Driver.FreeCommandBuffer(c.UploadPool, cb)

	if err := c.Driver.EndCommandBuffer(cb); err != nil {
		return err
	}
	if err := c.Driver.QueueSubmit(c.Queue, SubmitInfo{CommandBuffer: cb}); err != nil {
		return err
	}
	return c.Driver.QueueWaitIdle(c.Queue)
}

func (c *DeviceContext) copyBuffer(src, dst Buffer, size uint64) error {
	cb, err := c.beginSingleUse()
	if err != nil {
		return err
	}
	c.Driver.CmdCopyBuffer(cb, src, dst, size)
	return c.endSingleUse(cb)
}

// Upload copies data into a new device-local buffer through a staging buffer.
// It blocks until the copy has finished on the queue, so the returned buffer
// is complete. The staging buffer is gone by the time Upload returns.
func (c *DeviceContext) Upload(data []byte, usage BufferUsage) (GpuBuffer, error) {
	if len(data) == 0 {
		return GpuBuffer{}, ErrEmptyUpload
	}
	size := uint64(len(data))

	staging, err := c.Allocator.CreateBuffer(size, BufferUsageTransferSrc, MemoryCPUOnly)
	if err != nil {
		return GpuBuffer{}, errors.Wrap(err, "create staging buffer")
	}
	defer c.Allocator.DestroyBuffer(staging)

	if err := c.Allocator.Write(staging, 0, data); err != nil {
		return GpuBuffer{}, errors.Wrap(err, "fill staging buffer")
	}

	dst, err := c.Allocator.CreateBuffer(size, usage|BufferUsageTransferDst, MemoryGPUOnly)
	if err != nil {
		return GpuBuffer{}, errors.Wrap(err, "create device buffer")
	}
	if err := c.copyBuffer(staging.Buffer, dst.Buffer, size); err != nil {
		c.Allocator.DestroyBuffer(dst)
		return GpuBuffer{}, errors.Wrap(err, "copy staging buffer")
	}
	return dst, nil
}

// Readback copies a device-local buffer back to host memory. The buffer must
// have been created with BufferUsageTransferSrc.
func (c *DeviceContext) Readback(buf GpuBuffer) ([]byte, error) {
	usage, ok := c.Allocator.Usage(buf.Buffer)
	if !ok {
		return nil, ErrUnknownBuffer
	}
	if usage&BufferUsageTransferSrc == 0 {
		return nil, errors.Newf("buffer %d was not created as a transfer source", buf.Buffer)
	}

	staging, err := c.Allocator.CreateBuffer(buf.Size, BufferUsageTransferDst, MemoryCPUOnly)
	if err != nil {
		return nil, errors.Wrap(err, "create readback buffer")
	}
	defer c.Allocator.DestroyBuffer(staging)

	if err := c.copyBuffer(buf.Buffer, staging.Buffer, buf.Size); err != nil {
		return nil, errors.Wrap(err, "copy to readback buffer")
	}
	out := make([]byte, buf.Size)
	if err := c.Allocator.Read(staging, out); err != nil {
		return nil, err
	}
	return out, nil
}
