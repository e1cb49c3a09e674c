package renderer_test

import (
	"encoding/binary"
	stdmath "math"
	"testing"

	"github.com/spaghettifunk/kiln/engine/math"
	"github.com/spaghettifunk/kiln/engine/renderer"
	"github.com/stretchr/testify/require"
)

func TestUniformStride(t *testing.T) {
	tests := []struct {
		align uint64
		want  uint64
	}{
		{0, 80},
		{1, 80},
		{16, 80},
		{64, 128},
		{256, 256},
	}

	for _, tt := range tests {
		stride, err := renderer.UniformStride(tt.align)
		require.NoError(t, err)
		require.Equal(t, tt.want, stride, "alignment %d", tt.align)
		require.GreaterOrEqual(t, stride, uint64(renderer.UniformRecordSize))
		if tt.align > 0 {
			require.Zero(t, stride%tt.align)
		}
	}
}

func TestUniformStrideRejectsNonPowerOfTwo(t *testing.T) {
	_, err := renderer.UniformStride(48)
	require.Error(t, err)
}

func TestUniformRecordPack(t *testing.T) {
	rec := renderer.UniformRecord{
		Light: math.NewVec4(5, 5, 5, 1),
		MVP:   math.NewMat4Translation(math.NewVec3(1, 2, 3)),
	}
	buf := make([]byte, renderer.UniformRecordSize)
	rec.Pack(buf)

	f := func(off int) float32 {
		return stdmath.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
	}
	require.Equal(t, []float32{5, 5, 5, 1}, []float32{f(0), f(4), f(8), f(12)})
	// Column major: the translation sits in elements 12..14.
	require.Equal(t, float32(1), f(16))
	require.Equal(t, []float32{1, 2, 3, 1}, []float32{f(16 + 48), f(16 + 52), f(16 + 56), f(16 + 60)})
}

func TestWriteObjectBounds(t *testing.T) {
	d, ctx := newContext(t)

	u, err := renderer.NewUniformManager(ctx, 4)
	require.NoError(t, err)
	require.NoError(t, u.Allocate(2))
	require.Equal(t, 2, u.SlotCount())

	rec := renderer.UniformRecord{Light: math.NewVec4(1, 2, 3, 4), MVP: math.NewMat4Identity()}
	require.NoError(t, u.WriteObject(1, 3, rec))
	require.ErrorIs(t, u.WriteObject(1, 4, rec), renderer.ErrTooManyObjects)

	contents := d.BufferContents(u.Slot(1).Buffer.Buffer)
	require.Len(t, contents, int(u.Stride)*4)
	packed := make([]byte, renderer.UniformRecordSize)
	rec.Pack(packed)
	require.Equal(t, packed, contents[3*u.Stride:3*u.Stride+renderer.UniformRecordSize])
	require.Equal(t, uint32(3*u.Stride), u.DynamicOffset(3))

	u.Destroy()
	require.Zero(t, ctx.Allocator.LiveCount())
}
