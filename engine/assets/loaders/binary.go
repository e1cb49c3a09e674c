package loaders

import (
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrBytecodeSize is returned for SPIR-V data whose length is not a whole
// number of 32-bit words.
var ErrBytecodeSize = errors.New("bytecode length is not a multiple of 4")

// BinaryLoader reads any file verbatim.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string) (*Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &Asset{
		Path:       path,
		Data:       buf,
		LastLoaded: time.Now(),
	}, nil
}

// BytesToBytecode packs little-endian bytes into SPIR-V words.
func BytesToBytecode(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, errors.Wrapf(ErrBytecodeSize, "got %d bytes", len(b))
	}
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode, nil
}
