package loaders

import (
	"os"
	"time"
)

// Asset is a loaded file.
type Asset struct {
	Path       string
	Data       []byte
	LastLoaded time.Time
}

type Loader interface {
	Load(path string) (*Asset, error)
}

// ShaderLoader reads a compiled SPIR-V module as raw bytes. The driver is
// the only consumer that interprets them.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string) (*Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Asset{
		Path:       path,
		Data:       data,
		LastLoaded: time.Now(),
	}, nil
}
