package engine

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/kiln/engine/renderer"
)

const maxObjectsLimit = 1024

var ErrInvalidConfig = errors.New("invalid application config")

type ApplicationConfig struct {
	// The application name used in windowing, if applicable.
	Name string `toml:"name"`
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"start_height"`
	// One of debug, info, warn or error.
	LogLevel string `toml:"log_level"`

	ShaderDir      string `toml:"shader_dir"`
	VertexShader   string `toml:"vertex_shader"`
	FragmentShader string `toml:"fragment_shader"`
	// Reload shader bytes from disk when they change.
	WatchShaders bool `toml:"watch_shaders"`

	MaxObjects uint32 `toml:"max_objects"`
	// Fence wait limit in nanoseconds, 0 waits forever.
	FenceTimeout uint64 `toml:"fence_timeout"`
	Validation   bool   `toml:"validation"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Name:           "kiln",
		StartPosX:      100,
		StartPosY:      100,
		StartWidth:     800,
		StartHeight:    600,
		LogLevel:       "info",
		ShaderDir:      "shaders",
		VertexShader:   "triangle.vert.spv",
		FragmentShader: "triangle.frag.spv",
		WatchShaders:   true,
		MaxObjects:     32,
		FenceTimeout:   0,
		Validation:     true,
	}
}

// LoadConfig overlays the toml file at path on the defaults. A missing file
// leaves the defaults in place.
func LoadConfig(path string) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, errors.Wrapf(err, "read config %s", path)
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *ApplicationConfig) Validate() error {
	if c.StartWidth == 0 || c.StartHeight == 0 {
		return errors.Wrapf(ErrInvalidConfig, "window size %dx%d", c.StartWidth, c.StartHeight)
	}
	if c.MaxObjects == 0 || c.MaxObjects > maxObjectsLimit {
		return errors.Wrapf(ErrInvalidConfig, "max_objects %d outside 1..%d", c.MaxObjects, maxObjectsLimit)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown log level %q", c.LogLevel)
	}
	if c.VertexShader == "" || c.FragmentShader == "" {
		return errors.Wrap(ErrInvalidConfig, "shader paths must be set")
	}
	return nil
}

// RendererConfig is the part of the config the renderer consumes.
func (c *ApplicationConfig) RendererConfig() renderer.Config {
	return renderer.Config{
		ApplicationName: c.Name,
		Validation:      c.Validation,
		Width:           c.StartWidth,
		Height:          c.StartHeight,
		MaxObjects:      c.MaxObjects,
		FenceTimeout:    c.FenceTimeout,
		VertexShader:    c.VertexShader,
		FragmentShader:  c.FragmentShader,
	}
}
