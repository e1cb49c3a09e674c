package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kiln.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	require.Equal(t, DefaultApplicationConfig(), config)
}

func TestLoadConfigOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
name = "demo"
start_width = 1280
start_height = 720
max_objects = 64
log_level = "debug"
validation = false
`)
	config, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "demo", config.Name)
	require.Equal(t, uint32(1280), config.StartWidth)
	require.Equal(t, uint32(720), config.StartHeight)
	require.Equal(t, uint32(64), config.MaxObjects)
	require.Equal(t, "debug", config.LogLevel)
	require.False(t, config.Validation)
	// untouched keys keep their defaults
	require.Equal(t, "shaders", config.ShaderDir)
	require.Equal(t, "triangle.vert.spv", config.VertexShader)
	require.True(t, config.WatchShaders)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero width", "start_width = 0"},
		{"zero objects", "max_objects = 0"},
		{"too many objects", "max_objects = 4096"},
		{"bad level", `log_level = "loud"`},
		{"empty shader", `vertex_shader = ""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestLoadConfigBadToml(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "name = "))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrInvalidConfig))
}

func TestRendererConfig(t *testing.T) {
	config := DefaultApplicationConfig()
	config.FenceTimeout = 1000

	rc := config.RendererConfig()
	require.Equal(t, "kiln", rc.ApplicationName)
	require.Equal(t, uint32(800), rc.Width)
	require.Equal(t, uint32(600), rc.Height)
	require.Equal(t, uint32(32), rc.MaxObjects)
	require.Equal(t, uint64(1000), rc.FenceTimeout)
	require.True(t, rc.Validation)
}
