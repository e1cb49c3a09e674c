package engine

import (
	"github.com/spaghettifunk/kiln/engine/renderer"
	"github.com/spaghettifunk/kiln/engine/scene"
)

// Game is the application side of the engine. Only FnInitialize is required.
type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

// Initialize populates the scene. The camera can be adjusted before the first frame.
type Initialize func(s *scene.Scene, camera *renderer.Camera) error
type Update func(deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
