package testbed

import (
	"github.com/spaghettifunk/kiln/engine"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/geometry"
	"github.com/spaghettifunk/kiln/engine/math"
	"github.com/spaghettifunk/kiln/engine/renderer"
	"github.com/spaghettifunk/kiln/engine/scene"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	sphere *scene.Node
	spin   float32

	width  uint32
	height uint32
}

// NewTestGame builds the demo: a blue sphere resting above a green plane.
func NewTestGame(config *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize(s *scene.Scene, camera *renderer.Camera) error {
	core.LogInfo("initializing testbed...")

	sphere := geometry.GenerateSphereColored(0.5, 32, 32, math.NewVec3(0, 0, 1))
	plane := geometry.GeneratePlaneColored(2, 2, geometry.AxisZ, 1, 1, math.NewVec3(0, 1, 0))

	g.state().sphere = s.AddNode(sphere, math.NewVec3Zero(), math.NewVec3Zero())
	s.AddNode(plane, math.NewVec3(0, 0, -0.5), math.NewVec3Zero())

	*camera = renderer.DefaultCamera()
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	st := g.state()
	st.spin += float32(0.5 * deltaTime)
	st.sphere.SetEulerAngles(math.NewVec3(0, 0, st.spin))
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	st := g.state()
	st.width = width
	st.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogInfo("shutting down testbed...")
	return nil
}
