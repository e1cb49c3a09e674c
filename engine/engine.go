package engine

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/assets"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/platform"
	"github.com/spaghettifunk/kiln/engine/renderer"
	"github.com/spaghettifunk/kiln/engine/renderer/vulkan"
	"github.com/spaghettifunk/kiln/engine/scene"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Everything has been released
	EngineStageShutdown
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    atomic.Bool
	isSuspended  bool

	events       *core.EventBus
	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     *renderer.Renderer
	scene        *scene.Scene

	width    uint32
	height   uint32
	clock    *core.Clock
	metrics  *core.Metrics
	lastTime float64
}

func New(g *Game) (*Engine, error) {
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = DefaultApplicationConfig()
	}
	if err := g.ApplicationConfig.Validate(); err != nil {
		return nil, err
	}
	if g.FnInitialize == nil {
		return nil, errors.New("game has no initialize function")
	}

	events := core.NewEventBus()
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		events:       events,
		platform:     platform.New(events),
		assetManager: assets.NewAssetManager(),
		scene:        scene.NewScene(),
		width:        g.ApplicationConfig.StartWidth,
		height:       g.ApplicationConfig.StartHeight,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	config := e.gameInstance.ApplicationConfig

	core.SetLogLevel(config.LogLevel)

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onQuit)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	if err := e.platform.Startup(config.Name, config.StartPosX, config.StartPosY, config.StartWidth, config.StartHeight); err != nil {
		return err
	}
	e.width, e.height = e.platform.FramebufferSize()

	if err := e.assetManager.Initialize(config.ShaderDir, config.WatchShaders); err != nil {
		return err
	}

	rendererConfig := config.RendererConfig()
	rendererConfig.Width, rendererConfig.Height = e.width, e.height
	r, err := renderer.NewRenderer(vulkan.New(e.platform), e.assetManager, rendererConfig)
	if err != nil {
		return err
	}
	e.renderer = r

	if err := e.gameInstance.FnInitialize(e.scene, &e.renderer.Camera); err != nil {
		return errors.Wrap(err, "game initialize")
	}
	if err := e.renderer.Prepare(e.scene); err != nil {
		return err
	}

	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.New("engine is not initialized")
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		if !e.platform.PumpMessages() {
			break
		}

		if e.isSuspended {
			// Nothing to present to while minimised.
			e.platform.WaitEvents()
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		e.lastTime = currentTime

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				return errors.Wrap(err, "game update")
			}
		}

		if err := e.renderer.DrawFrame(); err != nil {
			return err
		}

		if e.metrics.Update(delta) {
			core.LogDebug("frame time %.2fms, %.0f fps", e.metrics.FrameTime(), e.metrics.FPS())
		}
	}
	return nil
}

// Stop asks the run loop to return after the current frame. Safe to call
// from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("game shutdown: %s", err)
		}
	}

	if e.renderer != nil {
		e.renderer.Shutdown()
		e.renderer = nil
	}
	if err := e.assetManager.Close(); err != nil {
		core.LogError("asset manager: %s", err)
	}
	if err := e.platform.Shutdown(); err != nil {
		return err
	}
	e.events.Shutdown()

	e.currentStage = EngineStageShutdown
	core.LogInfo("Engine shut down.")
	return nil
}

func (e *Engine) onQuit(ctx core.EventContext) bool {
	core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
	e.Stop()
	return true
}

func (e *Engine) onResized(ctx core.EventContext) bool {
	data, ok := ctx.Data.(*core.SystemEvent)
	if !ok {
		return false
	}
	width, height := data.WindowWidth, data.WindowHeight
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height

	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}

	// The swapchain is rebuilt when acquire or present reports it stale.
	if e.renderer != nil {
		e.renderer.SetFramebufferSize(width, height)
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError("game resize: %s", err)
		}
	}
	return false
}
