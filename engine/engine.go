package engine

import (
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sync/atomic"
	"syscall"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/spincube/engine/assets"
	"github.com/spaghettifunk/spincube/engine/config"
	"github.com/spaghettifunk/spincube/engine/core"
	"github.com/spaghettifunk/spincube/engine/platform"
	"github.com/spaghettifunk/spincube/engine/renderer"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// Engine owns the window and drives a FrameRenderer from the main thread
// until the window closes or the process is signalled.
type Engine struct {
	currentStage Stage
	config       *config.Config
	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     *renderer.FrameRenderer
	clock        *core.Clock
	metrics      *core.Metrics
	stop         atomic.Bool
}

func New(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       cfg,
		platform:     platform.New(),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
	}, nil
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return core.ErrAlreadyInitialized
	}

	if err := e.platform.Startup(e.config.Application); err != nil {
		return fmt.Errorf("starting platform: %w", err)
	}

	opts := []renderer.Option{renderer.WithConfig(&e.config.Renderer)}
	if dir := e.config.Renderer.ShaderDir; dir != "" {
		am, err := assets.NewAssetManager()
		if err != nil {
			return err
		}
		if err := am.Initialize(dir); err != nil {
			return err
		}
		e.assetManager = am
		opts = append(opts, renderer.WithAssets(am))
	}

	fr, err := renderer.New(e.platform.Surface(), opts...)
	if err != nil {
		return err
	}
	if err := fr.Init(); err != nil {
		return err
	}
	e.renderer = fr

	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized")
	return nil
}

// Run blocks until the window is closed, the process receives SIGINT or
// SIGTERM, or a frame fails. Resources are released before it returns.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return core.ErrNotInitialized
	}
	e.currentStage = EngineStageRunning

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	done := make(chan struct{})
	exited := forwardSignal(sigCh, done, func(sig os.Signal) {
		core.LogInfo("received %s, shutting down", sig)
		e.stop.Store(true)
		// Wake the main loop if it is parked waiting for window events.
		glfw.PostEmptyEvent()
	})
	defer func() {
		signal.Stop(sigCh)
		close(done)
		<-exited
	}()

	e.clock.Start()
	lastTime := e.clock.Elapsed()
	lastReport := lastTime

	var runErr error
	for !e.stop.Load() {
		if !e.platform.PumpMessages() {
			break
		}
		e.platform.WaitWhileMinimized(e.stop.Load)

		if err := e.renderer.DrawFrame(); err != nil {
			core.LogError("frame failed, shutting down: %s", err)
			runErr = err
			break
		}

		if e.assetManager != nil {
			drainAssetEvents(e.assetManager.Events(), e.config.Renderer.VertexShader, e.config.Renderer.FragmentShader)
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		e.metrics.Update(currentTime - lastTime)
		lastTime = currentTime

		if currentTime-lastReport >= 1 {
			stats := e.renderer.Stats()
			core.LogDebug("%.0f fps, %.2f ms/frame, %d submitted, %d skipped", e.metrics.FPS(), e.metrics.FrameTime(), stats.Submitted, stats.Skipped)
			lastReport = currentTime
		}
	}

	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.clock.Stop()

	var err error
	if e.renderer != nil {
		err = e.renderer.Destroy()
	}
	if e.assetManager != nil {
		if amErr := e.assetManager.Shutdown(); amErr != nil && err == nil {
			err = amErr
		}
	}
	if pErr := e.platform.Shutdown(); pErr != nil && err == nil {
		err = pErr
	}
	core.LogInfo("engine stopped")
	return err
}

// forwardSignal calls onSignal with the first signal received on sigCh. The
// goroutine it starts also ends when done is closed; the returned channel is
// closed once it has.
func forwardSignal(sigCh <-chan os.Signal, done <-chan struct{}, onSignal func(os.Signal)) <-chan struct{} {
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case sig := <-sigCh:
			onSignal(sig)
		case <-done:
		}
	}()
	return exited
}

// drainAssetEvents consumes the pending asset events without blocking and
// returns the names of changed shaders the pipeline was built from. The
// pipeline is only built at Init, so those changes apply on the next start.
func drainAssetEvents(events <-chan assets.Event, inUse ...string) []string {
	var changed []string
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return changed
			}
			if !slices.Contains(inUse, ev.Name) {
				core.LogDebug("asset %s changed (%s)", ev.Name, ev.Op)
				continue
			}
			core.LogWarn("shader %s changed on disk (%s), restart to rebuild the pipeline", ev.Name, ev.Op)
			changed = append(changed, ev.Name)
		default:
			return changed
		}
	}
}
