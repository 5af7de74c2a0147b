package renderer

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/spaghettifunk/spincube/engine/assets"
	"github.com/spaghettifunk/spincube/engine/config"
	"github.com/spaghettifunk/spincube/engine/containers"
	"github.com/spaghettifunk/spincube/engine/core"
	"github.com/spaghettifunk/spincube/engine/math"
	"github.com/spaghettifunk/spincube/engine/renderer/components"
	"github.com/spaghettifunk/spincube/engine/renderer/metadata"
	"github.com/spaghettifunk/spincube/engine/renderer/shaders"
	"github.com/spaghettifunk/spincube/engine/renderer/vulkan"
)

type Stage uint8

const (
	StageCreated Stage = iota
	StageInitialized
	StageDestroyed
)

func (s Stage) String() string {
	switch s {
	case StageCreated:
		return "created"
	case StageInitialized:
		return "initialized"
	case StageDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// FrameStats counts what happened to DrawFrame calls since Init.
type FrameStats struct {
	Submitted uint64
	Skipped   uint64
}

type Option func(*FrameRenderer)

// WithConfig replaces the default renderer configuration.
func WithConfig(cfg *config.Renderer) Option {
	return func(fr *FrameRenderer) {
		if cfg != nil {
			fr.cfg = cfg
		}
	}
}

// WithBackend replaces the Vulkan backend.
func WithBackend(b Backend) Option {
	return func(fr *FrameRenderer) {
		if b != nil {
			fr.backend = b
		}
	}
}

// WithAssets supplies precompiled shaders when the configuration names a shader directory.
func WithAssets(am *assets.AssetManager) Option {
	return func(fr *FrameRenderer) {
		fr.assets = am
	}
}

/**
 * @brief Draws a single cube rotating about a fixed axis onto a borrowed
 * surface. Not safe for concurrent use: Init, DrawFrame and Destroy must be
 * called from the thread that owns the surface.
 */
type FrameRenderer struct {
	ID      uuid.UUID
	surface metadata.Surface
	cfg     *config.Renderer
	backend Backend
	assets  *assets.AssetManager

	stage Stage
	mesh  *metadata.Mesh

	camera *components.Camera
	axis   math.Vec3
	// Number of DrawFrame calls, skipped ones included.
	ticks uint64
	angle float64
	// Number of submitted frames. Selects the uniform slot.
	frameNumber uint64
	// CPU copy of what was last written into each uniform slot.
	uniforms *containers.Ring[metadata.UniformObject]

	stats FrameStats
}

// New binds a renderer to surface. No GPU work happens until Init.
func New(surface metadata.Surface, opts ...Option) (*FrameRenderer, error) {
	if isNil(surface) {
		return nil, core.ErrInvalidSurface
	}
	fr := &FrameRenderer{
		ID:      uuid.New(),
		surface: surface,
		cfg:     config.DefaultRenderer(),
		stage:   StageCreated,
	}
	for _, opt := range opts {
		opt(fr)
	}
	if err := fr.cfg.Validate(); err != nil {
		return nil, err
	}
	if fr.backend == nil {
		fr.backend = vulkan.New()
	}
	core.LogDebug("[%s] renderer created", fr.ID)
	return fr, nil
}

// Init builds every GPU resource the renderer needs. On failure whatever was
// created is released and the renderer stays in StageCreated.
func (fr *FrameRenderer) Init() error {
	switch fr.stage {
	case StageInitialized:
		return core.ErrAlreadyInitialized
	case StageDestroyed:
		return fmt.Errorf("renderer %s was destroyed: %w", fr.ID, core.ErrAlreadyInitialized)
	}

	if err := fr.init(); err != nil {
		core.LogError("[%s] init failed: %s", fr.ID, err)
		if shutdownErr := fr.backend.Shutdown(); shutdownErr != nil {
			core.LogWarn("[%s] releasing partial resources: %s", fr.ID, shutdownErr)
		}
		fr.mesh = nil
		fr.uniforms = nil
		return err
	}

	fr.stage = StageInitialized
	core.LogInfo("[%s] renderer initialized: %d frames in flight", fr.ID, fr.uniforms.Len())
	return nil
}

func (fr *FrameRenderer) init() error {
	cfg := fr.cfg

	if err := fr.backend.Initialize(fr.surface, cfg); err != nil {
		return fmt.Errorf("%w: %w", core.ErrDeviceUnavailable, err)
	}

	program, err := shaders.LoadProgram(fr.assets, cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrPipelineCreation, err)
	}
	if err := fr.backend.CreatePipeline(program, metadata.Vertex3DLayout()); err != nil {
		return fmt.Errorf("%w: %w", core.ErrPipelineCreation, err)
	}

	mesh := metadata.NewCubeMesh()
	if err := fr.backend.UploadGeometry(mesh); err != nil {
		return fmt.Errorf("uploading geometry: %w", err)
	}

	uniforms, err := containers.NewRing[metadata.UniformObject](cfg.FramesInFlight)
	if err != nil {
		return err
	}
	if err := fr.backend.CreateUniformRing(uniforms.Len(), metadata.UniformObjectSize); err != nil {
		return fmt.Errorf("creating uniform ring: %w", err)
	}

	// The aspect ratio is fixed from here on; resizes do not update it.
	aspect := float32(1.0)
	if w, h := fr.surface.GetFramebufferSize(); w > 0 && h > 0 {
		aspect = float32(w) / float32(h)
	}
	eye := math.NewVec3(cfg.Eye[0], cfg.Eye[1], cfg.Eye[2])
	fr.camera = components.NewCamera(eye, math.NewVec3Zero(), math.DegToRad(cfg.FovDegrees), aspect, cfg.Near, cfg.Far)
	fr.axis = math.NewVec3(cfg.RotationAxis[0], cfg.RotationAxis[1], cfg.RotationAxis[2]).Normalized()

	fr.mesh = mesh
	fr.uniforms = uniforms
	fr.ticks = 0
	fr.angle = 0
	fr.frameNumber = 0
	fr.stats = FrameStats{}
	return nil
}

// DrawFrame advances the rotation and, if the surface has a drawable,
// renders and presents one frame. A transiently unavailable surface drops
// the frame and returns nil.
func (fr *FrameRenderer) DrawFrame() error {
	if fr.stage != StageInitialized {
		return core.ErrNotInitialized
	}

	// Animation state advances whether or not the frame is presented.
	fr.ticks++
	fr.angle = math.WrapAngle(float64(fr.ticks) * fr.cfg.AngleStep)

	slot := fr.uniforms.Slot(fr.frameNumber)
	if err := fr.backend.BeginFrame(slot); err != nil {
		if errors.Is(err, core.ErrSurfaceUnavailable) {
			fr.stats.Skipped++
			core.LogDebug("[%s] frame skipped: %s", fr.ID, err)
			return nil
		}
		core.LogError("[%s] begin frame: %s", fr.ID, err)
		return fmt.Errorf("begin frame: %w", err)
	}

	ubo := metadata.UniformObject{MVP: fr.modelViewProjection()}
	if err := fr.backend.WriteUniform(slot, ubo.Bytes()); err != nil {
		return fr.abortFrame(slot, "write uniform", err)
	}
	fr.uniforms.Set(slot, ubo)

	if err := fr.backend.Draw(slot, fr.cfg.ClearColor); err != nil {
		return fr.abortFrame(slot, "draw", err)
	}
	if err := fr.backend.EndFrame(slot); err != nil {
		core.LogError("[%s] end frame: %s", fr.ID, err)
		return fmt.Errorf("end frame: %w", err)
	}

	fr.frameNumber++
	fr.stats.Submitted++
	return nil
}

// abortFrame releases a frame that began but will not be submitted, so the
// slot can be used again by the next DrawFrame.
func (fr *FrameRenderer) abortFrame(slot int, step string, err error) error {
	core.LogError("[%s] %s: %s", fr.ID, step, err)
	err = fmt.Errorf("%s: %w", step, err)
	if abortErr := fr.backend.AbortFrame(slot); abortErr != nil {
		core.LogError("[%s] abort frame: %s", fr.ID, abortErr)
		return errors.Join(err, fmt.Errorf("abort frame: %w", abortErr))
	}
	return err
}

// Model returns the cube's current rotation about the configured axis.
func (fr *FrameRenderer) Model() math.Mat4 {
	return math.NewMat4AxisAngle(fr.axis, float32(fr.angle))
}

func (fr *FrameRenderer) modelViewProjection() math.Mat4 {
	return fr.Model().Mul(fr.camera.GetViewProjection())
}

// Destroy waits for the GPU to finish and releases every resource. It does
// nothing before Init and is safe to call more than once.
func (fr *FrameRenderer) Destroy() error {
	if fr.stage != StageInitialized {
		return nil
	}
	fr.stage = StageDestroyed

	var errs []error
	if err := fr.backend.WaitIdle(); err != nil {
		errs = append(errs, fmt.Errorf("wait idle: %w", err))
	}
	if err := fr.backend.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("shutdown: %w", err))
	}
	core.LogInfo("[%s] renderer destroyed after %d frames (%d skipped) at %.1f degrees", fr.ID, fr.stats.Submitted, fr.stats.Skipped, math.RadToDeg(fr.Angle()))
	return errors.Join(errs...)
}

// Angle returns the current rotation in radians, in [0, 2π).
func (fr *FrameRenderer) Angle() float32 {
	return float32(fr.angle)
}

func (fr *FrameRenderer) Stage() Stage {
	return fr.stage
}

func (fr *FrameRenderer) Stats() FrameStats {
	return fr.stats
}

// Uniform returns what was last written into the uniform buffer of slot.
func (fr *FrameRenderer) Uniform(slot int) metadata.UniformObject {
	if fr.uniforms == nil || slot < 0 || slot >= fr.uniforms.Len() {
		return metadata.UniformObject{}
	}
	return fr.uniforms.Get(slot)
}

// Mesh returns the geometry uploaded at Init. It must not be modified.
func (fr *FrameRenderer) Mesh() *metadata.Mesh {
	return fr.mesh
}

// isNil also catches typed nil pointers stored in the interface.
func isNil(s metadata.Surface) bool {
	if s == nil {
		return true
	}
	v := reflect.ValueOf(s)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
