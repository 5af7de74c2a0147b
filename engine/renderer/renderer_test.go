package renderer

import (
	"bytes"
	"errors"
	"fmt"
	m "math"
	"testing"
	"unsafe"

	"github.com/spaghettifunk/spincube/engine/config"
	"github.com/spaghettifunk/spincube/engine/core"
	"github.com/spaghettifunk/spincube/engine/math"
	"github.com/spaghettifunk/spincube/engine/renderer/components"
	"github.com/spaghettifunk/spincube/engine/renderer/metadata"
)

type fakeSurface struct {
	width, height int
}

func (s *fakeSurface) GetRequiredInstanceExtensions() []string { return nil }

func (s *fakeSurface) CreateWindowSurface(instance interface{}, alloc unsafe.Pointer) (uintptr, error) {
	return 1, nil
}

func (s *fakeSurface) GetFramebufferSize() (int, int) { return s.width, s.height }

// fakeBackend records every call the renderer makes.
type fakeBackend struct {
	failInitialize error
	failPipeline   error
	failBegin      error
	failWrite      error
	failDraw       error
	failEnd        error
	failAbort      error

	program  metadata.ShaderProgram
	vertices []byte
	indices  []byte
	slots    int

	begins    []int
	writes    map[int][]byte
	draws     []int
	ends      []int
	aborts    []int
	waits     int
	shutdowns int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{writes: map[int][]byte{}}
}

func (b *fakeBackend) Initialize(surface metadata.Surface, cfg *config.Renderer) error {
	return b.failInitialize
}

func (b *fakeBackend) CreatePipeline(program metadata.ShaderProgram, layout metadata.VertexLayout) error {
	if b.failPipeline != nil {
		return b.failPipeline
	}
	b.program = program
	return nil
}

func (b *fakeBackend) UploadGeometry(mesh *metadata.Mesh) error {
	b.vertices = mesh.VertexBytes()
	b.indices = mesh.IndexBytes()
	return nil
}

func (b *fakeBackend) CreateUniformRing(slots int, size uint64) error {
	if size != metadata.UniformObjectSize {
		return fmt.Errorf("unexpected uniform size %d", size)
	}
	b.slots = slots
	return nil
}

func (b *fakeBackend) BeginFrame(slot int) error {
	if b.failBegin != nil {
		return b.failBegin
	}
	b.begins = append(b.begins, slot)
	return nil
}

func (b *fakeBackend) WriteUniform(slot int, data []byte) error {
	if b.failWrite != nil {
		return b.failWrite
	}
	b.writes[slot] = append([]byte(nil), data...)
	return nil
}

func (b *fakeBackend) Draw(slot int, clearColor [4]float32) error {
	if b.failDraw != nil {
		return b.failDraw
	}
	b.draws = append(b.draws, slot)
	return nil
}

func (b *fakeBackend) EndFrame(slot int) error {
	if b.failEnd != nil {
		return b.failEnd
	}
	b.ends = append(b.ends, slot)
	return nil
}

func (b *fakeBackend) AbortFrame(slot int) error {
	b.aborts = append(b.aborts, slot)
	return b.failAbort
}

func (b *fakeBackend) WaitIdle() error {
	b.waits++
	return nil
}

func (b *fakeBackend) Shutdown() error {
	b.shutdowns++
	return nil
}

func newTestRenderer(t *testing.T, cfg *config.Renderer) (*FrameRenderer, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	fr, err := New(&fakeSurface{width: 800, height: 600}, WithBackend(backend), WithConfig(cfg))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := fr.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return fr, backend
}

func drawFrames(t *testing.T, fr *FrameRenderer, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := fr.DrawFrame(); err != nil {
			t.Fatalf("DrawFrame %d: %v", i, err)
		}
	}
}

func TestNewRejectsInvalidSurface(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, core.ErrInvalidSurface) {
		t.Errorf("nil surface: got %v", err)
	}
	var typedNil *fakeSurface
	if _, err := New(typedNil); !errors.Is(err, core.ErrInvalidSurface) {
		t.Errorf("typed nil surface: got %v", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultRenderer()
	cfg.FramesInFlight = 0
	if _, err := New(&fakeSurface{}, WithBackend(newFakeBackend()), WithConfig(cfg)); err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestLifecyclePreconditions(t *testing.T) {
	backend := newFakeBackend()
	fr, err := New(&fakeSurface{width: 640, height: 480}, WithBackend(backend))
	if err != nil {
		t.Fatal(err)
	}
	if fr.Stage() != StageCreated {
		t.Fatalf("stage = %s", fr.Stage())
	}
	if err := fr.DrawFrame(); !errors.Is(err, core.ErrNotInitialized) {
		t.Errorf("DrawFrame before Init: got %v", err)
	}
	if err := fr.Init(); err != nil {
		t.Fatal(err)
	}
	if err := fr.Init(); !errors.Is(err, core.ErrAlreadyInitialized) {
		t.Errorf("second Init: got %v", err)
	}
	if err := fr.Destroy(); err != nil {
		t.Fatal(err)
	}
	if err := fr.DrawFrame(); !errors.Is(err, core.ErrNotInitialized) {
		t.Errorf("DrawFrame after Destroy: got %v", err)
	}
	if err := fr.Init(); !errors.Is(err, core.ErrAlreadyInitialized) {
		t.Errorf("Init after Destroy: got %v", err)
	}
}

func TestInitUploadsCubeAndProgram(t *testing.T) {
	fr, backend := newTestRenderer(t, nil)
	if fr.Stage() != StageInitialized {
		t.Fatalf("stage = %s", fr.Stage())
	}
	if got := len(backend.indices) / int(metadata.IndexSize); got != 36 {
		t.Errorf("uploaded %d indices", got)
	}
	if got := len(backend.vertices) / int(metadata.Vertex3DSize); got != 8 {
		t.Errorf("uploaded %d vertices", got)
	}
	if backend.slots != config.DefaultRenderer().FramesInFlight {
		t.Errorf("uniform ring has %d slots", backend.slots)
	}
	if len(backend.program.Vertex.Code) == 0 || backend.program.Vertex.Code[0] != metadata.SPIRVMagic {
		t.Error("vertex stage is not spir-v")
	}
}

func TestAngleAfterNFrames(t *testing.T) {
	for _, n := range []int{1, 7, 100, 1000} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			fr, _ := newTestRenderer(t, nil)
			drawFrames(t, fr, n)

			step := config.DefaultRenderer().AngleStep
			want := math.WrapAngle(float64(n) * step)
			if d := math.AngleDistance(float64(fr.Angle()), want); d > 1e-5 {
				t.Errorf("angle = %f, want %f", fr.Angle(), want)
			}
			if fr.Angle() < 0 || float64(fr.Angle()) >= 2*m.Pi {
				t.Errorf("angle %f is not wrapped", fr.Angle())
			}
		})
	}
}

func TestSkippedFrameAdvancesAngleOnly(t *testing.T) {
	fr, backend := newTestRenderer(t, nil)
	backend.failBegin = fmt.Errorf("acquire: %w", core.ErrSurfaceUnavailable)

	if err := fr.DrawFrame(); err != nil {
		t.Fatalf("skipped frame returned %v", err)
	}
	if len(backend.writes) != 0 || len(backend.draws) != 0 || len(backend.ends) != 0 {
		t.Fatalf("skipped frame touched the gpu: writes=%d draws=%d ends=%d", len(backend.writes), len(backend.draws), len(backend.ends))
	}
	if fr.Angle() == 0 {
		t.Error("angle did not advance on a skipped frame")
	}
	if s := fr.Stats(); s.Skipped != 1 || s.Submitted != 0 {
		t.Errorf("stats = %+v", s)
	}

	// The skipped frame must not consume a uniform slot.
	backend.failBegin = nil
	drawFrames(t, fr, 1)
	if len(backend.begins) != 1 || backend.begins[0] != 0 {
		t.Errorf("first submitted frame used slots %v", backend.begins)
	}
}

func TestFatalFrameErrorsAreReturned(t *testing.T) {
	fr, backend := newTestRenderer(t, nil)
	lost := errors.New("device lost")
	backend.failEnd = lost
	if err := fr.DrawFrame(); !errors.Is(err, lost) {
		t.Fatalf("got %v", err)
	}
	backend.failEnd = nil
	backend.failBegin = lost
	if err := fr.DrawFrame(); !errors.Is(err, lost) {
		t.Fatalf("got %v", err)
	}
	if fr.Stats().Skipped != 0 {
		t.Error("a fatal error is not a skip")
	}
}

func TestMidFrameFailureAbortsTheFrame(t *testing.T) {
	tests := []struct {
		name  string
		setup func(b *fakeBackend, err error)
	}{
		{"write uniform", func(b *fakeBackend, err error) { b.failWrite = err }},
		{"draw", func(b *fakeBackend, err error) { b.failDraw = err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr, backend := newTestRenderer(t, nil)
			drawFrames(t, fr, 1)

			broken := errors.New("out of host memory")
			tt.setup(backend, broken)
			if err := fr.DrawFrame(); !errors.Is(err, broken) {
				t.Fatalf("got %v", err)
			}
			if len(backend.aborts) != 1 || backend.aborts[0] != 1 {
				t.Fatalf("aborted slots %v, want [1]", backend.aborts)
			}
			if len(backend.ends) != 1 {
				t.Fatalf("aborted frame was submitted: ends=%v", backend.ends)
			}

			// The slot is free again and is reused by the next frame.
			backend.failWrite, backend.failDraw = nil, nil
			drawFrames(t, fr, 1)
			if got := backend.ends[len(backend.ends)-1]; got != 1 {
				t.Errorf("next frame used slot %d, want 1", got)
			}
			if s := fr.Stats(); s.Submitted != 2 || s.Skipped != 0 {
				t.Errorf("stats = %+v", s)
			}
		})
	}
}

func TestAbortFailureIsReported(t *testing.T) {
	fr, backend := newTestRenderer(t, nil)
	broken := errors.New("draw failed")
	lost := errors.New("device lost")
	backend.failDraw = broken
	backend.failAbort = lost

	err := fr.DrawFrame()
	if !errors.Is(err, broken) || !errors.Is(err, lost) {
		t.Fatalf("got %v, want both the draw and the abort error", err)
	}
}

func TestUniformSlotsRotate(t *testing.T) {
	tests := []struct {
		framesInFlight int
		want           []int
	}{
		{1, []int{0, 0, 0, 0}},
		{2, []int{0, 1, 0, 1}},
		{3, []int{0, 1, 2, 0}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.framesInFlight), func(t *testing.T) {
			cfg := config.DefaultRenderer()
			cfg.FramesInFlight = tt.framesInFlight
			fr, backend := newTestRenderer(t, cfg)
			drawFrames(t, fr, len(tt.want))

			for i, slot := range tt.want {
				if backend.begins[i] != slot || backend.draws[i] != slot || backend.ends[i] != slot {
					t.Fatalf("frame %d: begin=%v draw=%v end=%v, want slot %d", i, backend.begins, backend.draws, backend.ends, slot)
				}
			}
		})
	}
}

func TestUniformMatchesWrittenBytes(t *testing.T) {
	fr, backend := newTestRenderer(t, nil)
	drawFrames(t, fr, 3)

	for slot := 0; slot < 2; slot++ {
		if !bytes.Equal(backend.writes[slot], fr.Uniform(slot).Bytes()) {
			t.Errorf("slot %d: shadow copy differs from the uploaded bytes", slot)
		}
	}
	if fr.Uniform(0).MVP == fr.Uniform(1).MVP {
		t.Error("consecutive frames wrote the same matrix")
	}
	if fr.Uniform(-1) != (metadata.UniformObject{}) || fr.Uniform(99) != (metadata.UniformObject{}) {
		t.Error("out of range slots should be empty")
	}
}

func TestGeometryIsStableAcrossFrames(t *testing.T) {
	fr, backend := newTestRenderer(t, nil)
	vertices := append([]byte(nil), backend.vertices...)
	indices := append([]byte(nil), backend.indices...)

	drawFrames(t, fr, 250)

	if !bytes.Equal(vertices, fr.Mesh().VertexBytes()) || !bytes.Equal(indices, fr.Mesh().IndexBytes()) {
		t.Fatal("geometry changed while drawing")
	}
}

func TestFullRotationReturnsToIdentity(t *testing.T) {
	cfg := config.DefaultRenderer()
	cfg.AngleStep = 2 * m.Pi / 360
	cfg.FramesInFlight = 2
	fr, _ := newTestRenderer(t, cfg)
	drawFrames(t, fr, 360)

	if d := math.AngleDistance(float64(fr.Angle()), 0); d > 1e-5 {
		t.Fatalf("angle after a full turn = %f", fr.Angle())
	}

	identity := [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}
	rotation := fr.Model().Rotation()
	for i := range identity {
		if m.Abs(float64(rotation[i]-identity[i])) > 1e-5 {
			t.Fatalf("rotation after a full turn = %v", rotation)
		}
	}

	// With the model rotation at identity, the MVP is the camera alone.
	camera := components.NewCamera(
		math.NewVec3(cfg.Eye[0], cfg.Eye[1], cfg.Eye[2]),
		math.NewVec3Zero(),
		math.DegToRad(cfg.FovDegrees),
		800.0/600.0,
		cfg.Near, cfg.Far)
	last := fr.Uniform((360 - 1) % cfg.FramesInFlight)
	if !last.MVP.Compare(camera.GetViewProjection(), 1e-4) {
		t.Fatalf("rotation is not identity:\n%v\n%v", last.MVP, camera.GetViewProjection())
	}
}

func TestDestroy(t *testing.T) {
	t.Run("before init", func(t *testing.T) {
		backend := newFakeBackend()
		fr, err := New(&fakeSurface{}, WithBackend(backend))
		if err != nil {
			t.Fatal(err)
		}
		if err := fr.Destroy(); err != nil {
			t.Fatal(err)
		}
		if backend.shutdowns != 0 || fr.Stage() != StageCreated {
			t.Errorf("shutdowns=%d stage=%s", backend.shutdowns, fr.Stage())
		}
	})

	t.Run("after init without frames", func(t *testing.T) {
		fr, backend := newTestRenderer(t, nil)
		if err := fr.Destroy(); err != nil {
			t.Fatal(err)
		}
		if backend.waits != 1 || backend.shutdowns != 1 {
			t.Errorf("waits=%d shutdowns=%d", backend.waits, backend.shutdowns)
		}
		if fr.Stage() != StageDestroyed {
			t.Errorf("stage = %s", fr.Stage())
		}
	})

	t.Run("twice", func(t *testing.T) {
		fr, backend := newTestRenderer(t, nil)
		drawFrames(t, fr, 5)
		if err := fr.Destroy(); err != nil {
			t.Fatal(err)
		}
		if err := fr.Destroy(); err != nil {
			t.Fatal(err)
		}
		if backend.shutdowns != 1 {
			t.Errorf("shutdowns = %d", backend.shutdowns)
		}
	})
}

func TestInitFailureReleasesResources(t *testing.T) {
	tests := []struct {
		name  string
		setup func(b *fakeBackend)
		want  error
	}{
		{"device", func(b *fakeBackend) { b.failInitialize = errors.New("no gpu") }, core.ErrDeviceUnavailable},
		{"pipeline", func(b *fakeBackend) { b.failPipeline = errors.New("bad shader") }, core.ErrPipelineCreation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			tt.setup(backend)
			fr, err := New(&fakeSurface{width: 10, height: 10}, WithBackend(backend))
			if err != nil {
				t.Fatal(err)
			}
			if err := fr.Init(); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if backend.shutdowns != 1 {
				t.Errorf("partial resources not released: shutdowns=%d", backend.shutdowns)
			}
			if fr.Stage() != StageCreated {
				t.Errorf("stage = %s", fr.Stage())
			}

			// The failure was environmental; a later attempt may succeed.
			backend.failInitialize, backend.failPipeline = nil, nil
			if err := fr.Init(); err != nil {
				t.Fatalf("retry: %v", err)
			}
		})
	}
}

func TestZeroSizedSurfaceAtInit(t *testing.T) {
	backend := newFakeBackend()
	fr, err := New(&fakeSurface{}, WithBackend(backend))
	if err != nil {
		t.Fatal(err)
	}
	if err := fr.Init(); err != nil {
		t.Fatal(err)
	}
	drawFrames(t, fr, 2)
	for _, v := range fr.Uniform(0).MVP.Data {
		if m.IsNaN(float64(v)) || m.IsInf(float64(v), 0) {
			t.Fatalf("non-finite MVP %v", fr.Uniform(0).MVP)
		}
	}
}
