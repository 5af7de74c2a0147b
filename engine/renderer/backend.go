package renderer

import (
	"github.com/spaghettifunk/spincube/engine/config"
	"github.com/spaghettifunk/spincube/engine/renderer/metadata"
)

// Backend is the GPU side of a FrameRenderer. Calls arrive in this order:
// Initialize, CreatePipeline, UploadGeometry, CreateUniformRing, then per
// frame BeginFrame, WriteUniform, Draw, EndFrame, with AbortFrame replacing
// EndFrame when a step in between fails. Shutdown may follow any
// prefix of that sequence, including a failed one.
type Backend interface {
	// Initialize acquires the device, queues and presentation resources for surface.
	Initialize(surface metadata.Surface, cfg *config.Renderer) error
	// CreatePipeline compiles program for vertices laid out as layout.
	CreatePipeline(program metadata.ShaderProgram, layout metadata.VertexLayout) error
	// UploadGeometry moves the mesh into GPU-resident buffers.
	UploadGeometry(mesh *metadata.Mesh) error
	// CreateUniformRing allocates slots CPU-writable uniform buffers of size bytes.
	CreateUniformRing(slots int, size uint64) error

	// BeginFrame waits until slot is free and acquires a drawable.
	// core.ErrSurfaceUnavailable means the frame must be dropped.
	BeginFrame(slot int) error
	WriteUniform(slot int, data []byte) error
	// Draw records the single draw of the frame, clearing to clearColor.
	Draw(slot int, clearColor [4]float32) error
	// EndFrame submits the recorded work and queues the drawable for presentation.
	EndFrame(slot int) error
	// AbortFrame gives up a frame after BeginFrame succeeded and before
	// EndFrame, leaving slot ready for the next BeginFrame.
	AbortFrame(slot int) error

	WaitIdle() error
	Shutdown() error
}
