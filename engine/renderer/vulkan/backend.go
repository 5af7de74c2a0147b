package vulkan

import (
	"errors"
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/spincube/engine/config"
	"github.com/spaghettifunk/spincube/engine/containers"
	"github.com/spaghettifunk/spincube/engine/core"
	"github.com/spaghettifunk/spincube/engine/renderer/metadata"
)

const (
	// An acquire that cannot complete within this window drops the frame.
	acquireTimeoutNs uint64 = 100_000_000
	// Upper bound on waiting for the GPU to release a frame slot.
	fenceTimeoutNs uint64 = 1_000_000_000
)

type VulkanBackend struct {
	AppName string

	context *VulkanContext
	surface metadata.Surface
	vsync   bool

	pipeline         *VulkanPipeline
	descriptorLayout vk.DescriptorSetLayout
	descriptors      *VulkanDescriptorState
	geometry         *VulkanGeometry
	uniformSize      uint64

	// Framebuffer size the current swapchain was built for.
	swapchainWidth  uint32
	swapchainHeight uint32
}

func New() *VulkanBackend {
	return &VulkanBackend{
		AppName: "spincube",
		context: &VulkanContext{
			FramebufferWidth:  0,
			FramebufferHeight: 0,
			Allocator:         nil,
		},
		descriptorLayout: vk.DescriptorSetLayout(vk.NullHandle),
	}
}

// Initialize creates the instance, surface, device, render pass and, when the
// surface has a drawable size, the swapchain.
func (vb *VulkanBackend) Initialize(surface metadata.Surface, cfg *config.Renderer) error {
	if vb.context.Instance != nil {
		return fmt.Errorf("vulkan backend is already initialized")
	}
	vb.surface = surface
	vb.vsync = cfg.VSync

	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("GetInstanceProcAddress is nil")
		core.LogError("%s", err)
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	if err := InstanceCreate(vb.context, vb.AppName, surface.GetRequiredInstanceExtensions(), cfg.Validation); err != nil {
		return err
	}

	// Surface
	core.LogDebug("Creating Vulkan surface...")
	surfacePtr, err := surface.CreateWindowSurface(vb.context.Instance, nil)
	if err != nil {
		core.LogError("Vulkan surface creation failed: %s", err)
		return err
	}
	vb.context.Surface = vk.SurfaceFromPointer(surfacePtr)
	core.LogDebug("Vulkan surface created.")

	// Device creation
	vb.context.Device = &VulkanDevice{GraphicsQueueIndex: -1, PresentQueueIndex: -1}
	if err := DeviceCreate(vb.context); err != nil {
		core.LogError("Failed to create device!")
		return err
	}

	// The color format only depends on the surface, so the render pass
	// outlives every swapchain.
	colorFormat := chooseSurfaceFormat(vb.context.Device.SwapchainSupport.Formats).Format
	rp, err := RenderpassCreate(vb.context, colorFormat, vb.context.Device.DepthFormat, 1.0, 0)
	if err != nil {
		return err
	}
	vb.context.MainRenderpass = rp

	width, height := vb.surface.GetFramebufferSize()
	if width > 0 && height > 0 {
		if err := vb.recreateSwapchain(uint32(width), uint32(height)); err != nil && !errors.Is(err, core.ErrSurfaceUnavailable) {
			return err
		}
	} else {
		core.LogInfo("Framebuffer is %dx%d, deferring swapchain creation.", width, height)
	}

	core.LogInfo("Vulkan backend initialized successfully.")
	return nil
}

// CreatePipeline builds the graphics pipeline for program, reading vertices
// laid out as layout and one uniform buffer at set 0 binding 0.
func (vb *VulkanBackend) CreatePipeline(program metadata.ShaderProgram, layout metadata.VertexLayout) error {
	attributes, err := vertexAttributes(layout)
	if err != nil {
		return err
	}

	vert, err := CreateShaderModule(vb.context, program.Vertex)
	if err != nil {
		return err
	}
	defer vert.Destroy(vb.context)
	frag, err := CreateShaderModule(vb.context, program.Fragment)
	if err != nil {
		return err
	}
	defer frag.Destroy(vb.context)

	dsl, err := DescriptorSetLayoutCreate(vb.context)
	if err != nil {
		return err
	}
	vb.descriptorLayout = dsl

	// Both are set dynamically every frame.
	viewport := vk.Viewport{
		Width:    float32(vb.context.FramebufferWidth),
		Height:   float32(vb.context.FramebufferHeight),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Extent: vk.Extent2D{
			Width:  vb.context.FramebufferWidth,
			Height: vb.context.FramebufferHeight,
		},
	}

	pipeline, err := NewGraphicsPipeline(vb.context, &VulkanPipelineConfig{
		Renderpass:           vb.context.MainRenderpass,
		Stride:               layout.Stride,
		Attributes:           attributes,
		DescriptorSetLayouts: []vk.DescriptorSetLayout{vb.descriptorLayout},
		Stages:               []vk.PipelineShaderStageCreateInfo{vert.ShaderStageInfo, frag.ShaderStageInfo},
		Viewport:             viewport,
		Scissor:              scissor,
		CullMode:             metadata.FaceCullModeBack,
		IsWireframe:          false,
		DepthTest:            true,
		DepthWrite:           true,
	})
	if err != nil {
		return err
	}
	vb.pipeline = pipeline
	core.LogDebug("Pipeline for shader program '%s' created.", program.Name)
	return nil
}

// UploadGeometry copies the mesh into device-local vertex and index buffers.
func (vb *VulkanBackend) UploadGeometry(mesh *metadata.Mesh) error {
	geometry, err := GeometryCreate(vb.context, mesh)
	if err != nil {
		return err
	}
	vb.geometry = geometry
	core.LogDebug("Geometry '%s' uploaded: %d indices.", mesh.Name, geometry.IndexCount)
	return nil
}

// CreateUniformRing creates slots frame slots, each with a uniform buffer of
// size bytes and a descriptor set pointing at it.
func (vb *VulkanBackend) CreateUniformRing(slots int, size uint64) error {
	if vb.descriptorLayout == vk.DescriptorSetLayout(vk.NullHandle) {
		return fmt.Errorf("the pipeline must be created before the uniform ring")
	}
	ring, err := containers.NewRing[*VulkanFrame](slots)
	if err != nil {
		return err
	}
	vb.context.Frames = ring
	vb.uniformSize = size

	buffers := make([]*VulkanBuffer, slots)
	if err := ring.Each(func(i int, frame **VulkanFrame) error {
		f, err := FrameCreate(vb.context, size)
		if err != nil {
			return fmt.Errorf("frame slot %d: %w", i, err)
		}
		*frame = f
		buffers[i] = f.Uniform
		return nil
	}); err != nil {
		core.LogError("%s", err)
		return err
	}

	descriptors, err := DescriptorSetsCreate(vb.context, vb.descriptorLayout, buffers, size)
	if err != nil {
		return err
	}
	vb.descriptors = descriptors
	for i := 0; i < slots; i++ {
		ring.Get(i).DescriptorSet = descriptors.Sets[i]
	}
	core.LogDebug("Uniform ring created: %d slots of %d bytes.", slots, size)
	return nil
}

// BeginFrame waits for the slot to be free and acquires the next swapchain
// image. core.ErrSurfaceUnavailable means the frame should be dropped.
func (vb *VulkanBackend) BeginFrame(slot int) error {
	ctx := vb.context
	width, height := vb.surface.GetFramebufferSize()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("framebuffer is %dx%d: %w", width, height, core.ErrSurfaceUnavailable)
	}

	w, h := uint32(width), uint32(height)
	if ctx.Swapchain == nil || ctx.RecreatingSwapchain || w != vb.swapchainWidth || h != vb.swapchainHeight {
		if err := vb.recreateSwapchain(w, h); err != nil {
			return err
		}
	}

	frame := ctx.Frames.Get(slot)

	// Wait for the execution of the slot's previous frame to complete.
	if err := frame.InFlightFence.FenceWait(ctx, fenceTimeoutNs); err != nil {
		return err
	}

	imageIndex, err := ctx.Swapchain.SwapchainAcquireNextImageIndex(ctx, acquireTimeoutNs, frame.ImageAvailableSemaphore)
	if err != nil {
		return err
	}
	ctx.ImageIndex = imageIndex

	// Make sure a previous frame is not still using this image.
	if inFlight := ctx.ImagesInFlight[imageIndex]; inFlight != nil && inFlight != frame.InFlightFence {
		if err := inFlight.FenceWait(ctx, vk.MaxUint64); err != nil {
			return err
		}
	}
	// Mark the image fence as in-use by this frame.
	ctx.ImagesInFlight[imageIndex] = frame.InFlightFence
	return nil
}

// WriteUniform overwrites the slot's uniform buffer. Only valid after
// BeginFrame succeeded for slot.
func (vb *VulkanBackend) WriteUniform(slot int, data []byte) error {
	frame := vb.context.Frames.Get(slot)
	return frame.Uniform.LoadData(vb.context, 0, data)
}

// Draw records the slot's command buffer: clear, bind and one indexed draw.
func (vb *VulkanBackend) Draw(slot int, clearColor [4]float32) error {
	ctx := vb.context
	if vb.pipeline == nil || vb.geometry == nil {
		return fmt.Errorf("draw called without pipeline or geometry")
	}
	frame := ctx.Frames.Get(slot)
	commandBuffer := frame.CommandBuffer

	if err := commandBuffer.Reset(); err != nil {
		core.LogError("%s", err)
		return err
	}
	if err := commandBuffer.Begin(false, false, false); err != nil {
		return err
	}

	// Dynamic state
	extent := ctx.Swapchain.Extent
	viewport := vk.Viewport{
		X:        0.0,
		Y:        0.0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}
	vk.CmdSetViewport(commandBuffer.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(commandBuffer.Handle, 0, 1, []vk.Rect2D{scissor})

	ctx.MainRenderpass.RenderpassBegin(commandBuffer, ctx.Swapchain.Framebuffers[ctx.ImageIndex].Handle, clearColor)

	vb.pipeline.Bind(commandBuffer, vk.PipelineBindPointGraphics)
	vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointGraphics, vb.pipeline.PipelineLayout, 0, 1, []vk.DescriptorSet{frame.DescriptorSet}, 0, nil)
	vb.geometry.Draw(commandBuffer)

	ctx.MainRenderpass.RenderpassEnd(commandBuffer)
	return commandBuffer.End()
}

// EndFrame submits the recorded command buffer and presents the image.
func (vb *VulkanBackend) EndFrame(slot int) error {
	ctx := vb.context
	frame := ctx.Frames.Get(slot)
	commandBuffer := frame.CommandBuffer

	submitInfo := vk.SubmitInfo{
		SType: vk.StructureTypeSubmitInfo,
		// Command buffer(s) to be executed.
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{commandBuffer.Handle},
		// The semaphore(s) to be signaled when the queue is complete.
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{frame.RenderFinishedSemaphore},
		// Wait semaphore ensures that the operation cannot begin until the image is available.
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{frame.ImageAvailableSemaphore},
		// Color attachment writes wait on the semaphore, so one image is written at a time.
		PWaitDstStageMask: []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
	}

	if err := lockPool.SafeQueueCall(uint32(ctx.Device.GraphicsQueueIndex), func() error {
		// Reset the fence only once the submission that signals it is certain.
		if err := frame.InFlightFence.FenceReset(ctx); err != nil {
			return err
		}
		if res := vk.QueueSubmit(ctx.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, frame.InFlightFence.Handle); res != vk.Success {
			return vulkanError("vkQueueSubmit", res)
		}
		return nil
	}); err != nil {
		core.LogError("%s", err)
		return err
	}
	commandBuffer.UpdateSubmitted()

	// Give the image back to the swapchain.
	return ctx.Swapchain.SwapchainPresent(ctx, ctx.Device.PresentQueue, frame.RenderFinishedSemaphore, ctx.ImageIndex)
}

// AbortFrame drops a frame whose image was acquired but never submitted. An
// empty submission waits on the image-available semaphore and signals the
// slot fence, so both are back in their initial state. The acquired image is
// released by recreating the swapchain at the next BeginFrame.
func (vb *VulkanBackend) AbortFrame(slot int) error {
	ctx := vb.context
	frame := ctx.Frames.Get(slot)

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{frame.ImageAvailableSemaphore},
		PWaitDstStageMask:  []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
	}
	err := lockPool.SafeQueueCall(uint32(ctx.Device.GraphicsQueueIndex), func() error {
		if err := frame.InFlightFence.FenceReset(ctx); err != nil {
			return err
		}
		if res := vk.QueueSubmit(ctx.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, frame.InFlightFence.Handle); res != vk.Success {
			return vulkanError("vkQueueSubmit", res)
		}
		return nil
	})
	ctx.ImagesInFlight[ctx.ImageIndex] = nil
	ctx.RecreatingSwapchain = true
	if err != nil {
		core.LogError("%s", err)
		return err
	}
	core.LogWarn("Frame in slot %d aborted, swapchain will be recreated.", slot)
	return nil
}

// WaitIdle blocks until the device has finished all submitted work.
func (vb *VulkanBackend) WaitIdle() error {
	if vb.context.Device == nil || vb.context.Device.LogicalDevice == nil {
		return nil
	}
	if res := vk.DeviceWaitIdle(vb.context.Device.LogicalDevice); res != vk.Success {
		err := vulkanError("vkDeviceWaitIdle", res)
		core.LogError("%s", err)
		return err
	}
	return nil
}

// Shutdown releases everything Initialize and the Create calls made, in
// reverse order. It tolerates partially initialized state and repeated calls.
func (vb *VulkanBackend) Shutdown() error {
	ctx := vb.context
	var waitErr error
	if ctx.Device != nil && ctx.Device.LogicalDevice != nil {
		waitErr = vb.WaitIdle()

		vb.geometry.Destroy(ctx)
		vb.geometry = nil

		vb.descriptors.Destroy(ctx)
		vb.descriptors = nil

		if ctx.Frames != nil {
			ctx.Frames.Each(func(_ int, frame **VulkanFrame) error {
				(*frame).Destroy(ctx)
				*frame = nil
				return nil
			})
			ctx.Frames = nil
		}
		ctx.ImagesInFlight = nil

		vb.pipeline.Destroy(ctx)
		vb.pipeline = nil
		DescriptorSetLayoutDestroy(ctx, &vb.descriptorLayout)

		if ctx.Swapchain != nil {
			ctx.Swapchain.SwapchainDestroy(ctx)
			ctx.Swapchain = nil
		}
		if ctx.MainRenderpass != nil {
			ctx.MainRenderpass.RenderpassDestroy(ctx)
			ctx.MainRenderpass = nil
		}

		core.LogDebug("Destroying Vulkan device...")
		DeviceDestroy(ctx)
	}
	ctx.Device = nil

	if ctx.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(ctx.Instance, ctx.Surface, ctx.Allocator)
		ctx.Surface = vk.NullSurface
	}
	InstanceDestroy(ctx)
	return waitErr
}

// recreateSwapchain builds a swapchain for the given size and its
// framebuffers. On failure the context is left without a swapchain so the
// next frame tries again.
func (vb *VulkanBackend) recreateSwapchain(width, height uint32) error {
	ctx := vb.context

	// Wait for any operations to complete.
	if err := vb.WaitIdle(); err != nil {
		return err
	}

	// Clear these out just in case.
	ctx.ImagesInFlight = nil

	var sc *VulkanSwapchain
	var err error
	if ctx.Swapchain == nil {
		sc, err = SwapchainCreate(ctx, width, height, vb.vsync)
	} else {
		sc, err = ctx.Swapchain.SwapchainRecreate(ctx, width, height, vb.vsync)
	}
	ctx.Swapchain = sc
	if err != nil {
		return err
	}

	ctx.FramebufferWidth = sc.Extent.Width
	ctx.FramebufferHeight = sc.Extent.Height
	ctx.MainRenderpass.SetExtent(sc.Extent)
	if err := sc.RegenerateFramebuffers(ctx, ctx.MainRenderpass); err != nil {
		sc.SwapchainDestroy(ctx)
		ctx.Swapchain = nil
		return err
	}

	// Fences are owned by the frames; this only tracks which one last used an image.
	ctx.ImagesInFlight = make([]*VulkanFence, sc.ImageCount)
	ctx.RecreatingSwapchain = false
	vb.swapchainWidth, vb.swapchainHeight = width, height
	return nil
}
