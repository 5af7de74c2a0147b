package vulkan

import (
	vk "github.com/goki/vulkan"
)

/**
 * @brief Everything one frame slot needs to record, submit and present
 * without touching another slot's resources.
 */
type VulkanFrame struct {
	CommandBuffer *VulkanCommandBuffer
	/** @brief Signalled by acquire, waited on by submit. */
	ImageAvailableSemaphore vk.Semaphore
	/** @brief Signalled by submit, waited on by present. */
	RenderFinishedSemaphore vk.Semaphore
	/** @brief Signalled when the slot's submission completes. */
	InFlightFence *VulkanFence
	/** @brief Host-visible uniform buffer, reused only once InFlightFence signals. */
	Uniform       *VulkanBuffer
	DescriptorSet vk.DescriptorSet
}

// FrameCreate allocates the command buffer, sync objects and uniform buffer of
// one slot. The fence starts signalled so the first wait on it returns.
func FrameCreate(context *VulkanContext, uniformSize uint64) (*VulkanFrame, error) {
	frame := &VulkanFrame{}

	cb, err := NewVulkanCommandBuffer(context, context.Device.GraphicsCommandPool, true)
	if err != nil {
		return nil, err
	}
	frame.CommandBuffer = cb

	if frame.ImageAvailableSemaphore, err = SemaphoreCreate(context); err != nil {
		frame.Destroy(context)
		return nil, err
	}
	if frame.RenderFinishedSemaphore, err = SemaphoreCreate(context); err != nil {
		frame.Destroy(context)
		return nil, err
	}
	if frame.InFlightFence, err = NewFence(context, true); err != nil {
		frame.Destroy(context)
		return nil, err
	}

	frame.Uniform, err = BufferCreate(
		context,
		uniformSize,
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		frame.Destroy(context)
		return nil, err
	}
	return frame, nil
}

// Destroy releases the slot. The device must be idle.
func (f *VulkanFrame) Destroy(context *VulkanContext) {
	if f == nil {
		return
	}
	if f.CommandBuffer != nil {
		f.CommandBuffer.Free(context, context.Device.GraphicsCommandPool)
		f.CommandBuffer = nil
	}
	SemaphoreDestroy(context, &f.ImageAvailableSemaphore)
	SemaphoreDestroy(context, &f.RenderFinishedSemaphore)
	if f.InFlightFence != nil {
		f.InFlightFence.FenceDestroy(context)
		f.InFlightFence = nil
	}
	f.Uniform.Destroy(context)
	f.Uniform = nil
	// Freed with the descriptor pool.
	f.DescriptorSet = vk.DescriptorSet(vk.NullHandle)
}
