package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/spincube/engine/core"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

func NewVulkanCommandBuffer(context *VulkanContext, pool vk.CommandPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	vCommandBuffer := &VulkanCommandBuffer{
		State: COMMAND_BUFFER_STATE_NOT_ALLOCATED,
	}

	level := vk.CommandBufferLevelSecondary
	if isPrimary {
		level = vk.CommandBufferLevelPrimary
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              level,
	}

	handles := make([]vk.CommandBuffer, 1)
	if err := lockPool.SafeCall(CommandBufferManagement, func() error {
		if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
			return vulkanError("vkAllocateCommandBuffers", res)
		}
		return nil
	}); err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	vCommandBuffer.Handle = handles[0]
	vCommandBuffer.State = COMMAND_BUFFER_STATE_READY

	return vCommandBuffer, nil
}

func (v *VulkanCommandBuffer) Free(context *VulkanContext, pool vk.CommandPool) {
	if v.Handle == nil {
		return
	}
	lockPool.SafeCall(CommandBufferManagement, func() error {
		vk.FreeCommandBuffers(context.Device.LogicalDevice, pool, 1, []vk.CommandBuffer{v.Handle})
		return nil
	})
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if res := vk.BeginCommandBuffer(v.Handle, beginInfo); res != vk.Success {
		err := vulkanError("vkBeginCommandBuffer", res)
		core.LogError("%s", err)
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		err := vulkanError("vkEndCommandBuffer", res)
		core.LogError("%s", err)
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

// Reset returns the buffer to the initial state so it can be recorded again.
func (v *VulkanCommandBuffer) Reset() error {
	if res := vk.ResetCommandBuffer(v.Handle, 0); res != vk.Success {
		return vulkanError("vkResetCommandBuffer", res)
	}
	v.State = COMMAND_BUFFER_STATE_READY
	return nil
}

/**
 * Allocates and begins recording to a primary command buffer.
 */
func AllocateAndBeginSingleUse(context *VulkanContext, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	cb, err := NewVulkanCommandBuffer(context, pool, true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(true, false, false); err != nil {
		cb.Free(context, pool)
		return nil, err
	}
	return cb, nil
}

/**
 * Ends recording, submits to and waits for queue operation and frees the provided command buffer.
 */
func (v *VulkanCommandBuffer) EndSingleUse(context *VulkanContext, pool vk.CommandPool, queue vk.Queue) error {
	defer v.Free(context, pool)

	if err := v.End(); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.Handle},
	}

	return lockPool.SafeQueueCall(uint32(context.Device.GraphicsQueueIndex), func() error {
		if res := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
			err := fmt.Errorf("single use submit: %w", vulkanError("vkQueueSubmit", res))
			core.LogError("%s", err)
			return err
		}
		// Wait for it to finish
		if res := vk.QueueWaitIdle(queue); res != vk.Success {
			err := vulkanError("vkQueueWaitIdle", res)
			core.LogError("%s", err)
			return err
		}
		v.UpdateSubmitted()
		return nil
	})
}
