package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/spincube/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if res := vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &pFence); res != vk.Success {
		err := vulkanError("vkCreateFence", res)
		core.LogError("%s", err)
		return nil, err
	}
	fence.Handle = pFence
	return fence, nil
}

func (vf *VulkanFence) FenceDestroy(context *VulkanContext) {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(context.Device.LogicalDevice, vf.Handle, context.Allocator)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = false
}

// FenceWait blocks until the fence signals or timeoutNs elapses. A timeout
// is reported as core.ErrSurfaceUnavailable.
func (vf *VulkanFence) FenceWait(context *VulkanContext, timeoutNs uint64) error {
	if vf.IsSignaled {
		// If already signaled, do not wait.
		return nil
	}
	result := vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
		return fmt.Errorf("fence wait: %w", core.ErrSurfaceUnavailable)
	default:
		err := vulkanError("vkWaitForFences", result)
		core.LogError("%s", err)
		return err
	}
}

func (vf *VulkanFence) FenceReset(context *VulkanContext) error {
	if vf.IsSignaled {
		if res := vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}); res != vk.Success {
			err := vulkanError("vkResetFences", res)
			core.LogError("%s", err)
			return err
		}
		vf.IsSignaled = false
	}
	return nil
}

func SemaphoreCreate(context *VulkanContext) (vk.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &semaphore); res != vk.Success {
		err := vulkanError("vkCreateSemaphore", res)
		core.LogError("%s", err)
		return vk.NullSemaphore, err
	}
	return semaphore, nil
}

func SemaphoreDestroy(context *VulkanContext, semaphore *vk.Semaphore) {
	if *semaphore != vk.NullSemaphore {
		vk.DestroySemaphore(context.Device.LogicalDevice, *semaphore, context.Allocator)
		*semaphore = vk.NullSemaphore
	}
}
