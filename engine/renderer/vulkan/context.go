package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/spincube/engine/containers"
	"github.com/spaghettifunk/spincube/engine/core"
)

type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugCallback vk.DebugReportCallback

	Device *VulkanDevice

	// Nil until the surface first reports a non-zero size.
	Swapchain      *VulkanSwapchain
	MainRenderpass *VulkanRenderpass

	// One entry per uniform slot.
	Frames *containers.Ring[*VulkanFrame]

	// Holds pointers to fences which exist and are owned by Frames.
	ImagesInFlight []*VulkanFence

	ImageIndex uint32

	// Set when present or acquire reports the swapchain no longer matches
	// the surface. Honoured at the start of the next frame.
	RecreatingSwapchain bool
}

func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	types := make([]vk.MemoryPropertyFlags, memoryProperties.MemoryTypeCount)
	for i := range types {
		memoryProperties.MemoryTypes[i].Deref()
		types[i] = memoryProperties.MemoryTypes[i].PropertyFlags
	}

	index, ok := selectMemoryType(typeFilter, types, propertyFlags)
	if !ok {
		err := fmt.Errorf("unable to find suitable memory type for filter 0x%x and flags 0x%x", typeFilter, uint32(propertyFlags))
		core.LogWarn("%s", err)
		return 0, err
	}
	return index, nil
}

// selectMemoryType returns the first memory type allowed by typeFilter
// whose property flags include every bit of required.
func selectMemoryType(typeFilter uint32, types []vk.MemoryPropertyFlags, required vk.MemoryPropertyFlags) (uint32, bool) {
	for i := uint32(0); i < uint32(len(types)) && i < 32; i++ {
		// Check each memory type to see if its bit is set to 1.
		if typeFilter&(1<<i) != 0 && types[i]&required == required {
			return i, true
		}
	}
	return 0, false
}
