package vulkan

import (
	"fmt"
	m "math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/spincube/engine/core"
	"github.com/spaghettifunk/spincube/engine/math"
)

type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	Handle      vk.Swapchain
	ImageCount  uint32
	Images      []vk.Image
	Views       []vk.ImageView

	DepthAttachment *VulkanImage

	// framebuffers used for on-screen rendering.
	Framebuffers []*VulkanFramebuffer
}

func SwapchainCreate(context *VulkanContext, width, height uint32, vsync bool) (*VulkanSwapchain, error) {
	// Simply create a new one.
	return createSwapchain(context, width, height, vsync)
}

func (vs *VulkanSwapchain) SwapchainRecreate(context *VulkanContext, width, height uint32, vsync bool) (*VulkanSwapchain, error) {
	// Destroy the old and create a new one.
	vs.destroySwapchain(context)
	return createSwapchain(context, width, height, vsync)
}

func (vs *VulkanSwapchain) SwapchainDestroy(context *VulkanContext) {
	vs.destroySwapchain(context)
}

// SwapchainAcquireNextImageIndex returns the next presentable image. An
// out-of-date swapchain schedules recreation; it and a timeout are reported
// as core.ErrSurfaceUnavailable. A suboptimal image is returned normally.
func (vs *VulkanSwapchain) SwapchainAcquireNextImageIndex(context *VulkanContext, timeoutNS uint64, imageAvailableSemaphore vk.Semaphore) (uint32, error) {
	var imageIndex uint32
	var result vk.Result
	lockPool.SafeCall(SwapchainManagement, func() error {
		result = vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, timeoutNS, imageAvailableSemaphore, vk.NullFence, &imageIndex)
		return nil
	})

	switch result {
	case vk.Success:
		return imageIndex, nil
	case vk.Suboptimal:
		// The semaphore is signalled, so the frame must go ahead.
		context.RecreatingSwapchain = true
		return imageIndex, nil
	case vk.ErrorOutOfDate:
		// Trigger swapchain recreation, then boot out of the render loop.
		context.RecreatingSwapchain = true
		return 0, fmt.Errorf("acquire: swapchain out of date: %w", core.ErrSurfaceUnavailable)
	case vk.Timeout, vk.NotReady:
		return 0, fmt.Errorf("acquire: %s: %w", VulkanResultString(result, false), core.ErrSurfaceUnavailable)
	default:
		err := vulkanError("vkAcquireNextImageKHR", result)
		core.LogError("%s", err)
		return 0, err
	}
}

// SwapchainPresent hands the image back to the swapchain. Out-of-date and
// suboptimal results schedule recreation and are not errors.
func (vs *VulkanSwapchain) SwapchainPresent(context *VulkanContext, presentQueue vk.Queue, renderCompleteSemaphore vk.Semaphore, presentImageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderCompleteSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{presentImageIndex},
		PResults:           nil,
	}

	var result vk.Result
	lockPool.SafeQueueCall(uint32(context.Device.PresentQueueIndex), func() error {
		result = vk.QueuePresent(presentQueue, &presentInfo)
		return nil
	})

	switch result {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		// Swapchain is out of date, suboptimal or a framebuffer resize has occurred. Trigger swapchain recreation.
		context.RecreatingSwapchain = true
		return nil
	default:
		err := vulkanError("vkQueuePresentKHR", result)
		core.LogError("%s", err)
		return err
	}
}

// chooseSurfaceFormat prefers 8-bit BGRA in the sRGB nonlinear color space.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	if len(formats) == 0 {
		return vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	}
	return formats[0]
}

// choosePresentMode picks FIFO when vsync is requested, otherwise mailbox if
// the surface offers it. FIFO is the only mode every surface must support.
func choosePresentMode(modes []vk.PresentMode, vsync bool) vk.PresentMode {
	if vsync {
		return vk.PresentModeFifo
	}
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// chooseSwapchainExtent uses the surface's current extent when it is fixed,
// otherwise the framebuffer size clamped to what the GPU allows.
func chooseSwapchainExtent(current, minExtent, maxExtent vk.Extent2D, width, height uint32) vk.Extent2D {
	if current.Width != m.MaxUint32 {
		return vk.Extent2D{Width: current.Width, Height: current.Height}
	}
	return vk.Extent2D{
		Width:  math.Clamp(width, minExtent.Width, maxExtent.Width),
		Height: math.Clamp(height, minExtent.Height, maxExtent.Height),
	}
}

// chooseImageCount asks for one image more than the minimum. A max of zero
// means no limit.
func chooseImageCount(minCount, maxCount uint32) uint32 {
	imageCount := minCount + 1
	if maxCount > 0 && imageCount > maxCount {
		imageCount = maxCount
	}
	return imageCount
}

func createSwapchain(context *VulkanContext, width, height uint32, vsync bool) (*VulkanSwapchain, error) {
	support := &context.Device.SwapchainSupport
	if err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface, support); err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	swapchain := &VulkanSwapchain{
		ImageFormat: chooseSurfaceFormat(support.Formats),
		PresentMode: choosePresentMode(support.PresentModes, vsync),
		Extent: chooseSwapchainExtent(
			support.Capabilities.CurrentExtent,
			support.Capabilities.MinImageExtent,
			support.Capabilities.MaxImageExtent,
			width, height),
	}
	if swapchain.Extent.Width == 0 || swapchain.Extent.Height == 0 {
		return nil, fmt.Errorf("swapchain extent is %dx%d: %w", swapchain.Extent.Width, swapchain.Extent.Height, core.ErrSurfaceUnavailable)
	}

	imageCount := chooseImageCount(support.Capabilities.MinImageCount, support.Capabilities.MaxImageCount)

	// Swapchain create info
	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      swapchain.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.Swapchain(vk.NullHandle),
	}

	// Setup the queue family indices
	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(context.Device.GraphicsQueueIndex),
			uint32(context.Device.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var swapchainHandle vk.Swapchain
	if res := vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &swapchainHandle); res != vk.Success {
		err := vulkanError("vkCreateSwapchainKHR", res)
		core.LogError("%s", err)
		return nil, err
	}
	swapchain.Handle = swapchainHandle

	// Images
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, nil); res != vk.Success {
		swapchain.destroySwapchain(context)
		return nil, vulkanError("vkGetSwapchainImagesKHR", res)
	}
	swapchain.Images = make([]vk.Image, swapchain.ImageCount)
	swapchain.Views = make([]vk.ImageView, swapchain.ImageCount)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, swapchain.Images); res != vk.Success {
		swapchain.destroySwapchain(context)
		return nil, vulkanError("vkGetSwapchainImagesKHR", res)
	}

	// Views
	for i := range swapchain.Images {
		view, err := ImageViewCreate(context, swapchain.ImageFormat.Format, swapchain.Images[i], vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			swapchain.destroySwapchain(context)
			return nil, err
		}
		swapchain.Views[i] = view
	}

	// Create depth image and its view.
	depthAttachment, err := ImageCreate(
		context,
		vk.ImageType2d,
		swapchain.Extent.Width,
		swapchain.Extent.Height,
		context.Device.DepthFormat,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		true,
		vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	if err != nil {
		swapchain.destroySwapchain(context)
		return nil, err
	}
	swapchain.DepthAttachment = depthAttachment

	core.LogInfo("Swapchain created: %dx%d, %d images, present mode %d.", swapchain.Extent.Width, swapchain.Extent.Height, swapchain.ImageCount, swapchain.PresentMode)
	return swapchain, nil
}

// RegenerateFramebuffers builds one framebuffer per swapchain image with the
// shared depth attachment.
func (vs *VulkanSwapchain) RegenerateFramebuffers(context *VulkanContext, renderpass *VulkanRenderpass) error {
	vs.destroyFramebuffers(context)
	vs.Framebuffers = make([]*VulkanFramebuffer, vs.ImageCount)
	for i := range vs.Views {
		attachments := []vk.ImageView{
			vs.Views[i],
			vs.DepthAttachment.View,
		}
		fb, err := FramebufferCreate(context, renderpass, vs.Extent.Width, vs.Extent.Height, attachments)
		if err != nil {
			core.LogError("failed to execute framebuffer create function")
			return err
		}
		vs.Framebuffers[i] = fb
	}
	return nil
}

func (vs *VulkanSwapchain) destroyFramebuffers(context *VulkanContext) {
	for _, fb := range vs.Framebuffers {
		if fb != nil {
			fb.Destroy(context)
		}
	}
	vs.Framebuffers = nil
}

func (vs *VulkanSwapchain) destroySwapchain(context *VulkanContext) {
	vs.destroyFramebuffers(context)

	vs.DepthAttachment.ImageDestroy(context)
	vs.DepthAttachment = nil

	// Only destroy the views, not the images, since those are owned by the swapchain and are thus
	// destroyed when it is.
	for i := range vs.Views {
		if vs.Views[i] != vk.ImageView(vk.NullHandle) {
			vk.DestroyImageView(context.Device.LogicalDevice, vs.Views[i], context.Allocator)
		}
	}
	vs.Views = nil
	vs.Images = nil

	if vs.Handle != vk.Swapchain(vk.NullHandle) {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.Swapchain(vk.NullHandle)
	}
	vs.ImageCount = 0
}
