package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/spincube/engine/core"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	Format vk.Format
}

func ImageCreate(
	context *VulkanContext,
	imageType vk.ImageType,
	width, height uint32,
	format vk.Format,
	tiling vk.ImageTiling,
	usage vk.ImageUsageFlags,
	memoryFlags vk.MemoryPropertyFlags,
	createView bool,
	viewAspectFlags vk.ImageAspectFlags,
) (*VulkanImage, error) {
	outImage := &VulkanImage{
		Width:  width,
		Height: height,
		Format: format,
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: imageType,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1, // TODO: Support configurable depth.
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}

	var image vk.Image
	if res := vk.CreateImage(context.Device.LogicalDevice, &imageCreateInfo, context.Allocator, &image); res != vk.Success {
		err := vulkanError("vkCreateImage", res)
		core.LogError("%s", err)
		return nil, err
	}
	outImage.Handle = image

	// Query memory requirements.
	var memoryRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType, err := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, memoryFlags)
	if err != nil {
		outImage.ImageDestroy(context)
		return nil, err
	}

	// Allocate memory
	memoryAllocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: memoryType,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &memoryAllocateInfo, context.Allocator, &memory); res != vk.Success {
		err := vulkanError("vkAllocateMemory", res)
		core.LogError("%s", err)
		outImage.ImageDestroy(context)
		return nil, err
	}
	outImage.Memory = memory

	// Bind the memory
	if res := vk.BindImageMemory(context.Device.LogicalDevice, image, memory, 0); res != vk.Success {
		err := vulkanError("vkBindImageMemory", res)
		core.LogError("%s", err)
		outImage.ImageDestroy(context)
		return nil, err
	}

	// Create view
	if createView {
		view, err := ImageViewCreate(context, format, image, viewAspectFlags)
		if err != nil {
			outImage.ImageDestroy(context)
			return nil, err
		}
		outImage.View = view
	}

	return outImage, nil
}

func ImageViewCreate(context *VulkanContext, format vk.Format, image vk.Image, aspectFlags vk.ImageAspectFlags) (vk.ImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFlags,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewCreateInfo, context.Allocator, &view); res != vk.Success {
		err := vulkanError("vkCreateImageView", res)
		core.LogError("%s", err)
		return vk.ImageView(vk.NullHandle), err
	}
	return view, nil
}

func (image *VulkanImage) ImageDestroy(context *VulkanContext) {
	if image == nil {
		return
	}
	if image.View != vk.ImageView(vk.NullHandle) {
		vk.DestroyImageView(context.Device.LogicalDevice, image.View, context.Allocator)
		image.View = vk.ImageView(vk.NullHandle)
	}
	if image.Memory != vk.DeviceMemory(vk.NullHandle) {
		vk.FreeMemory(context.Device.LogicalDevice, image.Memory, context.Allocator)
		image.Memory = vk.DeviceMemory(vk.NullHandle)
	}
	if image.Handle != vk.Image(vk.NullHandle) {
		vk.DestroyImage(context.Device.LogicalDevice, image.Handle, context.Allocator)
		image.Handle = vk.Image(vk.NullHandle)
	}
}
