package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/spincube/engine/core"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *VulkanRenderpass
}

func FramebufferCreate(context *VulkanContext, renderpass *VulkanRenderpass, width, height uint32, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	// Take a copy of the attachments
	outFramebuffer := &VulkanFramebuffer{
		Attachments: append([]vk.ImageView(nil), attachments...),
		Renderpass:  renderpass,
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(outFramebuffer.Attachments)),
		PAttachments:    outFramebuffer.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	var pFramebuffer vk.Framebuffer
	if res := vk.CreateFramebuffer(context.Device.LogicalDevice, &framebufferCreateInfo, context.Allocator, &pFramebuffer); res != vk.Success {
		err := vulkanError("vkCreateFramebuffer", res)
		core.LogError("%s", err)
		return nil, err
	}
	outFramebuffer.Handle = pFramebuffer
	return outFramebuffer, nil
}

func (vfb *VulkanFramebuffer) Destroy(context *VulkanContext) {
	if vfb.Handle != vk.Framebuffer(vk.NullHandle) {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, vfb.Handle, context.Allocator)
		vfb.Handle = vk.Framebuffer(vk.NullHandle)
	}
	vfb.Attachments = nil
	vfb.Renderpass = nil
}
