package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/spincube/engine/core"
)

type VulkanRenderpass struct {
	Handle      vk.RenderPass
	ColorFormat vk.Format
	DepthFormat vk.Format
	// Render area, updated whenever the swapchain is recreated.
	X, Y, W, H float32
	Depth      float32
	Stencil    uint32
}

// RenderpassCreate builds a single subpass with a cleared color attachment
// that ends presentable and a cleared depth attachment.
func RenderpassCreate(context *VulkanContext, colorFormat, depthFormat vk.Format, depth float32, stencil uint32) (*VulkanRenderpass, error) {
	outRenderpass := &VulkanRenderpass{
		ColorFormat: colorFormat,
		DepthFormat: depthFormat,
		Depth:       depth,
		Stencil:     stencil,
	}

	attachmentDescriptions := []vk.AttachmentDescription{
		// Color attachment
		{
			Format:         colorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,  // Do not expect any particular layout before render pass starts.
			FinalLayout:    vk.ImageLayoutPresentSrc, // Transitioned to after the render pass
		},
		// Depth attachment
		{
			Format:         depthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	colorAttachmentReference := []vk.AttachmentReference{
		{
			Attachment: 0, // Attachment description array index
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		},
	}
	depthAttachmentReference := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	// Main subpass
	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       colorAttachmentReference,
		PDepthStencilAttachment: &depthAttachmentReference,
	}

	// The previous frame's color and depth writes must finish before this
	// subpass clears them.
	stages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) | vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  stages,
		SrcAccessMask: 0,
		DstStageMask:  stages,
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit) | vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var pRenderPass vk.RenderPass
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &renderpassCreateInfo, context.Allocator, &pRenderPass); res != vk.Success {
		err := vulkanError("vkCreateRenderPass", res)
		core.LogError("%s", err)
		return nil, err
	}
	outRenderpass.Handle = pRenderPass
	return outRenderpass, nil
}

func (vr *VulkanRenderpass) RenderpassDestroy(context *VulkanContext) {
	if vr.Handle != vk.RenderPass(vk.NullHandle) {
		vk.DestroyRenderPass(context.Device.LogicalDevice, vr.Handle, context.Allocator)
		vr.Handle = vk.RenderPass(vk.NullHandle)
	}
}

// SetExtent updates the render area.
func (vr *VulkanRenderpass) SetExtent(extent vk.Extent2D) {
	vr.X, vr.Y = 0, 0
	vr.W = float32(extent.Width)
	vr.H = float32(extent.Height)
}

func (vr *VulkanRenderpass) RenderpassBegin(commandBuffer *VulkanCommandBuffer, frameBuffer vk.Framebuffer, clearColor [4]float32) {
	clearValues := []vk.ClearValue{
		vk.NewClearValue(clearColor[:]),
		vk.NewClearDepthStencil(vr.Depth, vr.Stencil),
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: frameBuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{
				X: int32(vr.X),
				Y: int32(vr.Y),
			},
			Extent: vk.Extent2D{
				Width:  uint32(vr.W),
				Height: uint32(vr.H),
			},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (vr *VulkanRenderpass) RenderpassEnd(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}
