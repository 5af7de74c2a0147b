package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/spincube/engine/core"
	"github.com/spaghettifunk/spincube/engine/renderer/metadata"
)

/**
 * @brief Holds a Vulkan pipeline and its layout.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	PipelineLayout vk.PipelineLayout
}

type VulkanPipelineConfig struct {
	/** @brief The renderpass the pipeline draws into. */
	Renderpass *VulkanRenderpass
	/** @brief The stride of the vertex data to be used. */
	Stride uint32
	/** @brief An array of attributes. */
	Attributes []vk.VertexInputAttributeDescription
	/** @brief An array of descriptor set layouts. */
	DescriptorSetLayouts []vk.DescriptorSetLayout
	/** @brief An array of stages. */
	Stages []vk.PipelineShaderStageCreateInfo
	/** @brief The initial viewport configuration. Overridden per frame. */
	Viewport vk.Viewport
	/** @brief The initial scissor configuration. Overridden per frame. */
	Scissor vk.Rect2D
	/** @brief The face cull mode. */
	CullMode metadata.FaceCullMode
	/** @brief Indicates if this pipeline should use wireframe mode. */
	IsWireframe bool
	DepthTest   bool
	DepthWrite  bool
}

// vertexFormat maps a vertex attribute format to its Vulkan equivalent.
func vertexFormat(format metadata.VertexFormat) (vk.Format, error) {
	switch format {
	case metadata.VertexFormatFloat32x3:
		return vk.FormatR32g32b32Sfloat, nil
	case metadata.VertexFormatFloat32x4:
		return vk.FormatR32g32b32a32Sfloat, nil
	}
	return vk.FormatUndefined, fmt.Errorf("unsupported vertex format %d", format)
}

// vertexAttributes describes layout for binding 0.
func vertexAttributes(layout metadata.VertexLayout) ([]vk.VertexInputAttributeDescription, error) {
	out := make([]vk.VertexInputAttributeDescription, len(layout.Attributes))
	for i, a := range layout.Attributes {
		format, err := vertexFormat(a.Format)
		if err != nil {
			return nil, err
		}
		out[i] = vk.VertexInputAttributeDescription{
			Binding:  0,
			Location: a.Location,
			Format:   format,
			Offset:   a.Offset,
		}
	}
	return out, nil
}

func cullModeFlags(mode metadata.FaceCullMode) vk.CullModeFlags {
	switch mode {
	case metadata.FaceCullModeNone:
		return vk.CullModeFlags(vk.CullModeNone)
	case metadata.FaceCullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case metadata.FaceCullModeFrontAndBack:
		return vk.CullModeFlags(vk.CullModeFrontAndBack)
	default:
		return vk.CullModeFlags(vk.CullModeBackBit)
	}
}

func NewGraphicsPipeline(context *VulkanContext, config *VulkanPipelineConfig) (*VulkanPipeline, error) {
	outPipeline := &VulkanPipeline{}

	// Viewport state
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{config.Viewport},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{config.Scissor},
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                cullModeFlags(config.CullMode),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}
	if config.IsWireframe {
		rasterizerCreateInfo.PolygonMode = vk.PolygonModeLine
	}

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	// Depth and stencil testing.
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vk.False,
		DepthWriteEnable:      vk.False,
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vk.False,
	}
	if config.DepthTest {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthCompareOp = vk.CompareOpLess
	}
	if config.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	// Opaque geometry, no blending.
	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	// Dynamic state
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	// Vertex input
	bindingDescription := vk.VertexInputBindingDescription{
		Binding:   0, // Binding index
		Stride:    config.Stride,
		InputRate: vk.VertexInputRateVertex, // Move to next data entry for each vertex.
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{bindingDescription},
		VertexAttributeDescriptionCount: uint32(len(config.Attributes)),
		PVertexAttributeDescriptions:    config.Attributes,
	}

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	// Pipeline layout
	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(config.DescriptorSetLayouts)),
		PSetLayouts:    config.DescriptorSetLayouts,
	}

	if err := lockPool.SafeCall(PipelineManagement, func() error {
		var pPipelineLayout vk.PipelineLayout
		if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &pipelineLayoutCreateInfo, context.Allocator, &pPipelineLayout); res != vk.Success {
			return vulkanError("vkCreatePipelineLayout", res)
		}
		outPipeline.PipelineLayout = pPipelineLayout
		return nil
	}); err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	// Pipeline create
	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(config.Stages)),
		PStages:             config.Stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              outPipeline.PipelineLayout,
		RenderPass:          config.Renderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pPipelines := make([]vk.Pipeline, 1)
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		if res := vk.CreateGraphicsPipelines(context.Device.LogicalDevice, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, context.Allocator, pPipelines); res != vk.Success {
			return vulkanError("vkCreateGraphicsPipelines", res)
		}
		return nil
	}); err != nil {
		core.LogError("%s", err)
		outPipeline.Destroy(context)
		return nil, err
	}
	outPipeline.Handle = pPipelines[0]

	core.LogDebug("Graphics pipeline created!")
	return outPipeline, nil
}

func (pipeline *VulkanPipeline) Destroy(context *VulkanContext) {
	if pipeline == nil {
		return
	}
	lockPool.SafeCall(PipelineManagement, func() error {
		if pipeline.Handle != vk.NullPipeline {
			vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
			pipeline.Handle = vk.NullPipeline
		}
		if pipeline.PipelineLayout != vk.PipelineLayout(vk.NullHandle) {
			vk.DestroyPipelineLayout(context.Device.LogicalDevice, pipeline.PipelineLayout, context.Allocator)
			pipeline.PipelineLayout = vk.PipelineLayout(vk.NullHandle)
		}
		return nil
	})
}

func (pipeline *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer, bindPoint vk.PipelineBindPoint) {
	vk.CmdBindPipeline(commandBuffer.Handle, bindPoint, pipeline.Handle)
}
