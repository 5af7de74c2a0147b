package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/spincube/engine/core"
	"github.com/spaghettifunk/spincube/engine/renderer/metadata"
)

/**
 * @brief A shader module paired with the stage info that feeds it into a pipeline.
 */
type VulkanShaderStage struct {
	Handle          vk.ShaderModule
	ShaderStageInfo vk.PipelineShaderStageCreateInfo
}

func shaderStageFlag(stage metadata.ShaderStage) vk.ShaderStageFlagBits {
	switch stage {
	case metadata.ShaderStageFragment:
		return vk.ShaderStageFragmentBit
	default:
		return vk.ShaderStageVertexBit
	}
}

// CreateShaderModule wraps SPIR-V code in a shader module.
func CreateShaderModule(context *VulkanContext, module metadata.ShaderModule) (*VulkanShaderStage, error) {
	if len(module.Code) == 0 {
		return nil, fmt.Errorf("%s shader has no code", module.Stage)
	}
	if module.Code[0] != metadata.SPIRVMagic {
		return nil, fmt.Errorf("%s shader is not spir-v (magic 0x%08x)", module.Stage, module.Code[0])
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(module.Code) * 4),
		PCode:    module.Code,
	}

	var handle vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		err := vulkanError("vkCreateShaderModule", res)
		core.LogError("%s", err)
		return nil, err
	}

	entryPoint := module.EntryPoint
	if entryPoint == "" {
		entryPoint = "main"
	}

	return &VulkanShaderStage{
		Handle: handle,
		ShaderStageInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  shaderStageFlag(module.Stage),
			Module: handle,
			PName:  VulkanSafeString(entryPoint),
		},
	}, nil
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s == nil || s.Handle == vk.ShaderModule(vk.NullHandle) {
		return
	}
	vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
	s.Handle = vk.ShaderModule(vk.NullHandle)
}
