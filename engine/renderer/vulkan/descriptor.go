package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/spincube/engine/core"
)

/**
 * @brief A single uniform buffer bound at binding 0 of set 0, read by the
 * vertex stage. One descriptor set is allocated per frame slot.
 */
type VulkanDescriptorState struct {
	Layout vk.DescriptorSetLayout
	Pool   vk.DescriptorPool
	Sets   []vk.DescriptorSet
}

func DescriptorSetLayoutCreate(context *VulkanContext) (vk.DescriptorSetLayout, error) {
	binding := vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings:    []vk.DescriptorSetLayoutBinding{binding},
	}

	var layout vk.DescriptorSetLayout
	err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &layout); res != vk.Success {
			return vulkanError("vkCreateDescriptorSetLayout", res)
		}
		return nil
	})
	if err != nil {
		core.LogError("%s", err)
		return vk.DescriptorSetLayout(vk.NullHandle), err
	}
	return layout, nil
}

// DescriptorSetsCreate allocates count sets of layout from a new pool and
// points set i at buffers[i].
func DescriptorSetsCreate(context *VulkanContext, layout vk.DescriptorSetLayout, buffers []*VulkanBuffer, rangeSize uint64) (*VulkanDescriptorState, error) {
	count := uint32(len(buffers))
	state := &VulkanDescriptorState{Layout: layout}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       count,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{
			{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: count},
		},
	}

	err := lockPool.SafeCall(DescriptorManagement, func() error {
		var pool vk.DescriptorPool
		if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &pool); res != vk.Success {
			return vulkanError("vkCreateDescriptorPool", res)
		}
		state.Pool = pool

		layouts := make([]vk.DescriptorSetLayout, count)
		for i := range layouts {
			layouts[i] = layout
		}
		allocInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     pool,
			DescriptorSetCount: count,
			PSetLayouts:        layouts,
		}
		state.Sets = make([]vk.DescriptorSet, count)
		if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocInfo, &state.Sets[0]); res != vk.Success {
			return vulkanError("vkAllocateDescriptorSets", res)
		}

		writes := make([]vk.WriteDescriptorSet, count)
		for i, buffer := range buffers {
			writes[i] = vk.WriteDescriptorSet{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          state.Sets[i],
				DstBinding:      0,
				DstArrayElement: 0,
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeUniformBuffer,
				PBufferInfo: []vk.DescriptorBufferInfo{{
					Buffer: buffer.Handle,
					Offset: 0,
					Range:  vk.DeviceSize(rangeSize),
				}},
			}
		}
		vk.UpdateDescriptorSets(context.Device.LogicalDevice, count, writes, 0, nil)
		return nil
	})
	if err != nil {
		core.LogError("%s", err)
		state.Destroy(context)
		return nil, err
	}
	return state, nil
}

// Destroy frees the pool, and with it every set. The layout belongs to the
// pipeline and is left alone.
func (ds *VulkanDescriptorState) Destroy(context *VulkanContext) {
	if ds == nil {
		return
	}
	lockPool.SafeCall(DescriptorManagement, func() error {
		if ds.Pool != vk.DescriptorPool(vk.NullHandle) {
			vk.DestroyDescriptorPool(context.Device.LogicalDevice, ds.Pool, context.Allocator)
			ds.Pool = vk.DescriptorPool(vk.NullHandle)
		}
		return nil
	})
	ds.Sets = nil
}

func DescriptorSetLayoutDestroy(context *VulkanContext, layout *vk.DescriptorSetLayout) {
	lockPool.SafeCall(DescriptorManagement, func() error {
		if *layout != vk.DescriptorSetLayout(vk.NullHandle) {
			vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, *layout, context.Allocator)
			*layout = vk.DescriptorSetLayout(vk.NullHandle)
		}
		return nil
	})
}
