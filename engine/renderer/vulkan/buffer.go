package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/spincube/engine/core"
)

/**
 * @brief A Vulkan buffer and its backing memory.
 */
type VulkanBuffer struct {
	/** @brief The size of the buffer in bytes. */
	TotalSize uint64
	/** @brief The internal buffer handle. */
	Handle vk.Buffer
	/** @brief The usage flags. */
	Usage vk.BufferUsageFlags
	/** @brief The memory backing the buffer. */
	Memory vk.DeviceMemory
	/** @brief The property flags of the memory. */
	MemoryPropertyFlags vk.MemoryPropertyFlags
}

func BufferCreate(context *VulkanContext, size uint64, usage vk.BufferUsageFlags, memoryPropertyFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("cannot create a zero-sized buffer")
	}
	outBuffer := &VulkanBuffer{
		TotalSize:           size,
		Usage:               usage,
		MemoryPropertyFlags: memoryPropertyFlags,
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive, // NOTE: Only used in one queue.
	}

	if err := lockPool.SafeCall(BufferManagement, func() error {
		var buffer vk.Buffer
		if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &buffer); res != vk.Success {
			return vulkanError("vkCreateBuffer", res)
		}
		outBuffer.Handle = buffer
		return nil
	}); err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	// Gather memory requirements.
	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, outBuffer.Handle, &requirements)
	requirements.Deref()

	memoryIndex, err := context.FindMemoryIndex(requirements.MemoryTypeBits, memoryPropertyFlags)
	if err != nil {
		outBuffer.Destroy(context)
		return nil, err
	}

	// Allocate memory info
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryIndex,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &memory); res != vk.Success {
		err := vulkanError("vkAllocateMemory", res)
		core.LogError("%s", err)
		outBuffer.Destroy(context)
		return nil, err
	}
	outBuffer.Memory = memory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, outBuffer.Handle, memory, 0); res != vk.Success {
		err := vulkanError("vkBindBufferMemory", res)
		core.LogError("%s", err)
		outBuffer.Destroy(context)
		return nil, err
	}

	return outBuffer, nil
}

func (buffer *VulkanBuffer) Destroy(context *VulkanContext) {
	if buffer == nil {
		return
	}
	lockPool.SafeCall(BufferManagement, func() error {
		if buffer.Memory != vk.DeviceMemory(vk.NullHandle) {
			vk.FreeMemory(context.Device.LogicalDevice, buffer.Memory, context.Allocator)
			buffer.Memory = vk.DeviceMemory(vk.NullHandle)
		}
		if buffer.Handle != vk.Buffer(vk.NullHandle) {
			vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, context.Allocator)
			buffer.Handle = vk.Buffer(vk.NullHandle)
		}
		return nil
	})
	buffer.TotalSize = 0
}

// LoadData copies data into host-visible memory at offset.
func (buffer *VulkanBuffer) LoadData(context *VulkanContext, offset uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if offset+uint64(len(data)) > buffer.TotalSize {
		return fmt.Errorf("write of %d bytes at offset %d exceeds buffer size %d", len(data), offset, buffer.TotalSize)
	}
	if buffer.MemoryPropertyFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) == 0 {
		return fmt.Errorf("buffer memory is not host visible")
	}

	var mapped unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, buffer.Memory, vk.DeviceSize(offset), vk.DeviceSize(len(data)), 0, &mapped); res != vk.Success {
		err := vulkanError("vkMapMemory", res)
		core.LogError("%s", err)
		return err
	}
	vk.Memcopy(mapped, data)
	vk.UnmapMemory(context.Device.LogicalDevice, buffer.Memory)
	return nil
}

// CopyTo records and waits on a single-use transfer of size bytes into dest.
func (buffer *VulkanBuffer) CopyTo(context *VulkanContext, pool vk.CommandPool, queue vk.Queue, sourceOffset uint64, dest *VulkanBuffer, destOffset, size uint64) error {
	cb, err := AllocateAndBeginSingleUse(context, pool)
	if err != nil {
		return err
	}

	region := vk.BufferCopy{
		SrcOffset: vk.DeviceSize(sourceOffset),
		DstOffset: vk.DeviceSize(destOffset),
		Size:      vk.DeviceSize(size),
	}
	vk.CmdCopyBuffer(cb.Handle, buffer.Handle, dest.Handle, 1, []vk.BufferCopy{region})

	return cb.EndSingleUse(context, pool, queue)
}

// BufferCreateDeviceLocal uploads data through a temporary staging buffer into
// a new device-local buffer with the given usage.
func BufferCreateDeviceLocal(context *VulkanContext, usage vk.BufferUsageFlags, data []byte) (*VulkanBuffer, error) {
	size := uint64(len(data))
	staging, err := BufferCreate(
		context,
		size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)

	if err := staging.LoadData(context, 0, data); err != nil {
		return nil, err
	}

	buffer, err := BufferCreate(
		context,
		size,
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return nil, err
	}

	if err := staging.CopyTo(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue, 0, buffer, 0, size); err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	return buffer, nil
}
