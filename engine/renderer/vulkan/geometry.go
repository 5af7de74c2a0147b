package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/spincube/engine/renderer/metadata"
)

/**
 * @brief A mesh resident in device-local vertex and index buffers.
 */
type VulkanGeometry struct {
	Name         string
	VertexBuffer *VulkanBuffer
	IndexBuffer  *VulkanBuffer
	IndexCount   uint32
}

func GeometryCreate(context *VulkanContext, mesh *metadata.Mesh) (*VulkanGeometry, error) {
	if err := mesh.Validate(); err != nil {
		return nil, err
	}
	if mesh.IndexCount() == 0 {
		return nil, fmt.Errorf("mesh %s has no indices", mesh.Name)
	}

	geometry := &VulkanGeometry{
		Name:       mesh.Name,
		IndexCount: mesh.IndexCount(),
	}

	vb, err := BufferCreateDeviceLocal(context, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), mesh.VertexBytes())
	if err != nil {
		return nil, fmt.Errorf("vertex buffer for %s: %w", mesh.Name, err)
	}
	geometry.VertexBuffer = vb

	ib, err := BufferCreateDeviceLocal(context, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit), mesh.IndexBytes())
	if err != nil {
		geometry.Destroy(context)
		return nil, fmt.Errorf("index buffer for %s: %w", mesh.Name, err)
	}
	geometry.IndexBuffer = ib

	return geometry, nil
}

// Draw binds both buffers and issues one indexed draw.
func (g *VulkanGeometry) Draw(commandBuffer *VulkanCommandBuffer) {
	vk.CmdBindVertexBuffers(commandBuffer.Handle, 0, 1, []vk.Buffer{g.VertexBuffer.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(commandBuffer.Handle, g.IndexBuffer.Handle, 0, vk.IndexTypeUint16)
	vk.CmdDrawIndexed(commandBuffer.Handle, g.IndexCount, 1, 0, 0, 0)
}

func (g *VulkanGeometry) Destroy(context *VulkanContext) {
	if g == nil {
		return
	}
	g.VertexBuffer.Destroy(context)
	g.VertexBuffer = nil
	g.IndexBuffer.Destroy(context)
	g.IndexBuffer = nil
	g.IndexCount = 0
}
