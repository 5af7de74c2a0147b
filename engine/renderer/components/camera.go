package components

import (
	"github.com/spaghettifunk/spincube/engine/math"
)

/**
 * @brief A fixed perspective camera looking at a target. The view and
 * projection are rebuilt only when a setter marks the camera dirty.
 */
type Camera struct {
	/** @brief The position of this camera. */
	Position math.Vec3
	/** @brief The point the camera looks at. */
	Target math.Vec3
	Up     math.Vec3

	/** @brief Vertical field of view in radians. */
	FovRadians  float32
	AspectRatio float32
	Near        float32
	Far         float32

	/** @brief Internal flag used to determine when the matrices need to be rebuilt. */
	IsDirty bool

	viewMatrix       math.Mat4
	projectionMatrix math.Mat4
	viewProjection   math.Mat4
}

func NewCamera(position, target math.Vec3, fovRadians, aspectRatio, near, far float32) *Camera {
	return &Camera{
		Position:    position,
		Target:      target,
		Up:          math.NewVec3Up(),
		FovRadians:  fovRadians,
		AspectRatio: aspectRatio,
		Near:        near,
		Far:         far,
		IsDirty:     true,
	}
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.Position = position
	c.IsDirty = true
}

func (c *Camera) SetAspectRatio(aspectRatio float32) {
	c.AspectRatio = aspectRatio
	c.IsDirty = true
}

func (c *Camera) GetView() math.Mat4 {
	c.update()
	return c.viewMatrix
}

// GetViewProjection returns view, then projection, then the Vulkan clip
// correction, so that model.Mul(vp) is a complete MVP.
func (c *Camera) GetViewProjection() math.Mat4 {
	c.update()
	return c.viewProjection
}

func (c *Camera) update() {
	if !c.IsDirty {
		return
	}
	c.viewMatrix = math.NewMat4LookAt(c.Position, c.Target, c.Up)
	c.projectionMatrix = math.NewMat4Perspective(c.FovRadians, c.AspectRatio, c.Near, c.Far)
	c.viewProjection = c.viewMatrix.Mul(c.projectionMatrix).Mul(math.NewMat4VulkanClip())
	c.IsDirty = false
}
