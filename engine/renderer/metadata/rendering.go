package metadata

import "unsafe"

/** @brief Determines face culling mode during rendering. */
type FaceCullMode int

const (
	/** @brief No faces are culled. */
	FaceCullModeNone FaceCullMode = 0x0
	/** @brief Only front faces are culled. */
	FaceCullModeFront FaceCullMode = 0x1
	/** @brief Only back faces are culled. */
	FaceCullModeBack FaceCullMode = 0x2
	/** @brief Both front and back faces are culled. */
	FaceCullModeFrontAndBack FaceCullMode = 0x3
)

// Surface is a presentable target owned by the window system. The renderer
// borrows it: it never resizes or closes it. *glfw.Window satisfies it.
type Surface interface {
	// GetRequiredInstanceExtensions lists the instance extensions needed to present.
	GetRequiredInstanceExtensions() []string
	// CreateWindowSurface creates a VkSurfaceKHR for instance and returns its handle.
	CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error)
	// GetFramebufferSize returns the drawable size in pixels.
	GetFramebufferSize() (width, height int)
}
