package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// VulkanResultString returns the name of a result code, or the name followed
// by a short description when getExtended is set.
func VulkanResultString(result vk.Result, getExtended bool) string {
	// From: https://www.khronos.org/registry/vulkan/specs/1.3-extensions/man/html/VkResult.html
	switch result {
	// Success codes
	case vk.Success:
		return ConditionalOperator(!getExtended, "VK_SUCCESS", "VK_SUCCESS Command successfully completed")
	case vk.NotReady:
		return ConditionalOperator(!getExtended, "VK_NOT_READY", "VK_NOT_READY A fence or query has not yet completed")
	case vk.Timeout:
		return ConditionalOperator(!getExtended, "VK_TIMEOUT", "VK_TIMEOUT A wait operation has not completed in the specified time")
	case vk.EventSet:
		return ConditionalOperator(!getExtended, "VK_EVENT_SET", "VK_EVENT_SET An event is signaled")
	case vk.EventReset:
		return ConditionalOperator(!getExtended, "VK_EVENT_RESET", "VK_EVENT_RESET An event is unsignaled")
	case vk.Incomplete:
		return ConditionalOperator(!getExtended, "VK_INCOMPLETE", "VK_INCOMPLETE A return array was too small for the result")
	case vk.Suboptimal:
		return ConditionalOperator(!getExtended, "VK_SUBOPTIMAL_KHR", "VK_SUBOPTIMAL_KHR The swapchain no longer matches the surface exactly but can still present")

	// Error codes
	case vk.ErrorOutOfHostMemory:
		return ConditionalOperator(!getExtended, "VK_ERROR_OUT_OF_HOST_MEMORY", "VK_ERROR_OUT_OF_HOST_MEMORY A host memory allocation has failed")
	case vk.ErrorOutOfDeviceMemory:
		return ConditionalOperator(!getExtended, "VK_ERROR_OUT_OF_DEVICE_MEMORY", "VK_ERROR_OUT_OF_DEVICE_MEMORY A device memory allocation has failed")
	case vk.ErrorInitializationFailed:
		return ConditionalOperator(!getExtended, "VK_ERROR_INITIALIZATION_FAILED", "VK_ERROR_INITIALIZATION_FAILED Initialization of an object could not be completed")
	case vk.ErrorDeviceLost:
		return ConditionalOperator(!getExtended, "VK_ERROR_DEVICE_LOST", "VK_ERROR_DEVICE_LOST The logical or physical device has been lost")
	case vk.ErrorMemoryMapFailed:
		return ConditionalOperator(!getExtended, "VK_ERROR_MEMORY_MAP_FAILED", "VK_ERROR_MEMORY_MAP_FAILED Mapping of a memory object has failed")
	case vk.ErrorLayerNotPresent:
		return ConditionalOperator(!getExtended, "VK_ERROR_LAYER_NOT_PRESENT", "VK_ERROR_LAYER_NOT_PRESENT A requested layer is not present or could not be loaded")
	case vk.ErrorExtensionNotPresent:
		return ConditionalOperator(!getExtended, "VK_ERROR_EXTENSION_NOT_PRESENT", "VK_ERROR_EXTENSION_NOT_PRESENT A requested extension is not supported")
	case vk.ErrorFeatureNotPresent:
		return ConditionalOperator(!getExtended, "VK_ERROR_FEATURE_NOT_PRESENT", "VK_ERROR_FEATURE_NOT_PRESENT A requested feature is not supported")
	case vk.ErrorIncompatibleDriver:
		return ConditionalOperator(!getExtended, "VK_ERROR_INCOMPATIBLE_DRIVER", "VK_ERROR_INCOMPATIBLE_DRIVER The requested version of Vulkan is not supported by the driver")
	case vk.ErrorTooManyObjects:
		return ConditionalOperator(!getExtended, "VK_ERROR_TOO_MANY_OBJECTS", "VK_ERROR_TOO_MANY_OBJECTS Too many objects of the type have already been created")
	case vk.ErrorFormatNotSupported:
		return ConditionalOperator(!getExtended, "VK_ERROR_FORMAT_NOT_SUPPORTED", "VK_ERROR_FORMAT_NOT_SUPPORTED A requested format is not supported on this device")
	case vk.ErrorFragmentedPool:
		return ConditionalOperator(!getExtended, "VK_ERROR_FRAGMENTED_POOL", "VK_ERROR_FRAGMENTED_POOL A pool allocation has failed due to fragmentation")
	case vk.ErrorOutOfPoolMemory:
		return ConditionalOperator(!getExtended, "VK_ERROR_OUT_OF_POOL_MEMORY", "VK_ERROR_OUT_OF_POOL_MEMORY A pool memory allocation has failed")
	case vk.ErrorSurfaceLost:
		return ConditionalOperator(!getExtended, "VK_ERROR_SURFACE_LOST_KHR", "VK_ERROR_SURFACE_LOST_KHR A surface is no longer available")
	case vk.ErrorNativeWindowInUse:
		return ConditionalOperator(!getExtended, "VK_ERROR_NATIVE_WINDOW_IN_USE_KHR", "VK_ERROR_NATIVE_WINDOW_IN_USE_KHR The window is already in use by another swapchain")
	case vk.ErrorOutOfDate:
		return ConditionalOperator(!getExtended, "VK_ERROR_OUT_OF_DATE_KHR", "VK_ERROR_OUT_OF_DATE_KHR The surface changed and the swapchain must be recreated")
	case vk.ErrorIncompatibleDisplay:
		return ConditionalOperator(!getExtended, "VK_ERROR_INCOMPATIBLE_DISPLAY_KHR", "VK_ERROR_INCOMPATIBLE_DISPLAY_KHR The display is incompatible with the swapchain")
	default:
		return ConditionalOperator(!getExtended, "VK_ERROR_UNKNOWN", fmt.Sprintf("VK_ERROR_UNKNOWN Unrecognized result code %d", int32(result)))
	}
}

// VulkanResultIsSuccess reports whether result is one of the non-error codes.
func VulkanResultIsSuccess(result vk.Result) bool {
	switch result {
	case vk.Success, vk.NotReady, vk.Timeout, vk.EventSet, vk.EventReset,
		vk.Incomplete, vk.Suboptimal:
		return true
	}
	return false
}

// vulkanError formats a failed call as "<op> failed with <result>".
func vulkanError(op string, result vk.Result) error {
	return fmt.Errorf("%s failed with %s", op, VulkanResultString(result, true))
}

func ConditionalOperator(condition bool, res1, res2 string) string {
	if condition {
		return res1
	}
	return res2
}

var end = "\x00"
var endChar byte = '\x00'

// VulkanSafeString null-terminates s for the C side.
func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

// VulkanSafeStrings returns a null-terminated copy of list.
func VulkanSafeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = VulkanSafeString(list[i])
	}
	return out
}

// FindFirstZeroInByteArray returns the index of the first zero byte, or len(arr).
func FindFirstZeroInByteArray(arr []byte) int {
	for i, b := range arr {
		if b == 0 {
			return i
		}
	}
	return len(arr)
}

// vulkanName converts a fixed-size name array from a properties struct.
func vulkanName(arr []byte) string {
	return string(arr[:FindFirstZeroInByteArray(arr)])
}

// containsAll reports whether every name in required appears in available.
func containsAll(available, required []string) (string, bool) {
	set := make(map[string]struct{}, len(available))
	for _, name := range available {
		set[name] = struct{}{}
	}
	for _, name := range required {
		if _, ok := set[name]; !ok {
			return name, false
		}
	}
	return "", true
}
