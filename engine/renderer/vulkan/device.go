package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/spincube/engine/core"
)

const portabilitySubsetExtensionName = "VK_KHR_portability_subset"

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	SwapchainSupport   VulkanSwapchainSupportInfo
	GraphicsQueueIndex int32
	PresentQueueIndex  int32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures

	DepthFormat vk.Format
	DeviceName  string
}

type VulkanPhysicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	DeviceExtensionNames []string
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

func DeviceCreate(context *VulkanContext) error {
	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	indices := []uint32{uint32(context.Device.GraphicsQueueIndex)}
	if context.Device.PresentQueueIndex != context.Device.GraphicsQueueIndex {
		indices = append(indices, uint32(context.Device.PresentQueueIndex))
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: indices[i],
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	available, err := deviceExtensionNames(context.Device.PhysicalDevice)
	if err != nil {
		return err
	}
	if _, ok := containsAll(available, []string{portabilitySubsetExtensionName}); ok {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtensionName)
		extensionNames = append(extensionNames, portabilitySubsetExtensionName)
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
		// Deprecated and ignored, so pass nothing.
		EnabledLayerCount:   0,
		PpEnabledLayerNames: nil,
	}

	var device vk.Device
	if res := vk.CreateDevice(context.Device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &device); res != vk.Success {
		err := vulkanError("vkCreateDevice", res)
		core.LogError("%s", err)
		return err
	}
	context.Device.LogicalDevice = device
	core.LogInfo("Logical device created.")

	// Get queues.
	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(device, uint32(context.Device.GraphicsQueueIndex), 0, &graphicsQueue)
	vk.GetDeviceQueue(device, uint32(context.Device.PresentQueueIndex), 0, &presentQueue)
	context.Device.GraphicsQueue = graphicsQueue
	context.Device.PresentQueue = presentQueue
	lockPool.SetQueueFamily(uint32(context.Device.GraphicsQueueIndex))
	lockPool.SetQueueFamily(uint32(context.Device.PresentQueueIndex))
	core.LogInfo("Queues obtained.")

	// Create command pool for graphics queue.
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(context.Device.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(device, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		err := vulkanError("vkCreateCommandPool", res)
		core.LogError("%s", err)
		return err
	}
	context.Device.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	if !DeviceDetectDepthFormat(context.Device) {
		err := fmt.Errorf("failed to find a supported depth format")
		core.LogError("%s", err)
		return err
	}
	return nil
}

func DeviceDestroy(context *VulkanContext) {
	if context.Device == nil {
		return
	}
	// Unset queues
	context.Device.GraphicsQueue = nil
	context.Device.PresentQueue = nil

	if context.Device.GraphicsCommandPool != vk.CommandPool(vk.NullHandle) {
		core.LogInfo("Destroying command pools...")
		vk.DestroyCommandPool(context.Device.LogicalDevice, context.Device.GraphicsCommandPool, context.Allocator)
		context.Device.GraphicsCommandPool = vk.CommandPool(vk.NullHandle)
	}

	// Destroy logical device
	if context.Device.LogicalDevice != nil {
		core.LogInfo("Destroying logical device...")
		vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
		context.Device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	context.Device.PhysicalDevice = nil
	context.Device.SwapchainSupport = VulkanSwapchainSupportInfo{}
	context.Device.GraphicsQueueIndex = -1
	context.Device.PresentQueueIndex = -1
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface, supportInfo *VulkanSwapchainSupportInfo) error {
	// Surface capabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities); res != vk.Success {
		return vulkanError("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", res)
	}
	supportInfo.Capabilities.Deref()
	supportInfo.Capabilities.CurrentExtent.Deref()
	supportInfo.Capabilities.MinImageExtent.Deref()
	supportInfo.Capabilities.MaxImageExtent.Deref()

	// Surface formats
	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return vulkanError("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
	}
	supportInfo.Formats = make([]vk.SurfaceFormat, formatCount)
	if formatCount != 0 {
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, supportInfo.Formats); res != vk.Success {
			return vulkanError("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
		}
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}

	// Present modes
	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return vulkanError("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
	}
	supportInfo.PresentModes = make([]vk.PresentMode, presentModeCount)
	if presentModeCount != 0 {
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, supportInfo.PresentModes); res != vk.Success {
			return vulkanError("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
		}
	}
	return nil
}

func DeviceDetectDepthFormat(device *VulkanDevice) bool {
	// Format candidates
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, candidate := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, candidate, &properties)
		properties.Deref()
		if properties.OptimalTilingFeatures&flags == flags {
			device.DepthFormat = candidate
			return true
		}
	}
	device.DepthFormat = vk.FormatUndefined
	return false
}

func SelectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return vulkanError("vkEnumeratePhysicalDevices", res)
	}
	if physicalDeviceCount == 0 {
		err := fmt.Errorf("no devices which support Vulkan were found")
		core.LogError("%s", err)
		return err
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return vulkanError("vkEnumeratePhysicalDevices", res)
	}

	requirements := VulkanPhysicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}

	bestScore := -1
	for _, physicalDevice := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(physicalDevice, &properties)
		properties.Deref()

		var features vk.PhysicalDeviceFeatures
		vk.GetPhysicalDeviceFeatures(physicalDevice, &features)
		features.Deref()

		name := vulkanName(properties.DeviceName[:])
		queueInfo := VulkanPhysicalDeviceQueueFamilyInfo{}
		support := VulkanSwapchainSupportInfo{}
		if !PhysicalDeviceMeetsRequirements(physicalDevice, context.Surface, name, &requirements, &queueInfo, &support) {
			continue
		}

		// Discrete is preferred, never required.
		score := deviceTypeScore(properties.DeviceType)
		if score <= bestScore {
			continue
		}
		bestScore = score

		context.Device.PhysicalDevice = physicalDevice
		context.Device.GraphicsQueueIndex = queueInfo.GraphicsFamilyIndex
		context.Device.PresentQueueIndex = queueInfo.PresentFamilyIndex
		context.Device.SwapchainSupport = support
		context.Device.Properties = properties
		context.Device.Features = features
		context.Device.DeviceName = name
	}

	// Ensure a device was selected
	if context.Device.PhysicalDevice == nil {
		err := fmt.Errorf("no physical devices were found which meet the requirements")
		core.LogError("%s", err)
		return err
	}

	core.LogInfo("Selected device: '%s' (%s).", context.Device.DeviceName, deviceTypeName(context.Device.Properties.DeviceType))
	core.LogInfo("Vulkan API version: %d.%d.%d",
		vk.Version.Major(vk.Version(context.Device.Properties.ApiVersion)),
		vk.Version.Minor(vk.Version(context.Device.Properties.ApiVersion)),
		vk.Version.Patch(vk.Version(context.Device.Properties.ApiVersion)),
	)
	return nil
}

func PhysicalDeviceMeetsRequirements(device vk.PhysicalDevice, surface vk.Surface, name string, requirements *VulkanPhysicalDeviceRequirements, outQueueInfo *VulkanPhysicalDeviceQueueFamilyInfo, outSwapchainSupport *VulkanSwapchainSupportInfo) bool {
	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	flags := make([]vk.QueueFlags, queueFamilyCount)
	present := make([]bool, queueFamilyCount)
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		flags[i] = queueFamilies[i].QueueFlags

		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			core.LogWarn("Device '%s': surface support query failed with %s", name, VulkanResultString(res, false))
			return false
		}
		present[i] = supportsPresent == vk.True
	}

	info, ok := pickQueueFamilies(flags, present)
	core.LogDebug("Device '%s': graphics family %d, present family %d", name, info.GraphicsFamilyIndex, info.PresentFamilyIndex)
	if (requirements.Graphics && info.GraphicsFamilyIndex < 0) || (requirements.Present && info.PresentFamilyIndex < 0) || !ok {
		core.LogInfo("Device '%s' does not meet queue requirements, skipping.", name)
		return false
	}
	*outQueueInfo = info

	// Device extensions.
	if len(requirements.DeviceExtensionNames) > 0 {
		available, err := deviceExtensionNames(device)
		if err != nil {
			return false
		}
		if missing, ok := containsAll(available, requirements.DeviceExtensionNames); !ok {
			core.LogInfo("Required extension not found: '%s', skipping device.", missing)
			return false
		}
	}

	// Query swapchain support.
	if err := DeviceQuerySwapchainSupport(device, surface, outSwapchainSupport); err != nil {
		core.LogWarn("Device '%s': %s", name, err)
		return false
	}
	if len(outSwapchainSupport.Formats) < 1 || len(outSwapchainSupport.PresentModes) < 1 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return false
	}
	return true
}

// pickQueueFamilies selects a graphics family and a present family, preferring
// one family that does both. Missing families are reported as -1.
func pickQueueFamilies(flags []vk.QueueFlags, present []bool) (VulkanPhysicalDeviceQueueFamilyInfo, bool) {
	info := VulkanPhysicalDeviceQueueFamilyInfo{GraphicsFamilyIndex: -1, PresentFamilyIndex: -1}
	for i := range flags {
		graphics := flags[i]&vk.QueueFlags(vk.QueueGraphicsBit) != 0
		if graphics && present[i] {
			info.GraphicsFamilyIndex = int32(i)
			info.PresentFamilyIndex = int32(i)
			return info, true
		}
		if graphics && info.GraphicsFamilyIndex < 0 {
			info.GraphicsFamilyIndex = int32(i)
		}
		if present[i] && info.PresentFamilyIndex < 0 {
			info.PresentFamilyIndex = int32(i)
		}
	}
	return info, info.GraphicsFamilyIndex >= 0 && info.PresentFamilyIndex >= 0
}

func deviceTypeScore(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 4
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 3
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 2
	case vk.PhysicalDeviceTypeCpu:
		return 1
	}
	return 0
}

func deviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "Discrete"
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "Integrated"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "Virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "CPU"
	}
	return "Unknown"
}

func deviceExtensionNames(device vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success {
		return nil, vulkanError("vkEnumerateDeviceExtensionProperties", res)
	}
	properties := make([]vk.ExtensionProperties, count)
	if count > 0 {
		if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, properties); res != vk.Success {
			return nil, vulkanError("vkEnumerateDeviceExtensionProperties", res)
		}
	}
	names := make([]string, 0, count)
	for i := range properties {
		properties[i].Deref()
		names = append(names, vulkanName(properties[i].ExtensionName[:]))
	}
	return names, nil
}
