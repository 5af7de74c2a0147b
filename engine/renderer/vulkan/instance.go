package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/spincube/engine/core"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// instanceExtensions returns the extension list for an instance presenting to
// a surface that needs surfaceExtensions.
func instanceExtensions(surfaceExtensions []string, goos string, validation bool) []string {
	extensions := []string{}
	seen := map[string]bool{}
	add := func(names ...string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				extensions = append(extensions, n)
			}
		}
	}
	// Generic surface extension
	add("VK_KHR_surface")
	add(surfaceExtensions...)
	if goos == "darwin" {
		add("VK_KHR_portability_enumeration", "VK_KHR_get_physical_device_properties2")
	}
	if validation {
		add(vk.ExtDebugReportExtensionName)
	}
	return extensions
}

func InstanceCreate(context *VulkanContext, appName string, surfaceExtensions []string, validation bool) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Spincube"),
	}

	requiredExtensions := instanceExtensions(surfaceExtensions, runtime.GOOS, validation)
	core.LogDebug("Required instance extensions: %v", requiredExtensions)

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(requiredExtensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(requiredExtensions),
	}
	if runtime.GOOS == "darwin" {
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	layers := []string{}
	if validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		var availableLayerCount uint32
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
			return vulkanError("vkEnumerateInstanceLayerProperties", res)
		}
		availableLayers := make([]vk.LayerProperties, availableLayerCount)
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
			return vulkanError("vkEnumerateInstanceLayerProperties", res)
		}
		names := make([]string, 0, len(availableLayers))
		for i := range availableLayers {
			availableLayers[i].Deref()
			names = append(names, vulkanName(availableLayers[i].LayerName[:]))
		}
		if missing, ok := containsAll(names, []string{validationLayerName}); !ok {
			err := fmt.Errorf("required validation layer is missing: %s", missing)
			core.LogError("%s", err)
			return err
		}
		core.LogInfo("All required validation layers are present.")
		layers = append(layers, validationLayerName)
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, context.Allocator, &instance); res != vk.Success {
		err := vulkanError("vkCreateInstance", res)
		core.LogError("%s", err)
		return err
	}
	if err := vk.InitInstance(instance); err != nil {
		core.LogError("%s", err)
		vk.DestroyInstance(instance, context.Allocator)
		return err
	}
	context.Instance = instance
	core.LogInfo("Vulkan Instance created.")

	if validation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(context.Instance, &debugCreateInfo, context.Allocator, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			return err
		}
		context.debugCallback = dbg
		core.LogDebug("Vulkan debugger created.")
	}
	return nil
}

func InstanceDestroy(context *VulkanContext) {
	if context.debugCallback != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(context.Instance, context.debugCallback, context.Allocator)
		context.debugCallback = vk.NullDebugReportCallback
	}
	if context.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(context.Instance, context.Allocator)
		context.Instance = nil
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
