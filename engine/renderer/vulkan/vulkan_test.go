package vulkan

import (
	m "math"
	"reflect"
	"strings"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/spincube/engine/renderer/metadata"
)

func TestVulkanResultString(t *testing.T) {
	tests := []struct {
		result   vk.Result
		short    string
		extended string
	}{
		{vk.Success, "VK_SUCCESS", "VK_SUCCESS Command"},
		{vk.Suboptimal, "VK_SUBOPTIMAL_KHR", "VK_SUBOPTIMAL_KHR The swapchain"},
		{vk.ErrorOutOfDate, "VK_ERROR_OUT_OF_DATE_KHR", "VK_ERROR_OUT_OF_DATE_KHR The surface"},
		{vk.ErrorDeviceLost, "VK_ERROR_DEVICE_LOST", "VK_ERROR_DEVICE_LOST The logical"},
		{vk.Result(-424242), "VK_ERROR_UNKNOWN", "VK_ERROR_UNKNOWN Unrecognized result code -424242"},
	}
	for _, tt := range tests {
		if got := VulkanResultString(tt.result, false); got != tt.short {
			t.Errorf("VulkanResultString(%d, false) = %q, want %q", tt.result, got, tt.short)
		}
		if got := VulkanResultString(tt.result, true); !strings.HasPrefix(got, tt.extended) {
			t.Errorf("VulkanResultString(%d, true) = %q, want prefix %q", tt.result, got, tt.extended)
		}
	}
}

func TestVulkanResultIsSuccess(t *testing.T) {
	for _, r := range []vk.Result{vk.Success, vk.Suboptimal, vk.Timeout, vk.NotReady} {
		if !VulkanResultIsSuccess(r) {
			t.Errorf("%s should be a success code", VulkanResultString(r, false))
		}
	}
	for _, r := range []vk.Result{vk.ErrorOutOfDate, vk.ErrorDeviceLost, vk.ErrorOutOfHostMemory, vk.Result(-424242)} {
		if VulkanResultIsSuccess(r) {
			t.Errorf("%s should not be a success code", VulkanResultString(r, false))
		}
	}
}

func TestVulkanError(t *testing.T) {
	err := vulkanError("vkQueueSubmit", vk.ErrorDeviceLost)
	if !strings.HasPrefix(err.Error(), "vkQueueSubmit failed with VK_ERROR_DEVICE_LOST") {
		t.Fatalf("unexpected message %q", err)
	}
}

func TestVulkanSafeString(t *testing.T) {
	if got := VulkanSafeString("main"); got != "main\x00" {
		t.Errorf("got %q", got)
	}
	if got := VulkanSafeString("main\x00"); got != "main\x00" {
		t.Errorf("already terminated string changed: %q", got)
	}
	if got := VulkanSafeString(""); got != "\x00" {
		t.Errorf("empty string: %q", got)
	}

	in := []string{"VK_KHR_surface", "VK_KHR_swapchain"}
	out := VulkanSafeStrings(in)
	if in[0] != "VK_KHR_surface" {
		t.Error("VulkanSafeStrings modified its input")
	}
	if out[1] != "VK_KHR_swapchain\x00" {
		t.Errorf("got %q", out[1])
	}
}

func TestVulkanName(t *testing.T) {
	var raw [16]byte
	copy(raw[:], "llvmpipe")
	if got := vulkanName(raw[:]); got != "llvmpipe" {
		t.Errorf("got %q", got)
	}
	if got := FindFirstZeroInByteArray([]byte("full")); got != 4 {
		t.Errorf("no terminator should return len, got %d", got)
	}
}

func TestContainsAll(t *testing.T) {
	available := []string{"VK_KHR_swapchain", "VK_KHR_portability_subset"}
	if _, ok := containsAll(available, []string{"VK_KHR_swapchain"}); !ok {
		t.Error("swapchain should be found")
	}
	missing, ok := containsAll(available, []string{"VK_KHR_swapchain", "VK_EXT_debug_utils"})
	if ok || missing != "VK_EXT_debug_utils" {
		t.Errorf("got missing=%q ok=%v", missing, ok)
	}
	if _, ok := containsAll(nil, nil); !ok {
		t.Error("nothing required is always satisfied")
	}
}

func TestInstanceExtensions(t *testing.T) {
	got := instanceExtensions([]string{"VK_KHR_surface", "VK_KHR_xcb_surface"}, "linux", false)
	want := []string{"VK_KHR_surface", "VK_KHR_xcb_surface"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("linux: got %v, want %v", got, want)
	}

	got = instanceExtensions([]string{"VK_EXT_metal_surface"}, "darwin", true)
	want = []string{
		"VK_KHR_surface",
		"VK_EXT_metal_surface",
		"VK_KHR_portability_enumeration",
		"VK_KHR_get_physical_device_properties2",
		vk.ExtDebugReportExtensionName,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("darwin: got %v, want %v", got, want)
	}
}

func TestSelectMemoryType(t *testing.T) {
	deviceLocal := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	hostVisible := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	hostCoherent := vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	types := []vk.MemoryPropertyFlags{
		deviceLocal,
		hostVisible,
		hostVisible | hostCoherent,
		deviceLocal | hostVisible | hostCoherent,
	}

	tests := []struct {
		name     string
		filter   uint32
		required vk.MemoryPropertyFlags
		want     uint32
		ok       bool
	}{
		{"device local", 0xF, deviceLocal, 0, true},
		{"host coherent", 0xF, hostVisible | hostCoherent, 2, true},
		{"filter skips first match", 0x8, hostVisible | hostCoherent, 3, true},
		{"filter excludes all", 0x1, hostVisible, 0, false},
		{"empty filter", 0, deviceLocal, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := selectMemoryType(tt.filter, types, tt.required)
			if ok != tt.ok || (ok && got != tt.want) {
				t.Errorf("got (%d, %v), want (%d, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestChooseSurfaceFormat(t *testing.T) {
	preferred := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	other := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	if got := chooseSurfaceFormat([]vk.SurfaceFormat{other, preferred}); got != preferred {
		t.Errorf("preferred format not chosen: %+v", got)
	}
	if got := chooseSurfaceFormat([]vk.SurfaceFormat{other}); got != other {
		t.Errorf("fallback should be the first format: %+v", got)
	}
	if got := chooseSurfaceFormat(nil); got != preferred {
		t.Errorf("empty list should default to the preferred format: %+v", got)
	}
}

func TestChoosePresentMode(t *testing.T) {
	all := []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeMailbox, vk.PresentModeFifo}
	tests := []struct {
		name  string
		modes []vk.PresentMode
		vsync bool
		want  vk.PresentMode
	}{
		{"vsync always fifo", all, true, vk.PresentModeFifo},
		{"mailbox preferred", all, false, vk.PresentModeMailbox},
		{"fifo fallback", []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifo}, false, vk.PresentModeFifo},
		{"nothing reported", nil, false, vk.PresentModeFifo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := choosePresentMode(tt.modes, tt.vsync); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestChooseSwapchainExtent(t *testing.T) {
	min := vk.Extent2D{Width: 1, Height: 1}
	max := vk.Extent2D{Width: 4096, Height: 2048}

	fixed := vk.Extent2D{Width: 800, Height: 600}
	if got := chooseSwapchainExtent(fixed, min, max, 1024, 768); got != fixed {
		t.Errorf("fixed surface extent should win: %+v", got)
	}

	free := vk.Extent2D{Width: m.MaxUint32, Height: m.MaxUint32}
	if got := chooseSwapchainExtent(free, min, max, 1024, 768); got != (vk.Extent2D{Width: 1024, Height: 768}) {
		t.Errorf("framebuffer size should be used: %+v", got)
	}
	if got := chooseSwapchainExtent(free, min, max, 8000, 0); got != (vk.Extent2D{Width: 4096, Height: 1}) {
		t.Errorf("framebuffer size should be clamped: %+v", got)
	}
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct{ min, max, want uint32 }{
		{2, 0, 3},
		{2, 8, 3},
		{3, 3, 3},
		{1, 2, 2},
	}
	for _, tt := range tests {
		if got := chooseImageCount(tt.min, tt.max); got != tt.want {
			t.Errorf("chooseImageCount(%d, %d) = %d, want %d", tt.min, tt.max, got, tt.want)
		}
	}
}

func TestPickQueueFamilies(t *testing.T) {
	graphics := vk.QueueFlags(vk.QueueGraphicsBit)
	compute := vk.QueueFlags(vk.QueueComputeBit)

	tests := []struct {
		name          string
		flags         []vk.QueueFlags
		present       []bool
		graphics, pre int32
		ok            bool
	}{
		{"shared family preferred", []vk.QueueFlags{graphics, compute, graphics}, []bool{false, true, true}, 2, 2, true},
		{"split families", []vk.QueueFlags{graphics, compute}, []bool{false, true}, 0, 1, true},
		{"no present", []vk.QueueFlags{graphics}, []bool{false}, 0, -1, false},
		{"no graphics", []vk.QueueFlags{compute}, []bool{true}, -1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, ok := pickQueueFamilies(tt.flags, tt.present)
			if ok != tt.ok || info.GraphicsFamilyIndex != tt.graphics || info.PresentFamilyIndex != tt.pre {
				t.Errorf("got %+v ok=%v", info, ok)
			}
		})
	}
}

func TestDeviceTypeScore(t *testing.T) {
	order := []vk.PhysicalDeviceType{
		vk.PhysicalDeviceTypeOther,
		vk.PhysicalDeviceTypeCpu,
		vk.PhysicalDeviceTypeVirtualGpu,
		vk.PhysicalDeviceTypeIntegratedGpu,
		vk.PhysicalDeviceTypeDiscreteGpu,
	}
	for i := 1; i < len(order); i++ {
		if deviceTypeScore(order[i]) <= deviceTypeScore(order[i-1]) {
			t.Errorf("%s should outrank %s", deviceTypeName(order[i]), deviceTypeName(order[i-1]))
		}
	}
}

func TestVertexAttributes(t *testing.T) {
	attrs, err := vertexAttributes(metadata.Vertex3DLayout())
	if err != nil {
		t.Fatal(err)
	}
	want := []vk.VertexInputAttributeDescription{
		{Binding: 0, Location: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Binding: 0, Location: 1, Format: vk.FormatR32g32b32a32Sfloat, Offset: 12},
	}
	if !reflect.DeepEqual(attrs, want) {
		t.Errorf("got %+v", attrs)
	}

	if _, err := vertexFormat(metadata.VertexFormat(99)); err == nil {
		t.Error("unknown vertex format should fail")
	}
}

func TestCullModeFlags(t *testing.T) {
	if cullModeFlags(metadata.FaceCullModeBack) != vk.CullModeFlags(vk.CullModeBackBit) {
		t.Error("back")
	}
	if cullModeFlags(metadata.FaceCullModeNone) != vk.CullModeFlags(vk.CullModeNone) {
		t.Error("none")
	}
	if cullModeFlags(metadata.FaceCullMode(42)) != vk.CullModeFlags(vk.CullModeBackBit) {
		t.Error("unknown modes cull back faces")
	}
}
