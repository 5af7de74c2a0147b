package platform

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/spincube/engine/config"
	"github.com/spaghettifunk/spincube/engine/core"
	"github.com/spaghettifunk/spincube/engine/renderer/metadata"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	Window *glfw.Window

	minimized bool
}

func New() *Platform {
	return &Platform{}
}

// Startup opens a resizable window without a client API so that Vulkan
// can own its surface.
func (p *Platform) Startup(app config.Application) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return core.ErrDeviceUnavailable
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(app.Width), int(app.Height), app.Name, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		glfw.Terminate()
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetIconifyCallback(p.iconifyCallback)
	p.Window.SetPos(int(app.PosX), int(app.PosY))
	p.Window.Show()

	core.LogDebug("window %q opened at %dx%d", app.Name, app.Width, app.Height)
	return nil
}

// Surface exposes the window to the renderer.
func (p *Platform) Surface() metadata.Surface {
	return p.Window
}

// PumpMessages processes pending window events and reports whether the
// window should stay open.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

// WaitWhileMinimized blocks on window events while the window has no
// drawable area. It returns early once the window closes or stop reports true.
func (p *Platform) WaitWhileMinimized(stop func() bool) {
	for p.minimized && !p.Window.ShouldClose() && !stop() {
		glfw.WaitEvents()
	}
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		w.SetShouldClose(true)
	}
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.minimized = width == 0 || height == 0
	core.LogDebug("framebuffer resized to %dx%d", width, height)
}

func (p *Platform) iconifyCallback(w *glfw.Window, iconified bool) {
	p.minimized = iconified
}
