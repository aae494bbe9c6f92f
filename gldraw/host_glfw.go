//go:build !tinygo && cgo && !js

package gldraw

import (
	"fmt"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// StartHost opens a GLFW window with a current OpenGL 4.1 core context. The calling
// goroutine is locked to its OS thread and must be the one that draws and calls terminate.
// Failures wrap [ErrNoContext].
func StartHost(cfg HostConfig) (Context, Host, func(), error) {
	runtime.LockOSThread()
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 640, 480
	}
	if cfg.Title == "" {
		cfg.Title = "figures"
	}
	if err := glfw.Init(); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: initializing GLFW: %w", ErrNoContext, err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, nil, fmt.Errorf("%w: creating window: %w", ErrNoContext, err)
	}
	window.MakeContextCurrent()
	if cfg.VSync {
		glfw.SwapInterval(1)
	}
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, nil, fmt.Errorf("%w: initializing OpenGL: %w", ErrNoContext, err)
	}
	ctx, err := newGLContext()
	if err != nil {
		glfw.Terminate()
		return nil, nil, nil, err
	}
	host := &glfwHost{window: window, epoch: time.Now(), start: glfw.GetTime()}
	terminate := func() {
		ctx.release()
		window.Destroy()
		glfw.Terminate()
	}
	return ctx, host, terminate, nil
}

type glfwHost struct {
	window  *glfw.Window
	epoch   time.Time
	start   float64
	started bool
}

// WaitFrame presents the previous frame and processes window events.
func (h *glfwHost) WaitFrame() bool {
	if h.started {
		h.window.SwapBuffers()
	}
	h.started = true
	glfw.PollEvents()
	return !h.window.ShouldClose()
}

func (h *glfwHost) Now() time.Time {
	secs := glfw.GetTime() - h.start
	return h.epoch.Add(time.Duration(secs * float64(time.Second)))
}

func (h *glfwHost) Size() (width, height int) {
	return h.window.GetFramebufferSize()
}

func (h *glfwHost) Pointer() (x, y float32, pressed bool) {
	cx, cy := h.window.GetCursorPos()
	// Cursor coordinates are in screen units which differ from pixels on high DPI displays.
	ww, wh := h.window.GetSize()
	fw, fh := h.window.GetFramebufferSize()
	if ww > 0 && wh > 0 {
		cx *= float64(fw) / float64(ww)
		cy *= float64(fh) / float64(wh)
	}
	pressed = h.window.GetMouseButton(glfw.MouseButtonLeft) == glfw.Press
	return float32(cx), float32(cy), pressed
}
