// Package gldraw draws [figures.Renderable] values through a minimal graphics context
// abstraction. Desktop builds with cgo use OpenGL 4.1 core through GLFW, js/wasm builds
// use WebGL and a headless CPU implementation lives in the glrender package.
package gldraw

import (
	"errors"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/figures/glbuild"
	"github.com/soypat/geometry/ms3"
)

// ErrNoContext is returned when no graphics context can be created on the running platform.
var ErrNoContext = errors.New("graphics context unavailable")

type (
	// Buffer is a handle to a GPU buffer object. Zero is never a valid buffer.
	Buffer uint32
	// ProgramID is a handle to a linked shader program. Zero is never a valid program.
	ProgramID uint32
	// Attrib is a vertex attribute location.
	Attrib int32
	// Uniform is a uniform location.
	Uniform int32
)

// BufferTarget is the binding point of a buffer.
type BufferTarget uint8

const (
	ArrayBuffer BufferTarget = iota
	ElementArrayBuffer
)

func (t BufferTarget) String() string {
	switch t {
	case ArrayBuffer:
		return "ARRAY_BUFFER"
	case ElementArrayBuffer:
		return "ELEMENT_ARRAY_BUFFER"
	}
	return "BufferTarget(?)"
}

// Context is the subset of an OpenGL ES 2.0 style API needed to draw indexed,
// per-vertex colored triangles. Methods that cannot fail immediately record errors
// which are reported by Err, following glGetError semantics.
type Context interface {
	// Dialect is the shading language accepted by CompileProgram.
	Dialect() glbuild.Dialect

	CreateBuffer() (Buffer, error)
	DeleteBuffer(Buffer)
	BindBuffer(target BufferTarget, b Buffer)
	// BufferFloat32 uploads data to the buffer bound to target.
	BufferFloat32(target BufferTarget, data []float32)
	// BufferUint16 uploads data to the buffer bound to target.
	BufferUint16(target BufferTarget, data []uint16)

	// CompileProgram compiles and links a vertex and fragment stage. Failures are *ShaderError.
	CompileProgram(vertex, fragment string) (ProgramID, error)
	DeleteProgram(ProgramID)
	UseProgram(ProgramID)
	AttribLocation(p ProgramID, name string) (Attrib, error)
	UniformLocation(p ProgramID, name string) (Uniform, error)

	EnableVertexAttribArray(Attrib)
	// VertexAttribPointer sources attribute a from the currently bound ARRAY_BUFFER as
	// tightly packed float32 tuples of the given size.
	VertexAttribPointer(a Attrib, size int)
	// UniformMatrix4 uploads a column-major 4x4 matrix.
	UniformMatrix4(u Uniform, m [16]float32)
	// DrawElements draws count uint16 indices from the bound ELEMENT_ARRAY_BUFFER as triangles.
	DrawElements(count int)

	Viewport(x, y, width, height int)
	ClearColor(r, g, b, a float32)
	// Clear clears color and depth buffers.
	Clear()
	EnableDepthTest()

	// Err returns and clears the first error recorded since the last call.
	Err() error
}

// Host schedules frames for a [Driver].
type Host interface {
	// WaitFrame blocks until the next frame should be drawn. It returns false once the
	// host is torn down (window closed, page unloaded).
	WaitFrame() bool
	// Now returns the timestamp of the current frame.
	Now() time.Time
	// Size returns the drawable size in pixels.
	Size() (width, height int)
}

// PointerHost is implemented by hosts that track a pointing device.
type PointerHost interface {
	Host
	// Pointer returns the pointer position in pixels from the top-left corner of
	// the drawable and whether the primary button is pressed.
	Pointer() (x, y float32, pressed bool)
}

// HostConfig configures the window or canvas created by [StartHost].
type HostConfig struct {
	Title         string
	Width, Height int
	// Canvas is the id of the canvas element used by js/wasm builds.
	Canvas string
	// VSync enables buffer swap synchronization on desktop builds.
	VSync bool
}

// ShaderError is returned when a shader stage fails to compile or a program fails to link.
type ShaderError struct {
	Stage string // "vertex", "fragment" or "link".
	Log   string
}

func (e *ShaderError) Error() string {
	return e.Stage + " shader: " + e.Log
}

// Perspective returns a perspective projection with a vertical field of view of fovy radians,
// composed with a translation that places the viewer at eye looking down -Z.
func Perspective(fovy, aspect, near, far float32, eye ms3.Vec) mgl32.Mat4 {
	return mgl32.Perspective(fovy, aspect, near, far).Mul4(mgl32.Translate3D(-eye.X, -eye.Y, -eye.Z))
}

// DefaultProjection is a 45° perspective with near=1, far=100, viewed from (0,0,5).
func DefaultProjection(width, height int) mgl32.Mat4 {
	aspect := float32(1)
	if width > 0 && height > 0 {
		aspect = float32(width) / float32(height)
	}
	return Perspective(math.Pi/4, aspect, 1, 100, ms3.Vec{Z: 5})
}
