//go:build !tinygo && cgo && !js

package gldraw

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/soypat/figures/glbuild"
	"github.com/soypat/glgl/v4.1-core/glgl"
)

// glContext implements Context on the OpenGL 4.1 core profile. A single vertex array
// object is bound for the lifetime of the context since core profiles draw nothing without one.
type glContext struct {
	vao   uint32
	progs map[ProgramID]glgl.Program
}

// newGLContext must be called with a current OpenGL context and after gl.Init.
func newGLContext() (*glContext, error) {
	c := &glContext{progs: make(map[ProgramID]glgl.Program)}
	gl.GenVertexArrays(1, &c.vao)
	if c.vao == 0 {
		return nil, glErrOrMessage("creating vertex array object")
	}
	gl.BindVertexArray(c.vao)
	return c, glgl.Err()
}

func (c *glContext) Dialect() glbuild.Dialect { return glbuild.GLSL410 }

func (c *glContext) CreateBuffer() (Buffer, error) {
	var b uint32
	gl.GenBuffers(1, &b)
	if b == 0 {
		return 0, glErrOrMessage("got zero buffer id")
	}
	return Buffer(b), nil
}

func (c *glContext) DeleteBuffer(b Buffer) {
	id := uint32(b)
	gl.DeleteBuffers(1, &id)
}

func (c *glContext) BindBuffer(target BufferTarget, b Buffer) {
	gl.BindBuffer(glTarget(target), uint32(b))
}

func (c *glContext) BufferFloat32(target BufferTarget, data []float32) {
	if len(data) == 0 {
		gl.BufferData(glTarget(target), 0, nil, gl.STATIC_DRAW)
		return
	}
	gl.BufferData(glTarget(target), 4*len(data), gl.Ptr(data), gl.STATIC_DRAW)
}

func (c *glContext) BufferUint16(target BufferTarget, data []uint16) {
	if len(data) == 0 {
		gl.BufferData(glTarget(target), 0, nil, gl.STATIC_DRAW)
		return
	}
	gl.BufferData(glTarget(target), 2*len(data), gl.Ptr(data), gl.STATIC_DRAW)
}

func (c *glContext) CompileProgram(vertex, fragment string) (ProgramID, error) {
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   vertex + "\x00",
		Fragment: fragment + "\x00",
	})
	if err != nil {
		return 0, &ShaderError{Stage: "link", Log: err.Error()}
	}
	id := ProgramID(prog.ID())
	c.progs[id] = prog
	return id, nil
}

func (c *glContext) DeleteProgram(p ProgramID) {
	if prog, ok := c.progs[p]; ok {
		prog.Delete()
		delete(c.progs, p)
	}
}

func (c *glContext) UseProgram(p ProgramID) {
	gl.UseProgram(uint32(p))
}

func (c *glContext) AttribLocation(p ProgramID, name string) (Attrib, error) {
	prog, ok := c.progs[p]
	if !ok {
		return -1, fmt.Errorf("unknown program %d", p)
	}
	loc, err := prog.AttribLocation(name + "\x00")
	if err != nil {
		return -1, fmt.Errorf("attribute %q: %w", name, err)
	}
	return Attrib(loc), nil
}

func (c *glContext) UniformLocation(p ProgramID, name string) (Uniform, error) {
	prog, ok := c.progs[p]
	if !ok {
		return -1, fmt.Errorf("unknown program %d", p)
	}
	loc, err := prog.UniformLocation(name + "\x00")
	if err != nil {
		return -1, fmt.Errorf("uniform %q: %w", name, err)
	}
	return Uniform(loc), nil
}

func (c *glContext) EnableVertexAttribArray(a Attrib) {
	gl.EnableVertexAttribArray(uint32(a))
}

func (c *glContext) VertexAttribPointer(a Attrib, size int) {
	gl.VertexAttribPointer(uint32(a), int32(size), gl.FLOAT, false, 0, gl.PtrOffset(0))
}

func (c *glContext) UniformMatrix4(u Uniform, m [16]float32) {
	gl.UniformMatrix4fv(int32(u), 1, false, &m[0])
}

func (c *glContext) DrawElements(count int) {
	gl.DrawElements(gl.TRIANGLES, int32(count), gl.UNSIGNED_SHORT, gl.PtrOffset(0))
}

func (c *glContext) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (c *glContext) ClearColor(r, g, b, a float32) { gl.ClearColor(r, g, b, a) }

func (c *glContext) Clear() { gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT) }

func (c *glContext) EnableDepthTest() { gl.Enable(gl.DEPTH_TEST) }

func (c *glContext) Err() error { return glgl.Err() }

func (c *glContext) release() {
	for id := range c.progs {
		c.DeleteProgram(id)
	}
	gl.DeleteVertexArrays(1, &c.vao)
}

func glTarget(t BufferTarget) uint32 {
	if t == ElementArrayBuffer {
		return gl.ELEMENT_ARRAY_BUFFER
	}
	return gl.ARRAY_BUFFER
}

func glErrOrMessage(defaultMsg string) (err error) {
	err = glgl.Err()
	if err == nil {
		err = fmt.Errorf("%s", defaultMsg)
	} else {
		err = fmt.Errorf("%s: %w", defaultMsg, err)
	}
	return err
}
