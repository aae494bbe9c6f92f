//go:build js && wasm

package gldraw

import (
	"fmt"
	"syscall/js"
	"unsafe"

	"github.com/soypat/figures/glbuild"
)

// webglContext implements Context on a WebGL 1 rendering context. WebGL returns
// JavaScript objects for buffers, programs and uniform locations which are kept
// in tables indexed by the integer handles handed out to callers.
type webglContext struct {
	gl       js.Value
	next     uint32
	buffers  map[Buffer]js.Value
	programs map[ProgramID]js.Value
	uniforms map[Uniform]js.Value
	enums    webglEnums
}

type webglEnums struct {
	arrayBuffer, elementArrayBuffer, staticDraw int
	vertexShader, fragmentShader                int
	compileStatus, linkStatus                   int
	float, unsignedShort, triangles             int
	colorBufferBit, depthBufferBit, depthTest   int
}

func newWebGLContext(gl js.Value) *webglContext {
	e := func(name string) int { return gl.Get(name).Int() }
	return &webglContext{
		gl:       gl,
		buffers:  make(map[Buffer]js.Value),
		programs: make(map[ProgramID]js.Value),
		uniforms: make(map[Uniform]js.Value),
		enums: webglEnums{
			arrayBuffer:        e("ARRAY_BUFFER"),
			elementArrayBuffer: e("ELEMENT_ARRAY_BUFFER"),
			staticDraw:         e("STATIC_DRAW"),
			vertexShader:       e("VERTEX_SHADER"),
			fragmentShader:     e("FRAGMENT_SHADER"),
			compileStatus:      e("COMPILE_STATUS"),
			linkStatus:         e("LINK_STATUS"),
			float:              e("FLOAT"),
			unsignedShort:      e("UNSIGNED_SHORT"),
			triangles:          e("TRIANGLES"),
			colorBufferBit:     e("COLOR_BUFFER_BIT"),
			depthBufferBit:     e("DEPTH_BUFFER_BIT"),
			depthTest:          e("DEPTH_TEST"),
		},
	}
}

func (c *webglContext) handle() uint32 {
	c.next++
	return c.next
}

func (c *webglContext) Dialect() glbuild.Dialect { return glbuild.GLSLES100 }

func (c *webglContext) CreateBuffer() (Buffer, error) {
	v := c.gl.Call("createBuffer")
	if v.IsNull() {
		return 0, fmt.Errorf("createBuffer returned null: %w", c.Err())
	}
	b := Buffer(c.handle())
	c.buffers[b] = v
	return b, nil
}

func (c *webglContext) DeleteBuffer(b Buffer) {
	if v, ok := c.buffers[b]; ok {
		c.gl.Call("deleteBuffer", v)
		delete(c.buffers, b)
	}
}

func (c *webglContext) target(t BufferTarget) int {
	if t == ElementArrayBuffer {
		return c.enums.elementArrayBuffer
	}
	return c.enums.arrayBuffer
}

func (c *webglContext) BindBuffer(target BufferTarget, b Buffer) {
	v, ok := c.buffers[b]
	if !ok {
		v = js.Null()
	}
	c.gl.Call("bindBuffer", c.target(target), v)
}

func (c *webglContext) BufferFloat32(target BufferTarget, data []float32) {
	arr := js.Global().Get("Float32Array").New(typedBytes(data).Get("buffer"))
	c.gl.Call("bufferData", c.target(target), arr, c.enums.staticDraw)
}

func (c *webglContext) BufferUint16(target BufferTarget, data []uint16) {
	arr := js.Global().Get("Uint16Array").New(typedBytes(data).Get("buffer"))
	c.gl.Call("bufferData", c.target(target), arr, c.enums.staticDraw)
}

// typedBytes copies the memory of data into a new Uint8Array.
func typedBytes[T float32 | uint16](data []T) js.Value {
	var sz int
	if len(data) > 0 {
		sz = len(data) * int(unsafe.Sizeof(data[0]))
	}
	u8 := js.Global().Get("Uint8Array").New(sz)
	if sz > 0 {
		js.CopyBytesToJS(u8, unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), sz))
	}
	return u8
}

func (c *webglContext) compileShader(kind int, stage, src string) (js.Value, error) {
	sh := c.gl.Call("createShader", kind)
	c.gl.Call("shaderSource", sh, src)
	c.gl.Call("compileShader", sh)
	if !c.gl.Call("getShaderParameter", sh, c.enums.compileStatus).Bool() {
		log := c.gl.Call("getShaderInfoLog", sh).String()
		c.gl.Call("deleteShader", sh)
		return js.Null(), &ShaderError{Stage: stage, Log: log}
	}
	return sh, nil
}

func (c *webglContext) CompileProgram(vertex, fragment string) (ProgramID, error) {
	vs, err := c.compileShader(c.enums.vertexShader, "vertex", vertex)
	if err != nil {
		return 0, err
	}
	defer c.gl.Call("deleteShader", vs)
	fs, err := c.compileShader(c.enums.fragmentShader, "fragment", fragment)
	if err != nil {
		return 0, err
	}
	defer c.gl.Call("deleteShader", fs)
	prog := c.gl.Call("createProgram")
	c.gl.Call("attachShader", prog, vs)
	c.gl.Call("attachShader", prog, fs)
	c.gl.Call("linkProgram", prog)
	if !c.gl.Call("getProgramParameter", prog, c.enums.linkStatus).Bool() {
		log := c.gl.Call("getProgramInfoLog", prog).String()
		c.gl.Call("deleteProgram", prog)
		return 0, &ShaderError{Stage: "link", Log: log}
	}
	id := ProgramID(c.handle())
	c.programs[id] = prog
	return id, nil
}

func (c *webglContext) DeleteProgram(p ProgramID) {
	if v, ok := c.programs[p]; ok {
		c.gl.Call("deleteProgram", v)
		delete(c.programs, p)
	}
}

func (c *webglContext) UseProgram(p ProgramID) {
	v, ok := c.programs[p]
	if !ok {
		v = js.Null()
	}
	c.gl.Call("useProgram", v)
}

func (c *webglContext) AttribLocation(p ProgramID, name string) (Attrib, error) {
	prog, ok := c.programs[p]
	if !ok {
		return -1, fmt.Errorf("unknown program %d", p)
	}
	loc := c.gl.Call("getAttribLocation", prog, name).Int()
	if loc < 0 {
		return -1, fmt.Errorf("attribute %q not found", name)
	}
	return Attrib(loc), nil
}

func (c *webglContext) UniformLocation(p ProgramID, name string) (Uniform, error) {
	prog, ok := c.programs[p]
	if !ok {
		return -1, fmt.Errorf("unknown program %d", p)
	}
	loc := c.gl.Call("getUniformLocation", prog, name)
	if loc.IsNull() {
		return -1, fmt.Errorf("uniform %q not found", name)
	}
	u := Uniform(c.handle())
	c.uniforms[u] = loc
	return u, nil
}

func (c *webglContext) EnableVertexAttribArray(a Attrib) {
	c.gl.Call("enableVertexAttribArray", int(a))
}

func (c *webglContext) VertexAttribPointer(a Attrib, size int) {
	c.gl.Call("vertexAttribPointer", int(a), size, c.enums.float, false, 0, 0)
}

func (c *webglContext) UniformMatrix4(u Uniform, m [16]float32) {
	loc, ok := c.uniforms[u]
	if !ok {
		return
	}
	arr := js.Global().Get("Float32Array").New(16)
	for i, v := range m {
		arr.SetIndex(i, v)
	}
	c.gl.Call("uniformMatrix4fv", loc, false, arr)
}

func (c *webglContext) DrawElements(count int) {
	c.gl.Call("drawElements", c.enums.triangles, count, c.enums.unsignedShort, 0)
}

func (c *webglContext) Viewport(x, y, width, height int) {
	c.gl.Call("viewport", x, y, width, height)
}

func (c *webglContext) ClearColor(r, g, b, a float32) {
	c.gl.Call("clearColor", r, g, b, a)
}

func (c *webglContext) Clear() {
	c.gl.Call("clear", c.enums.colorBufferBit|c.enums.depthBufferBit)
}

func (c *webglContext) EnableDepthTest() {
	c.gl.Call("enable", c.enums.depthTest)
}

func (c *webglContext) Err() error {
	if code := c.gl.Call("getError").Int(); code != 0 {
		return fmt.Errorf("webgl error 0x%04x", code)
	}
	return nil
}

// StartHost acquires a WebGL context from the canvas element with id cfg.Canvas
// ("webglcanvas" if empty). Failures wrap [ErrNoContext].
func StartHost(cfg HostConfig) (Context, Host, func(), error) {
	id := cfg.Canvas
	if id == "" {
		id = "webglcanvas"
	}
	doc := js.Global().Get("document")
	if doc.IsUndefined() {
		return nil, nil, nil, fmt.Errorf("%w: no document", ErrNoContext)
	}
	canvas := doc.Call("getElementById", id)
	if canvas.IsNull() {
		return nil, nil, nil, fmt.Errorf("%w: canvas %q not found", ErrNoContext, id)
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		canvas.Set("width", cfg.Width)
		canvas.Set("height", cfg.Height)
	}
	gl := canvas.Call("getContext", "webgl")
	if gl.IsNull() {
		gl = canvas.Call("getContext", "experimental-webgl")
	}
	if gl.IsNull() {
		return nil, nil, nil, fmt.Errorf("%w: browser does not support WebGL", ErrNoContext)
	}
	host := newRAFHost(canvas)
	return newWebGLContext(gl), host, host.release, nil
}
