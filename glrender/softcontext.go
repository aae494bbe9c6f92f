package glrender

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/figures/glbuild"
	"github.com/soypat/figures/gldraw"
)

// SoftContext implements [gldraw.Context] with a CPU rasterizer writing to an RGBA image
// with a float32 depth buffer. It accepts GLSL ES 1.00 programs whose vertex stage computes
// gl_Position as a product of mat4 uniforms and vec4(position, 1.0) and which pass one
// vec4 color attribute through to the fragment stage. Programs are checked with
// [glbuild.ParseInterface] so malformed sources fail to compile as they would on a GPU.
type SoftContext struct {
	img       *image.RGBA
	depth     []float32
	viewport  image.Rectangle
	clear     [4]float32
	depthTest bool

	next     uint32
	buffers  map[gldraw.Buffer]*softBuffer
	bound    [2]gldraw.Buffer
	programs map[gldraw.ProgramID]*softProgram
	current  *softProgram
	attribs  map[gldraw.Attrib]*softAttrib
	err      error
	drawn    int
}

type softBuffer struct {
	f32 []float32
	u16 []uint16
}

type softAttrib struct {
	enabled bool
	buf     gldraw.Buffer
	size    int
}

type softProgram struct {
	inputs   []glbuild.Variable
	uniforms []glbuild.Variable
	values   []mgl32.Mat4
	// terms indexes uniforms in the order they multiply the position.
	terms    []int
	position gldraw.Attrib
	color    gldraw.Attrib
}

var _ gldraw.Context = (*SoftContext)(nil)

// NewSoftContext returns a context drawing to a width×height image.
func NewSoftContext(width, height int) (*SoftContext, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.New("non-positive image dimension")
	}
	c := &SoftContext{
		img:      image.NewRGBA(image.Rect(0, 0, width, height)),
		depth:    make([]float32, width*height),
		viewport: image.Rect(0, 0, width, height),
		buffers:  make(map[gldraw.Buffer]*softBuffer),
		programs: make(map[gldraw.ProgramID]*softProgram),
		attribs:  make(map[gldraw.Attrib]*softAttrib),
	}
	for i := range c.depth {
		c.depth[i] = 1
	}
	return c, nil
}

// Image returns the color buffer. It is overwritten by subsequent draws.
func (c *SoftContext) Image() *image.RGBA { return c.img }

// Drawn returns the number of triangles submitted since the last Clear.
func (c *SoftContext) Drawn() int { return c.drawn }

// OffscreenHost returns a host that yields frames times, advancing its clock by step
// each frame and reporting the context's image size.
func (c *SoftContext) OffscreenHost(frames int, step time.Duration) *OffscreenHost {
	return &OffscreenHost{Frames: frames, Step: step, Width: c.img.Rect.Dx(), Height: c.img.Rect.Dy(), now: time.Unix(0, 0)}
}

func (c *SoftContext) seterr(format string, args ...any) {
	if c.err == nil {
		c.err = fmt.Errorf(format, args...)
	}
}

func (c *SoftContext) Dialect() glbuild.Dialect { return glbuild.GLSLES100 }

func (c *SoftContext) CreateBuffer() (gldraw.Buffer, error) {
	c.next++
	b := gldraw.Buffer(c.next)
	c.buffers[b] = &softBuffer{}
	return b, nil
}

func (c *SoftContext) DeleteBuffer(b gldraw.Buffer) {
	delete(c.buffers, b)
	for i := range c.bound {
		if c.bound[i] == b {
			c.bound[i] = 0
		}
	}
}

func (c *SoftContext) BindBuffer(target gldraw.BufferTarget, b gldraw.Buffer) {
	if b != 0 && c.buffers[b] == nil {
		c.seterr("bind of unknown buffer %d", b)
		return
	}
	c.bound[target] = b
}

func (c *SoftContext) boundBuffer(target gldraw.BufferTarget) *softBuffer {
	buf := c.buffers[c.bound[target]]
	if buf == nil {
		c.seterr("no buffer bound to %s", target)
	}
	return buf
}

func (c *SoftContext) BufferFloat32(target gldraw.BufferTarget, data []float32) {
	if buf := c.boundBuffer(target); buf != nil {
		buf.f32 = append(buf.f32[:0], data...)
		buf.u16 = buf.u16[:0]
	}
}

func (c *SoftContext) BufferUint16(target gldraw.BufferTarget, data []uint16) {
	if buf := c.boundBuffer(target); buf != nil {
		buf.u16 = append(buf.u16[:0], data...)
		buf.f32 = buf.f32[:0]
	}
}

func (c *SoftContext) CompileProgram(vertex, fragment string) (gldraw.ProgramID, error) {
	viface, err := glbuild.ParseInterface(vertex)
	if err != nil {
		return 0, &gldraw.ShaderError{Stage: "vertex", Log: err.Error()}
	}
	fiface, err := glbuild.ParseInterface(fragment)
	if err != nil {
		return 0, &gldraw.ShaderError{Stage: "fragment", Log: err.Error()}
	}
	prog, err := link(viface, fiface)
	if err != nil {
		return 0, &gldraw.ShaderError{Stage: "link", Log: err.Error()}
	}
	c.next++
	id := gldraw.ProgramID(c.next)
	c.programs[id] = prog
	return id, nil
}

func link(viface, fiface glbuild.Interface) (*softProgram, error) {
	for _, in := range fiface.Inputs {
		out, ok := viface.Lookup(in.Name)
		if !ok || out.Type != in.Type || (out.Qualifier != "varying" && out.Qualifier != "out") {
			return nil, fmt.Errorf("fragment input %q not written by vertex stage", in.Name)
		}
	}
	prog := &softProgram{
		inputs:   viface.Inputs,
		uniforms: viface.Uniforms,
		values:   make([]mgl32.Mat4, len(viface.Uniforms)),
		position: -1,
		color:    -1,
	}
	terms := viface.PositionTerms
	n := len(terms)
	if n < 2 || terms[n-2] != "vec4" {
		return nil, errors.New("unsupported gl_Position expression")
	}
	for _, name := range terms[:n-2] {
		idx := indexOf(viface.Uniforms, name)
		if idx < 0 || viface.Uniforms[idx].Type != "mat4" {
			return nil, fmt.Errorf("gl_Position term %q is not a mat4 uniform", name)
		}
		prog.terms = append(prog.terms, idx)
	}
	prog.position = gldraw.Attrib(indexOf(viface.Inputs, terms[n-1]))
	if prog.position < 0 || viface.Inputs[prog.position].Type != "vec3" {
		return nil, fmt.Errorf("gl_Position source %q is not a vec3 attribute", terms[n-1])
	}
	for i, in := range viface.Inputs {
		if in.Type == "vec4" {
			prog.color = gldraw.Attrib(i)
			break
		}
	}
	if prog.color < 0 {
		return nil, errors.New("no vec4 color attribute")
	}
	return prog, nil
}

func indexOf(vars []glbuild.Variable, name string) int {
	for i, v := range vars {
		if v.Name == name {
			return i
		}
	}
	return -1
}

func (c *SoftContext) DeleteProgram(p gldraw.ProgramID) {
	if prog := c.programs[p]; prog != nil && prog == c.current {
		c.current = nil
	}
	delete(c.programs, p)
}

func (c *SoftContext) UseProgram(p gldraw.ProgramID) {
	prog := c.programs[p]
	if prog == nil && p != 0 {
		c.seterr("use of unknown program %d", p)
		return
	}
	c.current = prog
}

func (c *SoftContext) AttribLocation(p gldraw.ProgramID, name string) (gldraw.Attrib, error) {
	prog := c.programs[p]
	if prog == nil {
		return -1, fmt.Errorf("unknown program %d", p)
	}
	idx := indexOf(prog.inputs, name)
	if idx < 0 {
		return -1, fmt.Errorf("attribute %q not found", name)
	}
	return gldraw.Attrib(idx), nil
}

func (c *SoftContext) UniformLocation(p gldraw.ProgramID, name string) (gldraw.Uniform, error) {
	prog := c.programs[p]
	if prog == nil {
		return -1, fmt.Errorf("unknown program %d", p)
	}
	idx := indexOf(prog.uniforms, name)
	if idx < 0 {
		return -1, fmt.Errorf("uniform %q not found", name)
	}
	return gldraw.Uniform(idx), nil
}

func (c *SoftContext) attrib(a gldraw.Attrib) *softAttrib {
	at := c.attribs[a]
	if at == nil {
		at = &softAttrib{}
		c.attribs[a] = at
	}
	return at
}

func (c *SoftContext) EnableVertexAttribArray(a gldraw.Attrib) {
	if a < 0 {
		c.seterr("invalid attribute location %d", a)
		return
	}
	c.attrib(a).enabled = true
}

func (c *SoftContext) VertexAttribPointer(a gldraw.Attrib, size int) {
	if c.bound[gldraw.ArrayBuffer] == 0 {
		c.seterr("VertexAttribPointer with no ARRAY_BUFFER bound")
		return
	} else if size < 1 || size > 4 {
		c.seterr("invalid attribute size %d", size)
		return
	}
	at := c.attrib(a)
	at.buf = c.bound[gldraw.ArrayBuffer]
	at.size = size
}

func (c *SoftContext) UniformMatrix4(u gldraw.Uniform, m [16]float32) {
	if c.current == nil {
		c.seterr("UniformMatrix4 with no program in use")
		return
	} else if u < 0 || int(u) >= len(c.current.values) {
		c.seterr("invalid uniform location %d", u)
		return
	}
	c.current.values[u] = m
}

func (c *SoftContext) Viewport(x, y, width, height int) {
	c.viewport = image.Rect(x, y, x+width, y+height)
}

func (c *SoftContext) ClearColor(r, g, b, a float32) { c.clear = [4]float32{r, g, b, a} }

// Clear fills the whole color buffer with the clear color and resets depth to 1.
func (c *SoftContext) Clear() {
	fill := toRGBA(c.clear)
	pix := c.img.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = fill.R, fill.G, fill.B, fill.A
	}
	for i := range c.depth {
		c.depth[i] = 1
	}
	c.drawn = 0
}

func (c *SoftContext) EnableDepthTest() { c.depthTest = true }

func (c *SoftContext) Err() error {
	err := c.err
	c.err = nil
	return err
}

func (c *SoftContext) attribData(a gldraw.Attrib, size int) []float32 {
	at := c.attribs[a]
	if at == nil || !at.enabled {
		c.seterr("attribute %d not enabled", a)
		return nil
	} else if at.size != size {
		c.seterr("attribute %d has size %d, want %d", a, at.size, size)
		return nil
	}
	buf := c.buffers[at.buf]
	if buf == nil {
		c.seterr("attribute %d sources deleted buffer", a)
		return nil
	}
	return buf.f32
}

// DrawElements transforms and rasterizes count/3 indexed triangles.
func (c *SoftContext) DrawElements(count int) {
	prog := c.current
	if prog == nil {
		c.seterr("DrawElements with no program in use")
		return
	}
	idxbuf := c.boundBuffer(gldraw.ElementArrayBuffer)
	pos := c.attribData(prog.position, 3)
	col := c.attribData(prog.color, 4)
	if idxbuf == nil || pos == nil || col == nil {
		return
	} else if count > len(idxbuf.u16) || count%3 != 0 {
		c.seterr("DrawElements count %d invalid for %d indices", count, len(idxbuf.u16))
		return
	}
	mvp := mgl32.Ident4()
	for _, t := range prog.terms {
		mvp = mvp.Mul4(prog.values[t])
	}
	nv := min(len(pos)/3, len(col)/4)
	var tri [3]rasterVertex
	for i := 0; i < count; i += 3 {
		visible := true
		for k := range tri {
			vi := int(idxbuf.u16[i+k])
			if vi >= nv {
				c.seterr("index %d out of range of %d vertices", vi, nv)
				return
			}
			clip := mvp.Mul4x1(mgl32.Vec4{pos[3*vi], pos[3*vi+1], pos[3*vi+2], 1})
			if clip.W() <= 0 {
				visible = false
				break
			}
			tri[k] = c.toWindow(clip, col[4*vi:4*vi+4])
		}
		c.drawn++
		if visible {
			c.rasterize(&tri)
		}
	}
}

type rasterVertex struct {
	x, y, z float32
	color   [4]float32
}

// toWindow applies the perspective divide and viewport transform. Window Y grows downward.
func (c *SoftContext) toWindow(clip mgl32.Vec4, rgba []float32) rasterVertex {
	invW := 1 / clip.W()
	vp := c.viewport
	height := float32(c.img.Rect.Dy())
	x := float32(vp.Min.X) + (clip.X()*invW+1)/2*float32(vp.Dx())
	y := float32(vp.Min.Y) + (clip.Y()*invW+1)/2*float32(vp.Dy())
	return rasterVertex{
		x:     x,
		y:     height - y,
		z:     (clip.Z()*invW + 1) / 2,
		color: [4]float32{rgba[0], rgba[1], rgba[2], rgba[3]},
	}
}

func edge(a, b rasterVertex, px, py float32) float32 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

func (c *SoftContext) rasterize(t *[3]rasterVertex) {
	area := edge(t[0], t[1], t[2].x, t[2].y)
	if area == 0 || math32.IsNaN(area) {
		return
	}
	bounds := c.img.Rect
	height := bounds.Dy()
	// Viewport in window coordinates.
	vp := image.Rect(c.viewport.Min.X, height-c.viewport.Max.Y, c.viewport.Max.X, height-c.viewport.Min.Y)
	clip := bounds.Intersect(vp)
	minx := max(clip.Min.X, int(math32.Floor(min(t[0].x, t[1].x, t[2].x))))
	maxx := min(clip.Max.X-1, int(math32.Ceil(max(t[0].x, t[1].x, t[2].x))))
	miny := max(clip.Min.Y, int(math32.Floor(min(t[0].y, t[1].y, t[2].y))))
	maxy := min(clip.Max.Y-1, int(math32.Ceil(max(t[0].y, t[1].y, t[2].y))))
	inv := 1 / area
	width := bounds.Dx()
	for py := miny; py <= maxy; py++ {
		fy := float32(py) + 0.5
		for px := minx; px <= maxx; px++ {
			fx := float32(px) + 0.5
			w0 := edge(t[1], t[2], fx, fy) * inv
			w1 := edge(t[2], t[0], fx, fy) * inv
			w2 := edge(t[0], t[1], fx, fy) * inv
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*t[0].z + w1*t[1].z + w2*t[2].z
			if z < 0 || z > 1 {
				continue
			}
			di := (py-bounds.Min.Y)*width + (px - bounds.Min.X)
			if c.depthTest {
				if z >= c.depth[di] {
					continue
				}
				c.depth[di] = z
			}
			var rgba [4]float32
			for k := range rgba {
				rgba[k] = w0*t[0].color[k] + w1*t[1].color[k] + w2*t[2].color[k]
			}
			c.img.SetRGBA(px, py, toRGBA(rgba))
		}
	}
}

func toRGBA(c [4]float32) color.RGBA {
	conv := func(v float32) uint8 {
		return uint8(math32.Round(255 * max(0, min(1, v))))
	}
	return color.RGBA{R: conv(c[0]), G: conv(c[1]), B: conv(c[2]), A: conv(c[3])}
}

// OffscreenHost is a [gldraw.Host] with a deterministic clock that yields a fixed number of frames.
type OffscreenHost struct {
	Frames        int
	Step          time.Duration
	Width, Height int
	now           time.Time
}

func (h *OffscreenHost) WaitFrame() bool {
	if h.Frames <= 0 {
		return false
	}
	h.Frames--
	h.now = h.now.Add(h.Step)
	return true
}

func (h *OffscreenHost) Now() time.Time { return h.now }

func (h *OffscreenHost) Size() (width, height int) { return h.Width, h.Height }
