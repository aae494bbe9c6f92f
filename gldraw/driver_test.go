package gldraw_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/figures"
	"github.com/soypat/figures/glbuild"
	"github.com/soypat/figures/gldraw"
	"github.com/soypat/geometry/ms3"
)

// recorder is a gldraw.Context that logs calls and validates programs with glbuild.ParseInterface.
type recorder struct {
	calls    []string
	next     uint32
	buffers  map[gldraw.Buffer]int
	programs map[gldraw.ProgramID]glbuild.Interface
	err      error
	// failOn makes calls starting with it record an error.
	failOn string
}

func newRecorder() *recorder {
	return &recorder{
		buffers:  make(map[gldraw.Buffer]int),
		programs: make(map[gldraw.ProgramID]glbuild.Interface),
	}
}

func (r *recorder) log(format string, args ...any) {
	call := fmt.Sprintf(format, args...)
	r.calls = append(r.calls, call)
	if r.failOn != "" && strings.HasPrefix(call, r.failOn) && r.err == nil {
		r.err = errors.New(call + " failed")
	}
}

func (r *recorder) count(prefix string) (n int) {
	for _, c := range r.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (r *recorder) Dialect() glbuild.Dialect { return glbuild.GLSLES100 }

func (r *recorder) CreateBuffer() (gldraw.Buffer, error) {
	r.next++
	b := gldraw.Buffer(r.next)
	r.buffers[b] = 0
	r.log("CreateBuffer %d", b)
	return b, nil
}

func (r *recorder) DeleteBuffer(b gldraw.Buffer) {
	if _, ok := r.buffers[b]; !ok && r.err == nil {
		r.err = fmt.Errorf("delete of unknown buffer %d", b)
	}
	delete(r.buffers, b)
	r.log("DeleteBuffer %d", b)
}

func (r *recorder) BindBuffer(t gldraw.BufferTarget, b gldraw.Buffer) { r.log("BindBuffer %s %d", t, b) }
func (r *recorder) BufferFloat32(t gldraw.BufferTarget, data []float32) {
	r.log("BufferFloat32 %d", len(data))
}
func (r *recorder) BufferUint16(t gldraw.BufferTarget, data []uint16) {
	r.log("BufferUint16 %d", len(data))
}

func (r *recorder) CompileProgram(vertex, fragment string) (gldraw.ProgramID, error) {
	viface, err := glbuild.ParseInterface(vertex)
	if err != nil {
		return 0, &gldraw.ShaderError{Stage: "vertex", Log: err.Error()}
	}
	if _, err = glbuild.ParseInterface(fragment); err != nil {
		return 0, &gldraw.ShaderError{Stage: "fragment", Log: err.Error()}
	}
	r.next++
	id := gldraw.ProgramID(r.next)
	r.programs[id] = viface
	r.log("CompileProgram %d", id)
	return id, nil
}

func (r *recorder) DeleteProgram(p gldraw.ProgramID) {
	delete(r.programs, p)
	r.log("DeleteProgram %d", p)
}

func (r *recorder) UseProgram(p gldraw.ProgramID) { r.log("UseProgram %d", p) }

func (r *recorder) location(p gldraw.ProgramID, vars []glbuild.Variable, name string) (int32, error) {
	for i, v := range vars {
		if v.Name == name {
			return int32(i), nil
		}
	}
	return -1, fmt.Errorf("%q not found in program %d", name, p)
}

func (r *recorder) AttribLocation(p gldraw.ProgramID, name string) (gldraw.Attrib, error) {
	loc, err := r.location(p, r.programs[p].Inputs, name)
	return gldraw.Attrib(loc), err
}

func (r *recorder) UniformLocation(p gldraw.ProgramID, name string) (gldraw.Uniform, error) {
	loc, err := r.location(p, r.programs[p].Uniforms, name)
	return gldraw.Uniform(loc), err
}

func (r *recorder) EnableVertexAttribArray(a gldraw.Attrib) { r.log("EnableVertexAttribArray %d", a) }
func (r *recorder) VertexAttribPointer(a gldraw.Attrib, size int) {
	r.log("VertexAttribPointer %d %d", a, size)
}
func (r *recorder) UniformMatrix4(u gldraw.Uniform, m [16]float32) {
	r.log("UniformMatrix4 %d %v", u, m[13])
}
func (r *recorder) DrawElements(count int) { r.log("DrawElements %d", count) }
func (r *recorder) Viewport(x, y, w, h int) { r.log("Viewport %d %d", w, h) }
func (r *recorder) ClearColor(red, g, b, a float32) { r.log("ClearColor") }
func (r *recorder) Clear() { r.log("Clear") }
func (r *recorder) EnableDepthTest() { r.log("EnableDepthTest") }
func (r *recorder) Err() error { err := r.err; r.err = nil; return err }

// spy wraps a renderable and logs Update calls into the recorder's call list.
type spy struct {
	figures.Renderable
	rec  *recorder
	name string
	geom *figures.Geometry
}

func (s *spy) Update(dt time.Duration) {
	s.rec.log("Update %s", s.name)
	s.Renderable.Update(dt)
}

func (s *spy) Geometry() *figures.Geometry {
	if s.geom != nil {
		return s.geom
	}
	return s.Renderable.Geometry()
}

func newDriver(t *testing.T, rec *recorder) *gldraw.Driver {
	t.Helper()
	prog, err := gldraw.NewColorProgram(rec)
	if err != nil {
		t.Fatal(err)
	}
	d, err := gldraw.NewDriver(rec, prog, gldraw.DriverConfig{Background: figures.Color{0.1, 0.1, 0.1, 1}})
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func mustObjects(t *testing.T) []figures.Renderable {
	t.Helper()
	bld := figures.Builder{NoDimensionPanic: true}
	objs := []figures.Renderable{
		bld.NewPyramid(ms3.Vec{X: -1}, ms3.Vec{Y: 1}),
		bld.NewOctahedron(ms3.Vec{X: 1}, ms3.Vec{Y: 1}),
		bld.NewDodecahedron(ms3.Vec{Y: 1}, ms3.Vec{X: 1}, ms3.Vec{Y: 1}),
	}
	if err := bld.Err(); err != nil {
		t.Fatal(err)
	}
	return objs
}

func TestProgramLocations(t *testing.T) {
	rec := newRecorder()
	prog, err := gldraw.NewColorProgram(rec)
	if err != nil {
		t.Fatal(err)
	}
	if prog.ID() == 0 {
		t.Fatal("zero program id")
	}
	if prog.Position < 0 || prog.Color < 0 || prog.Projection < 0 || prog.ModelView < 0 {
		t.Errorf("unresolved locations: %+v", prog)
	}
	if prog.Position == prog.Color {
		t.Error("position and color share a location")
	}
}

func TestProgramMalformed(t *testing.T) {
	rec := newRecorder()
	_, fragment, err := glbuild.NewProgrammer(glbuild.GLSLES100).Sources()
	if err != nil {
		t.Fatal(err)
	}
	prog, err := gldraw.NewProgram(rec, "void main(void) { gl_Position = ", fragment)
	if err == nil || prog != nil {
		t.Fatal("expected compile failure and nil program")
	}
	var serr *gldraw.ShaderError
	if !errors.As(err, &serr) || serr.Stage != "vertex" {
		t.Errorf("expected vertex ShaderError, got %v", err)
	}
	// Valid source missing the color attribute links but fails location lookup.
	vertex := "attribute vec3 vertexPos;\nuniform mat4 projectionMatrix;\nuniform mat4 modelViewMatrix;\nvoid main(void) {\n\tgl_Position = projectionMatrix * modelViewMatrix * vec4(vertexPos, 1.0);\n}\n"
	prog, err = gldraw.NewProgram(rec, vertex, fragment)
	if err == nil || prog != nil {
		t.Fatal("expected missing attribute error")
	}
	if rec.count("DeleteProgram") != 1 {
		t.Error("program with missing locations not deleted")
	}
}

func TestDrawBeforeUpdate(t *testing.T) {
	rec := newRecorder()
	d := newDriver(t, rec)
	names := []string{"pyramid", "octahedron", "dodecahedron"}
	for i, obj := range mustObjects(t) {
		if err := d.Add(&spy{Renderable: obj, rec: rec, name: names[i]}); err != nil {
			t.Fatal(err)
		}
	}
	if rec.count("CreateBuffer") != 9 {
		t.Fatalf("want 3 buffers per item, got %d", rec.count("CreateBuffer"))
	}
	rec.calls = rec.calls[:0]
	if err := d.Tick(16 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	lastDraw, firstUpdate := -1, len(rec.calls)
	var draws []string
	for i, c := range rec.calls {
		switch {
		case strings.HasPrefix(c, "DrawElements"):
			lastDraw = i
			draws = append(draws, c)
		case strings.HasPrefix(c, "Update") && i < firstUpdate:
			firstUpdate = i
		}
	}
	if lastDraw > firstUpdate {
		t.Error("an item was updated before all items were drawn")
	}
	want := []string{"DrawElements 24", "DrawElements 24", "DrawElements 108"}
	if strings.Join(draws, ",") != strings.Join(want, ",") {
		t.Errorf("draw calls %v, want %v", draws, want)
	}
	if rec.calls[0] != "ClearColor" || rec.calls[1] != "EnableDepthTest" || rec.calls[2] != "Clear" {
		t.Errorf("frame does not start by clearing: %v", rec.calls[:3])
	}
	if got := rec.count("UniformMatrix4"); got != 6 {
		t.Errorf("want projection and model-view per item, got %d uploads", got)
	}
}

func TestEnqueueNextTick(t *testing.T) {
	rec := newRecorder()
	d := newDriver(t, rec)
	objs := mustObjects(t)
	done := make(chan struct{})
	go func() {
		d.Enqueue(objs[0])
		close(done)
	}()
	<-done
	if d.Len() != 0 {
		t.Fatal("enqueued item added before tick")
	}
	if err := d.Tick(0); err != nil {
		t.Fatal(err)
	}
	if d.Len() != 1 {
		t.Fatalf("want 1 item after tick, got %d", d.Len())
	}
	if rec.count("DrawElements") != 1 {
		t.Error("enqueued item not drawn on first tick")
	}
}

func TestReuploadOnGeometryChange(t *testing.T) {
	rec := newRecorder()
	d := newDriver(t, rec)
	objs := mustObjects(t)
	s := &spy{Renderable: objs[0], rec: rec, name: "pyramid"}
	if err := d.Add(s); err != nil {
		t.Fatal(err)
	}
	if err := d.Tick(0); err != nil {
		t.Fatal(err)
	}
	uploads := rec.count("BufferUint16")
	s.geom = objs[2].Geometry()
	if err := d.Tick(0); err != nil {
		t.Fatal(err)
	}
	if rec.count("BufferUint16") != uploads+1 {
		t.Error("geometry change did not trigger upload")
	}
	if rec.calls[len(rec.calls)-2] != "DrawElements 108" {
		t.Errorf("new geometry not drawn, last calls %v", rec.calls[len(rec.calls)-4:])
	}
	if !d.Remove(s) || d.Remove(s) {
		t.Error("Remove reported wrong presence")
	}
	if rec.count("DeleteBuffer") != 3 {
		t.Errorf("want 3 buffers released, got %d", rec.count("DeleteBuffer"))
	}
	if err := rec.Err(); err != nil {
		t.Error(err)
	}
}

type fakeHost struct {
	frames int
	now    time.Time
	step   time.Duration
	cancel func()
}

func (h *fakeHost) WaitFrame() bool {
	if h.frames == 0 {
		return false
	}
	h.frames--
	h.now = h.now.Add(h.step)
	if h.frames == 2 && h.cancel != nil {
		h.cancel()
	}
	return true
}
func (h *fakeHost) Now() time.Time { return h.now }
func (h *fakeHost) Size() (int, int) { return 640, 480 }

type counter struct {
	n     int
	total time.Duration
}

func (c *counter) Update(dt time.Duration) { c.n++; c.total += dt }

func TestRun(t *testing.T) {
	rec := newRecorder()
	d := newDriver(t, rec)
	var cnt counter
	d.AddUpdater(&cnt)
	host := &fakeHost{frames: 5, now: time.Unix(0, 0), step: 20 * time.Millisecond}
	err := d.Run(context.Background(), host)
	if err != nil {
		t.Fatal(err)
	}
	if cnt.n != 5 || cnt.total != 100*time.Millisecond {
		t.Errorf("updater ran %d times for %s", cnt.n, cnt.total)
	}
	if rec.count("Viewport 640 480") != 1 {
		t.Error("viewport not set once for constant size")
	}

	ctx, cancel := context.WithCancel(context.Background())
	host = &fakeHost{frames: 5, now: time.Unix(0, 0), step: time.Millisecond, cancel: cancel}
	cnt = counter{}
	err = d.Run(ctx, host)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("want context.Canceled, got %v", err)
	}
	if cnt.n != 2 {
		t.Errorf("want 2 ticks before cancellation, got %d", cnt.n)
	}
}

func TestPerspective(t *testing.T) {
	p := gldraw.Perspective(mgl32.DegToRad(45), 1, 1, 100, ms3.Vec{Z: 5})
	// A point at the origin is 5 units in front of the viewer.
	clip := p.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if clip.W() != 5 {
		t.Errorf("want w=5, got %v", clip.W())
	}
	ndcZ := clip.Z() / clip.W()
	if ndcZ <= -1 || ndcZ >= 1 {
		t.Errorf("origin outside depth range: %v", ndcZ)
	}
}

func TestAddDiscardsEarlierError(t *testing.T) {
	rec := newRecorder()
	d := newDriver(t, rec)
	rec.err = errors.New("viewport failed")
	if err := d.Add(mustObjects(t)[0]); err != nil {
		t.Fatalf("earlier error reported by Add: %v", err)
	}
	if d.Len() != 1 {
		t.Errorf("want 1 item, got %d", d.Len())
	}

	rec.failOn = "BufferUint16"
	if err := d.Add(mustObjects(t)[1]); err == nil || !strings.Contains(err.Error(), "BufferUint16") {
		t.Errorf("want upload error, got %v", err)
	}
	if d.Len() != 1 {
		t.Errorf("failed add must not join the render list, got %d items", d.Len())
	}
}

func TestRunViewportError(t *testing.T) {
	rec := newRecorder()
	d := newDriver(t, rec)
	if err := d.Add(mustObjects(t)[0]); err != nil {
		t.Fatal(err)
	}
	rec.failOn = "Viewport"
	var cnt counter
	d.AddUpdater(&cnt)
	host := &fakeHost{frames: 3, now: time.Unix(0, 0), step: 20 * time.Millisecond}
	err := d.Run(context.Background(), host)
	if err == nil || !strings.Contains(err.Error(), "resizing viewport to 640x480") {
		t.Fatalf("want viewport error, got %v", err)
	}
	if cnt.n != 0 {
		t.Errorf("no tick may run after a viewport failure, got %d", cnt.n)
	}
}
