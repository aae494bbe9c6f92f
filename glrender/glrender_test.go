package glrender_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/figures"
	"github.com/soypat/figures/glbuild"
	"github.com/soypat/figures/gldraw"
	"github.com/soypat/figures/glrender"
	"github.com/soypat/geometry/ms3"
)

var background = figures.Color{0.1, 0.1, 0.1, 1}

func newSoftDriver(t *testing.T, w, h int) (*glrender.SoftContext, *gldraw.Driver) {
	t.Helper()
	ctx, err := glrender.NewSoftContext(w, h)
	if err != nil {
		t.Fatal(err)
	}
	prog, err := gldraw.NewColorProgram(ctx)
	if err != nil {
		t.Fatal(err)
	}
	d, err := gldraw.NewDriver(ctx, prog, gldraw.DriverConfig{
		Projection: gldraw.DefaultProjection(w, h),
		Background: background,
	})
	if err != nil {
		t.Fatal(err)
	}
	return ctx, d
}

func TestSoftContextProgram(t *testing.T) {
	ctx, err := glrender.NewSoftContext(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	prog, err := gldraw.NewColorProgram(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if prog.Position < 0 || prog.Color < 0 || prog.Projection < 0 || prog.ModelView < 0 {
		t.Errorf("unresolved locations %+v", prog)
	}
	vertex, fragment, err := glbuild.NewProgrammer(glbuild.GLSLES100).Sources()
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range []struct {
		vertex, fragment, stage string
	}{
		{vertex: "attribute vec3 vertexPos\nvoid main(void) {}", fragment: fragment, stage: "vertex"},
		{vertex: vertex, fragment: "void main(void) {", stage: "fragment"},
		{vertex: vertex, fragment: "varying vec4 vOther;\nvoid main(void) {\n\tgl_FragColor = vOther;\n}\n", stage: "link"},
	} {
		prog, err := gldraw.NewProgram(ctx, test.vertex, test.fragment)
		var serr *gldraw.ShaderError
		if prog != nil || !errors.As(err, &serr) {
			t.Errorf("expected ShaderError, got %v", err)
			continue
		}
		if serr.Stage != test.stage {
			t.Errorf("want %s stage failure, got %s: %s", test.stage, serr.Stage, serr.Log)
		}
	}
}

func TestSnapshotPyramid(t *testing.T) {
	const w, h = 64, 48
	ctx, d := newSoftDriver(t, w, h)
	obj, err := figures.NewPyramid(ms3.Vec{}, ms3.Vec{Y: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err = d.Add(obj); err != nil {
		t.Fatal(err)
	}
	if err = d.Tick(0); err != nil {
		t.Fatal(err)
	}
	img := ctx.Image()
	bg := img.RGBAAt(0, 0)
	if bg != (color.RGBA{R: 26, G: 26, B: 26, A: 255}) {
		t.Errorf("corner is not background: %v", bg)
	}
	if img.RGBAAt(w/2, h/2) == bg {
		t.Error("pyramid not drawn at image center")
	}
	if ctx.Drawn() != 8 {
		t.Errorf("want 8 triangles submitted, got %d", ctx.Drawn())
	}
}

func TestDepthTest(t *testing.T) {
	red := figures.Color{1, 0, 0, 1}
	blue := figures.Color{0, 0, 1, 1}
	near := ms3.Triangle{{X: -1, Y: -1, Z: 1}, {X: 1, Y: -1, Z: 1}, {Y: 1, Z: 1}}
	far := ms3.Triangle{{X: -2, Y: -2, Z: -1}, {X: 2, Y: -2, Z: -1}, {Y: 2, Z: -1}}
	for _, order := range [][2]int{{0, 1}, {1, 0}} {
		tris := [2]ms3.Triangle{near, far}
		colors := [2]figures.Color{red, blue}
		g, err := figures.NewGeometry(
			[]ms3.Triangle{tris[order[0]], tris[order[1]]},
			[]figures.Color{colors[order[0]], colors[order[1]]},
		)
		if err != nil {
			t.Fatal(err)
		}
		ctx, d := newSoftDriver(t, 32, 32)
		if err = d.Add(figures.NewObject(g, ms3.Vec{}, nil, 0)); err != nil {
			t.Fatal(err)
		}
		if err = d.Tick(0); err != nil {
			t.Fatal(err)
		}
		got := ctx.Image().RGBAAt(16, 16)
		if got != (color.RGBA{R: 255, A: 255}) {
			t.Errorf("order %v: nearest triangle not visible, got %v", order, got)
		}
	}
}

func TestRunOffscreen(t *testing.T) {
	ctx, d := newSoftDriver(t, 32, 32)
	obj, err := figures.NewOctahedron(ms3.Vec{}, ms3.Vec{Y: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err = d.Add(obj); err != nil {
		t.Fatal(err)
	}
	host := ctx.OffscreenHost(3, figures.DefaultPeriod/100)
	if err = d.Run(context.Background(), host); err != nil {
		t.Fatal(err)
	}
	if obj.ModelView()[13] >= 0 {
		t.Error("octahedron did not descend over three frames")
	}
}

func TestPoseRenderer(t *testing.T) {
	tr := ms3.Vec{X: 1, Y: 2, Z: 3}
	obj, err := figures.NewDodecahedron(tr, ms3.Vec{X: 1}, ms3.Vec{Y: 1})
	if err != nil {
		t.Fatal(err)
	}
	r, err := glrender.NewPoseRenderer(obj)
	if err != nil {
		t.Fatal(err)
	}
	tris, err := glrender.RenderAll(r, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(tris) != obj.Geometry().NumTriangles() {
		t.Fatalf("got %d triangles, want %d", len(tris), obj.Geometry().NumTriangles())
	}
	local := obj.Geometry().Bounds()
	world := ms3.Box{Min: tris[0][0], Max: tris[0][0]}
	for _, tri := range tris {
		for _, v := range tri {
			world = world.IncludePoint(v)
		}
	}
	const tol = 1e-5
	want := ms3.Add(local.Min, tr)
	if d := ms3.Sub(world.Min, want); math32.Abs(d.X)+math32.Abs(d.Y)+math32.Abs(d.Z) > tol {
		t.Errorf("posed bounds min %v, want %v", world.Min, want)
	}
}

func TestWriteBinarySTL(t *testing.T) {
	obj, err := figures.NewPyramid(ms3.Vec{}, ms3.Vec{Y: 1})
	if err != nil {
		t.Fatal(err)
	}
	tris := obj.Geometry().Triangles(nil)
	var buf bytes.Buffer
	n, err := glrender.WriteBinarySTL(&buf, tris)
	if err != nil {
		t.Fatal(err)
	}
	if n != buf.Len() || n != 84+50*len(tris) {
		t.Fatalf("wrote %d bytes (buffer %d), want %d", n, buf.Len(), 84+50*len(tris))
	}
	if count := binary.LittleEndian.Uint32(buf.Bytes()[80:]); count != uint32(len(tris)) {
		t.Errorf("triangle count field %d, want %d", count, len(tris))
	}
}

func TestCaption(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 120, 30))
	err := glrender.Caption(img, glrender.CaptionConfig{Size: 14}, "pyramid")
	if err != nil {
		t.Fatal(err)
	}
	var lit int
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			lit++
		}
	}
	if lit == 0 {
		t.Error("caption drew nothing")
	}
}
