package figaux_test

import (
	"bytes"
	"image/png"
	"testing"
	"testing/fstest"
	"time"

	"github.com/soypat/figures"
	"github.com/soypat/figures/figaux"
	"github.com/soypat/figures/gldraw"
	"github.com/soypat/figures/glrender"
	"github.com/soypat/figures/scene"
	"github.com/soypat/geometry/ms3"
)

func defaultObjects(t *testing.T) []figures.Renderable {
	t.Helper()
	var bld figures.Builder
	return []figures.Renderable{
		bld.NewPyramid(ms3.Vec{X: -2.5, Z: -2}, ms3.Vec{X: 0.1, Y: 1, Z: 0.2}),
		bld.NewOctahedron(ms3.Vec{Z: -2}, ms3.Vec{Y: 1}),
		bld.NewDodecahedron(ms3.Vec{X: 2.5, Z: -2}, ms3.Vec{X: -0.4, Y: 1, Z: 0.1}, ms3.Vec{X: 1}),
	}
}

func TestRender(t *testing.T) {
	var pngBuf, stlBuf bytes.Buffer
	err := figaux.Render(defaultObjects(t), figaux.RenderConfig{
		ImageOutput: &pngBuf,
		STLOutput:   &stlBuf,
		Width:       160,
		Height:      120,
		Frames:      3,
		Step:        100 * time.Millisecond,
		Caption:     []string{"figures"},
		Silent:      true,
	})
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&pngBuf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 160 || b.Dy() != 120 {
		t.Errorf("want 160x120 image, got %v", b)
	}
	const tris = 8 + 8 + 36
	if want := 84 + 50*tris; stlBuf.Len() != want {
		t.Errorf("want %d STL bytes, got %d", want, stlBuf.Len())
	}
}

func TestRenderErrors(t *testing.T) {
	err := figaux.Render(defaultObjects(t), figaux.RenderConfig{Silent: true})
	if err == nil {
		t.Error("expected error for missing output")
	}
	err = figaux.Render(nil, figaux.RenderConfig{STLOutput: &bytes.Buffer{}, Silent: true})
	if err == nil {
		t.Error("expected error for no items")
	}
}

func TestGradient(t *testing.T) {
	red, blue := figaux.Hex(0xff0000), figaux.Hex(0x0000ff)
	if red != (figures.Color{1, 0, 0, 1}) {
		t.Fatalf("bad hex conversion %v", red)
	}
	palette := figaux.Gradient(red, blue, 5)
	if len(palette) != 5 {
		t.Fatalf("want 5 colors, got %d", len(palette))
	}
	if !near(palette[0], red) || !near(palette[4], blue) {
		t.Errorf("gradient endpoints %v %v", palette[0], palette[4])
	}
	// Red to blue goes the short way through magenta.
	if mid := palette[2]; !near(mid, figures.Color{1, 0, 1, 1}) {
		t.Errorf("want magenta midpoint, got %v", mid)
	}
	if got := figaux.Gradient(red, blue, 0); got != nil {
		t.Errorf("want nil palette, got %v", got)
	}
}

func TestRecolor(t *testing.T) {
	g, err := figures.NewGeometry(figures.DodecahedronTriangles(), make([]figures.Color, 36))
	if err != nil {
		t.Fatal(err)
	}
	palette := figaux.Gradient(figaux.Hex(0xffcc00), figaux.Hex(0x3366ff), 12)
	rg, err := figaux.Recolor(g, palette, 3)
	if err != nil {
		t.Fatal(err)
	}
	if rg.NumTriangles() != 36 {
		t.Fatalf("want 36 triangles, got %d", rg.NumTriangles())
	}
	for i := 0; i < rg.NumVertices(); i++ {
		face := i / 9
		if got := rg.VertexColor(i); got != palette[face] {
			t.Fatalf("vertex %d: want %v, got %v", i, palette[face], got)
		}
	}
	if _, err = figaux.Recolor(g, nil, 3); err == nil {
		t.Error("expected error for empty palette")
	}
}

func near(a, b figures.Color) bool {
	for i := range a {
		if d := a[i] - b[i]; d > 1e-4 || d < -1e-4 {
			return false
		}
	}
	return true
}

type fakePointer struct {
	w, h    int
	x, y    float32
	pressed bool
}

func (p *fakePointer) WaitFrame() bool                       { return true }
func (p *fakePointer) Now() time.Time                        { return time.Time{} }
func (p *fakePointer) Size() (int, int)                      { return p.w, p.h }
func (p *fakePointer) Pointer() (x, y float32, pressed bool) { return p.x, p.y, p.pressed }

var _ gldraw.PointerHost = (*fakePointer)(nil)

func newInteraction(t *testing.T) *scene.Scene {
	t.Helper()
	s, err := scene.Interaction(scene.InteractionConfig{
		Aspect: 4. / 3,
		Model:  scene.Model{OBJ: "model.obj"},
		Assets: fstest.MapFS{},
		Count:  1,
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestPointerPicker(t *testing.T) {
	s := newInteraction(t)
	board := scene.NewMesh("board", scene.Plane(10, 10, 1, 1))
	s.Root.Add(board)
	host := &fakePointer{w: 400, h: 300, x: 200, y: 150}
	var hl scene.Highlighter
	picker := figaux.NewPointerPicker(host, s, &hl)

	picker.Update(0)
	if hl.Hovered() != board {
		t.Fatalf("want board hovered, got %v", hl.Hovered())
	}
	if board.Mesh.Material.Emissive != scene.HoverColor {
		t.Errorf("want hover emissive, got %v", board.Mesh.Material.Emissive)
	}
	host.pressed = true
	picker.Update(0)
	if hl.Selected() != board {
		t.Fatalf("want board selected, got %v", hl.Selected())
	}
	host.x, host.y, host.pressed = 0, 0, false
	picker.Update(0)
	if hl.Hovered() != nil {
		t.Errorf("want nothing hovered in the corner, got %v", hl.Hovered())
	}
	if hl.Selected() != board {
		t.Error("selection must survive pointer motion")
	}
}

func TestAttachScene(t *testing.T) {
	s := newInteraction(t)
	ctx, err := glrender.NewSoftContext(64, 48)
	if err != nil {
		t.Fatal(err)
	}
	prog, err := gldraw.NewColorProgram(ctx)
	if err != nil {
		t.Fatal(err)
	}
	d, err := gldraw.NewDriver(ctx, prog, gldraw.DriverConfig{Projection: s.Camera.Projection()})
	if err != nil {
		t.Fatal(err)
	}
	defer d.Release()
	if err = figaux.AttachScene(d, s); err != nil {
		t.Fatal(err)
	}
	if d.Len() != 0 {
		t.Fatalf("want no items before delivery, got %d", d.Len())
	}
	s.Deliver("model.obj", scene.NewMesh("model", scene.Plane(1, 1, 1, 1)))
	for i := 0; i < 2; i++ {
		if err = d.Tick(16 * time.Millisecond); err != nil {
			t.Fatal(err)
		}
	}
	if d.Len() != 1 || s.Attached() != 1 {
		t.Errorf("want 1 item and 1 attached model, got %d and %d", d.Len(), s.Attached())
	}
}
