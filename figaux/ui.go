package figaux

import (
	"context"
	"errors"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/figures"
	"github.com/soypat/figures/gldraw"
	"github.com/soypat/figures/scene"
)

type UIConfig struct {
	// Context cancels the frame loop. Defaults to context.Background.
	Context    context.Context
	Host       gldraw.HostConfig
	Background figures.Color
	// Projection returns the projection for a viewport size. Defaults to [gldraw.DefaultProjection].
	Projection func(width, height int) mgl32.Mat4
}

// UI opens a window, or takes over a canvas on js/wasm, and draws items until
// it is closed. It returns an error wrapping [gldraw.ErrNoContext] when no
// graphics context is available.
func UI(items []figures.Renderable, cfg UIConfig) error {
	glctx, host, terminate, err := gldraw.StartHost(cfg.Host)
	if err != nil {
		return err
	}
	defer terminate()
	proj := cfg.Projection
	if proj == nil {
		proj = gldraw.DefaultProjection
	}
	d, err := newDriver(glctx, gldraw.DriverConfig{
		Background: cfg.Background,
		OnResize: func(d *gldraw.Driver, width, height int) {
			d.SetProjection(proj(width, height))
		},
	})
	if err != nil {
		return err
	}
	defer d.Release()
	for _, it := range items {
		if err = d.Add(it); err != nil {
			return err
		}
	}
	return d.Run(ctxOrBackground(cfg.Context), host)
}

type SceneUIConfig struct {
	Context context.Context
	Host    gldraw.HostConfig
	Loader  scene.Loader
	Policy  scene.LoadPolicy
	// Highlighter picks models under the pointer on hosts that report one. Nil disables picking.
	Highlighter *scene.Highlighter
}

// SceneUI draws s, loading its models in the background and attaching each one
// as the scene delivers it.
func SceneUI(s *scene.Scene, cfg SceneUIConfig) error {
	if cfg.Loader == nil {
		return errors.New("nil scene loader")
	}
	glctx, host, terminate, err := gldraw.StartHost(cfg.Host)
	if err != nil {
		return err
	}
	defer terminate()
	d, err := newDriver(glctx, gldraw.DriverConfig{
		Background: s.Background,
		OnResize: func(d *gldraw.Driver, width, height int) {
			s.Resize(width, height)
			d.SetProjection(s.Camera.Projection())
		},
	})
	if err != nil {
		return err
	}
	defer d.Release()
	if err = AttachScene(d, s); err != nil {
		return err
	}
	if ph, ok := host.(gldraw.PointerHost); ok && cfg.Highlighter != nil {
		d.AddUpdater(NewPointerPicker(ph, s, cfg.Highlighter))
	}
	ctx := ctxOrBackground(cfg.Context)
	ls, err := s.Load(ctx, cfg.Loader, cfg.Policy)
	if err != nil {
		return err
	}
	go ls.Wait()
	return d.Run(ctx, host)
}

// AttachScene adds the meshes of s to d, registers s as an updater and
// enqueues the renderables of every model attached later.
func AttachScene(d *gldraw.Driver, s *scene.Scene) error {
	for _, r := range s.Renderables() {
		if err := d.Add(r); err != nil {
			return err
		}
	}
	s.OnAttach = func(rs []figures.Renderable) {
		for _, r := range rs {
			d.Enqueue(r)
		}
	}
	d.AddUpdater(s)
	return nil
}

func newDriver(glctx gldraw.Context, cfg gldraw.DriverConfig) (*gldraw.Driver, error) {
	prog, err := gldraw.NewColorProgram(glctx)
	if err != nil {
		return nil, err
	}
	d, err := gldraw.NewDriver(glctx, prog, cfg)
	if err != nil {
		prog.Delete()
		return nil, err
	}
	return d, nil
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// PointerPicker feeds pointer motion and presses of a host to a [scene.Highlighter].
type PointerPicker struct {
	host    gldraw.PointerHost
	scene   *scene.Scene
	hl      *scene.Highlighter
	x, y    float32
	pressed bool
	first   bool
}

var _ figures.Updater = (*PointerPicker)(nil)

// NewPointerPicker returns a picker of the meshes in s.
func NewPointerPicker(host gldraw.PointerHost, s *scene.Scene, hl *scene.Highlighter) *PointerPicker {
	return &PointerPicker{host: host, scene: s, hl: hl, first: true}
}

// Update picks on pointer motion and on the frame a press begins.
func (p *PointerPicker) Update(time.Duration) {
	x, y, pressed := p.host.Pointer()
	w, h := p.host.Size()
	ndc := scene.NDC(x, y, w, h)
	if p.first || x != p.x || y != p.y {
		p.hl.Move(p.scene.Root, p.scene.Camera, ndc)
	}
	if pressed && !p.pressed {
		p.hl.Press(p.scene.Root, p.scene.Camera, ndc)
	}
	p.x, p.y, p.pressed, p.first = x, y, pressed, false
}
