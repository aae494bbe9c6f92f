package gldraw

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/figures"
)

// DriverConfig configures a [Driver].
type DriverConfig struct {
	// Projection is shared by all drawn items. A zero matrix is replaced by [DefaultProjection].
	Projection mgl32.Mat4
	// Background is the clear color.
	Background figures.Color
	// OnResize is called by Run before the first frame and every time the host size changes,
	// after the viewport has been updated.
	OnResize func(d *Driver, width, height int)
}

// Driver owns the render list and runs the per-frame loop: clear, draw every item
// in insertion order, then update every item. A Driver must only be used from the
// goroutine that owns the graphics context, except for [Driver.Enqueue].
type Driver struct {
	ctx        Context
	prog       *Program
	projection mgl32.Mat4
	background figures.Color
	onResize   func(d *Driver, width, height int)
	items      []*item
	updaters   []figures.Updater

	mu      sync.Mutex
	pending []figures.Renderable
}

type item struct {
	r        figures.Renderable
	geom     *figures.Geometry
	vertices Buffer
	colors   Buffer
	indices  Buffer
	count    int
}

// NewDriver returns a driver drawing with prog on ctx. The position and color
// attribute arrays of prog are enabled once here.
func NewDriver(ctx Context, prog *Program, cfg DriverConfig) (*Driver, error) {
	if ctx == nil {
		return nil, ErrNoContext
	} else if prog == nil || prog.id == 0 {
		return nil, errors.New("nil or deleted program")
	}
	d := &Driver{
		ctx:        ctx,
		prog:       prog,
		projection: cfg.Projection,
		background: cfg.Background,
		onResize:   cfg.OnResize,
	}
	if d.projection == (mgl32.Mat4{}) {
		d.projection = DefaultProjection(1, 1)
	}
	ctx.EnableVertexAttribArray(prog.Position)
	ctx.EnableVertexAttribArray(prog.Color)
	return d, ctx.Err()
}

// Projection returns the shared projection matrix.
func (d *Driver) Projection() mgl32.Mat4 { return d.projection }

// SetProjection replaces the shared projection matrix.
func (d *Driver) SetProjection(m mgl32.Mat4) { d.projection = m }

// Len returns the number of items in the render list.
func (d *Driver) Len() int { return len(d.items) }

// Add uploads r's geometry and appends it to the render list.
func (d *Driver) Add(r figures.Renderable) error {
	it := &item{r: r}
	err := d.upload(it, r.Geometry())
	if err != nil {
		d.release(it)
		return err
	}
	d.items = append(d.items, it)
	figures.Logger().Debug("gldraw: added renderable", slog.Int("triangles", it.count/3), slog.Int("items", len(d.items)))
	return nil
}

// Remove releases r's buffers and removes it from the render list, preserving the order
// of the remaining items. It reports whether r was present.
func (d *Driver) Remove(r figures.Renderable) bool {
	for i, it := range d.items {
		if it.r == r {
			d.release(it)
			d.items = append(d.items[:i], d.items[i+1:]...)
			return true
		}
	}
	return false
}

// Enqueue schedules r to be added at the start of the next [Driver.Tick].
// It is safe to call from any goroutine.
func (d *Driver) Enqueue(r figures.Renderable) {
	d.mu.Lock()
	d.pending = append(d.pending, r)
	d.mu.Unlock()
}

// AddUpdater registers per-frame behavior that is not drawn. Updaters run after items.
func (d *Driver) AddUpdater(u figures.Updater) {
	d.updaters = append(d.updaters, u)
}

func (d *Driver) drainQueue() error {
	d.mu.Lock()
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()
	var errs []error
	for _, r := range pending {
		if err := d.Add(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Draw clears the frame and issues one indexed draw per item. Items whose Geometry
// changed since the last upload are uploaded again first.
func (d *Driver) Draw() error {
	ctx := d.ctx
	bg := d.background
	ctx.ClearColor(bg[0], bg[1], bg[2], bg[3])
	ctx.EnableDepthTest()
	ctx.Clear()
	d.prog.Use()
	for _, it := range d.items {
		if g := it.r.Geometry(); g != it.geom {
			if err := d.upload(it, g); err != nil {
				return err
			}
		}
		ctx.BindBuffer(ArrayBuffer, it.vertices)
		ctx.VertexAttribPointer(d.prog.Position, figures.VertexStride)
		ctx.BindBuffer(ArrayBuffer, it.colors)
		ctx.VertexAttribPointer(d.prog.Color, figures.ColorStride)
		ctx.BindBuffer(ElementArrayBuffer, it.indices)
		ctx.UniformMatrix4(d.prog.Projection, d.projection)
		ctx.UniformMatrix4(d.prog.ModelView, it.r.ModelView())
		ctx.DrawElements(it.count)
	}
	return nil
}

// Update advances every item and then every updater by dt.
func (d *Driver) Update(dt time.Duration) {
	for _, it := range d.items {
		it.r.Update(dt)
	}
	for _, u := range d.updaters {
		u.Update(dt)
	}
}

// Tick adds queued renderables, draws the frame and then updates.
func (d *Driver) Tick(dt time.Duration) error {
	if err := d.drainQueue(); err != nil {
		figures.Logger().Error("gldraw: adding queued renderable", slog.String("err", err.Error()))
	}
	if err := d.Draw(); err != nil {
		return err
	}
	d.Update(dt)
	return d.ctx.Err()
}

// Run ticks once per host frame with the wall clock time elapsed between frames. It returns
// nil when the host is torn down and ctx's error when ctx is cancelled.
func (d *Driver) Run(ctx context.Context, host Host) error {
	last := host.Now()
	width, height := -1, -1
	for host.WaitFrame() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if w, h := host.Size(); w != width || h != height {
			width, height = w, h
			d.ctx.Viewport(0, 0, w, h)
			if d.onResize != nil {
				d.onResize(d, w, h)
			}
			if err := d.ctx.Err(); err != nil {
				return fmt.Errorf("resizing viewport to %dx%d: %w", w, h, err)
			}
		}
		now := host.Now()
		dt := now.Sub(last)
		last = now
		if err := d.Tick(dt); err != nil {
			return err
		}
	}
	return nil
}

// Release deletes all uploaded buffers and the program.
func (d *Driver) Release() {
	for _, it := range d.items {
		d.release(it)
	}
	d.items = d.items[:0]
	d.prog.Delete()
}

func (d *Driver) upload(it *item, g *figures.Geometry) (err error) {
	if g == nil {
		return errors.New("renderable has nil geometry")
	}
	if err = g.Validate(); err != nil {
		return err
	}
	ctx := d.ctx
	// Errors recorded before the upload belong to other calls.
	if err = ctx.Err(); err != nil {
		figures.Logger().Error("gldraw: discarding error recorded before upload", slog.String("err", err.Error()))
	}
	for _, b := range [3]*Buffer{&it.vertices, &it.colors, &it.indices} {
		if *b == 0 {
			*b, err = ctx.CreateBuffer()
			if err != nil {
				return err
			}
		}
	}
	ctx.BindBuffer(ArrayBuffer, it.vertices)
	ctx.BufferFloat32(ArrayBuffer, g.Vertices())
	ctx.BindBuffer(ArrayBuffer, it.colors)
	ctx.BufferFloat32(ArrayBuffer, g.Colors())
	ctx.BindBuffer(ElementArrayBuffer, it.indices)
	ctx.BufferUint16(ElementArrayBuffer, g.Indices())
	it.geom = g
	it.count = len(g.Indices())
	return ctx.Err()
}

func (d *Driver) release(it *item) {
	for _, b := range [3]*Buffer{&it.vertices, &it.colors, &it.indices} {
		if *b != 0 {
			d.ctx.DeleteBuffer(*b)
			*b = 0
		}
	}
	it.geom = nil
}
