package figures

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
)

// Updater advances per-frame state by the wall clock time elapsed since the last frame.
type Updater interface {
	Update(dt time.Duration)
}

// Renderable is anything with geometry and a model-view transform that can be drawn
// and advanced every frame. Returning a different Geometry from one frame to the next
// is allowed and causes drawers to upload it again.
type Renderable interface {
	Updater
	Geometry() *Geometry
	ModelView() mgl32.Mat4
}

// Object pairs an immutable [Geometry] with a mutable transform and an [Animator].
// Objects are not safe for concurrent use.
type Object struct {
	geom      *Geometry
	transform mgl32.Mat4
	anim      Animator
	period    time.Duration
	last      time.Time
}

var _ Renderable = (*Object)(nil)

func newObject(g *Geometry, translation ms3.Vec, anim Animator, period time.Duration) *Object {
	return &Object{
		geom:      g,
		transform: Translate(mgl32.Ident4(), translation),
		anim:      anim,
		period:    period,
		last:      time.Now(),
	}
}

// NewObject creates an object from g placed at translation. A nil anim creates a static object.
// A non-positive period uses [DefaultPeriod].
func NewObject(g *Geometry, translation ms3.Vec, anim Animator, period time.Duration) *Object {
	if period <= 0 {
		period = DefaultPeriod
	}
	return newObject(g, translation, anim, period)
}

// Geometry returns the object's geometry.
func (o *Object) Geometry() *Geometry { return o.geom }

// ModelView returns the object's current transform.
func (o *Object) ModelView() mgl32.Mat4 { return o.transform }

// SetModelView replaces the object's transform.
func (o *Object) SetModelView(m mgl32.Mat4) { o.transform = m }

// Animator returns the object's animation policy, which may be nil.
func (o *Object) Animator() Animator { return o.anim }

// Period returns the animation period of the object.
func (o *Object) Period() time.Duration { return o.period }

// Update advances the animation by dt. The rotation angle is 2π·dt/period.
func (o *Object) Update(dt time.Duration) {
	o.last = o.last.Add(dt)
	if o.anim == nil {
		return
	}
	fract := float64(dt) / float64(o.period)
	angle := float32(2 * math.Pi * fract)
	o.anim.Animate(&o.transform, angle, fract)
}

// UpdateAt advances the animation by the time elapsed since the object's last update.
func (o *Object) UpdateAt(now time.Time) {
	dt := now.Sub(o.last)
	o.Update(dt)
	o.last = now
}

// LastUpdate returns the timestamp of the object's last update.
func (o *Object) LastUpdate() time.Time { return o.last }

// SetGeometry replaces the object's geometry. Drawers upload it on the next frame.
func (o *Object) SetGeometry(g *Geometry) { o.geom = g }
