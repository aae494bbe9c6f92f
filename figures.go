package figures

import (
	"errors"
	"fmt"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
)

const (
	// Phi is the golden ratio as used to place the dodecahedron vertices.
	Phi = 1.6180339
	// DefaultPeriod is the animation period used when an object is given none.
	// One period is one full turn of a rotating object.
	DefaultPeriod = 5000 * time.Millisecond
	// epstol is used to check for badly conditioned denominators
	// such as lengths used for normalization.
	epstol = 6e-7
)

// Builder wraps polyhedron construction logic.
// Provides error handling strategies with panics or error accumulation during shape generation.
type Builder struct {
	NoDimensionPanic bool
	// Period is the animation period assigned to built objects. Zero uses [DefaultPeriod].
	Period    time.Duration
	accumErrs []error
}

// Err returns all errors accumulated by the builder joined together.
func (bld *Builder) Err() error {
	if len(bld.accumErrs) == 0 {
		return nil
	}
	return errors.Join(bld.accumErrs...)
}

func (bld *Builder) shapeErrorf(msg string, args ...any) {
	if !bld.NoDimensionPanic {
		panic(fmt.Sprintf(msg, args...))
	}
	bld.accumErrs = append(bld.accumErrs, fmt.Errorf(msg, args...))
}

func (bld *Builder) period() time.Duration {
	if bld.Period <= 0 {
		return DefaultPeriod
	}
	return bld.Period
}

// axis validates a rotation axis and returns it normalized.
func (bld *Builder) axis(v ms3.Vec, name string) ms3.Vec {
	n := ms3.Norm(v)
	if n < epstol || math32.IsNaN(n) || math32.IsInf(n, 0) {
		bld.shapeErrorf("%s: null or invalid rotation axis %v", name, v)
		return ms3.Vec{Y: 1}
	}
	return ms3.Scale(1/n, v)
}

// NewPyramid is a wrapper around [Builder.NewPyramid] that returns the builder error.
func NewPyramid(translation, axis ms3.Vec) (*Object, error) {
	bld := Builder{NoDimensionPanic: true}
	obj := bld.NewPyramid(translation, axis)
	return obj, bld.Err()
}

// NewOctahedron is a wrapper around [Builder.NewOctahedron] that returns the builder error.
func NewOctahedron(translation, axis ms3.Vec) (*Object, error) {
	bld := Builder{NoDimensionPanic: true}
	obj := bld.NewOctahedron(translation, axis)
	return obj, bld.Err()
}

// NewDodecahedron is a wrapper around [Builder.NewDodecahedron] that returns the builder error.
func NewDodecahedron(translation, axisA, axisB ms3.Vec) (*Object, error) {
	bld := Builder{NoDimensionPanic: true}
	obj := bld.NewDodecahedron(translation, axisA, axisB)
	return obj, bld.Err()
}

// Translate returns m multiplied on the right by a translation of v, so
// that v is expressed in the local frame of m.
func Translate(m mgl32.Mat4, v ms3.Vec) mgl32.Mat4 {
	return m.Mul4(mgl32.Translate3D(v.X, v.Y, v.Z))
}

// Rotate returns m multiplied on the right by a rotation of angle radians around axis.
// A zero axis leaves m unchanged.
func Rotate(m mgl32.Mat4, angle float32, axis ms3.Vec) mgl32.Mat4 {
	n := ms3.Norm(axis)
	if n < epstol || angle == 0 {
		return m
	}
	axis = ms3.Scale(1/n, axis)
	return m.Mul4(mgl32.HomogRotate3D(angle, mgl32.Vec3{axis.X, axis.Y, axis.Z}))
}

func cross(a, b ms3.Vec) ms3.Vec {
	return ms3.Vec{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}
