// Package glrender renders figures without a GPU: a software [gldraw.Context] for
// headless frames, world space triangle readers and STL and caption output.
package glrender

import (
	"errors"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/figures"
	"github.com/soypat/geometry/ms3"
)

type Renderer interface {
	ReadTriangles(dst []ms3.Triangle, userData any) (n int, err error)
}

// RenderAll reads the full contents of a Renderer and returns the slice read.
// It does not return error on io.EOF, like the io.RenderAll implementation.
func RenderAll(r Renderer, userData any) ([]ms3.Triangle, error) {
	const startSize = 4096
	var err error
	var nt int
	result := make([]ms3.Triangle, 0, startSize)
	buf := make([]ms3.Triangle, startSize)
	for {
		nt, err = r.ReadTriangles(buf, userData)
		if err == nil || err == io.EOF {
			result = append(result, buf[:nt]...)
		}
		if err != nil {
			break
		}
	}
	if err == io.EOF {
		return result, nil
	}
	return result, err
}

// PoseRenderer reads the triangles of renderables transformed to world space by
// their current ModelView matrix.
type PoseRenderer struct {
	items []figures.Renderable
	// Cursor of next triangle to read.
	item, tri int
	local     []ms3.Triangle
}

var _ Renderer = (*PoseRenderer)(nil)

// NewPoseRenderer returns a renderer reading items in order.
func NewPoseRenderer(items ...figures.Renderable) (*PoseRenderer, error) {
	for _, it := range items {
		if it == nil || it.Geometry() == nil {
			return nil, errors.New("nil renderable or geometry")
		}
	}
	return &PoseRenderer{items: items}, nil
}

// ReadTriangles fills dst with posed triangles and returns io.EOF once all are read.
// userData is unused.
func (pr *PoseRenderer) ReadTriangles(dst []ms3.Triangle, userData any) (n int, err error) {
	if len(dst) == 0 {
		return 0, errors.New("zero length triangle buffer")
	}
	for n < len(dst) && pr.item < len(pr.items) {
		r := pr.items[pr.item]
		if pr.tri == 0 {
			pr.local = r.Geometry().Triangles(pr.local[:0])
		}
		m := r.ModelView()
		for pr.tri < len(pr.local) && n < len(dst) {
			dst[n] = transformTriangle(m, pr.local[pr.tri])
			n++
			pr.tri++
		}
		if pr.tri == len(pr.local) {
			pr.item++
			pr.tri = 0
		}
	}
	if pr.item == len(pr.items) {
		return n, io.EOF
	}
	return n, nil
}

func transformTriangle(m mgl32.Mat4, t ms3.Triangle) ms3.Triangle {
	for i, v := range t {
		p := mgl32.TransformCoordinate(mgl32.Vec3{v.X, v.Y, v.Z}, m)
		t[i] = ms3.Vec{X: p[0], Y: p[1], Z: p[2]}
	}
	return t
}
