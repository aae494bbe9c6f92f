package figures

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/geometry/ms3"
)

const (
	// VertexStride is the number of floats per vertex position.
	VertexStride = 3
	// ColorStride is the number of floats per vertex color.
	ColorStride = 4
	// MaxVertices is the largest vertex count addressable by 16 bit indices.
	MaxVertices = math.MaxUint16 + 1
)

// Primitive is the primitive type a [Geometry]'s indices are grouped in.
type Primitive uint8

const (
	Triangles Primitive = iota
)

func (p Primitive) String() string {
	switch p {
	case Triangles:
		return "triangles"
	}
	return "Primitive(" + fmt.Sprint(uint8(p)) + ")"
}

// Color is a linear RGBA color with components in [0,1].
type Color [4]float32

// Geometry is an immutable set of vertex, color and index buffers describing
// a mesh drawn as flat colored triangles. Slices returned by its methods
// are shared with the Geometry and must not be modified.
type Geometry struct {
	vertices []float32
	colors   []float32
	indices  []uint16
	prim     Primitive
}

// NewGeometry creates a flat shaded Geometry from triangles, giving each triangle
// its own three vertices colored with the corresponding face color.
func NewGeometry(tris []ms3.Triangle, faceColors []Color) (*Geometry, error) {
	if len(tris) == 0 {
		return nil, errors.New("no triangles")
	} else if len(tris) != len(faceColors) {
		return nil, fmt.Errorf("got %d face colors for %d triangles", len(faceColors), len(tris))
	} else if 3*len(tris) > MaxVertices {
		return nil, fmt.Errorf("%d vertices exceed 16 bit index range", 3*len(tris))
	}
	g := &Geometry{
		vertices: make([]float32, 0, 3*VertexStride*len(tris)),
		colors:   make([]float32, 0, 3*ColorStride*len(tris)),
		indices:  make([]uint16, 0, 3*len(tris)),
		prim:     Triangles,
	}
	for i, t := range tris {
		for j := range t {
			g.vertices = append(g.vertices, t[j].X, t[j].Y, t[j].Z)
			g.colors = append(g.colors, faceColors[i][:]...)
			g.indices = append(g.indices, uint16(len(g.indices)))
		}
	}
	return g, nil
}

// Vertices returns the flat xyz vertex buffer.
func (g *Geometry) Vertices() []float32 { return g.vertices }

// Colors returns the flat rgba color buffer, one color per vertex.
func (g *Geometry) Colors() []float32 { return g.colors }

// Indices returns the index buffer.
func (g *Geometry) Indices() []uint16 { return g.indices }

// Primitive returns how indices are grouped.
func (g *Geometry) Primitive() Primitive { return g.prim }

// NumVertices returns the number of vertices in the vertex buffer.
func (g *Geometry) NumVertices() int { return len(g.vertices) / VertexStride }

// NumTriangles returns the number of triangles drawn by the index buffer.
func (g *Geometry) NumTriangles() int { return len(g.indices) / 3 }

// Validate checks the buffer invariants of g.
func (g *Geometry) Validate() error {
	if g == nil {
		return errors.New("nil geometry")
	}
	nv := g.NumVertices()
	switch {
	case len(g.vertices)%VertexStride != 0:
		return fmt.Errorf("vertex buffer length %d not multiple of %d", len(g.vertices), VertexStride)
	case len(g.colors)%ColorStride != 0:
		return fmt.Errorf("color buffer length %d not multiple of %d", len(g.colors), ColorStride)
	case len(g.colors)/ColorStride != nv:
		return fmt.Errorf("%d colors for %d vertices", len(g.colors)/ColorStride, nv)
	case len(g.indices)%3 != 0:
		return fmt.Errorf("index buffer length %d not multiple of 3", len(g.indices))
	case nv > MaxVertices:
		return fmt.Errorf("%d vertices exceed 16 bit index range", nv)
	}
	for i, idx := range g.indices {
		if int(idx) >= nv {
			return fmt.Errorf("index %d at position %d out of range of %d vertices", idx, i, nv)
		}
	}
	return nil
}

// Vertex returns the i'th vertex position.
func (g *Geometry) Vertex(i int) ms3.Vec {
	v := g.vertices[i*VertexStride:]
	return ms3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// VertexColor returns the i'th vertex color.
func (g *Geometry) VertexColor(i int) Color {
	c := g.colors[i*ColorStride:]
	return Color{c[0], c[1], c[2], c[3]}
}

// Triangles appends the indexed triangles of g to dst and returns the result.
func (g *Geometry) Triangles(dst []ms3.Triangle) []ms3.Triangle {
	for i := 0; i+2 < len(g.indices); i += 3 {
		dst = append(dst, ms3.Triangle{
			g.Vertex(int(g.indices[i])),
			g.Vertex(int(g.indices[i+1])),
			g.Vertex(int(g.indices[i+2])),
		})
	}
	return dst
}

// Bounds returns the axis aligned box containing all vertices of g.
func (g *Geometry) Bounds() ms3.Box {
	n := g.NumVertices()
	if n == 0 {
		return ms3.Box{}
	}
	v0 := g.Vertex(0)
	bb := ms3.Box{Min: v0, Max: v0}
	for i := 1; i < n; i++ {
		bb = bb.IncludePoint(g.Vertex(i))
	}
	return bb
}

// TriangleNormal returns the non-normalized normal of t following counter-clockwise winding.
func TriangleNormal(t ms3.Triangle) ms3.Vec {
	return cross(ms3.Sub(t[1], t[0]), ms3.Sub(t[2], t[0]))
}

// TriangleCentroid returns the average of the vertices of t.
func TriangleCentroid(t ms3.Triangle) ms3.Vec {
	return ms3.Scale(1./3, ms3.Add(t[0], ms3.Add(t[1], t[2])))
}

// orientOutward swaps the winding of every triangle whose normal points
// towards center so that all triangles wind counter-clockwise seen from outside.
func orientOutward(tris []ms3.Triangle, center ms3.Vec) {
	for i := range tris {
		out := ms3.Sub(TriangleCentroid(tris[i]), center)
		if ms3.Dot(TriangleNormal(tris[i]), out) < 0 {
			tris[i][1], tris[i][2] = tris[i][2], tris[i][1]
		}
	}
}

func centroid(verts []ms3.Vec) ms3.Vec {
	var sum ms3.Vec
	for _, v := range verts {
		sum = ms3.Add(sum, v)
	}
	return ms3.Scale(1/float32(len(verts)), sum)
}
