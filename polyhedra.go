package figures

import (
	"fmt"
	"sort"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

var pyramidColors = [8]Color{
	{0.0, 1.0, 0.0, 1.0}, // Base.
	{0.0, 0.8, 0.2, 1.0},
	{0.2, 0.6, 0.0, 1.0},
	{1.0, 1.0, 0.0, 1.0}, // Sides.
	{1.0, 0.0, 1.0, 1.0},
	{0.0, 1.0, 1.0, 1.0},
	{0.0, 0.5, 1.0, 1.0},
	{0.5, 0.5, 0.5, 1.0},
}

var octahedronColors = [8]Color{
	{1.0, 1.0, 0.0, 1.0},
	{1.0, 0.0, 1.0, 1.0},
	{0.0, 1.0, 1.0, 1.0},
	{0.0, 0.5, 1.0, 1.0},
	{0.5, 0.5, 0.5, 1.0},
	{0.0, 0.5, 0.5, 1.0},
	{0.0, 0.0, 0.8, 1.0},
	{0.0, 0.6, 0.5, 0.3},
}

var dodecahedronColors = [12]Color{
	{1.0, 1.0, 0.0, 1.0},
	{1.0, 0.0, 1.0, 1.0},
	{0.0, 0.5, 1.0, 1.0},
	{0.0, 0.5, 0.5, 1.0},
	{0.0, 1.0, 0.5, 1.0},
	{1.0, 0.5, 0.0, 1.0},
	{1.0, 0.5, 0.5, 1.0},
	{1.0, 0.1, 0.5, 1.0},
	{1.0, 0.1, 0.1, 0.1},
	{0.0, 1.0, 0.9, 1.0},
	{0.0, 0.5, 0.1, 0.9},
	{1.0, 0.5, 0.8, 1.0},
}

// PyramidTriangles returns the 8 triangles of a pyramid with a regular pentagonal base
// inscribed in the unit circle on the z=0 plane and apex at (0,0,2).
// The base is a fan of 3 triangles from the (0,1,0) corner.
func PyramidTriangles() []ms3.Triangle {
	const pi = math32.Pi
	s72, c72 := math32.Sincos(2 * pi / 5)
	s144 := math32.Sin(4 * pi / 5)
	c36 := math32.Cos(pi / 5)
	p := [5]ms3.Vec{
		{X: 0, Y: 1},
		{X: -s72, Y: c72},
		{X: -s144, Y: -c36},
		{X: s144, Y: -c36},
		{X: s72, Y: c72},
	}
	apex := ms3.Vec{Z: 2}
	tris := []ms3.Triangle{
		{p[0], p[1], p[2]},
		{p[0], p[2], p[3]},
		{p[0], p[3], p[4]},
		{p[0], p[1], apex},
		{p[0], p[4], apex},
		{p[3], p[4], apex},
		{p[2], p[3], apex},
		{p[2], p[1], apex},
	}
	orientOutward(tris, centroid(append(p[:], apex)))
	return tris
}

// OctahedronTriangles returns the 8 triangles joining the ±X and ±Z unit
// points to the ±Y poles.
func OctahedronTriangles() []ms3.Triangle {
	var (
		top    = ms3.Vec{Y: 1}
		bottom = ms3.Vec{Y: -1}
		px     = ms3.Vec{X: 1}
		nx     = ms3.Vec{X: -1}
		pz     = ms3.Vec{Z: 1}
		nz     = ms3.Vec{Z: -1}
	)
	tris := []ms3.Triangle{
		{top, nx, pz},
		{top, px, pz},
		{top, nx, nz},
		{top, px, nz},
		{bottom, nx, pz},
		{bottom, px, pz},
		{bottom, nx, nz},
		{bottom, px, nz},
	}
	orientOutward(tris, ms3.Vec{})
	return tris
}

// DodecahedronVertices returns the 20 vertices of a dodecahedron built from the golden ratio.
func DodecahedronVertices() []ms3.Vec {
	const iphi = 1 / Phi
	verts := make([]ms3.Vec, 0, 20)
	for _, x := range [2]float32{-1, 1} {
		for _, y := range [2]float32{-1, 1} {
			for _, z := range [2]float32{-1, 1} {
				verts = append(verts, ms3.Vec{X: x, Y: y, Z: z})
			}
		}
	}
	for _, a := range [2]float32{-1, 1} {
		for _, b := range [2]float32{-1, 1} {
			verts = append(verts,
				ms3.Vec{X: 0, Y: a * Phi, Z: b * iphi},
				ms3.Vec{X: a * iphi, Y: 0, Z: b * Phi},
				ms3.Vec{X: a * Phi, Y: b * iphi, Z: 0},
			)
		}
	}
	return verts
}

// dodecahedronFaces is the face to vertex incidence table into [DodecahedronVertices].
// Each face lists its 5 vertices counter-clockwise seen from outside.
var dodecahedronFaces = mustDodecahedronFaces()

func mustDodecahedronFaces() [12][5]int {
	faces, err := dodecahedronIncidence(DodecahedronVertices())
	if err != nil {
		panic(err)
	}
	return faces
}

// dodecahedronIncidence derives the faces of the dodecahedron from its face normals, which
// point to the vertices of the dual icosahedron. The vertices of a face are those furthest along its normal.
func dodecahedronIncidence(verts []ms3.Vec) (faces [12][5]int, err error) {
	var normals []ms3.Vec
	for _, a := range [2]float32{-1, 1} {
		for _, b := range [2]float32{-1, 1} {
			normals = append(normals,
				ms3.Vec{X: 0, Y: a, Z: b * Phi},
				ms3.Vec{X: a, Y: b * Phi, Z: 0},
				ms3.Vec{X: a * Phi, Y: 0, Z: b},
			)
		}
	}
	for iface, n := range normals {
		n = ms3.Unit(n)
		var maxDot float32 = -math32.MaxFloat32
		for _, v := range verts {
			maxDot = math32.Max(maxDot, ms3.Dot(v, n))
		}
		var face []int
		for iv, v := range verts {
			if ms3.Dot(v, n) > maxDot-1e-3 {
				face = append(face, iv)
			}
		}
		if len(face) != 5 {
			return faces, fmt.Errorf("dodecahedron face %d has %d vertices", iface, len(face))
		}
		pts := make([]ms3.Vec, 5)
		for i := range face {
			pts[i] = verts[face[i]]
		}
		c := centroid(pts)
		u := ms3.Unit(ms3.Sub(pts[0], c))
		w := cross(n, u)
		angle := func(i int) float32 {
			d := ms3.Sub(verts[face[i]], c)
			return math32.Atan2(ms3.Dot(d, w), ms3.Dot(d, u))
		}
		sort.Slice(face, func(i, j int) bool { return angle(i) < angle(j) })
		copy(faces[iface][:], face)
	}
	return faces, nil
}

// DodecahedronTriangles returns the 36 triangles of a dodecahedron, 3 per pentagonal face
// in face order. Triangles 3i, 3i+1 and 3i+2 belong to face i.
func DodecahedronTriangles() []ms3.Triangle {
	verts := DodecahedronVertices()
	tris := make([]ms3.Triangle, 0, 36)
	for _, f := range dodecahedronFaces {
		p0 := verts[f[0]]
		for k := 1; k < 4; k++ {
			tris = append(tris, ms3.Triangle{p0, verts[f[k]], verts[f[k+1]]})
		}
	}
	orientOutward(tris, ms3.Vec{})
	return tris
}

// NewPyramid creates a pentagonal pyramid translated by translation that rotates around axis.
func (bld *Builder) NewPyramid(translation, axis ms3.Vec) *Object {
	axis = bld.axis(axis, "pyramid")
	g := bld.geometry("pyramid", PyramidTriangles(), pyramidColors[:], 1)
	return newObject(g, translation, &SimpleRotator{Axis: axis}, bld.period())
}

// NewOctahedron creates an octahedron translated by translation that rotates around axis
// and oscillates up and down between Y=-2 and Y=2.
func (bld *Builder) NewOctahedron(translation, axis ms3.Vec) *Object {
	axis = bld.axis(axis, "octahedron")
	g := bld.geometry("octahedron", OctahedronTriangles(), octahedronColors[:], 1)
	return newObject(g, translation, NewOscillatingRotator(axis), bld.period())
}

// NewDodecahedron creates a dodecahedron translated by translation that rotates
// around axisB and axisA, switching between them periodically. axisB is used first.
func (bld *Builder) NewDodecahedron(translation, axisA, axisB ms3.Vec) *Object {
	axisA = bld.axis(axisA, "dodecahedron first")
	axisB = bld.axis(axisB, "dodecahedron second")
	g := bld.geometry("dodecahedron", DodecahedronTriangles(), dodecahedronColors[:], 3)
	return newObject(g, translation, NewAxisSwitcher(axisA, axisB), bld.period())
}

// geometry repeats each face color trisPerFace times and builds the geometry.
func (bld *Builder) geometry(name string, tris []ms3.Triangle, faceColors []Color, trisPerFace int) *Geometry {
	colors := make([]Color, 0, len(tris))
	for _, c := range faceColors {
		for range trisPerFace {
			colors = append(colors, c)
		}
	}
	g, err := NewGeometry(tris, colors)
	if err != nil {
		bld.shapeErrorf("%s: %s", name, err)
	}
	return g
}
