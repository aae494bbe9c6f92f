package scene

import (
	"fmt"
	"slices"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/figures"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// PickPolicy selects which of several intersections counts as the picked one.
type PickPolicy uint8

const (
	PickNearest PickPolicy = iota
	PickFarthest
)

func (p PickPolicy) String() string {
	switch p {
	case PickNearest:
		return "nearest"
	case PickFarthest:
		return "farthest"
	}
	return fmt.Sprintf("PickPolicy(%d)", p)
}

// Intersection is a ray hit on a mesh triangle.
type Intersection struct {
	Node     *Node
	Triangle int
	Distance float32
	Point    ms3.Vec
}

// Intersect returns every triangle of the meshes under root hit by ray,
// ordered by increasing distance. Triangles are hit from either side.
func Intersect(root *Node, ray Ray) []Intersection {
	var hits []Intersection
	for _, n := range root.Meshes() {
		world := n.World()
		for i, t := range n.Mesh.Triangles {
			t = transform(world, t)
			d, ok := intersectTriangle(ray, t)
			if !ok {
				continue
			}
			hits = append(hits, Intersection{Node: n, Triangle: i, Distance: d, Point: ray.At(d)})
		}
	}
	slices.SortStableFunc(hits, func(a, b Intersection) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	return hits
}

// Pick casts a ray from cam through ndc and returns the intersection chosen by policy.
func Pick(root *Node, cam *Camera, ndc ms2.Vec, policy PickPolicy) (Intersection, bool) {
	hits := Intersect(root, cam.Ray(ndc))
	if len(hits) == 0 {
		return Intersection{}, false
	}
	if policy == PickFarthest {
		return hits[len(hits)-1], true
	}
	return hits[0], true
}

func transform(m mgl32.Mat4, t ms3.Triangle) ms3.Triangle {
	for i, v := range t {
		t[i] = fromVec3(mgl32.TransformCoordinate(vec3(v), m))
	}
	return t
}

// intersectTriangle is the Möller-Trumbore ray triangle test.
func intersectTriangle(r Ray, t ms3.Triangle) (float32, bool) {
	const eps = 1e-7
	e1 := ms3.Sub(t[1], t[0])
	e2 := ms3.Sub(t[2], t[0])
	p := cross(r.Dir, e2)
	det := ms3.Dot(e1, p)
	if math32.Abs(det) < eps {
		return 0, false
	}
	inv := 1 / det
	s := ms3.Sub(r.Origin, t[0])
	u := ms3.Dot(s, p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := cross(s, e1)
	v := ms3.Dot(r.Dir, q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	d := ms3.Dot(e2, q) * inv
	return d, d > eps
}

func cross(a, b ms3.Vec) ms3.Vec {
	return ms3.Vec{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

var (
	// HoverColor is the emissive color of the hovered node.
	HoverColor = figures.Color{1, 0, 0, 1}
	// SelectColor is the emissive color of the clicked node.
	SelectColor = figures.Color{0, 1, 0, 1}
)

// Highlighter marks the node under the pointer by changing its material's
// emissive color and restores the previous color when the pointer leaves.
// Highlighted nodes are given their own material so shared materials are left untouched.
type Highlighter struct {
	Policy PickPolicy
	// Hover and Select default to HoverColor and SelectColor.
	Hover  *figures.Color
	Select *figures.Color

	hovered  *Node
	selected *Node
	saved    map[*Node]figures.Color
}

// Hovered returns the node under the pointer or nil.
func (h *Highlighter) Hovered() *Node { return h.hovered }

// Selected returns the last clicked node or nil.
func (h *Highlighter) Selected() *Node { return h.selected }

// Move updates the hovered node for the pointer at ndc.
func (h *Highlighter) Move(root *Node, cam *Camera, ndc ms2.Vec) *Node {
	hit, ok := Pick(root, cam, ndc, h.Policy)
	if ok && hit.Node == h.hovered {
		return h.hovered
	}
	if h.hovered != nil && h.hovered != h.selected {
		h.restore(h.hovered)
	}
	h.hovered = nil
	if !ok {
		return nil
	}
	h.hovered = hit.Node
	if h.hovered != h.selected {
		h.highlight(h.hovered, orDefault(h.Hover, HoverColor))
	}
	return h.hovered
}

// Press selects the node under the pointer at ndc. Pressing on empty space
// clears the selection.
func (h *Highlighter) Press(root *Node, cam *Camera, ndc ms2.Vec) *Node {
	hit, ok := Pick(root, cam, ndc, h.Policy)
	if h.selected != nil && (!ok || hit.Node != h.selected) {
		h.restore(h.selected)
		h.selected = nil
	}
	if !ok {
		return nil
	}
	h.selected = hit.Node
	h.highlight(h.selected, orDefault(h.Select, SelectColor))
	return h.selected
}

func (h *Highlighter) highlight(n *Node, c figures.Color) {
	if h.saved == nil {
		h.saved = make(map[*Node]figures.Color)
	}
	mat := own(n)
	if _, ok := h.saved[n]; !ok {
		h.saved[n] = mat.Emissive
	}
	mat.Emissive = c
}

func (h *Highlighter) restore(n *Node) {
	if c, ok := h.saved[n]; ok {
		n.Mesh.Material.Emissive = c
		delete(h.saved, n)
	}
}

// own gives n a private copy of its material if another mesh in its tree shares it.
func own(n *Node) *Material {
	root := n
	for root.parent != nil {
		root = root.parent
	}
	for _, m := range root.Meshes() {
		if m != n && m.Mesh.Material == n.Mesh.Material {
			n.Mesh.Material = n.Mesh.Material.Clone()
			break
		}
	}
	return n.Mesh.Material
}

func orDefault(c *figures.Color, def figures.Color) figures.Color {
	if c == nil {
		return def
	}
	return *c
}
