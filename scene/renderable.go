package scene

import (
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/figures"
	"github.com/soypat/geometry/ms2"
)

// maxTriangles is the most triangles one geometry holds with unshared vertices.
const maxTriangles = figures.MaxVertices / 3

// MeshRenderable draws a range of a mesh node's triangles with flat colors
// baked from its material. The geometry is rebuilt when the material's
// color, emission or map change.
type MeshRenderable struct {
	node    *Node
	cam     *Camera
	ambient *figures.Color
	first   int
	count   int

	geom *figures.Geometry
	key  shadeKey
}

type shadeKey struct {
	color, emissive, ambient figures.Color
	tex                      *Texture
}

var _ figures.Renderable = (*MeshRenderable)(nil)

// Renderables adapts every mesh node under root to a [figures.Renderable]
// viewed through cam. Meshes too large for one geometry are split. ambient
// is read every frame.
func Renderables(root *Node, cam *Camera, ambient *figures.Color) []figures.Renderable {
	var rs []figures.Renderable
	for _, n := range root.Meshes() {
		for first := 0; first < len(n.Mesh.Triangles); first += maxTriangles {
			rs = append(rs, &MeshRenderable{
				node:    n,
				cam:     cam,
				ambient: ambient,
				first:   first,
				count:   min(maxTriangles, len(n.Mesh.Triangles)-first),
			})
		}
	}
	return rs
}

// Node returns the mesh node drawn.
func (r *MeshRenderable) Node() *Node { return r.node }

// Geometry returns the baked geometry, rebuilding it if the material changed.
func (r *MeshRenderable) Geometry() *figures.Geometry {
	key := r.shadeKey()
	if r.geom != nil && key == r.key {
		return r.geom
	}
	g, err := r.bake()
	if err != nil {
		figures.Logger().Error("baking mesh", slog.String("node", r.node.Name), slog.String("err", err.Error()))
		return r.geom
	}
	r.geom, r.key = g, key
	return g
}

// ModelView returns the camera view times the node's world transform.
func (r *MeshRenderable) ModelView() mgl32.Mat4 {
	return r.cam.View().Mul4(r.node.World())
}

// Update does nothing. Scene behaviors animate nodes.
func (r *MeshRenderable) Update(time.Duration) {}

func (r *MeshRenderable) shadeKey() shadeKey {
	m := r.node.Mesh.Material
	k := shadeKey{color: m.Color, emissive: m.Emissive, tex: m.Map, ambient: figures.Color{1, 1, 1, 1}}
	if r.ambient != nil {
		k.ambient = *r.ambient
	}
	return k
}

func (r *MeshRenderable) bake() (*figures.Geometry, error) {
	mesh := r.node.Mesh
	tris := mesh.Triangles[r.first : r.first+r.count]
	hasUV := len(mesh.UVs) == len(mesh.Triangles)
	ambient := r.shadeKey().ambient
	colors := make([]figures.Color, len(tris))
	for i := range tris {
		var uv ms2.Vec
		if hasUV {
			t := mesh.UVs[r.first+i]
			uv = ms2.Vec{X: (t[0].X + t[1].X + t[2].X) / 3, Y: (t[0].Y + t[1].Y + t[2].Y) / 3}
		}
		colors[i] = mesh.Material.Shade(uv, hasUV, ambient)
	}
	return figures.NewGeometry(tris, colors)
}
