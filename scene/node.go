// Package scene assembles textured models, lights and a camera into a node
// graph, loads models asynchronously, picks nodes under the pointer and adapts
// meshes to [figures.Renderable] so the frame driver can draw them.
package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/figures"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// Kind tags the payload carried by a [Node].
type Kind uint8

const (
	KindGroup Kind = iota
	KindMesh
	KindLight
	KindCamera
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindMesh:
		return "mesh"
	case KindLight:
		return "light"
	case KindCamera:
		return "camera"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ErrSkipChildren is returned by a walk function to skip the children of the current node.
var ErrSkipChildren = errors.New("skip children")

// Transform is a node's local placement: scale first, then rotation, then translation.
type Transform struct {
	Position ms3.Vec
	// Rotation holds Euler angles in radians applied in X, Y, Z order.
	Rotation ms3.Vec
	Scale    ms3.Vec
}

// Identity returns the transform with unit scale.
func Identity() Transform { return Transform{Scale: ms3.Vec{X: 1, Y: 1, Z: 1}} }

// Matrix returns T·Rx·Ry·Rz·S.
func (t Transform) Matrix() mgl32.Mat4 {
	m := mgl32.Translate3D(t.Position.X, t.Position.Y, t.Position.Z)
	if t.Rotation != (ms3.Vec{}) {
		m = m.Mul4(mgl32.HomogRotate3DX(t.Rotation.X)).
			Mul4(mgl32.HomogRotate3DY(t.Rotation.Y)).
			Mul4(mgl32.HomogRotate3DZ(t.Rotation.Z))
	}
	return m.Mul4(mgl32.Scale3D(t.Scale.X, t.Scale.Y, t.Scale.Z))
}

// Node is an element of the scene graph. Kind selects which of Mesh, Light
// or Camera is set. Nodes are not safe for concurrent use.
type Node struct {
	Name string
	Kind Kind
	Transform

	Mesh   *Mesh
	Light  *Light
	Camera *Camera

	parent   *Node
	children []*Node
}

// Mesh is triangle soup with optional per-corner texture coordinates.
type Mesh struct {
	Triangles []ms3.Triangle
	// UVs is empty or holds one coordinate triple per triangle.
	UVs           [][3]ms2.Vec
	Material      *Material
	CastShadow    bool
	ReceiveShadow bool
}

// Validate checks UVs match triangles.
func (m *Mesh) Validate() error {
	if len(m.Triangles) == 0 {
		return errors.New("mesh has no triangles")
	}
	if len(m.UVs) != 0 && len(m.UVs) != len(m.Triangles) {
		return fmt.Errorf("mesh has %d uv triples for %d triangles", len(m.UVs), len(m.Triangles))
	}
	return nil
}

// NewGroup returns an empty group node.
func NewGroup(name string) *Node {
	return &Node{Name: name, Kind: KindGroup, Transform: Identity()}
}

// NewMesh returns a mesh node. A nil material is replaced by a white one.
func NewMesh(name string, mesh *Mesh) *Node {
	if mesh.Material == nil {
		mesh.Material = NewMaterial(figures.Color{1, 1, 1, 1})
	}
	return &Node{Name: name, Kind: KindMesh, Transform: Identity(), Mesh: mesh}
}

// NewLight returns a light node positioned at light.Position.
func NewLight(name string, light *Light) *Node {
	n := &Node{Name: name, Kind: KindLight, Transform: Identity(), Light: light}
	n.Position = light.Position
	return n
}

// NewCamera returns a camera node.
func NewCamera(name string, cam *Camera) *Node {
	n := &Node{Name: name, Kind: KindCamera, Transform: Identity(), Camera: cam}
	n.Position = cam.Position
	return n
}

// Parent returns the node's parent or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the node's children. The slice must not be modified.
func (n *Node) Children() []*Node { return n.children }

// Add appends children to n, detaching them from any previous parent.
func (n *Node) Add(children ...*Node) {
	for _, c := range children {
		if c == nil || c == n {
			continue
		}
		if c.parent != nil {
			c.parent.Remove(c)
		}
		c.parent = n
		n.children = append(n.children, c)
	}
}

// Remove detaches child from n and reports whether it was a child.
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

// Walk calls fn for n and its descendants in depth first pre-order. If fn
// returns [ErrSkipChildren] the node's children are not visited. Any other
// error stops the walk and is returned.
func (n *Node) Walk(fn func(*Node) error) error {
	err := fn(n)
	if err == ErrSkipChildren {
		return nil
	} else if err != nil {
		return err
	}
	for _, c := range n.children {
		if err = c.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Find returns the first node in pre-order with the given name.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Walk(func(c *Node) error {
		if c.Name == name {
			found = c
			return errStopWalk
		}
		return nil
	})
	return found
}

var errStopWalk = errors.New("stop walk")

// World returns the transform from the node's local frame to the root frame.
func (n *Node) World() mgl32.Mat4 {
	m := n.Matrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.Matrix().Mul4(m)
	}
	return m
}

// Meshes returns every mesh node under n including n.
func (n *Node) Meshes() []*Node {
	var meshes []*Node
	n.Walk(func(c *Node) error {
		if c.Kind == KindMesh && c.Mesh != nil {
			meshes = append(meshes, c)
		}
		return nil
	})
	return meshes
}

// Lights returns every light node under n including n.
func (n *Node) Lights() []*Node {
	var lights []*Node
	n.Walk(func(c *Node) error {
		if c.Kind == KindLight && c.Light != nil {
			lights = append(lights, c)
		}
		return nil
	})
	return lights
}

// SetMaterial sets m on every mesh under n. Nodes share m.
func (n *Node) SetMaterial(m *Material) {
	for _, mesh := range n.Meshes() {
		mesh.Mesh.Material = m
	}
}

// SetShadows sets the shadow flags of every mesh under n.
func (n *Node) SetShadows(cast, receive bool) {
	for _, mesh := range n.Meshes() {
		mesh.Mesh.CastShadow = cast
		mesh.Mesh.ReceiveShadow = receive
	}
}

// String returns the node's kind and name.
func (n *Node) String() string {
	return fmt.Sprintf("%s %q", n.Kind, n.Name)
}

// LightKind selects how a [Light] illuminates the scene.
type LightKind uint8

const (
	AmbientLight LightKind = iota
	DirectionalLight
	SpotLight
	PointLight
)

func (k LightKind) String() string {
	switch k {
	case AmbientLight:
		return "ambient"
	case DirectionalLight:
		return "directional"
	case SpotLight:
		return "spot"
	case PointLight:
		return "point"
	}
	return fmt.Sprintf("LightKind(%d)", k)
}

// Light is a light source. Target is used by directional and spot lights.
type Light struct {
	Kind      LightKind
	On        bool
	Color     figures.Color
	Intensity float32
	Position  ms3.Vec
	Target    ms3.Vec
	// CastShadow enables the light's shadow camera.
	CastShadow bool
	Shadow     ShadowCamera
}

// ShadowCamera is the perspective used to render a light's shadow map.
type ShadowCamera struct {
	Near, Far float32
	// FOV is the vertical field of view in degrees.
	FOV       float32
	MapWidth  int
	MapHeight int
}

// ShadowMapType is the filtering applied to shadow maps.
type ShadowMapType uint8

const (
	BasicShadowMap ShadowMapType = iota
	PCFShadowMap
	PCFSoftShadowMap
)

// ShadowSettings are renderer wide shadow parameters.
type ShadowSettings struct {
	Enabled bool
	Type    ShadowMapType
}

// Ambient returns the sum of the enabled ambient lights under root, clamped to 1.
func Ambient(root *Node) figures.Color {
	var c figures.Color
	for _, n := range root.Lights() {
		l := n.Light
		if !l.On || l.Kind != AmbientLight {
			continue
		}
		for i := 0; i < 3; i++ {
			c[i] = min(1, c[i]+l.Color[i]*l.Intensity)
		}
	}
	c[3] = 1
	return c
}
