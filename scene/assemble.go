package scene

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/chewxy/math32"
	"github.com/soypat/figures"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// Scene is an assembled node graph with a camera and the behaviors that animate it.
// Loaded models are handed over with Deliver from any goroutine and attached
// during Update on the render goroutine.
type Scene struct {
	Root       *Node
	Camera     *Camera
	Background figures.Color
	Shadows    ShadowSettings
	// Models is the group loaded models are attached to.
	Models *Node
	// ModelURLs lists the models Load requests.
	ModelURLs []string
	// Place positions the i'th attached model before it joins Models.
	Place func(i int, n *Node)
	// OnAttach receives the renderables of each attached model.
	OnAttach  func(rs []figures.Renderable)
	Behaviors []figures.Updater

	ambient  figures.Color
	attached int
	mu       sync.Mutex
	inbox    []*Node
}

var _ figures.Updater = (*Scene)(nil)

func newScene(cam *Camera) *Scene {
	s := &Scene{
		Root:   NewGroup("root"),
		Camera: cam,
		Models: NewGroup("models"),
	}
	s.Root.Add(NewCamera("camera", cam), s.Models)
	return s
}

// Deliver queues a loaded model for attachment. Safe for concurrent use.
func (s *Scene) Deliver(url string, n *Node) {
	if n == nil {
		return
	}
	s.mu.Lock()
	s.inbox = append(s.inbox, n)
	s.mu.Unlock()
	figures.Logger().Debug("model delivered", slog.String("url", url))
}

// Load starts loading every model in ModelURLs and delivers them to the scene.
// Call Wait on the returned set to join the loads.
func (s *Scene) Load(ctx context.Context, l Loader, policy LoadPolicy) (*LoadSet, error) {
	ls, err := NewLoadSet(ctx, LoadSetConfig{Loader: l, Policy: policy, OnLoad: s.Deliver})
	if err != nil {
		return nil, err
	}
	for _, url := range s.ModelURLs {
		ls.Load(url)
	}
	return ls, nil
}

// Update attaches delivered models, then runs every behavior.
func (s *Scene) Update(dt time.Duration) {
	s.mu.Lock()
	inbox := s.inbox
	s.inbox = nil
	s.mu.Unlock()
	for _, n := range inbox {
		s.attach(n)
	}
	s.ambient = Ambient(s.Root)
	for _, b := range s.Behaviors {
		b.Update(dt)
	}
}

func (s *Scene) attach(n *Node) {
	if s.Place != nil {
		s.Place(s.attached, n)
	}
	s.attached++
	s.Models.Add(n)
	if s.OnAttach != nil {
		s.OnAttach(Renderables(n, s.Camera, &s.ambient))
	}
}

// Attached returns the number of models attached so far.
func (s *Scene) Attached() int { return s.attached }

// Renderables returns renderables for every mesh currently in the scene.
func (s *Scene) Renderables() []figures.Renderable {
	return Renderables(s.Root, s.Camera, &s.ambient)
}

// Resize sets the camera aspect for a viewport of w×h pixels.
func (s *Scene) Resize(w, h int) {
	s.Camera.SetAspect(w, h)
}

// Model names an OBJ model and its texture maps in an asset filesystem.
type Model struct {
	OBJ         string
	Map         string
	NormalMap   string
	SpecularMap string
}

// ShadowsConfig configures [Shadows].
type ShadowsConfig struct {
	Aspect float32
	Model  Model
	Assets fs.FS
	// GroundMap is the ground texture. Empty uses a generated checker.
	GroundMap string
	// ShadowMapSize defaults to 2048.
	ShadowMapSize int
}

// Shadows assembles a textured model spinning over a checkered ground, lit by
// an ambient, a directional and a spot light with shadows enabled.
func Shadows(cfg ShadowsConfig) (*Scene, error) {
	if cfg.Model.OBJ == "" {
		return nil, errors.New("shadows scene: empty model path")
	}
	mapSize := cfg.ShadowMapSize
	if mapSize <= 0 {
		mapSize = 2048
	}
	s := newScene(&Camera{
		FOV: 45, Aspect: cfg.Aspect, Near: 1, Far: 4000,
		Position: ms3.Vec{X: 15, Y: 3, Z: 6},
		Target:   ms3.Vec{Y: 6},
	})
	s.Background = figures.Color{0, 0, 0, 1}
	s.Shadows = ShadowSettings{Enabled: true, Type: BasicShadowMap}
	s.Root.Add(
		NewLight("directional", &Light{
			Kind: DirectionalLight, On: true, Color: figures.Color{0, 0, 0, 1}, Intensity: 1,
			Position: ms3.Vec{X: 6, Y: 1, Z: 1}, Target: ms3.Vec{X: 4, Y: 9},
			CastShadow: true,
		}),
		NewLight("spot", &Light{
			Kind: SpotLight, On: true, Color: figures.Color{0, 0, 0, 1}, Intensity: 1,
			Position: ms3.Vec{X: 4, Y: 15}, Target: ms3.Vec{X: 4},
			CastShadow: true,
			Shadow:     ShadowCamera{Near: 1, Far: 200, FOV: 45, MapWidth: mapSize, MapHeight: mapSize},
		}),
		NewLight("ambient", &Light{Kind: AmbientLight, On: true, Color: figures.Color{1, 1, 1, 1}, Intensity: 0.8}),
	)

	groundMap := CheckerTexture(2, color.White, color.Gray{Y: 0x80})
	if cfg.GroundMap != "" {
		if tex, err := LoadTexture(cfg.Assets, cfg.GroundMap); err != nil {
			logLoadError(cfg.GroundMap, err)
		} else {
			groundMap = tex
		}
	}
	groundMap.RepeatU, groundMap.RepeatV = 8, 8
	plane := Plane(200, 200, 50, 50)
	plane.Material = &Material{Color: figures.Color{1, 1, 1, 1}, Map: groundMap}
	plane.ReceiveShadow = true
	ground := NewMesh("ground", plane)
	ground.Rotation.X = -math32.Pi / 2
	group := NewGroup("group")
	group.Add(ground)
	s.Root.Add(group)

	maps := loadMaps(cfg.Assets, cfg.Model)
	s.ModelURLs = []string{cfg.Model.OBJ}
	s.Place = func(i int, n *Node) {
		maps.apply(n)
		n.Name = "objObject"
		n.Scale = ms3.Vec{X: 0.05, Y: 0.05, Z: 0.05}
		n.Position = ms3.Vec{}
		n.Rotation.Y = 5
	}
	s.Behaviors = append(s.Behaviors, &Spin{Models: s.Models, Step: 0.01})
	s.ambient = Ambient(s.Root)
	return s, nil
}

// DefaultFallPeriod is the [Fall] period of the interaction scene when none is given.
const DefaultFallPeriod = 20 * time.Second

// InteractionConfig configures [Interaction].
type InteractionConfig struct {
	Aspect float32
	Model  Model
	Assets fs.FS
	// Count defaults to 10.
	Count int
	// Seed seeds model placement.
	Seed uint64
	// Period is the time for one full turn of a model at twice the rate. Defaults to 20s.
	Period time.Duration
}

// Interaction assembles randomly placed models that fall and turn in front of
// the camera. Pair it with a [Highlighter] to pick models with the pointer.
func Interaction(cfg InteractionConfig) (*Scene, error) {
	if cfg.Model.OBJ == "" {
		return nil, errors.New("interaction scene: empty model path")
	}
	count := cfg.Count
	if count <= 0 {
		count = 10
	}
	period := cfg.Period
	if period <= 0 {
		period = DefaultFallPeriod
	}
	s := newScene(&Camera{
		FOV: 70, Aspect: cfg.Aspect, Near: 1, Far: 10000,
		Position: ms3.Vec{Y: -1, Z: 20},
		Target:   ms3.Vec{Y: -1},
	})
	s.Background = figures.Color{0xf0 / 255., 0xf0 / 255., 0xf0 / 255., 1}
	s.Root.Add(NewLight("ambient", &Light{Kind: AmbientLight, On: true, Color: figures.Color{1, 1, 1, 1}, Intensity: 0.95}))

	maps := loadMaps(cfg.Assets, cfg.Model)
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	for i := 0; i < count; i++ {
		s.ModelURLs = append(s.ModelURLs, cfg.Model.OBJ)
	}
	s.Place = func(i int, n *Node) {
		maps.apply(n)
		n.Name = fmt.Sprintf("model%d", i)
		n.Scale = ms3.Vec{X: 0.4, Y: 0.4, Z: 0.4}
		n.Position = ms3.Vec{
			X: rng.Float32()*200 - 100,
			Y: 300 - 100*rng.Float32() - 100,
			Z: -100 - rng.Float32()*100 + rng.Float32()*70,
		}
	}
	s.Behaviors = append(s.Behaviors, &Fall{Models: s.Models, Period: period, Floor: -5, Drop: 0.1})
	s.ambient = Ambient(s.Root)
	return s, nil
}

type textureMaps struct {
	color, normal, specular *Texture
}

func loadMaps(fsys fs.FS, m Model) textureMaps {
	load := func(name string) *Texture {
		if name == "" {
			return nil
		}
		tex, err := LoadTexture(fsys, name)
		if err != nil {
			logLoadError(name, err)
			return nil
		}
		return tex
	}
	return textureMaps{color: load(m.Map), normal: load(m.NormalMap), specular: load(m.SpecularMap)}
}

// apply gives every mesh under n the maps on a material of its own.
func (tm textureMaps) apply(n *Node) {
	for _, mesh := range n.Meshes() {
		mat := mesh.Mesh.Material.Clone()
		mat.Map, mat.NormalMap, mat.SpecularMap = tm.color, tm.normal, tm.specular
		mesh.Mesh.Material = mat
		mesh.Mesh.CastShadow = true
		mesh.Mesh.ReceiveShadow = true
	}
}

// Spin turns every child of Models about Y by Step radians each frame.
type Spin struct {
	Models *Node
	Step   float32
}

func (sp *Spin) Update(time.Duration) {
	for _, c := range sp.Models.Children() {
		c.Rotation.Y += sp.Step
	}
}

// Fall turns every child of Models about Y at half a turn per Period and
// lowers it by Drop each frame until it reaches Floor.
type Fall struct {
	Models      *Node
	Period      time.Duration
	Floor, Drop float32
}

func (f *Fall) Update(dt time.Duration) {
	angle := 2 * math32.Pi * float32(dt.Seconds()/f.Period.Seconds())
	for _, c := range f.Models.Children() {
		c.Rotation.Y += angle / 2
		if c.Position.Y > f.Floor {
			c.Position.Y -= f.Drop
		}
	}
}

// Plane returns a w×h rectangle in the XY plane centered at the origin facing +Z,
// split into segW×segH quads with texture coordinates spanning [0, 1].
func Plane(w, h float32, segW, segH int) *Mesh {
	segW, segH = max(segW, 1), max(segH, 1)
	at := func(ix, iy int) (ms3.Vec, ms2.Vec) {
		u, v := float32(ix)/float32(segW), float32(iy)/float32(segH)
		return ms3.Vec{X: (u - 0.5) * w, Y: (v - 0.5) * h}, ms2.Vec{X: u, Y: v}
	}
	mesh := &Mesh{}
	for iy := 0; iy < segH; iy++ {
		for ix := 0; ix < segW; ix++ {
			p00, t00 := at(ix, iy)
			p10, t10 := at(ix+1, iy)
			p01, t01 := at(ix, iy+1)
			p11, t11 := at(ix+1, iy+1)
			mesh.Triangles = append(mesh.Triangles, ms3.Triangle{p00, p10, p11}, ms3.Triangle{p00, p11, p01})
			mesh.UVs = append(mesh.UVs, [3]ms2.Vec{t00, t10, t11}, [3]ms2.Vec{t00, t11, t01})
		}
	}
	return mesh
}
