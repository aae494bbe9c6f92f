// Package config reads the YAML description of what a figures program shows
// and builds the objects and scenes it describes.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/soypat/figures"
	"github.com/soypat/figures/gldraw"
	"github.com/soypat/figures/scene"
	"github.com/soypat/geometry/ms3"
	"gopkg.in/yaml.v3"
)

// Scene names.
const (
	SceneFigures     = "figures"
	SceneShadows     = "shadows"
	SceneInteraction = "interaction"
)

// FiguresBackground is the clear color of the figures scene when none is configured.
var FiguresBackground = figures.Color{0.1, 0.1, 0.1, 1}

// Config is the top level configuration document.
type Config struct {
	Scene  string `yaml:"scene"`
	Window Window `yaml:"window"`
	// Period is the time of one full turn of a figure, or the fall period of the
	// interaction scene. The shadows scene ignores it.
	Period     Duration       `yaml:"period"`
	Background *figures.Color `yaml:"background"`
	LogLevel   string         `yaml:"log_level"`
	Objects    []Object       `yaml:"objects"`

	// Assets is the directory models and textures are read from.
	Assets     string `yaml:"assets"`
	Model      Model  `yaml:"model"`
	GroundMap  string `yaml:"ground_map"`
	Count      int    `yaml:"count"`
	Seed       uint64 `yaml:"seed"`
	LoadPolicy string `yaml:"load_policy"`
	Pick       string `yaml:"pick"`
	Progress   bool   `yaml:"progress"`
}

// Window configures the host window or canvas.
type Window struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Canvas string `yaml:"canvas"`
	VSync  bool   `yaml:"vsync"`
}

// Object describes one polyhedron of the figures scene.
type Object struct {
	Shape       string     `yaml:"shape"`
	Translation [3]float32 `yaml:"translation"`
	Axis        [3]float32 `yaml:"axis"`
	// AxisB is the second axis of the dodecahedron.
	AxisB [3]float32 `yaml:"axis_b"`
}

// Model names an OBJ model and its texture maps relative to Assets.
type Model struct {
	OBJ         string `yaml:"obj"`
	Map         string `yaml:"map"`
	NormalMap   string `yaml:"normal_map"`
	SpecularMap string `yaml:"specular_map"`
}

// Duration wraps time.Duration for YAML unmarshaling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns the figures scene with one polyhedron of each kind.
func Default() *Config {
	cfg := &Config{
		Scene: SceneFigures,
		Objects: []Object{
			{Shape: "pyramid", Translation: [3]float32{-2.5, 0, -2}, Axis: [3]float32{0.1, 1, 0.2}},
			{Shape: "octahedron", Translation: [3]float32{0, 0, -2}, Axis: [3]float32{0, 1, 0}},
			{Shape: "dodecahedron", Translation: [3]float32{2.5, 0, -2}, Axis: [3]float32{-0.4, 1, 0.1}, AxisB: [3]float32{1, 0, 0}},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	defer f.Close()
	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a configuration document, fills in defaults and validates it.
// Unknown fields are errors.
func Parse(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Scene == "" {
		c.Scene = SceneFigures
	}
	if c.Window.Title == "" {
		c.Window.Title = "figures"
	}
	if c.Window.Width == 0 {
		c.Window.Width = 800
	}
	if c.Window.Height == 0 {
		c.Window.Height = 600
	}
	if c.Scene == SceneFigures && c.Background == nil {
		bg := FiguresBackground
		c.Background = &bg
	}
	if c.Period == 0 {
		c.Period = Duration(figures.DefaultPeriod)
		if c.Scene == SceneInteraction {
			c.Period = Duration(scene.DefaultFallPeriod)
		}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Assets == "" {
		c.Assets = "."
	}
	if c.Count == 0 {
		c.Count = 10
	}
	if c.LoadPolicy == "" {
		c.LoadPolicy = scene.FireAndForget.String()
	}
	if c.Pick == "" {
		c.Pick = scene.PickFarthest.String()
	}
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs []error
	switch c.Scene {
	case SceneFigures:
		if len(c.Objects) == 0 {
			errs = append(errs, errors.New("figures scene has no objects"))
		}
	case SceneShadows, SceneInteraction:
		if c.Model.OBJ == "" {
			errs = append(errs, fmt.Errorf("%s scene needs model.obj", c.Scene))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown scene %q", c.Scene))
	}
	if c.Window.Width < 0 || c.Window.Height < 0 {
		errs = append(errs, fmt.Errorf("negative window size %dx%d", c.Window.Width, c.Window.Height))
	}
	if c.Period < 0 {
		errs = append(errs, fmt.Errorf("negative period %s", c.Period.Duration()))
	}
	if c.Count < 0 {
		errs = append(errs, fmt.Errorf("negative model count %d", c.Count))
	}
	for i, obj := range c.Objects {
		switch obj.Shape {
		case "pyramid", "octahedron", "dodecahedron":
		default:
			errs = append(errs, fmt.Errorf("object %d: unknown shape %q", i, obj.Shape))
		}
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Policy(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.PickPolicy(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(c.LogLevel))
	if err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}

// Policy returns the configured model load policy.
func (c *Config) Policy() (scene.LoadPolicy, error) {
	for _, p := range []scene.LoadPolicy{scene.FireAndForget, scene.JoinAll} {
		if p.String() == c.LoadPolicy {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown load_policy %q", c.LoadPolicy)
}

// PickPolicy returns the configured picking policy.
func (c *Config) PickPolicy() (scene.PickPolicy, error) {
	for _, p := range []scene.PickPolicy{scene.PickNearest, scene.PickFarthest} {
		if p.String() == c.Pick {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown pick %q", c.Pick)
}

// HostConfig returns the window configuration for [gldraw.StartHost].
func (c *Config) HostConfig() gldraw.HostConfig {
	return gldraw.HostConfig{
		Title:  c.Window.Title,
		Width:  c.Window.Width,
		Height: c.Window.Height,
		Canvas: c.Window.Canvas,
		VSync:  c.Window.VSync,
	}
}

// BackgroundColor returns the clear color of the configured scene.
func (c *Config) BackgroundColor(def figures.Color) figures.Color {
	if c.Background != nil {
		return *c.Background
	}
	return def
}

// BuildObjects creates the polyhedra of the figures scene. Errors of every
// object are accumulated.
func (c *Config) BuildObjects() ([]*figures.Object, error) {
	bld := figures.Builder{NoDimensionPanic: true, Period: c.Period.Duration()}
	var objs []*figures.Object
	for _, o := range c.Objects {
		tr := vec(o.Translation)
		switch o.Shape {
		case "pyramid":
			objs = append(objs, bld.NewPyramid(tr, vec(o.Axis)))
		case "octahedron":
			objs = append(objs, bld.NewOctahedron(tr, vec(o.Axis)))
		case "dodecahedron":
			objs = append(objs, bld.NewDodecahedron(tr, vec(o.Axis), vec(o.AxisB)))
		default:
			return nil, fmt.Errorf("unknown shape %q", o.Shape)
		}
	}
	if err := bld.Err(); err != nil {
		return nil, err
	}
	return objs, nil
}

// BuildScene assembles the configured engine scene with the given viewport aspect ratio.
func (c *Config) BuildScene(aspect float32) (*scene.Scene, error) {
	assets := os.DirFS(c.Assets)
	model := scene.Model{
		OBJ:         c.Model.OBJ,
		Map:         c.Model.Map,
		NormalMap:   c.Model.NormalMap,
		SpecularMap: c.Model.SpecularMap,
	}
	var s *scene.Scene
	var err error
	switch c.Scene {
	case SceneShadows:
		s, err = scene.Shadows(scene.ShadowsConfig{Aspect: aspect, Model: model, Assets: assets, GroundMap: c.GroundMap})
	case SceneInteraction:
		s, err = scene.Interaction(scene.InteractionConfig{Aspect: aspect, Model: model, Assets: assets, Count: c.Count, Seed: c.Seed, Period: c.Period.Duration()})
	default:
		return nil, fmt.Errorf("scene %q is not an engine scene", c.Scene)
	}
	if err != nil {
		return nil, err
	}
	if c.Background != nil {
		s.Background = *c.Background
	}
	return s, nil
}

// Loader returns the OBJ loader for the configured assets.
func (c *Config) Loader() *scene.OBJLoader {
	l := &scene.OBJLoader{FS: os.DirFS(c.Assets)}
	if c.Progress {
		l.Progress = scene.TerminalProgress
	}
	return l
}

func vec(v [3]float32) ms3.Vec { return ms3.Vec{X: v[0], Y: v[1], Z: v[2]} }
