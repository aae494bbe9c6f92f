package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/soypat/figures"
	"github.com/soypat/figures/config"
	"github.com/soypat/figures/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	objs, err := cfg.BuildObjects()
	require.NoError(t, err)
	require.Len(t, objs, 3)
	assert.Equal(t, 8, objs[0].Geometry().NumTriangles())
	assert.Equal(t, 8, objs[1].Geometry().NumTriangles())
	assert.Equal(t, 36, objs[2].Geometry().NumTriangles())
	assert.Equal(t, figures.DefaultPeriod, objs[0].Period())
	assert.Equal(t, config.FiguresBackground, cfg.BackgroundColor(figures.Color{}))

	cfg, err = config.Parse(strings.NewReader("objects:\n  - shape: octahedron\n    axis: [0, 1, 0]\n"))
	require.NoError(t, err)
	assert.Equal(t, figures.Color{0.1, 0.1, 0.1, 1}, cfg.BackgroundColor(figures.Color{}))
}

func TestInteractionPeriod(t *testing.T) {
	fall := func(doc string) *scene.Fall {
		t.Helper()
		cfg, err := config.Parse(strings.NewReader(doc))
		require.NoError(t, err)
		assert.Nil(t, cfg.Background, "engine scenes keep their own background")
		s, err := cfg.BuildScene(1)
		require.NoError(t, err)
		for _, b := range s.Behaviors {
			if f, ok := b.(*scene.Fall); ok {
				return f
			}
		}
		t.Fatal("interaction scene has no fall behavior")
		return nil
	}
	const doc = "scene: interaction\nassets: .\nmodel:\n  obj: model.obj\n"
	assert.Equal(t, scene.DefaultFallPeriod, fall(doc).Period)
	assert.Equal(t, 4*time.Second, fall(doc+"period: 4s\n").Period)
}

func TestParse(t *testing.T) {
	const doc = `
scene: interaction
window:
  width: 1024
period: 2s
background: [0.2, 0.2, 0.2, 1]
log_level: debug
model:
  obj: lion.obj
  map: lion.jpg
load_policy: join-all
pick: nearest
`
	cfg, err := config.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, config.SceneInteraction, cfg.Scene)
	assert.Equal(t, 1024, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.Equal(t, "figures", cfg.HostConfig().Title)
	assert.Equal(t, 2*time.Second, cfg.Period.Duration())
	assert.Equal(t, figures.Color{0.2, 0.2, 0.2, 1}, cfg.BackgroundColor(figures.Color{}))
	assert.Equal(t, 10, cfg.Count)

	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
	policy, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, scene.JoinAll, policy)
	pick, err := cfg.PickPolicy()
	require.NoError(t, err)
	assert.Equal(t, scene.PickNearest, pick)
}

func TestParseErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown field":  "scene: figures\ncolour: red\n",
		"bad duration":   "period: fast\n",
		"unknown scene":  "scene: teapot\n",
		"no objects":     "scene: figures\n",
		"no model":       "scene: shadows\n",
		"bad shape":      "objects:\n  - shape: cube\n",
		"bad level":      "objects:\n  - shape: pyramid\n    axis: [0, 1, 0]\nlog_level: loud\n",
		"bad policy":     "objects:\n  - shape: pyramid\n    axis: [0, 1, 0]\nload_policy: sometimes\n",
		"short color":    "background: [1, 1]\n",
		"negative count": "scene: interaction\nmodel:\n  obj: a.obj\ncount: -1\n",
	} {
		_, err := config.Parse(strings.NewReader(doc))
		assert.Error(t, err, name)
	}
}

func TestBuildObjectsAxisError(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader("objects:\n  - shape: dodecahedron\n    axis: [0, 1, 0]\n"))
	require.NoError(t, err)
	_, err = cfg.BuildObjects()
	assert.Error(t, err, "zero second axis must be rejected")
}

func TestLoadAndBuildScene(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "figures.yaml")
	doc := "scene: shadows\nassets: " + dir + "\nmodel:\n  obj: model.obj\nprogress: true\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	s, err := cfg.BuildScene(4. / 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"model.obj"}, s.ModelURLs)
	assert.InDelta(t, 4./3, s.Camera.Aspect, 1e-6)
	assert.NotNil(t, cfg.Loader().Progress)

	_, err = config.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
	_, err = config.Default().BuildScene(1)
	assert.Error(t, err)
}
