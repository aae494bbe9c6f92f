// Package figaux has helpers to get figures on screen or on disk quickly.
// Applications with particular needs should drive [gldraw.Driver] themselves.
package figaux

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/figures"
	"github.com/soypat/figures/gldraw"
	"github.com/soypat/figures/glrender"
)

type RenderConfig struct {
	// STLOutput receives the posed triangles of every item as binary STL.
	STLOutput io.Writer
	// ImageOutput receives a PNG snapshot drawn without a GPU.
	ImageOutput   io.Writer
	Width, Height int
	// Frames are drawn Step apart before the snapshot is taken. Defaults to 1.
	Frames int
	Step   time.Duration
	// Projection defaults to [gldraw.DefaultProjection].
	Projection mgl32.Mat4
	Background figures.Color
	// Caption lines are drawn on the top left corner of the snapshot.
	Caption []string
	Silent  bool
}

// Render is an auxiliary function to export figures without a window.
// Items are advanced while drawing the snapshot and the STL holds the pose drawn last.
func Render(items []figures.Renderable, cfg RenderConfig) (err error) {
	if cfg.STLOutput == nil && cfg.ImageOutput == nil {
		return errors.New("Render requires output parameter in config")
	} else if len(items) == 0 {
		return errors.New("nothing to render")
	}
	log := func(args ...any) {
		if !cfg.Silent {
			fmt.Println(args...)
		}
	}
	if cfg.ImageOutput != nil {
		watch := stopwatch()
		img, drawn, err := snapshot(items, cfg)
		if err != nil {
			return fmt.Errorf("drawing snapshot: %w", err)
		}
		if len(cfg.Caption) > 0 {
			err = glrender.Caption(img, glrender.CaptionConfig{Color: captionColor(cfg.Background)}, cfg.Caption...)
			if err != nil {
				return fmt.Errorf("drawing caption: %w", err)
			}
		}
		err = png.Encode(cfg.ImageOutput, img)
		if err != nil {
			return fmt.Errorf("encoding PNG: %w", err)
		}
		log("drew", drawn, "triangles and wrote", outputName(cfg.ImageOutput, "PNG"), "in", watch())
	}

	if cfg.STLOutput != nil {
		watch := stopwatch()
		renderer, err := glrender.NewPoseRenderer(items...)
		if err != nil {
			return err
		}
		triangles, err := glrender.RenderAll(renderer, nil)
		if err != nil {
			return fmt.Errorf("posing triangles: %w", err)
		}
		_, err = glrender.WriteBinarySTL(cfg.STLOutput, triangles)
		if err != nil {
			return fmt.Errorf("writing STL file: %w", err)
		}
		log("wrote", len(triangles), "triangles to", outputName(cfg.STLOutput, "STL"), "in", watch())
	}
	return nil
}

func snapshot(items []figures.Renderable, cfg RenderConfig) (*image.RGBA, int, error) {
	w, h := cfg.Width, cfg.Height
	if w <= 0 || h <= 0 {
		w, h = 640, 480
	}
	ctx, err := glrender.NewSoftContext(w, h)
	if err != nil {
		return nil, 0, err
	}
	prog, err := gldraw.NewColorProgram(ctx)
	if err != nil {
		return nil, 0, err
	}
	proj := cfg.Projection
	if proj == (mgl32.Mat4{}) {
		proj = gldraw.DefaultProjection(w, h)
	}
	d, err := gldraw.NewDriver(ctx, prog, gldraw.DriverConfig{Projection: proj, Background: cfg.Background})
	if err != nil {
		return nil, 0, err
	}
	defer d.Release()
	for _, it := range items {
		if err = d.Add(it); err != nil {
			return nil, 0, err
		}
	}
	frames := max(cfg.Frames, 1)
	// Each tick draws then updates. The last update is empty so items stay in the drawn pose.
	for i := 0; i < frames; i++ {
		dt := cfg.Step
		if i == frames-1 {
			dt = 0
		}
		if err = d.Tick(dt); err != nil {
			return nil, 0, err
		}
	}
	return ctx.Image(), ctx.Drawn(), nil
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

func outputName(w io.Writer, def string) string {
	if fp, ok := w.(*os.File); ok {
		return fp.Name()
	}
	return def
}

// captionColor picks black or white text, whichever contrasts with the background.
func captionColor(bg figures.Color) color.Color {
	if 0.299*bg[0]+0.587*bg[1]+0.114*bg[2] > 0.5 {
		return color.Black
	}
	return color.White
}
