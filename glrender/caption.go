package glrender

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var defaultFont = sync.OnceValues(func() (*truetype.Font, error) {
	return freetype.ParseFont(goregular.TTF)
})

// CaptionConfig configures text drawn by [Caption].
type CaptionConfig struct {
	// Font defaults to Go Regular.
	Font *truetype.Font
	// Size is the font size in points at 72 DPI. Defaults to 12.
	Size  float64
	Color color.Color
	// Origin is the baseline start of the first line in pixels.
	Origin image.Point
}

// Caption draws lines of text onto dst, one line per string.
func Caption(dst draw.Image, cfg CaptionConfig, lines ...string) error {
	if dst == nil {
		return errors.New("nil destination image")
	}
	f := cfg.Font
	if f == nil {
		var err error
		f, err = defaultFont()
		if err != nil {
			return err
		}
	}
	size := cfg.Size
	if size <= 0 {
		size = 12
	}
	col := cfg.Color
	if col == nil {
		col = color.White
	}
	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(f)
	ctx.SetFontSize(size)
	ctx.SetHinting(font.HintingFull)
	ctx.SetClip(dst.Bounds())
	ctx.SetDst(dst)
	ctx.SetSrc(image.NewUniform(col))
	origin := cfg.Origin
	if origin == (image.Point{}) {
		origin = image.Pt(dst.Bounds().Min.X+4, dst.Bounds().Min.Y+int(size))
	}
	lineHeight := int(size * 1.3)
	for i, line := range lines {
		_, err := ctx.DrawString(line, freetype.Pt(origin.X, origin.Y+i*lineHeight))
		if err != nil {
			return err
		}
	}
	return nil
}
