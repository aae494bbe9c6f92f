package figaux

import (
	"errors"

	math "github.com/chewxy/math32"
	"github.com/soypat/figures"
	"github.com/soypat/glgl/math/ms1"
)

// Hex returns the opaque color of a 24 bit 0xRRGGBB value.
func Hex(c uint32) figures.Color {
	r, g, b := cToRGB(c)
	return figures.Color{r, g, b, 1}
}

// Gradient returns n colors interpolated in HSV space from c0 to c1, both included.
// Hue takes the short way around the color wheel. Alpha is interpolated linearly.
func Gradient(c0, c1 figures.Color, n int) []figures.Color {
	if n <= 0 {
		return nil
	} else if n == 1 {
		return []figures.Color{c0}
	}
	h0, s0, v0 := rgbToHSV(c0[0], c0[1], c0[2])
	h1, s1, v1 := rgbToHSV(c1[0], c1[1], c1[2])
	palette := make([]figures.Color, n)
	for i := range palette {
		t := float32(i) / float32(n-1)
		h, s, v := interpHSV(h0, s0, v0, h1, s1, v1, t)
		r, g, b := hsvToRGB(math.Mod(h, 1), s, v)
		palette[i] = figures.Color{r, g, b, ms1.Interp(c0[3], c1[3], t)}
	}
	return palette
}

// Recolor returns a copy of g with every run of perFace triangles painted with
// the next color of palette, cycling through it.
func Recolor(g *figures.Geometry, palette []figures.Color, perFace int) (*figures.Geometry, error) {
	if len(palette) == 0 {
		return nil, errors.New("empty palette")
	} else if perFace <= 0 {
		return nil, errors.New("non-positive triangles per face")
	}
	tris := g.Triangles(nil)
	colors := make([]figures.Color, len(tris))
	for i := range colors {
		colors[i] = palette[(i/perFace)%len(palette)]
	}
	return figures.NewGeometry(tris, colors)
}

func interpHSV(h0, s0, v0, h1, s1, v1, t float32) (h, s, v float32) {
	switch {
	case h1-h0 > 0.5:
		h0 += 1.0
	case h1-h0 < -0.5:
		h1 += 1.0
	}
	h = ms1.Interp(h0, h1, t)
	s = ms1.Interp(s0, s1, t)
	v = ms1.Interp(v0, v1, t)
	return h, s, v
}

// cToRGB splits the 24 least significant bits of c into channels in [0,1].
func cToRGB(c uint32) (r, g, b float32) {
	r = float32(uint8(c>>16)) / math.MaxUint8
	g = float32(uint8(c>>8)) / math.MaxUint8
	b = float32(uint8(c)) / math.MaxUint8
	return r, g, b
}

// hsvToRGB converts hue, saturation and value in [0,1] to RGB in [0,1].
func hsvToRGB(h, s, v float32) (r, g, b float32) {
	var (
		c = s * v
		x = c * (1 - math.Abs(math.Mod(h*6, 2)-1))
		m = v - c
	)
	switch {
	case h < 1.0/6:
		r, g, b = c, x, 0
	case h < 2.0/6:
		r, g, b = x, c, 0
	case h < 3.0/6:
		r, g, b = 0, c, x
	case h < 4.0/6:
		r, g, b = 0, x, c
	case h < 5.0/6:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return ms1.Clamp(r+m, 0, 1), ms1.Clamp(g+m, 0, 1), ms1.Clamp(b+m, 0, 1)
}

func rgbToHSV(r, g, b float32) (h, s, v float32) {
	var (
		xmax = max(r, g, b)
		xmin = min(r, g, b)
		c    = xmax - xmin
	)
	v = xmax
	switch {
	case c == 0:
		h = 0
	case v == r:
		h = (g - b) / (c * 6)
	case v == g:
		h = 1.0/3 + (b-r)/(c*6)
	case v == b:
		h = 2.0/3 + (r-g)/(c*6)
	}
	if h < 0 {
		h += 1
	}
	if xmax > 0 {
		s = c / xmax
	}
	return h, s, v
}
