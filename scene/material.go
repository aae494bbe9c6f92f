package scene

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"

	"github.com/chewxy/math32"
	"github.com/soypat/figures"
	"github.com/soypat/geometry/ms2"
)

// Material describes a mesh's surface. Emissive is added after lighting.
type Material struct {
	Color    figures.Color
	Emissive figures.Color
	// Map modulates Color. NormalMap and SpecularMap are carried for
	// renderers that light per pixel and are ignored by flat shading.
	Map         *Texture
	NormalMap   *Texture
	SpecularMap *Texture
}

// NewMaterial returns a material of the given color with no emission.
func NewMaterial(c figures.Color) *Material {
	return &Material{Color: c}
}

// Clone returns a shallow copy of m. Textures are shared.
func (m *Material) Clone() *Material {
	c := *m
	return &c
}

// Shade returns the flat color of a surface point with texture coordinate uv
// under ambient light. Without texture coordinates pass hasUV false.
func (m *Material) Shade(uv ms2.Vec, hasUV bool, ambient figures.Color) figures.Color {
	c := m.Color
	if m.Map != nil && hasUV {
		s := m.Map.Sample(uv)
		for i := range c {
			c[i] *= s[i]
		}
	}
	for i := 0; i < 3; i++ {
		c[i] = clamp01(c[i]*ambient[i] + m.Emissive[i])
	}
	return c
}

func clamp01(v float32) float32 { return max(0, min(1, v)) }

// Texture is a decoded image sampled with repeat wrapping.
type Texture struct {
	Image image.Image
	// RepeatU and RepeatV scale texture coordinates. Zero means 1.
	RepeatU, RepeatV float32
}

// DecodeTexture decodes a PNG, JPEG or GIF image.
func DecodeTexture(r io.Reader) (*Texture, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding texture: %w", err)
	}
	figures.Logger().Debug("texture decoded", "format", format, "bounds", img.Bounds().String())
	return &Texture{Image: img}, nil
}

// LoadTexture opens and decodes the named image in fsys.
func LoadTexture(fsys fs.FS, name string) (*Texture, error) {
	if fsys == nil {
		return nil, errors.New("nil texture filesystem")
	}
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tex, err := DecodeTexture(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return tex, nil
}

// CheckerTexture returns a texture of n×n alternating squares.
func CheckerTexture(n int, a, b color.Color) *Texture {
	n = max(n, 1)
	img := image.NewRGBA(image.Rect(0, 0, n, n))
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			c := a
			if (x+y)%2 == 1 {
				c = b
			}
			img.Set(x, y, c)
		}
	}
	return &Texture{Image: img}
}

// Sample returns the nearest texel at uv. V grows upward, so v=0 is the image's bottom row.
func (t *Texture) Sample(uv ms2.Vec) figures.Color {
	b := t.Image.Bounds()
	if b.Empty() {
		return figures.Color{1, 1, 1, 1}
	}
	u := wrap(uv.X * repeat(t.RepeatU))
	v := wrap(uv.Y * repeat(t.RepeatV))
	x := b.Min.X + min(int(u*float32(b.Dx())), b.Dx()-1)
	y := b.Min.Y + min(int((1-v)*float32(b.Dy())), b.Dy()-1)
	r, g, bl, a := t.Image.At(x, y).RGBA()
	return figures.Color{float32(r) / 0xffff, float32(g) / 0xffff, float32(bl) / 0xffff, float32(a) / 0xffff}
}

func repeat(r float32) float32 {
	if r == 0 {
		return 1
	}
	return r
}

// wrap maps v into [0, 1).
func wrap(v float32) float32 {
	v -= math32.Floor(v)
	if v >= 1 {
		v = 0
	}
	return v
}
