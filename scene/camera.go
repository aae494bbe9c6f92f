package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// Camera is a perspective camera looking from Position at Target.
type Camera struct {
	// FOV is the vertical field of view in degrees.
	FOV    float32
	Aspect float32
	Near   float32
	Far    float32

	Position ms3.Vec
	Target   ms3.Vec
	// Up defaults to +Y when zero.
	Up ms3.Vec
}

// Projection returns the perspective projection matrix.
func (c *Camera) Projection() mgl32.Mat4 {
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, c.Near, c.Far)
}

// View returns the world to camera transform. A target equal to the position looks down -Z.
func (c *Camera) View() mgl32.Mat4 {
	target := c.Target
	if target == c.Position {
		target = ms3.Sub(c.Position, ms3.Vec{Z: 1})
	}
	up := c.Up
	if up == (ms3.Vec{}) {
		up = ms3.Vec{Y: 1}
	}
	return mgl32.LookAtV(vec3(c.Position), vec3(target), vec3(up))
}

// SetAspect updates the aspect ratio from a viewport size in pixels.
func (c *Camera) SetAspect(width, height int) {
	if width > 0 && height > 0 {
		c.Aspect = float32(width) / float32(height)
	}
}

// Ray is a half line in world space. Dir has unit length.
type Ray struct {
	Origin ms3.Vec
	Dir    ms3.Vec
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) ms3.Vec {
	return ms3.Add(r.Origin, ms3.Scale(t, r.Dir))
}

// Ray returns the ray from the camera through ndc, the normalized device
// coordinates of a viewport point with both components in [-1, 1].
func (c *Camera) Ray(ndc ms2.Vec) Ray {
	inv := c.Projection().Mul4(c.View()).Inv()
	near := mgl32.TransformCoordinate(mgl32.Vec3{ndc.X, ndc.Y, -1}, inv)
	far := mgl32.TransformCoordinate(mgl32.Vec3{ndc.X, ndc.Y, 1}, inv)
	dir := ms3.Sub(fromVec3(far), fromVec3(near))
	if n := ms3.Norm(dir); n > 0 {
		dir = ms3.Scale(1/n, dir)
	}
	return Ray{Origin: c.Position, Dir: dir}
}

// NDC converts a pointer position in pixels, origin at the top left corner,
// to normalized device coordinates.
func NDC(x, y float32, width, height int) ms2.Vec {
	if width <= 0 || height <= 0 {
		return ms2.Vec{}
	}
	return ms2.Vec{
		X: x/float32(width)*2 - 1,
		Y: -y/float32(height)*2 + 1,
	}
}

// Distance returns the distance from the camera to p.
func (c *Camera) Distance(p ms3.Vec) float32 {
	return ms3.Norm(ms3.Sub(p, c.Position))
}

func vec3(v ms3.Vec) mgl32.Vec3 { return mgl32.Vec3{v.X, v.Y, v.Z} }

func fromVec3(v mgl32.Vec3) ms3.Vec { return ms3.Vec{X: v[0], Y: v[1], Z: v[2]} }
