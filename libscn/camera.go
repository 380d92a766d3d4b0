package libscn

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Camera struct {
	Position mgl32.Vec3
	// pitch, yaw, roll in degrees
	Orientation mgl32.Vec3
	// in degrees
	VerticalFov       float32
	ViewportDimension mgl32.Vec2
	ClippingPlanes    mgl32.Vec2
	ViewMatrix        mgl32.Mat4
	ProjectionMatrix  mgl32.Mat4
}

func NewCamera(width, height int) *Camera {
	cam := &Camera{
		Position:          mgl32.Vec3{0, 1.2, 4},
		Orientation:       mgl32.Vec3{8, 0, 0},
		VerticalFov:       60,
		ViewportDimension: mgl32.Vec2{float32(width), float32(height)},
		ClippingPlanes:    mgl32.Vec2{0.1, 1000},
	}
	cam.UpdateViewMatrix()
	cam.UpdateProjectionMatrix()
	return cam
}

func (cam *Camera) UpdateViewMatrix() {
	r := cam.Quaternion()
	t := mgl32.Translate3D(-cam.Position[0], -cam.Position[1], -cam.Position[2])
	cam.ViewMatrix = r.Mat4().Mul4(t)
}

func (cam *Camera) UpdateProjectionMatrix() {
	w, h := cam.ViewportDimension[0], cam.ViewportDimension[1]
	n, f := cam.ClippingPlanes[0], cam.ClippingPlanes[1]
	cam.ProjectionMatrix = mgl32.Perspective(mgl32.DegToRad(cam.VerticalFov), w/h, n, f)
}

func (cam *Camera) Quaternion() mgl32.Quat {
	return mgl32.AnglesToQuat(
		mgl32.DegToRad(cam.Orientation[0]),
		mgl32.DegToRad(cam.Orientation[1]),
		mgl32.DegToRad(cam.Orientation[2]),
		mgl32.XYZ)
}

func (cam *Camera) Fly(vec mgl32.Vec3) {
	r := cam.Quaternion()
	cam.Position = cam.Position.Add(r.Conjugate().Rotate(vec))
}

// Ray returns the normalized world space direction through window pixel (x, y),
// origin bottom left.
func (cam *Camera) Ray(x, y float32) mgl32.Vec3 {
	return cam.Rays()(x, y)
}

// Rays is Ray with the inverse view projection computed once, for casting many rays.
func (cam *Camera) Rays() func(x, y float32) mgl32.Vec3 {
	w, h := cam.ViewportDimension[0], cam.ViewportDimension[1]
	inv := cam.ProjectionMatrix.Mul4(cam.ViewMatrix).Inv()
	origin := cam.Position
	return func(x, y float32) mgl32.Vec3 {
		far := inv.Mul4x1(mgl32.Vec4{x/w*2 - 1, y/h*2 - 1, 1, 1})
		return far.Vec3().Mul(1 / far.W()).Sub(origin).Normalize()
	}
}
