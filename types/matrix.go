package types

import "github.com/go-gl/mathgl/mgl32"

// A column-major 4x4 matrix.
type Mat4 mgl32.Mat4

// Create an identity matrix.
func Ident4() Mat4 {
	return Mat4(mgl32.Ident4())
}

// Create a translation matrix.
func Translate4(t Vec3) Mat4 {
	return Mat4(mgl32.Translate3D(t[0], t[1], t[2]))
}

// Create a scale matrix.
func Scale4(s Vec3) Mat4 {
	return Mat4(mgl32.Scale3D(s[0], s[1], s[2]))
}

// Create a rotation matrix from yaw (X), pitch (Y) and roll (Z) angles given
// in radians. Rotations are applied in X, Y, Z order.
func Rotate4(yaw, pitch, roll float32) Mat4 {
	yawQuat := mgl32.QuatRotate(yaw, mgl32.Vec3{1, 0, 0})
	pitchQuat := mgl32.QuatRotate(pitch, mgl32.Vec3{0, 1, 0})
	rollQuat := mgl32.QuatRotate(roll, mgl32.Vec3{0, 0, 1})
	return Mat4(rollQuat.Mul(pitchQuat.Mul(yawQuat)).Normalize().Mat4())
}

// Multiply with another matrix.
func (m Mat4) Mul4(m2 Mat4) Mat4 {
	return Mat4(mgl32.Mat4(m).Mul4(mgl32.Mat4(m2)))
}

// Multiply with a 4 component column vector.
func (m Mat4) Mul4x1(v Vec4) Vec4 {
	return Vec4(mgl32.Mat4(m).Mul4x1(mgl32.Vec4(v)))
}

// Transform a point (w = 1) and return the xyz components of the result.
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// Check whether two matrices are equal within a small tolerance.
func (m Mat4) ApproxEqual(m2 Mat4) bool {
	return mgl32.Mat4(m).ApproxEqual(mgl32.Mat4(m2))
}
