package math

import (
	m "math"
)

const (
	/** @brief An approximate representation of PI. */
	K_PI float32 = 3.14159265358979323846
	/** @brief An approximate representation of PI multiplied by 2. */
	K_PI_2 float32 = 2.0 * K_PI
	/** @brief An approximate representation of PI divided by 2. */
	K_HALF_PI float32 = 0.5 * K_PI
	/** @brief A multiplier used to convert degrees to radians. */
	K_DEG2RAD_MULTIPLIER float32 = K_PI / 180.0
	/** @brief A multiplier used to convert radians to degrees. */
	K_RAD2DEG_MULTIPLIER float32 = 180.0 / K_PI
	/** @brief Smallest positive number where 1.0 + FLOAT_EPSILON != 0 */
	K_FLOAT_EPSILON float32 = 1.192092896e-07
)

func ksin(x float32) float32 {
	return float32(m.Sin(float64(x)))
}

func kcos(x float32) float32 {
	return float32(m.Cos(float64(x)))
}

func ktan(x float32) float32 {
	return float32(m.Tan(float64(x)))
}

func ksqrt(x float32) float32 {
	return float32(m.Sqrt(float64(x)))
}

func kabs(x float32) float32 {
	return float32(m.Abs(float64(x)))
}

// ------------------------------------------
// Vector 3
// ------------------------------------------

/**
 * @brief Creates and returns a new 3-element vector using the supplied values.
 */
func NewVec3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

/** @brief Creates and returns a 3-component vector pointing up (0, 1, 0). */
func NewVec3Up() Vec3 {
	return Vec3{0.0, 1.0, 0.0}
}

/** @brief Creates and returns a 3-component zero vector. */
func NewVec3Zero() Vec3 {
	return Vec3{}
}

func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

func (v Vec3) MulScalar(scalar float32) Vec3 {
	return Vec3{v.X * scalar, v.Y * scalar, v.Z * scalar}
}

/**
 * @brief Returns the squared length of the provided vector.
 */
func (v Vec3) LengthSquared() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

/**
 * @brief Returns the length of the provided vector.
 */
func (v Vec3) Length() float32 {
	return ksqrt(v.LengthSquared())
}

/**
 * @brief Returns a normalized copy of the supplied vector. A zero-length
 * vector is returned unchanged.
 */
func (v Vec3) Normalized() Vec3 {
	length := v.Length()
	if length == 0 {
		return v
	}
	return Vec3{v.X / length, v.Y / length, v.Z / length}
}

/**
 * @brief Returns the dot product between the provided vectors.
 */
func (v Vec3) Dot(other Vec3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

/**
 * @brief Calculates and returns the cross product of the supplied vectors.
 * The cross product is a new vector which is orthoganal to both provided vectors.
 */
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X}
}

/**
 * @brief Compares all elements of both vectors and ensures the difference
 * is less than tolerance.
 */
func (v Vec3) Compare(other Vec3, tolerance float32) bool {
	return kabs(v.X-other.X) <= tolerance &&
		kabs(v.Y-other.Y) <= tolerance &&
		kabs(v.Z-other.Z) <= tolerance
}

/**
 * @brief Transform v by m. NOTE: It is assumed by this function that the
 * vector v is a point, not a direction, and is calculated as if a w component
 * with a value of 1.0f is there.
 */
func (v Vec3) Transform(mt Mat4) Vec3 {
	out := Vec3{}
	out.X = v.X*mt.Data[0+0] + v.Y*mt.Data[4+0] + v.Z*mt.Data[8+0] + 1.0*mt.Data[12+0]
	out.Y = v.X*mt.Data[0+1] + v.Y*mt.Data[4+1] + v.Z*mt.Data[8+1] + 1.0*mt.Data[12+1]
	out.Z = v.X*mt.Data[0+2] + v.Y*mt.Data[4+2] + v.Z*mt.Data[8+2] + 1.0*mt.Data[12+2]
	return out
}

// ------------------------------------------
// Vector 4
// ------------------------------------------

func NewVec4(x, y, z, w float32) Vec4 {
	return Vec4{X: x, Y: y, Z: z, W: w}
}

// ------------------------------------------
// Matrix 4
// ------------------------------------------

/**
 * @brief Creates and returns an identity matrix:
 *
 * {
 *   {1, 0, 0, 0},
 *   {0, 1, 0, 0},
 *   {0, 0, 1, 0},
 *   {0, 0, 0, 1}
 * }
 */
func NewMat4Identity() Mat4 {
	out_matrix := Mat4{}
	out_matrix.Data[0] = 1.0
	out_matrix.Data[5] = 1.0
	out_matrix.Data[10] = 1.0
	out_matrix.Data[15] = 1.0
	return out_matrix
}

/**
 * @brief Returns the combined transform that applies mt first and other second
 * (other x mt in column-vector notation).
 */
func (mt Mat4) Mul(other Mat4) Mat4 {
	out_matrix := Mat4{}

	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			sum := float32(0)
			for i := 0; i < 4; i++ {
				sum += mt.Data[row*4+i] * other.Data[i*4+col]
			}
			out_matrix.Data[row*4+col] = sum
		}
	}

	return out_matrix
}

/**
 * @brief Multiplies the 4-component column vector v by the matrix.
 */
func (mt Mat4) MulVec4(v Vec4) Vec4 {
	d := mt.Data
	return Vec4{
		X: d[0]*v.X + d[4]*v.Y + d[8]*v.Z + d[12]*v.W,
		Y: d[1]*v.X + d[5]*v.Y + d[9]*v.Z + d[13]*v.W,
		Z: d[2]*v.X + d[6]*v.Y + d[10]*v.Z + d[14]*v.W,
		W: d[3]*v.X + d[7]*v.Y + d[11]*v.Z + d[15]*v.W,
	}
}

/**
 * @brief Compares every element of both matrices against tolerance.
 */
func (mt Mat4) Compare(other Mat4, tolerance float32) bool {
	for i := range mt.Data {
		if kabs(mt.Data[i]-other.Data[i]) > tolerance {
			return false
		}
	}
	return true
}

/**
 * @brief Creates and returns a perspective matrix. Typically used to render 3d scenes.
 * Depth is mapped to [-1, 1]; combine with NewMat4VulkanClip for Vulkan.
 *
 * @param fov_radians The field of view in radians.
 * @param aspect_ratio The aspect ratio.
 * @param near_clip The near clipping plane distance.
 * @param far_clip The far clipping plane distance.
 * @return A new perspective matrix.
 */
func NewMat4Perspective(fov_radians, aspect_ratio, near_clip, far_clip float32) Mat4 {
	half_tan_fov := ktan(fov_radians * 0.5)
	out_matrix := Mat4{}
	out_matrix.Data[0] = 1.0 / (aspect_ratio * half_tan_fov)
	out_matrix.Data[5] = 1.0 / half_tan_fov
	out_matrix.Data[10] = -((far_clip + near_clip) / (far_clip - near_clip))
	out_matrix.Data[11] = -1.0
	out_matrix.Data[14] = -((2.0 * far_clip * near_clip) / (far_clip - near_clip))
	return out_matrix
}

/**
 * @brief Returns the correction from OpenGL clip space to Vulkan clip space:
 * Y points down and depth goes from 0 to 1.
 */
func NewMat4VulkanClip() Mat4 {
	out_matrix := NewMat4Identity()
	out_matrix.Data[5] = -1.0
	out_matrix.Data[10] = 0.5
	out_matrix.Data[14] = 0.5
	return out_matrix
}

/**
 * @brief Creates and returns a look-at matrix, or a matrix looking
 * at target from the perspective of position.
 *
 * @param position The position of the matrix.
 * @param target The position to "look at".
 * @param up The up vector.
 * @return A matrix looking at target from the perspective of position.
 */
func NewMat4LookAt(position, target, up Vec3) Mat4 {
	out_matrix := Mat4{}
	z_axis := target.Sub(position).Normalized()
	x_axis := z_axis.Cross(up).Normalized()
	y_axis := x_axis.Cross(z_axis)

	out_matrix.Data[0] = x_axis.X
	out_matrix.Data[1] = y_axis.X
	out_matrix.Data[2] = -z_axis.X
	out_matrix.Data[3] = 0
	out_matrix.Data[4] = x_axis.Y
	out_matrix.Data[5] = y_axis.Y
	out_matrix.Data[6] = -z_axis.Y
	out_matrix.Data[7] = 0
	out_matrix.Data[8] = x_axis.Z
	out_matrix.Data[9] = y_axis.Z
	out_matrix.Data[10] = -z_axis.Z
	out_matrix.Data[11] = 0
	out_matrix.Data[12] = -x_axis.Dot(position)
	out_matrix.Data[13] = -y_axis.Dot(position)
	out_matrix.Data[14] = z_axis.Dot(position)
	out_matrix.Data[15] = 1.0

	return out_matrix
}

/**
 * @brief Creates and returns a translation matrix from the given position.
 */
func NewMat4Translation(position Vec3) Mat4 {
	out_matrix := NewMat4Identity()
	out_matrix.Data[12] = position.X
	out_matrix.Data[13] = position.Y
	out_matrix.Data[14] = position.Z
	return out_matrix
}

/**
 * @brief Creates a rotation matrix from the provided z angle.
 */
func NewMat4EulerZ(angle_radians float32) Mat4 {
	out_matrix := NewMat4Identity()

	c := kcos(angle_radians)
	s := ksin(angle_radians)

	out_matrix.Data[0] = c
	out_matrix.Data[1] = s
	out_matrix.Data[4] = -s
	out_matrix.Data[5] = c
	return out_matrix
}

/**
 * @brief Creates a counter-clockwise rotation of angle_radians about axis.
 * The axis is normalized; a zero axis yields the identity.
 *
 * @param axis The axis of rotation.
 * @param angle_radians The angle of rotation.
 * @return A rotation matrix.
 */
func NewMat4AxisAngle(axis Vec3, angle_radians float32) Mat4 {
	n := axis.Normalized()
	if n.LengthSquared() == 0 {
		return NewMat4Identity()
	}
	c := kcos(angle_radians)
	s := ksin(angle_radians)
	t := 1.0 - c
	x, y, z := n.X, n.Y, n.Z

	out_matrix := NewMat4Identity()
	out_matrix.Data[0] = t*x*x + c
	out_matrix.Data[1] = t*x*y + s*z
	out_matrix.Data[2] = t*x*z - s*y

	out_matrix.Data[4] = t*x*y - s*z
	out_matrix.Data[5] = t*y*y + c
	out_matrix.Data[6] = t*y*z + s*x

	out_matrix.Data[8] = t*x*z + s*y
	out_matrix.Data[9] = t*y*z - s*x
	out_matrix.Data[10] = t*z*z + c
	return out_matrix
}

/**
 * @brief Returns the upper-left 3x3 block of the matrix, row by row.
 */
func (mt Mat4) Rotation() [9]float32 {
	d := mt.Data
	return [9]float32{
		d[0], d[4], d[8],
		d[1], d[5], d[9],
		d[2], d[6], d[10],
	}
}

/**
 * @brief Converts provided degrees to radians.
 */
func DegToRad(degrees float32) float32 {
	return degrees * K_DEG2RAD_MULTIPLIER
}

/**
 * @brief Converts provided radians to degrees.
 */
func RadToDeg(radians float32) float32 {
	return radians * K_RAD2DEG_MULTIPLIER
}
