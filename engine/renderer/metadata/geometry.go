package metadata

import (
	"encoding/binary"
	m "math"

	"github.com/spaghettifunk/spincube/engine/math"
)

/**
 * @brief A single vertex: position and color.
 */
type Vertex3D struct {
	Position math.Vec3
	Color    math.Vec4
}

/** @brief The size in bytes of one Vertex3D in a vertex buffer. */
const Vertex3DSize uint32 = (3 + 4) * 4

/** @brief The size in bytes of one index. */
const IndexSize uint32 = 2

type VertexFormat int

const (
	VertexFormatFloat32x3 VertexFormat = iota
	VertexFormatFloat32x4
)

func (f VertexFormat) Size() uint32 {
	switch f {
	case VertexFormatFloat32x3:
		return 12
	case VertexFormatFloat32x4:
		return 16
	}
	return 0
}

type VertexAttribute struct {
	Location uint32
	Format   VertexFormat
	Offset   uint32
}

/**
 * @brief Describes how a vertex buffer is read by the vertex stage.
 */
type VertexLayout struct {
	Stride     uint32
	Attributes []VertexAttribute
}

// Vertex3DLayout is position at location 0 followed by color at location 1.
func Vertex3DLayout() VertexLayout {
	return VertexLayout{
		Stride: Vertex3DSize,
		Attributes: []VertexAttribute{
			{Location: 0, Format: VertexFormatFloat32x3, Offset: 0},
			{Location: 1, Format: VertexFormatFloat32x4, Offset: 12},
		},
	}
}

/**
 * @brief Indexed triangle geometry. Immutable once uploaded.
 */
type Mesh struct {
	Name     string
	Vertices []Vertex3D
	Indices  []uint16
}

func (mesh *Mesh) IndexCount() uint32 {
	return uint32(len(mesh.Indices))
}

// VertexBytes encodes the vertices as tightly packed little-endian float32s.
func (mesh *Mesh) VertexBytes() []byte {
	out := make([]byte, 0, len(mesh.Vertices)*int(Vertex3DSize))
	for _, v := range mesh.Vertices {
		for _, f := range [7]float32{v.Position.X, v.Position.Y, v.Position.Z, v.Color.X, v.Color.Y, v.Color.Z, v.Color.W} {
			out = binary.LittleEndian.AppendUint32(out, m.Float32bits(f))
		}
	}
	return out
}

// IndexBytes encodes the indices as little-endian uint16s.
func (mesh *Mesh) IndexBytes() []byte {
	out := make([]byte, 0, len(mesh.Indices)*int(IndexSize))
	for _, i := range mesh.Indices {
		out = binary.LittleEndian.AppendUint16(out, i)
	}
	return out
}

/**
 * @brief Creates the unit cube centered at the origin: 8 colored corners at
 * +-0.5 and 12 counter-clockwise triangles (36 indices) seen from outside.
 */
func NewCubeMesh() *Mesh {
	const h = 0.5
	corners := [8]math.Vec3{
		{X: -h, Y: -h, Z: h},  // 0 left  bottom front
		{X: h, Y: -h, Z: h},   // 1 right bottom front
		{X: h, Y: h, Z: h},    // 2 right top    front
		{X: -h, Y: h, Z: h},   // 3 left  top    front
		{X: -h, Y: -h, Z: -h}, // 4 left  bottom back
		{X: h, Y: -h, Z: -h},  // 5 right bottom back
		{X: h, Y: h, Z: -h},   // 6 right top    back
		{X: -h, Y: h, Z: -h},  // 7 left  top    back
	}
	colors := [8]math.Vec4{
		{X: 1, Y: 0, Z: 0, W: 1},
		{X: 0, Y: 1, Z: 0, W: 1},
		{X: 0, Y: 0, Z: 1, W: 1},
		{X: 1, Y: 1, Z: 0, W: 1},
		{X: 1, Y: 0, Z: 1, W: 1},
		{X: 0, Y: 1, Z: 1, W: 1},
		{X: 1, Y: 1, Z: 1, W: 1},
		{X: 0.2, Y: 0.2, Z: 0.2, W: 1},
	}
	mesh := &Mesh{
		Name:     "cube",
		Vertices: make([]Vertex3D, len(corners)),
		Indices: []uint16{
			0, 1, 2, 2, 3, 0, // front  +z
			1, 5, 6, 6, 2, 1, // right  +x
			5, 4, 7, 7, 6, 5, // back   -z
			4, 0, 3, 3, 7, 4, // left   -x
			3, 2, 6, 6, 7, 3, // top    +y
			4, 5, 1, 1, 0, 4, // bottom -y
		},
	}
	for i := range corners {
		mesh.Vertices[i] = Vertex3D{Position: corners[i], Color: colors[i]}
	}
	return mesh
}
