package metadata

import (
	"encoding/binary"
	m "math"

	"github.com/spaghettifunk/spincube/engine/math"
)

/** @brief Shader stages available in the system. */
type ShaderStage int

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageFragment
)

func (s ShaderStage) String() string {
	if s == ShaderStageVertex {
		return "vertex"
	}
	return "fragment"
}

/**
 * @brief One compiled stage: SPIR-V words plus the entry point to call.
 */
type ShaderModule struct {
	Stage      ShaderStage
	EntryPoint string
	Code       []uint32
}

/**
 * @brief The vertex and fragment stages of a graphics pipeline.
 */
type ShaderProgram struct {
	Name     string
	Vertex   ShaderModule
	Fragment ShaderModule
}

/** @brief The size in bytes of UniformObject on the GPU. */
const UniformObjectSize uint64 = 64

/**
 * @brief Per-frame uniform data: the model-view-projection matrix, column-major.
 */
type UniformObject struct {
	MVP math.Mat4
}

// Bytes encodes the object in std140 layout.
func (u UniformObject) Bytes() []byte {
	out := make([]byte, 0, UniformObjectSize)
	for _, f := range u.MVP.Data {
		out = binary.LittleEndian.AppendUint32(out, m.Float32bits(f))
	}
	return out
}
