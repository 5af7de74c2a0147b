package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief Unknown files are not indexed. */
	ResourceTypeNone ResourceType = iota
	/** @brief Binary resource type. */
	ResourceTypeBinary
	/** @brief Compiled SPIR-V shader module. */
	ResourceTypeShader
	/** @brief WGSL shader source, compiled at load time. */
	ResourceTypeShaderSource
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeBinary:
		return "binary"
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeShaderSource:
		return "shader-source"
	default:
		return "none"
	}
}

/** @brief The first word of every SPIR-V module. */
const SPIRVMagic uint32 = 0x07230203

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The name of the resource, relative to the asset root. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	Type     ResourceType
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. SPIR-V loads as []uint32, everything else as []byte. */
	Data interface{}
}
