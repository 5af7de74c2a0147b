package loaders

import (
	"fmt"
	"os"

	"github.com/spaghettifunk/spincube/engine/renderer/metadata"
)

// ShaderLoader reads compiled SPIR-V modules.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(name, path string) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	code, err := ParseSPIRV(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &metadata.Resource{
		Name:     name,
		FullPath: path,
		Type:     metadata.ResourceTypeShader,
		DataSize: uint64(len(data)),
		Data:     code,
	}, nil
}

func (sl *ShaderLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	res.DataSize = 0
	return nil
}

// ParseSPIRV checks the module header and returns its words.
func ParseSPIRV(data []byte) ([]uint32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("spir-v size %d is not a positive multiple of 4", len(data))
	}
	code := BytesToBytecode(data)
	if code[0] != metadata.SPIRVMagic {
		return nil, fmt.Errorf("bad spir-v magic 0x%08x", code[0])
	}
	return code, nil
}
