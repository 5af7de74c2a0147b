package loaders

import (
	"os"

	"github.com/spaghettifunk/spincube/engine/renderer/metadata"
)

// SourceLoader reads WGSL text. Compilation is left to the shaders package.
type SourceLoader struct{}

func (sl *SourceLoader) Load(name, path string) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Name:     name,
		FullPath: path,
		Type:     metadata.ResourceTypeShaderSource,
		DataSize: uint64(len(data)),
		Data:     string(data),
	}, nil
}

func (sl *SourceLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	res.DataSize = 0
	return nil
}
