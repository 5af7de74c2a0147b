package loaders

import (
	"os"

	"github.com/spaghettifunk/spincube/engine/renderer/metadata"
)

type BinaryLoader struct{}

func (bl *BinaryLoader) Load(name, path string) (*metadata.Resource, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Name:     name,
		FullPath: path,
		Type:     metadata.ResourceTypeBinary,
		DataSize: uint64(len(buf)),
		Data:     buf,
	}, nil
}

func (bl *BinaryLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	res.DataSize = 0
	return nil
}

// BytesToBytecode reinterprets little-endian bytes as 32-bit words. Trailing
// bytes that do not fill a word are dropped.
func BytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}
