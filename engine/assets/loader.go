package assets

import "github.com/spaghettifunk/spincube/engine/renderer/metadata"

type Loader interface {
	Load(name, path string) (*metadata.Resource, error)
	Unload(*metadata.Resource) error
}
