package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/spincube/engine/assets/loaders"
	"github.com/spaghettifunk/spincube/engine/core"
	"github.com/spaghettifunk/spincube/engine/renderer/metadata"
)

var ErrAssetManagerClosed = errors.New("asset manager already closed")

type AssetInfo struct {
	Name     string
	Path     string
	Type     metadata.ResourceType
	Modified time.Time
	// Version increases every time the file is written.
	Version uint64
}

// Event reports a change to an indexed asset.
type Event struct {
	Name string
	Op   fsnotify.Op
}

// AssetManager indexes shader files under a root directory and keeps the
// index current with fsnotify.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
	events   chan Event
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[metadata.ResourceType]Loader),
		fsnotify: fsWatch,
		events:   make(chan Event, 16),
		done:     make(chan struct{}),
	}, nil
}

// Initialize indexes everything below assetsDir and starts watching it.
func (am *AssetManager) Initialize(assetsDir string) error {
	if am.isClosed {
		return ErrAssetManagerClosed
	}
	root, err := filepath.Abs(assetsDir)
	if err != nil {
		return err
	}
	am.root = root

	// Register loaders
	am.registerLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(metadata.ResourceTypeShaderSource, &loaders.SourceLoader{})
	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})

	if err := am.watchRecursive(root); err != nil {
		return err
	}

	am.wg.Add(1)
	go am.start()

	core.LogDebug("asset manager watching %s (%d assets)", root, len(am.List()))
	return nil
}

// Root returns the absolute directory being watched.
func (am *AssetManager) Root() string {
	return am.root
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// Info returns the index entry for name, a slash separated path relative to the root.
func (am *AssetManager) Info(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	asset, ok := am.assets[name]
	return asset, ok
}

// List returns the indexed asset names in lexical order.
func (am *AssetManager) List() []string {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	names := make([]string, 0, len(am.assets))
	for name := range am.assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Events delivers changes to indexed assets. Events are dropped when nobody reads.
func (am *AssetManager) Events() <-chan Event {
	return am.events
}

// LoadAsset reads name with the loader registered for its type.
func (am *AssetManager) LoadAsset(name string) (*metadata.Resource, error) {
	asset, exists := am.Info(name)
	if !exists {
		return nil, fmt.Errorf("asset not found: %s", name)
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", asset.Type)
	}

	return loader.Load(asset.Name, asset.Path)
}

func (am *AssetManager) UnloadAsset(res *metadata.Resource) error {
	if res == nil {
		return nil
	}
	loader, ok := am.loaders[res.Type]
	if !ok {
		return fmt.Errorf("no loader registered for asset type: %s", res.Type)
	}
	return loader.Unload(res)
}

// Shutdown stops the watcher goroutine. Safe to call more than once.
func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	am.wg.Wait()
	return am.fsnotify.Close()
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name); err != nil {
						core.LogWarn("failed to watch %s: %s", e.Name, err)
					}
				}
				continue
			}
			var name string
			switch {
			case e.Op&(fsnotify.Create|fsnotify.Write) != 0:
				name = am.handleFileEvent(e.Name)
			case e.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				name = am.removeAsset(e.Name)
			}
			if name != "" {
				am.notify(Event{Name: name, Op: e.Op})
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("%s", err)

		case <-am.done:
			return
		}
	}
}

func (am *AssetManager) notify(e Event) {
	select {
	case am.events <- e:
	default:
		core.LogDebug("asset event for %s dropped", e.Name)
	}
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes the files it finds.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

func (am *AssetManager) assetName(path string) (string, bool) {
	rel, err := filepath.Rel(am.root, path)
	if err != nil || rel == ".." || filepath.IsAbs(rel) || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Handle the creation or modification of a file. Returns the indexed name.
func (am *AssetManager) handleFileEvent(path string) string {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return ""
	}
	name, ok := am.assetName(path)
	if !ok {
		return ""
	}
	modified := time.Now()
	if fi, err := os.Stat(path); err == nil {
		modified = fi.ModTime()
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()

	prev := am.assets[name]
	am.assets[name] = AssetInfo{
		Name:     name,
		Path:     path,
		Type:     assetType,
		Modified: modified,
		Version:  prev.Version + 1,
	}
	return name
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) string {
	name, ok := am.assetName(path)
	if !ok {
		return ""
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()

	if _, exists := am.assets[name]; !exists {
		return ""
	}
	delete(am.assets, name)
	return name
}

func determineAssetType(path string) metadata.ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return metadata.ResourceTypeShader
	case ".wgsl":
		return metadata.ResourceTypeShaderSource
	case ".bin":
		return metadata.ResourceTypeBinary
	default:
		return metadata.ResourceTypeNone
	}
}
