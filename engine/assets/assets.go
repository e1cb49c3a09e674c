package assets

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/kiln/engine/assets/loaders"
	"github.com/spaghettifunk/kiln/engine/core"
)

// ByteSource is how the renderer reads shader binaries.
type ByteSource interface {
	LoadBytes(path string) ([]byte, error)
}

// AssetManager loads files below a root directory and caches them. When
// watching is enabled, a write, create or remove under the root drops the
// cached copy so the next load reads the file again.
type AssetManager struct {
	root    string
	assets  map[string]*loaders.Asset
	loaders map[string]loaders.Loader

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager() *AssetManager {
	am := &AssetManager{
		assets:  make(map[string]*loaders.Asset),
		loaders: make(map[string]loaders.Loader),
		done:    make(chan struct{}),
	}
	am.registerLoader(".spv", &loaders.ShaderLoader{})
	return am
}

// Initialize sets the root directory and, if watch is true, starts watching it
// and every directory below it.
func (am *AssetManager) Initialize(assetsDir string, watch bool) error {
	am.root = filepath.Clean(assetsDir)
	if !watch {
		return nil
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create asset watcher")
	}
	am.fsnotify = fsWatch

	if err := am.watchRecursive(am.root); err != nil {
		fsWatch.Close()
		am.fsnotify = nil
		return errors.Wrapf(err, "watch %s", am.root)
	}

	am.wg.Add(1)
	go am.start()
	return nil
}

// Register loaders for a file extension. Unregistered extensions are read verbatim.
func (am *AssetManager) registerLoader(ext string, loader loaders.Loader) {
	am.loaders[ext] = loader
}

func (am *AssetManager) resolve(name string) string {
	if filepath.IsAbs(name) || am.root == "" {
		return filepath.Clean(name)
	}
	return filepath.Join(am.root, name)
}

// LoadBytes returns the contents of name, relative to the root unless absolute.
func (am *AssetManager) LoadBytes(name string) ([]byte, error) {
	path := am.resolve(name)

	am.mutex.RLock()
	asset, exists := am.assets[path]
	am.mutex.RUnlock()
	if exists {
		return asset.Data, nil
	}

	loader, ok := am.loaders[filepath.Ext(path)]
	if !ok {
		loader = &loaders.BinaryLoader{}
	}
	asset, err := loader.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load asset %s", name)
	}

	am.mutex.Lock()
	am.assets[path] = asset
	am.mutex.Unlock()

	core.LogDebug("loaded asset %s (%d bytes)", path, len(asset.Data))
	return asset.Data, nil
}

// Cached reports whether name is currently held in the cache.
func (am *AssetManager) Cached(name string) bool {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	_, ok := am.assets[am.resolve(name)]
	return ok
}

// Close stops the watcher. The cache stays readable.
func (am *AssetManager) Close() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	if am.fsnotify == nil {
		return nil
	}
	close(am.done)
	am.wg.Wait()
	return nil
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&fsnotify.Create != 0 {
				if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
					if err := am.watchRecursive(e.Name); err != nil {
						core.LogWarn("failed to watch %s: %s", e.Name, err)
					}
				}
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds path and all directories under it to the watch list.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		return nil
	})
}

// Remove the asset from the cache if it changed on disk.
func (am *AssetManager) removeAsset(path string) {
	path = filepath.Clean(path)

	am.mutex.Lock()
	defer am.mutex.Unlock()

	if _, ok := am.assets[path]; ok {
		delete(am.assets, path)
		core.LogDebug("asset %s changed, dropped from cache", path)
	}
}
