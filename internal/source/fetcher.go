package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirFetcher serves built-in library assets from a flat directory of
// declaration files. Asset names are canonical library filenames; anything
// resembling a path is rejected before it reaches the filesystem.
type DirFetcher struct {
	dir string
}

// NewDirFetcher returns a fetcher rooted at dir.
func NewDirFetcher(dir string) *DirFetcher {
	return &DirFetcher{dir: dir}
}

var _ AssetFetcher = (*DirFetcher)(nil)

// Fetch reads the named asset file.
func (d *DirFetcher) Fetch(name string) ([]byte, error) {
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return nil, fmt.Errorf("source: invalid asset name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(d.dir, name))
	if err != nil {
		return nil, fmt.Errorf("source: asset %s: %w", name, err)
	}
	return data, nil
}
