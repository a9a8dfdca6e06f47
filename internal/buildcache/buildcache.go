// Package buildcache persists the engine's opaque incremental build state
// between worker runs.
//
// The blob is keyed by the request's root-name set: the same roots get the
// same cache slot regardless of request ordering. The blob itself is never
// inspected here; it round-trips between the engine's virtual build-info
// file and disk.
//
// Conventions:
//   - The cache root defaults to "tmp/.hostcache" unless overridden.
//   - A per-root-set slot lives at: <root>/<key>/
//   - The blob is stored at:        <root>/<key>/tsbuildinfo
package buildcache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	defaultCacheRoot = "tmp/.hostcache"
	blobFileName     = "tsbuildinfo"
)

// Key returns a short, stable identifier for a set of root names. The roots
// are sorted first so request ordering does not change the slot.
func Key(rootNames []string) string {
	sorted := append([]string(nil), rootNames...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\x00")))
	return hex.EncodeToString(sum[:])[:12]
}

// Dir resolves the cache slot directory for a root-name set. If root is
// empty, it falls back to the default cache root.
func Dir(root string, rootNames []string) string {
	if root == "" {
		root = defaultCacheRoot
	}
	return filepath.Join(root, Key(rootNames))
}

// Load reads the build-info blob for the slot. A missing blob returns
// (nil, nil) so callers can treat it as "no previous build" without
// branching on errors.
func Load(dir string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(dir, blobFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

// Save writes the blob atomically: into a temporary file in the slot
// directory, then renamed, so readers never observe a partial blob.
func Save(dir string, blob []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, f, err := createTempFile(dir, blobFileName)
	if err != nil {
		return err
	}
	if _, err := f.Write(blob); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, blobFileName))
}

// Clear removes the slot directory. Safe to call when it does not exist.
func Clear(dir string) error {
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return os.RemoveAll(dir)
}

// createTempFile creates a temporary sibling of base in dir, named
// ".tmp-<base>-<rand>" so related entries group together in listings.
func createTempFile(dir, base string) (string, *os.File, error) {
	f, err := os.CreateTemp(dir, ".tmp-"+base+"-")
	if err != nil {
		return "", nil, err
	}
	return f.Name(), f, nil
}
