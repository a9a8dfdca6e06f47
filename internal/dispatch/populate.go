package dispatch

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/multierr"

	"compile-host/internal/media"
	"compile-host/internal/resolve"
	"compile-host/internal/scan"
	"compile-host/internal/source"
	"compile-host/internal/wire"
)

// populateFileMap fills a fresh store and resolution cache from a
// pre-resolved file map. Entries are inserted in sorted key order so
// duplicate detection and error aggregation are deterministic.
func populateFileMap(assets source.AssetFetcher, fileMap map[string]wire.FileMapEntry) (*source.Store, *resolve.Cache, error) {
	store := source.NewStore(assets)
	cache := resolve.NewCache()
	err := mergeFileMap(store, cache, fileMap)
	if err != nil {
		return nil, nil, err
	}
	return store, cache, nil
}

// mergeFileMap inserts fileMap entries into existing caches. Shared by the
// pre-resolved and runtime strategies; the latter merges an external file
// map on top of inline sources.
func mergeFileMap(store *source.Store, cache *resolve.Cache, fileMap map[string]wire.FileMapEntry) error {
	var errs error
	for _, url := range sortedKeys(fileMap) {
		e := fileMap[url]
		if _, err := store.Insert(&source.File{
			URL:        e.URL,
			Filename:   filenameOf(e),
			MediaType:  mediaOf(e),
			Version:    e.VersionHash,
			SourceCode: e.SourceCode,
		}); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		recordEdges(cache, e.URL, e.Imports)
		recordEdges(cache, e.URL, e.ReferencedFiles)
		recordEdges(cache, e.URL, e.LibDirectives)
		recordEdges(cache, e.URL, e.TypesDirectives)
	}
	if errs != nil {
		return fmt.Errorf("dispatch: populate file map: %w", errs)
	}
	return nil
}

func filenameOf(e wire.FileMapEntry) string {
	if e.Filename != "" {
		return e.Filename
	}
	return e.URL
}

func mediaOf(e wire.FileMapEntry) media.Type {
	if mt := media.FromName(e.MediaType); mt != media.Unknown {
		return mt
	}
	return media.FromURL(e.URL)
}

// recordEdges fills the resolution cache from one edge list. A non-empty
// TypeResolved replaces the primary resolution when the primary carries no
// type information of its own, so checking sees the declaration file while
// emit identity stays with the specifier.
func recordEdges(cache *resolve.Cache, containing string, edges []wire.DependencyEdge) {
	for _, edge := range edges {
		resolved := edge.Resolved
		if edge.TypeResolved != "" && typeless(media.FromURL(resolved)) {
			resolved = edge.TypeResolved
		}
		if resolved == "" {
			continue
		}
		cache.Record(resolved, edge.Specifier, containing)
	}
}

func typeless(mt media.Type) bool {
	return mt == media.JavaScript || mt == media.JSX || mt == media.Unknown
}

// populateRuntime fills caches for the programmatic strategies: inline
// sources first, with versions hashed from content and relative imports
// resolved against sibling entries, then any externally-resolved file map
// merged on top. The returned root URL is the inline key when present, the
// raw root name otherwise.
func populateRuntime(assets source.AssetFetcher, rootName string, sources map[string]string, fileMap map[string]wire.FileMapEntry) (*source.Store, *resolve.Cache, string, error) {
	store := source.NewStore(assets)
	cache := resolve.NewCache()

	known := func(url string) bool {
		if _, ok := sources[url]; ok {
			return true
		}
		_, ok := fileMap[url]
		return ok
	}

	var errs error
	for _, url := range sortedKeys(sources) {
		text := sources[url]
		if _, err := store.Insert(&source.File{
			URL:        url,
			Filename:   url,
			MediaType:  media.FromURL(url),
			Version:    versionOf(text),
			SourceCode: text,
		}); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for _, spec := range scan.ImportSpecifiers(text) {
			target, ok := scan.ResolveRelative(spec, url)
			if !ok {
				// Bare specifiers resolve upstream; absent from the cache the
				// engine reports them missing.
				continue
			}
			if known(target) {
				cache.Record(target, spec, url)
			}
		}
	}
	if errs != nil {
		return nil, nil, "", fmt.Errorf("dispatch: populate sources: %w", errs)
	}

	if err := mergeFileMap(store, cache, fileMap); err != nil {
		return nil, nil, "", err
	}

	rootURL := rootName
	if _, ok := store.Lookup(rootURL); !ok {
		if resolved, ok := cache.Resolve(rootName, resolve.NoContaining); ok {
			rootURL = resolved
		}
	}
	cache.Record(rootURL, rootName, resolve.NoContaining)
	return store, cache, rootURL, nil
}

// versionOf derives a stable version token from source content.
func versionOf(text string) string {
	return strconv.FormatUint(xxhash.Sum64String(text), 16)
}
