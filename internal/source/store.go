// Package source caches the parsed/raw module entries for one compilation
// request.
//
// The store is owned by the request orchestrator for the request's duration
// and borrowed by the host adapter. Exactly one entry exists per canonical
// URL; inserting a duplicate is a contract violation between this layer and
// its caller, never silently overwritten. Built-in library assets are the
// one exception to payload-only population: they are fetched on demand
// through the AssetFetcher collaborator and cached forever within the
// process.
package source

import (
	"errors"
	"fmt"
	"strings"

	"compile-host/internal/engine"
	"compile-host/internal/media"
)

// ErrDuplicateEntry is returned by Insert for a URL already present.
var ErrDuplicateEntry = errors.New("source: duplicate entry")

// AssetScheme prefixes canonical URLs of built-in library assets.
const AssetScheme = "asset:///"

// AssetFetcher retrieves built-in library/declaration text not present in
// the request payload. The call is synchronous by design and is the only
// I/O permitted during host-callback execution. It is assumed infallible
// for well-known names; an error here aborts the request.
type AssetFetcher interface {
	Fetch(name string) ([]byte, error)
}

// File is one cached module.
//
// SourceCode holds the raw text until first parse; EnsureParsed trades it
// for the engine-owned parsed form. The transition is one-way.
type File struct {
	URL       string
	Filename  string
	MediaType media.Type
	Version   string
	SourceCode string
	Parsed     *engine.ParsedSource
}

// EnsureParsed returns the parsed form, parsing and caching on first call.
// The raw text is discarded once the engine owns the representation.
func (f *File) EnsureParsed(p engine.Parser) (*engine.ParsedSource, error) {
	if f.Parsed != nil {
		return f.Parsed, nil
	}
	ps, err := p.Parse(f.URL, f.SourceCode, f.MediaType, f.Version)
	if err != nil {
		return nil, err
	}
	f.Parsed = ps
	f.SourceCode = ""
	return ps, nil
}

// Store maps canonical URLs to their single File entry.
type Store struct {
	files  map[string]*File
	assets AssetFetcher
}

// NewStore returns an empty store bound to an asset fetcher. assets may be
// nil when the request can never touch built-in libraries (transpile paths).
func NewStore(assets AssetFetcher) *Store {
	return &Store{files: make(map[string]*File), assets: assets}
}

// Insert stores a new entry and returns it. A duplicate URL fails with
// ErrDuplicateEntry; this indicates double population upstream and callers
// treat it as fatal.
func (s *Store) Insert(f *File) (*File, error) {
	if _, ok := s.files[f.URL]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEntry, f.URL)
	}
	s.files[f.URL] = f
	return f, nil
}

// Lookup returns the entry for url, or (nil, false). Absence is not an
// error; the engine reports missing modules itself.
func (s *Store) Lookup(url string) (*File, bool) {
	f, ok := s.files[url]
	return f, ok
}

// Len reports the number of cached entries.
func (s *Store) Len() int { return len(s.files) }

// ResolveAsset returns the entry for a built-in library asset, normalizing
// short names through the alias table and fetching+caching on first use.
// This is the only store path permitted to perform I/O.
func (s *Store) ResolveAsset(name string) (*File, error) {
	libName := NormalizeAssetName(name)
	url := AssetScheme + libName
	if f, ok := s.files[url]; ok {
		return f, nil
	}
	if s.assets == nil {
		return nil, fmt.Errorf("source: no asset fetcher configured for %s", url)
	}
	data, err := s.assets.Fetch(libName)
	if err != nil {
		return nil, fmt.Errorf("source: fetch asset %s: %w", libName, err)
	}
	return s.Insert(&File{
		URL:        url,
		Filename:   url,
		MediaType:  media.Dts,
		Version:    "1",
		SourceCode: string(data),
	})
}

// assetAliases maps short asset names callers may use to their canonical
// library filenames.
var assetAliases = map[string]string{
	"host":        "lib.host.window.d.ts",
	"host.ns":     "lib.host.ns.d.ts",
	"host.shared": "lib.host.shared_globals.d.ts",
	"host.window": "lib.host.window.d.ts",
	"host.worker": "lib.host.worker.d.ts",
}

// NormalizeAssetName maps a short or partially-qualified asset name to the
// canonical "lib.<name>.d.ts" form. Already-canonical names pass through.
func NormalizeAssetName(name string) string {
	n := strings.TrimPrefix(name, AssetScheme)
	n = strings.TrimPrefix(n, "/")
	if alias, ok := assetAliases[n]; ok {
		return alias
	}
	if !strings.HasSuffix(n, ".d.ts") {
		n += ".d.ts"
	}
	if !strings.HasPrefix(n, "lib.") {
		n = "lib." + n
	}
	return n
}
