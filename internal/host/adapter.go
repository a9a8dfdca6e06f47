// Package host implements the engine's host-interface contract over the
// per-request source store and resolution cache.
//
// The adapter borrows the caches, never owns them. All engine-visible state
// flows through the callback methods; the one piece of policy here is the
// lazy parse-and-cache in SourceFileFor and the routing of emitted files to
// a pluggable write sink so compile and bundle strategies can differ only
// in the sink they install.
package host

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"compile-host/internal/engine"
	"compile-host/internal/media"
	"compile-host/internal/options"
	"compile-host/internal/resolve"
	"compile-host/internal/source"
)

// Target selects the built-in default-library profile for a request.
type Target int

const (
	TargetMain Target = iota
	TargetRuntime
	TargetWorker
)

// ParseTarget maps a wire-level target name; unknown names fall back to the
// main profile.
func ParseTarget(s string) Target {
	switch s {
	case "runtime":
		return TargetRuntime
	case "worker":
		return TargetWorker
	default:
		return TargetMain
	}
}

func (t Target) String() string {
	switch t {
	case TargetRuntime:
		return "runtime"
	case TargetWorker:
		return "worker"
	default:
		return "main"
	}
}

// defaultLib returns the default-library asset filename for the profile.
// Main and runtime share the window globals; workers get their own surface.
func (t Target) defaultLib() string {
	if t == TargetWorker {
		return "lib.host.worker.d.ts"
	}
	return "lib.host.window.d.ts"
}

// WriteSink receives emitted outputs. The plain collector keeps them in
// emit order; the bundle assembler rewrites them instead.
type WriteSink interface {
	WriteFile(filename string, data []byte, sourceURLs []string) error
}

// Adapter implements engine.Host for one request.
type Adapter struct {
	store  *source.Store
	cache  *resolve.Cache
	cfg    options.Config
	sink   WriteSink
	target Target
	log    *zap.Logger

	// parser is installed by the dispatcher (BindParser) before the engine
	// runs; it is the engine's own Parse entrypoint, kept separate so the
	// adapter can be built before the engine is chosen.
	parser engine.Parser

	buildInfo []byte

	// onParseError, when set, receives parse failures instead of the error
	// escaping into the engine, which does not expect host callbacks to
	// fail. Unset, a parse failure aborts the request.
	onParseError func(error)
}

// Params configures a new Adapter. Log may be nil.
type Params struct {
	Store        *source.Store
	Cache        *resolve.Cache
	Config       options.Config
	Sink         WriteSink
	Target       Target
	BuildInfo    []byte
	OnParseError func(error)
	Log          *zap.Logger
}

// NewAdapter binds an adapter to the request's caches and sink.
func NewAdapter(p Params) *Adapter {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		store:        p.Store,
		cache:        p.Cache,
		cfg:          p.Config,
		sink:         p.Sink,
		target:       p.Target,
		buildInfo:    p.BuildInfo,
		onParseError: p.OnParseError,
		log:          log,
	}
}

var _ engine.Host = (*Adapter)(nil)

// BindParser installs the parser used for lazy parse-and-cache.
func (a *Adapter) BindParser(p engine.Parser) { a.parser = p }

// SourceFileFor returns the parsed form for url, parsing lazily on first
// access. Built-in assets are resolved (and fetched once) through the
// store's asset path. A nil, nil return means "unknown module"; the engine
// reports it as missing.
func (a *Adapter) SourceFileFor(url string) (*engine.ParsedSource, error) {
	var f *source.File
	if strings.HasPrefix(url, source.AssetScheme) {
		af, err := a.store.ResolveAsset(url)
		if err != nil {
			return nil, err
		}
		f = af
	} else {
		lf, ok := a.store.Lookup(url)
		if !ok {
			a.log.Debug("source file miss", zap.String("url", url))
			return nil, nil
		}
		f = lf
	}
	ps, err := f.EnsureParsed(a.parser)
	if err != nil {
		if a.onParseError != nil {
			a.onParseError(err)
			return nil, nil
		}
		return nil, fmt.Errorf("host: parse %s: %w", url, err)
	}
	return ps, nil
}

// ResolveSpecifiers answers the engine's vectorized resolution callback:
// one record per input specifier, same order, each independently possibly
// absent.
func (a *Adapter) ResolveSpecifiers(specifiers []string, containing string) []engine.ResolvedModule {
	out := make([]engine.ResolvedModule, len(specifiers))
	for i, spec := range specifiers {
		url, ok := a.cache.Resolve(spec, containing)
		if !ok {
			continue
		}
		out[i] = engine.ResolvedModule{URL: url, MediaType: a.mediaTypeOf(url), Found: true}
	}
	return out
}

func (a *Adapter) mediaTypeOf(url string) media.Type {
	if f, ok := a.store.Lookup(url); ok {
		return f.MediaType
	}
	return media.FromURL(url)
}

// DefaultLibName names the default-library asset for the request's target
// profile.
func (a *Adapter) DefaultLibName() string {
	return a.target.defaultLib()
}

// Settings returns the folded compiler options.
func (a *Adapter) Settings() options.Config { return a.cfg }

// WriteEmittedFile delegates verbatim to the per-request write sink.
func (a *Adapter) WriteEmittedFile(filename string, data []byte, sourceURLs []string) error {
	return a.sink.WriteFile(filename, data, sourceURLs)
}

// PreviousBuildInfo returns the prior incremental blob, nil when absent.
func (a *Adapter) PreviousBuildInfo() []byte { return a.buildInfo }

// ReadFile is deliberately unimplemented; this layer never performs direct
// file-system reads on the engine's behalf.
func (a *Adapter) ReadFile(path string) (string, error) {
	return "", fmt.Errorf("%w: ReadFile(%s)", engine.ErrUnsupportedCallback, path)
}
