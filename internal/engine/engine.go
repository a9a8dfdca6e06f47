// Package engine defines the contract between the request orchestrator and
// the embedded type-checking/emission engine.
//
// The orchestrator owns the caches and exposes them to the engine only
// through the Host callback set; the engine owns its AST/symbol graph and is
// never handed mutable access to orchestrator state. Implementations of
// Engine live in subpackages; everything here is dependency-free so both
// sides can share it.
package engine

import (
	"errors"

	"compile-host/internal/media"
	"compile-host/internal/options"
)

// ErrUnsupportedCallback is returned by host callbacks this embedding
// deliberately never implements (e.g. direct file-system reads). An engine
// invoking one indicates a contract violation and the error is fatal.
var ErrUnsupportedCallback = errors.New("engine: unsupported host callback")

// Category classifies a diagnostic.
type Category int

const (
	CategoryError Category = iota
	CategoryWarning
	CategorySuggestion
	CategoryMessage
)

func (c Category) String() string {
	switch c {
	case CategoryError:
		return "error"
	case CategoryWarning:
		return "warning"
	case CategorySuggestion:
		return "suggestion"
	default:
		return "message"
	}
}

// Diagnostic is one engine-reported issue, in the engine's original order.
// Line and Column are 1-based; zero means unknown/whole-file.
type Diagnostic struct {
	Code     int
	Category Category
	Message  string
	FileName string
	Line     int
	Column   int
}

// ParsedSource is the engine-owned handle for one parsed module. The
// orchestrator treats Handle as opaque; it only keys caches by URL and tags
// the handle with the version token so incremental builds can decide reuse.
type ParsedSource struct {
	URL       string
	Version   string
	MediaType media.Type
	Handle    any
}

// ResolvedModule is one entry of a vectorized resolution result. The zero
// value means "not found"; the engine reports the module as missing itself.
type ResolvedModule struct {
	URL       string
	MediaType media.Type
	Found     bool
}

// Host is the fixed callback set an embedding provides so the engine can
// retrieve sources, resolve imports and emit output without doing its own
// I/O. Engines must treat a (nil, nil) SourceFileFor result as "unknown
// module" and report it through their own diagnostics.
type Host interface {
	// SourceFileFor returns the parsed form for a canonical URL, parsing
	// and caching lazily on first access.
	SourceFileFor(url string) (*ParsedSource, error)

	// ResolveSpecifiers maps raw import specifiers appearing in the named
	// containing file to resolution records. The result has exactly one
	// entry per specifier, in input order.
	ResolveSpecifiers(specifiers []string, containing string) []ResolvedModule

	// DefaultLibName names the built-in declaration asset for the request's
	// target profile.
	DefaultLibName() string

	// Settings returns the folded compiler options for this request.
	Settings() options.Config

	// WriteEmittedFile receives one emitted output. sourceURLs identifies
	// the modules that contributed to it.
	WriteEmittedFile(filename string, data []byte, sourceURLs []string) error

	// PreviousBuildInfo returns the prior incremental build-info blob, or
	// nil when starting fresh. The engine writes the new blob through
	// WriteEmittedFile under its configured build-info filename.
	PreviousBuildInfo() []byte

	// ReadFile is deliberately unimplemented in this embedding; it exists
	// so engines that probe for it get ErrUnsupportedCallback instead of a
	// silent nil.
	ReadFile(path string) (string, error)
}

// Parser parses raw module text into the engine's internal representation.
type Parser interface {
	Parse(url, sourceCode string, mediaType media.Type, version string) (*ParsedSource, error)
}

// EmitResult reports the outcome of an emit pass. Skipped=true with no
// diagnostics is a contract violation on checked-emit paths; the dispatcher
// treats it as fatal.
type EmitResult struct {
	Skipped     bool
	Diagnostics []Diagnostic
}

// ExportedSymbol is one named export of a module together with its symbol
// flags, used to separate runtime values from type-only exports.
type ExportedSymbol struct {
	Name  string
	Flags SymbolFlags
}

// Program is a type-checked module graph rooted at the request's root names.
type Program interface {
	// Diagnostics returns pre-emit diagnostics in engine order.
	Diagnostics() []Diagnostic

	// Emit writes outputs through the host and reports the outcome.
	Emit() (EmitResult, error)

	// ModuleExports lists the named exports of one module.
	ModuleExports(url string) ([]ExportedSymbol, error)
}

// TranspileResult is the output of the engine's single-file transpile
// entrypoint. It is produced even when Diagnostics is nonempty; transpile
// never blocks on type errors.
type TranspileResult struct {
	Source      string
	Map         string
	Diagnostics []Diagnostic
}

// Engine is the embedded compiler engine.
type Engine interface {
	Parser

	// NewProgram builds a program over the root modules, calling back into
	// host for sources, resolution and emission.
	NewProgram(rootNames []string, host Host) (Program, error)

	// Transpile converts a single file without cross-file resolution or
	// type checking.
	Transpile(filename, sourceCode string, cfg options.Config) (TranspileResult, error)
}
