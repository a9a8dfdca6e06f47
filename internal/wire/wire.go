// Package wire defines the request/response shapes exchanged with the host
// process.
//
// A request is a tagged union discriminated by a small-integer kind code.
// The codes are shared with the host process and must not be renumbered
// without a coordinated update on both sides. Decode turns the loose JSON
// payload into one value of a closed set of typed requests so the
// dispatcher can match exhaustively; per-kind payload validation happens
// here, and a validation failure is a caller contract violation, not a
// user-facing diagnostic.
package wire

import (
	"fmt"
)

// Kind discriminates request payloads. Stable wire values.
type Kind int

const (
	KindCompile          Kind = 0
	KindTranspile        Kind = 1
	KindBundle           Kind = 2
	KindRuntimeCompile   Kind = 3
	KindRuntimeBundle    Kind = 4
	KindRuntimeTranspile Kind = 5
)

func (k Kind) String() string {
	switch k {
	case KindCompile:
		return "compile"
	case KindTranspile:
		return "transpile"
	case KindBundle:
		return "bundle"
	case KindRuntimeCompile:
		return "runtimeCompile"
	case KindRuntimeBundle:
		return "runtimeBundle"
	case KindRuntimeTranspile:
		return "runtimeTranspile"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Request is implemented by exactly the six request types below.
type Request interface {
	Kind() Kind
}

// DependencyEdge is one import/reference/lib-directive edge of a file map
// entry, pre-resolved by the upstream resolver. TypeResolved, when present,
// names a sibling type-declaration file preferred over Resolved so type
// information is not lost when the primary module lacks inline types.
type DependencyEdge struct {
	Specifier    string `json:"specifier"`
	Resolved     string `json:"resolved"`
	TypeResolved string `json:"typeResolved,omitempty"`
}

// FileMapEntry is one pre-resolved module in a request payload.
type FileMapEntry struct {
	URL             string           `json:"url"`
	Filename        string           `json:"filename"`
	MediaType       string           `json:"mediaType"`
	SourceCode      string           `json:"sourceCode"`
	VersionHash     string           `json:"versionHash"`
	Imports         []DependencyEdge `json:"imports,omitempty"`
	ReferencedFiles []DependencyEdge `json:"referencedFiles,omitempty"`
	LibDirectives   []DependencyEdge `json:"libDirectives,omitempty"`
	TypesDirectives []DependencyEdge `json:"typesDirectives,omitempty"`
}

// CompileRequest is a full incremental program build over a pre-resolved
// file map.
type CompileRequest struct {
	RootNames     []string                `json:"rootNames"`
	Target        string                  `json:"target"`
	SourceFileMap map[string]FileMapEntry `json:"sourceFileMap"`
	ConfigText    string                  `json:"config,omitempty"`
	ConfigPath    string                  `json:"configPath,omitempty"`
	BuildInfo     []byte                  `json:"buildInfo,omitempty"`
}

func (*CompileRequest) Kind() Kind { return KindCompile }

// TranspileRequest converts files one at a time, no cross-file resolution,
// no type check.
type TranspileRequest struct {
	Target     string            `json:"target"`
	Sources    map[string]string `json:"sources"`
	ConfigText string            `json:"config,omitempty"`
	ConfigPath string            `json:"configPath,omitempty"`
}

func (*TranspileRequest) Kind() Kind { return KindTranspile }

// BundleRequest builds a program over a pre-resolved file map and emits one
// self-contained module.
type BundleRequest struct {
	RootNames     []string                `json:"rootNames"`
	Target        string                  `json:"target"`
	SourceFileMap map[string]FileMapEntry `json:"sourceFileMap"`
	ConfigText    string                  `json:"config,omitempty"`
	ConfigPath    string                  `json:"configPath,omitempty"`
}

func (*BundleRequest) Kind() Kind { return KindBundle }

// RuntimeCompileRequest is the programmatic variant of Compile: inline
// sources plus optionally an externally-resolved additional file map, with
// caller-supplied serialized option overrides.
type RuntimeCompileRequest struct {
	RootName      string                  `json:"rootName"`
	Target        string                  `json:"target"`
	Sources       map[string]string       `json:"sources,omitempty"`
	SourceFileMap map[string]FileMapEntry `json:"sourceFileMap,omitempty"`
	Options       string                  `json:"options,omitempty"`
}

func (*RuntimeCompileRequest) Kind() Kind { return KindRuntimeCompile }

// RuntimeBundleRequest is the programmatic variant of Bundle.
type RuntimeBundleRequest struct {
	RootName      string                  `json:"rootName"`
	Target        string                  `json:"target"`
	Sources       map[string]string       `json:"sources,omitempty"`
	SourceFileMap map[string]FileMapEntry `json:"sourceFileMap,omitempty"`
	Options       string                  `json:"options,omitempty"`
}

func (*RuntimeBundleRequest) Kind() Kind { return KindRuntimeBundle }

// RuntimeTranspileRequest is the programmatic variant of Transpile.
type RuntimeTranspileRequest struct {
	Sources map[string]string `json:"sources"`
	Options string            `json:"options,omitempty"`
}

func (*RuntimeTranspileRequest) Kind() Kind { return KindRuntimeTranspile }

// Diagnostic is the stable wire shape for one reported issue.
type Diagnostic struct {
	Code     int    `json:"code"`
	Category string `json:"category"`
	Message  string `json:"message"`
	FileName string `json:"fileName,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
}

// EmitEntry is one emitted output file. The response carries a slice, not a
// map: iteration order is the engine's emit order and must survive the trip
// through JSON.
type EmitEntry struct {
	Filename       string `json:"filename"`
	OriginFilename string `json:"originFilename,omitempty"`
	Contents       string `json:"contents"`
}

// TranspiledSource is one per-file result of a runtime transpile.
type TranspiledSource struct {
	Source string `json:"source"`
	Map    string `json:"map,omitempty"`
}

// Stats is the optional per-request perf block.
type Stats struct {
	PopulateMs float64 `json:"populateMs"`
	CheckMs    float64 `json:"checkMs"`
	EmitMs     float64 `json:"emitMs"`
	TotalMs    float64 `json:"totalMs"`
	Files      int     `json:"files"`
	Emitted    int     `json:"emitted"`
}

// Response is the single reply produced for a request.
type Response struct {
	EmitMap      []EmitEntry                 `json:"emitMap,omitempty"`
	BundleOutput string                      `json:"bundleOutput,omitempty"`
	BuildInfo    []byte                      `json:"buildInfo,omitempty"`
	Transpiled   map[string]TranspiledSource `json:"transpiled,omitempty"`
	Diagnostics  []Diagnostic                `json:"diagnostics"`
	Stats        *Stats                      `json:"stats,omitempty"`
}
