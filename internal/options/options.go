// Package options builds the compiler-option set handed to the engine.
//
// Options arrive in layers of different precedence (built-in defaults,
// per-strategy overrides, project configuration text, caller-supplied
// overrides). A Builder folds an ordered list of layers into one immutable
// Config; precedence is purely the fold order, later layers win per key.
//
// Project configuration text is JSON with comments and trailing commas
// allowed; it is standardized with hujson before decoding. A fixed deny-list
// of option names this embedding does not support (output paths, emit
// control, tooling-only flags) is dropped during parsing, and the dropped
// names are collected so the caller can surface a warning.
package options

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tailscale/hujson"
)

// BuildInfoFileName is the fixed virtual filename the engine reads and
// writes incremental build state through. The blob behind it is opaque to
// this layer.
const BuildInfoFileName = "cache:///tsbuildinfo.json"

// Layer is one partial set of option values. Layers are never mutated after
// being handed to a Builder.
type Layer map[string]any

// Config is the folded, final option set. It is immutable; the orchestrator
// reads the few values it needs through typed getters and the engine
// receives the whole set serialized.
type Config struct {
	values Layer
}

// Builder folds layers in order. Each With returns a new Builder; earlier
// builders stay usable and unchanged.
type Builder struct {
	layers []Layer
}

// NewBuilder starts a builder from a base layer (normally Defaults()).
func NewBuilder(base Layer) Builder {
	return Builder{layers: []Layer{base}}
}

// With appends a layer with higher precedence than everything before it.
func (b Builder) With(l Layer) Builder {
	next := make([]Layer, 0, len(b.layers)+1)
	next = append(next, b.layers...)
	next = append(next, l)
	return Builder{layers: next}
}

// Build folds the layers into a Config. Later layers win key-by-key.
func (b Builder) Build() Config {
	merged := make(Layer)
	for _, l := range b.layers {
		for k, v := range l {
			merged[k] = v
		}
	}
	return Config{values: merged}
}

// Defaults returns the base option layer for every strategy.
func Defaults() Layer {
	return Layer{
		"allowJs":              true,
		"allowNonTsExtensions": true,
		"checkJs":              false,
		"esModuleInterop":      true,
		"jsx":                  "react",
		"module":               "esnext",
		"outDir":               "$emit$",
		"removeComments":       true,
		"resolveJsonModule":    true,
		"sourceMap":            true,
		"strict":               true,
		"target":               "esnext",
	}
}

// IncrementalLayer enables incremental builds and pins the virtual build-info
// filename the engine persists state through.
func IncrementalLayer() Layer {
	return Layer{
		"incremental":     true,
		"tsBuildInfoFile": BuildInfoFileName,
	}
}

// BundleLayer switches emission to a single load-by-name module file so the
// assembler receives one concatenated body.
func BundleLayer() Layer {
	return Layer{
		"module":      "system",
		"outFile":     "$bundle$",
		"incremental": false,
		"sourceMap":   false,
	}
}

// Bool reads a boolean option; missing or non-boolean values read as false.
func (c Config) Bool(name string) bool {
	v, _ := c.values[name].(bool)
	return v
}

// String reads a string option; missing or non-string values read as "".
func (c Config) String(name string) string {
	v, _ := c.values[name].(string)
	return v
}

// JSON serializes the folded option set for the engine.
func (c Config) JSON() ([]byte, error) {
	return json.Marshal(c.values)
}

// Len reports the number of folded keys. Used in logs only.
func (c Config) Len() int { return len(c.values) }

type configFile struct {
	CompilerOptions map[string]any `json:"compilerOptions"`
}

// ParseConfigText parses project-configuration text into an option layer,
// dropping deny-listed names. The returned dropped list is sorted. path is
// used only for error messages.
func ParseConfigText(text, path string) (Layer, []string, error) {
	std, err := hujson.Standardize([]byte(text))
	if err != nil {
		return nil, nil, fmt.Errorf("options: %s: %w", displayPath(path), err)
	}
	var cf configFile
	if err := json.Unmarshal(std, &cf); err != nil {
		return nil, nil, fmt.Errorf("options: %s: %w", displayPath(path), err)
	}
	return filterLayer(cf.CompilerOptions)
}

// ParseRaw parses a caller-supplied serialized option object (a bare
// compiler-option map, not a whole config file), applying the same
// deny-list as ParseConfigText.
func ParseRaw(text string) (Layer, []string, error) {
	if text == "" {
		return Layer{}, nil, nil
	}
	std, err := hujson.Standardize([]byte(text))
	if err != nil {
		return nil, nil, fmt.Errorf("options: caller overrides: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(std, &raw); err != nil {
		return nil, nil, fmt.Errorf("options: caller overrides: %w", err)
	}
	return filterLayer(raw)
}

func filterLayer(raw map[string]any) (Layer, []string, error) {
	out := make(Layer, len(raw))
	var dropped []string
	for k, v := range raw {
		if _, deny := ignoredOptions[k]; deny {
			dropped = append(dropped, k)
			continue
		}
		out[k] = v
	}
	sort.Strings(dropped)
	return out, dropped, nil
}

func displayPath(path string) string {
	if path == "" {
		return "<config>"
	}
	return path
}

// ignoredOptions are configuration names this embedding does not honor.
// They concern output layout, emit control and standalone tooling, all of
// which are fixed by the request strategy here. Codegen options such as
// target and jsx stay caller-controlled. Parsed configs drop deny-listed
// names and the dropped names are reported back as a warning.
var ignoredOptions = map[string]struct{}{
	"allowSyntheticDefaultImports":                {},
	"assumeChangesOnlyAffectDirectDependencies":   {},
	"baseUrl":                                     {},
	"build":                                       {},
	"composite":                                   {},
	"declaration":                                 {},
	"declarationDir":                              {},
	"declarationMap":                              {},
	"diagnostics":                                 {},
	"downlevelIteration":                          {},
	"emitBOM":                                     {},
	"emitDeclarationOnly":                         {},
	"extendedDiagnostics":                         {},
	"forceConsistentCasingInFileNames":            {},
	"generateCpuProfile":                          {},
	"help":                                        {},
	"importHelpers":                               {},
	"incremental":                                 {},
	"inlineSourceMap":                             {},
	"inlineSources":                               {},
	"init":                                        {},
	"listEmittedFiles":                            {},
	"listFiles":                                   {},
	"mapRoot":                                     {},
	"maxNodeModuleJsDepth":                        {},
	"module":                                      {},
	"moduleResolution":                            {},
	"newLine":                                     {},
	"noEmit":                                      {},
	"noEmitHelpers":                               {},
	"noEmitOnError":                               {},
	"noLib":                                       {},
	"noResolve":                                   {},
	"out":                                         {},
	"outDir":                                      {},
	"outFile":                                     {},
	"paths":                                       {},
	"preserveSymlinks":                            {},
	"preserveWatchOutput":                         {},
	"pretty":                                      {},
	"rootDir":                                     {},
	"rootDirs":                                    {},
	"showConfig":                                  {},
	"skipDefaultLibCheck":                         {},
	"sourceMap":                                   {},
	"sourceRoot":                                  {},
	"stripInternal":                               {},
	"traceResolution":                             {},
	"tsBuildInfoFile":                             {},
	"types":                                       {},
	"typeRoots":                                   {},
	"version":                                     {},
	"watch":                                       {},
}
