// Package diagnostics filters engine diagnostics and converts the
// survivors to the wire shape.
//
// A fixed set of codes is known to be noise in this embedding (the request
// payload is a closed module graph, so several of the engine's file-system
// flavored complaints never indicate a real problem). Filtered diagnostics
// are dropped before the caller sees them; everything else is preserved in
// the engine's original order. An empty filtered list is the success signal
// the dispatcher's emit step depends on.
package diagnostics

import (
	"sort"
	"strings"

	"compile-host/internal/engine"
	"compile-host/internal/wire"
)

// ignoredCodes are engine diagnostic codes dropped unconditionally.
var ignoredCodes = map[int]struct{}{
	// 'await' outside an async function: top-level files that are not
	// modules trip this even when the embedding runs them as modules.
	1308: {},
	// "file is not a module": plain scripts without imports/exports are
	// valid inputs here.
	2306: {},
	// import path may not end with an extension: canonical URLs in this
	// embedding always carry extensions.
	2691: {},
	// cannot find the common subdirectory of input files: output layout is
	// virtual, there is no shared directory to find.
	5009: {},
	// cannot write file: JSON-module interop emits collide with inputs on
	// disk layouts this embedding does not have.
	5055: {},
	// variable implicitly has an 'any' type: unchecked plain-script
	// imports produce this for every symbol they expose.
	7016: {},
}

// Ignored reports whether a code is on the drop list.
func Ignored(code int) bool {
	_, ok := ignoredCodes[code]
	return ok
}

// Filter drops ignored codes, preserving the engine's original order.
func Filter(in []engine.Diagnostic) []engine.Diagnostic {
	out := make([]engine.Diagnostic, 0, len(in))
	for _, d := range in {
		if Ignored(d.Code) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// ToWire converts engine diagnostics to the stable wire shape, in order.
func ToWire(in []engine.Diagnostic) []wire.Diagnostic {
	out := make([]wire.Diagnostic, 0, len(in))
	for _, d := range in {
		out = append(out, wire.Diagnostic{
			Code:     d.Code,
			Category: d.Category.String(),
			Message:  d.Message,
			FileName: d.FileName,
			Line:     d.Line,
			Column:   d.Column,
		})
	}
	return out
}

// Codes local to this tool live in the 90xx range so they can never collide
// with engine codes.
const (
	// CodeDroppedOptions flags configuration options the embedding ignored.
	CodeDroppedOptions = 9001
	// CodeConfigParse flags unparseable project-configuration text.
	CodeConfigParse = 9002
)

// DroppedOptions synthesizes the warning for configuration options that
// were dropped during config parsing. Names are reported sorted. Returns
// false when there is nothing to report.
func DroppedOptions(names []string, configPath string) (wire.Diagnostic, bool) {
	if len(names) == 0 {
		return wire.Diagnostic{}, false
	}
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return wire.Diagnostic{
		Code:     CodeDroppedOptions,
		Category: engine.CategoryWarning.String(),
		Message:  "unsupported compiler options ignored: " + strings.Join(sorted, ", "),
		FileName: configPath,
	}, true
}

// ConfigParseError converts a project-config parse failure into the
// error-level diagnostic that short-circuits the request.
func ConfigParseError(err error, configPath string) wire.Diagnostic {
	return wire.Diagnostic{
		Code:     CodeConfigParse,
		Category: engine.CategoryError.String(),
		Message:  err.Error(),
		FileName: configPath,
	}
}
