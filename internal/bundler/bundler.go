// Package bundler post-processes the engine's load-by-name module output
// into one self-contained, loadable module.
//
// The engine emits a single concatenated file of registered modules; the
// assembler prepends a loader preamble, appends the instantiate call for
// the root module (async when the body carries the top-level-await marker)
// and synthesizes re-export statements for the root's runtime exports so
// the bundle's public surface matches runtime reality, not the type
// surface.
package bundler

import (
	"errors"
	"fmt"
	"strings"

	"compile-host/internal/engine"
)

// asyncExecuteMarker is the textual signature the engine leaves in emitted
// output when a module's execute function is asynchronous (top-level
// await). Its presence switches instantiation to the awaited form.
const asyncExecuteMarker = "execute: async function"

// CommonPath computes the longest common path prefix of the inputs, cut
// back to a directory boundary. A single input yields its directory (with
// trailing slash); fully divergent inputs yield "".
func CommonPath(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	first := paths[0]
	shared := len(first)
	for _, p := range paths[1:] {
		n := len(p)
		if len(first) < n {
			n = len(first)
		}
		i := 0
		for i < n && p[i] == first[i] {
			i++
		}
		if i < shared {
			shared = i
		}
		if shared == 0 {
			return ""
		}
	}
	cut := strings.LastIndexByte(first[:shared], '/')
	if cut < 0 {
		return ""
	}
	prefix := first[:cut+1]
	// A bare root slash means the inputs share nothing worth stripping.
	if prefix == "/" {
		return ""
	}
	return prefix
}

// ModuleID strips the common prefix and any trailing extension from the
// root module's identity, producing the short id the loader instantiates.
func ModuleID(rootURL, commonPrefix string) string {
	id := strings.TrimPrefix(rootURL, commonPrefix)
	for _, ext := range []string{".d.ts", ".tsx", ".ts", ".jsx", ".js", ".mjs", ".cjs", ".json"} {
		if strings.HasSuffix(id, ext) {
			return strings.TrimSuffix(id, ext)
		}
	}
	return id
}

// Assembler is the write sink installed for bundle strategies. It captures
// the engine's single concatenated output and the identities of the source
// files that contributed to it.
type Assembler struct {
	body    string
	sources []string
	wrote   bool
}

// NewAssembler returns an empty assembler.
func NewAssembler() *Assembler { return &Assembler{} }

// WriteFile captures the emitted bundle body. Map files are ignored; a
// second body write indicates the engine was not configured for single-file
// output and is an internal error.
func (a *Assembler) WriteFile(filename string, data []byte, sourceURLs []string) error {
	if strings.HasSuffix(filename, ".map") {
		return nil
	}
	if a.wrote {
		return fmt.Errorf("bundler: second emit %q; engine not in single-file mode", filename)
	}
	a.wrote = true
	a.body = string(data)
	a.sources = append(a.sources, sourceURLs...)
	return nil
}

// Assemble produces the final bundle text for the given root module.
// exports lists the root's named exports; type-only symbols are filtered
// out here.
func (a *Assembler) Assemble(rootURL string, exports []engine.ExportedSymbol, legacyTarget bool) (string, error) {
	if !a.wrote {
		return "", errors.New("bundler: engine emitted no output")
	}

	id := ModuleID(rootURL, CommonPath(a.sources))
	async := strings.Contains(a.body, asyncExecuteMarker)

	var b strings.Builder
	if legacyTarget {
		b.WriteString(loaderLegacy)
	} else {
		b.WriteString(loaderModern)
	}
	b.WriteString("\n")
	b.WriteString(a.body)
	b.WriteString("\n")
	if async {
		fmt.Fprintf(&b, "const __exp = await __instantiate(%q, true);\n", id)
	} else {
		fmt.Fprintf(&b, "const __exp = __instantiate(%q, false);\n", id)
	}
	for _, s := range exports {
		if !s.Flags.IsRuntimeValue() {
			continue
		}
		if s.Name == "default" {
			b.WriteString(`export default __exp["default"];` + "\n")
			continue
		}
		fmt.Fprintf(&b, "export const %s = __exp[%q];\n", s.Name, s.Name)
	}
	return b.String(), nil
}
