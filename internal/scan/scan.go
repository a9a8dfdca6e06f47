// Package scan extracts import specifiers from module text for the runtime
// (inline-source) request paths, where no upstream resolver has pre-built
// the dependency edges.
//
// The scanner is intentionally simple (regex-based): it only needs to feed
// the resolution cache, not understand the language. Anything it misses the
// engine reports as an unresolved module, which is the same outcome a
// missing cache entry produces.
package scan

import (
	"path"
	"regexp"
	"strings"
)

var (
	// import defaultExport from '...'; import { a, b } from "..."; import * as ns from '...'
	reImportFrom = regexp.MustCompile(`(?m)^\s*import\s+[^'"]*?\bfrom\s*['"]([^'"]+)['"]`)

	// import '...'; (side-effect only)
	reImportBare = regexp.MustCompile(`(?m)^\s*import\s*['"]([^'"]+)['"]`)

	// export { a } from '...'; export * from "..."
	reExportFrom = regexp.MustCompile(`(?m)^\s*export\s+[^'"]*?\bfrom\s*['"]([^'"]+)['"]`)

	// import("...") dynamic imports, anywhere in the line
	reImportCall = regexp.MustCompile(`\bimport\s*\(\s*['"]([^'"]+)['"]\s*\)`)
)

// ImportSpecifiers returns the raw specifiers referenced by the module, in
// first-appearance order, deduped.
func ImportSpecifiers(sourceCode string) []string {
	type hit struct {
		off  int
		spec string
	}
	var hits []hit
	for _, re := range []*regexp.Regexp{reImportFrom, reImportBare, reExportFrom, reImportCall} {
		for _, m := range re.FindAllStringSubmatchIndex(sourceCode, -1) {
			hits = append(hits, hit{off: m[0], spec: sourceCode[m[2]:m[3]]})
		}
	}
	// Insertion-sort by offset; specifier lists are tiny.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].off < hits[j-1].off; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	seen := make(map[string]struct{}, len(hits))
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if _, dup := seen[h.spec]; dup {
			continue
		}
		seen[h.spec] = struct{}{}
		out = append(out, h.spec)
	}
	return out
}

// ResolveRelative resolves a "./" or "../" specifier against the containing
// module's URL/path. Bare specifiers return ("", false): they are left for
// the engine to report as missing.
func ResolveRelative(specifier, containing string) (string, bool) {
	if !strings.HasPrefix(specifier, "./") && !strings.HasPrefix(specifier, "../") {
		return "", false
	}
	scheme := ""
	rest := containing
	if i := strings.Index(containing, "://"); i >= 0 {
		scheme = containing[:i+3]
		rest = containing[i+3:]
	}
	resolved := path.Join(path.Dir(rest), specifier)
	// path.Join strips the leading slash context on scheme-less paths; keep
	// absolute paths absolute.
	if scheme == "" && strings.HasPrefix(rest, "/") && !strings.HasPrefix(resolved, "/") {
		resolved = "/" + resolved
	}
	return scheme + resolved, true
}
