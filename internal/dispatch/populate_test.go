package dispatch

import (
	"testing"

	"compile-host/internal/wire"
)

func TestPopulatePrefersTypeDeclarationForTypelessPrimary(t *testing.T) {
	fileMap := map[string]wire.FileMapEntry{
		"file:///src/main.ts": {
			URL:         "file:///src/main.ts",
			SourceCode:  `import u from "./util.js"; import o from "./other.ts";`,
			VersionHash: "v1",
			Imports: []wire.DependencyEdge{
				// Plain script with a sibling declaration file: checking must
				// see the declaration.
				{Specifier: "./util.js", Resolved: "file:///src/util.js", TypeResolved: "file:///src/util.d.ts"},
				// Typed primary: the declaration sibling is ignored.
				{Specifier: "./other.ts", Resolved: "file:///src/other.ts", TypeResolved: "file:///src/other.d.ts"},
			},
		},
	}
	_, cache, err := populateFileMap(nil, fileMap)
	if err != nil {
		t.Fatalf("populateFileMap: %v", err)
	}

	got, ok := cache.Resolve("./util.js", "file:///src/main.ts")
	if !ok || got != "file:///src/util.d.ts" {
		t.Fatalf("typeless primary resolved to %q, want the declaration file", got)
	}
	got, ok = cache.Resolve("./other.ts", "file:///src/main.ts")
	if !ok || got != "file:///src/other.ts" {
		t.Fatalf("typed primary resolved to %q, want the module itself", got)
	}
}

func TestPopulateRecordsReferenceAndLibEdges(t *testing.T) {
	fileMap := map[string]wire.FileMapEntry{
		"file:///src/main.ts": {
			URL:         "file:///src/main.ts",
			SourceCode:  "export {};",
			VersionHash: "v1",
			ReferencedFiles: []wire.DependencyEdge{
				{Specifier: "./types.d.ts", Resolved: "file:///src/types.d.ts"},
			},
			LibDirectives: []wire.DependencyEdge{
				{Specifier: "host", Resolved: "asset:///lib.host.window.d.ts"},
			},
		},
	}
	_, cache, err := populateFileMap(nil, fileMap)
	if err != nil {
		t.Fatalf("populateFileMap: %v", err)
	}

	if got, ok := cache.Resolve("./types.d.ts", "file:///src/main.ts"); !ok || got != "file:///src/types.d.ts" {
		t.Fatalf("reference edge resolved to %q", got)
	}
	if got, ok := cache.Resolve("host", "file:///src/main.ts"); !ok || got != "asset:///lib.host.window.d.ts" {
		t.Fatalf("lib directive resolved to %q", got)
	}
}

func TestPopulateSkipsUnresolvedEdges(t *testing.T) {
	fileMap := map[string]wire.FileMapEntry{
		"file:///src/main.ts": {
			URL:         "file:///src/main.ts",
			SourceCode:  `import m from "missing";`,
			VersionHash: "v1",
			Imports: []wire.DependencyEdge{
				{Specifier: "missing", Resolved: ""},
			},
		},
	}
	_, cache, err := populateFileMap(nil, fileMap)
	if err != nil {
		t.Fatalf("populateFileMap: %v", err)
	}
	if _, ok := cache.Resolve("missing", "file:///src/main.ts"); ok {
		t.Fatalf("unresolved edge must stay absent from the cache")
	}
}
