package scan

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestImportSpecifiersOrderAndDedup(t *testing.T) {
	src := `import { a } from "./a.ts";
import "./side.ts";
import * as ns from "../lib/ns.ts";
export { b } from "./b.ts";
const later = await import("./lazy.ts");
import { a2 } from "./a.ts";
`
	got := ImportSpecifiers(src)
	want := []string{"./a.ts", "./side.ts", "../lib/ns.ts", "./b.ts", "./lazy.ts"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("specifiers mismatch (-want +got):\n%s", diff)
	}
}

func TestImportSpecifiersBareModule(t *testing.T) {
	got := ImportSpecifiers(`import React from "react";`)
	if len(got) != 1 || got[0] != "react" {
		t.Fatalf("got %v", got)
	}
}

func TestImportSpecifiersNone(t *testing.T) {
	if got := ImportSpecifiers("const a = 1;\n"); len(got) != 0 {
		t.Fatalf("got %v, want none", got)
	}
}

func TestResolveRelative(t *testing.T) {
	cases := []struct {
		spec, containing, want string
		ok                     bool
	}{
		{"./b.ts", "file:///a/main.ts", "file:///a/b.ts", true},
		{"../lib/x.ts", "file:///a/sub/main.ts", "file:///a/lib/x.ts", true},
		{"./b.ts", "/src/main.ts", "/src/b.ts", true},
		{"react", "file:///a/main.ts", "", false},
		{"https://example.com/mod.ts", "file:///a/main.ts", "", false},
	}
	for _, c := range cases {
		got, ok := ResolveRelative(c.spec, c.containing)
		if ok != c.ok || got != c.want {
			t.Fatalf("ResolveRelative(%q, %q) = %q, %v; want %q, %v", c.spec, c.containing, got, ok, c.want, c.ok)
		}
	}
}
